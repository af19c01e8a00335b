package bridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the bridge's Prometheus collectors. A nil *Metrics records
// nothing.
type Metrics struct {
	calls   *prometheus.CounterVec
	replies *prometheus.CounterVec
	events  *prometheus.CounterVec
	dropped *prometheus.CounterVec
	pending prometheus.Gauge
	latency *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg when reg
// is non-nil.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "bridge",
			Name:      "calls_total",
			Help:      "Outbound calls by method and send result.",
		}, []string{"method", "result"}),
		replies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "bridge",
			Name:      "replies_total",
			Help:      "Settled pending calls by method and outcome.",
		}, []string{"method", "outcome"}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "bridge",
			Name:      "events_total",
			Help:      "Inbound events emitted by name.",
		}, []string{"event"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "bridge",
			Name:      "dropped_frames_total",
			Help:      "Inbound frames dropped by reason.",
		}, []string{"reason"}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "miniapp",
			Subsystem: "bridge",
			Name:      "pending_calls",
			Help:      "Calls waiting for a host reply.",
		}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "miniapp",
			Subsystem: "bridge",
			Name:      "reply_latency_seconds",
			Help:      "Time from call to settlement.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"method"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{m.calls, m.replies, m.events, m.dropped, m.pending, m.latency} {
			if err := reg.Register(c); err != nil {
				return nil, err
			}
		}
	}
	return m, nil
}

func (m *Metrics) call(method, result string) {
	if m == nil {
		return
	}
	m.calls.WithLabelValues(method, result).Inc()
}

func (m *Metrics) issued() {
	if m == nil {
		return
	}
	m.pending.Inc()
}

func (m *Metrics) settled(method, outcome string, latency time.Duration) {
	if m == nil {
		return
	}
	m.pending.Dec()
	m.replies.WithLabelValues(method, outcome).Inc()
	m.latency.WithLabelValues(method).Observe(latency.Seconds())
}

func (m *Metrics) forgotten() {
	if m == nil {
		return
	}
	m.pending.Dec()
}

func (m *Metrics) event(name EventName) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(string(name)).Inc()
}

func (m *Metrics) drop(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}
