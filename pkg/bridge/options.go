package bridge

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/go-drift/miniapp/pkg/wire"
)

type config struct {
	codec         wire.Codec
	dispatcher    Dispatcher
	callTimeout   time.Duration
	logger        *zap.Logger
	registerer    prometheus.Registerer
	metrics       bool
	rps           float64
	burst         int
	settledMemory int
}

// Option configures a Bridge.
type Option func(*config)

// WithCodec replaces the frame codec. The default is wire.DefaultCodec.
func WithCodec(c wire.Codec) Option {
	return func(cfg *config) { cfg.codec = c }
}

// WithDispatcher sets where inbound frames and callbacks run. The default
// is Inline.
func WithDispatcher(d Dispatcher) Option {
	return func(cfg *config) { cfg.dispatcher = d }
}

// WithCallTimeout gives every pending call a soft deadline. Zero, the
// default, waits forever. Expiry is handed to the dispatcher from a timer
// goroutine; with Inline the expired callback therefore runs on that timer
// goroutine, so pair a timeout with a Loop when callbacks touch shared
// state.
func WithCallTimeout(d time.Duration) Option {
	return func(cfg *config) { cfg.callTimeout = d }
}

// WithLogger sets the bridge logger. Sensitive fields are redacted before
// they reach it.
func WithLogger(l *zap.Logger) Option {
	return func(cfg *config) { cfg.logger = l }
}

// WithMetrics enables Prometheus collectors. A nil registerer keeps them
// unregistered.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(cfg *config) {
		cfg.metrics = true
		cfg.registerer = reg
	}
}

// WithRateLimit caps outbound calls per method. Calls over the limit fail
// with ErrThrottled before anything is sent.
func WithRateLimit(rps float64, burst int) Option {
	return func(cfg *config) {
		cfg.rps = rps
		cfg.burst = burst
	}
}

// WithSettledMemory sets how many settled tokens are remembered to tell
// late replies from stray ones.
func WithSettledMemory(n int) Option {
	return func(cfg *config) { cfg.settledMemory = n }
}
