// Package simsrv serves a simulated Mini App host over HTTP. Every
// WebSocket session gets its own hostsim Device, so storage and sensor
// state never leak between sessions.
package simsrv

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/go-drift/miniapp/pkg/hostsim"
	"github.com/go-drift/miniapp/pkg/privacylog"
	"github.com/go-drift/miniapp/pkg/webapp"
	"github.com/go-drift/miniapp/pkg/wstransport"
)

// Server hands out launch parameters and hosts bridge sessions.
type Server struct {
	profile hostsim.Profile
	log     *zap.Logger
	reg     *prometheus.Registry

	sessions prometheus.Gauge
	frames   *prometheus.CounterVec

	mu      sync.Mutex
	conns   map[*wstransport.Conn]struct{}
	closing bool
}

// New creates a server for profile. A nil logger discards output.
func New(profile hostsim.Profile, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		profile: profile,
		log:     privacylog.Wrap(log.Named("simsrv")),
		reg:     prometheus.NewRegistry(),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "miniapp",
			Subsystem: "simulator",
			Name:      "sessions",
			Help:      "Open WebSocket sessions.",
		}),
		frames: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "miniapp",
			Subsystem: "simulator",
			Name:      "frames_total",
			Help:      "Frames relayed by direction and result.",
		}, []string{"direction", "result"}),
		conns: make(map[*wstransport.Conn]struct{}),
	}
	for _, c := range []prometheus.Collector{
		s.sessions,
		s.frames,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	} {
		if err := s.reg.Register(c); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Registry is where simulator collectors live. Callers may register more.
func (s *Server) Registry() *prometheus.Registry { return s.reg }

// Handler returns the HTTP routes:
//
//	GET /healthz  liveness
//	GET /launch   launch parameters for a new session
//	GET /ws       bridge transport
//	GET /metrics  Prometheus exposition
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(chimw.RequestID)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/launch", s.handleLaunch)
	r.Get("/ws", s.handleWS)
	r.Handle("/metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{Registry: s.reg}))
	return r
}

// Launch builds the parameters a page would be started with. Each call
// carries fresh init data.
func (s *Server) Launch() webapp.LaunchParams {
	var theme webapp.ThemeParams
	if raw, err := json.Marshal(s.profile.Theme); err == nil {
		if err := json.Unmarshal(raw, &theme); err != nil {
			s.log.Warn("profile theme ignored", zap.Error(err))
		}
	}

	queryID := uuid.NewString()
	initData := url.Values{}
	initData.Set("query_id", queryID)
	initData.Set("auth_date", strconv.FormatInt(time.Now().Unix(), 10))
	initData.Set("hash", "simulated")
	unsafeData, _ := json.Marshal(map[string]any{
		"query_id":  queryID,
		"auth_date": time.Now().Unix(),
		"hash":      "simulated",
	})

	return webapp.LaunchParams{
		InitData:       initData.Encode(),
		InitDataUnsafe: unsafeData,
		Version:        s.profile.Version,
		Platform:       s.profile.Platform,
		ThemeParams:    theme,
		ViewportHeight: s.profile.ViewportHeight,
	}
}

func (s *Server) handleLaunch(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.Launch()); err != nil {
		s.log.Warn("write launch params", zap.Error(err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := wstransport.Upgrade(w, r, wstransport.WithLogger(s.log))
	if err != nil {
		s.log.Warn("upgrade failed", zap.Error(err))
		return
	}
	if !s.track(conn) {
		conn.Close()
		return
	}
	defer s.untrack(conn)

	log := s.log.With(zap.String("session", chimw.GetReqID(r.Context())))
	host := hostsim.New(hostsim.WithLogger(log))
	hostsim.NewDevice(s.profile).Install(host)

	host.OnReceive(func(frame []byte) {
		if err := conn.Send(frame); err != nil {
			s.frames.WithLabelValues("to_app", "error").Inc()
			log.Warn("relay to app failed", zap.Error(err))
			return
		}
		s.frames.WithLabelValues("to_app", "ok").Inc()
	})
	conn.OnReceive(func(frame []byte) {
		if err := host.Send(frame); err != nil {
			s.frames.WithLabelValues("to_host", "rejected").Inc()
			log.Debug("frame rejected", zap.Error(err), privacylog.Payload("frame", frame))
			return
		}
		s.frames.WithLabelValues("to_host", "ok").Inc()
	})

	log.Info("session opened", zap.String("remote", r.RemoteAddr))
	<-conn.Done()
	log.Info("session closed", zap.Error(conn.Err()))
}

func (s *Server) track(c *wstransport.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closing {
		return false
	}
	s.conns[c] = struct{}{}
	s.sessions.Inc()
	return true
}

func (s *Server) untrack(c *wstransport.Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c]; ok {
		delete(s.conns, c)
		s.sessions.Dec()
	}
}

// Close ends every open session and refuses new ones. Hijacked
// connections are not covered by http.Server.Shutdown, so callers stop
// the listener first and then call Close.
func (s *Server) Close() {
	s.mu.Lock()
	s.closing = true
	conns := make([]*wstransport.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}

// Sessions reports how many sessions are open.
func (s *Server) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}
