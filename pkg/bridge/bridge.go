package bridge

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/privacylog"
	"github.com/go-drift/miniapp/pkg/wire"
)

// Bridge is one live connection between a Mini App and its host.
type Bridge struct {
	transport  Transport
	codec      wire.Codec
	catalog    Catalog
	dispatcher Dispatcher
	corr       *Correlator
	bus        *Bus
	throttle   *Throttle
	metrics    *Metrics
	log        *zap.Logger

	reducersMu sync.RWMutex
	reducers   []func(Event, bool)

	closed atomic.Bool
}

// New connects a bridge to t. Inbound frames are accepted as soon as New
// returns.
func New(t Transport, catalog Catalog, opts ...Option) (*Bridge, error) {
	if t == nil {
		return nil, fmt.Errorf("bridge: nil transport")
	}
	cfg := config{
		codec:      wire.DefaultCodec,
		dispatcher: Inline{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = Logger()
	}

	b := &Bridge{
		transport:  t,
		codec:      cfg.codec,
		catalog:    catalog,
		dispatcher: cfg.dispatcher,
		bus:        NewBus(),
		throttle:   NewThrottle(cfg.rps, cfg.burst),
		log:        privacylog.Wrap(cfg.logger).Named("bridge"),
	}
	if cfg.metrics {
		m, err := NewMetrics(cfg.registerer)
		if err != nil {
			return nil, fmt.Errorf("bridge: register metrics: %w", err)
		}
		b.metrics = m
	}
	b.corr = NewCorrelator(cfg.dispatcher, cfg.callTimeout, cfg.settledMemory)
	b.corr.metrics = b.metrics
	b.corr.log = b.log

	t.OnReceive(b.receive)
	return b, nil
}

// Bus returns the event bus.
func (b *Bridge) Bus() *Bus { return b.bus }

// Correlator returns the pending-call table.
func (b *Bridge) Correlator() *Correlator { return b.corr }

// Dispatcher returns the dispatcher bridge work runs on.
func (b *Bridge) Dispatcher() Dispatcher { return b.dispatcher }

// Logger returns the bridge's redacting logger.
func (b *Bridge) Logger() *zap.Logger { return b.log }

// On registers l for name.
func (b *Bridge) On(name EventName, l *Listener) { b.bus.On(name, l) }

// Off removes one registration of l for name.
func (b *Bridge) Off(name EventName, l *Listener) bool { return b.bus.Off(name, l) }

// Emit runs reducers and then delivers e to listeners. Call it on the
// dispatcher.
func (b *Bridge) Emit(e Event) { b.emit(e, false) }

func (b *Bridge) emit(e Event, correlated bool) {
	b.reducersMu.RLock()
	reducers := b.reducers
	b.reducersMu.RUnlock()
	for _, fn := range reducers {
		fn(e, correlated)
	}
	b.metrics.event(e.EventName())
	b.bus.Emit(e)
}

// AddReducer registers fn to observe every event before listeners do.
// Reducers keep derived state current for the listeners that follow.
// correlated is true when the frame carrying the event answered a call;
// its callback has already run by then.
func (b *Bridge) AddReducer(fn func(e Event, correlated bool)) {
	if fn == nil {
		return
	}
	b.reducersMu.Lock()
	b.reducers = append(b.reducers[:len(b.reducers):len(b.reducers)], fn)
	b.reducersMu.Unlock()
}

// Notify sends a call that expects no reply.
func (b *Bridge) Notify(method string, payload any) error {
	if err := b.admit(method); err != nil {
		return err
	}
	frame, err := b.codec.EncodeCall(method, payload, "")
	if err != nil {
		b.metrics.call(method, "rejected")
		return fmt.Errorf("%s: %w", method, err)
	}
	return b.send(method, frame)
}

// Call sends a call and arranges for onReply to run once with the outcome.
// Errors returned here mean nothing was sent and onReply will not run.
func (b *Bridge) Call(method string, payload any, onReply func(Reply)) (Token, error) {
	if err := b.admit(method); err != nil {
		return "", err
	}
	tok := b.corr.Register(method, onReply)
	frame, err := b.codec.EncodeCall(method, payload, string(tok))
	if err != nil {
		b.corr.forget(tok)
		b.metrics.call(method, "rejected")
		return "", fmt.Errorf("%s: %w", method, err)
	}
	if err := b.send(method, frame); err != nil {
		b.corr.forget(tok)
		return "", err
	}
	return tok, nil
}

// CallContext is like Call but cancels the pending call when ctx is done.
// onReply then receives an error matching ErrCanceled.
func (b *Bridge) CallContext(ctx context.Context, method string, payload any, onReply func(Reply)) (Token, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%s: %w: %w", method, errors.ErrCanceled, err)
	}
	tok, err := b.Call(method, payload, onReply)
	if err != nil {
		return "", err
	}
	stop := context.AfterFunc(ctx, func() {
		b.dispatcher.Dispatch(func() { b.corr.CancelCause(tok, context.Cause(ctx)) })
	})
	b.corr.attach(tok, stop)
	return tok, nil
}

// Close stops accepting calls and cancels every pending call with
// ErrClosed.
func (b *Bridge) Close() error {
	if !b.closed.CompareAndSwap(false, true) {
		return nil
	}
	b.dispatcher.Dispatch(func() { b.corr.CancelAll(errors.ErrClosed) })
	return nil
}

func (b *Bridge) admit(method string) error {
	if b.closed.Load() {
		return fmt.Errorf("%s: %w", method, errors.ErrClosed)
	}
	if !b.throttle.Allow(method, time.Now()) {
		b.metrics.call(method, "throttled")
		return fmt.Errorf("%s: %w", method, errors.ErrThrottled)
	}
	return nil
}

func (b *Bridge) send(method string, frame []byte) error {
	if err := b.transport.Send(frame); err != nil {
		b.metrics.call(method, "failed")
		errors.Report(&errors.BridgeError{
			Op:     "bridge.send",
			Kind:   errors.KindPlatform,
			Method: method,
			Err:    err,
		})
		return fmt.Errorf("%s: send: %w", method, err)
	}
	b.metrics.call(method, "sent")
	b.log.Debug("call sent", zap.String("method", method), zap.Int("bytes", len(frame)))
	return nil
}

func (b *Bridge) receive(frame []byte) {
	raw := make([]byte, len(frame))
	copy(raw, frame)
	if !b.dispatcher.Dispatch(func() { b.route(raw) }) {
		b.metrics.drop("stopped")
	}
}

// route handles one inbound frame. Replies settle their call before the
// event of the same frame is emitted.
func (b *Bridge) route(raw []byte) {
	env, err := b.codec.Decode(raw)
	if err != nil {
		b.drop("decode", "", err)
		return
	}
	if env.Kind != wire.KindEvent {
		b.drop("unexpected_call", env.Method, fmt.Errorf("%w: host sent a call frame", errors.ErrProtocolDecode))
		return
	}

	if env.CorrelationID != "" {
		b.settle(env)
	}
	if env.Name == "" {
		return
	}

	name := EventName(env.Name)
	evt, err := b.catalog.Decode(name, env.Payload)
	if err != nil {
		b.drop("event", env.Name, err)
		return
	}
	b.log.Debug("event received", zap.String("event", env.Name), privacylog.Payload("payload", env.Payload))
	b.emit(evt, env.CorrelationID != "")
}

func (b *Bridge) settle(env wire.Envelope) {
	tok := Token(env.CorrelationID)
	var settled bool
	if env.Error != nil {
		settled = b.corr.Reject(tok, env.Error)
	} else {
		settled = b.corr.Resolve(tok, env.Payload)
	}
	if settled {
		return
	}
	if b.corr.Settled(tok) {
		b.log.Debug("late reply discarded", zap.String("correlation_id", env.CorrelationID), zap.String("event", env.Name))
		return
	}
	b.metrics.drop("unknown_token")
	b.log.Warn("reply for unknown call", zap.String("correlation_id", env.CorrelationID), zap.String("event", env.Name))
}

func (b *Bridge) drop(reason, subject string, err error) {
	b.metrics.drop(reason)
	b.log.Warn("frame dropped", zap.String("reason", reason), zap.String("subject", subject), zap.Error(err))
	errors.Report(&errors.BridgeError{
		Op:    "bridge.route",
		Kind:  errors.KindParsing,
		Event: subject,
		Err:   err,
	})
}
