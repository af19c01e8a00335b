// Package hostsim is an in-memory stand-in for a Mini App host container.
//
// A Host is the other end of a bridge transport: it records every frame the
// app sends, answers calls with scripted responders, and pushes events
// back. Tests use it as a transport spy; the miniapp CLI uses it to drive a
// bridge without a real container.
package hostsim

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/go-drift/miniapp/pkg/wire"
)

// Responder answers one call. It runs on the goroutine that sent the call
// and may use h to reply or emit.
type Responder func(h *Host, call wire.Envelope)

// Host records outbound frames and delivers inbound ones.
type Host struct {
	codec wire.Codec
	log   *zap.Logger

	mu         sync.Mutex
	receive    func([]byte)
	calls      []wire.Envelope
	responders map[string]Responder
	sendErr    error
}

// Option configures a Host.
type Option func(*Host)

// WithCodec sets the codec used for both directions.
func WithCodec(c wire.Codec) Option {
	return func(h *Host) { h.codec = c }
}

// WithLogger logs every frame at debug level.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) { h.log = l }
}

// New creates a host with no responders.
func New(opts ...Option) *Host {
	h := &Host{
		codec:      wire.DefaultCodec,
		log:        zap.NewNop(),
		responders: make(map[string]Responder),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Send implements the app side of the transport. Frames that fail to
// decode are still refused with the decode error.
func (h *Host) Send(frame []byte) error {
	h.mu.Lock()
	if err := h.sendErr; err != nil {
		h.mu.Unlock()
		return err
	}
	h.mu.Unlock()

	env, err := h.codec.Decode(frame)
	if err != nil {
		return err
	}
	h.log.Debug("host received", zap.String("method", env.Method), zap.String("correlation_id", env.CorrelationID))

	h.mu.Lock()
	h.calls = append(h.calls, env)
	respond := h.responders[env.Method]
	h.mu.Unlock()

	if respond != nil {
		respond(h, env)
	}
	return nil
}

// OnReceive implements the app side of the transport.
func (h *Host) OnReceive(handler func([]byte)) {
	h.mu.Lock()
	h.receive = handler
	h.mu.Unlock()
}

// Handle installs r for method, replacing any previous responder.
func (h *Host) Handle(method string, r Responder) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r == nil {
		delete(h.responders, method)
		return
	}
	h.responders[method] = r
}

// FailSends makes every following Send return err. Pass nil to recover.
func (h *Host) FailSends(err error) {
	h.mu.Lock()
	h.sendErr = err
	h.mu.Unlock()
}

// Emit pushes an unsolicited event to the app.
func (h *Host) Emit(name string, payload any) error {
	frame, err := h.codec.EncodeEvent(name, payload, "")
	if err != nil {
		return err
	}
	return h.Deliver(frame)
}

// Reply answers call with an event carrying its correlation id. An empty
// name sends a bare reply.
func (h *Host) Reply(call wire.Envelope, name string, payload any) error {
	if call.CorrelationID == "" {
		return fmt.Errorf("hostsim: %s expects no reply", call.Method)
	}
	frame, err := h.codec.EncodeEvent(name, payload, call.CorrelationID)
	if err != nil {
		return err
	}
	return h.Deliver(frame)
}

// Fail rejects call with a channel error.
func (h *Host) Fail(call wire.Envelope, code, message string) error {
	frame, err := h.codec.EncodeError(call.CorrelationID, wire.NewChannelError(code, message))
	if err != nil {
		return err
	}
	return h.Deliver(frame)
}

// Deliver hands a raw frame to the app. It is how tests inject malformed
// input.
func (h *Host) Deliver(frame []byte) error {
	h.mu.Lock()
	receive := h.receive
	h.mu.Unlock()
	if receive == nil {
		return fmt.Errorf("hostsim: no receiver attached")
	}
	h.log.Debug("host sent", zap.Int("bytes", len(frame)))
	receive(frame)
	return nil
}

// Calls returns every call received so far.
func (h *Host) Calls() []wire.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]wire.Envelope, len(h.calls))
	copy(out, h.calls)
	return out
}

// CallsTo returns the calls received for method, oldest first.
func (h *Host) CallsTo(method string) []wire.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []wire.Envelope
	for _, c := range h.calls {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call for method.
func (h *Host) Last(method string) (wire.Envelope, bool) {
	calls := h.CallsTo(method)
	if len(calls) == 0 {
		return wire.Envelope{}, false
	}
	return calls[len(calls)-1], true
}

// Count returns the number of calls received.
func (h *Host) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

// Reset forgets recorded calls. Responders stay installed.
func (h *Host) Reset() {
	h.mu.Lock()
	h.calls = nil
	h.mu.Unlock()
}
