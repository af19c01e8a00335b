package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"go.uber.org/zap"

	"github.com/go-drift/miniapp/pkg/errors"
)

// Token identifies one pending call. It travels as the frame's
// correlationId.
type Token string

// Reply is the single settlement of a pending call. Err is nil when the
// host answered; otherwise it matches ErrTimeout, ErrCanceled, ErrClosed or
// is a *wire.ChannelError sent by the host.
type Reply struct {
	Token   Token
	Method  string
	Payload json.RawMessage
	Err     error
	Latency time.Duration
}

// Decode unmarshals the reply payload into v.
func (r Reply) Decode(v any) error {
	if r.Err != nil {
		return r.Err
	}
	if len(r.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(r.Payload, v)
}

type pendingCall struct {
	token    Token
	method   string
	issuedAt time.Time
	onReply  func(Reply)

	mu       sync.Mutex
	released bool
	timer    *time.Timer
	stop     func() bool
}

// DefaultSettledMemory is how many settled tokens a Correlator remembers.
const DefaultSettledMemory = 1024

// Correlator matches host replies to the calls that asked for them. Each
// token settles at most once; later deliveries for it are ignored.
type Correlator struct {
	pending  *xsync.Map[Token, *pendingCall]
	settled  *lru.Cache[Token, struct{}]
	dispatch Dispatcher
	timeout  time.Duration
	now      func() time.Time
	metrics  *Metrics
	log      *zap.Logger
}

// NewCorrelator creates a correlator whose timers fire onto d. A zero
// timeout disables expiry. memory bounds the settled-token history.
func NewCorrelator(d Dispatcher, timeout time.Duration, memory int) *Correlator {
	if d == nil {
		d = Inline{}
	}
	if memory <= 0 {
		memory = DefaultSettledMemory
	}
	settled, err := lru.New[Token, struct{}](memory)
	if err != nil {
		panic(err)
	}
	return &Correlator{
		pending:  xsync.NewMap[Token, *pendingCall](),
		settled:  settled,
		dispatch: d,
		timeout:  timeout,
		now:      time.Now,
		log:      zap.NewNop(),
	}
}

// Register allocates a token for a call to method. onReply runs exactly
// once, on the dispatcher, unless the token is forgotten first.
func (c *Correlator) Register(method string, onReply func(Reply)) Token {
	tok := Token(uuid.NewString())
	pc := &pendingCall{
		token:    tok,
		method:   method,
		issuedAt: c.now(),
		onReply:  onReply,
	}
	c.pending.Store(tok, pc)
	c.metrics.issued()

	if c.timeout > 0 {
		timer := time.AfterFunc(c.timeout, func() {
			c.dispatch.Dispatch(func() { c.Expire(tok) })
		})
		pc.hold(timer, nil)
	}
	return tok
}

// Resolve settles tok with the host's payload.
func (c *Correlator) Resolve(tok Token, payload json.RawMessage) bool {
	return c.settle(tok, "ok", payload, nil)
}

// Reject settles tok with err.
func (c *Correlator) Reject(tok Token, err error) bool {
	return c.settle(tok, "error", nil, err)
}

// Expire settles tok with ErrTimeout. The host may still act on the call.
func (c *Correlator) Expire(tok Token) bool {
	return c.settle(tok, "timeout", nil, fmt.Errorf("%w after %s", errors.ErrTimeout, c.timeout))
}

// Cancel settles tok with ErrCanceled.
func (c *Correlator) Cancel(tok Token) bool {
	return c.settle(tok, "canceled", nil, errors.ErrCanceled)
}

// CancelCause settles tok with ErrCanceled wrapping cause.
func (c *Correlator) CancelCause(tok Token, cause error) bool {
	err := errors.ErrCanceled
	if cause != nil {
		err = fmt.Errorf("%w: %w", errors.ErrCanceled, cause)
	}
	return c.settle(tok, "canceled", nil, err)
}

// Pending returns the number of unsettled calls.
func (c *Correlator) Pending() int {
	return c.pending.Size()
}

// Settled reports whether tok was settled recently.
func (c *Correlator) Settled(tok Token) bool {
	return c.settled.Contains(tok)
}

// CancelAll settles every pending call with err.
func (c *Correlator) CancelAll(err error) {
	c.pending.Range(func(tok Token, _ *pendingCall) bool {
		c.settle(tok, "canceled", nil, err)
		return true
	})
}

// forget drops tok without running its callback. Used when the call never
// left the process.
func (c *Correlator) forget(tok Token) {
	if pc, ok := c.pending.LoadAndDelete(tok); ok {
		pc.release()
		c.metrics.forgotten()
	}
}

// attach ties stop to tok so it is released on settlement. If tok already
// settled, stop runs immediately.
func (c *Correlator) attach(tok Token, stop func() bool) {
	pc, ok := c.pending.Load(tok)
	if !ok {
		stop()
		return
	}
	pc.hold(nil, stop)
}

func (c *Correlator) settle(tok Token, outcome string, payload json.RawMessage, err error) bool {
	pc, ok := c.pending.LoadAndDelete(tok)
	if !ok {
		return false
	}
	pc.release()
	c.settled.Add(tok, struct{}{})

	latency := c.now().Sub(pc.issuedAt)
	c.metrics.settled(pc.method, outcome, latency)
	c.log.Debug("call settled",
		zap.String("method", pc.method),
		zap.String("correlation_id", string(tok)),
		zap.String("outcome", outcome),
		zap.Duration("latency", latency),
	)

	if pc.onReply != nil {
		c.deliver(pc, Reply{Token: tok, Method: pc.method, Payload: payload, Err: err, Latency: latency})
	}
	return true
}

func (c *Correlator) deliver(pc *pendingCall, r Reply) {
	defer func() {
		if rec := recover(); rec != nil {
			errors.Report(&errors.BridgeError{
				Op:         "bridge.Correlator.deliver",
				Kind:       errors.KindHandler,
				Method:     pc.method,
				Err:        fmt.Errorf("%w: %v", errors.ErrHandlerFault, rec),
				StackTrace: errors.CaptureStack(),
			})
		}
	}()
	pc.onReply(r)
}

// hold records resources to free on settlement. Anything handed over after
// release is freed at once.
func (pc *pendingCall) hold(timer *time.Timer, stop func() bool) {
	pc.mu.Lock()
	released := pc.released
	if !released {
		if timer != nil {
			pc.timer = timer
		}
		if stop != nil {
			pc.stop = stop
		}
	}
	pc.mu.Unlock()

	if released {
		if timer != nil {
			timer.Stop()
		}
		if stop != nil {
			stop()
		}
	}
}

func (pc *pendingCall) release() {
	pc.mu.Lock()
	pc.released = true
	timer, stop := pc.timer, pc.stop
	pc.timer, pc.stop = nil, nil
	pc.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
	if stop != nil {
		stop()
	}
}
