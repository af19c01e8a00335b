package bridge

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/wire"
)

func TestCorrelatorResolveOnce(t *testing.T) {
	c := NewCorrelator(Inline{}, 0, 0)
	var replies []Reply
	tok := c.Register("web_app_open_popup", func(r Reply) { replies = append(replies, r) })
	assert.Equal(t, 1, c.Pending())

	assert.True(t, c.Resolve(tok, json.RawMessage(`{"buttonId":"ok"}`)))
	assert.False(t, c.Resolve(tok, json.RawMessage(`{"buttonId":"again"}`)))
	assert.False(t, c.Reject(tok, stderrors.New("late")))
	assert.False(t, c.Expire(tok))

	require.Len(t, replies, 1)
	assert.Equal(t, tok, replies[0].Token)
	assert.Equal(t, "web_app_open_popup", replies[0].Method)
	assert.NoError(t, replies[0].Err)

	var got struct {
		ButtonID string `json:"buttonId"`
	}
	require.NoError(t, replies[0].Decode(&got))
	assert.Equal(t, "ok", got.ButtonID)
	assert.Equal(t, 0, c.Pending())
	assert.True(t, c.Settled(tok))
}

func TestCorrelatorTokensUnique(t *testing.T) {
	c := NewCorrelator(Inline{}, 0, 0)
	seen := make(map[Token]bool)
	for i := 0; i < 500; i++ {
		tok := c.Register("m", nil)
		require.False(t, seen[tok], "duplicate token %s", tok)
		seen[tok] = true
	}
	assert.Equal(t, 500, c.Pending())
}

func TestCorrelatorExactlyOneOutcome(t *testing.T) {
	outcomes := []func(c *Correlator, tok Token) bool{
		func(c *Correlator, tok Token) bool { return c.Resolve(tok, nil) },
		func(c *Correlator, tok Token) bool { return c.Reject(tok, wire.NewChannelError("E", "")) },
		func(c *Correlator, tok Token) bool { return c.Expire(tok) },
		func(c *Correlator, tok Token) bool { return c.Cancel(tok) },
	}
	for i, first := range outcomes {
		c := NewCorrelator(Inline{}, 0, 0)
		calls := 0
		tok := c.Register("m", func(Reply) { calls++ })
		require.True(t, first(c, tok))
		for j, other := range outcomes {
			assert.False(t, other(c, tok), "outcome %d after %d", j, i)
		}
		assert.Equal(t, 1, calls)
	}
}

func TestCorrelatorTimeout(t *testing.T) {
	l := startLoop(t)
	c := NewCorrelator(l, 20*time.Millisecond, 0)

	done := make(chan Reply, 1)
	tok := c.Register("web_app_request_phone", func(r Reply) { done <- r })

	select {
	case r := <-done:
		assert.ErrorIs(t, r.Err, errors.ErrTimeout)
		assert.Equal(t, r.Err, r.Decode(&struct{}{}))
	case <-time.After(2 * time.Second):
		t.Fatal("call did not expire")
	}

	// A late reply is discarded without reaching the callback.
	var late bool
	require.NoError(t, l.Sync(context.Background(), func() error {
		late = c.Resolve(tok, json.RawMessage(`{}`))
		return nil
	}))
	assert.False(t, late)
	assert.True(t, c.Settled(tok))
	assert.Empty(t, done)
}

func TestCorrelatorInlineTimeoutRunsOnTimerGoroutine(t *testing.T) {
	c := NewCorrelator(Inline{}, 10*time.Millisecond, 0)
	caller := make(chan struct{})
	done := make(chan error, 1)
	c.Register("web_app_request_phone", func(r Reply) {
		select {
		case <-caller:
			done <- r.Err
		default:
			done <- stderrors.New("expired on the registering goroutine")
		}
	})
	close(caller)

	select {
	case err := <-done:
		assert.ErrorIs(t, err, errors.ErrTimeout)
	case <-time.After(2 * time.Second):
		t.Fatal("call did not expire")
	}
}

func TestCorrelatorResolveStopsTimer(t *testing.T) {
	c := NewCorrelator(Inline{}, 10*time.Millisecond, 0)
	calls := 0
	tok := c.Register("m", func(Reply) { calls++ })
	c.Resolve(tok, nil)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 1, calls)
}

func TestCorrelatorCancelCause(t *testing.T) {
	c := NewCorrelator(Inline{}, 0, 0)
	var got error
	tok := c.Register("m", func(r Reply) { got = r.Err })
	c.CancelCause(tok, context.DeadlineExceeded)
	assert.ErrorIs(t, got, errors.ErrCanceled)
	assert.ErrorIs(t, got, context.DeadlineExceeded)
	assert.NotErrorIs(t, got, errors.ErrTimeout)
}

func TestCorrelatorRejectKeepsChannelError(t *testing.T) {
	c := NewCorrelator(Inline{}, 0, 0)
	var got error
	tok := c.Register("m", func(r Reply) { got = r.Err })
	c.Reject(tok, wire.NewChannelError("WebAppPopupParamInvalid", "bad"))

	var cerr *wire.ChannelError
	require.ErrorAs(t, got, &cerr)
	assert.Equal(t, "WebAppPopupParamInvalid", cerr.Code)
}

func TestCorrelatorForget(t *testing.T) {
	c := NewCorrelator(Inline{}, time.Hour, 0)
	called := false
	tok := c.Register("m", func(Reply) { called = true })
	c.forget(tok)
	assert.Equal(t, 0, c.Pending())
	assert.False(t, c.Resolve(tok, nil))
	assert.False(t, c.Settled(tok))
	assert.False(t, called)
}

func TestCorrelatorAttachAfterSettle(t *testing.T) {
	c := NewCorrelator(Inline{}, 0, 0)
	tok := c.Register("m", nil)
	c.Resolve(tok, nil)

	stopped := false
	c.attach(tok, func() bool { stopped = true; return true })
	assert.True(t, stopped)
}

func TestCorrelatorCancelAll(t *testing.T) {
	c := NewCorrelator(Inline{}, 0, 0)
	var errs []error
	for i := 0; i < 3; i++ {
		c.Register("m", func(r Reply) { errs = append(errs, r.Err) })
	}
	c.CancelAll(errors.ErrClosed)
	require.Len(t, errs, 3)
	for _, err := range errs {
		assert.ErrorIs(t, err, errors.ErrClosed)
	}
	assert.Equal(t, 0, c.Pending())
}

func TestCorrelatorCallbackPanicReported(t *testing.T) {
	rep := captureReports(t)
	c := NewCorrelator(Inline{}, 0, 0)
	tok := c.Register("web_app_open_popup", func(Reply) { panic("callback broke") })
	assert.True(t, c.Resolve(tok, nil))

	errs := rep.errors()
	require.Len(t, errs, 1)
	assert.Equal(t, errors.KindHandler, errs[0].Kind)
	assert.Equal(t, "web_app_open_popup", errs[0].Method)
	assert.ErrorIs(t, errs[0], errors.ErrHandlerFault)
}

func TestCorrelatorSettledMemoryBounded(t *testing.T) {
	c := NewCorrelator(Inline{}, 0, 2)
	a := c.Register("m", nil)
	b := c.Register("m", nil)
	d := c.Register("m", nil)
	c.Resolve(a, nil)
	c.Resolve(b, nil)
	c.Resolve(d, nil)
	assert.False(t, c.Settled(a))
	assert.True(t, c.Settled(b))
	assert.True(t, c.Settled(d))
}
