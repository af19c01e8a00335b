package webapp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/miniapp/pkg/bridge"
	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/hostsim"
	"github.com/go-drift/miniapp/pkg/wire"
)

// newLoopApp runs the app on a bridge.Loop, so replies arrive as later
// tasks instead of inside the call that caused them.
func newLoopApp(t *testing.T, version string) (*WebApp, *hostsim.Host, *bridge.Loop) {
	t.Helper()
	loop := bridge.NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	go loop.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-loop.Done()
	})
	app, host := newTestApp(t, version, WithBridgeOptions(bridge.WithDispatcher(loop)))
	return app, host, loop
}

// onLoop runs fn as one task and waits for it.
func onLoop(t *testing.T, loop *bridge.Loop, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, loop.Sync(ctx, func() error {
		fn()
		return nil
	}))
}

func TestLoopLocalWritesVisibleInSameTask(t *testing.T) {
	app, host, loop := newLoopApp(t, "8.0")

	var errs []error
	var confirm, locked, swipes bool
	var header string
	onLoop(t, loop, func() {
		errs = append(errs,
			app.EnableClosingConfirmation(),
			app.LockOrientation(),
			app.DisableVerticalSwipes(),
			app.SetHeaderColor("#112233"),
		)
		confirm = app.IsClosingConfirmationEnabled()
		locked = app.IsOrientationLocked()
		swipes = app.IsVerticalSwipesEnabled()
		header = app.HeaderColor()
	})

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.True(t, confirm)
	assert.True(t, locked)
	assert.False(t, swipes)
	assert.Equal(t, "#112233", header)
	assert.Equal(t, 4, host.Count())
}

func TestLoopButtonTransitionsApplyInPlace(t *testing.T) {
	app, host, loop := newLoopApp(t, "8.0")

	var model ButtonModel
	var pushErr error
	onLoop(t, loop, func() {
		mb := app.MainButton().SetText("Pay").Show().Disable()
		model = mb.Model()
		pushErr = mb.Err()
	})
	require.NoError(t, pushErr)
	assert.Equal(t, "Pay", model.Text)
	assert.True(t, model.IsVisible)
	assert.False(t, model.IsActive)
	assert.NotEmpty(t, host.CallsTo("web_app_setup_main_button"))

	boom := errors.New("link down")
	host.FailSends(boom)
	var visible bool
	onLoop(t, loop, func() {
		back := app.BackButton().Show()
		visible = back.IsVisible()
		pushErr = back.Err()
	})
	assert.True(t, visible)
	assert.ErrorIs(t, pushErr, boom)
}

func TestLoopChainedPopupKeepsSlot(t *testing.T) {
	app, host, loop := newLoopApp(t, "8.0")
	opened := 0
	host.Handle("web_app_open_popup", func(h *hostsim.Host, c wire.Envelope) {
		opened++
		if opened == 1 {
			assert.NoError(t, h.Reply(c, "popupClosed", map[string]string{"buttonId": "ok"}))
		}
	})

	var confirmed bool
	var alertErr error
	onLoop(t, loop, func() {
		assert.NoError(t, app.ShowConfirm("Delete the draft?", func(ok bool, err error) {
			assert.NoError(t, err)
			confirmed = ok
			alertErr = app.ShowAlert("Deleted", nil)
		}))
	})

	// The reply was queued behind the first task, so it has run by now.
	var open bool
	var third error
	onLoop(t, loop, func() {
		open = app.IsPopupOpen()
		third = app.ShowAlert("again", nil)
	})

	assert.True(t, confirmed)
	assert.NoError(t, alertErr)
	assert.True(t, open)
	assert.ErrorIs(t, third, errors.ErrPopupOpen)
	assert.Len(t, host.CallsTo("web_app_open_popup"), 2)
	assert.Equal(t, 2, opened)
}
