package webapp

import (
	"github.com/go-drift/miniapp/pkg/version"
)

// CloseOptions tunes Close.
type CloseOptions struct {
	// ReturnBack returns the user to the chat the app was opened from.
	ReturnBack bool `json:"return_back,omitempty"`
}

// HomeScreenStatus is the answer to CheckHomeScreenStatus.
type HomeScreenStatus string

// Home screen statuses.
const (
	HomeScreenStatusUnsupported HomeScreenStatus = "unsupported"
	HomeScreenStatusUnknown     HomeScreenStatus = "unknown"
	HomeScreenStatusAdded       HomeScreenStatus = "added"
	HomeScreenStatusMissed      HomeScreenStatus = "missed"
)

// Ready tells the host the app has rendered and the placeholder can go.
func (w *WebApp) Ready() error {
	return w.notify("web_app_ready", nil)
}

// Expand asks the host to give the app its full height.
func (w *WebApp) Expand() error {
	return w.notify("web_app_expand", nil)
}

// Close closes the app.
func (w *WebApp) Close(opts CloseOptions) error {
	return w.notify("web_app_close", opts)
}

// RequestFullscreen asks the host for fullscreen mode. The outcome arrives
// as FullscreenChanged or FullscreenFailed.
func (w *WebApp) RequestFullscreen() error {
	if err := w.guard(version.Fullscreen); err != nil {
		return err
	}
	return w.notify("web_app_request_fullscreen", nil)
}

// ExitFullscreen leaves fullscreen mode.
func (w *WebApp) ExitFullscreen() error {
	if err := w.guard(version.Fullscreen); err != nil {
		return err
	}
	return w.notify("web_app_exit_fullscreen", nil)
}

// LockOrientation keeps the current orientation until UnlockOrientation.
func (w *WebApp) LockOrientation() error { return w.toggleOrientationLock(true) }

func (w *WebApp) UnlockOrientation() error { return w.toggleOrientationLock(false) }

func (w *WebApp) toggleOrientationLock(locked bool) error {
	if err := w.guard(version.OrientationLock); err != nil {
		return err
	}
	if err := w.notify("web_app_toggle_orientation_lock", map[string]bool{"locked": locked}); err != nil {
		return err
	}
	w.applyLocal(StateDelta{IsOrientationLocked: &locked})
	return nil
}

// EnableClosingConfirmation makes the host ask before the app closes.
func (w *WebApp) EnableClosingConfirmation() error { return w.setClosingConfirmation(true) }

// DisableClosingConfirmation lets the app close without asking.
func (w *WebApp) DisableClosingConfirmation() error { return w.setClosingConfirmation(false) }

func (w *WebApp) setClosingConfirmation(on bool) error {
	if err := w.guard(version.ClosingConfirmation); err != nil {
		return err
	}
	if err := w.notify("web_app_setup_closing_behavior", map[string]bool{"need_confirmation": on}); err != nil {
		return err
	}
	w.applyLocal(StateDelta{IsClosingConfirmationEnabled: &on})
	return nil
}

// EnableVerticalSwipes lets a vertical swipe collapse or close the app.
func (w *WebApp) EnableVerticalSwipes() error { return w.setVerticalSwipes(true) }

// DisableVerticalSwipes keeps vertical swipes inside the app.
func (w *WebApp) DisableVerticalSwipes() error { return w.setVerticalSwipes(false) }

func (w *WebApp) setVerticalSwipes(on bool) error {
	if err := w.guard(version.VerticalSwipes); err != nil {
		return err
	}
	if err := w.notify("web_app_setup_swipe_behavior", map[string]bool{"allow_vertical_swipe": on}); err != nil {
		return err
	}
	w.applyLocal(StateDelta{IsVerticalSwipesEnabled: &on})
	return nil
}

// AddToHomeScreen asks the host to offer a home screen shortcut.
func (w *WebApp) AddToHomeScreen() error {
	if err := w.guard(version.HomeScreen); err != nil {
		return err
	}
	return w.notify("web_app_add_to_home_screen", nil)
}

// CheckHomeScreenStatus reports whether the shortcut exists.
func (w *WebApp) CheckHomeScreenStatus(cb func(HomeScreenStatus, error)) error {
	if err := w.guard(version.HomeScreen); err != nil {
		return err
	}
	return call(w, "web_app_check_home_screen", nil, func(e HomeScreenChecked, err error) {
		if cb != nil {
			cb(e.Status, err)
		}
	})
}

// HideKeyboard closes the on-screen keyboard.
func (w *WebApp) HideKeyboard() error {
	if err := w.guard(version.HideKeyboard); err != nil {
		return err
	}
	return w.notify("web_app_hide_keyboard", nil)
}

// IsActive reports whether the app is in the foreground.
func (w *WebApp) IsActive() bool { return w.store.Snapshot().IsActive }

// IsExpanded reports whether the app has its full height.
func (w *WebApp) IsExpanded() bool { return w.store.Snapshot().IsExpanded }

func (w *WebApp) IsFullscreen() bool        { return w.store.Snapshot().IsFullscreen }
func (w *WebApp) IsOrientationLocked() bool { return w.store.Snapshot().IsOrientationLocked }

// IsClosingConfirmationEnabled reports whether closing asks the user first.
func (w *WebApp) IsClosingConfirmationEnabled() bool {
	return w.store.Snapshot().IsClosingConfirmationEnabled
}

// IsVerticalSwipesEnabled reports whether a vertical swipe may collapse or
// close the app.
func (w *WebApp) IsVerticalSwipesEnabled() bool {
	return w.store.Snapshot().IsVerticalSwipesEnabled
}

// ViewportHeight is the live visible height. It moves during gestures.
func (w *WebApp) ViewportHeight() float64 { return w.store.Snapshot().ViewportHeight }

// ViewportStableHeight is the height the viewport last settled at.
func (w *WebApp) ViewportStableHeight() float64 { return w.store.Snapshot().ViewportStableHeight }

// SafeAreaInset is the device safe area.
func (w *WebApp) SafeAreaInset() Insets { return w.store.Snapshot().SafeAreaInset }

// ContentSafeAreaInset is the area not covered by host controls.
func (w *WebApp) ContentSafeAreaInset() Insets { return w.store.Snapshot().ContentSafeAreaInset }
