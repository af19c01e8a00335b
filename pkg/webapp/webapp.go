// Package webapp is the Mini App facade: a typed view of host state, the
// bottom bar buttons and every host capability, built on one bridge.
//
// A WebApp is created from a transport and the launch parameters the host
// handed to the page:
//
//	app, err := webapp.New(t, launch)
//	if err != nil {
//		return err
//	}
//	app.MainButton().SetText("Pay").Show()
//	webapp.On(app, func(e webapp.ViewportChanged) { ... })
//
// Methods return synchronously once the request is on the wire. Results
// that need a host round trip arrive through callbacks on the bridge
// dispatcher.
package webapp

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/go-drift/miniapp/pkg/bridge"
	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/version"
)

// LaunchParams is what the host hands the page at startup.
type LaunchParams struct {
	// InitData and InitDataUnsafe are passed through untouched. Their
	// signature is checked server side, never here.
	InitData       string          `json:"initData,omitempty" yaml:"init_data,omitempty"`
	InitDataUnsafe json.RawMessage `json:"initDataUnsafe,omitempty" yaml:"-"`

	Version              string      `json:"version" yaml:"version"`
	Platform             string      `json:"platform" yaml:"platform"`
	ColorScheme          ColorScheme `json:"colorScheme,omitempty" yaml:"color_scheme,omitempty"`
	ThemeParams          ThemeParams `json:"themeParams" yaml:"theme_params"`
	ViewportHeight       float64     `json:"viewportHeight" yaml:"viewport_height"`
	IsExpanded           bool        `json:"isExpanded" yaml:"is_expanded"`
	IsFullscreen         bool        `json:"isFullscreen" yaml:"is_fullscreen"`
	SafeAreaInset        Insets      `json:"safeAreaInset" yaml:"safe_area_inset"`
	ContentSafeAreaInset Insets      `json:"contentSafeAreaInset" yaml:"content_safe_area_inset"`
}

type config struct {
	bridgeOpts []bridge.Option
}

// Option configures a WebApp.
type Option func(*config)

// WithBridgeOptions passes options through to the underlying bridge.
func WithBridgeOptions(opts ...bridge.Option) Option {
	return func(c *config) {
		c.bridgeOpts = append(c.bridgeOpts, opts...)
	}
}

// WebApp is one Mini App session.
type WebApp struct {
	bridge *bridge.Bridge
	gate   *version.Gate
	store  *Store
	launch LaunchParams
	log    *zap.Logger

	back      *BackButton
	main      *BottomButton
	secondary *BottomButton
	settings  *SettingsButton

	haptic        *HapticFeedback
	cloud         *CloudStorage
	biometric     *BiometricManager
	accelerometer *Accelerometer
	gyroscope     *Gyroscope
	orientation   *DeviceOrientation
	location      *LocationManager
	deviceStorage *DeviceStorage
	secureStorage *SecureStorage

	popup popupSlot
	qr    qrSession
}

// New starts a session over t.
func New(t bridge.Transport, launch LaunchParams, opts ...Option) (*WebApp, error) {
	var cfg config
	for _, opt := range opts {
		opt(&cfg)
	}
	b, err := bridge.New(t, Catalog, cfg.bridgeOpts...)
	if err != nil {
		return nil, err
	}

	initial := State{
		ColorScheme:             launch.ColorScheme,
		ThemeParams:             launch.ThemeParams,
		IsActive:                true,
		IsExpanded:              launch.IsExpanded,
		ViewportHeight:          launch.ViewportHeight,
		ViewportStableHeight:    launch.ViewportHeight,
		IsVerticalSwipesEnabled: true,
		IsFullscreen:            launch.IsFullscreen,
		SafeAreaInset:           launch.SafeAreaInset,
		ContentSafeAreaInset:    launch.ContentSafeAreaInset,
	}
	w := &WebApp{
		bridge: b,
		gate:   version.NewGate(launch.Version),
		store:  NewStore(initial),
		launch: launch,
		log:    b.Logger().Named("webapp"),
	}
	w.store.Apply(StateDelta{
		HeaderColor:     ptr(KeyBgColor),
		BackgroundColor: ptr(KeyBgColor),
		BottomBarColor:  ptr(KeyBottomBarBgColor),
	})

	w.back = newBackButton(w)
	w.main = newBottomButton(w, mainButtonSpec)
	w.secondary = newBottomButton(w, secondaryButtonSpec)
	w.settings = newSettingsButton(w)

	w.haptic = &HapticFeedback{app: w}
	w.cloud = &CloudStorage{app: w}
	w.biometric = newBiometricManager(w)
	w.accelerometer = &Accelerometer{sensor: newSensor(w, accelerometerSpec)}
	w.gyroscope = &Gyroscope{sensor: newSensor(w, gyroscopeSpec)}
	w.orientation = newDeviceOrientation(w)
	w.location = newLocationManager(w)
	w.deviceStorage = &DeviceStorage{app: w}
	w.secureStorage = &SecureStorage{app: w}

	b.AddReducer(w.reduce)
	return w, nil
}

// Bridge returns the underlying bridge.
func (w *WebApp) Bridge() *bridge.Bridge { return w.bridge }

// Gate returns the capability gate for the host version.
func (w *WebApp) Gate() *version.Gate { return w.gate }

// Store returns the state store.
func (w *WebApp) Store() *Store { return w.store }

// State returns a snapshot of host state.
func (w *WebApp) State() State { return w.store.Snapshot() }

// InitData is the signed launch string, passed through untouched.
func (w *WebApp) InitData() string { return w.launch.InitData }

// InitDataUnsafe is the decoded launch data. Nothing vouches for it.
func (w *WebApp) InitDataUnsafe() json.RawMessage { return w.launch.InitDataUnsafe }

// Version is the host API version in use.
func (w *WebApp) Version() string { return w.gate.Version().String() }

// Platform names the host client, such as "ios" or "tdesktop".
func (w *WebApp) Platform() string { return w.launch.Platform }

// IsVersionAtLeast reports whether the host API is at least v.
func (w *WebApp) IsVersionAtLeast(v string) bool { return w.gate.IsVersionAtLeast(v) }

// Controllers. Each is created once per WebApp and shared by all callers.

func (w *WebApp) BackButton() *BackButton               { return w.back }
func (w *WebApp) MainButton() *BottomButton             { return w.main }
func (w *WebApp) SecondaryButton() *BottomButton        { return w.secondary }
func (w *WebApp) SettingsButton() *SettingsButton       { return w.settings }
func (w *WebApp) HapticFeedback() *HapticFeedback       { return w.haptic }
func (w *WebApp) CloudStorage() *CloudStorage           { return w.cloud }
func (w *WebApp) BiometricManager() *BiometricManager   { return w.biometric }
func (w *WebApp) Accelerometer() *Accelerometer         { return w.accelerometer }
func (w *WebApp) Gyroscope() *Gyroscope                 { return w.gyroscope }
func (w *WebApp) DeviceOrientation() *DeviceOrientation { return w.orientation }
func (w *WebApp) LocationManager() *LocationManager     { return w.location }
func (w *WebApp) DeviceStorage() *DeviceStorage         { return w.deviceStorage }
func (w *WebApp) SecureStorage() *SecureStorage         { return w.secureStorage }

// OnEvent registers l for name.
func (w *WebApp) OnEvent(name bridge.EventName, l *bridge.Listener) { w.bridge.On(name, l) }

// OffEvent removes one registration of l for name.
func (w *WebApp) OffEvent(name bridge.EventName, l *bridge.Listener) bool {
	return w.bridge.Off(name, l)
}

// On subscribes fn to events of type E and returns the listener for OffEvent.
func On[E bridge.Event](w *WebApp, fn func(E)) *bridge.Listener {
	var zero E
	l := bridge.ListenFor(fn)
	w.bridge.On(zero.EventName(), l)
	return l
}

// OnViewportSettled calls fn only for viewport changes the host marked
// stable.
func (w *WebApp) OnViewportSettled(fn func(ViewportChanged)) *bridge.Listener {
	return On(w, func(e ViewportChanged) {
		if e.IsStateStable {
			fn(e)
		}
	})
}

// Shutdown closes the bridge. Pending callbacks receive ErrClosed.
func (w *WebApp) Shutdown() error {
	return w.bridge.Close()
}

// reduce folds host events into the store and the controllers before
// listeners see them.
func (w *WebApp) reduce(e bridge.Event, correlated bool) {
	switch e := e.(type) {
	case ThemeChanged:
		theme := e.ThemeParams
		ch := w.store.Apply(StateDelta{ThemeParams: &theme, ColorScheme: e.ColorScheme})
		if ch.Has(ChangedTheme) {
			w.main.themeChanged()
			w.secondary.themeChanged()
		}
	case ViewportChanged:
		h := e.Height
		w.store.Apply(StateDelta{ViewportHeight: &h, ViewportSettled: e.IsStateStable, IsExpanded: e.IsExpanded})
	case SafeAreaChanged:
		w.store.Apply(StateDelta{SafeAreaInset: &e.Insets})
	case ContentSafeAreaChanged:
		w.store.Apply(StateDelta{ContentSafeAreaInset: &e.Insets})
	case Activated:
		w.store.Apply(StateDelta{IsActive: ptr(true)})
	case Deactivated:
		w.store.Apply(StateDelta{IsActive: ptr(false)})
	case FullscreenChanged:
		w.store.Apply(StateDelta{IsFullscreen: &e.IsFullscreen})
	case PopupClosed:
		if !correlated {
			w.popupClosedUnsolicited(e)
		}
	case QrTextReceived:
		w.qr.received(w, e.Data)
	case ScanQrPopupClosed:
		w.qr.end()
	case BiometricManagerUpdated:
		w.biometric.update(e)
	case LocationManagerUpdated:
		w.location.update(e)
	default:
		w.accelerometer.reduce(e)
		w.gyroscope.reduce(e)
		w.orientation.reduce(e)
	}
}

// applyLocal writes an optimistic delta in place and announces viewport
// changes the host did not send itself. Callers are on the dispatcher.
func (w *WebApp) applyLocal(d StateDelta) {
	ch := w.store.Apply(d)
	if ch.Has(ChangedViewport | ChangedStableViewport) {
		st := w.store.Snapshot()
		w.bridge.Emit(ViewportChanged{
			Height:        st.ViewportHeight,
			IsStateStable: st.ViewportHeight == st.ViewportStableHeight,
		})
	}
}

// guard checks each feature in order.
func (w *WebApp) guard(features ...version.Feature) error {
	for _, f := range features {
		if err := w.gate.Guard(f); err != nil {
			return err
		}
	}
	return nil
}

func (w *WebApp) notify(method string, payload any) error {
	return w.bridge.Notify(method, payload)
}

// call sends method and decodes the reply payload into T for cb.
func call[T any](w *WebApp, method string, payload any, cb func(T, error)) error {
	_, err := w.bridge.Call(method, payload, func(r bridge.Reply) {
		var v T
		err := r.Decode(&v)
		if err != nil && r.Err == nil {
			err = fmt.Errorf("%s reply: %w", method, err)
		}
		if cb != nil {
			cb(v, err)
		}
	})
	return err
}

// invalid builds an ErrInvalidArguments error.
func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{errors.ErrInvalidArguments}, args...)...)
}
