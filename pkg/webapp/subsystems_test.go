package webapp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/hostsim"
	"github.com/go-drift/miniapp/pkg/wire"
)

func TestHapticFeedback(t *testing.T) {
	app, host := newTestApp(t, "7.10")
	h := app.HapticFeedback()

	require.NoError(t, h.ImpactOccurred(ImpactHeavy))
	assert.Equal(t, map[string]any{"type": "impact", "impact_style": "heavy"},
		lastPayload(t, host, "web_app_trigger_haptic_feedback"))
	require.NoError(t, h.NotificationOccurred(NotificationSuccess))
	require.NoError(t, h.SelectionChanged())
	assert.Equal(t, map[string]any{"type": "selection_change"},
		lastPayload(t, host, "web_app_trigger_haptic_feedback"))

	assert.True(t, errors.Is(h.ImpactOccurred("thud"), errors.ErrInvalidArguments))
	assert.True(t, errors.Is(h.NotificationOccurred("meh"), errors.ErrInvalidArguments))
}

func TestCloudStorageRoundTrip(t *testing.T) {
	app, _, dev := newDeviceApp(t, "7.10", nil)
	cs := app.CloudStorage()

	var stored bool
	require.NoError(t, cs.SetItem("greeting", "hello", func(ok bool, err error) {
		require.NoError(t, err)
		stored = ok
	}))
	require.NoError(t, cs.SetItem("name", "ada", nil))
	assert.True(t, stored)
	assert.Equal(t, []string{"greeting", "name"}, dev.CloudKeys())

	var value string
	require.NoError(t, cs.GetItem("greeting", func(v string, err error) {
		require.NoError(t, err)
		value = v
	}))
	assert.Equal(t, "hello", value)

	var keys []string
	require.NoError(t, cs.GetKeys(func(k []string, err error) {
		require.NoError(t, err)
		keys = k
	}))
	assert.Equal(t, []string{"greeting", "name"}, keys)

	require.NoError(t, cs.RemoveItems([]string{"greeting", "name"}, nil))
	assert.Empty(t, dev.CloudKeys())
}

func TestCloudStorageValidation(t *testing.T) {
	app, host := newTestApp(t, "7.10")
	cs := app.CloudStorage()

	tests := []struct {
		name string
		err  error
	}{
		{"empty key", cs.SetItem("", "v", nil)},
		{"bad key", cs.SetItem("a b", "v", nil)},
		{"long key", cs.SetItem(strings.Repeat("k", MaxStorageKey+1), "v", nil)},
		{"long value", cs.SetItem("k", strings.Repeat("v", MaxStorageValue+1), nil)},
		{"no keys", cs.GetItems(nil, nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.err, errors.ErrInvalidArguments), "got %v", tt.err)
		})
	}
	assert.Equal(t, 0, host.Count())

	old, _ := newTestApp(t, "6.7")
	assert.True(t, errors.Is(old.CloudStorage().SetItem("k", "v", nil), errors.ErrUnsupportedFeature))
}

func TestCloudStorageGateBeforeValidation(t *testing.T) {
	app, host := newTestApp(t, "6.7")
	cs := app.CloudStorage()

	for _, err := range []error{
		cs.SetItem("a b", "v", nil),
		cs.GetItems(nil, nil),
		cs.RemoveItems([]string{""}, nil),
		cs.GetKeys(nil),
	} {
		assert.True(t, errors.Is(err, errors.ErrUnsupportedFeature), "got %v", err)
		assert.False(t, errors.Is(err, errors.ErrInvalidArguments), "got %v", err)
	}
	assert.Equal(t, 0, host.Count())
}

func TestCloudStorageHostError(t *testing.T) {
	app, host := newTestApp(t, "7.10")
	host.Handle("web_app_invoke_custom_method", func(h *hostsim.Host, c wire.Envelope) {
		h.Reply(c, "customMethodInvoked", map[string]string{"error": "STORAGE_KEY_CLOUD_INVALID"})
	})
	var got error
	require.NoError(t, app.CloudStorage().GetKeys(func(_ []string, err error) { got = err }))

	var se *StorageError
	require.True(t, errors.As(got, &se))
	assert.Equal(t, "getStorageKeys", se.Method)
	assert.Equal(t, "STORAGE_KEY_CLOUD_INVALID", se.Reason)
}

func TestBiometricFlow(t *testing.T) {
	app, _, _ := newDeviceApp(t, "7.2", nil)
	bm := app.BiometricManager()

	assert.ErrorIs(t, bm.RequestAccess("", nil), ErrNotInitialized)

	require.NoError(t, bm.Init(func(err error) { require.NoError(t, err) }))
	st := bm.State()
	assert.True(t, st.Inited)
	assert.True(t, st.Available)
	assert.False(t, st.AccessGranted)

	assert.True(t, errors.Is(bm.Authenticate("", nil), errors.ErrInvalidArguments))

	var granted bool
	require.NoError(t, bm.RequestAccess("to sign in", func(ok bool, err error) { granted = ok }))
	assert.True(t, granted)
	assert.True(t, bm.State().AccessGranted)

	require.NoError(t, bm.UpdateBiometricToken("secret", func(ok bool, err error) { require.True(t, ok) }))
	assert.True(t, bm.State().TokenSaved)

	var token string
	var authed bool
	require.NoError(t, bm.Authenticate("confirm", func(ok bool, tok string, err error) {
		authed, token = ok, tok
	}))
	assert.True(t, authed)
	assert.Equal(t, "secret", token)

	require.NoError(t, bm.OpenSettings())
	assert.True(t, errors.Is(bm.RequestAccess(strings.Repeat("r", MaxBiometricReason+1), nil), errors.ErrInvalidArguments))
}

func TestSensors(t *testing.T) {
	app, host, dev := newDeviceApp(t, "8.0", nil)
	acc := app.Accelerometer()

	var started bool
	require.NoError(t, acc.Start(AccelerometerParams{RefreshRate: 100}, func(ok bool, err error) { started = ok }))
	assert.True(t, started)
	assert.True(t, acc.IsStarted())
	assert.True(t, dev.Sensing("accelerometer"))
	assert.Equal(t, map[string]any{"refresh_rate": 100.0}, lastPayload(t, host, "web_app_start_accelerometer"))

	require.NoError(t, host.Emit("accelerometerChanged", map[string]float64{"x": 1, "y": 2, "z": 9.8}))
	assert.Equal(t, Vector{X: 1, Y: 2, Z: 9.8}, acc.Reading())
	assert.Equal(t, Vector{}, app.Gyroscope().Reading())

	require.NoError(t, acc.Stop(nil))
	assert.False(t, acc.IsStarted())

	require.NoError(t, app.DeviceOrientation().Start(DeviceOrientationParams{NeedAbsolute: true}, nil))
	assert.Equal(t, map[string]any{"refresh_rate": 1000.0, "need_absolute": true},
		lastPayload(t, host, "web_app_start_device_orientation"))
	require.NoError(t, host.Emit("deviceOrientationChanged", map[string]any{"absolute": true, "alpha": 0.5}))
	assert.Equal(t, Orientation{Absolute: true, Alpha: 0.5}, app.DeviceOrientation().Reading())

	require.NoError(t, host.Emit("gyroscopeFailed", map[string]string{"error": "UNSUPPORTED"}))
	assert.False(t, app.Gyroscope().IsStarted())

	for _, rate := range []int{MinRefreshRate - 1, MaxRefreshRate + 1} {
		assert.True(t, errors.Is(app.Gyroscope().Start(GyroscopeParams{RefreshRate: rate}, nil), errors.ErrInvalidArguments))
	}
}

func TestSensorFailureReachesCallback(t *testing.T) {
	app, host := newTestApp(t, "8.0")
	host.Handle("web_app_start_gyroscope", func(h *hostsim.Host, c wire.Envelope) {
		h.Reply(c, "gyroscopeFailed", map[string]string{"error": "UNSUPPORTED"})
	})
	started := true
	require.NoError(t, app.Gyroscope().Start(GyroscopeParams{}, func(ok bool, err error) {
		require.NoError(t, err)
		started = ok
	}))
	assert.False(t, started)
	assert.False(t, app.Gyroscope().IsStarted())
}

func TestLocationManager(t *testing.T) {
	app, _, _ := newDeviceApp(t, "8.0", func(p *hostsim.Profile) {
		p.Location = &hostsim.Fix{Latitude: 51.5, Longitude: -0.12}
	})
	lm := app.LocationManager()
	assert.ErrorIs(t, lm.GetLocation(nil), ErrNotInitialized)

	require.NoError(t, lm.Init(nil))
	assert.True(t, lm.State().AccessGranted)

	var loc *Location
	require.NoError(t, lm.GetLocation(func(l *Location, err error) {
		require.NoError(t, err)
		loc = l
	}))
	require.NotNil(t, loc)
	assert.Equal(t, 51.5, loc.Latitude)
	assert.Equal(t, -0.12, loc.Longitude)
	require.NoError(t, lm.OpenSettings())
}

func TestLocationUnavailable(t *testing.T) {
	app, _, _ := newDeviceApp(t, "8.0", nil)
	lm := app.LocationManager()
	require.NoError(t, lm.Init(nil))
	assert.False(t, lm.State().Available)

	called := false
	require.NoError(t, lm.GetLocation(func(l *Location, err error) {
		called = true
		assert.Nil(t, l)
		assert.NoError(t, err)
	}))
	assert.True(t, called)
}

func TestDeviceStorage(t *testing.T) {
	app, _, _ := newDeviceApp(t, "9.0", nil)
	ds := app.DeviceStorage()

	require.NoError(t, ds.SetItem("theme", "dark", func(ok bool, err error) { require.True(t, ok) }))

	var value string
	var found bool
	require.NoError(t, ds.GetItem("theme", func(v string, ok bool, err error) { value, found = v, ok }))
	assert.True(t, found)
	assert.Equal(t, "dark", value)

	require.NoError(t, ds.RemoveItem("theme", nil))
	require.NoError(t, ds.GetItem("theme", func(v string, ok bool, err error) { found = ok }))
	assert.False(t, found)

	require.NoError(t, ds.Clear(nil))
	assert.True(t, errors.Is(ds.SetItem("", "x", nil), errors.ErrInvalidArguments))

	old, _ := newTestApp(t, "8.0")
	assert.True(t, errors.Is(old.DeviceStorage().SetItem("k", "v", nil), errors.ErrUnsupportedFeature))
}

func TestSecureStorage(t *testing.T) {
	app, host, _ := newDeviceApp(t, "9.0", nil)
	ss := app.SecureStorage()

	require.NoError(t, ss.SetItem("pin", "1234", nil))
	var value string
	require.NoError(t, ss.GetItem("pin", func(v string, _ bool, err error) {
		require.NoError(t, err)
		value = v
	}))
	assert.Equal(t, "1234", value)

	host.Handle("web_app_secure_storage_get_key", func(h *hostsim.Host, c wire.Envelope) {
		h.Reply(c, "secureStorageResult", map[string]any{"value": nil, "canRestore": true})
	})
	var canRestore bool
	require.NoError(t, ss.GetItem("pin", func(_ string, r bool, _ error) { canRestore = r }))
	assert.True(t, canRestore)

	var restored string
	require.NoError(t, ss.RestoreItem("pin", func(v string, err error) { restored = v }))
	assert.Equal(t, "1234", restored)

	host.Handle("web_app_secure_storage_clear", func(h *hostsim.Host, c wire.Envelope) {
		h.Reply(c, "secureStorageResult", map[string]string{"error": "UNKNOWN_ERROR"})
	})
	var got error
	require.NoError(t, ss.Clear(func(_ bool, err error) { got = err }))
	var se *StorageError
	assert.True(t, errors.As(got, &se))
}
