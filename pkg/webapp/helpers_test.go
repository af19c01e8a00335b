package webapp

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-drift/miniapp/pkg/hostsim"
)

var testTheme = ThemeParams{
	BgColor:          "#ffffff",
	TextColor:        "#000000",
	ButtonColor:      "#2481cc",
	ButtonTextColor:  "#ffffff",
	SecondaryBgColor: "#f0f0f0",
	BottomBarBgColor: "#eeeeee",
}

func testLaunch(version string) LaunchParams {
	return LaunchParams{
		Version:        version,
		Platform:       "tdesktop",
		ThemeParams:    testTheme,
		ViewportHeight: 600,
	}
}

func newTestApp(t *testing.T, version string, opts ...Option) (*WebApp, *hostsim.Host) {
	t.Helper()
	host := hostsim.New()
	app, err := New(host, testLaunch(version), opts...)
	require.NoError(t, err)
	return app, host
}

// newDeviceApp wires the app to a cooperative simulated device.
func newDeviceApp(t *testing.T, version string, tweak func(*hostsim.Profile)) (*WebApp, *hostsim.Host, *hostsim.Device) {
	t.Helper()
	app, host := newTestApp(t, version)
	p := hostsim.DefaultProfile()
	if tweak != nil {
		tweak(&p)
	}
	dev := hostsim.NewDevice(p)
	dev.Install(host)
	return app, host, dev
}

// lastPayload decodes the payload of the latest call to method.
func lastPayload(t *testing.T, host *hostsim.Host, method string) map[string]any {
	t.Helper()
	call, ok := host.Last(method)
	require.True(t, ok, "no call to %s", method)
	var out map[string]any
	if call.HasPayload() {
		require.NoError(t, json.Unmarshal(call.Payload, &out))
	}
	return out
}
