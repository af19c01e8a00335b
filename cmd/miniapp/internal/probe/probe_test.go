package probe

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/miniapp/cmd/miniapp/internal/simsrv"
	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/hostsim"
	"github.com/go-drift/miniapp/pkg/webapp"
)

func startSimulator(t *testing.T, p hostsim.Profile) string {
	t.Helper()
	s, err := simsrv.New(p, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return ts.URL
}

func TestRunAgainstSimulator(t *testing.T) {
	p := hostsim.DefaultProfile()
	p.Clipboard = "copied"
	url := startSimulator(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	reg := prometheus.NewRegistry()
	report, err := Run(ctx, url, Options{CallTimeout: 5 * time.Second, Registerer: reg})
	require.NoError(t, err)

	assert.Empty(t, report.Failed())
	assert.Equal(t, "9.1", report.Version)
	assert.Equal(t, "android", report.Platform)
	assert.Equal(t, "copied", report.Clipboard)
	assert.Equal(t, webapp.HomeScreenStatusMissed, report.HomeScreen)
	assert.Equal(t, "android", report.CloudValue)
	assert.True(t, report.Biometric.Inited)
	assert.True(t, report.Biometric.Available)
	assert.True(t, report.State.IsExpanded)
	assert.Equal(t, webapp.ColorSchemeDark, report.State.ColorScheme)
	assert.Equal(t, "Probe", report.MainButton.Text)
	assert.True(t, report.MainButton.IsVisible)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRunOnOldHostReportsUnsupported(t *testing.T) {
	p := hostsim.DefaultProfile()
	p.Version = "6.2"
	url := startSimulator(t, p)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	report, err := Run(ctx, url, Options{CallTimeout: 5 * time.Second})
	require.NoError(t, err)

	failed := map[string]error{}
	for _, s := range report.Failed() {
		failed[s.Name] = s.Err
	}
	for _, name := range []string{"clipboard", "home_screen", "cloud_storage", "biometric"} {
		assert.ErrorIs(t, failed[name], errors.ErrUnsupportedFeature, name)
	}
	assert.NotContains(t, failed, "ready")
	assert.NotContains(t, failed, "main_button")
}

func TestRunRejectsNonHTTPURL(t *testing.T) {
	_, err := Run(context.Background(), "ftp://example.com", Options{})
	require.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	tests := []struct {
		in, want string
		wantErr  bool
	}{
		{"http://127.0.0.1:8765", "ws://127.0.0.1:8765/ws", false},
		{"https://sim.example", "wss://sim.example/ws", false},
		{"sim.example", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := websocketURL(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
