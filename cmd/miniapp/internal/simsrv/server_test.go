package simsrv

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/miniapp/pkg/hostsim"
	"github.com/go-drift/miniapp/pkg/webapp"
	"github.com/go-drift/miniapp/pkg/wstransport"
)

func newTestServer(t *testing.T, p hostsim.Profile) (*Server, *httptest.Server) {
	t.Helper()
	s, err := New(p, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Close()
	})
	return s, ts
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t, hostsim.DefaultProfile())
	code, body := get(t, ts.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok\n", body)
}

func TestLaunchReflectsProfile(t *testing.T) {
	p := hostsim.DefaultProfile()
	p.Version = "7.10"
	p.Platform = "ios"
	_, ts := newTestServer(t, p)

	code, body := get(t, ts.URL+"/launch")
	require.Equal(t, http.StatusOK, code)

	var launch webapp.LaunchParams
	require.NoError(t, json.Unmarshal([]byte(body), &launch))
	assert.Equal(t, "7.10", launch.Version)
	assert.Equal(t, "ios", launch.Platform)
	assert.Equal(t, "#17212b", launch.ThemeParams.BgColor)
	assert.Equal(t, "#5288c1", launch.ThemeParams.ButtonColor)
	assert.Equal(t, float64(720), launch.ViewportHeight)
	assert.Contains(t, launch.InitData, "query_id=")
	assert.NotEmpty(t, launch.InitDataUnsafe)
}

func TestLaunchInitDataIsFresh(t *testing.T) {
	s, err := New(hostsim.DefaultProfile(), nil)
	require.NoError(t, err)
	assert.NotEqual(t, s.Launch().InitData, s.Launch().InitData)
}

func TestSessionRoundTrip(t *testing.T) {
	s, ts := newTestServer(t, hostsim.DefaultProfile())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := wstransport.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws")
	require.NoError(t, err)
	defer conn.Close()

	got := make(chan string, 1)
	conn.OnReceive(func(frame []byte) { got <- string(frame) })
	require.NoError(t, conn.Send([]byte(`{"kind":"call","method":"web_app_check_home_screen","correlationId":"c1"}`)))

	select {
	case frame := <-got:
		assert.Contains(t, frame, `"homeScreenChecked"`)
		assert.Contains(t, frame, `"c1"`)
	case <-time.After(5 * time.Second):
		t.Fatal("no reply from simulator")
	}
	assert.Eventually(t, func() bool { return s.Sessions() == 1 }, time.Second, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		code, body := get(t, ts.URL+"/metrics")
		return code == http.StatusOK &&
			strings.Contains(body, "miniapp_simulator_sessions 1") &&
			strings.Contains(body, `miniapp_simulator_frames_total{direction="to_host",result="ok"} 1`)
	}, time.Second, 20*time.Millisecond)
}

func TestCloseEndsSessions(t *testing.T) {
	s, ts := newTestServer(t, hostsim.DefaultProfile())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, err := wstransport.Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/ws")
	require.NoError(t, err)
	conn.OnReceive(func([]byte) {})
	require.Eventually(t, func() bool { return s.Sessions() == 1 }, time.Second, 10*time.Millisecond)

	s.Close()

	select {
	case <-conn.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("client connection still open after Close")
	}
	assert.Eventually(t, func() bool { return s.Sessions() == 0 }, time.Second, 10*time.Millisecond)
}
