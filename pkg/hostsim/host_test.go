package hostsim

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/wire"
)

// capture attaches a receiver to h and returns the decoded frames it gets.
func capture(t *testing.T, h *Host) *[]wire.Envelope {
	t.Helper()
	var got []wire.Envelope
	h.OnReceive(func(frame []byte) {
		env, err := wire.DefaultCodec.Decode(frame)
		require.NoError(t, err)
		got = append(got, env)
	})
	return &got
}

func call(t *testing.T, h *Host, method, id string, payload any) {
	t.Helper()
	frame, err := wire.DefaultCodec.EncodeCall(method, payload, id)
	require.NoError(t, err)
	require.NoError(t, h.Send(frame))
}

func TestHostRecordsCalls(t *testing.T) {
	h := New()
	call(t, h, "web_app_ready", "", nil)
	call(t, h, "web_app_expand", "", nil)
	call(t, h, "web_app_ready", "", nil)

	assert.Equal(t, 3, h.Count())
	assert.Len(t, h.CallsTo("web_app_ready"), 2)
	last, ok := h.Last("web_app_expand")
	require.True(t, ok)
	assert.Equal(t, wire.KindCall, last.Kind)

	h.Reset()
	assert.Zero(t, h.Count())
	_, ok = h.Last("web_app_expand")
	assert.False(t, ok)
}

func TestHostRejectsMalformedFrames(t *testing.T) {
	h := New()
	err := h.Send([]byte(`{"kind":"call"}`))
	assert.ErrorIs(t, err, errors.ErrProtocolDecode)
	assert.Zero(t, h.Count())
}

func TestHostFailSends(t *testing.T) {
	h := New()
	boom := errors.New("link down")
	h.FailSends(boom)
	frame, err := wire.DefaultCodec.EncodeCall("web_app_ready", nil, "")
	require.NoError(t, err)
	assert.ErrorIs(t, h.Send(frame), boom)

	h.FailSends(nil)
	assert.NoError(t, h.Send(frame))
}

func TestHostReplyNeedsCorrelation(t *testing.T) {
	h := New()
	capture(t, h)
	err := h.Reply(wire.Envelope{Kind: wire.KindCall, Method: "web_app_ready"}, "x", nil)
	assert.Error(t, err)
}

func TestHostDeliverWithoutReceiver(t *testing.T) {
	h := New()
	assert.Error(t, h.Emit("activated", nil))
}

func TestHostFail(t *testing.T) {
	h := New()
	got := capture(t, h)
	h.Handle("web_app_open_invoice", func(h *Host, c wire.Envelope) {
		require.NoError(t, h.Fail(c, "BAD_SLUG", "no such invoice"))
	})

	call(t, h, "web_app_open_invoice", "c1", map[string]string{"slug": "x"})

	require.Len(t, *got, 1)
	reply := (*got)[0]
	assert.Equal(t, "c1", reply.CorrelationID)
	require.NotNil(t, reply.Error)
	assert.Equal(t, "BAD_SLUG", reply.Error.Code)
}

func TestDeviceCloudStorage(t *testing.T) {
	h := New()
	got := capture(t, h)
	d := NewDevice(DefaultProfile())
	d.Install(h)

	call(t, h, "web_app_invoke_custom_method", "c1", map[string]any{
		"method": "saveStorageValue",
		"params": map[string]string{"key": "k", "value": "v"},
	})
	call(t, h, "web_app_invoke_custom_method", "c2", map[string]any{
		"method": "getStorageValues",
		"params": map[string][]string{"keys": {"k", "missing"}},
	})
	call(t, h, "web_app_invoke_custom_method", "c3", map[string]any{"method": "nope"})

	require.Len(t, *got, 3)
	assert.Equal(t, []string{"k"}, d.CloudKeys())

	var values struct {
		Result map[string]string `json:"result"`
	}
	require.NoError(t, (*got)[1].Into(&values))
	assert.Equal(t, map[string]string{"k": "v", "missing": ""}, values.Result)

	var failure struct {
		Error string `json:"error"`
	}
	require.NoError(t, (*got)[2].Into(&failure))
	assert.Equal(t, "UNKNOWN_METHOD", failure.Error)
}

func TestDeviceStorageIsPerStore(t *testing.T) {
	h := New()
	got := capture(t, h)
	NewDevice(DefaultProfile()).Install(h)

	call(t, h, "web_app_device_storage_save_key", "c1", map[string]string{"key": "k", "value": "local"})
	call(t, h, "web_app_secure_storage_get_key", "c2", map[string]string{"key": "k"})
	call(t, h, "web_app_device_storage_get_key", "c3", map[string]string{"key": "k"})

	require.Len(t, *got, 3)
	assert.JSONEq(t, `{"value":null}`, string((*got)[1].Payload))
	assert.JSONEq(t, `{"value":"local"}`, string((*got)[2].Payload))
}

func TestDeviceSensors(t *testing.T) {
	h := New()
	got := capture(t, h)
	d := NewDevice(DefaultProfile())
	d.Install(h)

	call(t, h, "web_app_start_gyroscope", "c1", map[string]int{"refresh_rate": 100})
	assert.True(t, d.Sensing("gyroscope"))
	assert.False(t, d.Sensing("accelerometer"))
	call(t, h, "web_app_stop_gyroscope", "c2", nil)
	assert.False(t, d.Sensing("gyroscope"))

	require.Len(t, *got, 2)
	assert.Equal(t, "gyroscopeStarted", (*got)[0].Name)
	assert.Equal(t, "gyroscopeStopped", (*got)[1].Name)
}

func TestDeviceExpandEmitsViewport(t *testing.T) {
	h := New()
	got := capture(t, h)
	NewDevice(DefaultProfile()).Install(h)

	call(t, h, "web_app_expand", "", nil)

	require.Len(t, *got, 1)
	env := (*got)[0]
	assert.Equal(t, "viewportChanged", env.Name)
	assert.Empty(t, env.CorrelationID)
	var p map[string]json.RawMessage
	require.NoError(t, env.Into(&p))
	assert.JSONEq(t, "true", string(p["isExpanded"]))
}
