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

func TestOpenInvoice(t *testing.T) {
	tests := []struct {
		url  string
		slug string
	}{
		{"https://t.me/invoice/abc-123", "abc-123"},
		{"https://t.me/$XyZ_9", "XyZ_9"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			app, host, _ := newDeviceApp(t, "7.10", nil)
			var status InvoiceStatus
			require.NoError(t, app.OpenInvoice(tt.url, func(s InvoiceStatus, err error) {
				require.NoError(t, err)
				status = s
			}))
			assert.Equal(t, InvoicePaid, status)
			assert.Equal(t, map[string]any{"slug": tt.slug}, lastPayload(t, host, "web_app_open_invoice"))
		})
	}
}

func TestOpenInvoiceCancelledIsAResult(t *testing.T) {
	app, _, _ := newDeviceApp(t, "7.10", func(p *hostsim.Profile) { p.InvoiceStatus = "cancelled" })
	var status InvoiceStatus
	var got error
	require.NoError(t, app.OpenInvoice("https://t.me/invoice/x", func(s InvoiceStatus, err error) {
		status, got = s, err
	}))
	assert.NoError(t, got)
	assert.Equal(t, InvoiceCancelled, status)
}

func TestOpenInvoiceRejectsOtherLinks(t *testing.T) {
	app, host := newTestApp(t, "7.10")
	for _, u := range []string{"https://example.com/invoice/x", "t.me/invoice/x", "https://t.me/invoice/"} {
		assert.True(t, errors.Is(app.OpenInvoice(u, nil), errors.ErrInvalidArguments), u)
	}
	assert.Equal(t, 0, host.Count())
}

func TestShareToStory(t *testing.T) {
	app, host := newTestApp(t, "7.10")
	require.NoError(t, app.ShareToStory("https://cdn.example.com/a.png", StoryParams{
		Text:       "look",
		WidgetLink: &StoryWidgetLink{URL: "https://example.com", Name: "Site"},
	}))
	assert.Equal(t, map[string]any{
		"media_url":   "https://cdn.example.com/a.png",
		"text":        "look",
		"widget_link": map[string]any{"url": "https://example.com", "name": "Site"},
	}, lastPayload(t, host, "web_app_share_to_story"))

	err := app.ShareToStory("https://cdn.example.com/a.png", StoryParams{Text: strings.Repeat("s", MaxStoryText+1)})
	assert.True(t, errors.Is(err, errors.ErrInvalidArguments))
	assert.True(t, errors.Is(app.ShareToStory("ftp://x/a.png", StoryParams{}), errors.ErrInvalidArguments))

	old, _ := newTestApp(t, "7.7")
	assert.True(t, errors.Is(old.ShareToStory("https://cdn.example.com/a.png", StoryParams{}), errors.ErrUnsupportedFeature))
}

func TestShareMessage(t *testing.T) {
	app, host, _ := newDeviceApp(t, "8.0", nil)
	var sent bool
	require.NoError(t, app.ShareMessage("prep-1", func(ok bool, err error) {
		require.NoError(t, err)
		sent = ok
	}))
	assert.True(t, sent)

	host.Handle("web_app_send_prepared_message", func(h *hostsim.Host, c wire.Envelope) {
		h.Reply(c, "shareMessageFailed", map[string]string{"error": "USER_DECLINED"})
	})
	require.NoError(t, app.ShareMessage("prep-2", func(ok bool, err error) {
		require.NoError(t, err)
		sent = ok
	}))
	assert.False(t, sent)

	assert.True(t, errors.Is(app.ShareMessage("", nil), errors.ErrInvalidArguments))
}

func TestEmojiStatus(t *testing.T) {
	app, host, _ := newDeviceApp(t, "8.0", nil)

	var allowed, set bool
	require.NoError(t, app.RequestEmojiStatusAccess(func(ok bool, err error) { allowed = ok }))
	require.NoError(t, app.SetEmojiStatus("5368324170671202286", EmojiStatusParams{Duration: 3600}, func(ok bool, err error) { set = ok }))
	assert.True(t, allowed)
	assert.True(t, set)
	assert.Equal(t, map[string]any{"custom_emoji_id": "5368324170671202286", "duration": 3600.0},
		lastPayload(t, host, "web_app_set_emoji_status"))

	assert.True(t, errors.Is(app.SetEmojiStatus("1", EmojiStatusParams{Duration: -1}, nil), errors.ErrInvalidArguments))
}

func TestLinks(t *testing.T) {
	app, host := newTestApp(t, "7.10")

	require.NoError(t, app.OpenLink("https://example.com/a?b=1", LinkOptions{TryInstantView: true}))
	assert.Equal(t, map[string]any{"url": "https://example.com/a?b=1", "try_instant_view": true},
		lastPayload(t, host, "web_app_open_link"))
	assert.True(t, errors.Is(app.OpenLink("javascript:alert(1)", LinkOptions{}), errors.ErrInvalidArguments))

	require.NoError(t, app.OpenTelegramLink("https://t.me/durov?start=1"))
	assert.Equal(t, map[string]any{"path_full": "/durov?start=1"}, lastPayload(t, host, "web_app_open_tg_link"))
	assert.True(t, errors.Is(app.OpenTelegramLink("https://example.com/durov"), errors.ErrInvalidArguments))
}

func TestOpenLinkDropsInstantViewOnOldHosts(t *testing.T) {
	app, host := newTestApp(t, "6.2")
	require.NoError(t, app.OpenLink("https://example.com", LinkOptions{TryInstantView: true}))
	assert.Equal(t, map[string]any{"url": "https://example.com"}, lastPayload(t, host, "web_app_open_link"))
}

func TestSwitchInlineQuery(t *testing.T) {
	app, host := newTestApp(t, "7.10")
	require.NoError(t, app.SwitchInlineQuery("pizza", "users", "groups", "users"))
	assert.Equal(t, map[string]any{"query": "pizza", "chat_types": []any{"users", "groups"}},
		lastPayload(t, host, "web_app_switch_inline_query"))

	assert.True(t, errors.Is(app.SwitchInlineQuery("x", "planets"), errors.ErrInvalidArguments))
	assert.True(t, errors.Is(app.SwitchInlineQuery(strings.Repeat("q", MaxInlineQuery+1)), errors.ErrInvalidArguments))
}
