package webapp

import (
	"net/url"
	"strings"

	"github.com/go-drift/miniapp/pkg/version"
)

// MaxInlineQuery is the longest query SwitchInlineQuery accepts.
const MaxInlineQuery = 256

// LinkOptions tunes OpenLink.
type LinkOptions struct {
	TryInstantView bool
	TryBrowser     string
}

type openLinkPayload struct {
	URL            string `json:"url"`
	TryInstantView bool   `json:"try_instant_view,omitempty"`
	TryBrowser     string `json:"try_browser,omitempty"`
}

var inlineChatTypes = map[string]bool{"users": true, "bots": true, "groups": true, "channels": true}

// SendData hands data to the bot and closes the app. The host accepts at
// most 4096 bytes.
func (w *WebApp) SendData(data string) error {
	if strings.TrimSpace(data) == "" {
		return invalid("data is empty")
	}
	return w.notify("web_app_data_send", map[string]string{"data": data})
}

// SwitchInlineQuery puts the bot username and query in the input field of
// a chat the user picks from chatTypes, or of the current chat when
// chatTypes is empty.
func (w *WebApp) SwitchInlineQuery(query string, chatTypes ...string) error {
	if err := w.guard(version.SwitchInlineQuery); err != nil {
		return err
	}
	if len(query) > MaxInlineQuery {
		return invalid("inline query is %d bytes, max %d", len(query), MaxInlineQuery)
	}
	seen := make(map[string]bool, len(chatTypes))
	types := make([]string, 0, len(chatTypes))
	for _, t := range chatTypes {
		if !inlineChatTypes[t] {
			return invalid("unknown chat type %q", t)
		}
		if !seen[t] {
			seen[t] = true
			types = append(types, t)
		}
	}
	return w.notify("web_app_switch_inline_query", struct {
		Query     string   `json:"query"`
		ChatTypes []string `json:"chat_types"`
	}{query, types})
}

// OpenLink opens an http or https URL outside the app.
func (w *WebApp) OpenLink(rawURL string, opts LinkOptions) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return invalid("parse url: %v", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return invalid("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return invalid("url %q has no host", rawURL)
	}
	p := openLinkPayload{URL: u.String(), TryBrowser: opts.TryBrowser}
	if opts.TryInstantView && w.gate.Supports(version.InstantView) {
		p.TryInstantView = true
	}
	return w.notify("web_app_open_link", p)
}

// OpenTelegramLink opens a https://t.me link inside the host.
func (w *WebApp) OpenTelegramLink(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return invalid("parse url: %v", err)
	}
	if u.Scheme != "https" || u.Host != "t.me" {
		return invalid("%q is not a https://t.me link", rawURL)
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return w.notify("web_app_open_tg_link", map[string]string{"path_full": path})
}
