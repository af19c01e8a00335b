package webapp

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/go-drift/miniapp/pkg/version"
)

// InvoiceStatus is how an invoice ended.
type InvoiceStatus string

const (
	InvoicePaid      InvoiceStatus = "paid"
	InvoiceCancelled InvoiceStatus = "cancelled"
	InvoiceFailed    InvoiceStatus = "failed"
	InvoicePending   InvoiceStatus = "pending"
)

// Story limits, in characters.
const (
	MaxStoryText       = 2048
	MaxStoryWidgetName = 48
)

var invoiceSlug = regexp.MustCompile(`^https?://t\.me/(?:\$|invoice/)([A-Za-z0-9_-]+)$`)

// StoryWidgetLink attaches a link to a story.
type StoryWidgetLink struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

type StoryParams struct {
	Text       string           `json:"text,omitempty"`
	WidgetLink *StoryWidgetLink `json:"widget_link,omitempty"`
}

// EmojiStatusParams tunes SetEmojiStatus. Duration is in seconds; zero
// keeps the status until changed.
type EmojiStatusParams struct {
	Duration int `json:"duration,omitempty"`
}

// OpenInvoice opens an invoice link (https://t.me/invoice/slug or
// https://t.me/$slug). A cancelled invoice is a status, not an error.
func (w *WebApp) OpenInvoice(invoiceURL string, cb func(InvoiceStatus, error)) error {
	if err := w.guard(version.Invoice); err != nil {
		return err
	}
	m := invoiceSlug.FindStringSubmatch(strings.TrimSpace(invoiceURL))
	if m == nil {
		return invalid("%q is not an invoice link", invoiceURL)
	}
	return call(w, "web_app_open_invoice", map[string]string{"slug": m[1]}, func(e InvoiceClosed, err error) {
		if cb != nil {
			cb(e.Status, err)
		}
	})
}

// ShareToStory opens the story editor with mediaURL.
func (w *WebApp) ShareToStory(mediaURL string, params StoryParams) error {
	if err := w.guard(version.ShareToStory); err != nil {
		return err
	}
	if err := checkHTTPURL(mediaURL); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(params.Text); n > MaxStoryText {
		return invalid("story text is %d characters, max %d", n, MaxStoryText)
	}
	if l := params.WidgetLink; l != nil {
		if err := checkHTTPURL(l.URL); err != nil {
			return err
		}
		if n := utf8.RuneCountInString(l.Name); n > MaxStoryWidgetName {
			return invalid("widget link name is %d characters, max %d", n, MaxStoryWidgetName)
		}
	}
	return w.notify("web_app_share_to_story", struct {
		MediaURL string `json:"media_url"`
		StoryParams
	}{mediaURL, params})
}

// ShareMessage shares a message the bot prepared. cb receives false when
// the user did not send it.
func (w *WebApp) ShareMessage(id string, cb func(bool, error)) error {
	if err := w.guard(version.ShareMessage); err != nil {
		return err
	}
	if strings.TrimSpace(id) == "" {
		return invalid("prepared message id is empty")
	}
	return call(w, "web_app_send_prepared_message", map[string]string{"id": id}, func(e ShareMessageFailed, err error) {
		if cb != nil {
			cb(err == nil && e.Error == "", err)
		}
	})
}

// SetEmojiStatus asks the user to set a custom emoji as their status.
func (w *WebApp) SetEmojiStatus(customEmojiID string, params EmojiStatusParams, cb func(bool, error)) error {
	if err := w.guard(version.EmojiStatus); err != nil {
		return err
	}
	if strings.TrimSpace(customEmojiID) == "" {
		return invalid("custom emoji id is empty")
	}
	if params.Duration < 0 {
		return invalid("emoji status duration %d is negative", params.Duration)
	}
	payload := struct {
		CustomEmojiID string `json:"custom_emoji_id"`
		EmojiStatusParams
	}{customEmojiID, params}
	return call(w, "web_app_set_emoji_status", payload, func(e EmojiStatusFailed, err error) {
		if cb != nil {
			cb(err == nil && e.Error == "", err)
		}
	})
}

// RequestEmojiStatusAccess asks for permission to set emoji statuses.
func (w *WebApp) RequestEmojiStatusAccess(cb func(bool, error)) error {
	if err := w.guard(version.EmojiStatus); err != nil {
		return err
	}
	return call(w, "web_app_request_emoji_status_access", nil, func(e EmojiStatusAccessRequested, err error) {
		if cb != nil {
			cb(e.Status == "allowed", err)
		}
	})
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return invalid("parse url: %v", err)
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return invalid("%q is not an http(s) url", raw)
	}
	return nil
}
