package webapp

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/go-drift/miniapp/pkg/bridge"
	"github.com/go-drift/miniapp/pkg/errors"
	"github.com/go-drift/miniapp/pkg/version"
)

// Popup limits, in characters.
const (
	MaxPopupTitle      = 64
	MaxPopupMessage    = 256
	MaxPopupButtons    = 3
	MaxPopupButtonText = 64
	MaxPopupButtonID   = 64
	MaxQrText          = 64
)

// PopupButtonType selects a button's look. Destructive and default buttons
// need Text; the others use a host supplied label.
type PopupButtonType string

const (
	PopupButtonDefault     PopupButtonType = "default"
	PopupButtonOK          PopupButtonType = "ok"
	PopupButtonClose       PopupButtonType = "close"
	PopupButtonCancel      PopupButtonType = "cancel"
	PopupButtonDestructive PopupButtonType = "destructive"
)

// PopupButton is one popup button. ID comes back in the callback.
type PopupButton struct {
	ID   string          `json:"id"`
	Type PopupButtonType `json:"type,omitempty"`
	Text string          `json:"text,omitempty"`
}

// PopupParams describes a popup. With no buttons a single Close button is
// shown.
type PopupParams struct {
	Title   string        `json:"title,omitempty"`
	Message string        `json:"message"`
	Buttons []PopupButton `json:"buttons"`
}

// QrParams configures ShowScanQrPopup.
type QrParams struct {
	Text string `json:"text,omitempty"`
}

func (p PopupParams) validate() (PopupParams, error) {
	p.Title = strings.TrimSpace(p.Title)
	p.Message = strings.TrimSpace(p.Message)
	if n := utf8.RuneCountInString(p.Title); n > MaxPopupTitle {
		return p, invalid("popup title is %d characters, max %d", n, MaxPopupTitle)
	}
	if n := utf8.RuneCountInString(p.Message); n == 0 || n > MaxPopupMessage {
		return p, invalid("popup message must be 1..%d characters, got %d", MaxPopupMessage, n)
	}
	if len(p.Buttons) == 0 {
		p.Buttons = []PopupButton{{Type: PopupButtonClose}}
	}
	if len(p.Buttons) > MaxPopupButtons {
		return p, invalid("popup has %d buttons, max %d", len(p.Buttons), MaxPopupButtons)
	}
	buttons := make([]PopupButton, len(p.Buttons))
	for i, b := range p.Buttons {
		if utf8.RuneCountInString(b.ID) > MaxPopupButtonID {
			return p, invalid("popup button id %q is too long", b.ID)
		}
		if b.Type == "" {
			b.Type = PopupButtonDefault
		}
		switch b.Type {
		case PopupButtonDefault, PopupButtonDestructive:
			b.Text = strings.TrimSpace(b.Text)
			if n := utf8.RuneCountInString(b.Text); n == 0 || n > MaxPopupButtonText {
				return p, invalid("popup button text must be 1..%d characters, got %d", MaxPopupButtonText, n)
			}
		case PopupButtonOK, PopupButtonClose, PopupButtonCancel:
			b.Text = ""
		default:
			return p, invalid("unknown popup button type %q", b.Type)
		}
		buttons[i] = b
	}
	p.Buttons = buttons
	return p, nil
}

// ShowPopup opens a popup. cb receives the id of the pressed button, or ""
// when the popup was dismissed. Only one popup may be open at a time.
func (w *WebApp) ShowPopup(params PopupParams, cb func(string, error)) error {
	if err := w.guard(version.Popup); err != nil {
		return err
	}
	p, err := params.validate()
	if err != nil {
		return err
	}
	gen, ok := w.popup.acquire()
	if !ok {
		return errors.ErrPopupOpen
	}
	tok, err := w.bridge.Call("web_app_open_popup", p, func(r bridge.Reply) {
		var e PopupClosed
		err := r.Decode(&e)
		if err != nil && r.Err == nil {
			err = fmt.Errorf("web_app_open_popup reply: %w", err)
		}
		w.popup.release(gen)
		if cb != nil {
			cb(e.ButtonID, err)
		}
	})
	if err != nil {
		w.popup.release(gen)
		return err
	}
	w.popup.bind(gen, tok)
	return nil
}

// ShowAlert shows message with a Close button.
func (w *WebApp) ShowAlert(message string, cb func(error)) error {
	return w.ShowPopup(PopupParams{
		Message: message,
		Buttons: []PopupButton{{Type: PopupButtonClose}},
	}, func(_ string, err error) {
		if cb != nil {
			cb(err)
		}
	})
}

// ShowConfirm shows message with OK and Cancel. cb receives true for OK.
func (w *WebApp) ShowConfirm(message string, cb func(bool, error)) error {
	return w.ShowPopup(PopupParams{
		Message: message,
		Buttons: []PopupButton{{ID: "ok", Type: PopupButtonOK}, {Type: PopupButtonCancel}},
	}, func(id string, err error) {
		if cb != nil {
			cb(id == "ok", err)
		}
	})
}

// IsPopupOpen reports whether a popup is waiting for the user.
func (w *WebApp) IsPopupOpen() bool { return w.popup.isOpen() }

// popupSlot admits one popup at a time. Every popup holds its own
// generation, and a release for an older generation is ignored.
type popupSlot struct {
	mu   sync.Mutex
	gen  uint64
	open bool
	tok  bridge.Token
}

func (s *popupSlot) acquire() (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		return 0, false
	}
	s.gen++
	s.open, s.tok = true, ""
	return s.gen, true
}

// bind records the call that will close generation gen.
func (s *popupSlot) bind(gen uint64, tok bridge.Token) {
	s.mu.Lock()
	if s.open && s.gen == gen {
		s.tok = tok
	}
	s.mu.Unlock()
}

func (s *popupSlot) release(gen uint64) {
	s.mu.Lock()
	if s.gen == gen {
		s.open, s.tok = false, ""
	}
	s.mu.Unlock()
}

func (s *popupSlot) holder() (uint64, bridge.Token, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.gen, s.tok, s.open
}

func (s *popupSlot) isOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.open
}

// popupClosedUnsolicited handles a popupClosed frame that answered no call.
// Older hosts close popups this way; the open popup's call settles with
// the event's button.
func (w *WebApp) popupClosedUnsolicited(e PopupClosed) {
	gen, tok, open := w.popup.holder()
	if !open {
		return
	}
	if tok != "" {
		payload, err := json.Marshal(e)
		if err == nil && w.bridge.Correlator().Resolve(tok, payload) {
			return
		}
	}
	w.popup.release(gen)
}

// qrSession tracks the open scanner. Handler runs on the dispatcher.
type qrSession struct {
	mu      sync.Mutex
	open    bool
	handler func(string) bool
}

func (q *qrSession) start(fn func(string) bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.open {
		return false
	}
	q.open, q.handler = true, fn
	return true
}

func (q *qrSession) end() {
	q.mu.Lock()
	q.open, q.handler = false, nil
	q.mu.Unlock()
}

func (q *qrSession) received(w *WebApp, data string) {
	q.mu.Lock()
	fn := q.handler
	q.mu.Unlock()
	if fn == nil {
		return
	}
	var done bool
	func() {
		defer errors.Recover("webapp.ShowScanQrPopup")
		done = fn(data)
	}()
	if done {
		if err := w.CloseScanQrPopup(); err != nil {
			w.log.Warn("close qr scanner failed", zap.Error(err))
		}
	}
}

// ShowScanQrPopup opens the QR scanner. fn runs for every scanned code;
// returning true closes the scanner.
func (w *WebApp) ShowScanQrPopup(params QrParams, fn func(text string) bool) error {
	if err := w.guard(version.QRScanner); err != nil {
		return err
	}
	params.Text = strings.TrimSpace(params.Text)
	if n := utf8.RuneCountInString(params.Text); n > MaxQrText {
		return invalid("qr popup text is %d characters, max %d", n, MaxQrText)
	}
	if !w.qr.start(fn) {
		return errors.ErrPopupOpen
	}
	if err := w.notify("web_app_open_scan_qr_popup", params); err != nil {
		w.qr.end()
		return err
	}
	return nil
}

// CloseScanQrPopup closes the scanner.
func (w *WebApp) CloseScanQrPopup() error {
	if err := w.guard(version.QRScanner); err != nil {
		return err
	}
	w.qr.end()
	return w.notify("web_app_close_scan_qr_popup", nil)
}

// ReadTextFromClipboard asks for the clipboard text. cb receives "" when
// the host refused.
func (w *WebApp) ReadTextFromClipboard(cb func(string, error)) error {
	if err := w.guard(version.Clipboard); err != nil {
		return err
	}
	return call(w, "web_app_read_text_from_clipboard", nil, func(e ClipboardTextReceived, err error) {
		if cb == nil {
			return
		}
		if e.Data == nil {
			cb("", err)
			return
		}
		cb(*e.Data, err)
	})
}
