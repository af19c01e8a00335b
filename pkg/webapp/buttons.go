package webapp

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/go-drift/miniapp/pkg/bridge"
	"github.com/go-drift/miniapp/pkg/version"
)

// ButtonKind identifies a host button.
type ButtonKind string

const (
	ButtonBack      ButtonKind = "back"
	ButtonMain      ButtonKind = "main"
	ButtonSecondary ButtonKind = "secondary"
	ButtonSettings  ButtonKind = "settings"
)

// ButtonPosition places the secondary button relative to the main one.
type ButtonPosition string

const (
	PositionLeft   ButtonPosition = "left"
	PositionRight  ButtonPosition = "right"
	PositionTop    ButtonPosition = "top"
	PositionBottom ButtonPosition = "bottom"
)

// MaxButtonText is the longest button label in runes.
const MaxButtonText = 64

// ButtonModel is the local copy of a button's state. Colors are the
// effective colors, theme defaults included.
type ButtonModel struct {
	Kind              ButtonKind
	Text              string
	Color             string
	TextColor         string
	IsVisible         bool
	IsActive          bool
	HasShineEffect    bool
	IsProgressVisible bool
	Position          ButtonPosition
}

// ButtonParams changes several bottom button fields at once. Nil fields are
// left alone.
type ButtonParams struct {
	Text           *string
	Color          *string
	TextColor      *string
	HasShineEffect *bool
	Position       *ButtonPosition
	IsActive       *bool
	IsVisible      *bool
}

// control is the state machine shared by every button kind. Transitions
// apply in place, so the caller reads its own write and Err right away.
type control struct {
	app     *WebApp
	method  string
	click   bridge.EventName
	feature version.Feature
	encode  func(ButtonModel) any

	mu    sync.Mutex
	model ButtonModel
	last  []byte
	err   error
}

// Model returns a copy of the current model.
func (c *control) Model() ButtonModel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.model
}

// Err returns the first error a transition ran into, or nil.
func (c *control) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *control) fail(err error) {
	c.mu.Lock()
	if c.err == nil {
		c.err = err
	}
	c.mu.Unlock()
}

func (c *control) supported() bool {
	if c.feature == "" {
		return true
	}
	if err := c.app.gate.Guard(c.feature); err != nil {
		c.fail(err)
		return false
	}
	return true
}

// transition applies mutate and pushes the resulting model.
func (c *control) transition(mutate func(*ButtonModel)) {
	if !c.supported() {
		return
	}
	c.apply(mutate, false)
}

// apply mutates the model and pushes it. A push identical to the previous one is
// skipped. With onlyVisible set, hidden buttons update locally only.
func (c *control) apply(mutate func(*ButtonModel), onlyVisible bool) {
	c.mu.Lock()
	mutate(&c.model)
	if onlyVisible && !c.model.IsVisible {
		c.mu.Unlock()
		return
	}
	frame, err := json.Marshal(c.encode(c.model))
	if err != nil || bytes.Equal(frame, c.last) {
		c.mu.Unlock()
		return
	}
	c.last = frame
	c.mu.Unlock()

	if err := c.app.notify(c.method, json.RawMessage(frame)); err != nil {
		c.mu.Lock()
		c.last = nil
		c.mu.Unlock()
		c.fail(err)
	}
}

func (c *control) onClick(l *bridge.Listener) { c.app.bridge.On(c.click, l) }

func (c *control) offClick(l *bridge.Listener) bool { return c.app.bridge.Off(c.click, l) }

type visibilityPayload struct {
	IsVisible bool `json:"is_visible"`
}

func encodeVisibility(m ButtonModel) any { return visibilityPayload{IsVisible: m.IsVisible} }

// BackButton is the header back arrow.
type BackButton struct {
	control
}

func newBackButton(w *WebApp) *BackButton {
	return &BackButton{control{
		app:     w,
		method:  "web_app_setup_back_button",
		click:   EventBackButtonClicked,
		feature: version.BackButton,
		encode:  encodeVisibility,
		model:   ButtonModel{Kind: ButtonBack},
	}}
}

// Show displays the back arrow.
func (b *BackButton) Show() *BackButton {
	b.transition(func(m *ButtonModel) { m.IsVisible = true })
	return b
}

// Hide removes the back arrow.
func (b *BackButton) Hide() *BackButton {
	b.transition(func(m *ButtonModel) { m.IsVisible = false })
	return b
}

func (b *BackButton) IsVisible() bool { return b.Model().IsVisible }

// OnClick registers l for backButtonClicked.
func (b *BackButton) OnClick(l *bridge.Listener) *BackButton {
	b.onClick(l)
	return b
}

// OffClick removes one registration of l.
func (b *BackButton) OffClick(l *bridge.Listener) *BackButton {
	b.offClick(l)
	return b
}

// SettingsButton is the item in the app's context menu.
type SettingsButton struct {
	control
}

func newSettingsButton(w *WebApp) *SettingsButton {
	return &SettingsButton{control{
		app:     w,
		method:  "web_app_setup_settings_button",
		click:   EventSettingsButtonClicked,
		feature: version.SettingsButton,
		encode:  encodeVisibility,
		model:   ButtonModel{Kind: ButtonSettings},
	}}
}

// Show adds the Settings item to the context menu.
func (b *SettingsButton) Show() *SettingsButton {
	b.transition(func(m *ButtonModel) { m.IsVisible = true })
	return b
}

func (b *SettingsButton) Hide() *SettingsButton {
	b.transition(func(m *ButtonModel) { m.IsVisible = false })
	return b
}

func (b *SettingsButton) IsVisible() bool { return b.Model().IsVisible }

// OnClick registers l for settingsButtonClicked.
func (b *SettingsButton) OnClick(l *bridge.Listener) *SettingsButton {
	b.onClick(l)
	return b
}

func (b *SettingsButton) OffClick(l *bridge.Listener) *SettingsButton {
	b.offClick(l)
	return b
}

type bottomSpec struct {
	kind        ButtonKind
	method      string
	click       bridge.EventName
	feature     version.Feature
	defaultText string
	colors      func(ThemeParams) (bg, text string)
}

var mainButtonSpec = bottomSpec{
	kind:        ButtonMain,
	method:      "web_app_setup_main_button",
	click:       EventMainButtonClicked,
	defaultText: "Continue",
	colors: func(t ThemeParams) (string, string) {
		return firstColor(t.ButtonColor, "#2481cc"), firstColor(t.ButtonTextColor, "#ffffff")
	},
}

var secondaryButtonSpec = bottomSpec{
	kind:        ButtonSecondary,
	method:      "web_app_setup_secondary_button",
	click:       EventSecondaryButtonClicked,
	feature:     version.SecondaryButton,
	defaultText: "Cancel",
	colors: func(t ThemeParams) (string, string) {
		return firstColor(t.BottomBarBgColor, t.SecondaryBgColor, "#ffffff"), firstColor(t.ButtonColor, "#2481cc")
	},
}

func firstColor(colors ...string) string {
	for _, c := range colors {
		if c != "" {
			return c
		}
	}
	return ""
}

type bottomPayload struct {
	IsVisible         bool           `json:"is_visible"`
	IsActive          bool           `json:"is_active"`
	IsProgressVisible bool           `json:"is_progress_visible"`
	Text              string         `json:"text"`
	Color             string         `json:"color"`
	TextColor         string         `json:"text_color"`
	HasShineEffect    *bool          `json:"has_shine_effect,omitempty"`
	Position          ButtonPosition `json:"position,omitempty"`
}

// BottomButton is the main or secondary button in the bottom bar.
type BottomButton struct {
	control
	spec bottomSpec

	// Guarded by control.mu.
	wantActive   bool
	leaveActive  bool
	colorSet     bool
	textColorSet bool
}

func newBottomButton(w *WebApp, spec bottomSpec) *BottomButton {
	b := &BottomButton{spec: spec, wantActive: true}
	bg, fg := spec.colors(w.store.Snapshot().ThemeParams)
	b.control = control{
		app:     w,
		method:  spec.method,
		click:   spec.click,
		feature: spec.feature,
		model: ButtonModel{
			Kind:      spec.kind,
			Text:      spec.defaultText,
			Color:     bg,
			TextColor: fg,
			IsActive:  true,
		},
	}
	if spec.kind == ButtonSecondary {
		b.model.Position = PositionLeft
	}
	shine := w.gate.Supports(version.ButtonShine)
	b.encode = func(m ButtonModel) any {
		p := bottomPayload{
			IsVisible:         m.IsVisible,
			IsActive:          m.IsActive,
			IsProgressVisible: m.IsProgressVisible,
			Text:              m.Text,
			Color:             m.Color,
			TextColor:         m.TextColor,
			Position:          m.Position,
		}
		if shine {
			p.HasShineEffect = &m.HasShineEffect
		}
		return p
	}
	return b
}

// Show displays the button. The host needs non-empty text to render it.
func (b *BottomButton) Show() *BottomButton {
	b.transition(func(m *ButtonModel) { m.IsVisible = true })
	return b
}

// Hide removes the button from the bottom bar.
func (b *BottomButton) Hide() *BottomButton {
	b.transition(func(m *ButtonModel) { m.IsVisible = false })
	return b
}

// Enable makes the button clickable once any progress indicator allows it.
func (b *BottomButton) Enable() *BottomButton {
	b.transition(func(m *ButtonModel) { b.setActive(m, true) })
	return b
}

// Disable makes the button ignore clicks.
func (b *BottomButton) Disable() *BottomButton {
	b.transition(func(m *ButtonModel) { b.setActive(m, false) })
	return b
}

// ShowProgress shows the loading indicator. Unless leaveActive is set the
// button is inactive until HideProgress.
func (b *BottomButton) ShowProgress(leaveActive bool) *BottomButton {
	b.transition(func(m *ButtonModel) {
		m.IsProgressVisible = true
		b.leaveActive = leaveActive
		m.IsActive = leaveActive && b.wantActive
	})
	return b
}

// HideProgress hides the loading indicator and restores the requested
// active state.
func (b *BottomButton) HideProgress() *BottomButton {
	b.transition(func(m *ButtonModel) {
		m.IsProgressVisible = false
		b.leaveActive = false
		m.IsActive = b.wantActive
	})
	return b
}

// SetText sets the label. Empty or overlong text is recorded in Err.
func (b *BottomButton) SetText(text string) *BottomButton {
	return b.SetParams(ButtonParams{Text: &text})
}

// SetParams validates every field first and applies none of them if any
// is invalid.
func (b *BottomButton) SetParams(p ButtonParams) *BottomButton {
	if !b.supported() {
		return b
	}
	var text, color, textColor string
	var err error
	if p.Text != nil {
		if text, err = validateButtonText(*p.Text); err != nil {
			b.fail(err)
			return b
		}
	}
	if p.Color != nil {
		if color, err = NormalizeColor(*p.Color); err != nil {
			b.fail(err)
			return b
		}
	}
	if p.TextColor != nil {
		if textColor, err = NormalizeColor(*p.TextColor); err != nil {
			b.fail(err)
			return b
		}
	}
	if p.Position != nil {
		if b.spec.kind != ButtonSecondary {
			b.fail(invalid("position applies to the secondary button only"))
			return b
		}
		switch *p.Position {
		case PositionLeft, PositionRight, PositionTop, PositionBottom:
		default:
			b.fail(invalid("unknown button position %q", *p.Position))
			return b
		}
	}
	shine := p.HasShineEffect
	if shine != nil {
		if err := b.app.gate.Guard(version.ButtonShine); err != nil {
			b.fail(err)
			shine = nil
		}
	}

	b.transition(func(m *ButtonModel) {
		if p.Text != nil {
			m.Text = text
		}
		if p.Color != nil {
			m.Color = color
			b.colorSet = true
		}
		if p.TextColor != nil {
			m.TextColor = textColor
			b.textColorSet = true
		}
		if shine != nil {
			m.HasShineEffect = *shine
		}
		if p.Position != nil {
			m.Position = *p.Position
		}
		if p.IsActive != nil {
			b.setActive(m, *p.IsActive)
		}
		if p.IsVisible != nil {
			m.IsVisible = *p.IsVisible
		}
	})
	return b
}

// OnClick registers l for this button's click event.
func (b *BottomButton) OnClick(l *bridge.Listener) *BottomButton {
	b.onClick(l)
	return b
}

// OffClick removes one registration of l.
func (b *BottomButton) OffClick(l *bridge.Listener) *BottomButton {
	b.offClick(l)
	return b
}

// Accessors read the local model.

func (b *BottomButton) Text() string            { return b.Model().Text }
func (b *BottomButton) IsVisible() bool         { return b.Model().IsVisible }
func (b *BottomButton) IsActive() bool          { return b.Model().IsActive }
func (b *BottomButton) IsProgressVisible() bool { return b.Model().IsProgressVisible }

// setActive records the requested state; progress may hold it back.
func (b *BottomButton) setActive(m *ButtonModel, active bool) {
	b.wantActive = active
	if m.IsProgressVisible && !b.leaveActive {
		m.IsActive = false
		return
	}
	m.IsActive = active
}

// themeChanged refreshes theme derived colors. Runs on the dispatcher.
func (b *BottomButton) themeChanged() {
	if b.feature != "" && !b.app.gate.Supports(b.feature) {
		return
	}
	bg, fg := b.spec.colors(b.app.store.Snapshot().ThemeParams)
	b.apply(func(m *ButtonModel) {
		if !b.colorSet {
			m.Color = bg
		}
		if !b.textColorSet {
			m.TextColor = fg
		}
	}, true)
}

func validateButtonText(s string) (string, error) {
	s = strings.TrimSpace(s)
	n := utf8.RuneCountInString(s)
	if n == 0 || n > MaxButtonText {
		return "", invalid("button text must be 1..%d characters, got %d", MaxButtonText, n)
	}
	return s, nil
}
