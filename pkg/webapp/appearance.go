package webapp

import (
	"github.com/go-drift/miniapp/pkg/version"
)

type colorPayload struct {
	Color    string `json:"color,omitempty"`
	ColorKey string `json:"color_key,omitempty"`
}

// SetHeaderColor sets the header to a theme keyword (bg_color,
// secondary_bg_color) or a color.
func (w *WebApp) SetHeaderColor(c string) error {
	return w.setColor(version.HeaderColor, "web_app_set_header_color", c,
		func(v string) StateDelta { return StateDelta{HeaderColor: &v} },
		KeyBgColor, KeySecondaryBgColor)
}

// SetBackgroundColor sets the page background to a theme keyword or a
// color.
func (w *WebApp) SetBackgroundColor(c string) error {
	return w.setColor(version.BackgroundColor, "web_app_set_background_color", c,
		func(v string) StateDelta { return StateDelta{BackgroundColor: &v} },
		KeyBgColor, KeySecondaryBgColor)
}

// SetBottomBarColor sets the bottom bar to a theme keyword (including
// bottom_bar_bg_color) or a color.
func (w *WebApp) SetBottomBarColor(c string) error {
	return w.setColor(version.BottomBarColor, "web_app_set_bottom_bar_color", c,
		func(v string) StateDelta { return StateDelta{BottomBarColor: &v} },
		KeyBgColor, KeySecondaryBgColor, KeyBottomBarBgColor)
}

// HeaderColor is the effective header color. Theme keywords are resolved.
func (w *WebApp) HeaderColor() string { return w.store.Snapshot().HeaderColor }

func (w *WebApp) BackgroundColor() string { return w.store.Snapshot().BackgroundColor }
func (w *WebApp) BottomBarColor() string  { return w.store.Snapshot().BottomBarColor }

// ColorScheme is the host's light or dark scheme.
func (w *WebApp) ColorScheme() ColorScheme { return w.store.Snapshot().ColorScheme }

// ThemeParams is the current host palette.
func (w *WebApp) ThemeParams() ThemeParams { return w.store.Snapshot().ThemeParams }

func (w *WebApp) setColor(f version.Feature, method, arg string, delta func(string) StateDelta, keys ...string) error {
	if err := w.gate.Guard(f); err != nil {
		return err
	}
	key, color, err := parseColorArg(arg, keys...)
	if err != nil {
		return err
	}
	p := colorPayload{Color: color, ColorKey: key}
	if err := w.notify(method, p); err != nil {
		return err
	}
	if key != "" {
		w.applyLocal(delta(key))
	} else {
		w.applyLocal(delta(color))
	}
	return nil
}
