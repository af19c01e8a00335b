package webapp

import (
	"sync"
)

// ColorScheme is the host's light or dark appearance.
type ColorScheme string

const (
	ColorSchemeLight ColorScheme = "light"
	ColorSchemeDark  ColorScheme = "dark"
)

// ThemeParams is the host palette. Every field is #rrggbb or empty.
type ThemeParams struct {
	BgColor                string `json:"bg_color,omitempty" yaml:"bg_color,omitempty"`
	TextColor              string `json:"text_color,omitempty" yaml:"text_color,omitempty"`
	HintColor              string `json:"hint_color,omitempty" yaml:"hint_color,omitempty"`
	LinkColor              string `json:"link_color,omitempty" yaml:"link_color,omitempty"`
	ButtonColor            string `json:"button_color,omitempty" yaml:"button_color,omitempty"`
	ButtonTextColor        string `json:"button_text_color,omitempty" yaml:"button_text_color,omitempty"`
	SecondaryBgColor       string `json:"secondary_bg_color,omitempty" yaml:"secondary_bg_color,omitempty"`
	HeaderBgColor          string `json:"header_bg_color,omitempty" yaml:"header_bg_color,omitempty"`
	BottomBarBgColor       string `json:"bottom_bar_bg_color,omitempty" yaml:"bottom_bar_bg_color,omitempty"`
	AccentTextColor        string `json:"accent_text_color,omitempty" yaml:"accent_text_color,omitempty"`
	SectionBgColor         string `json:"section_bg_color,omitempty" yaml:"section_bg_color,omitempty"`
	SectionHeaderTextColor string `json:"section_header_text_color,omitempty" yaml:"section_header_text_color,omitempty"`
	SectionSeparatorColor  string `json:"section_separator_color,omitempty" yaml:"section_separator_color,omitempty"`
	SubtitleTextColor      string `json:"subtitle_text_color,omitempty" yaml:"subtitle_text_color,omitempty"`
	DestructiveTextColor   string `json:"destructive_text_color,omitempty" yaml:"destructive_text_color,omitempty"`
}

// Insets are distances in CSS pixels from each edge.
type Insets struct {
	Top    float64 `json:"top"`
	Bottom float64 `json:"bottom"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// State is a point-in-time copy of everything the host has told the app.
type State struct {
	ColorScheme                  ColorScheme
	ThemeParams                  ThemeParams
	IsActive                     bool
	IsExpanded                   bool
	ViewportHeight               float64
	ViewportStableHeight         float64
	HeaderColor                  string
	BackgroundColor              string
	BottomBarColor               string
	IsClosingConfirmationEnabled bool
	IsVerticalSwipesEnabled      bool
	IsFullscreen                 bool
	IsOrientationLocked          bool
	SafeAreaInset                Insets
	ContentSafeAreaInset         Insets
}

// StateDelta is a partial update. Nil fields are left unchanged.
type StateDelta struct {
	ColorScheme                  *ColorScheme
	ThemeParams                  *ThemeParams
	IsActive                     *bool
	IsExpanded                   *bool
	ViewportHeight               *float64
	HeaderColor                  *string
	BackgroundColor              *string
	BottomBarColor               *string
	IsClosingConfirmationEnabled *bool
	IsVerticalSwipesEnabled      *bool
	IsFullscreen                 *bool
	IsOrientationLocked          *bool
	SafeAreaInset                *Insets
	ContentSafeAreaInset         *Insets

	// ViewportSettled marks ViewportHeight as the settled height.
	ViewportSettled bool
}

// Changes is a set of fields modified by one Apply.
type Changes uint32

const (
	ChangedColorScheme Changes = 1 << iota
	ChangedTheme
	ChangedActive
	ChangedExpanded
	ChangedViewport
	ChangedStableViewport
	ChangedHeaderColor
	ChangedBackgroundColor
	ChangedBottomBarColor
	ChangedClosingConfirmation
	ChangedVerticalSwipes
	ChangedFullscreen
	ChangedOrientationLock
	ChangedSafeArea
	ChangedContentSafeArea
)

// Has reports whether any of flags is set.
func (c Changes) Has(flags Changes) bool {
	return c&flags != 0
}

// Store holds the app's State. Reads are safe from any goroutine; Apply
// belongs on the bridge dispatcher.
type Store struct {
	mu    sync.RWMutex
	state State

	// Color setters may name a theme keyword instead of a color. The
	// keyword is kept so the color follows later theme changes.
	headerKey     string
	backgroundKey string
	bottomBarKey  string
}

// NewStore creates a store seeded with initial.
func NewStore(initial State) *Store {
	if initial.ColorScheme == "" {
		initial.ColorScheme = deriveScheme(initial.ThemeParams)
	}
	return &Store{state: initial}
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Get is Snapshot.
func (s *Store) Get() State { return s.Snapshot() }

// Apply merges d field by field and reports what changed.
func (s *Store) Apply(d StateDelta) Changes {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := &s.state
	var ch Changes

	if d.ThemeParams != nil && *d.ThemeParams != st.ThemeParams {
		st.ThemeParams = *d.ThemeParams
		ch |= ChangedTheme
	}
	scheme := st.ColorScheme
	switch {
	case d.ColorScheme != nil:
		scheme = *d.ColorScheme
	case ch.Has(ChangedTheme):
		scheme = deriveScheme(st.ThemeParams)
	}
	if scheme != st.ColorScheme {
		st.ColorScheme = scheme
		ch |= ChangedColorScheme
	}

	ch |= setBool(&st.IsActive, d.IsActive, ChangedActive)
	ch |= setBool(&st.IsExpanded, d.IsExpanded, ChangedExpanded)
	ch |= setBool(&st.IsClosingConfirmationEnabled, d.IsClosingConfirmationEnabled, ChangedClosingConfirmation)
	ch |= setBool(&st.IsVerticalSwipesEnabled, d.IsVerticalSwipesEnabled, ChangedVerticalSwipes)
	ch |= setBool(&st.IsFullscreen, d.IsFullscreen, ChangedFullscreen)
	ch |= setBool(&st.IsOrientationLocked, d.IsOrientationLocked, ChangedOrientationLock)

	if d.ViewportHeight != nil {
		if *d.ViewportHeight != st.ViewportHeight {
			st.ViewportHeight = *d.ViewportHeight
			ch |= ChangedViewport
		}
		if d.ViewportSettled && *d.ViewportHeight != st.ViewportStableHeight {
			st.ViewportStableHeight = *d.ViewportHeight
			ch |= ChangedStableViewport
		}
	}

	if d.SafeAreaInset != nil && *d.SafeAreaInset != st.SafeAreaInset {
		st.SafeAreaInset = *d.SafeAreaInset
		ch |= ChangedSafeArea
	}
	if d.ContentSafeAreaInset != nil && *d.ContentSafeAreaInset != st.ContentSafeAreaInset {
		st.ContentSafeAreaInset = *d.ContentSafeAreaInset
		ch |= ChangedContentSafeArea
	}

	ch |= s.setColor(&st.HeaderColor, &s.headerKey, d.HeaderColor, ChangedHeaderColor)
	ch |= s.setColor(&st.BackgroundColor, &s.backgroundKey, d.BackgroundColor, ChangedBackgroundColor)
	ch |= s.setColor(&st.BottomBarColor, &s.bottomBarKey, d.BottomBarColor, ChangedBottomBarColor)
	return ch
}

// setColor stores a keyword or color and re-resolves keywords against the
// current theme. Callers hold s.mu.
func (s *Store) setColor(dst, key *string, v *string, flag Changes) Changes {
	if v != nil {
		if isColorKey(*v) {
			*key = *v
		} else {
			*key = ""
			if *dst != *v {
				*dst = *v
				return flag
			}
			return 0
		}
	}
	if *key == "" {
		return 0
	}
	resolved := resolveColorKey(*key, s.state.ThemeParams)
	if *key == KeyBottomBarBgColor && resolved == "" {
		resolved = s.state.ThemeParams.SecondaryBgColor
	}
	if resolved != *dst {
		*dst = resolved
		return flag
	}
	return 0
}

func setBool(dst *bool, v *bool, flag Changes) Changes {
	if v == nil || *v == *dst {
		return 0
	}
	*dst = *v
	return flag
}

func deriveScheme(theme ThemeParams) ColorScheme {
	if theme.BgColor != "" && IsColorDark(theme.BgColor) {
		return ColorSchemeDark
	}
	return ColorSchemeLight
}

func ptr[T any](v T) *T { return &v }
