package version

import (
	_ "embed"
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/go-drift/miniapp/pkg/errors"
)

// Feature names a gated host capability.
type Feature string

// Gated features.
const (
	BackButton          Feature = "back_button"
	HeaderColor         Feature = "header_color"
	BackgroundColor     Feature = "background_color"
	HapticFeedback      Feature = "haptic_feedback"
	Invoice             Feature = "invoice"
	ClosingConfirmation Feature = "closing_confirmation"
	Popup               Feature = "popup"
	QRScanner           Feature = "qr_scanner"
	Clipboard           Feature = "clipboard"
	InstantView         Feature = "instant_view"
	SwitchInlineQuery   Feature = "switch_inline_query"
	WriteAccess         Feature = "write_access"
	Contact             Feature = "contact"
	CloudStorage        Feature = "cloud_storage"
	SettingsButton      Feature = "settings_button"
	TgLinkInline        Feature = "tg_link_inline"
	Biometric           Feature = "biometric"
	VerticalSwipes      Feature = "vertical_swipes"
	ScanQrClosedEvent   Feature = "scan_qr_closed_event"
	ShareToStory        Feature = "share_to_story"
	BottomBarColor      Feature = "bottom_bar_color"
	SecondaryButton     Feature = "secondary_button"
	ButtonShine         Feature = "button_shine"
	Fullscreen          Feature = "fullscreen"
	OrientationLock     Feature = "orientation_lock"
	HomeScreen          Feature = "home_screen"
	ShareMessage        Feature = "share_message"
	EmojiStatus         Feature = "emoji_status"
	DownloadFile        Feature = "download_file"
	Accelerometer       Feature = "accelerometer"
	Gyroscope           Feature = "gyroscope"
	DeviceOrientation   Feature = "device_orientation"
	Location            Feature = "location"
	SafeArea            Feature = "safe_area"
	Activity            Feature = "activity"
	DeviceStorage       Feature = "device_storage"
	SecureStorage       Feature = "secure_storage"
	HideKeyboard        Feature = "hide_keyboard"
)

//go:embed features.yaml
var featuresYAML []byte

// Requirement pairs a feature with the first API version that offers it.
type Requirement struct {
	Feature Feature
	Since   API
	// Supported is set by Gate.Features for the gate's version. The
	// package level Features leaves it false.
	Supported bool
}

var table = mustLoadTable(featuresYAML)

type tableFile struct {
	Features map[Feature]API `yaml:"features"`
}

func loadTable(data []byte) (map[Feature]API, error) {
	var f tableFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse feature table: %w", err)
	}
	if len(f.Features) == 0 {
		return nil, fmt.Errorf("parse feature table: no features")
	}
	return f.Features, nil
}

func mustLoadTable(data []byte) map[Feature]API {
	t, err := loadTable(data)
	if err != nil {
		panic(err)
	}
	return t
}

// UnsupportedError reports a capability the host version does not offer.
type UnsupportedError struct {
	Feature  Feature
	Required API
	Have     API
}

func (e *UnsupportedError) Error() string {
	if e.Required.IsZero() {
		return fmt.Sprintf("unknown feature %q", e.Feature)
	}
	return fmt.Sprintf("%s requires API %s, host has %s", e.Feature, e.Required, e.Have)
}

func (e *UnsupportedError) Unwrap() error {
	return errors.ErrUnsupportedFeature
}

// Gate answers capability questions for one negotiated host version.
// It is immutable once built and safe for concurrent use.
type Gate struct {
	version API
	raw     string
}

// NewGate builds a gate from the host-advertised version string.
// Unparseable strings fall back to Fallback.
func NewGate(hostVersion string) *Gate {
	v, err := Parse(hostVersion)
	if err != nil {
		v = Fallback
	}
	return &Gate{version: v, raw: hostVersion}
}

// Version returns the negotiated version.
func (g *Gate) Version() API {
	return g.version
}

// Raw returns the version string exactly as the host sent it.
func (g *Gate) Raw() string {
	return g.raw
}

// Supports reports whether f is available. Unknown features are unsupported.
func (g *Gate) Supports(f Feature) bool {
	min, ok := table[f]
	if !ok {
		return false
	}
	return g.version.AtLeast(min)
}

// Guard returns nil when f is available and an *UnsupportedError otherwise.
func (g *Gate) Guard(f Feature) error {
	if g.Supports(f) {
		return nil
	}
	return &UnsupportedError{Feature: f, Required: table[f], Have: g.version}
}

// IsVersionAtLeast reports whether the host version is at least v.
// A malformed v is never satisfied.
func (g *Gate) IsVersionAtLeast(v string) bool {
	min, err := Parse(v)
	if err != nil {
		return false
	}
	return g.version.AtLeast(min)
}

// Since returns the minimum version for f.
func Since(f Feature) (API, bool) {
	v, ok := table[f]
	return v, ok
}

// Features returns the whole table ordered by version, then name.
func Features() []Requirement {
	out := make([]Requirement, 0, len(table))
	for f, v := range table {
		out = append(out, Requirement{Feature: f, Since: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if c := out[i].Since.Compare(out[j].Since); c != 0 {
			return c < 0
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// Features returns the feature table with Supported filled in for this
// gate's version.
func (g *Gate) Features() []Requirement {
	reqs := Features()
	for i := range reqs {
		reqs[i].Supported = g.version.AtLeast(reqs[i].Since)
	}
	return reqs
}
