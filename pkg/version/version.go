// Package version models the host API version and the table of features
// each version unlocks.
package version

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/mod/semver"
	"gopkg.in/yaml.v3"
)

// Fallback is assumed when the host advertises no usable version.
var Fallback = API{Major: 6, Minor: 0}

// API is a host API version such as 7.10. Versions are compared
// numerically component by component, so 7.10 is newer than 7.6.
type API struct {
	Major int
	Minor int
}

// Parse reads a "MAJOR.MINOR" version. A trailing patch component is
// accepted and ignored.
func Parse(s string) (API, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	majorStr, rest, ok := strings.Cut(s, ".")
	if !ok {
		return API{}, fmt.Errorf("version %q: want MAJOR.MINOR", s)
	}
	minorStr, _, _ := strings.Cut(rest, ".")
	major, err := strconv.Atoi(majorStr)
	if err != nil || major < 0 {
		return API{}, fmt.Errorf("version %q: bad major component", s)
	}
	minor, err := strconv.Atoi(minorStr)
	if err != nil || minor < 0 {
		return API{}, fmt.Errorf("version %q: bad minor component", s)
	}
	return API{Major: major, Minor: minor}, nil
}

// MustParse is like Parse but panics on malformed input. It is intended
// for constants.
func MustParse(s string) API {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v API) String() string {
	return strconv.Itoa(v.Major) + "." + strconv.Itoa(v.Minor)
}

func (v API) semver() string {
	return "v" + v.String()
}

// Compare returns -1, 0 or +1 depending on whether v is older than, equal
// to, or newer than other.
func (v API) Compare(other API) int {
	return semver.Compare(v.semver(), other.semver())
}

// AtLeast reports whether v is the same as or newer than min.
func (v API) AtLeast(min API) bool {
	return v.Compare(min) >= 0
}

// IsZero reports whether v is the zero value.
func (v API) IsZero() bool {
	return v == API{}
}

// UnmarshalYAML accepts both quoted strings and bare floats ("7.10", 6.1).
func (v *API) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := Parse(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*v = parsed
	return nil
}

// MarshalYAML writes the version as a quoted string so 7.10 survives.
func (v API) MarshalYAML() (any, error) {
	return v.String(), nil
}
