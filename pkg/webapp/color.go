package webapp

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"

	"github.com/go-drift/miniapp/pkg/errors"
)

// Theme color keywords accepted by the color setters.
const (
	KeyBgColor          = "bg_color"
	KeySecondaryBgColor = "secondary_bg_color"
	KeyBottomBarBgColor = "bottom_bar_bg_color"
)

// NormalizeColor returns c as lowercase #rrggbb. It accepts #rgb, #rrggbb
// and CSS color names.
func NormalizeColor(c string) (string, error) {
	s := strings.ToLower(strings.TrimSpace(c))
	if s == "" {
		return "", fmt.Errorf("%w: empty color", errors.ErrInvalidArguments)
	}
	if !strings.HasPrefix(s, "#") {
		rgba, ok := colornames.Map[s]
		if !ok {
			return "", fmt.Errorf("%w: unknown color %q", errors.ErrInvalidArguments, c)
		}
		return fmt.Sprintf("#%02x%02x%02x", rgba.R, rgba.G, rgba.B), nil
	}
	hex := s[1:]
	switch len(hex) {
	case 3:
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	case 6:
	default:
		return "", fmt.Errorf("%w: color %q is not #RRGGBB", errors.ErrInvalidArguments, c)
	}
	if _, err := strconv.ParseUint(hex, 16, 32); err != nil {
		return "", fmt.Errorf("%w: color %q is not #RRGGBB", errors.ErrInvalidArguments, c)
	}
	return "#" + hex, nil
}

// IsColorDark reports whether a #rrggbb color reads as dark. Unparseable
// colors are treated as light.
func IsColorDark(c string) bool {
	hex, err := NormalizeColor(c)
	if err != nil {
		return false
	}
	v, _ := strconv.ParseUint(hex[1:], 16, 32)
	r, g, b := float64(v>>16&0xff), float64(v>>8&0xff), float64(v&0xff)
	return math.Sqrt(0.299*r*r+0.587*g*g+0.114*b*b) < 120
}

// resolveColorKey maps a theme keyword to the current theme value.
func resolveColorKey(key string, theme ThemeParams) string {
	switch key {
	case KeyBgColor:
		return theme.BgColor
	case KeySecondaryBgColor:
		return theme.SecondaryBgColor
	case KeyBottomBarBgColor:
		return theme.BottomBarBgColor
	}
	return ""
}

func isColorKey(s string) bool {
	return s == KeyBgColor || s == KeySecondaryBgColor || s == KeyBottomBarBgColor
}

// parseColorArg splits a setter argument into a keyword or a normalized
// color. allowed lists the keywords the setter accepts.
func parseColorArg(arg string, allowed ...string) (key, color string, err error) {
	arg = strings.TrimSpace(arg)
	for _, k := range allowed {
		if arg == k {
			return k, "", nil
		}
	}
	color, err = NormalizeColor(arg)
	return "", color, err
}
