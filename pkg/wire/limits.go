package wire

import (
	"encoding/json"
	"strings"
)

// Limit caps the byte length of one string member of a method's payload.
// Path is dot separated for nested members.
type Limit struct {
	Path string
	Max  int
}

// Limits lists the documented host limits per method.
var Limits = map[string][]Limit{
	"web_app_data_send":            {{Path: "data", Max: 4096}},
	"web_app_invoke_custom_method": {{Path: "params.value", Max: 4096}},
	"web_app_share_to_story":       {{Path: "text", Max: 2048}},
}

// CheckLimits validates an encoded payload against Limits.
func CheckLimits(method string, payload json.RawMessage) error {
	limits, ok := Limits[method]
	if !ok || len(payload) == 0 {
		return nil
	}
	for _, l := range limits {
		size, ok := stringLen(lookup(payload, strings.Split(l.Path, ".")))
		if ok && size > l.Max {
			return &LimitError{Method: method, Field: l.Path, Size: size, Max: l.Max}
		}
	}
	return nil
}

func lookup(raw json.RawMessage, path []string) json.RawMessage {
	for _, key := range path {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil
		}
		if raw = fields[key]; raw == nil {
			return nil
		}
	}
	return raw
}

func stringLen(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	return len(s), true
}
