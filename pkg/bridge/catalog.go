package bridge

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/go-drift/miniapp/pkg/errors"
)

// ErrUnknownEvent is returned by Catalog.Decode for names outside the
// catalog.
var ErrUnknownEvent = fmt.Errorf("%w: unknown event", errors.ErrProtocolDecode)

// DecodeFunc turns an event payload into a typed Event.
type DecodeFunc func(payload json.RawMessage) (Event, error)

// Catalog is the closed set of events a bridge accepts.
type Catalog map[EventName]DecodeFunc

// Decoder returns a DecodeFunc that unmarshals into E. A missing payload
// yields the zero E.
func Decoder[E Event]() DecodeFunc {
	return func(payload json.RawMessage) (Event, error) {
		var e E
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &e); err != nil {
				return nil, &errors.ParseError{
					Event:    string(e.EventName()),
					DataType: fmt.Sprintf("%T", e),
					Err:      err,
				}
			}
		}
		return e, nil
	}
}

// Decode returns the typed event for name.
func (c Catalog) Decode(name EventName, payload json.RawMessage) (Event, error) {
	fn, ok := c[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownEvent, name)
	}
	return fn(payload)
}

// Names returns the catalog's event names in sorted order.
func (c Catalog) Names() []EventName {
	out := make([]EventName, 0, len(c))
	for name := range c {
		out = append(out, name)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
