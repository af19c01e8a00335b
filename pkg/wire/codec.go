package wire

import (
	"bytes"
	"encoding/json"
)

// Codec converts envelopes to and from transport bytes.
type Codec interface {
	// EncodeCall builds a call frame. It fails with ErrPayloadTooLarge before
	// producing any bytes when the payload breaks a documented limit.
	EncodeCall(method string, payload any, correlationID string) ([]byte, error)
	// EncodeEvent builds an event frame. Hosts and test doubles use it.
	EncodeEvent(name string, payload any, correlationID string) ([]byte, error)
	// EncodeError builds a reply frame that rejects a call.
	EncodeError(correlationID string, cerr *ChannelError) ([]byte, error)
	// Decode parses one frame. Malformed frames fail with ErrProtocolDecode.
	Decode(raw []byte) (Envelope, error)
}

// JSONCodec implements Codec with encoding/json.
type JSONCodec struct {
	// MaxFrameSize rejects encoded frames larger than this many bytes.
	// Zero disables the check.
	MaxFrameSize int
}

// DefaultCodec is the codec used when none is configured.
var DefaultCodec Codec = JSONCodec{}

// EncodeCall serializes a call to method.
func (c JSONCodec) EncodeCall(method string, payload any, correlationID string) ([]byte, error) {
	body, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	if err := CheckLimits(method, body); err != nil {
		return nil, err
	}
	return c.encode(Envelope{Kind: KindCall, Method: method, Payload: body, CorrelationID: correlationID})
}

// EncodeEvent serializes an event named name.
func (c JSONCodec) EncodeEvent(name string, payload any, correlationID string) ([]byte, error) {
	body, err := marshalPayload(payload)
	if err != nil {
		return nil, err
	}
	return c.encode(Envelope{Kind: KindEvent, Name: name, Payload: body, CorrelationID: correlationID})
}

// EncodeError serializes a rejection of the call identified by correlationID.
func (c JSONCodec) EncodeError(correlationID string, cerr *ChannelError) ([]byte, error) {
	return c.encode(Envelope{Kind: KindEvent, CorrelationID: correlationID, Error: cerr})
}

func (c JSONCodec) encode(env Envelope) ([]byte, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return nil, err
	}
	if c.MaxFrameSize > 0 && len(data) > c.MaxFrameSize {
		return nil, &LimitError{Method: env.Method + env.Name, Size: len(data), Max: c.MaxFrameSize}
	}
	return data, nil
}

// Decode parses a frame, peeking at the kind before decoding the variant.
func (c JSONCodec) Decode(raw []byte) (Envelope, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Envelope{}, &DecodeError{Reason: "empty frame"}
	}
	var peek struct {
		Kind Kind `json:"kind"`
	}
	if err := json.Unmarshal(raw, &peek); err != nil {
		return Envelope{}, &DecodeError{Reason: "malformed json", Raw: raw, Err: err}
	}

	var env Envelope
	switch peek.Kind {
	case KindCall, KindEvent:
		if err := json.Unmarshal(raw, &env); err != nil {
			return Envelope{}, &DecodeError{Reason: "malformed " + string(peek.Kind), Raw: raw, Err: err}
		}
	case "":
		return Envelope{}, &DecodeError{Reason: "missing kind", Raw: raw}
	default:
		return Envelope{}, &DecodeError{Reason: "unknown kind " + string(peek.Kind), Raw: raw}
	}

	switch {
	case env.Kind == KindCall && env.Method == "":
		return Envelope{}, &DecodeError{Reason: "call without method", Raw: raw}
	case env.Kind == KindEvent && env.Name == "" && env.CorrelationID == "":
		return Envelope{}, &DecodeError{Reason: "event without name", Raw: raw}
	}
	if !env.HasPayload() {
		env.Payload = nil
	}
	return env, nil
}

func marshalPayload(payload any) (json.RawMessage, error) {
	switch p := payload.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		return p, nil
	}
	return json.Marshal(payload)
}
