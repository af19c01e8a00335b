package wire

import (
	"fmt"

	"github.com/go-drift/miniapp/pkg/errors"
)

// ChannelError is a structural failure reported by the host on a reply
// frame, for example an unknown method or rejected parameters.
type ChannelError struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

func (e *ChannelError) Error() string {
	if e.Message != "" {
		return e.Code + ": " + e.Message
	}
	return e.Code
}

// NewChannelError creates a ChannelError with the given code and message.
func NewChannelError(code, message string) *ChannelError {
	return &ChannelError{Code: code, Message: message}
}

// DecodeError describes a frame that could not be decoded.
type DecodeError struct {
	Reason string
	Raw    []byte
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode frame: %s: %v", e.Reason, e.Err)
	}
	return "decode frame: " + e.Reason
}

// Unwrap exposes ErrProtocolDecode and the underlying JSON error.
func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{errors.ErrProtocolDecode, e.Err}
	}
	return []error{errors.ErrProtocolDecode}
}

// LimitError describes an outbound payload that exceeds a host limit.
type LimitError struct {
	Method string
	Field  string
	Size   int
	Max    int
}

func (e *LimitError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: frame is %d bytes, limit %d", e.Method, e.Size, e.Max)
	}
	return fmt.Sprintf("%s: %s is %d bytes, limit %d", e.Method, e.Field, e.Size, e.Max)
}

func (e *LimitError) Unwrap() error {
	return errors.ErrPayloadTooLarge
}
