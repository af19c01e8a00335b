// Package errors provides structured error handling for the Mini App bridge.
//
// Failures that cannot be returned to a caller (malformed frames from the
// host, listener panics, late replies) are reported through a replaceable
// global [ErrorHandler]. Failures that can be returned match one of the
// sentinel values below with [errors.Is].
package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Sentinel errors shared by every bridge package.
var (
	// ErrUnsupportedFeature is returned when the host API version is older
	// than the version a capability requires.
	ErrUnsupportedFeature = stderrors.New("feature not supported by host version")
	// ErrProtocolDecode indicates a malformed or unknown frame from the host.
	ErrProtocolDecode = stderrors.New("protocol decode failure")
	// ErrPayloadTooLarge is returned when an outbound payload exceeds a
	// documented host limit.
	ErrPayloadTooLarge = stderrors.New("payload too large")
	// ErrTimeout is delivered to a callback whose call outlived its deadline.
	ErrTimeout = stderrors.New("call timed out")
	// ErrCanceled is delivered to a callback that was cancelled locally.
	ErrCanceled = stderrors.New("call canceled")
	// ErrHandlerFault wraps a panic raised by an event listener.
	ErrHandlerFault = stderrors.New("event handler fault")
	// ErrInvalidArguments indicates that caller input failed validation.
	ErrInvalidArguments = stderrors.New("invalid arguments")
	// ErrPopupOpen is returned when a popup is requested while another is shown.
	ErrPopupOpen = stderrors.New("popup is already opened")
	// ErrThrottled is returned when an outbound call exceeds its rate limit.
	ErrThrottled = stderrors.New("call throttled")
	// ErrClosed is returned when the bridge has been shut down.
	ErrClosed = stderrors.New("bridge closed")
)

// New returns an error with the given text.
func New(text string) error { return stderrors.New(text) }

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }

// ErrorKind identifies the category of an error.
type ErrorKind int

const (
	// KindUnknown indicates an error of unknown type.
	KindUnknown ErrorKind = iota
	// KindPlatform indicates a transport or host-reported failure.
	KindPlatform
	// KindParsing indicates a frame or event payload that could not be decoded.
	KindParsing
	// KindUnsupported indicates a capability gated off by the host version.
	KindUnsupported
	// KindPayload indicates an outbound payload rejected before sending.
	KindPayload
	// KindTimeout indicates a call that expired before the host replied.
	KindTimeout
	// KindHandler indicates a fault inside a listener or callback.
	KindHandler
	// KindPanic indicates a recovered panic.
	KindPanic
)

func (k ErrorKind) String() string {
	switch k {
	case KindPlatform:
		return "platform"
	case KindParsing:
		return "parsing"
	case KindUnsupported:
		return "unsupported"
	case KindPayload:
		return "payload"
	case KindTimeout:
		return "timeout"
	case KindHandler:
		return "handler"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// BridgeError represents a structured error raised inside the bridge runtime.
type BridgeError struct {
	// Op is the operation that failed (e.g., "bridge.route").
	Op string
	// Kind categorizes the error.
	Kind ErrorKind
	// Err is the underlying error.
	Err error
	// Method is the outbound host method name, if applicable.
	Method string
	// Event is the inbound event name, if applicable.
	Event string
	// StackTrace contains the call stack at the time of the error.
	StackTrace string
	// Timestamp is when the error occurred.
	Timestamp time.Time
}

func (e *BridgeError) Error() string {
	switch {
	case e.Method != "":
		return fmt.Sprintf("%s [%s] method=%s: %v", e.Op, e.Kind, e.Method, e.Err)
	case e.Event != "":
		return fmt.Sprintf("%s [%s] event=%s: %v", e.Op, e.Kind, e.Event, e.Err)
	}
	return fmt.Sprintf("%s [%s]: %v", e.Op, e.Kind, e.Err)
}

func (e *BridgeError) Unwrap() error {
	return e.Err
}

// PanicError represents a recovered panic.
type PanicError struct {
	// Op is the operation that panicked (e.g., "bridge.Emit").
	Op string
	// Value is the value passed to panic().
	Value any
	// StackTrace contains the call stack at the time of the panic.
	StackTrace string
	// Timestamp is when the panic occurred.
	Timestamp time.Time
}

func (e *PanicError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("panic in %s: %v", e.Op, e.Value)
	}
	return fmt.Sprintf("panic: %v", e.Value)
}

// ParseError represents a failure to decode an event payload.
type ParseError struct {
	// Event is the event name whose payload was rejected.
	Event string
	// DataType is the expected type name.
	DataType string
	// Err is the decoder failure, if any.
	Err error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to parse %s from event %s: %v", e.DataType, e.Event, e.Err)
	}
	return fmt.Sprintf("failed to parse %s from event %s", e.DataType, e.Event)
}

// Unwrap returns ErrProtocolDecode so callers can match decode faults
// without knowing the concrete type.
func (e *ParseError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrProtocolDecode, e.Err}
	}
	return []error{ErrProtocolDecode}
}

// ErrorHandler receives errors reported by the bridge runtime.
type ErrorHandler interface {
	// HandleError is called when an error occurs.
	HandleError(err *BridgeError)
	// HandlePanic is called when a panic is recovered.
	HandlePanic(err *PanicError)
}
