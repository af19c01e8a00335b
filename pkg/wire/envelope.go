// Package wire defines the frames exchanged between a Mini App and its host
// and the codec that turns them into bytes.
//
// Every frame is a JSON object tagged by "kind". Calls travel from the app
// to the host, events travel back. An event that carries a correlationId is
// the reply to the call that issued it:
//
//	{"kind":"call","method":"web_app_open_popup","payload":{...},"correlationId":"3f0c..."}
//	{"kind":"event","name":"popupClosed","payload":{"buttonId":"ok"},"correlationId":"3f0c..."}
package wire

import (
	"encoding/json"
)

// Kind is the discriminator of a frame.
type Kind string

const (
	// KindCall is an app-to-host method invocation.
	KindCall Kind = "call"
	// KindEvent is a host-to-app notification or reply.
	KindEvent Kind = "event"
)

// Envelope is the decoded form of a single frame.
type Envelope struct {
	Kind          Kind            `json:"kind"`
	Method        string          `json:"method,omitempty"`
	Name          string          `json:"name,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CorrelationID string          `json:"correlationId,omitempty"`
	Error         *ChannelError   `json:"error,omitempty"`
}

// IsReply reports whether the envelope answers a pending call.
func (e Envelope) IsReply() bool {
	return e.Kind == KindEvent && e.CorrelationID != ""
}

// HasPayload reports whether the envelope carries a non-null payload.
func (e Envelope) HasPayload() bool {
	return len(e.Payload) > 0 && string(e.Payload) != "null"
}

// Into decodes the payload into v. A missing payload leaves v untouched.
func (e Envelope) Into(v any) error {
	if !e.HasPayload() {
		return nil
	}
	return json.Unmarshal(e.Payload, v)
}
