// Package bridge implements the runtime that connects a Mini App to its host
// container: outbound calls, reply correlation and inbound event dispatch.
//
// A Bridge owns one Transport. Outbound calls are encoded with a wire.Codec
// and sent immediately. Inbound frames are decoded on the bridge's
// Dispatcher, one task per frame in arrival order. Replies settle the
// matching pending call first, then any named event is handed to the
// registered reducers and emitted on the Bus.
package bridge

// Transport is the message boundary to the host container.
type Transport interface {
	// Send delivers one encoded frame to the host.
	Send(frame []byte) error
	// OnReceive installs the handler for frames arriving from the host.
	// Handlers may be invoked from any goroutine.
	OnReceive(handler func(frame []byte))
}
