package bridge

import (
	"fmt"
	"sync"

	"github.com/go-drift/miniapp/pkg/errors"
)

// EventName is the wire name of a host event, e.g. "viewportChanged".
type EventName string

// Event is one decoded host event. Each catalog entry is its own Go type.
type Event interface {
	EventName() EventName
}

// Listener is a registered event handler. The pointer is its identity:
// pass the same *Listener to Off that was passed to On.
type Listener struct {
	fn func(Event)
}

// Listen wraps fn as a Listener.
func Listen(fn func(Event)) *Listener {
	return &Listener{fn: fn}
}

// ListenFor wraps a handler for one concrete event type. Events of other
// types are ignored.
func ListenFor[E Event](fn func(E)) *Listener {
	return &Listener{fn: func(e Event) {
		if typed, ok := e.(E); ok {
			fn(typed)
		}
	}}
}

// Bus fans events out to listeners in registration order.
type Bus struct {
	mu   sync.Mutex
	subs map[EventName][]*Listener
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventName][]*Listener)}
}

// On registers l for name. Registering the same listener twice stores it
// twice.
func (b *Bus) On(name EventName, l *Listener) {
	if l == nil || l.fn == nil {
		return
	}
	b.mu.Lock()
	b.subs[name] = append(b.subs[name], l)
	b.mu.Unlock()
}

// Off removes the earliest registration of l for name and reports whether
// one was found.
func (b *Bus) Off(name EventName, l *Listener) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[name]
	for i, s := range subs {
		if s == l {
			b.subs[name] = append(subs[:i:i], subs[i+1:]...)
			if len(b.subs[name]) == 0 {
				delete(b.subs, name)
			}
			return true
		}
	}
	return false
}

// Count returns the number of registrations for name.
func (b *Bus) Count(name EventName) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[name])
}

// Emit delivers e to the listeners registered when Emit was called.
// A panicking listener is reported and the remaining listeners still run.
func (b *Bus) Emit(e Event) {
	if e == nil {
		return
	}
	name := e.EventName()
	b.mu.Lock()
	subs := make([]*Listener, len(b.subs[name]))
	copy(subs, b.subs[name])
	b.mu.Unlock()

	for _, l := range subs {
		b.invoke(name, l, e)
	}
}

func (b *Bus) invoke(name EventName, l *Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			errors.Report(&errors.BridgeError{
				Op:         "bridge.Bus.Emit",
				Kind:       errors.KindHandler,
				Event:      string(name),
				Err:        fmt.Errorf("%w: %v", errors.ErrHandlerFault, r),
				StackTrace: errors.CaptureStack(),
			})
		}
	}()
	l.fn(e)
}
