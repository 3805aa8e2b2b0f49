package connmgr

import (
	"context"
	"sync"
	"time"
)

// EventKind identifies a connection lifecycle event.
type EventKind int

const (
	EventConnect EventKind = iota + 1
	EventReady
	EventError
	EventClose
	EventReconnecting
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "connect"
	case EventReady:
		return "ready"
	case EventError:
		return "error"
	case EventClose:
		return "close"
	case EventReconnecting:
		return "reconnecting"
	default:
		return "unknown"
	}
}

// Event describes a change in the state of the connection to Redis.
//
// Err is only set for EventError. Attempt and Delay are only set for
// EventReconnecting.
type Event struct {
	Kind    EventKind
	Addr    string
	Err     error
	Attempt int
	Delay   time.Duration

	ctx context.Context
}

// Context returns the context of the operation that produced the event, such
// as the command or dial that failed. It carries the active trace span.
func (e Event) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

// Listener receives connection lifecycle events. OnEvent is called
// synchronously on the goroutine that observed the event and must not block.
type Listener interface {
	OnEvent(e Event)
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(e Event)

func (fn ListenerFunc) OnEvent(e Event) {
	fn(e)
}

// listenersMixin fans events out to every registered Listener.
type listenersMixin struct {
	mu        sync.RWMutex
	listeners []Listener
}

func (lm *listenersMixin) AddListener(l Listener) {
	if l == nil {
		return
	}
	lm.mu.Lock()
	lm.listeners = append(lm.listeners, l)
	lm.mu.Unlock()
}

func (lm *listenersMixin) emit(e Event) {
	lm.mu.RLock()
	listeners := lm.listeners
	lm.mu.RUnlock()

	for _, l := range listeners {
		l.OnEvent(e)
	}
}
