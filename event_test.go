package connmgr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventKind_String(t *testing.T) {
	assert.Equal(t, "connect", EventConnect.String())
	assert.Equal(t, "ready", EventReady.String())
	assert.Equal(t, "error", EventError.String())
	assert.Equal(t, "close", EventClose.String())
	assert.Equal(t, "reconnecting", EventReconnecting.String())
	assert.Equal(t, "unknown", EventKind(0).String())
}

func TestListenersMixin(t *testing.T) {
	var lm listenersMixin
	var order []string

	lm.AddListener(ListenerFunc(func(e Event) {
		order = append(order, "first:"+e.Kind.String())
	}))
	lm.AddListener(nil)
	lm.AddListener(ListenerFunc(func(e Event) {
		order = append(order, "second:"+e.Kind.String())
	}))

	lm.emit(Event{Kind: EventConnect})
	lm.emit(Event{Kind: EventReady})

	assert.Equal(t, []string{
		"first:connect",
		"second:connect",
		"first:ready",
		"second:ready",
	}, order)
}
