package connmgr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsReconnectable(t *testing.T) {
	plainErr := errors.New("connection refused")
	assert.False(t, IsReconnectable(plainErr))

	reconnectErr := ConnectionError{
		Addr:      "localhost:6379",
		reconnect: true,
		cause:     plainErr,
	}
	assert.True(t, IsReconnectable(reconnectErr))
	assert.True(t, IsReconnectable(fmt.Errorf("wrapped: %w", reconnectErr)))
	assert.True(t, IsReconnectable(withStack(reconnectErr, true)))
	assert.ErrorIs(t, reconnectErr, plainErr)
	assert.Equal(t, "redis localhost:6379: connection refused", reconnectErr.Error())

	terminalErr := ConnectionError{
		Addr:  "localhost:6379",
		cause: plainErr,
	}
	assert.False(t, IsReconnectable(terminalErr))
}

func TestWithStack(t *testing.T) {
	err := errors.New("boom")
	assert.Same(t, err, withStack(err, false))
	assert.Nil(t, withStack(nil, true))

	verbose := withStack(err, true)
	assert.ErrorIs(t, verbose, err)
	assert.Contains(t, fmt.Sprintf("%+v", verbose), "TestWithStack")
}
