package connmgr

import (
	"errors"

	pkgerrors "github.com/pkg/errors"
)

var (
	// ErrDisabled is returned by operations that require a connection when
	// caching is disabled because the configuration is incomplete.
	ErrDisabled = errors.New("redis cache disabled")

	// ErrClosed is returned when closing a Handle that has already been closed.
	ErrClosed = errors.New("redis connection already closed")
)

type reconnectable interface {
	Reconnectable() bool
}

// IsReconnectable accepts an error delivered in an Event and reports whether it
// triggered a reconnect.
func IsReconnectable(err error) bool {
	var re reconnectable
	return errors.As(err, &re) && re.Reconnectable()
}

// ConnectionError is delivered with EventError. It records whether the failure
// caused the connection to be re-established.
type ConnectionError struct {
	Addr      string
	reconnect bool
	cause     error
}

func (e ConnectionError) Reconnectable() bool {
	return e.reconnect
}

func (e ConnectionError) Error() string {
	return "redis " + e.Addr + ": " + e.cause.Error()
}

func (e ConnectionError) Unwrap() error {
	return e.cause
}

// withStack annotates err with the current stack trace when verbose is set.
// zap renders the trace under the errorVerbose field.
func withStack(err error, verbose bool) error {
	if err == nil || !verbose {
		return err
	}
	return pkgerrors.WithStack(err)
}
