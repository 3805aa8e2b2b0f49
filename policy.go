package connmgr

import (
	"errors"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultMaxRetries      = 3
	reconnectDelayStep     = 50 * time.Millisecond
	maxReconnectDelay      = 2000 * time.Millisecond
	minCommandRetryBackoff = 50 * time.Millisecond
)

var reconnectErrors = []string{"READONLY", "ECONNRESET"}

// Policy controls how commands are retried and how the connection is
// re-established after failures.
type Policy struct {
	// MaxRetries is the number of times a command is retried before the error
	// is returned to the caller.
	MaxRetries int
}

// DefaultPolicy returns the Policy used by Initialize.
func DefaultPolicy() Policy {
	return Policy{MaxRetries: defaultMaxRetries}
}

// ReconnectDelay returns how long to wait before reconnect attempt n (1-based).
// The delay grows by 50ms per attempt and is capped at 2s.
func (p Policy) ReconnectDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := time.Duration(attempt) * reconnectDelayStep
	if delay > maxReconnectDelay || delay <= 0 {
		return maxReconnectDelay
	}
	return delay
}

// ShouldReconnect reports whether err warrants dropping the connection and
// reconnecting. Only READONLY replies and connection resets qualify, every
// other error is returned as is.
func (p Policy) ShouldReconnect(err error) bool {
	if err == nil || errors.Is(err, redis.Nil) {
		return false
	}
	if errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	msg := err.Error()
	for _, code := range reconnectErrors {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

func (p Policy) apply(opts *redis.Options) {
	opts.MaxRetries = p.MaxRetries
	opts.MinRetryBackoff = minCommandRetryBackoff
	opts.MaxRetryBackoff = maxReconnectDelay
}
