package connmgr

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
)

var errNoSyscallConn = errors.New("connection does not expose a raw network connection")

// lifecycleHook is a go-redis Hook translating connection and command outcomes
// into lifecycle events for the owning Handle.
type lifecycleHook struct {
	handle *Handle
}

var _ redis.Hook = (*lifecycleHook)(nil)

func (l *lifecycleHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		if wait := l.handle.reconnectWait(); wait > 0 {
			if !sleep(ctx, wait) {
				return nil, ctx.Err()
			}
		}

		conn, err := next(ctx, network, addr)
		if err != nil {
			// Failures before the first ready connection are reported by the
			// connect loop.
			if l.handle.isReady() {
				l.handle.emitError(ctx, addr, err, true)
			}
			return nil, err
		}

		l.handle.emit(Event{Kind: EventConnect, Addr: addr, ctx: ctx})

		return &observedConn{
			Conn: conn,
			onClose: func() {
				l.handle.emit(Event{Kind: EventClose, Addr: addr})
			},
		}, nil
	}
}

// ProcessHook sees the outcome of a command after go-redis has run its own
// retries, bounded by Policy.MaxRetries. The command is never sent again here.
func (l *lifecycleHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		l.observe(ctx, err)
		return err
	}
}

func (l *lifecycleHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		l.observe(ctx, err)
		return err
	}
}

// observe reports reconnect-worthy failures and schedules the next dial after
// the Policy's reconnect delay. go-redis has already discarded the broken
// connection. A reply from the server resets the attempt count.
func (l *lifecycleHook) observe(ctx context.Context, err error) {
	h := l.handle
	if !h.isReady() || h.isClosed() {
		return
	}
	if err == nil || errors.Is(err, redis.Nil) {
		h.failures.Store(0)
		return
	}
	if !h.policy.ShouldReconnect(err) {
		return
	}

	addr := h.cfg.Addr()
	h.emitError(ctx, addr, err, true)

	attempt := int(h.failures.Add(1))
	delay := h.policy.ReconnectDelay(attempt)
	h.scheduleReconnect(delay)
	h.emit(Event{
		Kind:    EventReconnecting,
		Addr:    addr,
		Attempt: attempt,
		Delay:   delay,
		ctx:     ctx,
	})
}

// observedConn reports when go-redis closes a pooled connection.
type observedConn struct {
	net.Conn
	once    sync.Once
	onClose func()
}

func (c *observedConn) Close() error {
	err := c.Conn.Close()
	c.once.Do(c.onClose)
	return err
}

// SyscallConn exposes the raw connection so go-redis can keep health checking
// pooled connections.
func (c *observedConn) SyscallConn() (syscall.RawConn, error) {
	conn := c.Conn
	if tlsConn, ok := conn.(*tls.Conn); ok {
		conn = tlsConn.NetConn()
	}
	if sc, ok := conn.(syscall.Conn); ok {
		return sc.SyscallConn()
	}
	return nil, errNoSyscallConn
}

// sleep waits for d and returns false if ctx is done first.
func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
