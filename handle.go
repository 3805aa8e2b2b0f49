package connmgr

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// Handle owns the lifecycle of the single Redis client shared by the process.
//
// A nil *Handle is the explicit marker for disabled caching. Every method is
// safe to call on a nil Handle: Enabled reports false, Client returns nil and
// Close does nothing.
type Handle struct {
	listenersMixin

	client  *redis.Client
	cfg     Config
	policy  Policy
	verbose bool

	ready     chan struct{}
	readyOnce sync.Once

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	// failures counts consecutive reconnect-worthy command failures.
	failures atomic.Int32
	// reconnectAt holds the unix nanos before which no connection is dialed.
	reconnectAt atomic.Int64
	// announce is set while the next readiness check should emit EventReady.
	announce atomic.Bool

	started   atomic.Bool
	closed    atomic.Bool
	closeOnce sync.Once
}

func newHandle(cfg Config, o *options) *Handle {
	h := newLifecycle(cfg, o.policy)

	opts := &redis.Options{
		Addr:      cfg.Addr(),
		Username:  cfg.Username,
		Password:  cfg.Password,
		DB:        cfg.Database,
		TLSConfig: cfg.TLSConfig(),
		OnConnect: h.onConnect,
	}
	h.policy.apply(opts)

	h.client = o.newClient(opts)
	h.client.AddHook(&lifecycleHook{handle: h})
	return h
}

// newLifecycle returns a Handle without a client.
func newLifecycle(cfg Config, policy Policy) *Handle {
	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{
		cfg:     cfg,
		policy:  policy,
		verbose: cfg.Environment.Verbose(),
		ready:   make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	h.announce.Store(true)
	return h
}

// start connects eagerly in the background. Failures are delivered as events
// and retried with the Policy's reconnect delay until the client is ready or
// the Handle is closed.
func (h *Handle) start() {
	h.started.Store(true)
	go h.connect()
}

func (h *Handle) connect() {
	defer close(h.done)

	addr := h.cfg.Addr()
	for attempt := 1; ; attempt++ {
		err := h.client.Ping(h.ctx).Err()
		if err == nil {
			h.setReady()
			return
		}
		if h.ctx.Err() != nil {
			return
		}

		h.emitError(h.ctx, addr, err, true)

		delay := h.policy.ReconnectDelay(attempt)
		h.emit(Event{
			Kind:    EventReconnecting,
			Addr:    addr,
			Attempt: attempt,
			Delay:   delay,
			ctx:     h.ctx,
		})
		if !sleep(h.ctx, delay) {
			return
		}
	}
}

// onConnect runs the readiness check on every new connection before go-redis
// hands it out. EventReady is only emitted for the first ready connection and
// for the first one after a reconnect, not each time the pool grows.
func (h *Handle) onConnect(ctx context.Context, cn *redis.Conn) error {
	if err := cn.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("readiness check: %w", err)
	}
	if h.announce.CompareAndSwap(true, false) {
		h.emit(Event{Kind: EventReady, Addr: h.cfg.Addr(), ctx: ctx})
	}
	h.setReady()
	return nil
}

// scheduleReconnect holds back new connections for delay and re-arms the
// ready announcement.
func (h *Handle) scheduleReconnect(delay time.Duration) {
	h.reconnectAt.Store(time.Now().Add(delay).UnixNano())
	h.announce.Store(true)
}

// reconnectWait returns how long a dial has to wait for a scheduled reconnect.
func (h *Handle) reconnectWait() time.Duration {
	return time.Until(time.Unix(0, h.reconnectAt.Load()))
}

func (h *Handle) setReady() {
	h.readyOnce.Do(func() {
		close(h.ready)
	})
}

func (h *Handle) isReady() bool {
	select {
	case <-h.ready:
		return true
	default:
		return false
	}
}

func (h *Handle) isClosed() bool {
	return h.closed.Load()
}

func (h *Handle) emitError(ctx context.Context, addr string, err error, reconnect bool) {
	h.emit(Event{
		Kind: EventError,
		Addr: addr,
		Err: withStack(ConnectionError{
			Addr:      addr,
			reconnect: reconnect,
			cause:     err,
		}, h.verbose),
		ctx: ctx,
	})
}

// Enabled reports whether caching is enabled, meaning the Handle is backed by a
// live client.
func (h *Handle) Enabled() bool {
	return h != nil && h.client != nil
}

// Client returns the underlying go-redis client, or nil when caching is
// disabled. The client is safe for concurrent use.
func (h *Handle) Client() *redis.Client {
	if h == nil {
		return nil
	}
	return h.client
}

// Config returns the configuration the Handle was built from.
func (h *Handle) Config() Config {
	if h == nil {
		return Config{}
	}
	return h.cfg
}

// AddListener registers l to receive lifecycle events. Listeners added after
// the Handle was published only observe later events.
func (h *Handle) AddListener(l Listener) {
	if h == nil {
		return
	}
	h.listenersMixin.AddListener(l)
}

// Ready returns a channel that is closed once the first readiness check
// succeeds. A nil Handle returns a nil channel, which blocks forever.
func (h *Handle) Ready() <-chan struct{} {
	if h == nil {
		return nil
	}
	return h.ready
}

// WaitReady blocks until the client is ready, ctx is done, or the Handle is
// closed.
func (h *Handle) WaitReady(ctx context.Context) error {
	if h == nil {
		return ErrDisabled
	}
	if h.isClosed() {
		return ErrClosed
	}
	select {
	case <-h.ready:
		return nil
	case <-h.ctx.Done():
		return ErrClosed
	case <-ctx.Done():
		return fmt.Errorf("wait for redis readiness: %w", ctx.Err())
	}
}

// Close stops the background connect loop and closes the client. Close waits
// at most until ctx is done. Only the first call closes the client, later
// calls return ErrClosed.
func (h *Handle) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}

	err := ErrClosed
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.cancel()

		res := make(chan error, 1)
		go func() {
			if h.started.Load() {
				<-h.done
			}
			if h.client == nil {
				res <- nil
				return
			}
			res <- h.client.Close()
		}()

		select {
		case err = <-res:
		case <-ctx.Done():
			err = fmt.Errorf("close redis connection: %w", ctx.Err())
		}
	})
	return err
}

func (h *Handle) String() string {
	if h == nil {
		return "redis(disabled)"
	}
	return fmt.Sprintf("redis(%s/%d)", h.cfg.Addr(), h.cfg.Database)
}
