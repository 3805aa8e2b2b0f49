package connmgr

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"

	"github.com/redis/go-redis/v9"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/jkratz55/redis-connmgr/internal/logging"
)

const disabledMessage = "Missing Redis credentials. Redis cache will be disabled."

// Registry holds the process-wide Handle and guards its initialization so that
// only one Redis client is ever created, no matter how many times Initialize
// runs.
//
// Most applications use the package level Initialize, Default, and Client
// functions, which share a default Registry.
type Registry struct {
	mu                  sync.Mutex
	initialized         bool
	handle              *Handle
	listenersRegistered bool
	shutdownRegistered  bool
	watcher             *signalWatcher
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{}
}

var defaultRegistry = NewRegistry()

// Initialize initializes the default Registry. See Registry.Initialize.
func Initialize(opts ...Option) *Handle {
	return defaultRegistry.Initialize(opts...)
}

// Default returns the Handle published by the default Registry. It is nil when
// caching is disabled or Initialize hasn't been called.
func Default() *Handle {
	return defaultRegistry.Handle()
}

// Client returns the go-redis client of the default Registry, or nil when
// caching is disabled. Callers must check for nil before use.
func Client() *redis.Client {
	return defaultRegistry.Handle().Client()
}

// Shutdown closes the connection of the default Registry. See
// Registry.Shutdown.
func Shutdown(ctx context.Context) error {
	return defaultRegistry.Shutdown(ctx)
}

// Initialize builds the Handle the first time it is called and returns the same
// Handle on every later call; options passed to later calls are ignored.
//
// When the host, port, or password is missing a single warning is logged, no
// connection is attempted, and nil is returned. Otherwise the client connects
// eagerly in the background. Connection failures never surface here, they are
// delivered to Listeners as EventError and logged.
func (r *Registry) Initialize(opts ...Option) *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return r.handle
	}
	r.initialized = true

	o := newOptions(opts)

	var settings Settings
	cfg, err := o.loadConfig()
	if err != nil {
		settings = Invalid{Err: err}
	} else {
		settings = cfg.Validate()
	}

	var logger *otelzap.Logger
	if o.logger != nil {
		logger = otelzap.New(o.logger)
	} else {
		logger = defaultLogger(cfg)
	}

	switch s := settings.(type) {
	case Invalid:
		fields := []zap.Field{zap.Strings("missing", s.Missing)}
		if s.Err != nil {
			fields = append(fields, zap.Error(s.Err))
		}
		logger.Warn(logPrefix+disabledMessage, fields...)
	case Valid:
		h := newHandle(s.Config, o)
		r.registerListeners(h, logger, o.listeners)
		r.registerShutdown(h, logger, o)
		h.start()
		r.handle = h
	}

	return r.handle
}

// Handle returns the published Handle, nil when caching is disabled.
func (r *Registry) Handle() *Handle {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.handle
}

// Shutdown stops watching for termination signals and closes the Handle,
// waiting at most until ctx is done.
func (r *Registry) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	watcher, h := r.watcher, r.handle
	r.mu.Unlock()

	if watcher != nil {
		watcher.Stop()
	}
	if err := h.Close(ctx); err != nil && !errors.Is(err, ErrClosed) {
		return err
	}
	return nil
}

func (r *Registry) registerListeners(h *Handle, logger *otelzap.Logger, listeners []Listener) {
	if r.listenersRegistered {
		return
	}
	h.AddListener(LogListener(logger))
	for _, l := range listeners {
		h.AddListener(l)
	}
	r.listenersRegistered = true
}

func (r *Registry) registerShutdown(h *Handle, logger *otelzap.Logger, o *options) {
	if r.shutdownRegistered || !o.shutdownHook {
		return
	}

	signals, release := o.signalCh, func() {}
	if signals == nil {
		ch := make(chan os.Signal, 1)
		signal.Notify(ch, o.signals...)
		signals, release = ch, func() { signal.Stop(ch) }
	}

	r.watcher = watchSignals(h, signals, h.cfg.ShutdownTimeout, logger, release)
	r.shutdownRegistered = true
}

func defaultLogger(cfg Config) *otelzap.Logger {
	logger, err := logging.NewLogger(
		logging.WithLogLevel(cfg.LogLevel),
		logging.WithDevelopment(cfg.Environment.Verbose()))
	if err != nil {
		return otelzap.New(zap.L())
	}
	return logger.Logger
}
