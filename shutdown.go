package connmgr

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type closer interface {
	Close(ctx context.Context) error
}

// signalWatcher closes a connection the first time a termination signal
// arrives. Errors during close are logged and swallowed so a failing cache
// never holds up shutdown.
type signalWatcher struct {
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	release  func()
}

func watchSignals(
	c closer,
	signals <-chan os.Signal,
	timeout time.Duration,
	logger *otelzap.Logger,
	release func()) *signalWatcher {

	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	if release == nil {
		release = func() {}
	}

	w := &signalWatcher{
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
		release: release,
	}

	go func() {
		defer close(w.done)
		select {
		case sig := <-signals:
			logger.Info(logPrefix+"Termination signal received, closing Redis connection",
				zap.Stringer("signal", sig))
			closeQuietly(c, timeout, logger)
		case <-w.stop:
		}
	}()

	return w
}

func closeQuietly(c closer, timeout time.Duration, logger *otelzap.Logger) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error(logPrefix+"Error closing connection on shutdown",
				zap.Error(fmt.Errorf("panic: %v", r)))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := c.Close(ctx); err != nil {
		logger.Ctx(ctx).Error(logPrefix+"Error closing connection on shutdown", zap.Error(err))
	}
}

// Stop unsubscribes from signals and waits for the watcher goroutine to exit.
// If a signal is being handled Stop waits for the close to finish.
func (w *signalWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stop)
		<-w.done
		w.release()
	})
}
