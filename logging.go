package connmgr

import (
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

const logPrefix = "[Redis] "

// LogListener returns a Listener that writes every lifecycle event to logger.
// Errors are logged and never escalate beyond the log. Entries are written
// with the event's context, so errors raised by a traced command are also
// recorded on its span.
//
// Connect and close are logged for every pooled connection go-redis opens or
// discards. Ready is logged once when the client first becomes ready and once
// after every reconnect.
func LogListener(logger *otelzap.Logger) Listener {
	if logger == nil {
		logger = otelzap.New(zap.NewNop())
	}
	return ListenerFunc(func(e Event) {
		log := logger.Ctx(e.Context())
		addr := zap.String("addr", e.Addr)
		switch e.Kind {
		case EventConnect:
			log.Info(logPrefix+"Connected to Redis", addr)
		case EventReady:
			log.Info(logPrefix+"Redis client ready", addr)
		case EventError:
			log.Error(logPrefix+"Redis error", addr,
				zap.Bool("reconnect", IsReconnectable(e.Err)),
				zap.Error(e.Err))
		case EventClose:
			log.Warn(logPrefix+"Redis connection closed", addr)
		case EventReconnecting:
			log.Info(logPrefix+"Reconnecting to Redis...", addr,
				zap.Int("attempt", e.Attempt),
				zap.Duration("delay", e.Delay))
		}
	})
}
