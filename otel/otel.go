// Package otel instruments a connmgr Handle with OpenTelemetry metrics and
// tracing.
package otel

import (
	"context"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	connmgr "github.com/jkratz55/redis-connmgr"
	internalotel "github.com/jkratz55/redis-connmgr/internal/otel"
)

const name = "github.com/jkratz55/redis-connmgr/otel"

// InstrumentConnection adds command and dial metrics, a lifecycle event
// counter, and command tracing to the client managed by h.
//
// connmgr.ErrDisabled is returned when h is nil because caching is disabled.
func InstrumentConnection(h *connmgr.Handle, opts ...Option) error {
	if !h.Enabled() {
		return connmgr.ErrDisabled
	}

	conf := newConfig(opts...)
	meter := conf.meterProvider.Meter(name,
		metric.WithInstrumentationVersion("semver:"+connmgr.Version()))

	events, err := meter.Int64Counter("redis.connection.events",
		metric.WithDescription("Count of connection lifecycle events by kind"))
	if err != nil {
		return err
	}

	hook, err := internalotel.NewClientMetricsHook(meter, conf.attrs)
	if err != nil {
		return err
	}

	rdb := h.Client()
	if conf.tracing {
		err := redisotel.InstrumentTracing(rdb,
			redisotel.WithTracerProvider(conf.tracerProvider),
			redisotel.WithAttributes(conf.attrs...))
		if err != nil {
			return err
		}
	}
	rdb.AddHook(hook)

	h.AddListener(&eventCounter{
		attrs:  conf.attrs,
		events: events,
	})
	return nil
}

type eventCounter struct {
	attrs  []attribute.KeyValue
	events metric.Int64Counter
}

func (e *eventCounter) OnEvent(ev connmgr.Event) {
	attrs := make([]attribute.KeyValue, 0, len(e.attrs)+1)
	attrs = append(attrs, e.attrs...)
	attrs = append(attrs, attribute.String("event", ev.Kind.String()))

	e.events.Add(context.Background(), 1, metric.WithAttributes(attrs...))
}
