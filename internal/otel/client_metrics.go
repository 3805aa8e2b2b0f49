package otel

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ClientMetricsHook is a go-redis Hook recording dial and command latencies and
// failures.
type ClientMetricsHook struct {
	attributes  []attribute.KeyValue
	commandTime metric.Float64Histogram
	dialTime    metric.Float64Histogram
	dialErrors  metric.Int64Counter
	errors      metric.Int64Counter
	cancels     metric.Int64Counter
}

func NewClientMetricsHook(meter metric.Meter, attrs []attribute.KeyValue) (*ClientMetricsHook, error) {
	commandTime, err := meter.Float64Histogram("redis.client.command.duration",
		metric.WithDescription("Time taken to execute a command or pipeline, including retries"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	dialTime, err := meter.Float64Histogram("redis.client.dial.duration",
		metric.WithDescription("Time taken to establish a new connection"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	dialErrors, err := meter.Int64Counter("redis.client.dial.errors",
		metric.WithDescription("Count of failed attempts to establish a connection"))
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter("redis.client.errors",
		metric.WithDescription("Count of errors returned by the client"))
	if err != nil {
		return nil, err
	}

	cancelCounter, err := meter.Int64Counter("redis.client.canceled_operations",
		metric.WithDescription("Count of instances where an operation was cancelled in flight by the caller"))
	if err != nil {
		return nil, err
	}

	return &ClientMetricsHook{
		attributes:  attrs,
		commandTime: commandTime,
		dialTime:    dialTime,
		dialErrors:  dialErrors,
		errors:      errCounter,
		cancels:     cancelCounter,
	}, nil
}

func (c *ClientMetricsHook) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		start := time.Now()

		conn, err := next(ctx, network, addr)

		dur := time.Since(start).Seconds()

		attrs := c.withAttributes(attribute.String("addr", addr))
		c.dialTime.Record(ctx, dur, metric.WithAttributes(attrs...))

		if errors.Is(err, context.Canceled) {
			c.cancels.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if !ignoreError(err) {
			c.dialErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
		}

		return conn, err
	}
}

func (c *ClientMetricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()

		err := next(ctx, cmd)

		c.record(ctx, time.Since(start), err, attribute.String("command", cmd.Name()))
		return err
	}
}

func (c *ClientMetricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()

		err := next(ctx, cmds)

		c.record(ctx, time.Since(start), err, attribute.String("command", "pipeline"))
		return err
	}
}

func (c *ClientMetricsHook) record(ctx context.Context, dur time.Duration, err error, attr attribute.KeyValue) {
	attrs := c.withAttributes(attr)
	c.commandTime.Record(ctx, dur.Seconds(), metric.WithAttributes(attrs...))

	if errors.Is(err, context.Canceled) {
		c.cancels.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
	if !ignoreError(err) {
		c.errors.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

func (c *ClientMetricsHook) withAttributes(extra ...attribute.KeyValue) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(c.attributes)+len(extra))
	attrs = append(attrs, c.attributes...)
	return append(attrs, extra...)
}

// ignoreError returns a boolean indicating if an error can be ignored for the
// purposes of metrics. Errors such as context.Canceled and Nil from Redis
// are not errors in the sense they are failures.
func ignoreError(err error) bool {
	if err == nil {
		return true
	}

	if errors.Is(err, context.Canceled) {
		return true
	}

	if errors.Is(err, redis.Nil) {
		return true
	}

	return false
}
