package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type config struct {
	attrs          []attribute.KeyValue
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
	tracing        bool
}

func newConfig(opts ...Option) *config {
	conf := &config{
		attrs:          []attribute.KeyValue{},
		meterProvider:  otel.GetMeterProvider(),
		tracerProvider: otel.GetTracerProvider(),
		tracing:        true,
	}

	for _, opt := range opts {
		opt.apply(conf)
	}

	return conf
}

// Option configures the OpenTelemetry instrumentation.
type Option interface {
	apply(conf *config)
}

type option func(conf *config)

func (fn option) apply(conf *config) {
	fn(conf)
}

// WithAttributes adds attributes to every recorded measurement.
func WithAttributes(attrs ...attribute.KeyValue) Option {
	return option(func(conf *config) {
		conf.attrs = attrs
	})
}

// WithMeterProvider sets the MeterProvider. Defaults to the global provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return option(func(conf *config) {
		conf.meterProvider = mp
	})
}

// WithTracerProvider sets the TracerProvider used for command spans. Defaults
// to the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return option(func(conf *config) {
		conf.tracerProvider = tp
	})
}

// WithoutTracing only records metrics.
func WithoutTracing() Option {
	return option(func(conf *config) {
		conf.tracing = false
	})
}
