package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
)

type config struct {
	namespace    string
	subSystem    string
	globalLabels map[string]string
	registerer   prometheus.Registerer
}

func newConfig() *config {
	return &config{
		namespace:    "redis",
		subSystem:    "conn",
		globalLabels: make(map[string]string),
		registerer:   prometheus.DefaultRegisterer,
	}
}

// Option customizes the metrics registered by InstrumentConnection.
type Option func(c *config)

// WithNamespace sets the metric namespace. Defaults to "redis".
func WithNamespace(namespace string) Option {
	return func(c *config) {
		c.namespace = namespace
	}
}

// WithSubsystem sets the metric subsystem. Defaults to "conn".
func WithSubsystem(subSystem string) Option {
	return func(c *config) {
		c.subSystem = subSystem
	}
}

// WithConstLabels adds labels with fixed values to every metric, such as the
// name of the service owning the connection.
func WithConstLabels(labels map[string]string) Option {
	return func(c *config) {
		c.globalLabels = labels
	}
}

// WithRegisterer registers the metrics with reg instead of the default
// Prometheus registerer.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *config) {
		c.registerer = reg
	}
}
