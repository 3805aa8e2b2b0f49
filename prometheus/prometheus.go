// Package prometheus exposes Prometheus metrics for a connmgr Handle: connection
// pool statistics and counts of connection lifecycle events.
package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	connmgr "github.com/jkratz55/redis-connmgr"
)

// InstrumentConnection registers the pool statistics collector and the
// lifecycle event counter for h.
//
// connmgr.ErrDisabled is returned when h is nil because caching is disabled.
func InstrumentConnection(h *connmgr.Handle, opts ...Option) error {
	if !h.Enabled() {
		return connmgr.ErrDisabled
	}

	conf := newConfig()
	for _, opt := range opts {
		opt(conf)
	}

	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace:   conf.namespace,
		Subsystem:   conf.subSystem,
		Name:        "events_total",
		Help:        "Count of connection lifecycle events by kind",
		ConstLabels: conf.globalLabels,
	}, []string{"event"})

	poolStats := newConnPoolStatsCollector(conf, h.Client())

	err := multierr.Combine(
		conf.registerer.Register(events),
		conf.registerer.Register(poolStats))
	if err != nil {
		return err
	}

	h.AddListener(&eventCounter{events: events})
	return nil
}

type eventCounter struct {
	events *prometheus.CounterVec
}

func (e *eventCounter) OnEvent(ev connmgr.Event) {
	e.events.WithLabelValues(ev.Kind.String()).Inc()
}
