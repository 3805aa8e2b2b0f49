package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

type connPoolStatReporter interface {
	PoolStats() *redis.PoolStats
	Options() *redis.Options
}

type poolMetric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(stats *redis.PoolStats) float64
}

// connPoolStatsCollector reports the go-redis pool statistics of the managed
// client at scrape time.
type connPoolStatsCollector struct {
	reporter connPoolStatReporter
	metrics  []poolMetric
}

func newConnPoolStatsCollector(conf *config, reporter connPoolStatReporter) *connPoolStatsCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(
			prometheus.BuildFQName(conf.namespace, conf.subSystem, name),
			help,
			[]string{"addr"},
			conf.globalLabels)
	}

	return &connPoolStatsCollector{
		reporter: reporter,
		metrics: []poolMetric{
			{
				desc:      desc("pool_hit_total", "Number of times an idle connection was reused from the pool"),
				valueType: prometheus.CounterValue,
				value:     func(s *redis.PoolStats) float64 { return float64(s.Hits) },
			},
			{
				desc:      desc("pool_miss_total", "Number of times a new connection had to be dialed"),
				valueType: prometheus.CounterValue,
				value:     func(s *redis.PoolStats) float64 { return float64(s.Misses) },
			},
			{
				desc:      desc("pool_timeout_total", "Number of times waiting for a pooled connection timed out"),
				valueType: prometheus.CounterValue,
				value:     func(s *redis.PoolStats) float64 { return float64(s.Timeouts) },
			},
			{
				desc:      desc("pool_conn_total", "Current number of open connections"),
				valueType: prometheus.GaugeValue,
				value:     func(s *redis.PoolStats) float64 { return float64(s.TotalConns) },
			},
			{
				desc:      desc("pool_conn_idle", "Current number of idle connections"),
				valueType: prometheus.GaugeValue,
				value:     func(s *redis.PoolStats) float64 { return float64(s.IdleConns) },
			},
			{
				desc:      desc("pool_conn_stale_total", "Number of connections removed from the pool because they were stale"),
				valueType: prometheus.CounterValue,
				value:     func(s *redis.PoolStats) float64 { return float64(s.StaleConns) },
			},
		},
	}
}

func (c *connPoolStatsCollector) Describe(descs chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		descs <- m.desc
	}
}

func (c *connPoolStatsCollector) Collect(metrics chan<- prometheus.Metric) {
	addr := c.reporter.Options().Addr
	stats := c.reporter.PoolStats()
	for _, m := range c.metrics {
		metrics <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(stats), addr)
	}
}
