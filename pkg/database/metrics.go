package database

import (
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
)

// poolMetric maps one pgxpool.Stat reading onto a Prometheus series.
type poolMetric struct {
	desc  *prometheus.Desc
	kind  prometheus.ValueType
	value func(*pgxpool.Stat) float64
}

// PoolStatsCollector exports pgxpool statistics, labelled by service. It
// reads the pool on every scrape, so nothing is cached between scrapes.
type PoolStatsCollector struct {
	pool    *pgxpool.Pool
	service string
	metrics []poolMetric
}

func NewPoolStatsCollector(pool *pgxpool.Pool, service string) *PoolStatsCollector {
	gauge := func(name, help string, fn func(*pgxpool.Stat) float64) poolMetric {
		return poolMetric{prometheus.NewDesc("db_pool_"+name, help, []string{"service"}, nil), prometheus.GaugeValue, fn}
	}
	counter := func(name, help string, fn func(*pgxpool.Stat) float64) poolMetric {
		return poolMetric{prometheus.NewDesc("db_pool_"+name, help, []string{"service"}, nil), prometheus.CounterValue, fn}
	}

	return &PoolStatsCollector{
		pool:    pool,
		service: service,
		metrics: []poolMetric{
			gauge("acquired_connections", "Connections currently checked out of the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquiredConns()) }),
			gauge("idle_connections", "Connections currently idle in the pool.",
				func(s *pgxpool.Stat) float64 { return float64(s.IdleConns()) }),
			gauge("total_connections", "Connections currently open.",
				func(s *pgxpool.Stat) float64 { return float64(s.TotalConns()) }),
			gauge("max_connections", "Configured pool size.",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxConns()) }),
			gauge("constructing_connections", "Connections currently being dialed.",
				func(s *pgxpool.Stat) float64 { return float64(s.ConstructingConns()) }),
			counter("acquire_count_total", "Successful acquires.",
				func(s *pgxpool.Stat) float64 { return float64(s.AcquireCount()) }),
			counter("acquire_duration_seconds_total", "Time spent waiting in Acquire.",
				func(s *pgxpool.Stat) float64 { return s.AcquireDuration().Seconds() }),
			counter("canceled_acquire_count_total", "Acquires abandoned because the context ended.",
				func(s *pgxpool.Stat) float64 { return float64(s.CanceledAcquireCount()) }),
			counter("empty_acquire_count_total", "Acquires that had to wait for a free connection.",
				func(s *pgxpool.Stat) float64 { return float64(s.EmptyAcquireCount()) }),
			counter("new_connections_total", "Connections opened since start.",
				func(s *pgxpool.Stat) float64 { return float64(s.NewConnsCount()) }),
			counter("max_lifetime_destroy_total", "Connections closed for exceeding MaxConnLifetime.",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxLifetimeDestroyCount()) }),
			counter("max_idle_destroy_total", "Connections closed for exceeding MaxConnIdleTime.",
				func(s *pgxpool.Stat) float64 { return float64(s.MaxIdleDestroyCount()) }),
		},
	}
}

func (c *PoolStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range c.metrics {
		ch <- m.desc
	}
}

func (c *PoolStatsCollector) Collect(ch chan<- prometheus.Metric) {
	stat := c.pool.Stat()
	for _, m := range c.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.kind, m.value(stat), c.service)
	}
}

// RegisterPoolMetrics registers a collector for pool on reg, falling back
// to the default registerer when reg is nil. Registering the same service
// twice is not an error.
func RegisterPoolMetrics(reg prometheus.Registerer, pool *pgxpool.Pool, service string) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	err := reg.Register(NewPoolStatsCollector(pool, service))
	var already prometheus.AlreadyRegisteredError
	if errors.As(err, &already) {
		return nil
	}
	return err
}
