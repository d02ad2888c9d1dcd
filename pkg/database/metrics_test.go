package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolStatsCollector_Describe(t *testing.T) {
	var c prometheus.Collector = NewPoolStatsCollector(nil, "cart")

	ch := make(chan *prometheus.Desc, 20)
	c.Describe(ch)
	close(ch)

	var all strings.Builder
	n := 0
	for d := range ch {
		all.WriteString(d.String())
		n++
	}
	assert.Equal(t, 12, n)

	for _, name := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_total_connections",
		"db_pool_max_connections",
		"db_pool_acquire_count_total",
		"db_pool_acquire_duration_seconds_total",
		"db_pool_new_connections_total",
		"db_pool_max_idle_destroy_total",
	} {
		assert.Contains(t, all.String(), `"`+name+`"`)
	}
}

func TestRegisterPoolMetrics_Idempotent(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, RegisterPoolMetrics(reg, nil, "cart"))
	require.NoError(t, RegisterPoolMetrics(reg, nil, "cart"))
}
