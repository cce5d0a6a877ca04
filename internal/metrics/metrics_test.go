package metrics_test

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"github.com/ayoubachak/marksim/internal/metrics"
)

func TestNewRegistersAllCollectors(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	require.NotNil(t, m)

	families, err := registry.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestCounterAndGaugeValueHelpers(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	m.TradesExecuted.Inc()
	m.TradesExecuted.Inc()
	require.Equal(t, float64(2), metrics.CounterValue(m.TradesExecuted))

	m.BookVersion.Set(42)
	require.Equal(t, float64(42), metrics.GaugeValue(m.BookVersion))
}
