package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/metrics"
	"github.com/tywin1104/mc-dashboard/types"
)

func TestObserve(t *testing.T) {
	reference := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	requests := []types.WhitelistRequest{
		{Status: types.StatusApproved, Timestamp: reference.Add(-2 * time.Hour), ProcessedTimestamp: reference.Add(-time.Hour)},
		{Status: types.StatusPending, Timestamp: reference.Add(-50 * time.Hour)},
		{Status: types.StatusPending, Timestamp: reference.Add(-time.Hour)},
	}
	report, err := aggregate.NewReport(requests, aggregate.Options{Reference: reference, WindowDays: 3})
	require.NoError(t, err)

	metrics.Observe(report)

	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.RequestsByStatus.WithLabelValues("Pending")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.RequestsByStatus.WithLabelValues("Approved")))
	assert.Equal(t, float64(0), testutil.ToFloat64(metrics.RequestsByStatus.WithLabelValues("Unknown")))
	assert.Equal(t, float64(60), testutil.ToFloat64(metrics.AverageResponseMinutes))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.OvertimeRequests))
	assert.Equal(t, float64(2), testutil.ToFloat64(metrics.DailySubmissions.WithLabelValues("0")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.DailySubmissions.WithLabelValues("2")))
	assert.Equal(t, 3, testutil.CollectAndCount(metrics.DailySubmissions))
}

func TestMustRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	assert.NotPanics(t, func() { metrics.MustRegister(reg) })
	assert.Panics(t, func() { metrics.MustRegister(reg) })
}
