package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/types"
)

// Gauges are set from every published report by Observe
var (
	// RequestsByStatus is the number of requests in the snapshot per status
	RequestsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcdash_requests",
			Help: "Whitelist requests in the current snapshot by status",
		},
		[]string{"status"},
	)
	// AverageResponseMinutes is the average response time of the report
	AverageResponseMinutes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mcdash_average_response_minutes",
			Help: "Average response time of fulfilled requests in minutes, 0 when none",
		},
	)
	// OvertimeRequests is the number of pending requests past the threshold
	OvertimeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "mcdash_overtime_requests",
			Help: "Pending requests past the overtime threshold",
		},
	)
	// DailySubmissions is the daily series of the report, labelled by days ago
	DailySubmissions = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mcdash_daily_submissions",
			Help: "Submissions per day of the report window, 0 is today",
		},
		[]string{"days_ago"},
	)
	// RefreshesTotal counts refreshes by trigger and result
	RefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mcdash_refreshes_total",
			Help: "Snapshot refreshes by trigger and result",
		},
		[]string{"trigger", "result"}, // poll|event|manual , ok|error
	)
)

// MustRegister registers every dashboard collector with r
func MustRegister(r prometheus.Registerer) {
	r.MustRegister(
		RequestsByStatus,
		AverageResponseMinutes,
		OvertimeRequests,
		DailySubmissions,
		RefreshesTotal,
	)
}

// Observe publishes a report on the gauges
func Observe(report aggregate.Report) {
	for _, status := range types.Statuses {
		RequestsByStatus.WithLabelValues(status.String()).Set(float64(report.Stats.Count(status)))
	}
	RequestsByStatus.WithLabelValues(types.StatusUnknown.String()).Set(float64(report.Stats.Unknown))
	AverageResponseMinutes.Set(report.Stats.AverageResponseTimeInMinutes)
	OvertimeRequests.Set(float64(report.Overtime.OvertimeCount))

	DailySubmissions.Reset()
	for i, day := range report.Daily {
		DailySubmissions.WithLabelValues(strconv.Itoa(len(report.Daily) - 1 - i)).Set(float64(day.Count))
	}
}
