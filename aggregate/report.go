package aggregate

import (
	"time"

	"github.com/tywin1104/mc-dashboard/types"
)

// DefaultWindowDays is the length of the submission chart on the dashboard
const DefaultWindowDays = 5

// Options controls how a report is built
type Options struct {
	WindowDays        int
	Reference         time.Time
	OvertimeThreshold time.Duration
}

// Report bundles everything the dashboard renders for one snapshot
type Report struct {
	GeneratedAt      time.Time               `json:"generatedAt"`
	Daily            []DayCount              `json:"daily"`
	Stats            Summary                 `json:"stats"`
	Demographics     Demographics            `json:"demographics"`
	Overtime         OvertimeRequests        `json:"overtime"`
	AdminPerformance map[string]*Performance `json:"adminPerformance"`
}

// NewReport aggregates requests into a Report. A zero WindowDays falls back to
// DefaultWindowDays; a negative one is rejected.
func NewReport(requests []types.WhitelistRequest, opts Options) (Report, error) {
	reference := opts.Reference
	if reference.IsZero() {
		reference = time.Now()
	}
	windowDays := opts.WindowDays
	if windowDays == 0 {
		windowDays = DefaultWindowDays
	}
	daily, err := DailyCounts(requests, windowDays, reference)
	if err != nil {
		return Report{}, err
	}
	return Report{
		GeneratedAt:      reference,
		Daily:            daily,
		Stats:            SummaryStats(requests),
		Demographics:     Demographic(requests),
		Overtime:         Overtime(requests, reference, opts.OvertimeThreshold),
		AdminPerformance: AdminPerformance(requests),
	}, nil
}
