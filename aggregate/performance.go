package aggregate

import (
	"time"

	"github.com/tywin1104/mc-dashboard/types"
)

// DefaultOvertimeThreshold is how long a request may stay pending before it is flagged
const DefaultOvertimeThreshold = 24 * time.Hour

// Performance contains stats information about each op
type Performance struct {
	TotalHandled                 int     `json:"totalHandled"`
	AverageResponseTimeInMinutes float64 `json:"averageResponseTimeInMinutes"`
	totalResponseTimeInMinutes   float64
}

// AdminPerformance groups fulfilled requests by the admin who handled them
func AdminPerformance(requests []types.WhitelistRequest) map[string]*Performance {
	performance := make(map[string]*Performance)
	for _, request := range requests {
		minutes, ok := responseTime(request)
		if !ok {
			continue
		}
		p, found := performance[request.Admin]
		if !found {
			p = new(Performance)
			performance[request.Admin] = p
		}
		p.TotalHandled++
		p.totalResponseTimeInMinutes += minutes
		p.AverageResponseTimeInMinutes = p.totalResponseTimeInMinutes / float64(p.TotalHandled)
	}
	return performance
}

// OvertimeRequests are pending requests that waited longer than the threshold
type OvertimeRequests struct {
	OvertimeCount int      `json:"overtimeCount"`
	OvertimeIDs   []string `json:"overtimeIDs"`
}

// Overtime finds pending requests submitted at least threshold before reference.
// A zero reference means now and a non-positive threshold falls back to
// DefaultOvertimeThreshold.
func Overtime(requests []types.WhitelistRequest, reference time.Time, threshold time.Duration) OvertimeRequests {
	if reference.IsZero() {
		reference = time.Now()
	}
	if threshold <= 0 {
		threshold = DefaultOvertimeThreshold
	}
	overtime := OvertimeRequests{OvertimeIDs: make([]string, 0)}
	for _, request := range requests {
		if request.Status != types.StatusPending {
			continue
		}
		submitted, ok := request.Submitted()
		if !ok {
			continue
		}
		if reference.Sub(submitted) >= threshold {
			overtime.OvertimeCount++
			overtime.OvertimeIDs = append(overtime.OvertimeIDs, request.ID.Hex())
		}
	}
	return overtime
}
