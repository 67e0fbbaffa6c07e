package aggregate

import (
	"github.com/tywin1104/mc-dashboard/types"
)

const ageGroupStep = 15

// Summary holds the per-status counts and response time of a snapshot.
// Field names follow the real-time stats consumed by the dashboard.
type Summary struct {
	Total       int `redis:"total" json:"total"`
	Pending     int `redis:"pending" json:"pending"`
	Approved    int `redis:"approved" json:"approved"`
	Denied      int `redis:"denied" json:"denied"`
	Deactivated int `redis:"deactivated" json:"deactivated"`
	Banned      int `redis:"banned" json:"banned"`
	Unknown     int `redis:"unknown" json:"unknown"`
	// Processed is the number of fulfilled requests the average is computed over.
	// When it is zero the average is not available and reported as 0.
	Processed                    int     `redis:"processed" json:"processed"`
	TotalResponseTimeInMinutes   float64 `redis:"totalResponseTimeInMinutes" json:"totalResponseTimeInMinutes"`
	AverageResponseTimeInMinutes float64 `redis:"averageResponseTimeInMinutes" json:"averageResponseTimeInMinutes"`
}

// Count returns the number of requests with the given status
func (s Summary) Count(status types.Status) int {
	switch status {
	case types.StatusPending:
		return s.Pending
	case types.StatusApproved:
		return s.Approved
	case types.StatusDenied:
		return s.Denied
	case types.StatusDeactivated:
		return s.Deactivated
	case types.StatusBanned:
		return s.Banned
	default:
		return s.Unknown
	}
}

// AverageAvailable reports whether at least one fulfilled request had a processing time
func (s Summary) AverageAvailable() bool {
	return s.Processed > 0
}

// SummaryStats counts requests by status and averages the response time of
// fulfilled (approved or denied) requests that carry a processing time.
// Response times are in minutes.
func SummaryStats(requests []types.WhitelistRequest) Summary {
	var stats Summary
	for _, request := range requests {
		stats.Total++
		switch request.Status {
		case types.StatusPending:
			stats.Pending++
		case types.StatusApproved:
			stats.Approved++
		case types.StatusDenied:
			stats.Denied++
		case types.StatusDeactivated:
			stats.Deactivated++
		case types.StatusBanned:
			stats.Banned++
		default:
			stats.Unknown++
		}
		if minutes, ok := responseTime(request); ok {
			stats.Processed++
			stats.TotalResponseTimeInMinutes += minutes
		}
	}
	if stats.Processed > 0 {
		stats.AverageResponseTimeInMinutes = stats.TotalResponseTimeInMinutes / float64(stats.Processed)
	}
	return stats
}

// responseTime is the processing duration of a fulfilled request in minutes.
// ok is false when the request is not fulfilled, lacks either timestamp or
// was processed before it was submitted.
func responseTime(request types.WhitelistRequest) (float64, bool) {
	if !request.Status.Terminal() {
		return 0, false
	}
	submitted, ok := request.Submitted()
	if !ok {
		return 0, false
	}
	processed, ok := request.Processed()
	if !ok || processed.Before(submitted) {
		return 0, false
	}
	return processed.Sub(submitted).Minutes(), true
}

// Demographics describes the approved players
type Demographics struct {
	MaleCount        int `redis:"maleCount" json:"maleCount"`
	FemaleCount      int `redis:"femaleCount" json:"femaleCount"`
	OtherGenderCount int `redis:"otherGenderCount" json:"otherGenderCount"`
	AgeGroup1Count   int `redis:"ageGroup1Count" json:"ageGroup1Count"`
	AgeGroup2Count   int `redis:"ageGroup2Count" json:"ageGroup2Count"`
	AgeGroup3Count   int `redis:"ageGroup3Count" json:"ageGroup3Count"`
	AgeGroup4Count   int `redis:"ageGroup4Count" json:"ageGroup4Count"`
}

// Demographic buckets the gender and age of approved requests. Age groups are
// 15 years wide; the last group is open ended and also takes negative ages.
func Demographic(requests []types.WhitelistRequest) Demographics {
	var d Demographics
	for _, request := range requests {
		if request.Status != types.StatusApproved {
			continue
		}
		switch request.Gender {
		case "male":
			d.MaleCount++
		case "female":
			d.FemaleCount++
		default:
			d.OtherGenderCount++
		}
		age := request.Age
		switch {
		case 0 <= age && age < ageGroupStep:
			d.AgeGroup1Count++
		case ageGroupStep <= age && age < ageGroupStep*2:
			d.AgeGroup2Count++
		case ageGroupStep*2 <= age && age < ageGroupStep*3:
			d.AgeGroup3Count++
		default:
			d.AgeGroup4Count++
		}
	}
	return d
}
