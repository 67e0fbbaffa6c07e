// Package aggregate turns a snapshot of whitelist requests into the series and
// statistics shown on the admin dashboard. Every function here is a pure
// function of its inputs and never modifies the requests it is given.
package aggregate

import (
	"errors"
	"time"

	"github.com/tywin1104/mc-dashboard/types"
)

// DateLayout is the key format of a daily bucket
const DateLayout = "2006-01-02"

// ErrInvalidWindow is returned when a daily series is requested for fewer than one day
var ErrInvalidWindow = errors.New("window must span at least one day")

// DayCount is the number of requests submitted on one calendar day
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// DailyCounts buckets requests by the calendar date of their submission and
// returns one entry per day for the last windowDays days ending at reference,
// oldest first. Days without submissions are present with a zero count.
//
// Dates are taken in reference's location. A zero reference means now, in the
// local timezone. Requests without a usable submission time are skipped.
func DailyCounts(requests []types.WhitelistRequest, windowDays int, reference time.Time) ([]DayCount, error) {
	if windowDays <= 0 {
		return nil, ErrInvalidWindow
	}
	if reference.IsZero() {
		reference = time.Now()
	}
	loc := reference.Location()

	buckets := make(map[string]int)
	for _, request := range requests {
		submitted, ok := request.Submitted()
		if !ok {
			continue
		}
		buckets[submitted.In(loc).Format(DateLayout)]++
	}

	year, month, day := reference.Date()
	series := make([]DayCount, 0, windowDays)
	for i := windowDays - 1; i >= 0; i-- {
		// time.Date normalizes day underflow across months and years and keeps
		// midnight stable over DST transitions
		date := time.Date(year, month, day-i, 0, 0, 0, 0, loc).Format(DateLayout)
		series = append(series, DayCount{Date: date, Count: buckets[date]})
	}
	return series, nil
}
