package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/dashboard"
)

// maxWindowDays bounds the daily series a client may ask for
const maxWindowDays = 366

// handleGetReport serves the newest of the in-memory and the cached report.
// The cache covers the time before this instance computed its first report.
func (svc *Service) handleGetReport() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := svc.logger
		report, err := svc.dashboard.Report()
		if err != nil && !errors.Is(err, dashboard.ErrNoReport) {
			http.Error(w, "Unable to get report", http.StatusInternalServerError)
			return
		}
		found := err == nil
		if svc.cache != nil {
			cached, cacheErr := svc.cache.GetReport()
			switch {
			case cacheErr != nil:
				log.WithFields(logrus.Fields{
					"err": cacheErr.Error(),
				}).Debug("Unable to get report from cache")
			case !found || cached.GeneratedAt.After(report.GeneratedAt):
				report, found = cached, true
			}
		}
		if !found {
			http.Error(w, "Report is not ready yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"report": report})
	}
}

// handleGetDaily serves ?days=N&date=YYYY-MM-DD, both optional
func (svc *Service) handleGetDaily() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		days := svc.dashboard.Settings().WindowDays
		if v := query.Get("days"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > maxWindowDays {
				http.Error(w, "days must be a number between 1 and "+strconv.Itoa(maxWindowDays), http.StatusBadRequest)
				return
			}
			days = n
		}
		var reference time.Time
		if v := query.Get("date"); v != "" {
			date, err := time.ParseInLocation(aggregate.DateLayout, v, time.Local)
			if err != nil {
				http.Error(w, "date must be formatted as "+aggregate.DateLayout, http.StatusBadRequest)
				return
			}
			reference = date
		}
		daily, err := svc.dashboard.Daily(days, reference)
		if errors.Is(err, aggregate.ErrInvalidWindow) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "Unable to compute daily counts", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"daily": daily})
	}
}

func (svc *Service) handleGetSummary() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"stats": svc.dashboard.Summary()})
	}
}

// handleRefresh fetches the requests right away instead of waiting for the next poll
func (svc *Service) handleRefresh() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.dashboard.Refresh(r.Context(), dashboard.TriggerManual); err != nil {
			http.Error(w, "Unable to refresh whitelist requests", http.StatusBadGateway)
			return
		}
		report, err := svc.dashboard.Report()
		if err != nil {
			http.Error(w, "Unable to get report", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "success", "report": report})
	}
}

func (svc *Service) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, err := svc.dashboard.Report()
		writeJSON(w, http.StatusOK, map[string]interface{}{"status": "ok", "ready": err == nil})
	}
}
