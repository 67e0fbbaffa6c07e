// Package dashboard keeps the dashboard report in step with the whitelist
// requests: it refreshes the snapshot from the backend, folds in pushed
// updates and publishes every recomputed report.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tywin1104/mc-dashboard/aggregate"
	"github.com/tywin1104/mc-dashboard/config"
	"github.com/tywin1104/mc-dashboard/metrics"
	"github.com/tywin1104/mc-dashboard/snapshot"
	"github.com/tywin1104/mc-dashboard/types"
)

// Refresh triggers, used as the metrics label
const (
	TriggerPoll   = "poll"
	TriggerEvent  = "event"
	TriggerManual = "manual"
)

// ErrNoReport is returned before the first report has been computed
var ErrNoReport = errors.New("no report computed yet")

// Source provides the full list of whitelist requests
type Source interface {
	FetchRequests(ctx context.Context) ([]types.WhitelistRequest, error)
}

// Cache stores published reports for other readers and the snapshot they
// were computed from
type Cache interface {
	SetReport(report aggregate.Report) error
	SetAllRequests(requests []types.WhitelistRequest) error
	GetAllRequests() ([]types.WhitelistRequest, error)
}

// Broadcaster pushes serialized reports to live clients
type Broadcaster interface {
	Publish(event []byte) bool
}

// Mailer sends templated emails
type Mailer interface {
	Send(templateName string, templateData interface{}, subject string, recipient string) error
}

// Settings are the values that may change while the service runs
type Settings struct {
	WindowDays        int
	OvertimeThreshold time.Duration
	StatusPageURL     string
	PassPhrase        string
	Ops               []string
}

// SettingsFromConfig extracts the live settings from c
func SettingsFromConfig(c *config.Config) Settings {
	ops := make([]string, len(c.Ops))
	copy(ops, c.Ops)
	return Settings{
		WindowDays:        c.WindowDays,
		OvertimeThreshold: c.OvertimeThreshold,
		StatusPageURL:     c.StatusPageURL,
		PassPhrase:        c.PassPhrase,
		Ops:               ops,
	}
}

// Service computes and publishes dashboard reports
type Service struct {
	source Source
	store  *snapshot.Store
	cache  Cache
	events Broadcaster
	mailer Mailer
	logger *logrus.Entry
	now    func() time.Time

	settingsMu sync.RWMutex
	settings   Settings

	// serializes recompute and publish so reports go out in snapshot order.
	// publish may block on the event stream while holding it.
	publishMu sync.Mutex
	version   uint64
	published bool

	// guards report only, never held while publishing
	reportMu sync.RWMutex
	report   *aggregate.Report
}

// NewService creates a dashboard service. cache, events and mailer are
// optional and may be nil.
func NewService(source Source, store *snapshot.Store, cache Cache, events Broadcaster, mailer Mailer, settings Settings, logger *logrus.Entry) *Service {
	return &Service{
		source:   source,
		store:    store,
		cache:    cache,
		events:   events,
		mailer:   mailer,
		logger:   logger,
		now:      time.Now,
		settings: settings,
	}
}

// Settings returns the live settings
func (s *Service) Settings() Settings {
	s.settingsMu.RLock()
	defer s.settingsMu.RUnlock()
	return s.settings
}

// UpdateSettings swaps the live settings. The next report uses them.
func (s *Service) UpdateSettings(settings Settings) {
	s.settingsMu.Lock()
	s.settings = settings
	s.settingsMu.Unlock()
	s.logger.WithFields(logrus.Fields{
		"windowDays":        settings.WindowDays,
		"overtimeThreshold": settings.OvertimeThreshold.String(),
	}).Info("Dashboard settings updated")
}

// Refresh replaces the snapshot with the requests from the source and
// publishes the new report. The previous snapshot stays in place on error.
func (s *Service) Refresh(ctx context.Context, trigger string) error {
	requests, err := s.source.FetchRequests(ctx)
	if err != nil {
		metrics.RefreshesTotal.WithLabelValues(trigger, "error").Inc()
		s.logger.WithFields(logrus.Fields{
			"err":     err.Error(),
			"trigger": trigger,
		}).Error("Unable to fetch whitelist requests")
		return fmt.Errorf("fetch requests: %w", err)
	}
	snap := s.store.Replace(requests)
	if err := s.recompute(snap); err != nil {
		metrics.RefreshesTotal.WithLabelValues(trigger, "error").Inc()
		return err
	}
	metrics.RefreshesTotal.WithLabelValues(trigger, "ok").Inc()
	s.logger.WithFields(logrus.Fields{
		"trigger":  trigger,
		"requests": snap.Len(),
		"version":  snap.Version,
	}).Debug("Snapshot refreshed")
	return nil
}

// Bootstrap loads the first snapshot. When the source is unreachable the
// snapshot cached by an earlier run is published instead, and the error of the
// source is returned only if there is no such snapshot.
func (s *Service) Bootstrap(ctx context.Context) error {
	err := s.Refresh(ctx, TriggerPoll)
	if err == nil || s.cache == nil {
		return err
	}
	requests, cacheErr := s.cache.GetAllRequests()
	if cacheErr != nil {
		s.logger.WithFields(logrus.Fields{
			"err": cacheErr.Error(),
		}).Warn("No cached snapshot to start from")
		return err
	}
	snap := s.store.Replace(requests)
	if err := s.recompute(snap); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"requests": snap.Len(),
	}).Warn("Source unreachable. Serving the cached snapshot until the next refresh")
	return nil
}

// ApplyUpdate folds a single created or updated request into the snapshot
// and publishes the new report
func (s *Service) ApplyUpdate(request types.WhitelistRequest) error {
	snap := s.store.Apply(request)
	if err := s.recompute(snap); err != nil {
		metrics.RefreshesTotal.WithLabelValues(TriggerEvent, "error").Inc()
		return err
	}
	metrics.RefreshesTotal.WithLabelValues(TriggerEvent, "ok").Inc()
	return nil
}

func (s *Service) recompute(snap *snapshot.Snapshot) error {
	settings := s.Settings()
	s.publishMu.Lock()
	defer s.publishMu.Unlock()
	if s.published && snap.Version < s.version {
		// a newer snapshot has been published meanwhile
		return nil
	}
	report, err := aggregate.NewReport(snap.Requests(), aggregate.Options{
		WindowDays:        settings.WindowDays,
		Reference:         s.now(),
		OvertimeThreshold: settings.OvertimeThreshold,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"err": err.Error(),
		}).Error("Unable to compute dashboard report")
		return err
	}
	s.version = snap.Version
	s.published = true
	s.reportMu.Lock()
	s.report = &report
	s.reportMu.Unlock()
	s.publish(report, snap)
	return nil
}

// publish never fails: every consumer is best effort
func (s *Service) publish(report aggregate.Report, snap *snapshot.Snapshot) {
	log := s.logger
	if report.Stats.Unknown > 0 {
		log.WithFields(logrus.Fields{
			"count": report.Stats.Unknown,
		}).Warn("Snapshot contains requests with an unrecognized status")
	}
	metrics.Observe(report)
	if s.cache != nil {
		if err := s.cache.SetReport(report); err != nil {
			log.WithFields(logrus.Fields{
				"err": err.Error(),
			}).Error("Unable to cache dashboard report")
		}
		if err := s.cache.SetAllRequests(snap.Requests()); err != nil {
			log.WithFields(logrus.Fields{
				"err": err.Error(),
			}).Error("Unable to cache whitelist requests")
		}
	}
	if s.events != nil {
		event, err := json.Marshal(report)
		if err != nil {
			log.WithFields(logrus.Fields{
				"err": err.Error(),
			}).Error("Unable to serialize report")
			return
		}
		if !s.events.Publish(event) {
			log.Debug("Event stream closed. Report not broadcast")
		}
	}
}

// Report returns the last published report
func (s *Service) Report() (aggregate.Report, error) {
	s.reportMu.RLock()
	defer s.reportMu.RUnlock()
	if s.report == nil {
		return aggregate.Report{}, ErrNoReport
	}
	return *s.report, nil
}

// Daily computes a submission series of days ending at reference over the
// current snapshot
func (s *Service) Daily(days int, reference time.Time) ([]aggregate.DayCount, error) {
	if reference.IsZero() {
		reference = s.now()
	}
	return aggregate.DailyCounts(s.store.Current().Requests(), days, reference)
}

// Summary computes the status counts and response time over the current snapshot
func (s *Service) Summary() aggregate.Summary {
	return aggregate.SummaryStats(s.store.Current().Requests())
}
