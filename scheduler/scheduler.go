package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/tywin1104/mc-dashboard/dashboard"
)

const (
	pollJob   = "poll"
	digestJob = "digest"
)

// Jobs are the periodic tasks of the dashboard
type Jobs interface {
	Refresh(ctx context.Context, trigger string) error
	SendDigest(ctx context.Context) error
}

// Schedule describes when jobs run. An empty DigestSchedule disables the digest.
type Schedule struct {
	PollInterval   time.Duration
	DigestSchedule string
	Timeout        time.Duration
}

// Scheduler runs the snapshot refresh and the digest on cron schedules
type Scheduler struct {
	Cron     *cron.Cron
	jobs     Jobs
	logger   *logrus.Entry
	mu       sync.Mutex
	entryIDs map[string]cron.EntryID
	timeout  time.Duration
}

// New creates a scheduler. Jobs are registered by Reload.
func New(jobs Jobs, logger *logrus.Entry) *Scheduler {
	return &Scheduler{
		Cron:     cron.New(),
		jobs:     jobs,
		logger:   logger,
		entryIDs: make(map[string]cron.EntryID),
	}
}

// Start registers the jobs for schedule and starts the cron
func (s *Scheduler) Start(schedule Schedule) error {
	if err := s.Reload(schedule); err != nil {
		return err
	}
	s.Cron.Start()
	return nil
}

// Stop halts the cron and waits for running jobs
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
}

// Reload replaces the registered jobs with the ones of schedule
func (s *Scheduler) Reload(schedule Schedule) error {
	if schedule.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", schedule.PollInterval)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entryIDs {
		s.Cron.Remove(id)
	}
	s.entryIDs = make(map[string]cron.EntryID)
	s.timeout = schedule.Timeout
	if s.timeout <= 0 {
		s.timeout = schedule.PollInterval
	}

	if err := s.registerJob(pollJob, "@every "+schedule.PollInterval.String(), s.poll); err != nil {
		return err
	}
	if schedule.DigestSchedule != "" {
		if err := s.registerJob(digestJob, schedule.DigestSchedule, s.digest); err != nil {
			return err
		}
	}
	return nil
}

// Entries is the number of registered jobs
func (s *Scheduler) Entries() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entryIDs)
}

func (s *Scheduler) registerJob(name, schedule string, cmd func()) error {
	id, err := s.Cron.AddFunc(schedule, cmd)
	if err != nil {
		return fmt.Errorf("schedule %s job %q: %w", name, schedule, err)
	}
	s.entryIDs[name] = id
	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": schedule,
	}).Info("Job scheduled")
	return nil
}

func (s *Scheduler) context() (context.Context, context.CancelFunc) {
	s.mu.Lock()
	timeout := s.timeout
	s.mu.Unlock()
	return context.WithTimeout(context.Background(), timeout)
}

func (s *Scheduler) poll() {
	ctx, cancel := s.context()
	defer cancel()
	// errors are logged and counted by the dashboard
	_ = s.jobs.Refresh(ctx, dashboard.TriggerPoll)
}

func (s *Scheduler) digest() {
	ctx, cancel := s.context()
	defer cancel()
	if err := s.jobs.SendDigest(ctx); err != nil {
		s.logger.WithFields(logrus.Fields{
			"err": err.Error(),
		}).Error("Digest job failed")
	}
}
