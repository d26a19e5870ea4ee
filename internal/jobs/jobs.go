// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"foodDelivery/internal/metrics"
)

const (
	JobOfferExpiry  = "offer_expiry"
	JobLimiterSweep = "limiter_sweep"
	JobSessionSweep = "session_sweep"

	jobTimeout = 30 * time.Second
)

// OfferExpirer deactivates offers whose validity has passed.
type OfferExpirer interface {
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper drops state that has been idle for longer than idle.
type Sweeper interface {
	Sweep(idle time.Duration) int
}

// SweepFunc adapts a plain function to Sweeper.
type SweepFunc func(idle time.Duration) int

func (f SweepFunc) Sweep(idle time.Duration) int { return f(idle) }

type Scheduler struct {
	cron *cron.Cron
	now  func() time.Time
}

func NewScheduler() *Scheduler {
	logger := cron.PrintfLogger(logrus.WithField("component", "cron"))
	return &Scheduler{
		cron: cron.New(cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger))),
		now:  time.Now,
	}
}

// AddOfferExpiry schedules offer deactivation on spec (standard cron or @every).
func (s *Scheduler) AddOfferExpiry(spec string, offers OfferExpirer) error {
	_, err := s.cron.AddFunc(spec, func() { s.ExpireOffers(offers) })
	return err
}

// AddSweep schedules a sweep of entries idle for longer than idle.
func (s *Scheduler) AddSweep(name, spec string, idle time.Duration, sw Sweeper) error {
	_, err := s.cron.AddFunc(spec, func() { s.RunSweep(name, idle, sw) })
	return err
}

// ExpireOffers runs the offer expiry job once.
func (s *Scheduler) ExpireOffers(offers OfferExpirer) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	n, err := offers.ExpireStale(ctx, s.now())
	metrics.JobRun(JobOfferExpiry, err)
	if err != nil {
		logrus.WithError(err).WithField("job", JobOfferExpiry).Error("job failed")
		return
	}
	if n > 0 {
		logrus.WithFields(logrus.Fields{"job": JobOfferExpiry, "expired": n}).Info("special offers expired")
	}
}

// RunSweep runs a sweep job once.
func (s *Scheduler) RunSweep(name string, idle time.Duration, sw Sweeper) {
	n := sw.Sweep(idle)
	metrics.JobRun(name, nil)
	logrus.WithFields(logrus.Fields{"job": name, "dropped": n}).Debug("sweep done")
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for running jobs up to ctx's deadline.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logrus.Warn("cron jobs still running at shutdown")
	}
}

// Entries reports how many jobs are scheduled.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
