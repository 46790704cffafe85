// Package scheduler wraps cron for background jobs that follow the
// exchange's local clock.
package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"

	"spotwatch/pkg/logger"
)

// Job is a named unit of scheduled work.
type Job interface {
	Run() error
	Name() string
}

// Scheduler manages background jobs. Schedules are evaluated in the
// location given at construction, so "10 0 * * *" means ten past midnight
// exchange time whatever the host timezone is.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

func New(loc *time.Location, log *logger.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLocation(loc)),
		log:  log,
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info("scheduler stopped")
}

// AddJob registers a job with a cron schedule ("10 0 * * *", "@hourly").
func (s *Scheduler) AddJob(schedule string, job Job) error {
	_, err := s.cron.AddFunc(schedule, func() {
		if err := job.Run(); err != nil {
			s.log.Error("scheduled job failed", logger.String("job", job.Name()), logger.Error(err))
			return
		}
		s.log.Debug("scheduled job completed", logger.String("job", job.Name()))
	})
	if err != nil {
		return err
	}

	s.log.Info("scheduled job registered",
		logger.String("job", job.Name()),
		logger.String("schedule", schedule))
	return nil
}

// RunNow executes a job immediately, outside its schedule.
func (s *Scheduler) RunNow(job Job) error {
	return job.Run()
}
