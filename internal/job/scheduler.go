package job

import (
	"context"
	"fmt"
	"time"

	"anoa.com/storyverse/pkg/logger"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Scheduler runs registered jobs on their cron schedules. A run that is
// still going when its next tick fires is skipped.
type Scheduler struct {
	cron    *cron.Cron
	jobs    []Job
	timeout time.Duration
}

func NewScheduler(timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		timeout: timeout,
	}
}

func (s *Scheduler) Register(job Job) error {
	s.jobs = append(s.jobs, job)

	log := logger.Log.WithField("job", job.Name())
	schedule := job.Schedule()
	if schedule == "" {
		log.Info("job registered for on-demand runs")
		return nil
	}

	if _, err := s.cron.AddFunc(schedule, func() { s.run(context.Background(), job) }); err != nil {
		return fmt.Errorf("schedule job %s: %w", job.Name(), err)
	}
	log.WithField("schedule", schedule).Info("job scheduled")
	return nil
}

func (s *Scheduler) run(ctx context.Context, job Job) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := time.Now()
	log := logger.Log.WithField("job", job.Name())
	log.Info("job started")

	err := job.Execute(ctx)
	fields := logrus.Fields{"duration_ms": time.Since(start).Milliseconds()}
	if err != nil {
		log.WithFields(fields).WithError(err).Error("job failed")
		return err
	}
	log.WithFields(fields).Info("job completed")
	return nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Log.WithField("jobs", len(s.jobs)).Info("scheduler started")
}

// Stop halts scheduling and waits for running jobs until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		logger.Log.Warn("scheduler stopped before running jobs finished")
	}
}

// RunByName runs one registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	for _, job := range s.jobs {
		if job.Name() == name {
			return s.run(ctx, job)
		}
	}
	return fmt.Errorf("job %q not registered", name)
}

func (s *Scheduler) Jobs() []string {
	names := make([]string, len(s.jobs))
	for i, job := range s.jobs {
		names[i] = job.Name()
	}
	return names
}
