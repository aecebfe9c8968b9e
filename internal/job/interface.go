package job

import "context"

// Job is a unit of background work the Scheduler runs.
type Job interface {
	Name() string

	// Schedule is a five-field cron spec or a descriptor like "@every 1m". An empty schedule
	// registers the job for on-demand runs only.
	Schedule() string

	Execute(ctx context.Context) error
}

type funcJob struct {
	name, schedule string
	fn             func(ctx context.Context) error
}

// Func wraps a plain function as a Job.
func Func(name, schedule string, fn func(ctx context.Context) error) Job {
	return &funcJob{name: name, schedule: schedule, fn: fn}
}

func (j *funcJob) Name() string                      { return j.name }
func (j *funcJob) Schedule() string                  { return j.schedule }
func (j *funcJob) Execute(ctx context.Context) error { return j.fn(ctx) }
