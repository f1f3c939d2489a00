// Package scheduler runs background jobs on cron schedules.
package scheduler

import (
	"sync"
	"time"

	"github.com/holdfast/holdfast/internal/events"
	"github.com/holdfast/holdfast/internal/metrics"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run() error
	Name() string
}

// EventEmitter is implemented by events.Manager
type EventEmitter interface {
	EmitTyped(module string, data events.EventData)
}

// Scheduler manages background jobs
type Scheduler struct {
	cron    *cron.Cron
	metrics *metrics.Registry
	events  EventEmitter

	mu   sync.Mutex
	jobs map[string]Job

	log zerolog.Logger
}

// New creates a new scheduler. Schedules take a leading seconds field.
func New(log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds(), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs: make(map[string]Job),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// SetMetrics wires job run counters
func (s *Scheduler) SetMetrics(m *metrics.Registry) {
	s.metrics = m
}

// SetEventEmitter wires JOB_* lifecycle events
func (s *Scheduler) SetEventEmitter(e EventEmitter) {
	s.events = e
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Int("jobs", len(s.cron.Entries())).Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "@hourly"            - Every hour
//   - "0 0 3 * * *"        - 3 AM every day
//   - "@every 30s"         - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	if _, err := s.cron.AddFunc(schedule, func() { s.execute(job) }); err != nil {
		return err
	}

	s.mu.Lock()
	s.jobs[job.Name()] = job
	s.mu.Unlock()

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

// Jobs returns the names of registered jobs
func (s *Scheduler) Jobs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.jobs))
	for name := range s.jobs {
		names = append(names, name)
	}
	return names
}

// Lookup returns a registered job by name
func (s *Scheduler) Lookup(name string) (Job, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[name]
	return job, ok
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return s.execute(job)
}

func (s *Scheduler) execute(job Job) error {
	name := job.Name()
	s.log.Debug().Str("job", name).Msg("Running job")
	s.emit(&events.JobStatusData{Status: events.JobStarted, Job: name})

	started := time.Now()
	err := job.Run()
	elapsed := time.Since(started).Seconds()
	s.metrics.RecordJob(name, err)

	if err != nil {
		s.log.Error().
			Err(err).
			Str("job", name).
			Msg("Job failed")
		s.emit(&events.JobStatusData{Status: events.JobFailed, Job: name, Error: err.Error(), Duration: elapsed})
		return err
	}

	s.log.Debug().Str("job", name).Float64("duration_s", elapsed).Msg("Job completed")
	s.emit(&events.JobStatusData{Status: events.JobCompleted, Job: name, Duration: elapsed})
	return nil
}

func (s *Scheduler) emit(data events.EventData) {
	if s.events != nil {
		s.events.EmitTyped("scheduler", data)
	}
}
