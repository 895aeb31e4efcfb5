package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// JobFunc is a scheduled job.
type JobFunc func(ctx context.Context) error

// JobID identifies a scheduled job.
type JobID = cron.EntryID

// OverlapPolicy decides what happens when a run is due while the previous
// one is still going.
type OverlapPolicy int

const (
	// AllowOverlap runs concurrently (default).
	AllowOverlap OverlapPolicy = iota
	// SkipIfRunning drops the due run.
	SkipIfRunning
	// DelayIfRunning waits for the previous run to finish.
	DelayIfRunning
)

// JobOptions configures a job.
type JobOptions struct {
	Name          string
	Timeout       time.Duration
	OverlapPolicy OverlapPolicy
}

// JobHooks are optional observers of job runs.
type JobHooks struct {
	OnJobStart  func(name string)
	OnJobFinish func(name string, d time.Duration, err error)
	OnJobError  func(name string, err error)
}

// Config configures a Scheduler.
type Config struct {
	Logger   *slog.Logger
	JobHooks JobHooks
}

// Scheduler runs jobs on cron schedules. Schedules accept an optional
// seconds field and descriptors such as "@every 30s".
type Scheduler struct {
	cron      *cron.Cron
	log       *slog.Logger
	hooks     JobHooks
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	startOnce sync.Once
}

// New creates a Scheduler bound to a background context.
func New(cfg Config) *Scheduler {
	return NewWithContext(context.Background(), cfg)
}

// NewWithContext creates a Scheduler that stops when parent ends.
func NewWithContext(parent context.Context, cfg Config) *Scheduler {
	ctx, cancel := context.WithCancel(parent)
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With(slog.String("component", "scheduler"))

	return &Scheduler{
		cron: cron.New(
			cron.WithParser(cron.NewParser(cron.SecondOptional|cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow|cron.Descriptor)),
			cron.WithLogger(cronLogger{log: log}),
		),
		log:    log,
		hooks:  cfg.JobHooks,
		ctx:    ctx,
		cancel: cancel,
	}
}

// AddJob schedules job with default options.
func (s *Scheduler) AddJob(schedule string, job JobFunc) (JobID, error) {
	return s.AddJobWithOptions(schedule, job, JobOptions{})
}

// AddJobWithOptions schedules job.
func (s *Scheduler) AddJobWithOptions(schedule string, job JobFunc, opts JobOptions) (JobID, error) {
	if opts.Name == "" {
		opts.Name = "unnamed"
	}
	wrappers := []cron.JobWrapper{}
	switch opts.OverlapPolicy {
	case SkipIfRunning:
		wrappers = append(wrappers, cron.SkipIfStillRunning(cronLogger{log: s.log}))
	case DelayIfRunning:
		wrappers = append(wrappers, cron.DelayIfStillRunning(cronLogger{log: s.log}))
	}

	id, err := s.cron.AddJob(schedule, cron.NewChain(wrappers...).Then(cron.FuncJob(func() {
		s.run(job, opts)
	})))
	if err != nil {
		return 0, fmt.Errorf("schedule job %s: %w", opts.Name, err)
	}
	s.log.Info("job scheduled", slog.String("name", opts.Name), slog.String("schedule", schedule), slog.Int("id", int(id)))
	return id, nil
}

// RemoveJob unschedules a job. Runs in progress finish.
func (s *Scheduler) RemoveJob(id JobID) {
	s.cron.Remove(id)
}

// Start begins running jobs. Calling it again has no effect.
func (s *Scheduler) Start() {
	s.startOnce.Do(func() {
		s.cron.Start()
		go func() {
			<-s.ctx.Done()
			s.stopOnce.Do(s.stop)
		}()
	})
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	s.stopOnce.Do(s.stop)
}

// StopContext is Stop bounded by ctx. When ctx ends first it returns
// ctx.Err() after the jobs have returned anyway.
func (s *Scheduler) StopContext(ctx context.Context) error {
	s.cancel()
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.stopOnce.Do(s.stop)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		s.log.Warn("scheduler stop deadline exceeded, waiting for jobs")
		<-done
		return ctx.Err()
	}
}

// IsRunning reports whether the scheduler has not been stopped.
func (s *Scheduler) IsRunning() bool {
	return s.ctx.Err() == nil
}

func (s *Scheduler) stop() {
	<-s.cron.Stop().Done()
	s.log.Info("scheduler stopped")
}

func (s *Scheduler) run(job JobFunc, opts JobOptions) {
	if s.hooks.OnJobStart != nil {
		s.hooks.OnJobStart(opts.Name)
	}
	ctx := s.ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	start := time.Now()
	err := safeRun(ctx, job)
	d := time.Since(start)

	if s.hooks.OnJobFinish != nil {
		s.hooks.OnJobFinish(opts.Name, d, err)
	}
	if err != nil {
		s.log.Error("job failed", slog.String("name", opts.Name), slog.Duration("dur", d), slog.Any("error", err))
		if s.hooks.OnJobError != nil {
			s.hooks.OnJobError(opts.Name, err)
		}
		return
	}
	s.log.Debug("job done", slog.String("name", opts.Name), slog.Duration("dur", d))
}

// safeRun turns a panic in job into an error.
func safeRun(ctx context.Context, job JobFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("job panicked: %v", r)
		}
	}()
	return job(ctx)
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	log *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Error(msg, append([]any{slog.Any("error", err)}, keysAndValues...)...)
}
