package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Pinger is a store that can report whether it answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ProbeResult is the outcome of the latest store probe.
type ProbeResult struct {
	Healthy   bool
	CheckedAt time.Time
	Err       error
}

// StoreProbe pings a store on a schedule and logs when its health changes.
type StoreProbe struct {
	store Pinger
	log   *slog.Logger
	now   func() time.Time

	mu   sync.RWMutex
	last ProbeResult
	ran  bool
}

// NewStoreProbe creates a StoreProbe for store.
func NewStoreProbe(store Pinger, log *slog.Logger) *StoreProbe {
	if log == nil {
		log = slog.Default()
	}
	return &StoreProbe{store: store, log: log, now: time.Now}
}

// Run pings the store once. It is the JobFunc registered by Register.
func (p *StoreProbe) Run(ctx context.Context) error {
	err := p.store.Ping(ctx)
	res := ProbeResult{Healthy: err == nil, CheckedAt: p.now(), Err: err}

	p.mu.Lock()
	prev, ran := p.last, p.ran
	p.last, p.ran = res, true
	p.mu.Unlock()

	switch {
	case !res.Healthy && (!ran || prev.Healthy):
		p.log.Warn("store unhealthy", slog.Any("error", err))
	case res.Healthy && ran && !prev.Healthy:
		p.log.Info("store healthy again")
	}
	return err
}

// Last returns the latest result and whether a probe has run yet.
func (p *StoreProbe) Last() (ProbeResult, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last, p.ran
}

// Ping reports the latest scheduled result. Before the first run it probes
// the store directly.
func (p *StoreProbe) Ping(ctx context.Context) error {
	if res, ok := p.Last(); ok {
		return res.Err
	}
	return p.Run(ctx)
}

// Register schedules p on s. A run that would overlap the previous one is
// skipped.
func (p *StoreProbe) Register(s *Scheduler, schedule string) (JobID, error) {
	return s.AddJobWithOptions(schedule, p.Run, JobOptions{
		Name:          "store-health",
		Timeout:       5 * time.Second,
		OverlapPolicy: SkipIfRunning,
	})
}
