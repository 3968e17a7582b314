// Package scheduler fires the collection jobs at their configured
// wall-clock times and keeps portal sessions alive between runs.
package scheduler

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"kpicli/internal/config"
	"kpicli/internal/infrastructure"
)

// JobFunc is one schedulable unit of work.
type JobFunc func(ctx context.Context) error

type dailyJob struct {
	name string
	at   config.ClockTime
	run  JobFunc
}

type periodicJob struct {
	name  string
	every time.Duration
	run   JobFunc
}

// Scheduler runs daily jobs at fixed clock times and periodic jobs at
// fixed intervals. Jobs never overlap themselves: a slow run delays its
// own next firing, not the other jobs.
type Scheduler struct {
	loc     *time.Location
	logger  *slog.Logger
	metrics *infrastructure.Metrics
	now     func() time.Time

	daily    []dailyJob
	periodic []periodicJob

	mu     sync.Mutex
	counts map[string]JobCounts
}

// JobCounts tracks run outcomes for one job.
type JobCounts struct {
	Succeeded int
	Failed    int
}

// New creates a scheduler resolving clock times in the given location.
func New(loc *time.Location, logger *slog.Logger, metrics *infrastructure.Metrics) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		loc:     loc,
		logger:  logger.With(slog.String("component", "scheduler")),
		metrics: metrics,
		now:     time.Now,
		counts:  make(map[string]JobCounts),
	}
}

// AddDaily registers a job firing once per day at the given clock time.
func (s *Scheduler) AddDaily(name string, at config.ClockTime, run JobFunc) {
	s.daily = append(s.daily, dailyJob{name: name, at: at, run: run})
}

// AddPeriodic registers a job firing every interval. A non-positive
// interval disables the job.
func (s *Scheduler) AddPeriodic(name string, every time.Duration, run JobFunc) {
	if every <= 0 {
		return
	}
	s.periodic = append(s.periodic, periodicJob{name: name, every: every, run: run})
}

// NextRun returns the next occurrence of the clock time strictly after now.
func NextRun(now time.Time, at config.ClockTime, loc *time.Location) time.Time {
	now = now.In(loc)
	next := time.Date(now.Year(), now.Month(), now.Day(), at.Hour, at.Minute, 0, 0, loc)
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Start runs all registered jobs until the context is cancelled, then
// waits for in-flight runs to finish.
func (s *Scheduler) Start(ctx context.Context) error {
	var wg sync.WaitGroup

	for _, job := range s.daily {
		wg.Add(1)
		go func(job dailyJob) {
			defer wg.Done()
			s.runDaily(ctx, job)
		}(job)
	}
	for _, job := range s.periodic {
		wg.Add(1)
		go func(job periodicJob) {
			defer wg.Done()
			s.runPeriodic(ctx, job)
		}(job)
	}

	s.logger.InfoContext(ctx, "scheduler started",
		slog.Int("daily_jobs", len(s.daily)),
		slog.Int("periodic_jobs", len(s.periodic)))

	wg.Wait()
	s.logger.Info("scheduler stopped")
	return ctx.Err()
}

func (s *Scheduler) runDaily(ctx context.Context, job dailyJob) {
	for {
		next := NextRun(s.now(), job.at, s.loc)
		s.logger.InfoContext(ctx, "job scheduled",
			slog.String("job", job.name),
			slog.Time("next_run", next))

		timer := time.NewTimer(next.Sub(s.now()))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.runJob(ctx, job.name, job.run)
	}
}

func (s *Scheduler) runPeriodic(ctx context.Context, job periodicJob) {
	ticker := time.NewTicker(job.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runJob(ctx, job.name, job.run)
		}
	}
}

// runJob executes one job run with panic recovery and outcome accounting.
func (s *Scheduler) runJob(ctx context.Context, name string, run JobFunc) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "job panicked",
				slog.String("job", name),
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			s.record(name, false)
		}
	}()

	start := s.now()
	err := run(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "job failed",
			slog.String("job", name),
			slog.String("error", err.Error()),
			slog.Duration("duration", s.now().Sub(start)))
		s.record(name, false)
		return
	}
	s.logger.InfoContext(ctx, "job succeeded",
		slog.String("job", name),
		slog.Duration("duration", s.now().Sub(start)))
	s.record(name, true)
}

func (s *Scheduler) record(name string, ok bool) {
	s.mu.Lock()
	c := s.counts[name]
	if ok {
		c.Succeeded++
	} else {
		c.Failed++
	}
	s.counts[name] = c
	s.mu.Unlock()

	outcome := "done"
	if !ok {
		outcome = "failed"
	}
	s.metrics.ObserveRun(name, outcome)
}

// Counts returns the run outcome counters for a job.
func (s *Scheduler) Counts(name string) JobCounts {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}
