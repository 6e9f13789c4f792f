// Package scheduler runs named jobs on daily or interval schedules.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/goldbot/core/logger"
)

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// JobOptions tunes a single job.
type JobOptions struct {
	// RunOnStart fires the job once as soon as the scheduler starts.
	RunOnStart bool
}

type entry struct {
	name     string
	schedule Schedule
	job      Job
	opts     JobOptions
	seq      atomic.Int64
}

// ErrUnknownJob is returned by Trigger for a name that was never added.
var ErrUnknownJob = errors.New("scheduler: unknown job")

// Scheduler owns one timer loop per job. Each trigger runs in its own
// goroutine, so a slow run never delays the next trigger.
type Scheduler struct {
	now func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	order   []string
	ctx     context.Context
	cancel  context.CancelFunc
	loops   sync.WaitGroup
	runs    sync.WaitGroup
}

// New returns an empty scheduler.
func New() *Scheduler {
	return &Scheduler{now: time.Now, entries: make(map[string]*entry)}
}

// Add registers a job. It must be called before Start.
func (s *Scheduler) Add(name string, sched Schedule, job Job, opts JobOptions) error {
	if sched == nil || job == nil {
		return fmt.Errorf("scheduler: job %q needs a schedule and a func", name)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return fmt.Errorf("scheduler: cannot add %q after start", name)
	}
	if _, dup := s.entries[name]; dup {
		return fmt.Errorf("scheduler: duplicate job %q", name)
	}
	s.entries[name] = &entry{name: name, schedule: sched, job: job, opts: opts}
	s.order = append(s.order, name)
	return nil
}

// Start launches the timer loops. Jobs see a context derived from ctx that
// is cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx != nil {
		return errors.New("scheduler: already started")
	}
	s.ctx, s.cancel = context.WithCancel(ctx)

	for _, name := range s.order {
		e := s.entries[name]
		logger.LogEvent(s.ctx, logger.Sched, slog.LevelInfo, "sched.job.register",
			slog.String("job", e.name),
			slog.String("schedule", e.schedule.String()),
			slog.Bool("run_on_start", e.opts.RunOnStart),
		)
		if e.opts.RunOnStart {
			s.launch(s.ctx, e, "start")
		}
		s.loops.Add(1)
		go s.loop(s.ctx, e)
	}
	return nil
}

// Stop cancels the loops and waits for in-flight runs.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.loops.Wait()
	s.runs.Wait()
}

// Trigger runs a job now, outside its schedule, without waiting for it.
func (s *Scheduler) Trigger(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	ctx := s.ctx
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJob, name)
	}
	if ctx == nil || ctx.Err() != nil {
		return fmt.Errorf("scheduler: not running")
	}
	s.launch(ctx, e, "manual")
	return nil
}

func (s *Scheduler) loop(ctx context.Context, e *entry) {
	defer s.loops.Done()
	for {
		now := s.now()
		next := e.schedule.Next(now)
		wait := next.Sub(now)
		logger.LogEvent(ctx, logger.Sched, slog.LevelDebug, "sched.job.wait",
			slog.String("job", e.name),
			slog.Time("next_run", next),
			slog.Duration("wait", wait),
		)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		s.launch(ctx, e, "schedule")
	}
}

func (s *Scheduler) launch(ctx context.Context, e *entry, trigger string) {
	runID := fmt.Sprintf("%s:%d:%s", e.name, e.seq.Add(1), uuid.NewString()[:8])
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		runCtx := logger.WithJob(ctx, e.name, runID)
		start := time.Now()
		err := s.run(runCtx, e)

		attrs := []slog.Attr{
			slog.String("trigger", trigger),
			slog.Duration("duration", time.Since(start)),
		}
		level := slog.LevelInfo
		if err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("status", "fail"), slog.String("err", err.Error()))
		} else {
			attrs = append(attrs, slog.String("status", "ok"))
		}
		logger.LogEvent(runCtx, logger.Sched, level, "sched.job.run", attrs...)
	}()
}

func (s *Scheduler) run(ctx context.Context, e *entry) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.LogEvent(ctx, logger.Sched, slog.LevelError, "sched.job.panic",
				slog.Any("panic", r),
				slog.String("stack", logger.SanitizeLimit(string(debug.Stack()), 2000)),
			)
			err = fmt.Errorf("job %s panicked: %v", e.name, r)
		}
	}()
	return e.job(ctx)
}
