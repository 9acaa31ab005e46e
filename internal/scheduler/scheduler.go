// Package scheduler triggers a job on a six-field cron expression
// (seconds first) and optionally once at start. Runs never overlap: a
// trigger that fires while the previous run is still going is skipped.
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one scheduled unit of work
type Job func(ctx context.Context)

var parser = cron.NewParser(
	cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Validate parses spec without scheduling anything
func Validate(spec string) error {
	if _, err := parser.Parse(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return nil
}

// Scheduler wraps a cron instance with a non-overlap guard
type Scheduler struct {
	cron       *cron.Cron
	schedule   cron.Schedule
	spec       string
	job        Job
	runOnStart bool
	logger     *log.Logger

	running sync.Mutex
	ctx     context.Context
	runs    sync.WaitGroup
	skipped int
	stopped bool
	mu      sync.Mutex
}

// New builds a scheduler for spec. A nil logger discards output.
func New(spec string, runOnStart bool, job Job, logger *log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	schedule, err := parser.Parse(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	s := &Scheduler{
		schedule:   schedule,
		spec:       spec,
		job:        job,
		runOnStart: runOnStart,
		logger:     logger,
		ctx:        context.Background(),
	}
	s.cron = cron.New(
		cron.WithParser(parser),
		cron.WithLogger(cron.PrintfLogger(logger)),
		cron.WithChain(cron.Recover(cron.PrintfLogger(logger))),
	)
	if _, err := s.cron.AddFunc(spec, s.trigger); err != nil {
		return nil, fmt.Errorf("failed to schedule %q: %w", spec, err)
	}
	return s, nil
}

// Next returns the first activation after t
func (s *Scheduler) Next(t time.Time) time.Time {
	return s.schedule.Next(t)
}

// Start begins scheduling. Jobs receive ctx.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.logger.Printf("running on schedule %q, next run at %s", s.spec, s.Next(time.Now()).Format(time.RFC3339))
	s.cron.Start()
	if s.runOnStart {
		go s.trigger()
	}
}

// Stop halts future triggers, including a start run that has not begun yet.
// The returned context is done once any in-flight run has returned.
func (s *Scheduler) Stop() context.Context {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	done, cancel := context.WithCancel(context.Background())
	go func() {
		<-cronCtx.Done()
		s.runs.Wait()
		cancel()
	}()
	return done
}

// Skipped reports how many triggers were dropped because a run was in flight
func (s *Scheduler) Skipped() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.skipped
}

func (s *Scheduler) trigger() {
	// runs.Add happens under mu so Stop never waits before a run is counted
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.runs.Add(1)
	ctx := s.ctx
	s.mu.Unlock()
	defer s.runs.Done()

	if !s.running.TryLock() {
		s.mu.Lock()
		s.skipped++
		s.mu.Unlock()
		s.logger.Printf("previous run still in progress, skipping this trigger")
		return
	}
	defer s.running.Unlock()

	s.job(ctx)
}
