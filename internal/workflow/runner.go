// Package workflow runs the bot's fixed sequence: open an issue, commit the
// current time, open a pull request, review it, merge it, then comment on and
// close the issue.
//
// Each step owns its error policy. The issue, pull request, review and merge
// steps log failures and move on. The file update is retried with a linear
// backoff. The closing comment and close steps are silent unless
// Options.LogCleanupFailures is set. Pauses between steps are a best-effort
// pacing heuristic that gives GitHub time to settle; they do not synchronize
// anything.
package workflow

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/mo9a7i/timebot/internal/github"
	"github.com/mo9a7i/timebot/internal/models"
)

// Step names, in execution order
const (
	StepOpenIssue    = "open-issue"
	StepUpdateFile   = "update-file"
	StepOpenPull     = "open-pull-request"
	StepReview       = "review"
	StepMerge        = "merge"
	StepCommentIssue = "comment-issue"
	StepCloseIssue   = "close-issue"
)

// Options holds everything a run needs besides the client
type Options struct {
	Repo               models.Repository
	BetweenSteps       time.Duration
	RetryBase          time.Duration
	MaxAttempts        int
	LogCleanupFailures bool
}

// Recorder observes run progress. The metrics package implements it.
type Recorder interface {
	ObserveStep(step string, outcome models.StepOutcome, d time.Duration)
	ObserveAttempt(success bool)
	ObserveRun(report *models.RunReport)
}

type nopRecorder struct{}

func (nopRecorder) ObserveStep(string, models.StepOutcome, time.Duration) {}
func (nopRecorder) ObserveAttempt(bool)                                   {}
func (nopRecorder) ObserveRun(*models.RunReport)                          {}

// Runner executes runs against a single repository
type Runner struct {
	client   github.GitHubClient
	opts     Options
	logger   *log.Logger
	sleep    Sleeper
	now      func() time.Time
	recorder Recorder
}

// RunnerOption customizes a Runner
type RunnerOption func(*Runner)

// WithSleeper replaces the pause implementation
func WithSleeper(s Sleeper) RunnerOption {
	return func(r *Runner) { r.sleep = s }
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// WithRecorder attaches a progress observer
func WithRecorder(rec Recorder) RunnerOption {
	return func(r *Runner) { r.recorder = rec }
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(client github.GitHubClient, opts Options, logger *log.Logger, options ...RunnerOption) *Runner {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 1
	}
	r := &Runner{
		client:   client,
		opts:     opts,
		logger:   logger,
		sleep:    Sleep,
		now:      time.Now,
		recorder: nopRecorder{},
	}
	for _, o := range options {
		o(r)
	}
	return r
}

type stepFunc func(ctx context.Context, rc *models.RunContext) (models.StepOutcome, string)

// Run performs one complete run and returns its report. It never panics;
// an unhandled error or panic ends the run early and is stored in report.Err.
func (r *Runner) Run(ctx context.Context) (report *models.RunReport) {
	started := r.now()
	rc := models.NewRunContext(started)
	report = &models.RunReport{Timestamp: rc.Timestamp, Started: started}

	defer func() {
		if p := recover(); p != nil {
			report.Err = fmt.Errorf("panic: %v", p)
		}
		if report.Err != nil {
			r.logger.Printf("Error in run process: %v", report.Err)
		}
		report.Finished = r.now()
		r.recorder.ObserveRun(report)
	}()

	report.Err = r.execute(ctx, rc, report)
	return report
}

func (r *Runner) execute(ctx context.Context, rc *models.RunContext, report *models.RunReport) error {
	steps := []struct {
		name string
		fn   stepFunc
	}{
		{StepOpenIssue, r.openIssue},
		{StepUpdateFile, r.updateFile},
		{StepOpenPull, r.openPull},
		{StepReview, r.review},
		{StepMerge, r.merge},
		{StepCommentIssue, r.commentIssue},
		{StepCloseIssue, r.closeIssue},
	}

	for i, s := range steps {
		if i > 0 {
			if err := r.sleep(ctx, r.opts.BetweenSteps); err != nil {
				return fmt.Errorf("interrupted before %s: %w", s.name, err)
			}
		}

		start := r.now()
		outcome, detail := s.fn(ctx, rc)
		elapsed := r.now().Sub(start)

		report.Steps = append(report.Steps, models.StepResult{
			Step:     s.name,
			Outcome:  outcome,
			Detail:   detail,
			Duration: elapsed,
		})
		r.recorder.ObserveStep(s.name, outcome, elapsed)
	}
	return nil
}
