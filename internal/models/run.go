package models

import "time"

// TimestampLayout matches JavaScript's Date.prototype.toISOString
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// RunContext is shared by every step of a single run
type RunContext struct {
	Timestamp   string
	IssueNumber int
	PullNumber  int
}

// NewRunContext stamps a run with t in UTC
func NewRunContext(t time.Time) *RunContext {
	return &RunContext{Timestamp: t.UTC().Format(TimestampLayout)}
}

// HasIssue reports whether the issue step produced a reference
func (rc *RunContext) HasIssue() bool {
	return rc.IssueNumber > 0
}

// HasPull reports whether a pull request reference is available
func (rc *RunContext) HasPull() bool {
	return rc.PullNumber > 0
}

// StepOutcome classifies how a step ended
type StepOutcome string

const (
	OutcomeOK      StepOutcome = "ok"
	OutcomeFailed  StepOutcome = "failed"
	OutcomeSkipped StepOutcome = "skipped"
	OutcomeExists  StepOutcome = "exists"
)

// StepResult records one step of a run
type StepResult struct {
	Step     string
	Outcome  StepOutcome
	Detail   string
	Duration time.Duration
}

// RunReport collects every step of a run in execution order
type RunReport struct {
	Timestamp string
	Started   time.Time
	Finished  time.Time
	Steps     []StepResult
	// Err is set when the run ended early on an unhandled error
	Err error
}

// Failed counts steps that ended in OutcomeFailed
func (r *RunReport) Failed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			n++
		}
	}
	return n
}
