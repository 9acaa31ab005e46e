package workflow

import (
	"bytes"
	"context"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/mo9a7i/timebot/internal/github"
	"github.com/mo9a7i/timebot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testRepo = models.Repository{
	Owner:  "mo9a7i",
	Name:   "time_now",
	Branch: "newest_time",
	Base:   "main",
	Path:   "README.md",
}

var fixedNow = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// recordingSleeper captures requested pauses without waiting
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
	err    error
}

func (s *recordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return s.err
}

// without returns the recorded delays minus every occurrence of d
func (s *recordingSleeper) without(d time.Duration) []time.Duration {
	out := []time.Duration{}
	for _, v := range s.delays {
		if v != d {
			out = append(out, v)
		}
	}
	return out
}

type fakeRecorder struct {
	steps    map[string]models.StepOutcome
	attempts []bool
	runs     int
}

func (f *fakeRecorder) ObserveStep(step string, outcome models.StepOutcome, d time.Duration) {
	if f.steps == nil {
		f.steps = map[string]models.StepOutcome{}
	}
	f.steps[step] = outcome
}

func (f *fakeRecorder) ObserveAttempt(success bool) { f.attempts = append(f.attempts, success) }

func (f *fakeRecorder) ObserveRun(*models.RunReport) { f.runs++ }

func newMockClient() *github.MockClient {
	return &github.MockClient{
		IssueNumber: 42,
		PullNumber:  7,
		File: models.FileContent{
			Path:    "README.md",
			SHA:     "sha-1",
			Content: "before ((old)) after",
		},
	}
}

func newTestRunner(client github.GitHubClient, opts Options, sleeper *recordingSleeper, logs *bytes.Buffer, extra ...RunnerOption) *Runner {
	if opts.Repo == (models.Repository{}) {
		opts.Repo = testRepo
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 3
	}
	if opts.RetryBase == 0 {
		opts.RetryBase = 5 * time.Second
	}
	if opts.BetweenSteps == 0 {
		opts.BetweenSteps = 2 * time.Minute
	}
	options := append([]RunnerOption{
		WithSleeper(sleeper.Sleep),
		WithClock(func() time.Time { return fixedNow }),
	}, extra...)
	return NewRunner(client, opts, log.New(logs, "", 0), options...)
}

func outcomes(report *models.RunReport) map[string]models.StepOutcome {
	m := map[string]models.StepOutcome{}
	for _, s := range report.Steps {
		m[s.Step] = s.Outcome
	}
	return m
}

func TestRunner_Run_happyPath(t *testing.T) {
	client := newMockClient()
	sleeper := &recordingSleeper{}
	var logs bytes.Buffer
	runner := newTestRunner(client, Options{}, sleeper, &logs)

	report := runner.Run(context.Background())

	require.NoError(t, report.Err)
	assert.Equal(t, "2024-01-01T00:00:00.000Z", report.Timestamp)
	assert.Equal(t, []string{
		"CreateIssue",
		"GetFileContent",
		"UpdateFileContent",
		"CreatePullRequest",
		"CreateReview",
		"MergePullRequest",
		"CreateIssueComment",
		"CloseIssue",
	}, client.Calls)

	var steps []string
	for _, s := range report.Steps {
		steps = append(steps, s.Step)
		assert.Equal(t, models.OutcomeOK, s.Outcome, s.Step)
	}
	assert.Equal(t, []string{
		StepOpenIssue, StepUpdateFile, StepOpenPull, StepReview, StepMerge, StepCommentIssue, StepCloseIssue,
	}, steps)
	assert.Zero(t, report.Failed())

	// one pause between each pair of steps
	assert.Len(t, sleeper.delays, 6)
	for _, d := range sleeper.delays {
		assert.Equal(t, 2*time.Minute, d)
	}

	assert.Equal(t, "Check if time is accurate - 2024-01-01T00:00:00.000Z", client.LastIssueTitle)
	assert.Contains(t, client.LastIssueBody, "README.md")
	assert.Equal(t, "newest_time", client.LastRef)
	require.Len(t, client.Updates, 1)
	update := client.Updates[0]
	assert.Equal(t, "before (( 2024-01-01T00:00:00.000Z )) after", update.Content)
	assert.Equal(t, "sha-1", update.SHA)
	assert.Equal(t, "newest_time", update.Branch)
	assert.Equal(t, `Update time to "2024-01-01T00:00:00.000Z"`, update.Message)
	assert.Equal(t, "Lets adjust to - 2024-01-01T00:00:00.000Z", client.LastPullTitle)
	assert.Equal(t, 7, client.LastReviewNumber)
	assert.Equal(t, github.ReviewComment, client.LastReviewEvent)
	assert.Equal(t, 7, client.LastMergeNumber)
	assert.Equal(t, 42, client.LastCommentIssue)
	assert.Equal(t, 42, client.LastClosedIssue)
}

func TestRunner_updateFile_retries(t *testing.T) {
	tests := []struct {
		name          string
		updateErrors  []error
		expectedCalls int
		expectedWaits []time.Duration
		expected      models.StepOutcome
		logContains   []string
	}{
		{
			name:          "succeeds first time",
			expectedCalls: 1,
			expectedWaits: []time.Duration{},
			expected:      models.OutcomeOK,
		},
		{
			name:          "succeeds on second attempt",
			updateErrors:  []error{github.NewConflictError()},
			expectedCalls: 2,
			expectedWaits: []time.Duration{5 * time.Second},
			expected:      models.OutcomeOK,
			logContains:   []string{"Attempt 1/3 failed"},
		},
		{
			name:          "succeeds on last attempt",
			updateErrors:  []error{github.NewConflictError(), github.NewConflictError()},
			expectedCalls: 3,
			expectedWaits: []time.Duration{5 * time.Second, 10 * time.Second},
			expected:      models.OutcomeOK,
		},
		{
			name:          "gives up after three attempts",
			updateErrors:  []error{github.NewConflictError(), github.NewConflictError(), github.NewConflictError(), nil},
			expectedCalls: 3,
			expectedWaits: []time.Duration{5 * time.Second, 10 * time.Second},
			expected:      models.OutcomeFailed,
			logContains:   []string{"Attempt 1/3 failed", "Attempt 2/3 failed", "Attempt 3/3 failed", "All retry attempts failed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient()
			client.UpdateFileErrors = tt.updateErrors
			sleeper := &recordingSleeper{}
			rec := &fakeRecorder{}
			var logs bytes.Buffer
			runner := newTestRunner(client, Options{}, sleeper, &logs, WithRecorder(rec))

			report := runner.Run(context.Background())

			require.NoError(t, report.Err)
			assert.Equal(t, tt.expectedCalls, client.CallsTo("UpdateFileContent"))
			assert.Equal(t, tt.expectedCalls, client.CallsTo("GetFileContent"), "every attempt re-reads the file")
			assert.Equal(t, tt.expectedWaits, sleeper.without(2*time.Minute))
			assert.Equal(t, tt.expected, outcomes(report)[StepUpdateFile])
			assert.Len(t, rec.attempts, tt.expectedCalls)
			for _, s := range tt.logContains {
				assert.Contains(t, logs.String(), s)
			}
			// later steps still run
			assert.Equal(t, 1, client.CallsTo("CreatePullRequest"))
		})
	}
}

func TestRunner_updateFile_readFailureRetries(t *testing.T) {
	client := newMockClient()
	client.GetFileErrors = []error{github.NewAPIError("timeout")}
	sleeper := &recordingSleeper{}
	var logs bytes.Buffer

	report := newTestRunner(client, Options{}, sleeper, &logs).Run(context.Background())

	assert.Equal(t, models.OutcomeOK, outcomes(report)[StepUpdateFile])
	assert.Equal(t, 2, client.CallsTo("GetFileContent"))
	assert.Equal(t, 1, client.CallsTo("UpdateFileContent"))
}

func TestRunner_updateFile_noPlaceholder(t *testing.T) {
	client := newMockClient()
	client.File.Content = "nothing to replace"
	sleeper := &recordingSleeper{}
	var logs bytes.Buffer

	report := newTestRunner(client, Options{}, sleeper, &logs).Run(context.Background())

	assert.Equal(t, models.OutcomeFailed, outcomes(report)[StepUpdateFile])
	assert.Equal(t, 1, client.CallsTo("GetFileContent"), "missing placeholder is not retried")
	assert.Zero(t, client.CallsTo("UpdateFileContent"))
	assert.Empty(t, sleeper.without(2*time.Minute))
}

func TestRunner_openIssue_failure(t *testing.T) {
	client := newMockClient()
	client.CreateIssueError = github.NewAPIError("forbidden")
	sleeper := &recordingSleeper{}
	var logs bytes.Buffer

	report := newTestRunner(client, Options{}, sleeper, &logs).Run(context.Background())

	require.NoError(t, report.Err)
	got := outcomes(report)
	assert.Equal(t, models.OutcomeFailed, got[StepOpenIssue])
	assert.Equal(t, models.OutcomeOK, got[StepUpdateFile])
	assert.Equal(t, models.OutcomeOK, got[StepMerge])
	assert.Equal(t, models.OutcomeSkipped, got[StepCommentIssue])
	assert.Equal(t, models.OutcomeSkipped, got[StepCloseIssue])
	assert.Equal(t, 1, client.CallsTo("CreateIssue"), "issue creation is not retried")
	assert.Zero(t, client.CallsTo("CloseIssue"))
	assert.Contains(t, logs.String(), "Error creating issue")
}

func TestRunner_openPull_alreadyExists(t *testing.T) {
	client := newMockClient()
	client.CreatePullError = github.NewPullRequestExistsError(testRepo)
	client.OpenPull = models.PullRequest{Number: 99, State: "open"}
	sleeper := &recordingSleeper{}
	var logs bytes.Buffer

	report := newTestRunner(client, Options{}, sleeper, &logs).Run(context.Background())

	got := outcomes(report)
	assert.Equal(t, models.OutcomeExists, got[StepOpenPull])
	assert.Zero(t, report.Failed())
	assert.Contains(t, logs.String(), "Pull request already exists for branch: newest_time")
	assert.NotContains(t, logs.String(), "Error creating pull request")
	assert.Equal(t, 99, client.LastReviewNumber)
	assert.Equal(t, 99, client.LastMergeNumber)
}

func TestRunner_openPull_alreadyExistsLookupFails(t *testing.T) {
	client := newMockClient()
	client.CreatePullError = github.NewPullRequestExistsError(testRepo)
	client.FindPullError = github.ErrPullRequestNotFound
	sleeper := &recordingSleeper{}
	var logs bytes.Buffer

	report := newTestRunner(client, Options{}, sleeper, &logs).Run(context.Background())

	got := outcomes(report)
	assert.Equal(t, models.OutcomeExists, got[StepOpenPull])
	assert.Equal(t, models.OutcomeSkipped, got[StepReview])
	assert.Equal(t, models.OutcomeSkipped, got[StepMerge])
	assert.Zero(t, client.CallsTo("CreateReview"))
	// the issue is still closed
	assert.Equal(t, models.OutcomeOK, got[StepCloseIssue])
}

func TestRunner_openPull_otherFailure(t *testing.T) {
	client := newMockClient()
	client.CreatePullError = github.NewHTTPError(422, "Validation Failed", "No commits between main and newest_time")
	sleeper := &recordingSleeper{}
	var logs bytes.Buffer

	report := newTestRunner(client, Options{}, sleeper, &logs).Run(context.Background())

	got := outcomes(report)
	assert.Equal(t, models.OutcomeFailed, got[StepOpenPull])
	assert.Contains(t, logs.String(), "No commits between main and newest_time")
	assert.Zero(t, client.CallsTo("FindOpenPullRequest"))
	assert.Equal(t, models.OutcomeSkipped, got[StepReview])
}

func TestRunner_reviewAndMergeFailuresAreLogged(t *testing.T) {
	client := newMockClient()
	client.ReviewError = github.NewHTTPError(422, "Unprocessable Entity", "Can not approve your own pull request")
	client.MergeError = github.NewHTTPError(405, "Pull Request is not mergeable")
	sleeper := &recordingSleeper{}
	var logs bytes.Buffer

	report := newTestRunner(client, Options{}, sleeper, &logs).Run(context.Background())

	require.NoError(t, report.Err)
	got := outcomes(report)
	assert.Equal(t, models.OutcomeFailed, got[StepReview])
	assert.Equal(t, models.OutcomeFailed, got[StepMerge])
	assert.Equal(t, models.OutcomeOK, got[StepCloseIssue])
	assert.Contains(t, logs.String(), "Can not approve your own pull request")
	assert.Contains(t, logs.String(), "Pull Request is not mergeable")
}

func TestRunner_cleanupFailurePolicy(t *testing.T) {
	tests := []struct {
		name   string
		logged bool
	}{
		{name: "silent by default", logged: false},
		{name: "logged when enabled", logged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newMockClient()
			client.CommentError = github.NewAPIError("comment failed")
			client.CloseError = github.NewAPIError("close failed")
			sleeper := &recordingSleeper{}
			var logs bytes.Buffer
			runner := newTestRunner(client, Options{LogCleanupFailures: tt.logged}, sleeper, &logs)

			report := runner.Run(context.Background())

			require.NoError(t, report.Err)
			got := outcomes(report)
			assert.Equal(t, models.OutcomeFailed, got[StepCommentIssue])
			assert.Equal(t, models.OutcomeFailed, got[StepCloseIssue])
			assert.Equal(t, tt.logged, bytes.Contains(logs.Bytes(), []byte("comment failed")))
			assert.Equal(t, tt.logged, bytes.Contains(logs.Bytes(), []byte("close failed")))
		})
	}
}

func TestRunner_interruptedPauseEndsRun(t *testing.T) {
	client := newMockClient()
	sleeper := &recordingSleeper{err: context.Canceled}
	rec := &fakeRecorder{}
	var logs bytes.Buffer

	report := newTestRunner(client, Options{}, sleeper, &logs, WithRecorder(rec)).Run(context.Background())

	require.ErrorIs(t, report.Err, context.Canceled)
	assert.Len(t, report.Steps, 1)
	assert.Equal(t, []string{"CreateIssue"}, client.Calls)
	assert.Contains(t, logs.String(), "Error in run process")
	assert.Equal(t, 1, rec.runs)
}

type panickingClient struct {
	*github.MockClient
}

func (p panickingClient) CreatePullRequest(ctx context.Context, repo models.Repository, title, body string) (models.PullRequest, error) {
	panic("boom")
}

func TestRunner_panicIsContained(t *testing.T) {
	client := panickingClient{MockClient: newMockClient()}
	sleeper := &recordingSleeper{}
	var logs bytes.Buffer

	runner := newTestRunner(client, Options{}, sleeper, &logs)

	var report *models.RunReport
	require.NotPanics(t, func() { report = runner.Run(context.Background()) })
	require.Error(t, report.Err)
	assert.Contains(t, report.Err.Error(), "boom")
	assert.Len(t, report.Steps, 2)
	assert.Zero(t, client.CallsTo("CreateReview"))
}

func TestRetryDelay(t *testing.T) {
	base := 5 * time.Second
	assert.Equal(t, 5*time.Second, RetryDelay(base, 1))
	assert.Equal(t, 10*time.Second, RetryDelay(base, 2))
	assert.Equal(t, 15*time.Second, RetryDelay(base, 3))
}

func TestSleep(t *testing.T) {
	require.NoError(t, Sleep(context.Background(), 0))
	require.NoError(t, Sleep(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Sleep(ctx, time.Hour), context.Canceled)
}
