package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/mo9a7i/timebot/internal/models"
)

// MockClient implements GitHubClient for testing
type MockClient struct {
	mu sync.Mutex

	// Control test behavior
	ViewerLogin      string
	ViewerError      error
	IssueNumber      int
	CreateIssueError error
	File             models.FileContent
	GetFileErrors    []error // consumed one per call; nil entries succeed
	UpdateFileErrors []error // consumed one per call; nil entries succeed
	PullNumber       int
	CreatePullError  error
	OpenPull         models.PullRequest
	FindPullError    error
	ReviewError      error
	MergeError       error
	CommentError     error
	CloseError       error

	// Calls records method names in call order
	Calls []string

	// Store call arguments for verification
	LastRepo         models.Repository
	LastIssueTitle   string
	LastIssueBody    string
	LastRef          string
	Updates          []UpdateFileRequest
	LastPullTitle    string
	LastReviewNumber int
	LastReviewBody   string
	LastReviewEvent  ReviewEvent
	LastMergeNumber  int
	LastCommentIssue int
	LastCommentBody  string
	LastClosedIssue  int
}

func (m *MockClient) record(name string, repo models.Repository) {
	m.Calls = append(m.Calls, name)
	m.LastRepo = repo
}

// Viewer mocks the GraphQL viewer query
func (m *MockClient) Viewer(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, "Viewer")
	return m.ViewerLogin, m.ViewerError
}

// CreateIssue mocks issue creation
func (m *MockClient) CreateIssue(ctx context.Context, repo models.Repository, title, body string) (models.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateIssue", repo)
	m.LastIssueTitle = title
	m.LastIssueBody = body
	if m.CreateIssueError != nil {
		return models.Issue{}, m.CreateIssueError
	}
	return models.Issue{Number: m.IssueNumber, Title: title, State: "open"}, nil
}

// GetFileContent mocks the contents API read
func (m *MockClient) GetFileContent(ctx context.Context, repo models.Repository, path, ref string) (models.FileContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("GetFileContent", repo)
	m.LastRef = ref
	if err := shift(&m.GetFileErrors); err != nil {
		return models.FileContent{}, err
	}
	return m.File, nil
}

// UpdateFileContent mocks the contents API write
func (m *MockClient) UpdateFileContent(ctx context.Context, repo models.Repository, req UpdateFileRequest) (models.CommitResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("UpdateFileContent", repo)
	m.Updates = append(m.Updates, req)
	if err := shift(&m.UpdateFileErrors); err != nil {
		return models.CommitResult{}, err
	}
	return models.CommitResult{SHA: "commit-sha", Message: req.Message}, nil
}

// CreatePullRequest mocks pull request creation
func (m *MockClient) CreatePullRequest(ctx context.Context, repo models.Repository, title, body string) (models.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreatePullRequest", repo)
	m.LastPullTitle = title
	if m.CreatePullError != nil {
		return models.PullRequest{}, m.CreatePullError
	}
	return models.PullRequest{Number: m.PullNumber, Title: title, State: "open"}, nil
}

// FindOpenPullRequest mocks the GraphQL open PR lookup
func (m *MockClient) FindOpenPullRequest(ctx context.Context, repo models.Repository) (models.PullRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("FindOpenPullRequest", repo)
	return m.OpenPull, m.FindPullError
}

// CreateReview mocks the review call
func (m *MockClient) CreateReview(ctx context.Context, repo models.Repository, number int, body string, event ReviewEvent) (models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateReview", repo)
	m.LastReviewNumber = number
	m.LastReviewBody = body
	m.LastReviewEvent = event
	return models.Review{ID: 1, State: "COMMENTED"}, m.ReviewError
}

// MergePullRequest mocks the merge call
func (m *MockClient) MergePullRequest(ctx context.Context, repo models.Repository, number int) (models.MergeResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("MergePullRequest", repo)
	m.LastMergeNumber = number
	if m.MergeError != nil {
		return models.MergeResult{}, m.MergeError
	}
	return models.MergeResult{SHA: "merge-sha", Merged: true}, nil
}

// CreateIssueComment mocks the issue comment call
func (m *MockClient) CreateIssueComment(ctx context.Context, repo models.Repository, number int, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CreateIssueComment", repo)
	m.LastCommentIssue = number
	m.LastCommentBody = body
	return m.CommentError
}

// CloseIssue mocks closing an issue
func (m *MockClient) CloseIssue(ctx context.Context, repo models.Repository, number int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.record("CloseIssue", repo)
	m.LastClosedIssue = number
	return m.CloseError
}

// Reset clears all tracking data for fresh test
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.LastRepo = models.Repository{}
	m.LastIssueTitle = ""
	m.LastIssueBody = ""
	m.LastRef = ""
	m.Updates = nil
	m.LastPullTitle = ""
	m.LastReviewNumber = 0
	m.LastReviewBody = ""
	m.LastReviewEvent = ""
	m.LastMergeNumber = 0
	m.LastCommentIssue = 0
	m.LastCommentBody = ""
	m.LastClosedIssue = 0
}

// CallsTo counts recorded calls to the named method
func (m *MockClient) CallsTo(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == name {
			n++
		}
	}
	return n
}

func shift(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

// Error helpers for testing error conditions
func NewAPIError(message string) error {
	return fmt.Errorf("API error: %s", message)
}

// NewHTTPError builds the error go-gh returns for a failed REST call
func NewHTTPError(status int, message string, items ...string) error {
	httpErr := &api.HTTPError{
		StatusCode: status,
		Message:    message,
		RequestURL: &url.URL{Scheme: "https", Host: "api.github.com"},
	}
	for _, item := range items {
		httpErr.Errors = append(httpErr.Errors, api.HTTPErrorItem{Message: item, Code: "custom"})
	}
	return httpErr
}

// NewPullRequestExistsError mimics GitHub's response for a duplicate PR on repo's branch
func NewPullRequestExistsError(repo models.Repository) error {
	return NewHTTPError(http.StatusUnprocessableEntity, "Validation Failed", pullRequestExistsMessage(repo))
}

func NewConflictError() error {
	return NewHTTPError(http.StatusConflict, "README.md does not match sha")
}
