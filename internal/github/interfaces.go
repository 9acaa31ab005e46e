package github

import (
	"context"

	"github.com/mo9a7i/timebot/internal/models"
)

// GitHubClient defines the interface for GitHub operations
type GitHubClient interface {
	Viewer(ctx context.Context) (string, error)
	CreateIssue(ctx context.Context, repo models.Repository, title, body string) (models.Issue, error)
	GetFileContent(ctx context.Context, repo models.Repository, path, ref string) (models.FileContent, error)
	UpdateFileContent(ctx context.Context, repo models.Repository, req UpdateFileRequest) (models.CommitResult, error)
	CreatePullRequest(ctx context.Context, repo models.Repository, title, body string) (models.PullRequest, error)
	FindOpenPullRequest(ctx context.Context, repo models.Repository) (models.PullRequest, error)
	CreateReview(ctx context.Context, repo models.Repository, number int, body string, event ReviewEvent) (models.Review, error)
	MergePullRequest(ctx context.Context, repo models.Repository, number int) (models.MergeResult, error)
	CreateIssueComment(ctx context.Context, repo models.Repository, number int, body string) error
	CloseIssue(ctx context.Context, repo models.Repository, number int) error
}

// UpdateFileRequest carries a contents update. SHA is the version token
// read by GetFileContent immediately before.
type UpdateFileRequest struct {
	Path    string
	Branch  string
	Message string
	Content string
	SHA     string
}

// ReviewEvent is the action attached to a pull request review
type ReviewEvent string

const (
	ReviewComment        ReviewEvent = "COMMENT"
	ReviewApprove        ReviewEvent = "APPROVE"
	ReviewRequestChanges ReviewEvent = "REQUEST_CHANGES"
)

// Ensure Client implements GitHubClient interface
var _ GitHubClient = (*Client)(nil)
