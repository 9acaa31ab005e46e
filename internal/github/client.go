package github

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cli/go-gh/v2/pkg/api"
	graphql "github.com/cli/shurcooL-graphql"
	"github.com/mo9a7i/timebot/internal/models"
)

type restDoer interface {
	DoWithContext(ctx context.Context, method string, path string, body io.Reader, response interface{}) error
}

type graphQLQuerier interface {
	QueryWithContext(ctx context.Context, name string, q interface{}, variables map[string]interface{}) error
}

// Options configures the API clients
type Options struct {
	Token     string
	Host      string
	UserAgent string
	Timeout   time.Duration
	// Transport overrides the HTTP transport, mainly for tests
	Transport http.RoundTripper
}

// Client wraps GitHub API clients
type Client struct {
	rest restDoer
	gql  graphQLQuerier
}

func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, fmt.Errorf("auth token is required")
	}
	host := opts.Host
	if host == "" {
		host = "github.com"
	}
	clientOpts := api.ClientOptions{
		AuthToken: opts.Token,
		Host:      host,
		Timeout:   opts.Timeout,
		Transport: opts.Transport,
	}
	if opts.UserAgent != "" {
		clientOpts.Headers = map[string]string{"User-Agent": opts.UserAgent}
	}

	restClient, err := api.NewRESTClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create REST client: %w", err)
	}

	gqlClient, err := api.NewGraphQLClient(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create GraphQL client: %w", err)
	}

	return &Client{
		rest: restClient,
		gql:  gqlClient,
	}, nil
}

// Viewer returns the login the token authenticates as
func (c *Client) Viewer(ctx context.Context) (string, error) {
	var q struct {
		Viewer struct {
			Login string
		}
	}
	if err := c.gql.QueryWithContext(ctx, "Viewer", &q, nil); err != nil {
		return "", fmt.Errorf("failed to fetch viewer: %w", err)
	}
	return q.Viewer.Login, nil
}

// CreateIssue opens an issue without labels
func (c *Client) CreateIssue(ctx context.Context, repo models.Repository, title, body string) (models.Issue, error) {
	path := fmt.Sprintf("repos/%s/%s/issues", repo.Owner, repo.Name)
	payload := map[string]interface{}{
		"title":  title,
		"body":   body,
		"labels": []string{},
	}

	var issue models.Issue
	if err := c.do(ctx, http.MethodPost, path, payload, &issue); err != nil {
		return models.Issue{}, fmt.Errorf("failed to create issue: %w", err)
	}
	return issue, nil
}

// GetFileContent reads a file at ref and decodes its base64 content
func (c *Client) GetFileContent(ctx context.Context, repo models.Repository, path, ref string) (models.FileContent, error) {
	reqPath := fmt.Sprintf("repos/%s/%s/contents/%s", repo.Owner, repo.Name, escapePath(path))
	if ref != "" {
		reqPath += "?ref=" + url.QueryEscape(ref)
	}

	var resp struct {
		Type     string `json:"type"`
		Path     string `json:"path"`
		SHA      string `json:"sha"`
		Content  string `json:"content"`
		Encoding string `json:"encoding"`
	}
	if err := c.do(ctx, http.MethodGet, reqPath, nil, &resp); err != nil {
		return models.FileContent{}, fmt.Errorf("failed to get %s: %w", path, err)
	}
	if resp.Type != "" && resp.Type != "file" {
		return models.FileContent{}, fmt.Errorf("%s is a %s, not a file", path, resp.Type)
	}

	content := resp.Content
	if resp.Encoding == "base64" {
		decoded, err := decodeContent(resp.Content)
		if err != nil {
			return models.FileContent{}, fmt.Errorf("failed to decode %s: %w", path, err)
		}
		content = decoded
	}

	return models.FileContent{
		Path:    resp.Path,
		SHA:     resp.SHA,
		Content: content,
	}, nil
}

// UpdateFileContent commits new content for a file on a branch
func (c *Client) UpdateFileContent(ctx context.Context, repo models.Repository, req UpdateFileRequest) (models.CommitResult, error) {
	if req.SHA == "" {
		return models.CommitResult{}, fmt.Errorf("file sha is required to update %s", req.Path)
	}
	path := fmt.Sprintf("repos/%s/%s/contents/%s", repo.Owner, repo.Name, escapePath(req.Path))
	payload := map[string]interface{}{
		"message": req.Message,
		"content": base64.StdEncoding.EncodeToString([]byte(req.Content)),
		"sha":     req.SHA,
	}
	if req.Branch != "" {
		payload["branch"] = req.Branch
	}

	var resp struct {
		Commit models.CommitResult `json:"commit"`
	}
	if err := c.do(ctx, http.MethodPut, path, payload, &resp); err != nil {
		return models.CommitResult{}, fmt.Errorf("failed to update %s: %w", req.Path, err)
	}
	return resp.Commit, nil
}

// CreatePullRequest proposes merging repo.Branch into repo.Base
func (c *Client) CreatePullRequest(ctx context.Context, repo models.Repository, title, body string) (models.PullRequest, error) {
	path := fmt.Sprintf("repos/%s/%s/pulls", repo.Owner, repo.Name)
	payload := map[string]interface{}{
		"title": title,
		"body":  body,
		"head":  repo.Branch,
		"base":  repo.Base,
	}

	var pr models.PullRequest
	if err := c.do(ctx, http.MethodPost, path, payload, &pr); err != nil {
		return models.PullRequest{}, fmt.Errorf("failed to create pull request: %w", err)
	}
	return pr, nil
}

// FindOpenPullRequest looks up the open PR from repo.Branch into repo.Base
func (c *Client) FindOpenPullRequest(ctx context.Context, repo models.Repository) (models.PullRequest, error) {
	var q struct {
		Repository struct {
			PullRequests struct {
				Nodes []struct {
					Number int
					Title  string
					State  string
					URL    string
				}
			} `graphql:"pullRequests(headRefName: $head, baseRefName: $base, states: OPEN, first: 1)"`
		} `graphql:"repository(owner: $owner, name: $name)"`
	}

	variables := map[string]interface{}{
		"owner": graphql.String(repo.Owner),
		"name":  graphql.String(repo.Name),
		"head":  graphql.String(repo.Branch),
		"base":  graphql.String(repo.Base),
	}

	if err := c.gql.QueryWithContext(ctx, "OpenPullRequest", &q, variables); err != nil {
		return models.PullRequest{}, fmt.Errorf("failed to find open pull request: %w", err)
	}

	nodes := q.Repository.PullRequests.Nodes
	if len(nodes) == 0 {
		return models.PullRequest{}, ErrPullRequestNotFound
	}
	return models.PullRequest{
		Number:  nodes[0].Number,
		Title:   nodes[0].Title,
		State:   strings.ToLower(nodes[0].State),
		HTMLURL: nodes[0].URL,
	}, nil
}

// CreateReview attaches a review to a pull request
func (c *Client) CreateReview(ctx context.Context, repo models.Repository, number int, body string, event ReviewEvent) (models.Review, error) {
	path := fmt.Sprintf("repos/%s/%s/pulls/%d/reviews", repo.Owner, repo.Name, number)
	payload := map[string]interface{}{
		"body":  body,
		"event": string(event),
	}

	var review models.Review
	if err := c.do(ctx, http.MethodPost, path, payload, &review); err != nil {
		return models.Review{}, fmt.Errorf("failed to review #%d: %w", number, err)
	}
	return review, nil
}

// MergePullRequest merges with the repository's default merge method
func (c *Client) MergePullRequest(ctx context.Context, repo models.Repository, number int) (models.MergeResult, error) {
	path := fmt.Sprintf("repos/%s/%s/pulls/%d/merge", repo.Owner, repo.Name, number)

	var result models.MergeResult
	if err := c.do(ctx, http.MethodPut, path, map[string]interface{}{}, &result); err != nil {
		return models.MergeResult{}, fmt.Errorf("failed to merge #%d: %w", number, err)
	}
	return result, nil
}

// CreateIssueComment comments on an issue
func (c *Client) CreateIssueComment(ctx context.Context, repo models.Repository, number int, body string) error {
	path := fmt.Sprintf("repos/%s/%s/issues/%d/comments", repo.Owner, repo.Name, number)

	var response interface{}
	if err := c.do(ctx, http.MethodPost, path, map[string]interface{}{"body": body}, &response); err != nil {
		return fmt.Errorf("failed to comment on #%d: %w", number, err)
	}
	return nil
}

// CloseIssue moves an issue to the closed state
func (c *Client) CloseIssue(ctx context.Context, repo models.Repository, number int) error {
	path := fmt.Sprintf("repos/%s/%s/issues/%d", repo.Owner, repo.Name, number)

	var response interface{}
	if err := c.do(ctx, http.MethodPatch, path, map[string]interface{}{"state": "closed"}, &response); err != nil {
		return fmt.Errorf("failed to close #%d: %w", number, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}, response interface{}) error {
	var body io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(jsonBody)
	}
	return c.rest.DoWithContext(ctx, method, path, body, response)
}

// escapePath escapes each segment of a repository file path
func escapePath(p string) string {
	segments := strings.Split(strings.Trim(p, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}

// decodeContent decodes the contents API payload, which wraps base64 at 60 columns
func decodeContent(encoded string) (string, error) {
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(encoded)
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
