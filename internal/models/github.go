package models

// Issue represents a created GitHub issue
type Issue struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}

// PullRequest represents PR metadata
type PullRequest struct {
	Number  int    `json:"number"`
	Title   string `json:"title"`
	State   string `json:"state"`
	HTMLURL string `json:"html_url"`
}

// FileContent is a decoded file and its blob SHA.
// The SHA must be sent back unchanged on update.
type FileContent struct {
	Path    string
	SHA     string
	Content string
}

// CommitResult is the outcome of a contents update
type CommitResult struct {
	SHA     string `json:"sha"`
	Message string `json:"message"`
	HTMLURL string `json:"html_url"`
}

// Review represents a PR review
type Review struct {
	ID    int64  `json:"id"`
	State string `json:"state"`
}

// MergeResult is returned by the merge endpoint
type MergeResult struct {
	SHA     string `json:"sha"`
	Merged  bool   `json:"merged"`
	Message string `json:"message"`
}
