package github

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cli/go-gh/v2/pkg/api"
	"github.com/mo9a7i/timebot/internal/models"
)

// ErrPullRequestNotFound is returned when no open pull request matches
var ErrPullRequestNotFound = errors.New("no open pull request found")

// pullRequestExistsMessage is what GitHub reports when head already has an open PR
func pullRequestExistsMessage(repo models.Repository) string {
	return fmt.Sprintf("A pull request already exists for %s.", repo.HeadRef())
}

// IsPullRequestExists reports whether err is the 422 GitHub returns when
// an open pull request already exists for the repository's working branch
func IsPullRequestExists(err error, repo models.Repository) bool {
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		return false
	}
	if httpErr.StatusCode != http.StatusUnprocessableEntity {
		return false
	}

	want := pullRequestExistsMessage(repo)
	for _, item := range httpErr.Errors {
		if item.Message == want {
			return true
		}
	}
	for _, line := range strings.Split(httpErr.Message, "\n") {
		if strings.TrimSpace(line) == want {
			return true
		}
	}
	return false
}

// ErrorDetail extracts the provider-supplied error items from err,
// falling back to err.Error() for anything that is not an HTTP error
func ErrorDetail(err error) string {
	if err == nil {
		return ""
	}
	var httpErr *api.HTTPError
	if !errors.As(err, &httpErr) {
		return err.Error()
	}
	if len(httpErr.Errors) == 0 {
		return fmt.Sprintf("HTTP %d: %s", httpErr.StatusCode, httpErr.Message)
	}

	details := make([]string, 0, len(httpErr.Errors))
	for _, item := range httpErr.Errors {
		switch {
		case item.Message != "":
			details = append(details, item.Message)
		case item.Field != "":
			details = append(details, fmt.Sprintf("%s.%s %s", item.Resource, item.Field, item.Code))
		default:
			details = append(details, item.Code)
		}
	}
	return fmt.Sprintf("HTTP %d: %s", httpErr.StatusCode, strings.Join(details, "; "))
}
