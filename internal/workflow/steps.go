package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mo9a7i/timebot/internal/github"
	"github.com/mo9a7i/timebot/internal/models"
)

const (
	pullBody    = "Time seems a little bit off 🤢."
	reviewBody  = "👍 looks fine now, ready to merge"
	commentBody = "looks like it is 👌🏼."
)

func issueTitle(ts string) string {
	return fmt.Sprintf("Check if time is accurate - %s", ts)
}

func issueBody(path, ts string) string {
	return fmt.Sprintf("Please check if the time in `%s` file is synchronized with world clocks %s and if there are any other issues in the repo.", path, ts)
}

func commitMessage(ts string) string {
	return fmt.Sprintf("Update time to %q", ts)
}

func pullTitle(ts string) string {
	return fmt.Sprintf("Lets adjust to - %s", ts)
}

func (r *Runner) openIssue(ctx context.Context, rc *models.RunContext) (models.StepOutcome, string) {
	r.logger.Printf("creating issue")

	issue, err := r.client.CreateIssue(ctx, r.opts.Repo, issueTitle(rc.Timestamp), issueBody(r.opts.Repo.Path, rc.Timestamp))
	if err != nil {
		r.logger.Printf("Error creating issue: %v", err)
		return models.OutcomeFailed, err.Error()
	}

	rc.IssueNumber = issue.Number
	r.logger.Printf("issue id is: %d", issue.Number)
	return models.OutcomeOK, fmt.Sprintf("#%d", issue.Number)
}

func (r *Runner) updateFile(ctx context.Context, rc *models.RunContext) (models.StepOutcome, string) {
	r.logger.Printf("committing the new time")
	maxAttempts := r.opts.MaxAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		commit, err := r.commitTime(ctx, rc)
		r.recorder.ObserveAttempt(err == nil)
		if err == nil {
			r.logger.Printf("commit status: %s", shortSHA(commit.SHA))
			return models.OutcomeOK, shortSHA(commit.SHA)
		}

		r.logger.Printf("Attempt %d/%d failed: %v", attempt, maxAttempts, err)
		if errors.Is(err, ErrNoPlaceholder) {
			return models.OutcomeFailed, err.Error()
		}
		if attempt == maxAttempts {
			r.logger.Printf("All retry attempts failed")
			return models.OutcomeFailed, err.Error()
		}

		if serr := r.sleep(ctx, RetryDelay(r.opts.RetryBase, attempt)); serr != nil {
			return models.OutcomeFailed, serr.Error()
		}
	}
	return models.OutcomeFailed, "no attempts made"
}

// RetryDelay is the wait after the given failed attempt: attempt × base
func RetryDelay(base time.Duration, attempt int) time.Duration {
	return time.Duration(attempt) * base
}

// commitTime reads the file and writes it back with the read version token,
// so a concurrent write fails the attempt instead of being overwritten
func (r *Runner) commitTime(ctx context.Context, rc *models.RunContext) (models.CommitResult, error) {
	repo := r.opts.Repo

	file, err := r.client.GetFileContent(ctx, repo, repo.Path, repo.Branch)
	if err != nil {
		return models.CommitResult{}, err
	}

	updated, err := ReplacePlaceholder(file.Content, rc.Timestamp)
	if err != nil {
		return models.CommitResult{}, fmt.Errorf("%s: %w", repo.Path, err)
	}

	return r.client.UpdateFileContent(ctx, repo, github.UpdateFileRequest{
		Path:    repo.Path,
		Branch:  repo.Branch,
		Message: commitMessage(rc.Timestamp),
		Content: updated,
		SHA:     file.SHA,
	})
}

func (r *Runner) openPull(ctx context.Context, rc *models.RunContext) (models.StepOutcome, string) {
	repo := r.opts.Repo

	pr, err := r.client.CreatePullRequest(ctx, repo, pullTitle(rc.Timestamp), pullBody)
	if err == nil {
		rc.PullNumber = pr.Number
		r.logger.Printf("created pull request # %d", pr.Number)
		return models.OutcomeOK, fmt.Sprintf("#%d", pr.Number)
	}

	if !github.IsPullRequestExists(err, repo) {
		detail := github.ErrorDetail(err)
		r.logger.Printf("Error creating pull request: %s", detail)
		return models.OutcomeFailed, detail
	}

	r.logger.Printf("Pull request already exists for branch: %s", repo.Branch)
	existing, ferr := r.client.FindOpenPullRequest(ctx, repo)
	if ferr != nil {
		r.logger.Printf("could not look up the existing pull request: %v", ferr)
		return models.OutcomeExists, "already exists"
	}
	rc.PullNumber = existing.Number
	return models.OutcomeExists, fmt.Sprintf("#%d", existing.Number)
}

func (r *Runner) review(ctx context.Context, rc *models.RunContext) (models.StepOutcome, string) {
	if !rc.HasPull() {
		r.logger.Printf("no pull request to review, skipping")
		return models.OutcomeSkipped, "no pull request"
	}
	r.logger.Printf("reviewing # %d", rc.PullNumber)

	if _, err := r.client.CreateReview(ctx, r.opts.Repo, rc.PullNumber, reviewBody, github.ReviewComment); err != nil {
		detail := github.ErrorDetail(err)
		r.logger.Printf("Error reviewing # %d: %s", rc.PullNumber, detail)
		return models.OutcomeFailed, detail
	}
	r.logger.Printf("✅ Created Review")
	return models.OutcomeOK, ""
}

func (r *Runner) merge(ctx context.Context, rc *models.RunContext) (models.StepOutcome, string) {
	if !rc.HasPull() {
		r.logger.Printf("no pull request to merge, skipping")
		return models.OutcomeSkipped, "no pull request"
	}
	r.logger.Printf("merging # %d", rc.PullNumber)

	result, err := r.client.MergePullRequest(ctx, r.opts.Repo, rc.PullNumber)
	if err != nil {
		detail := github.ErrorDetail(err)
		r.logger.Printf("Error merging # %d: %s", rc.PullNumber, detail)
		return models.OutcomeFailed, detail
	}
	return models.OutcomeOK, shortSHA(result.SHA)
}

func (r *Runner) commentIssue(ctx context.Context, rc *models.RunContext) (models.StepOutcome, string) {
	if !rc.HasIssue() {
		return models.OutcomeSkipped, "no issue"
	}
	r.logger.Printf("commenting on issue # %d", rc.IssueNumber)

	if err := r.client.CreateIssueComment(ctx, r.opts.Repo, rc.IssueNumber, commentBody); err != nil {
		if r.opts.LogCleanupFailures {
			r.logger.Printf("Error commenting on issue # %d: %v", rc.IssueNumber, err)
		}
		return models.OutcomeFailed, err.Error()
	}
	return models.OutcomeOK, ""
}

func (r *Runner) closeIssue(ctx context.Context, rc *models.RunContext) (models.StepOutcome, string) {
	if !rc.HasIssue() {
		return models.OutcomeSkipped, "no issue"
	}
	r.logger.Printf("closing issue # %d", rc.IssueNumber)

	if err := r.client.CloseIssue(ctx, r.opts.Repo, rc.IssueNumber); err != nil {
		if r.opts.LogCleanupFailures {
			r.logger.Printf("Error closing issue # %d: %v", rc.IssueNumber, err)
		}
		return models.OutcomeFailed, err.Error()
	}
	return models.OutcomeOK, ""
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
