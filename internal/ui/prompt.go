package ui

import (
	"errors"
	"fmt"

	"github.com/manifoldco/promptui"
	"github.com/mo9a7i/timebot/internal/models"
)

// ConfirmRun asks before a manual run. Every run creates an issue, a commit,
// a pull request, a review and a merge; nothing is rolled back.
func ConfirmRun(repo models.Repository) (bool, error) {
	prompt := promptui.Prompt{
		Label: fmt.Sprintf(
			"Run the workflow against %s (%s -> %s)? This creates an issue, a commit and a merged pull request",
			repo.FullName(), repo.Branch, repo.Base,
		),
		IsConfirm: true,
	}

	_, err := prompt.Run()
	if err != nil {
		// promptui reports "n" on a confirm prompt as ErrAbort
		if errors.Is(err, promptui.ErrAbort) {
			return false, nil
		}
		return false, fmt.Errorf("confirmation failed: %w", err)
	}
	return true, nil
}
