package ui

import "github.com/mo9a7i/timebot/internal/models"

// Prompter defines interface for user interaction
type Prompter interface {
	ConfirmRun(repo models.Repository) (bool, error)
}

// DefaultPrompter implements the actual prompting logic
type DefaultPrompter struct{}

// ConfirmRun prompts user to confirm a manual run
func (p *DefaultPrompter) ConfirmRun(repo models.Repository) (bool, error) {
	return ConfirmRun(repo)
}

// AutoConfirm answers yes without asking, for --yes
type AutoConfirm struct{}

func (AutoConfirm) ConfirmRun(models.Repository) (bool, error) {
	return true, nil
}

// MockPrompter for testing
type MockPrompter struct {
	Confirmed         bool
	ConfirmationError error

	// Call tracking
	ConfirmRunCalled bool
	LastRepo         models.Repository
}

// ConfirmRun mocks confirmation
func (m *MockPrompter) ConfirmRun(repo models.Repository) (bool, error) {
	m.ConfirmRunCalled = true
	m.LastRepo = repo
	return m.Confirmed, m.ConfirmationError
}
