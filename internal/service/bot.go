package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/mo9a7i/timebot/internal/github"
	"github.com/mo9a7i/timebot/internal/models"
	"github.com/mo9a7i/timebot/internal/ui"
	"github.com/mo9a7i/timebot/internal/workflow"
)

// ErrCancelled is returned when a manual run is declined
var ErrCancelled = errors.New("run cancelled")

// BotService contains the business logic around workflow runs
type BotService struct {
	client   github.GitHubClient
	runner   *workflow.Runner
	repo     models.Repository
	prompter ui.Prompter
	logger   *log.Logger
}

// NewBotService creates a new service instance
func NewBotService(client github.GitHubClient, runner *workflow.Runner, repo models.Repository, prompter ui.Prompter, logger *log.Logger) *BotService {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &BotService{
		client:   client,
		runner:   runner,
		repo:     repo,
		prompter: prompter,
		logger:   logger,
	}
}

// Preflight checks the token by asking who it belongs to
func (s *BotService) Preflight(ctx context.Context) (string, error) {
	login, err := s.client.Viewer(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to verify GitHub token: %w", err)
	}
	if login == "" {
		return "", fmt.Errorf("failed to verify GitHub token: empty login")
	}
	s.logger.Printf("authenticated as %s, working on %s (%s -> %s)", login, s.repo.FullName(), s.repo.Branch, s.repo.Base)
	return login, nil
}

// RunOnce performs a single run after confirmation
func (s *BotService) RunOnce(ctx context.Context) (*models.RunReport, error) {
	confirmed, err := s.prompter.ConfirmRun(s.repo)
	if err != nil {
		return nil, fmt.Errorf("failed to confirm run: %w", err)
	}
	if !confirmed {
		return nil, ErrCancelled
	}
	return s.run(ctx), nil
}

// Job adapts the runner for the scheduler
func (s *BotService) Job() func(ctx context.Context) {
	return func(ctx context.Context) {
		s.run(ctx)
	}
}

func (s *BotService) run(ctx context.Context) *models.RunReport {
	report := s.runner.Run(ctx)
	if report.Err == nil {
		s.logger.Printf("run %s finished, %d step(s) failed", report.Timestamp, report.Failed())
	}
	return report
}
