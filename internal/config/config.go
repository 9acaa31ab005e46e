// Package config builds the bot's configuration from defaults, an optional
// YAML file, an optional .env file and the process environment. The result
// is passed explicitly to the components that need it.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/mo9a7i/timebot/internal/models"
	"gopkg.in/yaml.v3"
)

// ErrMissingToken is returned by Validate when no GitHub token is configured
var ErrMissingToken = errors.New("GITHUB_TOKEN environment variable is not set")

// Config is the complete bot configuration
type Config struct {
	Repository models.Repository `yaml:"repository"`
	Schedule   ScheduleConfig    `yaml:"schedule"`
	Delays     DelayConfig       `yaml:"delays"`
	Policy     PolicyConfig      `yaml:"policy"`
	GitHub     GitHubConfig      `yaml:"github"`
	Metrics    MetricsConfig     `yaml:"metrics"`
}

// ScheduleConfig controls when runs are triggered
type ScheduleConfig struct {
	Cron       string `yaml:"cron"` // six fields, seconds first
	RunOnStart bool   `yaml:"run_on_start"`
}

// DelayConfig holds the pacing between steps and the file update retry policy
type DelayConfig struct {
	BetweenSteps time.Duration `yaml:"between_steps"`
	RetryBase    time.Duration `yaml:"retry_base"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// PolicyConfig tunes error reporting
type PolicyConfig struct {
	// LogCleanupFailures reports failures of the issue comment and close steps,
	// which are otherwise swallowed.
	LogCleanupFailures bool `yaml:"log_cleanup_failures"`
}

// GitHubConfig configures the API clients. Token is only read from the environment.
type GitHubConfig struct {
	Host      string        `yaml:"host"`
	UserAgent string        `yaml:"user_agent"`
	Timeout   time.Duration `yaml:"timeout"`
	Token     string        `yaml:"-"`
}

// MetricsConfig configures the Prometheus endpoint. Empty Addr disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		Repository: models.Repository{
			Owner:  "mo9a7i",
			Name:   "time_now",
			Branch: "newest_time",
			Base:   "main",
			Path:   "README.md",
		},
		Schedule: ScheduleConfig{
			Cron:       "0 0 */2 * * *",
			RunOnStart: true,
		},
		Delays: DelayConfig{
			BetweenSteps: 2 * time.Minute,
			RetryBase:    5 * time.Second,
			MaxAttempts:  3,
		},
		GitHub: GitHubConfig{
			Host:      "github.com",
			UserAgent: "timebot v1.2.3",
			Timeout:   30 * time.Second,
		},
	}
}

// LoadConfigFromFile overlays the YAML file at path on the defaults.
// Environment variables referenced as ${VAR} are expanded first.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads configPath (optional), loads envFile into the environment
// when it exists, then applies environment overrides
func Load(configPath, envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", envFile, err)
		}
	}

	cfg, err := LoadConfigFromFile(configPath)
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides fields from the process environment
func (c *Config) ApplyEnv() {
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		c.GitHub.Token = token
	} else if token := os.Getenv("GH_TOKEN"); token != "" {
		c.GitHub.Token = token
	}
	if owner := os.Getenv("TIMEBOT_OWNER"); owner != "" {
		c.Repository.Owner = owner
	}
	if repo := os.Getenv("TIMEBOT_REPO"); repo != "" {
		c.Repository.Name = repo
	}
	if branch := os.Getenv("TIMEBOT_BRANCH"); branch != "" {
		c.Repository.Branch = branch
	}
	if schedule := os.Getenv("TIMEBOT_SCHEDULE"); schedule != "" {
		c.Schedule.Cron = schedule
	}
}

// Validate checks the configuration is usable. A missing token is reported
// as ErrMissingToken so callers can exit before scheduling anything.
func (c *Config) Validate() error {
	if c.GitHub.Token == "" {
		return ErrMissingToken
	}
	r := c.Repository
	if r.Owner == "" || r.Name == "" {
		return fmt.Errorf("repository owner and name are required")
	}
	if r.Branch == "" || r.Base == "" {
		return fmt.Errorf("repository branch and base are required")
	}
	if r.Branch == r.Base {
		return fmt.Errorf("branch %q cannot be the same as base", r.Branch)
	}
	if r.Path == "" {
		return fmt.Errorf("repository path is required")
	}
	if c.Schedule.Cron == "" {
		return fmt.Errorf("schedule cron expression is required")
	}
	if c.Delays.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.Delays.MaxAttempts)
	}
	if c.Delays.BetweenSteps < 0 || c.Delays.RetryBase < 0 {
		return fmt.Errorf("delays cannot be negative")
	}
	return nil
}
