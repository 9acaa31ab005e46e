package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mo9a7i/timebot/internal/config"
	"github.com/spf13/cobra"
)

// mainArgsEnv makes the test binary behave as the timebot command, with the
// newline separated arguments it holds
const mainArgsEnv = "TIMEBOT_TEST_MAIN_ARGS"

func TestMain(m *testing.M) {
	if args := os.Getenv(mainArgsEnv); args != "" {
		os.Args = append([]string{"timebot"}, strings.Split(args, "\n")...)
		main()
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// timebotCommand re-executes the test binary as the timebot command
func timebotCommand(t *testing.T, env []string, args ...string) (*exec.Cmd, *bytes.Buffer) {
	t.Helper()
	var stderr bytes.Buffer
	cmd := exec.Command(os.Args[0])
	cmd.Env = append(os.Environ(), env...)
	cmd.Env = append(cmd.Env, mainArgsEnv+"="+strings.Join(args, "\n"))
	cmd.Stdout = &bytes.Buffer{}
	cmd.Stderr = &stderr
	return cmd, &stderr
}

func newTestCommand(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	configPath = ""
	envFile = filepath.Join(t.TempDir(), "missing.env")
	logCleanupFailures = false

	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().BoolVar(&logCleanupFailures, "log-cleanup-failures", false, "")
	if err := cmd.Flags().Parse(args); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}
	return cmd
}

func TestLoadConfig_missingToken(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GH_TOKEN", "")

	_, err := loadConfig(newTestCommand(t))

	if !errors.Is(err, config.ErrMissingToken) {
		t.Fatalf("Expected ErrMissingToken, got %v", err)
	}
	if err.Error() != "GITHUB_TOKEN environment variable is not set" {
		t.Errorf("Unexpected error message %q", err.Error())
	}
}

func TestCommand_missingTokenReportedOnce(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.env")
	cmd, stderr := timebotCommand(t, []string{"GITHUB_TOKEN=", "GH_TOKEN="}, "once", "--yes", "--env-file", missing)

	err := cmd.Run()

	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) || exitErr.ExitCode() != 1 {
		t.Fatalf("Expected exit status 1, got %v", err)
	}
	if n := strings.Count(stderr.String(), "GITHUB_TOKEN environment variable is not set"); n != 1 {
		t.Errorf("Expected the missing token error once, got %d times in %q", n, stderr.String())
	}
	if strings.Contains(stderr.String(), "Usage:") {
		t.Errorf("Expected no usage output, got %q", stderr.String())
	}
}

func TestLoadConfig_flagOverridesPolicy(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("TIMEBOT_SCHEDULE", "")

	cfg, err := loadConfig(newTestCommand(t, "--log-cleanup-failures"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !cfg.Policy.LogCleanupFailures {
		t.Error("Expected --log-cleanup-failures to enable logging")
	}
}

func TestLoadConfig_invalidSchedule(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "token")
	t.Setenv("TIMEBOT_SCHEDULE", "0 */2 * * *")

	_, err := loadConfig(newTestCommand(t))
	if err == nil || !strings.Contains(err.Error(), "invalid schedule") {
		t.Errorf("Expected invalid schedule error, got %v", err)
	}
}
