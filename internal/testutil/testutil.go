// Package testutil provides shared fixtures for orchestration tests:
// a scriptable mock runtime with retry sleeps silenced, and real
// throwaway git repositories.
package testutil

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/buildcell/cellctl/internal/retry"
	"github.com/buildcell/cellctl/internal/runtime"
)

// TestEnv holds the test environment
type TestEnv struct {
	T *testing.T

	// Runtime is the scriptable mock backend
	Runtime *runtime.MockRuntime

	// Delays records every sleep a retry loop requested; the sleeps
	// themselves are suppressed for the test's duration.
	Delays *[]time.Duration
}

// NewTestEnv creates a test environment with a mock runtime and retry
// sleeps replaced by a recorder.
func NewTestEnv(t *testing.T) *TestEnv {
	t.Helper()

	var delays []time.Duration
	restore := retry.SetSleepFunc(func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	})
	t.Cleanup(restore)

	return &TestEnv{
		T:       t,
		Runtime: runtime.NewMockRuntime(),
		Delays:  &delays,
	}
}

// RunGit runs a git command in dir, failing the test on error
func RunGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", append([]string{"-C", dir}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %s: %v", args, output, err)
	}
	return strings.TrimSpace(string(output))
}

// InitGitRepo creates a git repository with one commit on branch main
// and returns its path.
func InitGitRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	RunGit(t, dir, "init", "-b", "main")
	RunGit(t, dir, "config", "user.email", "test@example.com")
	RunGit(t, dir, "config", "user.name", "Test")

	WriteFile(t, dir, "README", "hello\n")
	RunGit(t, dir, "add", "README")
	RunGit(t, dir, "commit", "-q", "-m", "initial")

	return dir
}

// WriteFile writes content to name under dir, failing the test on error
func WriteFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}
