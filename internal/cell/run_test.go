package cell

import (
	"context"
	"strings"
	"testing"

	"github.com/buildcell/cellctl/internal/errors"
	"github.com/buildcell/cellctl/internal/runtime"
	"github.com/buildcell/cellctl/internal/testutil"
)

func baseOptions(repo string) RunOptions {
	return RunOptions{
		Image:    "images:centos/7",
		RepoDir:  repo,
		User:     "ci-user",
		Unittest: true,
	}
}

func TestRun_CleanSuccess(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := env.Runtime
	cleanups := NewCleanups()

	report, err := Run(context.Background(), m, cleanups, baseOptions(testutil.InitGitRepo(t)))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.PhaseErrors != 0 {
		t.Errorf("PhaseErrors = %d, want 0", report.PhaseErrors)
	}
	if !strings.HasPrefix(report.Cell, "cellci-") {
		t.Errorf("Cell = %q, want generated name", report.Cell)
	}

	// The cell exists until the caller runs the stack
	if len(m.Cells) != 1 {
		t.Fatalf("cells before cleanup = %d, want 1", len(m.Cells))
	}
	cleanups.Run()
	if len(m.Cells) != 0 {
		t.Error("cell not destroyed by cleanup")
	}
}

func TestRun_NoOptionalPhasesSkipsDepsInstall(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := env.Runtime
	cleanups := NewCleanups()

	opts := baseOptions(testutil.InitGitRepo(t))
	opts.Unittest = false

	report, err := Run(context.Background(), m, cleanups, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.PhaseErrors != 0 {
		t.Errorf("PhaseErrors = %d, want 0", report.PhaseErrors)
	}

	for _, cmd := range m.ExecCommands() {
		if strings.Contains(cmd, "read-dependencies") {
			t.Errorf("dependency install ran with no build or test phase enabled: %q", cmd)
		}
	}
	cleanups.Run()
}

func TestRun_PhaseFailureIsCountedNotFatal(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := env.Runtime
	m.SetExecResult("nosetests", &runtime.ExecResult{ExitCode: 1, Stderr: "boom"})
	cleanups := NewCleanups()

	report, err := Run(context.Background(), m, cleanups, baseOptions(testutil.InitGitRepo(t)))
	if err == nil {
		t.Fatal("expected PhasesFailed error")
	}
	if errors.GetExitCode(err) != errors.ExitGeneralError {
		t.Errorf("exit code = %d, want %d", errors.GetExitCode(err), errors.ExitGeneralError)
	}
	if report.PhaseErrors != 1 {
		t.Errorf("PhaseErrors = %d, want 1", report.PhaseErrors)
	}

	// The whole sequence still ran
	var sawStatus bool
	for _, cmd := range m.ExecCommands() {
		if strings.Contains(cmd, "git status") {
			sawStatus = true
		}
	}
	if !sawStatus {
		t.Error("status-check skipped")
	}

	cleanups.Run()
	if len(m.Cells) != 0 {
		t.Error("cell not destroyed after failed run")
	}
}

func TestRun_ReadinessTimeoutStillTearsDown(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := env.Runtime
	m.SetExecResult("getent", &runtime.ExecResult{ExitCode: 2})
	cleanups := NewCleanups()

	_, err := Run(context.Background(), m, cleanups, baseOptions(testutil.InitGitRepo(t)))
	if err == nil {
		t.Fatal("expected provisioning failure")
	}
	if !strings.Contains(err.Error(), "provisioning failed") {
		t.Errorf("error = %v", err)
	}

	// The cell went live before readiness; teardown must still cover it
	if len(m.Cells) != 1 {
		t.Fatalf("cells before cleanup = %d, want 1", len(m.Cells))
	}
	cleanups.Run()
	if len(m.Cells) != 0 {
		t.Error("live cell leaked after readiness timeout")
	}
}

func TestRun_BadRepoCreatesNothing(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := env.Runtime
	cleanups := NewCleanups()

	opts := baseOptions(t.TempDir())
	_, err := Run(context.Background(), m, cleanups, opts)
	if err == nil {
		t.Fatal("expected snapshot failure")
	}
	if len(m.GetCallsFor("Create")) != 0 {
		t.Error("broken repo must not cost a container launch")
	}
}

func TestRun_KeepLeavesCell(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := env.Runtime
	cleanups := NewCleanups()

	opts := baseOptions(testutil.InitGitRepo(t))
	opts.Keep = true

	report, err := Run(context.Background(), m, cleanups, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Kept {
		t.Error("Kept = false")
	}

	cleanups.Run()
	if len(m.Cells) != 1 {
		t.Error("kept cell was destroyed")
	}
}

func TestRun_CollectsArtifacts(t *testing.T) {
	env := testutil.NewTestEnv(t)
	m := env.Runtime
	m.SetExecResult("for f in", &runtime.ExecResult{Stdout: "out.rpm\nout.tar.gz\n"})
	cleanups := NewCleanups()

	opts := baseOptions(testutil.InitGitRepo(t))
	opts.ArtifactsDir = t.TempDir()

	report, err := Run(context.Background(), m, cleanups, opts)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.ArtifactsPulled != 2 {
		t.Errorf("ArtifactsPulled = %d, want 2", report.ArtifactsPulled)
	}
	if len(m.PulledFiles) != 2 {
		t.Errorf("PulledFiles = %v", m.PulledFiles)
	}
}
