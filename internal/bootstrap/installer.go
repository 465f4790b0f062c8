// Package bootstrap installs the build and test tooling a fresh cell
// needs before code injection.
//
// Freshly provisioned images frequently race their package mirrors, so
// installation happens in two stages: a retried download-only pass that
// tolerates transient mirror failures, then a single offline install
// from the populated cache. A cache-stage failure is not a network
// problem and is reported immediately.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/buildcell/cellctl/internal/executor"
	"github.com/buildcell/cellctl/internal/logging"
	"github.com/buildcell/cellctl/internal/retry"
)

const (
	// DefaultAttempts bounds the download-only retry loop
	DefaultAttempts = 10

	// DefaultDelayStep is the linear backoff increment between attempts
	DefaultDelayStep = 5 * time.Second
)

// prereq maps a capability probe to the package that provides it
type prereq struct {
	pkg   string
	probe []string
}

// prereqs are checked before touching the network. A cell that already
// carries all of them installs nothing.
var prereqs = []prereq{
	{pkg: "tar", probe: []string{"sh", "-c", "command -v tar"}},
	{pkg: "git", probe: []string{"sh", "-c", "command -v git"}},
	{pkg: "python-argparse", probe: []string{"python", "-c", "import argparse"}},
}

// Installer installs packages inside a cell with bounded retries
type Installer struct {
	exec *executor.Executor

	// Attempts bounds the download-only loop
	Attempts int

	// Delay computes the pause before each retry
	Delay retry.DelayFunc
}

// New creates an installer with the default retry policy
func New(exec *executor.Executor) *Installer {
	return &Installer{
		exec:     exec,
		Attempts: DefaultAttempts,
		Delay:    retry.Linear(DefaultDelayStep),
	}
}

// Missing probes the cell for the standard prerequisites and returns
// the packages whose probe failed.
func (i *Installer) Missing(ctx context.Context) ([]string, error) {
	var missing []string

	for _, p := range prereqs {
		result, err := i.exec.RunAsRoot(ctx, p.probe, "")
		if err != nil {
			return nil, fmt.Errorf("prerequisite probe failed: %w", err)
		}
		if result.ExitCode != 0 {
			missing = append(missing, p.pkg)
		}
	}

	return missing, nil
}

// EnsurePrereqs installs whichever standard prerequisites the cell is
// missing. A cell that has everything performs no network activity.
func (i *Installer) EnsurePrereqs(ctx context.Context) error {
	missing, err := i.Missing(ctx)
	if err != nil {
		return err
	}

	if len(missing) == 0 {
		logging.Debug("all prerequisites present, skipping install")
		return nil
	}

	logging.Info("installing prerequisites", "packages", strings.Join(missing, " "))
	return i.Install(ctx, missing...)
}

// Install installs the named packages: a retried download-only stage
// followed by a single install from the local cache.
func (i *Installer) Install(ctx context.Context, packages ...string) error {
	if len(packages) == 0 {
		return nil
	}

	download := append([]string{"yum", "install", "--downloadonly", "-y"}, packages...)

	err := retry.Do(ctx, i.Attempts, i.Delay, func(attempt int) error {
		logging.Debug("downloading packages", "attempt", attempt, "packages", packages)

		result, err := i.exec.RunAsRoot(ctx, download, "")
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			logging.Warn("package download failed",
				"attempt", attempt,
				"exit_code", result.ExitCode)
			return fmt.Errorf("download failed: %s", strings.TrimSpace(result.Output()))
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("package download exhausted retries: %w", err)
	}

	// Everything is cached locally now; a failure here is not transient
	install := append([]string{"yum", "install", "--cacheonly", "-y"}, packages...)
	result, err := i.exec.RunAsRoot(ctx, install, "")
	if err != nil {
		return err
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("install from cache failed: %s", strings.TrimSpace(result.Output()))
	}

	return nil
}
