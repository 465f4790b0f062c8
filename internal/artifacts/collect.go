// Package artifacts pulls build outputs from a cell back to the host.
//
// Collection is best-effort: it runs regardless of how the validation
// phases fared, and individual failures are counted rather than fatal,
// so a broken artifact never costs the ones that did build.
package artifacts

import (
	"context"
	"fmt"
	"path"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"

	"github.com/buildcell/cellctl/internal/executor"
	"github.com/buildcell/cellctl/internal/logging"
)

// patterns are the build output globs collected from the tree root
var patterns = []string{"*.rpm", "*.tar.gz"}

// Collector retrieves build outputs from a cell
type Collector struct {
	exec     *executor.Executor
	treeRoot string
}

// NewCollector creates a collector reading from treeRoot inside the cell
func NewCollector(exec *executor.Executor, treeRoot string) *Collector {
	return &Collector{exec: exec, treeRoot: treeRoot}
}

// pull is replaceable in tests
type puller interface {
	PullFile(ctx context.Context, name, srcPath, destPath string) error
}

// Collect finds matching build outputs in the tree root and pulls each
// into destDir on the host. It returns the number of files pulled and
// the number of failures.
func (c *Collector) Collect(ctx context.Context, rt puller, destDir string) (pulled, failed int) {
	cell := c.exec.Cell()
	names, err := c.listOutputs(ctx)
	if err != nil {
		logging.UserWarning("artifact listing failed: %v", err)
		return 0, 1
	}

	if len(names) == 0 {
		logging.UserInfo("no build artifacts found")
		return 0, 0
	}

	for _, name := range names {
		// A hostile filename must not escape the destination directory
		base := path.Base(name)
		if base == "." || base == ".." || base == "/" {
			logging.UserWarning("skipping artifact with unusable name %q", name)
			failed++
			continue
		}
		dest, err := securejoin.SecureJoin(destDir, base)
		if err != nil {
			logging.UserWarning("skipping artifact %q: %v", name, err)
			failed++
			continue
		}

		src := path.Join(c.treeRoot, name)
		if err := rt.PullFile(ctx, cell, src, dest); err != nil {
			logging.UserWarning("failed to pull %s: %v", name, err)
			failed++
			continue
		}

		logging.UserSuccess("pulled %s", name)
		pulled++
	}

	return pulled, failed
}

// listOutputs globs for build outputs in the tree root. The shell does
// the matching; unmatched patterns expand to nothing.
func (c *Collector) listOutputs(ctx context.Context) ([]string, error) {
	script := fmt.Sprintf("for f in %s; do [ -e \"$f\" ] && echo \"$f\"; done; true",
		strings.Join(patterns, " "))

	result, err := c.exec.Run(ctx, []string{"sh", "-c", script}, c.treeRoot)
	if err != nil {
		return nil, err
	}
	if result.ExitCode != 0 {
		return nil, fmt.Errorf("glob failed: %s", strings.TrimSpace(result.Output()))
	}

	var names []string
	for _, line := range strings.Split(result.Stdout, "\n") {
		line = strings.TrimSpace(line)
		// An unmatched glob echoes its own pattern
		if line == "" || strings.ContainsAny(line, "*?") {
			continue
		}
		names = append(names, line)
	}

	return names, nil
}
