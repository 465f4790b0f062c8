// Package inject transfers the host git working tree into a cell.
//
// The transfer streams the repository metadata directory as a tar
// archive over exec stdin, then reconstructs a normal working tree
// around it inside the cell. Committed history always transfers;
// uncommitted changes are either applied on top or preserved as a
// sidecar patch file, depending on the run mode.
package inject

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"path"
	"strings"

	"github.com/buildcell/cellctl/internal/executor"
	"github.com/buildcell/cellctl/internal/logging"
)

const (
	// TreeDirName is the injected tree's directory under the build
	// user's home.
	TreeDirName = "cell-src"

	// SidecarDiffName is the patch file written into the tree root when
	// local changes exist but are not applied.
	SidecarDiffName = "local-changes.diff"
)

// Injector reconstructs a host repository inside a cell
type Injector struct {
	exec *executor.Executor

	// User is the unprivileged account owning the injected tree
	User string
}

// New creates an injector that writes the tree as user
func New(exec *executor.Executor, user string) *Injector {
	return &Injector{exec: exec, User: user}
}

// TreeRoot returns the path of the injected tree inside the cell
func (i *Injector) TreeRoot() string {
	if i.User == "" || i.User == "root" {
		return path.Join("/root", TreeDirName)
	}
	return path.Join("/home", i.User, TreeDirName)
}

// Inject transfers the snapshot into the cell. When applyDirty is true,
// uncommitted changes are applied on top of the checked-out ref;
// otherwise they are written to a sidecar patch in the tree root.
func (i *Injector) Inject(ctx context.Context, snap *Snapshot, applyDirty bool) error {
	treeRoot := i.TreeRoot()
	logging.Debug("injecting working tree",
		"git_dir", snap.GitDir,
		"ref", snap.Ref,
		"dirty", snap.Dirty,
		"tree_root", treeRoot)

	if err := i.transferGitDir(ctx, snap.GitDir, treeRoot); err != nil {
		return err
	}

	if err := i.reconstruct(ctx, treeRoot, snap.Ref); err != nil {
		return err
	}

	if !snap.Dirty {
		return nil
	}

	logging.UserWarning("working tree has uncommitted changes")

	diff, err := snap.Diff()
	if err != nil {
		return err
	}

	if applyDirty {
		return i.applyDiff(ctx, treeRoot, diff)
	}
	return i.writeSidecar(ctx, treeRoot, diff)
}

// transferGitDir streams the host metadata directory into
// <treeRoot>/.git inside the cell.
func (i *Injector) transferGitDir(ctx context.Context, gitDir, treeRoot string) error {
	remoteGit := treeRoot + "/.git"

	result, err := i.exec.Run(ctx, []string{"mkdir", "-p", remoteGit}, "")
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", remoteGit, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("failed to create %s: %s", remoteGit, strings.TrimSpace(result.Output()))
	}

	// Host side of the pipe
	archive := exec.CommandContext(ctx, "tar", "-C", gitDir, "-cpf", "-", ".")
	stdout, err := archive.StdoutPipe()
	if err != nil {
		return err
	}
	var tarStderr bytes.Buffer
	archive.Stderr = &tarStderr

	if err := archive.Start(); err != nil {
		return fmt.Errorf("failed to archive %s: %w", gitDir, err)
	}

	result, execErr := i.exec.RunStdin(ctx, stdout, []string{"tar", "-C", remoteGit, "-xpf", "-"}, "")

	if err := archive.Wait(); err != nil {
		return fmt.Errorf("failed to archive %s: %s: %w", gitDir, strings.TrimSpace(tarStderr.String()), err)
	}
	if execErr != nil {
		return fmt.Errorf("failed to transfer repository: %w", execErr)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("failed to unpack repository: %s", strings.TrimSpace(result.Output()))
	}

	return nil
}

// reconstruct turns the transferred metadata directory back into a
// normal repository and checks out the snapshot ref.
func (i *Injector) reconstruct(ctx context.Context, treeRoot, ref string) error {
	steps := [][]string{
		{"git", "config", "core.bare", "false"},
		{"git", "checkout", ref},
		{"git", "checkout", "."},
	}

	for _, step := range steps {
		result, err := i.exec.Run(ctx, step, treeRoot)
		if err != nil {
			return fmt.Errorf("%s failed: %w", strings.Join(step, " "), err)
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("%s failed: %s", strings.Join(step, " "), strings.TrimSpace(result.Output()))
		}
	}

	return nil
}

// applyDiff applies uncommitted changes on top of the checked-out ref
func (i *Injector) applyDiff(ctx context.Context, treeRoot string, diff []byte) error {
	logging.Debug("applying local changes", "bytes", len(diff))

	result, err := i.exec.RunStdin(ctx, bytes.NewReader(diff), []string{"git", "apply"}, treeRoot)
	if err != nil {
		return fmt.Errorf("failed to apply local changes: %w", err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("failed to apply local changes: %s", strings.TrimSpace(result.Output()))
	}

	return nil
}

// writeSidecar preserves unapplied local changes as a patch file in the
// tree root, so the committed-only tree still records what differed.
func (i *Injector) writeSidecar(ctx context.Context, treeRoot string, diff []byte) error {
	logging.Debug("writing sidecar patch", "file", SidecarDiffName, "bytes", len(diff))

	result, err := i.exec.RunStdin(ctx, bytes.NewReader(diff),
		[]string{"sh", "-c", "cat > " + SidecarDiffName}, treeRoot)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", SidecarDiffName, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("failed to write %s: %s", SidecarDiffName, strings.TrimSpace(result.Output()))
	}

	return nil
}
