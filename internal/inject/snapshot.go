package inject

import (
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
)

// Snapshot captures the state of the host working tree at the moment of
// injection. The run operates on this snapshot; later edits to the tree
// do not leak into the cell.
type Snapshot struct {
	// RepoDir is the working tree root on the host
	RepoDir string

	// GitDir is the repository metadata directory. For linked worktrees
	// this is the main .git directory, so the full history transfers.
	GitDir string

	// Ref is the checked-out branch name, or the raw commit hash when
	// HEAD is detached.
	Ref string

	// Dirty reports whether the working tree differs from Ref
	Dirty bool
}

func git(repoDir string, args ...string) (string, error) {
	cmd := exec.Command("git", append([]string{"-C", repoDir}, args...)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("git %s: %s: %w", args[0], strings.TrimSpace(string(output)), err)
	}
	return strings.TrimSpace(string(output)), nil
}

// TakeSnapshot inspects the git repository at repoDir and resolves the
// metadata directory, the ref to check out remotely, and whether
// uncommitted changes exist relative to it.
func TakeSnapshot(repoDir string) (*Snapshot, error) {
	absRepo, err := filepath.Abs(repoDir)
	if err != nil {
		return nil, fmt.Errorf("invalid repo path: %w", err)
	}

	gitDir, err := git(absRepo, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return nil, fmt.Errorf("not a git repository: %s: %w", absRepo, err)
	}

	// A linked worktree's git dir lives under <main>/.git/worktrees/<x>
	// and holds no object store. Redirect to the main .git dir.
	if idx := strings.Index(gitDir, "/worktrees/"); idx != -1 {
		gitDir = gitDir[:idx]
	}

	ref, err := resolveRef(absRepo)
	if err != nil {
		return nil, err
	}

	dirty, err := isDirty(absRepo, ref)
	if err != nil {
		return nil, err
	}

	return &Snapshot{
		RepoDir: absRepo,
		GitDir:  gitDir,
		Ref:     ref,
		Dirty:   dirty,
	}, nil
}

// resolveRef prefers the symbolic branch name; a detached HEAD falls
// back to the raw commit hash.
func resolveRef(repoDir string) (string, error) {
	ref, err := git(repoDir, "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("failed to resolve HEAD: %w", err)
	}

	if ref == "HEAD" {
		ref, err = git(repoDir, "rev-parse", "HEAD")
		if err != nil {
			return "", fmt.Errorf("failed to resolve detached HEAD: %w", err)
		}
	}

	return ref, nil
}

// isDirty reports whether the working tree differs from ref
func isDirty(repoDir, ref string) (bool, error) {
	cmd := exec.Command("git", "-C", repoDir, "diff", "--quiet", ref)
	err := cmd.Run()
	if err == nil {
		return false, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok && exitErr.ExitCode() == 1 {
		return true, nil
	}
	return false, fmt.Errorf("failed to diff working tree: %w", err)
}

// Diff returns the uncommitted changes relative to the snapshot's ref
// as a patch.
func (s *Snapshot) Diff() ([]byte, error) {
	cmd := exec.Command("git", "-C", s.RepoDir, "diff", s.Ref)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("failed to compute diff: %w", err)
	}
	return output, nil
}
