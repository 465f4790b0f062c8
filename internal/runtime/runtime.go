// Package runtime defines the container runtime interface for cellctl.
// This abstraction allows for multiple backend implementations (lxd,
// docker) and enables comprehensive testing through mocking.
package runtime

import (
	"context"
	"io"
)

// CellStatus represents the state of a cell's container
type CellStatus string

const (
	StatusRunning  CellStatus = "running"
	StatusStopped  CellStatus = "stopped"
	StatusNotFound CellStatus = "not-found"
	StatusUnknown  CellStatus = "unknown"
)

// CellInfo holds information about a cell's container
type CellInfo struct {
	Name      string
	Status    CellStatus
	Image     string
	StartedAt string
}

// ExecResult holds the result of executing a command in a cell
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Output returns the captured stdout and stderr combined, for
// diagnostic display when a remote command fails.
func (r *ExecResult) Output() string {
	if r == nil {
		return ""
	}
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// ExecOptions holds options for executing a command in a cell
type ExecOptions struct {
	User       string    // User to run as (backend support via NamedUserExecer)
	WorkingDir string    // Working directory
	Env        []string  // Environment variables
	Stdin      io.Reader // Standard input
}

// Runtime is the interface that container backends must implement.
// Exec never converts a non-zero remote exit status into an error;
// the exit status is reported in ExecResult and the caller decides
// fatality.
type Runtime interface {
	// Name returns the runtime identifier (e.g., "lxd", "docker")
	Name() string

	// Create creates and starts a cell container from a base image
	Create(ctx context.Context, image, name string) error

	// Destroy stops and removes a cell container
	Destroy(ctx context.Context, name string) error

	// IsRunning checks if a cell container is currently running
	IsRunning(ctx context.Context, name string) (bool, error)

	// Exec executes a command inside a cell container
	Exec(ctx context.Context, name string, command []string, opts ExecOptions) (*ExecResult, error)

	// PullFile copies a file out of a cell container to destPath on
	// the host
	PullFile(ctx context.Context, name, srcPath, destPath string) error

	// List returns all cell containers managed by this runtime
	List(ctx context.Context) ([]*CellInfo, error)
}

// NamedUserExecer is implemented by backends whose Exec honors
// ExecOptions.User natively for arbitrary account names. Callers fall
// back to an in-container privilege switch when the backend does not
// implement it.
type NamedUserExecer interface {
	Runtime

	// ExecAsUser reports whether Exec can run directly as a named user
	ExecAsUser() bool
}
