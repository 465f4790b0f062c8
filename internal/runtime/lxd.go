package runtime

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/buildcell/cellctl/internal/logging"
)

// LXDRuntime implements the Runtime interface by shelling out to the
// lxc client. It is the primary backend: LXD's image server carries the
// CentOS family images cellctl provisions from.
type LXDRuntime struct {
	// Command is the lxc client binary
	Command string

	// CellPrefix identifies containers managed by cellctl
	CellPrefix string
}

// NewLXDRuntime creates a new LXD runtime.
func NewLXDRuntime(cellPrefix string) (*LXDRuntime, error) {
	if _, err := exec.LookPath("lxc"); err != nil {
		return nil, fmt.Errorf("lxc not found in PATH: %w", err)
	}

	return &LXDRuntime{
		Command:    "lxc",
		CellPrefix: cellPrefix,
	}, nil
}

// Name returns the runtime identifier
func (r *LXDRuntime) Name() string {
	return "lxd"
}

// runCmd executes an lxc command
func (r *LXDRuntime) runCmd(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, r.Command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s %s failed: %s: %w", r.Command, args[0], strings.TrimSpace(stderr.String()), err)
	}

	return stdout.String(), nil
}

// Create launches a container from the given image. lxc launch both
// creates and starts it.
func (r *LXDRuntime) Create(ctx context.Context, image, name string) error {
	logging.Debug("launching container", "name", name, "image", image, "runtime", "lxd")

	_, err := r.runCmd(ctx, "launch", image, name)
	return err
}

// Destroy stops and removes a container
func (r *LXDRuntime) Destroy(ctx context.Context, name string) error {
	logging.Debug("destroying container", "name", name)

	_, err := r.runCmd(ctx, "delete", "--force", name)
	if err != nil && strings.Contains(strings.ToLower(err.Error()), "not found") {
		return nil
	}
	return err
}

// lxdInstance holds the relevant fields from lxc list --format json
type lxdInstance struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	Config    struct {
		ImageDescription string `json:"image.description"`
	} `json:"config"`
}

func (r *LXDRuntime) list(ctx context.Context, filter string) ([]lxdInstance, error) {
	args := []string{"list", "--format", "json"}
	if filter != "" {
		args = append(args, filter)
	}

	output, err := r.runCmd(ctx, args...)
	if err != nil {
		return nil, err
	}

	var instances []lxdInstance
	if err := json.Unmarshal([]byte(output), &instances); err != nil {
		return nil, fmt.Errorf("failed to parse lxc list output: %w", err)
	}

	return instances, nil
}

// IsRunning checks if a container is currently running
func (r *LXDRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	instances, err := r.list(ctx, "^"+name+"$")
	if err != nil {
		return false, err
	}

	for _, inst := range instances {
		if inst.Name == name {
			return strings.EqualFold(inst.Status, "running"), nil
		}
	}

	return false, nil
}

// Exec executes a command inside a container as root. LXD's exec
// primitive accepts an argv vector directly; the --user flag only
// takes a numeric uid, so named-user switches happen in-container
// (see NamedUserExecer).
func (r *LXDRuntime) Exec(ctx context.Context, name string, command []string, opts ExecOptions) (*ExecResult, error) {
	args := []string{"exec", name}

	if opts.WorkingDir != "" {
		args = append(args, "--cwd", opts.WorkingDir)
	}

	for _, env := range opts.Env {
		args = append(args, "--env", env)
	}

	args = append(args, "--")
	args = append(args, command...)

	cmd := exec.CommandContext(ctx, r.Command, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if opts.Stdin != nil {
		cmd.Stdin = opts.Stdin
	}

	err := cmd.Run()

	result := &ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}

	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return result, fmt.Errorf("exec failed: %w", err)
		}
	}

	return result, nil
}

// PullFile copies a file out of a container to destPath
func (r *LXDRuntime) PullFile(ctx context.Context, name, srcPath, destPath string) error {
	logging.Debug("pulling file", "name", name, "src", srcPath, "dest", destPath)

	_, err := r.runCmd(ctx, "file", "pull", name+srcPath, destPath)
	return err
}

// List returns all containers managed by this runtime
func (r *LXDRuntime) List(ctx context.Context) ([]*CellInfo, error) {
	instances, err := r.list(ctx, "^"+r.CellPrefix)
	if err != nil {
		return nil, err
	}

	var cells []*CellInfo
	for _, inst := range instances {
		if !strings.HasPrefix(inst.Name, r.CellPrefix) {
			continue
		}

		info := &CellInfo{
			Name:      inst.Name,
			Image:     inst.Config.ImageDescription,
			StartedAt: inst.CreatedAt,
		}

		switch strings.ToLower(inst.Status) {
		case "running":
			info.Status = StatusRunning
		case "stopped", "frozen":
			info.Status = StatusStopped
		default:
			info.Status = StatusUnknown
		}

		cells = append(cells, info)
	}

	return cells, nil
}

// Ensure LXDRuntime implements Runtime
var _ Runtime = (*LXDRuntime)(nil)
