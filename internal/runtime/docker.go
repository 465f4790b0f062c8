package runtime

import (
	"archive/tar"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"

	"github.com/buildcell/cellctl/internal/logging"
)

const (
	// LabelManagedBy marks containers created by cellctl so List and
	// Destroy never touch anything else.
	LabelManagedBy = "cellctl.managed-by"

	labelValue = "cellctl"
)

// DockerRuntime implements the Runtime interface using the Docker
// Engine API. Cells run a sleep process to stay alive between execs.
type DockerRuntime struct {
	client *client.Client

	// CellPrefix identifies containers managed by cellctl
	CellPrefix string
}

// NewDockerRuntime creates a new Docker runtime, connecting via the
// environment (DOCKER_HOST etc.) and verifying the daemon is reachable.
func NewDockerRuntime(cellPrefix string) (*DockerRuntime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := cli.Ping(ctx); err != nil {
		cli.Close()
		return nil, fmt.Errorf("docker daemon not reachable: %w", err)
	}

	return &DockerRuntime{
		client:     cli,
		CellPrefix: cellPrefix,
	}, nil
}

// Name returns the runtime identifier
func (r *DockerRuntime) Name() string {
	return "docker"
}

// ExecAsUser reports that the Docker exec API honors a named user
// directly, so no in-container privilege switch is needed.
func (r *DockerRuntime) ExecAsUser() bool {
	return true
}

// translateImage maps LXD-style image aliases (images:centos/7) onto
// registry references (centos:7). Plain references pass through.
func translateImage(ref string) string {
	path, ok := strings.CutPrefix(ref, "images:")
	if !ok {
		return ref
	}
	return strings.Replace(path, "/", ":", 1)
}

// ensureImage pulls the image if it is not present locally.
func (r *DockerRuntime) ensureImage(ctx context.Context, ref string) error {
	_, _, err := r.client.ImageInspectWithRaw(ctx, ref)
	if err == nil {
		return nil
	}

	logging.Debug("pulling image", "image", ref)
	reader, err := r.client.ImagePull(ctx, ref, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image %s: %w", ref, err)
	}
	defer reader.Close()

	// Drain the progress stream; completion means the pull finished
	_, err = io.Copy(io.Discard, reader)
	return err
}

// Create creates and starts a cell container from the given image
func (r *DockerRuntime) Create(ctx context.Context, imageRef, name string) error {
	ref := translateImage(imageRef)
	logging.Debug("creating container", "name", name, "image", ref, "runtime", "docker")

	if err := r.ensureImage(ctx, ref); err != nil {
		return err
	}

	containerCfg := &container.Config{
		Image: ref,
		Labels: map[string]string{
			LabelManagedBy: labelValue,
		},
		// Keep the container running between execs
		Cmd: []string{"sleep", "infinity"},
	}

	resp, err := r.client.ContainerCreate(ctx, containerCfg, nil, nil, nil, name)
	if err != nil {
		return fmt.Errorf("failed to create container: %w", err)
	}

	if err := r.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return fmt.Errorf("failed to start container: %w", err)
	}

	return nil
}

// Destroy stops and removes a cell container
func (r *DockerRuntime) Destroy(ctx context.Context, name string) error {
	logging.Debug("destroying container", "name", name)

	timeout := 5
	_ = r.client.ContainerStop(ctx, name, container.StopOptions{Timeout: &timeout})

	err := r.client.ContainerRemove(ctx, name, container.RemoveOptions{Force: true})
	if err != nil && client.IsErrNotFound(err) {
		return nil
	}
	return err
}

// IsRunning checks if a cell container is currently running
func (r *DockerRuntime) IsRunning(ctx context.Context, name string) (bool, error) {
	inspect, err := r.client.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return false, nil
		}
		return false, err
	}

	return inspect.State != nil && inspect.State.Running, nil
}

// Exec executes a command inside a cell container
func (r *DockerRuntime) Exec(ctx context.Context, name string, command []string, opts ExecOptions) (*ExecResult, error) {
	execCfg := container.ExecOptions{
		Cmd:          command,
		User:         opts.User,
		WorkingDir:   opts.WorkingDir,
		Env:          opts.Env,
		AttachStdout: true,
		AttachStderr: true,
		AttachStdin:  opts.Stdin != nil,
	}

	execResp, err := r.client.ContainerExecCreate(ctx, name, execCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exec: %w", err)
	}

	attachResp, err := r.client.ContainerExecAttach(ctx, execResp.ID, container.ExecStartOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to attach exec: %w", err)
	}
	defer attachResp.Close()

	if opts.Stdin != nil {
		go func() {
			_, _ = io.Copy(attachResp.Conn, opts.Stdin)
			_ = attachResp.CloseWrite()
		}()
	}

	var stdout, stderr strings.Builder
	if _, err := stdcopy.StdCopy(&stdout, &stderr, attachResp.Reader); err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	inspectResp, err := r.client.ContainerExecInspect(ctx, execResp.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to inspect exec: %w", err)
	}

	return &ExecResult{
		ExitCode: inspectResp.ExitCode,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}, nil
}

// PullFile copies a file out of a cell container to destPath
func (r *DockerRuntime) PullFile(ctx context.Context, name, srcPath, destPath string) error {
	logging.Debug("pulling file", "name", name, "src", srcPath, "dest", destPath)

	reader, _, err := r.client.CopyFromContainer(ctx, name, srcPath)
	if err != nil {
		return fmt.Errorf("failed to copy from container: %w", err)
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return fmt.Errorf("no regular file found at %s", srcPath)
		}
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}

		f, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode)&0777)
		if err != nil {
			return err
		}
		_, err = io.Copy(f, tr)
		f.Close()
		return err
	}
}

// List returns all cell containers managed by this runtime
func (r *DockerRuntime) List(ctx context.Context) ([]*CellInfo, error) {
	containers, err := r.client.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filters.NewArgs(filters.Arg("label", LabelManagedBy+"="+labelValue)),
	})
	if err != nil {
		return nil, err
	}

	var cells []*CellInfo
	for _, c := range containers {
		name := strings.TrimPrefix(c.Names[0], "/")
		if !strings.HasPrefix(name, r.CellPrefix) {
			continue
		}

		info := &CellInfo{
			Name:      name,
			Image:     c.Image,
			StartedAt: time.Unix(c.Created, 0).UTC().Format(time.RFC3339),
		}

		switch c.State {
		case "running":
			info.Status = StatusRunning
		case "exited", "created", "paused":
			info.Status = StatusStopped
		default:
			info.Status = StatusUnknown
		}

		cells = append(cells, info)
	}

	return cells, nil
}

// Ensure DockerRuntime implements Runtime and NamedUserExecer
var (
	_ Runtime         = (*DockerRuntime)(nil)
	_ NamedUserExecer = (*DockerRuntime)(nil)
)
