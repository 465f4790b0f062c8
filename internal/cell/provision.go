// Package cell provisions ephemeral containers and drives the full
// validation run inside them.
package cell

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/buildcell/cellctl/internal/config"
	"github.com/buildcell/cellctl/internal/logging"
	"github.com/buildcell/cellctl/internal/retry"
	"github.com/buildcell/cellctl/internal/runtime"
)

const (
	// ReadinessAttempts bounds the network readiness poll
	ReadinessAttempts = 60

	// ReadinessInterval is the fixed pause between readiness probes
	ReadinessInterval = 2 * time.Second
)

// Provisioner creates cells and brings them to a usable state
type Provisioner struct {
	rt runtime.Runtime

	// MirrorHost is resolved inside the cell to probe network readiness
	MirrorHost string

	// Attempts and Delay configure the readiness poll
	Attempts int
	Delay    retry.DelayFunc
}

// NewProvisioner creates a provisioner with the default readiness policy
func NewProvisioner(rt runtime.Runtime, mirrorHost string) *Provisioner {
	if mirrorHost == "" {
		mirrorHost = config.DefaultMirrorHost
	}
	return &Provisioner{
		rt:         rt,
		MirrorHost: mirrorHost,
		Attempts:   ReadinessAttempts,
		Delay:      retry.Fixed(ReadinessInterval),
	}
}

// Create validates the name and creates the cell. The cell is live from
// the moment this returns: the caller must register teardown before any
// further step, readiness included.
func (p *Provisioner) Create(ctx context.Context, image, name string) error {
	if err := config.ValidateCellName(name); err != nil {
		return err
	}

	logging.UserInfo("creating cell %s from %s", name, image)
	if err := p.rt.Create(ctx, image, name); err != nil {
		return fmt.Errorf("failed to create cell: %w", err)
	}

	return nil
}

// WaitReady polls name resolution inside the cell until the network is
// usable. A timeout is an error; the cell stays live for teardown.
func (p *Provisioner) WaitReady(ctx context.Context, name string) error {
	logging.Debug("waiting for network readiness", "cell", name, "host", p.MirrorHost)

	err := retry.Do(ctx, p.Attempts, p.Delay, func(attempt int) error {
		result, err := p.rt.Exec(ctx, name, []string{"getent", "hosts", p.MirrorHost}, runtime.ExecOptions{})
		if err != nil {
			return err
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("cannot resolve %s yet", p.MirrorHost)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cell network not ready: %w", err)
	}

	logging.Debug("cell network ready", "cell", name)
	return nil
}

// ConfigureProxy propagates an HTTP proxy into the cell's package
// manager and disables the mirror-selection plugin, which misbehaves
// behind proxies. A run without a proxy skips this entirely.
func (p *Provisioner) ConfigureProxy(ctx context.Context, name, proxyURL string) error {
	if proxyURL == "" {
		return nil
	}

	logging.Debug("configuring package manager proxy", "cell", name, "proxy", proxyURL)

	steps := [][]string{
		{"sh", "-c", "echo proxy=" + proxyURL + " >> /etc/yum.conf"},
		{"sed", "-i", "s/enabled=1/enabled=0/", "/etc/yum/pluginconf.d/fastestmirror.conf"},
	}

	for _, step := range steps {
		result, err := p.rt.Exec(ctx, name, step, runtime.ExecOptions{})
		if err != nil {
			return fmt.Errorf("proxy configuration failed: %w", err)
		}
		if result.ExitCode != 0 {
			return fmt.Errorf("proxy configuration failed: %s", strings.TrimSpace(result.Output()))
		}
	}

	return nil
}

// EnsureUser creates the unprivileged build account if the image does
// not already carry it.
func (p *Provisioner) EnsureUser(ctx context.Context, name, user string) error {
	if user == "" || user == "root" {
		return nil
	}

	result, err := p.rt.Exec(ctx, name, []string{"id", "-u", user}, runtime.ExecOptions{})
	if err != nil {
		return fmt.Errorf("failed to check user %s: %w", user, err)
	}
	if result.ExitCode == 0 {
		return nil
	}

	logging.Debug("creating build user", "cell", name, "user", user)
	result, err = p.rt.Exec(ctx, name, []string{"useradd", "-m", user}, runtime.ExecOptions{})
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", user, err)
	}
	if result.ExitCode != 0 {
		return fmt.Errorf("failed to create user %s: %s", user, strings.TrimSpace(result.Output()))
	}

	return nil
}
