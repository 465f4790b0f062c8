// Package config holds host configuration and naming rules for cellctl.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
)

const (
	// CellPrefix is prepended to the random identifier to form cell names.
	CellPrefix = "cellci-"

	// DefaultUser is the unprivileged account phases run under inside a cell.
	DefaultUser = "ci-user"

	// DefaultMirrorHost is resolved from inside a cell to probe network
	// readiness. It doubles as the package mirror the bootstrap installer
	// depends on.
	DefaultMirrorHost = "mirrorlist.centos.org"
)

// cellNameRegex validates cell names.
// Names must start with a lowercase letter or digit, followed by lowercase
// letters, digits, underscores, or hyphens. Maximum length is 63 characters
// (common container name limit).
var cellNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,62}$`)

// ValidateCellName checks if a cell name is valid.
func ValidateCellName(name string) error {
	if name == "" {
		return fmt.Errorf("cell name cannot be empty")
	}

	if !cellNameRegex.MatchString(name) {
		return fmt.Errorf("invalid cell name %q: must start with a lowercase letter or digit, contain only lowercase letters, digits, underscores, or hyphens, and be at most 63 characters", name)
	}

	return nil
}

// GenerateCellName returns a fresh cell name: the fixed prefix plus a
// random identifier. Uniqueness of the identifier is what isolates
// concurrent runs from each other.
func GenerateCellName() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return CellPrefix + id[:12]
}

// HostConfig is the optional host configuration loaded from config.toml.
type HostConfig struct {
	// Runtime selects the container backend ("lxd", "docker", "auto").
	Runtime string `toml:"runtime"`

	// MirrorHost overrides the hostname used for readiness probing.
	MirrorHost string `toml:"mirror_host"`

	// User overrides the unprivileged account phases run under.
	User string `toml:"user"`

	// Images maps an environment version to a base image reference,
	// overriding the built-in defaults.
	Images map[string]string `toml:"images"`
}

// DefaultConfigPath returns the host config location under the user's
// config directory.
func DefaultConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "cellctl", "config.toml")
}

// Load reads the host configuration. A missing file is not an error;
// defaults apply.
func Load(path string) (*HostConfig, error) {
	cfg := &HostConfig{
		Runtime:    "auto",
		MirrorHost: DefaultMirrorHost,
		User:       DefaultUser,
	}

	if path == "" {
		path = DefaultConfigPath()
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if cfg.MirrorHost == "" {
		cfg.MirrorHost = DefaultMirrorHost
	}
	if cfg.User == "" {
		cfg.User = DefaultUser
	}
	if cfg.Runtime == "" {
		cfg.Runtime = "auto"
	}

	return cfg, nil
}

// ImageForVersion resolves an environment version selector to a base
// image reference. Config overrides win; otherwise the version maps onto
// the LXD image server's CentOS alias scheme that the docker backend
// also understands.
func (c *HostConfig) ImageForVersion(version string) string {
	if img, ok := c.Images[version]; ok {
		return img
	}
	return "images:centos/" + version
}
