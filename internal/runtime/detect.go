package runtime

import (
	"fmt"
	"os/exec"
	goruntime "runtime"

	"github.com/buildcell/cellctl/internal/logging"
)

// RuntimeType identifies which container runtime to use
type RuntimeType string

const (
	RuntimeLXD    RuntimeType = "lxd"
	RuntimeDocker RuntimeType = "docker"
	RuntimeAuto   RuntimeType = "auto"
)

// Config holds runtime configuration
type Config struct {
	// Type specifies which runtime to use (or "auto" for auto-detection)
	Type RuntimeType

	// CellPrefix is prepended to cell names
	CellPrefix string
}

// DefaultConfig returns the default runtime configuration
func DefaultConfig() *Config {
	return &Config{
		Type:       RuntimeAuto,
		CellPrefix: "cellci-",
	}
}

// Detect determines which container runtime is available on the system.
// Returns the RuntimeType and any error encountered.
func Detect() (RuntimeType, error) {
	logging.Debug("detecting container runtime", "os", goruntime.GOOS)

	// Prefer LXD, whose system containers boot a full init and so
	// behave closest to a real host
	if _, err := exec.LookPath("lxc"); err == nil {
		logging.Debug("detected lxd")
		return RuntimeLXD, nil
	}

	if _, err := exec.LookPath("docker"); err == nil {
		logging.Debug("detected docker")
		return RuntimeDocker, nil
	}

	return "", fmt.Errorf("no supported container runtime found (tried: lxc, docker)")
}

// New creates a new Runtime based on the configuration.
// If Type is RuntimeAuto, it auto-detects the best runtime.
func New(cfg *Config) (Runtime, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	runtimeType := cfg.Type
	if runtimeType == RuntimeAuto {
		detected, err := Detect()
		if err != nil {
			return nil, err
		}
		runtimeType = detected
	}

	logging.Debug("creating runtime", "type", runtimeType)

	switch runtimeType {
	case RuntimeLXD:
		return NewLXDRuntime(cfg.CellPrefix)

	case RuntimeDocker:
		return NewDockerRuntime(cfg.CellPrefix)

	default:
		return nil, fmt.Errorf("unknown runtime type: %s", runtimeType)
	}
}

// Available returns a list of available runtimes on this system
func Available() []RuntimeType {
	var available []RuntimeType

	if _, err := exec.LookPath("lxc"); err == nil {
		available = append(available, RuntimeLXD)
	}

	if _, err := exec.LookPath("docker"); err == nil {
		available = append(available, RuntimeDocker)
	}

	return available
}
