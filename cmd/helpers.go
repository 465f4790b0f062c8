package cmd

import (
	"github.com/buildcell/cellctl/internal/config"
	"github.com/buildcell/cellctl/internal/errors"
	"github.com/buildcell/cellctl/internal/runtime"
)

// loadConfig loads the host configuration with defaults applied
func loadConfig() (*config.HostConfig, error) {
	cfg, err := config.Load("")
	if err != nil {
		return nil, errors.ConfigError("failed to load host config", err)
	}
	return cfg, nil
}

// getRuntime configures the process-wide container runtime, preferring
// the command-line selection over the host config, and falling back to
// auto-detection. Every operation of one invocation shares the instance.
func getRuntime(flagValue string, cfg *config.HostConfig) (runtime.Runtime, error) {
	selected := flagValue
	if selected == "" {
		selected = cfg.Runtime
	}
	if selected == "" {
		selected = "auto"
	}

	if err := runtime.InitGlobal(&runtime.Config{
		Type:       runtime.RuntimeType(selected),
		CellPrefix: config.CellPrefix,
	}); err != nil {
		return nil, errors.RuntimeError("init", err)
	}
	return runtime.Global(), nil
}
