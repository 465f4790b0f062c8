package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/buildcell/cellctl/internal/config"
	"github.com/buildcell/cellctl/internal/errors"
)

var destroyRuntime string

var destroyCmd = &cobra.Command{
	Use:          "destroy <name>",
	Short:        "Destroy a kept cell",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runDestroy,
}

func init() {
	destroyCmd.Flags().StringVar(&destroyRuntime, "runtime", "", "Container runtime (lxd, docker, auto)")
	rootCmd.AddCommand(destroyCmd)
}

func runDestroy(cmd *cobra.Command, args []string) error {
	name := args[0]

	// Only cells this tool created are fair game
	if !strings.HasPrefix(name, config.CellPrefix) {
		return errors.ValidationError("not a cellctl cell: " + name)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := getRuntime(destroyRuntime, cfg)
	if err != nil {
		return err
	}

	cells, err := rt.List(cmd.Context())
	if err != nil {
		return errors.RuntimeError("list", err)
	}

	found := false
	for _, c := range cells {
		if c.Name == name {
			found = true
			break
		}
	}
	if !found {
		return errors.CellNotFound(name)
	}

	if err := rt.Destroy(cmd.Context(), name); err != nil {
		return errors.RuntimeError("destroy", err)
	}

	logSuccess("destroyed %s", name)
	return nil
}
