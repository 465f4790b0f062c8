package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listRuntime string

var listCmd = &cobra.Command{
	Use:          "list",
	Short:        "List live cells",
	SilenceUsage: true,
	RunE:         runList,
}

func init() {
	listCmd.Flags().StringVar(&listRuntime, "runtime", "", "Container runtime (lxd, docker, auto)")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := getRuntime(listRuntime, cfg)
	if err != nil {
		return err
	}

	cells, err := rt.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list cells: %w", err)
	}

	if len(cells) == 0 {
		logInfo("no cells found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tIMAGE\tSTARTED")
	for _, c := range cells {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Name, c.Status, c.Image, c.StartedAt)
	}

	return w.Flush()
}
