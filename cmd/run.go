package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/buildcell/cellctl/internal/cell"
	"github.com/buildcell/cellctl/internal/errors"
)

var runCmd = &cobra.Command{
	Use:   "run <version>",
	Short: "Validate the current git tree inside a fresh cell",
	Long: `run provisions a cell from the base image for <version>, injects the
git working tree rooted at the current directory, and runs the
validation phases inside it.

Dependency installation and a repository sanity check always run; unit
tests and package builds are opt-in. The phase error tally decides the
exit status, and the cell is destroyed on every exit path unless --keep
is given.`,
	Example: `  # Unit tests against CentOS 7
  cellctl run 7 --unittest

  # Full validation with package builds, pulling artifacts back
  cellctl run 7 -u -s -b --artifacts

  # Include uncommitted changes
  cellctl run 7 -u --dirty`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runRun,
}

var (
	runUnittest  bool
	runSrpm      bool
	runRpm       bool
	runDirty     bool
	runKeep      bool
	runArtifacts bool
	runImage     string
	runRuntime   string
)

func init() {
	runCmd.Flags().BoolVarP(&runUnittest, "unittest", "u", false, "Run the unit test phase")
	runCmd.Flags().BoolVarP(&runSrpm, "source-package", "s", false, "Build the source package")
	runCmd.Flags().BoolVarP(&runRpm, "binary-package", "b", false, "Build the binary package")
	runCmd.Flags().BoolVarP(&runDirty, "dirty", "d", false, "Apply uncommitted local changes inside the cell")
	runCmd.Flags().BoolVarP(&runKeep, "keep", "k", false, "Keep the cell after the run")
	runCmd.Flags().BoolVarP(&runArtifacts, "artifacts", "a", false, "Pull build outputs into the current directory")
	runCmd.Flags().StringVar(&runImage, "image", "", "Override the base image for <version>")
	runCmd.Flags().StringVar(&runRuntime, "runtime", "", "Container runtime (lxd, docker, auto)")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rt, err := getRuntime(runRuntime, cfg)
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return errors.ConfigError("cannot determine working directory", err)
	}

	image := runImage
	if image == "" {
		image = cfg.ImageForVersion(args[0])
	}

	artifactsDir := ""
	if runArtifacts {
		artifactsDir = cwd
	}

	// Interrupts cancel the run; the deferred stack still tears the
	// cell down before the process exits.
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cleanups := cell.NewCleanups()
	defer cleanups.Run()

	report, err := cell.Run(ctx, rt, cleanups, cell.RunOptions{
		Image:         image,
		RepoDir:       cwd,
		User:          cfg.User,
		MirrorHost:    cfg.MirrorHost,
		ProxyURL:      proxyFromEnv(),
		Unittest:      runUnittest,
		SourcePackage: runSrpm,
		BinaryPackage: runRpm,
		ApplyDirty:    runDirty,
		Keep:          runKeep,
		ArtifactsDir:  artifactsDir,
	})
	if err != nil {
		return err
	}

	if report.ArtifactsPulled > 0 {
		logInfo("%d artifact(s) in %s", report.ArtifactsPulled, artifactsDir)
	}
	return nil
}

// proxyFromEnv picks up the host's HTTP proxy for propagation into the
// cell's package manager.
func proxyFromEnv() string {
	for _, key := range []string{"http_proxy", "HTTP_PROXY"} {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
