// Package phases runs the validation sequence inside a cell.
//
// Phases run in a fixed order as the unprivileged user, with the
// injected tree root as working directory. A failing phase is reported
// and counted but never stops the sequence: one run surfaces every
// failure, and the final tally decides the process exit status.
package phases

import (
	"context"
	"fmt"
	"strings"

	"github.com/buildcell/cellctl/internal/executor"
	"github.com/buildcell/cellctl/internal/logging"
	"github.com/buildcell/cellctl/internal/runtime"
)

// Phase is one step of the validation sequence
type Phase struct {
	// Name identifies the phase in output and the summary
	Name string

	// Command is the argv run in the tree root
	Command []string

	// AsRoot runs the phase with root privileges. Only package
	// installation needs this; everything else runs unprivileged.
	AsRoot bool
}

// Catalog returns the phase sequence in execution order. The selection
// flags choose which optional phases run; status-check always does.
// Dependency installation is needed only by the build and test phases,
// so a run with none of them enabled never touches the package mirror.
func Catalog(unittest, sourcePackage, binaryPackage bool) []Phase {
	var phases []Phase

	if unittest || sourcePackage || binaryPackage {
		phases = append(phases, Phase{
			Name:    "deps-install",
			Command: []string{"./tools/read-dependencies", "--distro", "centos", "--install"},
			AsRoot:  true,
		})
	}

	phases = append(phases, Phase{
		Name:    "status-check",
		Command: []string{"git", "status"},
	})

	if unittest {
		phases = append(phases, Phase{
			Name:    "unittest",
			Command: []string{"nosetests", "tests/unittests"},
		})
	}
	if sourcePackage {
		phases = append(phases, Phase{
			Name:    "srpm",
			Command: []string{"./packages/brpm", "--srpm"},
		})
	}
	if binaryPackage {
		phases = append(phases, Phase{
			Name:    "rpm",
			Command: []string{"./packages/brpm"},
		})
	}

	return phases
}

// Runner executes phases and tallies failures
type Runner struct {
	exec     *executor.Executor
	treeRoot string

	errorCount int
}

// NewRunner creates a runner executing phases in treeRoot
func NewRunner(exec *executor.Executor, treeRoot string) *Runner {
	return &Runner{exec: exec, treeRoot: treeRoot}
}

// ErrorCount returns the number of failed phases so far
func (r *Runner) ErrorCount() int {
	return r.errorCount
}

// Run executes every phase in order. The returned error covers
// transport failures only; phase failures are counted, reported, and
// never abort the sequence.
func (r *Runner) Run(ctx context.Context, phases []Phase) error {
	for _, phase := range phases {
		if err := r.runPhase(ctx, phase); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runPhase(ctx context.Context, phase Phase) error {
	logging.UserInfo("running phase %s", phase.Name)
	logging.Debug("phase command", "phase", phase.Name, "command", strings.Join(phase.Command, " "))

	var result *runtime.ExecResult
	var err error
	if phase.AsRoot {
		result, err = r.exec.RunAsRoot(ctx, phase.Command, r.treeRoot)
	} else {
		result, err = r.exec.Run(ctx, phase.Command, r.treeRoot)
	}
	if err != nil {
		return fmt.Errorf("phase %s could not run: %w", phase.Name, err)
	}

	if output := strings.TrimSpace(result.Output()); output != "" {
		logging.Debug("phase output", "phase", phase.Name, "output", output)
	}

	if result.ExitCode != 0 {
		r.errorCount++
		logging.UserError("phase %s failed (exit %d)", phase.Name, result.ExitCode)
		if output := strings.TrimSpace(result.Output()); output != "" {
			logging.UserError("%s", output)
		}
		return nil
	}

	logging.UserSuccess("phase %s passed", phase.Name)
	return nil
}
