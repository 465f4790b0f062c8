package cell

import (
	"context"

	"github.com/buildcell/cellctl/internal/artifacts"
	"github.com/buildcell/cellctl/internal/bootstrap"
	"github.com/buildcell/cellctl/internal/config"
	"github.com/buildcell/cellctl/internal/errors"
	"github.com/buildcell/cellctl/internal/executor"
	"github.com/buildcell/cellctl/internal/inject"
	"github.com/buildcell/cellctl/internal/logging"
	"github.com/buildcell/cellctl/internal/phases"
	"github.com/buildcell/cellctl/internal/runtime"
)

// RunOptions configures a validation run
type RunOptions struct {
	// Image is the base image the cell boots from
	Image string

	// RepoDir is the host working tree to inject
	RepoDir string

	// User is the unprivileged account phases run under
	User string

	// MirrorHost overrides the readiness probe target
	MirrorHost string

	// ProxyURL, when set, is propagated into the cell's package manager
	ProxyURL string

	// Unittest, SourcePackage, BinaryPackage select optional phases
	Unittest      bool
	SourcePackage bool
	BinaryPackage bool

	// ApplyDirty applies uncommitted changes inside the cell instead of
	// preserving them as a sidecar patch
	ApplyDirty bool

	// Keep leaves the cell running after the run
	Keep bool

	// ArtifactsDir, when set, receives build outputs pulled from the cell
	ArtifactsDir string
}

// RunReport summarizes a completed run
type RunReport struct {
	// Cell is the name of the provisioned cell
	Cell string

	// PhaseErrors is the final error tally: failed phases plus failed
	// artifact pulls
	PhaseErrors int

	// ArtifactsPulled counts build outputs retrieved to the host
	ArtifactsPulled int

	// Kept reports whether the cell was left running
	Kept bool
}

// Run drives one full validation run: provision, bootstrap, inject,
// phases, artifacts. Teardown actions are registered on cleanups at
// acquisition; the caller runs the stack on every exit path.
//
// Provisioning, bootstrap, and injection failures are fatal. Phase
// failures are tallied and surface as a PhasesFailed error after the
// whole sequence has run.
func Run(ctx context.Context, rt runtime.Runtime, cleanups *Cleanups, opts RunOptions) (*RunReport, error) {
	// Inspect the host tree before creating anything: a broken repo
	// should not cost a container launch
	snap, err := inject.TakeSnapshot(opts.RepoDir)
	if err != nil {
		return nil, errors.InjectFailed("snapshot", err)
	}

	name := config.GenerateCellName()
	report := &RunReport{Cell: name, Kept: opts.Keep}

	prov := NewProvisioner(rt, opts.MirrorHost)
	if err := prov.Create(ctx, opts.Image, name); err != nil {
		return report, errors.ProvisionFailed(err)
	}

	// The cell is live from here on; teardown must cover every path
	cleanups.Push("cell "+name, func() {
		if opts.Keep {
			logging.UserInfo("cell kept: %s", name)
			return
		}
		if err := rt.Destroy(context.Background(), name); err != nil {
			logging.Warn("failed to destroy cell", "cell", name, "error", err)
		}
	})

	if err := prov.WaitReady(ctx, name); err != nil {
		return report, errors.ProvisionFailed(err)
	}
	if err := prov.ConfigureProxy(ctx, name, opts.ProxyURL); err != nil {
		return report, errors.ProvisionFailed(err)
	}
	if err := prov.EnsureUser(ctx, name, opts.User); err != nil {
		return report, errors.ProvisionFailed(err)
	}

	exec := executor.New(rt, name, opts.User)

	if err := bootstrap.New(exec).EnsurePrereqs(ctx); err != nil {
		return report, errors.BootstrapFailed(err)
	}

	injector := inject.New(exec, opts.User)
	if err := injector.Inject(ctx, snap, opts.ApplyDirty); err != nil {
		return report, errors.InjectFailed("transfer", err)
	}

	runner := phases.NewRunner(exec, injector.TreeRoot())
	catalog := phases.Catalog(opts.Unittest, opts.SourcePackage, opts.BinaryPackage)
	if err := runner.Run(ctx, catalog); err != nil {
		return report, errors.RuntimeError("exec", err)
	}
	report.PhaseErrors = runner.ErrorCount()

	if opts.ArtifactsDir != "" {
		collector := artifacts.NewCollector(exec, injector.TreeRoot())
		pulled, failed := collector.Collect(ctx, rt, opts.ArtifactsDir)
		report.ArtifactsPulled = pulled
		report.PhaseErrors += failed
	}

	if report.PhaseErrors > 0 {
		logging.UserError("run finished with %d error(s)", report.PhaseErrors)
		return report, errors.PhasesFailed(report.PhaseErrors)
	}

	logging.UserSuccess("run finished with 0 errors")
	return report, nil
}
