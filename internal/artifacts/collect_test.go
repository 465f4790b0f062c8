package artifacts

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/buildcell/cellctl/internal/executor"
	"github.com/buildcell/cellctl/internal/runtime"
)

const treeRoot = "/home/ci-user/cell-src"

func newCollector(m *runtime.MockRuntime) *Collector {
	return NewCollector(executor.New(m, "cellci-test", "ci-user"), treeRoot)
}

func TestCollect_PullsEachArtifact(t *testing.T) {
	m := runtime.NewMockRuntime()
	m.SetExecResult("for f in", &runtime.ExecResult{
		Stdout: "cloud-init-20.1.rpm\ncloud-init-20.1.tar.gz\n",
	})

	pulled, failed := newCollector(m).Collect(context.Background(), m, ".")
	if pulled != 2 || failed != 0 {
		t.Errorf("Collect = (%d, %d), want (2, 0)", pulled, failed)
	}

	want := []string{
		treeRoot + "/cloud-init-20.1.rpm",
		treeRoot + "/cloud-init-20.1.tar.gz",
	}
	if len(m.PulledFiles) != len(want) {
		t.Fatalf("PulledFiles = %v", m.PulledFiles)
	}
	for i, w := range want {
		if m.PulledFiles[i] != w {
			t.Errorf("PulledFiles[%d] = %q, want %q", i, m.PulledFiles[i], w)
		}
	}
}

func TestCollect_NoArtifacts(t *testing.T) {
	m := runtime.NewMockRuntime()
	// Unmatched globs echo their own pattern
	m.SetExecResult("for f in", &runtime.ExecResult{Stdout: "*.rpm\n*.tar.gz\n"})

	pulled, failed := newCollector(m).Collect(context.Background(), m, ".")
	if pulled != 0 || failed != 0 {
		t.Errorf("Collect = (%d, %d), want (0, 0)", pulled, failed)
	}
	if len(m.PulledFiles) != 0 {
		t.Errorf("PulledFiles = %v, want none", m.PulledFiles)
	}
}

func TestCollect_DestinationStaysInsideDestDir(t *testing.T) {
	m := runtime.NewMockRuntime()
	m.SetExecResult("for f in", &runtime.ExecResult{
		Stdout: "../../etc/evil.rpm\n..\ngood.rpm\n",
	})

	destDir := t.TempDir()
	pulled, failed := newCollector(m).Collect(context.Background(), m, destDir)
	if pulled != 2 || failed != 1 {
		t.Errorf("Collect = (%d, %d), want (2, 1)", pulled, failed)
	}

	for _, call := range m.GetCallsFor("PullFile") {
		dest := call.Args[2].(string)
		if filepath.Dir(dest) != destDir {
			t.Errorf("pull destination %q escaped %q", dest, destDir)
		}
	}
}

func TestCollect_PullFailureIsCountedNotFatal(t *testing.T) {
	m := runtime.NewMockRuntime()
	m.SetExecResult("for f in", &runtime.ExecResult{
		Stdout: "a.rpm\nb.rpm\n",
	})

	failing := &failingPuller{inner: m, failOn: treeRoot + "/a.rpm"}
	pulled, failed := newCollector(m).Collect(context.Background(), failing, ".")
	if pulled != 1 || failed != 1 {
		t.Errorf("Collect = (%d, %d), want (1, 1)", pulled, failed)
	}
}

func TestCollect_ListingFailure(t *testing.T) {
	m := runtime.NewMockRuntime()
	m.SetExecError("for f in", errors.New("cell gone"))

	pulled, failed := newCollector(m).Collect(context.Background(), m, ".")
	if pulled != 0 || failed != 1 {
		t.Errorf("Collect = (%d, %d), want (0, 1)", pulled, failed)
	}
}

type failingPuller struct {
	inner  *runtime.MockRuntime
	failOn string
}

func (f *failingPuller) PullFile(ctx context.Context, name, srcPath, destPath string) error {
	if srcPath == f.failOn {
		return errors.New("pull failed")
	}
	return f.inner.PullFile(ctx, name, srcPath, destPath)
}
