package inject

import (
	"context"
	"strings"
	"testing"

	"github.com/buildcell/cellctl/internal/executor"
	"github.com/buildcell/cellctl/internal/runtime"
	"github.com/buildcell/cellctl/internal/testutil"
)

func newInjector(m *runtime.MockRuntime) *Injector {
	return New(executor.New(m, "cellci-test", "ci-user"), "ci-user")
}

func commandsContaining(m *runtime.MockRuntime, pattern string) []string {
	var matched []string
	for _, cmd := range m.ExecCommands() {
		if strings.Contains(cmd, pattern) {
			matched = append(matched, cmd)
		}
	}
	return matched
}

func TestTreeRoot(t *testing.T) {
	m := runtime.NewMockRuntime()

	inj := New(executor.New(m, "cellci-test", "ci-user"), "ci-user")
	if got := inj.TreeRoot(); got != "/home/ci-user/cell-src" {
		t.Errorf("TreeRoot() = %q", got)
	}

	inj = New(executor.New(m, "cellci-test", ""), "")
	if got := inj.TreeRoot(); got != "/root/cell-src" {
		t.Errorf("TreeRoot() for root = %q", got)
	}
}

func TestInject_CleanTree(t *testing.T) {
	dir := testutil.InitGitRepo(t)
	snap, err := TakeSnapshot(dir)
	if err != nil {
		t.Fatal(err)
	}

	m := runtime.NewMockRuntime()
	if err := newInjector(m).Inject(context.Background(), snap, false); err != nil {
		t.Fatalf("Inject failed: %v", err)
	}

	if len(commandsContaining(m, "tar -C /home/ci-user/cell-src/.git -xpf -")) != 1 {
		t.Error("missing archive unpack command")
	}
	if len(commandsContaining(m, "git checkout main")) != 1 {
		t.Error("missing ref checkout")
	}
	if len(commandsContaining(m, "git checkout .")) != 1 {
		t.Error("missing working tree checkout")
	}
	if len(commandsContaining(m, "git apply")) != 0 {
		t.Error("clean tree must not apply a diff")
	}
	if len(commandsContaining(m, SidecarDiffName)) != 0 {
		t.Error("clean tree must not write a sidecar patch")
	}
}

func TestInject_DirtyApplied(t *testing.T) {
	dir := testutil.InitGitRepo(t)
	testutil.WriteFile(t, dir, "README", "changed\n")
	snap, err := TakeSnapshot(dir)
	if err != nil {
		t.Fatal(err)
	}

	m := runtime.NewMockRuntime()
	if err := newInjector(m).Inject(context.Background(), snap, true); err != nil {
		t.Fatalf("Inject failed: %v", err)
	}

	if len(commandsContaining(m, "git apply")) != 1 {
		t.Error("dirty tree with apply mode must run git apply")
	}
	if len(commandsContaining(m, SidecarDiffName)) != 0 {
		t.Error("apply mode must not write a sidecar patch")
	}
}

func TestInject_DirtySidecar(t *testing.T) {
	dir := testutil.InitGitRepo(t)
	testutil.WriteFile(t, dir, "README", "changed\n")
	snap, err := TakeSnapshot(dir)
	if err != nil {
		t.Fatal(err)
	}

	m := runtime.NewMockRuntime()
	if err := newInjector(m).Inject(context.Background(), snap, false); err != nil {
		t.Fatalf("Inject failed: %v", err)
	}

	if len(commandsContaining(m, "cat > "+SidecarDiffName)) != 1 {
		t.Error("committed-only mode must write the sidecar patch")
	}
	if len(commandsContaining(m, "git apply")) != 0 {
		t.Error("committed-only mode must not apply the diff")
	}
}

func TestInject_CheckoutFailureIsFatal(t *testing.T) {
	dir := testutil.InitGitRepo(t)
	snap, err := TakeSnapshot(dir)
	if err != nil {
		t.Fatal(err)
	}

	m := runtime.NewMockRuntime()
	m.SetExecResult("git checkout main", &runtime.ExecResult{
		ExitCode: 1,
		Stderr:   "pathspec 'main' did not match",
	})

	err = newInjector(m).Inject(context.Background(), snap, false)
	if err == nil {
		t.Fatal("expected checkout failure")
	}
	if !strings.Contains(err.Error(), "pathspec") {
		t.Errorf("error must carry remote output: %v", err)
	}
}

func TestInject_ApplyFailureIsFatal(t *testing.T) {
	dir := testutil.InitGitRepo(t)
	testutil.WriteFile(t, dir, "README", "changed\n")
	snap, err := TakeSnapshot(dir)
	if err != nil {
		t.Fatal(err)
	}

	m := runtime.NewMockRuntime()
	m.SetExecResult("git apply", &runtime.ExecResult{
		ExitCode: 1,
		Stderr:   "patch does not apply",
	})

	err = newInjector(m).Inject(context.Background(), snap, true)
	if err == nil {
		t.Fatal("expected apply failure")
	}
	if !strings.Contains(err.Error(), "patch does not apply") {
		t.Errorf("error = %v", err)
	}
}
