package executor

import (
	"context"
	"strings"
	"testing"

	"github.com/kballard/go-shellquote"

	"github.com/buildcell/cellctl/internal/runtime"
)

func lastExec(t *testing.T, m *runtime.MockRuntime) ([]string, runtime.ExecOptions) {
	t.Helper()
	calls := m.GetCallsFor("Exec")
	if len(calls) == 0 {
		t.Fatal("no Exec calls recorded")
	}
	last := calls[len(calls)-1]
	return last.Args[1].([]string), last.Args[2].(runtime.ExecOptions)
}

func TestRun_AsRootDirect(t *testing.T) {
	m := runtime.NewMockRuntime()
	e := New(m, "cellci-test", "")

	_, err := e.Run(context.Background(), []string{"yum", "install", "-y", "git"}, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	cmd, opts := lastExec(t, m)
	if strings.Join(cmd, " ") != "yum install -y git" {
		t.Errorf("command = %v", cmd)
	}
	if opts.User != "" {
		t.Errorf("User = %q, want empty", opts.User)
	}
}

func TestRun_NamedUserBackend(t *testing.T) {
	m := runtime.NewMockRuntime()
	m.NamedUser = true
	e := New(m, "cellci-test", "ci-user")

	_, err := e.Run(context.Background(), []string{"git", "status"}, "/home/ci-user/cell-src")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	cmd, opts := lastExec(t, m)
	if strings.Join(cmd, " ") != "git status" {
		t.Errorf("command = %v, want unchanged argv", cmd)
	}
	if opts.User != "ci-user" {
		t.Errorf("User = %q, want %q", opts.User, "ci-user")
	}
	if opts.WorkingDir != "/home/ci-user/cell-src" {
		t.Errorf("WorkingDir = %q", opts.WorkingDir)
	}
}

func TestRun_PrivilegeSwitchWrapping(t *testing.T) {
	m := runtime.NewMockRuntime()
	e := New(m, "cellci-test", "ci-user")

	_, err := e.Run(context.Background(), []string{"git", "log", "--format=%H"}, "/home/ci-user/cell-src")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	cmd, opts := lastExec(t, m)
	want := []string{"su", "-l", "ci-user", "-s", "/bin/sh", "-c"}
	if len(cmd) != len(want)+1 {
		t.Fatalf("command = %v", cmd)
	}
	for i, w := range want {
		if cmd[i] != w {
			t.Fatalf("command[%d] = %q, want %q", i, cmd[i], w)
		}
	}

	script := cmd[len(cmd)-1]
	if !strings.HasPrefix(script, "cd /home/ci-user/cell-src && ") {
		t.Errorf("script missing cd prefix: %q", script)
	}
	if !strings.Contains(script, "git log --format=%H") {
		t.Errorf("script missing command: %q", script)
	}

	// Working dir must not leak to the su process itself
	if opts.WorkingDir != "" {
		t.Errorf("WorkingDir = %q, want empty", opts.WorkingDir)
	}
}

func TestRun_PrivilegeSwitchQuoting(t *testing.T) {
	m := runtime.NewMockRuntime()
	e := New(m, "cellci-test", "ci-user")

	_, err := e.Run(context.Background(), []string{"sh", "-c", "echo 'a b' > out.txt"}, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	cmd, _ := lastExec(t, m)
	script := cmd[len(cmd)-1]

	// The quoted script must reproduce the original argv when the
	// shell parses it back
	words, err := shellquote.Split(script)
	if err != nil {
		t.Fatalf("script does not parse: %v", err)
	}
	want := []string{"sh", "-c", "echo 'a b' > out.txt"}
	if len(words) != len(want) {
		t.Fatalf("parsed script = %v, want %v", words, want)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Errorf("parsed[%d] = %q, want %q", i, words[i], want[i])
		}
	}
}

func TestRun_PrivilegeSwitchEnv(t *testing.T) {
	m := runtime.NewMockRuntime()
	e := New(m, "cellci-test", "ci-user")

	_, err := e.Run(context.Background(), []string{"env"}, "", "http_proxy=http://proxy:3128")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	cmd, opts := lastExec(t, m)
	script := cmd[len(cmd)-1]
	if !strings.Contains(script, "export http_proxy=http://proxy:3128; ") {
		t.Errorf("script missing env export: %q", script)
	}
	if len(opts.Env) != 0 {
		t.Errorf("Env leaked to su process: %v", opts.Env)
	}
}

func TestRunAsRoot_BypassesSwitch(t *testing.T) {
	m := runtime.NewMockRuntime()
	e := New(m, "cellci-test", "ci-user")

	_, err := e.RunAsRoot(context.Background(), []string{"yum", "clean", "all"}, "")
	if err != nil {
		t.Fatalf("RunAsRoot failed: %v", err)
	}

	cmd, _ := lastExec(t, m)
	if cmd[0] != "yum" {
		t.Errorf("command = %v, want direct argv", cmd)
	}
}
