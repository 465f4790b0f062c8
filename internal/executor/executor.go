// Package executor runs commands inside a cell, switching to the
// unprivileged build user when one is configured.
//
// Backends whose exec API takes a user name (see runtime.NamedUserExecer)
// get the name passed straight through. For everything else the command
// is wrapped in an in-cell privilege switch:
//
//	su -l <user> -s /bin/sh -c '<quoted command>'
//
// The login shell resets the working directory and environment, so both
// are re-established inside the quoted script.
package executor

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kballard/go-shellquote"

	"github.com/buildcell/cellctl/internal/runtime"
)

// Executor runs commands inside a named cell
type Executor struct {
	rt   runtime.Runtime
	cell string

	// User is the unprivileged account commands run as.
	// Empty or "root" means no privilege switch.
	User string
}

// New creates an executor bound to a cell
func New(rt runtime.Runtime, cell, user string) *Executor {
	return &Executor{rt: rt, cell: cell, User: user}
}

// Cell returns the name of the cell commands run in
func (e *Executor) Cell() string {
	return e.cell
}

// Run executes command as the configured user in workDir
func (e *Executor) Run(ctx context.Context, command []string, workDir string, env ...string) (*runtime.ExecResult, error) {
	return e.exec(ctx, command, runtime.ExecOptions{WorkingDir: workDir, Env: env})
}

// RunStdin executes command as the configured user with stdin attached
func (e *Executor) RunStdin(ctx context.Context, stdin io.Reader, command []string, workDir string, env ...string) (*runtime.ExecResult, error) {
	return e.exec(ctx, command, runtime.ExecOptions{WorkingDir: workDir, Env: env, Stdin: stdin})
}

// RunAsRoot executes command as root, bypassing the privilege switch
func (e *Executor) RunAsRoot(ctx context.Context, command []string, workDir string, env ...string) (*runtime.ExecResult, error) {
	return e.rt.Exec(ctx, e.cell, command, runtime.ExecOptions{WorkingDir: workDir, Env: env})
}

func (e *Executor) exec(ctx context.Context, command []string, opts runtime.ExecOptions) (*runtime.ExecResult, error) {
	if e.User == "" || e.User == "root" {
		return e.rt.Exec(ctx, e.cell, command, opts)
	}

	if named, ok := e.rt.(runtime.NamedUserExecer); ok && named.ExecAsUser() {
		opts.User = e.User
		return e.rt.Exec(ctx, e.cell, command, opts)
	}

	wrapped := []string{"su", "-l", e.User, "-s", "/bin/sh", "-c", e.loginScript(command, opts)}

	// Working dir and env travel inside the script; clear them so the
	// backend does not also apply them to the su process itself.
	opts.WorkingDir = ""
	opts.Env = nil

	return e.rt.Exec(ctx, e.cell, wrapped, opts)
}

// loginScript builds the shell script run by the login shell: exported
// environment, then a cd into the working directory, then the command.
func (e *Executor) loginScript(command []string, opts runtime.ExecOptions) string {
	var b strings.Builder

	for _, kv := range opts.Env {
		k, v, found := strings.Cut(kv, "=")
		if !found {
			continue
		}
		fmt.Fprintf(&b, "export %s=%s; ", k, shellquote.Join(v))
	}

	if opts.WorkingDir != "" {
		fmt.Fprintf(&b, "cd %s && ", shellquote.Join(opts.WorkingDir))
	}

	b.WriteString(shellquote.Join(command...))
	return b.String()
}
