// Package runtime provides a unified interface for container runtimes.
//
// Supported runtimes:
//   - lxd: LXD system containers via the lxc client (Linux)
//   - docker: Docker containers via the Engine API
//
// Runtime selection is automatic based on available tools; LXD wins
// when both are present because its system containers run a full init.
// Use Global() to get the detected runtime, or construct specific
// implementations directly for testing.
//
// # Runtime Interface
//
// The Runtime interface defines operations common to all cell backends:
//   - Create, Destroy: Cell lifecycle
//   - IsRunning: Cell state queries
//   - Exec: Command execution inside cells, with optional stdin
//   - PullFile: Copy a file out of a cell to the host
//   - List: Enumerate all managed cells
//
// Exec reports the command's exit code in ExecResult rather than as an
// error; a non-nil error means the command could not be run at all.
//
// # Named-User Execution
//
// Backends whose exec API accepts a user name directly additionally
// implement NamedUserExecer. Callers that need commands run as an
// unprivileged user check for it and otherwise wrap the command in a
// privilege switch themselves.
//
// # Mock Runtime
//
// For testing, use NewMockRuntime() to create a mock implementation that
// can be configured with expected responses and used to verify command
// execution.
package runtime
