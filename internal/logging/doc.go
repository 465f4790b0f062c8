// Package logging provides logging utilities for cellctl.
//
// This package provides two categories of output:
//   - Debug logging: Structured logs for debugging (via slog)
//   - User output: Formatted messages for end users
//
// # Debug Logging
//
// Debug logs are written using slog and controlled by verbosity settings:
//
//	logging.Debug("creating cell", "name", name, "image", image)
//	logging.Warn("network not ready", "attempt", attempt)
//
// # User Output
//
// User-facing messages are formatted with status indicators:
//
//	logging.UserInfo("Provisioning cell %s...", name)
//	logging.UserSuccess("Cell %s ready", name)
//	logging.UserWarning("Local changes will not be applied")
//	logging.UserError("Phase %s failed: %v", phase, err)
//
// Output destinations:
//   - UserInfo, UserSuccess: stdout
//   - UserWarning, UserError: stderr
package logging
