// Package errors provides typed errors with exit codes for cellctl.
//
// # Error Types
//
// CellError is the base error type that wraps an error with an exit code:
//
//	type CellError struct {
//	    Code    int    // Exit code
//	    Message string // User-facing message
//	    Cause   error  // Wrapped error
//	}
//
// # Exit Codes
//
// cellctl exits zero on success and one on any failure, fatal or counted:
//
//	ExitSuccess      = 0  // Success
//	ExitGeneralError = 1  // Any fatal step failure or non-zero phase tally
//
// # Error Constructors
//
// Use the provided constructors for consistent error creation:
//
//	errors.ProvisionFailed(err)
//	errors.InjectFailed("checkout", err)
//	errors.PhasesFailed(2)
//
// # Extracting Exit Codes
//
// Use GetExitCode to extract the exit code from an error chain:
//
//	if err != nil {
//	    os.Exit(errors.GetExitCode(err))
//	}
package errors
