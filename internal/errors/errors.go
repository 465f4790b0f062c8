package errors

import (
	"errors"
	"fmt"
)

// Exit codes for cellctl. A run exits zero only when every fatal step
// succeeded and no phase failed; all failures map to a non-zero exit.
const (
	ExitSuccess      = 0
	ExitGeneralError = 1
)

// CellError is the base error type for cellctl
type CellError struct {
	Code    int
	Message string
	Cause   error
}

func (e *CellError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CellError) Unwrap() error {
	return e.Cause
}

// ExitCode returns the exit code for this error
func (e *CellError) ExitCode() int {
	return e.Code
}

// New creates a new CellError
func New(code int, message string) *CellError {
	return &CellError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a CellError
func Wrap(code int, message string, cause error) *CellError {
	return &CellError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Common error constructors

// ProvisionFailed returns an error for a failed cell provisioning step
func ProvisionFailed(cause error) *CellError {
	return Wrap(ExitGeneralError, "cell provisioning failed", cause)
}

// BootstrapFailed returns an error for exhausted package bootstrap
func BootstrapFailed(cause error) *CellError {
	return Wrap(ExitGeneralError, "package bootstrap failed", cause)
}

// InjectFailed returns an error for a failed source injection
func InjectFailed(message string, cause error) *CellError {
	return Wrap(ExitGeneralError, fmt.Sprintf("source injection failed: %s", message), cause)
}

// PhasesFailed returns an error carrying the final phase error tally
func PhasesFailed(count int) *CellError {
	return New(ExitGeneralError, fmt.Sprintf("%d phase error(s)", count))
}

// CellNotFound returns an error for a missing cell
func CellNotFound(name string) *CellError {
	return New(ExitGeneralError, fmt.Sprintf("cell not found: %s", name))
}

// ConfigError returns an error for configuration issues
func ConfigError(message string, cause error) *CellError {
	return Wrap(ExitGeneralError, message, cause)
}

// RuntimeError returns an error for container runtime operations
func RuntimeError(op string, cause error) *CellError {
	return Wrap(ExitGeneralError, fmt.Sprintf("runtime %s failed", op), cause)
}

// ValidationError returns an error for input validation failures
func ValidationError(message string) *CellError {
	return New(ExitGeneralError, message)
}

// GetExitCode extracts the exit code from an error
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var cellErr *CellError
	if errors.As(err, &cellErr) {
		return cellErr.ExitCode()
	}
	return ExitGeneralError
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target any) bool {
	return errors.As(err, target)
}
