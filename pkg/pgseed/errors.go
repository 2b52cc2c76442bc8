package pgseed

import (
	"errors"
	"strings"
)

// Sentinel errors for common failure scenarios.
// These enable callers to distinguish error types using errors.Is().
//
// Example usage:
//
//	report, err := svc.Run(ctx, cat, opts)
//	if errors.Is(err, pgseed.ErrConnectionFailed) {
//	    // nothing past the failed scope was attempted
//	}
var (
	// ErrInvalidConfig indicates the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidCatalog indicates the catalog failed validation.
	ErrInvalidCatalog = errors.New("invalid catalog")

	// ErrApprovalDenied indicates the user denied approval for the operation.
	ErrApprovalDenied = errors.New("approval denied")

	// ErrPartialFailure indicates at least one step of a run failed.
	ErrPartialFailure = errors.New("one or more steps failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")

	// ErrConnectionFailed indicates database connection failed.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrSourceNotFound indicates a CSV source could not be located.
	ErrSourceNotFound = errors.New("source not found")

	// ErrUnsupportedSource indicates a source location uses an unknown scheme
	// or a scheme that is not configured.
	ErrUnsupportedSource = errors.New("unsupported source")
)

// usageErrorPatterns are message fragments produced by cobra/pflag on misuse.
var usageErrorPatterns = []string{
	"unknown flag",
	"unknown shorthand flag",
	"unknown command",
	"accepts ",
	"required flag",
	"invalid argument",
}

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrInvalidConfig), errors.Is(err, ErrInvalidCatalog):
		return ExitConfigError
	case errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrApprovalDenied):
		return ExitApprovalDenied
	case errors.Is(err, ErrConnectionFailed):
		return ExitConnectionError
	case errors.Is(err, ErrPartialFailure):
		return ExitPartialFailure
	}

	errStr := err.Error()
	for _, p := range usageErrorPatterns {
		if strings.Contains(errStr, p) {
			return ExitUsageError
		}
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
