package pgseed

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess         = 0  // Run completed (individual steps may still have failed)
	ExitGeneralError    = 1  // Unknown or unclassified error
	ExitUsageError      = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic           = 3  // Internal panic (unexpected crash)
	ExitConfigError     = 10 // Invalid configuration or catalog
	ExitConnectionError = 11 // Failed to connect to database
	ExitApprovalDenied  = 12 // User denied the destructive run
	ExitPartialFailure  = 13 // One or more steps failed and --strict was set
)

const (
	// DefaultForceApprovalCountdown is the countdown duration before force approval proceeds.
	DefaultForceApprovalCountdown = 5 * time.Second

	// DefaultRetryInitialDelay is the default initial delay before the first retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the default maximum delay between retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultConnectRetries is the number of connection retries. Connection
	// failures propagate immediately unless the user opts in.
	DefaultConnectRetries = 0

	// DefaultManagementDB is the database used for CREATE/DROP DATABASE.
	DefaultManagementDB = "postgres"

	// DefaultHost, DefaultUser and DefaultPassword match the docker-compose
	// service the loader was written against.
	DefaultHost     = "postgres"
	DefaultPort     = 5432
	DefaultUser     = "postgres"
	DefaultPassword = "postgres"

	// DefaultTimeout bounds a whole run.
	DefaultTimeout = 30 * time.Minute

	// DefaultAppName is reported as application_name to the server.
	DefaultAppName = "pgseed"
)
