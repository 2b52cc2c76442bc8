package pgseed

import "context"

// Approver handles user interaction before destructive operations such as
// dropping and recreating a database.
//
// Implementations:
//   - ForcedApprover: Shows countdown and automatically approves
//   - InteractiveApprover: Prompts user to type database name for confirmation
type Approver interface {
	// RequestApproval prompts for confirmation before dropping and recreating a database.
	// Returns true if approved.
	RequestApproval(ctx context.Context, dbName string) (bool, error)
}
