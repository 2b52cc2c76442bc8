package ui

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// ForcedApprover implements the Approver interface for forced (non-interactive)
// approval. It displays a countdown and automatically approves after the countdown,
// used when the --force flag is provided or no terminal is attached.
type ForcedApprover struct {
	verbose bool
	output  io.Writer
	sleepFn func(time.Duration)
}

// NewForcedApprover creates a new ForcedApprover writing to stderr.
func NewForcedApprover(verbose bool) pgseed.Approver {
	return &ForcedApprover{verbose: verbose, output: os.Stderr, sleepFn: time.Sleep}
}

// RequestApproval displays a countdown and automatically approves after the countdown.
func (a *ForcedApprover) RequestApproval(ctx context.Context, dbName string) (bool, error) {
	fmt.Fprintln(a.output)
	fmt.Fprintln(a.output, DangerStyle.Render(fmt.Sprintf(
		"DANGER: database %q will be DROPPED and RECREATED.\nAll data in it will be lost.", dbName)))

	countdownSeconds := int(pgseed.DefaultForceApprovalCountdown.Seconds())
	for i := countdownSeconds; i > 0; i-- {
		select {
		case <-ctx.Done():
			fmt.Fprintln(a.output)
			return false, ctx.Err()
		default:
			fmt.Fprintf(a.output, "\rDropping in: %d seconds... (Press Ctrl+C to cancel)", i)
			a.sleepFn(time.Second)
		}
	}
	if err := ctx.Err(); err != nil {
		fmt.Fprintln(a.output)
		return false, err
	}

	fmt.Fprintf(a.output, "\r%s\n", SuccessStyle.Render("Proceeding with database recreate...                    "))
	return true, nil
}

// Verify ForcedApprover implements the Approver interface at compile time
var _ pgseed.Approver = (*ForcedApprover)(nil)
