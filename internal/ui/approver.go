package ui

import "github.com/vvka-141/pgseed/pkg/pgseed"

// NewApprover selects the approver for a run. Without a terminal there is
// nobody to type the database name, so the countdown is used instead.
func NewApprover(force bool, mode Mode, verbose bool) pgseed.Approver {
	if force || mode == ModeNonInteractive {
		return NewForcedApprover(verbose)
	}
	return NewInteractiveApprover(verbose)
}
