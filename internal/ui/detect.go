package ui

import (
	"os"

	"golang.org/x/term"
)

// Mode represents the interaction mode for pgseed.
type Mode int

const (
	// ModeNonInteractive is used for CI/CD pipelines, scripts, and piped input.
	ModeNonInteractive Mode = iota
	// ModeInteractive is used when a human is at the terminal.
	ModeInteractive
)

// DetectMode determines whether pgseed can prompt the user.
//
// Returns ModeNonInteractive if:
//   - PGSEED_NON_INTERACTIVE=1 is set
//   - CI is set (common CI/CD convention)
//   - stdin or stderr is not a terminal
func DetectMode() Mode {
	if os.Getenv("PGSEED_NON_INTERACTIVE") == "1" {
		return ModeNonInteractive
	}
	if os.Getenv("CI") != "" {
		return ModeNonInteractive
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return ModeNonInteractive
	}
	// Prompts go to stderr.
	if !term.IsTerminal(int(os.Stderr.Fd())) {
		return ModeNonInteractive
	}
	return ModeInteractive
}

// IsInteractive is a convenience function that returns true if running in interactive mode.
func IsInteractive() bool {
	return DetectMode() == ModeInteractive
}
