// Package logging provides concrete implementations of the pgseed.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: plain text lines on stderr, the default
//   - JSONLogger: one zerolog JSON object per line, for log shippers
//   - NullLogger: discards everything (tests)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
