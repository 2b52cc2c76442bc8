package logging

import (
	"fmt"
	"strings"

	"github.com/vvka-141/pgseed/pkg/pgseed"
)

// Format names accepted by New.
const (
	FormatConsole = "console"
	FormatText    = "text"
	FormatJSON    = "json"
)

// New returns the logger for a --log-format value.
func New(format string, verbose bool) (pgseed.Logger, error) {
	switch strings.ToLower(format) {
	case "", FormatConsole, FormatText:
		return NewConsoleLogger(verbose), nil
	case FormatJSON:
		return NewJSONLogger(verbose), nil
	default:
		return nil, fmt.Errorf("unknown log format %q (want console or json): %w", format, pgseed.ErrInvalidConfig)
	}
}

// WithRunID tags every line of a JSON logger with run_id. Other loggers are
// returned unchanged.
func WithRunID(logger pgseed.Logger, runID string) pgseed.Logger {
	if l, ok := logger.(*JSONLogger); ok {
		return l.With("run_id", runID)
	}
	return logger
}

var (
	_ pgseed.Logger = (*ConsoleLogger)(nil)
	_ pgseed.Logger = (*JSONLogger)(nil)
	_ pgseed.Logger = (*NullLogger)(nil)
)
