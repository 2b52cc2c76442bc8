package logging

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/rs/zerolog"
)

// JSONLogger emits one JSON object per message using zerolog.
// Verbose messages are logged at debug level and dropped unless verbose is set.
type JSONLogger struct {
	log zerolog.Logger
	mu  *sync.Mutex
}

// NewJSONLogger creates a JSONLogger writing to stderr.
func NewJSONLogger(verbose bool) *JSONLogger {
	return NewJSONLoggerTo(os.Stderr, verbose)
}

// NewJSONLoggerTo creates a JSONLogger writing to out.
func NewJSONLoggerTo(out io.Writer, verbose bool) *JSONLogger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return &JSONLogger{
		log: zerolog.New(out).Level(level).With().Timestamp().Str("app", "pgseed").Logger(),
		mu:  &sync.Mutex{},
	}
}

// With returns a logger that adds key=value to every message.
// The returned logger shares the writer lock of its parent.
func (l *JSONLogger) With(key, value string) *JSONLogger {
	return &JSONLogger{log: l.log.With().Str(key, value).Logger(), mu: l.mu}
}

func (l *JSONLogger) Verbose(format string, args ...interface{}) {
	l.emit(l.log.Debug(), format, args)
}

func (l *JSONLogger) Info(format string, args ...interface{}) {
	l.emit(l.log.Info(), format, args)
}

func (l *JSONLogger) Error(format string, args ...interface{}) {
	l.emit(l.log.Error(), format, args)
}

func (l *JSONLogger) emit(ev *zerolog.Event, format string, args []interface{}) {
	if ev == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(args) > 0 {
		ev.Msg(fmt.Sprintf(format, args...))
		return
	}
	ev.Msg(format)
}
