package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vvka-141/pgseed/pkg/pgseed"
)

func TestConsoleLogger_Prefixes(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, true)

	logger.Info("Table %q created", "ipl.teams")
	logger.Verbose("executing %s", "TRUNCATE")
	logger.Error("load failed: %v", "no such file")
	logger.Info("100% literal")

	assert.Equal(t,
		"Table \"ipl.teams\" created\n"+
			"[VERBOSE] executing TRUNCATE\n"+
			"[ERROR] load failed: no such file\n"+
			"100% literal\n",
		buf.String())
}

func TestConsoleLogger_VerboseDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, false)

	logger.Verbose("hidden %d", 1)

	assert.Empty(t, buf.String())
}

func TestConsoleLogger_ConcurrentSafety(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLoggerTo(&buf, true)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			logger.Info("message %d", id)
			logger.Verbose("verbose %d", id)
			logger.Error("error %d", id)
		}(i)
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 30)
}

func TestJSONLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLoggerTo(&buf, false).With("run_id", "abc")

	logger.Info("Schema %q created", "ipl")
	logger.Verbose("dropped")
	logger.Error("boom")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2, "debug line must be filtered")

	var first map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "info", first["level"])
	assert.Equal(t, `Schema "ipl" created`, first["message"])
	assert.Equal(t, "abc", first["run_id"])
	assert.Equal(t, "pgseed", first["app"])

	var second map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "error", second["level"])
}

func TestJSONLogger_VerboseEnabled(t *testing.T) {
	var buf bytes.Buffer
	logger := NewJSONLoggerTo(&buf, true)

	logger.Verbose("detail")

	assert.Contains(t, buf.String(), `"level":"debug"`)
}

func TestNew(t *testing.T) {
	l, err := New("", false)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleLogger{}, l)

	l, err = New(FormatConsole, false)
	require.NoError(t, err)
	assert.IsType(t, &ConsoleLogger{}, l)

	l, err = New("JSON", false)
	require.NoError(t, err)
	assert.IsType(t, &JSONLogger{}, l)

	_, err = New("xml", false)
	assert.ErrorIs(t, err, pgseed.ErrInvalidConfig)
}

func TestWithRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := WithRunID(NewJSONLoggerTo(&buf, false), "run-1")
	logger.Info("started")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "run-1", line["run_id"])

	console := NewConsoleLoggerTo(&buf, false)
	assert.Same(t, console, WithRunID(console, "run-1"))
}

func TestNullLogger_DiscardsAllMessages(t *testing.T) {
	logger := NewNullLogger()
	logger.Verbose("verbose")
	logger.Info("info")
	logger.Error("error")
}
