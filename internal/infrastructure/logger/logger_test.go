package logger

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func readEntries(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var entries []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		entries = append(entries, entry)
	}
	require.NoError(t, scanner.Err())
	return entries
}

func TestLevelOf(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"DEBUG":   zapcore.DebugLevel,
		" info ":  zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"fatal":   zapcore.FatalLevel,
		"bogus":   zapcore.InfoLevel,
		"":        zapcore.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, levelOf(in), "level %q", in)
	}
}

func TestOpenSink(t *testing.T) {
	for _, output := range []string{"stdout", "stderr", "STDOUT", ""} {
		sink, err := openSink(output)
		require.NoError(t, err, output)
		assert.NotNil(t, sink)
	}

	_, err := openSink(filepath.Join(t.TempDir(), "missing", "dir", "app.log"))
	assert.ErrorContains(t, err, "open log output")
}

func TestNew_JSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "splitter.log")

	l, err := New(&Config{Level: "debug", Format: "json", Output: path}, zap.String("app", "labflow"))
	require.NoError(t, err)

	l.Debug("job created", zap.String("job_id", "j-1"))
	l.Info("split completed", zap.Int("jobs_created", 2))
	require.NoError(t, l.Sync())

	entries := readEntries(t, path)
	require.Len(t, entries, 2)
	assert.Equal(t, "debug", entries[0]["level"])
	assert.Equal(t, "job created", entries[0]["msg"])
	assert.Equal(t, "j-1", entries[0]["job_id"])
	assert.Equal(t, "labflow", entries[1]["app"])
	assert.Equal(t, float64(2), entries[1]["jobs_created"])
	assert.NotEmpty(t, entries[1]["caller"])
	assert.NotEmpty(t, entries[1]["time"])
}

func TestNew_TimeFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "day.log")

	l, err := New(&Config{Format: "json", Output: path, TimeFormat: "2006-01-02"})
	require.NoError(t, err)
	l.Info("dated")
	require.NoError(t, l.Sync())

	entries := readEntries(t, path)
	require.Len(t, entries, 1)
	assert.Len(t, entries[0]["time"], len("2006-01-02"))
}

func TestNew_Level(t *testing.T) {
	path := filepath.Join(t.TempDir(), "warn.log")

	l, err := New(&Config{Level: "warn", Format: "json", Output: path})
	require.NoError(t, err)
	l.Info("dropped")
	l.Warn("kept")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "dropped")
	assert.Contains(t, string(data), "kept")
}

func TestNew_Console(t *testing.T) {
	path := filepath.Join(t.TempDir(), "console.log")

	l, err := New(&Config{Format: "console", Output: path})
	require.NoError(t, err)
	l.Info("plain text")
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	line := string(data)
	assert.Contains(t, line, "plain text")
	assert.False(t, strings.HasPrefix(strings.TrimSpace(line), "{"), "console output is not JSON")
}

func TestSync_File(t *testing.T) {
	l, err := New(&Config{Output: filepath.Join(t.TempDir(), "sync.log")})
	require.NoError(t, err)
	assert.NoError(t, Sync(l))
}
