package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunLoggerWritesTranscript(t *testing.T) {
	dir := t.TempDir()

	r, err := NewRunLogger(dir, "abc123")
	require.NoError(t, err)

	r.LogSection("TOKEN ANALYSIS")
	r.Log("Analyzed %d files", 4)
	r.LogPrompt(0, "test:fake", "full prompt text here")
	r.LogResponse(0, `{"findings": []}`)
	r.LogError("pass failed", errors.New("boom"))
	r.Close()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Name(), "run_abc123_")

	content, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	text := string(content)

	assert.Contains(t, text, "Run abc123 started")
	assert.Contains(t, text, "= TOKEN ANALYSIS")
	assert.Contains(t, text, "Analyzed 4 files")
	assert.Contains(t, text, "PROMPT - Pass 1")
	assert.Contains(t, text, "full prompt text here")
	assert.Contains(t, text, "RESPONSE - Pass 1")
	assert.Contains(t, text, "ERROR: pass failed: boom")
	assert.Contains(t, text, "Run abc123 finished")
}

func TestRunLoggerNilReceiverSafe(t *testing.T) {
	var r *RunLogger
	r.Log("ignored %d", 1)
	r.LogSection("ignored")
	r.LogError("ignored", errors.New("x"))
	r.LogPrompt(0, "m", "p")
	r.LogResponse(0, "r")
	r.Close()
}

func TestNewRunLoggerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	r, err := NewRunLogger(dir, "xyz")
	require.NoError(t, err)
	r.Close()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
