// Package logging provides the per-run log file and the process-wide
// zerolog setup.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger for CLI use: console writer,
// level from the verbose flag.
func Setup(verbose bool) {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
}

// RunLogger writes the detailed transcript of a single run: every pass,
// prompt, and response, timestamped relative to run start. Every method is
// nil-receiver safe so callers can log unconditionally. Constructed per run
// and injected; there is no process-global current logger.
type RunLogger struct {
	runID     string
	logFile   *os.File
	mutex     sync.Mutex
	startTime time.Time
}

// NewRunLogger creates the run's log file under dir, named after the run id
// and start timestamp.
func NewRunLogger(dir, runID string) (*RunLogger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	logPath := filepath.Join(dir, fmt.Sprintf("run_%s_%s.log", runID, timestamp))
	logFile, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	r := &RunLogger{
		runID:     runID,
		logFile:   logFile,
		startTime: time.Now(),
	}
	r.Log("Run %s started at %s", runID, r.startTime.Format("2006-01-02 15:04:05.000"))
	return r, nil
}

// Log writes one timestamped line to the run log.
func (r *RunLogger) Log(format string, args ...interface{}) {
	if r == nil {
		return
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	timestamp := time.Now().Format("15:04:05.000")
	elapsed := time.Since(r.startTime).Round(time.Millisecond)
	r.logFile.WriteString(fmt.Sprintf("[%s] [+%v] %s\n", timestamp, elapsed, fmt.Sprintf(format, args...)))
	r.logFile.Sync()
}

// LogSection writes a banner separating run phases.
func (r *RunLogger) LogSection(title string) {
	if r == nil {
		return
	}
	separator := strings.Repeat("=", 80)
	r.Log("%s", separator)
	r.Log("= %s", title)
	r.Log("%s", separator)
}

// LogError writes an error with context.
func (r *RunLogger) LogError(message string, err error) {
	if r == nil {
		return
	}
	r.Log("ERROR: %s: %v", message, err)
}

// LogPrompt records the full prompt sent for a pass.
func (r *RunLogger) LogPrompt(passIndex int, model, prompt string) {
	if r == nil {
		return
	}
	r.LogSection(fmt.Sprintf("PROMPT - Pass %d", passIndex+1))
	r.Log("Model: %s", model)
	r.Log("Prompt length: %d characters", len(prompt))
	r.mutex.Lock()
	r.logFile.WriteString(prompt + "\n")
	r.mutex.Unlock()
}

// LogResponse records the full raw response of a pass.
func (r *RunLogger) LogResponse(passIndex int, response string) {
	if r == nil {
		return
	}
	r.LogSection(fmt.Sprintf("RESPONSE - Pass %d", passIndex+1))
	r.Log("Response length: %d characters", len(response))
	r.mutex.Lock()
	r.logFile.WriteString(response + "\n")
	r.mutex.Unlock()
}

// Close finalizes and closes the log file.
func (r *RunLogger) Close() {
	if r == nil || r.logFile == nil {
		return
	}
	r.Log("Run %s finished (total duration: %v)", r.runID, time.Since(r.startTime).Round(time.Millisecond))
	r.logFile.Close()
}
