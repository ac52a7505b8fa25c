// Package log provides the per-session event journal and the process logger.
// This file appends JSON events to log.jsonl.
package log

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// JournalFile is the journal's file name inside a session directory.
const JournalFile = "log.jsonl"

// Event type constants.
const (
	EventSessionCreated      = "session_created"
	EventSetupCompleted      = "setup_completed"
	EventSlideUpdated        = "slide_updated"
	EventSlideRerun          = "slide_rerun"
	EventSlideReset          = "slide_reset"
	EventStatusChanged       = "status_changed"
	EventAttemptEvaluated    = "attempt_evaluated"
	EventSlideRematched      = "slide_rematched"
	EventSlidePassed         = "slide_passed"
	EventSlideBestOf3        = "slide_best_of_3"
	EventBatchStarted        = "batch_started"
	EventBatchComplete       = "batch_complete"
	EventGenerationCompleted = "generation_completed"
)

// LogEvent represents a single structured event written to the journal.
type LogEvent struct {
	Time             time.Time      `json:"time"`
	Event            string         `json:"event"`
	Session          string         `json:"session,omitempty"`
	Slide            *int           `json:"slide,omitempty"`
	Stage            int            `json:"stage,omitempty"`
	Status           string         `json:"status,omitempty"`
	TemplateID       string         `json:"template_id,omitempty"`
	Artifact         string         `json:"artifact,omitempty"`
	Attempt          int            `json:"attempt,omitempty"`
	Score            float64        `json:"score,omitempty"`
	Passed           bool           `json:"passed,omitempty"`
	CriticalFailures []string       `json:"critical_failures,omitempty"`
	Reason           string         `json:"reason,omitempty"`
	Error            string         `json:"error,omitempty"`
	Total            int            `json:"total,omitempty"`
	Completed        int            `json:"completed,omitempty"`
	BestOf3          int            `json:"best_of_3,omitempty"`
	DurationMs       int64          `json:"duration_ms,omitempty"`
	Data             map[string]any `json:"data,omitempty"`
}

// SlideRef returns a pointer suitable for LogEvent.Slide.
func SlideRef(index int) *int { return &index }

// Logger writes append-only JSONL events to a journal file.
type Logger struct {
	path string
	mu   sync.Mutex
}

// NewLogger creates a Logger that writes to log.jsonl inside dir, creating
// dir if needed. An existing journal is never truncated.
func NewLogger(dir string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}
	return &Logger{path: filepath.Join(dir, JournalFile)}, nil
}

// Path returns the journal file path.
func (l *Logger) Path() string { return l.path }

// Append writes a single LogEvent as one JSON line to the journal.
// If event.Time is the zero value, it is set to time.Now().UTC().
// Safe for concurrent use. A nil Logger discards the event.
func (l *Logger) Append(event LogEvent) error {
	if l == nil {
		return nil
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal log event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write log event: %w", err)
	}
	return nil
}

// ReadAll reads and parses all events from the journal.
// Returns an empty slice (not an error) if the file does not exist.
func (l *Logger) ReadAll() ([]LogEvent, error) {
	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []LogEvent{}, nil
		}
		return nil, fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	var events []LogEvent
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var event LogEvent
		if err := json.Unmarshal(line, &event); err != nil {
			return nil, fmt.Errorf("parse log line %d: %w", lineNum, err)
		}
		events = append(events, event)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read log file: %w", err)
	}
	return events, nil
}
