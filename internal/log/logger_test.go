package log

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLogger_AppendAndReadAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "session")
	l, err := NewLogger(dir)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	if err := l.Append(LogEvent{Event: EventSessionCreated, Session: "s1"}); err != nil {
		t.Fatalf("Append: %v", err)
	}
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := l.Append(LogEvent{Time: at, Event: EventAttemptEvaluated, Slide: SlideRef(0), Attempt: 2, Score: 64}); err != nil {
		t.Fatalf("Append: %v", err)
	}

	events, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].Time.IsZero() {
		t.Error("first event time was not filled in")
	}
	second := events[1]
	if second.Slide == nil || *second.Slide != 0 {
		t.Errorf("Slide = %v, want pointer to 0", second.Slide)
	}
	if !second.Time.Equal(at) {
		t.Errorf("Time = %v, want %v", second.Time, at)
	}
	if second.Score != 64 || second.Attempt != 2 {
		t.Errorf("unexpected event: %+v", second)
	}
}

func TestLogger_ReadAllMissingFile(t *testing.T) {
	l := &Logger{path: filepath.Join(t.TempDir(), JournalFile)}
	events, err := l.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("got %d events, want 0", len(events))
	}
}

func TestLogger_ReadAllCorruptLine(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, JournalFile), []byte("{\"event\":\"x\"}\nnot json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	l, _ := NewLogger(dir)
	if _, err := l.ReadAll(); err == nil {
		t.Error("expected error for corrupt line")
	}
}

func TestNilLoggerDiscards(t *testing.T) {
	var l *Logger
	if err := l.Append(LogEvent{Event: EventBatchStarted}); err != nil {
		t.Errorf("nil Append returned %v", err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New("dev", "debug"); err != nil {
		t.Errorf("New(dev, debug): %v", err)
	}
	if _, err := New("prod", ""); err != nil {
		t.Errorf("New(prod): %v", err)
	}
	if _, err := New("dev", "loud"); err == nil {
		t.Error("expected error for unknown level")
	}
}
