package ledger

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/slideforge/slideforge/internal/quality"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "nested", "ledger.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestRecordAttemptAndQuery(t *testing.T) {
	l := openTestLedger(t)
	base := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	recs := []quality.AttemptRecord{
		{Attempt: 1, TemplateID: "grid-3", HTMLFile: "a.html", Score: 0, CriticalFailures: []quality.Failure{quality.FailureOverflow}, Timestamp: base},
		{Attempt: 2, TemplateID: "cards-4", HTMLFile: "b.html", Score: 81, Passed: true, Digest: "abc", Timestamp: base.Add(time.Minute)},
	}
	for _, r := range recs {
		if err := l.RecordAttempt("s1", 2, r); err != nil {
			t.Fatalf("RecordAttempt: %v", err)
		}
	}
	if err := l.RecordAttempt("s2", 1, quality.AttemptRecord{Attempt: 1, TemplateID: "grid-3", Score: 60, Timestamp: base.Add(2 * time.Minute)}); err != nil {
		t.Fatalf("RecordAttempt: %v", err)
	}

	got, err := l.SessionAttempts("s1")
	if err != nil {
		t.Fatalf("SessionAttempts: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d attempts, want 2", len(got))
	}
	if got[0].TemplateID != "grid-3" || len(got[0].CriticalFailures) != 1 || got[0].CriticalFailures[0] != "overflow" {
		t.Errorf("first attempt = %+v", got[0])
	}
	if !got[1].Passed || got[1].Digest != "abc" || got[1].Slide != 2 {
		t.Errorf("second attempt = %+v", got[1])
	}

	recent, err := l.RecentAttempts(1)
	if err != nil {
		t.Fatalf("RecentAttempts: %v", err)
	}
	if len(recent) != 1 || recent[0].SessionID != "s2" {
		t.Errorf("RecentAttempts(1) = %+v, want the s2 attempt", recent)
	}

	stats, err := l.TemplateStats()
	if err != nil {
		t.Fatalf("TemplateStats: %v", err)
	}
	if len(stats) != 2 || stats[0].TemplateID != "grid-3" {
		t.Fatalf("TemplateStats = %+v", stats)
	}
	if stats[0].Attempts != 2 || stats[0].Passes != 0 || stats[0].CriticalFailures != 1 || stats[0].AvgScore != 30 {
		t.Errorf("grid-3 stats = %+v", stats[0])
	}
}

func TestRecordOutcomeUpserts(t *testing.T) {
	l := openTestLedger(t)

	if err := l.RecordOutcome(Outcome{SessionID: "s1", Slide: 1, Reason: "best_of_3", Score: 64, TemplateID: "grid-3"}); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}
	if err := l.RecordOutcome(Outcome{SessionID: "s1", Slide: 1, Reason: "passed", Score: 88, TemplateID: "cards-4"}); err != nil {
		t.Fatalf("RecordOutcome: %v", err)
	}

	outcomes, err := l.Outcomes("s1")
	if err != nil {
		t.Fatalf("Outcomes: %v", err)
	}
	if len(outcomes) != 1 {
		t.Fatalf("got %d outcomes, want 1", len(outcomes))
	}
	if outcomes[0].Reason != "passed" || outcomes[0].TemplateID != "cards-4" {
		t.Errorf("outcome = %+v", outcomes[0])
	}
}

func TestUpsertAndDeleteSession(t *testing.T) {
	l := openTestLedger(t)
	now := time.Now()

	row := SessionRow{ID: "s1", Title: "Deck", Status: "in_progress", CreatedAt: now, UpdatedAt: now}
	if err := l.UpsertSession(row); err != nil {
		t.Fatalf("UpsertSession: %v", err)
	}
	row.Status = "completed"
	if err := l.UpsertSession(row); err != nil {
		t.Fatalf("UpsertSession again: %v", err)
	}
	if err := l.RecordAttempt("s1", 1, quality.AttemptRecord{Attempt: 1, TemplateID: "t"}); err != nil {
		t.Fatal(err)
	}

	if err := l.DeleteSession("s1"); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	attempts, err := l.SessionAttempts("s1")
	if err != nil {
		t.Fatal(err)
	}
	if len(attempts) != 0 {
		t.Errorf("attempts survived delete: %+v", attempts)
	}
}
