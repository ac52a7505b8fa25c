package evaluate

import (
	"sync"
	"testing"

	"github.com/slideforge/slideforge/internal/quality"
)

func TestCircuitBreakerTriggered(t *testing.T) {
	cb := NewCircuitBreaker(3)
	cb.RecordFailure()
	cb.RecordFailure()
	if cb.ShouldPause() {
		t.Error("ShouldPause should be false after 2 failures (threshold is 3)")
	}
	cb.RecordFailure()
	if !cb.ShouldPause() {
		t.Error("ShouldPause should be true after 3 failures")
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker(3)
	cb.RecordFailure()
	cb.RecordFailure()
	cb.RecordSuccess()
	cb.RecordFailure()
	if cb.ShouldPause() {
		t.Error("ShouldPause should be false after success reset")
	}
	cb.Reset()
	if cb.Failures() != 0 {
		t.Errorf("Failures() = %d after Reset, want 0", cb.Failures())
	}
}

func TestCircuitBreakerDefaultThreshold(t *testing.T) {
	cb := NewCircuitBreaker(0)
	if cb.Threshold != DefaultBreakerThreshold {
		t.Errorf("Threshold = %d, want %d", cb.Threshold, DefaultBreakerThreshold)
	}
}

func TestCircuitBreakerConcurrent(t *testing.T) {
	cb := NewCircuitBreaker(100)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			cb.RecordFailure()
		}()
	}
	wg.Wait()
	if cb.Failures() != 50 {
		t.Errorf("Failures() = %d, want 50", cb.Failures())
	}
}

func TestTally(t *testing.T) {
	tally := NewTally(4)
	tally.Record(quality.ReasonPassed)
	tally.Record(quality.ReasonBestOf3)
	if got := tally.Progress(); got != "[2/4]" {
		t.Errorf("Progress() = %q, want %q", got, "[2/4]")
	}
	if tally.IsComplete() {
		t.Error("IsComplete() = true with 2 of 4 done")
	}
	tally.Record(quality.ReasonNone)
	tally.RecordSkip()
	if !tally.IsComplete() {
		t.Error("IsComplete() = false with every slide accounted for")
	}
	if tally.Skipped != 2 {
		t.Errorf("Skipped = %d, want 2", tally.Skipped)
	}
}
