package evaluate

import (
	"fmt"
	"sync"

	"github.com/slideforge/slideforge/internal/quality"
)

// Tally counts slide outcomes across a run. Safe for concurrent use.
type Tally struct {
	mu      sync.Mutex
	Total   int
	Passed  int
	BestOf3 int
	Skipped int
}

// NewTally creates a Tally for total slides.
func NewTally(total int) *Tally {
	return &Tally{Total: total}
}

// Record counts one resolved slide by its selection reason.
func (t *Tally) Record(reason quality.SelectionReason) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch reason {
	case quality.ReasonPassed:
		t.Passed++
	case quality.ReasonBestOf3:
		t.BestOf3++
	default:
		t.Skipped++
	}
}

// RecordSkip counts a slide that was not evaluated.
func (t *Tally) RecordSkip() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.Skipped++
}

// Done returns how many slides have been accounted for.
func (t *Tally) Done() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.Passed + t.BestOf3 + t.Skipped
}

// Progress returns a formatted progress string like "[2/5]".
func (t *Tally) Progress() string {
	return fmt.Sprintf("[%d/%d]", t.Done(), t.Total)
}

// IsComplete reports whether every slide has been accounted for.
func (t *Tally) IsComplete() bool {
	return t.Done() >= t.Total
}
