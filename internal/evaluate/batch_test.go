package evaluate

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/session"
	"github.com/slideforge/slideforge/internal/slide"
	"github.com/slideforge/slideforge/internal/testutil"
)

// recordingProgress collects progress callbacks.
type recordingProgress struct {
	mu       sync.Mutex
	started  []int
	attempts map[int]int
	finished map[int]quality.SelectionReason
}

func newRecordingProgress() *recordingProgress {
	return &recordingProgress{
		attempts: make(map[int]int),
		finished: make(map[int]quality.SelectionReason),
	}
}

func (p *recordingProgress) SlideStarted(index int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, index)
}

func (p *recordingProgress) AttemptStarted(index, attempt int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempts[index] = attempt
}

func (p *recordingProgress) SlideFinished(index int, v quality.Verdict) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finished[index] = v.SelectedReason
}

func TestEvaluateAll(t *testing.T) {
	s := newTestSession(t)
	addSlide(t, s, 3, "Closing", "grid-4", testutil.SlideHTML("Closing"))
	addSlide(t, s, 1, "Scope", "grid-4", testutil.SlideHTML("Scope"))
	addSlide(t, s, 2, "Risks", "grid-4", testutil.OverflowHTML("Risks"))

	progress := newRecordingProgress()
	c := newController(t, s, testRegistry(t))
	c.MaxParallel = 2
	c.Progress = progress

	slides := s.Slides()
	// Reverse so completion order cannot line up with the input by accident.
	for i, j := 0, len(slides)-1; i < j; i, j = i+1, j-1 {
		slides[i], slides[j] = slides[j], slides[i]
	}

	results, err := c.EvaluateAll(context.Background(), slides, s.Theme())
	require.NoError(t, err)
	require.Len(t, results, 3)

	var indexes []int
	var retry []bool
	for _, r := range results {
		indexes = append(indexes, r.Index)
		retry = append(retry, r.NeedsRetry)
	}
	assert.Equal(t, []int{1, 2, 3}, indexes)
	assert.Equal(t, []bool{false, true, false}, retry)
	assert.Equal(t, []quality.Failure{quality.FailureOverflow}, results[1].Verdict.CriticalFailures)

	for _, sl := range s.Slides() {
		history, err := session.AttemptHistory(sl)
		require.NoError(t, err)
		assert.Len(t, history, 1, "slide %d", sl.Index)
	}
	assert.Len(t, progress.finished, 3)
	assert.Equal(t, map[int]int{1: 1, 2: 1, 3: 1}, progress.attempts)
}

func TestEvaluateAll_Empty(t *testing.T) {
	c := &Controller{}
	results, err := c.EvaluateAll(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestEvaluateAll_PersistenceError(t *testing.T) {
	c := &Controller{Recorder: failingRecorder{err: assert.AnError}}
	_, err := c.EvaluateAll(context.Background(), []slide.Slide{slide.New(1), slide.New(2)}, nil)
	assert.ErrorIs(t, err, assert.AnError)
}

func TestRunAll_BreakerHalts(t *testing.T) {
	s := newTestSession(t)
	for i, title := range []string{"One", "Two", "Three"} {
		addSlide(t, s, i+1, title, "grid-4", testutil.OverflowHTML(title))
	}
	c := newController(t, s, testRegistry(t))
	c.Rematcher = nilRematcher{}

	summary, err := c.RunAll(context.Background(), s.Slides(), s.Theme(), NewCircuitBreaker(2))
	require.NoError(t, err)

	assert.True(t, summary.Halted)
	assert.Equal(t, []int{3}, summary.Remaining)
	require.Len(t, summary.Results, 2)
	assert.Equal(t, 2, summary.Tally.BestOf3)
	assert.Equal(t, 1, summary.Tally.Skipped)
	assert.Equal(t, "[3/3]", summary.Tally.Progress())
}

func TestRunAll_PassResetsBreaker(t *testing.T) {
	s := newTestSession(t)
	addSlide(t, s, 1, "One", "grid-4", testutil.OverflowHTML("One"))
	addSlide(t, s, 2, "Two", "grid-4", testutil.SlideHTML("Two"))
	addSlide(t, s, 3, "Three", "grid-4", testutil.OverflowHTML("Three"))
	c := newController(t, s, testRegistry(t))
	c.Rematcher = nilRematcher{}

	breaker := NewCircuitBreaker(2)
	summary, err := c.RunAll(context.Background(), s.Slides(), s.Theme(), breaker)
	require.NoError(t, err)

	assert.False(t, summary.Halted)
	assert.Len(t, summary.Results, 3)
	assert.Equal(t, 1, summary.Tally.Passed)
	assert.Equal(t, 2, summary.Tally.BestOf3)
	assert.Equal(t, 1, breaker.Failures())
	assert.True(t, summary.Tally.IsComplete())
}
