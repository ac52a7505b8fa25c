package evaluate

import (
	"context"
	"time"

	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/slide"
)

// RunSummary is the outcome of a sequential run over many slides.
type RunSummary struct {
	Results []*Result
	Tally   *Tally
	// Halted is set when the circuit breaker stopped the run early.
	Halted bool
	// Remaining lists the slide indexes not evaluated because of a halt.
	Remaining []int
}

// RunAll runs the full loop over each slide in order. Consecutive slides
// that end as best_of_3 trip the breaker, which stops the run so the
// remaining slides can be inspected before spending more judge calls.
// A nil breaker never trips.
func (c *Controller) RunAll(ctx context.Context, slides []slide.Slide, theme record.Map, breaker *CircuitBreaker) (*RunSummary, error) {
	started := time.Now()
	summary := &RunSummary{Tally: NewTally(len(slides))}
	c.logBatchStarted(len(slides))

	for i, s := range slides {
		if breaker != nil && breaker.ShouldPause() {
			summary.Halted = true
			for _, rest := range slides[i:] {
				summary.Remaining = append(summary.Remaining, rest.Index)
				summary.Tally.RecordSkip()
			}
			c.logger().Warnw("run halted by circuit breaker",
				"failures", breaker.Failures(), "remaining", len(summary.Remaining))
			break
		}

		res, err := c.Run(ctx, s, theme)
		if err != nil {
			return summary, err
		}
		summary.Results = append(summary.Results, res)
		summary.Tally.Record(res.Verdict.SelectedReason)
		c.logger().Infow("slide resolved", "progress", summary.Tally.Progress(),
			"slide", s.Index, "reason", res.Verdict.SelectedReason, "score", res.Verdict.Score)

		if breaker == nil {
			continue
		}
		if res.Verdict.SelectedReason == quality.ReasonPassed {
			breaker.RecordSuccess()
		} else {
			breaker.RecordFailure()
		}
	}

	c.logBatchComplete(summary.Tally.Total, summary.Tally.Passed, summary.Tally.BestOf3, started)
	return summary, nil
}
