package evaluate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/session"
	"github.com/slideforge/slideforge/internal/slide"
)

// BatchResult is one slide's single-attempt evaluation.
type BatchResult struct {
	Index      int                   `json:"index"`
	Verdict    quality.Verdict       `json:"verdict"`
	NeedsRetry bool                  `json:"needs_retry"`
	Record     quality.AttemptRecord `json:"-"`
}

// EvaluateAll evaluates every slide once, concurrently. Failing slides are
// flagged for retry rather than re-matched. Results are in slide index order.
func (c *Controller) EvaluateAll(ctx context.Context, slides []slide.Slide, theme record.Map) ([]BatchResult, error) {
	started := time.Now()
	c.logBatchStarted(len(slides))

	results := make([]BatchResult, len(slides))
	g, gctx := errgroup.WithContext(ctx)
	if c.MaxParallel > 0 {
		g.SetLimit(c.MaxParallel)
	}
	for i, s := range slides {
		g.Go(func() error {
			prior, err := session.AttemptHistory(s)
			if err != nil {
				return fmt.Errorf("slide %d: %w", s.Index, err)
			}
			logger := c.logger().With("slide", s.Index)
			evaluator := &quality.Evaluator{Judge: c.Judge, Log: logger}

			c.slideStarted(s.Index)
			c.attemptStarted(s.Index, 1)
			a, err := c.evaluate(gctx, evaluator, s, theme, len(prior)+1)
			if err != nil {
				return fmt.Errorf("slide %d: %w", s.Index, err)
			}
			results[i] = BatchResult{
				Index:      s.Index,
				Verdict:    a.verdict,
				NeedsRetry: !a.verdict.Passed,
				Record:     a.record,
			}
			if c.Progress != nil {
				c.Progress.SlideFinished(s.Index, a.verdict)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Index < results[j].Index })
	passed := 0
	for _, r := range results {
		if r.Verdict.Passed {
			passed++
		}
	}
	c.logBatchComplete(len(results), passed, 0, started)
	return results, nil
}
