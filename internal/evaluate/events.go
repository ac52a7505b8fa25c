package evaluate

import (
	"time"

	"github.com/slideforge/slideforge/internal/log"
	"github.com/slideforge/slideforge/internal/slide"
)

// logPassed logs a slide_passed event.
func (c *Controller) logPassed(res *Result) {
	if c.Events == nil {
		return
	}
	if err := c.Events.Append(log.LogEvent{
		Event:      log.EventSlidePassed,
		Slide:      log.SlideRef(res.Index),
		Attempt:    res.Verdict.AttemptNumber,
		TemplateID: res.FinalTemplateID,
		Artifact:   res.FinalArtifact,
		Score:      res.Verdict.Score,
		Passed:     true,
	}); err != nil {
		c.logger().Warnw("journal append failed", "error", err)
	}
}

// logRematched logs a slide_rematched event.
func (c *Controller) logRematched(s slide.Slide, previous string) {
	if c.Events == nil {
		return
	}
	if err := c.Events.Append(log.LogEvent{
		Event:      log.EventSlideRematched,
		Slide:      log.SlideRef(s.Index),
		TemplateID: s.TemplateID(),
		Artifact:   s.HTMLFile(),
		Data:       map[string]any{"previous_template": previous},
	}); err != nil {
		c.logger().Warnw("journal append failed", "error", err)
	}
}

// logBatchStarted logs a batch_started event.
func (c *Controller) logBatchStarted(total int) {
	if c.Events == nil {
		return
	}
	if err := c.Events.Append(log.LogEvent{
		Event: log.EventBatchStarted,
		Total: total,
	}); err != nil {
		c.logger().Warnw("journal append failed", "error", err)
	}
}

// logBatchComplete logs a batch_complete event.
func (c *Controller) logBatchComplete(total, passed, bestOf3 int, started time.Time) {
	if c.Events == nil {
		return
	}
	if err := c.Events.Append(log.LogEvent{
		Event:      log.EventBatchComplete,
		Total:      total,
		Completed:  passed,
		BestOf3:    bestOf3,
		DurationMs: time.Since(started).Milliseconds(),
	}); err != nil {
		c.logger().Warnw("journal append failed", "error", err)
	}
}
