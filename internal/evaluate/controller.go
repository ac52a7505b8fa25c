// Package evaluate runs the evaluate, retry and re-match loop over slides.
package evaluate

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/slideforge/slideforge/internal/log"
	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/registry"
	"github.com/slideforge/slideforge/internal/session"
	"github.com/slideforge/slideforge/internal/slide"
)

// MaxAttempts bounds the loop for one slide.
const MaxAttempts = 3

// Rematcher picks a different template for a slide, or nil when none fits.
type Rematcher interface {
	Rematch(ctx context.Context, s slide.Slide, excluded []string) (*registry.Template, error)
}

// Renderer regenerates a slide's artifact for a template and returns its
// reference.
type Renderer interface {
	Render(ctx context.Context, s slide.Slide, tmpl *registry.Template, theme record.Map) (string, error)
}

// Progress receives loop progress. Implementations must be safe for
// concurrent use when the batch evaluator is used.
type Progress interface {
	SlideStarted(index int)
	AttemptStarted(index, attempt int)
	SlideFinished(index int, v quality.Verdict)
}

// Result is how one slide's loop resolved.
type Result struct {
	Index   int
	Verdict quality.Verdict
	// History holds this run's attempts in order.
	History []quality.AttemptRecord
	// Best is the highest-scoring attempt, earliest on ties.
	Best            *quality.AttemptRecord
	FinalTemplateID string
	FinalArtifact   string
}

// Resolved reports whether the loop reached a terminal outcome.
func (r *Result) Resolved() bool {
	return r.Verdict.SelectedReason == quality.ReasonPassed ||
		r.Verdict.SelectedReason == quality.ReasonBestOf3
}

// Controller drives the evaluation loop. Nil collaborators are skipped: no
// Judge means the default passing verdict, no Rematcher or Renderer means
// retries reuse the current configuration, no Recorder means nothing is
// persisted.
type Controller struct {
	Registry  *registry.Registry
	Judge     quality.Judge
	Rematcher Rematcher
	Renderer  Renderer
	Artifacts ArtifactReader
	Recorder  Recorder
	Progress  Progress
	// Events is the session journal.
	Events *log.Logger
	Log    *zap.SugaredLogger
	// MaxParallel bounds batch fan-out; 0 is unbounded.
	MaxParallel int

	now func() time.Time
}

// attempt pairs a verdict with the record persisted for it.
type attempt struct {
	verdict quality.Verdict
	record  quality.AttemptRecord
}

// Run evaluates s up to MaxAttempts times, re-matching between failed
// attempts. It returns an error only for persistence failures and
// cancellation; quality failures resolve as best_of_3.
func (c *Controller) Run(ctx context.Context, s slide.Slide, theme record.Map) (*Result, error) {
	logger := c.logger().With("slide", s.Index)
	evaluator := &quality.Evaluator{Judge: c.Judge, Log: logger}

	prior, err := session.AttemptHistory(s)
	if err != nil {
		return nil, err
	}
	base := len(prior)

	c.slideStarted(s.Index)
	res := &Result{Index: s.Index}
	current := s.Clone()
	var best *attempt
	var lastDigest string

	for n := 1; n <= MaxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c.attemptStarted(s.Index, n)

		a, err := c.evaluate(ctx, evaluator, current, theme, base+n)
		if err != nil {
			return nil, err
		}
		if a.record.Digest != "" && a.record.Digest == lastDigest {
			logger.Infow("re-evaluating identical artifact", "attempt", a.record.Attempt, "template", a.record.TemplateID)
		}
		lastDigest = a.record.Digest
		res.History = append(res.History, a.record)
		if best == nil || a.record.Score > best.record.Score {
			best = &a
		}

		if a.verdict.Passed {
			v := a.verdict
			v.SelectedReason = quality.ReasonPassed
			res.Verdict = v
			res.Best = &best.record
			res.FinalTemplateID = current.TemplateID()
			res.FinalArtifact = current.HTMLFile()
			c.logPassed(res)
			if err := c.finish(ctx, res); err != nil {
				return nil, err
			}
			return res, nil
		}
		if n == MaxAttempts {
			break
		}

		current, err = c.rematch(ctx, logger, current, failedTemplates(res.History), theme)
		if err != nil {
			return nil, err
		}
	}

	v := best.verdict
	v.AttemptNumber = best.record.Attempt
	v.Passed = false
	v.SelectedReason = quality.ReasonBestOf3
	res.Verdict = v
	res.Best = &best.record
	res.FinalTemplateID = best.record.TemplateID
	res.FinalArtifact = best.record.HTMLFile
	logger.Infow("slide resolved by best of 3", "attempt", best.record.Attempt, "score", best.record.Score)
	if err := c.finish(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// evaluate scores the slide's current artifact once and records the attempt.
func (c *Controller) evaluate(ctx context.Context, evaluator *quality.Evaluator, s slide.Slide, theme record.Map, ordinal int) (attempt, error) {
	content := c.read(ctx, s)
	tmpl := c.lookup(s.TemplateID())

	v := evaluator.Evaluate(ctx, quality.JudgeRequest{
		Content:  content,
		Slide:    s,
		Template: tmpl,
		Theme:    theme,
	})
	v.AttemptNumber = ordinal
	if !v.Passed && len(v.AlternativeTemplates) == 0 && c.Registry != nil {
		v.AlternativeTemplates = registry.Alternatives(c.Registry, s, []string{s.TemplateID()}, registry.DefaultAlternatives)
	}

	rec := quality.NewAttemptRecord(ordinal, s.TemplateID(), s.HTMLFile(), v, c.clock())
	rec.Digest = Digest(content)
	if c.Recorder != nil {
		if err := c.Recorder.RecordAttempt(ctx, s, v, rec); err != nil {
			return attempt{}, err
		}
	}
	return attempt{verdict: v, record: rec}, nil
}

// rematch swaps in an alternative template and regenerates the artifact.
// With no alternative the slide is returned unchanged.
func (c *Controller) rematch(ctx context.Context, logger *zap.SugaredLogger, s slide.Slide, failed []string, theme record.Map) (slide.Slide, error) {
	if c.Rematcher == nil {
		return s, nil
	}
	tmpl, err := c.Rematcher.Rematch(ctx, s, failed)
	if err != nil {
		logger.Warnw("rematch failed", "error", err)
		return s, nil
	}
	if tmpl == nil {
		logger.Infow("no alternative template", "failed", failed)
		return s, nil
	}

	update := record.Map{slide.FieldTemplateID: record.String(tmpl.ID)}
	if tmpl.MatchScore > 0 {
		update[slide.FieldMatchScore] = record.Number(tmpl.MatchScore)
	}
	next := s.Merge(update)

	if c.Renderer != nil {
		ref, err := c.Renderer.Render(ctx, next, tmpl, theme)
		if err != nil {
			logger.Warnw("render failed", "template", tmpl.ID, "error", err)
			ref = ""
		}
		next = next.Merge(record.Map{slide.FieldHTMLFile: record.String(ref)})
	}

	if c.Recorder != nil {
		if err := c.Recorder.RecordRematch(ctx, next, *tmpl); err != nil {
			return slide.Slide{}, err
		}
	}
	c.logRematched(next, s.TemplateID())
	return next, nil
}

func (c *Controller) finish(ctx context.Context, res *Result) error {
	if c.Recorder != nil {
		if err := c.Recorder.RecordOutcome(ctx, res); err != nil {
			return err
		}
	}
	if c.Progress != nil {
		c.Progress.SlideFinished(res.Index, res.Verdict)
	}
	return nil
}

// read returns the artifact content, or "" when it cannot be read so the
// content check fails the attempt.
func (c *Controller) read(ctx context.Context, s slide.Slide) string {
	if c.Artifacts == nil {
		return ""
	}
	content, err := c.Artifacts.ReadArtifact(ctx, s.HTMLFile())
	if err != nil {
		c.logger().Debugw("artifact unavailable", "slide", s.Index, "error", err)
		return ""
	}
	return content
}

func (c *Controller) lookup(id string) *registry.Template {
	if c.Registry == nil || id == "" {
		return nil
	}
	tmpl, ok := c.Registry.Lookup(id)
	if !ok {
		return nil
	}
	return tmpl
}

func (c *Controller) logger() *zap.SugaredLogger {
	if c.Log == nil {
		return log.Nop()
	}
	return c.Log
}

func (c *Controller) clock() time.Time {
	if c.now != nil {
		return c.now()
	}
	return time.Now().UTC()
}

func (c *Controller) slideStarted(index int) {
	if c.Progress != nil {
		c.Progress.SlideStarted(index)
	}
}

func (c *Controller) attemptStarted(index, n int) {
	if c.Progress != nil {
		c.Progress.AttemptStarted(index, n)
	}
}

// failedTemplates lists the distinct template ids in history, in order.
func failedTemplates(history []quality.AttemptRecord) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, rec := range history {
		if rec.TemplateID == "" || seen[rec.TemplateID] {
			continue
		}
		seen[rec.TemplateID] = true
		ids = append(ids, rec.TemplateID)
	}
	return ids
}
