package evaluate

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/slideforge/slideforge/internal/ledger"
	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/registry"
	"github.com/slideforge/slideforge/internal/session"
	"github.com/slideforge/slideforge/internal/slide"
)

// Recorder persists evaluation progress as it happens. Errors abort the loop.
type Recorder interface {
	// RecordAttempt is called once per evaluated attempt, after its verdict
	// is known.
	RecordAttempt(ctx context.Context, s slide.Slide, v quality.Verdict, rec quality.AttemptRecord) error
	// RecordRematch is called after a new template was chosen and the
	// artifact regenerated. s carries the new template and artifact.
	RecordRematch(ctx context.Context, s slide.Slide, tmpl registry.Template) error
	// RecordOutcome is called once when the loop resolves.
	RecordOutcome(ctx context.Context, res *Result) error
}

// Recorders fans out to several recorders in order, stopping at the first
// error.
type Recorders []Recorder

func (rs Recorders) RecordAttempt(ctx context.Context, s slide.Slide, v quality.Verdict, rec quality.AttemptRecord) error {
	for _, r := range rs {
		if err := r.RecordAttempt(ctx, s, v, rec); err != nil {
			return err
		}
	}
	return nil
}

func (rs Recorders) RecordRematch(ctx context.Context, s slide.Slide, tmpl registry.Template) error {
	for _, r := range rs {
		if err := r.RecordRematch(ctx, s, tmpl); err != nil {
			return err
		}
	}
	return nil
}

func (rs Recorders) RecordOutcome(ctx context.Context, res *Result) error {
	for _, r := range rs {
		if err := r.RecordOutcome(ctx, res); err != nil {
			return err
		}
	}
	return nil
}

// SessionRecorder writes evaluation progress into a session.
type SessionRecorder struct {
	Session *session.Session

	mu sync.Mutex
	// persisted maps slide index and loop attempt to the record the session
	// actually stored, whose ordinal may differ if others wrote meanwhile.
	persisted map[int]map[int]quality.AttemptRecord
}

// NewSessionRecorder returns a recorder writing to s.
func NewSessionRecorder(s *session.Session) *SessionRecorder {
	return &SessionRecorder{Session: s, persisted: make(map[int]map[int]quality.AttemptRecord)}
}

// RecordAttempt appends the attempt to the slide's history.
func (r *SessionRecorder) RecordAttempt(_ context.Context, s slide.Slide, v quality.Verdict, rec quality.AttemptRecord) error {
	stored, err := r.Session.SaveEvaluation(s.Index, v, session.WithDigest(rec.Digest))
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.persisted[s.Index] == nil {
		r.persisted[s.Index] = make(map[int]quality.AttemptRecord)
	}
	r.persisted[s.Index][rec.Attempt] = stored
	return nil
}

// RecordRematch clears the slide's old template bindings and applies the
// new template and artifact.
func (r *SessionRecorder) RecordRematch(_ context.Context, s slide.Slide, _ registry.Template) error {
	if _, err := r.Session.ResetForRematching(s.Index); err != nil {
		return err
	}
	_, err := r.Session.UpdateSlide(s.Index, s.Fields.Only(slide.RematchFields...))
	return err
}

// RecordOutcome restores the best attempt when the loop ended without a pass.
func (r *SessionRecorder) RecordOutcome(_ context.Context, res *Result) error {
	if res.Verdict.SelectedReason != quality.ReasonBestOf3 || res.Best == nil {
		return nil
	}
	best := *res.Best
	r.mu.Lock()
	if stored, ok := r.persisted[res.Index][best.Attempt]; ok {
		best = stored
	}
	r.mu.Unlock()
	_, err := r.Session.FinalizeBestOf3(res.Index, best)
	return err
}

// LedgerRecorder mirrors attempts and outcomes into the project ledger. The
// ledger is a secondary index, so write failures are logged, not returned.
type LedgerRecorder struct {
	Ledger    *ledger.Ledger
	SessionID string
	Log       *zap.SugaredLogger
}

func (r *LedgerRecorder) RecordAttempt(_ context.Context, s slide.Slide, _ quality.Verdict, rec quality.AttemptRecord) error {
	r.warn(r.Ledger.RecordAttempt(r.SessionID, s.Index, rec))
	return nil
}

func (r *LedgerRecorder) RecordRematch(context.Context, slide.Slide, registry.Template) error {
	return nil
}

func (r *LedgerRecorder) RecordOutcome(_ context.Context, res *Result) error {
	r.warn(r.Ledger.RecordOutcome(ledger.Outcome{
		SessionID:  r.SessionID,
		Slide:      res.Index,
		Reason:     string(res.Verdict.SelectedReason),
		Score:      res.Verdict.Score,
		TemplateID: res.FinalTemplateID,
	}))
	return nil
}

func (r *LedgerRecorder) warn(err error) {
	if err == nil || r.Log == nil {
		return
	}
	r.Log.Warnw("ledger write failed", "session", r.SessionID, "error", err)
}
