package session

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/slideforge/slideforge/internal/log"
	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/slide"
)

// Session is an open session. Every mutating method reloads the latest
// snapshot under an exclusive directory lock, applies its change, and writes
// a complete snapshot; a failed write leaves the in-memory state untouched.
// Safe for concurrent use.
type Session struct {
	mu     sync.Mutex
	dir    string
	state  State
	now    func() time.Time
	events *log.Logger
}

func newSession(dir string, now func() time.Time) *Session {
	s := &Session{dir: dir, now: now}
	if events, err := log.NewLogger(dir); err == nil {
		s.events = events
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Session.ID
}

// Dir returns the session directory.
func (s *Session) Dir() string { return s.dir }

// SlidesDir returns the directory holding rendered slide artifacts.
func (s *Session) SlidesDir() string { return filepath.Join(s.dir, SlidesDir) }

// AssetsDir returns the directory holding generated icons and images.
func (s *Session) AssetsDir() string { return filepath.Join(s.dir, AssetsDir) }

// ThumbnailsDir returns the directory holding preview thumbnails.
func (s *Session) ThumbnailsDir() string { return filepath.Join(s.dir, ThumbnailsDir) }

// OutputPath returns the path of the combined output file.
func (s *Session) OutputPath() string { return filepath.Join(s.dir, OutputFile) }

// Events returns the session's journal, or nil if it could not be opened.
func (s *Session) Events() *log.Logger { return s.events }

// State returns a deep copy of the in-memory state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Reload replaces the in-memory state with the latest snapshot on disk.
func (s *Session) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reload()
}

func (s *Session) reload() error {
	st, err := readLatest(s.dir)
	if err != nil {
		return err
	}
	if st != nil {
		s.state = *st
	}
	return nil
}

// mutate runs fn against a copy of the latest state and persists the result
// to the stage fn returns.
func (s *Session) mutate(fn func(st *State) (slide.Stage, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlock, err := lockDir(s.dir)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.reload(); err != nil {
		return err
	}

	st := s.state.Clone()
	stage, err := fn(&st)
	if err != nil {
		return err
	}

	now := s.now()
	if !now.After(st.Session.UpdatedAt) {
		now = st.Session.UpdatedAt.Add(time.Nanosecond)
	}
	st.Session.UpdatedAt = now
	if st.Slides == nil {
		st.Slides = []slide.Slide{}
	}

	if err := writeSnapshot(s.dir, stage, &st); err != nil {
		return err
	}
	s.state = st
	return nil
}

// journal appends an event, best-effort.
func (s *Session) journal(e log.LogEvent) {
	if s.events == nil {
		return
	}
	e.Session = s.ID()
	_ = s.events.Append(e)
}

// CompleteSetup records the global setup, resets the slide collection, and
// moves the session to stage 1. It may be called once.
func (s *Session) CompleteSetup(data record.Map) (record.Map, error) {
	var setup record.Map
	err := s.mutate(func(st *State) (slide.Stage, error) {
		if st.Setup != nil {
			return 0, fmt.Errorf("session %s: %w", st.Session.ID, ErrSetupCompleted)
		}
		setup = data.Clone()
		if setup == nil {
			setup = record.Map{}
		}
		setup["completed_at"] = record.String(s.now().Format(time.RFC3339))
		st.Setup = setup
		st.CurrentStage = slide.StageSetup
		st.Slides = []slide.Slide{}
		return slide.StageSetup, nil
	})
	if err != nil {
		return nil, err
	}
	s.journal(log.LogEvent{Event: log.EventSetupCompleted, Stage: int(slide.StageSetup)})
	return setup.Clone(), nil
}

// UpdateSlide deep-merges data into the slide at index, creating it if
// needed, and persists to the snapshot of the slide's inferred stage. The
// session's current stage only moves forward.
func (s *Session) UpdateSlide(index int, data record.Map) (slide.Slide, error) {
	if index < 0 {
		return slide.Slide{}, fmt.Errorf("slide %d: %w", index, ErrInvalidIndex)
	}
	var updated slide.Slide
	err := s.mutate(func(st *State) (slide.Stage, error) {
		pos := slide.Find(st.Slides, index)
		if pos < 0 {
			st.Slides = append(st.Slides, slide.New(index))
			pos = len(st.Slides) - 1
		}
		updated = st.Slides[pos].Merge(data)
		st.Slides[pos] = updated
		slide.Sort(st.Slides)

		stage := updated.Stage()
		if stage > st.CurrentStage {
			st.CurrentStage = stage
		}
		return stage, nil
	})
	if err != nil {
		return slide.Slide{}, err
	}
	s.journal(log.LogEvent{Event: log.EventSlideUpdated, Slide: log.SlideRef(index), Stage: int(updated.Stage())})
	return updated.Clone(), nil
}

// RerunSlide discards the slide's fields from stage from onward and returns
// the context needed to regenerate it. from must be between outline (2) and
// generation (5). Attempt history is kept.
func (s *Session) RerunSlide(index int, from slide.Stage) (*RerunContext, error) {
	if from < slide.StageOutline || from > slide.StageGeneration {
		return nil, fmt.Errorf("rerun from %v: %w", from, ErrInvalidStage)
	}
	var ctx *RerunContext
	err := s.mutate(func(st *State) (slide.Stage, error) {
		pos := slide.Find(st.Slides, index)
		if pos < 0 {
			return 0, fmt.Errorf("slide %d: %w", index, ErrNotFound)
		}
		current := st.Slides[pos]

		var previous []slide.Slide
		for _, other := range st.Slides {
			if other.Index < index {
				previous = append(previous, other.Clone())
			}
		}
		ctx = &RerunContext{
			Slide:          current.Clone(),
			Setup:          st.Setup.Clone(),
			Theme:          st.Setup.Map("theme").Clone(),
			PreviousSlides: previous,
			RerunFrom:      from,
			Preserved:      current.Fields.Only(slide.PreservedOnRerun...).Clone(),
		}

		st.Slides[pos] = current.Without(slide.OwnedFrom(from)...)
		saveAt := from - 1
		if saveAt < slide.StageSetup {
			saveAt = slide.StageSetup
		}
		return saveAt, nil
	})
	if err != nil {
		return nil, err
	}
	s.journal(log.LogEvent{Event: log.EventSlideRerun, Slide: log.SlideRef(index), Stage: int(from)})
	return ctx, nil
}

// EvaluationOption adjusts how SaveEvaluation builds the attempt record.
type EvaluationOption func(*quality.AttemptRecord)

// WithDigest records the artifact content digest on the attempt.
func WithDigest(digest string) EvaluationOption {
	return func(r *quality.AttemptRecord) { r.Digest = digest }
}

// SaveEvaluation appends an attempt record built from v and the slide's
// current template and artifact, stores v as the current evaluation, and
// persists at stage 4. The record's ordinal is the prior history length + 1.
func (s *Session) SaveEvaluation(index int, v quality.Verdict, opts ...EvaluationOption) (quality.AttemptRecord, error) {
	var rec quality.AttemptRecord
	err := s.mutate(func(st *State) (slide.Stage, error) {
		pos := slide.Find(st.Slides, index)
		if pos < 0 {
			return 0, fmt.Errorf("slide %d: %w", index, ErrNotFound)
		}
		current := st.Slides[pos]

		history, err := attemptHistory(current)
		if err != nil {
			return 0, err
		}
		rec = quality.NewAttemptRecord(len(history)+1, current.TemplateID(), current.HTMLFile(), v, s.now())
		for _, opt := range opts {
			opt(&rec)
		}
		history = append(history, rec)

		v.AttemptNumber = rec.Attempt
		evaluation, err := record.Encode(v)
		if err != nil {
			return 0, err
		}
		encodedHistory, err := record.EncodeValue(history)
		if err != nil {
			return 0, err
		}

		fields := current.Fields.Clone()
		fields[slide.FieldEvaluation] = evaluation
		fields[slide.FieldAttemptHistory] = encodedHistory
		st.Slides[pos] = slide.Slide{Index: index, Fields: fields}
		return slide.StageContent, nil
	})
	if err != nil {
		return quality.AttemptRecord{}, err
	}
	s.journal(log.LogEvent{
		Event:            log.EventAttemptEvaluated,
		Slide:            log.SlideRef(index),
		Attempt:          rec.Attempt,
		TemplateID:       rec.TemplateID,
		Artifact:         rec.HTMLFile,
		Score:            rec.Score,
		Passed:           rec.Passed,
		CriticalFailures: failureStrings(rec.CriticalFailures),
	})
	return rec, nil
}

// ResetForRematching clears the slide's template, artifact and content
// bindings so another template can be tried. The evaluation verdict and
// attempt history are kept. Persists at stage 3.
func (s *Session) ResetForRematching(index int) (slide.Slide, error) {
	var reset slide.Slide
	err := s.mutate(func(st *State) (slide.Stage, error) {
		pos := slide.Find(st.Slides, index)
		if pos < 0 {
			return 0, fmt.Errorf("slide %d: %w", index, ErrNotFound)
		}
		reset = st.Slides[pos].Without(slide.RematchFields...)
		st.Slides[pos] = reset
		return slide.StageMatching, nil
	})
	if err != nil {
		return slide.Slide{}, err
	}
	s.journal(log.LogEvent{Event: log.EventSlideReset, Slide: log.SlideRef(index), Stage: int(slide.StageMatching)})
	return reset.Clone(), nil
}

// FinalizeBestOf3 points the slide back at the best attempt's template and
// artifact and marks its evaluation as a best-of-3 selection. Persists at
// stage 4.
func (s *Session) FinalizeBestOf3(index int, best quality.AttemptRecord) (slide.Slide, error) {
	var final slide.Slide
	err := s.mutate(func(st *State) (slide.Stage, error) {
		pos := slide.Find(st.Slides, index)
		if pos < 0 {
			return 0, fmt.Errorf("slide %d: %w", index, ErrNotFound)
		}
		current := st.Slides[pos]

		stamp, err := record.Encode(struct {
			AttemptNumber  int                     `json:"attempt_number"`
			Score          float64                 `json:"current_score"`
			Passed         bool                    `json:"passed"`
			SelectedReason quality.SelectionReason `json:"selected_reason"`
		}{best.Attempt, best.Score, false, quality.ReasonBestOf3})
		if err != nil {
			return 0, err
		}

		final = current.Merge(record.Map{
			slide.FieldTemplateID: record.String(best.TemplateID),
			slide.FieldHTMLFile:   record.String(best.HTMLFile),
			slide.FieldEvaluation: stamp,
		})
		st.Slides[pos] = final
		return slide.StageContent, nil
	})
	if err != nil {
		return slide.Slide{}, err
	}
	s.journal(log.LogEvent{
		Event:      log.EventSlideBestOf3,
		Slide:      log.SlideRef(index),
		Attempt:    best.Attempt,
		TemplateID: best.TemplateID,
		Artifact:   best.HTMLFile,
		Score:      best.Score,
	})
	return final.Clone(), nil
}

// CompleteGeneration records the combined output, marks the session
// completed, and persists at stage 5.
func (s *Session) CompleteGeneration(output record.Map) (record.Map, error) {
	var out record.Map
	err := s.mutate(func(st *State) (slide.Stage, error) {
		if !CanTransition(st.Session.Status, StatusCompleted) {
			return 0, fmt.Errorf("%s -> %s: %w", st.Session.Status, StatusCompleted, ErrStatusRegression)
		}
		out = output.Clone()
		if out == nil {
			out = record.Map{}
		}
		if _, ok := out["path"]; !ok {
			out["path"] = record.String(OutputFile)
		}
		out["completed_at"] = record.String(s.now().Format(time.RFC3339))
		st.Output = out
		st.Session.Status = StatusCompleted
		st.CurrentStage = slide.StageGeneration
		return slide.StageGeneration, nil
	})
	if err != nil {
		return nil, err
	}
	s.journal(log.LogEvent{Event: log.EventGenerationCompleted, Status: string(StatusCompleted)})
	return out.Clone(), nil
}

// SetStatus moves the session to status. Terminal statuses cannot be left.
func (s *Session) SetStatus(status Status) error {
	var from Status
	err := s.mutate(func(st *State) (slide.Stage, error) {
		from = st.Session.Status
		if !CanTransition(from, status) {
			return 0, fmt.Errorf("%s -> %s: %w", from, status, ErrStatusRegression)
		}
		st.Session.Status = status
		stage := st.CurrentStage
		if !stage.Valid() {
			stage = slide.StageSetup
		}
		return stage, nil
	})
	if err != nil {
		return err
	}
	s.journal(log.LogEvent{Event: log.EventStatusChanged, Status: string(status), Reason: string(from)})
	return nil
}

// Slide returns a copy of the slide at index.
func (s *Session) Slide(index int) (slide.Slide, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pos := slide.Find(s.state.Slides, index)
	if pos < 0 {
		return slide.Slide{}, false
	}
	return s.state.Slides[pos].Clone(), true
}

// Slides returns copies of every slide in index order.
func (s *Session) Slides() []slide.Slide {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]slide.Slide, len(s.state.Slides))
	for i, sl := range s.state.Slides {
		out[i] = sl.Clone()
	}
	return out
}

// Theme returns the theme recorded in setup, if any.
func (s *Session) Theme() record.Map {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Setup.Map("theme").Clone()
}

func attemptHistory(s slide.Slide) ([]quality.AttemptRecord, error) {
	raw, ok := s.Fields[slide.FieldAttemptHistory]
	if !ok {
		return []quality.AttemptRecord{}, nil
	}
	switch v := raw.(type) {
	case record.List:
	case record.Scalar:
		if !v.IsNull() {
			return nil, fmt.Errorf("slide %d attempt history: not a list", s.Index)
		}
		return []quality.AttemptRecord{}, nil
	default:
		return nil, fmt.Errorf("slide %d attempt history: not a list", s.Index)
	}
	var history []quality.AttemptRecord
	if err := record.Decode(raw, &history); err != nil {
		return nil, fmt.Errorf("slide %d attempt history: %w", s.Index, err)
	}
	return history, nil
}

func failureStrings(failures []quality.Failure) []string {
	out := make([]string, len(failures))
	for i, f := range failures {
		out[i] = string(f)
	}
	return out
}
