package session

import (
	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/slide"
)

// Summary describes the session as a whole.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	return Summary{
		ID:           st.Session.ID,
		Title:        st.Session.Title,
		Status:       st.Session.Status,
		CurrentStage: st.CurrentStage,
		StageName:    stageName(st.CurrentStage),
		SlideCount:   len(st.Slides),
		CreatedAt:    st.Session.CreatedAt,
		UpdatedAt:    st.Session.UpdatedAt,
		Dir:          s.dir,
	}
}

func stageName(stage slide.Stage) string {
	if !stage.Valid() {
		return "new"
	}
	return stage.String()
}

// DesignSummary describes the design decisions recorded on one slide.
func (s *Session) DesignSummary(index int) (DesignSummary, bool) {
	sl, ok := s.Slide(index)
	if !ok {
		return DesignSummary{}, false
	}
	return designSummary(sl), true
}

// DesignSummaries describes every slide in index order.
func (s *Session) DesignSummaries() []DesignSummary {
	slides := s.Slides()
	out := make([]DesignSummary, len(slides))
	for i, sl := range slides {
		out[i] = designSummary(sl)
	}
	return out
}

func designSummary(sl slide.Slide) DesignSummary {
	return DesignSummary{
		Index:        sl.Index,
		Title:        sl.Title(),
		Purpose:      sl.Purpose(),
		Stage:        sl.Stage(),
		TemplateID:   sl.TemplateID(),
		HTMLFile:     sl.HTMLFile(),
		LayoutMatch:  sl.Fields.Map(slide.FieldLayoutMatch),
		IconDecision: sl.Fields.Map(slide.FieldIconDecision),
		ItemCount:    sl.ItemCount(),
		Generated:    sl.Fields.Present(slide.FieldGenerated) || sl.Fields.Present(slide.FieldGeneration),
	}
}

// EvaluationStatus reports one slide's evaluation progress. An unreadable
// history or verdict is reported as not evaluated.
func (s *Session) EvaluationStatus(index int) (EvaluationStatus, bool) {
	sl, ok := s.Slide(index)
	if !ok {
		return EvaluationStatus{}, false
	}
	return evaluationStatus(sl), true
}

// EvaluationStatuses reports every slide's evaluation progress in index order.
func (s *Session) EvaluationStatuses() []EvaluationStatus {
	slides := s.Slides()
	out := make([]EvaluationStatus, len(slides))
	for i, sl := range slides {
		out[i] = evaluationStatus(sl)
	}
	return out
}

func evaluationStatus(sl slide.Slide) EvaluationStatus {
	status := EvaluationStatus{Index: sl.Index, TemplateID: sl.TemplateID()}

	history, err := attemptHistory(sl)
	if err == nil {
		status.History = history
		status.Attempts = len(history)
		for i, rec := range history {
			if i == 0 || rec.Score > status.BestScore {
				status.BestScore = rec.Score
			}
		}
	}

	if v, ok := CurrentVerdict(sl); ok {
		status.Evaluated = true
		status.CurrentScore = v.Score
		status.Passed = v.Passed
		status.SelectedReason = v.SelectedReason
	}
	return status
}

// CurrentVerdict decodes the slide's stored evaluation.
func CurrentVerdict(sl slide.Slide) (quality.Verdict, bool) {
	raw, ok := sl.Fields[slide.FieldEvaluation].(record.Map)
	if !ok {
		return quality.Verdict{}, false
	}
	var v quality.Verdict
	if err := record.Decode(raw, &v); err != nil {
		return quality.Verdict{}, false
	}
	return v, true
}

// AttemptHistory decodes the slide's attempt history.
func AttemptHistory(sl slide.Slide) ([]quality.AttemptRecord, error) {
	return attemptHistory(sl)
}
