package tui

import (
	"github.com/slideforge/slideforge/internal/session"
	"github.com/slideforge/slideforge/internal/slide"
)

// Snapshot is what the watch view shows at one point in time.
type Snapshot struct {
	Summary session.Summary
	Slides  []SlideRow
}

// SlideRow is one slide's line in the view.
type SlideRow struct {
	session.EvaluationStatus
	Title string
	Stage slide.Stage
}

// Loader produces a fresh snapshot.
type Loader func() (Snapshot, error)

// SessionLoader re-reads s from disk on every call so changes made by other
// processes show up.
func SessionLoader(s *session.Session) Loader {
	return func() (Snapshot, error) {
		if err := s.Reload(); err != nil {
			return Snapshot{}, err
		}
		return Capture(s), nil
	}
}

// Capture builds a snapshot from the session's in-memory state.
func Capture(s *session.Session) Snapshot {
	designs := s.DesignSummaries()
	evals := s.EvaluationStatuses()
	snap := Snapshot{Summary: s.Summary(), Slides: make([]SlideRow, len(evals))}
	for i, ev := range evals {
		row := SlideRow{EvaluationStatus: ev}
		if i < len(designs) {
			row.Title = designs[i].Title
			row.Stage = designs[i].Stage
		}
		snap.Slides[i] = row
	}
	return snap
}
