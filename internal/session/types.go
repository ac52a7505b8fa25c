// Package session persists a deck's pipeline state: global setup plus the
// ordered slides, as cumulative per-stage JSON snapshots in one directory per
// session.
package session

import (
	"errors"
	"time"

	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/slide"
)

var (
	// ErrNotFound reports a missing session or slide.
	ErrNotFound = errors.New("not found")
	// ErrInvalidStage reports a stage outside the range an operation accepts.
	ErrInvalidStage = errors.New("invalid stage")
	// ErrStatusRegression reports a status change the lifecycle forbids.
	ErrStatusRegression = errors.New("status regression")
	// ErrSetupCompleted reports a second CompleteSetup call.
	ErrSetupCompleted = errors.New("setup already completed")
	// ErrInvalidIndex reports a negative slide index.
	ErrInvalidIndex = errors.New("invalid slide index")
)

// Status is a session's lifecycle state.
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusPaused     Status = "paused"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// transitions lists the statuses reachable from each status. Status only
// moves forward: a paused session can still be completed or failed but
// never returns to in_progress.
var transitions = map[Status][]Status{
	StatusInProgress: {StatusPaused, StatusCompleted, StatusFailed},
	StatusPaused:     {StatusCompleted, StatusFailed},
}

// CanTransition reports whether a session may move from one status to another.
// Setting the current status again is always allowed.
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Active reports whether the session can still make progress.
func (s Status) Active() bool {
	return s == StatusInProgress || s == StatusPaused
}

// Meta identifies a session.
type Meta struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Status    Status    `json:"status"`
}

// State is the full persisted state of a session. Every snapshot file holds
// one complete State.
type State struct {
	Session      Meta          `json:"session"`
	CurrentStage slide.Stage   `json:"current_stage"`
	Setup        record.Map    `json:"setup"`
	Slides       []slide.Slide `json:"slides"`
	Output       record.Map    `json:"output"`
}

// Clone returns a deep copy of st.
func (st State) Clone() State {
	out := st
	out.Setup = st.Setup.Clone()
	out.Output = st.Output.Clone()
	out.Slides = make([]slide.Slide, len(st.Slides))
	for i, s := range st.Slides {
		out.Slides[i] = s.Clone()
	}
	return out
}

// Summary is the listing view of a session.
type Summary struct {
	ID           string      `json:"id"`
	Title        string      `json:"title"`
	Status       Status      `json:"status"`
	CurrentStage slide.Stage `json:"current_stage"`
	StageName    string      `json:"stage_name"`
	SlideCount   int         `json:"slide_count"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
	Dir          string      `json:"dir"`
}

// DesignSummary describes one slide's design decisions.
type DesignSummary struct {
	Index        int         `json:"index"`
	Title        string      `json:"title"`
	Purpose      string      `json:"purpose"`
	Stage        slide.Stage `json:"stage"`
	TemplateID   string      `json:"template_id"`
	HTMLFile     string      `json:"html_file"`
	LayoutMatch  record.Map  `json:"layout_match,omitempty"`
	IconDecision record.Map  `json:"icon_decision,omitempty"`
	ItemCount    int         `json:"item_count"`
	Generated    bool        `json:"generated"`
}

// EvaluationStatus describes one slide's evaluation progress.
type EvaluationStatus struct {
	Index          int                     `json:"index"`
	Evaluated      bool                    `json:"evaluated"`
	Attempts       int                     `json:"attempts"`
	CurrentScore   float64                 `json:"current_score"`
	BestScore      float64                 `json:"best_score"`
	Passed         bool                    `json:"passed"`
	SelectedReason quality.SelectionReason `json:"selected_reason"`
	TemplateID     string                  `json:"template_id"`
	History        []quality.AttemptRecord `json:"history"`
}

// RerunContext is the working context handed to a caller that regenerates a
// slide from a given stage.
type RerunContext struct {
	Slide          slide.Slide   `json:"slide"`
	Setup          record.Map    `json:"setup"`
	Theme          record.Map    `json:"theme"`
	PreviousSlides []slide.Slide `json:"previous_slides"`
	RerunFrom      slide.Stage   `json:"rerun_from"`
	Preserved      record.Map    `json:"preserved"`
}
