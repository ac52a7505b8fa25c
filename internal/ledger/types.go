// Package ledger provides SQLite-backed history of evaluation attempts across
// every session in a project.
package ledger

import "time"

// SessionRow mirrors a session's metadata.
type SessionRow struct {
	ID        string
	Title     string
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Attempt is one evaluated attempt of one slide.
type Attempt struct {
	ID               int
	SessionID        string
	Slide            int
	Attempt          int
	TemplateID       string
	HTMLFile         string
	Score            float64
	Passed           bool
	CriticalFailures []string
	Digest           string
	Timestamp        time.Time
}

// Outcome is how a slide's evaluation loop ended.
type Outcome struct {
	SessionID  string
	Slide      int
	Reason     string // passed, best_of_3
	Score      float64
	TemplateID string
	UpdatedAt  time.Time
}

// TemplateStat aggregates attempts per template.
type TemplateStat struct {
	TemplateID       string
	Attempts         int
	Passes           int
	CriticalFailures int
	AvgScore         float64
}
