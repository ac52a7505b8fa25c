// Package report summarizes a session's evaluation results.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/slideforge/slideforge/internal/ledger"
	"github.com/slideforge/slideforge/internal/log"
	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/session"
)

// FileName is the report's name inside the session directory.
const FileName = "report.md"

// SlideLine is one slide's row in the report.
type SlideLine struct {
	Index      int
	Title      string
	TemplateID string
	Attempts   int
	Score      float64
	BestScore  float64
	Reason     quality.SelectionReason
	Failures   []quality.Failure
}

// Report holds the aggregated results of one session.
type Report struct {
	SessionID   string
	Title       string
	Status      session.Status
	Stage       string
	TotalSlides int
	Passed      int
	BestOf3     int
	Pending     int // evaluated but unresolved
	Unevaluated int
	Attempts    int
	Slides      []SlideLine
	Templates   []ledger.TemplateStat
	Duration    time.Duration
}

// GenerateReport builds the report for s. l may be nil, in which case the
// template statistics are omitted. A journal that cannot be read leaves
// Duration at zero.
func GenerateReport(s *session.Session, l *ledger.Ledger) (*Report, error) {
	summary := s.Summary()
	r := &Report{
		SessionID: summary.ID,
		Title:     summary.Title,
		Status:    summary.Status,
		Stage:     summary.StageName,
	}

	designs := s.DesignSummaries()
	titles := make(map[int]string, len(designs))
	for _, d := range designs {
		titles[d.Index] = d.Title
	}

	for _, st := range s.EvaluationStatuses() {
		r.TotalSlides++
		r.Attempts += st.Attempts
		line := SlideLine{
			Index:      st.Index,
			Title:      titles[st.Index],
			TemplateID: st.TemplateID,
			Attempts:   st.Attempts,
			Score:      st.CurrentScore,
			BestScore:  st.BestScore,
			Reason:     st.SelectedReason,
		}
		if n := len(st.History); n > 0 {
			line.Failures = st.History[n-1].CriticalFailures
		}
		r.Slides = append(r.Slides, line)

		switch {
		case !st.Evaluated:
			r.Unevaluated++
		case st.SelectedReason == quality.ReasonPassed:
			r.Passed++
		case st.SelectedReason == quality.ReasonBestOf3:
			r.BestOf3++
		default:
			r.Pending++
		}
	}

	if events := s.Events(); events != nil {
		if all, err := events.ReadAll(); err == nil {
			r.Duration = computeDuration(all)
		}
	}

	if l != nil {
		stats, err := l.TemplateStats()
		if err != nil {
			return r, fmt.Errorf("reading template statistics: %w", err)
		}
		r.Templates = stats
	}
	return r, nil
}

// FormatReport produces a terminal-friendly, human-readable summary string.
func FormatReport(r *Report) string {
	var b strings.Builder

	b.WriteString("========================================\n")
	b.WriteString("  Slideforge Session Report\n")
	b.WriteString("========================================\n")
	b.WriteString("\n")

	fmt.Fprintf(&b, "Session:     %s\n", r.SessionID)
	if r.Title != "" {
		fmt.Fprintf(&b, "Title:       %s\n", r.Title)
	}
	fmt.Fprintf(&b, "Status:      %s (%s)\n", r.Status, r.Stage)
	b.WriteString("\n")

	fmt.Fprintf(&b, "Slides:      %d total\n", r.TotalSlides)
	fmt.Fprintf(&b, "  Passed:      %d\n", r.Passed)
	fmt.Fprintf(&b, "  Best of 3:   %d\n", r.BestOf3)
	fmt.Fprintf(&b, "  Pending:     %d\n", r.Pending)
	fmt.Fprintf(&b, "  Unevaluated: %d\n", r.Unevaluated)
	fmt.Fprintf(&b, "Attempts:    %d\n", r.Attempts)
	b.WriteString("\n")

	if len(r.Slides) > 0 {
		b.WriteString("Slides:\n")
		for _, s := range r.Slides {
			reason := string(s.Reason)
			if reason == "" {
				reason = "-"
			}
			fmt.Fprintf(&b, "  %2d. %-30s %-14s %3.0f (best %3.0f, %d attempts) %s",
				s.Index, truncate(s.Title, 30), s.TemplateID, s.Score, s.BestScore, s.Attempts, reason)
			if len(s.Failures) > 0 {
				names := make([]string, len(s.Failures))
				for i, f := range s.Failures {
					names[i] = string(f)
				}
				fmt.Fprintf(&b, " [%s]", strings.Join(names, ", "))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if len(r.Templates) > 0 {
		b.WriteString("Templates (all sessions):\n")
		for _, t := range r.Templates {
			fmt.Fprintf(&b, "  %-20s %3d attempts  %3d passed  %3d critical  avg %.1f\n",
				t.TemplateID, t.Attempts, t.Passes, t.CriticalFailures, t.AvgScore)
		}
		b.WriteString("\n")
	}

	if r.Duration > 0 {
		fmt.Fprintf(&b, "Duration:    %s\n", formatDuration(r.Duration))
	}

	b.WriteString("========================================\n")

	return b.String()
}

// WriteReport writes the formatted report to {dir}/report.md.
// Creates the directory if it does not exist.
func WriteReport(dir string, report *Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}

	content := FormatReport(report)
	path := filepath.Join(dir, FileName)

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing report file: %w", err)
	}

	return nil
}

// computeDuration measures from session creation to the last batch_complete
// event, or to the last event when no batch has finished.
func computeDuration(events []log.LogEvent) time.Duration {
	var start, end time.Time
	for _, e := range events {
		if e.Event == log.EventSessionCreated && start.IsZero() {
			start = e.Time
		}
		if !e.Time.IsZero() {
			end = e.Time
		}
		if e.Event == log.EventBatchComplete {
			end = e.Time
		}
	}
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// formatDuration produces a human-readable duration string such as "5m 32s"
// or "1h 12m 5s". Sub-second durations are shown as "< 1s".
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return "< 1s"
	}

	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60

	switch {
	case h > 0:
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	case m > 0:
		return fmt.Sprintf("%dm %ds", m, s)
	default:
		return fmt.Sprintf("%ds", s)
	}
}
