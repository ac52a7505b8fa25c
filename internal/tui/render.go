package tui

import (
	"fmt"
	"strings"

	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/session"
	"github.com/slideforge/slideforge/internal/ui"
)

// Render draws a snapshot. With details set, each slide's attempts are
// listed under it.
func Render(snap Snapshot, details bool, width int) string {
	var b strings.Builder
	sum := snap.Summary

	title := sum.Title
	if title == "" {
		title = sum.ID
	}
	b.WriteString(TitleStyle.Render(title) + "  " + DimStyle.Render(sum.ID) + "\n")

	barWidth := 24
	if width > 0 && width < 60 {
		barWidth = 12
	}
	b.WriteString(ui.StageBar(sum.CurrentStage, barWidth) + "  " + statusLabel(sum.Status) + "\n\n")

	if len(snap.Slides) == 0 {
		b.WriteString(DimStyle.Render("No slides yet.") + "\n")
		return b.String()
	}

	var passed, bestOf3, pending int
	titleWidth := 32
	if width > 0 && width < 80 {
		titleWidth = 20
	}
	for _, row := range snap.Slides {
		switch {
		case !row.Evaluated:
			pending++
		case row.SelectedReason == quality.ReasonPassed:
			passed++
		case row.SelectedReason == quality.ReasonBestOf3:
			bestOf3++
		}

		fmt.Fprintf(&b, "%s %3d  %-*s %-16s %s\n",
			slideIcon(row.EvaluationStatus), row.Index, titleWidth, truncate(row.Title, titleWidth),
			row.TemplateID, scoreText(row.EvaluationStatus))

		if details {
			for _, rec := range row.History {
				line := fmt.Sprintf("#%d %-16s %3.0f", rec.Attempt, rec.TemplateID, rec.Score)
				if len(rec.CriticalFailures) > 0 {
					names := make([]string, len(rec.CriticalFailures))
					for i, f := range rec.CriticalFailures {
						names[i] = string(f)
					}
					line += " " + strings.Join(names, ", ")
				}
				b.WriteString("        " + DimStyle.Render(line) + "\n")
			}
		}
	}

	b.WriteString("\n" + joinDot([]string{
		fmt.Sprintf("%d/%d passed", passed, len(snap.Slides)),
		fmt.Sprintf("%d best of 3", bestOf3),
		fmt.Sprintf("%d not evaluated", pending),
	}) + "\n")
	return b.String()
}

func slideIcon(st session.EvaluationStatus) string {
	switch {
	case !st.Evaluated:
		return SlidePending
	case st.SelectedReason == quality.ReasonPassed:
		return SlidePassed
	case st.SelectedReason == quality.ReasonBestOf3:
		return SlideBestOf3
	default:
		return SlideNeedRetry
	}
}

func scoreText(st session.EvaluationStatus) string {
	if !st.Evaluated {
		return DimStyle.Render("-")
	}
	text := fmt.Sprintf("%3.0f", st.CurrentScore)
	if st.Attempts > 1 {
		text += DimStyle.Render(fmt.Sprintf(" (%d attempts, best %.0f)", st.Attempts, st.BestScore))
	}
	return text
}

func statusLabel(status session.Status) string {
	switch status {
	case session.StatusCompleted:
		return SuccessStyle.Render(string(status))
	case session.StatusFailed:
		return ErrorStyle.Render(string(status))
	case session.StatusPaused:
		return WarningStyle.Render(string(status))
	default:
		return string(status)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

func joinDot(parts []string) string {
	return strings.Join(parts, " • ")
}
