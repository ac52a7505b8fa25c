// status.go implements the "slideforge status" and "slideforge list" commands.
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/session"
	"github.com/slideforge/slideforge/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status <session>",
	Short: "Show a session's stage and per-slide evaluation state",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List sessions, newest first",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

var inProgressFlag bool

func init() {
	listCmd.Flags().BoolVar(&inProgressFlag, "in-progress", false, "Only sessions that are in progress or paused")
}

func runStatus(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}

	sum := s.Summary()
	fmt.Printf("Session: %s\n", sum.ID)
	if sum.Title != "" {
		fmt.Printf("Title:   %s\n", sum.Title)
	}
	fmt.Printf("Status:  %s\n", sum.Status)
	fmt.Printf("Stage:   %s\n", ui.StageBar(sum.CurrentStage, 30))
	fmt.Printf("Slides:  %d\n\n", sum.SlideCount)

	designs := s.DesignSummaries()
	for i, st := range s.EvaluationStatuses() {
		d := designs[i]
		fmt.Printf("  %s %2d. %-30s %-8s %-14s %s\n",
			evalIcon(st), d.Index, d.Title, d.Stage, d.TemplateID, formatEvalExtra(st))
		if Verbose() {
			for _, rec := range st.History {
				fmt.Printf("        #%d %-14s %3.0f %s\n", rec.Attempt, rec.TemplateID, rec.Score, formatFailures(rec.CriticalFailures))
			}
		}
	}
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	var sessions []session.Summary
	if inProgressFlag {
		sessions, err = e.manager.InProgress()
	} else {
		sessions, err = e.manager.List()
	}
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions found. Start one with: slideforge new \"deck title\"")
		return nil
	}

	for _, s := range sessions {
		fmt.Printf("  %-50s %-12s %-10s %2d slides\n", s.ID, s.Status, s.StageName, s.SlideCount)
	}
	return nil
}

func evalIcon(st session.EvaluationStatus) string {
	switch {
	case !st.Evaluated:
		return "○"
	case st.SelectedReason == quality.ReasonPassed:
		return "✅"
	case st.SelectedReason == quality.ReasonBestOf3:
		return "⚠"
	default:
		return "❌"
	}
}

func formatEvalExtra(st session.EvaluationStatus) string {
	if !st.Evaluated {
		return "[not evaluated]"
	}
	parts := []string{fmt.Sprintf("[score %.0f, best %.0f, %d attempts]", st.CurrentScore, st.BestScore, st.Attempts)}
	if st.SelectedReason != quality.ReasonNone {
		parts = append(parts, string(st.SelectedReason))
	}
	return strings.Join(parts, " ")
}

func formatFailures(failures []quality.Failure) string {
	if len(failures) == 0 {
		return ""
	}
	names := make([]string, len(failures))
	for i, f := range failures {
		names[i] = string(f)
	}
	return "[" + strings.Join(names, ", ") + "]"
}
