// evaluate.go implements the "slideforge evaluate" command.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/slideforge/slideforge/internal/evaluate"
	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/session"
	"github.com/slideforge/slideforge/internal/slide"
	"github.com/slideforge/slideforge/internal/ui"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <session> [index]",
	Short: "Evaluate a slide, retrying with other templates until it passes",
	Long: `Run the evaluation loop on one slide: automatic checks, then the
judge, up to three attempts with a different template each time. The slide
resolves as passed or, after three attempts, as the best-scoring attempt.

With --all, every slide is evaluated once, concurrently, and slides that
fail are reported as needing a retry.

Exits non-zero only when the loop could not run (missing session or slide,
unreadable registry, failed write).`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runEvaluate,
}

var (
	allFlag  bool
	jsonFlag bool
)

func init() {
	evaluateCmd.Flags().BoolVar(&allFlag, "all", false, "Evaluate every slide once, concurrently")
	evaluateCmd.Flags().BoolVar(&jsonFlag, "json", false, "Print the result as JSON")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	if allFlag == (len(args) == 2) {
		return fmt.Errorf("give either a slide index or --all")
	}

	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}
	reg, err := e.loadRegistry()
	if err != nil {
		return err
	}
	l := e.openLedger()
	if l != nil {
		defer l.Close()
		e.recordSession(l, s)
	}
	c := e.controller(s, reg, l)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if allFlag {
		return evaluateAll(ctx, c, s)
	}

	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	sl, ok := s.Slide(index)
	if !ok {
		return fmt.Errorf("slide %d: %w", index, session.ErrNotFound)
	}

	res, err := c.Run(ctx, sl, s.Theme())
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(res)
	}
	printResult(res)
	return nil
}

func evaluateAll(ctx context.Context, c *evaluate.Controller, s *session.Session) error {
	slides := s.Slides()
	if len(slides) == 0 {
		return fmt.Errorf("session %s has no slides", s.ID())
	}

	var display *ui.ProgressDisplay
	if !jsonFlag {
		display = newDisplay(s, slides)
		c.Progress = display
		display.Start()
	}

	results, err := c.EvaluateAll(ctx, slides, s.Theme())
	if display != nil {
		display.Finish()
	}
	if err != nil {
		return err
	}
	if jsonFlag {
		return printJSON(results)
	}
	for _, r := range results {
		if r.NeedsRetry {
			fmt.Printf("  slide %d needs retry: %s\n", r.Index, formatFailures(r.Verdict.CriticalFailures))
		}
	}
	return nil
}

func newDisplay(s *session.Session, slides []slide.Slide) *ui.ProgressDisplay {
	title := s.Summary().Title
	if title == "" {
		title = s.ID()
	}
	display := ui.NewProgressDisplay(title)
	for _, sl := range slides {
		display.AddSlide(sl.Index, sl.Title())
	}
	return display
}

func printResult(res *evaluate.Result) {
	v := res.Verdict
	switch v.SelectedReason {
	case quality.ReasonPassed:
		fmt.Printf("Slide %d passed with %.0f on attempt %d (%s)\n", res.Index, v.Score, v.AttemptNumber, res.FinalTemplateID)
	case quality.ReasonBestOf3:
		fmt.Printf("Slide %d did not pass; kept attempt %d with %.0f (%s)\n", res.Index, v.AttemptNumber, v.Score, res.FinalTemplateID)
	}
	if Verbose() {
		for _, rec := range res.History {
			fmt.Printf("  #%d %-14s %3.0f %s\n", rec.Attempt, rec.TemplateID, rec.Score, formatFailures(rec.CriticalFailures))
			for _, issue := range rec.Issues {
				fmt.Printf("      - %s\n", issue)
			}
		}
	}
	if !v.Passed && len(v.AlternativeTemplates) > 0 {
		fmt.Printf("  alternatives: %v\n", v.AlternativeTemplates)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
