// run.go implements the "slideforge run" command, which runs the evaluation
// loop over every slide of a session in order.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/slideforge/slideforge/internal/evaluate"
	"github.com/slideforge/slideforge/internal/report"
	"github.com/slideforge/slideforge/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run <session>",
	Short: "Evaluate every slide of a session in order",
	Long: `Run the full evaluation loop on each slide in index order. After
--threshold consecutive slides end without passing, the run stops so the
templates or content can be fixed before more judge calls are spent.
A report is written to the session directory when the run ends.`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

var (
	thresholdFlag int
	onlyPendFlag  bool
)

func init() {
	runCmd.Flags().IntVar(&thresholdFlag, "threshold", 0, "Consecutive unresolved slides before stopping (default from config)")
	runCmd.Flags().BoolVar(&onlyPendFlag, "pending", false, "Skip slides that already passed")
}

func runRun(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}
	if status := s.Summary().Status; !status.Active() {
		return fmt.Errorf("session %s is %s", s.ID(), status)
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

	slides := s.Slides()
	if onlyPendFlag {
		pending := slides[:0]
		for _, sl := range slides {
			if v, ok := session.CurrentVerdict(sl); ok && v.Passed {
				continue
			}
			pending = append(pending, sl)
		}
		slides = pending
	}
	if len(slides) == 0 {
		fmt.Println("Nothing to evaluate.")
		return nil
	}

	threshold := thresholdFlag
	if threshold <= 0 {
		threshold = e.cfg.Evaluation.CircuitBreakerThreshold
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	c := e.controller(s, reg, l)
	display := newDisplay(s, slides)
	c.Progress = display
	display.Start()
	summary, runErr := c.RunAll(ctx, slides, s.Theme(), evaluate.NewCircuitBreaker(threshold))
	display.Finish()

	if summary != nil && summary.Halted {
		fmt.Printf("\nStopped after %d consecutive slides without a pass; %d not evaluated: %v\n",
			threshold, len(summary.Remaining), summary.Remaining)
		if err := s.SetStatus(session.StatusPaused); err != nil {
			e.log.Warnw("pausing session failed", "error", err)
		}
		e.recordSession(l, s)
	}

	r, err := report.GenerateReport(s, l)
	if err != nil {
		e.log.Warnw("report incomplete", "error", err)
	}
	if r != nil {
		if err := report.WriteReport(s.Dir(), r); err != nil {
			e.log.Warnw("writing report failed", "error", err)
		}
	}
	return runErr
}
