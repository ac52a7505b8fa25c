package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slideforge/slideforge/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [session]",
	Short: "Show recent evaluation attempts from the project ledger",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

var (
	limitFlag int
	statsFlag bool
)

func init() {
	historyCmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Number of attempts to show")
	historyCmd.Flags().BoolVar(&statsFlag, "stats", false, "Show per-template pass rates instead")
}

func runHistory(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if !e.cfg.Ledger.Enabled {
		return fmt.Errorf("the ledger is disabled in config")
	}
	l, err := ledger.Open(absPath(e.root, e.cfg.Ledger.Path))
	if err != nil {
		return err
	}
	defer l.Close()

	if statsFlag {
		stats, err := l.TemplateStats()
		if err != nil {
			return err
		}
		if len(stats) == 0 {
			fmt.Println("No attempts recorded.")
			return nil
		}
		fmt.Printf("  %-20s %8s %6s %9s %6s\n", "TEMPLATE", "ATTEMPTS", "PASSED", "CRITICAL", "AVG")
		for _, st := range stats {
			fmt.Printf("  %-20s %8d %6d %9d %6.1f\n", st.TemplateID, st.Attempts, st.Passes, st.CriticalFailures, st.AvgScore)
		}
		return nil
	}

	var attempts []ledger.Attempt
	if len(args) == 1 {
		attempts, err = l.SessionAttempts(args[0])
	} else {
		attempts, err = l.RecentAttempts(limitFlag)
	}
	if err != nil {
		return err
	}
	if len(attempts) == 0 {
		fmt.Println("No attempts recorded.")
		return nil
	}

	for _, a := range attempts {
		mark := "✗"
		if a.Passed {
			mark = "✓"
		}
		line := fmt.Sprintf("  %s %s  %-32s slide %-3d #%d %-16s %3.0f",
			mark, a.Timestamp.Local().Format("2006-01-02 15:04"), a.SessionID, a.Slide, a.Attempt, a.TemplateID, a.Score)
		if len(a.CriticalFailures) > 0 {
			line += "  " + strings.Join(a.CriticalFailures, ", ")
		}
		fmt.Println(line)
	}
	return nil
}
