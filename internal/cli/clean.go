package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slideforge/slideforge/internal/cleanup"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old session directories",
	Long: `Remove session directories older than cleanup.max_age_days, or all but
the newest --keep sessions. Sessions still in progress are never removed.`,
	Args: cobra.NoArgs,
	RunE: runClean,
}

var (
	keepFlag   int
	dryRunFlag bool
)

func init() {
	cleanCmd.Flags().IntVar(&keepFlag, "keep", 0, "Keep only the newest N sessions")
	cleanCmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "List what would be removed")
}

func runClean(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	opts := cleanup.Options{DryRun: dryRunFlag, Protect: map[string]bool{}}
	active, err := e.manager.InProgress()
	if err != nil {
		return err
	}
	for _, sum := range active {
		opts.Protect[sum.ID] = true
	}

	outputDir := e.manager.Root()
	var removed []string
	if keepFlag > 0 {
		removed, err = cleanup.PruneKeepRecent(outputDir, keepFlag, opts)
	} else {
		maxAge := e.cfg.Cleanup.MaxAgeDays
		if maxAge <= 0 {
			maxAge = 30
		}
		removed, err = cleanup.PruneByAge(outputDir, maxAge, opts)
	}
	if err != nil {
		return err
	}

	if len(removed) == 0 {
		fmt.Println("Nothing to remove.")
		return nil
	}
	verb := "Removed"
	if dryRunFlag {
		verb = "Would remove"
	}
	for _, id := range removed {
		fmt.Printf("  %s %s\n", verb, id)
	}

	if !dryRunFlag {
		if l := e.openLedger(); l != nil {
			for _, id := range removed {
				if err := l.DeleteSession(id); err != nil {
					e.log.Warnw("ledger cleanup failed", "session", id, "error", err)
				}
			}
			_ = l.Close()
		}
	}
	fmt.Printf("%s %d session(s).\n", verb, len(removed))
	return nil
}
