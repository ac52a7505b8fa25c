package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/slideforge/slideforge/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report <session>",
	Short: "Write and print the evaluation report for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runReport,
}

func runReport(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}
	l := e.openLedger()
	if l != nil {
		defer l.Close()
	}

	r, err := report.GenerateReport(s, l)
	if err != nil {
		return err
	}
	if err := report.WriteReport(s.Dir(), r); err != nil {
		return err
	}
	fmt.Print(report.FormatReport(r))
	fmt.Printf("\nWritten to %s\n", filepath.Join(s.Dir(), report.FileName))
	return nil
}
