package cli

import (
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/slideforge/slideforge/internal/tui"
)

var watchCmd = &cobra.Command{
	Use:   "watch <session>",
	Short: "Watch a session's stage and slide evaluations live",
	Long: `Show a live view of a session that refreshes while other commands
(run, evaluate, update) change it. Without a terminal, the current state is
printed once.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

var intervalFlag time.Duration

func init() {
	watchCmd.Flags().DurationVar(&intervalFlag, "interval", tui.DefaultInterval, "Refresh interval")
}

func runWatch(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}
	load := tui.SessionLoader(s)

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return tui.PrintOnce(os.Stdout, load, Verbose())
	}

	p := tea.NewProgram(tui.NewModel(load, intervalFlag), tea.WithAltScreen())
	_, err = p.Run()
	return err
}
