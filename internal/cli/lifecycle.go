// lifecycle.go implements the status transition commands and delete.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slideforge/slideforge/internal/session"
)

var pauseCmd = &cobra.Command{
	Use:   "pause <session>",
	Short: "Pause a session",
	Args:  cobra.ExactArgs(1),
	RunE:  statusCommand(session.StatusPaused),
}

var failCmd = &cobra.Command{
	Use:   "fail <session>",
	Short: "Mark a session failed",
	Args:  cobra.ExactArgs(1),
	RunE:  statusCommand(session.StatusFailed),
}

var deleteCmd = &cobra.Command{
	Use:   "delete <session>",
	Short: "Delete a session directory",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

var yesFlag bool

func init() {
	deleteCmd.Flags().BoolVarP(&yesFlag, "yes", "y", false, "Do not ask for confirmation")
}

func statusCommand(status session.Status) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		e, err := loadEnv()
		if err != nil {
			return err
		}
		defer e.close()

		s, err := e.manager.Resume(args[0])
		if err != nil {
			return err
		}
		if err := s.SetStatus(status); err != nil {
			return err
		}
		if l := e.openLedger(); l != nil {
			e.recordSession(l, s)
			_ = l.Close()
		}
		fmt.Printf("Session %s is %s\n", s.ID(), status)
		return nil
	}
}

func runDelete(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	id := args[0]
	if !yesFlag {
		fmt.Printf("Delete session %s and all its files? [y/N]: ", id)
		answer, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	if err := e.manager.Delete(id); err != nil {
		return err
	}
	if l := e.openLedger(); l != nil {
		if err := l.DeleteSession(id); err != nil {
			e.log.Warnw("ledger delete failed", "session", id, "error", err)
		}
		_ = l.Close()
	}
	fmt.Printf("Deleted session %s\n", id)
	return nil
}
