// session.go implements the commands that create sessions and write slide
// data: new, setup, update, rerun, reset and complete.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/slideforge/slideforge/internal/slide"
)

var newCmd = &cobra.Command{
	Use:   "new [title]",
	Short: "Create a new session",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runNew,
}

var setupCmd = &cobra.Command{
	Use:   "setup <session> <file>",
	Short: "Record the session's global setup (theme, audience, ...)",
	Long: `Record the setup object from a JSON or YAML file ("-" for stdin).
Setup can be completed once per session.`,
	Args: cobra.ExactArgs(2),
	RunE: runSetup,
}

var updateCmd = &cobra.Command{
	Use:   "update <session> <index> <file>",
	Short: "Deep-merge data into a slide",
	Long: `Deep-merge a JSON or YAML object ("-" for stdin) into the slide at
index, creating it if needed. Nested objects merge, lists and scalars
replace. The slide's stage is inferred from the fields it carries.`,
	Args: cobra.ExactArgs(3),
	RunE: runUpdate,
}

var rerunCmd = &cobra.Command{
	Use:   "rerun <session> <index>",
	Short: "Clear a slide's data from a stage onward",
	Long: `Remove the fields owned by --from and every later stage, keep the
outline and attempt history, and print the rerun context as JSON.`,
	Args: cobra.ExactArgs(2),
	RunE: runRerun,
}

var resetCmd = &cobra.Command{
	Use:   "reset <session> <index>",
	Short: "Clear a slide's template so another one can be matched",
	Args:  cobra.ExactArgs(2),
	RunE:  runReset,
}

var completeCmd = &cobra.Command{
	Use:   "complete <session> <file>",
	Short: "Record the generated output and mark the session completed",
	Args:  cobra.ExactArgs(2),
	RunE:  runComplete,
}

var rerunFromFlag int

func init() {
	rerunCmd.Flags().IntVar(&rerunFromFlag, "from", int(slide.StageMatching), "Stage to rerun from (2-5)")
}

func runNew(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	var title string
	if len(args) > 0 {
		title = args[0]
	}
	s, err := e.manager.Create(title)
	if err != nil {
		return err
	}
	if l := e.openLedger(); l != nil {
		e.recordSession(l, s)
		_ = l.Close()
	}

	fmt.Printf("Created session %s\n", s.ID())
	fmt.Printf("  %s\n", s.Dir())
	return nil
}

func runSetup(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}
	data, err := readRecord(args[1])
	if err != nil {
		return err
	}
	if _, err := s.CompleteSetup(data); err != nil {
		return err
	}
	fmt.Printf("Setup recorded for %s\n", s.ID())
	return nil
}

func runUpdate(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	data, err := readRecord(args[2])
	if err != nil {
		return err
	}
	updated, err := s.UpdateSlide(index, data)
	if err != nil {
		return err
	}
	fmt.Printf("Slide %d updated (stage %d %s)\n", index, int(updated.Stage()), updated.Stage())
	return nil
}

func runRerun(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	rc, err := s.RerunSlide(index, slide.Stage(rerunFromFlag))
	if err != nil {
		return err
	}

	return printJSON(rc)
}

func runReset(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}
	index, err := parseIndex(args[1])
	if err != nil {
		return err
	}
	if _, err := s.ResetForRematching(index); err != nil {
		return err
	}
	fmt.Printf("Slide %d ready for rematching\n", index)
	return nil
}

func runComplete(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	s, err := e.manager.Resume(args[0])
	if err != nil {
		return err
	}
	output, err := readRecord(args[1])
	if err != nil {
		return err
	}
	if _, err := s.CompleteGeneration(output); err != nil {
		return err
	}
	if l := e.openLedger(); l != nil {
		e.recordSession(l, s)
		_ = l.Close()
	}
	fmt.Printf("Session %s completed\n", s.ID())
	return nil
}
