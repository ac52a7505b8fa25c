// Package cli defines Cobra command definitions for the slideforge CLI.
// This file contains the root command, version flag, and global flags.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	outputFlag string
	verbose    bool
	debug      bool
	version    = "dev" // set via ldflags at build time
)

var rootCmd = &cobra.Command{
	Use:   "slideforge",
	Short: "Slide deck pipeline with automatic quality evaluation",
	Long: `Slideforge tracks slide deck sessions through five stages (setup,
outline, matching, content, generation) and evaluates rendered slides,
retrying with alternative templates until each slide passes or the best
of three attempts is kept.`,
	Version:       version,
	SilenceErrors: true,
	SilenceUsage:  true,
}

// Execute runs the root command. Called from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// Verbose returns true if --verbose flag is set.
func Verbose() bool {
	return verbose
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outputFlag, "output", "", "Session output directory (overrides config output_dir)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "Print per-attempt details")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Log at debug level")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(newCmd)
	rootCmd.AddCommand(setupCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(rerunCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(failCmd)
	rootCmd.AddCommand(completeCmd)
	rootCmd.AddCommand(templatesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(cleanCmd)
}
