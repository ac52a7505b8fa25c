// init.go implements the "slideforge init" command with optional --guided flag.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/slideforge/slideforge/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize slideforge in the current project",
	Long: `Write .slideforge/config.yaml with default settings and create the
session output directory.`,
	RunE: runInit,
}

var guidedFlag bool

func init() {
	initCmd.Flags().BoolVar(&guidedFlag, "guided", false, "Interactive prompts for configuration overrides")
}

func runInit(cmd *cobra.Command, args []string) error {
	dir, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting working directory: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)
	if info, statErr := os.Stat(config.Dir(dir)); statErr == nil && info.IsDir() {
		fmt.Println("Warning: .slideforge/ directory already exists.")
		fmt.Print("Reinitialize? [y/N]: ")
		answer, _ := reader.ReadString('\n')
		answer = strings.TrimSpace(strings.ToLower(answer))
		if answer != "y" && answer != "yes" {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := config.DefaultConfig()
	if guidedFlag {
		guidedOverrides(reader, cfg)
	}

	if err := config.WriteConfig(dir, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, cfg.OutputDir), 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := ensureGitignore(dir, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to set up .gitignore: %v\n", err)
	}

	fmt.Println()
	fmt.Println("Slideforge initialized")
	fmt.Println("Configuration written to .slideforge/config.yaml")
	if _, err := os.Stat(absPath(dir, cfg.Registry)); err != nil {
		fmt.Printf("Template registry not found at %s; add one before evaluating.\n", cfg.Registry)
	}
	fmt.Println("Ready to start: slideforge new \"deck title\"")
	return nil
}

// guidedOverrides prompts for the settings most projects change.
func guidedOverrides(reader *bufio.Reader, cfg *config.Config) {
	fmt.Println()
	fmt.Println("--- Guided Configuration ---")

	prompt := func(label string, current *string) {
		shown := *current
		if shown == "" {
			shown = "none"
		}
		fmt.Printf("%s [%s]: ", label, shown)
		if answer, err := reader.ReadString('\n'); err == nil {
			if answer = strings.TrimSpace(answer); answer != "" {
				*current = answer
			}
		}
	}
	prompt("Output directory", &cfg.OutputDir)
	prompt("Template registry", &cfg.Registry)
	prompt("Judge command (empty for built-in default)", &cfg.Judge.Command)
	prompt("Judge model", &cfg.Judge.Model)
	prompt("Render command", &cfg.Render.Command)

	fmt.Println("--- End Guided Configuration ---")
	fmt.Println()
}

// ensureGitignore appends the session output and ledger to .gitignore when
// they are not already listed.
func ensureGitignore(dir string, cfg *config.Config) error {
	gitignorePath := filepath.Join(dir, ".gitignore")

	requiredEntries := []string{
		strings.TrimSuffix(cfg.OutputDir, "/") + "/",
		cfg.Ledger.Path,
		".DS_Store",
	}

	existing := ""
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existing = string(data)
	}

	var missing []string
	for _, entry := range requiredEntries {
		if !strings.Contains(existing, entry) {
			missing = append(missing, entry)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var toAppend strings.Builder
	if existing != "" && !strings.HasSuffix(existing, "\n") {
		toAppend.WriteString("\n")
	}
	if existing != "" {
		toAppend.WriteString("\n# Added by slideforge init\n")
	}
	for _, entry := range missing {
		toAppend.WriteString(entry + "\n")
	}

	f, err := os.OpenFile(gitignorePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening .gitignore: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(toAppend.String()); err != nil {
		return fmt.Errorf("writing .gitignore: %w", err)
	}
	return nil
}
