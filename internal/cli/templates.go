package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates [query]",
	Short: "List or search the template registry",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runTemplates,
}

var categoryFlag string

func init() {
	templatesCmd.Flags().StringVar(&categoryFlag, "category", "", "Only list templates in this category")
}

func runTemplates(cmd *cobra.Command, args []string) error {
	e, err := loadEnv()
	if err != nil {
		return err
	}
	defer e.close()

	reg, err := e.loadRegistry()
	if err != nil {
		return err
	}

	templates := reg.Templates()
	if len(args) == 1 {
		templates = reg.Search(args[0])
	}

	shown := 0
	for _, t := range templates {
		if categoryFlag != "" && !strings.EqualFold(t.Category, categoryFlag) {
			continue
		}
		shown++
		items := "-"
		if t.ElementCount > 0 {
			items = fmt.Sprintf("%d", t.ElementCount)
		}
		fmt.Printf("  %-20s %-12s %3s  %s\n", t.ID, t.Category, items, t.DesignIntent)
		if Verbose() && t.Description != "" {
			fmt.Printf("      %s\n", t.Description)
		}
	}
	if shown == 0 {
		fmt.Println("No matching templates.")
		return nil
	}
	fmt.Printf("\n%d of %d templates (categories: %s)\n", shown, reg.Len(), strings.Join(reg.Categories(), ", "))
	return nil
}
