package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/slideforge/slideforge/internal/slide"
)

// StageBar renders a static bar showing how far through the pipeline stage
// is, followed by the stage name.
func StageBar(stage slide.Stage, width int) string {
	bar := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(width),
		progress.WithoutPercentage(),
	)
	name := "new"
	if stage.Valid() {
		name = stage.String()
	}
	return fmt.Sprintf("%s %d/%d %s", bar.ViewAs(StageFraction(stage)), int(stage), len(slide.Stages), name)
}

// StageFraction is the completed share of the pipeline at stage.
func StageFraction(stage slide.Stage) float64 {
	if !stage.Valid() {
		return 0
	}
	return float64(stage) / float64(len(slide.Stages))
}
