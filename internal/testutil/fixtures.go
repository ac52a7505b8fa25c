// Package testutil provides test helper utilities for slideforge tests.
package testutil

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

// TempProject creates a temporary directory with the given files and returns its path.
// Files is a map of relative path -> content. Directories are created as needed.
// The directory is automatically cleaned up when the test finishes.
func TempProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	WriteFiles(t, dir, files)
	return dir
}

// WriteFiles writes files under dir, creating directories as needed.
func WriteFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for relPath, content := range files {
		absPath := filepath.Join(dir, relPath)
		if err := os.MkdirAll(filepath.Dir(absPath), 0755); err != nil {
			t.Fatalf("creating directory for %s: %v", relPath, err)
		}
		if err := os.WriteFile(absPath, []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", relPath, err)
		}
	}
}

// SlideHTML returns a well-formed slide artifact with the given title that
// passes every automatic check.
func SlideHTML(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><style>body { width: 720pt; height: 405pt; background: #FFFFFF; color: #222222; }</style></head>
<body>
<h1>%s</h1>
<ul><li>First</li><li>Second</li></ul>
</body>
</html>
`, title)
}

// OverflowHTML returns a slide artifact whose body is wider than the canvas.
func OverflowHTML(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><style>body { width: 960pt; height: 405pt; color: #222222; }</style></head>
<body>
<h1>%s</h1>
</body>
</html>
`, title)
}

// LowContrastHTML returns a slide artifact with light grey text on white.
func LowContrastHTML(title string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><style>body { width: 720pt; height: 405pt; background: #FFFFFF; color: #CCCCCC; }</style></head>
<body>
<h1>%s</h1>
</body>
</html>
`, title)
}

// RegistryYAML returns a small template registry covering two categories.
func RegistryYAML() string {
	return `- id: grid-3
  name: Three column grid
  category: grid
  element_count: 3
  design_intent: structured
  match_score: 0.7
- id: grid-4
  name: Four column grid
  category: grid
  element_count: 4
  design_intent: structured
  match_score: 0.8
- id: cards-4
  name: Four cards
  category: grid
  element_count: 4
  design_intent: playful
  match_score: 0.9
- id: timeline-5
  name: Five step timeline
  category: timeline
  element_count: 5
  design_intent: sequential
  match_score: 0.6
`
}
