// Package cleanup prunes old session directories from the output directory.
package cleanup

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/slideforge/slideforge/internal/session"
)

// Options control a prune.
type Options struct {
	// DryRun reports what would be removed without removing it.
	DryRun bool
	// Protect lists session ids that are never removed, such as sessions
	// still in progress.
	Protect map[string]bool
}

type sessionDir struct {
	name    string
	created time.Time
}

// sessionDirs lists directories whose names carry a session timestamp,
// oldest first.
func sessionDirs(outputDir string) ([]sessionDir, error) {
	entries, err := os.ReadDir(outputDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading output directory: %w", err)
	}

	var dirs []sessionDir
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		created, ok := session.CreatedFromID(entry.Name())
		if !ok {
			continue
		}
		dirs = append(dirs, sessionDir{name: entry.Name(), created: created})
	}
	sort.SliceStable(dirs, func(i, j int) bool {
		if !dirs[i].created.Equal(dirs[j].created) {
			return dirs[i].created.Before(dirs[j].created)
		}
		return dirs[i].name < dirs[j].name
	})
	return dirs, nil
}

func remove(outputDir string, dirs []sessionDir, opts Options) ([]string, error) {
	var pruned []string
	for _, d := range dirs {
		if opts.Protect[d.name] {
			continue
		}
		if !opts.DryRun {
			if err := os.RemoveAll(filepath.Join(outputDir, d.name)); err != nil {
				return pruned, fmt.Errorf("removing %s: %w", d.name, err)
			}
		}
		pruned = append(pruned, d.name)
	}
	return pruned, nil
}

// PruneByAge removes sessions created more than maxAgeDays ago and returns
// their ids.
func PruneByAge(outputDir string, maxAgeDays int, opts Options) ([]string, error) {
	dirs, err := sessionDirs(outputDir)
	if err != nil {
		return nil, err
	}

	cutoff := time.Now().AddDate(0, 0, -maxAgeDays)
	var old []sessionDir
	for _, d := range dirs {
		if d.created.Before(cutoff) {
			old = append(old, d)
		}
	}
	return remove(outputDir, old, opts)
}

// PruneKeepRecent removes all but the keep most recently created sessions
// and returns the removed ids. Protected sessions count toward keep only if
// they are among the most recent.
func PruneKeepRecent(outputDir string, keep int, opts Options) ([]string, error) {
	dirs, err := sessionDirs(outputDir)
	if err != nil {
		return nil, err
	}
	if keep < 0 {
		keep = 0
	}
	if len(dirs) <= keep {
		return nil, nil
	}
	return remove(outputDir, dirs[:len(dirs)-keep], opts)
}
