package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slideforge/slideforge/internal/slide"
)

// writeSnapshot writes the complete state to the stage's snapshot file. The
// file is replaced atomically so readers never see a partial snapshot.
func writeSnapshot(dir string, stage slide.Stage, st *State) error {
	if !stage.Valid() {
		return fmt.Errorf("writing snapshot for %v: %w", stage, ErrInvalidStage)
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling session state: %w", err)
	}

	path := filepath.Join(dir, stage.FileName())
	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}

// readSnapshot reads one stage's snapshot.
// Returns nil, nil if the file does not exist (not an error).
func readSnapshot(dir string, stage slide.Stage) (*State, error) {
	path := filepath.Join(dir, stage.FileName())
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading snapshot %s: %w", stage.FileName(), err)
	}
	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing snapshot %s: %w", stage.FileName(), err)
	}
	return &st, nil
}

// readLatest returns the most recently written snapshot in dir, judged by the
// session's updated_at; on a tie the higher stage wins. Returns nil, nil when
// no snapshot exists.
func readLatest(dir string) (*State, error) {
	var latest *State
	for i := len(slide.Stages) - 1; i >= 0; i-- {
		st, err := readSnapshot(dir, slide.Stages[i])
		if err != nil {
			return nil, err
		}
		if st == nil {
			continue
		}
		if latest == nil || st.Session.UpdatedAt.After(latest.Session.UpdatedAt) {
			latest = st
		}
	}
	return latest, nil
}
