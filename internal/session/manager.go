package session

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/slideforge/slideforge/internal/log"
	"github.com/slideforge/slideforge/internal/slide"
)

// Directory layout inside a session directory.
const (
	SlidesDir     = "slides"
	AssetsDir     = "assets"
	IconsDir      = "assets/icons"
	ImagesDir     = "assets/images"
	ThumbnailsDir = "thumbnails"
	OutputFile    = "output.pptx"
)

// Manager creates and finds sessions under one output directory.
type Manager struct {
	root string
	now  func() time.Time
}

// NewManager returns a Manager rooted at outputDir.
func NewManager(outputDir string) *Manager {
	return &Manager{root: outputDir, now: time.Now}
}

// Root returns the output directory.
func (m *Manager) Root() string { return m.root }

// Create allocates a new session, lays out its directory, and persists its
// initial snapshot.
func (m *Manager) Create(title string) (*Session, error) {
	if err := os.MkdirAll(m.root, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	now := m.now()
	base := newID(title, now)
	id, dir := base, filepath.Join(m.root, base)
	for n := 2; ; n++ {
		err := os.Mkdir(dir, 0755)
		if err == nil {
			break
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("creating session directory: %w", err)
		}
		id = base + "-" + strconv.Itoa(n)
		dir = filepath.Join(m.root, id)
	}

	for _, sub := range []string{SlidesDir, IconsDir, ImagesDir, ThumbnailsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
			return nil, fmt.Errorf("creating session layout: %w", err)
		}
	}

	s := newSession(dir, m.now)
	s.state = State{
		Session: Meta{
			ID:        id,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
			Status:    StatusInProgress,
		},
		CurrentStage: slide.StageNone,
		Slides:       []slide.Slide{},
	}
	if err := writeSnapshot(dir, slide.StageSetup, &s.state); err != nil {
		return nil, err
	}
	s.journal(log.LogEvent{Event: log.EventSessionCreated, Status: string(StatusInProgress)})
	return s, nil
}

// Resume loads the most recently written snapshot of session id.
func (m *Manager) Resume(id string) (*Session, error) {
	if !validID(id) {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	dir := filepath.Join(m.root, id)
	st, err := readLatest(dir)
	if err != nil {
		return nil, err
	}
	if st == nil || st.Session.ID == "" {
		return nil, fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	s := newSession(dir, m.now)
	s.state = *st
	if s.state.Slides == nil {
		s.state.Slides = []slide.Slide{}
	}
	return s, nil
}

// List returns every readable session, newest creation first. Directories
// without a valid snapshot are skipped.
func (m *Manager) List() ([]Summary, error) {
	entries, err := os.ReadDir(m.root)
	if errors.Is(err, os.ErrNotExist) {
		return []Summary{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading output directory: %w", err)
	}

	summaries := []Summary{}
	for _, e := range entries {
		if !e.IsDir() || !validID(e.Name()) {
			continue
		}
		s, err := m.Resume(e.Name())
		if err != nil {
			continue
		}
		summaries = append(summaries, s.Summary())
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].CreatedAt.Equal(summaries[j].CreatedAt) {
			return summaries[i].ID > summaries[j].ID
		}
		return summaries[i].CreatedAt.After(summaries[j].CreatedAt)
	})
	return summaries, nil
}

// InProgress returns the sessions that are in progress or paused.
func (m *Manager) InProgress() ([]Summary, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}
	active := []Summary{}
	for _, s := range all {
		if s.Status.Active() {
			active = append(active, s)
		}
	}
	return active, nil
}

// Delete removes a session directory and everything in it.
func (m *Manager) Delete(id string) error {
	if !validID(id) {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	dir := filepath.Join(m.root, id)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("session %q: %w", id, ErrNotFound)
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("deleting session %q: %w", id, err)
	}
	return nil
}
