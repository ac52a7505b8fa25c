// Package tui implements the live session view using Bubble Tea.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// DefaultInterval is how often the view re-reads the session.
const DefaultInterval = 2 * time.Second

// Model polls a session and renders its stage and per-slide evaluation state.
type Model struct {
	load     Loader
	interval time.Duration
	keys     KeyMap
	spinner  spinner.Model

	snap    Snapshot
	loaded  bool
	err     error
	details bool
	width   int
}

// NewModel creates a Model that calls load every interval.
func NewModel(load Loader, interval time.Duration) Model {
	if interval <= 0 {
		interval = DefaultInterval
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = WarningStyle
	return Model{
		load:     load,
		interval: interval,
		keys:     DefaultKeyMap,
		spinner:  sp,
		width:    80,
	}
}

// Init starts the spinner and the first load.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.fetch(false))
}

// fetch loads a snapshot off the update loop. Manual loads do not schedule
// another tick, so the polling chain stays single.
func (m Model) fetch(manual bool) tea.Cmd {
	load := m.load
	return func() tea.Msg {
		snap, err := load()
		return snapshotMsg{snap: snap, err: err, manual: manual}
	}
}

// Update handles key presses, resizes, loads and timer ticks.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Refresh):
			return m, m.fetch(true)
		case key.Matches(msg, m.keys.Details):
			m.details = !m.details
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.loaded = true
		}
		if msg.manual {
			return m, nil
		}
		return m, tea.Tick(m.interval, func(time.Time) tea.Msg { return tickMsg{} })

	case tickMsg:
		return m, m.fetch(false)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the current snapshot.
func (m Model) View() string {
	if !m.loaded {
		if m.err != nil {
			return ErrorStyle.Render("Error: "+m.err.Error()) + "\n"
		}
		return m.spinner.View() + " Loading session...\n"
	}

	indicator := ""
	if m.snap.Summary.Status.Active() {
		indicator = m.spinner.View() + " "
	}
	out := indicator + Render(m.snap, m.details, m.width)
	if m.err != nil {
		out += ErrorStyle.Render("Refresh failed: "+m.err.Error()) + "\n"
	}
	return out + "\n" + StatusBarStyle.Render(m.keys.help()) + "\n"
}

type snapshotMsg struct {
	snap   Snapshot
	err    error
	manual bool
}

type tickMsg struct{}
