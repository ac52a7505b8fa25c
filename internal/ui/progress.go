// Package ui provides terminal UI components for slideforge.
// This file implements the progress display shown during evaluation runs.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/slideforge/slideforge/internal/quality"
)

// SlideStatus represents the evaluation status of a single slide.
type SlideStatus int

const (
	StatusPending    SlideStatus = iota // Not started
	StatusEvaluating                    // Attempt in progress
	StatusPassed                        // Passed the quality bar
	StatusBestOf3                       // Exhausted attempts, best kept
	StatusFailed                        // Single evaluation failed, needs retry
)

// SlideState holds the display state of a single slide.
type SlideState struct {
	Index   int
	Title   string
	Status  SlideStatus
	Attempt int
	Score   float64
	Elapsed time.Duration
}

// ProgressDisplay manages a live-updating terminal progress view. It
// satisfies evaluate.Progress.
type ProgressDisplay struct {
	mu          sync.Mutex
	out         io.Writer
	header      string
	slides      []*SlideState
	slideIndex  map[int]int // slide index -> position in slides
	started     bool
	isTTY       bool
	linesDrawn  int
	startTimes  map[int]time.Time
	lastPrinted map[int]SlideStatus // last printed status per slide (non-TTY)
}

// NewProgressDisplay creates a ProgressDisplay writing to stdout.
func NewProgressDisplay(header string) *ProgressDisplay {
	return newProgressDisplay(os.Stdout, header, term.IsTerminal(int(os.Stdout.Fd())))
}

func newProgressDisplay(out io.Writer, header string, isTTY bool) *ProgressDisplay {
	return &ProgressDisplay{
		out:         out,
		header:      header,
		slideIndex:  make(map[int]int),
		startTimes:  make(map[int]time.Time),
		lastPrinted: make(map[int]SlideStatus),
		isTTY:       isTTY,
	}
}

// AddSlide registers a slide for progress tracking.
func (p *ProgressDisplay) AddSlide(index int, title string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.slideIndex[index] = len(p.slides)
	p.slides = append(p.slides, &SlideState{Index: index, Title: title})
}

// Start draws the initial progress display.
func (p *ProgressDisplay) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.started = true
	p.render()
}

// SlideStarted marks a slide as being evaluated.
func (p *ProgressDisplay) SlideStarted(index int) {
	p.update(index, func(s *SlideState) {
		s.Status = StatusEvaluating
		p.startTimes[index] = time.Now()
	})
}

// AttemptStarted records the attempt number in progress.
func (p *ProgressDisplay) AttemptStarted(index, attempt int) {
	p.update(index, func(s *SlideState) {
		s.Status = StatusEvaluating
		s.Attempt = attempt
	})
}

// SlideFinished records the slide's final verdict.
func (p *ProgressDisplay) SlideFinished(index int, v quality.Verdict) {
	p.update(index, func(s *SlideState) {
		switch {
		case v.SelectedReason == quality.ReasonBestOf3:
			s.Status = StatusBestOf3
		case v.Passed:
			s.Status = StatusPassed
		default:
			s.Status = StatusFailed
		}
		s.Score = v.Score
		if start, ok := p.startTimes[index]; ok {
			s.Elapsed = time.Since(start)
		}
	})
}

func (p *ProgressDisplay) update(index int, fn func(*SlideState)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, ok := p.slideIndex[index]
	if !ok {
		return
	}
	fn(p.slides[pos])
	if p.started {
		p.render()
	}
}

// Finish finalizes the display by moving the cursor below all output
// and printing a summary line.
func (p *ProgressDisplay) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.isTTY && p.linesDrawn > 0 {
		fmt.Fprint(p.out, "\n")
	}

	passed, bestOf3, failed := 0, 0, 0
	for _, s := range p.slides {
		switch s.Status {
		case StatusPassed:
			passed++
		case StatusBestOf3:
			bestOf3++
		case StatusFailed:
			failed++
		}
	}

	fmt.Fprintf(p.out, "\nDone: %d/%d passed", passed, len(p.slides))
	if bestOf3 > 0 {
		fmt.Fprintf(p.out, ", %d best of 3", bestOf3)
	}
	if failed > 0 {
		fmt.Fprintf(p.out, ", %d need retry", failed)
	}
	fmt.Fprintln(p.out)
}

// render draws or redraws the progress display.
func (p *ProgressDisplay) render() {
	if !p.isTTY {
		p.renderPlain()
		return
	}
	p.renderTTY()
}

// renderTTY draws the progress display using ANSI escape codes for in-place updates.
func (p *ProgressDisplay) renderTTY() {
	if p.linesDrawn > 0 {
		fmt.Fprintf(p.out, "\033[%dA", p.linesDrawn)
	}

	var buf strings.Builder
	fmt.Fprintf(&buf, "\033[2K\033[1mSlideforge - %q\033[0m\n", p.header)
	buf.WriteString("\033[2K\n")

	for _, s := range p.slides {
		buf.WriteString("\033[2K")
		buf.WriteString(formatSlideLine(s, p.startTimes))
		buf.WriteString("\n")
	}

	fmt.Fprint(p.out, buf.String())
	p.linesDrawn = len(p.slides) + 2 // header + blank + slides
}

// renderPlain writes non-TTY output (for CI/piping).
// Only prints on status transitions to avoid duplicate lines.
func (p *ProgressDisplay) renderPlain() {
	for _, s := range p.slides {
		if s.Status == StatusPending {
			continue
		}
		if prev, seen := p.lastPrinted[s.Index]; seen && prev == s.Status {
			continue
		}
		fmt.Fprintln(p.out, formatSlideLinePlain(s))
		p.lastPrinted[s.Index] = s.Status
	}
}

// formatSlideLine formats a single slide line with ANSI colors and status icons.
func formatSlideLine(s *SlideState, startTimes map[int]time.Time) string {
	title := s.Title
	if len(title) > 45 {
		title = title[:42] + "..."
	}
	return fmt.Sprintf("  %s %2d %s  %s", statusIcon(s.Status), s.Index, title, statusDetail(s, startTimes))
}

// formatSlideLinePlain formats a slide line for non-TTY output.
func formatSlideLinePlain(s *SlideState) string {
	var status string
	switch s.Status {
	case StatusEvaluating:
		status = "EVALUATING"
	case StatusPassed:
		status = fmt.Sprintf("PASSED %.0f", s.Score)
	case StatusBestOf3:
		status = fmt.Sprintf("BEST OF 3 %.0f", s.Score)
	case StatusFailed:
		status = fmt.Sprintf("FAILED %.0f", s.Score)
	default:
		status = "PENDING"
	}
	return fmt.Sprintf("[%s] slide %d: %s", status, s.Index, s.Title)
}

// statusIcon returns the status icon for a slide.
func statusIcon(status SlideStatus) string {
	switch status {
	case StatusPassed:
		return "\033[32m\u2705\033[0m" // green checkmark
	case StatusEvaluating:
		return "\033[33m\u23f3\033[0m" // yellow hourglass
	case StatusBestOf3:
		return "\033[33m\u26a0\033[0m" // yellow warning
	case StatusFailed:
		return "\033[31m\u274c\033[0m" // red X
	default:
		return "\033[90m\u25cb\033[0m" // dim circle
	}
}

// statusDetail returns the right-side detail text for a slide.
func statusDetail(s *SlideState, startTimes map[int]time.Time) string {
	switch s.Status {
	case StatusPassed:
		return fmt.Sprintf("\033[90m[%.0f, %s]\033[0m", s.Score, formatDuration(s.Elapsed))
	case StatusEvaluating:
		elapsed := time.Since(startTimes[s.Index])
		return fmt.Sprintf("\033[33m[attempt %d, %s]\033[0m", s.Attempt, formatDuration(elapsed))
	case StatusBestOf3:
		return fmt.Sprintf("\033[33m[best of 3: %.0f]\033[0m", s.Score)
	case StatusFailed:
		return fmt.Sprintf("\033[31m[%.0f, needs retry]\033[0m", s.Score)
	default:
		return "\033[90m[pending]\033[0m"
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d < time.Minute {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	if d < time.Hour {
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%dh%dm%ds", h, m, s)
}
