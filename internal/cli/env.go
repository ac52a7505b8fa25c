// env.go wires configuration, logging, sessions and collaborators for
// commands.
package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/slideforge/slideforge/internal/config"
	"github.com/slideforge/slideforge/internal/evaluate"
	"github.com/slideforge/slideforge/internal/ledger"
	"github.com/slideforge/slideforge/internal/log"
	"github.com/slideforge/slideforge/internal/quality"
	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/registry"
	"github.com/slideforge/slideforge/internal/render"
	"github.com/slideforge/slideforge/internal/session"
	"github.com/slideforge/slideforge/internal/slide"
)

// env is what every command works against.
type env struct {
	root    string
	cfg     *config.Config
	log     *zap.SugaredLogger
	manager *session.Manager
}

// loadEnv reads the project config from the working directory. A missing
// config file means defaults.
func loadEnv() (*env, error) {
	root, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("getting working directory: %w", err)
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return nil, err
	}

	level := cfg.Logging.Level
	if debug {
		level = "debug"
	}
	logger, err := log.New(cfg.Logging.Mode, level)
	if err != nil {
		return nil, err
	}

	outputDir := cfg.OutputDir
	if outputFlag != "" {
		outputDir = outputFlag
	}
	return &env{
		root:    root,
		cfg:     cfg,
		log:     logger,
		manager: session.NewManager(absPath(root, outputDir)),
	}, nil
}

func absPath(root, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(root, path)
}

func (e *env) close() {
	_ = e.log.Sync()
}

// openLedger opens the project ledger, or returns nil when it is disabled.
// An unopenable ledger is logged and skipped.
func (e *env) openLedger() *ledger.Ledger {
	if !e.cfg.Ledger.Enabled {
		return nil
	}
	l, err := ledger.Open(absPath(e.root, e.cfg.Ledger.Path))
	if err != nil {
		e.log.Warnw("ledger unavailable", "error", err)
		return nil
	}
	return l
}

// recordSession mirrors the session's metadata into the ledger.
func (e *env) recordSession(l *ledger.Ledger, s *session.Session) {
	if l == nil {
		return
	}
	sum := s.Summary()
	if err := l.UpsertSession(ledger.SessionRow{
		ID:        sum.ID,
		Title:     sum.Title,
		Status:    string(sum.Status),
		CreatedAt: sum.CreatedAt,
		UpdatedAt: sum.UpdatedAt,
	}); err != nil {
		e.log.Warnw("ledger write failed", "session", sum.ID, "error", err)
	}
}

// loadRegistry reads the configured template registry.
func (e *env) loadRegistry() (*registry.Registry, error) {
	reg, err := registry.Load(absPath(e.root, e.cfg.Registry))
	if err != nil {
		return nil, fmt.Errorf("loading template registry: %w", err)
	}
	return reg, nil
}

// controller assembles the evaluation loop for s.
func (e *env) controller(s *session.Session, reg *registry.Registry, l *ledger.Ledger) *evaluate.Controller {
	recorders := evaluate.Recorders{evaluate.NewSessionRecorder(s)}
	if l != nil {
		recorders = append(recorders, &evaluate.LedgerRecorder{Ledger: l, SessionID: s.ID(), Log: e.log})
	}

	var judge quality.Judge
	if e.cfg.Judge.Command != "" {
		judge = timeoutJudge{
			judge:   &quality.ClaudeJudge{Command: e.cfg.Judge.Command, Model: e.cfg.Judge.Model, WorkDir: s.Dir()},
			timeout: e.cfg.JudgeTimeout(),
		}
	}

	return &evaluate.Controller{
		Registry:  reg,
		Judge:     judge,
		Rematcher: registry.NewRematcher(reg),
		Renderer: timeoutRenderer{
			renderer: &render.CommandRenderer{Command: e.cfg.Render.Command, SessionID: s.ID(), SessionDir: s.Dir()},
			timeout:  e.cfg.RenderTimeout(),
		},
		Artifacts:   evaluate.FileArtifacts{Dir: s.Dir()},
		Recorder:    recorders,
		Events:      s.Events(),
		Log:         e.log,
		MaxParallel: e.cfg.Evaluation.MaxParallel,
	}
}

// timeoutJudge bounds each judge call.
type timeoutJudge struct {
	judge   quality.Judge
	timeout time.Duration
}

func (j timeoutJudge) Judge(ctx context.Context, req quality.JudgeRequest) (string, error) {
	if j.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.timeout)
		defer cancel()
	}
	return j.judge.Judge(ctx, req)
}

// timeoutRenderer bounds each render call.
type timeoutRenderer struct {
	renderer evaluate.Renderer
	timeout  time.Duration
}

func (r timeoutRenderer) Render(ctx context.Context, s slide.Slide, tmpl *registry.Template, theme record.Map) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.renderer.Render(ctx, s, tmpl, theme)
}

// parseIndex parses a slide index argument.
func parseIndex(arg string) (int, error) {
	index, err := strconv.Atoi(arg)
	if err != nil || index < 0 {
		return 0, fmt.Errorf("invalid slide index %q", arg)
	}
	return index, nil
}
