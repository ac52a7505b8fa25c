// Package render regenerates a slide's artifact by running a configured
// shell command after the slide's template changes.
package render

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/registry"
	"github.com/slideforge/slideforge/internal/slide"
)

// CommandRenderer runs Command through sh -c to produce a slide's HTML.
// Command is a text/template; see Data for the available fields. The
// command must write the artifact to {{.Output}}.
type CommandRenderer struct {
	Command    string
	SessionID  string
	SessionDir string
}

// Data is what the command template is rendered with.
type Data struct {
	Session      string
	SessionDir   string
	Index        int
	TemplateID   string
	TemplateFile string
	Output       string // absolute artifact path
	SlideFile    string // JSON with the slide, template and theme
}

var unsafeChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ArtifactRef returns the session-relative artifact path for a slide rendered
// with templateID. Each template gets its own file so earlier attempts stay
// on disk.
func ArtifactRef(index int, templateID string) string {
	name := unsafeChars.ReplaceAllString(templateID, "_")
	if name == "" {
		name = "untemplated"
	}
	return filepath.Join("slides", "slide-"+strconv.Itoa(index)+"-"+name+".html")
}

// Render writes the slide input file, runs the command, and returns the new
// artifact reference relative to the session directory. With no command
// configured the slide's current artifact reference is returned unchanged.
func (r *CommandRenderer) Render(ctx context.Context, s slide.Slide, tmpl *registry.Template, theme record.Map) (string, error) {
	if strings.TrimSpace(r.Command) == "" {
		return s.HTMLFile(), nil
	}
	if tmpl == nil {
		return "", fmt.Errorf("rendering slide %d: no template", s.Index)
	}

	ref := ArtifactRef(s.Index, tmpl.ID)
	output := filepath.Join(r.SessionDir, ref)
	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return "", fmt.Errorf("creating slides directory: %w", err)
	}

	slideFile, err := r.writeInput(s, tmpl, theme)
	if err != nil {
		return "", err
	}
	defer os.Remove(slideFile)

	data := Data{
		Session:      r.SessionID,
		SessionDir:   r.SessionDir,
		Index:        s.Index,
		TemplateID:   tmpl.ID,
		TemplateFile: tmpl.File,
		Output:       output,
		SlideFile:    slideFile,
	}
	command, err := expand(r.Command, data)
	if err != nil {
		return "", err
	}

	// A stale file from an earlier render must not pass for this one.
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("removing previous artifact: %w", err)
	}

	out, err := runStep(ctx, command, r.SessionDir)
	if err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("render interrupted: %w", ctx.Err())
		}
		return "", fmt.Errorf("render command failed: %w\noutput: %s", err, out)
	}
	if _, err := os.Stat(output); err != nil {
		return "", fmt.Errorf("render command did not write %s", ref)
	}
	return ref, nil
}

func (r *CommandRenderer) writeInput(s slide.Slide, tmpl *registry.Template, theme record.Map) (string, error) {
	input := struct {
		Slide    slide.Slide        `json:"slide"`
		Template *registry.Template `json:"template"`
		Theme    record.Map         `json:"theme"`
	}{s, tmpl, theme}
	data, err := json.MarshalIndent(input, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding render input: %w", err)
	}

	f, err := os.CreateTemp(filepath.Join(r.SessionDir, "slides"), ".render-*.json")
	if err != nil {
		return "", fmt.Errorf("writing render input: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing render input: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("writing render input: %w", err)
	}
	return f.Name(), nil
}

func expand(command string, data Data) (string, error) {
	tmpl, err := template.New("render").Option("missingkey=error").Parse(command)
	if err != nil {
		return "", fmt.Errorf("parsing render command: %w", err)
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("expanding render command: %w", err)
	}
	return b.String(), nil
}

// runStep executes a single shell command and returns the combined
// stdout+stderr output. Returns a non-nil error if the command exits
// with a non-zero status.
func runStep(ctx context.Context, command string, workDir string) (string, error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	if workDir != "" {
		cmd.Dir = workDir
	}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf

	err := cmd.Run()
	return buf.String(), err
}
