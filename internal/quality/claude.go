// claude.go implements a Judge backed by the Claude CLI.
package quality

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"text/template"

	"github.com/slideforge/slideforge/prompts"
)

// ClaudeOutput holds the parsed result from a Claude CLI invocation
// using --output-format json.
type ClaudeOutput struct {
	Result     string  `json:"result"`
	CostUSD    float64 `json:"cost_usd"`
	DurationMS int64   `json:"duration_ms"`
	SessionID  string  `json:"session_id"`
	IsError    bool    `json:"is_error"`
}

type claudeEnvelope struct {
	Type string `json:"type"`
	ClaudeOutput
}

// ParseClaudeOutput reads the JSON envelope printed by the Claude CLI.
func ParseClaudeOutput(raw []byte) (*ClaudeOutput, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, fmt.Errorf("empty claude output")
	}
	var env claudeEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("parsing claude output: %w", err)
	}
	if env.Type != "result" {
		return nil, fmt.Errorf("unexpected claude output type: %q (expected \"result\")", env.Type)
	}
	out := env.ClaudeOutput
	return &out, nil
}

// ClaudeJudge asks the Claude CLI to score an artifact.
type ClaudeJudge struct {
	// Command is the executable to run; "claude" when empty.
	Command string
	Model   string
	WorkDir string
}

var evaluatePrompt = template.Must(template.New("evaluate").Parse(prompts.JudgeEvaluateTemplate))

type promptData struct {
	Index         int
	Title         string
	Purpose       string
	TemplateID    string
	ElementCount  int
	Theme         string
	SlideJSON     string
	Content       string
	PassThreshold int
}

// BuildPrompt renders the evaluation prompt for req.
func BuildPrompt(req JudgeRequest) (string, error) {
	slideJSON, err := json.MarshalIndent(req.Slide, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding slide: %w", err)
	}
	data := promptData{
		Index:         req.Slide.Index,
		Title:         req.Slide.Title(),
		Purpose:       req.Slide.Purpose(),
		TemplateID:    req.Slide.TemplateID(),
		SlideJSON:     string(slideJSON),
		Content:       req.Content,
		PassThreshold: PassThreshold,
	}
	if req.Template != nil {
		data.TemplateID = req.Template.ID
		data.ElementCount = req.Template.ElementCount
	}
	if len(req.Theme) > 0 {
		theme, err := json.MarshalIndent(req.Theme, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encoding theme: %w", err)
		}
		data.Theme = string(theme)
	}

	var b strings.Builder
	if err := evaluatePrompt.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering judge prompt: %w", err)
	}
	return b.String(), nil
}

// Judge runs one non-interactive Claude invocation. The caller's context
// bounds it.
func (c *ClaudeJudge) Judge(ctx context.Context, req JudgeRequest) (string, error) {
	prompt, err := BuildPrompt(req)
	if err != nil {
		return "", err
	}

	command := c.Command
	if command == "" {
		command = "claude"
	}
	args := []string{
		"-p", prompt,
		"--append-system-prompt", prompts.JudgeSystemPrompt,
		"--output-format", "json",
	}
	if c.Model != "" {
		args = append(args, "--model", c.Model)
	}

	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = c.WorkDir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("judge interrupted: %w", ctx.Err())
		}
		return "", fmt.Errorf("judge exited with error: %w\nstderr: %s", err, stderr.String())
	}

	out, err := ParseClaudeOutput(stdout.Bytes())
	if err != nil {
		return "", err
	}
	if out.IsError {
		return "", fmt.Errorf("judge reported an error: %s", out.Result)
	}
	return out.Result, nil
}
