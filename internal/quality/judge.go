package quality

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"

	"github.com/tidwall/jsonc"
	"go.uber.org/zap"

	"github.com/slideforge/slideforge/internal/record"
	"github.com/slideforge/slideforge/internal/registry"
	"github.com/slideforge/slideforge/internal/slide"
)

// ErrMalformedJudgeResponse is returned by ParseJudgeResponse when the raw
// response holds no usable score.
var ErrMalformedJudgeResponse = errors.New("malformed judge response")

// JudgeRequest is everything a judge sees about one artifact.
type JudgeRequest struct {
	Content  string
	Slide    slide.Slide
	Template *registry.Template
	Theme    record.Map
}

// Judge scores an artifact and returns its raw textual response, which is
// expected to contain a JSON object with a total_score.
type Judge interface {
	Judge(ctx context.Context, req JudgeRequest) (string, error)
}

// JudgeFunc adapts a function to Judge.
type JudgeFunc func(ctx context.Context, req JudgeRequest) (string, error)

// Judge calls f.
func (f JudgeFunc) Judge(ctx context.Context, req JudgeRequest) (string, error) {
	return f(ctx, req)
}

// JudgeResult is a parsed judge response.
type JudgeResult struct {
	TotalScore           float64   `json:"total_score"`
	Passed               bool      `json:"passed"`
	Details              *Details  `json:"details"`
	CriticalFailures     []Failure `json:"critical_failures"`
	Suggestions          []string  `json:"improvement_suggestions"`
	AlternativeTemplates []string  `json:"alternative_templates"`
}

var (
	fencedJSON = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	bareJSON   = regexp.MustCompile(`(?s)\{.*"total_score".*\}`)
)

// ParseJudgeResponse extracts the JSON verdict from raw. A fenced ```json
// block is preferred; otherwise the widest brace-delimited span mentioning
// total_score is used. Comments and trailing commas are tolerated.
func ParseJudgeResponse(raw string) (JudgeResult, error) {
	var body string
	if m := fencedJSON.FindStringSubmatch(raw); m != nil {
		body = m[1]
	} else if m := bareJSON.FindString(raw); m != "" {
		body = m
	} else {
		return JudgeResult{}, fmt.Errorf("%w: no JSON object found", ErrMalformedJudgeResponse)
	}

	var shape struct {
		TotalScore *float64 `json:"total_score"`
	}
	clean := jsonc.ToJSON([]byte(body))
	if err := json.Unmarshal(clean, &shape); err != nil {
		return JudgeResult{}, fmt.Errorf("%w: %v", ErrMalformedJudgeResponse, err)
	}
	if shape.TotalScore == nil {
		return JudgeResult{}, fmt.Errorf("%w: total_score missing", ErrMalformedJudgeResponse)
	}

	var result JudgeResult
	if err := json.Unmarshal(clean, &result); err != nil {
		return JudgeResult{}, fmt.Errorf("%w: %v", ErrMalformedJudgeResponse, err)
	}
	return result, nil
}

// DegradedResult stands in for a response that could not be parsed. It
// never passes.
func DegradedResult() JudgeResult {
	return JudgeResult{
		TotalScore: 50,
		Passed:     false,
		Details: &Details{
			Layout:     CategoryScore{Score: 12, Max: 25, Issues: []string{"judge response could not be parsed"}},
			Typography: CategoryScore{Score: 10, Max: 20, Issues: []string{}},
			Color:      CategoryScore{Score: 10, Max: 20, Issues: []string{}},
			ContentFit: CategoryScore{Score: 12, Max: 25, Issues: []string{}},
			Visual:     CategoryScore{Score: 6, Max: 10, Issues: []string{}},
		},
		Suggestions: []string{"retry evaluation"},
	}
}

// DefaultResult is the canned response used when no judge is configured.
func DefaultResult() JudgeResult {
	return JudgeResult{
		TotalScore: 75,
		Passed:     true,
		Details: &Details{
			Layout:     CategoryScore{Score: 20, Max: 25, Issues: []string{}},
			Typography: CategoryScore{Score: 15, Max: 20, Issues: []string{}},
			Color:      CategoryScore{Score: 15, Max: 20, Issues: []string{}},
			ContentFit: CategoryScore{Score: 18, Max: 25, Issues: []string{}},
			Visual:     CategoryScore{Score: 7, Max: 10, Issues: []string{}},
		},
	}
}

// Combine turns a judge result into a verdict. The score is clamped to
// [0, 100]; any critical failure the judge reports forces it to zero. A
// verdict passes only at or above PassThreshold with no critical failures.
func Combine(j JudgeResult) Verdict {
	score := j.TotalScore
	switch {
	case score < 0:
		score = 0
	case score > 100:
		score = 100
	}
	failures := cloneFailures(j.CriticalFailures)
	if len(failures) > 0 {
		score = 0
	}

	v := Verdict{
		Score:                score,
		Passed:               score >= PassThreshold && len(failures) == 0,
		Details:              j.Details,
		CriticalFailures:     failures,
		Suggestions:          j.Suggestions,
		AlternativeTemplates: j.AlternativeTemplates,
	}
	if v.Passed {
		v.SelectedReason = ReasonPassed
	}
	return v
}

// Evaluator runs automatic checks and, when they pass, the judge.
type Evaluator struct {
	// Judge scores artifacts that pass the automatic checks. Nil means the
	// canned DefaultResult.
	Judge Judge
	Log   *zap.SugaredLogger
}

// Evaluate produces a verdict for one artifact. It never fails: judge errors
// and unparseable responses degrade to a failing verdict.
func (e *Evaluator) Evaluate(ctx context.Context, req JudgeRequest) Verdict {
	checks := RunAutoChecks(req.Content, req.Slide, req.Template)
	if checks.HasCriticalFailure {
		return Verdict{
			Score:            0,
			Passed:           false,
			CriticalFailures: checks.Failures,
			Suggestions:      checks.Issues,
		}
	}

	if e.Judge == nil {
		return Combine(DefaultResult())
	}

	raw, err := e.Judge.Judge(ctx, req)
	if err != nil {
		e.warn("judge failed for slide %d: %v", req.Slide.Index, err)
		return Combine(DegradedResult())
	}
	result, err := ParseJudgeResponse(raw)
	if err != nil {
		e.warn("slide %d: %v", req.Slide.Index, err)
		return Combine(DegradedResult())
	}
	return Combine(result)
}

func (e *Evaluator) warn(format string, args ...any) {
	if e.Log == nil {
		return
	}
	e.Log.Warnf(format, args...)
}
