// Package quality scores rendered slide artifacts. Cheap automatic checks run
// first; artifacts that survive them are scored by an external judge, and the
// two results are combined into a Verdict.
package quality

import (
	"encoding/json"
	"time"
)

// PassThreshold is the minimum score a verdict needs to pass.
const PassThreshold = 70

// Category is one of the five scored dimensions.
type Category string

const (
	CategoryLayout     Category = "layout"
	CategoryTypography Category = "typography"
	CategoryColor      Category = "color"
	CategoryContentFit Category = "content_fit"
	CategoryVisual     Category = "visual"
)

// Categories lists the scored dimensions in report order.
var Categories = []Category{
	CategoryLayout, CategoryTypography, CategoryColor, CategoryContentFit, CategoryVisual,
}

// CategoryMax is the maximum score for each category. They sum to 100.
var CategoryMax = map[Category]float64{
	CategoryLayout:     25,
	CategoryTypography: 20,
	CategoryColor:      20,
	CategoryContentFit: 25,
	CategoryVisual:     10,
}

// Failure tags a disqualifying problem found before judging.
type Failure string

const (
	FailureOverflow       Failure = "overflow"
	FailureContrast       Failure = "contrast_failure"
	FailureElementCount   Failure = "element_count_mismatch"
	FailureContentMissing Failure = "content_missing"
)

// CategoryScore is the judge's score for one category.
type CategoryScore struct {
	Score  float64  `json:"score"`
	Max    float64  `json:"max"`
	Issues []string `json:"issues"`
}

// Details holds the per-category breakdown.
type Details struct {
	Layout     CategoryScore `json:"layout"`
	Typography CategoryScore `json:"typography"`
	Color      CategoryScore `json:"color"`
	ContentFit CategoryScore `json:"content_fit"`
	Visual     CategoryScore `json:"visual"`
}

// Category returns the score for c, or nil for an unknown category.
func (d *Details) Category(c Category) *CategoryScore {
	switch c {
	case CategoryLayout:
		return &d.Layout
	case CategoryTypography:
		return &d.Typography
	case CategoryColor:
		return &d.Color
	case CategoryContentFit:
		return &d.ContentFit
	case CategoryVisual:
		return &d.Visual
	}
	return nil
}

// Issues flattens every category's issues in report order.
func (d *Details) Issues() []string {
	if d == nil {
		return nil
	}
	var out []string
	for _, c := range Categories {
		out = append(out, d.Category(c).Issues...)
	}
	return out
}

// SelectionReason records why a verdict ended the evaluation loop.
type SelectionReason string

const (
	ReasonNone    SelectionReason = ""
	ReasonPassed  SelectionReason = "passed"
	ReasonBestOf3 SelectionReason = "best_of_3"
)

// MarshalJSON writes ReasonNone as null.
func (r SelectionReason) MarshalJSON() ([]byte, error) {
	if r == ReasonNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(r))
}

// UnmarshalJSON reads null as ReasonNone.
func (r *SelectionReason) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*r = ReasonNone
		return nil
	}
	*r = SelectionReason(*s)
	return nil
}

// Verdict is the outcome of evaluating one artifact.
type Verdict struct {
	AttemptNumber        int             `json:"attempt_number"`
	Score                float64         `json:"current_score"`
	Passed               bool            `json:"passed"`
	SelectedReason       SelectionReason `json:"selected_reason"`
	Details              *Details        `json:"details"`
	CriticalFailures     []Failure       `json:"critical_failures"`
	Suggestions          []string        `json:"improvement_suggestions,omitempty"`
	AlternativeTemplates []string        `json:"alternative_templates,omitempty"`
}

// Issues returns the category issues followed by the improvement
// suggestions, without duplicates.
func (v Verdict) Issues() []string {
	seen := make(map[string]bool)
	var out []string
	for _, issue := range append(v.Details.Issues(), v.Suggestions...) {
		if seen[issue] {
			continue
		}
		seen[issue] = true
		out = append(out, issue)
	}
	return out
}

// AttemptRecord is the immutable history entry for one evaluated attempt.
type AttemptRecord struct {
	Attempt          int       `json:"attempt"`
	TemplateID       string    `json:"template_id"`
	HTMLFile         string    `json:"html_file"`
	Score            float64   `json:"score"`
	Passed           bool      `json:"passed"`
	CriticalFailures []Failure `json:"critical_failures"`
	Issues           []string  `json:"issues"`
	Digest           string    `json:"artifact_digest,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewAttemptRecord builds the history entry for v.
func NewAttemptRecord(attempt int, templateID, htmlFile string, v Verdict, now time.Time) AttemptRecord {
	return AttemptRecord{
		Attempt:          attempt,
		TemplateID:       templateID,
		HTMLFile:         htmlFile,
		Score:            v.Score,
		Passed:           v.Passed,
		CriticalFailures: cloneFailures(v.CriticalFailures),
		Issues:           append([]string{}, v.Issues()...),
		Timestamp:        now,
	}
}

// cloneFailures copies fs, keeping "no failures" nil so it encodes as null.
func cloneFailures(fs []Failure) []Failure {
	if len(fs) == 0 {
		return nil
	}
	return append([]Failure(nil), fs...)
}
