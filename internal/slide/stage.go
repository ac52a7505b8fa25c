package slide

import (
	"fmt"

	"github.com/slideforge/slideforge/internal/record"
)

// Stage is a pipeline stage, ordered from setup (1) to generation (5).
type Stage int

const (
	StageNone Stage = iota
	StageSetup
	StageOutline
	StageMatching
	StageContent
	StageGeneration
)

// Stages lists every real stage in pipeline order.
var Stages = []Stage{StageSetup, StageOutline, StageMatching, StageContent, StageGeneration}

var stageNames = map[Stage]string{
	StageSetup:      "setup",
	StageOutline:    "outline",
	StageMatching:   "matching",
	StageContent:    "content",
	StageGeneration: "generation",
}

func (s Stage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Valid reports whether s is one of the five pipeline stages.
func (s Stage) Valid() bool {
	return s >= StageSetup && s <= StageGeneration
}

// FileName returns the snapshot file name for the stage, e.g. "stage-3-matching.json".
func (s Stage) FileName() string {
	return fmt.Sprintf("stage-%d-%s.json", int(s), s)
}

// Field names that carry stage evidence or are touched by rewinds.
const (
	FieldIndex           = "index"
	FieldTitle           = "title"
	FieldPurpose         = "purpose"
	FieldSourceContent   = "source_content"
	FieldKeyPoints       = "key_points"
	FieldLayoutMatch     = "layout_match"
	FieldContentTemplate = "content_template"
	FieldTemplateID      = "template_id"
	FieldIconDecision    = "icon_decision"
	FieldMatchScore      = "match_score"
	FieldContentBindings = "content_bindings"
	FieldStyleApplied    = "style_applied"
	FieldHTMLFile        = "html_file"
	FieldOOXMLBindings   = "ooxml_bindings"
	FieldAssetsGenerated = "assets_generated"
	FieldImagePrompts    = "image_prompts"
	FieldGeneration      = "generation"
	FieldGenerated       = "generated"
	FieldEvaluation      = "evaluation"
	FieldAttemptHistory  = "attempt_history"
	FieldObjectID        = "object_id"
	FieldLayout          = "layout"
	FieldAssets          = "assets"
	FieldTextContent     = "text_content"
	FieldContentItems    = "items"
)

// evidence maps each stage above setup to the fields whose truthy presence
// proves the slide reached it.
var evidence = map[Stage][]string{
	StageGeneration: {FieldGeneration, FieldGenerated},
	StageContent:    {FieldContentBindings, FieldStyleApplied, FieldHTMLFile, FieldOOXMLBindings},
	StageMatching:   {FieldLayoutMatch, FieldContentTemplate, FieldTemplateID, FieldIconDecision},
	StageOutline:    {FieldSourceContent, FieldTitle, FieldPurpose},
}

// owned lists the fields a rewind to each stage discards. It is a superset of
// the evidence for that stage so that a rewound slide infers an earlier stage.
var owned = map[Stage][]string{
	StageMatching: {
		FieldLayoutMatch, FieldContentTemplate, FieldIconDecision,
		FieldTemplateID, FieldMatchScore,
	},
	StageContent: {
		FieldContentBindings, FieldStyleApplied, FieldAssetsGenerated,
		FieldImagePrompts, FieldHTMLFile, FieldOOXMLBindings,
	},
	StageGeneration: {FieldGeneration, FieldGenerated, FieldEvaluation},
}

// RematchFields are dropped when a slide goes back for a different template.
// The evaluation verdict and attempt history survive.
var RematchFields = []string{
	FieldTemplateID, FieldObjectID, FieldMatchScore, FieldLayout,
	FieldHTMLFile, FieldAssets, FieldTextContent,
	FieldContentBindings, FieldOOXMLBindings,
}

// PreservedOnRerun is the outline data carried into a rerun context.
var PreservedOnRerun = []string{FieldSourceContent, FieldTitle, FieldPurpose, FieldKeyPoints}

// Infer returns the most advanced stage evidenced by fields. A record with no
// evidence is at setup.
func Infer(fields record.Map) Stage {
	for _, stage := range []Stage{StageGeneration, StageContent, StageMatching, StageOutline} {
		for _, key := range evidence[stage] {
			if fields.Present(key) {
				return stage
			}
		}
	}
	return StageSetup
}

// OwnedFrom returns the fields discarded by a rewind that restarts at from.
func OwnedFrom(from Stage) []string {
	var keys []string
	for _, stage := range Stages {
		if stage >= from {
			keys = append(keys, owned[stage]...)
		}
	}
	return keys
}
