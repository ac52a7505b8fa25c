package slide

import (
	"encoding/json"
	"testing"

	"github.com/slideforge/slideforge/internal/record"
)

func fields(t *testing.T, s string) record.Map {
	t.Helper()
	var m record.Map
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		t.Fatalf("decoding %s: %v", s, err)
	}
	return m
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name   string
		fields string
		want   Stage
	}{
		{"empty", `{}`, StageSetup},
		{"outline", `{"title":"Intro"}`, StageOutline},
		{"matching", `{"title":"Intro","template_id":"grid-3"}`, StageMatching},
		{"content", `{"title":"Intro","template_id":"grid-3","html_file":"slides/slide-1.html"}`, StageContent},
		{"generation wins", `{"title":"Intro","html_file":"x.html","generated":true}`, StageGeneration},
		{"falsy evidence ignored", `{"title":"","template_id":null,"generated":false}`, StageSetup},
		{"empty map is evidence", `{"content_bindings":{}}`, StageContent},
		{"zero is not evidence", `{"generation":0}`, StageSetup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Infer(fields(t, tt.fields)); got != tt.want {
				t.Errorf("Infer(%s) = %v, want %v", tt.fields, got, tt.want)
			}
		})
	}
}

func TestStageFileName(t *testing.T) {
	want := map[Stage]string{
		StageSetup:      "stage-1-setup.json",
		StageOutline:    "stage-2-outline.json",
		StageMatching:   "stage-3-matching.json",
		StageContent:    "stage-4-content.json",
		StageGeneration: "stage-5-generation.json",
	}
	for stage, name := range want {
		if got := stage.FileName(); got != name {
			t.Errorf("%d.FileName() = %q, want %q", int(stage), got, name)
		}
	}
}

func TestOwnedFrom_RewoundSlideInfersEarlierStage(t *testing.T) {
	full := fields(t, `{
		"title":"Intro","source_content":"text",
		"template_id":"grid-3","match_score":0.8,"layout_match":{"id":"grid-3"},
		"content_bindings":{"items":[1]},"html_file":"a.html","ooxml_bindings":{"a":1},
		"generated":true,"evaluation":{"passed":true},"attempt_history":[{"attempt":1}]
	}`)

	for _, from := range []Stage{StageMatching, StageContent, StageGeneration} {
		s := Slide{Index: 1, Fields: full}.Without(OwnedFrom(from)...)
		if got := s.Stage(); got >= from {
			t.Errorf("rewind from %v left slide at %v", from, got)
		}
		if !s.Fields.Present(FieldAttemptHistory) {
			t.Errorf("rewind from %v dropped attempt history", from)
		}
		if s.Fields.Present(FieldEvaluation) {
			t.Errorf("rewind from %v kept the evaluation verdict", from)
		}
	}
}

func TestSlideJSONRoundTrip(t *testing.T) {
	s := Slide{Index: 4, Fields: fields(t, `{"title":"Roadmap","content_bindings":{"items":["a","b","c"]}}`)}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var got Slide
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if got.Index != 4 {
		t.Errorf("Index = %d, want 4", got.Index)
	}
	if _, ok := got.Fields[FieldIndex]; ok {
		t.Error("index leaked into Fields")
	}
	if got.ItemCount() != 3 {
		t.Errorf("ItemCount = %d, want 3", got.ItemCount())
	}
}

func TestMergeIgnoresIndex(t *testing.T) {
	s := New(2).Merge(fields(t, `{"index":9,"title":"x"}`))
	if s.Index != 2 {
		t.Errorf("Index = %d, want 2", s.Index)
	}
	if s.Title() != "x" {
		t.Errorf("Title = %q, want x", s.Title())
	}
}

func TestTemplateIDFallsBackToContentTemplate(t *testing.T) {
	s := Slide{Index: 1, Fields: fields(t, `{"content_template":{"id":"cards-4"}}`)}
	if got := s.TemplateID(); got != "cards-4" {
		t.Errorf("TemplateID = %q, want cards-4", got)
	}
}
