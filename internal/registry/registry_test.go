package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const flatRegistry = `
- id: grid-3
  name: Three column grid
  category: comparison
  element_count: 3
  design_intent: structured
  match_score: 0.7
- id: cards-4
  name: Four cards
  category: comparison
  element_count: 4
  design_intent: playful
  match_score: 0.9
`

const wrappedRegistry = `
category: timeline
templates:
  - id: steps-5
    element_count: 5
    match_keywords: [roadmap, milestones]
  - id: steps-3
    category: process
    element_count: 3
`

func TestParse_FlatList(t *testing.T) {
	templates, err := Parse([]byte(flatRegistry))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(templates) != 2 {
		t.Fatalf("got %d templates, want 2", len(templates))
	}
	if templates[1].ID != "cards-4" || templates[1].ElementCount != 4 {
		t.Errorf("unexpected second template: %+v", templates[1])
	}
}

func TestParse_WrappedDocumentFillsCategory(t *testing.T) {
	templates, err := Parse([]byte(wrappedRegistry))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	got := []string{templates[0].Category, templates[1].Category}
	if diff := cmp.Diff([]string{"timeline", "process"}, got); diff != "" {
		t.Errorf("categories mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_RejectsGarbage(t *testing.T) {
	if _, err := Parse([]byte("just: [a scalar")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestLoad_Directory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "registry-b.yaml"), []byte(wrappedRegistry), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "registry-a.yaml"), []byte(flatRegistry), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.yaml"), []byte("ignored: true"), 0644); err != nil {
		t.Fatal(err)
	}

	reg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	var ids []string
	for _, tmpl := range reg.Templates() {
		ids = append(ids, tmpl.ID)
	}
	want := []string{"grid-3", "cards-4", "steps-5", "steps-3"}
	if diff := cmp.Diff(want, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_MissingPath(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing registry")
	}
}

func TestNew_DropsDuplicatesAndBlankIDs(t *testing.T) {
	reg := New([]Template{{ID: "a", Name: "first"}, {ID: ""}, {ID: "a", Name: "second"}})
	if reg.Len() != 1 {
		t.Fatalf("Len = %d, want 1", reg.Len())
	}
	tmpl, ok := reg.Lookup("a")
	if !ok || tmpl.Name != "first" {
		t.Errorf("Lookup(a) = %+v, %v", tmpl, ok)
	}
}

func TestSearch(t *testing.T) {
	templates, err := Parse([]byte(wrappedRegistry))
	if err != nil {
		t.Fatal(err)
	}
	reg := New(templates)

	got := reg.Search("roadmap")
	if len(got) == 0 || got[0].ID != "steps-5" {
		t.Errorf("Search(roadmap) = %+v, want steps-5 first", got)
	}
	if all := reg.Search("  "); len(all) != 2 {
		t.Errorf("blank search returned %d templates, want 2", len(all))
	}
}
