// Package slide models one slide of a deck: its stable index plus the record
// of fields it has accumulated across pipeline stages.
package slide

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/slideforge/slideforge/internal/record"
)

// Slide is a single unit of work. Index is its identity within a session;
// Fields holds everything else, schema-free.
type Slide struct {
	Index  int
	Fields record.Map
}

// New returns an empty slide at index.
func New(index int) Slide {
	return Slide{Index: index, Fields: record.Map{}}
}

// Merge returns a copy of s with update deep-merged into its fields. An
// "index" key in update is ignored.
func (s Slide) Merge(update record.Map) Slide {
	return Slide{
		Index:  s.Index,
		Fields: record.MergeMaps(s.Fields, update.Without(FieldIndex)),
	}
}

// Without returns a copy of s with the named fields removed.
func (s Slide) Without(keys ...string) Slide {
	return Slide{Index: s.Index, Fields: s.Fields.Clone().Without(keys...)}
}

// Clone returns a deep copy of s.
func (s Slide) Clone() Slide {
	return Slide{Index: s.Index, Fields: s.Fields.Clone()}
}

// Stage infers how far the slide has progressed.
func (s Slide) Stage() Stage { return Infer(s.Fields) }

func (s Slide) Title() string    { return s.Fields.String(FieldTitle) }
func (s Slide) Purpose() string  { return s.Fields.String(FieldPurpose) }
func (s Slide) HTMLFile() string { return s.Fields.String(FieldHTMLFile) }
func (s Slide) SourceContent() record.Value {
	return s.Fields[FieldSourceContent]
}

// TemplateID returns the selected template, falling back to the id recorded
// on the content template.
func (s Slide) TemplateID() string {
	if id := s.Fields.String(FieldTemplateID); id != "" {
		return id
	}
	return s.Fields.String(FieldContentTemplate, "id")
}

// ContentItems returns the bound content items and whether the slide has any
// bindings list at all.
func (s Slide) ContentItems() (record.List, bool) {
	return s.Fields.List(FieldContentBindings, FieldContentItems)
}

// ItemCount is len(ContentItems()), zero when unbound.
func (s Slide) ItemCount() int {
	items, _ := s.ContentItems()
	return len(items)
}

// MarshalJSON flattens the index into the field record.
func (s Slide) MarshalJSON() ([]byte, error) {
	out := s.Fields.Without(FieldIndex)
	out[FieldIndex] = record.Int(s.Index)
	return json.Marshal(out)
}

// UnmarshalJSON reads a flat record with an integer "index" field.
func (s *Slide) UnmarshalJSON(data []byte) error {
	var fields record.Map
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	idx, ok := fields.Float(FieldIndex)
	if !ok || idx != math.Trunc(idx) {
		return fmt.Errorf("slide record has no integer index")
	}
	s.Index = int(idx)
	s.Fields = fields.Without(FieldIndex)
	return nil
}

// Sort orders slides by index.
func Sort(slides []Slide) {
	sort.SliceStable(slides, func(i, j int) bool {
		return slides[i].Index < slides[j].Index
	})
}

// Find returns the position of the slide with index, or -1.
func Find(slides []Slide, index int) int {
	for i, s := range slides {
		if s.Index == index {
			return i
		}
	}
	return -1
}
