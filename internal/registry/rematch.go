package registry

import (
	"context"
	"sort"

	"github.com/slideforge/slideforge/internal/slide"
)

// DefaultAlternatives is how many alternative template ids a failing verdict
// carries.
const DefaultAlternatives = 3

// Rematcher picks replacement templates for slides whose artifact failed
// evaluation.
type Rematcher struct {
	Registry *Registry
}

// NewRematcher returns a Rematcher over reg.
func NewRematcher(reg *Registry) *Rematcher {
	return &Rematcher{Registry: reg}
}

// Rematch returns the best alternative to the excluded templates, or nil when
// the registry has nothing left to offer.
func (m *Rematcher) Rematch(_ context.Context, s slide.Slide, excluded []string) (*Template, error) {
	return SelectAlternative(m.Registry, s, excluded), nil
}

// SelectAlternative chooses a template for s that is not in failed.
//
// Candidates share the slide's purpose as category. They are ordered by how
// closely their element count fits the slide's content items, and a candidate
// whose design intent differs from every failed template is preferred. When
// no same-category candidate exists, any template whose element count
// accommodates the content (count-1 <= items <= count+2) is considered, highest
// match score first.
func SelectAlternative(reg *Registry, s slide.Slide, failed []string) *Template {
	if reg.Len() == 0 {
		return nil
	}
	excluded := toSet(failed)
	items := s.ItemCount()

	candidates := sameCategory(reg, s.Purpose(), excluded)
	if len(candidates) > 0 {
		if items > 0 {
			sortByFit(candidates, items)
		}

		usedIntents := make(map[string]bool)
		for _, id := range failed {
			if t, ok := reg.Lookup(id); ok && t.DesignIntent != "" {
				usedIntents[t.DesignIntent] = true
			}
		}
		for i := range candidates {
			if !usedIntents[candidates[i].DesignIntent] {
				return &candidates[i]
			}
		}
		return &candidates[0]
	}

	relaxed := accommodating(reg, items, excluded)
	if len(relaxed) == 0 {
		return nil
	}
	sort.SliceStable(relaxed, func(i, j int) bool {
		return relaxed[i].MatchScore > relaxed[j].MatchScore
	})
	return &relaxed[0]
}

// Alternatives lists up to limit candidate ids for s, excluding failed and the
// slide's current template, in the same fit order SelectAlternative uses.
func Alternatives(reg *Registry, s slide.Slide, failed []string, limit int) []string {
	if reg.Len() == 0 || limit <= 0 {
		return nil
	}
	excluded := toSet(failed)
	if id := s.TemplateID(); id != "" {
		excluded[id] = true
	}

	candidates := sameCategory(reg, s.Purpose(), excluded)
	if items := s.ItemCount(); items > 0 {
		sortByFit(candidates, items)
	}

	var out []string
	for _, t := range candidates {
		if len(out) == limit {
			break
		}
		out = append(out, t.ID)
	}
	return out
}

// CanRematch reports whether s has any untried template left.
func CanRematch(reg *Registry, s slide.Slide, failed []string) bool {
	return SelectAlternative(reg, s, failed) != nil
}

func sameCategory(reg *Registry, category string, excluded map[string]bool) []Template {
	if category == "" {
		return nil
	}
	var out []Template
	for _, t := range reg.Templates() {
		if t.Category == category && !excluded[t.ID] {
			out = append(out, t)
		}
	}
	return out
}

func accommodating(reg *Registry, items int, excluded map[string]bool) []Template {
	var out []Template
	for _, t := range reg.Templates() {
		if excluded[t.ID] || t.ElementCount == 0 {
			continue
		}
		if items >= t.ElementCount-1 && items <= t.ElementCount+2 {
			out = append(out, t)
		}
	}
	return out
}

func sortByFit(templates []Template, items int) {
	sort.SliceStable(templates, func(i, j int) bool {
		return abs(templates[i].ElementCount-items) < abs(templates[j].ElementCount-items)
	})
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
