package registry

import (
	"strings"

	"github.com/sahilm/fuzzy"
)

// searchSource adapts templates to fuzzy.Source.
type searchSource []Template

func (s searchSource) String(i int) string {
	t := s[i]
	parts := []string{t.ID, t.Name, t.Category, t.DesignIntent, t.Description}
	parts = append(parts, t.MatchKeywords...)
	return strings.Join(parts, " ")
}

func (s searchSource) Len() int { return len(s) }

// Search returns templates that fuzzily match query, best first. An empty
// query returns every template.
func (r *Registry) Search(query string) []Template {
	templates := r.Templates()
	query = strings.TrimSpace(query)
	if query == "" {
		return templates
	}
	matches := fuzzy.FindFrom(query, searchSource(templates))
	out := make([]Template, 0, len(matches))
	for _, m := range matches {
		out = append(out, templates[m.Index])
	}
	return out
}
