// Package registry loads the catalog of slide templates that matching and
// re-matching choose from.
package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Template is one registry entry.
type Template struct {
	ID            string   `yaml:"id" json:"id"`
	Name          string   `yaml:"name,omitempty" json:"name,omitempty"`
	Category      string   `yaml:"category,omitempty" json:"category,omitempty"`
	ElementCount  int      `yaml:"element_count,omitempty" json:"element_count,omitempty"`
	DesignIntent  string   `yaml:"design_intent,omitempty" json:"design_intent,omitempty"`
	MatchScore    float64  `yaml:"match_score,omitempty" json:"match_score,omitempty"`
	File          string   `yaml:"file,omitempty" json:"file,omitempty"`
	Description   string   `yaml:"description,omitempty" json:"description,omitempty"`
	MatchKeywords []string `yaml:"match_keywords,omitempty" json:"match_keywords,omitempty"`
}

// document is the wrapped registry form: a category header plus templates.
type document struct {
	Category  string     `yaml:"category"`
	Templates []Template `yaml:"templates"`
}

// Registry is an ordered, id-indexed set of templates. Order is the order the
// templates were loaded in and is significant for tie-breaking.
type Registry struct {
	templates []Template
	byID      map[string]int
}

// New builds a registry. Later duplicates of an id are dropped.
func New(templates []Template) *Registry {
	r := &Registry{byID: make(map[string]int, len(templates))}
	for _, t := range templates {
		if t.ID == "" {
			continue
		}
		if _, dup := r.byID[t.ID]; dup {
			continue
		}
		r.byID[t.ID] = len(r.templates)
		r.templates = append(r.templates, t)
	}
	return r
}

// Load reads a registry from a YAML file, or from every registry-*.yaml file in
// a directory (sorted by name).
func Load(path string) (*Registry, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("reading registry: %w", err)
	}

	var files []string
	if info.IsDir() {
		matches, err := filepath.Glob(filepath.Join(path, "registry-*.yaml"))
		if err != nil {
			return nil, fmt.Errorf("listing registry files: %w", err)
		}
		sort.Strings(matches)
		files = matches
		if len(files) == 0 {
			return nil, fmt.Errorf("no registry-*.yaml files in %s", path)
		}
	} else {
		files = []string{path}
	}

	var all []Template
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("reading registry file %s: %w", f, err)
		}
		templates, err := Parse(data)
		if err != nil {
			return nil, fmt.Errorf("parsing registry file %s: %w", f, err)
		}
		all = append(all, templates...)
	}
	return New(all), nil
}

// Parse decodes either a bare list of templates or a document with a
// "templates" key. A document-level category fills templates that lack one.
func Parse(data []byte) ([]Template, error) {
	var list []Template
	listErr := yaml.Unmarshal(data, &list)
	if listErr == nil {
		return list, nil
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Join(listErr, err)
	}
	if doc.Templates == nil {
		return nil, fmt.Errorf("registry document has no templates")
	}
	for i := range doc.Templates {
		if doc.Templates[i].Category == "" {
			doc.Templates[i].Category = doc.Category
		}
	}
	return doc.Templates, nil
}

// Len returns the number of templates.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.templates)
}

// Templates returns a copy of the templates in load order.
func (r *Registry) Templates() []Template {
	if r == nil {
		return nil
	}
	out := make([]Template, len(r.templates))
	copy(out, r.templates)
	return out
}

// Lookup returns the template with id.
func (r *Registry) Lookup(id string) (*Template, bool) {
	if r == nil {
		return nil, false
	}
	i, ok := r.byID[id]
	if !ok {
		return nil, false
	}
	t := r.templates[i]
	return &t, true
}

// Categories returns the distinct categories in first-seen order.
func (r *Registry) Categories() []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range r.Templates() {
		c := strings.TrimSpace(t.Category)
		if c == "" || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
