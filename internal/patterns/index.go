package patterns

import (
	"strings"

	"github.com/HendryAvila/safeguard/internal/textmatch"
)

// Suggestion is a fallback hint produced when no keyword matched.
type Suggestion struct {
	Category string   `json:"category"`
	Modules  []string `json:"modules"`
	Reason   string   `json:"reason"`
}

// Discovery is the result of matching a task against the index.
type Discovery struct {
	Keywords           []string     `json:"keywords"`
	Patterns           []string     `json:"patterns"`
	HasExactMatch      bool         `json:"hasExactMatch"`
	RelatedSuggestions []Suggestion `json:"relatedSuggestions,omitempty"`
}

// Index answers keyword lookups over a Catalog. It is immutable after
// construction and safe for concurrent use.
type Index struct {
	catalog   Catalog
	byKeyword map[string][]string
}

// NewIndex builds an index over a validated catalog.
func NewIndex(c Catalog) (*Index, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ix := &Index{catalog: c, byKeyword: make(map[string][]string)}
	for _, e := range c.Entries {
		for _, kw := range e.Keywords {
			key := textmatch.Normalize(kw)
			ix.byKeyword[key] = append(ix.byKeyword[key], e.Module)
		}
		// The module identifier itself is also accepted as a keyword.
		id := textmatch.Normalize(e.Module)
		ix.byKeyword[id] = append(ix.byKeyword[id], e.Module)
	}
	return ix, nil
}

// Default returns an index over DefaultCatalog.
func Default() *Index {
	ix, err := NewIndex(DefaultCatalog())
	if err != nil {
		panic(err) // built-in catalog is static
	}
	return ix
}

// Catalog returns the catalog backing the index.
func (ix *Index) Catalog() Catalog { return ix.catalog }

// ExtractKeywords returns the catalog keywords found in text, in catalog
// order and without duplicates.
func (ix *Index) ExtractKeywords(text string) []string {
	var found []string
	seen := make(map[string]bool)
	for _, e := range ix.catalog.Entries {
		for _, kw := range e.Keywords {
			if seen[kw] {
				continue
			}
			if textmatch.MatchesKeyword(text, kw) {
				seen[kw] = true
				found = append(found, kw)
			}
		}
	}
	return found
}

// ModulesFor maps keywords to module identifiers, de-duplicated, in the
// order the keywords were given. Unknown keywords are ignored.
func (ix *Index) ModulesFor(keywords []string) []string {
	var modules []string
	seen := make(map[string]bool)
	for _, kw := range keywords {
		for _, m := range ix.byKeyword[textmatch.Normalize(kw)] {
			if !seen[m] {
				seen[m] = true
				modules = append(modules, m)
			}
		}
	}
	return modules
}

// AreasFor returns the directory prefixes of every module whose keywords
// occur in text, plus the matched keywords.
func (ix *Index) AreasFor(text string) (areas, keywords []string) {
	keywords = ix.ExtractKeywords(text)
	modules := make(map[string]bool)
	for _, m := range ix.ModulesFor(keywords) {
		modules[m] = true
	}

	seen := make(map[string]bool)
	for _, e := range ix.catalog.Entries {
		if !modules[e.Module] {
			continue
		}
		for _, a := range e.Areas {
			if !seen[a] {
				seen[a] = true
				areas = append(areas, a)
			}
		}
	}
	return areas, keywords
}

// Discover resolves a task to guidance modules. Explicit keywords win
// over extraction; if they select nothing the task text is tried. The
// core module always comes first. With no match at all, category hints
// produce suggestions and the default modules are returned so the
// result is never empty.
func (ix *Index) Discover(task string, keywords []string) Discovery {
	var modules []string
	var used []string

	if len(keywords) > 0 {
		modules = ix.ModulesFor(keywords)
		if len(modules) > 0 {
			used = keywords
		}
	}
	if len(modules) == 0 {
		used = ix.ExtractKeywords(task)
		modules = ix.ModulesFor(used)
	}

	if len(modules) > 0 {
		return Discovery{
			Keywords:      used,
			Patterns:      prependCore(ix.catalog.Core, modules),
			HasExactMatch: true,
		}
	}

	return Discovery{
		Keywords:           []string{},
		Patterns:           prependCore(ix.catalog.Core, ix.catalog.Defaults),
		HasExactMatch:      false,
		RelatedSuggestions: ix.suggest(task),
	}
}

// suggest applies the category heuristics to free text.
func (ix *Index) suggest(task string) []Suggestion {
	var out []Suggestion
	for _, cat := range ix.catalog.Categories {
		var hits []string
		for _, h := range cat.Hints {
			if textmatch.MatchesKeyword(task, h) {
				hits = append(hits, h)
			}
		}
		if len(hits) == 0 {
			continue
		}
		out = append(out, Suggestion{
			Category: cat.Name,
			Modules:  append([]string(nil), cat.Modules...),
			Reason:   "task mentions " + strings.Join(hits, ", "),
		})
	}
	return out
}

func prependCore(core string, modules []string) []string {
	out := make([]string, 0, len(modules)+1)
	out = append(out, core)
	for _, m := range modules {
		if m != core {
			out = append(out, m)
		}
	}
	return out
}
