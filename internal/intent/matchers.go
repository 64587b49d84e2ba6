package intent

import (
	"fmt"
	"strings"

	"github.com/HendryAvila/safeguard/internal/textmatch"
)

// FieldMatcher scores how clearly a request addresses one field.
type FieldMatcher interface {
	Score(text string) (confidence int, reasoning string)
}

// TermMatcher scores by the number of distinct terms found. Steps[i] is
// the confidence for i+1 hits; hit counts past the end use the last step.
type TermMatcher struct {
	Label string
	Terms []string
	Steps []int
}

// Score implements FieldMatcher.
func (m TermMatcher) Score(text string) (int, string) {
	var hits []string
	for _, t := range m.Terms {
		if textmatch.MatchesKeyword(text, t) {
			hits = append(hits, t)
		}
	}
	if len(hits) == 0 || len(m.Steps) == 0 {
		return 0, fmt.Sprintf("no mention of %s", m.Label)
	}
	i := len(hits) - 1
	if i >= len(m.Steps) {
		i = len(m.Steps) - 1
	}
	return clamp(m.Steps[i]), fmt.Sprintf("%s mentioned: %s", m.Label, strings.Join(hits, ", "))
}

// FeatureMatcher scores the core feature: an action verb, an object to
// act on, and enough words to say something specific.
type FeatureMatcher struct {
	Verbs   []string
	Objects []string
}

// Score implements FieldMatcher.
func (m FeatureMatcher) Score(text string) (int, string) {
	score := 0
	var notes []string
	if textmatch.ContainsAny(text, m.Verbs...) {
		score += 40
		notes = append(notes, "action stated")
	}
	if obj := firstMatch(text, m.Objects); obj != "" {
		score += 30
		notes = append(notes, "target "+obj)
	}
	switch n := textmatch.WordCount(text); {
	case n >= 12:
		score += 30
		notes = append(notes, "detailed")
	case n >= 6:
		score += 15
	}
	if len(notes) == 0 {
		return 0, "no identifiable feature"
	}
	return clamp(score), strings.Join(notes, "; ")
}

func firstMatch(text string, terms []string) string {
	for _, t := range terms {
		if textmatch.MatchesKeyword(text, t) {
			return t
		}
	}
	return ""
}

func clamp(v int) int {
	switch {
	case v < 0:
		return 0
	case v > 100:
		return 100
	}
	return v
}

// DefaultFields returns the built-in field set.
func DefaultFields() []FieldSpec {
	return []FieldSpec{
		{
			Name:     FieldCoreFeature,
			Required: true,
			Weight:   3,
			Minimum:  70,
			Question: "What exactly should be built or changed?",
			Options:  []string{"new page or screen", "api endpoint", "bug fix", "refactor", "external integration"},
			Matcher: FeatureMatcher{
				Verbs: []string{"add", "build", "create", "implement", "fix", "update", "refactor", "remove", "delete",
					"integrate", "migrate", "replace", "rename", "support", "enable", "allow", "make"},
				Objects: []string{"page", "screen", "form", "endpoint", "api", "component", "feature", "dashboard",
					"login", "signup", "button", "modal", "table", "list", "report", "webhook", "job", "service",
					"route", "view", "flow", "checkout", "upload", "notification", "search", "bug", "test"},
			},
		},
		{
			Name:     FieldTargetUsers,
			Required: true,
			Weight:   2,
			Minimum:  50,
			Question: "Who will use this?",
			Options:  []string{"end users", "admins", "internal team", "api consumers", "anonymous visitors"},
			Matcher: TermMatcher{
				Label: "users",
				Terms: []string{"user", "customer", "admin", "visitor", "guest", "member", "team", "developer",
					"client", "buyer", "seller", "student", "teacher", "patient", "employee", "manager",
					"subscriber", "owner", "operator", "everyone", "public", "logged-in"},
				Steps: []int{80, 100},
			},
		},
		{
			Name:     FieldDataModel,
			Required: true,
			Weight:   2,
			Minimum:  50,
			Question: "What data does this read or store?",
			Options:  []string{"no new data", "new table or entity", "change existing schema", "external data only"},
			Matcher: TermMatcher{
				Label: "data",
				Terms: []string{"table", "schema", "model", "entity", "field", "column", "record", "database",
					"data", "profile", "order", "product", "invoice", "post", "comment", "account", "session",
					"token", "file", "message", "event", "stateless"},
				Steps: []int{60, 85, 100},
			},
		},
		{
			Name:     FieldTechConstraints,
			Weight:   1,
			Minimum:  40,
			Question: "Are there technical constraints to respect?",
			Options:  []string{"use the existing stack", "a specific library is required", "no new dependencies"},
			Matcher: TermMatcher{
				Label: "technology",
				Terms: []string{"react", "next.js", "nextjs", "typescript", "postgres", "prisma", "drizzle",
					"tailwind", "oauth", "stripe", "supabase", "graphql", "rest", "node", "redis", "docker",
					"clerk", "vercel", "jwt", "websocket", "existing stack", "no new dependencies"},
				Steps: []int{70, 100},
			},
		},
		{
			Name:     FieldSuccessCriteria,
			Weight:   1,
			Minimum:  40,
			Question: "How will we know it works?",
			Options:  []string{"tests pass", "user can complete the flow", "matches the design", "meets a performance target"},
			Matcher: TermMatcher{
				Label: "acceptance criteria",
				Terms: []string{"should", "must", "so that", "test", "verify", "expect", "return", "redirect",
					"display", "show", "error", "validation", "success", "within", "acceptance"},
				Steps: []int{60, 90},
			},
		},
	}
}
