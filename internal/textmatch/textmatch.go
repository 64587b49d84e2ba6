// Package textmatch holds the small, pure text heuristics shared by the
// intent clarifier, contradiction detector, attempt tracker and pattern
// index. Nothing here keeps state; every function is deterministic.
package textmatch

import (
	"sort"
	"strings"
	"unicode"
)

// stopWords are dropped from token sets. They carry no signal for
// similarity and would inflate overlap between unrelated sentences.
var stopWords = map[string]bool{
	"a": true, "an": true, "the": true, "to": true, "of": true, "for": true,
	"with": true, "and": true, "or": true, "in": true, "on": true, "by": true,
	"using": true, "use": true, "via": true, "is": true, "it": true, "be": true,
	"this": true, "that": true, "at": true, "as": true, "from": true, "into": true,
}

// Normalize lowercases text and reduces it to space-separated tokens.
// Characters that commonly appear inside technology names (- . + #) are
// kept inside a token but trimmed from its edges, so "Next.js," becomes
// "next.js" and "Drizzle." becomes "drizzle".
func Normalize(text string) string {
	return strings.Join(Tokens(text), " ")
}

// Tokens splits text into lowercase tokens, keeping stop words.
func Tokens(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return false
		}
		switch r {
		case '-', '.', '+', '#':
			return false
		}
		return true
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, "-.")
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// TokenSet returns the sorted, de-duplicated tokens of text with stop
// words removed.
func TokenSet(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, t := range Tokens(text) {
		if stopWords[t] || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// ContainsTerm reports whether term appears in text as a whole token or a
// whole token sequence. Both sides are normalized first.
//
//	ContainsTerm("Switch to Prisma.", "prisma")  == true
//	ContainsTerm("prismatic colors", "prisma")   == false
//	ContainsTerm("use next auth here", "next auth") == true
func ContainsTerm(text, term string) bool {
	t := Normalize(term)
	if t == "" {
		return false
	}
	return strings.Contains(" "+Normalize(text)+" ", " "+t+" ")
}

// ContainsAny reports whether any of terms appears in text (see ContainsTerm).
func ContainsAny(text string, terms ...string) bool {
	n := " " + Normalize(text) + " "
	for _, term := range terms {
		t := Normalize(term)
		if t != "" && strings.Contains(n, " "+t+" ") {
			return true
		}
	}
	return false
}

// CountTerms returns how many distinct terms appear in text.
func CountTerms(text string, terms ...string) int {
	n := " " + Normalize(text) + " "
	count := 0
	seen := make(map[string]bool, len(terms))
	for _, term := range terms {
		t := Normalize(term)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		if strings.Contains(n, " "+t+" ") {
			count++
		}
	}
	return count
}

// HasTokenPrefix reports whether any token of text starts with prefix.
// Single-word keywords use this so "test" matches "tests" and "testing"
// while "ui" does not match "build".
func HasTokenPrefix(text, prefix string) bool {
	p := strings.ToLower(strings.TrimSpace(prefix))
	if p == "" {
		return false
	}
	for _, tok := range Tokens(text) {
		if strings.HasPrefix(tok, p) {
			return true
		}
	}
	return false
}

// Jaccard returns |a ∩ b| / |a ∪ b| for two token sets. Two empty sets
// are considered identical.
func Jaccard(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	set := make(map[string]bool, len(a))
	for _, t := range a {
		set[t] = true
	}
	inter := 0
	union := len(set)
	seenB := make(map[string]bool, len(b))
	for _, t := range b {
		if seenB[t] {
			continue
		}
		seenB[t] = true
		if set[t] {
			inter++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// WordCount returns the number of tokens in text.
func WordCount(text string) int {
	return len(Tokens(text))
}

// MatchesKeyword reports whether a catalog keyword occurs in text.
// Multi-word keywords must appear as a whole token sequence. Single-word
// keywords match a whole token, its plural ("job" → "jobs"), or, for
// keywords of five letters or more, any token they prefix ("deploy" →
// "deployment"). Short keywords stay exact so "ai" never matches "aim".
func MatchesKeyword(text, keyword string) bool {
	kw := Normalize(keyword)
	if kw == "" {
		return false
	}
	if strings.Contains(kw, " ") {
		return ContainsTerm(text, kw)
	}
	for _, tok := range Tokens(text) {
		switch {
		case tok == kw, tok == kw+"s", tok == kw+"es":
			return true
		case len(kw) >= 5 && strings.HasPrefix(tok, kw):
			return true
		}
	}
	return false
}

// negators are tokens that, placed right before a term, mean the text is
// rejecting it rather than proposing it ("not Prisma", "over Prisma").
var negators = map[string]bool{
	"not": true, "no": true, "avoid": true, "without": true, "never": true,
	"over": true, "drop": true, "dropping": true, "remove": true, "removing": true,
}

// negatorPairs are two-token negations ("instead of Prisma").
var negatorPairs = map[string]bool{
	"instead of": true, "rather than": true, "away from": true, "migrate from": true,
	"moving from": true, "move from": true, "switch from": true, "switching from": true,
}

// FindAffirmed returns the token position of the first occurrence of term
// in text that is not directly negated, or -1.
func FindAffirmed(text, term string) int {
	toks := Tokens(text)
	want := Tokens(term)
	if len(want) == 0 {
		return -1
	}
	for i := 0; i+len(want) <= len(toks); i++ {
		match := true
		for j, w := range want {
			if toks[i+j] != w {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		if i >= 1 && negators[toks[i-1]] {
			continue
		}
		if i >= 2 && negatorPairs[toks[i-2]+" "+toks[i-1]] {
			continue
		}
		return i
	}
	return -1
}
