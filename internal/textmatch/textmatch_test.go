package textmatch

import (
	"reflect"
	"testing"
)

func TestTokens(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"Use Drizzle.", []string{"use", "drizzle"}},
		{"  Next.js,  app router ", []string{"next.js", "app", "router"}},
		{"src/app/(auth)/login", []string{"src", "app", "auth", "login"}},
		{"C++ and C#", []string{"c++", "and", "c#"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Tokens(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tokens(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestTokens_Empty(t *testing.T) {
	if got := Tokens("  ,;  "); len(got) != 0 {
		t.Errorf("Tokens(punctuation) = %v, want empty", got)
	}
}

func TestTokenSet_SortedDedupedNoStopWords(t *testing.T) {
	got := TokenSet("Fix the  build, fix THE build with cache")
	want := []string{"build", "cache", "fix"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("TokenSet = %v, want %v", got, want)
	}
}

func TestContainsTerm(t *testing.T) {
	tests := []struct {
		text, term string
		want       bool
	}{
		{"Switch to Prisma.", "prisma", true},
		{"prismatic colors", "prisma", false},
		{"we use next auth here", "next auth", true},
		{"Deploy on Vercel", "vercel", true},
		{"anything", "", false},
	}
	for _, tt := range tests {
		if got := ContainsTerm(tt.text, tt.term); got != tt.want {
			t.Errorf("ContainsTerm(%q, %q) = %v, want %v", tt.text, tt.term, got, tt.want)
		}
	}
}

func TestCountTerms_DistinctOnly(t *testing.T) {
	got := CountTerms("users and admins and users", "users", "admins", "Users", "guests")
	if got != 2 {
		t.Errorf("CountTerms = %d, want 2", got)
	}
}

func TestHasTokenPrefix(t *testing.T) {
	if !HasTokenPrefix("write more tests", "test") {
		t.Error("'test' should match 'tests'")
	}
	if HasTokenPrefix("build the thing", "ui") {
		t.Error("'ui' must not match inside 'build'")
	}
	if HasTokenPrefix("anything", " ") {
		t.Error("blank prefix must never match")
	}
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b []string
		want float64
	}{
		{"both empty", nil, nil, 1},
		{"one empty", []string{"a"}, nil, 0},
		{"identical", []string{"a", "b"}, []string{"a", "b"}, 1},
		{"half", []string{"a", "b"}, []string{"b", "c"}, 1.0 / 3.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Jaccard(tt.a, tt.b); got != tt.want {
				t.Errorf("Jaccard = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMatchesKeyword(t *testing.T) {
	tests := []struct {
		text, kw string
		want     bool
	}{
		{"add login with OAuth", "login", true},
		{"add login with OAuth", "oauth", true},
		{"add login with OAuth", "auth", false},
		{"schedule nightly jobs", "job", true},
		{"set up deployment", "deploy", true},
		{"aim higher", "ai", false},
		{"hook up the AI assistant", "ai", true},
		{"let users sign in with Google", "sign in", true},
		{"design sign-in flow", "sign in", false},
		{"format the date", "form", false},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.kw, func(t *testing.T) {
			if got := MatchesKeyword(tt.text, tt.kw); got != tt.want {
				t.Errorf("MatchesKeyword(%q, %q) = %v, want %v", tt.text, tt.kw, got, tt.want)
			}
		})
	}
}

func TestFindAffirmed(t *testing.T) {
	tests := []struct {
		text, term string
		want       int
	}{
		{"Use Drizzle ORM", "drizzle", 1},
		{"Use Drizzle instead of Prisma", "prisma", -1},
		{"Chose Drizzle over Prisma", "prisma", -1},
		{"not prisma, but prisma later", "prisma", 3},
		{"migrate from drizzle to prisma", "drizzle", -1},
		{"migrate from drizzle to prisma", "prisma", 4},
		{"sign in with next auth", "next auth", 3},
		{"nothing here", "prisma", -1},
	}
	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.term, func(t *testing.T) {
			if got := FindAffirmed(tt.text, tt.term); got != tt.want {
				t.Errorf("FindAffirmed(%q, %q) = %d, want %d", tt.text, tt.term, got, tt.want)
			}
		})
	}
}
