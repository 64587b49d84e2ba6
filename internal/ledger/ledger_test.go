package ledger

import (
	"strings"
	"testing"
	"time"
)

func init() {
	// Freeze time for deterministic tests.
	timeNow = func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}
}

func newDecision(text string, cat Category, impact Impact) NewDecision {
	return NewDecision{Decision: text, Category: cat, Impact: impact, Reasoning: "because"}
}

// --- Ledger ---

func TestLedger_AppendAssignsIDAndTimestamp(t *testing.T) {
	l := &Ledger{}
	d, added, err := l.Append(newDecision("Use Drizzle ORM", CategoryTechStack, ImpactHigh))
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if !added {
		t.Error("added = false, want true")
	}
	if !strings.HasPrefix(d.ID, "dec_") {
		t.Errorf("ID = %q, want dec_ prefix", d.ID)
	}
	if !d.Timestamp.Equal(timeNow()) {
		t.Errorf("Timestamp = %v, want frozen time", d.Timestamp)
	}
	if d.MadeBy != MadeByAI {
		t.Errorf("MadeBy = %q, want ai default", d.MadeBy)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestLedger_AppendRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		in   NewDecision
	}{
		{"empty text", newDecision("", CategoryTechStack, ImpactHigh)},
		{"bad category", newDecision("x", Category("vibes"), ImpactHigh)},
		{"bad impact", newDecision("x", CategoryTechStack, Impact("huge"))},
		{"bad author", NewDecision{Decision: "x", Category: CategoryTechStack, Impact: ImpactLow, MadeBy: "robot"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &Ledger{}
			if _, _, err := l.Append(tt.in); err == nil {
				t.Error("expected validation error")
			}
			if l.Len() != 0 {
				t.Error("invalid decision must not be appended")
			}
		})
	}
}

func TestLedger_AppendDuplicateIDIsNoop(t *testing.T) {
	l := &Ledger{}
	in := newDecision("Use Drizzle ORM", CategoryTechStack, ImpactHigh)
	in.ID = "ctx-1"

	if _, added, _ := l.Append(in); !added {
		t.Fatal("first append should add")
	}
	in.Decision = "changed text"
	got, added, err := l.Append(in)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if added {
		t.Error("duplicate ID should not be added")
	}
	if got.Decision != "Use Drizzle ORM" {
		t.Errorf("stored decision mutated to %q", got.Decision)
	}
	if l.Len() != 1 {
		t.Errorf("Len = %d, want 1", l.Len())
	}
}

func TestLedger_EntriesIsACopy(t *testing.T) {
	l := &Ledger{}
	_, _, _ = l.Append(newDecision("Use Drizzle ORM", CategoryTechStack, ImpactHigh))

	entries := l.Entries()
	entries[0].Decision = "tampered"

	if l.Entries()[0].Decision != "Use Drizzle ORM" {
		t.Error("Entries must not expose internal storage")
	}
}

func TestLedger_Enforced(t *testing.T) {
	l := &Ledger{}
	for _, imp := range []Impact{ImpactLow, ImpactMedium, ImpactHigh, ImpactCritical} {
		_, _, _ = l.Append(newDecision("Use Drizzle ORM", CategoryTechStack, imp))
	}
	if got := len(l.Enforced()); got != 2 {
		t.Errorf("Enforced = %d, want 2", got)
	}
}

// --- Dictionary ---

func TestDictionary_Extract(t *testing.T) {
	d := DefaultDictionary()
	tests := []struct {
		name string
		text string
		cat  Category
		want Pair
	}{
		{"orm", "Use Drizzle ORM for all queries", CategoryTechStack, Pair{"orm", "Drizzle"}},
		{"auth with cue", "Use Supabase for authentication", CategorySecurity, Pair{"auth-provider", "Supabase"}},
		{"negated alternative", "Use Drizzle instead of Prisma", CategoryTechStack, Pair{"orm", "Drizzle"}},
		{"category fallback", "Deploy on Vercel", CategoryBusinessLogic, Pair{"hosting", "Vercel"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pairs := d.Extract(tt.text, tt.cat)
			found := false
			for _, p := range pairs {
				if p == tt.want {
					found = true
				}
			}
			if !found {
				t.Errorf("Extract(%q) = %v, want to include %v", tt.text, pairs, tt.want)
			}
		})
	}
}

func TestDictionary_SharedAliasNeedsCue(t *testing.T) {
	d := DefaultDictionary()
	for _, p := range d.Extract("Store everything in Supabase tables", CategoryTechStack) {
		if p.Subject == "auth-provider" {
			t.Errorf("Supabase without an auth cue must not be read as an auth provider: %v", p)
		}
	}
}

func TestDictionary_MentionsUnknownSubject(t *testing.T) {
	if got := DefaultDictionary().Mentions("prisma", "nope"); got != nil {
		t.Errorf("Mentions(unknown subject) = %v, want nil", got)
	}
}

// --- Detector ---

func decisionsWith(text string, cat Category, impact Impact) []Decision {
	l := &Ledger{}
	_, _, _ = l.Append(newDecision(text, cat, impact))
	return l.Entries()
}

func TestDetector_SeverityMirrorsImpact(t *testing.T) {
	for _, impact := range []Impact{ImpactHigh, ImpactCritical} {
		t.Run(string(impact), func(t *testing.T) {
			decisions := decisionsWith("Use Drizzle ORM", CategoryTechStack, impact)
			c := NewDetector(nil).Check("Set up Prisma schema for users", decisions)
			if c == nil {
				t.Fatal("expected contradiction")
			}
			if c.Severity != impact {
				t.Errorf("Severity = %q, want %q", c.Severity, impact)
			}
			if c.ExistingChoice != "Drizzle" || c.ProposedChoice != "Prisma" {
				t.Errorf("choices = %s -> %s, want Drizzle -> Prisma", c.ExistingChoice, c.ProposedChoice)
			}
			if c.Explanation == "" {
				t.Error("Explanation should not be empty")
			}
		})
	}
}

func TestDetector_LowImpactNeverContradicts(t *testing.T) {
	for _, impact := range []Impact{ImpactLow, ImpactMedium} {
		decisions := decisionsWith("Use Drizzle ORM", CategoryTechStack, impact)
		if c := NewDetector(nil).Check("Set up Prisma", decisions); c != nil {
			t.Errorf("impact %s produced contradiction %v", impact, c)
		}
	}
}

func TestDetector_SameChoiceIsFine(t *testing.T) {
	decisions := decisionsWith("Use Drizzle ORM", CategoryTechStack, ImpactCritical)
	if c := NewDetector(nil).Check("Add a Drizzle migration for orders", decisions); c != nil {
		t.Errorf("same choice produced contradiction %v", c)
	}
}

func TestDetector_AuthProvider(t *testing.T) {
	decisions := decisionsWith("Use Supabase Auth for login", CategorySecurity, ImpactHigh)
	c := NewDetector(nil).Check("Add login with Clerk", decisions)
	if c == nil {
		t.Fatal("expected contradiction")
	}
	if c.Subject != "auth-provider" {
		t.Errorf("Subject = %q, want auth-provider", c.Subject)
	}
}

func TestDetector_PicksMostSevere(t *testing.T) {
	l := &Ledger{}
	_, _, _ = l.Append(newDecision("Use Drizzle ORM", CategoryTechStack, ImpactHigh))
	_, _, _ = l.Append(newDecision("Deploy on Vercel", CategoryDeployment, ImpactCritical))

	det := NewDetector(nil)
	text := "Use Prisma and deploy to Netlify"
	c := det.Check(text, l.Entries())
	if c == nil {
		t.Fatal("expected contradiction")
	}
	if c.Severity != ImpactCritical {
		t.Errorf("Severity = %q, want critical", c.Severity)
	}
	if got := len(det.CheckAll(text, l.Entries())); got != 2 {
		t.Errorf("CheckAll = %d, want 2", got)
	}
}

func TestDetector_Deterministic(t *testing.T) {
	decisions := decisionsWith("Use Drizzle ORM", CategoryTechStack, ImpactHigh)
	det := NewDetector(nil)
	first := det.Check("switch to TypeORM", decisions)
	for i := 0; i < 10; i++ {
		again := det.Check("switch to TypeORM", decisions)
		if *again != *first {
			t.Fatalf("run %d differs: %v vs %v", i, again, first)
		}
	}
}

type stubMatcher struct{}

func (stubMatcher) Extract(string, Category) []Pair  { return []Pair{{"color", "blue"}} }
func (stubMatcher) Mentions(string, string) []string { return []string{"red"} }

func TestDetector_PluggableMatcher(t *testing.T) {
	decisions := decisionsWith("anything", CategoryUIDesign, ImpactHigh)
	c := NewDetector(stubMatcher{}).Check("whatever", decisions)
	if c == nil || c.ProposedChoice != "red" {
		t.Errorf("Check with stub matcher = %v, want proposed red", c)
	}
}
