package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/HendryAvila/safeguard/internal/intent"
	"github.com/HendryAvila/safeguard/internal/ledger"
	"github.com/HendryAvila/safeguard/internal/scope"
)

func TestMain(m *testing.M) {
	timeNow = func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}
	goleak.VerifyTestMain(m)
}

// --- Gates ---

func TestGates_SetHas(t *testing.T) {
	var g Gates
	all := []Gate{
		GateContextLoaded, GateIntentClarified, GateContradictionsChecked, GateScopeLocked,
		GatePatternsLoaded, GateImplementationStarted, GateVerificationPassed, GateDocumentationUpdated,
	}
	for _, gate := range all {
		if g.Has(gate) {
			t.Fatalf("%s set on zero Gates", gate)
		}
		g.Set(gate)
		if !g.Has(gate) {
			t.Errorf("%s not set", gate)
		}
	}
	g.Set("bogus")
	if g.Has("bogus") {
		t.Error("unknown gate reported as passed")
	}
}

func TestNextAllowed_Order(t *testing.T) {
	var g Gates
	want := []Call{
		CallLoadContext, CallClarifyIntent, CallCheckContradiction,
		CallDefineScope, CallDiscoverPatterns, CallValidateComplete,
	}
	gates := []Gate{
		GateContextLoaded, GateIntentClarified, GateContradictionsChecked,
		GateScopeLocked, GatePatternsLoaded, GateVerificationPassed,
	}
	for i, call := range want {
		if got := NextAllowed(g); got != call {
			t.Fatalf("step %d: NextAllowed = %s, want %s", i, got, call)
		}
		g.Set(gates[i])
	}
	if got := NextAllowed(g); got != CallReady {
		t.Errorf("NextAllowed = %s, want ready", got)
	}
}

func TestNextAllowed_SkipsSatisfiedGates(t *testing.T) {
	g := Gates{ContextLoaded: true, ScopeLocked: true}
	if got := NextAllowed(g); got != CallClarifyIntent {
		t.Errorf("NextAllowed = %s, want clarify_intent", got)
	}
}

func TestSafetyScore(t *testing.T) {
	tests := []struct {
		g    Gates
		want int
	}{
		{Gates{}, 0},
		{Gates{PatternsLoaded: true}, 25},
		{Gates{PatternsLoaded: true, ContextLoaded: true, ImplementationStarted: true}, 50},
		{Gates{PatternsLoaded: true, ContextLoaded: true, IntentClarified: true, ScopeLocked: true}, 100},
	}
	for _, tt := range tests {
		if got := SafetyScore(tt.g); got != tt.want {
			t.Errorf("SafetyScore(%+v) = %d, want %d", tt.g, got, tt.want)
		}
	}
}

func TestCheck_SoftAndHard(t *testing.T) {
	s := New("s1")

	warn, err := Check(CallClarifyIntent, s)
	if err != nil || warn == "" {
		t.Errorf("clarify_intent before load_context: warn %q err %v, want soft warning", warn, err)
	}

	_, err = Check(CallAnswerClarification, s)
	var gv *GateViolation
	if !errors.As(err, &gv) {
		t.Fatalf("answer_clarification without analysis: err = %v, want GateViolation", err)
	}
	if gv.Call != CallAnswerClarification {
		t.Errorf("GateViolation.Call = %s", gv.Call)
	}

	s.Intent = &intent.Analysis{}
	if _, err := Check(CallAnswerClarification, s); err != nil {
		t.Errorf("answer_clarification with analysis: %v", err)
	}

	s.Gates.ContextLoaded = true
	if warn, _ := Check(CallClarifyIntent, s); warn != "" {
		t.Errorf("unexpected warning %q", warn)
	}
	if warn, err := Check(CallLogAttempt, nil); warn != "" || err != nil {
		t.Error("log_attempt has no prerequisites")
	}
}

func TestAdvance(t *testing.T) {
	var g Gates
	Advance(CallLoadContext, &g, false)
	if g.ContextLoaded {
		t.Error("failed load_context must not set contextLoaded")
	}
	Advance(CallCheckAction, &g, false)
	if !g.ContradictionsChecked || g.ImplementationStarted {
		t.Errorf("check_action without write: %+v", g)
	}
	Advance(CallCheckAction, &g, true)
	if !g.ImplementationStarted {
		t.Error("allowed write should set implementationStarted")
	}
	Advance(CallLogDecision, &g, true)
	if !g.DocumentationUpdated {
		t.Error("log_decision should set documentationUpdated")
	}
}

func TestTransitions_Complete(t *testing.T) {
	for _, c := range []Call{
		CallLoadContext, CallClarifyIntent, CallAnswerClarification, CallCheckContradiction,
		CallDefineScope, CallCheckAction, CallLogDecision, CallLogAttempt,
		CallDiscoverPatterns, CallValidateComplete, CallGetStatus, CallResetSession,
	} {
		tr, ok := Transitions[c]
		if !ok {
			t.Errorf("missing transition for %s", c)
			continue
		}
		if tr.Call != c {
			t.Errorf("transition key %s has Call %s", c, tr.Call)
		}
	}
}

// --- Session ---

func TestSession_CloneIsDeep(t *testing.T) {
	s := New("s1")
	s.Decisions = append(s.Decisions, ledger.Decision{ID: "d1", AlternativesConsidered: []string{"a"}})
	s.ScopeLock = &scope.Lock{ID: "l1", Violations: []scope.Violation{}}
	s.Intent = &intent.Analysis{Questions: []intent.Question{{ID: "q"}}}

	c := s.Clone()
	c.Decisions[0].AlternativesConsidered[0] = "x"
	c.ScopeLock.Violations = append(c.ScopeLock.Violations, scope.Violation{})
	c.Intent.Questions[0].ID = "changed"

	if s.Decisions[0].AlternativesConsidered[0] != "a" {
		t.Error("decision alternatives aliased")
	}
	if len(s.ScopeLock.Violations) != 0 {
		t.Error("scope lock aliased")
	}
	if s.Intent.Questions[0].ID != "q" {
		t.Error("intent aliased")
	}
}

// --- MemoryStore ---

func TestMemoryStore_CreateGetUpdateEvict(t *testing.T) {
	st := NewMemoryStore()

	s, created, err := st.Create("a")
	if err != nil || !created || s.ID != "a" {
		t.Fatalf("Create = %v %v %v", s, created, err)
	}
	if _, created, _ := st.Create("a"); created {
		t.Error("second Create should not create")
	}
	if st.Len() != 1 {
		t.Errorf("Len = %d, want 1", st.Len())
	}

	got, err := st.Update("a", func(s *Session) error {
		s.Gates.Set(GateContextLoaded)
		return nil
	})
	if err != nil || !got.Gates.ContextLoaded {
		t.Fatalf("Update = %+v, %v", got, err)
	}

	read, ok := st.Get("a")
	if !ok || !read.Gates.ContextLoaded {
		t.Fatal("update not visible")
	}
	read.Gates.ScopeLocked = true
	if again, _ := st.Get("a"); again.Gates.ScopeLocked {
		t.Error("Get returned aliased state")
	}

	if !st.Evict("a") {
		t.Error("Evict should report existing session")
	}
	if _, ok := st.Get("a"); ok {
		t.Error("evicted session still readable")
	}
	if st.Evict("a") {
		t.Error("double evict reported true")
	}
	if st.Len() != 0 {
		t.Errorf("Len = %d, want 0", st.Len())
	}
}

func TestMemoryStore_UpdateErrorDiscardsChanges(t *testing.T) {
	st := NewMemoryStore()
	_, _, _ = st.Create("a")

	boom := errors.New("boom")
	_, err := st.Update("a", func(s *Session) error {
		s.Gates.Set(GateScopeLocked)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
	if s, _ := st.Get("a"); s.Gates.ScopeLocked {
		t.Error("failed update was committed")
	}
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	_, err := NewMemoryStore().Update("nope", func(*Session) error { return nil })
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_CreateRequiresID(t *testing.T) {
	if _, _, err := NewMemoryStore().Create(""); err == nil {
		t.Error("empty id should fail")
	}
}

func TestMemoryStore_ConcurrentUpdatesAreSerialized(t *testing.T) {
	defer goleak.VerifyNone(t)

	st := NewMemoryStore()
	const sessions, perSession = 4, 50
	for i := 0; i < sessions; i++ {
		_, _, _ = st.Create(fmt.Sprintf("s%d", i))
	}

	var wg sync.WaitGroup
	for i := 0; i < sessions; i++ {
		id := fmt.Sprintf("s%d", i)
		for j := 0; j < perSession; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = st.Update(id, func(s *Session) error {
					s.Decisions = append(s.Decisions, ledger.Decision{ID: fmt.Sprintf("%s-%d", id, j)})
					return nil
				})
			}()
		}
	}
	wg.Wait()

	for i := 0; i < sessions; i++ {
		s, _ := st.Get(fmt.Sprintf("s%d", i))
		if len(s.Decisions) != perSession {
			t.Errorf("session s%d has %d decisions, want %d (lost update)", i, len(s.Decisions), perSession)
		}
	}
}
