package attempts

import (
	"strings"
	"testing"
	"time"
)

func init() {
	timeNow = func() time.Time {
		return time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	}
}

func failure(issue, approach string) NewAttempt {
	return NewAttempt{Issue: issue, Approach: approach, Result: ResultFailure, ErrorMessage: "boom"}
}

func TestSignature_Normalizes(t *testing.T) {
	a := Signature("Build  FAILS on CI", "Clear the cache")
	b := Signature("ci fails build", "cache clear")
	if a != b {
		t.Errorf("signatures differ: %q vs %q", a, b)
	}
	if !strings.Contains(a, "|") {
		t.Errorf("signature %q missing separator", a)
	}
}

func TestWeightedJaccard(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		min  float64
		max  float64
	}{
		{"identical", "build fails|clear cache", "build fails|clear cache", 1, 1},
		{"disjoint", "build fails|clear cache", "login broken|rotate secret", 0, 0},
		{"same approach only", "build fails|clear cache", "login broken|clear cache", 0.6, 0.6},
		{"same issue only", "build fails|clear cache", "build fails|pin version", 0.4, 0.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeightedJaccard(tt.a, tt.b)
			if got < tt.min-1e-9 || got > tt.max+1e-9 {
				t.Errorf("WeightedJaccard = %v, want in [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestNewAttempt_Validate(t *testing.T) {
	tests := []struct {
		name    string
		in      NewAttempt
		wantErr bool
	}{
		{"ok", failure("x", "y"), false},
		{"no issue", NewAttempt{Approach: "y", Result: ResultFailure}, true},
		{"no approach", NewAttempt{Issue: "x", Result: ResultFailure}, true},
		{"bad result", NewAttempt{Issue: "x", Approach: "y", Result: "meh"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.in.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRecord_SecondFailureIsBlocked(t *testing.T) {
	tr := NewTracker(Options{})
	log := &Log{}

	first, check, err := tr.Record(log, failure("Build fails on CI", "clear the cache"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if check.AlreadyTried {
		t.Error("first attempt should not be already tried")
	}
	if first.ShouldNotRetry {
		t.Error("one failure should not set ShouldNotRetry")
	}
	if !strings.HasPrefix(first.ID, "att_") {
		t.Errorf("ID = %q, want att_ prefix", first.ID)
	}

	second, check, err := tr.Record(log, failure("build fails on ci", "Clear the cache"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !check.AlreadyTried {
		t.Error("second identical failure should be already tried")
	}
	if !second.ShouldNotRetry {
		t.Error("second failure should set ShouldNotRetry")
	}
	if check.Recommendation == "" || !strings.Contains(check.Recommendation, "avoid") {
		t.Errorf("Recommendation = %q, want an avoid hint", check.Recommendation)
	}
	if log.Len() != 2 {
		t.Errorf("Len = %d, want 2", log.Len())
	}
}

func TestRecord_SuccessIsInformational(t *testing.T) {
	tr := NewTracker(Options{})
	log := &Log{}
	_, _, _ = tr.Record(log, NewAttempt{Issue: "login broken", Approach: "rotate secret", Result: ResultSuccess})

	_, check, _ := tr.Record(log, NewAttempt{Issue: "login broken", Approach: "rotate secret", Result: ResultFailure})
	if check.AlreadyTried {
		t.Error("a prior success must not be reported as already tried")
	}
	if check.Match == nil || check.Recommendation == "" {
		t.Error("expected an informational match")
	}
}

func TestRecord_RespectsRetryLimit(t *testing.T) {
	tr := NewTracker(Options{RetryFailureLimit: 3})
	log := &Log{}
	var last Attempt
	for i := 0; i < 3; i++ {
		last, _, _ = tr.Record(log, failure("tests flaky", "add sleep"))
		if i < 2 && last.ShouldNotRetry {
			t.Fatalf("attempt %d: ShouldNotRetry too early", i+1)
		}
	}
	if !last.ShouldNotRetry {
		t.Error("third failure should set ShouldNotRetry with limit 3")
	}
}

func TestRecord_DuplicateIDIsNoop(t *testing.T) {
	tr := NewTracker(Options{})
	log := &Log{}
	in := failure("x issue", "y approach")
	in.ID = "ctx-1"
	_, _, _ = tr.Record(log, in)
	_, _, _ = tr.Record(log, in)
	if log.Len() != 1 {
		t.Errorf("Len = %d, want 1", log.Len())
	}
}

func TestHasBeenTried_Unrelated(t *testing.T) {
	tr := NewTracker(Options{})
	log := &Log{}
	_, _, _ = tr.Record(log, failure("build fails", "clear cache"))

	if c := tr.HasBeenTried("login broken", "rotate secret", log.Entries()); c.Match != nil {
		t.Errorf("unrelated attempt matched: %+v", c)
	}
}

func TestSuggestAlternatives_FiltersFailed(t *testing.T) {
	tr := NewTracker(Options{})
	history := []Attempt{
		{Approach: "run the failing test in isolation", Result: ResultFailure},
	}
	got := tr.SuggestAlternatives("jest test is flaky", history)
	if len(got) == 0 || len(got) > maxAlternatives {
		t.Fatalf("got %d suggestions", len(got))
	}
	for _, s := range got {
		if s == "run the failing test in isolation" {
			t.Error("failed approach was suggested again")
		}
	}
	if got[0] != "reset mocks and shared state between tests" {
		t.Errorf("first suggestion = %q, want test-domain candidate", got[0])
	}
}

func TestSuggestAlternatives_Generic(t *testing.T) {
	got := NewTracker(Options{}).SuggestAlternatives("something odd", nil)
	if len(got) != len(genericCandidates) {
		t.Errorf("got %d, want %d generic suggestions", len(got), len(genericCandidates))
	}
}
