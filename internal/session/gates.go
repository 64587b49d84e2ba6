package session

import (
	"fmt"
	"strings"
)

// --- Gate state machine ---
//
// Every call an agent can make is listed once in Transitions with the
// gates it expects and the gates it sets. Callers ask Check before doing
// the work and Advance after it.

// Call names one agent-facing operation.
type Call string

const (
	CallLoadContext         Call = "load_context"
	CallClarifyIntent       Call = "clarify_intent"
	CallAnswerClarification Call = "answer_clarification"
	CallCheckContradiction  Call = "check_contradiction"
	CallDefineScope         Call = "define_scope"
	CallCheckAction         Call = "check_action"
	CallLogDecision         Call = "log_decision"
	CallLogAttempt          Call = "log_attempt"
	CallDiscoverPatterns    Call = "discover_patterns"
	CallValidateComplete    Call = "validate_complete"
	CallGetStatus           Call = "get_status"
	CallResetSession        Call = "reset_session"
)

// CallReady is what NextAllowed returns once every gate is met.
const CallReady Call = "ready"

// Enforcement is how a missing prerequisite is treated.
type Enforcement int

const (
	// EnforceNone means the call has no prerequisites.
	EnforceNone Enforcement = iota
	// EnforceSoft lets the call proceed with a warning.
	EnforceSoft
	// EnforceHard rejects the call with a GateViolation.
	EnforceHard
)

// Transition declares one call's place in the gate order.
type Transition struct {
	Call     Call
	Requires []Gate
	// RequiresAnalysis means a clarification analysis must already exist.
	RequiresAnalysis bool
	Enforcement      Enforcement
	// Sets are marked whenever the call completes.
	Sets []Gate
	// SetsOnSuccess are marked only when the call reports success.
	SetsOnSuccess []Gate
}

// Transitions is the gate table.
var Transitions = map[Call]Transition{
	CallLoadContext: {
		Call:          CallLoadContext,
		SetsOnSuccess: []Gate{GateContextLoaded},
	},
	CallClarifyIntent: {
		Call:          CallClarifyIntent,
		Requires:      []Gate{GateContextLoaded},
		Enforcement:   EnforceSoft,
		SetsOnSuccess: []Gate{GateIntentClarified},
	},
	CallAnswerClarification: {
		Call:             CallAnswerClarification,
		RequiresAnalysis: true,
		Enforcement:      EnforceHard,
		SetsOnSuccess:    []Gate{GateIntentClarified},
	},
	CallCheckContradiction: {
		Call:        CallCheckContradiction,
		Requires:    []Gate{GateContextLoaded},
		Enforcement: EnforceSoft,
		Sets:        []Gate{GateContradictionsChecked},
	},
	CallDefineScope: {
		Call:        CallDefineScope,
		Requires:    []Gate{GateIntentClarified},
		Enforcement: EnforceSoft,
		Sets:        []Gate{GateScopeLocked},
	},
	CallCheckAction: {
		Call:          CallCheckAction,
		Sets:          []Gate{GateContradictionsChecked},
		SetsOnSuccess: []Gate{GateImplementationStarted},
	},
	CallLogDecision: {
		Call: CallLogDecision,
		Sets: []Gate{GateContradictionsChecked, GateDocumentationUpdated},
	},
	CallLogAttempt: {Call: CallLogAttempt},
	CallDiscoverPatterns: {
		Call: CallDiscoverPatterns,
		Sets: []Gate{GatePatternsLoaded},
	},
	CallValidateComplete: {
		Call:          CallValidateComplete,
		SetsOnSuccess: []Gate{GateVerificationPassed},
	},
	CallGetStatus:    {Call: CallGetStatus},
	CallResetSession: {Call: CallResetSession},
}

// GateViolation is returned when a hard prerequisite is missing.
type GateViolation struct {
	Call    Call
	Missing []string
}

func (e *GateViolation) Error() string {
	return fmt.Sprintf("%s requires %s first", e.Call, strings.Join(e.Missing, ", "))
}

// prerequisiteCall names the call that satisfies each gate.
var prerequisiteCall = map[Gate]Call{
	GateContextLoaded:         CallLoadContext,
	GateIntentClarified:       CallClarifyIntent,
	GateContradictionsChecked: CallCheckContradiction,
	GateScopeLocked:           CallDefineScope,
	GatePatternsLoaded:        CallDiscoverPatterns,
	GateVerificationPassed:    CallValidateComplete,
}

// Check tests call's prerequisites against s. Soft misses return a
// warning; hard misses return a *GateViolation. Unknown calls pass.
func Check(call Call, s *Session) (warning string, err error) {
	t, ok := Transitions[call]
	if !ok {
		return "", nil
	}

	var missing []string
	var gates Gates
	if s != nil {
		gates = s.Gates
	}
	for _, g := range t.Requires {
		if !gates.Has(g) {
			missing = append(missing, string(prerequisiteCall[g]))
		}
	}
	if t.RequiresAnalysis && (s == nil || s.Intent == nil) {
		missing = append(missing, string(CallClarifyIntent))
	}
	if len(missing) == 0 {
		return "", nil
	}

	switch t.Enforcement {
	case EnforceHard:
		return "", &GateViolation{Call: call, Missing: missing}
	case EnforceSoft:
		return fmt.Sprintf("%s called before %s; results may miss project context",
			call, strings.Join(missing, ", ")), nil
	}
	return "", nil
}

// Advance marks the gates call sets. Gates only move forward.
func Advance(call Call, g *Gates, success bool) {
	t, ok := Transitions[call]
	if !ok {
		return
	}
	for _, gate := range t.Sets {
		g.Set(gate)
	}
	if success {
		for _, gate := range t.SetsOnSuccess {
			g.Set(gate)
		}
	}
}

// nextOrder is the priority walk used by NextAllowed.
var nextOrder = []Gate{
	GateContextLoaded,
	GateIntentClarified,
	GateContradictionsChecked,
	GateScopeLocked,
	GatePatternsLoaded,
	GateVerificationPassed,
}

// NextAllowed returns the call that satisfies the first unmet gate in
// priority order, or CallReady.
func NextAllowed(g Gates) Call {
	for _, gate := range nextOrder {
		if !g.Has(gate) {
			return prerequisiteCall[gate]
		}
	}
	return CallReady
}

// scoredGates contribute 25 points each to SafetyScore.
var scoredGates = []Gate{GatePatternsLoaded, GateContextLoaded, GateIntentClarified, GateScopeLocked}

// SafetyScore is 25 points per passed gate among patterns, context,
// intent and scope.
func SafetyScore(g Gates) int {
	score := 0
	for _, gate := range scoredGates {
		if g.Has(gate) {
			score += 25
		}
	}
	return score
}

// ScoredGates returns which of the scored gates were followed and which
// were skipped.
func ScoredGates(g Gates) (followed, skipped []Gate) {
	for _, gate := range scoredGates {
		if g.Has(gate) {
			followed = append(followed, gate)
		} else {
			skipped = append(skipped, gate)
		}
	}
	return followed, skipped
}
