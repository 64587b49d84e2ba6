package safety

import (
	"time"

	"github.com/HendryAvila/safeguard/internal/attempts"
	"github.com/HendryAvila/safeguard/internal/contextload"
	"github.com/HendryAvila/safeguard/internal/enforcement"
	"github.com/HendryAvila/safeguard/internal/intent"
	"github.com/HendryAvila/safeguard/internal/ledger"
	"github.com/HendryAvila/safeguard/internal/patterns"
	"github.com/HendryAvila/safeguard/internal/scope"
	"github.com/HendryAvila/safeguard/internal/session"
)

// Outcome carries the policy fields shared by responses that can be
// refused without being an error.
type Outcome struct {
	Blocked bool   `json:"blocked,omitempty"`
	Code    string `json:"code,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// --- load_context ---

type LoadContextRequest struct {
	SessionID   string `json:"sessionId"`
	ProjectPath string `json:"projectPath,omitempty"`
}

type LoadContextResponse struct {
	Outcome
	SessionID         string              `json:"sessionId"`
	Context           contextload.Context `json:"context"`
	CriticalDecisions []ledger.Decision   `json:"criticalDecisions"`
	FailedApproaches  []attempts.Attempt  `json:"failedApproaches"`
	ActiveBlockers    []attempts.Blocker  `json:"activeBlockers"`
	DecisionsLoaded   int                 `json:"decisionsLoaded"`
	AttemptsLoaded    int                 `json:"attemptsLoaded"`
	NextAction        session.Call        `json:"nextAction"`
}

// --- clarify_intent / answer_clarification ---

type ClarifyIntentRequest struct {
	SessionID   string `json:"sessionId"`
	UserRequest string `json:"userRequest"`
}

type ClarifyIntentResponse struct {
	Outcome
	intent.Analysis
	NextAction session.Call `json:"nextAction"`
}

type AnswerClarificationRequest struct {
	SessionID  string `json:"sessionId"`
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
}

type AnswerClarificationResponse struct {
	Outcome
	ReadyToProceed     bool                     `json:"readyToProceed"`
	RemainingQuestions []intent.Question        `json:"remainingQuestions"`
	OverallConfidence  int                      `json:"overallConfidence"`
	Scores             []intent.ConfidenceScore `json:"scores,omitempty"`
	Round              int                      `json:"round"`
	Exhausted          bool                     `json:"exhausted"`
	NextAction         session.Call             `json:"nextAction,omitempty"`
}

// --- define_scope / check_action ---

type DefineScopeRequest struct {
	SessionID          string   `json:"sessionId"`
	UserRequest        string   `json:"userRequest"`
	AllowedDirectories []string `json:"allowedDirectories,omitempty"`
	ForbiddenFiles     []string `json:"forbiddenFiles,omitempty"`
	AllowedActions     []string `json:"allowedActions,omitempty"`
}

type DefineScopeResponse struct {
	Outcome
	ScopeLockID string      `json:"scopeLockId"`
	Summary     string      `json:"summary"`
	ScopeLock   *scope.Lock `json:"scopeLock"`
}

type CheckActionRequest struct {
	SessionID  string `json:"sessionId"`
	Action     string `json:"action,omitempty"`
	ActionType string `json:"actionType,omitempty"`
	TargetFile string `json:"targetFile,omitempty"`
}

type CheckActionResponse struct {
	Outcome
	Allowed       bool                  `json:"allowed"`
	Violation     *scope.Violation      `json:"violation,omitempty"`
	Contradiction *ledger.Contradiction `json:"contradiction,omitempty"`
}

// --- check_contradiction / log_decision ---

type CheckContradictionRequest struct {
	SessionID string `json:"sessionId"`
	Action    string `json:"action"`
}

type CheckContradictionResponse struct {
	Outcome
	HasContradiction  bool                   `json:"hasContradiction"`
	Contradiction     *ledger.Contradiction  `json:"contradiction,omitempty"`
	AllContradictions []ledger.Contradiction `json:"allContradictions,omitempty"`
	DecisionsChecked  int                    `json:"decisionsChecked"`
}

type LogDecisionRequest struct {
	SessionID              string   `json:"sessionId"`
	Decision               string   `json:"decision"`
	Category               string   `json:"category"`
	Reasoning              string   `json:"reasoning"`
	Impact                 string   `json:"impact"`
	AlternativesConsidered []string `json:"alternativesConsidered,omitempty"`
	Reversible             bool     `json:"reversible,omitempty"`
	MadeBy                 string   `json:"madeBy,omitempty"`
	UserApproved           bool     `json:"userApproved,omitempty"`
}

type LogDecisionResponse struct {
	Outcome
	DecisionID       string                `json:"decisionId"`
	HasContradiction bool                  `json:"hasContradiction"`
	Contradiction    *ledger.Contradiction `json:"contradiction,omitempty"`
	Decision         ledger.Decision       `json:"decision"`
}

// --- log_attempt ---

type LogAttemptRequest struct {
	SessionID      string `json:"sessionId"`
	Issue          string `json:"issue"`
	Approach       string `json:"approach"`
	CodeOrCommand  string `json:"codeOrCommand,omitempty"`
	Result         string `json:"result"`
	ErrorMessage   string `json:"errorMessage,omitempty"`
	LessonsLearned string `json:"lessonsLearned,omitempty"`
}

type LogAttemptResponse struct {
	Outcome
	AttemptID             string            `json:"attemptId"`
	WasAlreadyTried       bool              `json:"wasAlreadyTried"`
	ShouldNotRetry        bool              `json:"shouldNotRetry"`
	Recommendation        string            `json:"recommendation,omitempty"`
	PreviousAttempt       *attempts.Attempt `json:"previousAttempt,omitempty"`
	SuggestedAlternatives []string          `json:"suggestedAlternatives"`
}

// --- get_status / reset_session ---

type StatusRequest struct {
	SessionID string `json:"sessionId"`
}

type StatusResponse struct {
	SessionID           string            `json:"sessionId"`
	Exists              bool              `json:"exists"`
	ProjectHash         string            `json:"projectHash,omitempty"`
	Gates               session.Gates     `json:"gates"`
	NextAction          session.Call      `json:"nextAction"`
	SafetyScore         int               `json:"safetyScore"`
	Violations          []scope.Violation `json:"violations"`
	ContradictionsFound int               `json:"contradictionsFound"`
	AttemptsLogged      int               `json:"attemptsLogged"`
	DecisionsLogged     int               `json:"decisionsLogged"`
	ScopeLockID         string            `json:"scopeLockId,omitempty"`
	PendingQuestions    int               `json:"pendingQuestions"`
	UpdatedAt           *time.Time        `json:"updatedAt,omitempty"`
}

type ResetSessionRequest struct {
	SessionID string `json:"sessionId"`
}

type ResetSessionResponse struct {
	SessionID string `json:"sessionId"`
	Reset     bool   `json:"reset"`
}

// --- discover_patterns / validate_complete ---

type DiscoverPatternsRequest struct {
	Task      string   `json:"task"`
	Keywords  []string `json:"keywords,omitempty"`
	Files     []string `json:"files,omitempty"`
	TeamID    string   `json:"teamId,omitempty"`
	SessionID string   `json:"sessionId,omitempty"`
}

type DiscoverPatternsResponse struct {
	Outcome
	SessionToken       string                `json:"sessionToken"`
	Patterns           []string              `json:"patterns"`
	Keywords           []string              `json:"keywords"`
	HasExactMatch      bool                  `json:"hasExactMatch"`
	RelatedSuggestions []patterns.Suggestion `json:"relatedSuggestions,omitempty"`
	ExpiresAt          time.Time             `json:"expiresAt"`
}

type ValidateCompleteRequest struct {
	SessionToken     string `json:"sessionToken"`
	FeatureName      string `json:"featureName,omitempty"`
	TestsRun         bool   `json:"testsRun"`
	TestsPassed      bool   `json:"testsPassed"`
	TypescriptPassed *bool  `json:"typescriptPassed,omitempty"`
	TestsWritten     *bool  `json:"testsWritten,omitempty"`
	SafetySessionID  string `json:"safetySessionId,omitempty"`
}

type ValidateCompleteResponse struct {
	enforcement.Result
	Code string `json:"code,omitempty"`
}
