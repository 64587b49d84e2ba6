// Package intent scores how well a request pins down what should be built
// and drives the clarification loop until it is clear enough to act on.
//
// Scoring follows the weighted-dimension model: each field yields 0-100,
// the overall confidence is the weighted average, and the request is
// ready only when the overall score meets the threshold and every
// required field meets its own minimum.
package intent

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/HendryAvila/safeguard/internal/textmatch"
)

// Defaults.
const (
	DefaultThreshold = 70
	DefaultMaxRounds = 5

	optionConfidence      = 100
	substantiveConfidence = 85
)

// Field names.
const (
	FieldCoreFeature     = "core_feature"
	FieldTargetUsers     = "target_users"
	FieldDataModel       = "data_model"
	FieldTechConstraints = "tech_constraints"
	FieldSuccessCriteria = "success_criteria"
)

// Priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
)

var (
	// ErrUnknownQuestion is returned when an answer names a question that
	// is not pending.
	ErrUnknownQuestion = errors.New("unknown question")
	// ErrExhausted is returned when answering after the round limit.
	ErrExhausted = errors.New("clarification rounds exhausted")
)

// FieldSpec describes one scored field.
type FieldSpec struct {
	Name     string
	Required bool
	Weight   int
	Minimum  int
	Question string
	Options  []string
	Matcher  FieldMatcher
}

// ConfidenceScore is the score of one field.
type ConfidenceScore struct {
	Field              string `json:"field"`
	Confidence         int    `json:"confidence"`
	Reasoning          string `json:"reasoning"`
	NeedsClarification bool   `json:"needsClarification"`
}

// Question asks the user to clarify one field.
type Question struct {
	ID       string   `json:"id"`
	Field    string   `json:"field"`
	Question string   `json:"question"`
	Options  []string `json:"options,omitempty"`
	Priority string   `json:"priority"`
}

// Answer records a reply to a question.
type Answer struct {
	QuestionID string `json:"questionId"`
	Answer     string `json:"answer"`
	Accepted   bool   `json:"accepted"`
}

// Analysis is the state of the clarification loop for one request.
type Analysis struct {
	Request           string            `json:"request"`
	OverallConfidence int               `json:"overallConfidence"`
	Scores            []ConfidenceScore `json:"scores"`
	Questions         []Question        `json:"clarificationQuestions"`
	ReadyToProceed    bool              `json:"readyToProceed"`
	Round             int               `json:"round"`
	MaxRounds         int               `json:"maxRounds"`
	Exhausted         bool              `json:"exhausted"`
	Answers           []Answer          `json:"answers,omitempty"`
}

// Clone returns a deep copy.
func (a Analysis) Clone() Analysis {
	a.Scores = append([]ConfidenceScore(nil), a.Scores...)
	qs := make([]Question, len(a.Questions))
	for i, q := range a.Questions {
		q.Options = append([]string(nil), q.Options...)
		qs[i] = q
	}
	a.Questions = qs
	a.Answers = append([]Answer(nil), a.Answers...)
	return a
}

// Options configures a Clarifier. Zero values fall back to defaults.
type Options struct {
	Threshold int
	MaxRounds int
	Fields    []FieldSpec
}

// Clarifier scores requests and answers. It is stateless and safe for
// concurrent use; the Analysis value carries the loop state.
type Clarifier struct {
	fields    []FieldSpec
	threshold int
	maxRounds int
}

// NewClarifier creates a Clarifier.
func NewClarifier(opts Options) *Clarifier {
	c := &Clarifier{fields: opts.Fields, threshold: opts.Threshold, maxRounds: opts.MaxRounds}
	if len(c.fields) == 0 {
		c.fields = DefaultFields()
	}
	if c.threshold <= 0 || c.threshold > 100 {
		c.threshold = DefaultThreshold
	}
	if c.maxRounds <= 0 {
		c.maxRounds = DefaultMaxRounds
	}
	return c
}

// Analyze scores request from scratch.
func (c *Clarifier) Analyze(request string) Analysis {
	a := Analysis{Request: request, MaxRounds: c.maxRounds}
	for _, f := range c.fields {
		conf, why := 0, "no matcher"
		if f.Matcher != nil {
			conf, why = f.Matcher.Score(request)
		}
		a.Scores = append(a.Scores, ConfidenceScore{Field: f.Name, Confidence: conf, Reasoning: why})
	}
	c.evaluate(&a)
	return a
}

// Answer applies a reply to a pending question and returns the updated
// analysis. An option from the question's list sets the field to full
// confidence; any other substantive reply sets it high; an unsure reply
// leaves the question pending. Every call consumes one round.
func (c *Clarifier) Answer(prev Analysis, questionID, answer string) (Analysis, error) {
	a := prev.Clone()
	if a.Exhausted {
		return prev, ErrExhausted
	}

	qi := -1
	for i, q := range a.Questions {
		if q.ID == questionID {
			qi = i
			break
		}
	}
	if qi < 0 {
		return prev, fmt.Errorf("%w: %q", ErrUnknownQuestion, questionID)
	}
	q := a.Questions[qi]
	spec, _ := c.field(q.Field)

	a.Round++
	conf, reason := answerConfidence(spec, answer)
	a.Answers = append(a.Answers, Answer{QuestionID: questionID, Answer: answer, Accepted: conf > 0})
	if conf > 0 {
		for i := range a.Scores {
			if a.Scores[i].Field == q.Field && conf > a.Scores[i].Confidence {
				a.Scores[i].Confidence = conf
				a.Scores[i].Reasoning = reason
			}
		}
	}
	c.evaluate(&a)
	return a, nil
}

// answerConfidence returns 0 when the reply does not settle the field.
func answerConfidence(spec FieldSpec, answer string) (int, string) {
	norm := textmatch.Normalize(answer)
	if norm == "" || isUnsure(answer) {
		return 0, ""
	}
	for _, opt := range spec.Options {
		if norm == textmatch.Normalize(opt) {
			return optionConfidence, "answered: " + opt
		}
	}
	if textmatch.WordCount(answer) >= 2 {
		return substantiveConfidence, "answered by user"
	}
	if spec.Matcher != nil {
		if conf, _ := spec.Matcher.Score(answer); conf > 0 {
			return substantiveConfidence, "answered by user"
		}
	}
	return 0, ""
}

var unsurePhrases = []string{
	"not sure", "unsure", "idk", "don't know", "dont know", "no idea", "tbd",
	"maybe", "whatever", "unknown", "n/a",
}

func isUnsure(answer string) bool {
	return textmatch.ContainsAny(answer, unsurePhrases...)
}

// evaluate recomputes overall confidence, pending questions and readiness.
func (c *Clarifier) evaluate(a *Analysis) {
	totalWeight, weighted := 0, 0
	requiredOK := true
	for i := range a.Scores {
		s := &a.Scores[i]
		spec, _ := c.field(s.Field)
		s.NeedsClarification = s.Confidence < spec.Minimum
		if spec.Required && s.NeedsClarification {
			requiredOK = false
		}
		totalWeight += spec.Weight
		weighted += s.Confidence * spec.Weight
	}
	if totalWeight > 0 {
		a.OverallConfidence = weighted / totalWeight
	}
	a.ReadyToProceed = requiredOK && a.OverallConfidence >= c.threshold

	a.Questions = make([]Question, 0, len(a.Scores))
	if !a.ReadyToProceed {
		for _, s := range a.Scores {
			if s.NeedsClarification {
				a.Questions = append(a.Questions, c.question(s.Field))
			}
		}
		// All fields meet their minimum but the blend is still short:
		// ask about whatever is below the global threshold.
		if len(a.Questions) == 0 {
			for _, s := range a.Scores {
				if s.Confidence < c.threshold {
					a.Questions = append(a.Questions, c.question(s.Field))
				}
			}
		}
	}
	sort.SliceStable(a.Questions, func(i, j int) bool {
		return a.Questions[i].Priority == PriorityHigh && a.Questions[j].Priority != PriorityHigh
	})

	a.Exhausted = len(a.Questions) > 0 && a.Round >= a.MaxRounds
}

func (c *Clarifier) question(field string) Question {
	spec, _ := c.field(field)
	q := Question{
		ID:       "q-" + field,
		Field:    field,
		Question: spec.Question,
		Options:  append([]string(nil), spec.Options...),
		Priority: PriorityMedium,
	}
	if spec.Required {
		q.Priority = PriorityHigh
	}
	if q.Question == "" {
		q.Question = "Can you clarify the " + strings.ReplaceAll(field, "_", " ") + "?"
	}
	return q
}

func (c *Clarifier) field(name string) (FieldSpec, bool) {
	for _, f := range c.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{Name: name}, false
}
