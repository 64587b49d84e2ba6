// Package schema validates safety call arguments against per-action JSON
// Schemas. Every schema has a closed property set, so a misspelled field
// is rejected instead of silently ignored.
package schema

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Enumerations shared with the domain packages.
var (
	ActionTypes = []string{
		"create-file", "modify-file", "delete-file", "add-dependency",
		"remove-dependency", "run-command", "modify-config",
	}
	Categories = []string{
		"architecture", "tech-stack", "patterns", "security", "data-model",
		"api-design", "ui-design", "integration", "deployment", "business-logic",
	}
	Impacts = []string{"low", "medium", "high", "critical"}
	Results = []string{"success", "failure", "partial"}
	Authors = []string{"user", "ai"}
)

func str() map[string]any { return map[string]any{"type": "string"} }

func nonEmpty() map[string]any { return map[string]any{"type": "string", "minLength": 1} }

func boolean() map[string]any { return map[string]any{"type": "boolean"} }

func enum(values []string) map[string]any {
	return map[string]any{"type": "string", "enum": values}
}

func stringList() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{
		"type":                 "object",
		"properties":           props,
		"additionalProperties": false,
	}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

// Definitions returns the schema document for each action.
func Definitions() map[string]map[string]any {
	sessionOnly := func() map[string]any {
		return object(map[string]any{"sessionId": nonEmpty()}, "sessionId")
	}

	checkAction := object(map[string]any{
		"sessionId":  nonEmpty(),
		"action":     str(),
		"actionType": enum(ActionTypes),
		"targetFile": str(),
	}, "sessionId")
	checkAction["anyOf"] = []any{
		map[string]any{"required": []string{"action"}},
		map[string]any{"required": []string{"actionType"}},
	}

	return map[string]map[string]any{
		"load_context": object(map[string]any{
			"sessionId":   nonEmpty(),
			"projectPath": str(),
		}, "sessionId"),
		"clarify_intent": object(map[string]any{
			"sessionId":   nonEmpty(),
			"userRequest": nonEmpty(),
		}, "sessionId", "userRequest"),
		"answer_clarification": object(map[string]any{
			"sessionId":  nonEmpty(),
			"questionId": nonEmpty(),
			"answer":     str(),
		}, "sessionId", "questionId", "answer"),
		"define_scope": object(map[string]any{
			"sessionId":          nonEmpty(),
			"userRequest":        nonEmpty(),
			"allowedDirectories": stringList(),
			"forbiddenFiles":     stringList(),
			"allowedActions": map[string]any{
				"type":  "array",
				"items": enum(ActionTypes),
			},
		}, "sessionId", "userRequest"),
		"check_action": checkAction,
		"check_contradiction": object(map[string]any{
			"sessionId": nonEmpty(),
			"action":    nonEmpty(),
		}, "sessionId", "action"),
		"log_attempt": object(map[string]any{
			"sessionId":      nonEmpty(),
			"issue":          nonEmpty(),
			"approach":       nonEmpty(),
			"codeOrCommand":  str(),
			"result":         enum(Results),
			"errorMessage":   str(),
			"lessonsLearned": str(),
		}, "sessionId", "issue", "approach", "result"),
		"log_decision": object(map[string]any{
			"sessionId":              nonEmpty(),
			"decision":               nonEmpty(),
			"category":               enum(Categories),
			"reasoning":              str(),
			"impact":                 enum(Impacts),
			"alternativesConsidered": stringList(),
			"reversible":             boolean(),
			"madeBy":                 enum(Authors),
			"userApproved":           boolean(),
		}, "sessionId", "decision", "category", "reasoning", "impact"),
		"get_status":        sessionOnly(),
		"get_safety_status": sessionOnly(),
		"reset_session":     sessionOnly(),
		"discover_patterns": object(map[string]any{
			"task":      nonEmpty(),
			"keywords":  stringList(),
			"files":     stringList(),
			"teamId":    str(),
			"sessionId": str(),
		}, "task"),
		"validate_complete": object(map[string]any{
			"sessionToken":     nonEmpty(),
			"featureName":      str(),
			"testsRun":         boolean(),
			"testsPassed":      boolean(),
			"typescriptPassed": boolean(),
			"testsWritten":     boolean(),
			"safetySessionId":  str(),
		}, "sessionToken", "testsRun", "testsPassed"),
	}
}

// Validator holds the compiled schemas. It is safe for concurrent use.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every definition.
func New() (*Validator, error) {
	defs := Definitions()
	c := jsonschema.NewCompiler()
	for action, def := range defs {
		// Round-trip so the compiler sees plain JSON values.
		raw, err := json.Marshal(def)
		if err != nil {
			return nil, fmt.Errorf("schema: encode %s: %w", action, err)
		}
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(raw)))
		if err != nil {
			return nil, fmt.Errorf("schema: decode %s: %w", action, err)
		}
		if err := c.AddResource(resourceURL(action), doc); err != nil {
			return nil, fmt.Errorf("schema: add %s: %w", action, err)
		}
	}

	v := &Validator{schemas: make(map[string]*jsonschema.Schema, len(defs))}
	for action := range defs {
		sch, err := c.Compile(resourceURL(action))
		if err != nil {
			return nil, fmt.Errorf("schema: compile %s: %w", action, err)
		}
		v.schemas[action] = sch
	}
	return v, nil
}

// MustNew is New for package-level wiring and tests.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

func resourceURL(action string) string {
	return "https://safeguard.local/schemas/" + action + ".json"
}

// Actions returns the known action names, sorted.
func (v *Validator) Actions() []string {
	out := make([]string, 0, len(v.schemas))
	for a := range v.schemas {
		out = append(out, a)
	}
	sort.Strings(out)
	return out
}

// Has reports whether action has a schema.
func (v *Validator) Has(action string) bool {
	_, ok := v.schemas[action]
	return ok
}

// Error describes why arguments were rejected.
type Error struct {
	Action string
	Detail string
}

func (e *Error) Error() string {
	if e.Action == "" {
		return e.Detail
	}
	return fmt.Sprintf("invalid %s arguments: %s", e.Action, e.Detail)
}

// Validate checks args (decoded JSON: maps, slices, strings, float64,
// bool) against the schema for action.
func (v *Validator) Validate(action string, args map[string]any) error {
	sch, ok := v.schemas[action]
	if !ok {
		return &Error{Detail: fmt.Sprintf("unknown action %q", action)}
	}
	if args == nil {
		args = map[string]any{}
	}
	if err := sch.Validate(normalize(args)); err != nil {
		return &Error{Action: action, Detail: describe(err)}
	}
	return nil
}

// ValidateJSON decodes raw and validates it.
func (v *Validator) ValidateJSON(action string, raw []byte) error {
	var args map[string]any
	if err := json.Unmarshal(raw, &args); err != nil {
		return &Error{Action: action, Detail: "arguments are not a JSON object: " + err.Error()}
	}
	return v.Validate(action, args)
}

// normalize converts typed slices (from callers that build args in Go)
// into the []any the validator walks.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalize(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalize(val)
		}
		return out
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case int:
		return float64(t)
	}
	return v
}

// describe flattens a validation error into one line. The first line of
// the library's message names the schema URL and is dropped.
func describe(err error) string {
	lines := strings.Split(strings.TrimSpace(err.Error()), "\n")
	if len(lines) > 1 {
		lines = lines[1:]
	}
	msgs := make([]string, 0, len(lines))
	for _, l := range lines {
		l = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(l), "- "))
		if l != "" {
			msgs = append(msgs, l)
		}
	}
	return strings.Join(msgs, "; ")
}
