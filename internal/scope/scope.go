// Package scope locks a task to the directories it concerns and keeps the
// agent away from secrets and repository internals.
//
// Checks are default-allow. An action is blocked only when its target
// matches a forbidden entry, or when the lock lists allowed directories
// and the target is under none of them.
package scope

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/HendryAvila/safeguard/internal/patterns"
	"github.com/HendryAvila/safeguard/internal/textmatch"
	"github.com/google/uuid"
)

// timeNow is a package-level variable for testability.
var timeNow = time.Now

// Action is a kind of change an agent can make.
type Action string

const (
	ActionCreateFile       Action = "create-file"
	ActionModifyFile       Action = "modify-file"
	ActionDeleteFile       Action = "delete-file"
	ActionAddDependency    Action = "add-dependency"
	ActionRemoveDependency Action = "remove-dependency"
	ActionRunCommand       Action = "run-command"
	ActionModifyConfig     Action = "modify-config"
)

// AllActions lists every action in declaration order.
var AllActions = []Action{
	ActionCreateFile, ActionModifyFile, ActionDeleteFile, ActionAddDependency,
	ActionRemoveDependency, ActionRunCommand, ActionModifyConfig,
}

// ValidateAction returns an error if a is not recognized.
func ValidateAction(a Action) error {
	for _, known := range AllActions {
		if a == known {
			return nil
		}
	}
	return fmt.Errorf("invalid action type %q: must be one of: create-file, modify-file, delete-file, add-dependency, remove-dependency, run-command, modify-config", a)
}

// WritesFile reports whether the action changes a file on disk.
func (a Action) WritesFile() bool {
	switch a {
	case ActionCreateFile, ActionModifyFile, ActionDeleteFile, ActionModifyConfig:
		return true
	}
	return false
}

// DefaultForbidden is always part of a lock's forbidden list.
var DefaultForbidden = []string{
	".env", ".env.*", ".git/", ".npmrc", "id_rsa", "*.pem", "*.key", "credentials.json", "secrets/",
}

var defaultActions = []Action{ActionCreateFile, ActionModifyFile, ActionRunCommand, ActionAddDependency}

// Violation records a blocked action.
type Violation struct {
	ActionType Action    `json:"actionType"`
	TargetFile string    `json:"targetFile"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// Lock bounds what a task may touch.
type Lock struct {
	ID                 string      `json:"id"`
	UserRequest        string      `json:"userRequest"`
	AllowedActions     []Action    `json:"allowedActions"`
	AllowedDirectories []string    `json:"allowedDirectories"`
	ForbiddenFiles     []string    `json:"forbiddenFiles"`
	Violations         []Violation `json:"violations"`
	MatchedAreas       []string    `json:"matchedAreas,omitempty"`
	Keywords           []string    `json:"keywords,omitempty"`
	CreatedAt          time.Time   `json:"createdAt"`
}

// Clone returns a deep copy.
func (l *Lock) Clone() *Lock {
	if l == nil {
		return nil
	}
	c := *l
	c.AllowedActions = append([]Action(nil), l.AllowedActions...)
	c.AllowedDirectories = append([]string(nil), l.AllowedDirectories...)
	c.ForbiddenFiles = append([]string(nil), l.ForbiddenFiles...)
	c.Violations = append([]Violation(nil), l.Violations...)
	c.MatchedAreas = append([]string(nil), l.MatchedAreas...)
	c.Keywords = append([]string(nil), l.Keywords...)
	return &c
}

// Overrides extend the inferred lock.
type Overrides struct {
	AllowedActions     []Action
	AllowedDirectories []string
	ForbiddenFiles     []string
}

// Engine creates and checks locks.
type Engine struct {
	index *patterns.Index
}

// NewEngine creates an Engine. A nil index uses patterns.Default.
func NewEngine(ix *patterns.Index) *Engine {
	if ix == nil {
		ix = patterns.Default()
	}
	return &Engine{index: ix}
}

// Create builds a lock for userRequest. Allowed directories come from the
// pattern index's keyword areas merged with the overrides; the default
// forbidden entries are always present.
func (e *Engine) Create(userRequest string, o Overrides) (*Lock, error) {
	if strings.TrimSpace(userRequest) == "" {
		return nil, fmt.Errorf("'userRequest' is required")
	}
	for _, a := range o.AllowedActions {
		if err := ValidateAction(a); err != nil {
			return nil, err
		}
	}

	areas, keywords := e.index.AreasFor(userRequest)

	l := &Lock{
		ID:           "scope_" + uuid.NewString(),
		UserRequest:  userRequest,
		MatchedAreas: areas,
		Keywords:     keywords,
		Violations:   []Violation{},
		CreatedAt:    timeNow().UTC(),
	}

	l.AllowedActions = mergeActions(inferActions(userRequest), o.AllowedActions)

	var dirs []string
	for _, d := range append(append([]string(nil), areas...), o.AllowedDirectories...) {
		if c := CleanTarget(d); c != "" && c != "." {
			dirs = append(dirs, c)
		}
	}
	l.AllowedDirectories = dedupe(dirs)
	if l.AllowedDirectories == nil {
		l.AllowedDirectories = []string{}
	}

	l.ForbiddenFiles = dedupe(append(append([]string(nil), DefaultForbidden...), o.ForbiddenFiles...))
	return l, nil
}

func inferActions(request string) []Action {
	actions := append([]Action(nil), defaultActions...)
	if textmatch.ContainsAny(request, "delete", "deleting", "remove", "removing", "drop", "uninstall") {
		actions = append(actions, ActionDeleteFile, ActionRemoveDependency)
	}
	if textmatch.ContainsAny(request, "config", "configuration", "configure", "settings", "setting") {
		actions = append(actions, ActionModifyConfig)
	}
	return actions
}

func mergeActions(base, extra []Action) []Action {
	seen := make(map[Action]bool)
	var out []Action
	for _, a := range append(base, extra...) {
		if !seen[a] {
			seen[a] = true
			out = append(out, a)
		}
	}
	return out
}

func dedupe(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

// CleanTarget normalizes a path for matching: forward slashes,
// path.Clean, and no leading "./" or "/". A trailing slash is kept so
// directory entries stay recognizable.
func CleanTarget(p string) string {
	p = strings.TrimSpace(strings.ReplaceAll(p, "\\", "/"))
	if p == "" {
		return ""
	}
	dir := strings.HasSuffix(p, "/")
	p = path.Clean(p)
	for strings.HasPrefix(p, "/") {
		p = strings.TrimPrefix(p, "/")
	}
	p = strings.TrimPrefix(p, "./")
	if p == "" || p == "." {
		return "."
	}
	if dir {
		p += "/"
	}
	return p
}
