package scope

import (
	"fmt"
	"path"
	"strings"
)

// Request is an action the agent wants to take.
type Request struct {
	Type       Action
	TargetFile string
}

// Decision is the outcome of Check.
type Decision struct {
	Allowed   bool       `json:"allowed"`
	Reason    string     `json:"reason,omitempty"`
	Warning   string     `json:"warning,omitempty"`
	Violation *Violation `json:"violation,omitempty"`
}

// NoLockWarning is returned when an action is checked without a lock.
const NoLockWarning = "no scope lock defined: action allowed, call define_scope to restrict changes to the task"

// Check decides whether req is within lock. A nil lock allows everything
// with a warning. A blocked request is appended to lock.Violations.
func Check(lock *Lock, req Request) Decision {
	if lock == nil {
		return Decision{Allowed: true, Warning: NoLockWarning}
	}

	var warnings []string
	if req.Type != "" && !containsAction(lock.AllowedActions, req.Type) {
		warnings = append(warnings, fmt.Sprintf("action %s is outside the scope's allowed actions", req.Type))
	}

	target := CleanTarget(req.TargetFile)
	if target != "" {
		if entry, ok := MatchForbidden(target, lock.ForbiddenFiles); ok {
			return block(lock, req, target, fmt.Sprintf("%s matches forbidden entry %s", target, entry))
		}
		if len(lock.AllowedDirectories) > 0 && !UnderAny(target, lock.AllowedDirectories) {
			return block(lock, req, target, fmt.Sprintf("%s is outside the allowed directories: %s",
				target, strings.Join(lock.AllowedDirectories, ", ")))
		}
	}

	return Decision{Allowed: true, Warning: strings.Join(warnings, "; ")}
}

func block(lock *Lock, req Request, target, reason string) Decision {
	v := Violation{
		ActionType: req.Type,
		TargetFile: target,
		Reason:     reason,
		Timestamp:  timeNow().UTC(),
	}
	lock.Violations = append(lock.Violations, v)
	return Decision{Allowed: false, Reason: reason, Violation: &v}
}

func containsAction(list []Action, a Action) bool {
	for _, x := range list {
		if x == a {
			return true
		}
	}
	return false
}

// MatchForbidden reports the first forbidden entry target matches.
//
//	"*.pem"   suffix:          certs/server.pem
//	".git/"   any segment:     .git/config, sub/.git/HEAD
//	".env.*"  basename prefix: .env.local
//	".env"    exact, prefix or basename prefix: .env, app/.env, .envrc
//	"src/a.ts" exact or prefix only: src/a.ts, not lib/a.ts
func MatchForbidden(target string, forbidden []string) (string, bool) {
	t := strings.TrimSuffix(target, "/")
	base := path.Base(t)
	for _, entry := range forbidden {
		e := CleanTarget(entry)
		if e == "" || e == "." {
			continue
		}
		switch {
		case strings.HasPrefix(entry, "*."):
			if strings.HasSuffix(base, entry[1:]) {
				return entry, true
			}
		case strings.HasSuffix(e, "/"):
			dir := strings.TrimSuffix(e, "/")
			if t == dir || strings.HasPrefix(t, dir+"/") || hasSegment(t, dir) {
				return entry, true
			}
		case strings.HasSuffix(e, ".*"):
			if strings.HasPrefix(base, strings.TrimSuffix(e, "*")) {
				return entry, true
			}
		case strings.Contains(e, "/"):
			if t == e || strings.HasPrefix(t, e) {
				return entry, true
			}
		default:
			if strings.HasPrefix(t, e) || strings.HasPrefix(base, e) {
				return entry, true
			}
		}
	}
	return "", false
}

func hasSegment(p, seg string) bool {
	for _, s := range strings.Split(p, "/") {
		if s == seg {
			return true
		}
	}
	return false
}

// UnderAny reports whether target equals or sits under one of dirs.
func UnderAny(target string, dirs []string) bool {
	t := strings.TrimSuffix(target, "/")
	for _, d := range dirs {
		d = strings.TrimSuffix(CleanTarget(d), "/")
		if d == "" || d == "." {
			return true
		}
		if t == d || strings.HasPrefix(t, d+"/") {
			return true
		}
	}
	return false
}
