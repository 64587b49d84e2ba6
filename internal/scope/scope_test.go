package scope

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

func TestCreate_InfersAreasFromRequest(t *testing.T) {
	l, err := NewEngine(nil).Create("Add a login page with OAuth", Overrides{})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !strings.HasPrefix(l.ID, "scope_") {
		t.Errorf("ID = %q, want scope_ prefix", l.ID)
	}
	if !contains(l.AllowedDirectories, "src/app/(auth)/") {
		t.Errorf("AllowedDirectories = %v, want auth area", l.AllowedDirectories)
	}
	for _, f := range DefaultForbidden {
		if !contains(l.ForbiddenFiles, f) {
			t.Errorf("ForbiddenFiles missing %q", f)
		}
	}
	if len(l.Violations) != 0 {
		t.Error("new lock should have no violations")
	}
}

func TestCreate_Actions(t *testing.T) {
	tests := []struct {
		request string
		want    []Action
		notWant []Action
	}{
		{"Add a signup form", []Action{ActionCreateFile, ActionModifyFile, ActionRunCommand, ActionAddDependency}, []Action{ActionDeleteFile, ActionModifyConfig}},
		{"Remove the legacy billing page", []Action{ActionDeleteFile, ActionRemoveDependency}, []Action{ActionModifyConfig}},
		{"Update the eslint config", []Action{ActionModifyConfig}, []Action{ActionDeleteFile}},
	}
	for _, tt := range tests {
		t.Run(tt.request, func(t *testing.T) {
			l, err := NewEngine(nil).Create(tt.request, Overrides{})
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			for _, a := range tt.want {
				if !containsAction(l.AllowedActions, a) {
					t.Errorf("missing action %s in %v", a, l.AllowedActions)
				}
			}
			for _, a := range tt.notWant {
				if containsAction(l.AllowedActions, a) {
					t.Errorf("unexpected action %s", a)
				}
			}
		})
	}
}

func TestCreate_Overrides(t *testing.T) {
	l, err := NewEngine(nil).Create("Tweak something", Overrides{
		AllowedDirectories: []string{"./lib/", "lib/"},
		ForbiddenFiles:     []string{"package.json"},
		AllowedActions:     []Action{ActionModifyConfig},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(l.AllowedDirectories) != 1 || l.AllowedDirectories[0] != "lib/" {
		t.Errorf("AllowedDirectories = %v, want [lib/]", l.AllowedDirectories)
	}
	if !contains(l.ForbiddenFiles, "package.json") {
		t.Error("override forbidden file missing")
	}
	if !containsAction(l.AllowedActions, ActionModifyConfig) {
		t.Error("override action missing")
	}
}

func TestCreate_Invalid(t *testing.T) {
	e := NewEngine(nil)
	if _, err := e.Create("  ", Overrides{}); err == nil {
		t.Error("empty request should fail")
	}
	if _, err := e.Create("x", Overrides{AllowedActions: []Action{"fly"}}); err == nil {
		t.Error("unknown action should fail")
	}
}

func TestCheck_NoLockAllowsWithWarning(t *testing.T) {
	d := Check(nil, Request{Type: ActionModifyFile, TargetFile: ".env"})
	if !d.Allowed {
		t.Error("no lock must allow")
	}
	if d.Warning == "" {
		t.Error("no lock must warn")
	}
}

func TestCheck_EnvIsBlocked(t *testing.T) {
	l, _ := NewEngine(nil).Create("Add a login page with OAuth", Overrides{})

	d := Check(l, Request{Type: ActionModifyFile, TargetFile: ".env"})
	if d.Allowed {
		t.Fatal(".env must be blocked")
	}
	if d.Violation == nil || d.Violation.TargetFile != ".env" {
		t.Errorf("violation = %+v, want target .env", d.Violation)
	}
	if len(l.Violations) != 1 || !strings.Contains(l.Violations[0].Reason, ".env") {
		t.Errorf("lock violations = %+v", l.Violations)
	}
}

func TestCheck_Table(t *testing.T) {
	l, _ := NewEngine(nil).Create("Add a login page with OAuth", Overrides{})
	tests := []struct {
		name    string
		req     Request
		allowed bool
	}{
		{"auth page", Request{ActionCreateFile, "src/app/(auth)/login/page.tsx"}, true},
		{"leading dot slash", Request{ActionModifyFile, "./src/lib/auth/session.ts"}, true},
		{"absolute", Request{ActionModifyFile, "/src/components/LoginButton.tsx"}, true},
		{"traversal to env", Request{ActionModifyFile, "src/../.env"}, false},
		{"env variant", Request{ActionModifyFile, ".env.local"}, false},
		{"nested env", Request{ActionModifyFile, "src/app/.env"}, false},
		{"git internals", Request{ActionModifyFile, ".git/config"}, false},
		{"pem", Request{ActionCreateFile, "src/app/certs/server.pem"}, false},
		{"private key", Request{ActionCreateFile, "src/app/id_rsa.pub"}, false},
		{"outside area", Request{ActionModifyFile, "src/db/schema.ts"}, false},
		{"dir boundary", Request{ActionModifyFile, "src/app-other/x.ts"}, false},
		{"command without target", Request{ActionRunCommand, ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := Check(l, tt.req)
			if d.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v (reason %q)", d.Allowed, tt.allowed, d.Reason)
			}
		})
	}
}

func TestCheck_PathQualifiedForbiddenMatchesOnlyThatPath(t *testing.T) {
	l, err := NewEngine(nil).Create("Tweak something", Overrides{
		ForbiddenFiles: []string{"src/legacy/index.ts", "Makefile"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	tests := []struct {
		target  string
		allowed bool
	}{
		{"src/legacy/index.ts", false},
		{"./src/legacy/index.ts", false},
		{"src/app/index.ts", true},
		{"src/components/index.tsx", true},
		{"index.ts", true},
		{"README.md", true},
		{"Makefile", false},
		{"tools/Makefile", false},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			d := Check(l, Request{ActionModifyFile, tt.target})
			if d.Allowed != tt.allowed {
				t.Errorf("Allowed = %v, want %v (reason %q)", d.Allowed, tt.allowed, d.Reason)
			}
		})
	}
	if len(l.Violations) != 4 {
		t.Errorf("got %d violations, want 4: %+v", len(l.Violations), l.Violations)
	}
}

func TestCheck_NoAllowedDirectoriesIsDefaultAllow(t *testing.T) {
	l, _ := NewEngine(nil).Create("Tweak something", Overrides{})
	if len(l.AllowedDirectories) != 0 {
		t.Fatalf("expected no inferred directories, got %v", l.AllowedDirectories)
	}
	if d := Check(l, Request{ActionModifyFile, "anything/at/all.go"}); !d.Allowed {
		t.Errorf("blocked: %s", d.Reason)
	}
}

func TestCheck_ActionOutsideScopeOnlyWarns(t *testing.T) {
	l, _ := NewEngine(nil).Create("Tweak something", Overrides{})
	d := Check(l, Request{ActionDeleteFile, "README.md"})
	if !d.Allowed {
		t.Fatal("action type alone must not block")
	}
	if d.Warning == "" {
		t.Error("expected warning for action outside allowed actions")
	}
}

func TestCheck_ViolationsOnlyGrow(t *testing.T) {
	l, _ := NewEngine(nil).Create("Tweak something", Overrides{})
	for i := 1; i <= 3; i++ {
		Check(l, Request{ActionModifyFile, ".npmrc"})
		Check(l, Request{ActionModifyFile, "ok.txt"})
		if len(l.Violations) != i {
			t.Fatalf("after %d blocks got %d violations", i, len(l.Violations))
		}
	}
}

func TestCleanTarget(t *testing.T) {
	tests := map[string]string{
		"./src/a.ts":    "src/a.ts",
		"/src/a.ts":     "src/a.ts",
		"src/../.env":   ".env",
		`src\lib\x.ts`:  "src/lib/x.ts",
		"src/app/":      "src/app/",
		"":              "",
		"/":             ".",
		"a//b/./c":      "a/b/c",
	}
	for in, want := range tests {
		if got := CleanTarget(in); got != want {
			t.Errorf("CleanTarget(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLock_Clone(t *testing.T) {
	l, _ := NewEngine(nil).Create("Add a login page", Overrides{})
	c := l.Clone()
	Check(c, Request{ActionModifyFile, ".env"})
	if len(l.Violations) != 0 {
		t.Error("clone shares violations with original")
	}
}

func contains(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
