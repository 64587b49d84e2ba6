package contextload

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HendryAvila/safeguard/internal/attempts"
	"github.com/HendryAvila/safeguard/internal/ledger"
)

const decisionsMD = `# Decisions

## 2026-01-10 - Use Drizzle ORM
**Category:** tech-stack
**Impact:** high
**Reversible:** no
**Made by:** user
**Reasoning:** Type-safe queries
without codegen.
**Alternatives:** Prisma, Kysely
**Approved:** yes
---

## 2026-01-12 - Use Tailwind
**Category:** ui-design
**Impact:** low
**Reversible:** yes
**Made by:** ai
**Reasoning:** Speed.
---

## not a valid header
**Category:** tech-stack
**Impact:** high
---

## 2026-01-13 - Pick a color
**Category:** vibes
**Impact:** high
---
`

const attemptsMD = `## Attempt: Build fails on CI
**Approach:** clear the cache
**Code:** ` + "`rm -rf .next`" + `
**Result:** failure
**Error:** ENOENT
**Lesson:** cache was not the cause
---

## Blocker: Staging DB down
**Status:** active
**Description:** waiting on ops
---

## Attempt: Missing approach
**Result:** failure
---
`

func writeContext(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, DefaultDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return root
}

func TestParseDecisions(t *testing.T) {
	ds, warnings := ParseDecisions("decisions.md", decisionsMD)
	if len(ds) != 2 {
		t.Fatalf("got %d decisions, want 2", len(ds))
	}
	if len(warnings) != 2 {
		t.Errorf("got %d warnings, want 2: %v", len(warnings), warnings)
	}
	for _, w := range warnings {
		if !strings.HasPrefix(w, "decisions.md:") {
			t.Errorf("warning %q lacks file:line prefix", w)
		}
	}

	d := ds[0]
	if d.Decision != "Use Drizzle ORM" || d.Category != ledger.CategoryTechStack || d.Impact != ledger.ImpactHigh {
		t.Errorf("decision = %+v", d)
	}
	if d.Reversible || !d.UserApproved || d.MadeBy != ledger.MadeByUser {
		t.Errorf("flags = reversible %v approved %v madeBy %q", d.Reversible, d.UserApproved, d.MadeBy)
	}
	if d.Reasoning != "Type-safe queries without codegen." {
		t.Errorf("Reasoning = %q, continuation line not joined", d.Reasoning)
	}
	if len(d.AlternativesConsidered) != 2 || d.AlternativesConsidered[1] != "Kysely" {
		t.Errorf("Alternatives = %v", d.AlternativesConsidered)
	}
	if !d.Timestamp.Equal(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Timestamp = %v", d.Timestamp)
	}
}

func TestParseDecisions_DeterministicIDs(t *testing.T) {
	a, _ := ParseDecisions("d", decisionsMD)
	b, _ := ParseDecisions("d", decisionsMD)
	if a[0].ID == "" || a[0].ID != b[0].ID {
		t.Errorf("ids not stable: %q vs %q", a[0].ID, b[0].ID)
	}
	if a[0].ID == a[1].ID {
		t.Error("distinct decisions share an id")
	}
	if !strings.HasPrefix(a[0].ID, "dec_") {
		t.Errorf("ID = %q, want dec_ prefix", a[0].ID)
	}
}

func TestParseAttempts(t *testing.T) {
	as, bs, warnings := ParseAttempts("attempts.md", attemptsMD)
	if len(as) != 1 {
		t.Fatalf("got %d attempts, want 1", len(as))
	}
	if as[0].CodeOrCommand != "rm -rf .next" {
		t.Errorf("Code = %q, backticks not stripped", as[0].CodeOrCommand)
	}
	if as[0].Result != attempts.ResultFailure || as[0].LessonsLearned == "" {
		t.Errorf("attempt = %+v", as[0])
	}
	if len(bs) != 1 || bs[0].Status != "active" || bs[0].Description != "waiting on ops" {
		t.Errorf("blockers = %+v", bs)
	}
	if len(warnings) != 1 {
		t.Errorf("got %d warnings, want 1: %v", len(warnings), warnings)
	}
}

func TestParseAttempts_IdenticalEntriesKeepDistinctIDs(t *testing.T) {
	entry := `## Attempt: Build fails on CI
**Approach:** clear the cache
**Result:** failure
---
`
	as, _, warnings := ParseAttempts("attempts.md", entry+"\n"+entry)
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if len(as) != 2 {
		t.Fatalf("got %d attempts, want 2", len(as))
	}
	if as[0].ID == as[1].ID {
		t.Errorf("identical entries share id %q", as[0].ID)
	}

	again, _, _ := ParseAttempts("attempts.md", entry+"\n"+entry)
	for i := range as {
		if as[i].ID != again[i].ID {
			t.Errorf("attempt %d id changed on reparse: %q vs %q", i, as[i].ID, again[i].ID)
		}
	}
}

func TestParseDecisions_IdenticalEntriesKeepDistinctIDs(t *testing.T) {
	entry := `## 2026-01-10 - Use Drizzle ORM
**Category:** tech-stack
**Impact:** high
---
`
	ds, _ := ParseDecisions("decisions.md", entry+entry)
	if len(ds) != 2 {
		t.Fatalf("got %d decisions, want 2", len(ds))
	}
	if ds[0].ID == ds[1].ID {
		t.Errorf("identical entries share id %q", ds[0].ID)
	}
}

func TestParseAttempts_ScannerErrorWarns(t *testing.T) {
	data := attemptsMD + "\n## Attempt: Huge\n**Approach:** " + strings.Repeat("x", 2<<20) + "\n"
	as, _, warnings := ParseAttempts("attempts.md", data)
	if len(as) != 1 {
		t.Errorf("got %d attempts, want the 1 before the long line", len(as))
	}
	found := false
	for _, w := range warnings {
		if strings.Contains(w, "token too long") {
			found = true
		}
	}
	if !found {
		t.Errorf("scanner error not reported: %v", warnings)
	}
}

func TestFieldLine(t *testing.T) {
	tests := []struct {
		in       string
		key, val string
		ok       bool
	}{
		{"**Category:** tech-stack", "category", "tech-stack", true},
		{"**Made by**: user", "made by", "user", true},
		{"plain text", "", "", false},
		{"**unterminated", "", "", false},
	}
	for _, tt := range tests {
		k, v, ok := fieldLine(tt.in)
		if k != tt.key || v != tt.val || ok != tt.ok {
			t.Errorf("fieldLine(%q) = %q, %q, %v", tt.in, k, v, ok)
		}
	}
}

func TestLoad_Success(t *testing.T) {
	root := writeContext(t, map[string]string{
		DefaultDecisionsFile: decisionsMD,
		DefaultAttemptsFile:  attemptsMD,
	})
	c := NewLoader(Options{}, nil).Load(context.Background(), root)

	if !c.Success {
		t.Fatalf("Success = false, errors %v", c.Errors)
	}
	if len(c.FilesRead) != 2 || len(c.Decisions) != 2 || len(c.Attempts) != 1 || len(c.Blockers) != 1 {
		t.Errorf("loaded files=%v decisions=%d attempts=%d blockers=%d",
			c.FilesRead, len(c.Decisions), len(c.Attempts), len(c.Blockers))
	}
	if len(c.ProjectHash) != 16 {
		t.Errorf("ProjectHash = %q, want 16 hex chars", c.ProjectHash)
	}
}

func TestLoad_OneFileIsEnough(t *testing.T) {
	root := writeContext(t, map[string]string{DefaultAttemptsFile: attemptsMD})
	c := NewLoader(Options{}, nil).Load(context.Background(), root)
	if !c.Success {
		t.Fatal("one readable file should be success")
	}
	found := false
	for _, w := range c.Warnings {
		if strings.Contains(w, "decisions.md: not found") {
			found = true
		}
	}
	if !found {
		t.Errorf("missing not-found warning: %v", c.Warnings)
	}
}

func TestLoad_NoFilesIsNonFatal(t *testing.T) {
	c := NewLoader(Options{}, nil).Load(context.Background(), t.TempDir())
	if c.Success {
		t.Error("Success should be false without files")
	}
	if len(c.Errors) == 0 {
		t.Error("expected an error message")
	}
}

func TestLoad_EmptyPath(t *testing.T) {
	c := NewLoader(Options{}, nil).Load(context.Background(), " ")
	if c.Success || len(c.Errors) == 0 {
		t.Errorf("empty path should fail softly: %+v", c)
	}
}

func TestLoad_OversizedFileSkipped(t *testing.T) {
	root := writeContext(t, map[string]string{DefaultDecisionsFile: decisionsMD})
	c := NewLoader(Options{MaxFileBytes: 16}, nil).Load(context.Background(), root)
	if c.Success {
		t.Error("oversized file must not count as read")
	}
	if len(c.Decisions) != 0 {
		t.Error("oversized file must not be parsed")
	}
}

func TestLoad_CancelledContext(t *testing.T) {
	root := writeContext(t, map[string]string{DefaultDecisionsFile: decisionsMD})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Either outcome is valid depending on scheduling; it must return.
	done := make(chan struct{})
	go func() {
		NewLoader(Options{}, nil).Load(ctx, root)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Load blocked on a cancelled context")
	}
}

func TestLoad_CustomNames(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "ctx")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "DECISIONS.md"), []byte(decisionsMD), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewLoader(Options{Dir: "ctx", DecisionsFile: "DECISIONS.md"}, nil).Load(context.Background(), root)
	if !c.Success || len(c.Decisions) != 2 {
		t.Errorf("custom names not honoured: %+v", c)
	}
}

func TestProjectHash_Stable(t *testing.T) {
	if ProjectHash("/tmp/a/../a") != ProjectHash("/tmp/a") {
		t.Error("hash should use the cleaned path")
	}
	if ProjectHash("/tmp/a") == ProjectHash("/tmp/b") {
		t.Error("different paths share a hash")
	}
}
