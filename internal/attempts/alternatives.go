package attempts

import (
	"github.com/HendryAvila/safeguard/internal/textmatch"
)

// maxAlternatives caps SuggestAlternatives output.
const maxAlternatives = 5

// domain groups candidate approaches for a class of issue.
type domain struct {
	name       string
	cues       []string
	candidates []string
}

var domains = []domain{
	{
		name: "build",
		cues: []string{"build", "compile", "compilation", "bundle", "bundler", "webpack", "vite", "tsc", "esbuild", "transpile"},
		candidates: []string{
			"clear the build cache and rebuild from scratch",
			"check the bundler config for the failing entry point",
			"run the type checker alone to isolate compile errors",
			"pin the toolchain version used in CI locally",
		},
	},
	{
		name: "dependency",
		cues: []string{"dependency", "dependencies", "package", "install", "version", "peer", "lockfile", "module not found", "cannot find module"},
		candidates: []string{
			"delete node_modules and the lockfile then reinstall",
			"check peer dependency ranges for conflicts",
			"pin the dependency to the last known working version",
			"verify the import path matches the package exports",
		},
	},
	{
		name: "auth",
		cues: []string{"auth", "authentication", "login", "logout", "token", "session", "oauth", "jwt", "cookie", "unauthorized", "401"},
		candidates: []string{
			"inspect the token claims and expiry",
			"verify the callback URL and redirect settings",
			"check cookie domain sameSite and secure flags",
			"confirm server and client share the same auth secret",
		},
	},
	{
		name: "database",
		cues: []string{"database", "db", "query", "migration", "sql", "schema", "table", "postgres", "mysql", "prisma", "drizzle", "constraint"},
		candidates: []string{
			"run the query directly against the database to isolate the ORM",
			"check pending migrations against the current schema",
			"inspect constraint and index definitions",
			"wrap the failing writes in a transaction and log each step",
		},
	},
	{
		name: "network",
		cues: []string{"network", "fetch", "cors", "timeout", "request", "http", "api", "endpoint", "dns", "connection", "502", "504"},
		candidates: []string{
			"reproduce the request with curl to isolate the client",
			"check CORS headers on the preflight response",
			"add request timeouts and retry with backoff",
			"verify the base URL and environment per deployment",
		},
	},
	{
		name: "test",
		cues: []string{"test", "tests", "jest", "vitest", "spec", "assertion", "flaky", "mock", "snapshot", "e2e"},
		candidates: []string{
			"run the failing test in isolation",
			"reset mocks and shared state between tests",
			"replace timers and dates with fakes",
			"update the snapshot only after reviewing the diff",
		},
	},
	{
		name: "performance",
		cues: []string{"slow", "performance", "memory", "leak", "latency", "render", "rerender", "cpu", "lag"},
		candidates: []string{
			"profile before changing code",
			"memoize the expensive computation",
			"paginate or stream large result sets",
			"move the heavy work to a background job",
		},
	},
}

var genericCandidates = []string{
	"reproduce the issue with a minimal example",
	"read the full error output and stack trace",
	"check recent changes with git diff and bisect",
	"search the project decisions for related constraints",
	"ask the user for the expected behaviour",
}

// SuggestAlternatives proposes approaches for issue that have not already
// failed. Candidates come from every domain whose cues appear in the
// issue, then the generic list.
func (t *Tracker) SuggestAlternatives(issue string, history []Attempt) []string {
	var failed []string
	for _, a := range history {
		if a.Result == ResultFailure {
			failed = append(failed, a.Approach)
		}
	}

	var pool []string
	for _, d := range domains {
		if textmatch.ContainsAny(issue, d.cues...) {
			pool = append(pool, d.candidates...)
		}
	}
	pool = append(pool, genericCandidates...)

	out := make([]string, 0, maxAlternatives)
	seen := make(map[string]bool)
	for _, c := range pool {
		if seen[c] || t.similarToAny(c, failed) {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == maxAlternatives {
			break
		}
	}
	return out
}

func (t *Tracker) similarToAny(approach string, failed []string) bool {
	set := textmatch.TokenSet(approach)
	for _, f := range failed {
		if textmatch.Jaccard(set, textmatch.TokenSet(f)) >= t.threshold {
			return true
		}
	}
	return false
}
