// Package patterns maps task keywords to guidance module identifiers.
//
// The index is a static, read-only lookup: it never loads guidance text
// (that belongs to the external content provider), it only answers
// "which modules apply to this task?" and "which directories does this
// task touch?". The same keyword table feeds pattern discovery and the
// scope lock engine so both agree on what a task is about.
package patterns

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Entry binds a guidance module to the keywords that select it and the
// project areas (directory prefixes) work on it usually touches.
type Entry struct {
	Module   string   `yaml:"module" json:"module"`
	Keywords []string `yaml:"keywords" json:"keywords"`
	Areas    []string `yaml:"areas,omitempty" json:"areas,omitempty"`
}

// Category is a fallback heuristic used when no keyword matches. Hints
// are deliberately disjoint from entry keywords.
type Category struct {
	Name    string   `yaml:"name" json:"name"`
	Hints   []string `yaml:"hints" json:"hints"`
	Modules []string `yaml:"modules" json:"modules"`
}

// Catalog is the full keyword table.
type Catalog struct {
	Core       string     `yaml:"core" json:"core"`
	Defaults   []string   `yaml:"defaults" json:"defaults"`
	Entries    []Entry    `yaml:"modules" json:"modules"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// CoreModule is the universal module prepended to every discovery.
const CoreModule = "00-core.md"

// DefaultCatalog returns the built-in keyword table.
func DefaultCatalog() Catalog {
	return Catalog{
		Core:     CoreModule,
		Defaults: []string{CoreModule, "03-api.md"},
		Entries: []Entry{
			{
				Module:   "01-database.md",
				Keywords: []string{"database", "db", "schema", "migration", "sql", "postgres", "drizzle", "prisma", "supabase", "table", "query"},
				Areas:    []string{"src/db/", "drizzle/", "prisma/", "supabase/migrations/"},
			},
			{
				Module:   "02-auth.md",
				Keywords: []string{"auth", "authentication", "login", "logout", "signup", "sign up", "sign in", "oauth", "session", "password", "jwt", "sso", "permission", "role"},
				Areas:    []string{"src/app/(auth)/", "src/lib/auth/", "src/middleware.ts"},
			},
			{
				Module:   "03-api.md",
				Keywords: []string{"api", "endpoint", "route handler", "rest", "graphql", "trpc", "server action", "webhook"},
				Areas:    []string{"src/app/api/", "src/server/"},
			},
			{
				Module:   "04-ui.md",
				Keywords: []string{"ui", "component", "page", "form", "button", "modal", "layout", "style", "tailwind", "dashboard"},
				Areas:    []string{"src/components/", "src/app/"},
			},
			{
				Module:   "05-payments.md",
				Keywords: []string{"payment", "stripe", "checkout", "billing", "pricing", "subscription plan"},
				Areas:    []string{"src/lib/payments/", "src/app/api/webhooks/"},
			},
			{
				Module:   "06-email.md",
				Keywords: []string{"email", "newsletter", "notification", "smtp", "resend"},
				Areas:    []string{"src/lib/email/", "src/emails/"},
			},
			{
				Module:   "07-storage.md",
				Keywords: []string{"upload", "file upload", "storage", "image", "s3", "bucket", "avatar"},
				Areas:    []string{"src/lib/storage/"},
			},
			{
				Module:   "08-realtime.md",
				Keywords: []string{"realtime", "real-time", "websocket", "live", "chat", "presence"},
				Areas:    []string{"src/lib/realtime/"},
			},
			{
				Module:   "09-testing.md",
				Keywords: []string{"test", "testing", "e2e", "playwright", "vitest", "jest", "coverage"},
				Areas:    []string{"tests/", "e2e/"},
			},
			{
				Module:   "10-deployment.md",
				Keywords: []string{"deploy", "docker", "ci", "vercel", "hosting", "kubernetes"},
				Areas:    []string{".github/workflows/", "docker/", "Dockerfile"},
			},
			{
				Module:   "11-ai.md",
				Keywords: []string{"ai", "llm", "openai", "anthropic", "embedding", "prompt", "chatbot", "rag", "vector"},
				Areas:    []string{"src/lib/ai/"},
			},
			{
				Module:   "12-background-jobs.md",
				Keywords: []string{"job", "queue", "cron", "background", "worker"},
				Areas:    []string{"src/jobs/", "src/workers/"},
			},
			{
				Module:   "13-documents.md",
				Keywords: []string{"pdf", "document", "report", "export", "csv"},
				Areas:    []string{"src/lib/documents/"},
			},
		},
		Categories: []Category{
			{
				Name:    "api-integration",
				Hints:   []string{"integrate", "integration", "connect", "sync", "import", "external", "third-party", "slack", "github", "zapier"},
				Modules: []string{"03-api.md"},
			},
			{
				Name:    "background-jobs",
				Hints:   []string{"nightly", "periodic", "hourly", "daily", "batch", "schedule", "retry", "later"},
				Modules: []string{"12-background-jobs.md"},
			},
			{
				Name:    "documents",
				Hints:   []string{"invoice", "spreadsheet", "markdown", "printable", "attachment", "receipt"},
				Modules: []string{"13-documents.md"},
			},
			{
				Name:    "realtime",
				Hints:   []string{"instantly", "collaborate", "multiplayer", "notify", "push", "streaming"},
				Modules: []string{"08-realtime.md"},
			},
			{
				Name:    "ai",
				Hints:   []string{"summarize", "classify", "generate", "recommend", "assistant", "smart", "semantic"},
				Modules: []string{"11-ai.md"},
			},
		},
	}
}

// Validate checks the catalog is usable for discovery.
func (c Catalog) Validate() error {
	if c.Core == "" {
		return fmt.Errorf("catalog: core module is required")
	}
	if len(c.Defaults) == 0 {
		return fmt.Errorf("catalog: at least one default module is required")
	}
	for i, e := range c.Entries {
		if e.Module == "" {
			return fmt.Errorf("catalog: entry %d has no module", i)
		}
		if len(e.Keywords) == 0 {
			return fmt.Errorf("catalog: module %q has no keywords", e.Module)
		}
	}
	for i, cat := range c.Categories {
		if cat.Name == "" || len(cat.Modules) == 0 {
			return fmt.Errorf("catalog: category %d needs a name and modules", i)
		}
	}
	return nil
}

// LoadCatalogFile reads a YAML catalog that replaces the built-in one.
func LoadCatalogFile(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("reading pattern catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Catalog{}, fmt.Errorf("parsing pattern catalog %s: %w", path, err)
	}
	if c.Core == "" {
		c.Core = CoreModule
	}
	if err := c.Validate(); err != nil {
		return Catalog{}, err
	}
	return c, nil
}
