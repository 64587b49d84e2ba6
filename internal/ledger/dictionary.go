package ledger

import (
	"github.com/HendryAvila/safeguard/internal/textmatch"
)

// Choice is one canonical option for a subject and the spellings that
// refer to it.
type Choice struct {
	Name    string   `json:"name" yaml:"name"`
	Aliases []string `json:"aliases" yaml:"aliases"`
}

// Subject is a decision axis such as "orm" or "auth-provider".
//
// Cues disambiguate aliases shared with another subject: "Supabase" on
// its own is a database, "Supabase for auth" is an auth provider.
type Subject struct {
	Name       string     `json:"name" yaml:"name"`
	Categories []Category `json:"categories" yaml:"categories"`
	Cues       []string   `json:"cues,omitempty" yaml:"cues,omitempty"`
	Choices    []Choice   `json:"choices" yaml:"choices"`
}

// Pair is a canonical (subject, choice) extracted from text.
type Pair struct {
	Subject string `json:"subject"`
	Choice  string `json:"choice"`
}

// Matcher extracts subject/choice pairs. The detector depends on this
// interface so vocabularies can be swapped in tests and deployments.
type Matcher interface {
	// Extract returns at most one pair per subject found in a decision.
	Extract(text string, category Category) []Pair
	// Mentions returns the choices of subject proposed (not negated) in text.
	Mentions(text, subject string) []string
}

// Dictionary is the keyword-based Matcher.
type Dictionary struct {
	subjects []Subject
	// aliasOwners counts how many subjects use each normalized alias.
	aliasOwners map[string]int
}

// NewDictionary builds a Dictionary over subjects.
func NewDictionary(subjects []Subject) *Dictionary {
	d := &Dictionary{subjects: subjects, aliasOwners: make(map[string]int)}
	for _, s := range subjects {
		seen := make(map[string]bool)
		for _, c := range s.Choices {
			for _, a := range c.Aliases {
				n := textmatch.Normalize(a)
				if !seen[n] {
					seen[n] = true
					d.aliasOwners[n]++
				}
			}
		}
	}
	return d
}

// Subjects returns the dictionary's subjects.
func (d *Dictionary) Subjects() []Subject { return d.subjects }

// Extract implements Matcher. Subjects tied to the decision's category
// are tried first; if none yields a pair every subject is tried.
func (d *Dictionary) Extract(text string, category Category) []Pair {
	var scoped []Subject
	for _, s := range d.subjects {
		for _, c := range s.Categories {
			if c == category {
				scoped = append(scoped, s)
				break
			}
		}
	}

	pairs := d.extractFrom(scoped, text)
	if len(pairs) == 0 {
		pairs = d.extractFrom(d.subjects, text)
	}
	return pairs
}

func (d *Dictionary) extractFrom(subjects []Subject, text string) []Pair {
	var pairs []Pair
	for _, s := range subjects {
		best, bestPos := "", -1
		for _, c := range s.Choices {
			pos := d.position(s, c, text)
			if pos >= 0 && (bestPos < 0 || pos < bestPos) {
				best, bestPos = c.Name, pos
			}
		}
		if best != "" {
			pairs = append(pairs, Pair{Subject: s.Name, Choice: best})
		}
	}
	return pairs
}

// Mentions implements Matcher.
func (d *Dictionary) Mentions(text, subject string) []string {
	for _, s := range d.subjects {
		if s.Name != subject {
			continue
		}
		var out []string
		for _, c := range s.Choices {
			if d.position(s, c, text) >= 0 {
				out = append(out, c.Name)
			}
		}
		return out
	}
	return nil
}

// position returns where choice c of subject s is affirmed in text, or -1.
func (d *Dictionary) position(s Subject, c Choice, text string) int {
	best := -1
	for _, a := range c.Aliases {
		pos := textmatch.FindAffirmed(text, a)
		if pos < 0 {
			continue
		}
		if d.aliasOwners[textmatch.Normalize(a)] > 1 && len(s.Cues) > 0 && !textmatch.ContainsAny(text, s.Cues...) {
			continue
		}
		if best < 0 || pos < best {
			best = pos
		}
	}
	return best
}

// DefaultDictionary returns the built-in vocabulary.
func DefaultDictionary() *Dictionary {
	return NewDictionary([]Subject{
		{
			Name:       "orm",
			Categories: []Category{CategoryTechStack, CategoryDataModel, CategoryArchitecture, CategoryPatterns},
			Choices: []Choice{
				{Name: "Drizzle", Aliases: []string{"drizzle", "drizzle-orm"}},
				{Name: "Prisma", Aliases: []string{"prisma"}},
				{Name: "TypeORM", Aliases: []string{"typeorm"}},
				{Name: "Sequelize", Aliases: []string{"sequelize"}},
				{Name: "Mongoose", Aliases: []string{"mongoose"}},
				{Name: "Kysely", Aliases: []string{"kysely"}},
				{Name: "Knex", Aliases: []string{"knex"}},
			},
		},
		{
			Name:       "auth-provider",
			Categories: []Category{CategorySecurity, CategoryTechStack, CategoryArchitecture, CategoryIntegration},
			Cues:       []string{"auth", "authentication", "login", "sign in", "signin", "oauth", "identity", "sso"},
			Choices: []Choice{
				{Name: "Supabase", Aliases: []string{"supabase auth", "supabase"}},
				{Name: "Clerk", Aliases: []string{"clerk"}},
				{Name: "Auth0", Aliases: []string{"auth0"}},
				{Name: "NextAuth", Aliases: []string{"nextauth", "next-auth", "auth.js"}},
				{Name: "Firebase", Aliases: []string{"firebase auth", "firebase"}},
				{Name: "Cognito", Aliases: []string{"cognito"}},
				{Name: "Lucia", Aliases: []string{"lucia"}},
				{Name: "Better Auth", Aliases: []string{"better-auth", "better auth"}},
			},
		},
		{
			Name:       "database",
			Categories: []Category{CategoryTechStack, CategoryDataModel, CategoryArchitecture},
			Cues:       []string{"database", "db", "data", "storage", "persistence", "tables"},
			Choices: []Choice{
				{Name: "PostgreSQL", Aliases: []string{"postgres", "postgresql", "pg"}},
				{Name: "MySQL", Aliases: []string{"mysql", "mariadb"}},
				{Name: "MongoDB", Aliases: []string{"mongodb", "mongo"}},
				{Name: "SQLite", Aliases: []string{"sqlite"}},
				{Name: "Supabase", Aliases: []string{"supabase"}},
				{Name: "PlanetScale", Aliases: []string{"planetscale"}},
				{Name: "DynamoDB", Aliases: []string{"dynamodb"}},
				{Name: "Firebase", Aliases: []string{"firestore", "firebase"}},
			},
		},
		{
			Name:       "framework",
			Categories: []Category{CategoryArchitecture, CategoryTechStack},
			Choices: []Choice{
				{Name: "Next.js", Aliases: []string{"next.js", "nextjs"}},
				{Name: "Remix", Aliases: []string{"remix"}},
				{Name: "SvelteKit", Aliases: []string{"sveltekit"}},
				{Name: "Nuxt", Aliases: []string{"nuxt"}},
				{Name: "Astro", Aliases: []string{"astro"}},
				{Name: "Express", Aliases: []string{"express", "express.js"}},
				{Name: "Fastify", Aliases: []string{"fastify"}},
				{Name: "Django", Aliases: []string{"django"}},
				{Name: "Rails", Aliases: []string{"rails", "ruby on rails"}},
			},
		},
		{
			Name:       "styling",
			Categories: []Category{CategoryUIDesign, CategoryTechStack},
			Choices: []Choice{
				{Name: "Tailwind", Aliases: []string{"tailwind", "tailwindcss"}},
				{Name: "styled-components", Aliases: []string{"styled-components"}},
				{Name: "CSS Modules", Aliases: []string{"css modules"}},
				{Name: "Emotion", Aliases: []string{"emotion"}},
				{Name: "Sass", Aliases: []string{"sass", "scss"}},
				{Name: "Bootstrap", Aliases: []string{"bootstrap"}},
				{Name: "Chakra UI", Aliases: []string{"chakra", "chakra ui"}},
			},
		},
		{
			Name:       "state-management",
			Categories: []Category{CategoryPatterns, CategoryArchitecture, CategoryTechStack},
			Choices: []Choice{
				{Name: "Redux", Aliases: []string{"redux", "redux toolkit"}},
				{Name: "Zustand", Aliases: []string{"zustand"}},
				{Name: "MobX", Aliases: []string{"mobx"}},
				{Name: "Jotai", Aliases: []string{"jotai"}},
				{Name: "Recoil", Aliases: []string{"recoil"}},
				{Name: "React Context", Aliases: []string{"react context"}},
			},
		},
		{
			Name:       "payments",
			Categories: []Category{CategoryIntegration, CategoryBusinessLogic, CategoryTechStack},
			Choices: []Choice{
				{Name: "Stripe", Aliases: []string{"stripe"}},
				{Name: "Paddle", Aliases: []string{"paddle"}},
				{Name: "Lemon Squeezy", Aliases: []string{"lemonsqueezy", "lemon squeezy"}},
				{Name: "PayPal", Aliases: []string{"paypal"}},
				{Name: "Braintree", Aliases: []string{"braintree"}},
			},
		},
		{
			Name:       "hosting",
			Categories: []Category{CategoryDeployment, CategoryArchitecture},
			Choices: []Choice{
				{Name: "Vercel", Aliases: []string{"vercel"}},
				{Name: "Netlify", Aliases: []string{"netlify"}},
				{Name: "AWS", Aliases: []string{"aws"}},
				{Name: "Fly.io", Aliases: []string{"fly.io"}},
				{Name: "Render", Aliases: []string{"render.com"}},
				{Name: "Railway", Aliases: []string{"railway"}},
				{Name: "Heroku", Aliases: []string{"heroku"}},
				{Name: "Cloudflare", Aliases: []string{"cloudflare", "cloudflare workers"}},
			},
		},
		{
			Name:       "package-manager",
			Categories: []Category{CategoryTechStack},
			Choices: []Choice{
				{Name: "pnpm", Aliases: []string{"pnpm"}},
				{Name: "npm", Aliases: []string{"npm"}},
				{Name: "Yarn", Aliases: []string{"yarn"}},
				{Name: "Bun", Aliases: []string{"bun"}},
			},
		},
		{
			Name:       "test-runner",
			Categories: []Category{CategoryPatterns, CategoryTechStack},
			Choices: []Choice{
				{Name: "Vitest", Aliases: []string{"vitest"}},
				{Name: "Jest", Aliases: []string{"jest"}},
				{Name: "Mocha", Aliases: []string{"mocha"}},
			},
		},
		{
			Name:       "e2e-testing",
			Categories: []Category{CategoryPatterns, CategoryTechStack},
			Choices: []Choice{
				{Name: "Playwright", Aliases: []string{"playwright"}},
				{Name: "Cypress", Aliases: []string{"cypress"}},
			},
		},
		{
			Name:       "api-style",
			Categories: []Category{CategoryAPIDesign, CategoryArchitecture},
			Choices: []Choice{
				{Name: "REST", Aliases: []string{"rest api", "restful"}},
				{Name: "GraphQL", Aliases: []string{"graphql"}},
				{Name: "tRPC", Aliases: []string{"trpc"}},
				{Name: "gRPC", Aliases: []string{"grpc"}},
			},
		},
	})
}
