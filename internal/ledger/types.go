// Package ledger keeps the append-only decision history of a project and
// detects proposed actions that contradict high-impact decisions.
//
// Layout follows the rest of the codebase:
//   - types.go: enums and the Decision record
//   - ledger.go: append-only log
//   - dictionary.go: subject/choice vocabulary (pluggable)
//   - detector.go: the pure contradiction check
package ledger

import (
	"fmt"
	"time"
)

// --- Category enum ---

// Category classifies what area a decision governs.
type Category string

const (
	CategoryArchitecture  Category = "architecture"
	CategoryTechStack     Category = "tech-stack"
	CategoryPatterns      Category = "patterns"
	CategorySecurity      Category = "security"
	CategoryDataModel     Category = "data-model"
	CategoryAPIDesign     Category = "api-design"
	CategoryUIDesign      Category = "ui-design"
	CategoryIntegration   Category = "integration"
	CategoryDeployment    Category = "deployment"
	CategoryBusinessLogic Category = "business-logic"
)

var validCategories = map[Category]bool{
	CategoryArchitecture:  true,
	CategoryTechStack:     true,
	CategoryPatterns:      true,
	CategorySecurity:      true,
	CategoryDataModel:     true,
	CategoryAPIDesign:     true,
	CategoryUIDesign:      true,
	CategoryIntegration:   true,
	CategoryDeployment:    true,
	CategoryBusinessLogic: true,
}

// ValidateCategory returns an error if the category is not recognized.
func ValidateCategory(c Category) error {
	if !validCategories[c] {
		return fmt.Errorf("invalid decision category %q: must be one of: architecture, tech-stack, patterns, security, data-model, api-design, ui-design, integration, deployment, business-logic", c)
	}
	return nil
}

// --- Impact enum ---

// Impact is how costly a decision is to reverse. Only high and critical
// decisions are contradiction sources.
type Impact string

const (
	ImpactLow      Impact = "low"
	ImpactMedium   Impact = "medium"
	ImpactHigh     Impact = "high"
	ImpactCritical Impact = "critical"
)

var impactRank = map[Impact]int{
	ImpactLow:      1,
	ImpactMedium:   2,
	ImpactHigh:     3,
	ImpactCritical: 4,
}

// ValidateImpact returns an error if the impact is not recognized.
func ValidateImpact(i Impact) error {
	if _, ok := impactRank[i]; !ok {
		return fmt.Errorf("invalid impact %q: must be one of: low, medium, high, critical", i)
	}
	return nil
}

// Enforced reports whether decisions of this impact block contradicting work.
func (i Impact) Enforced() bool {
	return impactRank[i] >= impactRank[ImpactHigh]
}

// Rank orders impacts; unknown values rank 0.
func (i Impact) Rank() int { return impactRank[i] }

// --- MadeBy enum ---

// MadeBy records who made a decision.
type MadeBy string

const (
	MadeByUser MadeBy = "user"
	MadeByAI   MadeBy = "ai"
)

// ValidateMadeBy returns an error if the author is not recognized.
func ValidateMadeBy(m MadeBy) error {
	if m != MadeByUser && m != MadeByAI {
		return fmt.Errorf("invalid madeBy %q: must be one of: user, ai", m)
	}
	return nil
}

// --- Records ---

// Decision is one immutable ledger entry.
type Decision struct {
	ID                     string    `json:"id"`
	Timestamp              time.Time `json:"timestamp"`
	Decision               string    `json:"decision"`
	Category               Category  `json:"category"`
	Reasoning              string    `json:"reasoning"`
	AlternativesConsidered []string  `json:"alternativesConsidered"`
	Impact                 Impact    `json:"impact"`
	Reversible             bool      `json:"reversible"`
	MadeBy                 MadeBy    `json:"madeBy"`
	UserApproved           bool      `json:"userApproved"`
}

// NewDecision is the caller-supplied part of a Decision.
type NewDecision struct {
	// ID is optional; the ledger assigns one when empty. Context-loaded
	// decisions pass a deterministic ID so reloads do not duplicate.
	ID                     string
	Timestamp              time.Time
	Decision               string
	Category               Category
	Reasoning              string
	AlternativesConsidered []string
	Impact                 Impact
	Reversible             bool
	MadeBy                 MadeBy
	UserApproved           bool
}

// Validate checks required fields and enums.
func (n NewDecision) Validate() error {
	if n.Decision == "" {
		return fmt.Errorf("'decision' is required")
	}
	if err := ValidateCategory(n.Category); err != nil {
		return err
	}
	if err := ValidateImpact(n.Impact); err != nil {
		return err
	}
	if n.MadeBy != "" {
		if err := ValidateMadeBy(n.MadeBy); err != nil {
			return err
		}
	}
	return nil
}

// Contradiction describes a conflict between proposed work and an
// enforced decision.
type Contradiction struct {
	DecisionID          string    `json:"decisionId"`
	ConflictingDecision string    `json:"conflictingDecision"`
	Subject             string    `json:"subject"`
	ExistingChoice      string    `json:"existingChoice"`
	ProposedChoice      string    `json:"proposedChoice"`
	Explanation         string    `json:"explanation"`
	Severity            Impact    `json:"severity"`
	DetectedAt          time.Time `json:"detectedAt,omitempty"`
}
