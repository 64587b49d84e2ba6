package ledger

import "fmt"

// Detector checks proposed text against enforced decisions. It is pure:
// the same (text, decisions) always yields the same answer.
type Detector struct {
	matcher Matcher
}

// NewDetector creates a Detector. A nil matcher uses DefaultDictionary.
func NewDetector(m Matcher) *Detector {
	if m == nil {
		m = DefaultDictionary()
	}
	return &Detector{matcher: m}
}

// Check returns the most severe contradiction between text and the
// decisions, earliest decision first on ties, or nil.
func (d *Detector) Check(text string, decisions []Decision) *Contradiction {
	all := d.CheckAll(text, decisions)
	if len(all) == 0 {
		return nil
	}
	best := all[0]
	for _, c := range all[1:] {
		if c.Severity.Rank() > best.Severity.Rank() {
			best = c
		}
	}
	return &best
}

// CheckAll returns every contradiction, in ledger order. Decisions below
// high impact are historical context only and never produce one.
func (d *Detector) CheckAll(text string, decisions []Decision) []Contradiction {
	var out []Contradiction
	for _, dec := range decisions {
		if !dec.Impact.Enforced() {
			continue
		}
		for _, p := range d.matcher.Extract(dec.Decision, dec.Category) {
			proposed := ""
			for _, choice := range d.matcher.Mentions(text, p.Subject) {
				if choice != p.Choice {
					proposed = choice
					break
				}
			}
			if proposed == "" {
				continue
			}
			out = append(out, Contradiction{
				DecisionID:          dec.ID,
				ConflictingDecision: dec.Decision,
				Subject:             p.Subject,
				ExistingChoice:      p.Choice,
				ProposedChoice:      proposed,
				Explanation: fmt.Sprintf(
					"proposal uses %s for %s, but decision %q (%s impact) chose %s",
					proposed, p.Subject, dec.Decision, dec.Impact, p.Choice,
				),
				Severity: dec.Impact,
			})
		}
	}
	return out
}
