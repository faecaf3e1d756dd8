// Package negation implements the negation model shared by RuleEngine,
// PropertyInheritance, and QueryOrchestrator (SPEC_FULL.md §4.7).
//
// A fact (op, args) is negated in the current theory iff any of:
//
//	(a) a fact Not[(op, args)] exists — here realised as a stored fact
//	    with operator "Not" whose sole argument is a Compound(op, args);
//	(b) a Not-referenced vector is similar (above the configured
//	    threshold, 0.85 by default) to the vector of (op, args) — gated
//	    behind hdcStrategy != exact (§9 design notes);
//	(c) for property inheritance specifically, the negation applies to
//	    the subject or to any of its transitive parent types via isA.
package negation

import (
	"unified-thinking/internal/store"
	"unified-thinking/internal/transitive"
	"unified-thinking/internal/types"
)

// ApproxSimilarity computes the similarity between the vector encoding
// of (op,args) and a Not-reference's vector. Supplied only when
// hdcStrategy=approximate; nil otherwise, in which case path (b) never
// fires (§9: "gate this behind hdcStrategy != exact").
type ApproxSimilarity func(op types.Identifier, args []types.ArgTerm) (bestMatch float64, ok bool)

// Checker evaluates negation against a fixed FactStore/Reasoner pair.
type Checker struct {
	facts     *store.FactStore
	reasoner  *transitive.Reasoner
	threshold float64
	approx    ApproxSimilarity
}

// NewChecker constructs a negation Checker. approx may be nil (exact
// strategy); threshold is the soft-match acceptance bound (0.85 default).
func NewChecker(facts *store.FactStore, reasoner *transitive.Reasoner, threshold float64, approx ApproxSimilarity) *Checker {
	return &Checker{facts: facts, reasoner: reasoner, threshold: threshold, approx: approx}
}

// IsNegated reports whether (op,args) is negated via path (a) or (b).
func (c *Checker) IsNegated(op types.Identifier, args []types.ArgTerm) bool {
	if c.hasNotFact(op, args) {
		return true
	}
	if c.approx != nil {
		if sim, ok := c.approx(op, args); ok && sim > c.threshold {
			return true
		}
	}
	return false
}

func (c *Checker) hasNotFact(op types.Identifier, args []types.ArgTerm) bool {
	target := types.CompoundArg(op, args...)
	for _, f := range c.facts.GetByOperator("Not") {
		if len(f.Args) == 1 && f.Args[0].IsCompound() && f.Args[0].Equal(target) {
			return true
		}
	}
	return false
}

// IsPropertyNegated implements path (c): negation of `relation subject
// value` applies if it applies directly to subject, or to subject via
// any of its transitive isA ancestors (§5.4, §4.7(c)).
func (c *Checker) IsPropertyNegated(relation, subject, value types.Identifier) bool {
	args := []types.ArgTerm{types.Ident(subject), types.Ident(value)}
	if c.IsNegated(relation, args) {
		return true
	}
	if c.reasoner == nil {
		return false
	}
	for _, hop := range c.reasoner.TargetsFrom("isA", string(subject)) {
		ancestorArgs := []types.ArgTerm{types.Ident(types.Identifier(hop.Value)), types.Ident(value)}
		if c.IsNegated(relation, ancestorArgs) {
			return true
		}
	}
	return false
}
