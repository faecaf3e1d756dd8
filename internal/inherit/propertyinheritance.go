// Package inherit implements PropertyInheritance (SPEC_FULL.md §4.5):
// walking isA ancestry to answer "what does X inherit" and, in the
// symmetric direction, "which descendants of a type share a value".
//
// Grounded on the teacher's internal/validation/symbolic.go property
// propagation pass (walk-up-the-hierarchy accumulation pattern) and on
// transitive.Reasoner's TargetsFrom/SourcesTo for the isA walk itself.
package inherit

import (
	"fmt"

	"unified-thinking/internal/negation"
	"unified-thinking/internal/semindex"
	"unified-thinking/internal/store"
	"unified-thinking/internal/transitive"
	"unified-thinking/internal/types"
)

// Binding is one inherited-property answer.
type Binding struct {
	Answer        string
	Similarity    float64
	Method        types.Method
	Steps         []string
	InheritedFrom types.Identifier
}

// Engine answers PropertyInheritance queries over a fixed FactStore,
// Reasoner, SemanticIndex, and negation Checker.
type Engine struct {
	facts    *store.FactStore
	reasoner *transitive.Reasoner
	semIndex *semindex.SemanticIndex
	negation *negation.Checker
}

// New constructs a PropertyInheritance engine.
func New(facts *store.FactStore, reasoner *transitive.Reasoner, semIndex *semindex.SemanticIndex, neg *negation.Checker) *Engine {
	return &Engine{facts: facts, reasoner: reasoner, semIndex: semIndex, negation: neg}
}

// similarityAt implements the depth-decayed confidence shared with
// transitive.TransitiveScore, specialised to property inheritance's own
// base constant per §4.5 ("similarity = 0.9 - 0.05*depth").
func similarityAt(depth int) float64 {
	s := 0.9 - 0.05*float64(depth)
	if s < 0.1 {
		return 0.1
	}
	return s
}

// ByValue answers "relation subject ?": walk subject upward via isA,
// and at each visited node (self at depth 0, ancestors at depth>=1)
// collect every stored `relation node value` fact, dropping a value
// when `relation subject value` is negated for the subject or for any
// of its isA ancestors, at any depth. Only the relation must be
// declared inheritable in the SemanticIndex dictionary (§4.5).
func (e *Engine) ByValue(relation, subject types.Identifier) []Binding {
	if e.semIndex != nil && !e.semIndex.IsInheritableProperty(relation) {
		return nil
	}

	type visit struct {
		node  types.Identifier
		depth int
	}
	chain := []visit{{subject, 0}}
	if e.reasoner != nil {
		for _, hop := range e.reasoner.TargetsFrom("isA", string(subject)) {
			chain = append(chain, visit{types.Identifier(hop.Value), hop.Depth})
		}
	}

	seen := make(map[string]bool)
	var out []Binding
	for _, v := range chain {
		for _, f := range e.facts.GetByOperator(relation) {
			if len(f.Args) != 2 {
				continue
			}
			if f.Args[0].Text() != string(v.node) {
				continue
			}
			value := types.Identifier(f.Args[1].Text())
			if seen[string(value)] {
				continue
			}
			if e.negation != nil && e.negation.IsPropertyNegated(relation, subject, value) {
				continue
			}
			seen[string(value)] = true

			steps := []string{fmt.Sprintf("isA %s %s", subject, v.node)}
			if v.depth == 0 {
				steps = []string{fmt.Sprintf("%s %s %s (direct)", relation, subject, value)}
			}
			out = append(out, Binding{
				Answer:        string(value),
				Similarity:    similarityAt(v.depth),
				Method:        types.MethodPropertyInheritance,
				Steps:         steps,
				InheritedFrom: v.node,
			})
		}
	}
	return out
}

// BySubject answers the symmetric form noted as an Open Question in
// spec.md §9.3: "relation ? value" — which subjects (direct or via a
// descendant-of-an-ancestor-holding-value relationship) inherit the
// given value. Decision recorded in DESIGN.md: BySubject finds every
// node N with a direct `relation N value` fact, then returns every
// descendant of N (via SourcesTo("isA", N)) as an inheriting subject,
// since inheritance flows from ancestor to descendant, not the reverse.
func (e *Engine) BySubject(relation, value types.Identifier) []Binding {
	if e.semIndex != nil && !e.semIndex.IsInheritableProperty(relation) {
		return nil
	}

	var out []Binding
	seen := make(map[string]bool)
	for _, f := range e.facts.GetByOperator(relation) {
		if len(f.Args) != 2 || f.Args[1].Text() != string(value) {
			continue
		}
		holder := types.Identifier(f.Args[0].Text())
		if !seen[string(holder)] {
			seen[string(holder)] = true
			out = append(out, Binding{
				Answer:        string(holder),
				Similarity:    similarityAt(0),
				Method:        types.MethodPropertyInheritance,
				Steps:         []string{fmt.Sprintf("%s %s %s (direct)", relation, holder, value)},
				InheritedFrom: holder,
			})
		}

		if e.reasoner == nil {
			continue
		}
		for _, hop := range e.reasoner.SourcesTo("isA", string(holder)) {
			descendant := types.Identifier(hop.Value)
			if seen[string(descendant)] {
				continue
			}
			if e.negation != nil && e.negation.IsPropertyNegated(relation, descendant, value) {
				continue
			}
			seen[string(descendant)] = true
			out = append(out, Binding{
				Answer:        string(descendant),
				Similarity:    similarityAt(hop.Depth),
				Method:        types.MethodPropertyInheritance,
				Steps:         append(append([]string{}, hop.Steps...), fmt.Sprintf("%s %s %s (inherited)", relation, holder, value)),
				InheritedFrom: holder,
			})
		}
	}
	return out
}
