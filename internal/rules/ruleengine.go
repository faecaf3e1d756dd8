// Package rules implements the RuleEngine (SPEC_FULL.md §4.4):
// pattern-matching over compound And/Or condition trees with
// unification and typed substitutions.
//
// Unification and condition-tree matching are grounded on the
// teacher's internal/validation/symbolic.go (pattern-matching inference
// rules with step-numbered proof logs) and on the other_examples
// neurosymbolic reasoner's LogicPredicate/unifies() variable-binding
// convention; the And/Or join semantics follow spec.md §4.4 directly.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"unified-thinking/internal/semindex"
	"unified-thinking/internal/store"
	"unified-thinking/internal/transitive"
	"unified-thinking/internal/types"
)

// Known is a query argument whose value is already bound, at its
// 1-based position in the combined (knowns+holes) argument list.
type Known struct {
	Index int
	Value types.Identifier
}

// Hole is a query placeholder at its 1-based position.
type Hole struct {
	Index int
	Name  types.Identifier
}

// Match is one consistent binding-map produced by matching a query
// against a single rule.
type Match struct {
	Bindings map[types.Identifier]string // hole name -> answer
	Steps    []string
	RuleName types.Identifier
}

// Engine stores and matches rules against queries.
type Engine struct {
	facts    *store.FactStore
	reasoner *transitive.Reasoner
	semIndex *semindex.SemanticIndex
	rules    []*types.Rule
}

// New constructs a RuleEngine over the given collaborators.
func New(facts *store.FactStore, reasoner *transitive.Reasoner, semIndex *semindex.SemanticIndex) *Engine {
	return &Engine{facts: facts, reasoner: reasoner, semIndex: semIndex}
}

// AddRule validates (Invariant R1, via types.Rule.Validate) and
// registers a rule. A MalformedRule is rejected at registration time
// (§7), never stored.
func (e *Engine) AddRule(r *types.Rule) error {
	if err := r.Validate(); err != nil {
		return err
	}
	e.rules = append(e.rules, r)
	return nil
}

// Rules returns every registered rule, in registration order.
func (e *Engine) Rules() []*types.Rule {
	out := make([]*types.Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Match attempts every registered rule whose conclusion operator and
// arity fit op/knowns/holes, returning every resulting consistent
// binding, in leaf-scan order (§4.4: "no implicit limit ... enumeration
// order follows leaf scan order"). maxResults <= 0 means unlimited.
func (e *Engine) Match(op types.Identifier, knowns []Known, holes []Hole, maxResults int) []Match {
	var out []Match
	arity := len(knowns) + len(holes)

	for _, rule := range e.rules {
		if rule.ConclusionPattern.Operator != op || len(rule.ConclusionPattern.Args) != arity {
			continue
		}

		seed, ok := unifyKnowns(rule.ConclusionPattern, knowns)
		if !ok {
			continue
		}

		condMatches := e.matchCondition(rule.ConditionTree, seed)
		for _, m := range condMatches {
			bindings, ok := fillHoles(rule.ConclusionPattern, holes, m)
			if !ok {
				continue
			}
			out = append(out, Match{
				Bindings: bindings,
				Steps:    proofSteps(rule, m),
				RuleName: rule.Name,
			})
			if maxResults > 0 && len(out) >= maxResults {
				return out
			}
		}
	}
	return out
}

// unifyKnowns implements §4.4 step 1: for each known at position i, let
// p = conclusion.args[i-1]; bind variables, require equality for
// constants.
func unifyKnowns(conclusion types.Pattern, knowns []Known) (map[types.Identifier]string, bool) {
	seed := make(map[types.Identifier]string)
	for _, k := range knowns {
		if k.Index < 1 || k.Index > len(conclusion.Args) {
			return nil, false
		}
		p := conclusion.Args[k.Index-1]
		if p.IsVariable() {
			if existing, seen := seed[p.Name]; seen && existing != string(k.Value) {
				return nil, false
			}
			seed[p.Name] = string(k.Value)
			continue
		}
		if p.Text() != string(k.Value) {
			return nil, false
		}
	}
	return seed, true
}

// fillHoles implements §4.4's hole-filling step: bind each hole's
// variable from the conclusion's position; discard the match if any
// hole's variable is unbound.
func fillHoles(conclusion types.Pattern, holes []Hole, match map[types.Identifier]string) (map[types.Identifier]string, bool) {
	out := make(map[types.Identifier]string, len(holes))
	for _, h := range holes {
		if h.Index < 1 || h.Index > len(conclusion.Args) {
			return nil, false
		}
		p := conclusion.Args[h.Index-1]
		if !p.IsVariable() {
			return nil, false
		}
		val, ok := match[p.Name]
		if !ok {
			return nil, false
		}
		out[h.Name] = val
	}
	return out, true
}

// matchCondition recurses over the condition tree per §4.4.
func (e *Engine) matchCondition(node types.ConditionNode, seed map[types.Identifier]string) []map[types.Identifier]string {
	switch node.Kind {
	case types.ConditionLeaf:
		return e.matchLeaf(node.Leaf, seed)
	case types.ConditionAnd:
		return e.matchAnd(node.Children, seed)
	case types.ConditionOr:
		return e.matchOr(node.Children, seed)
	default:
		return nil
	}
}

// matchLeaf scans FactStore.GetByOperator(pattern.operator) and
// extends seed with every consistent binding, deduplicated by
// canonical serialisation.
func (e *Engine) matchLeaf(pattern types.Pattern, seed map[types.Identifier]string) []map[types.Identifier]string {
	var out []map[types.Identifier]string
	seen := make(map[string]bool)

	for _, f := range e.facts.GetByOperator(pattern.Operator) {
		if len(f.Args) != len(pattern.Args) {
			continue
		}
		ext := cloneBinding(seed)
		consistent := true
		for i, pa := range pattern.Args {
			fa := f.Args[i].Text()
			if pa.IsVariable() {
				if existing, has := ext[pa.Name]; has {
					if existing != fa {
						consistent = false
						break
					}
				} else {
					ext[pa.Name] = fa
				}
				continue
			}
			// Constant pattern arg: accept exact textual match, or a
			// type-widened match where c names a type and the fact's
			// arg transitively isA c.
			constant := pa.Text()
			if fa == constant {
				continue
			}
			if e.semIndex != nil && e.reasoner != nil &&
				e.semIndex.IsTypeClass(types.Identifier(constant), e.facts) &&
				e.reasoner.Reachable("isA", fa, constant) {
				continue
			}
			consistent = false
			break
		}
		if !consistent {
			continue
		}
		key := canonicalKey(ext)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, ext)
	}
	return out
}

// matchAnd intersects each child's independently-computed match set
// (against the same seed) by pairwise compatibility.
func (e *Engine) matchAnd(children []types.ConditionNode, seed map[types.Identifier]string) []map[types.Identifier]string {
	if len(children) == 0 {
		return []map[types.Identifier]string{seed}
	}

	acc := e.matchCondition(children[0], seed)
	for i := 1; i < len(children) && len(acc) > 0; i++ {
		childMatches := e.matchCondition(children[i], seed)
		var next []map[types.Identifier]string
		for _, a := range acc {
			for _, b := range childMatches {
				if merged, ok := mergeCompatible(a, b); ok {
					next = append(next, merged)
				}
			}
		}
		acc = next
	}
	return dedupBindings(acc)
}

// matchOr unions each child's match set (against the same seed),
// deduplicated.
func (e *Engine) matchOr(children []types.ConditionNode, seed map[types.Identifier]string) []map[types.Identifier]string {
	var all []map[types.Identifier]string
	for _, child := range children {
		all = append(all, e.matchCondition(child, seed)...)
	}
	return dedupBindings(all)
}

func mergeCompatible(a, b map[types.Identifier]string) (map[types.Identifier]string, bool) {
	merged := cloneBinding(a)
	for k, v := range b {
		if existing, has := merged[k]; has && existing != v {
			return nil, false
		}
		merged[k] = v
	}
	return merged, true
}

func cloneBinding(m map[types.Identifier]string) map[types.Identifier]string {
	out := make(map[types.Identifier]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func canonicalKey(m map[types.Identifier]string) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%s", k, m[types.Identifier(k)])
	}
	return strings.Join(parts, ";")
}

func dedupBindings(list []map[types.Identifier]string) []map[types.Identifier]string {
	seen := make(map[string]bool, len(list))
	var out []map[types.Identifier]string
	for _, m := range list {
		key := canonicalKey(m)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, m)
	}
	return out
}

// proofSteps implements §4.4's step log format: the non-conclusion
// variable bindings in insertion (leaf-scan) order as "name=value"
// (name without its leading "$"), then
// "Applied rule: <name-or-source-excerpt>".
func proofSteps(rule *types.Rule, match map[types.Identifier]string) []string {
	concVars := patternVariables(rule.ConclusionPattern)
	order := leafVariableOrder(rule.ConditionTree)

	var steps []string
	for _, v := range order {
		if concVars[v] {
			continue
		}
		if val, ok := match[v]; ok {
			steps = append(steps, fmt.Sprintf("%s=%s", strings.TrimPrefix(string(v), "$"), val))
		}
	}

	label := string(rule.Name)
	if label == "" {
		label = fmt.Sprintf("%s(%s)", rule.ConclusionPattern.Operator, argsText(rule.ConclusionPattern.Args))
	}
	steps = append(steps, fmt.Sprintf("Applied rule: %s", label))
	return steps
}

func argsText(args []types.ArgTerm) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Text()
	}
	return strings.Join(parts, ",")
}

func patternVariables(p types.Pattern) map[types.Identifier]bool {
	out := make(map[types.Identifier]bool)
	for _, a := range p.Args {
		if a.IsVariable() {
			out[a.Name] = true
		}
	}
	return out
}

func leafVariableOrder(node types.ConditionNode) []types.Identifier {
	var order []types.Identifier
	seen := make(map[types.Identifier]bool)
	var walk func(types.ConditionNode)
	walk = func(n types.ConditionNode) {
		switch n.Kind {
		case types.ConditionLeaf:
			for _, a := range n.Leaf.Args {
				if a.IsVariable() && !seen[a.Name] {
					seen[a.Name] = true
					order = append(order, a.Name)
				}
			}
		default:
			for _, c := range n.Children {
				walk(c)
			}
		}
	}
	walk(node)
	return order
}
