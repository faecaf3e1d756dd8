package query

import (
	"unified-thinking/internal/rules"
	"unified-thinking/internal/transitive"
	"unified-thinking/internal/types"
)

// directSource implements pipeline source #1: scan stored facts whose
// known positions match exactly, filling holes from the fact's own
// argument text. Always runs.
func (o *Orchestrator) directSource(op types.Identifier, knowns []rules.Known, holes []rules.Hole) []types.ScoredResult {
	var out []types.ScoredResult
	arity := len(knowns) + len(holes)
	for _, f := range o.facts.GetByOperator(op) {
		if len(f.Args) != arity {
			continue
		}
		consistent := true
		for _, k := range knowns {
			if k.Index < 1 || k.Index > len(f.Args) || f.Args[k.Index-1].Text() != string(k.Value) {
				consistent = false
				break
			}
		}
		if !consistent {
			continue
		}
		bindings := make(map[types.Identifier]string, len(holes))
		for _, h := range holes {
			if h.Index < 1 || h.Index > len(f.Args) {
				consistent = false
				break
			}
			bindings[h.Name] = f.Args[h.Index-1].Text()
		}
		if !consistent {
			continue
		}
		out = append(out, types.ScoredResult{Bindings: bindings, Score: 1.0, Method: types.MethodDirect, Steps: []string{f.Key()}})
	}
	return out
}

// transitiveSource implements pipeline source #2: when op is a declared
// transitive relation, one subject is known, and at most 2 holes are
// requested, walk the TransitiveReasoner's cache.
func (o *Orchestrator) transitiveSource(op types.Identifier, knowns []rules.Known, holes []rules.Hole) []types.ScoredResult {
	if o.semIndex == nil || !o.semIndex.IsTransitive(op) || len(holes) > 2 || len(knowns) != 1 {
		return nil
	}
	known := knowns[0]
	hole := holes[0]
	var hops []transitive.Hop
	if known.Index == 1 {
		hops = o.reasoner.TargetsFrom(op, string(known.Value))
	} else {
		hops = o.reasoner.SourcesTo(op, string(known.Value))
	}
	var out []types.ScoredResult
	for _, hop := range hops {
		if o.counters != nil {
			o.counters.AddTransitiveSteps(uint64(hop.Depth))
		}
		out = append(out, types.ScoredResult{
			Bindings: map[types.Identifier]string{hole.Name: hop.Value},
			Score:    transitive.TransitiveScore(hop.Depth),
			Method:   types.MethodTransitive,
			Steps:    hop.Steps,
			Depth:    hop.Depth,
		})
	}
	return out
}

// ruleDerivedSource implements pipeline source #3: always consult the
// RuleEngine.
func (o *Orchestrator) ruleDerivedSource(op types.Identifier, knowns []rules.Known, holes []rules.Hole, maxResults int) []types.ScoredResult {
	if o.ruleEng == nil {
		return nil
	}
	var out []types.ScoredResult
	for _, m := range o.ruleEng.Match(op, knowns, holes, maxResults) {
		bindings := make(map[types.Identifier]string, len(m.Bindings))
		for k, v := range m.Bindings {
			bindings[k] = v
		}
		out = append(out, types.ScoredResult{Bindings: bindings, Score: 0.85, Method: types.MethodRuleDerived, Steps: m.Steps})
	}
	return out
}

// propertyInheritanceSource implements pipeline source #4: an
// inheritable relation, exactly one known subject and one hole.
func (o *Orchestrator) propertyInheritanceSource(op types.Identifier, knowns []rules.Known, holes []rules.Hole) []types.ScoredResult {
	if o.inherit == nil || o.semIndex == nil || !o.semIndex.IsInheritableProperty(op) {
		return nil
	}
	if len(knowns) != 1 || len(holes) != 1 || knowns[0].Index != 1 {
		return nil
	}
	hole := holes[0]
	var out []types.ScoredResult
	for _, b := range o.inherit.ByValue(op, knowns[0].Value) {
		out = append(out, types.ScoredResult{
			Bindings: map[types.Identifier]string{hole.Name: b.Answer},
			Score:    b.Similarity,
			Method:   b.Method,
			Steps:    b.Steps,
		})
	}
	return out
}

// elementPropagationSource implements pipeline source #5: op=elementOf
// with a single known at position 1, tagged rule_derived per the
// source table (propagation is modelled as a derived fact, not a raw
// stored one).
func (o *Orchestrator) elementPropagationSource(op types.Identifier, knowns []rules.Known, holes []rules.Hole) []types.ScoredResult {
	if op != "elementOf" || len(knowns) != 1 || knowns[0].Index != 1 || len(holes) != 1 {
		return nil
	}
	hole := holes[0]
	var out []types.ScoredResult
	for _, hop := range o.reasoner.TargetsFrom("elementOf", string(knowns[0].Value)) {
		out = append(out, types.ScoredResult{
			Bindings: map[types.Identifier]string{hole.Name: hop.Value},
			Score:    transitive.TransitiveScore(hop.Depth),
			Method:   types.MethodRuleDerived,
			Steps:    hop.Steps,
			Depth:    hop.Depth,
		})
	}
	return out
}

// impliesSource implements pipeline source #6: op=implies with a
// single known at position 1, tagged transitive.
func (o *Orchestrator) impliesSource(op types.Identifier, knowns []rules.Known, holes []rules.Hole) []types.ScoredResult {
	if op != "implies" || len(knowns) != 1 || knowns[0].Index != 1 || len(holes) != 1 {
		return nil
	}
	hole := holes[0]
	var out []types.ScoredResult
	for _, hop := range o.reasoner.TargetsFrom("implies", string(knowns[0].Value)) {
		out = append(out, types.ScoredResult{
			Bindings: map[types.Identifier]string{hole.Name: hop.Value},
			Score:    transitive.TransitiveScore(hop.Depth),
			Method:   types.MethodTransitive,
			Steps:    hop.Steps,
			Depth:    hop.Depth,
		})
	}
	return out
}

// compoundCSPSource implements pipeline source #7: multiple holes that
// share a variable name (a repeated hole name across positions) are
// solved as a constraint-satisfaction self-join over stored facts for
// op, requiring every occurrence of a shared name to agree.
func (o *Orchestrator) compoundCSPSource(op types.Identifier, knowns []rules.Known, holes []rules.Hole) []types.ScoredResult {
	if len(holes) < 2 {
		return nil
	}
	shared := make(map[types.Identifier]int)
	for _, h := range holes {
		shared[h.Name]++
	}
	hasSharing := false
	for _, n := range shared {
		if n > 1 {
			hasSharing = true
			break
		}
	}
	if !hasSharing {
		return nil
	}

	arity := len(knowns) + len(holes)
	var out []types.ScoredResult
	for _, f := range o.facts.GetByOperator(op) {
		if len(f.Args) != arity {
			continue
		}
		consistent := true
		for _, k := range knowns {
			if f.Args[k.Index-1].Text() != string(k.Value) {
				consistent = false
				break
			}
		}
		if !consistent {
			continue
		}
		bindings := make(map[types.Identifier]string, len(holes))
		for _, h := range holes {
			v := f.Args[h.Index-1].Text()
			if existing, ok := bindings[h.Name]; ok && existing != v {
				consistent = false
				break
			}
			bindings[h.Name] = v
		}
		if !consistent {
			continue
		}
		out = append(out, types.ScoredResult{Bindings: bindings, Score: 0.8, Method: types.MethodCompoundCSP, Steps: []string{f.Key()}})
	}
	return out
}

// bundleCommonSource implements pipeline source #8: at least two
// knowns and exactly one hole, answered by the union of each known
// subject's direct property set for op (a regular-query analogue of
// the `bundle` meta-operator, scored by how many of the subjects agree
// on the candidate value).
func (o *Orchestrator) bundleCommonSource(op types.Identifier, knowns []rules.Known, holes []rules.Hole) []types.ScoredResult {
	if len(knowns) < 2 || len(holes) != 1 {
		return nil
	}
	hole := holes[0]
	votes := make(map[string]int)
	for _, k := range knowns {
		for _, f := range o.facts.GetByOperator(op) {
			if len(f.Args) != len(knowns)+1 {
				continue
			}
			if f.Args[0].Text() != string(k.Value) {
				continue
			}
			votes[f.Args[len(f.Args)-1].Text()]++
		}
	}
	var out []types.ScoredResult
	for value, n := range votes {
		score := 0.4 + 0.1*float64(n)
		if score > 0.95 {
			score = 0.95
		}
		out = append(out, types.ScoredResult{
			Bindings: map[types.Identifier]string{hole.Name: value},
			Score:    score,
			Method:   types.MethodBundleCommon,
		})
	}
	return out
}

// vectorSimilaritySource implements pipeline source #9: the
// last-resort hdc fallback over interned vectors.
func (o *Orchestrator) vectorSimilaritySource(op types.Identifier, knowns []rules.Known, holes []rules.Hole, threshold float64) []types.ScoredResult {
	if o.symbols == nil || len(holes) != 1 {
		return nil
	}
	if threshold <= 0 {
		threshold = 0.35
	}
	hole := holes[0]
	oracle := o.symbols.Oracle()

	args := make([]types.ArgTerm, len(knowns)+1)
	for _, k := range knowns {
		if k.Index-1 < len(args) {
			args[k.Index-1] = types.Ident(k.Value)
		}
	}
	args[hole.Index-1] = types.Ident(hole.Name)
	probe := o.symbols.EncodeFact(op, args)

	if o.counters != nil {
		o.counters.IncHDCQueries()
	}
	var out []types.ScoredResult
	for _, f := range o.facts.GetByOperator(op) {
		if len(f.Args) != len(args) {
			continue
		}
		sim := oracle.Similarity(probe, f.Vector)
		if o.counters != nil {
			o.counters.IncSimilarityChecks()
		}
		if sim < threshold {
			continue
		}
		out = append(out, types.ScoredResult{
			Bindings: map[types.Identifier]string{hole.Name: f.Args[hole.Index-1].Text()},
			Score:    sim,
			Method:   types.MethodHDC,
		})
	}
	if len(out) > 0 && o.counters != nil {
		o.counters.IncHDCSuccesses()
		o.counters.AddHDCBindings(uint64(len(out)))
	}
	return out
}

// inductionFallback implements §4.6's induction fallback: for
// `hasProperty Subject ?x` with an empty result set, find peers
// sharing at least one type with Subject via isA and collect their
// hasProperty values as low-confidence candidates.
func (o *Orchestrator) inductionFallback(subject rules.Known, hole rules.Hole) []types.ScoredResult {
	if o.reasoner == nil {
		return nil
	}
	types_ := o.reasoner.TargetsFrom("isA", string(subject.Value))
	typeSet := make(map[string]bool, len(types_))
	for _, t := range types_ {
		typeSet[t.Value] = true
	}
	if len(typeSet) == 0 {
		return nil
	}

	var out []types.ScoredResult
	seen := make(map[string]bool)
	for _, f := range o.facts.GetByOperator("isA") {
		if len(f.Args) != 2 || !typeSet[f.Args[1].Text()] {
			continue
		}
		peer := f.Args[0].Text()
		if peer == string(subject.Value) {
			continue
		}
		for _, hp := range o.facts.GetByOperator("hasProperty") {
			if len(hp.Args) != 2 || hp.Args[0].Text() != peer {
				continue
			}
			value := hp.Args[1].Text()
			if seen[value] {
				continue
			}
			seen[value] = true
			out = append(out, types.ScoredResult{
				Bindings: map[types.Identifier]string{hole.Name: value},
				Score:    0.3,
				Method:   types.MethodRuleDerived,
				Steps:    []string{"induced from peer " + peer},
			})
		}
	}
	return out
}
