package query

import (
	"sort"

	"unified-thinking/internal/rules"
	"unified-thinking/internal/types"
)

// metaOp is one registered meta-operator pipeline (§4.8).
type metaOp func(o *Orchestrator, knowns []rules.Known, holes []rules.Hole, opts Options) types.Result

var metaOperators = map[types.Identifier]metaOp{
	"similar":    (*Orchestrator).metaSimilar,
	"induce":     (*Orchestrator).metaInduce,
	"bundle":     (*Orchestrator).metaBundle,
	"difference": (*Orchestrator).metaDifference,
	"analogy":    (*Orchestrator).metaAnalogy,
	"abduce":     (*Orchestrator).metaAbduce,
	"explain":    (*Orchestrator).metaExplain,
	"whatif":     (*Orchestrator).metaWhatif,
	"deduce":     (*Orchestrator).metaDeduce,
	"verifyPlan": (*Orchestrator).metaVerifyPlan,
}

func failure(reason string) types.Result {
	return types.Result{Success: false, Reason: reason}
}

// propertySet collects every (operator,value) pair where subject is the
// fact's first argument, across every operator.
func (o *Orchestrator) propertySet(subject types.Identifier) map[string]bool {
	set := make(map[string]bool)
	for _, f := range o.facts.Iter() {
		if len(f.Args) < 2 || f.Args[0].Text() != string(subject) {
			continue
		}
		set[string(f.Operator)+":"+f.Args[1].Text()] = true
	}
	return set
}

// metaSimilar ranks entities by Jaccard overlap of their property sets
// with S (`similar S ?x`).
func (o *Orchestrator) metaSimilar(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	if len(knowns) != 1 || len(holes) != 1 {
		return failure("similar expects one known subject and one hole")
	}
	hole := holes[0]
	subjectSet := o.propertySet(knowns[0].Value)
	if len(subjectSet) == 0 {
		return failure("subject has no known properties")
	}

	candidates := make(map[string]bool)
	for _, f := range o.facts.Iter() {
		if len(f.Args) >= 1 {
			candidates[f.Args[0].Text()] = true
		}
	}
	delete(candidates, string(knowns[0].Value))

	var results []types.ScoredResult
	for cand := range candidates {
		candSet := o.propertySet(types.Identifier(cand))
		if len(candSet) == 0 {
			continue
		}
		inter, union := 0, len(subjectSet)
		for k := range candSet {
			if subjectSet[k] {
				inter++
			} else {
				union++
			}
		}
		if inter == 0 {
			continue
		}
		score := float64(inter) / float64(union)
		results = append(results, types.ScoredResult{
			Bindings: map[types.Identifier]string{hole.Name: cand},
			Score:    score,
			Method:   types.MethodBundleCommon,
		})
	}
	sortResults(results)
	if opts.MaxResults > 0 && len(results) > opts.MaxResults {
		results = results[:opts.MaxResults]
	}
	return assembleResult(results, holes)
}

func splitPropertyKey(key string) (op, value string) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}

// setCombine implements the shared induce/bundle/difference shape:
// `op A B ?x`, combining A's and B's property-value sets per combine.
func (o *Orchestrator) setCombine(knowns []rules.Known, holes []rules.Hole, method types.Method, combine func(inA, inB bool) bool) types.Result {
	if len(knowns) != 2 || len(holes) != 1 {
		return failure("expects two known subjects and one hole")
	}
	hole := holes[0]
	a := o.propertySet(knowns[0].Value)
	b := o.propertySet(knowns[1].Value)

	seen := make(map[string]bool)
	var results []types.ScoredResult
	for key := range a {
		if !combine(true, b[key]) {
			continue
		}
		_, value := splitPropertyKey(key)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		results = append(results, types.ScoredResult{Bindings: map[types.Identifier]string{hole.Name: value}, Score: 0.7, Method: method})
	}
	for key := range b {
		if a[key] || !combine(false, true) {
			continue
		}
		_, value := splitPropertyKey(key)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true
		results = append(results, types.ScoredResult{Bindings: map[types.Identifier]string{hole.Name: value}, Score: 0.7, Method: method})
	}
	sortResults(results)
	return assembleResult(results, holes)
}

// metaInduce intersects A's and B's property multisets.
func (o *Orchestrator) metaInduce(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	return o.setCombine(knowns, holes, types.MethodBundleCommon, func(inA, inB bool) bool { return inA && inB })
}

// metaBundle unions A's and B's property multisets.
func (o *Orchestrator) metaBundle(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	return o.setCombine(knowns, holes, types.MethodBundleCommon, func(inA, inB bool) bool { return inA || inB })
}

// metaDifference computes A's properties minus B's.
func (o *Orchestrator) metaDifference(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	return o.setCombine(knowns, holes, types.MethodBundleCommon, func(inA, inB bool) bool { return inA && !inB })
}

// metaAnalogy resolves `analogy A B C ?x` as x ~= C + (B - A) in vector
// space, reporting the nearest interned identifier.
func (o *Orchestrator) metaAnalogy(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	if len(knowns) != 3 || len(holes) != 1 || o.symbols == nil {
		return failure("analogy expects three known entities and one hole")
	}
	hole := holes[0]
	oracle := o.symbols.Oracle()
	va := o.symbols.Intern(knowns[0].Value)
	vb := o.symbols.Intern(knowns[1].Value)
	vc := o.symbols.Intern(knowns[2].Value)

	if len(va.Dims) != len(vb.Dims) || len(va.Dims) != len(vc.Dims) {
		return failure("malformed vector geometry")
	}
	target := make([]float32, len(va.Dims))
	for i := range target {
		target[i] = vc.Dims[i] + vb.Dims[i] - va.Dims[i]
	}
	probe := types.OpaqueVector{Dims: target}

	best, bestSim := "", -1.0
	for _, f := range o.facts.Iter() {
		for _, a := range f.Args {
			if a.IsCompound() || a.Name == "" {
				continue
			}
			cand := string(a.Name)
			if cand == string(knowns[0].Value) || cand == string(knowns[1].Value) || cand == string(knowns[2].Value) {
				continue
			}
			v := o.symbols.Intern(a.Name)
			sim := oracle.Similarity(probe, v)
			if sim > bestSim {
				bestSim, best = sim, cand
			}
		}
	}
	if best == "" {
		return failure("no candidate entity found")
	}
	results := []types.ScoredResult{{Bindings: map[types.Identifier]string{hole.Name: best}, Score: bestSim, Method: types.MethodHDC}}
	return assembleResult(results, holes)
}

// metaAbduce answers `abduce Obs ?cause`: every known cause of Obs via
// the `causes` relation, scored by inverse BFS depth.
func (o *Orchestrator) metaAbduce(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	if len(knowns) != 1 || len(holes) != 1 || o.reasoner == nil {
		return failure("abduce expects one observation and one hole")
	}
	hole := holes[0]
	var results []types.ScoredResult
	for _, hop := range o.reasoner.SourcesTo("causes", string(knowns[0].Value)) {
		score := 0.9 - 0.1*float64(hop.Depth)
		if score < 0.1 {
			score = 0.1
		}
		results = append(results, types.ScoredResult{
			Bindings: map[types.Identifier]string{hole.Name: hop.Value},
			Score:    score,
			Method:   types.MethodRuleDerived,
			Steps:    hop.Steps,
			Depth:    hop.Depth,
		})
	}
	sortResults(results)
	if len(results) == 0 {
		return failure("no known cause")
	}
	return assembleResult(results, holes)
}

// metaExplain answers `explain Goal ?text`: attempt a rule-derived
// proof of Goal; on failure fall back to abduce.
func (o *Orchestrator) metaExplain(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	if len(knowns) != 1 || len(holes) != 1 {
		return failure("explain expects one goal and one hole")
	}
	hole := holes[0]
	goal := knowns[0].Value

	for _, rule := range o.ruleEng.Rules() {
		matches := o.ruleEng.Match(rule.ConclusionPattern.Operator,
			[]rules.Known{{Index: 1, Value: goal}}, nil, 1)
		if len(matches) > 0 {
			text := "proved via " + string(matches[0].RuleName) + ": " + joinSteps(matches[0].Steps)
			results := []types.ScoredResult{{Bindings: map[types.Identifier]string{hole.Name: text}, Score: 0.9, Method: types.MethodRuleDerived, Steps: matches[0].Steps}}
			return assembleResult(results, holes)
		}
	}
	return o.metaAbduce([]rules.Known{{Index: 1, Value: goal}}, []rules.Hole{{Index: 2, Name: hole.Name}}, opts)
}

func joinSteps(steps []string) string {
	out := ""
	for i, s := range steps {
		if i > 0 {
			out += "; "
		}
		out += s
	}
	return out
}

// metaWhatif answers `whatif Negated Affected ?outcome` over the
// `causes` DAG: would_fail if Affected's only direct causer chain runs
// through Negated, uncertain if an independent alternative also
// reaches Affected, unchanged if Affected is not reachable from
// Negated at all. Grounded on the teacher's
// internal/reasoning/causal.go performGraphSurgery (do-calculus-style
// edge removal to simulate an intervention), adapted here to a
// reachability check rather than a full counterfactual simulation.
func (o *Orchestrator) metaWhatif(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	if len(knowns) != 2 || len(holes) != 1 || o.reasoner == nil {
		return failure("whatif expects Negated, Affected, and one hole")
	}
	hole := holes[0]
	negated := string(knowns[0].Value)
	affected := string(knowns[1].Value)

	if !o.reasoner.Reachable("causes", negated, affected) {
		return assembleResult([]types.ScoredResult{{Bindings: map[types.Identifier]string{hole.Name: "unchanged"}, Score: 0.8, Method: types.MethodRuleDerived}}, holes)
	}

	directCausers := o.reasoner.SourcesTo("causes", affected)
	independentAlternative := false
	for _, hop := range directCausers {
		if hop.Value == negated || hop.Depth != 1 {
			continue
		}
		if !o.reasoner.Reachable("causes", negated, hop.Value) {
			independentAlternative = true
			break
		}
	}

	outcome := "would_fail"
	if independentAlternative {
		outcome = "uncertain"
	}
	return assembleResult([]types.ScoredResult{{Bindings: map[types.Identifier]string{hole.Name: outcome}, Score: 0.7, Method: types.MethodRuleDerived}}, holes)
}

// metaDeduce answers `deduce $source $filter ?result [depth] [limit]`:
// bounded forward chaining from $source over the $filter relation,
// capped at an optional depth/limit (additional trailing knowns).
func (o *Orchestrator) metaDeduce(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	if len(knowns) < 2 || len(holes) != 1 || o.reasoner == nil {
		return failure("deduce expects source, filter relation, and one hole")
	}
	hole := holes[0]
	source := knowns[0].Value
	filterRelation := types.Identifier(knowns[1].Value)

	depth := 0
	limit := 0
	if len(knowns) >= 3 {
		depth = atoiOrZero(string(knowns[2].Value))
	}
	if len(knowns) >= 4 {
		limit = atoiOrZero(string(knowns[3].Value))
	}

	var results []types.ScoredResult
	for _, hop := range o.reasoner.TargetsFrom(filterRelation, string(source)) {
		if depth > 0 && hop.Depth > depth {
			continue
		}
		results = append(results, types.ScoredResult{
			Bindings: map[types.Identifier]string{hole.Name: hop.Value},
			Score:    0.9 - 0.05*float64(hop.Depth),
			Method:   types.MethodRuleDerived,
			Steps:    hop.Steps,
			Depth:    hop.Depth,
		})
	}
	sortResults(results)
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return assembleResult(results, holes)
}

func atoiOrZero(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0
		}
		n = n*10 + int(c-'0')
	}
	return n
}

// metaVerifyPlan answers `verifyPlan planName ?status`: replay a
// stored `planStep planName N precondition` sequence, in step order,
// checking every precondition exists in the fact store.
func (o *Orchestrator) metaVerifyPlan(knowns []rules.Known, holes []rules.Hole, opts Options) types.Result {
	if len(knowns) != 1 || len(holes) != 1 {
		return failure("verifyPlan expects a plan name and one hole")
	}
	hole := holes[0]
	planName := knowns[0].Value

	type step struct {
		order int
		fact  *types.Fact
	}
	var steps []step
	for _, f := range o.facts.GetByOperator("planStep") {
		if len(f.Args) != 3 || f.Args[0].Text() != string(planName) {
			continue
		}
		steps = append(steps, step{order: atoiOrZero(f.Args[1].Text()), fact: f})
	}
	if len(steps) == 0 {
		return failure("no such plan")
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].order < steps[j].order })

	var log []string
	valid := true
	for _, s := range steps {
		precondition := s.fact.Args[2]
		if !precondition.IsCompound() {
			log = append(log, "skip malformed precondition at step "+s.fact.Args[1].Text())
			continue
		}
		if _, ok := o.facts.GetNary(precondition.Operator, precondition.Args); !ok {
			valid = false
			log = append(log, "unmet: "+precondition.Text())
			break
		}
		log = append(log, "ok: "+precondition.Text())
	}

	status := "invalid"
	score := 0.2
	if valid {
		status = "valid"
		score = 0.95
	}
	results := []types.ScoredResult{{Bindings: map[types.Identifier]string{hole.Name: status}, Score: score, Method: types.MethodRuleDerived, Steps: log}}
	return assembleResult(results, holes)
}
