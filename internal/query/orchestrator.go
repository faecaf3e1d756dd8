// Package query implements the Query Orchestrator (SPEC_FULL.md §4.6):
// classification of a statement into knowns/holes, a nine-source
// priority-ranked answer pipeline, priority-based merging, filtering,
// ranking, and primary-binding assembly with alternatives.
//
// Grounded on the teacher's internal/orchestration package (a staged
// pipeline over independently-scored candidate sources, merged by a
// priority table) and on internal/validation/symbolic.go's
// pattern-matching conventions reused here for the compound-CSP and
// direct-match sources.
package query

import (
	"fmt"
	"sort"

	"unified-thinking/internal/inherit"
	"unified-thinking/internal/negation"
	"unified-thinking/internal/rules"
	"unified-thinking/internal/semindex"
	"unified-thinking/internal/stats"
	"unified-thinking/internal/store"
	"unified-thinking/internal/transitive"
	"unified-thinking/internal/types"
	"unified-thinking/internal/vectorspace"
)

// defaultMaxHoles is the reference MAX_HOLES constant (§4.6).
const defaultMaxHoles = 4

// Priority table (§4.6's source table), indexed by Method.
var priority = map[types.Method]int{
	types.MethodDirect:              7,
	types.MethodTransitive:          6,
	types.MethodPropertyInheritance: 5,
	types.MethodBundleCommon:        4,
	types.MethodCompoundCSP:         3,
	types.MethodRuleDerived:         2,
	types.MethodHDC:                 1,
}

// Options configures a single Execute call.
type Options struct {
	MaxResults           int
	MaxHoles             int
	SimilarityThreshold  float64
	UseLevelOptimization bool
}

// Orchestrator wires together every reasoning component of a Session
// to answer execute()/directMatch() queries.
type Orchestrator struct {
	facts     *store.FactStore
	reasoner  *transitive.Reasoner
	ruleEng   *rules.Engine
	inherit   *inherit.Engine
	semIndex  *semindex.SemanticIndex
	negation  *negation.Checker
	symbols   *vectorspace.SymbolTable
	counters  *stats.Counters
	hdcExact  bool // hdcStrategy == exact: defer vector search to last resort
}

// New constructs an Orchestrator over a Session's collaborators.
// hdcExact mirrors the Session's hdcStrategy (true for "exact").
func New(facts *store.FactStore, reasoner *transitive.Reasoner, ruleEng *rules.Engine, inheritEng *inherit.Engine, semIndex *semindex.SemanticIndex, neg *negation.Checker, symbols *vectorspace.SymbolTable, counters *stats.Counters, hdcExact bool) *Orchestrator {
	return &Orchestrator{
		facts: facts, reasoner: reasoner, ruleEng: ruleEng, inherit: inheritEng,
		semIndex: semIndex, negation: neg, symbols: symbols, counters: counters, hdcExact: hdcExact,
	}
}

// classify partitions a statement's args into knowns (identifier-valued
// positions) and holes (query placeholders), per §4.6 step 1.
func classify(args []types.ArgTerm) (knowns []rules.Known, holes []rules.Hole) {
	for i, a := range args {
		idx := i + 1
		if a.IsHole() {
			holes = append(holes, rules.Hole{Index: idx, Name: a.Name})
			continue
		}
		knowns = append(knowns, rules.Known{Index: idx, Value: types.Identifier(a.Text())})
	}
	return knowns, holes
}

// Execute is the §4.6 entry contract.
func (o *Orchestrator) Execute(op types.Identifier, args []types.ArgTerm, opts Options) types.Result {
	maxHoles := opts.MaxHoles
	if maxHoles <= 0 {
		maxHoles = defaultMaxHoles
	}

	knowns, holes := classify(args)

	if len(holes) == 0 {
		return o.DirectMatch(op, knowns, args)
	}
	if len(holes) > maxHoles {
		return types.Result{Success: false, Reason: fmt.Sprintf("Too many holes (max %d)", maxHoles)}
	}

	if meta, ok := metaOperators[op]; ok {
		return meta(o, knowns, holes, opts)
	}

	if o.counters != nil {
		o.counters.IncKBScans()
	}

	var all []types.ScoredResult
	all = append(all, o.directSource(op, knowns, holes)...)
	all = append(all, o.transitiveSource(op, knowns, holes)...)
	all = append(all, o.ruleDerivedSource(op, knowns, holes, opts.MaxResults)...)
	all = append(all, o.propertyInheritanceSource(op, knowns, holes)...)
	all = append(all, o.elementPropagationSource(op, knowns, holes)...)
	all = append(all, o.impliesSource(op, knowns, holes)...)
	all = append(all, o.compoundCSPSource(op, knowns, holes)...)
	all = append(all, o.bundleCommonSource(op, knowns, holes)...)

	merged := mergeByPriority(all)
	if len(merged) == 0 || !o.hdcExact {
		merged = mergeByPriority(append(merged, o.vectorSimilaritySource(op, knowns, holes, opts.SimilarityThreshold)...))
	}

	merged = o.filter(op, merged)
	sortResults(merged)
	if opts.MaxResults > 0 && len(merged) > opts.MaxResults {
		merged = merged[:opts.MaxResults]
	}

	if len(merged) == 0 && op == "hasProperty" && len(knowns) == 1 && len(holes) == 1 {
		merged = o.inductionFallback(knowns[0], holes[0])
	}

	return assembleResult(merged, holes)
}

// DirectMatch is the §4.6 existence-check fast path used when a
// statement carries no holes: an exact-index lookup, falling back to a
// vector-similarity scan in non-exact strategy.
func (o *Orchestrator) DirectMatch(op types.Identifier, knowns []rules.Known, args []types.ArgTerm) types.Result {
	for _, f := range o.facts.GetByOperator(op) {
		if len(f.Args) != len(args) {
			continue
		}
		match := true
		for i, a := range args {
			if f.Args[i].Text() != a.Text() {
				match = false
				break
			}
		}
		if match {
			return types.Result{
				Success:    true,
				Confidence: 1.0,
				AllResults: []types.ScoredResult{{Score: 1.0, Method: types.MethodDirect, Steps: []string{f.Key()}}},
			}
		}
	}

	if !o.hdcExact && o.symbols != nil {
		target := o.symbols.EncodeFact(op, args)
		best := 0.0
		for _, f := range o.facts.GetByOperator(op) {
			sim := o.symbols.Oracle().Similarity(target, f.Vector)
			if sim > best {
				best = sim
			}
		}
		if o.counters != nil {
			o.counters.IncSimilarityChecks()
		}
		if best >= 0.85 {
			return types.Result{Success: true, Confidence: best, AllResults: []types.ScoredResult{{Score: best, Method: types.MethodHDC}}}
		}
	}
	return types.Result{Success: false, Reason: "no matching fact"}
}

func mergeByPriority(results []types.ScoredResult) []types.ScoredResult {
	type key = string
	best := make(map[key]types.ScoredResult)
	var order []key
	for _, r := range results {
		k := bindingsKey(r.Bindings)
		existing, ok := best[k]
		if !ok {
			best[k] = r
			order = append(order, k)
			continue
		}
		if priority[r.Method] > priority[existing.Method] {
			best[k] = r
		}
	}
	out := make([]types.ScoredResult, 0, len(order))
	for _, k := range order {
		out = append(out, best[k])
	}
	return out
}

func bindingsKey(b map[types.Identifier]string) string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, string(k))
	}
	sort.Strings(keys)
	s := ""
	for _, k := range keys {
		s += k + "=" + b[types.Identifier(k)] + ";"
	}
	return s
}

// filter removes type-class answers for modal operators and answers
// negated for the subject or any parent type (§4.6, §4.7).
func (o *Orchestrator) filter(op types.Identifier, results []types.ScoredResult) []types.ScoredResult {
	modal := op == "can" || op == "must" || op == "cannot"
	var out []types.ScoredResult
	for _, r := range results {
		drop := false
		for hole, answer := range r.Bindings {
			if modal && o.semIndex != nil && o.semIndex.IsTypeClass(types.Identifier(answer), o.facts) {
				drop = true
				break
			}
			if o.negation != nil && len(r.Bindings) >= 1 {
				subject := ""
				for _, k := range holeSubjectCandidates(r.Bindings, hole) {
					subject = k
					break
				}
				if subject != "" && o.negation.IsPropertyNegated(op, types.Identifier(subject), types.Identifier(answer)) {
					drop = true
					break
				}
			}
		}
		if !drop {
			out = append(out, r)
		}
	}
	return out
}

// holeSubjectCandidates returns every bound value other than hole
// itself, used as the best-effort "subject" for negation filtering
// when a result's bindings don't separately carry the query's knowns.
func holeSubjectCandidates(b map[types.Identifier]string, hole types.Identifier) []string {
	var out []string
	for k, v := range b {
		if k != hole {
			out = append(out, v)
		}
	}
	return out
}

func sortResults(results []types.ScoredResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if priority[results[i].Method] != priority[results[j].Method] {
			return priority[results[i].Method] > priority[results[j].Method]
		}
		return results[i].Score > results[j].Score
	})
}

// assembleResult builds the final primary Binding per hole (top result)
// plus up to 3 alternatives, and computes confidence/ambiguity (§4.6).
func assembleResult(results []types.ScoredResult, holes []rules.Hole) types.Result {
	if len(results) == 0 {
		return types.Result{Success: false, Reason: "no answer found", AllResults: results}
	}

	binding := make(types.Binding, len(holes))
	for _, h := range holes {
		top, ok := firstWithHole(results, h.Name)
		if !ok {
			continue
		}
		entry := types.BindingEntry{
			Answer:     top.Bindings[h.Name],
			Similarity: top.Score,
			Method:     top.Method,
			Steps:      top.Steps,
		}
		for _, r := range results {
			if len(entry.Alternatives) >= 3 {
				break
			}
			if v, ok := r.Bindings[h.Name]; ok && v != entry.Answer && !containsStr(entry.Alternatives, v) {
				entry.Alternatives = append(entry.Alternatives, v)
			}
		}
		binding[h.Name] = entry
	}

	confidence := results[0].Score
	ambiguous := len(results) >= 2 && results[0].Score-results[1].Score < 0.1

	return types.Result{
		Success:    true,
		Bindings:   binding,
		Confidence: confidence,
		Ambiguous:  ambiguous,
		AllResults: results,
	}
}

func firstWithHole(results []types.ScoredResult, hole types.Identifier) (types.ScoredResult, bool) {
	for _, r := range results {
		if _, ok := r.Bindings[hole]; ok {
			return r, true
		}
	}
	return types.ScoredResult{}, false
}

func containsStr(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

