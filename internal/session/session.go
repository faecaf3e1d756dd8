// Package session implements the Session (SPEC_FULL.md §3): the
// owning runtime that wires together FactStore, RuleEngine,
// SemanticIndex, TransitiveReasoner, PropertyInheritance, TheoryStack,
// the SymbolTable/VectorOracle, Statistics, and the negation Checker
// behind the QueryOrchestrator's public surface.
//
// Grounded on the teacher's internal/server package, which composes
// its equivalent collaborators (stores, modes, validators) behind one
// facade struct constructed once at process start.
package session

import (
	"fmt"
	"log"

	"unified-thinking/internal/config"
	"unified-thinking/internal/inherit"
	"unified-thinking/internal/negation"
	"unified-thinking/internal/query"
	"unified-thinking/internal/rules"
	"unified-thinking/internal/semindex"
	"unified-thinking/internal/stats"
	"unified-thinking/internal/store"
	"unified-thinking/internal/theory"
	"unified-thinking/internal/transitive"
	"unified-thinking/internal/types"
	"unified-thinking/internal/vectorspace"
)

// Session is one independent knowledge-engine runtime. Per §5, a
// Session is single-threaded-cooperative: its mutable state is not
// safe to share across concurrent callers, though multiple Sessions
// may run in parallel goroutines with no shared mutable state.
type Session struct {
	cfg *config.Config

	Facts      *store.FactStore
	Rules      *rules.Engine
	SemIndex   *semindex.SemanticIndex
	Transitive *transitive.Reasoner
	Inherit    *inherit.Engine
	Theory     *theory.Stack
	Negation   *negation.Checker
	Symbols    *vectorspace.SymbolTable
	Stats      *stats.Counters
	Query      *query.Orchestrator

	oracle vectorspace.VectorOracle
}

// New constructs a Session from cfg, wiring every collaborator exactly
// once. A relation dictionary may optionally be supplied (shared
// read-only across Sessions per §5); nil uses the default transitive
// set.
func New(cfg *config.Config, semIndex *semindex.SemanticIndex) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid session configuration: %w", err)
	}
	if semIndex == nil {
		semIndex = semindex.NewDefault()
	}

	facts := store.New()
	reasoner := transitive.New(facts)
	ruleEng := rules.New(facts, reasoner, semIndex)

	var oracle vectorspace.VectorOracle
	var approx negation.ApproxSimilarity
	if cfg.Engine.HDCStrategy == "approximate" {
		approxOracle, err := vectorspace.NewApproximateOracle(cfg.Vector.Geometry)
		if err != nil {
			return nil, fmt.Errorf("failed to construct approximate vector oracle: %w", err)
		}
		oracle = approxOracle
	} else {
		oracle = vectorspace.NewExactOracle(cfg.Vector.Geometry)
	}
	symbols := vectorspace.NewSymbolTable(oracle)

	if cfg.Engine.HDCStrategy == "approximate" {
		approx = func(op types.Identifier, args []types.ArgTerm) (float64, bool) {
			target := symbols.EncodeFact(op, args)
			best, found := 0.0, false
			for _, f := range facts.GetByOperator("Not") {
				if len(f.Args) != 1 || !f.Args[0].IsCompound() {
					continue
				}
				innerVec := symbols.EncodeFact(f.Args[0].Operator, f.Args[0].Args)
				if sim := oracle.Similarity(target, innerVec); sim > best {
					best, found = sim, true
				}
			}
			return best, found
		}
	}

	negChecker := negation.NewChecker(facts, reasoner, cfg.Vector.NegationSimilarityThreshold, approx)
	inheritEng := inherit.New(facts, reasoner, semIndex, negChecker)
	counters := stats.New()
	theoryStack := theory.New(facts)

	orchestrator := query.New(facts, reasoner, ruleEng, inheritEng, semIndex, negChecker, symbols, counters, cfg.Engine.HDCStrategy == "exact")

	if cfg.Engine.CanonicalizationEnabled {
		log.Printf("[INFO] session: identifier canonicalization enabled")
	}

	return &Session{
		cfg:        cfg,
		Facts:      facts,
		Rules:      ruleEng,
		SemIndex:   semIndex,
		Transitive: reasoner,
		Inherit:    inheritEng,
		Theory:     theoryStack,
		Negation:   negChecker,
		Symbols:    symbols,
		Stats:      counters,
		Query:      orchestrator,
		oracle:     oracle,
	}, nil
}

// AssertFact encodes and stores a new fact, computing its vector
// deterministically from (operator, args) before delegating to
// FactStore.Add (Invariant F3).
func (s *Session) AssertFact(stmt types.Statement, name types.Identifier) (*types.Fact, error) {
	vec := s.Symbols.EncodeFact(stmt.Operator, stmt.Args)
	polarity := types.Asserted
	var inner *types.Statement
	if stmt.Operator == "Not" && len(stmt.Args) == 1 && stmt.Args[0].IsCompound() {
		polarity = types.Negated
		inner = &types.Statement{Operator: stmt.Args[0].Operator, Args: stmt.Args[0].Args}
	}
	fact := &types.Fact{
		Operator: stmt.Operator,
		Args:     stmt.Args,
		Polarity: polarity,
		Vector:   vec,
		Metadata: types.FactMetadata{Operator: stmt.Operator, Args: stmt.Args, Inner: inner},
		Name:     name,
	}
	if err := s.Facts.Add(fact); err != nil {
		return nil, err
	}
	return fact, nil
}

// Execute is the Session-facing entry point for §4.6's execute().
func (s *Session) Execute(op types.Identifier, args []types.ArgTerm, maxResults int) types.Result {
	return s.Query.Execute(op, args, query.Options{
		MaxResults:          maxResults,
		MaxHoles:            s.cfg.Query.MaxHoles,
		SimilarityThreshold: s.cfg.Vector.SimilarityThreshold,
	})
}

// StatsSnapshot exposes the Session's reasoning statistics (§6, §12).
func (s *Session) StatsSnapshot() stats.Snapshot {
	return s.Stats.Snapshot()
}
