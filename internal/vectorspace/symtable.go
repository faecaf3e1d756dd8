package vectorspace

import (
	"strings"
	"sync"

	"unified-thinking/internal/types"
	"unified-thinking/pkg/cache"
)

// factVectorCacheSize bounds the number of compound/fact vectors
// memoized by EncodeFact; re-deriving a fact's vector is cheap per call
// but reload (Invariant F3 never persists vectors) and repeated queries
// re-encode the same (operator, args) pairs often enough to make the
// memoization worthwhile.
const factVectorCacheSize = 4096

// SymbolTable maps entity/relation identifiers to stable vector handles
// (SPEC_FULL.md §2.1). A Session owns exactly one SymbolTable; vectors
// are immutable once interned (§5 shared-resource policy).
type SymbolTable struct {
	mu        sync.RWMutex
	oracle    VectorOracle
	scope     map[types.Identifier]types.OpaqueVector
	factCache *cache.LRU[string, types.OpaqueVector]
}

// NewSymbolTable constructs a SymbolTable backed by the given oracle.
func NewSymbolTable(oracle VectorOracle) *SymbolTable {
	return &SymbolTable{
		oracle:    oracle,
		scope:     make(map[types.Identifier]types.OpaqueVector),
		factCache: cache.New[string, types.OpaqueVector](&cache.Config{MaxEntries: factVectorCacheSize}),
	}
}

// Intern returns the stable vector for name, deriving and caching it on
// first use.
func (s *SymbolTable) Intern(name types.Identifier) types.OpaqueVector {
	s.mu.RLock()
	if v, ok := s.scope[name]; ok {
		s.mu.RUnlock()
		return v
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.scope[name]; ok {
		return v
	}
	v := s.oracle.FromName(name)
	s.scope[name] = v
	return v
}

// Lookup returns the vector for name if already interned, without
// deriving a new one.
func (s *SymbolTable) Lookup(name types.Identifier) (types.OpaqueVector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.scope[name]
	return v, ok
}

// Oracle returns the underlying VectorOracle, exposing bind/bundle/
// similarity/withPosition to callers that already hold vectors.
func (s *SymbolTable) Oracle() VectorOracle { return s.oracle }

// EncodeFact derives a fact's vector deterministically from its
// operator and args (Invariant F3), bundling the operator vector with
// each positionally-marked argument vector.
func (s *SymbolTable) EncodeFact(operator types.Identifier, args []types.ArgTerm) types.OpaqueVector {
	key := factCacheKey(operator, args)
	if v, ok := s.factCache.Get(key); ok {
		return v
	}

	parts := make([]types.OpaqueVector, 0, len(args)+1)
	parts = append(parts, s.Intern(operator))
	for i, a := range args {
		argVec := s.vectorForArg(a)
		parts = append(parts, s.oracle.WithPosition(argVec, i+1))
	}
	v := s.oracle.Bundle(parts...)
	s.factCache.Set(key, v)
	return v
}

// factCacheKey renders the canonical (operator, args) identity string
// used to key the fact-vector memoization cache; it matches the shape
// of Fact.Key so cache hits track duplicate-fact detection exactly.
func factCacheKey(operator types.Identifier, args []types.ArgTerm) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.Text()
	}
	return string(operator) + "(" + strings.Join(parts, ",") + ")"
}

// vectorForArg resolves the vector of an ArgTerm; compounds are encoded
// recursively via EncodeFact so nested statements get distinguishable
// vectors from their flat namesakes.
func (s *SymbolTable) vectorForArg(a types.ArgTerm) types.OpaqueVector {
	if a.IsCompound() {
		return s.EncodeFact(a.Operator, a.Args)
	}
	return s.Intern(a.Name)
}

// Size returns the number of interned identifiers.
func (s *SymbolTable) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.scope)
}
