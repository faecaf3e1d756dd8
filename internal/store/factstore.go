// Package store implements the FactStore (SPEC_FULL.md §4.1): the
// canonical owner of facts, providing O(1) lookup by operator and by
// exact (operator, args) identity, with deterministic insertion-order
// iteration.
//
// Grounded on the teacher's internal/storage/memory.go: a
// sync.RWMutex-protected set of maps plus a parallel ordered slice for
// deterministic iteration, and a monotonic counter bumped on every
// mutation (there, per-collection ID counters; here, the Session-wide
// bundleVersion token FactStore owns on the Session's behalf).
package store

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"unified-thinking/internal/types"
)

// FactStore is the canonical, thread-safe owner of a Session's facts.
type FactStore struct {
	mu sync.RWMutex

	// byKey indexes facts by their (operator,args) identity (Key()) for
	// O(1) exact-match lookup and duplicate detection (Invariant F2).
	byKey map[string]*types.Fact

	// byOperator indexes facts by operator, preserving insertion order
	// per operator for deterministic iteration (§4.1 guarantees).
	byOperator map[types.Identifier][]*types.Fact

	// byName indexes facts carrying a stable Name handle, used to
	// resolve Reference ArgTerms (§3).
	byName map[types.Identifier]*types.Fact

	// ordered is the full insertion-ordered fact list, used by iter().
	ordered []*types.Fact

	// bundleVersion is the Session-wide invalidation token; FactStore
	// owns it because every mutation that must bump it flows through
	// Add/Remove, but TheoryStack also bumps it directly on push/pop
	// via BumpVersion, since a theory transition invalidates caches
	// without touching FactStore's own maps.
	bundleVersion atomic.Uint64

	// arities records the first-observed arity per operator, used to
	// detect ArityMismatch on a later add with a different arity.
	arities map[types.Identifier]int
}

// New constructs an empty FactStore.
func New() *FactStore {
	return &FactStore{
		byKey:      make(map[string]*types.Fact),
		byOperator: make(map[types.Identifier][]*types.Fact),
		byName:     make(map[types.Identifier]*types.Fact),
		ordered:    make([]*types.Fact, 0, 64),
		arities:    make(map[types.Identifier]int),
	}
}

// BundleVersion returns the current invalidation token.
func (s *FactStore) BundleVersion() uint64 {
	return s.bundleVersion.Load()
}

// BumpVersion increments the invalidation token without otherwise
// mutating the store; TheoryStack calls this on push/pop/commit so
// dependent caches invalidate even though no fact map entry changed.
func (s *FactStore) BumpVersion() uint64 {
	return s.bundleVersion.Add(1)
}

// Add inserts a fact. Re-assertion of a bit-identical (operator,args)
// fact is idempotent and does not bump bundleVersion; a same-key fact
// that differs in polarity or args is rejected as ErrDuplicate.
// Vector and metadata are not compared (§4.1: "fails with Duplicate ... succeeds idempotently
// if the incoming fact is bit-identical").
func (s *FactStore) Add(f *types.Fact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.ID == "" {
		f.ID = uuid.NewString()
	}

	if declared, ok := s.arities[f.Operator]; ok && declared != len(f.Args) {
		return fmt.Errorf("%w: operator %q declared arity %d, got %d", types.ErrArityMismatch, f.Operator, declared, len(f.Args))
	}

	key := f.Key()
	if existing, ok := s.byKey[key]; ok {
		if factsIdentical(existing, f) {
			return nil
		}
		return fmt.Errorf("%w: %s", types.ErrDuplicate, key)
	}

	s.arities[f.Operator] = len(f.Args)
	s.byKey[key] = f
	s.byOperator[f.Operator] = append(s.byOperator[f.Operator], f)
	s.ordered = append(s.ordered, f)
	if f.Name != "" {
		s.byName[f.Name] = f
	}
	s.bundleVersion.Add(1)
	return nil
}

func factsIdentical(a, b *types.Fact) bool {
	if a.Polarity != b.Polarity || len(a.Args) != len(b.Args) {
		return false
	}
	for i := range a.Args {
		if !a.Args[i].Equal(b.Args[i]) {
			return false
		}
	}
	return true
}

// Remove deletes the fact with the given ID, bumping bundleVersion
// (Invariant I3/R2). Removing a nonexistent ID is a no-op.
func (s *FactStore) Remove(factID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var target *types.Fact
	for _, f := range s.ordered {
		if f.ID == factID {
			target = f
			break
		}
	}
	if target == nil {
		return
	}

	key := target.Key()
	delete(s.byKey, key)
	if target.Name != "" {
		delete(s.byName, target.Name)
	}
	s.byOperator[target.Operator] = removeFact(s.byOperator[target.Operator], factID)
	s.ordered = removeFact(s.ordered, factID)
	s.bundleVersion.Add(1)
}

func removeFact(facts []*types.Fact, id string) []*types.Fact {
	out := make([]*types.Fact, 0, len(facts))
	for _, f := range facts {
		if f.ID != id {
			out = append(out, f)
		}
	}
	return out
}

// GetByOperator returns every fact with the given operator, in
// insertion order. The returned slice is a copy of the internal index;
// mutating it does not affect the store.
func (s *FactStore) GetByOperator(op types.Identifier) []*types.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	facts := s.byOperator[op]
	out := make([]*types.Fact, len(facts))
	copy(out, facts)
	return out
}

// GetNary returns the fact with the exact (operator,args) identity, if
// present.
func (s *FactStore) GetNary(op types.Identifier, args []types.ArgTerm) (*types.Fact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	probe := &types.Fact{Operator: op, Args: args}
	f, ok := s.byKey[probe.Key()]
	return f, ok
}

// GetByName resolves a Reference ArgTerm to its named fact.
func (s *FactStore) GetByName(name types.Identifier) (*types.Fact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.byName[name]
	return f, ok
}

// Iter returns every fact in insertion order; reserved for rare
// fallbacks per §4.1 ("for rare fallbacks only") — most callers should
// prefer GetByOperator.
func (s *FactStore) Iter() []*types.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Fact, len(s.ordered))
	copy(out, s.ordered)
	return out
}

// TruthIndex returns the subset of facts whose polarity is Asserted,
// keyed by (operator,args) identity. This is one of the three
// partitions named in §4.1; spec.md leaves the exact partition
// semantics to the implementer — here it answers "what is positively true right now".
func (s *FactStore) TruthIndex() map[string]*types.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*types.Fact)
	for k, f := range s.byKey {
		if f.Polarity == types.Asserted {
			out[k] = f
		}
	}
	return out
}

// TheoryIndex returns every fact carrying a stable Name handle — the
// subset addressable by Reference ArgTerms, which is exactly what
// theory-layer negation overrides (§4.7) resolve through.
func (s *FactStore) TheoryIndex() map[types.Identifier]*types.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[types.Identifier]*types.Fact, len(s.byName))
	for k, f := range s.byName {
		out[k] = f
	}
	return out
}

// AllIndex returns every fact keyed by its (operator,args) identity.
func (s *FactStore) AllIndex() map[string]*types.Fact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]*types.Fact, len(s.byKey))
	for k, f := range s.byKey {
		out[k] = f
	}
	return out
}

// Snapshot returns a shallow copy of every fact currently stored, used
// by TheoryStack.Push to capture FactsSnapshot (R1: push;pop must
// restore the pre-push fact set bitwise).
func (s *FactStore) Snapshot() []*types.Fact {
	return s.Iter()
}

// Restore replaces the store's contents with exactly the given facts,
// used by TheoryStack.Pop. It always bumps bundleVersion.
func (s *FactStore) Restore(facts []*types.Fact) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.byKey = make(map[string]*types.Fact, len(facts))
	s.byOperator = make(map[types.Identifier][]*types.Fact)
	s.byName = make(map[types.Identifier]*types.Fact)
	s.arities = make(map[types.Identifier]int)
	s.ordered = make([]*types.Fact, 0, len(facts))

	for _, f := range facts {
		s.byKey[f.Key()] = f
		s.byOperator[f.Operator] = append(s.byOperator[f.Operator], f)
		s.ordered = append(s.ordered, f)
		if f.Name != "" {
			s.byName[f.Name] = f
		}
		s.arities[f.Operator] = len(f.Args)
	}
	s.bundleVersion.Add(1)
}

// Len returns the total number of facts currently stored.
func (s *FactStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ordered)
}
