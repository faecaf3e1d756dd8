// Package theory implements the TheoryStack (SPEC_FULL.md §4.7):
// hypothetical ("what if") reasoning via push/pop/commit over
// FactStore snapshots, with optional per-layer dimension overrides.
//
// Grounded on the teacher's internal/storage/memory.go snapshot/restore
// plumbing (the same primitive this package layers a stack on top of)
// and the branch/merge bookkeeping style of internal/modes/graph.go.
package theory

import (
	"fmt"

	"github.com/google/uuid"

	"unified-thinking/internal/store"
	"unified-thinking/internal/types"
)

// Stack owns a Session's theory layers above the base (layer 0) world.
// Layer 0 is never itself a types.TheoryLayer entry; layers is the
// stack of pushed hypothetical worlds above it.
type Stack struct {
	facts  *store.FactStore
	layers []*types.TheoryLayer
}

// New constructs an empty TheoryStack over facts.
func New(facts *store.FactStore) *Stack {
	return &Stack{facts: facts}
}

// Depth returns the number of pushed layers (0 means at the base world).
func (s *Stack) Depth() int {
	return len(s.layers)
}

// Push snapshots the current fact set into a new layer, assigns it
// priority and dimensionOverrides, and bumps bundleVersion so every
// cache invalidates even though no fact map entry changed (Invariant
// I3). The new layer's ID is returned for later reference.
func (s *Stack) Push(priority int, dimensionOverrides map[string]float64) string {
	layer := &types.TheoryLayer{
		ID:                 uuid.NewString(),
		Priority:           priority,
		FactsSnapshot:      s.facts.Snapshot(),
		DimensionOverrides: dimensionOverrides,
	}
	s.layers = append(s.layers, layer)
	s.facts.BumpVersion()
	return layer.ID
}

// Pop discards the top layer and restores FactStore to exactly the
// snapshot taken at the matching Push (Round-trip law R1: "popping a
// theory restores the prior fact set bit-for-bit"). Popping below the
// base world is an error.
func (s *Stack) Pop() error {
	if len(s.layers) == 0 {
		return fmt.Errorf("pop below base world: %w", types.ErrNotFound)
	}
	top := s.layers[len(s.layers)-1]
	s.layers = s.layers[:len(s.layers)-1]
	s.facts.Restore(top.FactsSnapshot)
	return nil
}

// Commit discards the top layer's snapshot bookkeeping without
// restoring it: the current (modified) fact set becomes the new base
// at this depth, i.e. the hypothetical world is made permanent.
func (s *Stack) Commit() error {
	if len(s.layers) == 0 {
		return fmt.Errorf("commit below base world: %w", types.ErrNotFound)
	}
	s.layers = s.layers[:len(s.layers)-1]
	s.facts.BumpVersion()
	return nil
}

// Reset pops every layer in turn, returning to the base world.
func (s *Stack) Reset() {
	for len(s.layers) > 0 {
		_ = s.Pop()
	}
}

// CurrentDimensionOverrides merges dimension overrides from every
// pushed layer, outermost (most recently pushed) taking precedence.
func (s *Stack) CurrentDimensionOverrides() map[string]float64 {
	out := make(map[string]float64)
	for _, layer := range s.layers {
		for k, v := range layer.DimensionOverrides {
			out[k] = v
		}
	}
	return out
}

// Layers returns the current stack, base-first.
func (s *Stack) Layers() []*types.TheoryLayer {
	out := make([]*types.TheoryLayer, len(s.layers))
	copy(out, s.layers)
	return out
}
