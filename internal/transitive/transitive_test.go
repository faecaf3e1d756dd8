package transitive

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/store"
	"unified-thinking/internal/types"
)

func isA(a, b string) *types.Fact {
	return &types.Fact{Operator: "isA", Args: []types.ArgTerm{types.Ident(types.Identifier(a)), types.Ident(types.Identifier(b))}}
}

func TestTransitiveChain(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(isA("Rex", "GermanShepherd")))
	require.NoError(t, fs.Add(isA("GermanShepherd", "Shepherd")))
	require.NoError(t, fs.Add(isA("Shepherd", "Dog")))

	r := New(fs)
	hops := r.TargetsFrom("isA", "Rex")
	require.Len(t, hops, 3)

	byValue := map[string]Hop{}
	for _, h := range hops {
		byValue[h.Value] = h
	}
	assert.Equal(t, 1, byValue["GermanShepherd"].Depth)
	assert.Equal(t, 2, byValue["Shepherd"].Depth)
	assert.Equal(t, 3, byValue["Dog"].Depth)
}

func TestReachableNoPhantomReflexivity(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(isA("Rex", "Dog")))
	r := New(fs)
	assert.False(t, r.Reachable("isA", "Rex", "Rex"))
}

func TestReachableWithExplicitSelfLoop(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(isA("X", "X")))
	r := New(fs)
	// Self-loop facts are stored but never traversed or reported as an
	// answer (B3): reachable(X,X) stays false even with the fact present.
	assert.False(t, r.Reachable("isA", "X", "X"))
	hops := r.TargetsFrom("isA", "X")
	assert.Empty(t, hops)
}

func TestSourcesToStepsReadForward(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(isA("Rex", "Dog")))
	r := New(fs)
	hops := r.SourcesTo("isA", "Dog")
	require.Len(t, hops, 1)
	assert.Equal(t, "isA Rex Dog", hops[0].Steps[0])
}

func TestCacheInvalidatesOnBundleVersionChange(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(isA("Rex", "Dog")))
	r := New(fs)
	require.Len(t, r.TargetsFrom("isA", "Rex"), 1)

	require.NoError(t, fs.Add(isA("Dog", "Mammal")))
	hops := r.TargetsFrom("isA", "Rex")
	assert.Len(t, hops, 2)
}

func TestAllPairsUsesLowerBaseScore(t *testing.T) {
	assert.InDelta(t, 0.85, AllPairsScore(0), 1e-9)
	assert.InDelta(t, 0.9, TransitiveScore(0), 1e-9)
}

func TestAcyclicNoDuplicateValues(t *testing.T) {
	fs := store.New()
	// Diamond: A->B, A->C, B->D, C->D
	require.NoError(t, fs.Add(isA("A", "B")))
	require.NoError(t, fs.Add(isA("A", "C")))
	require.NoError(t, fs.Add(isA("B", "D")))
	require.NoError(t, fs.Add(isA("C", "D")))

	r := New(fs)
	hops := r.TargetsFrom("isA", "A")
	seen := map[string]bool{}
	for _, h := range hops {
		assert.False(t, seen[h.Value], "value %s emitted twice", h.Value)
		seen[h.Value] = true
	}
}
