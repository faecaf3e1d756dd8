package theory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/store"
	"unified-thinking/internal/types"
)

func fact(op, a, b string) *types.Fact {
	return &types.Fact{Operator: types.Identifier(op), Args: []types.ArgTerm{types.Ident(types.Identifier(a)), types.Ident(types.Identifier(b))}}
}

func TestPushPopRoundTrip(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(fact("isA", "Rex", "Dog")))
	before := fs.Len()
	beforeVersion := fs.BundleVersion()

	st := New(fs)
	st.Push(0, nil)
	require.NoError(t, fs.Add(fact("isA", "Whiskers", "Cat")))
	assert.Equal(t, before+1, fs.Len())

	require.NoError(t, st.Pop())
	assert.Equal(t, before, fs.Len())
	assert.Greater(t, fs.BundleVersion(), beforeVersion)
}

func TestPopBelowBaseIsError(t *testing.T) {
	fs := store.New()
	st := New(fs)
	err := st.Pop()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestCommitKeepsModifications(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(fact("isA", "Rex", "Dog")))

	st := New(fs)
	st.Push(0, nil)
	require.NoError(t, fs.Add(fact("isA", "Whiskers", "Cat")))
	require.NoError(t, st.Commit())

	assert.Equal(t, 0, st.Depth())
	assert.Equal(t, 2, fs.Len())
}

func TestDimensionOverridesOutermostWins(t *testing.T) {
	fs := store.New()
	st := New(fs)
	st.Push(0, map[string]float64{"risk": 0.2})
	st.Push(0, map[string]float64{"risk": 0.8, "trust": 0.5})

	overrides := st.CurrentDimensionOverrides()
	assert.InDelta(t, 0.8, overrides["risk"], 1e-9)
	assert.InDelta(t, 0.5, overrides["trust"], 1e-9)
}

func TestResetReturnsToBaseWorld(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(fact("isA", "Rex", "Dog")))
	st := New(fs)
	st.Push(0, nil)
	require.NoError(t, fs.Add(fact("isA", "Whiskers", "Cat")))
	st.Push(0, nil)
	require.NoError(t, fs.Add(fact("isA", "Milo", "Cat")))

	st.Reset()
	assert.Equal(t, 0, st.Depth())
	assert.Equal(t, 1, fs.Len())
}
