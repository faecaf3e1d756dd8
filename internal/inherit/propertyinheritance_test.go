package inherit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/negation"
	"unified-thinking/internal/semindex"
	"unified-thinking/internal/store"
	"unified-thinking/internal/transitive"
	"unified-thinking/internal/types"
)

func fact(op, a, b string) *types.Fact {
	return &types.Fact{Operator: types.Identifier(op), Args: []types.ArgTerm{types.Ident(types.Identifier(a)), types.Ident(types.Identifier(b))}}
}

func TestByValueInheritsFromAncestor(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(fact("isA", "Rex", "Dog")))
	require.NoError(t, fs.Add(fact("isA", "Dog", "Animal")))
	require.NoError(t, fs.Add(fact("hasLegCount", "Dog", "4")))

	idx := semindex.NewDefault()
	idx.Define("hasLegCount", semindex.RelationProperties{Inheritable: true})
	r := transitive.New(fs)
	neg := negation.NewChecker(fs, r, 0.85, nil)
	eng := New(fs, r, idx, neg)

	bindings := eng.ByValue("hasLegCount", "Rex")
	require.Len(t, bindings, 1)
	assert.Equal(t, "4", bindings[0].Answer)
	assert.Equal(t, types.Identifier("Dog"), bindings[0].InheritedFrom)
	assert.InDelta(t, 0.85, bindings[0].Similarity, 1e-9)
	assert.Equal(t, types.MethodPropertyInheritance, bindings[0].Method)
}

func TestByValueDirectOverridesNothingButBothSurface(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(fact("isA", "Rex", "Dog")))
	require.NoError(t, fs.Add(fact("hasLegCount", "Dog", "4")))
	require.NoError(t, fs.Add(fact("hasLegCount", "Rex", "3")))

	idx := semindex.NewDefault()
	idx.Define("hasLegCount", semindex.RelationProperties{Inheritable: true})
	r := transitive.New(fs)
	eng := New(fs, r, idx, negation.NewChecker(fs, r, 0.85, nil))

	bindings := eng.ByValue("hasLegCount", "Rex")
	values := map[string]float64{}
	for _, b := range bindings {
		values[b.Answer] = b.Similarity
	}
	assert.InDelta(t, 0.9, values["3"], 1e-9)
	assert.InDelta(t, 0.85, values["4"], 1e-9)
}

func TestByValueSuppressedByNegation(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(fact("isA", "Penguin", "Bird")))
	require.NoError(t, fs.Add(fact("can", "Bird", "Fly")))
	require.NoError(t, fs.Add(&types.Fact{
		Operator: "Not",
		Args:     []types.ArgTerm{types.CompoundArg("can", types.Ident("Bird"), types.Ident("Fly"))},
	}))

	idx := semindex.NewDefault()
	idx.Define("can", semindex.RelationProperties{Inheritable: true})
	r := transitive.New(fs)
	neg := negation.NewChecker(fs, r, 0.85, nil)
	eng := New(fs, r, idx, neg)

	bindings := eng.ByValue("can", "Penguin")
	assert.Empty(t, bindings)
}

func TestBySubjectFindsDescendantsOfHolder(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(fact("isA", "Rex", "Dog")))
	require.NoError(t, fs.Add(fact("hasLegCount", "Dog", "4")))

	idx := semindex.NewDefault()
	idx.Define("hasLegCount", semindex.RelationProperties{Inheritable: true})
	r := transitive.New(fs)
	eng := New(fs, r, idx, negation.NewChecker(fs, r, 0.85, nil))

	bindings := eng.BySubject("hasLegCount", "4")
	answers := map[string]bool{}
	for _, b := range bindings {
		answers[b.Answer] = true
	}
	assert.True(t, answers["Dog"])
	assert.True(t, answers["Rex"])
}

func TestNonInheritableRelationYieldsNothing(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(fact("isA", "Rex", "Dog")))
	require.NoError(t, fs.Add(fact("nickname", "Dog", "Pup")))

	idx := semindex.NewDefault() // nickname never declared inheritable
	r := transitive.New(fs)
	eng := New(fs, r, idx, negation.NewChecker(fs, r, 0.85, nil))

	assert.Empty(t, eng.ByValue("nickname", "Rex"))
}
