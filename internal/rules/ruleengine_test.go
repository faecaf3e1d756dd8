package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/semindex"
	"unified-thinking/internal/store"
	"unified-thinking/internal/transitive"
	"unified-thinking/internal/types"
)

func parentOf(a, b string) *types.Fact {
	return &types.Fact{Operator: "parentOf", Args: []types.ArgTerm{types.Ident(types.Identifier(a)), types.Ident(types.Identifier(b))}}
}

func TestGrandparentDerivation_S2(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(parentOf("Alice", "Bob")))
	require.NoError(t, fs.Add(parentOf("Bob", "Carol")))

	r := transitive.New(fs)
	idx := semindex.NewDefault()
	eng := New(fs, r, idx)

	rule := &types.Rule{
		Name:              "grandparentOf",
		ConclusionPattern: types.Pattern{Operator: "grandparentOf", Args: []types.ArgTerm{types.Var("$a"), types.Var("$c")}},
		ConditionTree: types.And(
			types.Leaf(types.Pattern{Operator: "parentOf", Args: []types.ArgTerm{types.Var("$a"), types.Var("$b")}}),
			types.Leaf(types.Pattern{Operator: "parentOf", Args: []types.ArgTerm{types.Var("$b"), types.Var("$c")}}),
		),
	}
	require.NoError(t, eng.AddRule(rule))

	matches := eng.Match("grandparentOf",
		[]Known{{Index: 1, Value: "Alice"}},
		[]Hole{{Index: 2, Name: "x"}},
		0,
	)
	require.Len(t, matches, 1)
	assert.Equal(t, "Carol", matches[0].Bindings["x"])
	assert.Contains(t, matches[0].Steps, "b=Bob")
	assert.Equal(t, "Applied rule: grandparentOf", matches[0].Steps[len(matches[0].Steps)-1])
}

func TestMalformedRuleRejectedAtRegistration(t *testing.T) {
	fs := store.New()
	r := transitive.New(fs)
	idx := semindex.NewDefault()
	eng := New(fs, r, idx)

	bad := &types.Rule{
		ConclusionPattern: types.Pattern{Operator: "grandparentOf", Args: []types.ArgTerm{types.Var("$a"), types.Var("$z")}},
		ConditionTree:     types.Leaf(types.Pattern{Operator: "parentOf", Args: []types.ArgTerm{types.Var("$a"), types.Var("$b")}}),
	}
	err := eng.AddRule(bad)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrMalformedRule)
}

func TestOrConditionUnion(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(&types.Fact{Operator: "mother", Args: []types.ArgTerm{types.Ident("Alice"), types.Ident("Bob")}}))
	require.NoError(t, fs.Add(&types.Fact{Operator: "father", Args: []types.ArgTerm{types.Ident("Carl"), types.Ident("Dan")}}))

	r := transitive.New(fs)
	idx := semindex.NewDefault()
	eng := New(fs, r, idx)

	rule := &types.Rule{
		Name:              "parentOf",
		ConclusionPattern: types.Pattern{Operator: "parentOf", Args: []types.ArgTerm{types.Var("$p"), types.Var("$c")}},
		ConditionTree: types.Or(
			types.Leaf(types.Pattern{Operator: "mother", Args: []types.ArgTerm{types.Var("$p"), types.Var("$c")}}),
			types.Leaf(types.Pattern{Operator: "father", Args: []types.ArgTerm{types.Var("$p"), types.Var("$c")}}),
		),
	}
	require.NoError(t, eng.AddRule(rule))

	matches := eng.Match("parentOf", nil, []Hole{{Index: 1, Name: "p"}, {Index: 2, Name: "c"}}, 0)
	require.Len(t, matches, 2)
}

func TestTypeWidenedConstantMatch(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(&types.Fact{Operator: "isA", Args: []types.ArgTerm{types.Ident("Rex"), types.Ident("Dog")}}))
	require.NoError(t, fs.Add(&types.Fact{Operator: "isA", Args: []types.ArgTerm{types.Ident("Dog"), types.Ident("Animal")}}))
	require.NoError(t, fs.Add(&types.Fact{Operator: "friendly", Args: []types.ArgTerm{types.Ident("Rex")}}))

	r := transitive.New(fs)
	idx := semindex.NewDefault()
	eng := New(fs, r, idx)

	// conclusion: goodPet X <= friendly X AND isA X Animal (constant "Animal"
	// widened via transitive isA).
	rule := &types.Rule{
		Name:              "goodPet",
		ConclusionPattern: types.Pattern{Operator: "goodPet", Args: []types.ArgTerm{types.Var("$x")}},
		ConditionTree: types.And(
			types.Leaf(types.Pattern{Operator: "friendly", Args: []types.ArgTerm{types.Var("$x")}}),
			types.Leaf(types.Pattern{Operator: "isA", Args: []types.ArgTerm{types.Var("$x"), types.Ident("Animal")}}),
		),
	}
	require.NoError(t, eng.AddRule(rule))

	matches := eng.Match("goodPet", nil, []Hole{{Index: 1, Name: "who"}}, 0)
	require.Len(t, matches, 1)
	assert.Equal(t, "Rex", matches[0].Bindings["who"])
}
