package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArgTermText(t *testing.T) {
	id := Ident("Rex")
	assert.Equal(t, "Rex", id.Text())

	compound := CompoundArg("locatedIn", Ident("Rex"), Var("$x"))
	assert.Equal(t, "locatedIn(Rex,$x)", compound.Text())
}

func TestArgTermEqual(t *testing.T) {
	a := CompoundArg("isA", Ident("Rex"), Ident("Dog"))
	b := CompoundArg("isA", Ident("Rex"), Ident("Dog"))
	c := CompoundArg("isA", Ident("Rex"), Ident("Cat"))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
}

func TestIsReserved(t *testing.T) {
	assert.True(t, IsReserved("Implies"))
	assert.True(t, IsReserved("not"))
	assert.False(t, IsReserved("Rex"))
}

func TestFactKey(t *testing.T) {
	f := &Fact{Operator: "isA", Args: []ArgTerm{Ident("Rex"), Ident("Dog")}}
	assert.Equal(t, "isA(Rex,Dog)", f.Key())
}

func TestRuleValidate(t *testing.T) {
	valid := &Rule{
		ConclusionPattern: Pattern{Operator: "grandparentOf", Args: []ArgTerm{Var("$a"), Var("$c")}},
		ConditionTree: And(
			Leaf(Pattern{Operator: "parentOf", Args: []ArgTerm{Var("$a"), Var("$b")}}),
			Leaf(Pattern{Operator: "parentOf", Args: []ArgTerm{Var("$b"), Var("$c")}}),
		),
	}
	require.NoError(t, valid.Validate())

	invalid := &Rule{
		ConclusionPattern: Pattern{Operator: "grandparentOf", Args: []ArgTerm{Var("$a"), Var("$z")}},
		ConditionTree: Leaf(Pattern{Operator: "parentOf", Args: []ArgTerm{Var("$a"), Var("$b")}}),
	}
	err := invalid.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformedRule)
}
