package negation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/store"
	"unified-thinking/internal/transitive"
	"unified-thinking/internal/types"
)

func TestIsNegatedViaNotFact(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(&types.Fact{
		Operator: "Not",
		Args:     []types.ArgTerm{types.CompoundArg("can", types.Ident("Penguin"), types.Ident("Fly"))},
	}))

	c := NewChecker(fs, nil, 0.85, nil)
	assert.True(t, c.IsNegated("can", []types.ArgTerm{types.Ident("Penguin"), types.Ident("Fly")}))
	assert.False(t, c.IsNegated("can", []types.ArgTerm{types.Ident("Sparrow"), types.Ident("Fly")}))
}

func TestApproxSoftMatchGatedByCallback(t *testing.T) {
	fs := store.New()
	c := NewChecker(fs, nil, 0.85, func(op types.Identifier, args []types.ArgTerm) (float64, bool) {
		return 0.9, true
	})
	assert.True(t, c.IsNegated("can", []types.ArgTerm{types.Ident("Penguin"), types.Ident("Fly")}))

	exactChecker := NewChecker(fs, nil, 0.85, nil)
	assert.False(t, exactChecker.IsNegated("can", []types.ArgTerm{types.Ident("Penguin"), types.Ident("Fly")}))
}

func TestIsPropertyNegatedViaAncestor(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(&types.Fact{Operator: "isA", Args: []types.ArgTerm{types.Ident("Penguin"), types.Ident("Bird")}}))
	require.NoError(t, fs.Add(&types.Fact{
		Operator: "Not",
		Args:     []types.ArgTerm{types.CompoundArg("can", types.Ident("Bird"), types.Ident("Fly"))},
	}))

	r := transitive.New(fs)
	c := NewChecker(fs, r, 0.85, nil)
	assert.True(t, c.IsPropertyNegated("can", "Penguin", "Fly"))
}
