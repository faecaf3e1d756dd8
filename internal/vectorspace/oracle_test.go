package vectorspace

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"unified-thinking/internal/types"
)

func TestExactOracleFromNameDeterministic(t *testing.T) {
	o := NewExactOracle(512)
	a := o.FromName("Rex")
	b := o.FromName("Rex")
	assert.Equal(t, a.Dims, b.Dims, "FromName must be a pure function of the name and geometry")
}

func TestExactOracleFromNameDistinct(t *testing.T) {
	o := NewExactOracle(512)
	a := o.FromName("Rex")
	b := o.FromName("Fido")
	assert.NotEqual(t, a.Dims, b.Dims)
	assert.Less(t, o.Similarity(a, b), 0.99)
}

func TestExactOracleSimilaritySelf(t *testing.T) {
	o := NewExactOracle(256)
	a := o.FromName("Socrates")
	assert.InDelta(t, 1.0, o.Similarity(a, a), 1e-6)
}

func TestExactOracleWithPositionDistinguishesOrder(t *testing.T) {
	o := NewExactOracle(256)
	v := o.FromName("Alice")
	p1 := o.WithPosition(v, 1)
	p2 := o.WithPosition(v, 2)
	assert.NotEqual(t, p1.Dims, p2.Dims)
}

func TestSymbolTableInternCaches(t *testing.T) {
	o := NewExactOracle(256)
	st := NewSymbolTable(o)

	first := st.Intern("Rex")
	second := st.Intern("Rex")
	assert.Equal(t, first.Dims, second.Dims)
	assert.Equal(t, 1, st.Size())
}

func TestSymbolTableEncodeFactOrderSensitive(t *testing.T) {
	o := NewExactOracle(256)
	st := NewSymbolTable(o)

	ab := st.EncodeFact("parentOf", []types.ArgTerm{types.Ident("Alice"), types.Ident("Bob")})
	ba := st.EncodeFact("parentOf", []types.ArgTerm{types.Ident("Bob"), types.Ident("Alice")})
	assert.NotEqual(t, ab.Dims, ba.Dims)
}

func TestSymbolTableEncodeFactDeterministic(t *testing.T) {
	o := NewExactOracle(256)
	st := NewSymbolTable(o)

	args := []types.ArgTerm{types.Ident("Alice"), types.Ident("Bob")}
	first := st.EncodeFact("parentOf", args)
	second := st.EncodeFact("parentOf", args)
	assert.Equal(t, first.Dims, second.Dims)
}

func TestSymbolTableEncodeFactMemoizesRepeatedCalls(t *testing.T) {
	o := NewExactOracle(256)
	st := NewSymbolTable(o)

	args := []types.ArgTerm{types.Ident("Alice"), types.Ident("Bob")}
	st.EncodeFact("parentOf", args)
	assert.Equal(t, 1, st.factCache.Size())

	st.EncodeFact("parentOf", args)
	assert.Equal(t, 1, st.factCache.Size(), "second call with identical key must hit the cache, not add an entry")

	st.EncodeFact("parentOf", []types.ArgTerm{types.Ident("Carol"), types.Ident("Dave")})
	assert.Equal(t, 2, st.factCache.Size())
}
