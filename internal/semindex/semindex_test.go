package semindex

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/store"
	"unified-thinking/internal/types"
)

func TestDefaultTransitiveSet(t *testing.T) {
	idx := NewDefault()
	assert.True(t, idx.IsTransitive("isA"))
	assert.True(t, idx.IsTransitive("causes"))
	assert.False(t, idx.IsTransitive("owns"))
}

func TestInheritablePropertyIsDictionaryDriven(t *testing.T) {
	idx := NewDefault()
	assert.False(t, idx.IsInheritableProperty("can"))
	idx.Define("can", RelationProperties{Inheritable: true})
	assert.True(t, idx.IsInheritableProperty("can"))
}

func TestIsTypeClass(t *testing.T) {
	fs := store.New()
	require.NoError(t, fs.Add(&types.Fact{Operator: "isA", Args: []types.ArgTerm{types.Ident("Rex"), types.Ident("Dog")}}))

	idx := NewDefault()
	assert.True(t, idx.IsTypeClass("Dog", fs))
	assert.False(t, idx.IsTypeClass("Rex", fs))
}

func TestLoadDictionary(t *testing.T) {
	src := strings.NewReader(`
# comment
locatedIn __TransitiveRelation
marriedTo __SymmetricRelation inverseOf=marriedTo
hasProperty __InheritableProperty
`)
	idx, err := LoadDictionary(src)
	require.NoError(t, err)
	assert.True(t, idx.IsTransitive("locatedIn"))
	assert.True(t, idx.IsSymmetric("marriedTo"))
	inv, ok := idx.InverseOf("marriedTo")
	assert.True(t, ok)
	assert.Equal(t, types.Identifier("marriedTo"), inv)
	assert.True(t, idx.IsInheritableProperty("hasProperty"))
}
