package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unified-thinking/internal/config"
	"unified-thinking/internal/types"
)

func TestNewSessionWiresDefaults(t *testing.T) {
	s, err := New(nil, nil)
	require.NoError(t, err)
	assert.NotNil(t, s.Facts)
	assert.NotNil(t, s.Query)
	assert.NotNil(t, s.Symbols)
}

func TestAssertFactAndExecuteDirect(t *testing.T) {
	s, err := New(config.Default(), nil)
	require.NoError(t, err)

	_, err = s.AssertFact(types.Statement{Operator: "isA", Args: []types.ArgTerm{types.Ident("Rex"), types.Ident("Dog")}}, "")
	require.NoError(t, err)

	res := s.Execute("isA", []types.ArgTerm{types.Ident("Rex"), types.Ident("Dog")}, 0)
	assert.True(t, res.Success)
}

func TestAssertFactEncodesNegation(t *testing.T) {
	s, err := New(config.Default(), nil)
	require.NoError(t, err)

	fact, err := s.AssertFact(types.Statement{
		Operator: "Not",
		Args:     []types.ArgTerm{types.CompoundArg("can", types.Ident("Penguin"), types.Ident("Fly"))},
	}, "")
	require.NoError(t, err)
	assert.Equal(t, types.Negated, fact.Polarity)
	assert.Equal(t, types.Identifier("can"), fact.Metadata.Inner.Operator)
}

func TestDuplicateAssertIsIdempotent(t *testing.T) {
	s, err := New(config.Default(), nil)
	require.NoError(t, err)

	stmt := types.Statement{Operator: "isA", Args: []types.ArgTerm{types.Ident("Rex"), types.Ident("Dog")}}
	_, err = s.AssertFact(stmt, "")
	require.NoError(t, err)
	before := s.Facts.BundleVersion()
	_, err = s.AssertFact(stmt, "")
	require.NoError(t, err)
	assert.Equal(t, before, s.Facts.BundleVersion())
}

func TestStatsSnapshotReflectsQueries(t *testing.T) {
	s, err := New(config.Default(), nil)
	require.NoError(t, err)
	_, err = s.AssertFact(types.Statement{Operator: "isA", Args: []types.ArgTerm{types.Ident("Rex"), types.Ident("Dog")}}, "")
	require.NoError(t, err)

	s.Execute("isA", []types.ArgTerm{types.Ident("Rex"), types.HoleArg("x")}, 0)
	snap := s.StatsSnapshot()
	assert.GreaterOrEqual(t, snap.KBScans, uint64(1))
}
