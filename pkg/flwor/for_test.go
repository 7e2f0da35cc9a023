package flwor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func TestForEmitsOneTuplePerItem(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := forFixedValues(t, "x", []int64{1, 2, 3})
	require.NoError(t, it.Open(context.Background(), dctx))

	var got []int64
	for it.HasNext() {
		tup, err := it.Next()
		require.NoError(t, err)
		got = append(got, tup.Bindings["x"][0].Int)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestForBindsPositionVariableOneBased(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := For(Root(), "x", "p", seqLit(9, 8, 7), testCompile, false)
	require.NoError(t, it.Open(context.Background(), dctx))

	var positions []int64
	for it.HasNext() {
		tup, err := it.Next()
		require.NoError(t, err)
		positions = append(positions, tup.Bindings["p"][0].Int)
	}
	assert.Equal(t, []int64{1, 2, 3}, positions)
}

func TestForWithoutAllowEmptyOnEmptySourceContributesNoTuples(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := For(Root(), "x", "", seqLit(), testCompile, false)
	require.NoError(t, it.Open(context.Background(), dctx))
	assert.False(t, it.HasNext())
}

func TestForAllowingEmptyBindsVariableToEmptySequenceOnce(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := For(Root(), "x", "", seqLit(), testCompile, true)
	require.NoError(t, it.Open(context.Background(), dctx))

	require.True(t, it.HasNext())
	tup, err := it.Next()
	require.NoError(t, err)
	assert.Empty(t, tup.Bindings["x"])
	assert.False(t, it.HasNext())
}

func TestForAllowingEmptyBindsPositionZeroOnEmptyPass(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := For(Root(), "x", "p", seqLit(), testCompile, true)
	require.NoError(t, it.Open(context.Background(), dctx))
	tup, err := it.Next()
	require.NoError(t, err)
	require.Len(t, tup.Bindings["p"], 1)
	assert.Equal(t, int64(0), tup.Bindings["p"][0].Int)
}

func TestForBoundVariablesIncludesPositionVarWhenSet(t *testing.T) {
	it := For(Root(), "x", "p", seqLit(1), testCompile, false)
	assert.ElementsMatch(t, []string{"x", "p"}, it.BoundVariables())
}

func TestForVariableDependenciesReflectsExprAnnotation(t *testing.T) {
	node := seqLit(1)
	node.Dependencies = map[string]types.DependencyKind{"outer": types.DependencyFull}
	it := For(Root(), "x", "", node, testCompile, false)
	assert.Equal(t, types.DependencyFull, it.VariableDependencies()["outer"])
}

func TestForIsDataFrameFalseOverALocalSourceAndChain(t *testing.T) {
	it := For(Root(), "x", "", seqLit(1, 2), testCompile, false)
	assert.False(t, it.IsDataFrame())
}

func TestForIsDataFrameTrueWhenOwnSourceResolvesToADistributedSource(t *testing.T) {
	it := For(Root(), "x", "", dataFrameSourceLit(1), testCompile, false)
	assert.True(t, it.IsDataFrame())
}

func TestForIsDataFrameTrueWhenUpstreamChainIsAlreadyDistributed(t *testing.T) {
	upstream := For(Root(), "y", "", dataFrameSourceLit(1), testCompile, false)
	it := For(upstream, "x", "", seqLit(1), testCompile, false)
	assert.True(t, it.IsDataFrame())
}
