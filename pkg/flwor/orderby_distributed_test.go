package flwor

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/distributed/local"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func TestOrderByDistributedSortsByMaterializedKeyColumn(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	forIt := forFixedValues(t, "x", []int64{3, 1, 2})
	specs := []types.OrderSpec{{Expr: varRef("x"), Direction: types.Ascending}}
	backend := local.New()
	ob := OrderByDistributed(forIt, specs, testCompile, backend)

	require.NoError(t, ob.Open(context.Background(), dctx))
	var got []int64
	for ob.HasNext() {
		tup, err := ob.Next()
		require.NoError(t, err)
		got = append(got, tup.Bindings["x"][0].Int)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestOrderByDistributedDescending(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	forIt := forFixedValues(t, "x", []int64{3, 1, 2})
	specs := []types.OrderSpec{{Expr: varRef("x"), Direction: types.Descending}}
	ob := OrderByDistributed(forIt, specs, testCompile, local.New())

	require.NoError(t, ob.Open(context.Background(), dctx))
	var got []int64
	for ob.HasNext() {
		tup, err := ob.Next()
		require.NoError(t, err)
		got = append(got, tup.Bindings["x"][0].Int)
	}
	assert.Equal(t, []int64{3, 2, 1}, got)
}

func TestOrderByDistributedCrossFamilyKeysAreTypeError(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	forIt := For(Root(), "x", "", &types.ASTNode{
		Type: types.NodeSequenceConcat,
		Children: []*types.ASTNode{
			intLit(1),
			{Type: types.NodeStringLiteral, StrValue: "a"},
		},
	}, testCompile, false)
	specs := []types.OrderSpec{{Expr: varRef("x"), Direction: types.Ascending}}
	ob := OrderByDistributed(forIt, specs, testCompile, local.New())

	err := ob.Open(context.Background(), dctx)
	require.Error(t, err)
	var jerr *types.Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, types.ErrTypeError, jerr.Code)
}

func TestOrderByDistributedSortsByDurationKey(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	forIt := For(Root(), "x", "", &types.ASTNode{
		Type: types.NodeSequenceConcat,
		Children: []*types.ASTNode{
			durationLit(false, 3000),
			durationLit(false, 1000),
			durationLit(false, 2000),
		},
	}, testCompile, false)
	specs := []types.OrderSpec{{Expr: varRef("x"), Direction: types.Ascending}}
	ob := OrderByDistributed(forIt, specs, testCompile, local.New())

	require.NoError(t, ob.Open(context.Background(), dctx))
	var got []int64
	for ob.HasNext() {
		tup, err := ob.Next()
		require.NoError(t, err)
		got = append(got, tup.Bindings["x"][0].DurationMillis)
	}
	assert.Equal(t, []int64{1000, 2000, 3000}, got)
}

func TestOrderByDistributedBinaryKeyIsUnexpectedTypeError(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	forIt := forFixedValues(t, "x", []int64{1})
	specs := []types.OrderSpec{{Expr: binaryLit([]byte{0x01}), Direction: types.Ascending}}
	ob := OrderByDistributed(forIt, specs, testCompile, local.New())
	err := ob.Open(context.Background(), dctx)
	require.Error(t, err)
	var jerr *types.Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, types.ErrUnexpectedType, jerr.Code)
}

func TestOrderByDistributedMultiItemKeyIsNonAtomicKeyError(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	forIt := forFixedValues(t, "x", []int64{1})
	specs := []types.OrderSpec{{Expr: seqLit(1, 2), Direction: types.Ascending}}
	ob := OrderByDistributed(forIt, specs, testCompile, local.New())
	err := ob.Open(context.Background(), dctx)
	require.Error(t, err)
	var jerr *types.Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, types.ErrNonAtomicKey, jerr.Code)
}

func TestOrderByDistributedEmptyInputYieldsNoRows(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	forIt := forFixedValues(t, "x", nil)
	specs := []types.OrderSpec{{Expr: varRef("x"), Direction: types.Ascending}}
	ob := OrderByDistributed(forIt, specs, testCompile, local.New())
	require.NoError(t, ob.Open(context.Background(), dctx))
	assert.False(t, ob.HasNext())
}
