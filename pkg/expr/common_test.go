package expr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func TestSliceIteratorStreamsInOrder(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := newSliceIterator([]types.Item{types.NewInteger(1), types.NewInteger(2)})
	require.NoError(t, it.Open(context.Background(), dctx))

	var got []int64
	for it.HasNext() {
		v, err := it.Next()
		require.NoError(t, err)
		got = append(got, v.Int)
	}
	assert.Equal(t, []int64{1, 2}, got)
}

func TestSliceIteratorNextPastEndIsFlowError(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := newSliceIterator(nil)
	require.NoError(t, it.Open(context.Background(), dctx))
	assert.False(t, it.HasNext())
	_, err := it.Next()
	require.Error(t, err)
	var jerr *types.Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, types.ErrIteratorFlow, jerr.Code)
}

func TestSliceIteratorResetReevaluatesDeferred(t *testing.T) {
	calls := 0
	it := newLazyOp(func(context.Context, *rcontext.DynamicContext) ([]types.Item, error) {
		calls++
		return []types.Item{types.NewInteger(int64(calls))}, nil
	})
	dctx := rcontext.NewRootContext(nil, 100)

	require.NoError(t, it.Open(context.Background(), dctx))
	v, _ := it.Next()
	assert.Equal(t, int64(1), v.Int)

	require.NoError(t, it.Reset(context.Background(), dctx))
	v, _ = it.Next()
	assert.Equal(t, int64(2), v.Int, "Reset re-runs the deferred computation")
}

func TestDrainCollectsAllItems(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	seq, err := drain(context.Background(), dctx, Literal(types.NewInteger(1)))
	require.NoError(t, err)
	assert.Equal(t, []types.Item{types.NewInteger(1)}, seq)
}

func TestDrainHonorsCancellation(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	dctx.Cancel()
	it := newSliceIterator([]types.Item{types.NewInteger(1), types.NewInteger(2)})
	_, err := drain(context.Background(), dctx, it)
	require.Error(t, err)
}

func TestSingleRejectsEmptyAndMultiItemSequences(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)

	_, err := single(context.Background(), dctx, EmptySequence())
	require.Error(t, err)

	_, err = single(context.Background(), dctx, newSliceIterator([]types.Item{types.NewInteger(1), types.NewInteger(2)}))
	require.Error(t, err)

	v, err := single(context.Background(), dctx, Literal(types.NewInteger(7)))
	require.NoError(t, err)
	assert.Equal(t, int64(7), v.Int)
}

func TestSingleOrEmptyToleratesEmpty(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)

	_, ok, err := singleOrEmpty(context.Background(), dctx, EmptySequence())
	require.NoError(t, err)
	assert.False(t, ok)

	v, ok, err := singleOrEmpty(context.Background(), dctx, Literal(types.NewInteger(3)))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(3), v.Int)

	_, _, err = singleOrEmpty(context.Background(), dctx, newSliceIterator([]types.Item{types.NewInteger(1), types.NewInteger(2)}))
	require.Error(t, err)
}
