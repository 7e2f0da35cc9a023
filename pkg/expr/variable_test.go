package expr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func TestVariableRefResolvesFromBinding(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	dctx.SetBinding("x", []types.Item{types.NewInteger(1), types.NewInteger(2)})

	it := VariableRef("x")
	require.NoError(t, it.Open(context.Background(), dctx))

	var got []int64
	for it.HasNext() {
		v, err := it.Next()
		require.NoError(t, err)
		got = append(got, v.Int)
	}
	assert.Equal(t, []int64{1, 2}, got)
}

func TestVariableRefUnboundIsDynamicError(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := VariableRef("nope")
	err := it.Open(context.Background(), dctx)
	require.Error(t, err)
	var jerr *types.Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, types.ErrDynamicError, jerr.Code)
}

type fakeVarCursor struct {
	items []types.Item
	idx   int
}

func (f *fakeVarCursor) HasNext() bool { return f.idx < len(f.items) }
func (f *fakeVarCursor) Next() (types.Item, error) {
	v := f.items[f.idx]
	f.idx++
	return v, nil
}

func TestVariableRefDrainsCursorBindingOnce(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	cur := &fakeVarCursor{items: []types.Item{types.NewInteger(5)}}
	dctx.SetCursorBinding("stream", cur)

	it := VariableRef("stream")
	require.NoError(t, it.Open(context.Background(), dctx))
	require.True(t, it.HasNext())
	v, err := it.Next()
	require.NoError(t, err)
	assert.Equal(t, int64(5), v.Int)
	assert.False(t, it.HasNext())
}
