package context

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func TestGetBindingSearchesLexicalAncestors(t *testing.T) {
	root := NewRootContext(map[string][]types.Item{"$$": {types.NewInteger(1)}}, 100)
	child := root.NewChildContext()
	child.SetBinding("x", []types.Item{types.NewInteger(2)})

	b, ok := child.GetBinding("$$")
	require.True(t, ok)
	assert.Equal(t, int64(1), b.Sequence[0].Int)

	b, ok = child.GetBinding("x")
	require.True(t, ok)
	assert.Equal(t, int64(2), b.Sequence[0].Int)

	_, ok = root.GetBinding("x")
	assert.False(t, ok, "a child's bindings must not leak into its parent")
}

func TestNewChildContextInheritsRootStateNotBindings(t *testing.T) {
	root := NewRootContext(nil, 100)
	root.SetBinding("shared", []types.Item{types.NewInteger(1)})
	child := root.NewChildContext()

	_, ok := child.GetBinding("shared")
	assert.True(t, ok, "child sees parent bindings through the lexical chain")

	root.Cancel()
	assert.True(t, child.Cancelled(), "cancellation is shared root state, visible from any descendant frame")
}

func TestCloneDetachesFromParentButKeepsSnapshot(t *testing.T) {
	root := NewRootContext(nil, 100)
	root.SetBinding("x", []types.Item{types.NewInteger(1)})
	clone := root.Clone()

	_, ok := clone.GetBinding("x")
	assert.True(t, ok)

	root.SetBinding("y", []types.Item{types.NewInteger(2)})
	_, ok = clone.GetBinding("y")
	assert.False(t, ok, "clone owns a snapshot, not a live view of further parent mutations")
}

func TestEnvSnapshotIDsAreUnique(t *testing.T) {
	root := NewRootContext(nil, 100)
	child1 := root.NewChildContext()
	child2 := root.NewChildContext()
	assert.NotEqual(t, child1.EnvSnapshotID(), child2.EnvSnapshotID())
	assert.NotEqual(t, root.EnvSnapshotID(), child1.EnvSnapshotID())
}

func TestWithPositionDoesNotMutateOriginal(t *testing.T) {
	root := NewRootContext(nil, 100)
	positioned := root.WithPosition(3, 10)

	assert.Equal(t, 0, root.Position())
	assert.Equal(t, 3, positioned.Position())
	assert.Equal(t, 10, positioned.Size())
}

func TestEnterCallEnforcesMaxDepth(t *testing.T) {
	root := NewRootContext(nil, 2)
	assert.True(t, root.EnterCall())
	assert.True(t, root.EnterCall())
	assert.False(t, root.EnterCall(), "third call exceeds the depth-2 budget")

	root.ExitCall()
	assert.True(t, root.EnterCall(), "depth budget frees up after ExitCall")
}

func TestEnterCallUnboundedWhenMaxDepthIsZero(t *testing.T) {
	root := NewRootContext(nil, 0)
	for i := 0; i < 1000; i++ {
		assert.True(t, root.EnterCall())
	}
}

func TestSetCursorBindingIsVisibleAsCursor(t *testing.T) {
	root := NewRootContext(nil, 100)
	c := &fakeCursor{items: []types.Item{types.NewInteger(1), types.NewInteger(2)}}
	root.SetCursorBinding("stream", c)

	b, ok := root.GetBinding("stream")
	require.True(t, ok)
	require.NotNil(t, b.Cursor)
	assert.True(t, b.Cursor.HasNext())
}

type fakeCursor struct {
	items []types.Item
	idx   int
}

func (f *fakeCursor) HasNext() bool { return f.idx < len(f.items) }
func (f *fakeCursor) Next() (types.Item, error) {
	v := f.items[f.idx]
	f.idx++
	return v, nil
}
