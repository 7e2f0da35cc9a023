// Package context implements DynamicContext, the scope chain that threads
// variable bindings, the current context position/size, and cancellation
// state through a running query (spec §3 "DynamicContext lifecycle").
//
// The design mirrors the teacher evaluator's EvalContext (parent pointer,
// per-frame binding map, Clone-for-closures) generalized from a single
// "current data" value to the sequence/cursor bindings a FLWOR pipeline
// needs, plus a query-wide cancellation flag (spec §5).
package context

import (
	"sync/atomic"

	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// Binding is either a materialized sequence of items or a streaming cursor.
// Consumers must tolerate either form (spec §3).
type Binding struct {
	Sequence []types.Item
	Cursor   Cursor // non-nil when the binding is a streaming source instead
}

// Cursor is the minimal pull interface a streaming binding must support.
// A concrete RuntimeIterator satisfies this without pkg/context depending
// on pkg/runtime (avoids an import cycle: runtime depends on context).
type Cursor interface {
	HasNext() bool
	Next() (types.Item, error)
}

// snapshotCounter mints globally unique closure-environment identifiers so
// two Function items can report whether they close over the same frame,
// without pkg/types needing to know about DynamicContext at all.
var snapshotCounter uint64

// DynamicContext holds variable bindings for one FLWOR tuple / expression
// evaluation frame plus a borrowed pointer to its lexical parent.
type DynamicContext struct {
	parent   *DynamicContext
	bindings map[string]Binding

	position int // 1-based context position, for context-sensitive ops
	size     int // size of the context sequence being iterated

	root *rootState // shared by every frame descending from one query
	snap uint64
}

// rootState is the state shared by every DynamicContext frame in one query
// run: the cooperative cancellation flag (spec §5) and recursion depth
// budget consulted by FunctionCall (spec §4.5, §9 "Open questions").
type rootState struct {
	cancelled atomic.Bool
	depth     atomic.Int64
	maxDepth  int64
}

// NewRootContext creates the top-level context for a query, seeded with the
// static prolog bindings (spec §3).
func NewRootContext(prolog map[string][]types.Item, maxDepth int) *DynamicContext {
	bindings := make(map[string]Binding, len(prolog))
	for k, v := range prolog {
		bindings[k] = Binding{Sequence: v}
	}
	dc := &DynamicContext{
		bindings: bindings,
		root:     &rootState{maxDepth: int64(maxDepth)},
	}
	dc.snap = atomic.AddUint64(&snapshotCounter, 1)
	return dc
}

// NewChildContext pushes a new frame for one FLWOR tuple, borrowing the
// parent's root cancellation/depth state. Contexts are released (become
// unreachable) when their producing clause advances to the next tuple.
func (c *DynamicContext) NewChildContext() *DynamicContext {
	child := &DynamicContext{
		parent:   c,
		bindings: make(map[string]Binding),
		position: c.position,
		size:     c.size,
		root:     c.root,
	}
	child.snap = atomic.AddUint64(&snapshotCounter, 1)
	return child
}

// Clone creates a frame owning a shallow copy of the current bindings but no
// parent link — used when a function closure must escape its creating scope
// (spec §5 "Shared resources": closures own an immutable snapshot).
func (c *DynamicContext) Clone() *DynamicContext {
	cp := make(map[string]Binding, len(c.bindings))
	for k, v := range c.bindings {
		cp[k] = v
	}
	clone := &DynamicContext{
		parent:   c.parent,
		bindings: cp,
		position: c.position,
		size:     c.size,
		root:     c.root,
	}
	clone.snap = atomic.AddUint64(&snapshotCounter, 1)
	return clone
}

// EnvSnapshotID implements types.ClosureEnv.
func (c *DynamicContext) EnvSnapshotID() uint64 { return c.snap }

// SetBinding binds name to a materialized sequence in the current frame.
func (c *DynamicContext) SetBinding(name string, seq []types.Item) {
	c.bindings[name] = Binding{Sequence: seq}
}

// SetCursorBinding binds name to a streaming cursor in the current frame.
func (c *DynamicContext) SetCursorBinding(name string, cur Cursor) {
	c.bindings[name] = Binding{Cursor: cur}
}

// GetBinding searches the current frame then its lexical ancestors.
func (c *DynamicContext) GetBinding(name string) (Binding, bool) {
	for f := c; f != nil; f = f.parent {
		if b, ok := f.bindings[name]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

// Position and Size expose the context item's 1-based position and the
// size of the sequence currently being iterated (spec §3).
func (c *DynamicContext) Position() int { return c.position }
func (c *DynamicContext) Size() int     { return c.size }

// WithPosition returns a context identical to c but with position/size set,
// used by For/quantified/path iterators when binding a positional variable.
func (c *DynamicContext) WithPosition(pos, size int) *DynamicContext {
	cp := *c
	cp.position = pos
	cp.size = size
	return &cp
}

// Cancel sets the cooperative cancellation flag for the whole query tree.
func (c *DynamicContext) Cancel() { c.root.cancelled.Store(true) }

// Cancelled reports whether Cancel has been called anywhere in this query.
func (c *DynamicContext) Cancelled() bool { return c.root.cancelled.Load() }

// EnterCall increments the shared recursion depth counter and reports
// whether the call fits within the configured MaxDepth budget (spec §5, §9).
// A call that would exceed the budget is not counted and returns false.
// Callers must pair a successful EnterCall with ExitCall.
func (c *DynamicContext) EnterCall() bool {
	if c.root.maxDepth <= 0 {
		return true
	}
	d := c.root.depth.Add(1)
	if d > c.root.maxDepth {
		c.root.depth.Add(-1)
		return false
	}
	return true
}

// ExitCall decrements the shared recursion depth counter.
func (c *DynamicContext) ExitCall() { c.root.depth.Add(-1) }
