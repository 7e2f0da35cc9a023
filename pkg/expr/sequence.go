package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/distributed"
	"github.com/sandrolain/jsoniqcore/pkg/distributed/local"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// concatIterator streams its children back to back without materializing
// them all up front, so a "(e1, e2, ...)" sequence constructor over
// streaming children stays streaming itself (spec §4.5 Sequence) — unless
// one of them is a Hybrid iterator reporting isRDD() or isDataFrame(), in
// which case this node itself switches to distributed mode per spec §4.1
// "Hybrid iterator": the decision is made once at Open and cached, Next()
// becomes an error, and callers must call GetRDD instead.
type concatIterator struct {
	children []runtime.RuntimeIterator
	idx      int
	ctx      context.Context
	dctx     *rcontext.DynamicContext

	decided bool
	rdd     bool
}

// SequenceConcat builds the "(e1, e2, ..., en)" sequence constructor.
func SequenceConcat(children ...runtime.RuntimeIterator) *concatIterator {
	return &concatIterator{children: children}
}

func (c *concatIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	c.idx = 0
	c.ctx, c.dctx = ctx, dctx
	if !c.decided {
		for _, ch := range c.children {
			if ch.IsRDD() || ch.IsDataFrame() {
				c.rdd = true
				break
			}
		}
		c.decided = true
	}
	if c.rdd || len(c.children) == 0 {
		return nil
	}
	return c.children[0].Open(ctx, dctx)
}

func (c *concatIterator) Kind() runtime.ExecutionKind {
	if c.rdd {
		return runtime.RDDCapable
	}
	return runtime.LocalOnly
}

func (c *concatIterator) IsRDD() bool { return c.rdd }

// GetRDD merges every child's contribution into a single ItemCollection: an
// RDD-capable child hands over its collection directly (via GetRDD), and
// every other child, a DataFrame-capable one included, is drained the
// ordinary way through Open/Next (GetDataFrame is never called). The merged result is wrapped through the
// local backend, this module's reference distributed.Backend, since a bare
// sequence constructor carries no backend reference of its own — the point
// is to hand back a real distributed.ItemCollection, not which backend
// produced it.
func (c *concatIterator) GetRDD(ctx context.Context) (distributed.ItemCollection, error) {
	if !c.rdd {
		return nil, runtime.FlowError("GetRDD called on a non-RDD-capable iterator")
	}
	var items []types.Item
	for _, ch := range c.children {
		var (
			seq []types.Item
			err error
		)
		if ch.IsRDD() {
			var coll distributed.ItemCollection
			coll, err = ch.GetRDD(ctx)
			if err == nil {
				seq, err = coll.Collect(ctx)
			}
		} else {
			seq, err = drain(ctx, c.dctx, ch)
		}
		if err != nil {
			return nil, err
		}
		items = append(items, seq...)
	}
	return local.New().NewItemCollection(items), nil
}

func (c *concatIterator) IsDataFrame() bool { return false }

func (c *concatIterator) GetDataFrame(context.Context, []string) (distributed.DataFrame, error) {
	return nil, runtime.FlowError("GetDataFrame called on a non-DataFrame-capable iterator")
}

// advance closes and skips past exhausted children, opening the next
// not-yet-opened child as it moves onto it, so children[idx] is always
// either exhausted-and-behind or open-and-current when this returns.
func (c *concatIterator) advance() error {
	for c.idx < len(c.children) && !c.children[c.idx].HasNext() {
		if err := c.children[c.idx].Close(); err != nil {
			return err
		}
		c.idx++
		if c.idx < len(c.children) {
			if err := c.children[c.idx].Open(c.ctx, c.dctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *concatIterator) HasNext() bool {
	if c.rdd {
		return false
	}
	if err := c.advance(); err != nil {
		return true // surface the error through Next
	}
	return c.idx < len(c.children)
}

func (c *concatIterator) Next() (types.Item, error) {
	if c.rdd {
		return types.Item{}, runtime.FlowError("Next called on a distributed-mode Hybrid iterator: call GetRDD instead")
	}
	if err := c.advance(); err != nil {
		return types.Item{}, err
	}
	if c.idx >= len(c.children) {
		return types.Item{}, runtime.FlowError("Next called with HasNext false")
	}
	return c.children[c.idx].Next()
}

func (c *concatIterator) Close() error {
	if c.rdd {
		// Distributed mode never opens a child directly (GetRDD either
		// delegates to an already-self-contained GetRDD call or drains
		// through drain(), which pairs its own Open/Close) — closing here
		// too would cascade into a callee this node itself never opened.
		return nil
	}
	var first error
	for _, ch := range c.children {
		if err := ch.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *concatIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := c.Close(); err != nil {
		return err
	}
	return c.Open(ctx, dctx)
}
