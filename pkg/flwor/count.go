package flwor

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// countIterator implements a "count $var" clause (spec §4.3): binds $var to
// the 1-based ordinal of each tuple as it flows through, without filtering
// or duplicating anything.
type countIterator struct {
	child    runtime.TupleIterator
	variable string
	n        int64
}

// Count builds a count-clause TupleIterator over child.
func Count(child runtime.TupleIterator, variable string) *countIterator {
	return &countIterator{child: child, variable: variable}
}

func (c *countIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	c.n = 0
	return c.child.Open(ctx, dctx)
}

func (c *countIterator) HasNext() bool { return c.child.HasNext() }

func (c *countIterator) Next() (runtime.Tuple, error) {
	t, err := c.child.Next()
	if err != nil {
		return runtime.Tuple{}, err
	}
	c.n++
	return t.With(c.variable, []types.Item{types.NewInteger(c.n)}), nil
}

func (c *countIterator) Close() error { return c.child.Close() }

func (c *countIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := c.child.Reset(ctx, dctx); err != nil {
		return err
	}
	return c.Open(ctx, dctx)
}

func (c *countIterator) BoundVariables() []string { return []string{c.variable} }

func (c *countIterator) VariableDependencies() map[string]types.DependencyKind { return nil }

func (c *countIterator) Projection(parent map[string]types.DependencyKind) map[string]types.DependencyKind {
	return c.child.Projection(parent)
}

func (c *countIterator) IsDataFrame() bool { return c.child.IsDataFrame() }
