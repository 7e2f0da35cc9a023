package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/distributed"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// distributedItemsIterator wraps an already-materialized distributed.
// ItemCollection as a RuntimeIterator leaf (spec §4.1 "Hybrid iterator",
// RDDCapable case): it reports isRDD() true unconditionally, since it exists
// specifically to hand a backend-native collection to whatever built it —
// GetRDD returns the collection itself, no copy. Next()/HasNext() are still
// implemented, by draining the collection through Collect() at Open, for a
// caller that never asks isRDD() and just streams it like anything else.
//
// Grounded on itemsource/parquet.Source's IsDataFrame()-always-true leaf on
// the tabular side; this is the same shape on the row-collection side, and
// the concrete case DynamicallyResolvedFunctionCallIterator's initIsRDD()
// pattern (delegate to a resolved child rather than recompute) is grounded
// on when a downstream node consumes this leaf's IsRDD() result.
type distributedItemsIterator struct {
	runtime.Base
	coll distributed.ItemCollection

	items []types.Item
	pos   int
}

// DistributedItems builds a RuntimeIterator leaf over a pre-built
// distributed.ItemCollection, e.g. one produced by a distributed.Backend
// from an external item source (spec §6).
func DistributedItems(coll distributed.ItemCollection) *distributedItemsIterator {
	return &distributedItemsIterator{coll: coll}
}

func (d *distributedItemsIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	items, err := d.coll.Collect(ctx)
	if err != nil {
		return err
	}
	d.items = items
	d.pos = 0
	return nil
}

func (d *distributedItemsIterator) HasNext() bool { return d.pos < len(d.items) }

func (d *distributedItemsIterator) Next() (types.Item, error) {
	if !d.HasNext() {
		return types.Item{}, runtime.FlowError("Next called with HasNext false")
	}
	v := d.items[d.pos]
	d.pos++
	return v, nil
}

func (d *distributedItemsIterator) Close() error { return nil }

func (d *distributedItemsIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return d.Open(ctx, dctx)
}

func (d *distributedItemsIterator) Kind() runtime.ExecutionKind { return runtime.RDDCapable }

func (d *distributedItemsIterator) IsRDD() bool { return true }

func (d *distributedItemsIterator) GetRDD(ctx context.Context) (distributed.ItemCollection, error) {
	return d.coll, nil
}
