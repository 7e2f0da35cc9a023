package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// rangeIterator streams the integers of "a to b" without materializing the
// whole span up front — like the sequence constructor, it keeps the
// teacher's original laziness instead of collapsing to
// sliceIterator, since a range's extent can be large and each successive
// value is cheap to derive from the last (spec §4.5 Range).
type rangeIterator struct {
	runtime.Base
	lo, hi runtime.RuntimeIterator
	cur    int64
	end    int64
	done   bool
}

// Range builds the "a to b" iterator: empty when lo > hi, a dynamic error
// if either bound is not a singleton, a type error if it is not an integer.
func Range(lo, hi runtime.RuntimeIterator) *rangeIterator {
	return &rangeIterator{lo: lo, hi: hi}
}

func (r *rangeIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	lo, err := single(ctx, dctx, r.lo)
	if err != nil {
		return err
	}
	hi, err := single(ctx, dctx, r.hi)
	if err != nil {
		return err
	}
	if lo.Kind != types.KindInteger || hi.Kind != types.KindInteger {
		return types.NewError(types.ErrTypeError, "range bounds must be integers", -1)
	}
	r.cur = lo.Int
	r.end = hi.Int
	r.done = r.cur > r.end
	return nil
}

func (r *rangeIterator) HasNext() bool { return !r.done }

func (r *rangeIterator) Next() (types.Item, error) {
	if r.done {
		return types.Item{}, runtime.FlowError("Next called with HasNext false")
	}
	v := types.NewInteger(r.cur)
	if r.cur == r.end {
		r.done = true
	} else {
		r.cur++
	}
	return v, nil
}

func (r *rangeIterator) Close() error { return nil }

func (r *rangeIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return r.Open(ctx, dctx)
}
