// Package expr implements the expression iterators of spec §4.5:
// arithmetic, comparison, logical, range, sequence constructors,
// path/postfix, if/switch/typeswitch, quantified, function call, and
// literal/variable-reference leaves. Every constructor returns a
// runtime.RuntimeIterator, so the FLWOR pipeline in pkg/flwor composes them
// uniformly regardless of expression shape.
//
// Grounded on the teacher's per-node-kind eval* functions (eval_operators.go,
// eval_impl.go, eval_path.go) which evaluate a node against an EvalContext
// and return a value directly; here each of those becomes a RuntimeIterator
// constructor. Most operators are not usefully lazy (arithmetic, comparison,
// logical, conditionals all need their operand values before producing a
// result) so they materialize eagerly at Open time and stream from a slice
// cursor — Range and the sequence constructor are the exceptions, staying
// lazy per spec §4.5.
package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// sliceIterator streams a pre-materialized sequence. It is the terminal
// building block every eager expression iterator below reduces to once its
// Open-time computation has produced a result sequence.
type sliceIterator struct {
	runtime.Base
	items    []types.Item
	pos      int
	deferred func(context.Context, *rcontext.DynamicContext) ([]types.Item, error)
}

func newSliceIterator(items []types.Item) *sliceIterator {
	return &sliceIterator{items: items}
}

func (s *sliceIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	s.pos = 0
	if s.deferred != nil {
		items, err := s.deferred(ctx, dctx)
		if err != nil {
			return err
		}
		s.items = items
	}
	return nil
}
func (s *sliceIterator) HasNext() bool                                       { return s.pos < len(s.items) }
func (s *sliceIterator) Next() (types.Item, error) {
	if !s.HasNext() {
		return types.Item{}, runtime.FlowError("Next called with HasNext false")
	}
	it := s.items[s.pos]
	s.pos++
	return it, nil
}
func (s *sliceIterator) Close() error { return nil }
func (s *sliceIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return s.Open(ctx, dctx)
}

// drain fully consumes a child RuntimeIterator into a slice, honoring
// cooperative cancellation between items (spec §5).
//
// If it reports isRDD() once opened, this is the Hybrid iterator's dynamic
// dispatch point (spec §4.1): rather than pulling item-by-item, the result
// is retrieved through GetRDD().Collect(), the same "ask the callee, don't
// guess" delegation DynamicallyResolvedFunctionCallIterator's initIsRDD()
// uses to decide isRDD() from a resolved child instead of recomputing it.
func drain(ctx context.Context, dctx *rcontext.DynamicContext, it runtime.RuntimeIterator) ([]types.Item, error) {
	if err := it.Open(ctx, dctx); err != nil {
		return nil, err
	}
	defer it.Close()
	if it.IsRDD() {
		coll, err := it.GetRDD(ctx)
		if err != nil {
			return nil, err
		}
		return coll.Collect(ctx)
	}
	var out []types.Item
	for it.HasNext() {
		if err := runtime.CheckCancelled(dctx); err != nil {
			return nil, err
		}
		v, err := it.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// single evaluates child and requires exactly one resulting item, the
// "value comparison"/arithmetic-operand shape spec §4.5 requires (error
// otherwise per §4.5 Comparison).
func single(ctx context.Context, dctx *rcontext.DynamicContext, it runtime.RuntimeIterator) (types.Item, error) {
	seq, err := drain(ctx, dctx, it)
	if err != nil {
		return types.Item{}, err
	}
	if len(seq) != 1 {
		return types.Item{}, types.NewError(types.ErrDynamicError,
			"expected a singleton sequence, got a sequence of length", -1)
	}
	return seq[0], nil
}

// singleOrEmpty is like single but tolerates zero items, returning
// (Item{}, false, nil) for empty.
func singleOrEmpty(ctx context.Context, dctx *rcontext.DynamicContext, it runtime.RuntimeIterator) (types.Item, bool, error) {
	seq, err := drain(ctx, dctx, it)
	if err != nil {
		return types.Item{}, false, err
	}
	switch len(seq) {
	case 0:
		return types.Item{}, false, nil
	case 1:
		return seq[0], true, nil
	default:
		return types.Item{}, false, types.NewError(types.ErrDynamicError,
			"expected at most one item, got a sequence", -1)
	}
}
