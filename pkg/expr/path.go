package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/registry"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// stepIterator streams the result of applying one postfix step to each item
// of its source in turn — predicate filtering, object-member access, array
// unboxing/indexing. The source sequence is materialized once at Open, since
// positional predicates need its size; the step itself is applied lazily,
// one source item per pull. Grounded on
// the teacher's eval_path.go step-application loop, generalized from
// JSONata's implicit array flattening to JSONiq's explicit `[[i]]`/`.key`/
// `[pred]` step forms.
type stepIterator struct {
	runtime.Base
	source runtime.RuntimeIterator
	apply  func(ctx context.Context, dctx *rcontext.DynamicContext, item types.Item, pos, size int) ([]types.Item, error)

	ctx     context.Context
	dctx    *rcontext.DynamicContext
	sourced []types.Item // whole materialized source, for 1-based positional context
	pos     int          // index into sourced already consumed
	pending []types.Item
	pendIdx int
}

func newStepIterator(source runtime.RuntimeIterator, apply func(context.Context, *rcontext.DynamicContext, types.Item, int, int) ([]types.Item, error)) *stepIterator {
	return &stepIterator{source: source, apply: apply}
}

func (s *stepIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	seq, err := drain(ctx, dctx, s.source)
	if err != nil {
		return err
	}
	s.ctx, s.dctx = ctx, dctx
	s.sourced = seq
	s.pos = 0
	s.pending = nil
	s.pendIdx = 0
	return nil
}

func (s *stepIterator) advance() error {
	for s.pendIdx >= len(s.pending) && s.pos < len(s.sourced) {
		item := s.sourced[s.pos]
		s.pos++
		out, err := s.apply(s.ctx, s.dctx, item, s.pos, len(s.sourced))
		if err != nil {
			return err
		}
		s.pending = out
		s.pendIdx = 0
	}
	return nil
}

func (s *stepIterator) HasNext() bool {
	if err := s.advance(); err != nil {
		return true
	}
	return s.pendIdx < len(s.pending)
}

func (s *stepIterator) Next() (types.Item, error) {
	if err := s.advance(); err != nil {
		return types.Item{}, err
	}
	if s.pendIdx >= len(s.pending) {
		return types.Item{}, runtime.FlowError("Next called with HasNext false")
	}
	v := s.pending[s.pendIdx]
	s.pendIdx++
	return v, nil
}

func (s *stepIterator) Close() error { return nil }

func (s *stepIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return s.Open(ctx, dctx)
}

// PostfixKey builds the ".key" object-member step: each object item in the
// source contributes its member's value (or nothing, if absent); a non-object
// item is an UnexpectedType error (spec §4.5 Postfix).
func PostfixKey(source runtime.RuntimeIterator, key string) *stepIterator {
	return newStepIterator(source, func(_ context.Context, _ *rcontext.DynamicContext, item types.Item, _, _ int) ([]types.Item, error) {
		if !item.IsObject() {
			return nil, types.NewError(types.ErrUnexpectedType, "member access requires an object", -1)
		}
		if v, ok := item.Get(key); ok {
			return []types.Item{v}, nil
		}
		return nil, nil
	})
}

// PostfixIndex builds the "[[i]]" array-box-indexing step: the i-th element
// (1-based) of each array item in the source, out of range yields nothing.
func PostfixIndex(source runtime.RuntimeIterator, index runtime.RuntimeIterator) *stepIterator {
	return newStepIterator(source, func(ctx context.Context, dctx *rcontext.DynamicContext, item types.Item, _, _ int) ([]types.Item, error) {
		if !item.IsArray() {
			return nil, types.NewError(types.ErrUnexpectedType, "box indexing requires an array", -1)
		}
		idxItem, err := single(ctx, dctx, index)
		if err != nil {
			return nil, err
		}
		if idxItem.Kind != types.KindInteger {
			return nil, types.NewError(types.ErrTypeError, "array index must be an integer", -1)
		}
		i := idxItem.Int
		if i < 1 || int(i) > len(item.Elements) {
			return nil, nil
		}
		return []types.Item{item.Elements[i-1]}, nil
	})
}

// PostfixPredicate builds the "[pred]" filtering step (spec §4.5 Postfix):
// pred is evaluated once per source item with the context position/size set
// to that item's 1-based ordinal within the whole source sequence; an
// integer predicate result selects by numeric position, any other result is
// coerced through EffectiveBooleanValue.
func PostfixPredicate(source runtime.RuntimeIterator, pred func(child *rcontext.DynamicContext) runtime.RuntimeIterator) *stepIterator {
	return newStepIterator(source, func(ctx context.Context, dctx *rcontext.DynamicContext, item types.Item, pos, size int) ([]types.Item, error) {
		child := dctx.WithPosition(pos, size)
		seq, err := drain(ctx, child, pred(child))
		if err != nil {
			return nil, err
		}
		if len(seq) == 1 && seq[0].Kind == types.KindInteger {
			if seq[0].Int == int64(pos) {
				return []types.Item{item}, nil
			}
			return nil, nil
		}
		b, err := registry.EffectiveBooleanValue(seq)
		if err != nil {
			return nil, err
		}
		if b {
			return []types.Item{item}, nil
		}
		return nil, nil
	})
}
