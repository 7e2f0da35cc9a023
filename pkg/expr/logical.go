package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/registry"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// LogicalAnd builds a short-circuiting "and" iterator over the effective
// boolean value of each operand (spec §4.5 Logical). Grounded on the
// teacher's evalLogicalAnd/evalLogicalOr (eval_operators.go), which
// short-circuit on JSONata's truthiness the same way; here the coercion is
// registry.EffectiveBooleanValue instead of JSONata's isTruthy.
func LogicalAnd(lhs, rhs runtime.RuntimeIterator) *sliceIterator {
	return newLazyOp(func(ctx context.Context, dctx *rcontext.DynamicContext) ([]types.Item, error) {
		lseq, err := drain(ctx, dctx, lhs)
		if err != nil {
			return nil, err
		}
		lb, err := registry.EffectiveBooleanValue(lseq)
		if err != nil {
			return nil, err
		}
		if !lb {
			return []types.Item{types.False}, nil
		}
		rseq, err := drain(ctx, dctx, rhs)
		if err != nil {
			return nil, err
		}
		rb, err := registry.EffectiveBooleanValue(rseq)
		if err != nil {
			return nil, err
		}
		return []types.Item{{Kind: types.KindBoolean, Bool: rb}}, nil
	})
}

// LogicalOr builds a short-circuiting "or" iterator, symmetric to LogicalAnd.
func LogicalOr(lhs, rhs runtime.RuntimeIterator) *sliceIterator {
	return newLazyOp(func(ctx context.Context, dctx *rcontext.DynamicContext) ([]types.Item, error) {
		lseq, err := drain(ctx, dctx, lhs)
		if err != nil {
			return nil, err
		}
		lb, err := registry.EffectiveBooleanValue(lseq)
		if err != nil {
			return nil, err
		}
		if lb {
			return []types.Item{types.True}, nil
		}
		rseq, err := drain(ctx, dctx, rhs)
		if err != nil {
			return nil, err
		}
		rb, err := registry.EffectiveBooleanValue(rseq)
		if err != nil {
			return nil, err
		}
		return []types.Item{{Kind: types.KindBoolean, Bool: rb}}, nil
	})
}

// LogicalNot builds a "not" iterator over the effective boolean value of its
// single operand.
func LogicalNot(operand runtime.RuntimeIterator) *sliceIterator {
	return newLazyOp(func(ctx context.Context, dctx *rcontext.DynamicContext) ([]types.Item, error) {
		seq, err := drain(ctx, dctx, operand)
		if err != nil {
			return nil, err
		}
		b, err := registry.EffectiveBooleanValue(seq)
		if err != nil {
			return nil, err
		}
		return []types.Item{{Kind: types.KindBoolean, Bool: !b}}, nil
	})
}
