package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// ValueCompareOp is a JSONiq value comparison operator (eq, ne, lt, le, gt, ge).
type ValueCompareOp int

const (
	ValueEq ValueCompareOp = iota
	ValueNe
	ValueLt
	ValueLe
	ValueGt
	ValueGe
)

// GeneralCompareOp is a JSONiq general comparison operator (=, !=, <, <=, >, >=).
type GeneralCompareOp int

const (
	GeneralEq GeneralCompareOp = iota
	GeneralNe
	GeneralLt
	GeneralLe
	GeneralGt
	GeneralGe
)

// ValueComparison builds the "value comparison" iterator (spec §4.5
// Comparison): both operands must be singletons — an empty or multi-item
// operand sequence is a dynamic error, not a false result. Grounded on the
// teacher's compareValues (eval_operators.go) generalized from JSONata's
// implicit-array-flattening comparison to the strict singleton contract
// JSONiq value comparison requires.
func ValueComparison(op ValueCompareOp, lhs, rhs runtime.RuntimeIterator) *sliceIterator {
	return newLazyOp(func(ctx context.Context, dctx *rcontext.DynamicContext) ([]types.Item, error) {
		l, err := single(ctx, dctx, lhs)
		if err != nil {
			return nil, err
		}
		r, err := single(ctx, dctx, rhs)
		if err != nil {
			return nil, err
		}
		res, err := evalValueCompare(op, l, r)
		if err != nil {
			return nil, err
		}
		return []types.Item{res}, nil
	})
}

func evalValueCompare(op ValueCompareOp, l, r types.Item) (types.Item, error) {
	if op == ValueEq || op == ValueNe {
		eq := types.Equal(l, r)
		if op == ValueNe {
			eq = !eq
		}
		return types.Item{Kind: types.KindBoolean, Bool: eq}, nil
	}
	cmp, err := types.Compare(l, r)
	if err != nil {
		return types.Item{}, err
	}
	var res bool
	switch op {
	case ValueLt:
		res = cmp < 0
	case ValueLe:
		res = cmp <= 0
	case ValueGt:
		res = cmp > 0
	case ValueGe:
		res = cmp >= 0
	}
	return types.Item{Kind: types.KindBoolean, Bool: res}, nil
}

// GeneralComparison builds the "general comparison" iterator (spec §4.5
// Comparison): true iff some pair drawn from the cartesian product of the
// two operand sequences satisfies the comparison; an empty operand on
// either side makes the whole expression false rather than an error, unlike
// value comparison. Grounded on the same teacher compareValues primitive,
// reused pairwise over the cartesian product instead of on a pair of
// pre-checked singletons.
func GeneralComparison(op GeneralCompareOp, lhs, rhs runtime.RuntimeIterator) *sliceIterator {
	return newLazyOp(func(ctx context.Context, dctx *rcontext.DynamicContext) ([]types.Item, error) {
		ls, err := drain(ctx, dctx, lhs)
		if err != nil {
			return nil, err
		}
		rs, err := drain(ctx, dctx, rhs)
		if err != nil {
			return nil, err
		}
		vop := generalToValueOp(op)
		for _, l := range ls {
			for _, r := range rs {
				if err := runtime.CheckCancelled(dctx); err != nil {
					return nil, err
				}
				res, err := evalValueCompare(vop, l, r)
				if err != nil {
					continue // incomparable pairs are simply not a match, per spec §4.5
				}
				if res.Bool {
					return []types.Item{types.True}, nil
				}
			}
		}
		return []types.Item{types.False}, nil
	})
}

func generalToValueOp(op GeneralCompareOp) ValueCompareOp {
	switch op {
	case GeneralEq:
		return ValueEq
	case GeneralNe:
		return ValueNe
	case GeneralLt:
		return ValueLt
	case GeneralLe:
		return ValueLe
	case GeneralGt:
		return ValueGt
	default:
		return ValueGe
	}
}
