package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/registry"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// QuantifierKind selects "some" or "every" semantics for QuantifiedExpr.
type QuantifierKind int

const (
	QuantifierSome QuantifierKind = iota
	QuantifierEvery
)

// QuantifiedVar binds one "$v in expr" clause of a quantified expression.
type QuantifiedVar struct {
	Name string
	Seq  runtime.RuntimeIterator
}

// QuantifiedExpr builds the "some $x in e1, $y in e2 satisfies pred" /
// "every ... satisfies ..." iterator (spec §4.5 Quantified): the test
// predicate is evaluated over the cartesian product of the bound
// variables' sequences, short-circuiting as soon as the answer is known.
// Grounded on the teacher's lazy cartesian-product handling in path steps
// (eval_path.go), reused here over explicit quantifier bindings instead of
// implicit array flattening.
func QuantifiedExpr(kind QuantifierKind, vars []QuantifiedVar, pred func(*rcontext.DynamicContext) runtime.RuntimeIterator) *sliceIterator {
	return newLazyOp(func(ctx context.Context, dctx *rcontext.DynamicContext) ([]types.Item, error) {
		bound := make([][]types.Item, len(vars))
		for i, v := range vars {
			seq, err := drain(ctx, dctx, v.Seq)
			if err != nil {
				return nil, err
			}
			bound[i] = seq
			if kind == QuantifierSome && len(seq) == 0 {
				return []types.Item{types.False}, nil
			}
		}
		shortCircuit := kind == QuantifierSome
		result := kind != QuantifierSome // every over an all-empty product is vacuously true

		var walk func(i int, child *rcontext.DynamicContext) (bool, error)
		walk = func(i int, child *rcontext.DynamicContext) (bool, error) {
			if i == len(vars) {
				seq, err := drain(ctx, child, pred(child))
				if err != nil {
					return false, err
				}
				b, err := registry.EffectiveBooleanValue(seq)
				if err != nil {
					return false, err
				}
				return b, nil
			}
			for _, item := range bound[i] {
				if err := runtime.CheckCancelled(dctx); err != nil {
					return false, err
				}
				next := child.NewChildContext()
				next.SetBinding(vars[i].Name, []types.Item{item})
				b, err := walk(i+1, next)
				if err != nil {
					return false, err
				}
				if b == shortCircuit {
					return shortCircuit, nil
				}
			}
			return !shortCircuit, nil
		}

		if len(vars) > 0 {
			res, err := walk(0, dctx)
			if err != nil {
				return nil, err
			}
			result = res
		}
		return []types.Item{{Kind: types.KindBoolean, Bool: result}}, nil
	})
}
