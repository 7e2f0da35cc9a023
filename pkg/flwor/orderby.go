package flwor

import (
	"context"
	"sort"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// orderByIterator implements a "order by e1 [asc|desc] [empty least|greatest],
// ..." clause using the local algorithm (spec §4.4 OrderBy, local): drain
// the whole input to memory, evaluate every key expression once per tuple,
// then a single stable sort over the key vectors. Grounded on the teacher's
// evalSort (eval_operators.go), which does the same drain-then-sort.Stable
// dance for JSONata's `^(...)` operator; generalized here from a single
// comparator to a per-key Direction/EmptyOrder vector and JSONiq's stricter
// same-type-family comparison rule (spec §4.4 "sorting values from
// incompatible type families is a dynamic TypeError, not a coercion").
type orderByIterator struct {
	child   runtime.TupleIterator
	specs   []types.OrderSpec
	compile ExprCompiler
	stable  bool

	rows []orderRow
	idx  int
}

type orderRow struct {
	tuple runtime.Tuple
	keys  []orderKey
}

type orderKey struct {
	empty bool
	item  types.Item
}

// OrderByLocal builds a local-algorithm order-by-clause TupleIterator.
func OrderByLocal(child runtime.TupleIterator, specs []types.OrderSpec, compile ExprCompiler, stable bool) *orderByIterator {
	return &orderByIterator{child: child, specs: specs, compile: compile, stable: stable}
}

func (o *orderByIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := o.child.Open(ctx, dctx); err != nil {
		return err
	}
	defer o.child.Close()

	var rows []orderRow
	for o.child.HasNext() {
		if err := runtime.CheckCancelled(dctx); err != nil {
			return err
		}
		t, err := o.child.Next()
		if err != nil {
			return err
		}
		keys, err := o.evalKeys(ctx, dctx, t)
		if err != nil {
			return err
		}
		rows = append(rows, orderRow{tuple: t, keys: keys})
	}

	var sortErr error
	sortFn := sort.Slice
	if o.stable {
		sortFn = sort.SliceStable
	}
	sortFn(rows, func(i, j int) bool {
		if sortErr != nil {
			return false
		}
		less, err := lessRows(rows[i], rows[j], o.specs)
		if err != nil {
			sortErr = err
			return false
		}
		return less
	})
	if sortErr != nil {
		return sortErr
	}

	o.rows = rows
	o.idx = 0
	return nil
}

func (o *orderByIterator) evalKeys(ctx context.Context, dctx *rcontext.DynamicContext, t runtime.Tuple) ([]orderKey, error) {
	keys := make([]orderKey, len(o.specs))
	for i, spec := range o.specs {
		it, err := o.compile(spec.Expr)
		if err != nil {
			return nil, err
		}
		exprCtx := tupleContext(dctx, t)
		seq, err := drainExpr(ctx, exprCtx, it)
		if err != nil {
			return nil, err
		}
		switch len(seq) {
		case 0:
			keys[i] = orderKey{empty: true}
		case 1:
			v := seq[0]
			if !v.IsAtomic() {
				return nil, types.NewError(types.ErrUnexpectedType,
					"order by key must be atomic", -1)
			}
			if v.IsBinary() {
				return nil, types.NewError(types.ErrUnexpectedType,
					"binary items are not orderable: cannot use a binary value as an order by key", -1)
			}
			keys[i] = orderKey{item: v}
		default:
			return nil, types.NewError(types.ErrNonAtomicKey,
				"order by key must be a single value or empty sequence", -1)
		}
	}
	return keys, nil
}

// lessRows compares two rows' key vectors lexicographically, honoring each
// spec's direction and empty-sequence placement.
func lessRows(a, b orderRow, specs []types.OrderSpec) (bool, error) {
	for i, spec := range specs {
		ka, kb := a.keys[i], b.keys[i]
		cmp, err := compareOrderKeys(ka, kb, spec.EmptyOrder)
		if err != nil {
			return false, err
		}
		if cmp == 0 {
			continue
		}
		if spec.Direction == types.Descending {
			cmp = -cmp
		}
		return cmp < 0, nil
	}
	return false, nil
}

func compareOrderKeys(a, b orderKey, emptyOrder types.EmptyOrder) (int, error) {
	if a.empty && b.empty {
		return 0, nil
	}
	if a.empty || b.empty {
		emptyIsLess := emptyOrder == types.EmptyLeast
		if a.empty {
			if emptyIsLess {
				return -1, nil
			}
			return 1, nil
		}
		if emptyIsLess {
			return 1, nil
		}
		return -1, nil
	}
	cmp, err := types.Compare(a.item, b.item)
	if err != nil {
		return 0, types.NewError(types.ErrTypeError,
			"order by key values belong to incompatible type families", -1).WithCause(err)
	}
	return cmp, nil
}

func (o *orderByIterator) HasNext() bool { return o.idx < len(o.rows) }

func (o *orderByIterator) Next() (runtime.Tuple, error) {
	if !o.HasNext() {
		return runtime.Tuple{}, runtime.FlowError("Next called with HasNext false")
	}
	t := o.rows[o.idx].tuple
	o.idx++
	return t, nil
}

func (o *orderByIterator) Close() error { return nil }

func (o *orderByIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return o.Open(ctx, dctx)
}

func (o *orderByIterator) BoundVariables() []string { return nil }

func (o *orderByIterator) VariableDependencies() map[string]types.DependencyKind {
	deps := make(map[string]types.DependencyKind)
	for _, spec := range o.specs {
		for k, v := range spec.Expr.Dependencies {
			deps[k] = deps[k].Merge(v)
		}
	}
	return deps
}

func (o *orderByIterator) Projection(parent map[string]types.DependencyKind) map[string]types.DependencyKind {
	merged := runtime.MergeProjection(parent, o.VariableDependencies(), nil)
	return o.child.Projection(merged)
}

func (o *orderByIterator) IsDataFrame() bool { return o.child.IsDataFrame() }
