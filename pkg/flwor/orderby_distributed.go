package flwor

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/distributed"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// distOrderByIterator implements the distributed OrderBy algorithm of spec
// §4.4: a type-inference pass over the key expressions, a key-materialization
// pass building one typed row per tuple, a backend-driven sort, then a
// projection pass that drops the materialized key columns and reassembles
// tuples in sorted order. Grounded on pkg/distributed's DataFrame contract
// (spec §6) and google/uuid, used the way the local reference backend uses
// it for partition identifiers — here to name a collision-free temp view
// per OrderBy invocation, since two concurrent queries against the same
// backend must not clobber each other's views.
type distOrderByIterator struct {
	child   runtime.TupleIterator
	specs   []types.OrderSpec
	compile ExprCompiler
	backend distributed.Backend

	rows []runtime.Tuple
	idx  int
}

// OrderByDistributed builds the distributed-algorithm order-by-clause
// TupleIterator, driving backend for the sort itself.
func OrderByDistributed(child runtime.TupleIterator, specs []types.OrderSpec, compile ExprCompiler, backend distributed.Backend) *distOrderByIterator {
	return &distOrderByIterator{child: child, specs: specs, compile: compile, backend: backend}
}

const emptyRankColumnPrefix = "__jq_empty_"
const valueColumnPrefix = "__jq_key_"
const idxColumn = "__jq_idx"

func (d *distOrderByIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := d.child.Open(ctx, dctx); err != nil {
		return err
	}
	defer d.child.Close()

	var tuples []runtime.Tuple
	var keyVectors [][]orderKey
	for d.child.HasNext() {
		if err := runtime.CheckCancelled(dctx); err != nil {
			return err
		}
		t, err := d.child.Next()
		if err != nil {
			return err
		}
		keys, err := d.evalKeys(ctx, dctx, t)
		if err != nil {
			return err
		}
		tuples = append(tuples, t)
		keyVectors = append(keyVectors, keys)
	}
	if len(tuples) == 0 {
		d.rows, d.idx = nil, 0
		return nil
	}

	colTypes, err := inferColumnTypes(keyVectors, len(d.specs))
	if err != nil {
		return err
	}

	schema := make(distributed.Schema, 0, len(d.specs)*2+1)
	schema = append(schema, distributed.Column{Name: idxColumn, Type: distributed.ColLong})
	for i, ct := range colTypes {
		schema = append(schema, distributed.Column{Name: fmt.Sprintf("%s%d", valueColumnPrefix, i), Type: ct})
		schema = append(schema, distributed.Column{Name: fmt.Sprintf("%s%d", emptyRankColumnPrefix, i), Type: distributed.ColBoolean})
	}

	rows := make([]map[string]interface{}, len(tuples))
	for i, keys := range keyVectors {
		row := map[string]interface{}{idxColumn: int64(i)}
		for j, k := range keys {
			cell := keyCellValue(k)
			if !k.empty && k.item.IsNumeric() && colTypes[j] != distributed.ColInteger {
				cell = k.item.AsDouble()
			}
			row[fmt.Sprintf("%s%d", valueColumnPrefix, j)] = cell
			row[fmt.Sprintf("%s%d", emptyRankColumnPrefix, j)] = k.empty
		}
		rows[i] = row
	}

	df := d.backend.NewDataFrame(rows, schema)
	viewName := "jq_orderby_" + uuid.NewString()[:8]
	if err := df.CreateTempView(viewName); err != nil {
		return err
	}

	sortSpecs := make([]distributed.SortSpec, 0, len(d.specs)*2)
	for i, spec := range d.specs {
		// empty-rank column sorts first or last depending on EmptyOrder,
		// independent of the value column's own direction.
		sortSpecs = append(sortSpecs, distributed.SortSpec{
			Column:     fmt.Sprintf("%s%d", emptyRankColumnPrefix, i),
			Descending: spec.EmptyOrder == types.EmptyLeast,
		})
		sortSpecs = append(sortSpecs, distributed.SortSpec{
			Column:     fmt.Sprintf("%s%d", valueColumnPrefix, i),
			Descending: spec.Direction == types.Descending,
		})
	}
	sorted, err := df.OrderBy(sortSpecs)
	if err != nil {
		return err
	}
	sorted, err = sorted.Select(idxColumn)
	if err != nil {
		return err
	}
	resultRows, err := sorted.Collect(ctx)
	if err != nil {
		return err
	}

	out := make([]runtime.Tuple, 0, len(resultRows))
	for _, r := range resultRows {
		idx, ok := r[idxColumn].(int64)
		if !ok {
			return types.NewError(types.ErrDynamicError, "distributed order-by lost the row index column", -1)
		}
		out = append(out, tuples[idx])
	}
	d.rows = out
	d.idx = 0
	return nil
}

func (d *distOrderByIterator) evalKeys(ctx context.Context, dctx *rcontext.DynamicContext, t runtime.Tuple) ([]orderKey, error) {
	keys := make([]orderKey, len(d.specs))
	for i, spec := range d.specs {
		it, err := d.compile(spec.Expr)
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

// inferColumnTypes checks that every non-empty value observed for a given
// key position belongs to the same type family, per spec §4.4's rule that
// sorting across incompatible families is a dynamic TypeError rather than
// an implicit coercion. Numeric kinds form one family: a column mixing them
// takes the widest of integer, decimal and double.
func inferColumnTypes(vectors [][]orderKey, n int) ([]distributed.ColumnType, error) {
	out := make([]distributed.ColumnType, n)
	seen := make([]bool, n)
	numericRank := map[distributed.ColumnType]int{distributed.ColInteger: 1, distributed.ColDecimal: 2, distributed.ColDouble: 3}
	for _, vec := range vectors {
		for i, k := range vec {
			if k.empty {
				continue
			}
			ct, err := itemColumnType(k.item)
			if err != nil {
				return nil, err
			}
			if !seen[i] {
				out[i] = ct
				seen[i] = true
				continue
			}
			if out[i] != ct && numericRank[out[i]] > 0 && numericRank[ct] > 0 {
				if numericRank[ct] > numericRank[out[i]] {
					out[i] = ct
				}
				continue
			}
			if out[i] != ct {
				return nil, types.NewError(types.ErrTypeError,
					"order by key values belong to incompatible type families", -1)
			}
		}
	}
	return out, nil
}

func itemColumnType(it types.Item) (distributed.ColumnType, error) {
	switch it.Kind {
	case types.KindInteger:
		return distributed.ColInteger, nil
	case types.KindDecimal:
		return distributed.ColDecimal, nil
	case types.KindDouble:
		return distributed.ColDouble, nil
	case types.KindString:
		return distributed.ColString, nil
	case types.KindBoolean:
		return distributed.ColBoolean, nil
	case types.KindDateTime, types.KindDate, types.KindTime:
		return distributed.ColLong, nil
	case types.KindDuration:
		return distributed.ColDuration, nil
	default:
		return 0, types.NewError(types.ErrTypeError, "order by key value is not sortable in distributed mode", -1)
	}
}

func keyCellValue(k orderKey) interface{} {
	if k.empty {
		return nil
	}
	it := k.item
	switch it.Kind {
	case types.KindInteger:
		return it.Int
	case types.KindDouble:
		return it.Dbl
	case types.KindDecimal:
		f, _ := it.Dec.Float64()
		return f
	case types.KindString:
		return it.Str
	case types.KindBoolean:
		return it.Bool
	case types.KindDateTime, types.KindDate, types.KindTime:
		return it.Time.UnixNano()
	case types.KindDuration:
		if it.DurationFam == types.DurationYearMonth {
			return it.DurationMonths
		}
		return it.DurationMillis
	default:
		return nil
	}
}

func (d *distOrderByIterator) HasNext() bool { return d.idx < len(d.rows) }

func (d *distOrderByIterator) Next() (runtime.Tuple, error) {
	if !d.HasNext() {
		return runtime.Tuple{}, runtime.FlowError("Next called with HasNext false")
	}
	t := d.rows[d.idx]
	d.idx++
	return t, nil
}

func (d *distOrderByIterator) Close() error { return nil }

func (d *distOrderByIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return d.Open(ctx, dctx)
}

func (d *distOrderByIterator) BoundVariables() []string { return nil }

func (d *distOrderByIterator) VariableDependencies() map[string]types.DependencyKind {
	deps := make(map[string]types.DependencyKind)
	for _, spec := range d.specs {
		for k, v := range spec.Expr.Dependencies {
			deps[k] = deps[k].Merge(v)
		}
	}
	return deps
}

func (d *distOrderByIterator) Projection(parent map[string]types.DependencyKind) map[string]types.DependencyKind {
	merged := runtime.MergeProjection(parent, d.VariableDependencies(), nil)
	return d.child.Projection(merged)
}

// IsDataFrame reports true unconditionally: this clause always routes
// through d.backend's DataFrame algorithm regardless of what its child
// reports, so anything downstream inherits distributed-mode status from
// here on (spec §4.1 Hybrid iterator).
func (d *distOrderByIterator) IsDataFrame() bool { return true }
