// Package local is a single-partition, synchronous reference implementation
// of the distributed.Backend interface. It exists so the hybrid execution
// strategy and the distributed OrderBy algorithm (spec §4.4) can be
// exercised by unit tests without a real cluster: every method implements
// exactly the contract a real backend would, just backed by Go slices
// instead of an RDD/DataFrame engine.
//
// Grounded on the teacher evaluator's single-threaded, pull-based execution
// model (evaluator.Evaluator.Eval runs synchronously) generalized to the
// collection/tabular interfaces spec §6 requires. Partition identifiers use
// google/uuid so a hybrid iterator's IsRDD decision can be traced across
// log lines even in this single-partition emulation.
package local

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/sandrolain/jsoniqcore/pkg/distributed"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// Backend is the in-memory distributed.Backend reference implementation.
type Backend struct {
	views map[string]*DataFrame
}

// New creates an empty local backend.
func New() *Backend {
	return &Backend{views: make(map[string]*DataFrame)}
}

func (b *Backend) NewItemCollection(items []types.Item) distributed.ItemCollection {
	cp := make([]types.Item, len(items))
	copy(cp, items)
	return &Collection{id: uuid.NewString(), items: cp}
}

func (b *Backend) NewDataFrame(rows []map[string]interface{}, schema distributed.Schema) distributed.DataFrame {
	cp := make([]map[string]interface{}, len(rows))
	copy(cp, rows)
	return &DataFrame{backend: b, rows: cp, schema: schema}
}

// SQL supports only the trivial "SELECT * FROM <view>" form — enough to
// exercise DataFrame.CreateTempView/Session.SQL wiring in tests without
// pulling in a SQL engine, which is explicitly the distributed backend's
// own internal concern (spec §1) and out of scope here.
func (b *Backend) SQL(ctx context.Context, query string) (distributed.DataFrame, error) {
	var view string
	if _, err := fmt.Sscanf(query, "SELECT * FROM %s", &view); err != nil {
		return nil, fmt.Errorf("local backend only supports \"SELECT * FROM <view>\": %w", err)
	}
	df, ok := b.views[view]
	if !ok {
		return nil, fmt.Errorf("no such temp view: %s", view)
	}
	return df, nil
}

// Collection is the single-partition ItemCollection.
type Collection struct {
	id     string
	items  []types.Item
	cached bool
}

func (c *Collection) Map(fn func(types.Item) (types.Item, error)) (distributed.ItemCollection, error) {
	out := make([]types.Item, len(c.items))
	for i, it := range c.items {
		v, err := fn(it)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return &Collection{id: uuid.NewString(), items: out}, nil
}

func (c *Collection) Filter(fn func(types.Item) (bool, error)) (distributed.ItemCollection, error) {
	var out []types.Item
	for _, it := range c.items {
		ok, err := fn(it)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, it)
		}
	}
	return &Collection{id: uuid.NewString(), items: out}, nil
}

func (c *Collection) Collect(ctx context.Context) ([]types.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]types.Item, len(c.items))
	copy(out, c.items)
	return out, nil
}

func (c *Collection) Count(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return int64(len(c.items)), nil
}

func (c *Collection) Cache() distributed.ItemCollection {
	c.cached = true
	return c
}

func (c *Collection) Take(ctx context.Context, k int) ([]types.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k > len(c.items) {
		k = len(c.items)
	}
	out := make([]types.Item, k)
	copy(out, c.items[:k])
	return out, nil
}

// DataFrame is the in-memory tabular reference implementation.
type DataFrame struct {
	backend *Backend
	rows    []map[string]interface{}
	schema  distributed.Schema
}

func (df *DataFrame) Columns() []distributed.Column { return df.schema }

func (df *DataFrame) Select(cols ...string) (distributed.DataFrame, error) {
	keep := make(map[string]bool, len(cols))
	for _, c := range cols {
		keep[c] = true
	}
	newSchema := make(distributed.Schema, 0, len(cols))
	for _, c := range df.schema {
		if keep[c.Name] {
			newSchema = append(newSchema, c)
		}
	}
	newRows := make([]map[string]interface{}, len(df.rows))
	for i, r := range df.rows {
		nr := make(map[string]interface{}, len(cols))
		for _, c := range cols {
			nr[c] = r[c]
		}
		newRows[i] = nr
	}
	return &DataFrame{backend: df.backend, rows: newRows, schema: newSchema}, nil
}

// OrderBy sorts rows by the given column/direction pairs. sort.SliceStable
// is used deliberately: spec §4.4 step 3 requires the caller to be able to
// fall back to an input-index column when the backend's sort is not
// documented as stable — here we simply guarantee stability outright,
// matching Go's stable sort semantics, and document it as such.
func (df *DataFrame) OrderBy(specs []distributed.SortSpec) (distributed.DataFrame, error) {
	rows := make([]map[string]interface{}, len(df.rows))
	copy(rows, df.rows)
	sort.SliceStable(rows, func(i, j int) bool {
		for _, s := range specs {
			cmp := compareCell(rows[i][s.Column], rows[j][s.Column])
			if cmp == 0 {
				continue
			}
			if s.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
	return &DataFrame{backend: df.backend, rows: rows, schema: df.schema}, nil
}

func compareCell(a, b interface{}) int {
	// nullEmptyCheckField encoding (spec §4.4 step 2): nil sorts by the
	// caller's chosen placeholder ordering, applied before this function
	// is reached — by the time OrderBy compares two rows, non-comparable
	// nils have already been mapped to sentinel values.
	switch av := a.(type) {
	case int64:
		bv := b.(int64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case string:
		bv := b.(string)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	case bool:
		bv := b.(bool)
		if av == bv {
			return 0
		}
		if !av {
			return -1
		}
		return 1
	default:
		return 0
	}
}

// RegisterUDF checks that the data frame belongs to a backend and otherwise
// does nothing: the local backend does not implement a SQL planner, so fn is
// neither stored nor ever invoked.
func (df *DataFrame) RegisterUDF(name string, returnSchema distributed.Schema, fn distributed.UDF) error {
	if df.backend.views == nil {
		return fmt.Errorf("data frame has no backend")
	}
	return nil
}

func (df *DataFrame) CreateTempView(name string) error {
	df.backend.views[name] = df
	return nil
}

func (df *DataFrame) Collect(ctx context.Context) ([]map[string]interface{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]map[string]interface{}, len(df.rows))
	copy(out, df.rows)
	return out, nil
}
