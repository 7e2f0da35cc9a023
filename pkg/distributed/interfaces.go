// Package distributed defines the interface this module requires from a
// distributed execution backend (spec §6): a partitioned item collection
// abstraction and a tabular ("DataFrame") abstraction with SQL-like
// projection/order-by and UDF registration. The backend's own internals
// are explicitly out of scope (spec §1) — this package only pins down the
// contract the core calls through.
package distributed

import (
	"context"

	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// ItemCollection is a partitioned collection of items (spec §6).
type ItemCollection interface {
	Map(fn func(types.Item) (types.Item, error)) (ItemCollection, error)
	Filter(fn func(types.Item) (bool, error)) (ItemCollection, error)
	Collect(ctx context.Context) ([]types.Item, error)
	Count(ctx context.Context) (int64, error)
	Cache() ItemCollection
	Take(ctx context.Context, k int) ([]types.Item, error)
}

// ColumnType is the typed-column vocabulary a DataFrame column can carry,
// mirroring the OrderBy key-materialization type profile of spec §4.4.
type ColumnType int

const (
	ColInteger ColumnType = iota
	ColDouble
	ColDecimal
	ColString
	ColBoolean
	ColLong // signed long-encoded temporal or count column
	ColDuration // signed long-encoded duration: months for year-month, milliseconds for day-time
	ColBinary
)

// Column describes one named typed column of a DataFrame.
type Column struct {
	Name string
	Type ColumnType
}

// Schema is an ordered list of columns, e.g. a UDF's declared return shape.
type Schema []Column

// SortSpec is one column direction pair for DataFrame.OrderBy.
type SortSpec struct {
	Column     string
	Descending bool
}

// UDF is a backend-registered callback. Row is a positional slice of
// decoded column values matching the UDF's declared input columns; the
// return value must match ReturnSchema.
type UDF func(row []interface{}) ([]interface{}, error)

// DataFrame is the tabular abstraction the distributed OrderBy algorithm
// drives (spec §4.4, §6): named typed columns, SQL-like projection and
// order-by, UDF registration with a typed return schema, and temp views
// for issuing raw SQL.
type DataFrame interface {
	Columns() []Column
	Select(cols ...string) (DataFrame, error)
	OrderBy(specs []SortSpec) (DataFrame, error)
	RegisterUDF(name string, returnSchema Schema, fn UDF) error
	CreateTempView(name string) error
	Collect(ctx context.Context) ([]map[string]interface{}, error)
}

// Session issues SQL strings against temp views created via
// DataFrame.CreateTempView (spec §6 "A session handle for issuing SQL
// strings").
type Session interface {
	SQL(ctx context.Context, query string) (DataFrame, error)
}

// Backend bundles everything the hybrid strategy and the distributed
// OrderBy algorithm need from a concrete distributed runtime.
type Backend interface {
	Session
	NewItemCollection(items []types.Item) ItemCollection
	NewDataFrame(rows []map[string]interface{}, schema Schema) DataFrame
}
