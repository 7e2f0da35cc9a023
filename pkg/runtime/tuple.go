package runtime

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// Tuple is a FLWOR tuple: a mapping from variable name to a materialized
// sequence (spec §3 "Tuple"). SerializedRow is populated only in
// distributed mode, where it doubles as a row field crossing a partition
// boundary.
type Tuple struct {
	Bindings      map[string][]types.Item
	SerializedRow []byte
}

// NewTuple creates an empty tuple.
func NewTuple() Tuple {
	return Tuple{Bindings: make(map[string][]types.Item)}
}

// With returns a copy of t with name bound to seq, leaving t untouched —
// FLWOR clauses extend an input tuple into a new output tuple rather than
// mutating the one they received (tuples may be shared with a Where
// predicate evaluated earlier in the same pipeline step).
func (t Tuple) With(name string, seq []types.Item) Tuple {
	out := Tuple{Bindings: make(map[string][]types.Item, len(t.Bindings)+1), SerializedRow: t.SerializedRow}
	for k, v := range t.Bindings {
		out.Bindings[k] = v
	}
	out.Bindings[name] = seq
	return out
}

// TupleIterator is the FLWOR-clause counterpart of RuntimeIterator
// (spec §4.2): same shape, yields Tuple instead of Item, and additionally
// reports which variables it introduces/reads for projection pushdown.
type TupleIterator interface {
	Open(ctx context.Context, dctx *rcontext.DynamicContext) error
	HasNext() bool
	Next() (Tuple, error)
	Close() error
	Reset(ctx context.Context, dctx *rcontext.DynamicContext) error

	// BoundVariables returns the names this clause introduces, not inherited
	// from its child (spec §4.2).
	BoundVariables() []string

	// VariableDependencies returns the upstream variables this clause reads
	// and how (spec §3, §4.2).
	VariableDependencies() map[string]types.DependencyKind

	// Projection computes what this clause's child must materialize, by
	// unioning parent's needs with this clause's own dependencies,
	// conflict-resolved to FULL on incompatible uses (spec §4.2).
	Projection(parent map[string]types.DependencyKind) map[string]types.DependencyKind

	// IsDataFrame reports whether this clause's tuple stream is backed by
	// (or feeds into) a distributed tabular source, propagating from its
	// child the way OrderByClauseSparkIterator's isDataFrame() delegates to
	// _child.isDataFrame() (spec §4.1 Hybrid iterator, applied to the FLWOR
	// tuple pipeline instead of the item pipeline). A compiler consults this
	// to pick the distributed OrderBy algorithm dynamically instead of only
	// from a static source-language annotation.
	IsDataFrame() bool
}

// MergeProjection is the shared helper every TupleIterator.Projection
// implementation calls: union parent requirements with own dependencies,
// then drop this clause's own BoundVariables (a child never needs to
// materialize a name its parent is about to (re)bind).
func MergeProjection(parent, own map[string]types.DependencyKind, boundHere []string) map[string]types.DependencyKind {
	out := make(map[string]types.DependencyKind, len(parent)+len(own))
	for k, v := range parent {
		out[k] = v
	}
	for k, v := range own {
		out[k] = out[k].Merge(v)
	}
	for _, b := range boundHere {
		delete(out, b)
	}
	return out
}
