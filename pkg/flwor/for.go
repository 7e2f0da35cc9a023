package flwor

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// forIterator implements one "for $var [at $pos] in expr" clause (spec
// §4.2): for each input tuple, expr is re-evaluated against that tuple's
// context, and the clause emits one output tuple per resulting item,
// extended with $var (and $pos, 1-based, if requested).
type forIterator struct {
	child      runtime.TupleIterator
	variable   string
	posVar     string
	expr       *types.ASTNode
	compile    ExprCompiler
	allowEmpty bool // "for $x allowing empty in ()" binds $var to () once

	ctx        context.Context
	dctx       *rcontext.DynamicContext
	cur        runtime.Tuple
	items      []types.Item
	idx        int
	emptyPass  bool
}

// For builds a for-clause TupleIterator over child.
func For(child runtime.TupleIterator, variable, posVar string, expr *types.ASTNode, compile ExprCompiler, allowEmpty bool) *forIterator {
	return &forIterator{child: child, variable: variable, posVar: posVar, expr: expr, compile: compile, allowEmpty: allowEmpty}
}

func (f *forIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	f.ctx, f.dctx = ctx, dctx
	f.items = nil
	f.idx = 0
	f.emptyPass = false
	return f.child.Open(ctx, dctx)
}

func (f *forIterator) advanceOuter() error {
	for f.idx >= len(f.items) && !f.emptyPass {
		if !f.child.HasNext() {
			f.items = nil
			return nil
		}
		t, err := f.child.Next()
		if err != nil {
			return err
		}
		f.cur = t
		it, err := f.compile(f.expr)
		if err != nil {
			return err
		}
		exprCtx := tupleContext(f.dctx, t)
		seq, err := drainExpr(f.ctx, exprCtx, it)
		if err != nil {
			return err
		}
		if len(seq) == 0 && f.allowEmpty {
			f.items = nil
			f.idx = 0
			f.emptyPass = true
			continue
		}
		f.items = seq
		f.idx = 0
	}
	return nil
}

func (f *forIterator) HasNext() bool {
	if err := f.advanceOuter(); err != nil {
		return true
	}
	return f.idx < len(f.items) || f.emptyPass
}

func (f *forIterator) Next() (runtime.Tuple, error) {
	if err := f.advanceOuter(); err != nil {
		return runtime.Tuple{}, err
	}
	if f.emptyPass {
		f.emptyPass = false
		out := f.cur.With(f.variable, nil)
		if f.posVar != "" {
			out = out.With(f.posVar, []types.Item{types.NewInteger(0)})
		}
		return out, nil
	}
	if f.idx >= len(f.items) {
		return runtime.Tuple{}, runtime.FlowError("Next called with HasNext false")
	}
	item := f.items[f.idx]
	pos := f.idx + 1
	f.idx++
	out := f.cur.With(f.variable, []types.Item{item})
	if f.posVar != "" {
		out = out.With(f.posVar, []types.Item{types.NewInteger(int64(pos))})
	}
	return out, nil
}

func (f *forIterator) Close() error { return f.child.Close() }

func (f *forIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := f.child.Reset(ctx, dctx); err != nil {
		return err
	}
	return f.Open(ctx, dctx)
}

func (f *forIterator) BoundVariables() []string {
	if f.posVar != "" {
		return []string{f.variable, f.posVar}
	}
	return []string{f.variable}
}

func (f *forIterator) VariableDependencies() map[string]types.DependencyKind {
	return f.expr.Dependencies
}

func (f *forIterator) Projection(parent map[string]types.DependencyKind) map[string]types.DependencyKind {
	own := f.VariableDependencies()
	merged := runtime.MergeProjection(parent, own, nil)
	return f.child.Projection(merged)
}

// IsDataFrame reports true if the upstream tuple pipeline is already
// distributed, or if this clause's own source expression resolves to a
// distributed source, either tabular (IsDataFrame) or a partitioned item
// collection (IsRDD) (spec §4.1 Hybrid iterator): a for-clause is
// where a fresh external item source, like a Parquet file, first enters the
// pipeline, so it is the one clause that can introduce hybrid-ness rather
// than merely propagate it.
func (f *forIterator) IsDataFrame() bool {
	if f.child.IsDataFrame() {
		return true
	}
	src, err := f.compile(f.expr)
	if err != nil {
		return false
	}
	return src.IsDataFrame() || src.IsRDD()
}

// drainExpr consumes a RuntimeIterator fully, mirroring pkg/expr's private
// drain helper — duplicated rather than exported across the package
// boundary since it is a two-line loop, not shared logic worth coupling
// packages over.
//
// If it reports isRDD() once opened, the Hybrid iterator's dynamic dispatch
// point (spec §4.1) applies here too: the clause's embedded expression may
// resolve to a distributed collection (e.g. an external item source), and
// the result is retrieved through GetRDD().Collect() instead of a local
// item-by-item pull.
func drainExpr(ctx context.Context, dctx *rcontext.DynamicContext, it runtime.RuntimeIterator) ([]types.Item, error) {
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
