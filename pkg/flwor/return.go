package flwor

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// ReturnIterator terminates a FLWOR pipeline (spec §4.4 "Return"): it
// consumes the upstream TupleIterator and re-evaluates the return
// expression against each tuple's context, flattening every tuple's result
// sequence back into one flat outer item stream — the point where a
// TupleIterator pipeline turns back into a plain RuntimeIterator.
type ReturnIterator struct {
	runtime.Base
	child   runtime.TupleIterator
	expr    *types.ASTNode
	compile ExprCompiler

	ctx     context.Context
	dctx    *rcontext.DynamicContext
	pending []types.Item
	idx     int
}

// Return builds the outer RuntimeIterator for a whole FLWOR expression.
func Return(child runtime.TupleIterator, expr *types.ASTNode, compile ExprCompiler) *ReturnIterator {
	return &ReturnIterator{child: child, expr: expr, compile: compile}
}

func (r *ReturnIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	r.ctx, r.dctx = ctx, dctx
	r.pending = nil
	r.idx = 0
	return r.child.Open(ctx, dctx)
}

func (r *ReturnIterator) advance() error {
	for r.idx >= len(r.pending) {
		if !r.child.HasNext() {
			r.pending = nil
			return nil
		}
		t, err := r.child.Next()
		if err != nil {
			return err
		}
		if err := runtime.CheckCancelled(r.dctx); err != nil {
			return err
		}
		it, err := r.compile(r.expr)
		if err != nil {
			return err
		}
		exprCtx := tupleContext(r.dctx, t)
		seq, err := drainExpr(r.ctx, exprCtx, it)
		if err != nil {
			return err
		}
		r.pending = seq
		r.idx = 0
	}
	return nil
}

func (r *ReturnIterator) HasNext() bool {
	if err := r.advance(); err != nil {
		return true
	}
	return r.idx < len(r.pending)
}

func (r *ReturnIterator) Next() (types.Item, error) {
	if err := r.advance(); err != nil {
		return types.Item{}, err
	}
	if r.idx >= len(r.pending) {
		return types.Item{}, runtime.FlowError("Next called with HasNext false")
	}
	v := r.pending[r.idx]
	r.idx++
	return v, nil
}

func (r *ReturnIterator) Close() error { return r.child.Close() }

func (r *ReturnIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := r.child.Reset(ctx, dctx); err != nil {
		return err
	}
	return r.Open(ctx, dctx)
}

// IsDataFrame propagates the tuple pipeline's distributed status out to the
// item-stream world (spec §4.1 Hybrid iterator): a FLWOR expression that
// closes over a distributed source or a distributed OrderBy still reports
// hybrid-ness to whatever RuntimeIterator embeds this one, the same
// child-delegates-to-parent shape OrderByClauseSparkIterator's own
// isDataFrame() uses.
func (r *ReturnIterator) IsDataFrame() bool { return r.child.IsDataFrame() }
