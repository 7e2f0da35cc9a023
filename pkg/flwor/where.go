package flwor

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/registry"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// whereIterator implements a "where cond" clause (spec §4.3): drops any
// tuple whose cond does not hold, coerced through EffectiveBooleanValue.
type whereIterator struct {
	child   runtime.TupleIterator
	cond    *types.ASTNode
	compile ExprCompiler

	ctx  context.Context
	dctx *rcontext.DynamicContext

	pend    wherePending
	pendErr error
}

// Where builds a where-clause TupleIterator over child.
func Where(child runtime.TupleIterator, cond *types.ASTNode, compile ExprCompiler) *whereIterator {
	return &whereIterator{child: child, cond: cond, compile: compile}
}

func (w *whereIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	w.ctx, w.dctx = ctx, dctx
	return w.child.Open(ctx, dctx)
}

// pending holds the next satisfying tuple once found, so HasNext can answer
// truthfully without consuming Next's result twice.
type wherePending struct {
	tuple runtime.Tuple
	ready bool
}

func (w *whereIterator) matches(t runtime.Tuple) (bool, error) {
	it, err := w.compile(w.cond)
	if err != nil {
		return false, err
	}
	exprCtx := tupleContext(w.dctx, t)
	seq, err := drainExpr(w.ctx, exprCtx, it)
	if err != nil {
		return false, err
	}
	return registry.EffectiveBooleanValue(seq)
}

func (w *whereIterator) HasNext() bool {
	if w.pend.ready {
		return true
	}
	for w.child.HasNext() {
		t, err := w.child.Next()
		if err != nil {
			w.pend = wherePending{tuple: runtime.Tuple{}, ready: true}
			w.pendErr = err
			return true
		}
		ok, err := w.matches(t)
		if err != nil {
			w.pend = wherePending{tuple: runtime.Tuple{}, ready: true}
			w.pendErr = err
			return true
		}
		if ok {
			w.pend = wherePending{tuple: t, ready: true}
			return true
		}
	}
	return false
}

func (w *whereIterator) Next() (runtime.Tuple, error) {
	if !w.HasNext() {
		return runtime.Tuple{}, runtime.FlowError("Next called with HasNext false")
	}
	if w.pendErr != nil {
		err := w.pendErr
		w.pendErr = nil
		w.pend = wherePending{}
		return runtime.Tuple{}, err
	}
	t := w.pend.tuple
	w.pend = wherePending{}
	return t, nil
}

func (w *whereIterator) Close() error { return w.child.Close() }

func (w *whereIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := w.child.Reset(ctx, dctx); err != nil {
		return err
	}
	w.pend = wherePending{}
	w.pendErr = nil
	return w.Open(ctx, dctx)
}

func (w *whereIterator) BoundVariables() []string { return nil }

func (w *whereIterator) VariableDependencies() map[string]types.DependencyKind {
	return w.cond.Dependencies
}

func (w *whereIterator) Projection(parent map[string]types.DependencyKind) map[string]types.DependencyKind {
	merged := runtime.MergeProjection(parent, w.VariableDependencies(), nil)
	return w.child.Projection(merged)
}

func (w *whereIterator) IsDataFrame() bool { return w.child.IsDataFrame() }
