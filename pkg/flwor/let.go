package flwor

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// letIterator implements one "let $var := expr" clause (spec §4.2): binds
// the whole result sequence of expr, evaluated once per input tuple, to
// $var without changing the number of tuples flowing through.
type letIterator struct {
	child    runtime.TupleIterator
	variable string
	expr     *types.ASTNode
	compile  ExprCompiler

	ctx  context.Context
	dctx *rcontext.DynamicContext
}

// Let builds a let-clause TupleIterator over child.
func Let(child runtime.TupleIterator, variable string, expr *types.ASTNode, compile ExprCompiler) *letIterator {
	return &letIterator{child: child, variable: variable, expr: expr, compile: compile}
}

func (l *letIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	l.ctx, l.dctx = ctx, dctx
	return l.child.Open(ctx, dctx)
}

func (l *letIterator) HasNext() bool { return l.child.HasNext() }

func (l *letIterator) Next() (runtime.Tuple, error) {
	t, err := l.child.Next()
	if err != nil {
		return runtime.Tuple{}, err
	}
	it, err := l.compile(l.expr)
	if err != nil {
		return runtime.Tuple{}, err
	}
	exprCtx := tupleContext(l.dctx, t)
	seq, err := drainExpr(l.ctx, exprCtx, it)
	if err != nil {
		return runtime.Tuple{}, err
	}
	return t.With(l.variable, seq), nil
}

func (l *letIterator) Close() error { return l.child.Close() }

func (l *letIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := l.child.Reset(ctx, dctx); err != nil {
		return err
	}
	return l.Open(ctx, dctx)
}

func (l *letIterator) BoundVariables() []string { return []string{l.variable} }

func (l *letIterator) VariableDependencies() map[string]types.DependencyKind {
	return l.expr.Dependencies
}

func (l *letIterator) Projection(parent map[string]types.DependencyKind) map[string]types.DependencyKind {
	merged := runtime.MergeProjection(parent, l.VariableDependencies(), nil)
	return l.child.Projection(merged)
}

func (l *letIterator) IsDataFrame() bool { return l.child.IsDataFrame() }
