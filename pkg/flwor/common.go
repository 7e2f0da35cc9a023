// Package flwor implements the FLWOR clause pipeline of spec §4.2–§4.4:
// For, Let, Where, GroupBy, OrderBy (local and distributed), Count, and
// Return, each a runtime.TupleIterator consuming its child clause's tuple
// stream and producing its own.
//
// Grounded on the teacher evaluator's block/statement chaining
// (eval_impl.go), where each statement threads an EvalContext to the next;
// here each clause threads a runtime.Tuple instead of a single value, and
// the chain is an explicit TupleIterator pipeline rather than a recursive
// AST walk, matching the pull-based iterator protocol spec §3 requires.
package flwor

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// rootTupleIterator is the head of every FLWOR pipeline: it yields exactly
// one empty tuple, giving the first For/Let clause something to extend.
type rootTupleIterator struct {
	emitted bool
}

// Root returns the TupleIterator every FLWOR pipeline starts from.
func Root() *rootTupleIterator { return &rootTupleIterator{} }

func (r *rootTupleIterator) Open(context.Context, *rcontext.DynamicContext) error {
	r.emitted = false
	return nil
}
func (r *rootTupleIterator) HasNext() bool { return !r.emitted }
func (r *rootTupleIterator) Next() (runtime.Tuple, error) {
	if r.emitted {
		return runtime.Tuple{}, runtime.FlowError("Next called with HasNext false")
	}
	r.emitted = true
	return runtime.NewTuple(), nil
}
func (r *rootTupleIterator) Close() error                                       { return nil }
func (r *rootTupleIterator) Reset(context.Context, *rcontext.DynamicContext) error { r.emitted = false; return nil }
func (r *rootTupleIterator) BoundVariables() []string                           { return nil }
func (r *rootTupleIterator) VariableDependencies() map[string]types.DependencyKind {
	return nil
}
func (r *rootTupleIterator) Projection(parent map[string]types.DependencyKind) map[string]types.DependencyKind {
	return parent
}
func (r *rootTupleIterator) IsDataFrame() bool { return false }

// tupleContext builds the child DynamicContext an expression embedded in a
// FLWOR clause evaluates against: the outer dctx extended with every
// binding the current tuple carries.
func tupleContext(dctx *rcontext.DynamicContext, t runtime.Tuple) *rcontext.DynamicContext {
	child := dctx.NewChildContext()
	for name, seq := range t.Bindings {
		child.SetBinding(name, seq)
	}
	return child
}

// ExprCompiler compiles an expression AST node into a RuntimeIterator,
// evaluated fresh against each tuple's extended context. Matches
// expr.Compiler in shape but declared independently so pkg/flwor does not
// import pkg/expr (pkg/expr has no need to import pkg/flwor back, but
// keeping the dependency one-directional — compiler package depends on
// both leaves — avoids coupling the two leaf packages to each other).
type ExprCompiler func(node *types.ASTNode) (runtime.RuntimeIterator, error)
