package compile

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// functionLiteralIterator streams a single function item, capturing the
// enclosing DynamicContext as the closure at Open time — the closure isn't
// known until evaluation reaches this node, so it cannot be captured any
// earlier than Open (spec §4.6 "Closures").
type functionLiteralIterator struct {
	runtime.Base
	node *types.ASTNode
	item *oneShotIterator
}

// newFunctionLiteral builds a "function($p1, $p2) { body }" literal
// (node.Params, node.Body) that resolves to a KindFunction item over its own
// closure once Open runs.
func newFunctionLiteral(node *types.ASTNode) runtime.RuntimeIterator {
	return &functionLiteralIterator{node: node}
}

func (f *functionLiteralIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	fn := &types.Function{
		Name:    f.node.FunctionName,
		Params:  f.node.Params,
		Body:    f.node.Body,
		Closure: dctx,
		Arity:   len(f.node.Params),
	}
	f.item = &oneShotIterator{item: types.NewFunction(fn)}
	return f.item.Open(ctx, dctx)
}
func (f *functionLiteralIterator) HasNext() bool             { return f.item.HasNext() }
func (f *functionLiteralIterator) Next() (types.Item, error) { return f.item.Next() }
func (f *functionLiteralIterator) Close() error              { return nil }
func (f *functionLiteralIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return f.Open(ctx, dctx)
}

// higherOrderCallIterator invokes a function-valued source expression with
// argument iterators (spec §4.6 "Higher-order calls": $f(...) where $f is
// itself an expression, not a name resolved through the registry). The
// invocation logic mirrors pkg/expr's callIterator.invokeUserFunction, but
// duplicated here rather than exported: that function is tied to registry
// resolution and self-tail-call trampolining by name, neither of which
// applies to a call through an already-evaluated function item.
type higherOrderCallIterator struct {
	runtime.Base
	compiler *Compiler
	source   runtime.RuntimeIterator
	args     []runtime.RuntimeIterator
	result   *oneShotSeqIterator
}

func (c *Compiler) compileHigherOrderCall(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	source, err := c.Compile(node.LHS)
	if err != nil {
		return nil, err
	}
	args := make([]runtime.RuntimeIterator, len(node.Arguments))
	for i, a := range node.Arguments {
		it, err := c.Compile(a)
		if err != nil {
			return nil, err
		}
		args[i] = it
	}
	return &higherOrderCallIterator{compiler: c, source: source, args: args}, nil
}

func (h *higherOrderCallIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	fnItem, err := singleInto(ctx, dctx, h.source)
	if err != nil {
		return err
	}
	if fnItem.Kind != types.KindFunction || fnItem.Func == nil {
		return types.NewError(types.ErrTypeError, "postfix call target is not a function item", -1)
	}
	fn := fnItem.Func
	argSeqs := make([][]types.Item, len(h.args))
	for i, a := range h.args {
		seq, err := drainInto(ctx, dctx, a)
		if err != nil {
			return err
		}
		argSeqs[i] = seq
	}
	if len(fn.Params) != len(argSeqs) {
		return types.NewError(types.ErrInvalidArgument, "argument count does not match function arity", -1)
	}
	closure, ok := fn.Closure.(*rcontext.DynamicContext)
	if !ok || closure == nil {
		return types.NewError(types.ErrDynamicError, "function has no captured closure environment", -1)
	}
	if !dctx.EnterCall() {
		return types.NewError(types.ErrDynamicError, "recursion depth limit exceeded", -1)
	}
	defer dctx.ExitCall()

	callCtx := closure.NewChildContext()
	for i, p := range fn.Params {
		callCtx.SetBinding(p, argSeqs[i])
	}
	bodyIt, err := h.compiler.Compile(fn.Body)
	if err != nil {
		return err
	}
	seq, err := drainInto(ctx, callCtx, bodyIt)
	if err != nil {
		return err
	}
	h.result = &oneShotSeqIterator{items: seq}
	return h.result.Open(ctx, dctx)
}

func (h *higherOrderCallIterator) HasNext() bool             { return h.result != nil && h.result.HasNext() }
func (h *higherOrderCallIterator) Next() (types.Item, error) { return h.result.Next() }
func (h *higherOrderCallIterator) Close() error {
	if h.result == nil {
		return nil
	}
	return h.result.Close()
}
func (h *higherOrderCallIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return h.Open(ctx, dctx)
}

// oneShotSeqIterator streams a fixed, already-computed sequence.
type oneShotSeqIterator struct {
	runtime.Base
	items []types.Item
	idx   int
}

func (o *oneShotSeqIterator) Open(context.Context, *rcontext.DynamicContext) error { o.idx = 0; return nil }
func (o *oneShotSeqIterator) HasNext() bool                                       { return o.idx < len(o.items) }
func (o *oneShotSeqIterator) Next() (types.Item, error) {
	if o.idx >= len(o.items) {
		return types.Item{}, runtime.FlowError("Next called with HasNext false")
	}
	v := o.items[o.idx]
	o.idx++
	return v, nil
}
func (o *oneShotSeqIterator) Close() error { return nil }
func (o *oneShotSeqIterator) Reset(context.Context, *rcontext.DynamicContext) error {
	o.idx = 0
	return nil
}
