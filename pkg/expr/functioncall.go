package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/registry"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// resolveTailNode threads tail position through If/Switch (spec §4.5
// Conditional), the same way the teacher's eval_lambda.go marks tail
// position on the evaluation context and propagates it through conditional
// branches instead of only recognizing a bare call as the whole body: a
// recursive local: function almost always gates its base case behind an
// `if`, so the trampoline must resolve which branch actually executes
// before it can tell whether that branch is a self-tail-call. Evaluates
// exactly the branch selectors that matter (the If's condition, or the
// Switch's operand and cases up to the first match) against callCtx, then
// recurses into the chosen branch until it bottoms out at a non-control-flow
// expression.
func resolveTailNode(ctx context.Context, callCtx *rcontext.DynamicContext, compile Compiler, node *types.ASTNode) (*types.ASTNode, error) {
	for {
		switch {
		case node != nil && node.Type == types.NodeIf && len(node.Children) == 3:
			cond, err := compile(node.Children[0])
			if err != nil {
				return nil, err
			}
			seq, err := drain(ctx, callCtx, cond)
			if err != nil {
				return nil, err
			}
			b, err := registry.EffectiveBooleanValue(seq)
			if err != nil {
				return nil, err
			}
			if b {
				node = node.Children[1]
			} else {
				node = node.Children[2]
			}
		case node != nil && node.Type == types.NodeSwitch:
			opIt, err := compile(node.LHS)
			if err != nil {
				return nil, err
			}
			opSeq, err := drain(ctx, callCtx, opIt)
			if err != nil {
				return nil, err
			}
			next := node.RHS
			for i, step := range node.Steps {
				matchIt, err := compile(step)
				if err != nil {
					return nil, err
				}
				matchSeq, err := drain(ctx, callCtx, matchIt)
				if err != nil {
					return nil, err
				}
				if sequenceEqual(opSeq, matchSeq) {
					next = node.Arguments[i]
					break
				}
			}
			node = next
		default:
			return node, nil
		}
	}
}

// Compiler turns a function body AST node into a fresh RuntimeIterator. The
// compiler visitor that builds call sites also implements this, so
// FunctionCall can recompile a user-defined function's body against a new
// per-call DynamicContext without pkg/expr importing the compiler package
// (which itself imports pkg/expr to build every other node kind).
type Compiler func(body *types.ASTNode) (runtime.RuntimeIterator, error)

// callIterator evaluates a resolved function's argument iterators and
// dispatches to either a built-in Impl or a compiled user-function body,
// trampolining self-tail-calls instead of growing the Go call stack (spec
// §5 "Shared resources": recursive local: functions must not blow the host
// stack on deep recursion). Grounded on the teacher's evalApply +
// trampoline loop (eval_functions.go) generalized from JSONata's single
// current-value threading to the multi-arg, multi-arity call convention
// spec §4.6 requires.
type callIterator struct {
	runtime.Base
	name     string
	args     []runtime.RuntimeIterator
	registry *registry.Registry
	compile  Compiler
	result   *sliceIterator
}

// FunctionCall builds a call-site iterator for name(args...), resolved by
// exact arity against reg at Open time (spec §4.6 "Resolution").
func FunctionCall(reg *registry.Registry, compile Compiler, name string, args []runtime.RuntimeIterator) *callIterator {
	return &callIterator{name: name, args: args, registry: reg, compile: compile}
}

func (c *callIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	entry, err := c.registry.Resolve(c.name, len(c.args))
	if err != nil {
		return err
	}
	argSeqs := make([][]types.Item, len(c.args))
	for i, a := range c.args {
		seq, err := drain(ctx, dctx, a)
		if err != nil {
			return err
		}
		argSeqs[i] = seq
	}

	var out []types.Item
	if entry.Builtin != nil {
		out, err = entry.Builtin(ctx, dctx, argSeqs)
		if err != nil {
			return err
		}
	} else {
		out, err = c.invokeUserFunction(ctx, dctx, entry.UserFn, argSeqs)
		if err != nil {
			return err
		}
	}
	c.result = newSliceIterator(out)
	return c.result.Open(ctx, dctx)
}

// invokeUserFunction runs fn against argSeqs, trampolining while the body —
// resolved through any enclosing if/switch via resolveTailNode — is a direct
// self-recursive call in tail position. Mutual recursion and non-tail
// recursion still recurse through the Go stack, guarded by the dynamic
// context's EnterCall depth budget.
func (c *callIterator) invokeUserFunction(ctx context.Context, dctx *rcontext.DynamicContext, fn *types.Function, argSeqs [][]types.Item) ([]types.Item, error) {
	if !dctx.EnterCall() {
		return nil, types.NewError(types.ErrDynamicError, "recursion depth limit exceeded", -1)
	}
	defer dctx.ExitCall()

	for {
		callCtx, err := bindParams(fn, argSeqs)
		if err != nil {
			return nil, err
		}
		body, err := resolveTailNode(ctx, callCtx, c.compile, fn.Body)
		if err != nil {
			return nil, err
		}
		if tailName, tailArgs, ok := selfTailCall(body, fn); ok {
			_ = tailName
			nextArgs := make([][]types.Item, len(tailArgs))
			for i, argNode := range tailArgs {
				it, err := c.compile(argNode)
				if err != nil {
					return nil, err
				}
				seq, err := drain(ctx, callCtx, it)
				if err != nil {
					return nil, err
				}
				nextArgs[i] = seq
			}
			argSeqs = nextArgs
			continue
		}
		it, err := c.compile(body)
		if err != nil {
			return nil, err
		}
		return drain(ctx, callCtx, it)
	}
}

func bindParams(fn *types.Function, argSeqs [][]types.Item) (*rcontext.DynamicContext, error) {
	closure, ok := fn.Closure.(*rcontext.DynamicContext)
	if !ok || closure == nil {
		return nil, types.NewError(types.ErrDynamicError, "function has no captured closure environment", -1)
	}
	if len(fn.Params) != len(argSeqs) {
		return nil, types.NewError(types.ErrInvalidArgument, "argument count does not match function arity", -1)
	}
	callCtx := closure.NewChildContext()
	for i, p := range fn.Params {
		callCtx.SetBinding(p, argSeqs[i])
	}
	return callCtx, nil
}

// selfTailCall reports whether body is itself a call to fn's own name in
// tail position, returning the argument AST nodes to re-evaluate for the
// next trampoline iteration.
func selfTailCall(body *types.ASTNode, fn *types.Function) (string, []*types.ASTNode, bool) {
	if body == nil || body.Type != types.NodeFunctionCall {
		return "", nil, false
	}
	if body.FunctionName != fn.Name || len(body.Arguments) != len(fn.Params) {
		return "", nil, false
	}
	return body.FunctionName, body.Arguments, true
}

func (c *callIterator) HasNext() bool             { return c.result != nil && c.result.HasNext() }
func (c *callIterator) Next() (types.Item, error) { return c.result.Next() }
func (c *callIterator) Close() error {
	if c.result == nil {
		return nil
	}
	return c.result.Close()
}
func (c *callIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return c.Open(ctx, dctx)
}
