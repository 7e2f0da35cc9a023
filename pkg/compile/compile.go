// Package compile turns an already-parsed expression AST (spec §1: parsing
// itself is external to this module) into a runtime.RuntimeIterator, by
// dispatching on ASTNode.Type and delegating to the per-node-kind
// constructors of pkg/expr and pkg/flwor. It is the one package allowed to
// import both leaves, so neither leaf needs to know the other exists.
//
// Grounded on the teacher's eval_impl.go dispatch switch (one case per
// AST node kind, calling into a per-kind eval* function) — the same shape,
// generalized from "evaluate against one current value" to "build a
// RuntimeIterator", since this core is a pull-based iterator pipeline
// instead of a tree-walking evaluator.
package compile

import (
	"context"
	"fmt"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/distributed"
	"github.com/sandrolain/jsoniqcore/pkg/expr"
	"github.com/sandrolain/jsoniqcore/pkg/registry"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// Compiler holds everything node compilation needs beyond the AST itself:
// the function registry for call resolution and, when present, a
// distributed backend for order-by clauses annotated ModeDataFrame/ModeRDD.
type Compiler struct {
	Registry *registry.Registry
	Backend  distributed.Backend
}

// New creates a Compiler bound to reg and, optionally, a distributed
// backend (nil is valid — order-by clauses simply always take the local
// algorithm then, per spec §4.4 "absent a configured backend, fall back to
// local").
func New(reg *registry.Registry, backend distributed.Backend) *Compiler {
	return &Compiler{Registry: reg, Backend: backend}
}

// Compile builds a RuntimeIterator for node. Its method value satisfies both
// expr.Compiler and flwor.ExprCompiler, which is why FunctionCall/For/
// Let/Where/GroupBy/OrderBy/Return accept "a function shaped like this"
// rather than a *Compiler directly — neither leaf package needs to import
// this one.
func (c *Compiler) Compile(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	if node == nil {
		return expr.EmptySequence(), nil
	}
	switch node.Type {
	case types.NodeStringLiteral:
		return expr.Literal(types.NewString(node.StrValue)), nil
	case types.NodeIntegerLit:
		return c.compileIntegerLiteral(node)
	case types.NodeDoubleLit:
		return expr.Literal(types.NewDouble(node.DblValue)), nil
	case types.NodeDecimalLit:
		return c.compileDecimalLiteral(node)
	case types.NodeBooleanLit:
		if node.BoolValue {
			return expr.Literal(types.True), nil
		}
		return expr.Literal(types.False), nil
	case types.NodeNullLit:
		return expr.Literal(types.Null), nil
	case types.NodeVariableRef:
		return expr.VariableRef(node.StrValue), nil

	case types.NodeArrayConstructor:
		return c.compileArrayConstructor(node)
	case types.NodeObjectConstructor:
		return c.compileObjectConstructor(node)

	case types.NodeArithmetic:
		return c.compileArithmetic(node)
	case types.NodeValueComparison:
		return c.compileValueComparison(node)
	case types.NodeGeneralCompare:
		return c.compileGeneralComparison(node)
	case types.NodeLogicalAnd:
		l, err := c.Compile(node.LHS)
		if err != nil {
			return nil, err
		}
		r, err := c.Compile(node.RHS)
		if err != nil {
			return nil, err
		}
		return expr.LogicalAnd(l, r), nil
	case types.NodeLogicalOr:
		l, err := c.Compile(node.LHS)
		if err != nil {
			return nil, err
		}
		r, err := c.Compile(node.RHS)
		if err != nil {
			return nil, err
		}
		return expr.LogicalOr(l, r), nil
	case types.NodeLogicalNot:
		l, err := c.Compile(node.LHS)
		if err != nil {
			return nil, err
		}
		return expr.LogicalNot(l), nil
	case types.NodeRange:
		lo, err := c.Compile(node.LHS)
		if err != nil {
			return nil, err
		}
		hi, err := c.Compile(node.RHS)
		if err != nil {
			return nil, err
		}
		return expr.Range(lo, hi), nil
	case types.NodeSequenceConcat:
		children := make([]runtime.RuntimeIterator, len(node.Children))
		for i, ch := range node.Children {
			it, err := c.Compile(ch)
			if err != nil {
				return nil, err
			}
			children[i] = it
		}
		return expr.SequenceConcat(children...), nil

	case types.NodeIf:
		return c.compileIf(node)
	case types.NodeSwitch:
		return c.compileSwitch(node)
	case types.NodeTypeswitch:
		return c.compileTypeswitch(node)
	case types.NodeQuantified:
		return c.compileQuantified(node)

	case types.NodePostfixKey:
		src, err := c.Compile(node.LHS)
		if err != nil {
			return nil, err
		}
		return expr.PostfixKey(src, node.StrValue), nil
	case types.NodePostfixIndex:
		src, err := c.Compile(node.LHS)
		if err != nil {
			return nil, err
		}
		idx, err := c.Compile(node.RHS)
		if err != nil {
			return nil, err
		}
		return expr.PostfixIndex(src, idx), nil
	case types.NodePostfixPredicate:
		src, err := c.Compile(node.LHS)
		if err != nil {
			return nil, err
		}
		predNode := node.RHS
		return expr.PostfixPredicate(src, func(child *rcontext.DynamicContext) runtime.RuntimeIterator {
			it, err := c.Compile(predNode)
			if err != nil {
				return errIterator{err}
			}
			return it
		}), nil
	case types.NodePostfixCall:
		return c.compileHigherOrderCall(node)

	case types.NodeFunctionCall:
		args := make([]runtime.RuntimeIterator, len(node.Arguments))
		for i, a := range node.Arguments {
			it, err := c.Compile(a)
			if err != nil {
				return nil, err
			}
			args[i] = it
		}
		return expr.FunctionCall(c.Registry, c.Compile, node.FunctionName, args), nil
	case types.NodeFunctionDecl:
		return newFunctionLiteral(node), nil

	case types.NodeFlwor:
		return c.compileFlwor(node)

	default:
		return nil, types.NewError(types.ErrDynamicError, fmt.Sprintf("compile: unsupported node type %q", node.Type), node.Position)
	}
}

// errIterator is a RuntimeIterator that fails immediately on Open, used to
// surface a compile-time error discovered inside a closure that itself
// cannot return an error (e.g. PostfixPredicate's per-item predicate
// factory).
type errIterator struct{ err error }

func (e errIterator) Open(context.Context, *rcontext.DynamicContext) error { return e.err }
func (e errIterator) HasNext() bool                                       { return false }
func (e errIterator) Next() (types.Item, error)                           { return types.Item{}, e.err }
func (e errIterator) Close() error                                        { return nil }
func (e errIterator) Reset(context.Context, *rcontext.DynamicContext) error { return e.err }
func (e errIterator) Kind() runtime.ExecutionKind                         { return runtime.LocalOnly }
func (e errIterator) IsRDD() bool                                         { return false }
func (e errIterator) GetRDD(context.Context) (distributed.ItemCollection, error) {
	return nil, e.err
}
func (e errIterator) IsDataFrame() bool { return false }
func (e errIterator) GetDataFrame(context.Context, []string) (distributed.DataFrame, error) {
	return nil, e.err
}
