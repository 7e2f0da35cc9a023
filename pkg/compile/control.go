package compile

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/expr"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// compileIf expects node.Children == [cond, thenBranch, elseBranch].
func (c *Compiler) compileIf(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	if len(node.Children) != 3 {
		return nil, types.NewError(types.ErrDynamicError, "if requires condition, then and else branches", node.Position)
	}
	cond, err := c.Compile(node.Children[0])
	if err != nil {
		return nil, err
	}
	thenIt, err := c.Compile(node.Children[1])
	if err != nil {
		return nil, err
	}
	elseIt, err := c.Compile(node.Children[2])
	if err != nil {
		return nil, err
	}
	return expr.If(cond, thenIt, elseIt), nil
}

// compileSwitch expects node.LHS = operand, node.Steps = case-match
// expressions, node.Arguments = parallel case-result expressions,
// node.RHS = default branch.
func (c *Compiler) compileSwitch(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	if len(node.Steps) != len(node.Arguments) {
		return nil, types.NewError(types.ErrDynamicError, "switch case/result count mismatch", node.Position)
	}
	operand, err := c.Compile(node.LHS)
	if err != nil {
		return nil, err
	}
	cases := make([]expr.SwitchCase, len(node.Steps))
	for i := range node.Steps {
		matchIt, err := c.Compile(node.Steps[i])
		if err != nil {
			return nil, err
		}
		resultIt, err := c.Compile(node.Arguments[i])
		if err != nil {
			return nil, err
		}
		cases[i] = expr.SwitchCase{Match: matchIt, Result: resultIt}
	}
	defaultIt, err := c.Compile(node.RHS)
	if err != nil {
		return nil, err
	}
	return expr.Switch(operand, cases, defaultIt), nil
}

// compileTypeswitch expects node.LHS = operand, node.Children = one
// pseudo-node per case (StrValue = kind name, Variable = bound name,
// Body = result expression), node.RHS = default branch.
func (c *Compiler) compileTypeswitch(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	operand, err := c.Compile(node.LHS)
	if err != nil {
		return nil, err
	}
	cases := make([]expr.TypeswitchCase, len(node.Children))
	for i, cn := range node.Children {
		kind, ok := typeswitchKindTable[cn.StrValue]
		if !ok {
			return nil, types.NewError(types.ErrDynamicError, "unknown typeswitch case type: "+cn.StrValue, cn.Position)
		}
		variable := cn.Variable
		resultBody := cn.Body
		cases[i] = expr.TypeswitchCase{
			Kind:     kind,
			Variable: variable,
			Result: func(bound types.Item) runtime.RuntimeIterator {
				return &boundVarIterator{compiler: c, variable: variable, value: bound, body: resultBody}
			},
		}
	}
	defaultBody := node.RHS
	return expr.Typeswitch(operand, cases, func(seq []types.Item) runtime.RuntimeIterator {
		return &boundSeqIterator{compiler: c, variable: node.Variable, seq: seq, body: defaultBody}
	}), nil
}

var typeswitchKindTable = map[string]types.ItemKind{
	"null":     types.KindNull,
	"boolean":  types.KindBoolean,
	"string":   types.KindString,
	"integer":  types.KindInteger,
	"decimal":  types.KindDecimal,
	"double":   types.KindDouble,
	"duration": types.KindDuration,
	"dateTime": types.KindDateTime,
	"date":     types.KindDate,
	"time":     types.KindTime,
	"binary":   types.KindBinary,
	"array":    types.KindArray,
	"object":   types.KindObject,
	"function": types.KindFunction,
}

// boundVarIterator binds variable to a single value in a fresh child
// context, then streams the compiled body against it — the glue a
// typeswitch case needs between "here is the matched item" and "compile
// the result expression against a context that can see it".
type boundVarIterator struct {
	runtime.Base
	compiler *Compiler
	variable string
	value    types.Item
	body     *types.ASTNode
	inner    runtime.RuntimeIterator
}

func (b *boundVarIterator) open(dctx *rcontext.DynamicContext) (*rcontext.DynamicContext, error) {
	child := dctx.NewChildContext()
	if b.variable != "" {
		child.SetBinding(b.variable, []types.Item{b.value})
	}
	it, err := b.compiler.Compile(b.body)
	if err != nil {
		return nil, err
	}
	b.inner = it
	return child, nil
}

func (b *boundVarIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	child, err := b.open(dctx)
	if err != nil {
		return err
	}
	return b.inner.Open(ctx, child)
}
func (b *boundVarIterator) HasNext() bool             { return b.inner.HasNext() }
func (b *boundVarIterator) Next() (types.Item, error) { return b.inner.Next() }
func (b *boundVarIterator) Close() error {
	if b.inner == nil {
		return nil
	}
	return b.inner.Close()
}
func (b *boundVarIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return b.Open(ctx, dctx)
}

// boundSeqIterator is boundVarIterator's typeswitch-default counterpart,
// binding the whole unmatched sequence instead of a single value.
type boundSeqIterator struct {
	runtime.Base
	compiler *Compiler
	variable string
	seq      []types.Item
	body     *types.ASTNode
	inner    runtime.RuntimeIterator
}

func (b *boundSeqIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	child := dctx.NewChildContext()
	if b.variable != "" {
		child.SetBinding(b.variable, b.seq)
	}
	it, err := b.compiler.Compile(b.body)
	if err != nil {
		return err
	}
	b.inner = it
	return b.inner.Open(ctx, child)
}
func (b *boundSeqIterator) HasNext() bool             { return b.inner.HasNext() }
func (b *boundSeqIterator) Next() (types.Item, error) { return b.inner.Next() }
func (b *boundSeqIterator) Close() error {
	if b.inner == nil {
		return nil
	}
	return b.inner.Close()
}
func (b *boundSeqIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return b.Open(ctx, dctx)
}

// compileQuantified expects node.StrValue = "some"|"every", node.Groups =
// the "$v in expr" bindings (GroupSpec's Variable+Expr shape reused
// verbatim), node.Body = the satisfies predicate.
func (c *Compiler) compileQuantified(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	kind := expr.QuantifierSome
	if node.StrValue == "every" {
		kind = expr.QuantifierEvery
	}
	vars := make([]expr.QuantifiedVar, len(node.Groups))
	for i, g := range node.Groups {
		it, err := c.Compile(g.Expr)
		if err != nil {
			return nil, err
		}
		vars[i] = expr.QuantifiedVar{Name: g.Variable, Seq: it}
	}
	body := node.Body
	return expr.QuantifiedExpr(kind, vars, func(child *rcontext.DynamicContext) runtime.RuntimeIterator {
		it, err := c.Compile(body)
		if err != nil {
			return errIterator{err}
		}
		return it
	}), nil
}
