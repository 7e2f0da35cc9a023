package compile

import (
	"github.com/sandrolain/jsoniqcore/pkg/expr"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// arithOpTable maps the external parser's operator token (StrValue) onto
// this module's ArithOp enum. JSONiq spells these "+", "-", "*", "div",
// "idiv", "mod".
var arithOpTable = map[string]expr.ArithOp{
	"+":    expr.Add,
	"-":    expr.Subtract,
	"*":    expr.Multiply,
	"div":  expr.Divide,
	"idiv": expr.IntegerDivide,
	"mod":  expr.Modulo,
}

func (c *Compiler) compileArithmetic(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	op, ok := arithOpTable[node.StrValue]
	if !ok {
		return nil, types.NewError(types.ErrDynamicError, "unknown arithmetic operator: "+node.StrValue, node.Position)
	}
	l, err := c.Compile(node.LHS)
	if err != nil {
		return nil, err
	}
	r, err := c.Compile(node.RHS)
	if err != nil {
		return nil, err
	}
	return expr.Arithmetic(op, l, r), nil
}

var valueCompareOpTable = map[string]expr.ValueCompareOp{
	"eq": expr.ValueEq,
	"ne": expr.ValueNe,
	"lt": expr.ValueLt,
	"le": expr.ValueLe,
	"gt": expr.ValueGt,
	"ge": expr.ValueGe,
}

func (c *Compiler) compileValueComparison(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	op, ok := valueCompareOpTable[node.StrValue]
	if !ok {
		return nil, types.NewError(types.ErrDynamicError, "unknown value comparison operator: "+node.StrValue, node.Position)
	}
	l, err := c.Compile(node.LHS)
	if err != nil {
		return nil, err
	}
	r, err := c.Compile(node.RHS)
	if err != nil {
		return nil, err
	}
	return expr.ValueComparison(op, l, r), nil
}

var generalCompareOpTable = map[string]expr.GeneralCompareOp{
	"=":  expr.GeneralEq,
	"!=": expr.GeneralNe,
	"<":  expr.GeneralLt,
	"<=": expr.GeneralLe,
	">":  expr.GeneralGt,
	">=": expr.GeneralGe,
}

func (c *Compiler) compileGeneralComparison(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	op, ok := generalCompareOpTable[node.StrValue]
	if !ok {
		return nil, types.NewError(types.ErrDynamicError, "unknown general comparison operator: "+node.StrValue, node.Position)
	}
	l, err := c.Compile(node.LHS)
	if err != nil {
		return nil, err
	}
	r, err := c.Compile(node.RHS)
	if err != nil {
		return nil, err
	}
	return expr.GeneralComparison(op, l, r), nil
}
