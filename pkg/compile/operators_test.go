package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func TestCompileArithmeticDispatchesEveryOperatorToken(t *testing.T) {
	c := newCompiler()
	cases := map[string]int64{"+": 9, "-": 3, "*": 18, "div": 2, "idiv": 2, "mod": 0}
	for op, want := range cases {
		node := &types.ASTNode{Type: types.NodeArithmetic, StrValue: op, LHS: intLit(6), RHS: intLit(3)}
		got := drain(t, c, node)
		require.Len(t, got, 1, "operator %q", op)
		assert.Equal(t, want, got[0].Int, "operator %q", op)
	}
}

func TestCompileArithmeticUnknownOperatorIsDynamicError(t *testing.T) {
	c := newCompiler()
	_, err := c.Compile(&types.ASTNode{Type: types.NodeArithmetic, StrValue: "??", LHS: intLit(1), RHS: intLit(1)})
	require.Error(t, err)
}

func TestCompileValueComparisonDispatchesEveryOperatorToken(t *testing.T) {
	c := newCompiler()
	for _, op := range []string{"eq", "ne", "lt", "le", "gt", "ge"} {
		node := &types.ASTNode{Type: types.NodeValueComparison, StrValue: op, LHS: intLit(1), RHS: intLit(2)}
		got := drain(t, c, node)
		require.Len(t, got, 1, "operator %q", op)
		assert.Equal(t, types.KindBoolean, got[0].Kind, "operator %q", op)
	}
}

func TestCompileValueComparisonUnknownOperatorIsDynamicError(t *testing.T) {
	c := newCompiler()
	_, err := c.Compile(&types.ASTNode{Type: types.NodeValueComparison, StrValue: "??", LHS: intLit(1), RHS: intLit(1)})
	require.Error(t, err)
}

func TestCompileGeneralComparisonDispatchesEveryOperatorToken(t *testing.T) {
	c := newCompiler()
	for _, op := range []string{"=", "!=", "<", "<=", ">", ">="} {
		node := &types.ASTNode{Type: types.NodeGeneralCompare, StrValue: op, LHS: intLit(1), RHS: intLit(2)}
		got := drain(t, c, node)
		require.Len(t, got, 1, "operator %q", op)
		assert.Equal(t, types.KindBoolean, got[0].Kind, "operator %q", op)
	}
}

func TestCompileLogicalAndOrNot(t *testing.T) {
	c := newCompiler()
	trueLit := &types.ASTNode{Type: types.NodeBooleanLit, BoolValue: true}
	falseLit := &types.ASTNode{Type: types.NodeBooleanLit, BoolValue: false}

	and := &types.ASTNode{Type: types.NodeLogicalAnd, LHS: trueLit, RHS: falseLit}
	assert.False(t, drain(t, c, and)[0].Bool)

	or := &types.ASTNode{Type: types.NodeLogicalOr, LHS: falseLit, RHS: trueLit}
	assert.True(t, drain(t, c, or)[0].Bool)

	not := &types.ASTNode{Type: types.NodeLogicalNot, LHS: trueLit}
	assert.False(t, drain(t, c, not)[0].Bool)
}
