package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func TestCompileIfPicksBranchByCondition(t *testing.T) {
	c := newCompiler()
	trueLit := &types.ASTNode{Type: types.NodeBooleanLit, BoolValue: true}
	falseLit := &types.ASTNode{Type: types.NodeBooleanLit, BoolValue: false}

	thenNode := &types.ASTNode{Type: types.NodeIf, Children: []*types.ASTNode{trueLit, intLit(1), intLit(2)}}
	assert.Equal(t, int64(1), drain(t, c, thenNode)[0].Int)

	elseNode := &types.ASTNode{Type: types.NodeIf, Children: []*types.ASTNode{falseLit, intLit(1), intLit(2)}}
	assert.Equal(t, int64(2), drain(t, c, elseNode)[0].Int)
}

func TestCompileIfWrongChildCountIsError(t *testing.T) {
	c := newCompiler()
	_, err := c.Compile(&types.ASTNode{Type: types.NodeIf, Children: []*types.ASTNode{intLit(1)}})
	require.Error(t, err)
}

func TestCompileSwitchMatchesFirstEqualCase(t *testing.T) {
	c := newCompiler()
	node := &types.ASTNode{
		Type:      types.NodeSwitch,
		LHS:       intLit(2),
		Steps:     []*types.ASTNode{intLit(1), intLit(2)},
		Arguments: []*types.ASTNode{intLit(100), intLit(200)},
		RHS:       intLit(-1),
	}
	assert.Equal(t, int64(200), drain(t, c, node)[0].Int)
}

func TestCompileSwitchCaseResultCountMismatchIsError(t *testing.T) {
	c := newCompiler()
	node := &types.ASTNode{
		Type:      types.NodeSwitch,
		LHS:       intLit(1),
		Steps:     []*types.ASTNode{intLit(1)},
		Arguments: []*types.ASTNode{},
		RHS:       intLit(-1),
	}
	_, err := c.Compile(node)
	require.Error(t, err)
}

func TestCompileTypeswitchDispatchesByKindAndBindsVariable(t *testing.T) {
	c := newCompiler()
	node := &types.ASTNode{
		Type: types.NodeTypeswitch,
		LHS:  intLit(42),
		Children: []*types.ASTNode{
			{StrValue: "string", Variable: "v", Body: intLit(-1)},
			{StrValue: "integer", Variable: "v", Body: varRef("v")},
		},
		RHS: intLit(-2),
	}
	assert.Equal(t, int64(42), drain(t, c, node)[0].Int)
}

func TestCompileTypeswitchUnknownCaseTypeIsError(t *testing.T) {
	c := newCompiler()
	node := &types.ASTNode{
		Type:     types.NodeTypeswitch,
		LHS:      intLit(1),
		Children: []*types.ASTNode{{StrValue: "not-a-real-kind", Variable: "v", Body: intLit(1)}},
		RHS:      intLit(-1),
	}
	_, err := c.Compile(node)
	require.Error(t, err)
}

func TestCompileTypeswitchFallsBackToDefaultWithSeqVariable(t *testing.T) {
	c := newCompiler()
	node := &types.ASTNode{
		Type:     types.NodeTypeswitch,
		LHS:      strLit("hi"),
		Children: []*types.ASTNode{{StrValue: "integer", Variable: "v", Body: intLit(-1)}},
		RHS:      varRef("d"),
		Variable: "d",
	}
	got := drain(t, c, node)
	require.Len(t, got, 1)
	assert.Equal(t, "hi", got[0].Str)
}

func TestCompileQuantifiedSomeAndEvery(t *testing.T) {
	c := newCompiler()
	seq := &types.ASTNode{Type: types.NodeSequenceConcat, Children: []*types.ASTNode{intLit(1), intLit(2), intLit(3)}}
	gt2 := &types.ASTNode{Type: types.NodeValueComparison, StrValue: "gt", LHS: varRef("v"), RHS: intLit(2)}

	some := &types.ASTNode{
		Type:   types.NodeQuantified,
		StrValue: "some",
		Groups: []types.GroupSpec{{Variable: "v", Expr: seq}},
		Body:   gt2,
	}
	assert.True(t, drain(t, c, some)[0].Bool)

	every := &types.ASTNode{
		Type:   types.NodeQuantified,
		StrValue: "every",
		Groups: []types.GroupSpec{{Variable: "v", Expr: seq}},
		Body:   gt2,
	}
	assert.False(t, drain(t, c, every)[0].Bool)
}
