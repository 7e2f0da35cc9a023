package compile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandrolain/jsoniqcore/pkg/distributed"
	"github.com/sandrolain/jsoniqcore/pkg/distributed/local"
	"github.com/sandrolain/jsoniqcore/pkg/flwor"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func clauseFor(variable, posVar string, source *types.ASTNode, allowEmpty bool) *types.ASTNode {
	return &types.ASTNode{Type: types.NodeClauseFor, Variable: variable, PositionVar: posVar, RHS: source, BoolValue: allowEmpty}
}
func clauseWhere(pred *types.ASTNode) *types.ASTNode {
	return &types.ASTNode{Type: types.NodeClauseWhere, RHS: pred}
}
func clauseReturn(body *types.ASTNode) *types.ASTNode {
	return &types.ASTNode{Type: types.NodeClauseReturn, RHS: body}
}
func clauseOrderBy(specs []types.OrderSpec, stable bool) *types.ASTNode {
	return &types.ASTNode{Type: types.NodeClauseOrderBy, Orders: specs, Stable: stable}
}
func clauseGroupBy(groups []types.GroupSpec) *types.ASTNode {
	return &types.ASTNode{Type: types.NodeClauseGroupBy, Groups: groups}
}
func clauseCount(variable string) *types.ASTNode {
	return &types.ASTNode{Type: types.NodeClauseCount, Variable: variable}
}
func flworOf(clauses ...*types.ASTNode) *types.ASTNode {
	return &types.ASTNode{Type: types.NodeFlwor, Clauses: clauses}
}
func seqLit(values ...int64) *types.ASTNode {
	children := make([]*types.ASTNode, len(values))
	for i, v := range values {
		children[i] = intLit(v)
	}
	return &types.ASTNode{Type: types.NodeSequenceConcat, Children: children}
}

func TestCompileFlworForWhereReturn(t *testing.T) {
	c := newCompiler()
	node := flworOf(
		clauseFor("x", "", seqLit(1, 2, 3, 4), false),
		clauseWhere(&types.ASTNode{Type: types.NodeValueComparison, StrValue: "gt", LHS: varRef("x"), RHS: intLit(2)}),
		clauseReturn(varRef("x")),
	)
	got := drain(t, c, node)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{3, 4}, []int64{got[0].Int, got[1].Int})
}

func TestCompileFlworOrderByLocalDefaultWhenNoBackend(t *testing.T) {
	c := newCompiler() // Backend == nil
	node := flworOf(
		clauseFor("x", "", seqLit(3, 1, 2), false),
		clauseOrderBy([]types.OrderSpec{{Expr: varRef("x"), Direction: types.Ascending}}, true),
		clauseReturn(varRef("x")),
	)
	got := drain(t, c, node)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{1, 2, 3}, []int64{got[0].Int, got[1].Int, got[2].Int})
}

func TestCompileFlworOrderByUsesDistributedBackendWhenModeIsNotLocal(t *testing.T) {
	c := New(newCompiler().Registry, local.New())
	node := flworOf(
		clauseFor("x", "", seqLit(3, 1, 2), false),
		&types.ASTNode{Type: types.NodeClauseOrderBy, Mode: types.ModeDataFrame,
			Orders: []types.OrderSpec{{Expr: varRef("x"), Direction: types.Descending}}, Stable: true},
		clauseReturn(varRef("x")),
	)
	got := drain(t, c, node)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{got[0].Int, got[1].Int, got[2].Int})
}

func TestCompileFlworGroupBy(t *testing.T) {
	c := newCompiler()
	node := flworOf(
		clauseFor("x", "", seqLit(1, 2, 3, 4), false),
		clauseGroupBy([]types.GroupSpec{{Variable: "g", Expr: &types.ASTNode{
			Type: types.NodeArithmetic, StrValue: "mod", LHS: varRef("x"), RHS: intLit(2),
		}}}),
		clauseReturn(varRef("g")),
	)
	got := drain(t, c, node)
	assert.Len(t, got, 2)
}

func TestCompileFlworCountBindsOrdinal(t *testing.T) {
	c := newCompiler()
	node := flworOf(
		clauseFor("x", "", seqLit(10, 20), false),
		clauseCount("pos"),
		clauseReturn(varRef("pos")),
	)
	got := drain(t, c, node)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 2}, []int64{got[0].Int, got[1].Int})
}

func TestCompileFlworWithoutReturnClauseIsError(t *testing.T) {
	c := newCompiler()
	node := flworOf(clauseFor("x", "", seqLit(1), false))
	_, err := c.Compile(node)
	require.Error(t, err)
	var jerr *types.Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, types.ErrDynamicError, jerr.Code)
}

// dataFrameStubChain wraps a real TupleIterator chain but reports
// IsDataFrame() true regardless of what the wrapped chain would say, for
// exercising the OrderBy clause's dynamic dispatch (spec §4.1 Hybrid
// iterator) without needing a real distributed item source reachable from
// AST dispatch.
type dataFrameStubChain struct {
	runtime.TupleIterator
}

func (dataFrameStubChain) IsDataFrame() bool { return true }

// spyBackend wraps a real distributed.Backend and counts NewDataFrame
// calls, so a test can tell whether a clause actually took the distributed
// path rather than just checking output (which the local and distributed
// order-by algorithms both produce identically for correct results).
type spyBackend struct {
	distributed.Backend
	calls *int
}

func (s spyBackend) NewDataFrame(rows []map[string]interface{}, schema distributed.Schema) distributed.DataFrame {
	*s.calls++
	return s.Backend.NewDataFrame(rows, schema)
}

func TestCompileClauseOrderByGoesDistributedWhenChainReportsDataFrame(t *testing.T) {
	calls := 0
	backend := spyBackend{Backend: local.New(), calls: &calls}
	c := New(newCompiler().Registry, backend)

	forChain := flwor.For(flwor.Root(), "x", "", seqLit(3, 1, 2), c.Compile, false)
	chain := dataFrameStubChain{TupleIterator: forChain}

	clause := clauseOrderBy([]types.OrderSpec{{Expr: varRef("x"), Direction: types.Ascending}}, true)
	clause.Mode = types.ModeLocal
	out, err := c.compileClause(chain, clause)
	require.NoError(t, err)

	dctx := rootCtx()
	require.NoError(t, out.Open(ctxBackground(), dctx))
	defer out.Close()
	var got []int64
	for out.HasNext() {
		tup, err := out.Next()
		require.NoError(t, err)
		got = append(got, tup.Bindings["x"][0].Int)
	}
	assert.Equal(t, []int64{1, 2, 3}, got)
	assert.Equal(t, 1, calls, "order by must go through the distributed backend when the chain reports IsDataFrame(), even with clause.Mode set to ModeLocal")
}

func TestCompileFlworUnsupportedClauseTypeIsError(t *testing.T) {
	c := newCompiler()
	node := flworOf(&types.ASTNode{Type: types.NodeType("clauseBogus")}, clauseReturn(intLit(1)))
	_, err := c.Compile(node)
	require.Error(t, err)
}
