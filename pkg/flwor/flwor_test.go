package flwor

import (
	"github.com/sandrolain/jsoniqcore/pkg/distributed/local"
	"github.com/sandrolain/jsoniqcore/pkg/expr"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func runtimeTupleWith(name string, item types.Item) runtime.Tuple {
	return runtime.NewTuple().With(name, []types.Item{item})
}

// testCompile is the ExprCompiler every _test.go file in this package uses:
// a small slice of real node kinds dispatched to their pkg/expr constructor,
// enough to exercise clause-level plumbing without pulling in pkg/compile
// (which would create the import cycle this package's design avoids).
func testCompile(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	switch node.Type {
	case types.NodeIntegerLit:
		return expr.Literal(types.NewInteger(node.IntValue)), nil
	case types.NodeStringLiteral:
		return expr.Literal(types.NewString(node.StrValue)), nil
	case types.NodeVariableRef:
		return expr.VariableRef(node.StrValue), nil
	case types.NodeValueComparison:
		return expr.ValueComparison(expr.ValueCompareOp(node.IntValue), mustCompile(node.LHS), mustCompile(node.RHS)), nil
	case types.NodeArithmetic:
		return expr.Arithmetic(expr.ArithOp(node.IntValue), mustCompile(node.LHS), mustCompile(node.RHS)), nil
	case types.NodeBooleanLit:
		if node.BoolValue {
			return expr.Literal(types.True), nil
		}
		return expr.Literal(types.False), nil
	case types.NodeSequenceConcat:
		children := make([]runtime.RuntimeIterator, len(node.Children))
		for i, c := range node.Children {
			children[i] = mustCompile(c)
		}
		return expr.SequenceConcat(children...), nil
	case nodeBinaryLitTest:
		return expr.Literal(types.Item{Kind: types.KindBinary, BinaryData: []byte(node.StrValue)}), nil
	case nodeDurationLitTest:
		fam := types.DurationDayTime
		if node.BoolValue {
			fam = types.DurationYearMonth
		}
		return expr.Literal(types.Item{Kind: types.KindDuration, DurationFam: fam,
			DurationMonths: node.IntValue, DurationMillis: node.IntValue}), nil
	case nodeDataFrameSourceTest:
		coll := local.New().NewItemCollection([]types.Item{types.NewInteger(node.IntValue)})
		return expr.DistributedItems(coll), nil
	default:
		return expr.EmptySequence(), nil
	}
}

// nodeDataFrameSourceTest is a test-only sentinel node type standing in for a
// for-clause source expression that resolves to a distributed source (e.g. a
// Parquet file), for exercising forIterator.IsDataFrame()'s own-source probe
// (spec §4.1 Hybrid iterator) without a real distributed item source
// reachable from this package's tiny testCompile fixture.
const nodeDataFrameSourceTest types.NodeType = "__test_dataframe_source"

func dataFrameSourceLit(v int64) *types.ASTNode {
	return &types.ASTNode{Type: nodeDataFrameSourceTest, IntValue: v}
}

// nodeBinaryLitTest is a test-only sentinel node type: this package has no
// surface syntax for a binary literal, so tests that need a KindBinary item
// (e.g. exercising the group-by binary-key guard) build one directly instead
// of extending the real grammar for a case no query text can produce here.
const nodeBinaryLitTest types.NodeType = "__test_binary_lit"

func binaryLit(data []byte) *types.ASTNode {
	return &types.ASTNode{Type: nodeBinaryLitTest, StrValue: string(data)}
}

// nodeDurationLitTest is a test-only sentinel node type standing in for a
// duration literal: this package's tiny testCompile fixture has no surface
// syntax for one, so tests exercising duration order-by (spec §4.4's
// duration lattice unification) build one directly.
const nodeDurationLitTest types.NodeType = "__test_duration_lit"

func durationLit(yearMonth bool, magnitude int64) *types.ASTNode {
	return &types.ASTNode{Type: nodeDurationLitTest, BoolValue: yearMonth, IntValue: magnitude}
}

func mustCompile(node *types.ASTNode) runtime.RuntimeIterator {
	it, _ := testCompile(node)
	return it
}

func intLit(v int64) *types.ASTNode     { return &types.ASTNode{Type: types.NodeIntegerLit, IntValue: v} }
func boolLit(v bool) *types.ASTNode     { return &types.ASTNode{Type: types.NodeBooleanLit, BoolValue: v} }
func varRef(name string) *types.ASTNode { return &types.ASTNode{Type: types.NodeVariableRef, StrValue: name} }

func cmpNode(op expr.ValueCompareOp, lhs, rhs *types.ASTNode) *types.ASTNode {
	return &types.ASTNode{Type: types.NodeValueComparison, IntValue: int64(op), LHS: lhs, RHS: rhs}
}

func arithNode(op expr.ArithOp, lhs, rhs *types.ASTNode) *types.ASTNode {
	return &types.ASTNode{Type: types.NodeArithmetic, IntValue: int64(op), LHS: lhs, RHS: rhs}
}

// seqLit builds a NodeSequenceConcat AST node yielding exactly the given
// integers in order, for use as the source expression of a for-clause.
func seqLit(values ...int64) *types.ASTNode {
	children := make([]*types.ASTNode, len(values))
	for i, v := range values {
		children[i] = intLit(v)
	}
	return &types.ASTNode{Type: types.NodeSequenceConcat, Children: children}
}

// forFixedValues builds a for-clause over Root() binding name to each of
// values in turn, one output tuple per value.
func forFixedValues(t interface{ Helper() }, name string, values []int64) *forIterator {
	return For(Root(), name, "", seqLit(values...), testCompile, false)
}

