package expr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func evalBool(t *testing.T, it *sliceIterator) bool {
	t.Helper()
	dctx := rcontext.NewRootContext(nil, 100)
	require.NoError(t, it.Open(context.Background(), dctx))
	require.True(t, it.HasNext())
	v, err := it.Next()
	require.NoError(t, err)
	return v.Bool
}

func TestValueComparisonOrdering(t *testing.T) {
	assert.True(t, evalBool(t, ValueComparison(ValueLt, Literal(types.NewInteger(1)), Literal(types.NewInteger(2)))))
	assert.False(t, evalBool(t, ValueComparison(ValueGt, Literal(types.NewInteger(1)), Literal(types.NewInteger(2)))))
	assert.True(t, evalBool(t, ValueComparison(ValueEq, Literal(types.NewInteger(2)), Literal(types.NewInteger(2)))))
	assert.True(t, evalBool(t, ValueComparison(ValueNe, Literal(types.NewInteger(1)), Literal(types.NewInteger(2)))))
}

func TestValueComparisonRequiresSingletons(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := ValueComparison(ValueEq, EmptySequence(), Literal(types.NewInteger(1)))
	err := it.Open(context.Background(), dctx)
	require.Error(t, err, "value comparison of an empty operand is a dynamic error, not false")
}

func TestValueComparisonAcrossIncomparableTypesIsError(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	it := ValueComparison(ValueLt, Literal(types.NewString("a")), Literal(types.NewInteger(1)))
	err := it.Open(context.Background(), dctx)
	require.Error(t, err)
}

func TestGeneralComparisonIsCartesianAny(t *testing.T) {
	lhs := newSliceIterator([]types.Item{types.NewInteger(1), types.NewInteger(2)})
	rhs := newSliceIterator([]types.Item{types.NewInteger(2), types.NewInteger(3)})
	assert.True(t, evalBool(t, GeneralComparison(GeneralEq, lhs, rhs)))
}

func TestGeneralComparisonFalseOnEmptyOperand(t *testing.T) {
	assert.False(t, evalBool(t, GeneralComparison(GeneralEq, EmptySequence(), Literal(types.NewInteger(1)))),
		"an empty operand makes the whole comparison false, unlike value comparison")
}

func TestGeneralComparisonSkipsIncomparablePairsRatherThanErroring(t *testing.T) {
	lhs := newSliceIterator([]types.Item{types.NewString("a"), types.NewInteger(1)})
	rhs := newSliceIterator([]types.Item{types.NewInteger(1)})
	assert.True(t, evalBool(t, GeneralComparison(GeneralEq, lhs, rhs)), "the string/int pair is skipped, the int/int pair matches")
}
