package types

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareNumericPromotesAcrossTheLattice(t *testing.T) {
	cases := []struct {
		name string
		a, b Item
		want int
	}{
		{"integer vs decimal equal", NewInteger(2), NewDecimal(big.NewRat(2, 1)), 0},
		{"integer vs double less", NewInteger(1), NewDouble(1.5), -1},
		{"decimal vs double greater", NewDecimal(big.NewRat(3, 1)), NewDouble(2.5), 1},
		{"integer vs integer", NewInteger(5), NewInteger(3), 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, CompareNumeric(c.a, c.b))
		})
	}
}

func TestCompareRejectsBinaryItems(t *testing.T) {
	bin := Item{Kind: KindBinary, BinaryData: []byte("x")}
	_, err := Compare(bin, NewInteger(1))
	require.Error(t, err)
	var jerr *Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, ErrUnexpectedType, jerr.Code)
}

func TestCompareRejectsCrossTypeNonNumeric(t *testing.T) {
	_, err := Compare(NewString("a"), NewInteger(1))
	require.Error(t, err)
}

func TestCompareStringsUseCodepointOrder(t *testing.T) {
	cmp, err := Compare(NewString("apple"), NewString("banana"))
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)
}

func TestCompareBooleansFalseLessThanTrue(t *testing.T) {
	cmp, err := Compare(False, True)
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)

	cmp, err = Compare(True, True)
	require.NoError(t, err)
	assert.Equal(t, 0, cmp)
}

func TestCompareDurationsRejectsIncompatibleFamilies(t *testing.T) {
	yearMonth := Item{Kind: KindDuration, DurationFam: DurationYearMonth, DurationMonths: 12}
	dayTime := Item{Kind: KindDuration, DurationFam: DurationDayTime, DurationMillis: 1000}
	_, err := Compare(yearMonth, dayTime)
	require.Error(t, err)
}

func TestCompareDurationsSameFamily(t *testing.T) {
	a := Item{Kind: KindDuration, DurationFam: DurationDayTime, DurationMillis: 1000}
	b := Item{Kind: KindDuration, DurationFam: DurationDayTime, DurationMillis: 2000}
	cmp, err := Compare(a, b)
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)
}

func TestCompareTemporalChronological(t *testing.T) {
	earlier := Item{Kind: KindDateTime, Time: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)}
	later := Item{Kind: KindDateTime, Time: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}
	cmp, err := Compare(earlier, later)
	require.NoError(t, err)
	assert.Equal(t, -1, cmp)
}

func TestEqualNeverEqualForFunctionItems(t *testing.T) {
	fn := &Function{Name: "f", Arity: 0}
	a := NewFunction(fn)
	b := NewFunction(fn)
	assert.False(t, Equal(a, b), "function items must never be equal by value, even the same pointer")
}

func TestEqualNumericPromotion(t *testing.T) {
	assert.True(t, Equal(NewInteger(2), NewDecimal(big.NewRat(2, 1))))
	assert.False(t, Equal(NewInteger(2), NewDecimal(big.NewRat(5, 2))))
}

func TestEqualArraysStructural(t *testing.T) {
	a := NewArray([]Item{NewInteger(1), NewString("x")})
	b := NewArray([]Item{NewInteger(1), NewString("x")})
	c := NewArray([]Item{NewInteger(1), NewString("y")})
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestEqualObjectsIgnoreFieldOrder(t *testing.T) {
	a, err := NewObject([]string{"x", "y"}, []Item{NewInteger(1), NewInteger(2)})
	require.NoError(t, err)
	b, err := NewObject([]string{"y", "x"}, []Item{NewInteger(2), NewInteger(1)})
	require.NoError(t, err)
	assert.True(t, Equal(a, b))
}
