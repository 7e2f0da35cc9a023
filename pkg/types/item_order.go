package types

import (
	"math/big"
	"strings"
)

// EmptyOrder selects where an empty-sequence/null placeholder sorts,
// per spec §3 point 1 and §4.4.
type EmptyOrder int

const (
	EmptyLeast EmptyOrder = iota
	EmptyGreatest
)

// promotedNumericKind returns the least-upper-bound numeric kind of two
// numeric items on the integer ≤ decimal ≤ double lattice (spec §3 point 4).
func promotedNumericKind(a, b ItemKind) ItemKind {
	rank := func(k ItemKind) int {
		switch k {
		case KindInteger:
			return 0
		case KindDecimal:
			return 1
		case KindDouble:
			return 2
		}
		return -1
	}
	if rank(a) >= rank(b) {
		return a
	}
	return b
}

// AsDouble widens any numeric item to float64 for double-lattice arithmetic.
func (it Item) AsDouble() float64 {
	switch it.Kind {
	case KindInteger:
		return float64(it.Int)
	case KindDecimal:
		f, _ := it.Dec.Float64()
		return f
	case KindDouble:
		return it.Dbl
	}
	return 0
}

// AsRat widens an integer or decimal item to an exact big.Rat. Doubles are
// not exact and must not be promoted this way (callers promote to double
// arithmetic instead when either operand is a double).
func (it Item) AsRat() *big.Rat {
	switch it.Kind {
	case KindInteger:
		return new(big.Rat).SetInt64(it.Int)
	case KindDecimal:
		return it.Dec
	}
	return nil
}

// CompareNumeric compares two numeric items after promoting both to the
// least upper bound of the numeric lattice. Returns -1/0/1.
func CompareNumeric(a, b Item) int {
	top := promotedNumericKind(a.Kind, b.Kind)
	if top == KindDouble {
		af, bf := a.AsDouble(), b.AsDouble()
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	return a.AsRat().Cmp(b.AsRat())
}

// durationTotal returns a single comparable magnitude for a duration item,
// per spec §3 point 5: day-time durations compare by total milliseconds,
// year-month durations by total months. Mixing the two families is the
// caller's responsibility to reject before calling this.
func durationTotal(it Item) int64 {
	if it.DurationFam == DurationYearMonth {
		return it.DurationMonths
	}
	return it.DurationMillis
}

// Compare implements the total order for sort purposes described in spec §3.
// Returns (-1|0|1, nil) on success. incompatible cross-type/cross-family
// comparisons return a *Error with code ErrUnexpectedType.
func Compare(a, b Item) (int, error) {
	if a.IsBinary() || b.IsBinary() {
		return 0, NewError(ErrUnexpectedType, "binary items are not orderable", -1)
	}
	if a.IsNumeric() && b.IsNumeric() {
		return CompareNumeric(a, b), nil
	}
	if a.IsString() && b.IsString() {
		// Byte order of UTF-8 is Unicode codepoint order (spec §3 point 3),
		// not a locale collation.
		return strings.Compare(a.Str, b.Str), nil
	}
	if a.IsBoolean() && b.IsBoolean() {
		if a.Bool == b.Bool {
			return 0, nil
		}
		if !a.Bool {
			return -1, nil
		}
		return 1, nil
	}
	if isTemporal(a) && isTemporal(b) && a.Kind == b.Kind {
		switch {
		case a.Time.Before(b.Time):
			return -1, nil
		case a.Time.After(b.Time):
			return 1, nil
		default:
			return 0, nil
		}
	}
	if a.IsDuration() && b.IsDuration() {
		if a.DurationFam != b.DurationFam && a.DurationFam != DurationCombined && b.DurationFam != DurationCombined {
			return 0, NewError(ErrUnexpectedType, "cannot compare incompatible duration families", -1)
		}
		ta, tb := durationTotal(a), durationTotal(b)
		switch {
		case ta < tb:
			return -1, nil
		case ta > tb:
			return 1, nil
		default:
			return 0, nil
		}
	}
	return 0, NewError(ErrUnexpectedType, "cannot compare "+a.Kind.String()+" with "+b.Kind.String(), -1)
}

func isTemporal(it Item) bool { return it.IsDateTime() || it.IsDate() || it.IsTime() }

// Equal implements item-equality (used by GroupBy key comparison and general
// comparisons). Numeric promotion applies; function items are never equal;
// arrays/objects compare structurally in item order.
func Equal(a, b Item) bool {
	if a.Kind == KindFunction || b.Kind == KindFunction {
		return false
	}
	if a.IsNumeric() && b.IsNumeric() {
		return CompareNumeric(a, b) == 0
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNull:
		return true
	case KindBoolean:
		return a.Bool == b.Bool
	case KindString:
		return a.Str == b.Str
	case KindDuration:
		return a.DurationFam == b.DurationFam && durationTotal(a) == durationTotal(b)
	case KindDateTime, KindDate, KindTime:
		return a.Time.Equal(b.Time)
	case KindBinary:
		if len(a.BinaryData) != len(b.BinaryData) {
			return false
		}
		for i := range a.BinaryData {
			if a.BinaryData[i] != b.BinaryData[i] {
				return false
			}
		}
		return true
	case KindArray:
		if len(a.Elements) != len(b.Elements) {
			return false
		}
		for i := range a.Elements {
			if !Equal(a.Elements[i], b.Elements[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(a.Fields) != len(b.Fields) {
			return false
		}
		for _, k := range a.Fields {
			av, _ := a.Get(k)
			bv, ok := b.Get(k)
			if !ok || !Equal(av, bv) {
				return false
			}
		}
		return true
	}
	return false
}
