package expr

import (
	"context"
	"math"
	"math/big"
	"time"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// ArithOp is a JSONiq arithmetic operator.
type ArithOp int

const (
	Add ArithOp = iota
	Subtract
	Multiply
	Divide
	IntegerDivide
	Modulo
)

// Arithmetic builds the arithmetic iterator (spec §4.5 "Arithmetic"):
// per-pair promotion over the numeric lattice, division by zero in
// integer/decimal is an error, in double it produces the IEEE result.
// Grounded on the teacher's evalBinary float64 fast path (eval_operators.go)
// generalized to the full integer/decimal/double lattice this spec requires
// instead of JSONata's float64-only numeric model.
func Arithmetic(op ArithOp, lhs, rhs runtime.RuntimeIterator) *sliceIterator {
	return newLazyOp(func(ctx context.Context, dctx *rcontext.DynamicContext) ([]types.Item, error) {
		l, err := single(ctx, dctx, lhs)
		if err != nil {
			return nil, err
		}
		r, err := single(ctx, dctx, rhs)
		if err != nil {
			return nil, err
		}
		if l.IsDuration() || r.IsDuration() || l.IsDateTime() || r.IsDateTime() || l.IsDate() || r.IsDate() {
			res, err := arithmeticTemporal(op, l, r)
			if err != nil {
				return nil, err
			}
			return []types.Item{res}, nil
		}
		if !l.IsNumeric() || !r.IsNumeric() {
			return nil, types.NewError(types.ErrTypeError, "arithmetic operator requires numeric operands", -1)
		}
		res, err := arithmeticNumeric(op, l, r)
		if err != nil {
			return nil, err
		}
		return []types.Item{res}, nil
	})
}

func arithmeticNumeric(op ArithOp, l, r types.Item) (types.Item, error) {
	if l.Kind == types.KindDouble || r.Kind == types.KindDouble {
		lf, rf := l.AsDouble(), r.AsDouble()
		var res float64
		switch op {
		case Add:
			res = lf + rf
		case Subtract:
			res = lf - rf
		case Multiply:
			res = lf * rf
		case Divide:
			res = lf / rf // IEEE result, including +Inf/NaN, per spec §4.5
		case IntegerDivide:
			res = math.Trunc(lf / rf)
		case Modulo:
			res = math.Mod(lf, rf)
		}
		return types.NewDouble(res), nil
	}

	lr, rr := l.AsRat(), r.AsRat()
	switch op {
	case Add:
		return finishExact(l, r, new(big.Rat).Add(lr, rr))
	case Subtract:
		return finishExact(l, r, new(big.Rat).Sub(lr, rr))
	case Multiply:
		return finishExact(l, r, new(big.Rat).Mul(lr, rr))
	case Divide, IntegerDivide, Modulo:
		if rr.Sign() == 0 {
			return types.Item{}, types.NewError(types.ErrDynamicError, "division by zero", -1)
		}
		q := new(big.Rat).Quo(lr, rr)
		if op == Divide {
			return finishExact(l, r, q)
		}
		// integer division / modulo truncate toward zero on the exact
		// quotient, computed with big.Int so large operands neither lose
		// precision nor silently wrap when converted to int64.
		num := new(big.Int).Mul(lr.Num(), rr.Denom())
		den := new(big.Int).Mul(lr.Denom(), rr.Num())
		truncBig := new(big.Int).Quo(num, den)
		if op == IntegerDivide {
			if !truncBig.IsInt64() {
				return types.NewDecimal(new(big.Rat).SetInt(truncBig)), nil
			}
			return types.NewInteger(truncBig.Int64()), nil
		}
		truncRat := new(big.Rat).SetInt(truncBig)
		rem := new(big.Rat).Sub(lr, new(big.Rat).Mul(truncRat, rr))
		return finishExact(l, r, rem)
	}
	return types.Item{}, types.NewError(types.ErrTypeError, "unsupported arithmetic operator", -1)
}

// finishExact demotes an exact big.Rat result back to integer when both
// operands were integers, the result has no fractional part, and it fits
// in an int64; otherwise it keeps the result as an exact decimal —
// preserving the integer ≤ decimal ≤ double promotion lattice of spec §3
// and following IntegerRuntimeIterator's own "fall back to decimal rather
// than truncate" contract for values outside the machine-integer domain.
func finishExact(l, r types.Item, res *big.Rat) (types.Item, error) {
	if l.Kind == types.KindInteger && r.Kind == types.KindInteger && res.IsInt() {
		if n := res.Num(); n.IsInt64() {
			return types.NewInteger(n.Int64()), nil
		}
	}
	return types.NewDecimal(res), nil
}

// arithmeticTemporal implements the small slice of dateTime/duration
// arithmetic spec §4.5 calls out explicitly (dateTime − dateTime → duration,
// dateTime ± duration → dateTime).
func arithmeticTemporal(op ArithOp, l, r types.Item) (types.Item, error) {
	isTemporal := func(it types.Item) bool { return it.IsDateTime() || it.IsDate() }
	switch {
	case isTemporal(l) && isTemporal(r) && op == Subtract:
		delta := l.Time.Sub(r.Time)
		return types.Item{Kind: types.KindDuration, DurationFam: types.DurationDayTime, DurationMillis: delta.Milliseconds()}, nil
	case isTemporal(l) && r.IsDuration() && (op == Add || op == Subtract):
		d := durationAsGoDuration(r)
		if op == Subtract {
			d = -d
		}
		out := l
		out.Time = l.Time.Add(d)
		return out, nil
	default:
		return types.Item{}, types.NewError(types.ErrTypeError, "unsupported temporal arithmetic operands", -1)
	}
}

// durationAsGoDuration approximates a year-month duration as 30-day months
// for the purposes of dateTime ± duration arithmetic — JSONiq months are
// calendar-relative, but this core's temporal arithmetic is intentionally
// minimal (full calendar-aware month rollover belongs to a richer date
// library not present in the example pack).
func durationAsGoDuration(d types.Item) time.Duration {
	if d.DurationFam == types.DurationYearMonth {
		return time.Duration(d.DurationMonths) * 30 * 24 * time.Hour
	}
	return time.Duration(d.DurationMillis) * time.Millisecond
}

// newLazyOp adapts a "compute the whole result sequence" closure into a
// RuntimeIterator, the shape every eager expression iterator in this
// package reduces to (see common.go doc comment).
func newLazyOp(compute func(context.Context, *rcontext.DynamicContext) ([]types.Item, error)) *sliceIterator {
	return &sliceIterator{items: nil, pos: 0, deferred: compute}
}
