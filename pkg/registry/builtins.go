package registry

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// registerBuiltins seeds a fresh Registry with the fixed-arity built-in
// table, mirroring the teacher's initBuiltinFunctions table shape but keyed
// by (name, arity) per spec §4.6 rather than a MinArgs/MaxArgs range.
func registerBuiltins(r *Registry) {
	r.RegisterBuiltin("count", 1, fnCount)
	r.RegisterBuiltin("sum", 1, fnSum)
	r.RegisterBuiltin("avg", 1, fnAvg)
	r.RegisterBuiltin("min", 1, fnMin)
	r.RegisterBuiltin("max", 1, fnMax)
	r.RegisterBuiltin("not", 1, fnNot)
	r.RegisterBuiltin("boolean", 1, fnBoolean)
	r.RegisterBuiltin("exists", 1, fnExists)
	r.RegisterBuiltin("keys", 1, fnKeys)
	r.RegisterBuiltin("string", 1, fnString)
	r.RegisterBuiltin("lower-case", 1, fnLowerCase)
}

func single(args [][]types.Item, i int) []types.Item {
	if i >= len(args) {
		return nil
	}
	return args[i]
}

func fnCount(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	return []types.Item{types.NewInteger(int64(len(single(args, 0))))}, nil
}

func fnSum(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	seq := single(args, 0)
	if len(seq) == 0 {
		return []types.Item{types.NewInteger(0)}, nil
	}
	acc := seq[0]
	for _, it := range seq[1:] {
		if !it.IsNumeric() || !acc.IsNumeric() {
			return nil, types.NewError(types.ErrTypeError, "sum() requires a sequence of numbers", -1)
		}
		acc = addNumeric(acc, it)
	}
	return []types.Item{acc}, nil
}

func fnAvg(ctx context.Context, dctx *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	seq := single(args, 0)
	if len(seq) == 0 {
		return nil, nil
	}
	sumRes, err := fnSum(ctx, dctx, args)
	if err != nil {
		return nil, err
	}
	avg := new(big.Rat).Quo(sumRes[0].AsRat(), new(big.Rat).SetInt64(int64(len(seq))))
	if sumRes[0].Kind == types.KindDouble {
		return []types.Item{types.NewDouble(sumRes[0].AsDouble() / float64(len(seq)))}, nil
	}
	return []types.Item{types.NewDecimal(avg)}, nil
}

func fnMin(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	return extremum(single(args, 0), -1)
}

func fnMax(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	return extremum(single(args, 0), 1)
}

func extremum(seq []types.Item, want int) ([]types.Item, error) {
	if len(seq) == 0 {
		return nil, nil
	}
	best := seq[0]
	for _, it := range seq[1:] {
		cmp, err := types.Compare(it, best)
		if err != nil {
			return nil, err
		}
		if (want < 0 && cmp < 0) || (want > 0 && cmp > 0) {
			best = it
		}
	}
	return []types.Item{best}, nil
}

func fnNot(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	ebv, err := EffectiveBooleanValue(single(args, 0))
	if err != nil {
		return nil, err
	}
	if ebv {
		return []types.Item{types.False}, nil
	}
	return []types.Item{types.True}, nil
}

func fnBoolean(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	ebv, err := EffectiveBooleanValue(single(args, 0))
	if err != nil {
		return nil, err
	}
	if ebv {
		return []types.Item{types.True}, nil
	}
	return []types.Item{types.False}, nil
}

func fnExists(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	if len(single(args, 0)) > 0 {
		return []types.Item{types.True}, nil
	}
	return []types.Item{types.False}, nil
}

func fnKeys(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	seq := single(args, 0)
	if len(seq) != 1 || !seq[0].IsObject() {
		return nil, types.NewError(types.ErrUnexpectedType, "keys() requires a single object", -1)
	}
	out := make([]types.Item, 0, len(seq[0].Keys()))
	for _, k := range seq[0].Keys() {
		out = append(out, types.NewString(k))
	}
	return out, nil
}

func fnString(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	seq := single(args, 0)
	if len(seq) != 1 {
		return nil, types.NewError(types.ErrDynamicError, "string() requires a singleton", -1)
	}
	return []types.Item{types.NewString(itemToDisplayString(seq[0]))}, nil
}

// fnLowerCase implements lower-case() per spec §9's corrected contract:
// LowerCaseFunctionIterator.materializeFirstItemOrNull in the source engine
// returns the literal "test" on an empty argument and calls toUpperCase
// regardless of the function's name — a bug, not a contract. Here
// lower-case(()) returns "" and a non-empty argument is lowercased.
func fnLowerCase(_ context.Context, _ *rcontext.DynamicContext, args [][]types.Item) ([]types.Item, error) {
	seq := single(args, 0)
	if len(seq) == 0 {
		return []types.Item{types.NewString("")}, nil
	}
	if len(seq) != 1 || seq[0].Kind != types.KindString {
		return nil, types.NewError(types.ErrUnexpectedType, "lower-case() requires a single string", -1)
	}
	return []types.Item{types.NewString(strings.ToLower(seq[0].Str))}, nil
}

func itemToDisplayString(it types.Item) string {
	switch it.Kind {
	case types.KindString:
		return it.Str
	case types.KindInteger:
		return fmt.Sprintf("%d", it.Int)
	case types.KindDouble:
		return fmt.Sprintf("%g", it.Dbl)
	case types.KindDecimal:
		return it.Dec.RatString()
	case types.KindBoolean:
		if it.Bool {
			return "true"
		}
		return "false"
	case types.KindNull:
		return "null"
	default:
		return fmt.Sprintf("%v", it.Kind)
	}
}

func addNumeric(a, b types.Item) types.Item {
	if a.Kind == types.KindDouble || b.Kind == types.KindDouble {
		return types.NewDouble(a.AsDouble() + b.AsDouble())
	}
	if a.Kind == types.KindDecimal || b.Kind == types.KindDecimal {
		return types.NewDecimal(new(big.Rat).Add(a.AsRat(), b.AsRat()))
	}
	return types.NewInteger(a.Int + b.Int)
}

// EffectiveBooleanValue implements the JSONiq effective-boolean-value
// coercion used by Where predicates, `not()`/`boolean()`, and short-circuit
// logical operators (spec §4.3 Where, §4.5 Logical):
//
//   - empty sequence is false
//   - a single boolean is itself
//   - a single numeric is true iff nonzero and non-NaN
//   - a single string is true iff nonempty
//   - any other single item (object/array/function) is true
//   - a multi-item sequence of non-node items is an error
func EffectiveBooleanValue(seq []types.Item) (bool, error) {
	switch len(seq) {
	case 0:
		return false, nil
	case 1:
		it := seq[0]
		switch it.Kind {
		case types.KindBoolean:
			return it.Bool, nil
		case types.KindInteger:
			return it.Int != 0, nil
		case types.KindDouble:
			return it.Dbl != 0 && it.Dbl == it.Dbl, nil // NaN != NaN
		case types.KindDecimal:
			return it.Dec.Sign() != 0, nil
		case types.KindString:
			return it.Str != "", nil
		default:
			return true, nil
		}
	default:
		return false, types.NewError(types.ErrDynamicError,
			"effective boolean value of a multi-item sequence requires all items to be nodes", -1)
	}
}
