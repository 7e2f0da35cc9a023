package compile

import (
	"context"
	"math/big"
	"strconv"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// compileDecimalLiteral parses a decimal literal's lexical form into an
// exact big.Rat, deferred to compile time rather than parse time since it
// is a pure function of StrValue and does not need repeating per Open.
func (c *Compiler) compileDecimalLiteral(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	r, ok := new(big.Rat).SetString(node.StrValue)
	if !ok {
		return nil, types.NewError(types.ErrDynamicError, "invalid decimal literal: "+node.StrValue, node.Position)
	}
	return literalIterator(types.NewDecimal(r)), nil
}

// compileIntegerLiteral parses an integer literal's lexical form as a
// machine int64 first, falling back to an exact big.Rat decimal only on
// overflow (spec §9's corrected contract, replacing the source engine's
// lexical-length heuristic). A node built without a lexical form (StrValue
// empty, as synthetic nodes constructed directly by tests do) uses the
// already-supplied IntValue verbatim.
func (c *Compiler) compileIntegerLiteral(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	if node.StrValue == "" {
		return literalIterator(types.NewInteger(node.IntValue)), nil
	}
	if n, err := strconv.ParseInt(node.StrValue, 10, 64); err == nil {
		return literalIterator(types.NewInteger(n)), nil
	}
	r, ok := new(big.Rat).SetString(node.StrValue)
	if !ok {
		return nil, types.NewError(types.ErrDynamicError, "invalid integer literal: "+node.StrValue, node.Position)
	}
	return literalIterator(types.NewDecimal(r)), nil
}

func literalIterator(it types.Item) runtime.RuntimeIterator {
	return &oneShotIterator{item: it}
}

// oneShotIterator streams a single already-computed item — used where a
// bare pkg/expr.Literal would work equally well, kept local to this package
// only to avoid a second public constructor for the same one-line shape.
type oneShotIterator struct {
	runtime.Base
	item types.Item
	done bool
}

func (o *oneShotIterator) Open(context.Context, *rcontext.DynamicContext) error { o.done = false; return nil }
func (o *oneShotIterator) HasNext() bool                                       { return !o.done }
func (o *oneShotIterator) Next() (types.Item, error) {
	if o.done {
		return types.Item{}, runtime.FlowError("Next called with HasNext false")
	}
	o.done = true
	return o.item, nil
}
func (o *oneShotIterator) Close() error { return nil }
func (o *oneShotIterator) Reset(context.Context, *rcontext.DynamicContext) error {
	o.done = false
	return nil
}

// compileArrayConstructor builds a "[e1, e2, ...]" array item: one array
// whose Elements is the concatenation of every child expression's result
// sequence, evaluated eagerly since an array item is a single atomic-ish
// value that must exist in full before it can be streamed onward.
type arrayConstructorIterator struct {
	runtime.Base
	children []runtime.RuntimeIterator
	result   *oneShotIterator
}

func (c *Compiler) compileArrayConstructor(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	children := make([]runtime.RuntimeIterator, len(node.Children))
	for i, ch := range node.Children {
		it, err := c.Compile(ch)
		if err != nil {
			return nil, err
		}
		children[i] = it
	}
	return &arrayConstructorIterator{children: children}, nil
}

func (a *arrayConstructorIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	var elems []types.Item
	for _, ch := range a.children {
		seq, err := drainInto(ctx, dctx, ch)
		if err != nil {
			return err
		}
		elems = append(elems, seq...)
	}
	a.result = &oneShotIterator{item: types.NewArray(elems)}
	return a.result.Open(ctx, dctx)
}
func (a *arrayConstructorIterator) HasNext() bool             { return a.result.HasNext() }
func (a *arrayConstructorIterator) Next() (types.Item, error) { return a.result.Next() }
func (a *arrayConstructorIterator) Close() error              { return nil }
func (a *arrayConstructorIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return a.Open(ctx, dctx)
}

// compileObjectConstructor builds a "{ k1: v1, k2: v2, ... }" object item:
// each key expression must produce a single string, each value expression a
// single item — JSONiq's stricter singleton pair-constructor form (spec
// §4.5 note: sequence-valued members require an explicit array constructor
// around the value expression, not implicit boxing here).
type objectConstructorIterator struct {
	runtime.Base
	keys   []runtime.RuntimeIterator
	values []runtime.RuntimeIterator
	result *oneShotIterator
}

func (c *Compiler) compileObjectConstructor(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	keys := make([]runtime.RuntimeIterator, len(node.ObjectKeys))
	values := make([]runtime.RuntimeIterator, len(node.ObjectValues))
	for i, k := range node.ObjectKeys {
		it, err := c.Compile(k)
		if err != nil {
			return nil, err
		}
		keys[i] = it
	}
	for i, v := range node.ObjectValues {
		it, err := c.Compile(v)
		if err != nil {
			return nil, err
		}
		values[i] = it
	}
	return &objectConstructorIterator{keys: keys, values: values}, nil
}

func (o *objectConstructorIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	keys := make([]string, len(o.keys))
	values := make([]types.Item, len(o.values))
	for i, k := range o.keys {
		it, err := singleInto(ctx, dctx, k)
		if err != nil {
			return err
		}
		if it.Kind != types.KindString {
			return types.NewError(types.ErrTypeError, "object constructor key must be a string", -1)
		}
		keys[i] = it.Str
	}
	for i, v := range o.values {
		it, err := singleInto(ctx, dctx, v)
		if err != nil {
			return err
		}
		values[i] = it
	}
	obj, err := types.NewObject(keys, values)
	if err != nil {
		return err
	}
	o.result = &oneShotIterator{item: obj}
	return o.result.Open(ctx, dctx)
}
func (o *objectConstructorIterator) HasNext() bool             { return o.result.HasNext() }
func (o *objectConstructorIterator) Next() (types.Item, error) { return o.result.Next() }
func (o *objectConstructorIterator) Close() error              { return nil }
func (o *objectConstructorIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return o.Open(ctx, dctx)
}

func drainInto(ctx context.Context, dctx *rcontext.DynamicContext, it runtime.RuntimeIterator) ([]types.Item, error) {
	if err := it.Open(ctx, dctx); err != nil {
		return nil, err
	}
	defer it.Close()
	var out []types.Item
	for it.HasNext() {
		if err := runtime.CheckCancelled(dctx); err != nil {
			return nil, err
		}
		v, err := it.Next()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func singleInto(ctx context.Context, dctx *rcontext.DynamicContext, it runtime.RuntimeIterator) (types.Item, error) {
	seq, err := drainInto(ctx, dctx, it)
	if err != nil {
		return types.Item{}, err
	}
	if len(seq) != 1 {
		return types.Item{}, types.NewError(types.ErrDynamicError, "expected a singleton sequence", -1)
	}
	return seq[0], nil
}
