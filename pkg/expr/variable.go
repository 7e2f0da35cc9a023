package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// variableRefIterator resolves a variable reference against the dynamic
// context at Open time (spec §3 DynamicContext, §4.5 "VariableReference").
// A binding may be a materialized sequence or a streaming cursor; this
// iterator tolerates either, draining a cursor binding once into a slice
// (a variable can be referenced more than once inside its scope, so a
// cursor binding is materialized on first read rather than re-consumed
// per reference — consistent with spec §3 "Bindings may be sequences
// (materialized) or streaming cursors — consumers must tolerate either").
type variableRefIterator struct {
	runtime.Base
	name  string
	items []types.Item
	pos   int
}

// VariableRef constructs a RuntimeIterator over the current binding of name.
func VariableRef(name string) *variableRefIterator {
	return &variableRefIterator{name: name}
}

func (v *variableRefIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	v.pos = 0
	b, ok := dctx.GetBinding(v.name)
	if !ok {
		return types.NewError(types.ErrDynamicError, "unbound variable: $"+v.name, -1)
	}
	if b.Cursor != nil {
		var out []types.Item
		for b.Cursor.HasNext() {
			it, err := b.Cursor.Next()
			if err != nil {
				return err
			}
			out = append(out, it)
		}
		v.items = out
		return nil
	}
	v.items = b.Sequence
	return nil
}

func (v *variableRefIterator) HasNext() bool { return v.pos < len(v.items) }

func (v *variableRefIterator) Next() (types.Item, error) {
	if !v.HasNext() {
		return types.Item{}, runtime.FlowError("Next called with HasNext false")
	}
	it := v.items[v.pos]
	v.pos++
	return it, nil
}

func (v *variableRefIterator) Close() error { return nil }

func (v *variableRefIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return v.Open(ctx, dctx)
}
