package expr

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/registry"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// passthroughIterator forwards Open/HasNext/Next/Close/Reset to whichever
// child iterator a conditional selected at Open time, so If/Switch/
// Typeswitch stay streaming instead of collapsing their chosen branch to a
// materialized slice.
type passthroughIterator struct {
	runtime.Base
	pick  func(ctx context.Context, dctx *rcontext.DynamicContext) (runtime.RuntimeIterator, error)
	child runtime.RuntimeIterator
}

func (p *passthroughIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	child, err := p.pick(ctx, dctx)
	if err != nil {
		return err
	}
	p.child = child
	return p.child.Open(ctx, dctx)
}

func (p *passthroughIterator) HasNext() bool             { return p.child.HasNext() }
func (p *passthroughIterator) Next() (types.Item, error) { return p.child.Next() }
func (p *passthroughIterator) Close() error {
	if p.child == nil {
		return nil
	}
	return p.child.Close()
}
func (p *passthroughIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := p.Close(); err != nil {
		return err
	}
	return p.Open(ctx, dctx)
}

// If builds the "if (cond) then e1 else e2" iterator (spec §4.5
// Conditional). Grounded on the teacher's evalConditional (eval_impl.go),
// generalized from JSONata truthiness to EffectiveBooleanValue.
func If(cond, thenBranch, elseBranch runtime.RuntimeIterator) *passthroughIterator {
	return &passthroughIterator{pick: func(ctx context.Context, dctx *rcontext.DynamicContext) (runtime.RuntimeIterator, error) {
		seq, err := drain(ctx, dctx, cond)
		if err != nil {
			return nil, err
		}
		b, err := registry.EffectiveBooleanValue(seq)
		if err != nil {
			return nil, err
		}
		if b {
			return thenBranch, nil
		}
		return elseBranch, nil
	}}
}

// SwitchCase pairs a "case e" match expression with its return branch.
type SwitchCase struct {
	Match  runtime.RuntimeIterator
	Result runtime.RuntimeIterator
}

// Switch builds the "switch (e) case c1 return r1 ... default return rd"
// iterator (spec §4.5 Conditional): the switch operand is compared for item
// equality against each case in order, first match wins.
func Switch(operand runtime.RuntimeIterator, cases []SwitchCase, defaultBranch runtime.RuntimeIterator) *passthroughIterator {
	return &passthroughIterator{pick: func(ctx context.Context, dctx *rcontext.DynamicContext) (runtime.RuntimeIterator, error) {
		opSeq, err := drain(ctx, dctx, operand)
		if err != nil {
			return nil, err
		}
		for _, c := range cases {
			matchSeq, err := drain(ctx, dctx, c.Match)
			if err != nil {
				return nil, err
			}
			if sequenceEqual(opSeq, matchSeq) {
				return c.Result, nil
			}
		}
		return defaultBranch, nil
	}}
}

func sequenceEqual(a, b []types.Item) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !types.Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// TypeswitchCase pairs a named type-test kind with its bound-variable
// return branch. Numeric subtyping is deliberately not exposed here: a
// typeswitch case matches an item's own Kind exactly, never a promoted
// numeric supertype — callers needing "is this numeric" reach for an
// explicit cast/castable test instead (spec §4.5 Conditional note).
type TypeswitchCase struct {
	Kind     types.ItemKind
	Variable string
	Result   func(bound types.Item) runtime.RuntimeIterator
}

// Typeswitch builds the "typeswitch (e) case $v as kind return r ... default
// return rd" iterator over a singleton operand.
func Typeswitch(operand runtime.RuntimeIterator, cases []TypeswitchCase, defaultBranch func(seq []types.Item) runtime.RuntimeIterator) *passthroughIterator {
	return &passthroughIterator{pick: func(ctx context.Context, dctx *rcontext.DynamicContext) (runtime.RuntimeIterator, error) {
		seq, err := drain(ctx, dctx, operand)
		if err != nil {
			return nil, err
		}
		if len(seq) == 1 {
			for _, c := range cases {
				if seq[0].Kind == c.Kind {
					return c.Result(seq[0]), nil
				}
			}
		}
		return defaultBranch(seq), nil
	}}
}
