// Package runtime implements the RuntimeIterator and TupleIterator
// protocols (spec §4.1, §4.2): the uniform pull-based streaming contracts
// every expression and FLWOR clause implements, plus the Hybrid base class
// that picks between local and distributed evaluation per subtree.
package runtime

import (
	"context"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/distributed"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// ExecutionKind classifies what a RuntimeIterator subtree is capable of,
// replacing the teacher corpus's Local/Hybrid/Tuple subclass hierarchy with
// a single interface plus an enum (spec §9).
type ExecutionKind int

const (
	LocalOnly ExecutionKind = iota
	RDDCapable
	DataFrameCapable
)

// RuntimeIterator is the core streaming contract over items (spec §4.1).
//
// Open/Close must always be paired by the caller, including on error paths
// (spec §5 "Scoped acquisition"); Guard below provides the deferred-release
// helper implementations are expected to use internally when they hold
// child iterators.
type RuntimeIterator interface {
	Open(ctx context.Context, dctx *rcontext.DynamicContext) error
	HasNext() bool
	Next() (types.Item, error)
	Close() error
	Reset(ctx context.Context, dctx *rcontext.DynamicContext) error

	Kind() ExecutionKind
	IsRDD() bool
	GetRDD(ctx context.Context) (distributed.ItemCollection, error)
	IsDataFrame() bool
	GetDataFrame(ctx context.Context, projection []string) (distributed.DataFrame, error)
}

// Guard runs open, then fn, guaranteeing close runs on every exit path
// (including a panic unwinding through fn), and returns whichever error
// occurred first. This is the "guard/deferred-release mechanism" spec §5
// requires every Open/Close pairing to have available.
func Guard(open func() error, fn func() error, close func() error) (err error) {
	if err = open(); err != nil {
		return err
	}
	defer func() {
		closeErr := close()
		if err == nil {
			err = closeErr
		}
	}()
	err = fn()
	return err
}

// FlowError builds the "internal misuse" error for Next() called when
// HasNext() is false, or similar protocol violations (spec §4.1, §7).
// These are programmer bugs, not user-facing query errors.
func FlowError(msg string) *types.Error {
	return types.NewError(types.ErrIteratorFlow, msg, -1)
}

// NotRewindableError is returned by Reset on document-order streaming
// sources that cannot rewind (spec §4.1).
func NotRewindableError() *types.Error {
	return types.NewError(types.ErrNotRewindable, "this iterator does not support reset", -1)
}

// CancelledError is surfaced by HasNext/Next once the shared cancellation
// flag has been set (spec §5).
func CancelledError() *types.Error {
	return types.NewError(types.ErrCancelled, "evaluation was cancelled", -1)
}

// CheckCancelled is called at loop boundaries by every local iterator
// implementation to honor cooperative cancellation (spec §5).
func CheckCancelled(dctx *rcontext.DynamicContext) error {
	if dctx.Cancelled() {
		return CancelledError()
	}
	return nil
}

// base provides the Kind/IsRDD/IsDataFrame/GetRDD/GetDataFrame plumbing
// shared by every LocalOnly iterator (the overwhelming majority): they are
// never RDD- or DataFrame-capable, so embedding base lets each concrete
// iterator implement only Open/HasNext/Next/Close/Reset.
type base struct{}

func (base) Kind() ExecutionKind { return LocalOnly }
func (base) IsRDD() bool         { return false }
func (base) GetRDD(context.Context) (distributed.ItemCollection, error) {
	return nil, FlowError("GetRDD called on a non-RDD-capable iterator")
}
func (base) IsDataFrame() bool { return false }
func (base) GetDataFrame(context.Context, []string) (distributed.DataFrame, error) {
	return nil, FlowError("GetDataFrame called on a non-DataFrame-capable iterator")
}

// Base embeds into local-only RuntimeIterator implementations.
type Base = base
