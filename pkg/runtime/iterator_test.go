package runtime

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

func TestGuardRunsCloseEvenWhenFnErrors(t *testing.T) {
	closed := false
	err := Guard(
		func() error { return nil },
		func() error { return errors.New("boom") },
		func() error { closed = true; return nil },
	)
	require.Error(t, err)
	assert.True(t, closed, "close must run even though fn failed")
}

func TestGuardSkipsFnWhenOpenFails(t *testing.T) {
	fnRan := false
	err := Guard(
		func() error { return errors.New("open failed") },
		func() error { fnRan = true; return nil },
		func() error { return nil },
	)
	require.Error(t, err)
	assert.False(t, fnRan, "fn must not run when open fails")
}

func TestGuardPrefersFnErrorOverCloseError(t *testing.T) {
	err := Guard(
		func() error { return nil },
		func() error { return errors.New("fn failed") },
		func() error { return errors.New("close failed") },
	)
	require.Error(t, err)
	assert.Equal(t, "fn failed", err.Error())
}

func TestGuardReturnsCloseErrorWhenFnSucceeds(t *testing.T) {
	err := Guard(
		func() error { return nil },
		func() error { return nil },
		func() error { return errors.New("close failed") },
	)
	require.Error(t, err)
	assert.Equal(t, "close failed", err.Error())
}

func TestCheckCancelledReflectsDynamicContextFlag(t *testing.T) {
	dctx := rcontext.NewRootContext(nil, 100)
	assert.NoError(t, CheckCancelled(dctx))

	dctx.Cancel()
	err := CheckCancelled(dctx)
	require.Error(t, err)
	var jerr *types.Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, types.ErrCancelled, jerr.Code)
}

func TestBaseIsLocalOnlyAndNotDistributed(t *testing.T) {
	var b Base
	assert.Equal(t, LocalOnly, b.Kind())
	assert.False(t, b.IsRDD())
	assert.False(t, b.IsDataFrame())

	_, err := b.GetRDD(nil)
	require.Error(t, err)
	var jerr *types.Error
	require.ErrorAs(t, err, &jerr)
	assert.Equal(t, types.ErrIteratorFlow, jerr.Code)

	_, err = b.GetDataFrame(nil, nil)
	require.Error(t, err)
}

func TestFlowErrorAndNotRewindableErrorCarryDistinctCodes(t *testing.T) {
	assert.Equal(t, types.ErrIteratorFlow, FlowError("x").Code)
	assert.Equal(t, types.ErrNotRewindable, NotRewindableError().Code)
	assert.Equal(t, types.ErrCancelled, CancelledError().Code)
}
