// Package jsoniqcore is the execution core of a JSONiq query engine.
//
// This module implements everything downstream of parsing: the item value
// algebra, the pull-based RuntimeIterator/TupleIterator protocols, the FLWOR
// clause pipeline with a hybrid local/distributed OrderBy, and a
// FunctionRegistry for builtin and user-defined function resolution. Parsing
// query text into an *types.ASTNode is out of scope (types.ErrParseError
// documents this as "external parser only") — callers hand this engine an
// already-built types.Expression.
//
// # Quick Start
//
//	engine := jsoniqcore.New()
//	items, err := engine.Run(context.Background(), expr, map[string][]types.Item{
//	    "$$": {inputDoc},
//	})
//
// # Caching
//
// When the caller's own parser produces an Expression from query text
// repeatedly, jsoniqcore.WithCaching lets the engine cache the parsed
// Expression by a caller-supplied key across Compile calls, avoiding
// redundant reparsing of hot queries in a streaming pipeline.
package jsoniqcore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sandrolain/jsoniqcore/pkg/cache"
	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/compile"
	"github.com/sandrolain/jsoniqcore/pkg/distributed"
	"github.com/sandrolain/jsoniqcore/pkg/registry"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// Version returns the current version of this module.
func Version() string {
	return "v0.1.0-dev"
}

// Options configures an Engine.
type Options struct {
	// Caching enables Expression caching in Compile.
	Caching bool
	// CacheSize sets the maximum number of cached expressions. Only used
	// when Caching is true and no explicit Cache is provided. Defaults to 256.
	CacheSize int
	// Cache is a custom expression cache. If non-nil, Caching is implicitly enabled.
	Cache *cache.Cache
	// Concurrency records the caller's fan-out preference. The engine
	// stores it but does not read it: Run and Stream always evaluate one
	// query sequentially per spec §3's pull-based iterator contract (one
	// Next() call in flight at a time).
	Concurrency bool
	// MaxDepth limits function call recursion depth (spec §5 "Shared
	// resources"). Defaults to 10000.
	MaxDepth int
	// Timeout bounds a single Run call's wall-clock time.
	Timeout time.Duration
	// Logger for structured logging.
	Logger *slog.Logger
	// Backend enables the distributed OrderBy algorithm (spec §4.4) for
	// order-by clauses whose Mode is not ModeLocal. When nil, every
	// order-by clause runs the local drain-and-sort algorithm regardless
	// of its Mode annotation.
	Backend distributed.Backend
}

// Option configures Options.
type Option func(*Options)

// WithCaching enables or disables Expression caching.
func WithCaching(enabled bool) Option {
	return func(o *Options) { o.Caching = enabled }
}

// WithCacheSize sets the default cache's capacity.
func WithCacheSize(size int) Option {
	return func(o *Options) { o.CacheSize = size }
}

// WithCache installs a caller-provided cache, implicitly enabling caching.
func WithCache(c *cache.Cache) Option {
	return func(o *Options) { o.Cache = c; o.Caching = true }
}

// WithConcurrency sets Options.Concurrency.
func WithConcurrency(enabled bool) Option {
	return func(o *Options) { o.Concurrency = enabled }
}

// WithMaxDepth sets the recursion depth budget every DynamicContext derived
// from this engine enforces.
func WithMaxDepth(depth int) Option {
	return func(o *Options) { o.MaxDepth = depth }
}

// WithTimeout sets the per-Run wall-clock timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) { o.Timeout = timeout }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) { o.Logger = logger }
}

// WithDistributedBackend enables the distributed OrderBy algorithm.
func WithDistributedBackend(backend distributed.Backend) Option {
	return func(o *Options) { o.Backend = backend }
}

// Engine binds a FunctionRegistry, an optional distributed backend and an
// optional Expression cache, and compiles/evaluates queries against them.
// An Engine is safe for concurrent use: Run builds a fresh RuntimeIterator
// tree and DynamicContext per call.
type Engine struct {
	opts     Options
	logger   *slog.Logger
	cache    *cache.Cache
	registry *registry.Registry
	compiler *compile.Compiler
}

// New creates an Engine with default options: no caching, MaxDepth 10000, a
// 30 second Timeout, and no distributed backend (order-by clauses always run
// locally).
func New(opts ...Option) *Engine {
	options := Options{
		MaxDepth: 10000,
		Timeout:  30 * time.Second,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	var c *cache.Cache
	if options.Cache != nil {
		c = options.Cache
	} else if options.Caching {
		size := options.CacheSize
		if size <= 0 {
			size = 256
		}
		c = cache.New(size)
	}

	reg := registry.NewRegistry()

	return &Engine{
		opts:     options,
		logger:   options.Logger,
		cache:    c,
		registry: reg,
		compiler: compile.New(reg, options.Backend),
	}
}

// Registry exposes the engine's FunctionRegistry so callers can declare
// user-defined functions or register additional builtins before running a
// query.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// Cache returns the engine's expression cache, or nil if caching is disabled.
func (e *Engine) Cache() *cache.Cache { return e.cache }

// Compile caches expr under key when caching is enabled, calling parse to
// produce it on a cache miss. When caching is disabled, parse runs on every
// call and the result is never cached.
func (e *Engine) Compile(key string, parse func() (*types.Expression, error)) (*types.Expression, error) {
	if e.cache == nil {
		return parse()
	}
	return e.cache.GetOrCompile(key, parse)
}

// Run evaluates expr's root node against a fresh DynamicContext seeded with
// bindings (typically at least the context item under "$$", spec §2's
// "Dynamic context"), draining the full result sequence.
//
// A Timeout configured on the Engine bounds the call via ctx; cancelling ctx
// directly has the same effect (spec §3 "Cancellation": every iterator
// checks DynamicContext.Cancelled() at each pull).
func (e *Engine) Run(ctx context.Context, expr *types.Expression, bindings map[string][]types.Item) ([]types.Item, error) {
	runCtx, it, dctx, cancel, err := e.open(ctx, expr, bindings)
	if err != nil {
		return nil, err
	}
	defer cancel()
	defer it.Close()

	if err := it.Open(runCtx, dctx); err != nil {
		return nil, err
	}
	var out []types.Item
	for it.HasNext() {
		if runCtx.Err() != nil {
			dctx.Cancel()
		}
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

// Stream is like Run but returns the opened RuntimeIterator instead of
// draining it, for callers that want to pull results one at a time (spec §3
// "the pull-based item stream protocol" is the whole point of not forcing a
// drain here). The returned cancel func must be deferred by the caller
// alongside the iterator's own Close.
func (e *Engine) Stream(ctx context.Context, expr *types.Expression, bindings map[string][]types.Item) (runtime.RuntimeIterator, context.CancelFunc, error) {
	runCtx, it, dctx, cancel, err := e.open(ctx, expr, bindings)
	if err != nil {
		cancel()
		return nil, nil, err
	}
	if err := it.Open(runCtx, dctx); err != nil {
		cancel()
		return nil, nil, err
	}
	return it, cancel, nil
}

func (e *Engine) open(ctx context.Context, expr *types.Expression, bindings map[string][]types.Item) (context.Context, runtime.RuntimeIterator, *rcontext.DynamicContext, context.CancelFunc, error) {
	if expr == nil || expr.AST() == nil {
		return nil, nil, nil, func() {}, types.NewError(types.ErrDynamicError, "cannot run a nil expression", -1)
	}
	runCtx := ctx
	cancel := func() {}
	if e.opts.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
	}
	dctx := rcontext.NewRootContext(bindings, e.opts.MaxDepth)
	it, err := e.compiler.Compile(expr.AST())
	if err != nil {
		cancel()
		return nil, nil, nil, func() {}, err
	}

	// Every iterator checks dctx.Cancelled(), not ctx.Done() directly (spec
	// §3 "Cancellation" ties cancellation to the DynamicContext so it
	// propagates through cloned child contexts too), so a ctx-level timeout
	// or caller cancellation needs a bridge into that flag.
	done := make(chan struct{})
	go func() {
		select {
		case <-runCtx.Done():
			dctx.Cancel()
		case <-done:
		}
	}()
	bridgedCancel := func() {
		close(done)
		cancel()
	}
	return runCtx, it, dctx, bridgedCancel, nil
}

// MustRun is like Run but panics if evaluation fails. It simplifies safe
// initialization of tests and examples where a failure is a programming
// error, not a runtime condition to recover from.
func (e *Engine) MustRun(ctx context.Context, expr *types.Expression, bindings map[string][]types.Item) []types.Item {
	items, err := e.Run(ctx, expr, bindings)
	if err != nil {
		panic(fmt.Sprintf("jsoniqcore: Run: %v", err))
	}
	return items
}
