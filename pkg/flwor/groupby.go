package flwor

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/cespare/xxhash/v2"

	rcontext "github.com/sandrolain/jsoniqcore/pkg/context"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// groupByIterator implements a "group by $k1 := e1, $k2 := e2, ..." clause
// (spec §4.3 GroupBy): tuples are partitioned by the item-equality of their
// grouping key vectors, one output tuple per distinct key combination, with
// every non-grouping variable rebound to the concatenated sequence of its
// values across the group's member tuples.
//
// Grouping is drain-then-partition, not streaming, since JSONiq grouping
// requires seeing the whole input before any group can be finalized —
// grounded on the teacher's LRU cache bucketing (pkg/cache), reused here
// for a hash-then-confirm partition table: cespare/xxhash/v2 hashes each
// key vector's canonical byte encoding to a bucket, then types.Equal
// confirms membership within the bucket to guard against hash collisions.
type groupByIterator struct {
	child   runtime.TupleIterator
	groups  []types.GroupSpec
	compile ExprCompiler

	partitioned []runtime.Tuple
	idx         int
}

// GroupBy builds a group-by-clause TupleIterator over child.
func GroupBy(child runtime.TupleIterator, groups []types.GroupSpec, compile ExprCompiler) *groupByIterator {
	return &groupByIterator{child: child, groups: groups, compile: compile}
}

type groupBucket struct {
	key     []types.Item
	members []runtime.Tuple
}

func (g *groupByIterator) Open(ctx context.Context, dctx *rcontext.DynamicContext) error {
	if err := g.child.Open(ctx, dctx); err != nil {
		return err
	}
	defer g.child.Close()

	buckets := make(map[uint64][]*groupBucket)
	var order []*groupBucket

	for g.child.HasNext() {
		if err := runtime.CheckCancelled(dctx); err != nil {
			return err
		}
		t, err := g.child.Next()
		if err != nil {
			return err
		}
		key, keyed, err := g.evalKey(ctx, dctx, t)
		if err != nil {
			return err
		}
		h := hashKey(key)
		var bucket *groupBucket
		for _, b := range buckets[h] {
			if keyEqual(b.key, key) {
				bucket = b
				break
			}
		}
		if bucket == nil {
			bucket = &groupBucket{key: key}
			buckets[h] = append(buckets[h], bucket)
			order = append(order, bucket)
		}
		bucket.members = append(bucket.members, keyed)
	}

	keyNames := make(map[string]bool, len(g.groups))
	for _, spec := range g.groups {
		keyNames[spec.Variable] = true
	}
	out := make([]runtime.Tuple, 0, len(order))
	for _, b := range order {
		out = append(out, mergeGroup(b, keyNames))
	}
	g.partitioned = out
	g.idx = 0
	return nil
}

// evalKey evaluates every grouping expression against t, returning the key
// vector and a copy of t with each $ki bound to its singleton key value
// (per spec §4.3, a group-by key variable is bound within the group like
// any other variable).
func (g *groupByIterator) evalKey(ctx context.Context, dctx *rcontext.DynamicContext, t runtime.Tuple) ([]types.Item, runtime.Tuple, error) {
	key := make([]types.Item, len(g.groups))
	out := t
	for i, spec := range g.groups {
		it, err := g.compile(spec.Expr)
		if err != nil {
			return nil, runtime.Tuple{}, err
		}
		exprCtx := tupleContext(dctx, t)
		seq, err := drainExpr(ctx, exprCtx, it)
		if err != nil {
			return nil, runtime.Tuple{}, err
		}
		var v types.Item
		if len(seq) == 1 {
			v = seq[0]
		} else if len(seq) == 0 {
			v = types.Null
		} else {
			return nil, runtime.Tuple{}, types.NewError(types.ErrNonAtomicKey,
				"group by key must be a single atomic value", -1)
		}
		if !v.IsAtomic() && v.Kind != types.KindNull {
			return nil, runtime.Tuple{}, types.NewError(types.ErrNonAtomicKey,
				"group by key must be atomic", -1)
		}
		if v.IsBinary() {
			return nil, runtime.Tuple{}, types.NewError(types.ErrUnexpectedType,
				"binary items are not orderable: cannot use a binary value as a group by key", -1)
		}
		key[i] = v
		out = out.With(spec.Variable, []types.Item{v})
	}
	return key, out, nil
}

func keyEqual(a, b []types.Item) bool {
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

// hashKey hashes a key vector's canonical byte encoding with xxhash to pick
// a bucket; collisions are resolved by exact item-equality above, so this
// hash only needs to be fast and reasonably well distributed, never exact.
func hashKey(key []types.Item) uint64 {
	h := xxhash.New()
	for _, it := range key {
		var buf [9]byte
		buf[0] = byte(it.Kind)
		switch it.Kind {
		case types.KindInteger:
			binary.LittleEndian.PutUint64(buf[1:], uint64(it.Int))
		case types.KindDouble:
			binary.LittleEndian.PutUint64(buf[1:], math.Float64bits(it.Dbl))
		case types.KindBoolean:
			if it.Bool {
				buf[1] = 1
			}
		}
		h.Write(buf[:])
		if it.Kind == types.KindString {
			h.Write([]byte(it.Str))
		}
		if it.Kind == types.KindDecimal && it.Dec != nil {
			h.Write([]byte(it.Dec.RatString()))
		}
	}
	return h.Sum64()
}

// mergeGroup produces the single output tuple for a group: grouping
// variables keep their scalar key value (already bound per-member, so any
// member's binding works), every other variable is rebound to the
// concatenation of its values across all members, in member order.
func mergeGroup(b *groupBucket, keyNames map[string]bool) runtime.Tuple {
	out := runtime.NewTuple()
	if len(b.members) == 0 {
		return out
	}
	names := make([]string, 0, len(b.members[0].Bindings))
	for name := range b.members[0].Bindings {
		names = append(names, name)
	}
	for _, name := range names {
		if keyNames[name] {
			out = out.With(name, b.members[0].Bindings[name])
			continue
		}
		var concatenated []types.Item
		for _, m := range b.members {
			concatenated = append(concatenated, m.Bindings[name]...)
		}
		out = out.With(name, concatenated)
	}
	return out
}

func (g *groupByIterator) HasNext() bool { return g.idx < len(g.partitioned) }

func (g *groupByIterator) Next() (runtime.Tuple, error) {
	if !g.HasNext() {
		return runtime.Tuple{}, runtime.FlowError("Next called with HasNext false")
	}
	t := g.partitioned[g.idx]
	g.idx++
	return t, nil
}

func (g *groupByIterator) Close() error { return nil }

func (g *groupByIterator) Reset(ctx context.Context, dctx *rcontext.DynamicContext) error {
	return g.Open(ctx, dctx)
}

func (g *groupByIterator) BoundVariables() []string {
	names := make([]string, len(g.groups))
	for i, spec := range g.groups {
		names[i] = spec.Variable
	}
	return names
}

func (g *groupByIterator) VariableDependencies() map[string]types.DependencyKind {
	deps := make(map[string]types.DependencyKind)
	for _, spec := range g.groups {
		for k, v := range spec.Expr.Dependencies {
			deps[k] = deps[k].Merge(v)
		}
	}
	return deps
}

func (g *groupByIterator) Projection(parent map[string]types.DependencyKind) map[string]types.DependencyKind {
	// group by materializes every non-key variable in full to concatenate
	// it into the group, so any parent projection narrower than FULL on a
	// variable this clause does not bind must be widened to FULL.
	widened := make(map[string]types.DependencyKind, len(parent))
	for k, v := range parent {
		widened[k] = v
	}
	for k := range widened {
		isKey := false
		for _, spec := range g.groups {
			if spec.Variable == k {
				isKey = true
				break
			}
		}
		if !isKey {
			widened[k] = types.DependencyFull
		}
	}
	merged := runtime.MergeProjection(widened, g.VariableDependencies(), nil)
	return g.child.Projection(merged)
}

func (g *groupByIterator) IsDataFrame() bool { return g.child.IsDataFrame() }
