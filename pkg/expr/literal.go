package expr

import "github.com/sandrolain/jsoniqcore/pkg/types"

// Literal returns a RuntimeIterator streaming a single constant item —
// used for string/integer/decimal/double/boolean/null literal AST nodes.
// The overflow-driven integer/decimal choice (spec §9 "Open questions") is
// resolved by pkg/compile's compileIntegerLiteral before an item ever
// reaches here: parse as a machine int64 first, falling back to an exact
// big.Rat decimal only when the lexical form overflows int64, never on a
// lexical-length heuristic.
func Literal(item types.Item) *sliceIterator {
	return newSliceIterator([]types.Item{item})
}

// EmptySequence returns a RuntimeIterator over the empty sequence.
func EmptySequence() *sliceIterator {
	return newSliceIterator(nil)
}
