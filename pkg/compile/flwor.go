package compile

import (
	"github.com/sandrolain/jsoniqcore/pkg/flwor"
	"github.com/sandrolain/jsoniqcore/pkg/runtime"
	"github.com/sandrolain/jsoniqcore/pkg/types"
)

// compileFlwor builds the TupleIterator pipeline for one FLWOR expression
// (spec §4.2–§4.4): node.Clauses holds every For/Let/Where/GroupBy/OrderBy/
// Count clause in source order, terminated by a NodeClauseReturn clause
// whose RHS is the return expression. Grounded on the teacher's block
// evaluator threading one EvalContext through a statement list
// (eval_impl.go); here the thread is a runtime.TupleIterator chain instead,
// each clause wrapping the last.
func (c *Compiler) compileFlwor(node *types.ASTNode) (runtime.RuntimeIterator, error) {
	var chain runtime.TupleIterator = flwor.Root()
	var returnExpr *types.ASTNode

	for _, clause := range node.Clauses {
		if clause.Type == types.NodeClauseReturn {
			returnExpr = clause.RHS
			continue
		}
		var err error
		chain, err = c.compileClause(chain, clause)
		if err != nil {
			return nil, err
		}
	}
	if returnExpr == nil {
		return nil, types.NewError(types.ErrDynamicError, "flwor expression has no return clause", node.Position)
	}
	return flwor.Return(chain, returnExpr, c.Compile), nil
}

func (c *Compiler) compileClause(chain runtime.TupleIterator, clause *types.ASTNode) (runtime.TupleIterator, error) {
	switch clause.Type {
	case types.NodeClauseFor:
		return flwor.For(chain, clause.Variable, clause.PositionVar, clause.RHS, c.Compile, clause.BoolValue), nil

	case types.NodeClauseLet:
		return flwor.Let(chain, clause.Variable, clause.RHS, c.Compile), nil

	case types.NodeClauseWhere:
		return flwor.Where(chain, clause.RHS, c.Compile), nil

	case types.NodeClauseGroupBy:
		return flwor.GroupBy(chain, clause.Groups, c.Compile), nil

	case types.NodeClauseOrderBy:
		// With a backend configured, the distributed algorithm is chosen
		// either by the clause's annotation (clause.Mode is anything but
		// ModeLocal, including the unset zero value) or dynamically, when the
		// upstream tuple pipeline itself already reports isDataFrame()
		// (spec §4.1 Hybrid iterator) — e.g. a for-clause bound to a
		// Parquet source earlier in the same FLWOR expression. The dynamic
		// check is what sends a clause annotated ModeLocal to the
		// distributed algorithm when its source is distributed.
		if c.Backend != nil && (clause.Mode != types.ModeLocal || chain.IsDataFrame()) {
			return flwor.OrderByDistributed(chain, clause.Orders, c.Compile, c.Backend), nil
		}
		return flwor.OrderByLocal(chain, clause.Orders, c.Compile, clause.Stable), nil

	case types.NodeClauseCount:
		return flwor.Count(chain, clause.Variable), nil

	default:
		return nil, types.NewError(types.ErrDynamicError, "unsupported FLWOR clause type: "+string(clause.Type), clause.Position)
	}
}
