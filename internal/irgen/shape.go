package irgen

import (
	"fmt"

	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/source"
)

// missingOperand names the first required child absent from e, or "".
func missingOperand(e *hir.Expr) string {
	switch data := e.Data.(type) {
	case hir.UnaryData:
		if data.Operand == nil {
			return "operand"
		}
	case hir.BinaryData:
		if data.Left == nil {
			return "left operand"
		}
		if data.Right == nil {
			return "right operand"
		}
	case hir.AssignData:
		if data.Target == nil {
			return "assignment target"
		}
		if data.Value == nil {
			return "assigned value"
		}
	case hir.CallData:
		if data.Callee == nil {
			return "callee"
		}
		for _, a := range data.Args {
			if a == nil {
				return "call argument"
			}
		}
	case hir.MemberData:
		if data.Object == nil {
			return "member object"
		}
	case hir.IndexData:
		if data.Object == nil {
			return "indexed object"
		}
		if data.Index == nil {
			return "index"
		}
	case hir.CondData:
		if data.Cond == nil {
			return "condition"
		}
		if data.Then == nil || data.Else == nil {
			return "conditional arm"
		}
	case hir.CastData:
		if data.Value == nil {
			return "cast operand"
		}
	case hir.StmtExprData:
		if data.Block == nil {
			return "statement block"
		}
	}
	return ""
}

// checkShape rejects an expression node whose required children are nil.
func (g *funcGen) checkShape(e *hir.Expr) error {
	if what := missingOperand(e); what != "" {
		return g.malformed(e.Span, what)
	}
	return nil
}

func (g *funcGen) malformed(span source.Span, what string) error {
	return g.errorf(diag.GenUnsupported, span, what, "malformed tree: missing %s", what)
}

// recoverMalformed turns a panic raised while walking a function body into
// a generator error, so a bad tree never escapes Generate as a crash.
func (g *funcGen) recoverMalformed(err *error) {
	r := recover()
	if r == nil {
		return
	}
	*err = g.errorf(diag.GenUnsupported, g.fn.Span, g.fn.Name, "malformed tree: %s", fmt.Sprint(r))
}
