package x86

import (
	"fmt"

	"cc16/internal/diag"
)

// Error is a fatal lowering failure. It aborts code generation for Func; the
// remaining functions of the unit are still compiled.
type Error struct {
	Code diag.Code
	Func string
	// Op is the IR opcode being lowered, when there is one.
	Op string
	// Name is the offending variable, builtin or label.
	Name string
	Msg  string
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := e.Code.ID() + " in " + e.Func
	if e.Op != "" {
		s += " (" + e.Op + ")"
	}
	s += ": " + e.Msg
	if e.Name != "" {
		s += fmt.Sprintf(" [%s]", e.Name)
	}
	return s
}
