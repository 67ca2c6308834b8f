package irgen

import (
	"fmt"
	"strings"

	"cc16/internal/diag"
	"cc16/internal/source"
)

// Error is a fatal generator failure. It aborts generation of the unit.
type Error struct {
	Code diag.Code
	Func string
	Name string
	Span source.Span
	Msg  string
}

func (e *Error) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Code.ID())
	if e.Span.Known() {
		sb.WriteString(" ")
		sb.WriteString(e.Span.String())
	}
	if e.Func != "" {
		sb.WriteString(" in ")
		sb.WriteString(e.Func)
	}
	sb.WriteString(": ")
	sb.WriteString(e.Msg)
	if e.Name != "" {
		fmt.Fprintf(&sb, " (%s)", e.Name)
	}
	return sb.String()
}
