package layout

import (
	"fmt"
	"strings"

	"cc16/internal/types"
)

// ErrorKind enumerates types of layout calculation errors.
type ErrorKind uint8

const (
	// ErrRecursiveUnsized indicates a record that contains itself by value.
	ErrRecursiveUnsized ErrorKind = iota + 1
	ErrIncomplete
	ErrTooLarge
)

// Error represents an error during memory layout calculation.
type Error struct {
	Kind  ErrorKind
	Type  types.TypeID
	Label string
	Cycle []string // for ErrRecursiveUnsized
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch e.Kind {
	case ErrRecursiveUnsized:
		return fmt.Sprintf("recursive value type has infinite size (cycle: %s)", strings.Join(e.Cycle, " -> "))
	case ErrIncomplete:
		return fmt.Sprintf("type %s has no known size", e.Label)
	case ErrTooLarge:
		return fmt.Sprintf("type %s does not fit the 16-bit address space", e.Label)
	default:
		return fmt.Sprintf("layout error kind=%d type %s", e.Kind, e.Label)
	}
}
