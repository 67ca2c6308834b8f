package source

import (
	"fmt"
)

// Pos is a 1-based line/column pair. The zero Pos means "unknown".
type Pos struct {
	Line uint32
	Col  uint32
}

func (p Pos) Known() bool {
	return p.Line != 0
}

func (p Pos) Before(other Pos) bool {
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Col < other.Col
}

// Span points at a region of a translation unit as reported by the front end.
type Span struct {
	File  string
	Start Pos // inclusive
	End   Pos // exclusive
}

func (s Span) Empty() bool {
	return s.Start == s.End
}

func (s Span) Known() bool {
	return s.Start.Known()
}

func (s Span) String() string {
	if !s.Known() {
		if s.File == "" {
			return "<unknown>"
		}
		return s.File
	}
	return fmt.Sprintf("%s:%d:%d", s.File, s.Start.Line, s.Start.Col)
}

// Cover widens s so that it also spans other. Spans of different files are
// left untouched.
func (s Span) Cover(other Span) Span {
	if s.File != other.File {
		return s
	}
	if !s.Known() {
		return other
	}
	if !other.Known() {
		return s
	}
	if other.Start.Before(s.Start) {
		s.Start = other.Start
	}
	if s.End.Before(other.End) {
		s.End = other.End
	}
	return s
}
