package x86

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"fortio.org/safecast"

	"cc16/internal/diag"
	"cc16/internal/ir"
)

// emitData writes every def-data entry followed by the float literal pool.
// Items are laid out by offset and gaps are zero-filled.
func (b *backend) emitData(w *strings.Builder, data *ir.DataSegment) error {
	var errs []error
	if data != nil {
		for i := range data.Defs {
			if err := b.emitDef(w, &data.Defs[i].DefData); err != nil {
				errs = append(errs, err)
			}
		}
	}
	for _, f := range b.pool {
		directive := "dq"
		if f.size == 4 {
			directive = "dd"
		}
		fmt.Fprintf(w, "%s: %s %s\n", f.label, directive, floatLiteral(f.value))
	}
	return errors.Join(errs...)
}

func (b *backend) emitDef(w *strings.Builder, def *ir.DefDataInstr) error {
	if _, err := safecast.Conv[uint16](def.Size); err != nil {
		return &Error{Code: diag.BackUnsupportedType, Name: def.Label, Msg: "data object does not fit in a segment"}
	}
	items := slices.Clone(def.Items)
	slices.SortStableFunc(items, func(a, b ir.DataItem) int { return a.Offset - b.Offset })

	var lines []string
	pos := 0
	for _, it := range items {
		if it.Offset < pos {
			return &Error{Code: diag.BackBadOperand, Name: def.Label,
				Msg: fmt.Sprintf("overlapping data item at offset %d", it.Offset)}
		}
		if gap := it.Offset - pos; gap > 0 {
			lines = append(lines, fmt.Sprintf("times %d db 0", gap))
		}
		line, size, err := dataLine(it)
		if err != nil {
			return &Error{Code: diag.BackBadOperand, Name: def.Label, Msg: err.Error()}
		}
		lines = append(lines, line)
		pos = it.Offset + size
	}
	if tail := def.Size - pos; tail > 0 {
		lines = append(lines, fmt.Sprintf("times %d db 0", tail))
	}

	if w.Len() > 0 {
		w.WriteByte('\n')
	}
	fmt.Fprintf(w, "%s:\n", def.Label)
	for _, l := range lines {
		fmt.Fprintf(w, "    %s\n", l)
	}
	return nil
}

// dataLine renders one item and reports how many bytes it covers.
func dataLine(it ir.DataItem) (string, int, error) {
	switch it.Kind {
	case ir.DataConst:
		c := it.Const
		if c.IsFloat {
			if c.Size == 4 {
				return "dd " + floatLiteral(c.Float), 4, nil
			}
			return "dq " + floatLiteral(c.Float), 8, nil
		}
		directive, ok := map[int]string{1: "db", 2: "dw", 4: "dd"}[c.Size]
		if !ok {
			return "", 0, fmt.Errorf("integer constant of %d bytes", c.Size)
		}
		return directive + " " + strconv.FormatInt(ir.Truncate(c.Int, c.Size, false), 10), c.Size, nil
	case ir.DataLabel:
		target := it.Label
		if it.Addend != 0 {
			target += fmt.Sprintf("%+d", it.Addend)
		}
		return "dw " + target, 2, nil
	case ir.DataBytes:
		if len(it.Bytes) == 0 {
			return "", 0, fmt.Errorf("empty byte item at offset %d", it.Offset)
		}
		parts := make([]string, len(it.Bytes))
		for i, c := range it.Bytes {
			parts[i] = strconv.Itoa(int(c))
		}
		return "db " + strings.Join(parts, ", "), len(it.Bytes), nil
	}
	return "", 0, fmt.Errorf("unknown data item kind %d", it.Kind)
}

// floatLiteral prints v the way nasm reads floating point: a decimal point
// is always present, special values use the built-in tokens.
func floatLiteral(v float64) string {
	switch {
	case math.IsNaN(v):
		return "__QNaN__"
	case math.IsInf(v, 1):
		return "__Infinity__"
	case math.IsInf(v, -1):
		return "-__Infinity__"
	}
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if strings.Contains(s, ".") {
		return s
	}
	if i := strings.IndexByte(s, 'e'); i >= 0 {
		return s[:i] + ".0" + s[i:]
	}
	return s + ".0"
}
