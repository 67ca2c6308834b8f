package layout

import (
	"cc16/internal/types"
)

// TypeLayout is the layout of a type for a specific Target.
type TypeLayout struct {
	Size  int
	Align int

	// Record-only, in declaration order.
	FieldOffsets []int
}

// Engine computes and caches memory layout for types.
type Engine struct {
	Target Target
	Types  *types.Interner

	cache map[types.TypeID]cacheEntry
}

type cacheEntry struct {
	layout TypeLayout
	err    *Error
}

// New creates a new Engine for the specified target.
func New(target Target, typesIn *types.Interner) *Engine {
	return &Engine{
		Target: target,
		Types:  typesIn,
		cache:  make(map[types.TypeID]cacheEntry, 64),
	}
}

// LayoutOf computes and caches the layout of a type.
func (e *Engine) LayoutOf(t types.TypeID) (TypeLayout, error) {
	l, err := e.layoutOf(t, nil)
	if err != nil {
		return l, err
	}
	return l, nil
}

func (e *Engine) layoutOf(t types.TypeID, stack []types.TypeID) (TypeLayout, *Error) {
	if cached, ok := e.cache[t]; ok {
		return cached.layout, cached.err
	}
	for i, id := range stack {
		if id != t {
			continue
		}
		cycle := make([]string, 0, len(stack)-i+1)
		for _, c := range stack[i:] {
			cycle = append(cycle, types.Label(e.Types, c))
		}
		cycle = append(cycle, types.Label(e.Types, t))
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrRecursiveUnsized, Type: t, Label: types.Label(e.Types, t), Cycle: cycle}
	}

	l, err := e.compute(t, append(stack, t))
	if err == nil && l.Size > 0xFFFF {
		err = &Error{Kind: ErrTooLarge, Type: t, Label: types.Label(e.Types, t)}
	}
	e.cache[t] = cacheEntry{layout: l, err: err}
	return l, err
}

func (e *Engine) compute(id types.TypeID, stack []types.TypeID) (TypeLayout, *Error) {
	tt, ok := e.Types.Lookup(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id, Label: "invalid"}
	}
	switch tt.Kind {
	case types.KindVoid, types.KindFunc:
		return TypeLayout{Size: 0, Align: 1}, nil
	case types.KindBool:
		return TypeLayout{Size: 1, Align: 1}, nil
	case types.KindInt, types.KindUint, types.KindFloat:
		size := int(tt.Width) / 8
		return TypeLayout{Size: size, Align: min(size, e.Target.MaxAlign)}, nil
	case types.KindPointer:
		return TypeLayout{Size: e.Target.PtrSize, Align: min(e.Target.PtrSize, e.Target.MaxAlign)}, nil
	case types.KindArray:
		elem, err := e.layoutOf(tt.Elem, stack)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		return TypeLayout{Size: elem.Size * int(tt.Count), Align: elem.Align}, nil
	case types.KindStruct, types.KindUnion:
		return e.computeRecord(id, stack)
	}
	return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id, Label: types.Label(e.Types, id)}
}

// computeRecord trusts offsets resolved by the front end and only derives
// the total size when none was given.
func (e *Engine) computeRecord(id types.TypeID, stack []types.TypeID) (TypeLayout, *Error) {
	info, ok := e.Types.Record(id)
	if !ok {
		return TypeLayout{Size: 0, Align: 1}, &Error{Kind: ErrIncomplete, Type: id, Label: types.Label(e.Types, id)}
	}
	out := TypeLayout{Align: 1, FieldOffsets: make([]int, len(info.Fields))}
	end := 0
	for i, f := range info.Fields {
		fl, err := e.layoutOf(f.Type, stack)
		if err != nil {
			return TypeLayout{Size: 0, Align: 1}, err
		}
		off := int(f.Offset)
		out.FieldOffsets[i] = off
		out.Align = max(out.Align, fl.Align)
		end = max(end, off+fl.Size)
	}
	if info.Align > 0 {
		out.Align = int(info.Align)
	}
	out.Size = AlignUp(end, out.Align)
	if info.Size > 0 {
		out.Size = int(info.Size)
	}
	return out, nil
}

// SizeOf returns the size of a type in bytes; errors yield 0.
func (e *Engine) SizeOf(t types.TypeID) int {
	l, err := e.LayoutOf(t)
	if err != nil {
		return 0
	}
	return l.Size
}

// StackSize rounds the size of t up to whole stack slots, as pushed arguments
// and frame slots occupy.
func (e *Engine) StackSize(t types.TypeID) int {
	return AlignUp(max(e.SizeOf(t), 1), e.Target.StackSlot)
}

