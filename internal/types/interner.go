package types

import (
	"fmt"

	"fortio.org/safecast"
)

// Builtins stores TypeIDs for the C primitive types.
type Builtins struct {
	Invalid TypeID
	Void    TypeID
	Bool    TypeID
	Char    TypeID
	UChar   TypeID
	Int     TypeID
	UInt    TypeID
	Long    TypeID
	ULong   TypeID
	Float   TypeID
	Double  TypeID
}

// Interner provides stable TypeIDs by hashing structural descriptors.
// Records (struct/union) and function signatures are nominal: every
// registration yields a fresh TypeID.
type Interner struct {
	types    []Type
	index    map[Type]TypeID
	builtins Builtins
	records  []RecordInfo
	funcs    []FuncInfo
}

// NewInterner constructs an interner seeded with built-in primitives.
func NewInterner() *Interner {
	in := &Interner{
		index: make(map[Type]TypeID, 64),
	}
	in.records = append(in.records, RecordInfo{}) // reserve 0 as invalid sentinel
	in.funcs = append(in.funcs, FuncInfo{})
	in.builtins.Invalid = in.internRaw(Type{Kind: KindInvalid})
	in.seedBuiltins()
	return in
}

func (in *Interner) seedBuiltins() {
	in.builtins.Void = in.Intern(Type{Kind: KindVoid})
	in.builtins.Bool = in.Intern(Type{Kind: KindBool, Width: Width8})
	in.builtins.Char = in.Intern(MakeInt(Width8))
	in.builtins.UChar = in.Intern(MakeUint(Width8))
	in.builtins.Int = in.Intern(MakeInt(Width16))
	in.builtins.UInt = in.Intern(MakeUint(Width16))
	in.builtins.Long = in.Intern(MakeInt(Width32))
	in.builtins.ULong = in.Intern(MakeUint(Width32))
	in.builtins.Float = in.Intern(MakeFloat(Width32))
	in.builtins.Double = in.Intern(MakeFloat(Width64))
}

// Builtins returns TypeIDs for primitive types.
func (in *Interner) Builtins() Builtins {
	return in.builtins
}

// Intern ensures the provided descriptor has a stable TypeID.
func (in *Interner) Intern(t Type) TypeID {
	if t.Kind == KindInvalid {
		return NoTypeID
	}
	if id, ok := in.index[t]; ok {
		return id
	}
	return in.internRaw(t)
}

func (in *Interner) internRaw(t Type) TypeID {
	n, err := safecast.Conv[uint32](len(in.types))
	if err != nil {
		panic(fmt.Errorf("len(types) overflow: %w", err))
	}
	id := TypeID(n)
	in.types = append(in.types, t)
	in.index[t] = id
	return id
}

// Lookup returns the descriptor for a TypeID.
func (in *Interner) Lookup(id TypeID) (Type, bool) {
	if in == nil || id == NoTypeID || int(id) >= len(in.types) {
		return Type{}, false
	}
	return in.types[id], true
}

// Kind is a shortcut for Lookup(id).Kind.
func (in *Interner) Kind(id TypeID) Kind {
	tt, _ := in.Lookup(id)
	return tt.Kind
}

// PointerTo interns T*.
func (in *Interner) PointerTo(elem TypeID) TypeID {
	return in.Intern(MakePointer(elem))
}

// ArrayOf interns T[count].
func (in *Interner) ArrayOf(elem TypeID, count uint32) TypeID {
	return in.Intern(MakeArray(elem, count))
}

// Elem returns the pointee of a pointer or the element of an array.
func (in *Interner) Elem(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if !ok || (tt.Kind != KindPointer && tt.Kind != KindArray) {
		return NoTypeID
	}
	return tt.Elem
}

// Decay turns T[n] into T* and leaves other types untouched.
func (in *Interner) Decay(id TypeID) TypeID {
	tt, ok := in.Lookup(id)
	if ok && tt.Kind == KindArray {
		return in.PointerTo(tt.Elem)
	}
	return id
}
