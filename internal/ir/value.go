package ir

import (
	"fmt"
	"strconv"

	"cc16/internal/types"
)

// VarKey identifies a variable inside one function.
type VarKey struct {
	Name  string
	Index int
	Temp  bool
}

func (k VarKey) String() string {
	if k.Temp {
		return fmt.Sprintf("%%t{%d}", k.Index)
	}
	return fmt.Sprintf("%s{%d}", k.Name, k.Index)
}

// Var is a declared variable or a temporary.
//
// A declared variable is a stack-slot handle: its Type is a pointer to the
// slot's type and it is produced by an alloc instruction (or is a parameter).
// Index counts redefinitions of the same source name inside a function, so
// shadowed locals stay distinct. A temporary is defined exactly once; Index
// is its sequence number.
type Var struct {
	Name  string
	Index int
	Temp  bool
	Type  types.TypeID
	Size  int
}

func (v Var) Key() VarKey {
	return VarKey{Name: v.Name, Index: v.Index, Temp: v.Temp}
}

func (v Var) String() string {
	return v.Key().String()
}

// SameAs reports whether v and o denote the same variable.
func (v Var) SameAs(o Var) bool {
	return v.Key() == o.Key()
}

// Const is an immutable typed number.
type Const struct {
	Type    types.TypeID
	Size    int
	Int     int64
	Float   float64
	IsFloat bool
}

// IntConst is a convenience constructor for integer constants.
func IntConst(t types.TypeID, size int, v int64) Const {
	return Const{Type: t, Size: size, Int: Truncate(v, size, true)}
}

// FloatConst is a convenience constructor for float/double constants.
func FloatConst(t types.TypeID, size int, v float64) Const {
	return Const{Type: t, Size: size, Float: v, IsFloat: true}
}

func (c Const) IsZero() bool {
	if c.IsFloat {
		return c.Float == 0
	}
	return c.Int == 0
}

func (c Const) ValueString() string {
	if c.IsFloat {
		return strconv.FormatFloat(c.Float, 'g', -1, 64)
	}
	return strconv.FormatInt(c.Int, 10)
}

// OperandKind tags Operand.
type OperandKind uint8

const (
	OperandNone OperandKind = iota
	OperandVar
	OperandConst
)

// Operand is an instruction input.
type Operand struct {
	Kind  OperandKind
	Var   Var
	Const Const
}

func VarOp(v Var) Operand     { return Operand{Kind: OperandVar, Var: v} }
func ConstOp(c Const) Operand { return Operand{Kind: OperandConst, Const: c} }

func (o Operand) IsVar() bool   { return o.Kind == OperandVar }
func (o Operand) IsConst() bool { return o.Kind == OperandConst }

// Type returns the operand's type.
func (o Operand) Type() types.TypeID {
	switch o.Kind {
	case OperandVar:
		return o.Var.Type
	case OperandConst:
		return o.Const.Type
	}
	return types.NoTypeID
}

// Size returns the operand's byte size.
func (o Operand) Size() int {
	switch o.Kind {
	case OperandVar:
		return o.Var.Size
	case OperandConst:
		return o.Const.Size
	}
	return 0
}

// Uses reports whether o reads variable k.
func (o Operand) Uses(k VarKey) bool {
	return o.Kind == OperandVar && o.Var.Key() == k
}

// Truncate wraps v to a size-byte integer, sign- or zero-extending back to
// int64.
func Truncate(v int64, size int, signed bool) int64 {
	if size <= 0 || size >= 8 {
		return v
	}
	bits := uint(size * 8)
	mask := int64(1)<<bits - 1
	v &= mask
	if signed && v&(int64(1)<<(bits-1)) != 0 {
		v -= int64(1) << bits
	}
	return v
}
