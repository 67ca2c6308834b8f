package hir

// UnaryOp enumerates unary operators.
type UnaryOp uint8

const (
	UnNeg UnaryOp = iota + 1
	UnPlus
	UnBitNot
	UnLogNot
	UnDeref
	UnAddrOf
	UnPreInc
	UnPreDec
	UnPostInc
	UnPostDec
)

func (op UnaryOp) String() string {
	switch op {
	case UnNeg:
		return "-"
	case UnPlus:
		return "+"
	case UnBitNot:
		return "~"
	case UnLogNot:
		return "!"
	case UnDeref:
		return "*"
	case UnAddrOf:
		return "&"
	case UnPreInc:
		return "++x"
	case UnPreDec:
		return "--x"
	case UnPostInc:
		return "x++"
	case UnPostDec:
		return "x--"
	}
	return "?"
}

// BinaryOp enumerates binary operators.
type BinaryOp uint8

const (
	BinAdd BinaryOp = iota + 1
	BinSub
	BinMul
	BinDiv
	BinMod
	BinShl
	BinShr
	BinAnd
	BinOr
	BinXor
	BinLogAnd
	BinLogOr
	BinEq
	BinNe
	BinLt
	BinLe
	BinGt
	BinGe
)

func (op BinaryOp) String() string {
	switch op {
	case BinAdd:
		return "+"
	case BinSub:
		return "-"
	case BinMul:
		return "*"
	case BinDiv:
		return "/"
	case BinMod:
		return "%"
	case BinShl:
		return "<<"
	case BinShr:
		return ">>"
	case BinAnd:
		return "&"
	case BinOr:
		return "|"
	case BinXor:
		return "^"
	case BinLogAnd:
		return "&&"
	case BinLogOr:
		return "||"
	case BinEq:
		return "=="
	case BinNe:
		return "!="
	case BinLt:
		return "<"
	case BinLe:
		return "<="
	case BinGt:
		return ">"
	case BinGe:
		return ">="
	}
	return "?"
}

// IsRelational reports comparison operators.
func (op BinaryOp) IsRelational() bool {
	return op >= BinEq && op <= BinGe
}

// IsLogical reports && and ||.
func (op BinaryOp) IsLogical() bool {
	return op == BinLogAnd || op == BinLogOr
}
