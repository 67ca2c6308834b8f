package ir

// MathOp is the operator of a math instruction. Signedness lives in the
// operator so that the backend never has to look at types to pick div/idiv.
type MathOp uint8

const (
	MathAdd MathOp = iota + 1
	MathSub
	MathMul
	MathDiv  // signed
	MathUDiv // unsigned
	MathMod
	MathUMod
	MathAnd
	MathOr
	MathXor
	MathShl
	MathShr // logical
	MathSar // arithmetic
)

func (op MathOp) String() string {
	switch op {
	case MathAdd:
		return "add"
	case MathSub:
		return "sub"
	case MathMul:
		return "mul"
	case MathDiv:
		return "div"
	case MathUDiv:
		return "udiv"
	case MathMod:
		return "mod"
	case MathUMod:
		return "umod"
	case MathAnd:
		return "and"
	case MathOr:
		return "or"
	case MathXor:
		return "xor"
	case MathShl:
		return "shl"
	case MathShr:
		return "shr"
	case MathSar:
		return "sar"
	}
	return "math?"
}

// Commutative reports whether operands may be swapped.
func (op MathOp) Commutative() bool {
	switch op {
	case MathAdd, MathMul, MathAnd, MathOr, MathXor:
		return true
	}
	return false
}

// Chain returns the operator c such that (x op a) op b == x op (a c b).
func (op MathOp) Chain() (MathOp, bool) {
	switch op {
	case MathAdd, MathSub:
		// x - a - b == x - (a + b)
		return MathAdd, true
	case MathMul:
		return MathMul, true
	case MathAnd, MathOr, MathXor:
		return op, true
	case MathShl, MathShr, MathSar:
		return MathAdd, true
	}
	return 0, false
}

// EvalMath folds two integer constants. It fails on division by zero.
func EvalMath(op MathOp, a, b int64, size int) (int64, bool) {
	ua := uint64(Truncate(a, size, false))
	ub := uint64(Truncate(b, size, false))
	var r int64
	switch op {
	case MathAdd:
		r = a + b
	case MathSub:
		r = a - b
	case MathMul:
		r = a * b
	case MathDiv:
		if b == 0 {
			return 0, false
		}
		r = a / b
	case MathUDiv:
		if ub == 0 {
			return 0, false
		}
		r = int64(ua / ub) //nolint:gosec // wrapped by Truncate below
	case MathMod:
		if b == 0 {
			return 0, false
		}
		r = a % b
	case MathUMod:
		if ub == 0 {
			return 0, false
		}
		r = int64(ua % ub) //nolint:gosec // wrapped by Truncate below
	case MathAnd:
		r = a & b
	case MathOr:
		r = a | b
	case MathXor:
		r = a ^ b
	case MathShl:
		r = a << uint(b&63)
	case MathShr:
		r = int64(ua >> uint(b&63)) //nolint:gosec // wrapped by Truncate below
	case MathSar:
		r = a >> uint(b&63)
	default:
		return 0, false
	}
	return Truncate(r, size, true), true
}

// EvalFloat folds two float constants.
func EvalFloat(op MathOp, a, b float64) (float64, bool) {
	switch op {
	case MathAdd:
		return a + b, true
	case MathSub:
		return a - b, true
	case MathMul:
		return a * b, true
	case MathDiv:
		if b == 0 {
			return 0, false
		}
		return a / b, true
	}
	return 0, false
}

// CmpOp is a relational operator. The U variants compare unsigned.
type CmpOp uint8

const (
	CmpEq CmpOp = iota + 1
	CmpNe
	CmpLt
	CmpLe
	CmpGt
	CmpGe
	CmpULt
	CmpULe
	CmpUGt
	CmpUGe
)

func (op CmpOp) String() string {
	switch op {
	case CmpEq:
		return "eq"
	case CmpNe:
		return "ne"
	case CmpLt:
		return "lt"
	case CmpLe:
		return "le"
	case CmpGt:
		return "gt"
	case CmpGe:
		return "ge"
	case CmpULt:
		return "ult"
	case CmpULe:
		return "ule"
	case CmpUGt:
		return "ugt"
	case CmpUGe:
		return "uge"
	}
	return "cmp?"
}

// Mirror returns the operator that holds after swapping operands.
func (op CmpOp) Mirror() CmpOp {
	switch op {
	case CmpLt:
		return CmpGt
	case CmpLe:
		return CmpGe
	case CmpGt:
		return CmpLt
	case CmpGe:
		return CmpLe
	case CmpULt:
		return CmpUGt
	case CmpULe:
		return CmpUGe
	case CmpUGt:
		return CmpULt
	case CmpUGe:
		return CmpULe
	}
	return op
}

// EvalCmp folds a comparison of two integers of the given size.
func EvalCmp(op CmpOp, a, b int64, size int) bool {
	ua := uint64(Truncate(a, size, false))
	ub := uint64(Truncate(b, size, false))
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpLt:
		return a < b
	case CmpLe:
		return a <= b
	case CmpGt:
		return a > b
	case CmpGe:
		return a >= b
	case CmpULt:
		return ua < ub
	case CmpULe:
		return ua <= ub
	case CmpUGt:
		return ua > ub
	case CmpUGe:
		return ua >= ub
	}
	return false
}

// EvalFloatCmp folds a comparison of two floats; unsigned variants behave
// like their signed counterparts.
func EvalFloatCmp(op CmpOp, a, b float64) bool {
	switch op {
	case CmpEq:
		return a == b
	case CmpNe:
		return a != b
	case CmpLt, CmpULt:
		return a < b
	case CmpLe, CmpULe:
		return a <= b
	case CmpGt, CmpUGt:
		return a > b
	case CmpGe, CmpUGe:
		return a >= b
	}
	return false
}
