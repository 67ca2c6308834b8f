package irgen

import (
	"math"

	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/types"
)

func (c *Context) isFloat(t types.TypeID) bool {
	return c.types.Kind(t) == types.KindFloat
}

// isUnsigned reports types compared and divided as unsigned.
func (c *Context) isUnsigned(t types.TypeID) bool {
	switch c.types.Kind(t) {
	case types.KindUint, types.KindBool, types.KindPointer:
		return true
	}
	return false
}

func (c *Context) intConst(t types.TypeID, v int64) ir.Const {
	size := c.sizeOf(t)
	return ir.Const{Type: t, Size: size, Int: ir.Truncate(v, size, !c.isUnsigned(t))}
}

func (c *Context) floatConst(t types.TypeID, v float64) ir.Const {
	if c.sizeOf(t) == 4 {
		v = float64(float32(v))
	}
	return ir.FloatConst(t, c.sizeOf(t), v)
}

// convertConst applies the C conversion of k to type t.
func (c *Context) convertConst(k ir.Const, t types.TypeID) ir.Const {
	switch {
	case c.isFloat(t) && k.IsFloat:
		return c.floatConst(t, k.Float)
	case c.isFloat(t):
		if c.isUnsigned(k.Type) {
			return c.floatConst(t, float64(uint64(ir.Truncate(k.Int, k.Size, false)))) //nolint:gosec // truncated to the operand width first
		}
		return c.floatConst(t, float64(k.Int))
	case c.types.Kind(t) == types.KindBool:
		if k.IsZero() {
			return c.intConst(t, 0)
		}
		return c.intConst(t, 1)
	case k.IsFloat:
		return c.intConst(t, int64(math.Trunc(k.Float)))
	}
	return c.intConst(t, k.Int)
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// fold evaluates side-effect-free expressions built from literals.
func (c *Context) fold(e *hir.Expr) (ir.Const, bool) {
	if e == nil {
		return ir.Const{}, false
	}
	switch data := e.Data.(type) {
	case hir.LiteralData:
		switch data.Kind {
		case hir.LiteralInt:
			if c.isFloat(e.Type) {
				return c.floatConst(e.Type, float64(data.Int)), true
			}
			return c.intConst(e.Type, data.Int), true
		case hir.LiteralFloat:
			if !c.isFloat(e.Type) {
				return c.intConst(e.Type, int64(math.Trunc(data.Float))), true
			}
			return c.floatConst(e.Type, data.Float), true
		}
	case hir.UnaryData:
		return c.foldUnary(e, data)
	case hir.BinaryData:
		return c.foldBinary(e, data)
	case hir.CondData:
		cond, ok := c.fold(data.Cond)
		if !ok {
			return ir.Const{}, false
		}
		arm := data.Else
		if !cond.IsZero() {
			arm = data.Then
		}
		k, ok := c.fold(arm)
		if !ok {
			return ir.Const{}, false
		}
		return c.convertConst(k, e.Type), true
	case hir.CastData:
		if c.types.Kind(e.Type) == types.KindVoid {
			return ir.Const{}, false
		}
		k, ok := c.fold(data.Value)
		if !ok {
			return ir.Const{}, false
		}
		return c.convertConst(k, e.Type), true
	}
	return ir.Const{}, false
}

func (c *Context) foldUnary(e *hir.Expr, data hir.UnaryData) (ir.Const, bool) {
	x, ok := c.fold(data.Operand)
	if !ok {
		return ir.Const{}, false
	}
	switch data.Op {
	case hir.UnPlus:
		return c.convertConst(x, e.Type), true
	case hir.UnNeg:
		if x.IsFloat {
			return c.floatConst(e.Type, -x.Float), true
		}
		return c.intConst(e.Type, -x.Int), true
	case hir.UnBitNot:
		if x.IsFloat {
			return ir.Const{}, false
		}
		return c.intConst(e.Type, ^x.Int), true
	case hir.UnLogNot:
		return c.intConst(e.Type, boolInt(x.IsZero())), true
	}
	return ir.Const{}, false
}

func (c *Context) foldBinary(e *hir.Expr, data hir.BinaryData) (ir.Const, bool) {
	l, ok := c.fold(data.Left)
	if !ok {
		return ir.Const{}, false
	}
	if data.Op.IsLogical() {
		if data.Op == hir.BinLogAnd && l.IsZero() {
			return c.intConst(e.Type, 0), true
		}
		if data.Op == hir.BinLogOr && !l.IsZero() {
			return c.intConst(e.Type, 1), true
		}
		r, ok := c.fold(data.Right)
		if !ok {
			return ir.Const{}, false
		}
		return c.intConst(e.Type, boolInt(!r.IsZero())), true
	}
	r, ok := c.fold(data.Right)
	if !ok {
		return ir.Const{}, false
	}
	if data.Op.IsRelational() {
		op := cmpOp(data.Op, c.isUnsigned(data.Left.Type))
		if l.IsFloat || r.IsFloat {
			return c.intConst(e.Type, boolInt(ir.EvalFloatCmp(op, toFloat(l), toFloat(r)))), true
		}
		return c.intConst(e.Type, boolInt(ir.EvalCmp(op, l.Int, r.Int, max(l.Size, r.Size)))), true
	}
	if c.isFloat(e.Type) {
		v, ok := ir.EvalFloat(mathOp(data.Op, false, true), toFloat(l), toFloat(r))
		if !ok {
			return ir.Const{}, false
		}
		return c.floatConst(e.Type, v), true
	}
	if l.IsFloat || r.IsFloat {
		return ir.Const{}, false
	}
	// Constant pointer arithmetic scales the integer side.
	lk, rk := c.types.Kind(data.Left.Type), c.types.Kind(data.Right.Type)
	switch {
	case lk == types.KindPointer && rk != types.KindPointer:
		r.Int *= int64(max(c.sizeOf(c.types.Elem(data.Left.Type)), 1))
	case rk == types.KindPointer && lk != types.KindPointer:
		l.Int *= int64(max(c.sizeOf(c.types.Elem(data.Right.Type)), 1))
	case lk == types.KindPointer && rk == types.KindPointer:
		return ir.Const{}, false
	}
	op := mathOp(data.Op, c.isUnsigned(e.Type), false)
	if op == 0 {
		return ir.Const{}, false
	}
	size := c.sizeOf(e.Type)
	v, ok := ir.EvalMath(op, l.Int, r.Int, size)
	if !ok {
		return ir.Const{}, false
	}
	return c.intConst(e.Type, v), true
}

func toFloat(k ir.Const) float64 {
	if k.IsFloat {
		return k.Float
	}
	return float64(k.Int)
}

// mathOp maps an arithmetic operator to its IR opcode.
func mathOp(op hir.BinaryOp, unsigned, float bool) ir.MathOp {
	switch op {
	case hir.BinAdd:
		return ir.MathAdd
	case hir.BinSub:
		return ir.MathSub
	case hir.BinMul:
		return ir.MathMul
	case hir.BinDiv:
		if unsigned && !float {
			return ir.MathUDiv
		}
		return ir.MathDiv
	case hir.BinMod:
		if unsigned {
			return ir.MathUMod
		}
		return ir.MathMod
	case hir.BinShl:
		return ir.MathShl
	case hir.BinShr:
		if unsigned {
			return ir.MathShr
		}
		return ir.MathSar
	case hir.BinAnd:
		return ir.MathAnd
	case hir.BinOr:
		return ir.MathOr
	case hir.BinXor:
		return ir.MathXor
	}
	return 0
}

func cmpOp(op hir.BinaryOp, unsigned bool) ir.CmpOp {
	var out ir.CmpOp
	switch op {
	case hir.BinEq:
		return ir.CmpEq
	case hir.BinNe:
		return ir.CmpNe
	case hir.BinLt:
		out = ir.CmpLt
	case hir.BinLe:
		out = ir.CmpLe
	case hir.BinGt:
		out = ir.CmpGt
	case hir.BinGe:
		out = ir.CmpGe
	}
	if unsigned {
		out += ir.CmpULt - ir.CmpLt
	}
	return out
}
