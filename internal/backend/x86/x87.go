package x86

import (
	"fmt"
	"math"

	"cc16/internal/diag"
	"cc16/internal/ir"
)

// x87Depth is the number of data registers of the co-processor.
const x87Depth = 8

type x87Entry struct {
	v ir.Var
}

// x87Stack models the co-processor register stack. slots[0] is st0.
type x87Stack struct {
	fc    *funcCompiler
	slots []x87Entry
	// peak is the deepest the stack got in this function.
	peak int
}

func newX87Stack(fc *funcCompiler) *x87Stack {
	return &x87Stack{fc: fc}
}

func (s *x87Stack) find(v ir.Var) (int, bool) {
	for i, e := range s.slots {
		if e.v.SameAs(v) {
			return i, true
		}
	}
	return 0, false
}

// push records a load the caller has just emitted.
func (s *x87Stack) push(v ir.Var) error {
	if err := s.checkRoom(v); err != nil {
		return err
	}
	s.slots = append([]x87Entry{{v: v}}, s.slots...)
	s.peak = max(s.peak, len(s.slots))
	return nil
}

// checkRoom fails before emitting a load that would overflow.
func (s *x87Stack) checkRoom(v ir.Var) error {
	if len(s.slots) >= x87Depth {
		return &Error{Code: diag.BackX87Overflow, Name: v.String(),
			Msg: fmt.Sprintf("x87 stack already holds %d values", len(s.slots))}
	}
	return nil
}

func (s *x87Stack) pop() {
	s.slots = s.slots[1:]
}

// fxch swaps st0 and st(i).
func (s *x87Stack) fxch(i int) {
	if i == 0 {
		return
	}
	s.fc.emit("fxch st%d", i)
	s.slots[0], s.slots[i] = s.slots[i], s.slots[0]
}

// rename gives st(i) to another variable.
func (s *x87Stack) rename(i int, v ir.Var) {
	s.slots[i] = x87Entry{v: v}
}

// loadConst pushes a float constant as v.
func (s *x87Stack) loadConst(c ir.Const, v ir.Var) error {
	if err := s.checkRoom(v); err != nil {
		return err
	}
	f := c.Float
	if !c.IsFloat {
		f = float64(c.Int)
	}
	switch {
	case f == 0 && !math.Signbit(f):
		s.fc.emit("fldz")
	case f == 1:
		s.fc.emit("fld1")
	default:
		size := c.Size
		if size != 4 {
			size = 8
		}
		s.fc.emit("fld %s", mem(size, "["+s.fc.b.floatLabel(f, size)+"]"))
	}
	return s.push(v)
}

// loadMem pushes size bytes at addr as v.
func (s *x87Stack) loadMem(size int, addr string, v ir.Var) error {
	if err := s.checkRoom(v); err != nil {
		return err
	}
	s.fc.emit("fld %s", mem(size, addr))
	return s.push(v)
}

// PushIRArgOnStack makes op available on the stack and returns its index.
// With onTop the value ends up in st0 and st0 may be overwritten by the
// caller: a resident value still needed later is copied, one that dies here
// is exchanged to the top. Without onTop a resident value stays in place.
func (s *x87Stack) PushIRArgOnStack(op ir.Operand, onTop bool) (int, error) {
	switch op.Kind {
	case ir.OperandConst:
		return 0, s.loadConst(op.Const, scratchVar(op.Const.Size))
	case ir.OperandVar:
	default:
		return 0, &Error{Code: diag.BackBadOperand, Msg: "missing float operand"}
	}
	v := op.Var
	if i, ok := s.find(v); ok {
		if !onTop {
			return i, nil
		}
		if s.fc.liveAfter(v) {
			if err := s.checkRoom(v); err != nil {
				return 0, err
			}
			s.fc.emit("fld st%d", i)
			return 0, s.push(scratchVar(v.Size))
		}
		s.fxch(i)
		return 0, nil
	}
	if !s.fc.regs.spilled[v.Key()] {
		return 0, &Error{Code: diag.BackUnboundVariable, Name: v.String(), Msg: "float value used before it is defined"}
	}
	off, err := s.fc.frame.home(v)
	if err != nil {
		return 0, err
	}
	if err := s.loadMem(v.Size, bpAddr(off), v); err != nil {
		return 0, err
	}
	if onTop && s.fc.liveAfter(v) {
		// the home slot keeps the value; st0 may be consumed
		s.slots[0] = x87Entry{v: scratchVar(v.Size)}
	}
	return 0, nil
}

// memOrStack renders op as the source of a two-operand x87 instruction:
// "st0, stN" for resident values, a sized memory operand otherwise.
func (s *x87Stack) memOrStack(op ir.Operand) (string, error) {
	switch op.Kind {
	case ir.OperandConst:
		f := op.Const.Float
		if !op.Const.IsFloat {
			f = float64(op.Const.Int)
		}
		size := op.Const.Size
		if size != 4 {
			size = 8
		}
		return mem(size, "["+s.fc.b.floatLabel(f, size)+"]"), nil
	case ir.OperandVar:
		if i, ok := s.find(op.Var); ok {
			return fmt.Sprintf("st0, st%d", i), nil
		}
		if !s.fc.regs.spilled[op.Var.Key()] {
			return "", &Error{Code: diag.BackUnboundVariable, Name: op.Var.String(), Msg: "float value used before it is defined"}
		}
		off, err := s.fc.frame.home(op.Var)
		if err != nil {
			return "", err
		}
		return mem(op.Var.Size, bpAddr(off)), nil
	}
	return "", &Error{Code: diag.BackBadOperand, Msg: "missing float operand"}
}

// storeTop writes st0 to memory, popping it when pop is set.
func (s *x87Stack) storeTop(size int, addr string, pop bool) {
	if pop {
		s.fc.emit("fstp %s", mem(size, addr))
		s.pop()
		return
	}
	s.fc.emit("fst %s", mem(size, addr))
}

// popTop discards st0.
func (s *x87Stack) popTop() {
	s.fc.emit("fstp st0")
	s.pop()
}

// release pops values that are no longer needed. A dead value below the
// top is exchanged into st0 first, so freed registers never stay buried
// under live ones.
func (s *x87Stack) release() {
	for i := s.firstDead(); i >= 0; i = s.firstDead() {
		s.fxch(i)
		s.popTop()
	}
}

func (s *x87Stack) firstDead() int {
	for i, e := range s.slots {
		if !s.fc.liveAfter(e.v) {
			return i
		}
	}
	return -1
}

// popDead applies a popping arithmetic form mn to st0 and st(i) when st(i)
// dies with this instruction. The result replaces st(i), which becomes the
// new st(i-1).
func (s *x87Stack) popDead(mn string, op ir.Operand) (int, bool) {
	if !op.IsVar() {
		return 0, false
	}
	i, ok := s.find(op.Var)
	if !ok || i == 0 || s.fc.liveAfter(op.Var) {
		return 0, false
	}
	s.fc.emit("%s st%d, st0", mn, i)
	s.pop()
	return i - 1, true
}

// flush empties the stack, writing values still needed to their homes.
func (s *x87Stack) flush() error {
	for len(s.slots) > 0 {
		top := s.slots[0]
		switch {
		case s.fc.liveAfter(top.v) && !s.fc.regs.spilled[top.v.Key()]:
			off, err := s.fc.frame.home(top.v)
			if err != nil {
				return err
			}
			s.storeTop(top.v.Size, bpAddr(off), true)
			s.fc.regs.spilled[top.v.Key()] = true
		default:
			s.popTop()
		}
	}
	return nil
}

// keepOnly leaves v alone in st0 for a return; everything below is freed.
func (s *x87Stack) keepOnly(v ir.Var) {
	for i := 1; i < len(s.slots); i++ {
		s.fc.emit("ffree st%d", i)
	}
	s.slots = []x87Entry{{v: v}}
}

// scratchVar names an intermediate value that never outlives the current
// instruction.
func scratchVar(size int) ir.Var {
	return ir.Var{Name: "st", Index: -1, Temp: true, Size: size}
}
