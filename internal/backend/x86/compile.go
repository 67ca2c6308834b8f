// Package x86 lowers optimized IR to NASM assembly for the 16-bit 8086
// (with 80186 immediate forms) and an 8087 co-processor.
package x86

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"cc16/internal/diag"
	"cc16/internal/ir"
	"cc16/internal/layout"
	"cc16/internal/trace"
	"cc16/internal/types"
)

// backend holds state shared by all functions of a unit: the float constant
// pool is append-only.
type backend struct {
	types  *types.Interner
	layout *layout.Engine
	opts   Options
	floats map[floatKey]string
	pool   []floatDef
}

type floatKey struct {
	bits uint64
	size int
}

type floatDef struct {
	label string
	value float64
	size  int
}

func (b *backend) floatLabel(v float64, size int) string {
	k := floatKey{bits: math.Float64bits(v), size: size}
	if l, ok := b.floats[k]; ok {
		return l
	}
	l := fmt.Sprintf("__flt%d", len(b.pool))
	b.floats[k] = l
	b.pool = append(b.pool, floatDef{label: l, value: v, size: size})
	return l
}

// CompileBackend turns every function and the data segment into assembly
// text. A function that fails to lower is left out; its error is joined
// into the returned error while the other functions are still emitted.
func CompileBackend(segs *ir.Segments, opts Options) (string, error) {
	if segs == nil {
		return "", nil
	}
	in := segs.Types
	if in == nil {
		in = types.NewInterner()
	}
	b := &backend{
		types:  in,
		layout: layout.New(layout.I8086(), in),
		opts:   opts,
		floats: make(map[floatKey]string),
	}

	var out strings.Builder
	if opts.BitsDirective {
		out.WriteString("[bits 16]\n")
	}
	if opts.Org != 0 {
		fmt.Fprintf(&out, "[org 0x%x]\n", opts.Org)
	}

	var errs []error
	for _, f := range segs.Code.Funcs() {
		span := trace.Begin(opts.Tracer, trace.ScopeFunc, "codegen "+f.Name, opts.Parent)
		text, peak, err := b.compileFunc(f)
		if err != nil {
			span.End("failed")
			errs = append(errs, err)
			continue
		}
		span.WithExtra("x87_peak", strconv.Itoa(peak)).End(strconv.Itoa(strings.Count(text, "\n")) + " lines")
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(text)
	}
	if err := b.emitData(&out, segs.Data); err != nil {
		errs = append(errs, err)
	}
	return out.String(), errors.Join(errs...)
}

// funcCompiler is the per-function state: allocator, x87 model and the
// buffered body. Nothing here survives into the next function.
type funcCompiler struct {
	b     *backend
	fn    *ir.Func
	frame *frame
	regs  *regAllocator
	fpu   *x87Stack
	body  []string

	idx     int
	lastUse map[ir.VarKey]int
	uses    map[ir.VarKey]int
	// fused is set when a compare left its result in the flags for the
	// branch that follows it.
	fused   bool
	fusedCC string
	nextAux int
	scratch int
	hasScr  bool
}

type lowerFunc func(*funcCompiler, *ir.Instr) error

var lowerers map[ir.InstrKind]lowerFunc

func init() {
	lowerers = map[ir.InstrKind]lowerFunc{
		ir.InstrAlloc:       lowerAlloc,
		ir.InstrLoad:        lowerLoad,
		ir.InstrStore:       lowerStore,
		ir.InstrLea:         lowerLea,
		ir.InstrMath:        lowerMath,
		ir.InstrCmp:         lowerCmp,
		ir.InstrBr:          lowerBr,
		ir.InstrJmp:         lowerJmp,
		ir.InstrLabel:       lowerLabel,
		ir.InstrPhi:         lowerPhi,
		ir.InstrCall:        lowerCall,
		ir.InstrLabelOffset: lowerLabelOffset,
		ir.InstrAsm:         lowerAsm,
		ir.InstrAssign:      lowerAssign,
		ir.InstrCast:        lowerCast,
		ir.InstrRet:         lowerRet,
	}
}

// compileFunc returns the function text and the deepest x87 stack it used.
func (b *backend) compileFunc(f *ir.Func) (string, int, error) {
	fc := &funcCompiler{
		b:       b,
		fn:      f,
		frame:   newFrame(b.layout.Target),
		lastUse: make(map[ir.VarKey]int),
	}
	fc.regs = newRegAllocator(fc)
	fc.fpu = newX87Stack(fc)
	fc.prepare()

	for i := range f.Instrs {
		fc.idx = i
		in := &f.Instrs[i]
		lower, ok := lowerers[in.Kind]
		if !ok {
			return "", 0, fc.wrap(&Error{Code: diag.BackUnknownOpcode, Msg: "no lowering for this opcode"}, in)
		}
		if err := lower(fc, in); err != nil {
			return "", 0, fc.wrap(err, in)
		}
		fc.endInstr()
	}
	text, err := fc.assemble()
	return text, fc.fpu.peak, err
}

// prepare binds parameters, records the last reader of every variable and
// joins phi inputs with their output.
func (fc *funcCompiler) prepare() {
	sizes := make([]int, len(fc.fn.Params))
	for i, p := range fc.fn.Params {
		sizes[i] = fc.b.layout.StackSize(fc.b.types.Elem(p.Type))
	}
	fc.frame.bindParams(fc.fn.Params, sizes)
	fc.uses = ir.UseCounts(fc.fn.Instrs)
	for i := range fc.fn.Instrs {
		in := &fc.fn.Instrs[i]
		for _, op := range in.Inputs() {
			if op.IsVar() {
				fc.lastUse[op.Var.Key()] = i
			}
		}
		if in.Kind == ir.InstrPhi {
			fc.frame.joinPhi(&in.Phi)
		}
	}
}

func (fc *funcCompiler) wrap(err error, in *ir.Instr) error {
	var e *Error
	if errors.As(err, &e) {
		if e.Func == "" {
			e.Func = fc.fn.Name
		}
		if e.Op == "" && in != nil {
			e.Op = in.Kind.String()
		}
		return e
	}
	return &Error{Code: diag.BackInfo, Func: fc.fn.Name, Msg: err.Error()}
}

// liveAfter reports whether v is read after the current instruction.
func (fc *funcCompiler) liveAfter(v ir.Var) bool {
	last, ok := fc.lastUse[v.Key()]
	return ok && last > fc.idx
}

func (fc *funcCompiler) emit(format string, args ...any) {
	fc.body = append(fc.body, "    "+fmt.Sprintf(format, args...))
}

func (fc *funcCompiler) emitLabel(name string) {
	fc.body = append(fc.body, name+":")
}

// auxLabel returns a fresh label for branches inside one instruction.
func (fc *funcCompiler) auxLabel() string {
	fc.nextAux++
	return fmt.Sprintf(".Lx%d", fc.nextAux)
}

// scratchSlot returns 8 bytes of frame for conversions through memory.
func (fc *funcCompiler) scratchSlot() (int, error) {
	if fc.hasScr {
		return fc.scratch, nil
	}
	off, err := fc.frame.reserve(8)
	if err != nil {
		return 0, err
	}
	fc.scratch, fc.hasScr = off, true
	return off, nil
}

func (fc *funcCompiler) endInstr() {
	fc.regs.release()
	fc.fpu.release()
}

// flush spills everything still needed before control leaves straight-line
// code.
func (fc *funcCompiler) flush() error {
	if err := fc.fpu.flush(); err != nil {
		return err
	}
	return fc.regs.flush()
}

func (fc *funcCompiler) isFloat(v ir.Operand) bool {
	if v.Kind == ir.OperandConst {
		return v.Const.IsFloat
	}
	return isFloatType(fc.b.types, v.Type())
}

func isFloatType(in *types.Interner, t types.TypeID) bool {
	return in.Kind(t) == types.KindFloat
}

func isUnsignedType(in *types.Interner, t types.TypeID) bool {
	switch in.Kind(t) {
	case types.KindUint, types.KindBool, types.KindPointer:
		return true
	}
	return false
}

const exitLabel = ".Lret"

// assemble wraps the body in the prologue and the epilogue. Callee-saved
// registers get frame slots after the body so they never overlap locals.
func (fc *funcCompiler) assemble() (string, error) {
	type saved struct {
		reg Reg
		off int
	}
	var saves []saved
	for _, r := range []Reg{SI, DI} {
		if fc.regs.touched.Has(r) {
			off, err := fc.frame.reserve(2)
			if err != nil {
				return "", fc.wrap(err, nil)
			}
			saves = append(saves, saved{reg: r, off: off})
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:\n", ir.Symbol(fc.fn.Name))
	sb.WriteString("    push bp\n    mov bp, sp\n")
	if fc.frame.size > 0 {
		fmt.Fprintf(&sb, "    sub sp, %d\n", fc.frame.size)
	}
	for _, s := range saves {
		fmt.Fprintf(&sb, "    mov %s, %s\n", mem(2, bpAddr(s.off)), s.reg)
	}
	for _, line := range fc.body {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	sb.WriteString(exitLabel + ":\n")
	for _, s := range saves {
		fmt.Fprintf(&sb, "    mov %s, %s\n", s.reg, mem(2, bpAddr(s.off)))
	}
	sb.WriteString("    mov sp, bp\n    pop bp\n")
	if fc.fn.Conv == ir.ConvStdcall && fc.frame.paramBytes > 0 {
		fmt.Fprintf(&sb, "    ret %d\n", fc.frame.paramBytes)
	} else {
		sb.WriteString("    ret\n")
	}
	return sb.String(), nil
}
