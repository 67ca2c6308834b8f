package x86

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/irgen"
	"cc16/internal/iropt"
	"cc16/internal/types"
)

type fixture struct {
	in   *types.Interner
	bt   types.Builtins
	temp int
}

func newFixture() *fixture {
	in := types.NewInterner()
	return &fixture{in: in, bt: in.Builtins()}
}

func (fx *fixture) slot(name string, elem types.TypeID) ir.Var {
	return ir.Var{Name: name, Type: fx.in.PointerTo(elem), Size: 2}
}

func (fx *fixture) tmp(t types.TypeID, size int) ir.Var {
	v := ir.Var{Temp: true, Index: fx.temp, Type: t, Size: size}
	fx.temp++
	return v
}

func (fx *fixture) k(v int64) ir.Operand {
	return ir.ConstOp(ir.IntConst(fx.bt.Int, 2, v))
}

func alloc(v ir.Var, elem types.TypeID, size int) ir.Instr {
	return ir.Instr{Kind: ir.InstrAlloc, Alloc: ir.AllocInstr{Out: v, Elem: elem, Size: size}}
}

func load(out ir.Var, p ir.Var) ir.Instr {
	return ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Out: out, Ptr: ir.VarOp(p)}}
}

func store(p ir.Var, v ir.Operand) ir.Instr {
	return ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Ptr: ir.VarOp(p), Value: v}}
}

func arith(out ir.Var, op ir.MathOp, l, r ir.Operand) ir.Instr {
	return ir.Instr{Kind: ir.InstrMath, Math: ir.MathInstr{Out: out, Op: op, Left: l, Right: r}}
}

func lea(out, src ir.Var) ir.Instr {
	return ir.Instr{Kind: ir.InstrLea, Lea: ir.LeaInstr{Out: out, Src: src}}
}

func call(name string, out *ir.Var, args ...ir.Operand) ir.Instr {
	c := ir.CallInstr{Callee: name, Args: args}
	if out != nil {
		c.HasOut, c.Out = true, *out
	}
	return ir.Instr{Kind: ir.InstrCall, Call: c}
}

func ret(v ir.Operand) ir.Instr {
	return ir.Instr{Kind: ir.InstrRet, Ret: ir.RetInstr{HasValue: true, Value: v}}
}

func (fx *fixture) compile(t *testing.T, funcs ...*ir.Func) (string, error) {
	t.Helper()
	segs := ir.NewSegments(fx.in)
	for _, f := range funcs {
		segs.Code.Add(f)
	}
	return CompileBackend(segs, DefaultOptions())
}

func codeOf(t *testing.T, err error) diag.Code {
	t.Helper()
	var e *Error
	require.True(t, errors.As(err, &e), "not a backend error: %v", err)
	return e.Code
}

func TestPrologueAndEpilogue(t *testing.T) {
	fx := newFixture()
	out, err := fx.compile(t, &ir.Func{Name: "seven", Result: fx.bt.Int, ResultSize: 2,
		Instrs: []ir.Instr{ret(fx.k(7))}})
	require.NoError(t, err)
	assert.Equal(t, "[bits 16]\n\n_seven:\n"+
		"    push bp\n    mov bp, sp\n"+
		"    mov ax, 7\n"+
		".Lret:\n    mov sp, bp\n    pop bp\n    ret\n", out)
}

func TestStdcallReturnPopsArguments(t *testing.T) {
	fx := newFixture()
	x := fx.slot("x", fx.bt.Int)
	v := fx.tmp(fx.bt.Int, 2)
	out, err := fx.compile(t, &ir.Func{Name: "id", Params: []ir.Var{x}, Conv: ir.ConvStdcall,
		Result: fx.bt.Int, ResultSize: 2,
		Instrs: []ir.Instr{load(v, x), ret(ir.VarOp(v))}})
	require.NoError(t, err)
	assert.Contains(t, out, "    mov ax, word [bp+4]\n")
	assert.True(t, strings.HasSuffix(out, "    ret 2\n"), out)
	assert.NotContains(t, out, "sub sp")
}

func reuseFunc(fx *fixture, withCall bool) *ir.Func {
	a := fx.slot("a", fx.bt.Int)
	t0, t1 := fx.tmp(fx.bt.Int, 2), fx.tmp(fx.bt.Int, 2)
	t2, t3 := fx.tmp(fx.bt.Int, 2), fx.tmp(fx.bt.Int, 2)
	instrs := []ir.Instr{
		alloc(a, fx.bt.Int, 2),
		store(a, fx.k(2)),
		load(t0, a),
		arith(t1, ir.MathAdd, ir.VarOp(t0), fx.k(6)),
		store(a, ir.VarOp(t1)),
	}
	if withCall {
		instrs = append(instrs, call("g", nil))
	}
	instrs = append(instrs,
		load(t2, a),
		arith(t3, ir.MathAdd, ir.VarOp(t2), fx.k(5)),
		ret(ir.VarOp(t3)),
	)
	return &ir.Func{Name: "f", Result: fx.bt.Int, ResultSize: 2, Instrs: instrs}
}

func TestStoreThenLoadReusesRegister(t *testing.T) {
	fx := newFixture()
	out, err := fx.compile(t, reuseFunc(fx, false))
	require.NoError(t, err)
	assert.Equal(t, "[bits 16]\n\n_f:\n"+
		"    push bp\n    mov bp, sp\n    sub sp, 2\n"+
		"    mov word [bp-2], 2\n"+
		"    mov ax, word [bp-2]\n"+
		"    add ax, 6\n"+
		"    mov word [bp-2], ax\n"+
		"    add ax, 5\n"+
		".Lret:\n    mov sp, bp\n    pop bp\n    ret\n", out)
}

func TestCallForcesReload(t *testing.T) {
	fx := newFixture()
	out, err := fx.compile(t, reuseFunc(fx, true))
	require.NoError(t, err)
	assert.Contains(t, out, "    call _g\n")
	assert.Equal(t, 2, strings.Count(out, "mov ax, word [bp-2]"), out)
}

func TestFloatConstantsGoToThePool(t *testing.T) {
	fx := newFixture()
	d := fx.slot("d", fx.bt.Double)
	t0, t1 := fx.tmp(fx.bt.Double, 8), fx.tmp(fx.bt.Double, 8)
	out, err := fx.compile(t, &ir.Func{Name: "f", Result: fx.bt.Double, ResultSize: 8, Instrs: []ir.Instr{
		alloc(d, fx.bt.Double, 8),
		load(t0, d),
		arith(t1, ir.MathAdd, ir.VarOp(t0), ir.ConstOp(ir.FloatConst(fx.bt.Double, 8, 1.5))),
		ret(ir.VarOp(t1)),
	}})
	require.NoError(t, err)
	assert.Contains(t, out, "    fld qword [bp-8]\n    fadd qword [__flt0]\n")
	assert.Contains(t, out, "__flt0: dq 1.5\n")
	assert.NotContains(t, out, "fstp", "the result leaves in st0")
}

func TestX87Overflow(t *testing.T) {
	fx := newFixture()
	d := fx.slot("d", fx.bt.Double)
	instrs := []ir.Instr{alloc(d, fx.bt.Double, 8)}
	var vals []ir.Var
	for range 9 {
		v := fx.tmp(fx.bt.Double, 8)
		vals = append(vals, v)
		instrs = append(instrs, load(v, d))
	}
	sum := vals[0]
	for _, v := range vals[1:] {
		next := fx.tmp(fx.bt.Double, 8)
		instrs = append(instrs, arith(next, ir.MathAdd, ir.VarOp(sum), ir.VarOp(v)))
		sum = next
	}
	instrs = append(instrs, ret(ir.VarOp(sum)))
	out, err := fx.compile(t, &ir.Func{Name: "deep", Result: fx.bt.Double, ResultSize: 8, Instrs: instrs})
	require.Error(t, err)
	assert.Equal(t, diag.BackX87Overflow, codeOf(t, err))
	assert.NotContains(t, out, "_deep:")
}

func TestAlloca(t *testing.T) {
	fx := newFixture()
	p := fx.tmp(fx.in.PointerTo(fx.bt.Char), 2)
	out, err := fx.compile(t, &ir.Func{Name: "f", Result: p.Type, ResultSize: 2, Instrs: []ir.Instr{
		call(ir.BuiltinAlloca, &p, fx.k(5)),
		ret(ir.VarOp(p)),
	}})
	require.NoError(t, err)
	assert.Contains(t, out, "    sub sp, 6\n    mov ax, sp\n.Lret:\n")
}

func TestMemcpySavesIndexRegisters(t *testing.T) {
	fx := newFixture()
	arr := fx.in.ArrayOf(fx.bt.Char, 4)
	a, b := fx.slot("a", arr), fx.slot("b", arr)
	pa, pb := fx.tmp(a.Type, 2), fx.tmp(b.Type, 2)
	out, err := fx.compile(t, &ir.Func{Name: "f", Instrs: []ir.Instr{
		alloc(a, arr, 4),
		alloc(b, arr, 4),
		lea(pa, a),
		lea(pb, b),
		call(ir.BuiltinMemcpy, nil, ir.VarOp(pa), ir.VarOp(pb), fx.k(4)),
		{Kind: ir.InstrRet},
	}})
	require.NoError(t, err)
	assert.Contains(t, out, "    mov cx, 4\n    push ds\n    pop es\n    cld\n    rep movsb\n")
	assert.Contains(t, out, "mov si, word [bp-")
	assert.Contains(t, out, "mov di, word [bp-")
}

func TestVariadicCursor(t *testing.T) {
	fx := newFixture()
	n := fx.slot("n", fx.bt.Int)
	ap := fx.slot("ap", fx.in.PointerTo(fx.bt.Char))
	p0, p1, p2 := fx.tmp(fx.in.PointerTo(ap.Type), 2), fx.tmp(fx.in.PointerTo(ap.Type), 2), fx.tmp(fx.in.PointerTo(ap.Type), 2)
	v := fx.tmp(fx.bt.Int, 2)
	out, err := fx.compile(t, &ir.Func{Name: "sum", Params: []ir.Var{n}, Variadic: true,
		Result: fx.bt.Int, ResultSize: 2, Instrs: []ir.Instr{
			alloc(ap, fx.in.PointerTo(fx.bt.Char), 2),
			lea(p0, ap),
			call(ir.BuiltinVaStart, nil, ir.VarOp(p0)),
			lea(p1, ap),
			call(ir.BuiltinVaArg, &v, ir.VarOp(p1)),
			lea(p2, ap),
			call(ir.BuiltinVaEnd, nil, ir.VarOp(p2)),
			ret(ir.VarOp(v)),
		}})
	require.NoError(t, err)
	assert.Contains(t, out, "[bp+6]", "cursor starts after the fixed parameter")
	assert.Contains(t, out, ", 2\n")
	assert.Contains(t, out, "add word [")
}

func TestUnknownBuiltin(t *testing.T) {
	fx := newFixture()
	_, err := fx.compile(t, &ir.Func{Name: "f", Instrs: []ir.Instr{
		call("__builtin_frob", nil),
		{Kind: ir.InstrRet},
	}})
	require.Error(t, err)
	var e *Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, diag.BackUnknownBuiltin, e.Code)
	assert.Equal(t, "__builtin_frob", e.Name)
	assert.Equal(t, "f", e.Func)
}

func TestUnknownOpcode(t *testing.T) {
	fx := newFixture()
	_, err := fx.compile(t, &ir.Func{Name: "f", Instrs: []ir.Instr{
		{Kind: ir.InstrDefData, DefData: ir.DefDataInstr{Label: "_x", Size: 2}},
		{Kind: ir.InstrRet},
	}})
	require.Error(t, err)
	assert.Equal(t, diag.BackUnknownOpcode, codeOf(t, err))
}

func TestFrameExhausted(t *testing.T) {
	fx := newFixture()
	big := fx.in.ArrayOf(fx.bt.Char, 0x8000)
	a := fx.slot("a", big)
	_, err := fx.compile(t, &ir.Func{Name: "f", Instrs: []ir.Instr{
		alloc(a, big, 0x8000),
		{Kind: ir.InstrRet},
	}})
	require.Error(t, err)
	assert.Equal(t, diag.BackFrameExhausted, codeOf(t, err))
}

func TestFailingFunctionIsSkipped(t *testing.T) {
	fx := newFixture()
	bad := &ir.Func{Name: "bad", Instrs: []ir.Instr{call("__builtin_frob", nil), {Kind: ir.InstrRet}}}
	good := &ir.Func{Name: "good", Result: fx.bt.Int, ResultSize: 2, Instrs: []ir.Instr{ret(fx.k(0))}}
	out, err := fx.compile(t, bad, good)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "in bad")
	assert.Contains(t, out, "_good:\n")
	assert.NotContains(t, out, "_bad:")
}

func TestDataSegment(t *testing.T) {
	fx := newFixture()
	segs := ir.NewSegments(fx.in)
	segs.Data.Add(ir.DefDataInstr{Label: "_msg", Size: 4, ReadOnly: true, Items: []ir.DataItem{
		{Kind: ir.DataBytes, Offset: 0, Size: 3, Bytes: []byte("hi\x00")},
	}})
	segs.Data.Add(ir.DefDataInstr{Label: "_tab", Size: 8, Items: []ir.DataItem{
		{Kind: ir.DataLabel, Offset: 6, Size: 2, Label: "_msg", Addend: 1},
		{Kind: ir.DataConst, Offset: 0, Size: 2, Const: ir.IntConst(fx.bt.Int, 2, -1)},
	}})
	out, err := CompileBackend(segs, Options{})
	require.NoError(t, err)
	assert.Equal(t, "_msg:\n"+
		"    db 104, 105, 0\n"+
		"    times 1 db 0\n"+
		"\n_tab:\n"+
		"    dw 65535\n"+
		"    times 4 db 0\n"+
		"    dw _msg+1\n", out)
}

func TestOverlappingDataItems(t *testing.T) {
	fx := newFixture()
	segs := ir.NewSegments(fx.in)
	segs.Data.Add(ir.DefDataInstr{Label: "_x", Size: 2, Items: []ir.DataItem{
		{Kind: ir.DataConst, Offset: 0, Size: 2, Const: ir.IntConst(fx.bt.Int, 2, 1)},
		{Kind: ir.DataConst, Offset: 1, Size: 1, Const: ir.IntConst(fx.bt.Char, 1, 1)},
	}})
	_, err := CompileBackend(segs, Options{})
	require.Error(t, err)
	assert.Equal(t, diag.BackBadOperand, codeOf(t, err))
}

func TestFloatLiteral(t *testing.T) {
	for _, tc := range []struct {
		in   float64
		want string
	}{
		{1.5, "1.5"},
		{2, "2.0"},
		{-3, "-3.0"},
		{1e300, "1.0e+300"},
	} {
		assert.Equal(t, tc.want, floatLiteral(tc.in))
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	b := hir.NewBuilder(nil)
	bt := b.Types.Builtins()
	i := b.Ref("i", bt.Int)
	s := b.Ref("s", bt.Int)
	f := b.Func("loops", bt.Int, nil,
		b.Decl(b.Var("i", bt.Int, b.Int(0))),
		b.Decl(b.Var("s", bt.Int, b.Int(0))),
		b.While(b.Binary(hir.BinLt, i, b.Int(10), bt.Int), b.Block(
			b.ExprS(b.CompoundAssign(hir.BinAdd, s, i)),
			b.ExprS(b.Unary(hir.UnPreInc, i, bt.Int)),
		)),
		b.Return(s),
	)
	segs, err := irgen.Generate(b.Unit("loops.c", nil, f), irgen.DefaultConfig())
	require.NoError(t, err)
	segs = iropt.OptimizeSegments(segs, iropt.DefaultOptions())

	first, err1 := CompileBackend(segs, DefaultOptions())
	second, err2 := CompileBackend(segs, DefaultOptions())
	assert.Equal(t, first, second)
	assert.Equal(t, err1, err2)
	assert.Contains(t, first, "_loops:\n")
}
