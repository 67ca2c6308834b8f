package iropt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/irgen"
	"cc16/internal/types"
)

type fixture struct {
	in   *types.Interner
	bt   types.Builtins
	ptr  types.TypeID
	temp int
}

func newFixture() *fixture {
	in := types.NewInterner()
	bt := in.Builtins()
	return &fixture{in: in, bt: bt, ptr: in.PointerTo(bt.Int)}
}

func (fx *fixture) slot(name string) ir.Var {
	return ir.Var{Name: name, Type: fx.ptr, Size: 2}
}

func (fx *fixture) tmp(t types.TypeID) ir.Var {
	v := ir.Var{Temp: true, Index: fx.temp, Type: t, Size: 2}
	fx.temp++
	return v
}

func (fx *fixture) k(v int64) ir.Operand {
	return ir.ConstOp(ir.IntConst(fx.bt.Int, 2, v))
}

func (fx *fixture) byteK(v int64) ir.Operand {
	return ir.ConstOp(ir.IntConst(fx.bt.Char, 1, v))
}

func alloc(v ir.Var, elem types.TypeID, size int) ir.Instr {
	return ir.Instr{Kind: ir.InstrAlloc, Alloc: ir.AllocInstr{Out: v, Elem: elem, Size: size}}
}

func load(out ir.Var, p ir.Var, off int) ir.Instr {
	return ir.Instr{Kind: ir.InstrLoad, Load: ir.LoadInstr{Out: out, Ptr: ir.VarOp(p), Offset: off}}
}

func store(p ir.Var, off int, v ir.Operand) ir.Instr {
	return ir.Instr{Kind: ir.InstrStore, Store: ir.StoreInstr{Ptr: ir.VarOp(p), Offset: off, Value: v}}
}

func math(out ir.Var, op ir.MathOp, l, r ir.Operand) ir.Instr {
	return ir.Instr{Kind: ir.InstrMath, Math: ir.MathInstr{Out: out, Op: op, Left: l, Right: r}}
}

func label(name string) ir.Instr {
	return ir.Instr{Kind: ir.InstrLabel, Label: ir.LabelInstr{Name: name}}
}

func jmp(target string) ir.Instr {
	return ir.Instr{Kind: ir.InstrJmp, Jmp: ir.JmpInstr{Target: target}}
}

func ret(v ir.Operand) ir.Instr {
	return ir.Instr{Kind: ir.InstrRet, Ret: ir.RetInstr{HasValue: true, Value: v}}
}

func (fx *fixture) fn(instrs ...ir.Instr) *ir.Func {
	return &ir.Func{Name: "f", Result: fx.bt.Int, ResultSize: 2, Instrs: instrs}
}

func (fx *fixture) optimize(t *testing.T, f *ir.Func) string {
	t.Helper()
	opts := DefaultOptions()
	opts.Types = fx.in
	out := Optimize(f, opts)
	require.NoError(t, ir.Validate(out))
	return ir.FormatFunc(fx.in, out)
}

func TestFoldAddressOffsets(t *testing.T) {
	fx := newFixture()
	a := fx.slot("a")
	p := fx.tmp(fx.ptr)
	q := fx.tmp(fx.ptr)
	v := fx.tmp(fx.bt.Int)
	f := fx.fn(
		alloc(a, fx.in.ArrayOf(fx.bt.Int, 4), 8),
		ir.Instr{Kind: ir.InstrLea, Lea: ir.LeaInstr{Out: p, Src: a}},
		math(q, ir.MathAdd, ir.VarOp(p), fx.k(4)),
		load(v, q, 0),
		ret(ir.VarOp(v)),
	)
	out := fx.optimize(t, f)
	assert.Contains(t, out, "%t{2}: int2B = load a{0}: int*2B + 4")
	assert.NotContains(t, out, "lea")
	assert.NotContains(t, out, "add")
}

func TestDropRedundantLabels(t *testing.T) {
	fx := newFixture()
	f := fx.fn(
		jmp("L2"),
		label("L1"),
		label("L2"),
		ret(fx.k(0)),
	)
	out := fx.optimize(t, f)
	assert.Equal(t, "def f(): [ret: int2B]\n  ret %0: int2B\nend-def\n", out)
}

func TestDropRedundantLabelsKeepsTargets(t *testing.T) {
	fx := newFixture()
	a := fx.slot("a")
	v := fx.tmp(fx.bt.Int)
	f := fx.fn(
		alloc(a, fx.bt.Int, 2),
		label("L1"),
		label("L2"),
		load(v, a, 0),
		ir.Instr{Kind: ir.InstrBr, Br: ir.BrInstr{Cond: ir.VarOp(v), True: "L2"}},
		ret(fx.k(0)),
	)
	out := fx.optimize(t, f)
	assert.Contains(t, out, "br %t{0}: int2B, true: L1")
	assert.Equal(t, 1, strings.Count(out, "L1:"))
	assert.NotContains(t, out, "L2")
}

func TestDropDeadStores(t *testing.T) {
	fx := newFixture()
	a := fx.slot("a")
	v := fx.tmp(fx.bt.Int)
	f := fx.fn(
		alloc(a, fx.bt.Int, 2),
		store(a, 0, fx.k(1)),
		store(a, 0, fx.k(2)),
		load(v, a, 0),
		store(a, 0, fx.k(3)),
		ret(ir.VarOp(v)),
	)
	out := fx.optimize(t, f)
	assert.NotContains(t, out, "%1: int2B")
	assert.Contains(t, out, "store a{0}: int*2B, %2: int2B")
	assert.Contains(t, out, "store a{0}: int*2B, %3: int2B")
}

func TestDeadStoreSurvivesBranch(t *testing.T) {
	fx := newFixture()
	a := fx.slot("a")
	f := fx.fn(
		alloc(a, fx.bt.Int, 2),
		store(a, 0, fx.k(1)),
		label("L1"),
		store(a, 0, fx.k(2)),
		jmp("L1"),
	)
	out := fx.optimize(t, f)
	assert.Contains(t, out, "%1: int2B")
	assert.Contains(t, out, "%2: int2B")
}

func TestConcatConstants(t *testing.T) {
	fx := newFixture()
	a := fx.slot("a")
	x := fx.tmp(fx.bt.Int)
	t1 := fx.tmp(fx.bt.Int)
	t2 := fx.tmp(fx.bt.Int)
	f := fx.fn(
		alloc(a, fx.bt.Int, 2),
		load(x, a, 0),
		math(t1, ir.MathSub, ir.VarOp(x), fx.k(3)),
		math(t2, ir.MathSub, ir.VarOp(t1), fx.k(4)),
		ret(ir.VarOp(t2)),
	)
	out := fx.optimize(t, f)
	assert.Contains(t, out, "%t{2}: int2B = sub %t{0}: int2B, %7: int2B")
	assert.NotContains(t, out, "%t{1}")
}

func TestConcatConstantsKeepsSharedIntermediate(t *testing.T) {
	fx := newFixture()
	a := fx.slot("a")
	x := fx.tmp(fx.bt.Int)
	t1 := fx.tmp(fx.bt.Int)
	t2 := fx.tmp(fx.bt.Int)
	t3 := fx.tmp(fx.bt.Int)
	f := fx.fn(
		alloc(a, fx.bt.Int, 2),
		load(x, a, 0),
		math(t1, ir.MathAdd, ir.VarOp(x), fx.k(1)),
		math(t2, ir.MathAdd, ir.VarOp(t1), fx.k(2)),
		math(t3, ir.MathMul, ir.VarOp(t1), ir.VarOp(t2)),
		ret(ir.VarOp(t3)),
	)
	out := fx.optimize(t, f)
	assert.Contains(t, out, "add %t{1}: int2B, %2: int2B")
}

func TestMergeByteStores(t *testing.T) {
	fx := newFixture()
	s := ir.Var{Name: "s", Type: fx.in.PointerTo(fx.in.ArrayOf(fx.bt.Char, 2)), Size: 2}
	f := fx.fn(
		alloc(s, fx.in.ArrayOf(fx.bt.Char, 2), 2),
		store(s, 1, fx.byteK('b')),
		store(s, 0, fx.byteK('a')),
		ret(fx.k(0)),
	)
	out := fx.optimize(t, f)
	assert.Contains(t, out, "store s{0}: char[2]*2B, %25185: int2B")
	assert.Equal(t, 1, strings.Count(out, "store"))

	opts := DefaultOptions()
	opts.MergeByteStores = false
	kept := Optimize(f, opts)
	n := 0
	for _, in := range kept.Instrs {
		if in.Kind == ir.InstrStore {
			n++
		}
	}
	assert.Equal(t, 2, n)
}

func TestConstantOperandsWarnOnce(t *testing.T) {
	fx := newFixture()
	v := fx.tmp(fx.bt.Int)
	f := fx.fn(
		math(v, ir.MathAdd, fx.k(1), fx.k(2)),
		ret(ir.VarOp(v)),
	)
	bag := diag.NewBag(16)
	opts := DefaultOptions()
	opts.Reporter = diag.NewDedupReporter(diag.BagReporter{Bag: bag})
	out := Optimize(f, opts)

	require.Equal(t, 1, bag.Len())
	d := bag.Items()[0]
	assert.Equal(t, diag.OptConstantOperands, d.Code)
	assert.Equal(t, diag.SevWarning, d.Severity)
	assert.Equal(t, "%t{0}", d.Subject)
	assert.Equal(t, ir.InstrMath, out.Instrs[0].Kind, "the instruction is left in place")
}

func TestDropOrphanOutputs(t *testing.T) {
	fx := newFixture()
	a := fx.slot("a")
	x := fx.tmp(fx.bt.Int)
	t1 := fx.tmp(fx.bt.Int)
	t2 := fx.tmp(fx.bt.Int)
	f := fx.fn(
		alloc(a, fx.bt.Int, 2),
		load(x, a, 0),
		math(t1, ir.MathMul, ir.VarOp(x), fx.k(3)),
		math(t2, ir.MathXor, ir.VarOp(t1), ir.VarOp(x)),
		ret(fx.k(0)),
	)
	out := fx.optimize(t, f)
	assert.NotContains(t, out, "mul")
	assert.NotContains(t, out, "xor")
	assert.Contains(t, out, "load a{0}", "loads stay")
}

func TestFlipOperands(t *testing.T) {
	fx := newFixture()
	a := fx.slot("a")
	x := fx.tmp(fx.bt.Int)
	sum := fx.tmp(fx.bt.Int)
	diff := fx.tmp(fx.bt.Int)
	lt := fx.tmp(fx.bt.Bool)
	f := fx.fn(
		alloc(a, fx.bt.Int, 2),
		load(x, a, 0),
		math(sum, ir.MathAdd, fx.k(5), ir.VarOp(x)),
		math(diff, ir.MathSub, fx.k(5), ir.VarOp(sum)),
		ir.Instr{Kind: ir.InstrCmp, Cmp: ir.CmpInstr{Out: lt, Op: ir.CmpLt, Left: fx.k(1), Right: ir.VarOp(diff)}},
		ir.Instr{Kind: ir.InstrBr, Br: ir.BrInstr{Cond: ir.VarOp(lt), True: "L1"}},
		label("L1"),
		ret(ir.VarOp(diff)),
	)
	out := fx.optimize(t, f)
	assert.Contains(t, out, "add %t{0}: int2B, %5: int2B")
	assert.Contains(t, out, "sub %5: int2B, %t{1}: int2B", "subtraction is not commutative")
	assert.Contains(t, out, "icmp gt %t{2}: int2B, %1: int2B")
}

func generated(t *testing.T, unit *hir.Unit) *ir.Segments {
	t.Helper()
	segs, err := irgen.Generate(unit, irgen.DefaultConfig())
	require.NoError(t, err)
	return segs
}

func loopUnit() *hir.Unit {
	b := hir.NewBuilder(nil)
	bt := b.Types.Builtins()
	i := b.Ref("i", bt.Int)
	s := b.Ref("s", bt.Int)
	arr := b.Ref("v", b.Types.ArrayOf(bt.Int, 4))
	f := b.Func("loops", bt.Int, nil,
		b.Decl(b.Var("i", bt.Int, b.Int(0))),
		b.Decl(b.Var("s", bt.Int, b.Int(0))),
		b.Decl(b.Var("v", b.Types.ArrayOf(bt.Int, 4), nil)),
		b.While(b.Binary(hir.BinLt, i, b.Int(4), bt.Int), b.Block(
			b.ExprS(b.Assign(b.Index(arr, i, bt.Int), b.Binary(hir.BinMul, i, b.Int(3), bt.Int))),
			b.ExprS(b.CompoundAssign(hir.BinAdd, s, b.Index(arr, b.Int(2), bt.Int))),
			b.ExprS(b.Unary(hir.UnPreInc, i, bt.Int)),
		)),
		b.If(b.Binary(hir.BinGt, s, b.Int(10), bt.Int), b.Return(s), nil),
		b.Return(b.Cond(b.Binary(hir.BinEq, s, b.Int(0), bt.Int), b.Int(1), s, bt.Int)),
	)
	return b.Unit("loops.c", nil, f)
}

func switchUnit() *hir.Unit {
	b := hir.NewBuilder(nil)
	bt := b.Types.Builtins()
	x := b.Ref("x", bt.Int)
	r := b.Ref("r", bt.Int)
	f := b.Func("pick", bt.Int, []*hir.Param{b.Param("x", bt.Int)},
		b.Decl(b.Var("r", bt.Int, b.Int(0))),
		b.Switch(x,
			hir.SwitchCase{Values: []int64{1}, Body: []*hir.Stmt{b.ExprS(b.Assign(r, b.Int(10))), b.Break()}},
			hir.SwitchCase{Values: []int64{2, 3}, Body: []*hir.Stmt{b.ExprS(b.Assign(r, b.Binary(hir.BinMul, x, b.Int(4), bt.Int)))}},
			hir.SwitchCase{Default: true, Body: []*hir.Stmt{b.ExprS(b.CompoundAssign(hir.BinAdd, r, b.Int(1)))}},
		),
		b.Return(r),
	)
	return b.Unit("switch.c", nil, f)
}

func ternaryUnit() *hir.Unit {
	b := hir.NewBuilder(nil)
	bt := b.Types.Builtins()
	x, y := b.Ref("x", bt.Int), b.Ref("y", bt.Int)
	f := b.Func("clamp", bt.Int, []*hir.Param{b.Param("x", bt.Int), b.Param("y", bt.Int)},
		b.Return(b.Cond(b.Binary(hir.BinLt, x, y, bt.Int),
			b.Binary(hir.BinAdd, b.Int(2), x, bt.Int),
			b.Cond(b.Binary(hir.BinLogAnd, x, y, bt.Int), y, b.Int(0), bt.Int),
			bt.Int)),
	)
	return b.Unit("ternary.c", nil, f)
}

func byteStoreUnit() *hir.Unit {
	b := hir.NewBuilder(nil)
	bt := b.Types.Builtins()
	arr := b.Types.ArrayOf(bt.Char, 4)
	s := b.Ref("s", arr)
	f := b.Func("bytes", bt.Char, nil,
		b.Decl(b.Var("s", arr, nil)),
		b.ExprS(b.Assign(b.Index(s, b.Int(1), bt.Char), b.IntOf('b', bt.Char))),
		b.ExprS(b.Assign(b.Index(s, b.Int(0), bt.Char), b.IntOf('a', bt.Char))),
		b.ExprS(b.Assign(b.Index(s, b.Int(2), bt.Char), b.IntOf('c', bt.Char))),
		b.ExprS(b.Assign(b.Index(s, b.Int(3), bt.Char), b.IntOf(0, bt.Char))),
		b.Return(b.Index(s, b.Int(2), bt.Char)),
	)
	return b.Unit("bytes.c", nil, f)
}

func TestOptimizeReachesFixedPoint(t *testing.T) {
	for _, tc := range []struct {
		name string
		unit func() *hir.Unit
	}{
		{"loop", loopUnit},
		{"switch", switchUnit},
		{"ternary", ternaryUnit},
		{"byte stores", byteStoreUnit},
	} {
		t.Run(tc.name, func(t *testing.T) {
			segs := generated(t, tc.unit())
			once := OptimizeSegments(segs, DefaultOptions())
			twice := OptimizeSegments(once, DefaultOptions())
			for _, f := range once.Code.Funcs() {
				g, ok := twice.Code.Get(f.Name)
				require.True(t, ok)
				assert.True(t, ir.EqualInstrs(f.Instrs, g.Instrs),
					"second run changed %s:\n%s\n---\n%s", f.Name, ir.FormatFunc(once.Types, f), ir.FormatFunc(once.Types, g))
				require.NoError(t, ir.Validate(f))
			}
		})
	}
}

func TestOptimizeLeavesNoOrphans(t *testing.T) {
	segs := OptimizeSegments(generated(t, loopUnit()), DefaultOptions())
	for _, f := range segs.Code.Funcs() {
		uses := ir.UseCounts(f.Instrs)
		for i := range f.Instrs {
			in := &f.Instrs[i]
			out, ok := in.Output()
			if !ok || !in.IsPure() {
				continue
			}
			assert.Positive(t, uses[out.Key()], "%s defines unused %s", in.Kind, out)
		}
	}
}

func TestOptimizeDoesNotMutateInput(t *testing.T) {
	segs := generated(t, loopUnit())
	f, _ := segs.Code.Get("loops")
	before := ir.FormatFunc(segs.Types, f)
	_ = Optimize(f, DefaultOptions())
	assert.Equal(t, before, ir.FormatFunc(segs.Types, f))
}

func TestBitNotSurvivesOptimization(t *testing.T) {
	b := hir.NewBuilder(nil)
	bt := b.Types.Builtins()
	main := b.Func("main", bt.Int, nil,
		b.Decl(b.Var("a", bt.Int, b.Int(2))),
		b.Return(b.Binary(hir.BinAdd, b.Int(1), b.Unary(hir.UnBitNot, b.Ref("a", bt.Int), bt.Int), bt.Int)),
	)
	segs := OptimizeSegments(generated(t, b.Unit("not.c", nil, main)), DefaultOptions())
	f, _ := segs.Code.Get("main")
	out := ir.FormatFunc(segs.Types, f)
	assert.Contains(t, out, "xor %t{0}: int2B, %-1: int2B")
	assert.Contains(t, out, "add %t{1}: int2B, %1: int2B")
}
