package irgen

import (
	"errors"
	"strings"
	"testing"

	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/types"
)

func newBuilder() (*hir.Builder, types.Builtins) {
	b := hir.NewBuilder(nil)
	return b, b.Types.Builtins()
}

func generate(t *testing.T, unit *hir.Unit) *ir.Segments {
	t.Helper()
	segs, err := Generate(unit, DefaultConfig())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if err := ir.ValidateSegments(segs); err != nil {
		t.Fatalf("invalid IR: %v", err)
	}
	return segs
}

func dump(t *testing.T, segs *ir.Segments, name string) string {
	t.Helper()
	f, ok := segs.Code.Get(name)
	if !ok {
		t.Fatalf("function %s not generated", name)
	}
	return ir.FormatFunc(segs.Types, f)
}

func countKind(f *ir.Func, kind ir.InstrKind) int {
	n := 0
	for i := range f.Instrs {
		if f.Instrs[i].Kind == kind {
			n++
		}
	}
	return n
}

func genCode(t *testing.T, err error) diag.Code {
	t.Helper()
	var ge *Error
	if !errors.As(err, &ge) {
		t.Fatalf("expected *irgen.Error, got %v", err)
	}
	return ge.Code
}

func TestGenerateSum(t *testing.T) {
	b, bt := newBuilder()
	sum := b.Func("sum", bt.Int,
		[]*hir.Param{b.Param("a", bt.Int), b.Param("b", bt.Int)},
		b.Return(b.Binary(hir.BinAdd, b.Ref("a", bt.Int), b.Ref("b", bt.Int), bt.Int)),
	)
	segs := generate(t, b.Unit("sum.c", nil, sum))
	want := strings.Join([]string{
		"def sum(a{0}: int*2B, b{0}: int*2B): [ret: int2B]",
		"  %t{0}: int2B = load a{0}: int*2B",
		"  %t{1}: int2B = load b{0}: int*2B",
		"  %t{2}: int2B = add %t{0}: int2B, %t{1}: int2B",
		"  ret %t{2}: int2B",
		"end-def",
		"",
	}, "\n")
	if got := dump(t, segs, "sum"); got != want {
		t.Fatalf("dump mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestConstantInitializerFolds(t *testing.T) {
	b, bt := newBuilder()
	cond := b.Cond(b.Binary(hir.BinLt, b.Int(6), b.Int(10), bt.Int), b.Int(16), b.Int(6), bt.Int)
	main := b.Func("main", bt.Void, nil, b.Decl(b.Var("k", bt.Int, cond)))
	segs := generate(t, b.Unit("fold.c", nil, main))
	f, _ := segs.Code.Get("main")

	if n := countKind(f, ir.InstrStore); n != 1 {
		t.Fatalf("want exactly one store, got %d", n)
	}
	for _, kind := range []ir.InstrKind{ir.InstrCmp, ir.InstrBr, ir.InstrPhi} {
		if n := countKind(f, kind); n != 0 {
			t.Fatalf("folded initializer emitted %d %s instructions", n, kind)
		}
	}
	if !strings.Contains(dump(t, segs, "main"), "store k{0}: int*2B, %16: int2B") {
		t.Fatalf("store of folded literal missing:\n%s", dump(t, segs, "main"))
	}
}

func TestAllocationCountMatchesDeclarations(t *testing.T) {
	b, bt := newBuilder()
	ref := func(n string) *hir.Expr { return b.Ref(n, bt.Int) }
	main := b.Func("main", bt.Void, nil,
		b.Decl(b.Var("a", bt.Int, b.Int(1))),
		b.Block(
			b.Decl(b.Var("a", bt.Int, b.Int(2))),
			b.Decl(b.Var("b", bt.Int, ref("a"))),
		),
		b.For(
			b.Decl(b.Var("i", bt.Int, b.Int(0))),
			b.Binary(hir.BinLt, ref("i"), b.Int(3), bt.Int),
			b.Unary(hir.UnPostInc, ref("i"), bt.Int),
			b.Block(b.Decl(b.Var("a", bt.Int, ref("i")))),
		),
		b.Decl(&hir.VarDecl{Name: "s", Type: bt.Int, Storage: hir.StorageStatic}),
	)
	segs := generate(t, b.Unit("alloc.c", nil, main))
	f, _ := segs.Code.Get("main")
	if n := countKind(f, ir.InstrAlloc); n != 5 {
		t.Fatalf("want 5 allocations (a, a, b, i, a), got %d:\n%s", n, dump(t, segs, "main"))
	}
	out := dump(t, segs, "main")
	for _, want := range []string{"a{0}: int*2B = alloca", "a{1}: int*2B = alloca", "a{2}: int*2B = alloca", "i{0}: int*2B = alloca"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q", want)
		}
	}
	// The inner b reads the shadowing a.
	if !strings.Contains(out, "load a{1}: int*2B") {
		t.Errorf("inner scope must read a{1}:\n%s", out)
	}
}

func TestBitNotLowersToXor(t *testing.T) {
	b, bt := newBuilder()
	main := b.Func("main", bt.Void, nil,
		b.Decl(b.Var("a", bt.Int, b.Int(2))),
		b.Decl(b.Var("b", bt.Int, b.Binary(hir.BinAdd, b.Int(1), b.Unary(hir.UnBitNot, b.Ref("a", bt.Int), bt.Int), bt.Int))),
	)
	segs := generate(t, b.Unit("not.c", nil, main))
	out := dump(t, segs, "main")
	for _, want := range []string{
		"%t{0}: int2B = load a{0}: int*2B",
		"%t{1}: int2B = xor %t{0}: int2B, %-1: int2B",
		"%t{2}: int2B = add %1: int2B, %t{1}: int2B",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
	if strings.Contains(out, "= sub ") {
		t.Errorf("~a must not lower to a subtraction:\n%s", out)
	}
}

func TestTernaryMergesThroughPhi(t *testing.T) {
	b, bt := newBuilder()
	x := b.Ref("x", bt.Int)
	f := b.Func("pick", bt.Int, []*hir.Param{b.Param("x", bt.Int)},
		b.Return(b.Cond(x, b.Int(1), b.Binary(hir.BinMul, x, b.Int(3), bt.Int), bt.Int)),
	)
	segs := generate(t, b.Unit("phi.c", nil, f))
	fn, _ := segs.Code.Get("pick")
	if countKind(fn, ir.InstrPhi) != 1 || countKind(fn, ir.InstrAssign) != 2 {
		t.Fatalf("want one phi fed by two assigns:\n%s", dump(t, segs, "pick"))
	}
}

func TestSwitchIsCompareChain(t *testing.T) {
	b, bt := newBuilder()
	x := b.Ref("x", bt.Int)
	f := b.Func("sw", bt.Int, []*hir.Param{b.Param("x", bt.Int)},
		b.Switch(x,
			hir.SwitchCase{Values: []int64{1, 2}, Body: []*hir.Stmt{b.Return(b.Int(10))}},
			hir.SwitchCase{Values: []int64{3}, Body: []*hir.Stmt{b.ExprS(b.Assign(x, b.Int(0)))}},
			hir.SwitchCase{Default: true, Body: []*hir.Stmt{b.Break()}},
		),
		b.Return(x),
	)
	segs := generate(t, b.Unit("switch.c", nil, f))
	fn, _ := segs.Code.Get("sw")
	if n := countKind(fn, ir.InstrCmp); n != 3 {
		t.Fatalf("want 3 equality compares, got %d", n)
	}
	out := dump(t, segs, "sw")
	if strings.Count(out, "icmp eq") != 3 {
		t.Fatalf("compares must be equality:\n%s", out)
	}
}

func TestAggregateHoisting(t *testing.T) {
	b, bt := newBuilder()
	arr := func(n uint32, vals ...int64) *hir.VarDecl {
		items := make([]hir.InitItem, len(vals))
		for i, v := range vals {
			items[i] = hir.InitItem{Offset: uint32(i * 2), Value: b.Int(v)} //nolint:gosec // tiny test indexes
		}
		return &hir.VarDecl{Name: "v", Type: b.Types.ArrayOf(bt.Int, n), Init: &hir.Init{Items: items}}
	}
	small := b.Func("small", bt.Void, nil, b.Decl(arr(4, 1, 2, 3)))
	big := b.Func("big", bt.Void, nil, b.Decl(arr(4, 1, 2, 3, 4)))
	segs := generate(t, b.Unit("agg.c", nil, small, big))

	sf, _ := segs.Code.Get("small")
	if n := countKind(sf, ir.InstrStore); n != 4 {
		t.Fatalf("three items plus one zero-fill store expected, got %d:\n%s", n, dump(t, segs, "small"))
	}
	bf, _ := segs.Code.Get("big")
	out := dump(t, segs, "big")
	if countKind(bf, ir.InstrStore) != 0 || !strings.Contains(out, "call __builtin_memcpy(") {
		t.Fatalf("big initializer must be copied from data:\n%s", out)
	}
	def, ok := segs.Data.Lookup("_c0")
	if !ok || !def.ReadOnly || len(def.Items) != 4 {
		t.Fatalf("read-only image missing: %+v", def)
	}
}

func TestStringInitializers(t *testing.T) {
	b, bt := newBuilder()
	charArr := func(n uint32) types.TypeID { return b.Types.ArrayOf(bt.Char, n) }
	f := b.Func("strs", bt.Void, nil,
		b.Decl(&hir.VarDecl{Name: "one", Type: charArr(2), Init: &hir.Init{Expr: b.Str("a")}}),
		b.Decl(&hir.VarDecl{Name: "two", Type: charArr(3), Init: &hir.Init{Expr: b.Str("hi")}}),
		b.Decl(b.Var("p", b.Types.PointerTo(bt.Char), b.Cast(b.Str("x"), b.Types.PointerTo(bt.Char)))),
	)
	segs := generate(t, b.Unit("str.c", nil, f))
	out := dump(t, segs, "strs")
	if !strings.Contains(out, "store one{0}: char[2]*2B + 1, %0: char1B") {
		t.Errorf("short string must be stored inline:\n%s", out)
	}
	if strings.Count(out, "__builtin_memcpy") != 1 {
		t.Errorf("long string must be copied:\n%s", out)
	}
	if len(segs.Data.Defs) != 2 {
		t.Errorf("want the copied image and the pointer target in data, got %d", len(segs.Data.Defs))
	}
}

func TestGlobals(t *testing.T) {
	b, bt := newBuilder()
	charPtr := b.Types.PointerTo(bt.Char)
	globals := []*hir.VarDecl{
		b.Var("counter", bt.Int, b.Int(5)),
		b.Var("msg", charPtr, b.Cast(b.Str("hi"), charPtr)),
		b.Var("self", b.Types.PointerTo(bt.Int), b.Unary(hir.UnAddrOf, b.Ref("counter", bt.Int), b.Types.PointerTo(bt.Int))),
	}
	f := b.Func("bump", bt.Void, nil,
		b.ExprS(b.CompoundAssign(hir.BinAdd, b.Ref("counter", bt.Int), b.Int(1))),
	)
	segs := generate(t, b.Unit("glob.c", globals, f))
	if _, ok := segs.Data.Lookup("_counter"); !ok {
		t.Fatal("_counter not defined")
	}
	self, _ := segs.Data.Lookup("_self")
	if len(self.Items) != 1 || self.Items[0].Kind != ir.DataLabel || self.Items[0].Label != "_counter" {
		t.Fatalf("address constant not resolved: %+v", self.Items)
	}
	out := dump(t, segs, "bump")
	if !strings.Contains(out, "label-offset _counter") {
		t.Fatalf("globals are reached through label-offset:\n%s", out)
	}

	bad := []*hir.VarDecl{b.Var("g", bt.Int, b.Call("f", bt.Int))}
	_, err := Generate(b.Unit("bad.c", bad), DefaultConfig())
	if code := genCode(t, err); code != diag.GenNonConstGlobalInit {
		t.Fatalf("want GenNonConstGlobalInit, got %v", code)
	}
}

func TestVariadicBuiltins(t *testing.T) {
	b, bt := newBuilder()
	charPtr := b.Types.PointerTo(bt.Char)
	ap := b.Ref("ap", charPtr)
	f := &hir.Func{
		Name: "first", Result: bt.Int, Variadic: true,
		Params: []*hir.Param{b.Param("n", bt.Int)},
		Body: &hir.Block{Stmts: []*hir.Stmt{
			b.Decl(b.Var("ap", charPtr, nil)),
			b.ExprS(b.Call(ir.BuiltinVaStart, bt.Void, ap, b.Ref("n", bt.Int))),
			b.Decl(b.Var("v", bt.Int, b.Call(ir.BuiltinVaArg, bt.Int, ap))),
			b.ExprS(b.Call(ir.BuiltinVaEnd, bt.Void, ap)),
			b.Return(b.Ref("v", bt.Int)),
		}},
	}
	segs := generate(t, b.Unit("va.c", nil, f))
	out := dump(t, segs, "first")
	for _, want := range []string{
		"call __builtin_va_start(%t{0}: char**2B)",
		"= call __builtin_va_arg(%t{1}: char**2B)",
		"call __builtin_va_end(%t{",
		"def first(n{0}: int*2B, ...)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in\n%s", want, out)
		}
	}
}

func TestVariableLengthArrayUsesAlloca(t *testing.T) {
	b, bt := newBuilder()
	vla := &hir.VarDecl{Name: "buf", Type: b.Types.ArrayOf(bt.Int, 0), Length: b.Ref("n", bt.Int)}
	f := b.Func("scratch", bt.Int, []*hir.Param{b.Param("n", bt.Int)},
		b.Decl(vla),
		b.Return(b.Index(b.Ref("buf", vla.Type), b.Int(1), bt.Int)),
	)
	segs := generate(t, b.Unit("vla.c", nil, f))
	out := dump(t, segs, "scratch")
	if !strings.Contains(out, "= call __builtin_alloca(") {
		t.Fatalf("VLA must use alloca:\n%s", out)
	}
	if !strings.Contains(out, "+ 2") {
		t.Fatalf("constant index must become an offset:\n%s", out)
	}
}

func TestGeneratorErrors(t *testing.T) {
	b, bt := newBuilder()
	vec := b.Types.RegisterRecord(types.RecordInfo{Name: "Vec", Fields: []types.Field{{Name: "x", Type: bt.Int}}})
	cases := []struct {
		name string
		fn   *hir.Func
		want diag.Code
	}{
		{"break", b.Func("f", bt.Void, nil, b.Break()), diag.GenBreakOutsideLoop},
		{"continue", b.Func("f", bt.Void, nil, b.Switch(b.Int(1), hir.SwitchCase{Default: true, Body: []*hir.Stmt{b.Continue()}})), diag.GenContinueOutsideLoop},
		{"unknown", b.Func("f", bt.Int, nil, b.Return(b.Ref("nope", bt.Int))), diag.GenUnknownVariable},
		{"goto", b.Func("f", bt.Void, nil, b.Goto("out")), diag.GenUndefinedLabel},
		{"dup label", b.Func("f", bt.Void, nil, b.Labeled("x", b.Block()), b.Labeled("x", b.Block())), diag.GenDuplicateLabel},
		{"struct param", b.Func("f", bt.Void, []*hir.Param{b.Param("v", vec)}), diag.GenStructByValue},
		{"alloca arity", b.Func("f", bt.Int, nil, b.Return(b.Call(ir.BuiltinAlloca, bt.Int))), diag.GenInvalidBuiltinArgs},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Generate(b.Unit("err.c", nil, tc.fn), DefaultConfig())
			if got := genCode(t, err); got != tc.want {
				t.Fatalf("want %v, got %v (%v)", tc.want, got, err)
			}
		})
	}
}

func TestMissingOperandsAreGeneratorErrors(t *testing.T) {
	b, bt := newBuilder()
	x := b.Ref("x", bt.Int)
	arr := b.Types.ArrayOf(bt.Int, 4)
	params := []*hir.Param{b.Param("x", bt.Int)}
	cases := []struct {
		name string
		body *hir.Stmt
	}{
		{"binary left", b.Return(b.Binary(hir.BinAdd, nil, b.Int(1), bt.Int))},
		{"binary right", b.Return(b.Binary(hir.BinMul, x, nil, bt.Int))},
		{"compare", b.Return(b.Binary(hir.BinLt, nil, x, bt.Int))},
		{"unary", b.Return(b.Unary(hir.UnNeg, nil, bt.Int))},
		{"callee", b.ExprS(b.CallIndirect(nil, bt.Int))},
		{"call argument", b.ExprS(b.Call("g", bt.Int, x, nil))},
		{"index object", b.Return(b.Index(nil, b.Int(0), bt.Int))},
		{"index", b.Return(b.Index(b.Ref("a", arr), nil, bt.Int))},
		{"member object", b.Return(b.Member(nil, "f", 0, false, bt.Int))},
		{"arrow object", b.Return(b.Member(nil, "f", 2, true, bt.Int))},
		{"assign target", b.ExprS(&hir.Expr{Kind: hir.ExprAssign, Type: bt.Int, Data: hir.AssignData{Value: x}})},
		{"assign value", b.ExprS(b.Assign(x, nil))},
		{"cast", b.Return(b.Cast(nil, bt.Int))},
		{"ternary", b.Return(b.Cond(nil, x, x, bt.Int))},
		{"ternary arm", b.Return(b.Cond(x, x, nil, bt.Int))},
		{"if", b.If(nil, b.Return(x), nil)},
		{"while", b.While(nil, b.Block())},
		{"do while", b.DoWhile(b.Block(), nil)},
		{"switch", b.Switch(nil, hir.SwitchCase{Default: true})},
		{"logical", b.If(b.Binary(hir.BinLogAnd, x, nil, bt.Int), b.Block(), nil)},
		{"declaration", b.Decl(nil)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := b.Func("f", bt.Int, params, tc.body, b.Return(b.Int(0)))
			segs, err := Generate(b.Unit("bad.c", nil, f), DefaultConfig())
			if segs != nil {
				t.Fatalf("malformed tree must not produce segments")
			}
			if code := genCode(t, err); code != diag.GenUnsupported {
				t.Fatalf("want GenUnsupported, got %v (%v)", code, err)
			}
			if !strings.Contains(err.Error(), "malformed tree") {
				t.Fatalf("unexpected message: %v", err)
			}
		})
	}
}

func TestNestingDepthLimit(t *testing.T) {
	b, bt := newBuilder()
	x := b.Ref("x", bt.Int)
	e := x
	for range 40 {
		e = b.Binary(hir.BinAdd, e, x, bt.Int)
	}
	f := b.Func("deep", bt.Int, []*hir.Param{b.Param("x", bt.Int)}, b.Return(e))
	cfg := DefaultConfig()
	cfg.MaxNestingDepth = 16
	_, err := Generate(b.Unit("deep.c", nil, f), cfg)
	if code := genCode(t, err); code != diag.GenExprTooComplex {
		t.Fatalf("want GenExprTooComplex, got %v", code)
	}
	if _, err := Generate(b.Unit("deep.c", nil, f), DefaultConfig()); err != nil {
		t.Fatalf("default depth must accept the tree: %v", err)
	}
}

func TestForwardGotoAndLoops(t *testing.T) {
	b, bt := newBuilder()
	i := b.Ref("i", bt.Int)
	f := b.Func("loops", bt.Int, nil,
		b.Decl(b.Var("i", bt.Int, b.Int(0))),
		b.While(b.Binary(hir.BinLt, i, b.Int(10), bt.Int), b.Block(
			b.If(b.Binary(hir.BinEq, i, b.Int(5), bt.Int), b.Goto("done"), nil),
			b.ExprS(b.Unary(hir.UnPreInc, i, bt.Int)),
			b.Continue(),
		)),
		b.DoWhile(b.ExprS(b.Unary(hir.UnPostDec, i, bt.Int)), b.Binary(hir.BinLogAnd, i, b.Binary(hir.BinGt, i, b.Int(2), bt.Int), bt.Int)),
		b.Labeled("done", b.Return(i)),
	)
	segs := generate(t, b.Unit("loops.c", nil, f))
	fn, _ := segs.Code.Get("loops")
	if countKind(fn, ir.InstrPhi) != 0 {
		t.Fatal("conditions must lower to branches, not values")
	}
	if countKind(fn, ir.InstrBr) < 4 {
		t.Fatalf("expected branches for while, if and &&:\n%s", dump(t, segs, "loops"))
	}
}
