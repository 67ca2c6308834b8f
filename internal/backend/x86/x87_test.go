package x86

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/irgen"
	"cc16/internal/iropt"
	"cc16/internal/trace"
	"cc16/internal/types"
)

// floatTree builds a full binary tree of the given depth over one leaf,
// alternating + and * by level.
func floatTree(b *hir.Builder, leaf *hir.Expr, t types.TypeID, depth int) *hir.Expr {
	if depth == 0 {
		return leaf
	}
	op := hir.BinAdd
	if depth%2 == 0 {
		op = hir.BinMul
	}
	return b.Binary(op, floatTree(b, leaf, t, depth-1), floatTree(b, leaf, t, depth-1), t)
}

func TestBalancedFloatTreeFitsOnX87(t *testing.T) {
	for _, depth := range []int{2, 3, 4} {
		for _, optimize := range []bool{false, true} {
			t.Run(fmt.Sprintf("depth%d/optimize=%v", depth, optimize), func(t *testing.T) {
				b := hir.NewBuilder(nil)
				bt := b.Types.Builtins()
				x, v := b.Ref("x", bt.Double), b.Ref("v", bt.Double)
				f := b.Func("f", bt.Double,
					[]*hir.Param{b.Param("x", bt.Double), b.Param("v", bt.Double)},
					b.Return(b.Binary(hir.BinSub, x, floatTree(b, v, bt.Double, depth), bt.Double)),
				)
				segs, err := irgen.Generate(b.Unit("tree.c", nil, f), irgen.DefaultConfig())
				require.NoError(t, err)
				if optimize {
					segs = iropt.OptimizeSegments(segs, iropt.DefaultOptions())
				}
				out, err := CompileBackend(segs, DefaultOptions())
				require.NoError(t, err)
				assert.Contains(t, out, "_f:\n")
				assert.NotContains(t, out, "fincstp")
			})
		}
	}
}

func deadOperandsFunc(fx *fixture, op ir.MathOp) *ir.Func {
	a, b := fx.slot("a", fx.bt.Double), fx.slot("b", fx.bt.Double)
	ta, tb, d := fx.tmp(fx.bt.Double, 8), fx.tmp(fx.bt.Double, 8), fx.tmp(fx.bt.Double, 8)
	return &ir.Func{Name: "f", Result: fx.bt.Double, ResultSize: 8, Instrs: []ir.Instr{
		alloc(a, fx.bt.Double, 8),
		alloc(b, fx.bt.Double, 8),
		load(ta, a),
		load(tb, b),
		arith(d, op, ir.VarOp(ta), ir.VarOp(tb)),
		ret(ir.VarOp(d)),
	}}
}

func TestDeadRightOperandIsPopped(t *testing.T) {
	for _, tc := range []struct {
		op   ir.MathOp
		want string
	}{
		{ir.MathAdd, "faddp st1, st0"},
		{ir.MathSub, "fsubrp st1, st0"},
		{ir.MathMul, "fmulp st1, st0"},
		{ir.MathDiv, "fdivrp st1, st0"},
	} {
		t.Run(tc.op.String(), func(t *testing.T) {
			fx := newFixture()
			out, err := fx.compile(t, deadOperandsFunc(fx, tc.op))
			require.NoError(t, err)
			assert.Contains(t, out, "    fxch st1\n    "+tc.want+"\n")
			assert.NotContains(t, out, "ffree")
		})
	}
}

func TestLiveRightOperandStaysResident(t *testing.T) {
	fx := newFixture()
	a := fx.slot("a", fx.bt.Double)
	ta, tb, d, e := fx.tmp(fx.bt.Double, 8), fx.tmp(fx.bt.Double, 8), fx.tmp(fx.bt.Double, 8), fx.tmp(fx.bt.Double, 8)
	out, err := fx.compile(t, &ir.Func{Name: "f", Result: fx.bt.Double, ResultSize: 8, Instrs: []ir.Instr{
		alloc(a, fx.bt.Double, 8),
		load(tb, a),
		load(ta, a),
		arith(d, ir.MathSub, ir.VarOp(ta), ir.VarOp(tb)),
		arith(e, ir.MathMul, ir.VarOp(d), ir.VarOp(tb)),
		ret(ir.VarOp(e)),
	}})
	require.NoError(t, err)
	assert.Contains(t, out, "    fsub st0, st1\n")
	assert.Contains(t, out, "    fmulp st1, st0\n")
}

func TestX87PeakIsTraced(t *testing.T) {
	fx := newFixture()
	segs := ir.NewSegments(fx.in)
	segs.Code.Add(deadOperandsFunc(fx, ir.MathAdd))
	ring := trace.NewRingTracer(64, trace.LevelDebug)
	opts := DefaultOptions()
	opts.Tracer = ring
	_, err := CompileBackend(segs, opts)
	require.NoError(t, err)

	var found bool
	for _, ev := range ring.Snapshot() {
		if ev.Kind == trace.KindSpanEnd && ev.Name == "codegen f" {
			found = true
			assert.Equal(t, "2", ev.Extra["x87_peak"])
		}
	}
	assert.True(t, found, "codegen span not traced")
}
