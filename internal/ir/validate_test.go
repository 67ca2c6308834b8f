package ir

import (
	"strings"
	"testing"

	"cc16/internal/types"
)

func TestValidateAcceptsWellFormed(t *testing.T) {
	in := types.NewInterner()
	if err := Validate(sampleFunc(in)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateReportsEverything(t *testing.T) {
	in := types.NewInterner()
	f := sampleFunc(in)
	f.Instrs = append(f.Instrs,
		f.Instrs[0],
		Instr{Kind: InstrJmp, Jmp: JmpInstr{Target: "nowhere"}},
		Instr{Kind: InstrLabel, Label: LabelInstr{Name: "L0"}},
		Instr{Kind: InstrLabel, Label: LabelInstr{Name: "L0"}},
	)
	err := Validate(f)
	if err == nil {
		t.Fatal("expected errors")
	}
	msg := err.Error()
	for _, want := range []string{"redefines %t{0}", "missing label nowhere", "duplicate label L0"} {
		if !strings.Contains(msg, want) {
			t.Errorf("missing %q in %q", want, msg)
		}
	}
}

func TestTruncate(t *testing.T) {
	cases := []struct {
		v      int64
		size   int
		signed bool
		want   int64
	}{
		{0x1FF, 1, false, 0xFF},
		{0xFF, 1, true, -1},
		{0x8000, 2, true, -0x8000},
		{-1, 2, false, 0xFFFF},
		{1 << 40, 8, true, 1 << 40},
	}
	for _, tc := range cases {
		if got := Truncate(tc.v, tc.size, tc.signed); got != tc.want {
			t.Errorf("Truncate(%#x, %d, %v) = %#x, want %#x", tc.v, tc.size, tc.signed, got, tc.want)
		}
	}
}

func TestEvalMathWraps(t *testing.T) {
	if got, ok := EvalMath(MathAdd, 0x7FFF, 1, 2); !ok || got != -0x8000 {
		t.Fatalf("add overflow: %d %v", got, ok)
	}
	if _, ok := EvalMath(MathDiv, 1, 0, 2); ok {
		t.Fatal("division by zero must not fold")
	}
	if got, _ := EvalMath(MathUDiv, -2, 2, 2); got != 0x7FFF {
		t.Fatalf("udiv: %d", got)
	}
	if !EvalCmp(CmpUGt, -1, 1, 2) || EvalCmp(CmpGt, -1, 1, 2) {
		t.Fatal("signedness of comparisons")
	}
}
