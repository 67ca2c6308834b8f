package observ

import (
	"strings"
	"testing"
)

func TestTimerReport(t *testing.T) {
	tm := NewTimer()
	gen := tm.Begin("generate")
	tm.End(gen, "3 funcs")
	opt := tm.Begin("optimize")
	tm.End(opt, "")
	tm.End(42, "ignored")

	rep := tm.Report()
	if len(rep.Phases) != 2 || rep.Phases[0].Name != "generate" || rep.Phases[0].Note != "3 funcs" {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.TotalMS < rep.Phases[0].DurationMS {
		t.Fatalf("total smaller than a phase: %+v", rep)
	}
	sum := tm.Summary()
	if !strings.Contains(sum, "generate") || !strings.Contains(sum, "// 3 funcs") || !strings.Contains(sum, "total") {
		t.Fatalf("unexpected summary:\n%s", sum)
	}
}

func TestEmptyTimer(t *testing.T) {
	if rep := NewTimer().Report(); rep.TotalMS != 0 || rep.Phases != nil {
		t.Fatalf("expected empty report, got %+v", rep)
	}
}
