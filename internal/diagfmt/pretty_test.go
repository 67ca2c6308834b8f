package diagfmt

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"cc16/internal/diag"
	"cc16/internal/source"
)

func sampleBag() *diag.Bag {
	bag := diag.NewBag(10)
	sp := source.Span{File: "/home/user/project/src/main.c", Start: source.Pos{Line: 3, Col: 5}, End: source.Pos{Line: 3, Col: 9}}
	bag.Add(diag.NewError(diag.GenUnknownVariable, sp, "reference to unknown variable").
		WithSubject("count").
		WithNote(source.Span{}, "declared nowhere in this unit"))
	bag.Add(diag.New(diag.SevWarning, diag.OptConstantOperands, source.Span{File: sp.File}, "both operands are constants"))
	return bag
}

func TestPathModes(t *testing.T) {
	tests := []struct {
		name     string
		mode     PathMode
		contains string
	}{
		{"absolute", PathModeAbsolute, "/home/user/project/src/main.c:3:5"},
		{"relative", PathModeRelative, "src/main.c:3:5"},
		{"basename", PathModeBasename, "main.c:3:5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := Pretty(&buf, sampleBag(), PrettyOpts{PathMode: tt.mode, BaseDir: "/home/user/project"}); err != nil {
				t.Fatal(err)
			}
			out := buf.String()
			if !strings.Contains(out, tt.contains) {
				t.Errorf("expected %q in:\n%s", tt.contains, out)
			}
			if !strings.Contains(out, "ERROR GEN4002: reference to unknown variable [count]") {
				t.Errorf("missing header in:\n%s", out)
			}
		})
	}
}

func TestPrettyNotesAndWidth(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{PathMode: PathModeBasename, ShowNotes: true, Width: 12}); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "  note: declared nowhere in this unit\n") {
		t.Errorf("note missing:\n%s", out)
	}
	if strings.Contains(out, "[count]") {
		t.Errorf("message was not truncated:\n%s", out)
	}
	if !strings.Contains(out, "main.c: WARNING OPT6001") {
		t.Errorf("span without position should print the path only:\n%s", out)
	}
}

func TestPrettyColor(t *testing.T) {
	var buf bytes.Buffer
	if err := Pretty(&buf, sampleBag(), PrettyOpts{Color: true}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "\x1b[") {
		t.Error("expected ANSI escapes with Color set")
	}
}

func TestShort(t *testing.T) {
	var buf bytes.Buffer
	if err := Short(&buf, sampleBag()); err != nil {
		t.Fatal(err)
	}
	want := "GEN4002 count: reference to unknown variable\nOPT6001: both operands are constants\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := JSON(&buf, sampleBag(), JSONOpts{PathMode: PathModeBasename, IncludeNotes: true, Max: 1}); err != nil {
		t.Fatal(err)
	}
	var out DiagnosticsOutput
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if out.Count != 1 || len(out.Diagnostics) != 1 {
		t.Fatalf("Max not applied: %+v", out)
	}
	d := out.Diagnostics[0]
	if d.Code != "GEN4002" || d.Severity != "ERROR" || d.Subject != "count" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
	if d.Location.File != "main.c" || d.Location.StartLine != 3 {
		t.Errorf("unexpected location %+v", d.Location)
	}
	if len(d.Notes) != 1 {
		t.Errorf("notes missing: %+v", d.Notes)
	}
}
