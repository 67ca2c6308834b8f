package driver

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cc16/internal/backend/x86"
	"cc16/internal/buildpipeline"
	"cc16/internal/diag"
	"cc16/internal/hir"
)

func sevenUnit(name string) *hir.Unit {
	b := hir.NewBuilder(nil)
	bt := b.Types.Builtins()
	return b.Unit(name, nil, b.Func("seven", bt.Int, nil, b.Return(b.Int(7))))
}

func writeUnit(t *testing.T, dir, file string) string {
	t.Helper()
	path := filepath.Join(dir, file)
	if err := hir.WriteFile(path, sevenUnit("")); err != nil {
		t.Fatalf("write unit: %v", err)
	}
	return path
}

func testOptions(t *testing.T) Options {
	t.Helper()
	opts := DefaultOptions()
	cache, err := OpenDiskCacheAt(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatalf("open cache: %v", err)
	}
	opts.Cache = cache
	return opts
}

func codes(bag *diag.Bag) []diag.Code {
	var out []diag.Code
	for _, d := range bag.Items() {
		out = append(out, d.Code)
	}
	return out
}

func TestCompileUnitProducesAssembly(t *testing.T) {
	var events []PhaseEvent
	opts := DefaultOptions()
	opts.Timings = true
	opts.Observer = func(ev PhaseEvent) { events = append(events, ev) }

	res := CompileUnit(context.Background(), sevenUnit("seven.c"), opts)
	if res.Failed() {
		t.Fatalf("unexpected errors: %v", codes(res.Bag))
	}
	if !strings.Contains(res.Asm, "_seven:\n") || !strings.Contains(res.Asm, "mov ax, 7") {
		t.Fatalf("unexpected assembly:\n%s", res.Asm)
	}
	if res.IR == nil || res.Timing == nil || len(res.Timing.Phases) != 3 {
		t.Fatalf("missing IR or timings: %+v", res.Timing)
	}
	if len(events) != 6 {
		t.Fatalf("expected 6 phase events, got %d", len(events))
	}
	want := []string{"generate", "generate", "optimize", "optimize", "codegen", "codegen"}
	for i, ev := range events {
		if ev.Name != want[i] {
			t.Fatalf("event %d: got %s, want %s", i, ev.Name, want[i])
		}
	}
	items := res.Bag.Items()
	if len(items) != 1 || items[0].Code != diag.DrvInfo || items[0].Severity != diag.SevInfo {
		t.Fatalf("expected one timing note, got %v", codes(res.Bag))
	}
}

func TestCompileUnitSkipsDisabledOptimizer(t *testing.T) {
	var names []string
	opts := DefaultOptions()
	opts.Config.Optimizer.Enabled = false
	opts.Observer = func(ev PhaseEvent) {
		if ev.Status == PhaseEnd {
			names = append(names, ev.Name)
		}
	}
	res := CompileUnit(context.Background(), sevenUnit("seven.c"), opts)
	if res.Failed() {
		t.Fatalf("unexpected errors: %v", codes(res.Bag))
	}
	if strings.Join(names, ",") != "generate,codegen" {
		t.Fatalf("unexpected phases: %v", names)
	}
}

func TestCompileUnitReportsGeneratorError(t *testing.T) {
	res := CompileUnit(context.Background(), nil, DefaultOptions())
	if !res.Failed() {
		t.Fatal("expected failure")
	}
	if got := codes(res.Bag); len(got) != 1 || got[0] != diag.GenUnsupported {
		t.Fatalf("unexpected codes: %v", got)
	}
	if res.Asm != "" {
		t.Fatalf("no assembly expected, got %q", res.Asm)
	}
}

func TestCompileFileUsesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "seven.hir")
	opts := testOptions(t)
	sink := &buildpipeline.RecordingSink{}
	opts.Progress = sink

	first := CompileFile(context.Background(), path, opts)
	if first.Failed() || first.Cached {
		t.Fatalf("first build: failed=%v cached=%v", first.Failed(), first.Cached)
	}
	if first.Name != "seven" {
		t.Fatalf("unit name from file: got %q", first.Name)
	}

	second := CompileFile(context.Background(), path, opts)
	if !second.Cached {
		t.Fatal("second build should be served from the cache")
	}
	if second.Asm != first.Asm {
		t.Fatalf("cached assembly differs:\n%s\nvs\n%s", second.Asm, first.Asm)
	}
	if second.IR != nil {
		t.Fatal("cached units carry no IR")
	}

	cachedEvents := 0
	for _, ev := range sink.Events() {
		if ev.Status == buildpipeline.StatusCached {
			cachedEvents++
		}
	}
	if cachedEvents != 1 {
		t.Fatalf("expected one cached event, got %d", cachedEvents)
	}
}

func TestSettingsChangeInvalidatesCache(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "seven.hir")
	opts := testOptions(t)

	_ = CompileFile(context.Background(), path, opts)
	opts.Config.Codegen.Org = 0x100
	res := CompileFile(context.Background(), path, opts)
	if res.Cached {
		t.Fatal("a different org must not hit the cache")
	}
	if !strings.Contains(res.Asm, "[org 0x100]") {
		t.Fatalf("expected org directive:\n%s", res.Asm)
	}
}

func TestDisabledCacheIsNotUsed(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "seven.hir")
	opts := testOptions(t)
	opts.Config.Build.Cache = false

	_ = CompileFile(context.Background(), path, opts)
	if res := CompileFile(context.Background(), path, opts); res.Cached {
		t.Fatal("cache disabled in config")
	}
}

func TestCorruptCacheEntryIsRebuilt(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "seven.hir")
	opts := testOptions(t)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	entry := opts.Cache.pathFor(unitKey(data, &opts.Config))
	if err := os.MkdirAll(filepath.Dir(entry), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(entry, []byte{0xc1}, 0o644); err != nil {
		t.Fatal(err)
	}

	res := CompileFile(context.Background(), path, opts)
	if res.Cached || res.Failed() {
		t.Fatalf("cached=%v failed=%v", res.Cached, res.Failed())
	}
	if got := codes(res.Bag); len(got) != 1 || got[0] != diag.DrvCacheCorrupt {
		t.Fatalf("expected a cache warning, got %v", got)
	}
	if again := CompileFile(context.Background(), path, opts); !again.Cached {
		t.Fatal("the rebuilt entry should replace the corrupt one")
	}
}

func TestCompileFileInputErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "bad.hir")
	if err := os.WriteFile(garbage, []byte("not a tree"), 0o644); err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		path string
		code diag.Code
	}{
		{filepath.Join(dir, "missing.hir"), diag.DrvReadInput},
		{garbage, diag.DrvDecodeInput},
	}
	for _, tt := range tests {
		res := CompileFile(context.Background(), tt.path, DefaultOptions())
		if got := codes(res.Bag); len(got) != 1 || got[0] != tt.code {
			t.Errorf("%s: got %v, want %s", tt.path, got, tt.code.ID())
		}
	}
}

func TestCompileFilesKeepsOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"c.hir", "a.hir", "b.hir"} {
		paths = append(paths, writeUnit(t, dir, name))
	}
	opts := DefaultOptions()
	opts.Jobs = 2
	results, err := CompileFiles(context.Background(), paths, opts)
	if err != nil {
		t.Fatalf("CompileFiles: %v", err)
	}
	for i, r := range results {
		if r.Path != paths[i] {
			t.Fatalf("result %d: got %s, want %s", i, r.Path, paths[i])
		}
		if r.Failed() {
			t.Fatalf("%s failed: %v", r.Path, codes(r.Bag))
		}
	}
}

func TestCompileFilesHonoursCancellation(t *testing.T) {
	dir := t.TempDir()
	path := writeUnit(t, dir, "seven.hir")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := CompileFiles(ctx, []string{path}, DefaultOptions())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation, got %v", err)
	}
	if results[0] != nil {
		t.Fatal("cancelled units produce no result")
	}
}

func TestListInputsExpandsDirectories(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	writeUnit(t, dir, "b.hir")
	writeUnit(t, sub, "a.hir")
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := ListInputs([]string{dir})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{filepath.Join(dir, "b.hir"), filepath.Join(sub, "a.hir")}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestBackendErrorsBecomeDiagnostics(t *testing.T) {
	err := errors.Join(
		&x86.Error{Code: diag.BackUnknownBuiltin, Func: "f", Op: "call", Name: "__builtin_nope", Msg: "unknown builtin"},
		&x86.Error{Code: diag.BackFrameExhausted, Func: "g", Msg: "frame too large"},
	)
	bag := diag.NewBag(8)
	reportError(bag, "unit.hir", err)
	items := bag.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d", len(items))
	}
	if items[0].Subject != "f" || len(items[0].Notes) != 2 || items[0].Primary.File != "unit.hir" {
		t.Fatalf("unexpected first diagnostic: %+v", items[0])
	}
	if items[1].Code != diag.BackFrameExhausted || items[1].Subject != "g" {
		t.Fatalf("unexpected second diagnostic: %+v", items[1])
	}
}

func TestWriteResult(t *testing.T) {
	out := filepath.Join(t.TempDir(), "build")
	res := &Result{Path: "src/seven.hir", Asm: "[bits 16]\n"}
	path, err := WriteResult(res, out, nil)
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(out, "seven.asm") {
		t.Fatalf("unexpected output path %s", path)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != res.Asm {
		t.Fatalf("read back %q, %v", data, err)
	}
	if path, err := WriteResult(&Result{Path: "empty.hir"}, out, nil); path != "" || err != nil {
		t.Fatalf("empty units write nothing, got %q %v", path, err)
	}
}
