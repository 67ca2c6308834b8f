package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cc16/internal/hir"
)

func TestReadUIMode(t *testing.T) {
	tests := []struct {
		in      string
		want    uiMode
		wantErr bool
	}{
		{"", uiModeAuto, false},
		{"AUTO", uiModeAuto, false},
		{" on ", uiModeOn, false},
		{"off", uiModeOff, false},
		{"sometimes", "", true},
	}
	for _, tt := range tests {
		got, err := readUIMode(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("readUIMode(%q) = %q, %v", tt.in, got, err)
		}
	}
}

// fixture writes a unit and a cache-less config into a temp dir.
func fixture(t *testing.T) (cfgPath, unitPath string) {
	t.Helper()
	dir := t.TempDir()
	cfgPath = filepath.Join(dir, "cc16.toml")
	if err := os.WriteFile(cfgPath, []byte("[build]\ncache = false\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	b := hir.NewBuilder(nil)
	bt := b.Types.Builtins()
	unit := b.Unit("seven.c", nil, b.Func("seven", bt.Int, nil, b.Return(b.Int(7))))
	unitPath = filepath.Join(dir, "seven.hir")
	if err := hir.WriteFile(unitPath, unit); err != nil {
		t.Fatal(err)
	}
	return cfgPath, unitPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestBuildWritesAssembly(t *testing.T) {
	cfg, unit := fixture(t)
	outDir := filepath.Join(t.TempDir(), "out")

	out, err := run(t, "build", "--config", cfg, "--color", "off", "--ui", "off", "-o", outDir, unit)
	if err != nil {
		t.Fatalf("build: %v\n%s", err, out)
	}
	asm, err := os.ReadFile(filepath.Join(outDir, "seven.asm"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(asm), "_seven:\n") {
		t.Fatalf("unexpected assembly:\n%s", asm)
	}
	if !strings.Contains(out, "wrote ") {
		t.Fatalf("expected a wrote line, got %q", out)
	}
}

func TestBuildReportsBadInput(t *testing.T) {
	cfg, _ := fixture(t)
	bad := filepath.Join(t.TempDir(), "bad.hir")
	if err := os.WriteFile(bad, []byte("garbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err := run(t, "build", "--config", cfg, "--color", "off", "--ui", "off", "--format", "short", "-o", t.TempDir(), bad)
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(out, "DRV7002") {
		t.Fatalf("expected a decode diagnostic, got %q", out)
	}
	// flags persist on the shared root command
	_ = rootCmd.PersistentFlags().Set("format", "pretty")
}

func TestIRCommandPrintsSegments(t *testing.T) {
	cfg, unit := fixture(t)
	out, err := run(t, "ir", "--config", cfg, "--color", "off", "--asm", unit)
	if err != nil {
		t.Fatalf("ir: %v\n%s", err, out)
	}
	if !strings.Contains(out, "seven") || !strings.Contains(out, "mov ax, 7") {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestVersionJSON(t *testing.T) {
	out, err := run(t, "version", "--format", "json")
	if err != nil {
		t.Fatal(err)
	}
	var payload versionPayload
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if payload.Tool != "cc16" || payload.CacheKey == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
	versionFormat = "pretty"
}
