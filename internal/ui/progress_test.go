package ui

import (
	"errors"
	"strings"
	"testing"

	"cc16/internal/buildpipeline"
)

func TestApplyEventTracksStages(t *testing.T) {
	m := newProgressModel("build", []string{"a.hir", "b.hir"}, nil)

	m.applyEvent(buildpipeline.Event{File: "a.hir", Stage: buildpipeline.StageGenerate, Status: buildpipeline.StatusWorking})
	if got := m.items[0].status; got != "generating" {
		t.Fatalf("status: got %q", got)
	}
	m.applyEvent(buildpipeline.Event{File: "a.hir", Stage: buildpipeline.StageGenerate, Status: buildpipeline.StatusDone})
	if got := m.items[0].status; got != "generating" {
		t.Fatalf("a finished phase does not finish the unit, got %q", got)
	}
	m.applyEvent(buildpipeline.Event{File: "a.hir", Stage: buildpipeline.StageCodegen, Status: buildpipeline.StatusDone})
	if got := m.items[0].status; got != "done" {
		t.Fatalf("status after codegen: got %q", got)
	}
	if got := m.percent(); got != 0.5 {
		t.Fatalf("percent: got %v", got)
	}

	m.applyEvent(buildpipeline.Event{File: "b.hir", Stage: buildpipeline.StageCodegen, Status: buildpipeline.StatusError, Err: errors.New("boom")})
	m.applyEvent(buildpipeline.Event{File: "b.hir", Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusWorking})
	if got := m.items[1].status; got != "error" {
		t.Fatalf("errors stick, got %q", got)
	}
	if got := m.percent(); got != 1 {
		t.Fatalf("percent: got %v", got)
	}
}

func TestApplyEventIgnoresUnknownFiles(t *testing.T) {
	m := newProgressModel("build", []string{"a.hir"}, nil)
	if cmd := m.applyEvent(buildpipeline.Event{File: "other.hir", Status: buildpipeline.StatusCached}); cmd != nil {
		t.Fatal("unknown files produce no command")
	}
	if m.items[0].status != "queued" {
		t.Fatalf("unexpected status %q", m.items[0].status)
	}
}

func TestViewListsUnits(t *testing.T) {
	m := newProgressModel("build", []string{"a.hir"}, nil)
	m.applyEvent(buildpipeline.Event{File: "a.hir", Status: buildpipeline.StatusCached})
	m.done = true
	view := m.View()
	if !strings.Contains(view, "done: build") || !strings.Contains(view, "cached") || !strings.Contains(view, "a.hir") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"a/very/long/path.hir", 10, "a/ve..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}
