// Package buildpipeline carries progress events from the driver to
// whatever renders them.
package buildpipeline

import "time"

// Stage describes a phase of compiling one translation unit.
type Stage string

const (
	// StageRead loads and decodes the typed tree.
	StageRead     Stage = "read"
	StageGenerate Stage = "generate"
	StageOptimize Stage = "optimize"
	StageCodegen  Stage = "codegen"
	// StageWrite stores the assembly next to the other outputs.
	StageWrite Stage = "write"
)

// Status captures progress state within a stage.
type Status string

const (
	// StatusQueued indicates the task is waiting to start.
	StatusQueued Status = "queued"
	// StatusWorking indicates the task is currently working.
	StatusWorking Status = "working"
	// StatusCached marks a unit served from the build cache.
	StatusCached Status = "cached"
	StatusDone   Status = "done"
	// StatusError indicates the task encountered an error.
	StatusError Status = "error"
)

// Event reports progress for a file (or for the whole build when File is
// empty).
type Event struct {
	File    string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events. Implementations must be safe for
// concurrent use: units report from their own goroutines.
type ProgressSink interface {
	OnEvent(Event)
}

// Emit sends ev when sink is set.
func Emit(sink ProgressSink, ev Event) {
	if sink != nil {
		sink.OnEvent(ev)
	}
}
