package x86

import "cc16/internal/trace"

// Options controls the text around the generated code.
type Options struct {
	// BitsDirective emits "[bits 16]" first.
	BitsDirective bool
	// Org, when non-zero, emits "[org Org]".
	Org    int
	Tracer trace.Tracer
	// Parent is the trace span per-function spans hang off.
	Parent uint64
}

func DefaultOptions() Options {
	return Options{BitsDirective: true}
}
