// Package iropt rewrites IR blocks with an ordered list of passes run to a
// fixed point. Passes never fail: shapes they do not recognize are copied
// through unchanged.
package iropt

import (
	"fmt"

	"cc16/internal/diag"
	"cc16/internal/ir"
	"cc16/internal/trace"
	"cc16/internal/types"
)

const DefaultMaxIterations = 4

// Options configures the optimizer. The zero value runs every pass with the
// default iteration cap and no byte-store merging.
type Options struct {
	MaxIterations   int
	MergeByteStores bool
	// Types supplies the word type for merged byte stores. Merging is
	// skipped without it.
	Types    *types.Interner
	Reporter diag.Reporter
	Tracer   trace.Tracer
	// Parent is the trace span the per-round events hang off.
	Parent uint64
}

func DefaultOptions() Options {
	return Options{MaxIterations: DefaultMaxIterations, MergeByteStores: true}
}

type passContext struct {
	opts Options
	fn   *ir.Func
}

// warn reports through the configured reporter; duplicates are expected to
// be filtered by the caller's DedupReporter.
func (pc *passContext) warn(code diag.Code, subject, msg string) {
	if pc.opts.Reporter == nil {
		return
	}
	diag.ReportWarning(pc.opts.Reporter, code, pc.fn.Span, msg).WithSubject(subject).Emit()
}

type pass struct {
	name string
	run  func(*passContext, []ir.Instr) []ir.Instr
}

// passes run in this order; later passes rely on the normal form produced
// by earlier ones.
var passes = []pass{
	{"fold-address-offsets", foldAddressOffsets},
	{"drop-redundant-labels", dropRedundantLabels},
	{"drop-dead-stores", dropDeadStores},
	{"concat-constants", concatConstants},
	{"drop-redundant-addresses", dropRedundantAddresses},
	{"drop-orphan-outputs", dropOrphanOutputs},
	{"flip-operands", flipOperands},
}

// Optimize returns a rewritten copy of fn. Rounds repeat while they change
// the block, up to MaxIterations.
func Optimize(fn *ir.Func, opts Options) *ir.Func {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = DefaultMaxIterations
	}
	out := fn.Clone()
	pc := &passContext{opts: opts, fn: out}
	for round := range opts.MaxIterations {
		before := out.Instrs
		next := ir.CloneInstrs(before)
		for _, p := range passes {
			next = p.run(pc, next)
		}
		out.Instrs = next
		if opts.Tracer != nil {
			trace.Point(opts.Tracer, trace.ScopeFunc, "opt-round",
				fmt.Sprintf("%s round %d: %d -> %d", fn.Name, round+1, len(before), len(next)), opts.Parent)
		}
		// Stop on an unchanged block, not on one that merely did not
		// shrink: flip-operands rewrites in place. MaxIterations bounds it.
		if ir.EqualInstrs(before, next) {
			break
		}
	}
	return out
}

// OptimizeSegments optimizes every function. The data segment is copied
// unchanged.
func OptimizeSegments(segs *ir.Segments, opts Options) *ir.Segments {
	if opts.Types == nil {
		opts.Types = segs.Types
	}
	out := ir.NewSegments(segs.Types)
	for _, f := range segs.Code.Funcs() {
		out.Code.Add(Optimize(f, opts))
	}
	out.Data.Defs = ir.CloneInstrs(segs.Data.Defs)
	return out
}
