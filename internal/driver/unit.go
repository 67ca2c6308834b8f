package driver

import (
	"context"
	"time"

	"cc16/internal/backend/x86"
	"cc16/internal/buildpipeline"
	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/irgen"
	"cc16/internal/iropt"
	"cc16/internal/observ"
	"cc16/internal/trace"
)

// Result is the outcome of compiling one translation unit.
type Result struct {
	// Path is the input file; empty for units compiled in memory.
	Path string
	Name string
	// Asm holds every function that compiled, even when others failed.
	Asm string
	// IR is the optimized IR. It is nil for cached units.
	IR     *ir.Segments
	Bag    *diag.Bag
	Timing *observ.Report
	Cached bool
}

// Failed reports whether any error diagnostic was recorded.
func (r *Result) Failed() bool {
	return r.Bag.HasErrors()
}

type unitRun struct {
	ctx   context.Context
	opts  *Options
	res   *Result
	timer *observ.Timer
}

func newRun(ctx context.Context, opts *Options, path, name string) *unitRun {
	return &unitRun{
		ctx:   ctx,
		opts:  opts,
		res:   &Result{Path: path, Name: name, Bag: diag.NewBag(opts.maxDiagnostics())},
		timer: observ.NewTimer(),
	}
}

func (u *unitRun) label() string {
	if u.res.Path != "" {
		return u.res.Path
	}
	return u.res.Name
}

// phase opens a timer entry, a trace span, an observer event and a
// progress event; the returned function closes all four.
func (u *unitRun) phase(stage buildpipeline.Stage) (context.Context, func(error)) {
	name := string(stage)
	idx := u.timer.Begin(name)
	ctx, span := trace.StartSpan(u.ctx, trace.ScopePass, name)
	start := time.Now()
	u.opts.observe(PhaseEvent{Unit: u.label(), Name: name, Status: PhaseStart})
	buildpipeline.Emit(u.opts.Progress, buildpipeline.Event{File: u.label(), Stage: stage, Status: buildpipeline.StatusWorking})

	return ctx, func(err error) {
		status, note := buildpipeline.StatusDone, ""
		if err != nil {
			status, note = buildpipeline.StatusError, "failed"
		}
		u.timer.End(idx, note)
		span.End(note)
		elapsed := time.Since(start)
		u.opts.observe(PhaseEvent{Unit: u.label(), Name: name, Status: PhaseEnd, Elapsed: elapsed})
		buildpipeline.Emit(u.opts.Progress, buildpipeline.Event{
			File: u.label(), Stage: stage, Status: status, Err: err, Elapsed: elapsed,
		})
	}
}

// compile runs generate, optimize and codegen. Generator errors stop the
// unit; backend errors only drop the failing functions.
func (u *unitRun) compile(unit *hir.Unit) {
	cfg := &u.opts.Config

	_, done := u.phase(buildpipeline.StageGenerate)
	segs, err := irgen.Generate(unit, cfg.GeneratorConfig())
	done(err)
	if err != nil {
		reportError(u.res.Bag, u.res.Path, err)
		return
	}

	if cfg.Optimizer.Enabled {
		ctx, done := u.phase(buildpipeline.StageOptimize)
		oo := cfg.OptimizerOptions()
		oo.Reporter = diag.NewDedupReporter(diag.BagReporter{Bag: u.res.Bag})
		oo.Tracer = trace.FromContext(ctx)
		oo.Parent = trace.CurrentSpan(ctx)
		segs = iropt.OptimizeSegments(segs, oo)
		done(nil)
	}
	u.res.IR = segs

	ctx, done := u.phase(buildpipeline.StageCodegen)
	bo := cfg.BackendOptions()
	bo.Tracer = trace.FromContext(ctx)
	bo.Parent = trace.CurrentSpan(ctx)
	asm, err := x86.CompileBackend(segs, bo)
	done(err)
	u.res.Asm = asm
	if err != nil {
		reportError(u.res.Bag, u.res.Path, err)
	}
}

func (u *unitRun) finish(span *trace.Span) *Result {
	report := u.timer.Report()
	u.res.Timing = &report
	if u.opts.Timings {
		appendTimingDiagnostic(u.res.Bag, timingPayload{Path: u.label(), TotalMS: report.TotalMS, Phases: report.Phases})
	}
	u.res.Bag.Sort()
	u.res.Bag.Dedup()
	detail := "ok"
	switch {
	case u.res.Failed():
		detail = "failed"
	case u.res.Cached:
		detail = "cached"
	}
	span.End(detail)
	return u.res
}

// CompileUnit compiles an in-memory unit. It never consults the cache.
func CompileUnit(ctx context.Context, unit *hir.Unit, opts Options) *Result {
	name := ""
	if unit != nil {
		name = unit.Name
	}
	ctx, span := trace.StartSpan(ctx, trace.ScopeUnit, "unit "+name)
	u := newRun(ctx, &opts, "", name)
	u.compile(unit)
	return u.finish(span)
}
