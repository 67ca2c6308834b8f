package driver

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"cc16/internal/buildpipeline"
	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/source"
	"cc16/internal/trace"
)

// InputExt is the extension of msgpack-encoded typed trees.
const InputExt = ".hir"

// CompileFile reads a typed tree from path and compiles it, serving the
// result from the cache when the tree, the settings and the compiler are
// unchanged.
func CompileFile(ctx context.Context, path string, opts Options) *Result {
	ctx, span := trace.StartSpan(ctx, trace.ScopeUnit, "file "+path)
	u := newRun(ctx, &opts, path, unitName(path))

	_, done := u.phase(buildpipeline.StageRead)
	data, err := os.ReadFile(path)
	if err != nil {
		err = &Error{Code: diag.DrvReadInput, Path: path, Err: err}
		done(err)
		reportError(u.res.Bag, path, err)
		return u.finish(span)
	}

	key := unitKey(data, &opts.Config)
	if opts.cacheEnabled() {
		var payload DiskPayload
		hit, err := opts.Cache.Get(key, &payload)
		if err != nil {
			u.res.Bag.Add(diag.New(diag.SevWarning, diag.DrvCacheCorrupt, source.Span{File: path}, err.Error()))
		}
		if hit {
			done(nil)
			payloadToResult(&payload, u.res)
			buildpipeline.Emit(opts.Progress, buildpipeline.Event{File: path, Stage: buildpipeline.StageRead, Status: buildpipeline.StatusCached})
			return u.finish(span)
		}
	}

	unit, err := hir.Decode(bytes.NewReader(data))
	if err != nil {
		err = &Error{Code: diag.DrvDecodeInput, Path: path, Err: err}
	}
	done(err)
	if err != nil {
		reportError(u.res.Bag, path, err)
		return u.finish(span)
	}
	if unit.Name == "" {
		unit.Name = u.res.Name
	}
	u.res.Name = unit.Name

	u.compile(unit)
	if opts.cacheEnabled() && !u.res.Failed() {
		if err := opts.Cache.Put(key, resultToPayload(u.res)); err != nil {
			u.res.Bag.Add(diag.New(diag.SevWarning, diag.DrvCacheCorrupt, source.Span{File: path}, err.Error()))
		}
	}
	return u.finish(span)
}

func unitName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath maps an input tree to its assembly file under outDir.
func OutputPath(outDir, input string) string {
	return filepath.Join(outDir, unitName(input)+".asm")
}

// WriteResult stores res.Asm under outDir and returns the file written.
// Units without any assembly write nothing.
func WriteResult(res *Result, outDir string, sink buildpipeline.ProgressSink) (string, error) {
	if res.Asm == "" {
		return "", nil
	}
	label := res.Path
	if label == "" {
		label = res.Name
	}
	buildpipeline.Emit(sink, buildpipeline.Event{File: label, Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusWorking})
	out := OutputPath(outDir, label)
	err := os.MkdirAll(outDir, 0o755)
	if err == nil {
		err = os.WriteFile(out, []byte(res.Asm), 0o644)
	}
	if err != nil {
		err = &Error{Code: diag.DrvWriteOutput, Path: out, Err: err}
		buildpipeline.Emit(sink, buildpipeline.Event{File: label, Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusError, Err: err})
		return "", err
	}
	buildpipeline.Emit(sink, buildpipeline.Event{File: label, Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusDone})
	return out, nil
}

// DumpIR renders the optimized IR of res.
func DumpIR(res *Result) (string, error) {
	if res.IR == nil {
		return "", nil
	}
	var sb strings.Builder
	if err := ir.DumpSegments(&sb, res.IR); err != nil {
		return "", err
	}
	return sb.String(), nil
}

// ReportWriteError records a WriteResult failure on res.
func ReportWriteError(res *Result, err error) {
	reportError(res.Bag, res.Path, err)
}
