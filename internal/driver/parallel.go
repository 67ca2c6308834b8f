package driver

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"cc16/internal/buildpipeline"
	"cc16/internal/trace"
)

// ListInputs expands directories into the sorted *.hir files below them.
// Plain file arguments are kept as given.
func ListInputs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		var found []string
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.HasSuffix(path, InputExt) {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		// Сортируем для детерминированного порядка
		sort.Strings(found)
		files = append(files, found...)
	}
	return files, nil
}

// CompileFiles compiles every path concurrently. Results keep the order of
// paths; a unit's failures live in its own Bag. The error is only set when
// ctx is cancelled.
func CompileFiles(ctx context.Context, paths []string, opts Options) ([]*Result, error) {
	results := make([]*Result, len(paths))
	if len(paths) == 0 {
		return results, nil
	}
	ctx, span := trace.StartSpan(ctx, trace.ScopeDriver, "build")

	for _, p := range paths {
		buildpipeline.Emit(opts.Progress, buildpipeline.Event{File: p, Stage: buildpipeline.StageRead, Status: buildpipeline.StatusQueued})
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs(len(paths)))
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = CompileFile(gctx, p, opts)
			return nil
		})
	}
	err := g.Wait()

	failed := 0
	for _, r := range results {
		if r != nil && r.Failed() {
			failed++
		}
	}
	span.End(fmt.Sprintf("%d units, %d failed", len(paths), failed))
	return results, err
}
