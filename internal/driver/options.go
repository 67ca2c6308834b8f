// Package driver runs translation units through the generator, the
// optimizer and the backend, and turns every failure into diagnostics.
package driver

import (
	"runtime"

	"cc16/internal/buildpipeline"
	"cc16/internal/project"
)

const defaultMaxDiagnostics = 256

// Options configures a build.
type Options struct {
	Config project.Config
	// Cache, when set and enabled in Config, serves unchanged units.
	Cache *DiskCache
	// Jobs overrides build.jobs when positive.
	Jobs           int
	MaxDiagnostics int
	// Timings appends one DRV7000 note per unit with the phase durations.
	Timings  bool
	Progress buildpipeline.ProgressSink
	Observer PhaseObserver
}

// DefaultOptions uses the built-in configuration without a cache.
func DefaultOptions() Options {
	return Options{Config: project.Default(), MaxDiagnostics: defaultMaxDiagnostics}
}

func (o *Options) maxDiagnostics() int {
	if o.MaxDiagnostics > 0 {
		return o.MaxDiagnostics
	}
	return defaultMaxDiagnostics
}

func (o *Options) cacheEnabled() bool {
	return o.Cache != nil && o.Config.Build.Cache
}

func (o *Options) jobs(n int) int {
	jobs := o.Jobs
	if jobs <= 0 {
		jobs = o.Config.Build.Jobs
	}
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	return max(1, min(jobs, n))
}

func (o *Options) observe(ev PhaseEvent) {
	if o.Observer != nil {
		o.Observer(ev)
	}
}
