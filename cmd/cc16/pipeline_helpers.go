package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"cc16/internal/diag"
	"cc16/internal/diagfmt"
	"cc16/internal/driver"
	"cc16/internal/project"
)

const cacheApp = "cc16"

// loadConfig reads --config, or cc16.toml found upward from the working
// directory, or the defaults.
func loadConfig(cmd *cobra.Command) (project.Config, error) {
	path, err := cmd.Root().PersistentFlags().GetString("config")
	if err != nil {
		return project.Config{}, err
	}
	var cfg project.Config
	if path != "" {
		cfg, err = project.Load(path)
	} else {
		cfg, err = project.Discover(".")
	}
	if err != nil {
		return project.Config{}, fmt.Errorf("%s: %w", diag.DrvConfigInvalid.ID(), err)
	}
	return cfg, nil
}

// setupColor applies --color to every colored writer.
func setupColor(cmd *cobra.Command) (bool, error) {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	mode, err := readUIMode(value)
	if err != nil {
		return false, fmt.Errorf("--color: %w", err)
	}
	enabled := resolveMode(mode, os.Stderr)
	color.NoColor = !enabled
	return enabled, nil
}

// driverOptions merges the command line into cfg.
func driverOptions(cmd *cobra.Command, cfg project.Config) (driver.Options, error) {
	opts := driver.DefaultOptions()
	opts.Config = cfg

	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return opts, fmt.Errorf("failed to get max-diagnostics flag: %w", err)
	}
	opts.MaxDiagnostics = maxDiagnostics

	if cmd.Flags().Lookup("jobs") != nil {
		if opts.Jobs, err = cmd.Flags().GetInt("jobs"); err != nil {
			return opts, err
		}
	}
	noCache := false
	if cmd.Flags().Lookup("no-cache") != nil {
		if noCache, err = cmd.Flags().GetBool("no-cache"); err != nil {
			return opts, err
		}
	}
	if cfg.Build.Cache && !noCache {
		cache, err := driver.OpenDiskCache(cacheApp)
		if err != nil {
			return opts, fmt.Errorf("%s: open cache: %w", diag.DrvCacheCorrupt.ID(), err)
		}
		opts.Cache = cache
	}

	format, err := cmd.Root().PersistentFlags().GetString("format")
	if err != nil {
		return opts, err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return opts, err
	}
	// json consumers get the phase breakdown as DRV7000 notes
	opts.Timings = timings && format == "json"
	return opts, nil
}

// printDiagnostics renders every unit's diagnostics as one sorted list.
func printDiagnostics(cmd *cobra.Command, out io.Writer, results []*driver.Result, colored bool) error {
	flags := cmd.Root().PersistentFlags()
	format, err := flags.GetString("format")
	if err != nil {
		return err
	}
	maxDiagnostics, err := flags.GetInt("max-diagnostics")
	if err != nil {
		return err
	}

	all := diag.NewBag(maxDiagnostics)
	for _, r := range results {
		if r != nil {
			all.Merge(r.Bag)
		}
	}
	all.Sort()

	switch strings.ToLower(format) {
	case "pretty":
		return diagfmt.Pretty(out, all, diagfmt.PrettyOpts{Color: colored, PathMode: diagfmt.PathModeRelative, ShowNotes: true})
	case "short":
		return diagfmt.Short(out, all)
	case "json":
		return diagfmt.JSON(out, all, diagfmt.JSONOpts{PathMode: diagfmt.PathModeRelative, Max: maxDiagnostics, IncludeNotes: true})
	default:
		return fmt.Errorf("unsupported format %q (must be pretty, short or json)", format)
	}
}

func countFailed(results []*driver.Result) int {
	n := 0
	for _, r := range results {
		if r == nil || r.Failed() {
			n++
		}
	}
	return n
}
