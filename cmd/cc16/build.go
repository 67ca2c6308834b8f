package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cc16/internal/driver"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] <file.hir|dir>...",
	Short: "Compile typed trees to NASM assembly",
	Long:  "Compile msgpack-encoded typed trees (*.hir) into one .asm file per unit.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  buildExecution,
}

func init() {
	buildCmd.Flags().StringP("out", "o", "", "output directory (default: build.out_dir)")
	buildCmd.Flags().IntP("jobs", "j", 0, "parallel units (default: build.jobs, 0 = one per CPU)")
	buildCmd.Flags().Bool("no-cache", false, "ignore and do not update the build cache")
	buildCmd.Flags().String("ui", "auto", "progress UI (auto|on|off)")
}

func buildExecution(cmd *cobra.Command, args []string) (err error) {
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	uiModeValue, err := readUIMode(uiValue)
	if err != nil {
		return fmt.Errorf("--ui: %w", err)
	}
	outFlag, err := cmd.Flags().GetString("out")
	if err != nil {
		return err
	}
	quiet, err := cmd.Root().PersistentFlags().GetBool("quiet")
	if err != nil {
		return err
	}
	timings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	colored, err := setupColor(cmd)
	if err != nil {
		return err
	}

	cleanup, err := setupTracing(cmd)
	if err != nil {
		return err
	}
	defer func() { cleanup(err != nil) }()
	stopProfiles, err := setupProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiles()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	opts, err := driverOptions(cmd, cfg)
	if err != nil {
		return err
	}
	files, err := driver.ListInputs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no %s files in %v", driver.InputExt, args)
	}

	var results []*driver.Result
	if !quiet && resolveMode(uiModeValue, os.Stdout) {
		results, err = runBuildWithUI(cmd.Context(), "cc16 build", files, opts)
	} else {
		results, err = driver.CompileFiles(cmd.Context(), files, opts)
	}
	if err != nil {
		return err
	}

	outDir := outFlag
	if outDir == "" {
		outDir = cfg.OutDir()
	}
	out := cmd.OutOrStdout()
	for _, res := range results {
		path, err := driver.WriteResult(res, outDir, nil)
		if err != nil {
			driver.ReportWriteError(res, err)
			continue
		}
		if path != "" && !quiet {
			fmt.Fprintf(out, "wrote %s\n", path)
		}
	}

	if err := printDiagnostics(cmd, cmd.ErrOrStderr(), results, colored); err != nil {
		return err
	}
	if timings && !opts.Timings {
		printUnitTimings(cmd.ErrOrStderr(), results)
	}
	if failed := countFailed(results); failed > 0 {
		return fmt.Errorf("%d of %d units failed", failed, len(results))
	}
	return nil
}
