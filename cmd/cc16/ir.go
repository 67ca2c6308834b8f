package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"cc16/internal/driver"
)

var irCmd = &cobra.Command{
	Use:   "ir [flags] <file.hir>",
	Short: "Print the IR of a unit",
	Long:  "Print the code and data segments of a unit after optimization, or before it with --raw.",
	Args:  cobra.ExactArgs(1),
	RunE:  irExecution,
}

func init() {
	irCmd.Flags().Bool("raw", false, "skip the optimizer")
	irCmd.Flags().Bool("asm", false, "also print the generated assembly")
}

func irExecution(cmd *cobra.Command, args []string) (err error) {
	raw, err := cmd.Flags().GetBool("raw")
	if err != nil {
		return err
	}
	withAsm, err := cmd.Flags().GetBool("asm")
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
	if raw {
		cfg.Optimizer.Enabled = false
	}
	opts, err := driverOptions(cmd, cfg)
	if err != nil {
		return err
	}
	// the cache holds no IR
	opts.Cache = nil

	res := driver.CompileFile(cmd.Context(), args[0], opts)
	dump, err := driver.DumpIR(res)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if _, err := io.WriteString(out, dump); err != nil {
		return err
	}
	if withAsm && res.Asm != "" {
		fmt.Fprintf(out, "\n%s", res.Asm)
	}
	if err := printDiagnostics(cmd, cmd.ErrOrStderr(), []*driver.Result{res}, colored); err != nil {
		return err
	}
	if res.Failed() {
		return fmt.Errorf("%s failed", args[0])
	}
	return nil
}
