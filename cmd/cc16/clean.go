package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"cc16/internal/driver"
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove the build cache and the output directory",
	Args:  cobra.NoArgs,
	RunE:  runClean,
}

func init() {
	cleanCmd.Flags().Bool("cache-only", false, "keep the output directory")
}

func runClean(cmd *cobra.Command, _ []string) error {
	cacheOnly, err := cmd.Flags().GetBool("cache-only")
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	cache, err := driver.OpenDiskCache(cacheApp)
	if err != nil {
		return fmt.Errorf("failed to open cache: %w", err)
	}
	if err := cache.DropAll(); err != nil {
		return fmt.Errorf("failed to drop %q: %w", cache.Dir(), err)
	}
	fmt.Fprintf(out, "dropped cache %s\n", cache.Dir())
	if cacheOnly {
		return nil
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	outDir := cfg.OutDir()
	info, err := os.Stat(outDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(out, "output directory not found\n")
			return nil
		}
		return fmt.Errorf("failed to stat %q: %w", outDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", outDir)
	}
	if err := os.RemoveAll(outDir); err != nil {
		return fmt.Errorf("failed to remove %q: %w", outDir, err)
	}
	fmt.Fprintf(out, "removed %s\n", outDir)
	return nil
}
