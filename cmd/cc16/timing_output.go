package main

import (
	"fmt"
	"io"
	"strings"

	"cc16/internal/driver"
)

func printUnitTimings(out io.Writer, results []*driver.Result) {
	if out == nil {
		return
	}
	for _, r := range results {
		if r == nil || r.Timing == nil {
			continue
		}
		parts := make([]string, 0, len(r.Timing.Phases))
		for _, p := range r.Timing.Phases {
			parts = append(parts, fmt.Sprintf("%s %.1f ms", p.Name, p.DurationMS))
		}
		label := r.Path
		if label == "" {
			label = r.Name
		}
		suffix := ""
		if r.Cached {
			suffix = " (cached)"
		}
		fmt.Fprintf(out, "%s: %.1f ms%s [%s]\n", label, r.Timing.TotalMS, suffix, strings.Join(parts, ", "))
	}
}
