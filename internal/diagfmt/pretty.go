package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"cc16/internal/diag"
	"cc16/internal/source"
)

var (
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	codeColor    = color.New(color.Bold)
	noteColor    = color.New(color.Faint)
)

// Pretty writes diagnostics in human-readable form, one header per entry:
//
//	<path>:<line>:<col>: <SEV> <CODE>: <Message> [subject]
//
// followed by indented notes. Expects bag.Sort() to have been called.
func Pretty(w io.Writer, bag *diag.Bag, opts PrettyOpts) error {
	if bag == nil {
		return nil
	}
	for _, d := range bag.Items() {
		if _, err := io.WriteString(w, prettyOne(&d, opts)); err != nil {
			return err
		}
	}
	return nil
}

func prettyOne(d *diag.Diagnostic, opts PrettyOpts) string {
	var sb strings.Builder
	sb.WriteString(location(d.Primary, opts.PathMode, opts.BaseDir))
	sb.WriteString(": ")
	sb.WriteString(paint(opts.Color, severityColor(d.Severity), d.Severity.String()))
	sb.WriteString(" ")
	sb.WriteString(paint(opts.Color, codeColor, d.Code.ID()))
	sb.WriteString(": ")
	msg := d.Message
	if d.Subject != "" {
		msg += " [" + d.Subject + "]"
	}
	if opts.Width > 0 {
		msg = runewidth.Truncate(msg, opts.Width, "…")
	}
	sb.WriteString(msg)
	sb.WriteByte('\n')
	if opts.ShowNotes {
		for _, n := range d.Notes {
			prefix := "  note: "
			if n.Span.Known() {
				prefix = "  " + location(n.Span, opts.PathMode, opts.BaseDir) + ": note: "
			}
			sb.WriteString(paint(opts.Color, noteColor, prefix))
			sb.WriteString(n.Msg)
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

// Short writes one uncolored line per diagnostic: "CODE subject: message".
func Short(w io.Writer, bag *diag.Bag) error {
	if bag == nil {
		return nil
	}
	for _, d := range bag.Items() {
		line := d.Code.ID()
		if d.Subject != "" {
			line += " " + d.Subject
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", line, d.Message); err != nil {
			return err
		}
	}
	return nil
}

func location(sp source.Span, mode PathMode, base string) string {
	path := formatPath(sp.File, mode, base)
	switch {
	case path == "":
		return "<unit>"
	case !sp.Known():
		return path
	}
	return fmt.Sprintf("%s:%d:%d", path, sp.Start.Line, sp.Start.Col)
}

func severityColor(sev diag.Severity) *color.Color {
	switch sev {
	case diag.SevError:
		return errorColor
	case diag.SevWarning:
		return warningColor
	}
	return infoColor
}

// paint colors s regardless of color.NoColor when enabled; the caller has
// already decided whether the output is a terminal.
func paint(enabled bool, c *color.Color, s string) string {
	if !enabled {
		return s
	}
	c.EnableColor()
	return c.Sprint(s)
}
