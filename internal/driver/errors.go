package driver

import (
	"errors"
	"fmt"

	"cc16/internal/backend/x86"
	"cc16/internal/diag"
	"cc16/internal/irgen"
	"cc16/internal/source"
)

// Error is an input/output failure of the driver itself.
type Error struct {
	Code diag.Code
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Code.ID(), e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// flatten expands errors.Join trees into their leaves.
func flatten(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []error
		for _, e := range joined.Unwrap() {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}

// reportError adds one diagnostic per leaf of err.
func reportError(bag *diag.Bag, file string, err error) {
	for _, e := range flatten(err) {
		bag.Add(diagnosticFor(file, e))
	}
}

func diagnosticFor(file string, err error) diag.Diagnostic {
	var (
		drvErr *Error
		genErr *irgen.Error
		bckErr *x86.Error
	)
	switch {
	case errors.As(err, &drvErr):
		return diag.NewError(drvErr.Code, source.Span{File: drvErr.Path}, drvErr.Err.Error())
	case errors.As(err, &genErr):
		sp := genErr.Span
		if sp.File == "" {
			sp.File = file
		}
		d := diag.NewError(genErr.Code, sp, genErr.Msg)
		if genErr.Func != "" {
			d = d.WithSubject(genErr.Func)
		}
		if genErr.Name != "" {
			d = d.WithNote(sp, "name: "+genErr.Name)
		}
		return d
	case errors.As(err, &bckErr):
		d := diag.NewError(bckErr.Code, source.Span{File: file}, bckErr.Msg).WithSubject(bckErr.Func)
		if bckErr.Op != "" {
			d = d.WithNote(source.Span{}, "while lowering "+bckErr.Op)
		}
		if bckErr.Name != "" {
			d = d.WithNote(source.Span{}, "name: "+bckErr.Name)
		}
		return d
	default:
		return diag.NewError(diag.DrvInfo, source.Span{File: file}, err.Error())
	}
}
