package ir

import (
	"errors"
	"fmt"
)

// Validate checks the structural invariants of a block: every temporary and
// every declared variable is defined once, every read variable is defined,
// labels are unique and every jump target exists.
func Validate(f *Func) error {
	var errs []error
	defined := make(map[VarKey]struct{}, len(f.Instrs))
	labels := make(map[string]struct{})
	for _, p := range f.Params {
		defined[p.Key()] = struct{}{}
	}
	for i := range f.Instrs {
		ins := &f.Instrs[i]
		if out, ok := ins.Output(); ok {
			if _, dup := defined[out.Key()]; dup {
				errs = append(errs, fmt.Errorf("%s: #%d redefines %s", f.Name, i, out))
			}
			defined[out.Key()] = struct{}{}
		}
		if ins.Kind == InstrLabel {
			if _, dup := labels[ins.Label.Name]; dup {
				errs = append(errs, fmt.Errorf("%s: duplicate label %s", f.Name, ins.Label.Name))
			}
			labels[ins.Label.Name] = struct{}{}
		}
		if ins.Kind == InstrDefData {
			errs = append(errs, fmt.Errorf("%s: #%d def-data inside a function", f.Name, i))
		}
	}
	for i := range f.Instrs {
		ins := &f.Instrs[i]
		for _, op := range ins.Inputs() {
			if !op.IsVar() {
				continue
			}
			if _, ok := defined[op.Var.Key()]; !ok {
				errs = append(errs, fmt.Errorf("%s: #%d reads undefined %s", f.Name, i, op.Var))
			}
		}
		for _, t := range ins.Targets() {
			if _, ok := labels[t]; !ok {
				errs = append(errs, fmt.Errorf("%s: #%d jumps to missing label %s", f.Name, i, t))
			}
		}
	}
	return errors.Join(errs...)
}

// ValidateSegments validates every function and checks data labels are unique.
func ValidateSegments(s *Segments) error {
	var errs []error
	for _, f := range s.Code.Funcs() {
		if err := Validate(f); err != nil {
			errs = append(errs, err)
		}
	}
	seen := make(map[string]struct{}, len(s.Data.Defs))
	for i := range s.Data.Defs {
		d := &s.Data.Defs[i]
		if d.Kind != InstrDefData {
			errs = append(errs, fmt.Errorf("data segment: #%d is %s", i, d.Kind))
			continue
		}
		if _, dup := seen[d.DefData.Label]; dup {
			errs = append(errs, fmt.Errorf("data segment: duplicate label %s", d.DefData.Label))
		}
		seen[d.DefData.Label] = struct{}{}
	}
	return errors.Join(errs...)
}
