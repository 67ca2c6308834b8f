package ir

import (
	"cc16/internal/types"
)

// CodeSegment maps function names to blocks and remembers definition order.
type CodeSegment struct {
	funcs map[string]*Func
	order []string
}

func NewCodeSegment() *CodeSegment {
	return &CodeSegment{funcs: make(map[string]*Func)}
}

// Add stores f, replacing any previous block with the same name.
func (c *CodeSegment) Add(f *Func) {
	if _, ok := c.funcs[f.Name]; !ok {
		c.order = append(c.order, f.Name)
	}
	c.funcs[f.Name] = f
}

func (c *CodeSegment) Get(name string) (*Func, bool) {
	f, ok := c.funcs[name]
	return f, ok
}

// Funcs returns blocks in definition order.
func (c *CodeSegment) Funcs() []*Func {
	out := make([]*Func, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.funcs[name])
	}
	return out
}

func (c *CodeSegment) Len() int {
	return len(c.order)
}

// DataSegment is the ordered list of def-data instructions.
type DataSegment struct {
	Defs []Instr
}

func (d *DataSegment) Add(def DefDataInstr) {
	d.Defs = append(d.Defs, Instr{Kind: InstrDefData, DefData: def})
}

// Lookup finds a definition by label.
func (d *DataSegment) Lookup(label string) (*DefDataInstr, bool) {
	for i := range d.Defs {
		if d.Defs[i].DefData.Label == label {
			return &d.Defs[i].DefData, true
		}
	}
	return nil, false
}

// Segments is the output of IR generation for one translation unit.
type Segments struct {
	Types *types.Interner
	Code  *CodeSegment
	Data  *DataSegment
}

func NewSegments(in *types.Interner) *Segments {
	return &Segments{Types: in, Code: NewCodeSegment(), Data: &DataSegment{}}
}

// Clone returns a structurally new pair sharing only the type interner.
func (s *Segments) Clone() *Segments {
	out := NewSegments(s.Types)
	for _, f := range s.Code.Funcs() {
		out.Code.Add(f.Clone())
	}
	out.Data.Defs = CloneInstrs(s.Data.Defs)
	return out
}
