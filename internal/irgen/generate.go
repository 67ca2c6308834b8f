// Package irgen lowers a typed tree into IR blocks and data definitions.
package irgen

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/layout"
	"cc16/internal/source"
	"cc16/internal/types"
)

type bindingKind uint8

const (
	// bindSlot is an auto local or parameter with a stack slot handle.
	bindSlot bindingKind = iota + 1
	// bindIndirect is a variable-length array: its slot holds the pointer
	// returned by __builtin_alloca.
	bindIndirect
	bindGlobal
	bindFunc
)

type binding struct {
	kind  bindingKind
	slot  ir.Var
	label string
	typ   types.TypeID
}

// Context is the per-unit generator state. Everything that must be unique
// across functions of one unit (labels, data entries) is numbered here.
type Context struct {
	cfg    Config
	unit   *hir.Unit
	types  *types.Interner
	layout *layout.Engine
	segs   *ir.Segments

	nextLabel  int
	nextConst  int
	nextStatic int

	globals map[string]binding
	funcs   map[string]*hir.Func
}

func newContext(unit *hir.Unit, cfg Config) *Context {
	cfg = cfg.normalized()
	return &Context{
		cfg:     cfg,
		unit:    unit,
		types:   unit.Types,
		layout:  layout.New(cfg.Target, unit.Types),
		segs:    ir.NewSegments(unit.Types),
		globals: make(map[string]binding),
		funcs:   make(map[string]*hir.Func),
	}
}

// Generate lowers a whole unit. Globals are placed first, then functions in
// declaration order. Any error aborts the unit; errors of all functions are
// collected with errors.Join.
func Generate(unit *hir.Unit, cfg Config) (*ir.Segments, error) {
	if unit == nil || unit.Types == nil {
		return nil, &Error{Code: diag.GenUnsupported, Msg: "unit has no type table"}
	}
	ctx := newContext(unit, cfg)
	var errs []error
	if err := ctx.declareFuncs(); err != nil {
		errs = append(errs, err)
	}
	for _, g := range unit.Globals {
		if err := ctx.genGlobal(g); err != nil {
			errs = append(errs, err)
		}
	}
	for _, fn := range unit.Funcs {
		if !fn.IsDefinition() || ctx.funcs[fn.Name] != fn {
			continue
		}
		f, err := ctx.genFunc(fn)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		ctx.segs.Code.Add(f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return ctx.segs, nil
}

func (c *Context) declareFuncs() error {
	var errs []error
	for _, fn := range c.unit.Funcs {
		prev, ok := c.funcs[fn.Name]
		switch {
		case !ok, !prev.IsDefinition():
			c.funcs[fn.Name] = fn
		case fn.IsDefinition():
			errs = append(errs, &Error{Code: diag.GenDuplicateFunction, Name: fn.Name, Span: fn.Span, Msg: "function defined more than once"})
		}
		c.globals[fn.Name] = binding{kind: bindFunc, label: ir.Symbol(fn.Name), typ: c.funcType(fn)}
	}
	return errors.Join(errs...)
}

func (c *Context) funcType(fn *hir.Func) types.TypeID {
	params := make([]types.TypeID, len(fn.Params))
	for i, p := range fn.Params {
		params[i] = p.Type
	}
	return c.types.RegisterFunc(types.FuncInfo{Result: fn.Result, Params: params, Variadic: fn.Variadic})
}

func (c *Context) newLabel() string {
	c.nextLabel++
	return fmt.Sprintf("L%d", c.nextLabel)
}

func (c *Context) newConstLabel() string {
	l := fmt.Sprintf("_c%d", c.nextConst)
	c.nextConst++
	return l
}

func (c *Context) sizeOf(t types.TypeID) int {
	return c.layout.SizeOf(t)
}

func (c *Context) genGlobal(d *hir.VarDecl) error {
	label := ir.Symbol(d.Name)
	c.globals[d.Name] = binding{kind: bindGlobal, label: label, typ: d.Type}
	if d.Storage == hir.StorageExtern {
		return nil
	}
	if _, dup := c.segs.Data.Lookup(label); dup {
		return &Error{Code: diag.GenBadInitializer, Name: d.Name, Span: d.Span, Msg: "global defined more than once"}
	}
	items, err := c.constItems(d.Type, d.Init, d.Name, d.Span)
	if err != nil {
		return err
	}
	c.segs.Data.Add(ir.DefDataInstr{Label: label, Type: d.Type, Size: c.sizeOf(d.Type), Items: items})
	return nil
}

// internString places a NUL-terminated literal in the data segment and
// returns its label.
func (c *Context) internString(s string, size int) string {
	label := c.newConstLabel()
	c.segs.Data.Add(ir.DefDataInstr{
		Label:    label,
		Type:     c.types.ArrayOf(c.types.Builtins().Char, safecast.MustConv[uint32](size)),
		Size:     size,
		ReadOnly: true,
		Items:    []ir.DataItem{stringItem(s, 0, size)},
	})
	return label
}

// constItems turns a static initializer into data items.
func (c *Context) constItems(t types.TypeID, init *hir.Init, name string, span source.Span) ([]ir.DataItem, error) {
	if init == nil {
		return nil, nil
	}
	if init.Expr != nil {
		it, err := c.constItem(t, init.Expr, 0, name)
		if err != nil {
			return nil, err
		}
		return []ir.DataItem{it}, nil
	}
	items := make([]ir.DataItem, 0, len(init.Items))
	for _, leaf := range init.Items {
		if leaf.Value == nil {
			return nil, &Error{Code: diag.GenBadInitializer, Name: name, Span: span, Msg: "initializer item without a value"}
		}
		it, err := c.constItem(leaf.Value.Type, leaf.Value, int(leaf.Offset), name)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, nil
}

func (c *Context) constItem(t types.TypeID, e *hir.Expr, off int, name string) (ir.DataItem, error) {
	if lit, ok := stringLiteral(e); ok && c.types.Kind(t) == types.KindArray {
		return stringItem(lit, off, c.sizeOf(t)), nil
	}
	if k, ok := c.fold(e); ok {
		k = c.convertConst(k, t)
		return ir.DataItem{Kind: ir.DataConst, Offset: off, Size: k.Size, Const: k}, nil
	}
	if label, addend, ok := c.addressConst(e); ok {
		return ir.DataItem{Kind: ir.DataLabel, Offset: off, Size: c.cfg.Target.PtrSize, Label: label, Addend: addend}, nil
	}
	return ir.DataItem{}, &Error{Code: diag.GenNonConstGlobalInit, Name: name, Span: e.Span, Msg: "initializer element is not constant"}
}

// addressConst recognizes link-time constant addresses: globals, functions,
// string literals, and members or constant-index elements of globals.
func (c *Context) addressConst(e *hir.Expr) (string, int, bool) {
	switch e.Kind {
	case hir.ExprLiteral:
		if s, ok := stringLiteral(e); ok {
			return c.internString(s, c.sizeOf(e.Type)), 0, true
		}
	case hir.ExprVarRef:
		ref, ok := e.Data.(hir.VarRefData)
		if !ok {
			return "", 0, false
		}
		b, ok := c.globals[ref.Name]
		if !ok {
			return "", 0, false
		}
		if b.kind == bindFunc || c.types.Kind(b.typ) == types.KindArray {
			return b.label, 0, true
		}
	case hir.ExprCast:
		if data, ok := e.Data.(hir.CastData); ok {
			return c.addressConst(data.Value)
		}
	case hir.ExprUnary:
		data, ok := e.Data.(hir.UnaryData)
		if ok && data.Op == hir.UnAddrOf {
			return c.lvalueConst(data.Operand)
		}
	}
	return "", 0, false
}

func (c *Context) lvalueConst(e *hir.Expr) (string, int, bool) {
	switch data := e.Data.(type) {
	case hir.VarRefData:
		b, ok := c.globals[data.Name]
		if !ok {
			return "", 0, false
		}
		return b.label, 0, true
	case hir.MemberData:
		if data.Arrow {
			return "", 0, false
		}
		label, off, ok := c.lvalueConst(data.Object)
		return label, off + int(data.Offset), ok
	case hir.IndexData:
		idx, ok := c.fold(data.Index)
		if !ok {
			return "", 0, false
		}
		label, off, ok := c.lvalueConst(data.Object)
		return label, off + int(idx.Int)*c.sizeOf(e.Type), ok
	}
	return "", 0, false
}

func stringLiteral(e *hir.Expr) (string, bool) {
	if e == nil || e.Kind != hir.ExprLiteral {
		return "", false
	}
	lit, ok := e.Data.(hir.LiteralData)
	if !ok || lit.Kind != hir.LiteralString {
		return "", false
	}
	return lit.Str, true
}
