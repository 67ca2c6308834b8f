package irgen

import (
	"fmt"

	"cc16/internal/diag"
	"cc16/internal/hir"
	"cc16/internal/ir"
	"cc16/internal/types"
)

func (g *funcGen) genLocal(d *hir.VarDecl) error {
	c := g.ctx
	switch d.Storage {
	case hir.StorageExtern:
		g.bind(d.Name, binding{kind: bindGlobal, label: ir.Symbol(d.Name), typ: d.Type})
		return nil
	case hir.StorageStatic:
		label := fmt.Sprintf("_%s.%s.%d", g.fn.Name, d.Name, c.nextStatic)
		c.nextStatic++
		g.bind(d.Name, binding{kind: bindGlobal, label: label, typ: d.Type})
		items, err := c.constItems(d.Type, d.Init, d.Name, d.Span)
		if err != nil {
			return err
		}
		c.segs.Data.Add(ir.DefDataInstr{Label: label, Type: d.Type, Size: c.sizeOf(d.Type), Items: items})
		return nil
	}

	if d.Length != nil {
		return g.genVLA(d)
	}
	size := c.sizeOf(d.Type)
	if size == 0 {
		return g.errorf(diag.GenBadInitializer, d.Span, d.Name, "variable of incomplete type")
	}
	slot := g.newSlot(d.Name, d.Type)
	g.emit(ir.Instr{Kind: ir.InstrAlloc, Alloc: ir.AllocInstr{Out: slot, Elem: d.Type, Size: size}})
	g.bind(d.Name, binding{kind: bindSlot, slot: slot, typ: d.Type})
	if d.Init == nil {
		return nil
	}
	return g.genInit(d, address{base: ir.VarOp(slot)})
}

// genVLA allocates the array with __builtin_alloca and keeps the returned
// pointer in the variable's slot.
func (g *funcGen) genVLA(d *hir.VarDecl) error {
	c := g.ctx
	elem := c.types.Elem(d.Type)
	if elem == types.NoTypeID {
		return g.errorf(diag.GenBadInitializer, d.Span, d.Name, "length given for a non-array")
	}
	if d.Init != nil {
		return g.errorf(diag.GenBadInitializer, d.Span, d.Name, "variable-length array cannot be initialized")
	}
	n, err := g.genExpr(d.Length)
	if err != nil {
		return err
	}
	intT := c.types.Builtins().Int
	if n, err = g.convert(n, d.Length.Type, intT, d.Span); err != nil {
		return err
	}
	bytes := g.scale(n, max(c.sizeOf(elem), 1))
	ptr := c.types.PointerTo(elem)
	p := g.call(ir.BuiltinAlloca, ptr, bytes)

	slot := g.newSlot(d.Name, ptr)
	g.emit(ir.Instr{Kind: ir.InstrAlloc, Alloc: ir.AllocInstr{Out: slot, Elem: ptr, Size: c.sizeOf(ptr)}})
	g.store(address{base: ir.VarOp(slot)}, p)
	g.bind(d.Name, binding{kind: bindIndirect, slot: slot, typ: d.Type})
	return nil
}

func (g *funcGen) genInit(d *hir.VarDecl, a address) error {
	c := g.ctx
	init := d.Init
	if init.Expr != nil {
		if s, ok := stringLiteral(init.Expr); ok && c.types.Kind(d.Type) == types.KindArray {
			return g.initString(d.Type, a, s)
		}
		if c.isAggregate(d.Type) {
			sa, err := g.genAddr(init.Expr)
			if err != nil {
				return err
			}
			ptr := c.types.PointerTo(d.Type)
			g.memcpy(g.addrValue(a, ptr), g.addrValue(sa, ptr), c.sizeOf(d.Type))
			return nil
		}
		v, err := g.genExpr(init.Expr)
		if err != nil {
			return err
		}
		if v, err = g.convert(v, init.Expr.Type, d.Type, d.Span); err != nil {
			return err
		}
		g.store(a, v)
		return nil
	}
	return g.initItems(d, a)
}

// initItems stores each leaf and zero fills the rest, or copies a read-only
// image when the initializer is constant and has more leaves than the
// configured threshold.
func (g *funcGen) initItems(d *hir.VarDecl, a address) error {
	c := g.ctx
	size := c.sizeOf(d.Type)
	if len(d.Init.Items) > c.cfg.LocalAggregateThreshold && g.allConstant(d.Init.Items) {
		items, err := c.constItems(d.Type, d.Init, d.Name, d.Span)
		if err != nil {
			return err
		}
		g.copyImage(d.Type, a, size, items)
		return nil
	}

	covered := make([]bool, size)
	for _, it := range d.Init.Items {
		if it.Value == nil {
			return g.errorf(diag.GenBadInitializer, d.Span, d.Name, "initializer item without a value")
		}
		off := int(it.Offset)
		leaf := address{base: a.base, off: a.off + off}
		n := c.sizeOf(it.Value.Type)
		if s, ok := stringLiteral(it.Value); ok {
			b := stringItem(s, 0, n).Bytes
			for i, ch := range b {
				g.store(address{base: leaf.base, off: leaf.off + i}, g.intConst(c.types.Builtins().Char, int64(ch)))
			}
			n = len(b)
		} else {
			v, err := g.genExpr(it.Value)
			if err != nil {
				return err
			}
			g.store(leaf, v)
		}
		if off < 0 || off+n > size {
			return g.errorf(diag.GenBadInitializer, d.Span, d.Name, "initializer item at offset %d outside the object", off)
		}
		for i := off; i < off+n; i++ {
			covered[i] = true
		}
	}
	g.zeroFill(a, covered)
	return nil
}

func (g *funcGen) allConstant(items []hir.InitItem) bool {
	for _, it := range items {
		if it.Value == nil {
			return false
		}
		if _, ok := stringLiteral(it.Value); ok && g.ctx.types.Kind(it.Value.Type) == types.KindArray {
			continue
		}
		if _, ok := g.ctx.fold(it.Value); !ok {
			return false
		}
	}
	return true
}

func (g *funcGen) initString(t types.TypeID, a address, s string) error {
	c := g.ctx
	size := c.sizeOf(t)
	if len(s) > c.cfg.LocalStringThreshold {
		g.copyImage(t, a, size, []ir.DataItem{stringItem(s, 0, size)})
		return nil
	}
	covered := make([]bool, size)
	char := c.types.Builtins().Char
	for i, ch := range stringItem(s, 0, size).Bytes {
		g.store(address{base: a.base, off: a.off + i}, g.intConst(char, int64(ch)))
		covered[i] = true
	}
	g.zeroFill(a, covered)
	return nil
}

// copyImage places a read-only image of the initializer in the data segment
// and copies it into the object.
func (g *funcGen) copyImage(t types.TypeID, a address, size int, items []ir.DataItem) {
	c := g.ctx
	label := c.newConstLabel()
	c.segs.Data.Add(ir.DefDataInstr{Label: label, Type: t, Size: size, ReadOnly: true, Items: items})
	ptr := c.types.PointerTo(t)
	g.memcpy(g.addrValue(a, ptr), g.labelOffset(label, ptr), size)
}

// zeroFill stores zero into every byte not covered, a word at a time.
func (g *funcGen) zeroFill(a address, covered []bool) {
	b := g.ctx.types.Builtins()
	for i := 0; i < len(covered); {
		if covered[i] {
			i++
			continue
		}
		at := address{base: a.base, off: a.off + i}
		if i+1 < len(covered) && !covered[i+1] {
			g.store(at, g.intConst(b.Int, 0))
			i += 2
			continue
		}
		g.store(at, g.intConst(b.Char, 0))
		i++
	}
}
