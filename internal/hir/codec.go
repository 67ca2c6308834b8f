package hir

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/vmihailenco/msgpack/v5"

	"cc16/internal/source"
	"cc16/internal/types"
)

// codecVersion changes whenever the wire layout below changes.
const codecVersion uint16 = 1

// ErrVersionMismatch is returned for files written by another codec version.
var ErrVersionMismatch = errors.New("hir: unsupported file version")

// The wire form flattens the Data interfaces into kind-tagged records so that
// msgpack can decode them without type registration.

type wireUnit struct {
	Version uint16         `msgpack:"v"`
	Name    string         `msgpack:"name"`
	Types   types.Snapshot `msgpack:"types"`
	Globals []*wireVar     `msgpack:"globals"`
	Funcs   []*wireFunc    `msgpack:"funcs"`
}

type wireFunc struct {
	Name     string       `msgpack:"name"`
	Span     source.Span  `msgpack:"span"`
	Result   types.TypeID `msgpack:"result"`
	Params   []*Param     `msgpack:"params"`
	Variadic bool         `msgpack:"variadic,omitempty"`
	Conv     CallConv     `msgpack:"conv,omitempty"`
	Static   bool         `msgpack:"static,omitempty"`
	Body     *wireBlock   `msgpack:"body"`
}

type wireVar struct {
	Name    string       `msgpack:"name"`
	Type    types.TypeID `msgpack:"type"`
	Span    source.Span  `msgpack:"span"`
	Storage Storage      `msgpack:"storage,omitempty"`
	HasInit bool         `msgpack:"has_init,omitempty"`
	Init    *wireExpr    `msgpack:"init,omitempty"`
	Items   []wireItem   `msgpack:"items,omitempty"`
	Length  *wireExpr    `msgpack:"len,omitempty"`
}

type wireItem struct {
	Offset uint32    `msgpack:"off"`
	Value  *wireExpr `msgpack:"val"`
}

type wireBlock struct {
	Span  source.Span `msgpack:"span"`
	Stmts []*wireStmt `msgpack:"stmts"`
}

type wireExpr struct {
	Kind   ExprKind     `msgpack:"k"`
	Type   types.TypeID `msgpack:"t"`
	Span   source.Span  `msgpack:"s"`
	Op     uint8        `msgpack:"op,omitempty"`
	Lit    LiteralKind  `msgpack:"lit,omitempty"`
	Int    int64        `msgpack:"i,omitempty"`
	Float  float64      `msgpack:"f,omitempty"`
	Str    string       `msgpack:"str,omitempty"`
	Offset uint32       `msgpack:"off,omitempty"`
	Flag   bool         `msgpack:"flag,omitempty"`
	Kids   []*wireExpr  `msgpack:"kids,omitempty"`
	Block  *wireBlock   `msgpack:"block,omitempty"`
}

type wireStmt struct {
	Kind  StmtKind    `msgpack:"k"`
	Span  source.Span `msgpack:"s"`
	Vars  []*wireVar  `msgpack:"vars,omitempty"`
	Exprs []*wireExpr `msgpack:"exprs,omitempty"`
	Stmts []*wireStmt `msgpack:"stmts,omitempty"`
	Block *wireBlock  `msgpack:"block,omitempty"`
	Cases []wireCase  `msgpack:"cases,omitempty"`
	Text  string      `msgpack:"text,omitempty"`
}

type wireCase struct {
	Values  []int64     `msgpack:"vals"`
	Default bool        `msgpack:"default,omitempty"`
	Body    []*wireStmt `msgpack:"body"`
	Span    source.Span `msgpack:"span"`
}

// Encode writes u to w.
func Encode(w io.Writer, u *Unit) error {
	if u.Types == nil {
		u.Types = types.NewInterner()
	}
	wu := &wireUnit{
		Version: codecVersion,
		Name:    u.Name,
		Types:   u.Types.Snapshot(),
	}
	for _, g := range u.Globals {
		wu.Globals = append(wu.Globals, encodeVar(g))
	}
	for _, f := range u.Funcs {
		wu.Funcs = append(wu.Funcs, &wireFunc{
			Name: f.Name, Span: f.Span, Result: f.Result, Params: f.Params,
			Variadic: f.Variadic, Conv: f.Conv, Static: f.Static,
			Body: encodeBlock(f.Body),
		})
	}
	return msgpack.NewEncoder(w).Encode(wu)
}

// Decode reads a unit written by Encode.
func Decode(r io.Reader) (*Unit, error) {
	var wu wireUnit
	if err := msgpack.NewDecoder(r).Decode(&wu); err != nil {
		return nil, fmt.Errorf("hir: decode: %w", err)
	}
	if wu.Version != codecVersion {
		return nil, fmt.Errorf("%w: %d (want %d)", ErrVersionMismatch, wu.Version, codecVersion)
	}
	u := &Unit{Name: wu.Name, Types: types.FromSnapshot(wu.Types)}
	for _, g := range wu.Globals {
		v, err := decodeVar(g)
		if err != nil {
			return nil, err
		}
		u.Globals = append(u.Globals, v)
	}
	for _, wf := range wu.Funcs {
		body, err := decodeBlock(wf.Body)
		if err != nil {
			return nil, fmt.Errorf("hir: func %s: %w", wf.Name, err)
		}
		u.Funcs = append(u.Funcs, &Func{
			Name: wf.Name, Span: wf.Span, Result: wf.Result, Params: wf.Params,
			Variadic: wf.Variadic, Conv: wf.Conv, Static: wf.Static, Body: body,
		})
	}
	return u, nil
}

// WriteFile encodes u into path.
func WriteFile(path string, u *Unit) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := Encode(bw, u); err != nil {
		_ = f.Close() //nolint:errcheck
		return err
	}
	if err := bw.Flush(); err != nil {
		_ = f.Close() //nolint:errcheck
		return err
	}
	return f.Close()
}

// ReadFile decodes the unit stored at path.
func ReadFile(path string) (*Unit, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(bufio.NewReader(f))
}

func encodeVar(v *VarDecl) *wireVar {
	if v == nil {
		return nil
	}
	wv := &wireVar{Name: v.Name, Type: v.Type, Span: v.Span, Storage: v.Storage, Length: encodeExpr(v.Length)}
	if v.Init != nil {
		wv.HasInit = true
		wv.Init = encodeExpr(v.Init.Expr)
		for _, it := range v.Init.Items {
			wv.Items = append(wv.Items, wireItem{Offset: it.Offset, Value: encodeExpr(it.Value)})
		}
	}
	return wv
}

func decodeVar(wv *wireVar) (*VarDecl, error) {
	if wv == nil {
		return nil, errors.New("hir: nil variable")
	}
	length, err := decodeExpr(wv.Length)
	if err != nil {
		return nil, err
	}
	v := &VarDecl{Name: wv.Name, Type: wv.Type, Span: wv.Span, Storage: wv.Storage, Length: length}
	if !wv.HasInit {
		return v, nil
	}
	v.Init = &Init{}
	if v.Init.Expr, err = decodeExpr(wv.Init); err != nil {
		return nil, err
	}
	for _, it := range wv.Items {
		val, err := decodeExpr(it.Value)
		if err != nil {
			return nil, err
		}
		v.Init.Items = append(v.Init.Items, InitItem{Offset: it.Offset, Value: val})
	}
	return v, nil
}

func encodeBlock(b *Block) *wireBlock {
	if b == nil {
		return nil
	}
	wb := &wireBlock{Span: b.Span}
	for _, s := range b.Stmts {
		wb.Stmts = append(wb.Stmts, encodeStmt(s))
	}
	return wb
}

func decodeBlock(wb *wireBlock) (*Block, error) {
	if wb == nil {
		return nil, nil
	}
	b := &Block{Span: wb.Span}
	for _, ws := range wb.Stmts {
		s, err := decodeStmt(ws)
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, s)
	}
	return b, nil
}

func encodeExprs(exprs ...*Expr) []*wireExpr {
	out := make([]*wireExpr, len(exprs))
	for i, e := range exprs {
		out[i] = encodeExpr(e)
	}
	return out
}

func encodeExpr(e *Expr) *wireExpr {
	if e == nil {
		return nil
	}
	we := &wireExpr{Kind: e.Kind, Type: e.Type, Span: e.Span}
	switch d := e.Data.(type) {
	case LiteralData:
		we.Lit, we.Int, we.Float, we.Str = d.Kind, d.Int, d.Float, d.Str
	case VarRefData:
		we.Str = d.Name
	case UnaryData:
		we.Op = uint8(d.Op)
		we.Kids = encodeExprs(d.Operand)
	case BinaryData:
		we.Op = uint8(d.Op)
		we.Kids = encodeExprs(d.Left, d.Right)
	case AssignData:
		we.Op = uint8(d.Op)
		we.Kids = encodeExprs(d.Target, d.Value)
	case CallData:
		we.Kids = encodeExprs(append([]*Expr{d.Callee}, d.Args...)...)
	case MemberData:
		we.Str, we.Offset, we.Flag = d.Field, d.Offset, d.Arrow
		we.Kids = encodeExprs(d.Object)
	case IndexData:
		we.Kids = encodeExprs(d.Object, d.Index)
	case CondData:
		we.Kids = encodeExprs(d.Cond, d.Then, d.Else)
	case CastData:
		we.Kids = encodeExprs(d.Value)
	case CommaData:
		we.Kids = encodeExprs(d.Exprs...)
	case StmtExprData:
		we.Block = encodeBlock(d.Block)
	}
	return we
}

func decodeExpr(we *wireExpr) (*Expr, error) {
	if we == nil {
		return nil, nil
	}
	kids := make([]*Expr, len(we.Kids))
	for i, k := range we.Kids {
		e, err := decodeExpr(k)
		if err != nil {
			return nil, err
		}
		kids[i] = e
	}
	need := func(n int) error {
		if len(kids) < n {
			return fmt.Errorf("hir: %s expression needs %d operands, got %d", we.Kind, n, len(kids))
		}
		return nil
	}
	e := &Expr{Kind: we.Kind, Type: we.Type, Span: we.Span}
	switch we.Kind {
	case ExprLiteral:
		e.Data = LiteralData{Kind: we.Lit, Int: we.Int, Float: we.Float, Str: we.Str}
	case ExprVarRef:
		e.Data = VarRefData{Name: we.Str}
	case ExprUnary:
		if err := need(1); err != nil {
			return nil, err
		}
		e.Data = UnaryData{Op: UnaryOp(we.Op), Operand: kids[0]}
	case ExprBinary:
		if err := need(2); err != nil {
			return nil, err
		}
		e.Data = BinaryData{Op: BinaryOp(we.Op), Left: kids[0], Right: kids[1]}
	case ExprAssign:
		if err := need(2); err != nil {
			return nil, err
		}
		e.Data = AssignData{Op: BinaryOp(we.Op), Target: kids[0], Value: kids[1]}
	case ExprCall:
		if err := need(1); err != nil {
			return nil, err
		}
		e.Data = CallData{Callee: kids[0], Args: kids[1:]}
	case ExprMember:
		if err := need(1); err != nil {
			return nil, err
		}
		e.Data = MemberData{Object: kids[0], Field: we.Str, Offset: we.Offset, Arrow: we.Flag}
	case ExprIndex:
		if err := need(2); err != nil {
			return nil, err
		}
		e.Data = IndexData{Object: kids[0], Index: kids[1]}
	case ExprCond:
		if err := need(3); err != nil {
			return nil, err
		}
		e.Data = CondData{Cond: kids[0], Then: kids[1], Else: kids[2]}
	case ExprCast:
		if err := need(1); err != nil {
			return nil, err
		}
		e.Data = CastData{Value: kids[0]}
	case ExprComma:
		e.Data = CommaData{Exprs: kids}
	case ExprStmt:
		blk, err := decodeBlock(we.Block)
		if err != nil {
			return nil, err
		}
		e.Data = StmtExprData{Block: blk}
	default:
		return nil, fmt.Errorf("hir: unknown expression kind %d", we.Kind)
	}
	return e, nil
}

func encodeStmt(s *Stmt) *wireStmt {
	if s == nil {
		return nil
	}
	ws := &wireStmt{Kind: s.Kind, Span: s.Span}
	switch d := s.Data.(type) {
	case DeclData:
		for _, v := range d.Vars {
			ws.Vars = append(ws.Vars, encodeVar(v))
		}
	case ExprStmtData:
		ws.Exprs = encodeExprs(d.Expr)
	case ReturnData:
		ws.Exprs = encodeExprs(d.Value)
	case IfData:
		ws.Exprs = encodeExprs(d.Cond)
		ws.Stmts = []*wireStmt{encodeStmt(d.Then), encodeStmt(d.Else)}
	case LoopData:
		ws.Exprs = encodeExprs(d.Cond)
		ws.Stmts = []*wireStmt{encodeStmt(d.Body)}
	case ForData:
		ws.Exprs = encodeExprs(d.Cond, d.Post)
		ws.Stmts = []*wireStmt{encodeStmt(d.Init), encodeStmt(d.Body)}
	case SwitchData:
		ws.Exprs = encodeExprs(d.Value)
		for _, c := range d.Cases {
			wc := wireCase{Values: c.Values, Default: c.Default, Span: c.Span}
			for _, st := range c.Body {
				wc.Body = append(wc.Body, encodeStmt(st))
			}
			ws.Cases = append(ws.Cases, wc)
		}
	case GotoData:
		ws.Text = d.Label
	case LabeledData:
		ws.Text = d.Label
		ws.Stmts = []*wireStmt{encodeStmt(d.Stmt)}
	case BlockData:
		ws.Block = encodeBlock(d.Block)
	case AsmData:
		ws.Text = d.Text
	}
	return ws
}

func decodeStmt(ws *wireStmt) (*Stmt, error) {
	if ws == nil {
		return nil, nil
	}
	exprs := make([]*Expr, len(ws.Exprs))
	for i, we := range ws.Exprs {
		e, err := decodeExpr(we)
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	stmts := make([]*Stmt, len(ws.Stmts))
	for i, w := range ws.Stmts {
		st, err := decodeStmt(w)
		if err != nil {
			return nil, err
		}
		stmts[i] = st
	}
	expr := func(i int) *Expr {
		if i < len(exprs) {
			return exprs[i]
		}
		return nil
	}
	stmt := func(i int) *Stmt {
		if i < len(stmts) {
			return stmts[i]
		}
		return nil
	}

	s := &Stmt{Kind: ws.Kind, Span: ws.Span}
	switch ws.Kind {
	case StmtDecl:
		d := DeclData{}
		for _, wv := range ws.Vars {
			v, err := decodeVar(wv)
			if err != nil {
				return nil, err
			}
			d.Vars = append(d.Vars, v)
		}
		s.Data = d
	case StmtExpr:
		s.Data = ExprStmtData{Expr: expr(0)}
	case StmtReturn:
		s.Data = ReturnData{Value: expr(0)}
	case StmtIf:
		s.Data = IfData{Cond: expr(0), Then: stmt(0), Else: stmt(1)}
	case StmtWhile, StmtDoWhile:
		s.Data = LoopData{Cond: expr(0), Body: stmt(0)}
	case StmtFor:
		s.Data = ForData{Init: stmt(0), Cond: expr(0), Post: expr(1), Body: stmt(1)}
	case StmtSwitch:
		d := SwitchData{Value: expr(0)}
		for _, wc := range ws.Cases {
			c := SwitchCase{Values: wc.Values, Default: wc.Default, Span: wc.Span}
			for _, w := range wc.Body {
				st, err := decodeStmt(w)
				if err != nil {
					return nil, err
				}
				c.Body = append(c.Body, st)
			}
			d.Cases = append(d.Cases, c)
		}
		s.Data = d
	case StmtBreak:
		s.Data = BreakData{}
	case StmtContinue:
		s.Data = ContinueData{}
	case StmtGoto:
		s.Data = GotoData{Label: ws.Text}
	case StmtLabeled:
		s.Data = LabeledData{Label: ws.Text, Stmt: stmt(0)}
	case StmtBlock:
		blk, err := decodeBlock(ws.Block)
		if err != nil {
			return nil, err
		}
		s.Data = BlockData{Block: blk}
	case StmtAsm:
		s.Data = AsmData{Text: ws.Text}
	case StmtEmpty:
		s.Data = EmptyData{}
	default:
		return nil, fmt.Errorf("hir: unknown statement kind %d", ws.Kind)
	}
	return s, nil
}
