package layout

import (
	"errors"
	"testing"

	"cc16/internal/types"
)

func TestPrimitiveSizes(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	e := New(I8086(), in)
	cases := []struct {
		id    types.TypeID
		size  int
		align int
	}{
		{b.Char, 1, 1},
		{b.Int, 2, 2},
		{b.Long, 4, 2},
		{b.Float, 4, 2},
		{b.Double, 8, 2},
		{in.PointerTo(b.Double), 2, 2},
		{in.ArrayOf(b.Int, 3), 6, 2},
		{b.Bool, 1, 1},
	}
	for _, tc := range cases {
		l, err := e.LayoutOf(tc.id)
		if err != nil {
			t.Fatalf("%s: %v", types.Label(in, tc.id), err)
		}
		if l.Size != tc.size || l.Align != tc.align {
			t.Errorf("%s: got size=%d align=%d, want %d/%d", types.Label(in, tc.id), l.Size, l.Align, tc.size, tc.align)
		}
	}
	if got := e.StackSize(b.Char); got != 2 {
		t.Errorf("char occupies %d stack bytes, want 2", got)
	}
}

func TestRecordLayoutUsesResolvedOffsets(t *testing.T) {
	in := types.NewInterner()
	b := in.Builtins()
	e := New(I8086(), in)
	rec := in.RegisterRecord(types.RecordInfo{
		Name: "S",
		Fields: []types.Field{
			{Name: "c", Type: b.Char, Offset: 0},
			{Name: "i", Type: b.Int, Offset: 2},
			{Name: "d", Type: b.Char, Offset: 4},
		},
	})
	l, err := e.LayoutOf(rec)
	if err != nil {
		t.Fatal(err)
	}
	if l.Size != 6 || l.Align != 2 || l.FieldOffsets[1] != 2 {
		t.Fatalf("unexpected layout %+v", l)
	}

	un := in.RegisterRecord(types.RecordInfo{Name: "U", Union: true, Fields: []types.Field{
		{Name: "l", Type: b.Long},
		{Name: "c", Type: b.Char},
	}})
	if got := e.SizeOf(un); got != 4 {
		t.Fatalf("union size %d, want 4", got)
	}
}

func TestRecursiveRecord(t *testing.T) {
	in := types.NewInterner()
	e := New(I8086(), in)
	rec := in.RegisterRecord(types.RecordInfo{Name: "Node"})
	info, _ := in.Record(rec)
	info.Fields = []types.Field{{Name: "self", Type: rec}}

	_, err := e.LayoutOf(rec)
	var lerr *Error
	if !errors.As(err, &lerr) || lerr.Kind != ErrRecursiveUnsized {
		t.Fatalf("expected recursive layout error, got %v", err)
	}
}
