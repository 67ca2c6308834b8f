package types

import "testing"

func TestInternIsStructural(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	p1 := in.PointerTo(b.Int)
	p2 := in.Intern(MakePointer(b.Int))
	if p1 != p2 {
		t.Fatalf("pointer types not interned: %d vs %d", p1, p2)
	}
	if in.Intern(MakeInt(Width16)) != b.Int {
		t.Fatal("int16 must be the builtin int")
	}
	if in.Decay(in.ArrayOf(b.Char, 6)) != in.PointerTo(b.Char) {
		t.Fatal("array must decay to pointer")
	}
}

func TestRecordsAreNominal(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	a := in.RegisterRecord(RecordInfo{Name: "Vec", Fields: []Field{{Name: "x", Type: b.Int}, {Name: "y", Type: b.Int, Offset: 2}}})
	c := in.RegisterRecord(RecordInfo{Name: "Vec", Fields: []Field{{Name: "x", Type: b.Int}}})
	if a == c {
		t.Fatal("records must not be structurally interned")
	}
	f, ok := in.FieldByName(a, "y")
	if !ok || f.Offset != 2 {
		t.Fatalf("field lookup failed: %+v %v", f, ok)
	}
}

func TestLabel(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	vec := in.RegisterRecord(RecordInfo{Name: "Vec"})
	fn := in.RegisterFunc(FuncInfo{Result: b.Int, Params: []TypeID{in.PointerTo(b.Char)}, Variadic: true})
	cases := []struct {
		id   TypeID
		want string
	}{
		{b.Int, "int"},
		{b.UChar, "uchar"},
		{b.Double, "double"},
		{in.PointerTo(b.Int), "int*"},
		{in.ArrayOf(b.Char, 6), "char[6]"},
		{vec, "struct Vec"},
		{in.PointerTo(fn), "int(char*, ...)*"},
		{in.ArrayOf(in.PointerTo(b.Long), 0), "long*[]"},
	}
	for _, tc := range cases {
		if got := Label(in, tc.id); got != tc.want {
			t.Errorf("Label(%d) = %q, want %q", tc.id, got, tc.want)
		}
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	in := NewInterner()
	b := in.Builtins()
	vec := in.RegisterRecord(RecordInfo{Name: "Vec", Fields: []Field{{Name: "x", Type: b.Int}}})
	ptr := in.PointerTo(vec)

	back := FromSnapshot(in.Snapshot())
	if Label(back, ptr) != "struct Vec*" {
		t.Fatalf("label after restore: %q", Label(back, ptr))
	}
	if back.PointerTo(vec) != ptr {
		t.Fatal("restored interner must reuse existing IDs")
	}
	if back.Builtins() != b {
		t.Fatalf("builtins differ: %+v vs %+v", back.Builtins(), b)
	}
}
