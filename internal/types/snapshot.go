package types

import "fortio.org/safecast"

// Snapshot is the serialisable form of an Interner. TypeIDs are indexes
// into Types, so a restored interner keeps every ID valid.
type Snapshot struct {
	Types   []Type       `msgpack:"types"`
	Records []RecordInfo `msgpack:"records"`
	Funcs   []FuncInfo   `msgpack:"funcs"`
}

// Snapshot captures the interner state.
func (in *Interner) Snapshot() Snapshot {
	return Snapshot{
		Types:   append([]Type(nil), in.types...),
		Records: append([]RecordInfo(nil), in.records...),
		Funcs:   append([]FuncInfo(nil), in.funcs...),
	}
}

// FromSnapshot rebuilds an interner. An empty snapshot yields NewInterner().
func FromSnapshot(s Snapshot) *Interner {
	if len(s.Types) == 0 {
		return NewInterner()
	}
	in := &Interner{
		types:   append([]Type(nil), s.Types...),
		index:   make(map[Type]TypeID, len(s.Types)),
		records: append([]RecordInfo(nil), s.Records...),
		funcs:   append([]FuncInfo(nil), s.Funcs...),
	}
	if len(in.records) == 0 {
		in.records = append(in.records, RecordInfo{})
	}
	if len(in.funcs) == 0 {
		in.funcs = append(in.funcs, FuncInfo{})
	}
	for i, t := range in.types {
		if i == 0 {
			continue
		}
		if t.Kind == KindStruct || t.Kind == KindUnion || t.Kind == KindFunc {
			continue
		}
		if _, dup := in.index[t]; !dup {
			in.index[t] = TypeID(safecast.MustConv[uint32](i))
		}
	}
	in.seedBuiltins()
	return in
}
