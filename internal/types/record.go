package types

import (
	"slices"

	"fortio.org/safecast"
)

// Field describes one member with the byte offset resolved by the front end.
type Field struct {
	Name   string `msgpack:"name"`
	Type   TypeID `msgpack:"type"`
	Offset uint32 `msgpack:"off"`
}

// RecordInfo stores metadata of a struct or union. Size and Align are the
// front end's resolved layout; zero Size means "compute naturally".
type RecordInfo struct {
	Name   string  `msgpack:"name"`
	Union  bool    `msgpack:"union,omitempty"`
	Fields []Field `msgpack:"fields"`
	Size   uint32  `msgpack:"size,omitempty"`
	Align  uint32  `msgpack:"align,omitempty"`
}

// RegisterRecord allocates a nominal struct/union type and returns its TypeID.
func (in *Interner) RegisterRecord(info RecordInfo) TypeID {
	info.Fields = slices.Clone(info.Fields)
	slot := safecast.MustConv[uint32](len(in.records))
	in.records = append(in.records, info)
	kind := KindStruct
	if info.Union {
		kind = KindUnion
	}
	return in.internRaw(Type{Kind: kind, Payload: slot})
}

// Record returns metadata for the provided struct/union TypeID.
func (in *Interner) Record(id TypeID) (*RecordInfo, bool) {
	tt, ok := in.Lookup(id)
	if !ok || (tt.Kind != KindStruct && tt.Kind != KindUnion) {
		return nil, false
	}
	if tt.Payload == 0 || int(tt.Payload) >= len(in.records) {
		return nil, false
	}
	return &in.records[tt.Payload], true
}

// FieldByName finds a member of a struct/union.
func (in *Interner) FieldByName(id TypeID, name string) (Field, bool) {
	info, ok := in.Record(id)
	if !ok {
		return Field{}, false
	}
	for _, f := range info.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
