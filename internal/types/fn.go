package types

import (
	"slices"

	"fortio.org/safecast"
)

// FuncInfo describes a function type (used for function pointers and callees).
type FuncInfo struct {
	Result   TypeID   `msgpack:"result"`
	Params   []TypeID `msgpack:"params"`
	Variadic bool     `msgpack:"variadic,omitempty"`
}

// RegisterFunc records a function signature and returns its TypeID.
func (in *Interner) RegisterFunc(info FuncInfo) TypeID {
	info.Params = slices.Clone(info.Params)
	slot := safecast.MustConv[uint32](len(in.funcs))
	in.funcs = append(in.funcs, info)
	return in.internRaw(Type{Kind: KindFunc, Payload: slot})
}

// FuncInfo returns the signature of a function type. Pointers to functions
// are looked through.
func (in *Interner) FuncInfo(id TypeID) (*FuncInfo, bool) {
	tt, ok := in.Lookup(id)
	if ok && tt.Kind == KindPointer {
		tt, ok = in.Lookup(tt.Elem)
	}
	if !ok || tt.Kind != KindFunc || tt.Payload == 0 || int(tt.Payload) >= len(in.funcs) {
		return nil, false
	}
	return &in.funcs[tt.Payload], true
}
