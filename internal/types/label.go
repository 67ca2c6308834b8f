package types

import (
	"fmt"
	"strings"
)

// Label renders the C-ish spelling used in IR dumps: int, uchar, int*,
// char[6], struct Vec, int(int, ...).
func Label(in *Interner, id TypeID) string {
	return labelDepth(in, id, 0)
}

func labelDepth(in *Interner, id TypeID, depth int) string {
	if depth > 16 {
		return "..."
	}
	tt, ok := in.Lookup(id)
	if !ok {
		return "invalid"
	}
	switch tt.Kind {
	case KindVoid:
		return "void"
	case KindBool:
		return "bool"
	case KindInt, KindUint:
		return formatIntType(tt.Width, tt.Kind == KindInt)
	case KindFloat:
		if tt.Width == Width32 {
			return "float"
		}
		return "double"
	case KindPointer:
		return labelDepth(in, tt.Elem, depth+1) + "*"
	case KindArray:
		if tt.Count == 0 {
			return labelDepth(in, tt.Elem, depth+1) + "[]"
		}
		return fmt.Sprintf("%s[%d]", labelDepth(in, tt.Elem, depth+1), tt.Count)
	case KindStruct, KindUnion:
		kw := "struct"
		if tt.Kind == KindUnion {
			kw = "union"
		}
		info, ok := in.Record(id)
		if !ok || info.Name == "" {
			return kw + " <anon>"
		}
		return kw + " " + info.Name
	case KindFunc:
		info, ok := in.FuncInfo(id)
		if !ok {
			return "fn"
		}
		params := make([]string, 0, len(info.Params)+1)
		for _, p := range info.Params {
			params = append(params, labelDepth(in, p, depth+1))
		}
		if info.Variadic {
			params = append(params, "...")
		}
		return fmt.Sprintf("%s(%s)", labelDepth(in, info.Result, depth+1), strings.Join(params, ", "))
	}
	return tt.Kind.String()
}

func formatIntType(width Width, signed bool) string {
	var name string
	switch width {
	case Width8:
		name = "char"
	case Width16:
		name = "int"
	case Width32:
		name = "long"
	default:
		name = "llong"
	}
	if !signed {
		return "u" + name
	}
	return name
}
