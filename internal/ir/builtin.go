package ir

import "strings"

// BuiltinPrefix marks compiler intrinsics. Calls to such names are lowered
// by dedicated routines instead of a call sequence.
const BuiltinPrefix = "__builtin_"

const (
	BuiltinAlloca  = "__builtin_alloca"
	BuiltinVaStart = "__builtin_va_start"
	BuiltinVaArg   = "__builtin_va_arg"
	BuiltinVaEnd   = "__builtin_va_end"
	BuiltinMemcpy  = "__builtin_memcpy"
)

func IsBuiltinName(name string) bool {
	return strings.HasPrefix(name, BuiltinPrefix)
}
