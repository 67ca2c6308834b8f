package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Generator errors abort generation of the whole translation unit.
	GenInfo                 Code = 4000
	GenUnsupported          Code = 4001
	GenUnknownVariable      Code = 4002
	GenBreakOutsideLoop     Code = 4003
	GenContinueOutsideLoop  Code = 4004
	GenUndefinedLabel       Code = 4005
	GenDuplicateLabel       Code = 4006
	GenNonConstGlobalInit   Code = 4007
	GenExprTooComplex       Code = 4008
	GenStructByValue        Code = 4009
	GenNotAddressable       Code = 4010
	GenDuplicateFunction    Code = 4011
	GenBadInitializer       Code = 4012
	GenInvalidBuiltinArgs   Code = 4013
	GenUnsupportedFloatCast Code = 4014

	// Backend errors abort code generation of one function.
	BackInfo              Code = 5000
	BackUnknownOpcode     Code = 5001
	BackUnknownBuiltin    Code = 5002
	BackRegisterExhausted Code = 5003
	BackFrameExhausted    Code = 5004
	BackX87Overflow       Code = 5005
	BackUnsupportedType   Code = 5006
	BackUnboundVariable   Code = 5007
	BackBadOperand        Code = 5008

	// Optimizer findings are never fatal.
	OptInfo             Code = 6000
	OptConstantOperands Code = 6001

	DrvInfo          Code = 7000
	DrvReadInput     Code = 7001
	DrvDecodeInput   Code = 7002
	DrvWriteOutput   Code = 7003
	DrvConfigInvalid Code = 7004
	DrvCacheCorrupt  Code = 7005
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown error",

	GenInfo:                 "Generator information",
	GenUnsupported:          "Unsupported tree node",
	GenUnknownVariable:      "Reference to an unknown variable",
	GenBreakOutsideLoop:     "'break' outside of a loop or switch",
	GenContinueOutsideLoop:  "'continue' outside of a loop",
	GenUndefinedLabel:       "'goto' to an undefined label",
	GenDuplicateLabel:       "Label defined more than once",
	GenNonConstGlobalInit:   "Global initializer is not a constant expression",
	GenExprTooComplex:       "Expression too complex",
	GenStructByValue:        "Aggregates cannot be passed or returned by value",
	GenNotAddressable:       "Expression is not addressable",
	GenDuplicateFunction:    "Function defined more than once",
	GenBadInitializer:       "Malformed initializer",
	GenInvalidBuiltinArgs:   "Wrong arguments for a builtin",
	GenUnsupportedFloatCast: "Unsupported floating point conversion",

	BackInfo:              "Backend information",
	BackUnknownOpcode:     "Unknown IR opcode",
	BackUnknownBuiltin:    "Unknown builtin",
	BackRegisterExhausted: "Register pool exhausted",
	BackFrameExhausted:    "Stack frame exhausted",
	BackX87Overflow:       "x87 stack overflow",
	BackUnsupportedType:   "Unsupported operand width",
	BackUnboundVariable:   "Variable has no location",
	BackBadOperand:        "Malformed instruction operand",

	OptInfo:             "Optimizer information",
	OptConstantOperands: "Math instruction with two constant operands",

	DrvInfo:          "Driver information",
	DrvReadInput:     "Cannot read input",
	DrvDecodeInput:   "Cannot decode input tree",
	DrvWriteOutput:   "Cannot write output",
	DrvConfigInvalid: "Invalid configuration",
	DrvCacheCorrupt:  "Corrupt cache entry",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("GEN%04d", ic)
	case ic >= 5000 && ic < 6000:
		return fmt.Sprintf("BCK%04d", ic)
	case ic >= 6000 && ic < 7000:
		return fmt.Sprintf("OPT%04d", ic)
	case ic >= 7000 && ic < 8000:
		return fmt.Sprintf("DRV%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
