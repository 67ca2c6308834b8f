package irgen

import (
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"cc16/internal/ir"
)

// encodeString converts a UTF-8 literal to code page 437, the character set
// of the target. Runes outside it become '?'.
func encodeString(s string) []byte {
	enc := encoding.ReplaceUnsupported(charmap.CodePage437.NewEncoder())
	out, err := enc.Bytes([]byte(s))
	if err != nil {
		return []byte(s)
	}
	return out
}

// stringItem returns the encoded bytes of s plus its NUL, cut to size.
func stringItem(s string, off, size int) ir.DataItem {
	b := append(encodeString(s), 0)
	if size > 0 && len(b) > size {
		b = b[:size]
	}
	return ir.DataItem{Kind: ir.DataBytes, Offset: off, Size: len(b), Bytes: b}
}
