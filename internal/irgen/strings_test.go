package irgen

import (
	"bytes"
	"testing"
)

func TestStringItemUsesCodePage437(t *testing.T) {
	it := stringItem("café ☃", 0, 0)
	want := []byte{'c', 'a', 'f', 0x82, ' ', '?', 0}
	if !bytes.Equal(it.Bytes, want) {
		t.Fatalf("bytes = % x, want % x", it.Bytes, want)
	}
	if it.Size != len(want) {
		t.Fatalf("size = %d, want %d", it.Size, len(want))
	}
}

func TestStringItemTruncates(t *testing.T) {
	it := stringItem("abc", 4, 2)
	if string(it.Bytes) != "ab" || it.Offset != 4 {
		t.Fatalf("got %+v", it)
	}
}
