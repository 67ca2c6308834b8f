package x86

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegHalves(t *testing.T) {
	assert.Equal(t, AX, AH.Full())
	assert.Equal(t, BL, BX.Low())
	assert.Equal(t, DH, DX.High())
	assert.Equal(t, CL, CX.Sized(1))
	assert.Equal(t, 1, BH.Size())
	assert.Equal(t, 2, SI.Size())
}

func TestRegUsageOverlap(t *testing.T) {
	var u RegUsage
	u.Mark(AL)
	assert.True(t, u.Busy(AX), "a busy half makes the word busy")
	assert.False(t, u.Busy(AH))
	u.Mark(CX)
	assert.True(t, u.Busy(CH))
	u.Clear(AL)
	u.Clear(CX)
	assert.True(t, u.Empty())
}

func TestRegSet(t *testing.T) {
	s := SetOf(BX, SI)
	assert.True(t, s.Has(SI))
	assert.False(t, s.Has(DI))
	assert.True(t, s.With(DI).Has(DI))
	assert.False(t, s.Without(BX).Has(BX))
}
