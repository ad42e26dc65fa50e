package mcu

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memFile [NumRegisters]uint32

func (m *memFile) Load(r Register) uint32        { return m[r] }
func (m *memFile) Store(r Register, value uint32) { m[r] = value }

func TestTake_Exclusive(t *testing.T) {
	rf := &memFile{}
	p, err := Take(rf)
	require.NoError(t, err)

	_, err = Take(rf)
	assert.ErrorIs(t, err, ErrAlreadyTaken)

	other, err := Take(&memFile{})
	require.NoError(t, err)
	other.Release()

	p.Release()
	p2, err := Take(rf)
	require.NoError(t, err)
	p2.Release()
}

func TestTake_Nil(t *testing.T) {
	_, err := Take(nil)
	assert.Error(t, err)
}

func TestField(t *testing.T) {
	tests := []struct {
		name     string
		field    Field
		reg      uint32
		value    uint32
		expected uint32
	}{
		{"plln", RCC_PLLCFGR_PLLN, 0x24003010, 336, 0x24005410},
		{"pllp div4", RCC_PLLCFGR_PLLP, 0x24005410, 1, 0x24015410},
		{"br div16", SPI_CR1_BR, 0, 0b011, 0x18},
		{"overflow dropped", Field{Pos: 0, Width: 2}, 0, 0xFF, 0x03},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got := test.field.Set(test.reg, test.value)
			assert.Equal(t, test.expected, got)
			assert.Equal(t, test.value&(test.field.Mask()>>test.field.Pos), test.field.Get(got))
		})
	}
}

func TestPeripherals_Accessors(t *testing.T) {
	rf := &memFile{}
	p, err := Take(rf)
	require.NoError(t, err)
	defer p.Release()

	p.Write(SPI1_CR1, 0)
	p.SetBits(SPI1_CR1, SPI_CR1_SSM|SPI_CR1_SSI)
	assert.True(t, p.HasBits(SPI1_CR1, SPI_CR1_SSM|SPI_CR1_SSI))
	p.ClearBits(SPI1_CR1, SPI_CR1_SSI)
	assert.False(t, p.HasBits(SPI1_CR1, SPI_CR1_SSM|SPI_CR1_SSI))
	assert.True(t, p.HasBits(SPI1_CR1, SPI_CR1_SSM))

	p.SetField(SPI1_CR1, SPI_CR1_BR, 3)
	assert.Equal(t, uint32(3), p.Field(SPI1_CR1, SPI_CR1_BR))
	assert.Equal(t, SPI_CR1_SSM|0x18, p.Read(SPI1_CR1))
}

func TestPinFields(t *testing.T) {
	assert.Equal(t, Field{Pos: 8, Width: 2}, ModerField(4))
	reg, f := AFRField(5)
	assert.Equal(t, GPIOA_AFRL, reg)
	assert.Equal(t, Field{Pos: 20, Width: 4}, f)
	reg, f = AFRField(10)
	assert.Equal(t, GPIOA_AFRH, reg)
	assert.Equal(t, Field{Pos: 8, Width: 4}, f)
	assert.Equal(t, "SPI1.DR", SPI1_DR.String())
}
