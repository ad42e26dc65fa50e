package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/baro/mcu"
)

func transaction(s Slave, bytes ...byte) []byte {
	s.Select()
	defer s.Deselect()
	res := make([]byte, len(bytes))
	for i, b := range bytes {
		res[i] = s.Exchange(b)
	}
	return res
}

func TestLPS25HB_WhoAmI(t *testing.T) {
	s := NewLPS25HB()
	assert.Equal(t, []byte{0x00, DeviceID}, transaction(s, 0x8F, 0x00))
	s.SetWhoAmI(0x42)
	assert.Equal(t, []byte{0x00, 0x42}, transaction(s, 0x8F, 0x00))
	assert.Equal(t, 2, s.Transactions())
}

func TestLPS25HB_PressureAutoIncrement(t *testing.T) {
	s := NewLPS25HB()
	s.SetPressureRaw(0x3F5A10)

	// powered down: outputs read as zero
	assert.Equal(t, []byte{0, 0, 0, 0}, transaction(s, 0xE8, 0, 0, 0))

	transaction(s, 0x20, 0x90)
	assert.Equal(t, byte(0x90), s.Register(0x20))
	assert.Equal(t, []byte{0x00, 0x10, 0x5A, 0x3F}, transaction(s, 0xE8, 0, 0, 0))

	// without MS bit the address does not advance
	assert.Equal(t, []byte{0x00, 0x10, 0x10}, transaction(s, 0xA8, 0, 0))
}

func TestLPS25HB_ReadOnlyRegisters(t *testing.T) {
	s := NewLPS25HB()
	transaction(s, 0x0F, 0x11)
	transaction(s, 0x28, 0x22)
	assert.Equal(t, byte(DeviceID), s.Register(0x0F))
	assert.Equal(t, byte(0), s.Register(0x28))
}

func TestLPS25HB_Temperature(t *testing.T) {
	s := NewLPS25HB()
	s.SetTemperature(42.5 + 1)
	assert.Equal(t, byte(0xE0), s.Register(0x2B))
	assert.Equal(t, byte(0x01), s.Register(0x2C))
}

func TestLPS25HB_NotSelected(t *testing.T) {
	s := NewLPS25HB()
	assert.Equal(t, byte(0xFF), s.Exchange(0x8F))
}

func TestMCU_PLLLock(t *testing.T) {
	m := New(WithPLLLockDelay(2))
	m.Store(mcu.RCC_CR, m.Load(mcu.RCC_CR)|mcu.RCC_CR_PLLON|mcu.RCC_CR_PLLRDY)
	// PLLRDY is hardware controlled and cannot be written
	assert.Zero(t, m.Peek(mcu.RCC_CR)&mcu.RCC_CR_PLLRDY)
	assert.Zero(t, m.Load(mcu.RCC_CR)&mcu.RCC_CR_PLLRDY)
	assert.Zero(t, m.Load(mcu.RCC_CR)&mcu.RCC_CR_PLLRDY)
	assert.NotZero(t, m.Load(mcu.RCC_CR)&mcu.RCC_CR_PLLRDY)

	m.Store(mcu.RCC_CR, m.Load(mcu.RCC_CR)&^mcu.RCC_CR_PLLON)
	assert.Zero(t, m.Load(mcu.RCC_CR)&mcu.RCC_CR_PLLRDY)
}

func TestMCU_ClockSwitch(t *testing.T) {
	m := New()
	m.Store(mcu.RCC_CFGR, mcu.RCC_CFGR_SW_PLL)
	assert.Equal(t, mcu.RCC_CFGR_SWS_PLL, mcu.RCC_CFGR_SWS.Get(m.Load(mcu.RCC_CFGR)))

	m.Stick(mcu.RCC_CFGR, mcu.RCC_CFGR_SWS.Mask(), false)
	assert.Zero(t, mcu.RCC_CFGR_SWS.Get(m.Load(mcu.RCC_CFGR)))
	m.Unstick(mcu.RCC_CFGR)
	assert.Equal(t, mcu.RCC_CFGR_SWS_PLL, mcu.RCC_CFGR_SWS.Get(m.Load(mcu.RCC_CFGR)))
}

func enableSPI(m *MCU) {
	m.Store(mcu.SPI1_CR1, mcu.SPI_CR1_MSTR|mcu.SPI_CR1_SPE)
	m.Store(mcu.GPIOA_ODR, 1<<4)
	m.Store(mcu.GPIOA_MODER, mcu.ModerField(4).Set(m.Load(mcu.GPIOA_MODER), mcu.ModeOutput))
}

func TestMCU_SPIExchange(t *testing.T) {
	script := NewScript(0xAB)
	m := New(WithSlave(script))

	// peripheral disabled: nothing is clocked
	m.Store(mcu.SPI1_DR, 0x01)
	assert.Zero(t, m.Load(mcu.SPI1_SR)&mcu.SPI_SR_RXNE)

	enableSPI(m)
	m.Store(mcu.SPI1_DR, 0x02)
	assert.NotZero(t, m.Load(mcu.SPI1_SR)&mcu.SPI_SR_RXNE)
	// CS high: bus floats
	assert.Equal(t, uint32(0xFF), m.Load(mcu.SPI1_DR))
	assert.Zero(t, m.Load(mcu.SPI1_SR)&mcu.SPI_SR_RXNE)

	m.Store(mcu.GPIOA_ODR, 0)
	require.True(t, m.Selected())
	m.Store(mcu.SPI1_DR, 0x03)
	assert.Equal(t, uint32(0xAB), m.Load(mcu.SPI1_DR))
	assert.Equal(t, []byte{0x03}, script.Received())
	assert.Equal(t, 1, script.Selects())
}

func TestMCU_Overrun(t *testing.T) {
	m := New()
	enableSPI(m)
	m.Store(mcu.SPI1_DR, 0x01)
	m.Store(mcu.SPI1_DR, 0x02)
	assert.NotZero(t, m.Load(mcu.SPI1_SR)&mcu.SPI_SR_OVR)
}

func TestMCU_ChipSelectLog(t *testing.T) {
	m := New()
	enableSPI(m)
	m.Store(mcu.GPIOA_ODR, 0)
	m.Store(mcu.GPIOA_ODR, 0)
	m.Store(mcu.GPIOA_ODR, 1<<4)
	assert.Equal(t, []bool{true, false, true}, m.ChipSelectLog())
	assert.Equal(t, []uint32{0, 0, 1 << 4}, m.Writes(mcu.GPIOA_ODR)[1:])
}
