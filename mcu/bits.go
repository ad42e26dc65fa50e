package mcu

// Field is a contiguous bit range inside a register.
type Field struct {
	Pos   uint8
	Width uint8
}

func (f Field) Mask() uint32 {
	return (uint32(1)<<f.Width - 1) << f.Pos
}

func (f Field) Get(reg uint32) uint32 {
	return (reg & f.Mask()) >> f.Pos
}

// Set returns reg with the field replaced by value. Excess value bits are dropped.
func (f Field) Set(reg, value uint32) uint32 {
	return reg&^f.Mask() | (value<<f.Pos)&f.Mask()
}

// STM32F401 bit layout (RM0368).
const (
	RCC_CR_HSION  uint32 = 1 << 0
	RCC_CR_HSIRDY uint32 = 1 << 1
	RCC_CR_PLLON  uint32 = 1 << 24
	RCC_CR_PLLRDY uint32 = 1 << 25

	RCC_PLLCFGR_PLLSRC uint32 = 1 << 22

	RCC_CFGR_SW_PLL  uint32 = 0b10
	RCC_CFGR_SWS_PLL uint32 = 0b10

	RCC_AHB1ENR_GPIOAEN uint32 = 1 << 0
	RCC_APB2ENR_SPI1EN  uint32 = 1 << 12

	SPI_CR1_CPHA     uint32 = 1 << 0
	SPI_CR1_CPOL     uint32 = 1 << 1
	SPI_CR1_MSTR     uint32 = 1 << 2
	SPI_CR1_SPE      uint32 = 1 << 6
	SPI_CR1_LSBFIRST uint32 = 1 << 7
	SPI_CR1_SSI      uint32 = 1 << 8
	SPI_CR1_SSM      uint32 = 1 << 9

	SPI_SR_RXNE uint32 = 1 << 0
	SPI_SR_TXE  uint32 = 1 << 1
	SPI_SR_MODF uint32 = 1 << 5
	SPI_SR_OVR  uint32 = 1 << 6
	SPI_SR_BSY  uint32 = 1 << 7
)

var (
	RCC_PLLCFGR_PLLM = Field{Pos: 0, Width: 6}
	RCC_PLLCFGR_PLLN = Field{Pos: 6, Width: 9}
	RCC_PLLCFGR_PLLP = Field{Pos: 16, Width: 2}

	RCC_CFGR_SW    = Field{Pos: 0, Width: 2}
	RCC_CFGR_SWS   = Field{Pos: 2, Width: 2}
	RCC_CFGR_PPRE1 = Field{Pos: 10, Width: 3}
	RCC_CFGR_PPRE2 = Field{Pos: 13, Width: 3}

	FLASH_ACR_LATENCY = Field{Pos: 0, Width: 4}

	SPI_CR1_BR = Field{Pos: 3, Width: 3}
)

// GPIO pin modes as encoded in MODER.
const (
	ModeInput     uint32 = 0b00
	ModeOutput    uint32 = 0b01
	ModeAlternate uint32 = 0b10
	ModeAnalog    uint32 = 0b11
)

// ModerField is the 2-bit mode field of pin (0..15).
func ModerField(pin uint8) Field {
	return Field{Pos: 2 * pin, Width: 2}
}

// AFRField returns the alternate function register and 4-bit field of pin (0..15).
func AFRField(pin uint8) (Register, Field) {
	if pin < 8 {
		return GPIOA_AFRL, Field{Pos: 4 * pin, Width: 4}
	}
	return GPIOA_AFRH, Field{Pos: 4 * (pin - 8), Width: 4}
}

// Reset values of the registers the simulator models.
var ResetValues = [NumRegisters]uint32{
	RCC_CR:      RCC_CR_HSION | RCC_CR_HSIRDY | 0x80,
	RCC_PLLCFGR: 0x24003010,
	GPIOA_MODER: 0xA8000000,
	SPI1_SR:     SPI_SR_TXE,
}
