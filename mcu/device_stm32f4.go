//go:build tinygo && stm32f4

package mcu

import (
	"device/stm32"
	"runtime/volatile"
)

var deviceRegisters = [NumRegisters]*volatile.Register32{
	RCC_CR:       &stm32.RCC.CR,
	RCC_PLLCFGR:  &stm32.RCC.PLLCFGR,
	RCC_CFGR:     &stm32.RCC.CFGR,
	RCC_AHB1ENR:  &stm32.RCC.AHB1ENR,
	RCC_APB2ENR:  &stm32.RCC.APB2ENR,
	FLASH_ACR:    &stm32.FLASH.ACR,
	GPIOA_MODER:  &stm32.GPIOA.MODER,
	GPIOA_OTYPER: &stm32.GPIOA.OTYPER,
	GPIOA_ODR:    &stm32.GPIOA.ODR,
	GPIOA_AFRL:   &stm32.GPIOA.AFRL,
	GPIOA_AFRH:   &stm32.GPIOA.AFRH,
	SPI1_CR1:     &stm32.SPI1.CR1,
	SPI1_SR:      &stm32.SPI1.SR,
	SPI1_DR:      &stm32.SPI1.DR,
}

type device struct{}

func (device) Load(r Register) uint32 {
	return deviceRegisters[r].Get()
}

func (device) Store(r Register, value uint32) {
	deviceRegisters[r].Set(value)
}

// Device is the memory-mapped register file of the running chip.
var Device RegisterFile = &device{}
