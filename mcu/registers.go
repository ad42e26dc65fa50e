// Package mcu gives named read/modify/write access to the peripheral
// registers used during bring-up. The backing store is either the real
// memory-mapped device (TinyGo builds) or a simulator.
package mcu

import (
	"errors"
	"fmt"
	"sync"
)

// Register names one 32-bit peripheral register.
type Register uint8

const (
	RCC_CR Register = iota
	RCC_PLLCFGR
	RCC_CFGR
	RCC_AHB1ENR
	RCC_APB2ENR
	FLASH_ACR
	GPIOA_MODER
	GPIOA_OTYPER
	GPIOA_ODR
	GPIOA_AFRL
	GPIOA_AFRH
	SPI1_CR1
	SPI1_SR
	SPI1_DR

	NumRegisters
)

var registerNames = [NumRegisters]string{
	RCC_CR:       "RCC.CR",
	RCC_PLLCFGR:  "RCC.PLLCFGR",
	RCC_CFGR:     "RCC.CFGR",
	RCC_AHB1ENR:  "RCC.AHB1ENR",
	RCC_APB2ENR:  "RCC.APB2ENR",
	FLASH_ACR:    "FLASH.ACR",
	GPIOA_MODER:  "GPIOA.MODER",
	GPIOA_OTYPER: "GPIOA.OTYPER",
	GPIOA_ODR:    "GPIOA.ODR",
	GPIOA_AFRL:   "GPIOA.AFRL",
	GPIOA_AFRH:   "GPIOA.AFRH",
	SPI1_CR1:     "SPI1.CR1",
	SPI1_SR:      "SPI1.SR",
	SPI1_DR:      "SPI1.DR",
}

func (r Register) String() string {
	if r < NumRegisters {
		return registerNames[r]
	}
	return fmt.Sprintf("Register(%d)", uint8(r))
}

// RegisterFile is the raw backing store of the peripheral registers.
type RegisterFile interface {
	Load(r Register) uint32
	Store(r Register, value uint32)
}

var ErrAlreadyTaken = errors.New("peripherals already taken")

var (
	ownersMx sync.Mutex
	owners   = map[RegisterFile]struct{}{}
)

// noCopy makes go vet's copylocks check flag copies of Peripherals.
type noCopy struct{}

func (*noCopy) Lock()   {}
func (*noCopy) Unlock() {}

// Peripherals is the exclusive handle to a register file. Only one handle can
// exist per backend at a time; every configuration and transfer call borrows it.
type Peripherals struct {
	_  noCopy
	rf RegisterFile
}

// Take claims exclusive ownership of rf.
func Take(rf RegisterFile) (*Peripherals, error) {
	if rf == nil {
		return nil, fmt.Errorf("nil register file")
	}
	ownersMx.Lock()
	defer ownersMx.Unlock()
	if _, taken := owners[rf]; taken {
		return nil, ErrAlreadyTaken
	}
	owners[rf] = struct{}{}
	return &Peripherals{rf: rf}, nil
}

// Release gives the register file back. The handle must not be used afterwards.
func (p *Peripherals) Release() {
	ownersMx.Lock()
	defer ownersMx.Unlock()
	delete(owners, p.rf)
	p.rf = nil
}

func (p *Peripherals) Read(r Register) uint32 {
	return p.rf.Load(r)
}

func (p *Peripherals) Write(r Register, value uint32) {
	p.rf.Store(r, value)
}

// Modify performs a read-modify-write cycle.
func (p *Peripherals) Modify(r Register, fn func(uint32) uint32) {
	p.rf.Store(r, fn(p.rf.Load(r)))
}

func (p *Peripherals) SetBits(r Register, mask uint32) {
	p.Modify(r, func(v uint32) uint32 { return v | mask })
}

func (p *Peripherals) ClearBits(r Register, mask uint32) {
	p.Modify(r, func(v uint32) uint32 { return v &^ mask })
}

// HasBits reports whether all bits of mask are set.
func (p *Peripherals) HasBits(r Register, mask uint32) bool {
	return p.rf.Load(r)&mask == mask
}

func (p *Peripherals) Field(r Register, f Field) uint32 {
	return f.Get(p.rf.Load(r))
}

func (p *Peripherals) SetField(r Register, f Field, value uint32) {
	p.Modify(r, func(v uint32) uint32 { return f.Set(v, value) })
}
