// Package sim simulates the STM32F401 registers touched during bring-up and
// an LPS25HB attached to SPI1, so the whole firmware can run on a host.
package sim

import (
	"sync"

	"github.com/mklimuk/baro/mcu"
)

// Slave is a device on the simulated SPI bus.
type Slave interface {
	Select()
	Deselect()
	Exchange(mosi byte) (miso byte)
}

// Access is one recorded register access. Only stores and SPI1.DR loads are
// recorded; status polling would flood the trace.
type Access struct {
	Reg   mcu.Register
	Write bool
	Value uint32
}

type stuckBits struct {
	mask  uint32
	level bool
}

type Option func(*MCU)

func WithSlave(s Slave) Option {
	return func(m *MCU) {
		m.slave = s
	}
}

// WithChipSelect sets the GPIOA pin wired to the slave's CS input (default 4).
func WithChipSelect(pin uint8) Option {
	return func(m *MCU) {
		m.csPin = pin
	}
}

// WithPLLLockDelay makes PLLRDY appear only after the given number of RCC.CR reads.
func WithPLLLockDelay(polls int) Option {
	return func(m *MCU) {
		m.pllDelay = polls
	}
}

// MCU is an in-memory mcu.RegisterFile with the hardware side-effects the
// bring-up sequence depends on.
type MCU struct {
	mx       sync.Mutex
	regs     [mcu.NumRegisters]uint32
	stuck    map[mcu.Register]stuckBits
	slave    Slave
	csPin    uint8
	csLevel  bool
	csLog    []bool
	selected bool
	trace    []Access
	pllDelay int
	pllPolls int
}

var _ mcu.RegisterFile = &MCU{}

func New(opts ...Option) *MCU {
	m := &MCU{
		regs:  mcu.ResetValues,
		stuck: make(map[mcu.Register]stuckBits),
		csPin: 4,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MCU) Load(r mcu.Register) uint32 {
	m.mx.Lock()
	defer m.mx.Unlock()
	switch r {
	case mcu.RCC_CR:
		v := m.regs[r]
		if v&mcu.RCC_CR_PLLON != 0 && v&mcu.RCC_CR_PLLRDY == 0 {
			m.pllPolls++
			if m.pllPolls > m.pllDelay {
				m.regs[r] |= mcu.RCC_CR_PLLRDY
			}
		}
	case mcu.SPI1_DR:
		m.regs[mcu.SPI1_SR] &^= mcu.SPI_SR_RXNE
		m.trace = append(m.trace, Access{Reg: r, Value: m.regs[r]})
	}
	return m.stick(r, m.regs[r])
}

func (m *MCU) Store(r mcu.Register, value uint32) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.trace = append(m.trace, Access{Reg: r, Write: true, Value: value})
	switch r {
	case mcu.RCC_CR:
		hw := mcu.RCC_CR_HSIRDY | mcu.RCC_CR_PLLRDY
		value = value&^hw | m.regs[r]&hw
		if value&mcu.RCC_CR_PLLON == 0 {
			value &^= mcu.RCC_CR_PLLRDY
			m.pllPolls = 0
		}
	case mcu.RCC_CFGR:
		value = mcu.RCC_CFGR_SWS.Set(value, mcu.RCC_CFGR_SW.Get(value))
	case mcu.SPI1_SR:
		// status flags are hardware controlled
		return
	case mcu.SPI1_DR:
		m.exchange(byte(value))
		return
	}
	m.regs[r] = value
	if r == mcu.GPIOA_MODER || r == mcu.GPIOA_ODR {
		m.updateChipSelect()
	}
}

func (m *MCU) exchange(mosi byte) {
	cr1 := m.regs[mcu.SPI1_CR1]
	if cr1&mcu.SPI_CR1_SPE == 0 || cr1&mcu.SPI_CR1_MSTR == 0 {
		return
	}
	if m.stick(mcu.SPI1_SR, m.regs[mcu.SPI1_SR])&mcu.SPI_SR_TXE == 0 {
		return
	}
	if m.regs[mcu.SPI1_SR]&mcu.SPI_SR_RXNE != 0 {
		m.regs[mcu.SPI1_SR] |= mcu.SPI_SR_OVR
	}
	miso := byte(0xFF)
	if m.selected && m.slave != nil {
		miso = m.slave.Exchange(mosi)
	}
	m.regs[mcu.SPI1_DR] = uint32(miso)
	m.regs[mcu.SPI1_SR] |= mcu.SPI_SR_RXNE
}

func (m *MCU) updateChipSelect() {
	level := m.regs[mcu.GPIOA_ODR]&(1<<m.csPin) != 0
	if level != m.csLevel {
		m.csLevel = level
		m.csLog = append(m.csLog, level)
	}
	output := mcu.ModerField(m.csPin).Get(m.regs[mcu.GPIOA_MODER]) == mcu.ModeOutput
	asserted := output && !level
	if asserted == m.selected {
		return
	}
	m.selected = asserted
	if m.slave == nil {
		return
	}
	if asserted {
		m.slave.Select()
	} else {
		m.slave.Deselect()
	}
}

func (m *MCU) stick(r mcu.Register, v uint32) uint32 {
	s, ok := m.stuck[r]
	if !ok {
		return v
	}
	if s.level {
		return v | s.mask
	}
	return v &^ s.mask
}

// Stick forces the bits in mask to level on every read of r, emulating a
// peripheral that never raises (or never clears) a flag.
func (m *MCU) Stick(r mcu.Register, mask uint32, level bool) {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.stuck[r] = stuckBits{mask: mask, level: level}
}

func (m *MCU) Unstick(r mcu.Register) {
	m.mx.Lock()
	defer m.mx.Unlock()
	delete(m.stuck, r)
}

// Peek returns the raw register content without read side-effects.
func (m *MCU) Peek(r mcu.Register) uint32 {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.regs[r]
}

func (m *MCU) Trace() []Access {
	m.mx.Lock()
	defer m.mx.Unlock()
	return append([]Access(nil), m.trace...)
}

// Writes returns every value stored to r, in order.
func (m *MCU) Writes(r mcu.Register) []uint32 {
	m.mx.Lock()
	defer m.mx.Unlock()
	var res []uint32
	for _, a := range m.trace {
		if a.Write && a.Reg == r {
			res = append(res, a.Value)
		}
	}
	return res
}

func (m *MCU) ResetTrace() {
	m.mx.Lock()
	defer m.mx.Unlock()
	m.trace = nil
	m.csLog = nil
}

// ChipSelectLog lists the chip-select output levels in order of change (true = high).
func (m *MCU) ChipSelectLog() []bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	return append([]bool(nil), m.csLog...)
}

// Selected reports whether the slave currently sees its CS asserted.
func (m *MCU) Selected() bool {
	m.mx.Lock()
	defer m.mx.Unlock()
	return m.selected
}
