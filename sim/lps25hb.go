package sim

import (
	"math"
	"sync"
)

const (
	lpsWhoAmI    = 0x0F
	lpsCtrlReg1  = 0x20
	lpsStatusReg = 0x27
	lpsPressXL   = 0x28
	lpsTempH     = 0x2C

	lpsCtrlPD  = 0x80
	lpsReadBit = 0x80
	lpsMSBit   = 0x40
	lpsAddr    = 0x3F

	// DeviceID is what a genuine LPS25HB answers on WHO_AM_I.
	DeviceID = 0xBD
)

// LPS25HB models the sensor's SPI register interface: the first byte of a
// transaction selects the register, bit 7 requests a read and bit 6
// auto-increments the address after each data byte. Output registers read as
// zero until CTRL_REG1.PD powers the device up.
type LPS25HB struct {
	mx           sync.Mutex
	regs         [lpsAddr + 1]byte
	selected     bool
	awaitCommand bool
	addr         byte
	read         bool
	increment    bool
	transactions int
}

var _ Slave = &LPS25HB{}

func NewLPS25HB() *LPS25HB {
	s := &LPS25HB{}
	s.regs[lpsWhoAmI] = DeviceID
	s.regs[0x10] = 0x05 // RES_CONF
	return s
}

func (s *LPS25HB) Select() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.selected = true
	s.awaitCommand = true
}

func (s *LPS25HB) Deselect() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.selected = false
	s.transactions++
}

func (s *LPS25HB) Exchange(mosi byte) byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	if !s.selected {
		return 0xFF
	}
	if s.awaitCommand {
		s.awaitCommand = false
		s.read = mosi&lpsReadBit != 0
		s.increment = mosi&lpsMSBit != 0
		s.addr = mosi & lpsAddr
		return 0x00
	}
	var miso byte
	if s.read {
		miso = s.value(s.addr)
	} else if writable(s.addr) {
		s.regs[s.addr] = mosi
	}
	if s.increment {
		s.addr = (s.addr + 1) & lpsAddr
	}
	return miso
}

func (s *LPS25HB) value(addr byte) byte {
	if s.regs[lpsCtrlReg1]&lpsCtrlPD == 0 && addr >= lpsStatusReg && addr <= lpsTempH {
		return 0
	}
	return s.regs[addr]
}

func writable(addr byte) bool {
	return addr != lpsWhoAmI && (addr < lpsStatusReg || addr > lpsTempH)
}

func (s *LPS25HB) SetWhoAmI(id byte) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.regs[lpsWhoAmI] = id
}

// SetPressureRaw loads the 24-bit PRESS_OUT registers.
func (s *LPS25HB) SetPressureRaw(raw uint32) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.regs[lpsPressXL] = byte(raw)
	s.regs[lpsPressXL+1] = byte(raw >> 8)
	s.regs[lpsPressXL+2] = byte(raw >> 16)
	s.regs[lpsStatusReg] |= 0x02
}

// SetPressure loads the output registers with hPa at 4096 LSB/hPa.
func (s *LPS25HB) SetPressure(hPa float64) {
	s.SetPressureRaw(uint32(math.Round(hPa * 4096)))
}

// SetTemperature loads TEMP_OUT with celsius (42.5 °C offset, 480 LSB/°C).
func (s *LPS25HB) SetTemperature(celsius float64) {
	raw := int16(math.Round((celsius - 42.5) * 480))
	s.mx.Lock()
	defer s.mx.Unlock()
	s.regs[lpsTempH-1] = byte(raw)
	s.regs[lpsTempH] = byte(uint16(raw) >> 8)
	s.regs[lpsStatusReg] |= 0x01
}

func (s *LPS25HB) Register(addr byte) byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.regs[addr&lpsAddr]
}

// Transactions counts completed CS assertions.
func (s *LPS25HB) Transactions() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.transactions
}

// Script answers with a fixed byte sequence and records what it received.
type Script struct {
	mx        sync.Mutex
	responses []byte
	received  []byte
	selects   int
}

var _ Slave = &Script{}

func NewScript(responses ...byte) *Script {
	return &Script{responses: responses}
}

func (s *Script) Select() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.selects++
}

func (s *Script) Deselect() {}

func (s *Script) Exchange(mosi byte) byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.received = append(s.received, mosi)
	if len(s.responses) == 0 {
		return 0x00
	}
	miso := s.responses[0]
	s.responses = s.responses[1:]
	return miso
}

// Push queues more response bytes.
func (s *Script) Push(responses ...byte) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.responses = append(s.responses, responses...)
}

func (s *Script) Received() []byte {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]byte(nil), s.received...)
}

func (s *Script) Selects() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.selects
}
