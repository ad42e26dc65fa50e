package pressure

import (
	"context"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"periph.io/x/conn/v3/physic"
)

// wire records chip-select edges and MOSI bytes in the order they happen and
// answers exchanges from a queue of MISO bytes.
type wire struct {
	events []string
	miso   []byte
	failAt int
}

func (w *wire) ExchangeByte(_ context.Context, data byte) (byte, error) {
	w.events = append(w.events, fmt.Sprintf("%02x", data))
	if w.failAt > 0 && len(w.events) >= w.failAt {
		return 0, fmt.Errorf("bus dead")
	}
	if len(w.miso) == 0 {
		return 0x00, nil
	}
	b := w.miso[0]
	w.miso = w.miso[1:]
	return b, nil
}

type wirePin struct {
	w *wire
}

func (p wirePin) Low() error {
	p.w.events = append(p.w.events, "L")
	return nil
}

func (p wirePin) High() error {
	p.w.events = append(p.w.events, "H")
	return nil
}

func newWired(miso ...byte) (*LPS25HB, *wire) {
	w := &wire{miso: miso}
	return NewLPS25HB(w, wirePin{w}), w
}

func pulses(events []string) int {
	n := 0
	low := false
	for _, e := range events {
		switch e {
		case "L":
			low = true
		case "H":
			if low {
				n++
			}
			low = false
		}
	}
	return n
}

func TestLPS25HB_ReadPressure(t *testing.T) {
	tests := []struct {
		given    []byte
		expected int32
	}{
		{[]byte{0x00, 0x00, 0x01}, 16},
		{[]byte{0xFF, 0xFF, 0xFF}, 4095},
		{[]byte{0x00, 0x00, 0x00}, 0},
		{[]byte{0x00, 0x50, 0x3F}, 1013},
		{[]byte{0xFF, 0x0F, 0x00}, 0},
		{[]byte{0x00, 0x10, 0x00}, 1},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			// first byte answers the command
			sensor, w := newWired(append([]byte{0x00}, test.given...)...)
			p, err := sensor.ReadPressure(context.Background())
			require.NoError(t, err)
			assert.Equal(t, test.expected, p)
			assert.Equal(t, []string{"L", "e8", "00", "00", "00", "H"}, w.events)
		})
	}
}

func TestLPS25HB_Initialize(t *testing.T) {
	for i := 0; i <= 0xFF; i++ {
		id := byte(i)
		sensor, w := newWired(0x00, id)
		ok, err := sensor.Initialize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, id == DeviceID, ok, "id %#02x", id)
		assert.Equal(t, id, sensor.ID())
		assert.Equal(t, []string{"L", "8f", "00", "H", "L", "20", "90", "H"}, w.events)
		assert.Equal(t, 2, pulses(w.events))
	}
}

func TestLPS25HB_CheckID(t *testing.T) {
	sensor, _ := newWired(0x00, 0xBD)
	require.NoError(t, sensor.CheckID(context.Background()))

	sensor, _ = newWired(0x00, 0xB1)
	err := sensor.CheckID(context.Background())
	assert.ErrorIs(t, err, ErrWrongDevice)
	assert.ErrorContains(t, err, "0xb1")
}

func TestLPS25HB_DeselectOnError(t *testing.T) {
	w := &wire{failAt: 3}
	sensor := NewLPS25HB(w, wirePin{w})
	_, err := sensor.ReadPressure(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "bus dead")
	assert.Equal(t, "H", w.events[len(w.events)-1])
	assert.Equal(t, 1, pulses(w.events))

	w = &wire{failAt: 2}
	sensor = NewLPS25HB(w, wirePin{w})
	ok, err := sensor.Initialize(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"L", "8f", "H"}, w.events)
}

func TestLPS25HB_Registers(t *testing.T) {
	sensor, w := newWired(0x00, 0x05)
	v, err := sensor.ReadRegister(context.Background(), 0x10)
	require.NoError(t, err)
	assert.Equal(t, byte(0x05), v)
	require.NoError(t, sensor.WriteRegister(context.Background(), 0x21, 0x04))
	assert.Equal(t, []string{"L", "90", "00", "H", "L", "21", "04", "H"}, w.events)
}

func TestLPS25HB_ReadSample(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	w := &wire{miso: []byte{0x00, 0x00, 0x50, 0x3F}}
	sensor := NewLPS25HB(w, wirePin{w}, WithNow(func() time.Time { return at }))
	s, err := sensor.ReadSample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Sample{Raw: 0x3F5000, HPa: 1013, At: at}, s)
	assert.Equal(t, 101300*physic.Pascal, s.Pressure())
}

func TestLPS25HB_ConvertTemperature(t *testing.T) {
	tests := []struct {
		given    []byte
		expected float32
	}{
		{[]byte{0x00, 0x00}, 42.5},
		{[]byte{0xE0, 0x01}, 43.5},
		{[]byte{0x20, 0xFE}, 41.5},
	}
	for _, test := range tests {
		t.Run(hex.EncodeToString(test.given), func(t *testing.T) {
			assert.Equal(t, test.expected, convertTemperature(test.given))
		})
	}
}

// MockBus is a baro.ByteExchanger using testify/mock.
type MockBus struct {
	mock.Mock
}

func (m *MockBus) ExchangeByte(ctx context.Context, data byte) (byte, error) {
	args := m.Called(ctx, data)
	return args.Get(0).(byte), args.Error(1)
}

type MockPin struct {
	mock.Mock
}

func (m *MockPin) Low() error {
	return m.Called().Error(0)
}

func (m *MockPin) High() error {
	return m.Called().Error(0)
}

func TestLPS25HB_ReadTemperature(t *testing.T) {
	bus := &MockBus{}
	pin := &MockPin{}
	pin.On("Low").Return(nil).Once()
	pin.On("High").Return(nil).Once()
	bus.On("ExchangeByte", mock.Anything, byte(0xEB)).Return(byte(0x00), nil).Once()
	bus.On("ExchangeByte", mock.Anything, byte(0x00)).Return(byte(0xE0), nil).Once()
	bus.On("ExchangeByte", mock.Anything, byte(0x00)).Return(byte(0x01), nil).Once()

	temp, err := NewLPS25HB(bus, pin).ReadTemperature(context.Background())
	require.NoError(t, err)
	assert.Equal(t, float32(43.5), temp)
	bus.AssertExpectations(t)
	pin.AssertExpectations(t)
}

func TestLPS25HB_SelectFailure(t *testing.T) {
	bus := &MockBus{}
	pin := &MockPin{}
	pin.On("Low").Return(fmt.Errorf("pin busy"))

	_, err := NewLPS25HB(bus, pin).ReadPressure(context.Background())
	assert.ErrorContains(t, err, "could not select sensor")
	bus.AssertNotCalled(t, "ExchangeByte", mock.Anything, mock.Anything)
	pin.AssertNotCalled(t, "High")
}
