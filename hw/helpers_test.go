package hw

import (
	"testing"

	"github.com/binaryfields/zinc64/hw/hwdefs"
)

// testBus is a flat 64K RAM bus for CPU-only tests.
type testBus struct {
	ram [0x10000]uint8
}

func (b *testBus) Read8(addr uint16, peek bool) uint8 { return b.ram[addr] }
func (b *testBus) Write8(addr uint16, val uint8)      { b.ram[addr] = val }

// tickCounter counts machine cycles handed to the ticker.
type tickCounter struct {
	n int64
}

func (t *tickCounter) Tick() { t.n++ }

func newTestCPU() (*CPU, *testBus, *tickCounter, *Pins) {
	bus := &testBus{}
	ticker := &tickCounter{}
	pins := NewPins()
	cpu := NewCPU(bus, ticker, pins)
	return cpu, bus, ticker, pins
}

// newTestC64 builds a full machine with RAM-backed ROM images so bank 31
// resolves without real ROM files.
func newTestC64(t *testing.T) *C64 {
	t.Helper()
	c64 := NewC64(hwdefs.PAL, HardwareFactory{}, nil)
	kernal := make([]uint8, 0x2000)
	// Reset vector -> $8000, IRQ -> $8100, NMI -> $8200. The handlers are
	// plain RTIs so interrupt tests return cleanly.
	setVector := func(vec uint16, target uint16) {
		kernal[vec-0xe000] = uint8(target)
		kernal[vec-0xe000+1] = uint8(target >> 8)
	}
	setVector(ResetVector, 0x8000)
	setVector(IRQVector, 0x8100)
	setVector(NMIVector, 0x8200)
	c64.MMU.Basic = make([]uint8, 0x2000)
	c64.MMU.Kernal = kernal
	c64.MMU.Chargen = make([]uint8, 0x1000)
	c64.MMU.RAM[0x8100] = 0x40 // RTI
	c64.MMU.RAM[0x8200] = 0x40 // RTI
	c64.Reset(true)
	// Reset wiped RAM, put the handlers back.
	c64.MMU.RAM[0x8100] = 0x40
	c64.MMU.RAM[0x8200] = 0x40
	return c64
}

func wantUint8(t *testing.T, name string, got, want uint8) {
	t.Helper()
	if got != want {
		t.Errorf("got %s=$%02X, want $%02X", name, got, want)
	}
}

func wantUint16(t *testing.T, name string, got, want uint16) {
	t.Helper()
	if got != want {
		t.Errorf("got %s=$%04X, want $%04X", name, got, want)
	}
}
