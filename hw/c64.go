package hw

import (
	"github.com/binaryfields/zinc64/emu/log"
	"github.com/binaryfields/zinc64/hw/hwdefs"
	"github.com/binaryfields/zinc64/hw/hwio"
	"github.com/binaryfields/zinc64/hw/snapshot"
)

// ChipFactory builds the chipset. The machine takes one at construction;
// tests swap in factories returning pre-configured or instrumented chips.
type ChipFactory interface {
	MakeCPU(bus Bus, ticker Ticker, pins *Pins) *CPU
	MakeCIA1(pins *Pins) *CIA
	MakeCIA2(pins *Pins) *CIA
	MakeVIC(standard hwdefs.VideoStandard, mem *MMU, pins *Pins) *VIC
	MakeSID(clockRate float64, mixer *AudioMixer) *SID
	MakeExpansionPort() *ExpansionPort
}

// HardwareFactory is the stock chipset.
type HardwareFactory struct{}

func (HardwareFactory) MakeCPU(bus Bus, ticker Ticker, pins *Pins) *CPU {
	return NewCPU(bus, ticker, pins)
}
func (HardwareFactory) MakeCIA1(pins *Pins) *CIA { return NewCIA(CIA1, pins) }
func (HardwareFactory) MakeCIA2(pins *Pins) *CIA { return NewCIA(CIA2, pins) }
func (HardwareFactory) MakeVIC(standard hwdefs.VideoStandard, mem *MMU, pins *Pins) *VIC {
	return NewVIC(standard, mem, pins)
}
func (HardwareFactory) MakeSID(clockRate float64, mixer *AudioMixer) *SID {
	return NewSID(clockRate, mixer)
}
func (HardwareFactory) MakeExpansionPort() *ExpansionPort { return NewExpansionPort() }

// Clock rates in Hz.
const (
	PALClockRate  = 985248.0
	NTSCClockRate = 1022727.0
)

func ClockRate(standard hwdefs.VideoStandard) float64 {
	if standard == hwdefs.NTSC {
		return NTSCClockRate
	}
	return PALClockRate
}

// C64 wires the chipset together and owns the canonical clock. Every chip
// advances only through Tick, in the fixed order VIC, CIA1, CIA2, SID,
// tape; the CPU drives Tick from inside its bus accesses.
type C64 struct {
	Standard hwdefs.VideoStandard

	Pins *Pins
	MMU  *MMU

	CPU  *CPU
	CIA1 *CIA
	CIA2 *CIA
	VIC  *VIC
	SID  *SID

	Keyboard   *Keyboard
	Datassette *Datassette
	Exp        *ExpansionPort

	cassMotor PinProducer

	Cycles uint64

	// mains-rate TOD tick bookkeeping
	todAccum  uint64
	todPeriod uint64
}

// NewC64 builds a machine for the given video standard. mixer may be nil
// for silent operation.
func NewC64(standard hwdefs.VideoStandard, factory ChipFactory, mixer *AudioMixer) *C64 {
	c64 := &C64{
		Standard: standard,
		Pins:     NewPins(),
	}
	c64.MMU = NewMMU()
	c64.Exp = factory.MakeExpansionPort()
	c64.MMU.Exp = c64.Exp

	c64.Keyboard = NewKeyboard(c64.Pins)
	c64.Datassette = NewDatassette(c64.Pins)
	c64.cassMotor = c64.Pins.CassMotor.Producer()

	c64.VIC = factory.MakeVIC(standard, c64.MMU, c64.Pins)
	c64.CIA1 = factory.MakeCIA1(c64.Pins)
	c64.CIA2 = factory.MakeCIA2(c64.Pins)
	c64.SID = factory.MakeSID(ClockRate(standard), mixer)
	c64.CPU = factory.MakeCPU(c64.MMU, c64, c64.Pins)

	c64.CIA1.Keyboard = c64.Keyboard

	c64.wire()
	c64.mapIO()

	// One TOD tick per mains cycle: clock rate / 50 or / 60.
	rate := uint64(50)
	if standard == hwdefs.NTSC {
		rate = 60
	}
	c64.todPeriod = uint64(ClockRate(standard)) / rate

	return c64
}

// wire installs the cross-chip couplings: processor port -> PLA + cassette,
// expansion lines -> PLA, CIA2 port A -> VIC bank.
func (c64 *C64) wire() {
	cassWrite := c64.Pins.CassWrite.Producer()
	c64.CPU.Port.SetObserver(func(val uint8) {
		mode := val&0x07 | c64.Exp.Mode()
		c64.MMU.SwitchBanks(mode)
		// Bit 5 low switches the cassette motor on.
		c64.cassMotor.Assert(val&0x20 == 0)
		// Bit 3 drives the cassette write line.
		cassWrite.Assert(val&0x08 == 0)
	})
	c64.Exp.SetObserver(func(expMode uint8) {
		mode := c64.CPU.Port.Value()&0x07 | expMode
		c64.MMU.SwitchBanks(mode)
	})
	c64.CIA2.PortA.SetObserver(func(val uint8) {
		c64.VIC.BaseAddress = uint16(^val&0x03) << 14
	})
}

// mapIO populates the I/O page dispatch of the MMU.
func (c64 *C64) mapIO() {
	io := c64.MMU.IO
	io.MapDevice(0xd000, &hwio.Device{
		Name: "vic", Size: 0x400,
		ReadCb:  c64.VIC.Read,
		PeekCb:  c64.VIC.Peek,
		WriteCb: c64.VIC.Write,
	})
	io.MapDevice(0xd400, &hwio.Device{
		Name: "sid", Size: 0x400,
		ReadCb:  c64.SID.Read,
		PeekCb:  c64.SID.Peek,
		WriteCb: c64.SID.Write,
	})
	io.MapDevice(0xd800, &hwio.Device{
		Name: "color", Size: 0x400,
		ReadCb: func(addr uint16) uint8 {
			// Upper nybble floats.
			return c64.MMU.ColorRAM[addr&0x3ff]&0x0f | c64.MMU.LastBus&0xf0
		},
		PeekCb: func(addr uint16) uint8 {
			return c64.MMU.ColorRAM[addr&0x3ff] & 0x0f
		},
		WriteCb: func(addr uint16, val uint8) {
			c64.MMU.ColorRAM[addr&0x3ff] = val & 0x0f
		},
	})
	io.MapDevice(0xdc00, &hwio.Device{
		Name: "cia1", Size: 0x100,
		ReadCb:  c64.CIA1.Read,
		PeekCb:  c64.CIA1.Peek,
		WriteCb: c64.CIA1.Write,
	})
	io.MapDevice(0xdd00, &hwio.Device{
		Name: "cia2", Size: 0x100,
		ReadCb:  c64.CIA2.Read,
		PeekCb:  c64.CIA2.Peek,
		WriteCb: c64.CIA2.Write,
	})
	io.MapDevice(0xde00, &hwio.Device{
		Name: "expio", Size: 0x200,
		ReadCb:  c64.Exp.ReadIO,
		WriteCb: c64.Exp.WriteIO,
	})
}

// Tick advances every chip but the CPU by one ϕ2 cycle, in the canonical
// order. The CPU calls it once per bus cycle.
func (c64 *C64) Tick() {
	c64.VIC.Clock()
	c64.CIA1.Clock()
	c64.CIA2.Clock()
	c64.SID.Clock()
	c64.Datassette.Clock()
	// The cassette sense line is processor port input bit 4.
	if sense := c64.Pins.CassSense.IsHigh(); sense != (c64.CPU.Port.input&0x10 != 0) {
		c64.CPU.Port.SetInputBit(4, sense)
	}
	c64.Pins.Latch()
	c64.Cycles++

	c64.todAccum++
	if c64.todAccum >= c64.todPeriod {
		c64.todAccum = 0
		c64.CIA1.TodTick()
		c64.CIA2.TodTick()
	}
}

// StepCycle advances the machine by one master cycle without running the
// CPU: the VIC may claim the bus, timers count, the SID emits a sample.
// CPU progress happens per instruction through StepInstruction, which
// consults BA/AEC at every bus cycle.
func (c64 *C64) StepCycle() {
	c64.Tick()
}

// StepInstruction runs exactly one CPU instruction (plus any interrupt
// sequence it triggers) and returns the cycles consumed.
func (c64 *C64) StepInstruction() int64 {
	if c64.Pins.Reset.IsLow() {
		// Reset aborts at the instruction boundary.
		c64.resetChips(false)
		return 0
	}
	return c64.CPU.Step()
}

// RunFrame executes instructions until the VIC signals vsync, then closes
// the audio frame and returns the finished field.
func (c64 *C64) RunFrame() *Frame {
	for !c64.VIC.FrameDone && !c64.CPU.IsHalted() {
		c64.StepInstruction()
	}
	c64.VIC.FrameDone = false
	c64.SID.EndFrame()
	return c64.VIC.CurrentFrame()
}

// Reset pulses the reset line. A hard reset also clears RAM; installed
// ROMs always survive.
func (c64 *C64) Reset(hard bool) {
	log.ModEmu.InfoZ("system reset").Bool("hard", hard).End()
	if hard {
		c64.MMU.RAM = [0x10000]uint8{}
		c64.MMU.ColorRAM = [0x400]uint8{}
	}
	c64.resetChips(hard)
}

func (c64 *C64) resetChips(hard bool) {
	c64.Pins.ResetAll()
	c64.CIA1.Reset()
	c64.CIA2.Reset()
	c64.VIC.Reset()
	c64.SID.Reset()
	c64.Exp.Reset()
	c64.Keyboard.Reset()
	c64.Datassette.Reset()
	c64.CPU.Reset()
}

// Load copies an image into RAM at the given offset (PRG/P00/BIN mounts).
func (c64 *C64) Load(data []uint8, offset uint16) {
	addr := offset
	for _, b := range data {
		c64.MMU.RAM[addr] = b
		addr++
	}
}

/* snapshots */

func (c64 *C64) Save() *snapshot.C64 {
	st := &snapshot.C64{
		Version: 1,
		CPU: &snapshot.CPU{
			PC:          c64.CPU.PC,
			SP:          c64.CPU.SP,
			P:           uint8(c64.CPU.P),
			A:           c64.CPU.A,
			X:           c64.CPU.X,
			Y:           c64.CPU.Y,
			Clock:       c64.CPU.Clock,
			PortDir:     c64.CPU.Port.Direction(),
			PortData:    c64.CPU.Port.Value(),
			RunIRQ:      c64.CPU.runIRQ,
			PrevRunIRQ:  c64.CPU.prevRunIRQ,
			NMILast:     c64.CPU.nmiLast,
			NeedNMI:     c64.CPU.needNmi,
			PrevNeedNMI: c64.CPU.prevNeedNmi,
			Halted:      c64.CPU.halted,
		},
		CIA1:    c64.CIA1.State(),
		CIA2:    c64.CIA2.State(),
		VIC:     c64.VIC.State(),
		SID:     c64.SID.State(),
		MemMode: c64.MMU.Mode(),
		Cycles:  c64.Cycles,
		Frames:  c64.VIC.Frames,
	}
	st.RAM = c64.MMU.RAM
	st.ColorRAM = c64.MMU.ColorRAM
	return st
}

func (c64 *C64) Restore(st *snapshot.C64) {
	c64.MMU.RAM = st.RAM
	c64.MMU.ColorRAM = st.ColorRAM
	c64.MMU.SwitchBanks(st.MemMode)

	cpu := c64.CPU
	cpu.PC = st.CPU.PC
	cpu.SP = st.CPU.SP
	cpu.P = P(st.CPU.P)
	cpu.A = st.CPU.A
	cpu.X = st.CPU.X
	cpu.Y = st.CPU.Y
	cpu.Clock = st.CPU.Clock
	cpu.Port.SetDirection(st.CPU.PortDir)
	cpu.Port.SetValue(st.CPU.PortData)
	cpu.runIRQ = st.CPU.RunIRQ
	cpu.prevRunIRQ = st.CPU.PrevRunIRQ
	cpu.nmiLast = st.CPU.NMILast
	cpu.needNmi = st.CPU.NeedNMI
	cpu.prevNeedNmi = st.CPU.PrevNeedNMI
	cpu.halted = st.CPU.Halted

	c64.CIA1.SetState(st.CIA1)
	c64.CIA2.SetState(st.CIA2)
	c64.VIC.SetState(st.VIC)
	c64.SID.SetState(st.SID)
	c64.Cycles = st.Cycles
	c64.VIC.Frames = st.Frames
}
