package hw

import (
	"github.com/binaryfields/zinc64/emu/log"
)

// Locations reserved for vector pointers.
const (
	NMIVector   = uint16(0xFFFA) // Non-Maskable Interrupt
	ResetVector = uint16(0xFFFC) // Reset
	IRQVector   = uint16(0xFFFE) // Interrupt Request
)

// Bus is the CPU's view of the outside world. Accesses already carry no
// cycle cost here; the CPU ticks the machine itself around each access.
type Bus interface {
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8)
}

// Ticker advances the rest of the machine by one ϕ2 cycle.
type Ticker interface {
	Tick()
}

// CPU is the MOS 6510: an NMOS 6502 with an on-chip I/O port mapped at
// $0000/$0001. Every bus access ticks the machine once, so instruction
// timing falls out of the access pattern of each opcode.
type CPU struct {
	bus Bus
	t   Ticker

	A, X, Y, SP uint8
	PC          uint16
	P           P

	Clock int64 // ϕ2 cycles since power-up

	// Processor port. Output bits 0-2 drive LORAM/HIRAM/CHAREN, bit 3 the
	// cassette write line, bit 5 the cassette motor; bit 4 senses the
	// datassette switch.
	Port *IoPort

	// BA is sampled before every read cycle; while low the CPU is stalled
	// and the machine keeps ticking (VIC DMA). AEC gates write cycles: a
	// write only proceeds while the CPU owns the address bus.
	ba  *Pin
	aec *Pin

	// interrupt lines and the per-cycle sampling state
	irq *Pin
	nmi *Pin

	runIRQ, prevRunIRQ   bool
	nmiLast              bool
	needNmi, prevNeedNmi bool

	halted bool
}

// NewCPU creates a new CPU at power-up state.
func NewCPU(bus Bus, ticker Ticker, pins *Pins) *CPU {
	cpu := &CPU{
		bus:  bus,
		t:    ticker,
		A:    0x00,
		X:    0x00,
		Y:    0x00,
		SP:   0xFD,
		P:    0x20,
		PC:   0x0000,
		Port: NewIoPort(0x00, 0xff),
		irq:  pins.IRQ,
		nmi:  pins.NMI,
		ba:   pins.BA,
		aec:  pins.AEC,
	}
	cpu.nmiLast = true
	return cpu
}

func (c *CPU) Reset() {
	c.SP = 0xFD
	c.P = 0x20
	c.P.setBit(pbitI)
	c.Port.SetDirection(0x2f)
	c.Port.SetValue(0x37)
	c.halted = false
	c.runIRQ = false
	c.prevRunIRQ = false
	c.needNmi = false
	c.prevNeedNmi = false
	c.nmiLast = true

	// Vector fetch costs the documented startup cycles.
	for i := 0; i < 6; i++ {
		c.tick()
	}
	c.PC = c.Read16(ResetVector)
}

// Step executes exactly one instruction, then services any interrupt that
// was pending at the penultimate cycle. Returns the cycles consumed.
func (c *CPU) Step() int64 {
	start := c.Clock
	opcode := c.Read8(c.PC)
	ops[opcode](c)

	if c.halted {
		log.ModCPU.WarnZ("CPU halted").
			Hex16("PC", c.PC).
			Hex8("opcode", opcode).
			End()
		return c.Clock - start
	}

	if c.prevRunIRQ || c.prevNeedNmi {
		c.serviceInterrupt()
	}
	return c.Clock - start
}

// Run executes instructions until at least ncycles have elapsed.
func (c *CPU) Run(ncycles int64) {
	until := c.Clock + ncycles
	for c.Clock < until && !c.halted {
		c.Step()
	}
}

func (c *CPU) IsHalted() bool { return c.halted }

func (c *CPU) halt() { c.halted = true }

// tick advances the machine one cycle and samples the interrupt lines the
// way the 6502 does: NMI edge-detected, IRQ level-sensitive, both taking
// effect only after the next-to-last cycle of an instruction.
func (c *CPU) tick() {
	c.t.Tick()
	c.Clock++

	c.prevNeedNmi = c.needNmi

	nmiLow := c.nmi.IsLow()
	if c.nmiLast && nmiLow {
		c.needNmi = true
	}
	c.nmiLast = !nmiLow

	c.prevRunIRQ = c.runIRQ
	c.runIRQ = c.irq.IsLow() && !c.P.I()
}

func (c *CPU) Read8(addr uint16) uint8 {
	// Reads stall while the VIC holds BA low; write cycles proceed. The
	// interrupt lines keep being sampled during the stall.
	for c.ba.IsLow() {
		c.tick()
	}
	c.tick()
	switch addr {
	case 0x0000:
		return c.Port.Direction()
	case 0x0001:
		return c.Port.Value()
	}
	return c.bus.Read8(addr, false)
}

func (c *CPU) Write8(addr uint16, val uint8) {
	// Write cycles proceed under BA-low but not while the VIC drives the
	// address bus.
	for c.aec.IsLow() {
		c.tick()
	}
	c.tick()
	switch addr {
	case 0x0000:
		c.Port.SetDirection(val)
		return
	case 0x0001:
		c.Port.SetValue(val)
		return
	}
	c.bus.Write8(addr, val)
}

func (c *CPU) Read16(addr uint16) uint16 {
	lo := c.Read8(addr)
	hi := c.Read8(addr + 1)
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) Write16(addr uint16, val uint16) {
	lo := uint8(val & 0xff)
	hi := uint8(val >> 8)
	c.Write8(addr, lo)
	c.Write8(addr+1, hi)
}

// Peek8 reads without side effects or cycle cost (debugging).
func (c *CPU) Peek8(addr uint16) uint8 {
	switch addr {
	case 0x0000:
		return c.Port.Direction()
	case 0x0001:
		return c.Port.Value()
	}
	return c.bus.Read8(addr, true)
}

/* interrupt handling */

func (c *CPU) serviceInterrupt() {
	c.Read8(c.PC) // dummy reads
	c.Read8(c.PC)

	c.push16(c.PC)

	if c.needNmi {
		c.needNmi = false
		p := c.P
		p.clearBit(pbitB)
		p.setBit(pbitU)
		c.push8(uint8(p))

		c.P.setBit(pbitI)
		c.PC = c.Read16(NMIVector)
		log.ModCPU.DebugZ("NMI taken").Hex16("vector", c.PC).End()
	} else {
		p := c.P
		p.clearBit(pbitB)
		p.setBit(pbitU)
		c.push8(uint8(p))

		c.P.setBit(pbitI)
		c.PC = c.Read16(IRQVector)
		log.ModCPU.DebugZ("IRQ taken").Hex16("vector", c.PC).End()
	}
}

/* stack operations */

func (c *CPU) push8(val uint8) {
	c.Write8(uint16(c.SP)+0x0100, val)
	c.SP--
}

func (c *CPU) push16(val uint16) {
	c.push8(uint8(val >> 8))
	c.push8(uint8(val & 0xff))
}

func (c *CPU) pull8() uint8 {
	c.SP++
	return c.Read8(uint16(c.SP) + 0x0100)
}

func (c *CPU) pull16() uint16 {
	lo := c.pull8()
	hi := c.pull8()
	return uint16(hi)<<8 | uint16(lo)
}

// P is the 6510 Processor Status Register.
type P uint8

const (
	pbitN = 7 - iota // Negative flag
	pbitV            // oVerflow flag
	pbitU            // Unused
	pbitB            // Break flag
	pbitD            // Decimal mode flag
	pbitI            // Interrupt disable flag
	pbitZ            // Zero flag
	pbitC            // Carry flag
)

func (p P) N() bool { return p&(1<<pbitN) != 0 }
func (p P) V() bool { return p&(1<<pbitV) != 0 }
func (p P) B() bool { return p&(1<<pbitB) != 0 }
func (p P) D() bool { return p&(1<<pbitD) != 0 }
func (p P) I() bool { return p&(1<<pbitI) != 0 }
func (p P) Z() bool { return p&(1<<pbitZ) != 0 }
func (p P) C() bool { return p&(1<<pbitC) != 0 }

func (p *P) checkNZ(v uint8) {
	p.writeBit(pbitN, v&0x80 != 0)
	p.writeBit(pbitZ, v == 0)
}

func (p *P) checkCV(x, y uint8, sum uint16) {
	// forward carry or unsigned overflow.
	p.writeBit(pbitC, sum > 0xFF)

	// signed overflow, can only happen if the sign of the sum differs
	// from that of both operands.
	v := (uint16(x) ^ sum) & (uint16(y) ^ sum) & 0x80
	p.writeBit(pbitV, v != 0)
}

func (p *P) writeBit(i int, v bool) {
	if v {
		p.setBit(i)
	} else {
		p.clearBit(i)
	}
}

func (p *P) setBit(i int) {
	*p |= P(1 << i)
}

func (p *P) clearBit(i int) {
	*p &= ^(1 << i) & 0xff
}

func (p *P) ibit(i int) uint8 {
	return (uint8(*p) & (1 << i)) >> i
}

func (p P) String() string {
	const bits = "nvubdizcNVUBDIZC"

	s := make([]byte, 8)
	for i := 0; i < 8; i++ {
		s[i] = bits[i+int(8*p.ibit(7-i))]
	}
	return string(s)
}

func b2i(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
