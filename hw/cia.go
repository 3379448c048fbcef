package hw

import (
	"github.com/binaryfields/zinc64/emu/log"
	"github.com/binaryfields/zinc64/hw/hwdefs"
	"github.com/binaryfields/zinc64/hw/hwio"
	"github.com/binaryfields/zinc64/hw/snapshot"
)

// CIA register offsets within the 16-byte file.
const (
	ciaPRA = iota
	ciaPRB
	ciaDDRA
	ciaDDRB
	ciaTALO
	ciaTAHI
	ciaTBLO
	ciaTBHI
	ciaTODTS
	ciaTODSEC
	ciaTODMIN
	ciaTODHR
	ciaSDR
	ciaICR
	ciaCRA
	ciaCRB
)

// CIA interrupt sources (ICR bits).
const (
	ciaIntTimerA = 1 << iota
	ciaIntTimerB
	ciaIntAlarm
	ciaIntSerial
	ciaIntFlag
)

// CIAKind tells a 6526 which socket it sits in: CIA1 drives the CPU IRQ
// line and scans the keyboard, CIA2 drives NMI and the VIC bank select.
type CIAKind int

const (
	CIA1 CIAKind = iota
	CIA2
)

func (k CIAKind) String() string {
	if k == CIA2 {
		return "cia2"
	}
	return "cia1"
}

type CIA struct {
	Kind CIAKind

	PortA *IoPort
	PortB *IoPort

	TimerA ciaTimer
	TimerB ciaTimer
	TOD    ciaTod

	// interrupt control
	intMask    uint8
	intData    uint8
	intLine    PinProducer // slot on IRQ (CIA1) or NMI (CIA2)
	intAssert  int8        // one-cycle delay between flag and line
	todLatched bool

	// serial port
	sdr       uint8
	srCount   uint8
	srPending bool

	cnt  *Pin
	flag *Pin

	// peripherals seen through the ports
	Keyboard *Keyboard // CIA1 only
}

func NewCIA(kind CIAKind, pins *Pins) *CIA {
	c := &CIA{
		Kind:  kind,
		PortA: NewIoPort(0x00, 0xff),
		PortB: NewIoPort(0x00, 0xff),
	}
	switch kind {
	case CIA1:
		c.intLine = pins.IRQ.Producer()
		c.cnt = pins.CNT1
		c.flag = pins.Flag1
	case CIA2:
		c.intLine = pins.NMI.Producer()
		c.cnt = pins.CNT2
		c.flag = pins.Flag2
	}
	return c
}

func (c *CIA) Reset() {
	c.TimerA.reset()
	c.TimerB.reset()
	c.TOD.reset()
	c.intMask = 0
	c.intData = 0
	c.intAssert = 0
	c.intLine.Assert(false)
	c.sdr = 0
	c.srCount = 0
	c.srPending = false
	c.todLatched = false
	c.PortA.Reset()
	c.PortB.Reset()
}

// Clock advances the CIA by one ϕ2 cycle.
func (c *CIA) Clock() {
	// The IRQ pin follows the masked flags one cycle behind; run the
	// pipeline first so events of this cycle surface on the next one.
	if c.intAssert > 0 {
		c.intAssert--
		if c.intAssert == 0 {
			c.intLine.Assert(true)
		}
	}

	cntHigh := c.cnt.IsHigh()
	cntEdge := c.cnt.IsRising()

	taOut := c.TimerA.clock(cntHigh, cntEdge, false)
	tbOut := c.TimerB.clock(cntHigh, cntEdge, taOut)

	if taOut {
		c.setIntFlag(ciaIntTimerA)
		c.clockSerial()
	}
	if tbOut {
		c.setIntFlag(ciaIntTimerB)
	}
	if c.flag.IsFalling() {
		c.setIntFlag(ciaIntFlag)
	}
}

// TodTick advances the TOD clock; called at the mains rate.
func (c *CIA) TodTick() {
	if c.TOD.tick() {
		c.setIntFlag(ciaIntAlarm)
	}
}

func (c *CIA) setIntFlag(bits uint8) {
	c.intData |= bits
	if c.intMask&c.intData != 0 && c.intAssert == 0 && !c.intLine.Asserted() {
		c.intAssert = 1
	}
}

// clockSerial shifts the serial register on timer A underflows when the
// port is in output mode (CRA bit 6). A byte takes 16 underflows; the
// serial interrupt flags completion.
func (c *CIA) clockSerial() {
	if c.TimerA.cr&0x40 == 0 || !c.srPending {
		return
	}
	c.srCount--
	if c.srCount == 0 {
		c.srPending = false
		c.setIntFlag(ciaIntSerial)
	}
}

func (c *CIA) readICR() uint8 {
	data := c.intData
	if c.intMask&c.intData != 0 {
		data |= 0x80
	}
	// Reading acknowledges everything and releases the line.
	c.intData = 0
	c.intAssert = 0
	c.intLine.Assert(false)
	return data
}

func (c *CIA) writeICR(val uint8) {
	if val&0x80 != 0 {
		c.intMask |= val & 0x1f
	} else {
		c.intMask &^= val & 0x1f
	}
	// Enabling a mask bit with its flag already set raises the interrupt.
	if c.intMask&c.intData != 0 && c.intAssert == 0 && !c.intLine.Asserted() {
		c.intAssert = 1
	}
}

func (c *CIA) readPortA() uint8 {
	switch c.Kind {
	case CIA1:
		// Keyboard rows driven from port B selection, joystick 2 in
		// parallel.
		ext := uint8(0xff)
		if c.Keyboard != nil {
			ext &= c.Keyboard.ScanRows(c.PortB.Value())
			ext &= ^c.Keyboard.Joystick2()
		}
		return c.PortA.ValueWith(ext)
	default:
		return c.PortA.Value()
	}
}

func (c *CIA) readPortB() uint8 {
	var result uint8
	switch c.Kind {
	case CIA1:
		ext := uint8(0xff)
		if c.Keyboard != nil {
			ext &= c.Keyboard.ScanColumns(c.PortA.Value())
			ext &= ^c.Keyboard.Joystick1()
		}
		result = c.PortB.ValueWith(ext)
	default:
		result = c.PortB.Value()
	}
	// Timer outputs override DDR when enabled.
	if c.TimerA.pbOn {
		hwio.WriteBit8(&result, 6, c.TimerA.pbOutput())
	}
	if c.TimerB.pbOn {
		hwio.WriteBit8(&result, 7, c.TimerB.pbOutput())
	}
	return result
}

// Read dispatches a register read; the 16-byte file mirrors through the
// whole 256-byte page.
func (c *CIA) Read(addr uint16) uint8 {
	var val uint8
	switch addr & 0x0f {
	case ciaPRA:
		val = c.readPortA()
	case ciaPRB:
		val = c.readPortB()
	case ciaDDRA:
		val = c.PortA.Direction()
	case ciaDDRB:
		val = c.PortB.Direction()
	case ciaTALO:
		val = c.TimerA.counterLo()
	case ciaTAHI:
		val = c.TimerA.counterHi()
	case ciaTBLO:
		val = c.TimerB.counterLo()
	case ciaTBHI:
		val = c.TimerB.counterHi()
	case ciaTODTS:
		val = c.TOD.readTenths()
	case ciaTODSEC:
		val = c.TOD.readSeconds()
	case ciaTODMIN:
		val = c.TOD.readMinutes()
	case ciaTODHR:
		val = c.TOD.readHours()
	case ciaSDR:
		val = c.sdr
	case ciaICR:
		val = c.readICR()
	case ciaCRA:
		val = c.TimerA.control()
	case ciaCRB:
		val = c.TimerB.control()
	}
	log.ModCIA.DebugZ("reg read").
		Stringer("cia", c.Kind).
		Hex16("reg", addr&0x0f).
		Hex8("val", val).
		End()
	return val
}

// Peek reads a register without side effects.
func (c *CIA) Peek(addr uint16) uint8 {
	switch addr & 0x0f {
	case ciaICR:
		data := c.intData
		if c.intMask&c.intData != 0 {
			data |= 0x80
		}
		return data
	case ciaTODTS:
		return toBCD(c.TOD.current().tenths)
	case ciaTODHR:
		v := toBCD(c.TOD.current().hours)
		if c.TOD.current().pm {
			v |= 0x80
		}
		return v
	default:
		return c.Read(addr)
	}
}

func (c *CIA) Write(addr uint16, val uint8) {
	log.ModCIA.DebugZ("reg write").
		Stringer("cia", c.Kind).
		Hex16("reg", addr&0x0f).
		Hex8("val", val).
		End()
	switch addr & 0x0f {
	case ciaPRA:
		c.PortA.SetValue(val)
	case ciaPRB:
		c.PortB.SetValue(val)
	case ciaDDRA:
		c.PortA.SetDirection(val)
	case ciaDDRB:
		c.PortB.SetDirection(val)
	case ciaTALO:
		c.TimerA.setLatchLo(val)
	case ciaTAHI:
		c.TimerA.setLatchHi(val)
	case ciaTBLO:
		c.TimerB.setLatchLo(val)
	case ciaTBHI:
		c.TimerB.setLatchHi(val)
	case ciaTODTS:
		c.TOD.writeTenths(val, c.todLatched)
	case ciaTODSEC:
		c.TOD.writeSeconds(val, c.todLatched)
	case ciaTODMIN:
		c.TOD.writeMinutes(val, c.todLatched)
	case ciaTODHR:
		c.TOD.writeHours(val, c.todLatched)
	case ciaSDR:
		c.sdr = val
		c.srPending = true
		c.srCount = 16
	case ciaICR:
		c.writeICR(val)
	case ciaCRA:
		c.TOD.hz50 = val&0x80 != 0
		if val&0x20 != 0 {
			c.TimerA.input = timerInputCnt
		} else {
			c.TimerA.input = timerInputPhi2
		}
		c.TimerA.setControl(val)
	case ciaCRB:
		c.todLatched = val&0x80 != 0
		switch val >> 5 & 0x03 {
		case 0:
			c.TimerB.input = timerInputPhi2
		case 1:
			c.TimerB.input = timerInputCnt
		case 2:
			c.TimerB.input = timerInputTimerA
		case 3:
			c.TimerB.input = timerInputTimerACnt
		}
		c.TimerB.setControl(val)
	}
}

// IRQSource identifies the line slot for diagnostics.
func (c *CIA) IRQSource() hwdefs.IRQSource {
	if c.Kind == CIA2 {
		return hwdefs.Cia2
	}
	return hwdefs.Cia1
}

func (c *CIA) State() *snapshot.CIA {
	return &snapshot.CIA{
		PortAData: c.PortA.Value(),
		PortADir:  c.PortA.Direction(),
		PortBData: c.PortB.Value(),
		PortBDir:  c.PortB.Direction(),
		TimerA:    c.timerState(&c.TimerA),
		TimerB:    c.timerState(&c.TimerB),
		IntMask:   c.intMask,
		IntData:   c.intData,
		IntAssert: c.intAssert,
		SDR:       c.sdr,
		TODHalted: c.TOD.halted,
		TODClock:  todState(c.TOD.clock),
		TODAlarm:  todState(c.TOD.alarm),
	}
}

func (c *CIA) timerState(t *ciaTimer) snapshot.CIATimer {
	return snapshot.CIATimer{
		Latch:      t.latch,
		Counter:    t.counter,
		Running:    t.running,
		OneShot:    t.oneShot,
		Input:      t.input,
		CR:         t.cr,
		PBToggle:   t.pbToggle,
		StartDelay: t.startDelay,
		LoadDelay:  t.loadDelay,
	}
}

func todState(t todTime) snapshot.CIATod {
	return snapshot.CIATod{
		Tenths:  t.tenths,
		Seconds: t.seconds,
		Minutes: t.minutes,
		Hours:   t.hours,
		PM:      t.pm,
	}
}

func (c *CIA) SetState(st *snapshot.CIA) {
	c.PortA.SetDirection(st.PortADir)
	c.PortA.SetValue(st.PortAData)
	c.PortB.SetDirection(st.PortBDir)
	c.PortB.SetValue(st.PortBData)
	c.setTimerState(&c.TimerA, st.TimerA)
	c.setTimerState(&c.TimerB, st.TimerB)
	c.intMask = st.IntMask
	c.intData = st.IntData
	c.intAssert = st.IntAssert
	c.intLine.Assert(st.IntAssert == 0 && st.IntMask&st.IntData != 0)
	c.sdr = st.SDR
	c.TOD.halted = st.TODHalted
	c.TOD.clock = setTodState(st.TODClock)
	c.TOD.alarm = setTodState(st.TODAlarm)
}

func (c *CIA) setTimerState(t *ciaTimer, st snapshot.CIATimer) {
	t.latch = st.Latch
	t.counter = st.Counter
	t.running = st.Running
	t.oneShot = st.OneShot
	t.input = st.Input
	t.cr = st.CR
	t.pbToggle = st.PBToggle
	t.startDelay = st.StartDelay
	t.loadDelay = st.LoadDelay
	t.pbOn = st.CR&0x02 != 0
	t.toggleMode = st.CR&0x04 != 0
}

func setTodState(st snapshot.CIATod) todTime {
	return todTime{
		tenths:  st.Tenths,
		seconds: st.Seconds,
		minutes: st.Minutes,
		hours:   st.Hours,
		pm:      st.PM,
	}
}
