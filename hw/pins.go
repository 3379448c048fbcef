package hw

// Pin is a multi-producer active-low electrical line. Every producer owns
// one bit of the assertion mask; the pin reads low as soon as any producer
// asserts. Producers register with Producer and only ever touch their own
// slot, which is what lets, say, a CIA release the IRQ line without masking
// the VIC's assertion.
type Pin struct {
	name   string
	nprod  uint
	signal uint16
	last   uint16
	restHi bool
}

// NewPin returns a pin that rests high (deasserted).
func NewPin(name string) *Pin {
	return &Pin{name: name, restHi: true}
}

// NewPinLow returns a pin that rests low.
func NewPinLow(name string) *Pin {
	return &Pin{name: name}
}

func (p *Pin) Name() string { return p.name }

// Producer allocates an assertion slot on the pin.
func (p *Pin) Producer() PinProducer {
	if p.nprod >= 16 {
		panic("too many producers on pin " + p.name)
	}
	bit := uint16(1) << p.nprod
	p.nprod++
	return PinProducer{pin: p, bit: bit}
}

func (p *Pin) IsLow() bool {
	if p.restHi {
		return p.signal != 0
	}
	return p.signal == 0
}

func (p *Pin) IsHigh() bool { return !p.IsLow() }

func (p *Pin) level() bool { // true == high
	if p.restHi {
		return p.signal == 0
	}
	return p.signal != 0
}

func (p *Pin) lastLevel() bool {
	if p.restHi {
		return p.last == 0
	}
	return p.last != 0
}

// IsFalling reports a high-to-low transition since the previous Latch call.
func (p *Pin) IsFalling() bool {
	return p.lastLevel() && !p.level()
}

// IsRising reports a low-to-high transition since the previous Latch call.
func (p *Pin) IsRising() bool {
	return !p.lastLevel() && p.level()
}

// Latch records the current level for edge detection. The orchestrator
// calls it once per cycle after all chips have run.
func (p *Pin) Latch() {
	p.last = p.signal
}

func (p *Pin) Reset() {
	p.signal = 0
	p.last = 0
}

// PinProducer is one producer's handle on a pin.
type PinProducer struct {
	pin *Pin
	bit uint16
}

// Assert drives the producer's slot. For a rest-high pin, set pulls the
// line low.
func (pp PinProducer) Assert(set bool) {
	if set {
		pp.pin.signal |= pp.bit
	} else {
		pp.pin.signal &^= pp.bit
	}
}

func (pp PinProducer) Asserted() bool {
	return pp.pin.signal&pp.bit != 0
}

// Pins is the registry of the machine's shared lines, owned by the C64 and
// handed to chips at construction.
type Pins struct {
	IRQ       *Pin // CIA1/VIC/expansion -> CPU
	NMI       *Pin // CIA2/restore key -> CPU
	Reset     *Pin // power circuit -> everything
	BA        *Pin // VIC -> CPU, bus available
	AEC       *Pin // VIC -> CPU, address enable
	CNT1      *Pin // CIA1 counter input
	CNT2      *Pin // CIA2 counter input
	Flag1     *Pin // cassette read -> CIA1 FLAG
	Flag2     *Pin // user port -> CIA2 FLAG
	CassMotor *Pin // processor port -> datassette motor
	CassSense *Pin // datassette -> processor port (play pressed)
	CassWrite *Pin // processor port -> datassette write head
}

func NewPins() *Pins {
	return &Pins{
		IRQ:       NewPin("irq"),
		NMI:       NewPin("nmi"),
		Reset:     NewPin("reset"),
		BA:        NewPin("ba"),
		AEC:       NewPin("aec"),
		CNT1:      NewPin("cnt1"),
		CNT2:      NewPin("cnt2"),
		Flag1:     NewPinLow("flag1"),
		Flag2:     NewPinLow("flag2"),
		CassMotor: NewPin("cass-motor"),
		CassSense: NewPin("cass-sense"),
		CassWrite: NewPin("cass-write"),
	}
}

func (pins *Pins) ResetAll() {
	for _, p := range pins.all() {
		p.Reset()
	}
}

// Latch runs end-of-cycle edge bookkeeping on every line.
func (pins *Pins) Latch() {
	for _, p := range pins.all() {
		p.Latch()
	}
}

func (pins *Pins) all() [12]*Pin {
	return [12]*Pin{
		pins.IRQ, pins.NMI, pins.Reset, pins.BA, pins.AEC, pins.CNT1,
		pins.CNT2, pins.Flag1, pins.Flag2, pins.CassMotor, pins.CassSense,
		pins.CassWrite,
	}
}
