package hw

// Envelope generator of one SID voice. A 15-bit rate counter paces the
// 8-bit envelope counter; decay and release slow down exponentially through
// the documented piecewise divider.
type sidEnvelope struct {
	attack  uint8
	decay   uint8
	sustain uint8
	release uint8

	gate  bool
	state envState

	rateCounter uint16
	expCounter  uint8
	expPeriod   uint8
	counter     uint8 // envelope output, 0-255
	frozen      bool  // counter stuck at zero until next gate
}

type envState uint8

const (
	envAttack envState = iota
	envDecay
	envRelease
)

// envRatePeriods holds the rate-counter periods for each of the 16 ADSR
// values. Attack uses them directly; decay/release stretch them through the
// exponential counter.
var envRatePeriods = [16]uint16{
	9, 32, 63, 95, 149, 220, 267, 313,
	392, 977, 1954, 3126, 3907, 11720, 19532, 31251,
}

func (e *sidEnvelope) reset() {
	*e = sidEnvelope{}
}

func (e *sidEnvelope) setAttackDecay(val uint8) {
	e.attack = val >> 4
	e.decay = val & 0x0f
}

func (e *sidEnvelope) setSustainRelease(val uint8) {
	e.sustain = val >> 4
	e.release = val & 0x0f
}

// setGate tracks the control register gate bit; edges restart the ADSR
// cycle in the same sample.
func (e *sidEnvelope) setGate(gate bool) {
	if gate && !e.gate {
		e.state = envAttack
		e.frozen = false
	} else if !gate && e.gate {
		e.state = envRelease
	}
	e.gate = gate
}

func (e *sidEnvelope) output() uint8 { return e.counter }

func (e *sidEnvelope) clock() {
	var period uint16
	switch e.state {
	case envAttack:
		period = envRatePeriods[e.attack]
	case envDecay:
		period = envRatePeriods[e.decay]
	case envRelease:
		period = envRatePeriods[e.release]
	}

	e.rateCounter++
	if e.rateCounter < period {
		return
	}
	e.rateCounter = 0

	if e.state == envAttack {
		// Attack is linear and ignores the exponential divider.
		e.counter++
		if e.counter == 0xff {
			e.state = envDecay
		}
		e.updateExpPeriod()
		return
	}

	e.expCounter++
	if e.expCounter < e.expPeriod {
		return
	}
	e.expCounter = 0

	if e.frozen {
		return
	}
	switch e.state {
	case envDecay:
		if e.counter != e.sustain<<4|e.sustain {
			e.counter--
		}
	case envRelease:
		if e.counter != 0 {
			e.counter--
		}
	}
	if e.counter == 0 {
		e.frozen = true
	}
	e.updateExpPeriod()
}

// updateExpPeriod sets the exponential divider from the envelope level, per
// the documented drop table.
func (e *sidEnvelope) updateExpPeriod() {
	switch {
	case e.counter > 0x5d:
		e.expPeriod = 1
	case e.counter > 0x36:
		e.expPeriod = 2
	case e.counter > 0x1a:
		e.expPeriod = 4
	case e.counter > 0x0e:
		e.expPeriod = 8
	case e.counter > 0x06:
		e.expPeriod = 16
	case e.counter > 0x00:
		e.expPeriod = 30
	default:
		e.expPeriod = 1
	}
}
