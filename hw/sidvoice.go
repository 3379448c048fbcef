package hw

// SID control register bits.
const (
	sidCtrlGate = 1 << iota
	sidCtrlSync
	sidCtrlRing
	sidCtrlTest
	sidCtrlTriangle
	sidCtrlSawtooth
	sidCtrlPulse
	sidCtrlNoise
)

// sidVoice is one oscillator/envelope pair. The oscillator is a 24-bit
// phase accumulator; waveform selection, ring modulation, hard sync and the
// test bit all act within the sample in which they change.
type sidVoice struct {
	freq    uint16
	pw      uint16 // 12-bit pulse width
	control uint8

	acc       uint32 // 24-bit phase accumulator
	noise     uint32 // 23-bit LFSR
	msbRising bool   // sync trigger for the next voice

	env sidEnvelope

	// sync/ring source: the previous voice in the 1->2->3->1 chain
	prev *sidVoice
}

func (v *sidVoice) reset() {
	prev := v.prev
	*v = sidVoice{prev: prev}
	v.noise = 0x7ffff8
}

func (v *sidVoice) writeControl(val uint8) {
	if val&sidCtrlTest != 0 {
		// Test bit clamps the oscillator and resets the noise register.
		v.acc = 0
		v.noise = 0x7ffff8
	}
	v.control = val
	v.env.setGate(val&sidCtrlGate != 0)
}

// clockOscillator advances the accumulator; hard sync is resolved by the
// SID after all three have clocked.
func (v *sidVoice) clockOscillator() {
	if v.control&sidCtrlTest != 0 {
		v.msbRising = false
		return
	}
	prev := v.acc
	v.acc = (v.acc + uint32(v.freq)) & 0xffffff
	v.msbRising = prev&0x800000 == 0 && v.acc&0x800000 != 0

	// The noise LFSR shifts on every rising edge of accumulator bit 19.
	if prev&0x080000 == 0 && v.acc&0x080000 != 0 {
		bit := (v.noise>>22 ^ v.noise>>17) & 1
		v.noise = (v.noise<<1 | bit) & 0x7fffff
	}
}

// applySync performs hard sync: the wrap of the source voice resets this
// accumulator.
func (v *sidVoice) applySync() {
	if v.control&sidCtrlSync != 0 && v.prev.msbRising {
		v.acc = 0
	}
}

// waveform returns the 12-bit oscillator output for the selected waveform
// bits. Combined waveforms are approximated by ANDing.
func (v *sidVoice) waveform() uint16 {
	sel := v.control & 0xf0
	if sel == 0 {
		return 0
	}
	out := uint16(0xfff)
	if sel&sidCtrlTriangle != 0 {
		out &= v.triangle()
	}
	if sel&sidCtrlSawtooth != 0 {
		out &= v.sawtooth()
	}
	if sel&sidCtrlPulse != 0 {
		out &= v.pulse()
	}
	if sel&sidCtrlNoise != 0 {
		out &= v.noiseOutput()
	}
	return out
}

func (v *sidVoice) sawtooth() uint16 {
	return uint16(v.acc >> 12)
}

func (v *sidVoice) triangle() uint16 {
	msb := v.acc
	if v.control&sidCtrlRing != 0 {
		// Ring modulation substitutes the XOR of both oscillator MSBs.
		msb ^= v.prev.acc
	}
	acc := v.acc
	if msb&0x800000 != 0 {
		acc = ^acc
	}
	return uint16(acc>>11) & 0xfff
}

func (v *sidVoice) pulse() uint16 {
	if v.control&sidCtrlTest != 0 {
		return 0xfff
	}
	if uint16(v.acc>>12) < v.pw&0x0fff {
		return 0xfff
	}
	return 0
}

// noiseOutput spreads eight LFSR taps over the 12-bit output.
func (v *sidVoice) noiseOutput() uint16 {
	n := v.noise
	return uint16(n>>22&1)<<11 |
		uint16(n>>20&1)<<10 |
		uint16(n>>16&1)<<9 |
		uint16(n>>13&1)<<8 |
		uint16(n>>11&1)<<7 |
		uint16(n>>7&1)<<6 |
		uint16(n>>4&1)<<5 |
		uint16(n>>2&1)<<4
}

// output is the signed voice contribution: waveform centered around zero
// scaled by the envelope.
func (v *sidVoice) output() int32 {
	wave := int32(v.waveform()) - 0x800
	return wave * int32(v.env.output())
}
