package hw

import (
	"testing"
)

func newTestSID() *SID {
	return NewSID(PALClockRate, nil)
}

// Attack 0 must reach the envelope peak after exactly 255 rate periods of
// 9 cycles.
func TestEnvelopeAttackZeroTiming(t *testing.T) {
	sid := newTestSID()
	sid.Write(sidV1AD, 0x00)
	sid.Write(sidV1SR, 0x00)
	sid.Write(sidV1Control, sidCtrlGate|sidCtrlPulse)

	const peakCycles = 255 * 9
	for i := 0; i < peakCycles-1; i++ {
		sid.Clock()
	}
	if got := sid.voices[0].env.output(); got == 0xff {
		t.Fatalf("envelope at peak one cycle early (%d cycles)", peakCycles-1)
	}
	sid.Clock()
	if got := sid.voices[0].env.output(); got != 0xff {
		t.Fatalf("envelope = $%02X after %d cycles, want $FF", got, peakCycles)
	}
}

func TestEnvelopeReleaseToZero(t *testing.T) {
	sid := newTestSID()
	sid.Write(sidV1AD, 0x00)
	sid.Write(sidV1SR, 0xf0) // sustain max, release 0
	sid.Write(sidV1Control, sidCtrlGate|sidCtrlSawtooth)
	for i := 0; i < 255*9+10; i++ {
		sid.Clock()
	}
	sid.Write(sidV1Control, sidCtrlSawtooth) // gate off
	for i := 0; i < 100000; i++ {
		sid.Clock()
	}
	if got := sid.voices[0].env.output(); got != 0 {
		t.Errorf("envelope = $%02X after release, want 0", got)
	}
}

func TestPulseWaveformToggles(t *testing.T) {
	sid := newTestSID()
	sid.Write(sidV1FreqLo, 0xd6)
	sid.Write(sidV1FreqHi, 0x1c)
	sid.Write(sidV1PWLo, 0x00)
	sid.Write(sidV1PWHi, 0x08)
	sid.Write(sidV1AD, 0x00)
	sid.Write(sidV1SR, 0x00)
	sid.Write(sidV1Control, sidCtrlGate|sidCtrlPulse)

	seenHigh, seenLow := false, false
	for i := 0; i < 2048; i++ {
		sid.Clock()
		switch sid.voices[0].waveform() {
		case 0xfff:
			seenHigh = true
		case 0x000:
			seenLow = true
		}
	}
	if !seenHigh || !seenLow {
		t.Errorf("pulse output stuck: high=%v low=%v", seenHigh, seenLow)
	}
}

func TestSawtoothTracksAccumulator(t *testing.T) {
	sid := newTestSID()
	sid.Write(sidV1FreqLo, 0x00)
	sid.Write(sidV1FreqHi, 0x10) // 0x1000 per cycle
	sid.Write(sidV1Control, sidCtrlSawtooth)

	sid.Clock()
	if got := sid.voices[0].waveform(); got != 0x001 {
		t.Errorf("saw after one cycle = $%03X, want $001", got)
	}
	for i := 0; i < 15; i++ {
		sid.Clock()
	}
	if got := sid.voices[0].waveform(); got != 0x010 {
		t.Errorf("saw after 16 cycles = $%03X, want $010", got)
	}
}

// The test bit clamps the oscillator within the same sample.
func TestTestBitClampsOscillator(t *testing.T) {
	sid := newTestSID()
	sid.Write(sidV1FreqLo, 0xff)
	sid.Write(sidV1FreqHi, 0xff)
	sid.Write(sidV1Control, sidCtrlSawtooth)
	for i := 0; i < 100; i++ {
		sid.Clock()
	}
	if sid.voices[0].acc == 0 {
		t.Fatal("oscillator never advanced")
	}
	sid.Write(sidV1Control, sidCtrlSawtooth|sidCtrlTest)
	if sid.voices[0].acc != 0 {
		t.Error("test bit did not clamp the accumulator immediately")
	}
	sid.Clock()
	if sid.voices[0].acc != 0 {
		t.Error("accumulator advanced with test bit set")
	}
}

func TestHardSync(t *testing.T) {
	sid := newTestSID()
	// Voice 1 syncs to voice 3. Run voice 3 fast enough to wrap.
	sid.Write(sidV3FreqLo, 0xff)
	sid.Write(sidV3FreqHi, 0xff)
	sid.Write(sidV1FreqLo, 0x01)
	sid.Write(sidV1FreqHi, 0x00)
	sid.Write(sidV1Control, sidCtrlSync|sidCtrlSawtooth)

	wrapped := false
	for i := 0; i < 300; i++ {
		sid.Clock()
		if sid.voices[2].msbRising {
			wrapped = true
			if sid.voices[0].acc != 0 {
				t.Fatalf("voice 1 accumulator = %06X at sync, want 0", sid.voices[0].acc)
			}
		}
	}
	if !wrapped {
		t.Fatal("voice 3 never wrapped")
	}
}

func TestRingModInvertsTriangle(t *testing.T) {
	sid := newTestSID()
	v := &sid.voices[0]
	v.acc = 0x400000
	v.control = sidCtrlTriangle
	plain := v.triangle()

	// With the source MSB set, ring modulation mirrors the output.
	v.prev.acc = 0x800000
	v.control = sidCtrlTriangle | sidCtrlRing
	ringed := v.triangle()
	if ringed == plain {
		t.Error("ring modulation had no effect with source MSB set")
	}
}

func TestOsc3Env3Readback(t *testing.T) {
	sid := newTestSID()
	sid.Write(sidV3FreqLo, 0x00)
	sid.Write(sidV3FreqHi, 0x40)
	sid.Write(sidV3Control, sidCtrlSawtooth)
	// OSC3 is the top 8 bits of the 12-bit output: 16 cycles at $4000
	// bring the sawtooth to $040, read back as $04.
	for i := 0; i < 16; i++ {
		sid.Clock()
	}
	if got := sid.Read(sidOsc3); got == 0 {
		t.Error("OSC3 readback stuck at zero")
	}

	sid.Write(sidV3AD, 0x00)
	sid.Write(sidV3Control, sidCtrlSawtooth|sidCtrlGate)
	for i := 0; i < 100; i++ {
		sid.Clock()
	}
	if got := sid.Read(sidEnv3); got == 0 {
		t.Error("ENV3 readback stuck at zero during attack")
	}
}

func TestWriteOnlyRegistersReadZero(t *testing.T) {
	sid := newTestSID()
	sid.Write(sidV1FreqLo, 0xaa)
	wantUint8(t, "freq lo readback", sid.Read(sidV1FreqLo), 0x00)
	wantUint8(t, "mode/vol readback", sid.Read(sidModeVol), 0x00)
}

func TestNoiseLFSRAdvances(t *testing.T) {
	sid := newTestSID()
	sid.Write(sidV1FreqLo, 0xff)
	sid.Write(sidV1FreqHi, 0x00)
	sid.Write(sidV1Control, sidCtrlNoise)

	first := sid.voices[0].noiseOutput()
	changed := false
	for i := 0; i < 10000; i++ {
		sid.Clock()
		if sid.voices[0].noiseOutput() != first {
			changed = true
			break
		}
	}
	if !changed {
		t.Error("noise output never changed")
	}
}

func TestFilterLowPassConverges(t *testing.T) {
	flt := newSidFilter(PALClockRate)
	flt.setCutoffHi(0xff)
	flt.setCutoffLo(0x07)
	flt.setMode(0x10) // low pass

	var out float64
	for i := 0; i < 100000; i++ {
		out = flt.clock(1000.0)
	}
	if out < 500 {
		t.Errorf("low pass output %f nowhere near the DC input", out)
	}
}

func TestVolumeScalesOutput(t *testing.T) {
	sid := newTestSID()
	ring := NewSampleRing(1024)
	sid.mixer = NewAudioMixer(PALClockRate, 44100, ring)

	sid.Write(sidV1FreqLo, 0xd6)
	sid.Write(sidV1FreqHi, 0x1c)
	sid.Write(sidV1AD, 0x00)
	sid.Write(sidV1SR, 0xf0)
	sid.Write(sidModeVol, 0x0f)
	sid.Write(sidV1Control, sidCtrlGate|sidCtrlSawtooth)

	for i := 0; i < 20000; i++ {
		sid.Clock()
	}
	sid.EndFrame()
	var buf [1024]int16
	n := ring.Pop(buf[:])
	if n == 0 {
		t.Fatal("no samples produced")
	}
	nonzero := false
	for _, s := range buf[:n] {
		if s != 0 {
			nonzero = true
			break
		}
	}
	if !nonzero {
		t.Error("all samples are zero at full volume")
	}
}
