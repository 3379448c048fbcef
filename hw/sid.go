package hw

import (
	"github.com/binaryfields/zinc64/emu/log"
	"github.com/binaryfields/zinc64/hw/snapshot"
)

// SID register offsets within the 32-byte file.
const (
	sidV1FreqLo = iota
	sidV1FreqHi
	sidV1PWLo
	sidV1PWHi
	sidV1Control
	sidV1AD
	sidV1SR
	sidV2FreqLo
	sidV2FreqHi
	sidV2PWLo
	sidV2PWHi
	sidV2Control
	sidV2AD
	sidV2SR
	sidV3FreqLo
	sidV3FreqHi
	sidV3PWLo
	sidV3PWHi
	sidV3Control
	sidV3AD
	sidV3SR
	sidFCLo
	sidFCHi
	sidResFilt
	sidModeVol
	sidPotX
	sidPotY
	sidOsc3
	sidEnv3
)

// SID is the 6581 sound interface device. Clock() runs once per ϕ2 cycle
// and produces one signed 16-bit sample into the mixer.
type SID struct {
	voices [3]sidVoice
	filter *sidFilter
	volume uint8

	potX, potY uint8

	mixer *AudioMixer
	cycle uint32 // cycle within the current audio frame
}

func NewSID(clockRate float64, mixer *AudioMixer) *SID {
	s := &SID{
		filter: newSidFilter(clockRate),
		mixer:  mixer,
		potX:   0xff,
		potY:   0xff,
	}
	// sync/ring chain is 1->2->3->1
	s.voices[0].prev = &s.voices[2]
	s.voices[1].prev = &s.voices[0]
	s.voices[2].prev = &s.voices[1]
	for i := range s.voices {
		s.voices[i].reset()
	}
	return s
}

func (s *SID) Reset() {
	for i := range s.voices {
		s.voices[i].reset()
		s.voices[i].env.reset()
	}
	s.filter.reset()
	s.volume = 0
	s.cycle = 0
}

// Clock advances the chip one cycle and emits the sample.
func (s *SID) Clock() {
	for i := range s.voices {
		s.voices[i].clockOscillator()
		s.voices[i].env.clock()
	}
	// Hard sync resolves against the pre-sync wrap flags of all voices.
	for i := range s.voices {
		s.voices[i].applySync()
	}

	var direct, routed int32
	for i := range s.voices {
		if i == 2 && s.filter.voice3Off() && !s.filter.filtered(2) {
			continue
		}
		out := s.voices[i].output()
		if s.filter.filtered(i) {
			routed += out
		} else {
			direct += out
		}
	}

	filtered := s.filter.clock(float64(routed))
	mix := (float64(direct) + filtered) * float64(s.volume) / 15.0

	// Three voices at ±0x800*255 each; scale into int16.
	sample := int16(clampf(mix/3/2048/256*32767, -32767, 32767))

	if s.mixer != nil {
		s.mixer.AddSample(s.cycle, sample)
	}
	s.cycle++
}

// EndFrame flushes the mixer at vsync with the number of cycles clocked in
// the finished frame.
func (s *SID) EndFrame() {
	if s.mixer != nil {
		s.mixer.EndFrame(s.cycle)
	}
	s.cycle = 0
}

func clampf(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

/* register file */

func (s *SID) voiceReg(reg uint16) (*sidVoice, int) {
	idx := int(reg / 7)
	return &s.voices[idx], int(reg % 7)
}

// Read dispatches a register read. Write-only registers read back 0.
func (s *SID) Read(addr uint16) uint8 {
	switch addr & 0x1f {
	case sidPotX:
		return s.potX
	case sidPotY:
		return s.potY
	case sidOsc3:
		return uint8(s.voices[2].waveform() >> 4)
	case sidEnv3:
		return s.voices[2].env.output()
	default:
		return 0
	}
}

func (s *SID) Peek(addr uint16) uint8 {
	return s.Read(addr)
}

func (s *SID) Write(addr uint16, val uint8) {
	reg := addr & 0x1f
	log.ModSID.DebugZ("reg write").Hex16("reg", reg).Hex8("val", val).End()
	switch {
	case reg <= sidV3SR:
		v, field := s.voiceReg(reg)
		switch field {
		case 0:
			v.freq = v.freq&0xff00 | uint16(val)
		case 1:
			v.freq = v.freq&0x00ff | uint16(val)<<8
		case 2:
			v.pw = v.pw&0x0f00 | uint16(val)
		case 3:
			v.pw = v.pw&0x00ff | uint16(val&0x0f)<<8
		case 4:
			v.writeControl(val)
		case 5:
			v.env.setAttackDecay(val)
		case 6:
			v.env.setSustainRelease(val)
		}
	case reg == sidFCLo:
		s.filter.setCutoffLo(val)
	case reg == sidFCHi:
		s.filter.setCutoffHi(val)
	case reg == sidResFilt:
		s.filter.setResFilt(val)
	case reg == sidModeVol:
		s.filter.setMode(val)
		s.volume = val & 0x0f
	}
}

// SetPot feeds the paddle A/D converters (CIA1 port A selects the pair).
func (s *SID) SetPot(x, y uint8) {
	s.potX = x
	s.potY = y
}

/* snapshots */

func (s *SID) State() *snapshot.SID {
	st := &snapshot.SID{
		Volume:     s.volume,
		FilterFC:   s.filter.cutoff,
		FilterRes:  s.filter.resonance,
		FilterRout: s.filter.routing,
		FilterMode: s.filter.mode,
		FilterLP:   s.filter.lp,
		FilterBP:   s.filter.bp,
		FilterHP:   s.filter.hp,
	}
	for i := range s.voices {
		v := &s.voices[i]
		st.Voices[i] = snapshot.SIDVoice{
			Freq:       v.freq,
			PW:         v.pw,
			Control:    v.control,
			Acc:        v.acc,
			Noise:      v.noise,
			EnvState:   uint8(v.env.state),
			EnvCounter: v.env.counter,
			EnvRate:    v.env.rateCounter,
			EnvExp:     v.env.expCounter,
			EnvAttack:  v.env.attack,
			EnvDecay:   v.env.decay,
			EnvSustain: v.env.sustain,
			EnvRelease: v.env.release,
			EnvGate:    v.env.gate,
			EnvFrozen:  v.env.frozen,
		}
	}
	return st
}

func (s *SID) SetState(st *snapshot.SID) {
	s.volume = st.Volume
	s.filter.cutoff = st.FilterFC
	s.filter.resonance = st.FilterRes
	s.filter.routing = st.FilterRout
	s.filter.mode = st.FilterMode
	s.filter.lp = st.FilterLP
	s.filter.bp = st.FilterBP
	s.filter.hp = st.FilterHP
	s.filter.updateCoefficients()
	for i := range s.voices {
		v := &s.voices[i]
		sv := st.Voices[i]
		v.freq = sv.Freq
		v.pw = sv.PW
		v.control = sv.Control
		v.acc = sv.Acc
		v.noise = sv.Noise
		v.env.state = envState(sv.EnvState)
		v.env.counter = sv.EnvCounter
		v.env.rateCounter = sv.EnvRate
		v.env.expCounter = sv.EnvExp
		v.env.attack = sv.EnvAttack
		v.env.decay = sv.EnvDecay
		v.env.sustain = sv.EnvSustain
		v.env.release = sv.EnvRelease
		v.env.gate = sv.EnvGate
		v.env.frozen = sv.EnvFrozen
	}
}
