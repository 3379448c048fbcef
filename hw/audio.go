package hw

import (
	"sync/atomic"

	"github.com/arl/blip"

	"github.com/binaryfields/zinc64/emu/log"
)

const maxSampleRate = 96000
const maxSamplesPerFrame = maxSampleRate / 50 * 2

// AudioMixer band-limits the 1 MHz SID sample stream down to the host
// sample rate and feeds the ring the frontend drains. Deltas are queued at
// cycle timestamps; the expensive resampling runs once per video frame.
type AudioMixer struct {
	buf     *blip.Buffer
	prevOut int16
	outbuf  [maxSamplesPerFrame]int16

	ring *SampleRing

	clockRate  float64
	sampleRate float64
}

func NewAudioMixer(clockRate float64, sampleRate float64, ring *SampleRing) *AudioMixer {
	am := &AudioMixer{
		buf:        blip.NewBuffer(maxSamplesPerFrame),
		ring:       ring,
		clockRate:  clockRate,
		sampleRate: sampleRate,
	}
	am.buf.SetRates(clockRate, sampleRate)
	return am
}

func (am *AudioMixer) Reset() {
	am.prevOut = 0
	am.buf.Clear()
}

// AddSample registers the SID output level at the given cycle of the
// current frame.
func (am *AudioMixer) AddSample(cycle uint32, sample int16) {
	if sample != am.prevOut {
		am.buf.AddDelta(uint64(cycle), int32(sample-am.prevOut))
		am.prevOut = sample
	}
}

// EndFrame closes the frame after ncycles and moves the resampled audio
// into the ring. The producer never blocks: on overrun the oldest samples
// are dropped and logged.
func (am *AudioMixer) EndFrame(ncycles uint32) {
	am.buf.EndFrame(int(ncycles))

	n := am.buf.ReadSamples(am.outbuf[:], am.buf.SamplesAvailable(), blip.Mono)
	if n == 0 {
		return
	}
	dropped := am.ring.Push(am.outbuf[:n])
	if dropped > 0 {
		log.ModSID.DebugZ("audio ring overrun").Int("dropped", dropped).End()
	}
}

// SampleRing is the bounded single-producer/single-consumer boundary
// between the emulation thread and the audio device.
type SampleRing struct {
	buf  []int16
	mask uint32
	head atomic.Uint32 // write index (producer)
	tail atomic.Uint32 // read index (consumer)
}

// NewSampleRing creates a ring with the given power-of-two capacity.
func NewSampleRing(capacity int) *SampleRing {
	if capacity&(capacity-1) != 0 {
		panic("sample ring capacity is not pow2")
	}
	return &SampleRing{
		buf:  make([]int16, capacity),
		mask: uint32(capacity - 1),
	}
}

// Push appends samples, dropping the oldest queued data on overflow.
// Returns the number of samples dropped.
func (r *SampleRing) Push(samples []int16) int {
	head := r.head.Load()
	tail := r.tail.Load()
	free := len(r.buf) - int(head-tail)

	dropped := 0
	if len(samples) > free {
		dropped = len(samples) - free
		r.tail.Store(tail + uint32(dropped))
	}
	for _, s := range samples {
		r.buf[head&r.mask] = s
		head++
	}
	r.head.Store(head)
	return dropped
}

// Pop fills out with queued samples and returns how many were written.
func (r *SampleRing) Pop(out []int16) int {
	head := r.head.Load()
	tail := r.tail.Load()
	n := int(head - tail)
	if n > len(out) {
		n = len(out)
	}
	for i := 0; i < n; i++ {
		out[i] = r.buf[tail&r.mask]
		tail++
	}
	r.tail.Store(tail)
	return n
}

// Len reports the queued sample count.
func (r *SampleRing) Len() int {
	return int(r.head.Load() - r.tail.Load())
}
