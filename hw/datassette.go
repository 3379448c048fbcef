package hw

import (
	"github.com/binaryfields/zinc64/emu/log"
)

// Tape yields pulse widths in ϕ2 cycles, as decoded from a TAP image.
type Tape interface {
	ReadPulse() (uint32, bool)
	Rewind()
}

// Datassette is the 1530 tape unit. While playing with the motor line on,
// it generates square pulses on the CIA1 FLAG pin; the sense line tells the
// KERNAL a deck button is held.
type Datassette struct {
	flag  PinProducer
	sense PinProducer
	motor *Pin

	playing bool
	tape    Tape

	pulseRemaining uint32
	pulseHalf      uint32
}

func NewDatassette(pins *Pins) *Datassette {
	return &Datassette{
		flag:  pins.Flag1.Producer(),
		sense: pins.CassSense.Producer(),
		motor: pins.CassMotor,
	}
}

func (d *Datassette) Attach(tape Tape) {
	d.tape = tape
}

func (d *Datassette) Detach() {
	d.Stop()
	d.tape = nil
}

func (d *Datassette) Play() {
	if d.tape == nil {
		return
	}
	log.ModTape.Infof("datassette play")
	d.playing = true
	d.sense.Assert(true)
}

func (d *Datassette) Stop() {
	log.ModTape.Infof("datassette stop")
	d.playing = false
	d.sense.Assert(false)
}

func (d *Datassette) Reset() {
	d.playing = false
	d.sense.Assert(false)
	d.flag.Assert(false)
	d.pulseRemaining = 0
	d.pulseHalf = 0
	if d.tape != nil {
		d.tape.Rewind()
	}
}

func (d *Datassette) IsPlaying() bool { return d.playing }

// Clock advances the transport one cycle. The motor line comes from the
// processor port (active low).
func (d *Datassette) Clock() {
	if !d.playing || d.tape == nil || d.motor.IsHigh() {
		return
	}
	if d.pulseRemaining == 0 {
		pulse, ok := d.tape.ReadPulse()
		if !ok {
			d.Stop()
			return
		}
		d.pulseRemaining = pulse
		d.pulseHalf = pulse / 2
	}
	d.pulseRemaining--
	// 50% duty cycle: high for the first half, low for the second. The
	// CIA triggers on the falling edge.
	d.flag.Assert(d.pulseRemaining >= d.pulseHalf)
}
