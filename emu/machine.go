// Package emu assembles a C64 and runs it against the frontend contracts:
// a video frame double-buffer, a bounded audio sample ring, and an input
// event queue drained at vsync.
package emu

import (
	"fmt"
	"sync/atomic"

	"github.com/binaryfields/zinc64/emu/log"
	"github.com/binaryfields/zinc64/hw"
	"github.com/binaryfields/zinc64/loader"
)

// Exit statuses of the CLI surface.
const (
	ExitOK = iota
	ExitLoadError
	ExitConfigError
	ExitRuntimeError
)

// InputEvent is one frontend input change, applied at the next vsync.
type InputEvent struct {
	Kind InputKind

	Row, Col uint8 // key events
	Down     bool

	Joystick uint8 // joystick events: port (1/2) and state
	State    uint8

	Matrix [8]uint8 // whole-matrix replace
}

type InputKind int

const (
	InputKey InputKind = iota
	InputRestoreKey
	InputJoystick
	InputMatrix
	InputTapePlay
	InputTapeStop
	InputReset
)

const inputQueueSize = 64

// Machine is the emulation-thread owner of a C64 plus its frontend
// boundaries. Frontends run on other goroutines and communicate only
// through the ring, the frames handed out by RunFrame/Run and PostInput.
type Machine struct {
	C64    *hw.C64
	Mixer  *hw.AudioMixer
	Ring   *hw.SampleRing
	Config Config

	// frame double buffer: the VIC renders into one while the frontend
	// reads the other
	frames   [2]*hw.Frame
	frontIdx int

	inputQueue chan InputEvent

	running atomic.Bool

	autostart *loader.PRG
}

// NewMachine builds a machine from configuration, loading ROMs from the
// configured paths.
func NewMachine(cfg Config) (*Machine, error) {
	standard, err := cfg.VideoStandard()
	if err != nil {
		return nil, err
	}

	basic, err := loader.ReadROMFile(cfg.ROM.Basic, loader.BasicROMSize)
	if err != nil {
		return nil, fmt.Errorf("basic rom: %w", err)
	}
	kernal, err := loader.ReadROMFile(cfg.ROM.Kernal, loader.KernalROMSize)
	if err != nil {
		return nil, fmt.Errorf("kernal rom: %w", err)
	}
	chargen, err := loader.ReadROMFile(cfg.ROM.Chargen, loader.ChargenROMSize)
	if err != nil {
		return nil, fmt.Errorf("chargen rom: %w", err)
	}

	ringSize := 1
	for ringSize < cfg.Audio.BufferSize {
		ringSize <<= 1
	}
	ring := hw.NewSampleRing(ringSize)
	mixer := hw.NewAudioMixer(hw.ClockRate(standard), float64(cfg.Audio.SampleRate), ring)

	c64 := hw.NewC64(standard, hw.HardwareFactory{}, mixer)
	c64.MMU.Basic = basic
	c64.MMU.Kernal = kernal
	c64.MMU.Chargen = chargen

	m := &Machine{
		C64:        c64,
		Mixer:      mixer,
		Ring:       ring,
		Config:     cfg,
		inputQueue: make(chan InputEvent, inputQueueSize),
	}
	m.frames[0] = c64.VIC.CurrentFrame()
	m.frames[1] = cloneFrame(c64.VIC.CurrentFrame())

	c64.Reset(true)
	return m, nil
}

func cloneFrame(f *hw.Frame) *hw.Frame {
	return &hw.Frame{
		Pixels: make([]uint8, len(f.Pixels)),
		Width:  f.Width,
		Height: f.Height,
	}
}

// PostInput enqueues a frontend event; drops when the queue is full (the
// producer never blocks).
func (m *Machine) PostInput(ev InputEvent) {
	select {
	case m.inputQueue <- ev:
	default:
		log.ModInput.WarnZ("input queue full, event dropped").End()
	}
}

// SetAutostart arranges for a PRG to be injected and run once BASIC has
// booted.
func (m *Machine) SetAutostart(prg *loader.PRG) {
	m.autostart = prg
}

// Stop requests the run loop to exit. Run checks the flag once per frame,
// so the frame in progress is completed first; instructions within a frame
// are not interrupted.
func (m *Machine) Stop() {
	m.running.Store(false)
}

// RunFrame emulates one video frame and returns the completed front
// buffer.
func (m *Machine) RunFrame() *hw.Frame {
	front := m.C64.RunFrame()

	// flip buffers: frontend reads front, VIC renders into back
	m.frontIdx ^= 1
	m.C64.VIC.SetFrame(m.frames[m.frontIdx])

	m.drainInput()
	m.checkAutostart()
	return front
}

// Run emulates until Stop is called or the CPU jams. Each completed frame
// is handed to onFrame on the emulation thread.
func (m *Machine) Run(onFrame func(*hw.Frame)) int {
	m.running.Store(true)
	for m.running.Load() {
		frame := m.RunFrame()
		if onFrame != nil {
			onFrame(frame)
		}
		if m.C64.CPU.IsHalted() {
			log.ModEmu.ErrorZ("CPU jammed").Hex16("pc", m.C64.CPU.PC).End()
			return ExitRuntimeError
		}
	}
	return ExitOK
}

func (m *Machine) drainInput() {
	kb := m.C64.Keyboard
	for {
		select {
		case ev := <-m.inputQueue:
			switch ev.Kind {
			case InputKey:
				kb.SetKey(ev.Row, ev.Col, ev.Down)
			case InputRestoreKey:
				kb.SetRestore(ev.Down)
			case InputJoystick:
				if ev.Joystick == 1 {
					kb.SetJoystick1(ev.State)
				} else {
					kb.SetJoystick2(ev.State)
				}
			case InputMatrix:
				kb.SetMatrix(ev.Matrix)
			case InputTapePlay:
				m.C64.Datassette.Play()
			case InputTapeStop:
				m.C64.Datassette.Stop()
			case InputReset:
				m.C64.Reset(false)
			}
		default:
			return
		}
	}
}

// checkAutostart injects the pending PRG and types RUN when BASIC is up.
func (m *Machine) checkAutostart() {
	if m.autostart == nil || m.C64.VIC.Frames < 100 {
		return
	}
	prg := m.autostart
	m.autostart = nil
	m.C64.Load(prg.Data, prg.LoadAddr)
	// Fix the BASIC pointers so RUN sees the program.
	end := prg.LoadAddr + uint16(len(prg.Data))
	ram := &m.C64.MMU.RAM
	ram[0x2d] = uint8(end)
	ram[0x2e] = uint8(end >> 8)
	ram[0x2f] = uint8(end)
	ram[0x30] = uint8(end >> 8)
	ram[0x31] = uint8(end)
	ram[0x32] = uint8(end >> 8)
	m.typeText("RUN\r")
	log.ModEmu.InfoZ("autostart injected").
		Hex16("load", prg.LoadAddr).
		Int("size", len(prg.Data)).
		End()
}

// typeText stuffs characters into the KERNAL keyboard buffer.
func (m *Machine) typeText(s string) {
	ram := &m.C64.MMU.RAM
	n := len(s)
	if n > 10 {
		n = 10
	}
	for i := 0; i < n; i++ {
		ram[0x0277+i] = s[i]
	}
	ram[0xc6] = uint8(n)
}
