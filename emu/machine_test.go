package emu

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/binaryfields/zinc64/loader"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	std, err := cfg.VideoStandard()
	if err != nil {
		t.Fatal(err)
	}
	if std.String() != "pal" {
		t.Errorf("default standard %v, want pal", std)
	}
}

func TestBadModelIsConfigError(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Model.Standard = "secam"
	if _, err := cfg.VideoStandard(); !errors.Is(err, loader.ErrConfig) {
		t.Errorf("error %v, want ErrConfig", err)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.Model.Standard = "ntsc"
	cfg.Audio.SampleRate = 48000
	if err := SaveConfig(dir, cfg); err != nil {
		t.Fatal(err)
	}

	got := LoadConfigOrDefault(dir)
	if got.Model.Standard != "ntsc" || got.Audio.SampleRate != 48000 {
		t.Errorf("config round trip lost data: %+v", got)
	}
}

func TestLoadConfigMissingFileFallsBack(t *testing.T) {
	got := LoadConfigOrDefault(t.TempDir())
	if got.Model.Standard != "pal" {
		t.Errorf("fallback standard %q, want pal", got.Model.Standard)
	}
}

// newBootedMachine builds a machine against the real ROM set, skipping
// when the images aren't checked out.
func newBootedMachine(t *testing.T) *Machine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ROM.Basic = filepath.Join("testdata", "rom", "basic.rom")
	cfg.ROM.Kernal = filepath.Join("testdata", "rom", "kernal.rom")
	cfg.ROM.Chargen = filepath.Join("testdata", "rom", "chargen.rom")
	if _, err := os.Stat(cfg.ROM.Kernal); err != nil {
		t.Skip("system ROMs not present in testdata/rom")
	}
	m, err := NewMachine(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// BASIC must come up: after boot the screen RAM carries the startup
// banner instead of blanks.
func TestBasicBoots(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping boot test")
	}
	m := newBootedMachine(t)
	for i := 0; i < 150; i++ {
		m.RunFrame()
	}
	ram := &m.C64.MMU.RAM
	banner := false
	for i := 0; i < 1000; i++ {
		if ram[0x0400+i] != 0x20 && ram[0x0400+i] != 0x00 {
			banner = true
			break
		}
	}
	if !banner {
		t.Error("screen RAM blank after boot")
	}
}

// A SYS-header PRG autostarts and executes.
func TestAutostartPRG(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping boot test")
	}
	m := newBootedMachine(t)
	// 0 SYS 2064 stub plus INC $D020 at $0810.
	prg := &loader.PRG{
		LoadAddr: 0x0801,
		Data: []uint8{
			0x0b, 0x08, 0x00, 0x00, 0x9e, 0x32, 0x30, 0x36, 0x34, 0x00,
			0x00, 0x00, 0x00, 0x00, 0x00,
			0xee, 0x20, 0xd0, // INC $D020
			0x4c, 0x10, 0x08, // JMP $0810
		},
	}
	m.SetAutostart(prg)
	for i := 0; i < 300; i++ {
		m.RunFrame()
	}
	if m.C64.CPU.PC < 0x0810 || m.C64.CPU.PC > 0x0816 {
		t.Errorf("PC = $%04X, autostart program not running", m.C64.CPU.PC)
	}
}

func TestInputQueueDrainsAtVsync(t *testing.T) {
	// The queue itself is machine-independent: exercise matrix delivery
	// through a ROM-less machine built by the hw test helpers is not
	// possible here, so go through a booted machine when available.
	m := newBootedMachine(t)
	m.PostInput(InputEvent{Kind: InputKey, Row: 1, Col: 2, Down: true})
	m.RunFrame()
	if got := m.C64.Keyboard.ScanRows(^uint8(1 << 2)); got == 0xff {
		t.Error("key press not applied at vsync")
	}
}
