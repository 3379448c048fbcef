package hw

import (
	"testing"

	gocmp "github.com/google/go-cmp/cmp"
)

func newTestMMU() *MMU {
	m := NewMMU()
	m.Basic = make([]uint8, 0x2000)
	m.Kernal = make([]uint8, 0x2000)
	m.Chargen = make([]uint8, 0x1000)
	m.Exp = NewExpansionPort()
	m.Basic[0x0000] = 0x94
	m.Kernal[0x0000] = 0x85
	m.Chargen[0x0000] = 0x3c
	return m
}

// The PLA truth table: expected bank per 4 KiB region for each of the 32
// modes, spot-checking the four regions the lines actually switch.
func TestSwitchBanksTruthTable(t *testing.T) {
	type regions struct {
		R8, RA, RD, RE Bank
	}
	ram := regions{BankRam, BankRam, BankRam, BankRam}
	tests := map[uint8]regions{
		0:  ram,
		1:  ram,
		2:  {BankRam, BankRomH, BankCharset, BankKernal},
		3:  {BankRomL, BankRomH, BankCharset, BankKernal},
		4:  ram,
		5:  {BankRam, BankRam, BankIo, BankRam},
		6:  {BankRam, BankRomH, BankIo, BankKernal},
		7:  {BankRomL, BankRomH, BankIo, BankKernal},
		8:  ram,
		9:  {BankRam, BankRam, BankCharset, BankRam},
		10: {BankRam, BankRam, BankCharset, BankKernal},
		11: {BankRomL, BankBasic, BankCharset, BankKernal},
		12: ram,
		13: {BankRam, BankRam, BankIo, BankRam},
		14: {BankRam, BankRam, BankIo, BankKernal},
		15: {BankRomL, BankBasic, BankIo, BankKernal},
		24: ram,
		25: {BankRam, BankRam, BankCharset, BankRam},
		26: {BankRam, BankRam, BankCharset, BankKernal},
		27: {BankRam, BankBasic, BankCharset, BankKernal},
		28: ram,
		29: {BankRam, BankRam, BankIo, BankRam},
		30: {BankRam, BankRam, BankIo, BankKernal},
		31: {BankRam, BankBasic, BankIo, BankKernal},
	}
	// UMAX: every mode with EXROM high, GAME low.
	for mode := uint8(16); mode <= 23; mode++ {
		tests[mode] = regions{BankRomL, BankDisabled, BankIo, BankRomH}
	}

	m := newTestMMU()
	for mode, want := range tests {
		m.SwitchBanks(mode)
		got := regions{
			R8: m.Map(0x8000),
			RA: m.Map(0xa000),
			RD: m.Map(0xd000),
			RE: m.Map(0xe000),
		}
		if diff := gocmp.Diff(want, got); diff != "" {
			t.Errorf("mode %d: (-want +got)\n%s", mode, diff)
		}
	}
}

func TestLowRegionsAlwaysRam(t *testing.T) {
	m := newTestMMU()
	for mode := uint8(0); mode < 32; mode++ {
		m.SwitchBanks(mode)
		for _, addr := range []uint16{0x0000, 0x1000, 0x4000, 0x7000, 0xc000} {
			if got := m.Map(addr); got != BankRam && !(mode >= 16 && mode <= 23) {
				t.Errorf("mode %d addr $%04X: bank %v, want Ram", mode, addr, got)
			}
		}
	}
}

func TestReadRomBanks(t *testing.T) {
	m := newTestMMU()
	m.SwitchBanks(31)
	wantUint8(t, "$A000", m.Read8(0xa000, false), 0x94)
	wantUint8(t, "$E000", m.Read8(0xe000, false), 0x85)

	m.SwitchBanks(27)
	wantUint8(t, "$D000", m.Read8(0xd000, false), 0x3c)
}

func TestWriteUnderRomHitsRam(t *testing.T) {
	m := newTestMMU()
	m.SwitchBanks(31)
	m.Write8(0xa123, 0x42)
	wantUint8(t, "basic rom", m.Read8(0xa123, false), 0x00)

	m.SwitchBanks(24) // all RAM
	wantUint8(t, "ram under rom", m.Read8(0xa123, false), 0x42)
}

func TestFloatingBusOnDisabledRegion(t *testing.T) {
	m := newTestMMU()
	m.SwitchBanks(16) // UMAX: $1000-$7FFF open
	m.RAM[0x4000] = 0x99

	m.LastBus = 0x5a
	got := m.Read8(0x4000, false)
	wantUint8(t, "floating bus", got, 0x5a)
}

func TestVicReadSeesCharsetInBank0(t *testing.T) {
	m := newTestMMU()
	m.Chargen[0x0123] = 0xaa
	m.RAM[0x5123] = 0xbb

	// Bank 0: $1000 window shows the character generator.
	wantUint8(t, "charset", m.VicRead(0x1123, 0x0000), 0xaa)
	// Bank 1: same window reads RAM.
	wantUint8(t, "ram", m.VicRead(0x1123, 0x4000), 0xbb)
}
