package hw

import (
	"github.com/binaryfields/zinc64/emu/log"
	"github.com/binaryfields/zinc64/hw/hwio"
)

// Bank identifies what a 4 KiB region of the CPU address space resolves to.
type Bank uint8

//go:generate go tool stringer -type=Bank -trimprefix=Bank

const (
	BankRam Bank = iota
	BankBasic
	BankCharset
	BankKernal
	BankIo
	BankRomL
	BankRomH
	BankDisabled
)

// plaModes is the 82S100 truth table: for each of the 32 combinations of
// LORAM|HIRAM|CHAREN|GAME|EXROM it gives the bank of the seven interesting
// zones (0, 1-7, 8-9, a-b, c, d, e-f). Modes 16-23 (EXROM high, GAME low)
// are the Ultimax configuration with open regions.
//
// SPEC: https://www.c64-wiki.com/index.php/Bank_Switching
var plaModes = [32][7]Bank{
	0:  {BankRam, BankRam, BankRam, BankRam, BankRam, BankRam, BankRam},
	1:  {BankRam, BankRam, BankRam, BankRam, BankRam, BankRam, BankRam},
	2:  {BankRam, BankRam, BankRam, BankRomH, BankRam, BankCharset, BankKernal},
	3:  {BankRam, BankRam, BankRomL, BankRomH, BankRam, BankCharset, BankKernal},
	4:  {BankRam, BankRam, BankRam, BankRam, BankRam, BankRam, BankRam},
	5:  {BankRam, BankRam, BankRam, BankRam, BankRam, BankIo, BankRam},
	6:  {BankRam, BankRam, BankRam, BankRomH, BankRam, BankIo, BankKernal},
	7:  {BankRam, BankRam, BankRomL, BankRomH, BankRam, BankIo, BankKernal},
	8:  {BankRam, BankRam, BankRam, BankRam, BankRam, BankRam, BankRam},
	9:  {BankRam, BankRam, BankRam, BankRam, BankRam, BankCharset, BankRam},
	10: {BankRam, BankRam, BankRam, BankRam, BankRam, BankCharset, BankKernal},
	11: {BankRam, BankRam, BankRomL, BankBasic, BankRam, BankCharset, BankKernal},
	12: {BankRam, BankRam, BankRam, BankRam, BankRam, BankRam, BankRam},
	13: {BankRam, BankRam, BankRam, BankRam, BankRam, BankIo, BankRam},
	14: {BankRam, BankRam, BankRam, BankRam, BankRam, BankIo, BankKernal},
	15: {BankRam, BankRam, BankRomL, BankBasic, BankRam, BankIo, BankKernal},
	16: {BankRam, BankDisabled, BankRomL, BankDisabled, BankDisabled, BankIo, BankRomH},
	17: {BankRam, BankDisabled, BankRomL, BankDisabled, BankDisabled, BankIo, BankRomH},
	18: {BankRam, BankDisabled, BankRomL, BankDisabled, BankDisabled, BankIo, BankRomH},
	19: {BankRam, BankDisabled, BankRomL, BankDisabled, BankDisabled, BankIo, BankRomH},
	20: {BankRam, BankDisabled, BankRomL, BankDisabled, BankDisabled, BankIo, BankRomH},
	21: {BankRam, BankDisabled, BankRomL, BankDisabled, BankDisabled, BankIo, BankRomH},
	22: {BankRam, BankDisabled, BankRomL, BankDisabled, BankDisabled, BankIo, BankRomH},
	23: {BankRam, BankDisabled, BankRomL, BankDisabled, BankDisabled, BankIo, BankRomH},
	24: {BankRam, BankRam, BankRam, BankRam, BankRam, BankRam, BankRam},
	25: {BankRam, BankRam, BankRam, BankRam, BankRam, BankCharset, BankRam},
	26: {BankRam, BankRam, BankRam, BankRam, BankRam, BankCharset, BankKernal},
	27: {BankRam, BankRam, BankRam, BankBasic, BankRam, BankCharset, BankKernal},
	28: {BankRam, BankRam, BankRam, BankRam, BankRam, BankRam, BankRam},
	29: {BankRam, BankRam, BankRam, BankRam, BankRam, BankIo, BankRam},
	30: {BankRam, BankRam, BankRam, BankRam, BankRam, BankIo, BankKernal},
	31: {BankRam, BankRam, BankRam, BankBasic, BankRam, BankIo, BankKernal},
}

// expand turns a seven-zone PLA row into the per-4KiB-region map.
func expand(config [7]Bank) [16]Bank {
	var banks [16]Bank
	for i := range banks {
		switch {
		case i == 0x0:
			banks[i] = config[0]
		case i <= 0x7:
			banks[i] = config[1]
		case i <= 0x9:
			banks[i] = config[2]
		case i <= 0xb:
			banks[i] = config[3]
		case i == 0xc:
			banks[i] = config[4]
		case i == 0xd:
			banks[i] = config[5]
		default:
			banks[i] = config[6]
		}
	}
	return banks
}

var plaMap = func() (m [32][16]Bank) {
	for mode, config := range plaModes {
		m[mode] = expand(config)
	}
	return m
}()

// MMU owns system RAM and the installed ROMs and resolves every CPU bus
// access to the bank currently selected by the PLA. I/O-space accesses are
// dispatched through the IO table wired up by the machine.
type MMU struct {
	RAM      [0x10000]uint8
	ColorRAM [0x400]uint8

	Basic   []uint8 // 8 KiB at $A000
	Kernal  []uint8 // 8 KiB at $E000
	Chargen []uint8 // 4 KiB at $D000

	IO  *hwio.Table
	Exp *ExpansionPort

	cpuMap [16]Bank
	mode   uint8

	// The value left on the data bus by the most recent access; reads of
	// disabled regions see it (floating bus).
	LastBus uint8
}

func NewMMU() *MMU {
	m := &MMU{
		IO: hwio.NewTable("io"),
	}
	m.SwitchBanks(31)
	return m
}

func (m *MMU) Mode() uint8 { return m.mode }

// Map returns the bank of the region containing addr.
func (m *MMU) Map(addr uint16) Bank {
	return m.cpuMap[addr>>12]
}

// SwitchBanks selects the bank configuration for the 5-bit composite mode
// LORAM|HIRAM|CHAREN|GAME|EXROM.
func (m *MMU) SwitchBanks(mode uint8) {
	mode &= 0x1f
	log.ModMem.DebugZ("switching banks").Uint8("mode", mode).End()
	m.mode = mode
	m.cpuMap = plaMap[mode]
}

func (m *MMU) Read8(addr uint16, peek bool) uint8 {
	var val uint8
	switch m.cpuMap[addr>>12] {
	case BankRam:
		val = m.RAM[addr]
	case BankBasic:
		val = m.Basic[addr&0x1fff]
	case BankCharset:
		val = m.Chargen[addr&0x0fff]
	case BankKernal:
		val = m.Kernal[addr&0x1fff]
	case BankIo:
		val = m.IO.Read8(addr, peek)
	case BankRomL:
		val = m.Exp.ReadRomL(addr)
	case BankRomH:
		val = m.Exp.ReadRomH(addr)
	case BankDisabled:
		val = m.LastBus
	}
	if !peek {
		m.LastBus = val
	}
	return val
}

func (m *MMU) Write8(addr uint16, val uint8) {
	m.LastBus = val
	switch m.cpuMap[addr>>12] {
	case BankIo:
		m.IO.Write8(addr, val)
	case BankDisabled:
		// open bus, write lost
	default:
		// Writes under ROM always land in the RAM below.
		m.RAM[addr] = val
	}
}

// VicRead resolves a VIC bus fetch. addr is the VIC's own 14-bit address,
// base the bank offset selected through CIA2 port A. The character
// generator appears at $1000 in banks 0 and 2; everything else is RAM.
func (m *MMU) VicRead(addr uint16, base uint16) uint8 {
	full := base | addr&0x3fff
	if full&0xf000 == 0x1000 || full&0xf000 == 0x9000 {
		val := m.Chargen[full&0x0fff]
		m.LastBus = val
		return val
	}
	val := m.RAM[full]
	m.LastBus = val
	return val
}

// VicReadColor reads the 4-bit color RAM nybble seen by the VIC.
func (m *MMU) VicReadColor(offset uint16) uint8 {
	return m.ColorRAM[offset&0x03ff] & 0x0f
}
