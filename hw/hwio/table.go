package hwio

import (
	"fmt"

	"github.com/binaryfields/zinc64/emu/log"
)

// log unmapped accesses (useful for debugging but verbose on a C64 since
// BASIC routinely scans unpopulated I/O ranges)
const logUnmapped = false

type BankIO8 interface {
	// Read8 reads a byte from the given address. If peek is true, the read
	// shouldn't have any side effects (debugging/tracing).
	Read8(addr uint16, peek bool) uint8
	Write8(addr uint16, val uint8)
}

func Write16(b BankIO8, addr uint16, val uint16) {
	lo := uint8(val & 0xff)
	hi := uint8(val >> 8)
	b.Write8(addr, lo)
	b.Write8(addr+1, hi)
}

func Read16(b BankIO8, addr uint16) uint16 {
	lo := b.Read8(addr, false)
	hi := b.Read8(addr+1, false)
	return uint16(hi)<<8 | uint16(lo)
}

const pageShift = 8 // 256 pages of 256 bytes over the 64K bus

// Table routes 16-bit bus accesses to the devices mapped on it. The lookup
// is a flat page table: the PLA remaps whole 4 KiB regions at a time, so
// page-granular entries keep both the access path and bank switching cheap.
type Table struct {
	Name string

	pages [1 << pageShift]BankIO8
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	return t
}

func (t *Table) Reset() {
	clear(t.pages[:])
}

// MapBank maps a register bank (that is, a structure containing multiple
// hwio.Reg8/hwio.Mem fields). For this function to work, registers must have
// a struct tag "hwio", containing the following fields:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. There is no default value: if this
//	                option is missing, the register is assumed not to be
//	                part of the bank, and is ignored by this call.
//
//	bank=NN         Ordinal bank number (if not specified, default to zero).
//	                This option allows for a structure to expose multiple
//	                banks, as regs can be grouped by bank by specifying the
//	                bank number.
func (t *Table) MapBank(addr uint16, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.MapMem(addr+reg.offset, r)
		case *Reg8:
			t.MapReg8(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) mapBus8(addr, size uint16, io BankIO8) {
	if addr&(1<<pageShift-1) != 0 || size&(1<<pageShift-1) != 0 {
		// Sub-page devices go through a page splitter so that a full page
		// always resolves with a single indexed load.
		t.mapFine(addr, size, io)
		return
	}
	for page := addr >> pageShift; page <= (addr+size-1)>>pageShift; page++ {
		t.pages[page] = io
	}
}

// mapFine merges a sub-page device into the page's splitter, creating the
// splitter on first use.
func (t *Table) mapFine(addr, size uint16, io BankIO8) {
	for a := uint32(addr); a < uint32(addr)+uint32(size); {
		page := uint16(a) >> pageShift
		sp, ok := t.pages[page].(*pageSplit)
		if !ok {
			sp = &pageSplit{}
			if prev := t.pages[page]; prev != nil {
				for i := range sp.slots {
					sp.slots[i] = prev
				}
			}
			t.pages[page] = sp
		}
		for uint16(a)>>pageShift == page && a < uint32(addr)+uint32(size) {
			sp.slots[uint8(a)] = io
			a++
		}
	}
}

type pageSplit struct {
	slots [256]BankIO8
}

func (sp *pageSplit) Read8(addr uint16, peek bool) uint8 {
	if io := sp.slots[uint8(addr)]; io != nil {
		return io.Read8(addr, peek)
	}
	return 0
}

func (sp *pageSplit) Write8(addr uint16, val uint8) {
	if io := sp.slots[uint8(addr)]; io != nil {
		io.Write8(addr, val)
	}
}

func (t *Table) MapReg8(addr uint16, io *Reg8) {
	t.mapBus8(addr, 1, io)
}

func (t *Table) MapDevice(addr uint16, dev *Device) {
	t.mapBus8(addr, uint16(dev.Size), dev)
}

func (t *Table) MapMem(addr uint16, mem *Mem) {
	log.ModHwIo.DebugZ("mapping mem").
		Hex16("addr", addr).
		Hex16("size", uint16(mem.VSize)).
		String("area", mem.Name).
		String("bus", t.Name).
		End()

	if len(mem.Data)&(len(mem.Data)-1) != 0 {
		panic("memory buffer size is not pow2")
	}

	t.mapBus8(addr, uint16(mem.VSize), mem.bankIO8())
}

func (t *Table) MapMemorySlice(addr, end uint16, mem []uint8, readonly bool) {
	var flags MemFlags
	if readonly {
		flags |= MemFlag8ReadOnly
	}
	t.MapMem(addr, &Mem{
		Data:  mem,
		Flags: flags,
		VSize: int(end-addr) + 1,
	})
}

func (t *Table) Unmap(begin, end uint16) {
	t.mapBus8(begin, end-begin+1, nil)
}

// Read8 searches in the table for the device mapped at the given address and
// forwards the read to it. Unmapped addresses read as 0; they are logged as
// errors if peek is false and logUnmapped is set.
func (t *Table) Read8(addr uint16, peek bool) uint8 {
	io := t.pages[addr>>pageShift]
	if io == nil {
		if logUnmapped && !peek {
			log.ModHwIo.ErrorZ("unmapped Read8").
				String("name", t.Name).
				Hex16("addr", addr).
				End()
		}
		return 0
	}
	return io.Read8(addr, peek)
}

// Peek8 is a convenience function.
func (t *Table) Peek8(addr uint16) uint8 {
	return t.Read8(addr, true)
}

func (t *Table) Write8(addr uint16, val uint8) {
	io := t.pages[addr>>pageShift]
	if io == nil {
		if logUnmapped {
			log.ModHwIo.ErrorZ("unmapped Write8").
				String("name", t.Name).
				Hex16("addr", addr).
				Hex8("val", val).
				End()
		}
		return
	}
	io.Write8(addr, val)
}
