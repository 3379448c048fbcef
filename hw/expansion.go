package hw

import (
	"github.com/binaryfields/zinc64/emu/log"
)

// CartBank is one CHIP packet of a cartridge image mapped at ROML or ROMH.
type CartBank struct {
	Number uint8
	Offset uint16 // load address
	Data   []uint8
}

// Cartridge is a generic ROM cartridge: banked ROML/ROMH images plus the
// GAME/EXROM line levels it pulls.
type Cartridge struct {
	HwType uint8
	Exrom  bool // line level, true = high (inactive)
	Game   bool

	Banks  []CartBank
	BankLo *CartBank
	BankHi *CartBank
}

// SwitchBank selects the active bank pair by number ($DExx writes on
// bank-switched carts).
func (c *Cartridge) SwitchBank(number uint8) {
	for i := range c.Banks {
		b := &c.Banks[i]
		if b.Number != number {
			continue
		}
		if b.Offset < 0xa000 {
			c.BankLo = b
		} else {
			c.BankHi = b
		}
	}
}

// ExpansionPort carries the cartridge and drives the GAME/EXROM inputs of
// the PLA. Without a cartridge both lines rest high.
type ExpansionPort struct {
	cart *Cartridge

	// observer fires with the GAME|EXROM contribution to the memory mode
	// whenever the lines change
	observer func(mode uint8)
}

func NewExpansionPort() *ExpansionPort {
	return &ExpansionPort{}
}

// SetObserver registers the PLA recombination callback.
func (e *ExpansionPort) SetObserver(fn func(mode uint8)) {
	e.observer = fn
	e.notify()
}

// Mode returns the GAME/EXROM bits of the composite memory mode.
func (e *ExpansionPort) Mode() uint8 {
	game, exrom := true, true
	if e.cart != nil {
		game, exrom = e.cart.Game, e.cart.Exrom
	}
	var mode uint8
	if game {
		mode |= 1 << 3
	}
	if exrom {
		mode |= 1 << 4
	}
	return mode
}

func (e *ExpansionPort) Attach(cart *Cartridge) {
	log.ModExp.InfoZ("cartridge attached").
		Uint8("hwtype", cart.HwType).
		Int("banks", len(cart.Banks)).
		End()
	e.cart = cart
	cart.SwitchBank(0)
	e.notify()
}

func (e *ExpansionPort) Detach() {
	e.cart = nil
	e.notify()
}

func (e *ExpansionPort) Reset() {
	if e.cart != nil {
		e.cart.SwitchBank(0)
	}
	e.notify()
}

func (e *ExpansionPort) notify() {
	if e.observer != nil {
		e.observer(e.Mode())
	}
}

// ReadRomL serves the $8000-$9FFF window.
func (e *ExpansionPort) ReadRomL(addr uint16) uint8 {
	if e.cart == nil || e.cart.BankLo == nil {
		return 0
	}
	b := e.cart.BankLo
	off := int(addr) - int(b.Offset)
	if off < 0 || off >= len(b.Data) {
		return 0
	}
	return b.Data[off]
}

// ReadRomH serves $A000-$BFFF (16K mode) or $E000-$FFFF (UMAX).
func (e *ExpansionPort) ReadRomH(addr uint16) uint8 {
	if e.cart == nil || e.cart.BankHi == nil {
		return 0
	}
	b := e.cart.BankHi
	off := int(addr&0x1fff) % len(b.Data)
	return b.Data[off]
}

// ReadIO/WriteIO serve $DE00-$DFFF. Generic carts use writes for bank
// selection; reads return 0.
func (e *ExpansionPort) ReadIO(addr uint16) uint8 {
	return 0
}

func (e *ExpansionPort) WriteIO(addr uint16, val uint8) {
	if e.cart == nil {
		return
	}
	if addr&0xff00 == 0xde00 {
		e.cart.SwitchBank(val & 0x3f)
	}
}
