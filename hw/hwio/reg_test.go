package hwio

import "testing"

func TestReg8(t *testing.T) {
	r := Reg8{Value: 0x11, RoMask: 0xF0}

	if got := r.Read8(0, false); got != 0x11 {
		t.Errorf("invalid read: %x", got)
	}
	if got := r.Read8(9999, false); got != 0x11 {
		t.Errorf("invalid read with offset: %x", got)
	}

	r.Write8(0, 0x77)
	if r.Value != 0x17 {
		t.Errorf("writemask not respected: %x", r.Value)
	}
	r.Write8(9999, 0x88)
	if r.Value != 0x18 {
		t.Errorf("writemask with offset not respected: %x", r.Value)
	}
}

func TestReg8Callbacks(t *testing.T) {
	var wrote []uint8
	r := Reg8{
		ReadCb:  func(val uint8) uint8 { return val | 0x80 },
		WriteCb: func(old, val uint8) { wrote = append(wrote, old, val) },
	}

	r.Write8(0, 0x42)
	if len(wrote) != 2 || wrote[0] != 0x00 || wrote[1] != 0x42 {
		t.Errorf("write callback saw %v", wrote)
	}
	if got := r.Read8(0, false); got != 0xC2 {
		t.Errorf("read callback bypassed: %x", got)
	}
	if got := r.Peek8(0); got != 0x42 {
		t.Errorf("peek ran the read callback: %x", got)
	}
}

func TestReg8Flags(t *testing.T) {
	wo := Reg8{Flags: WriteOnlyFlag, Value: 0x55}
	if got := wo.Read8(0, false); got != 0 {
		t.Errorf("writeonly reg read %x, want 0", got)
	}

	ro := Reg8{Flags: ReadOnlyFlag, Value: 0x55}
	ro.Write8(0, 0xAA)
	if ro.Value != 0x55 {
		t.Errorf("readonly reg modified: %x", ro.Value)
	}
}
