package hw

// Keyboard models the 8x8 key matrix wired across the two CIA1 ports,
// plus the two joysticks that share the port lines. The frontend posts
// whole matrix states; rows/columns are scanned actively by the KERNAL.
type Keyboard struct {
	// matrix[row] bit c clear = key at (row, c) held. Idle is all 0xff.
	rows [8]uint8
	cols [8]uint8

	joy1 uint8 // active-high bit set = direction/fire engaged
	joy2 uint8

	restore PinProducer // RESTORE key pulls NMI directly
}

func NewKeyboard(pins *Pins) *Keyboard {
	k := &Keyboard{
		restore: pins.NMI.Producer(),
	}
	k.Clear()
	return k
}

func (k *Keyboard) Reset() {
	k.Clear()
	k.joy1 = 0
	k.joy2 = 0
	k.restore.Assert(false)
}

func (k *Keyboard) Clear() {
	for i := range k.rows {
		k.rows[i] = 0xff
		k.cols[i] = 0xff
	}
}

// SetKey presses or releases the key at matrix position (row, col).
func (k *Keyboard) SetKey(row, col uint8, down bool) {
	row &= 7
	col &= 7
	if down {
		k.rows[row] &^= 1 << col
		k.cols[col] &^= 1 << row
	} else {
		k.rows[row] |= 1 << col
		k.cols[col] |= 1 << row
	}
}

// SetMatrix installs a full matrix state (frontend keyboard contract).
func (k *Keyboard) SetMatrix(rows [8]uint8) {
	for r := range rows {
		k.rows[r] = rows[r]
	}
	for c := range k.cols {
		v := uint8(0xff)
		for r := range rows {
			if rows[r]&(1<<c) == 0 {
				v &^= 1 << r
			}
		}
		k.cols[c] = v
	}
}

// SetRestore presses the RESTORE key, which is wired straight to NMI.
func (k *Keyboard) SetRestore(down bool) {
	k.restore.Assert(down)
}

// ScanRows returns the row lines seen on CIA1 port A for the given column
// selection on port B (0 bit = column active).
func (k *Keyboard) ScanRows(activeCols uint8) uint8 {
	result := uint8(0xff)
	for c := uint(0); c < 8; c++ {
		if activeCols&(1<<c) == 0 {
			result &= k.cols[c]
		}
	}
	return result
}

// ScanColumns returns the column lines seen on CIA1 port B for the given
// row selection on port A.
func (k *Keyboard) ScanColumns(activeRows uint8) uint8 {
	result := uint8(0xff)
	for r := uint(0); r < 8; r++ {
		if activeRows&(1<<r) == 0 {
			result &= k.rows[r]
		}
	}
	return result
}

// Joystick state in port-line terms (bit set = line pulled low by the
// stick). Joystick 1 shares CIA1 port B, joystick 2 port A.
func (k *Keyboard) Joystick1() uint8 { return k.joy1 }
func (k *Keyboard) Joystick2() uint8 { return k.joy2 }

// Joystick direction/fire bits.
const (
	JoyUp = 1 << iota
	JoyDown
	JoyLeft
	JoyRight
	JoyFire
)

func (k *Keyboard) SetJoystick1(state uint8) { k.joy1 = state }
func (k *Keyboard) SetJoystick2(state uint8) { k.joy2 = state }
