package hw

// vicSprite is one of the eight MOB units: configuration registers, the DMA
// bookkeeping and the 24-bit pixel shifter.
type vicSprite struct {
	// register file
	x          uint16
	y          uint8
	enabled    bool
	expandX    bool
	expandY    bool
	multicolor bool
	behindGfx  bool // MxDP: sprite behind foreground graphics
	color      uint8

	// DMA state
	dma     bool
	pointer uint8
	mc      uint8 // sprite data counter
	mcbase  uint8
	expFlop bool // y-expansion flip flop
	display bool

	// shifter
	data       uint32
	shifting   bool
	shiftCount uint8
	delay      uint8 // x-expansion / multicolor hold cycles

	outColor uint8
	outSet   bool

	mm *[2]uint8 // shared sprite multicolor registers
}

func (s *vicSprite) reset() {
	mm := s.mm
	*s = vicSprite{expFlop: true, mm: mm}
}

// setData latches one of the three s-access bytes.
func (s *vicSprite) setData(idx int, val uint8) {
	shift := uint(16 - 8*idx)
	s.data = s.data&^(0xff<<shift) | uint32(val)<<shift
}

// clock emits one pixel at screen position x.
func (s *vicSprite) clock(x uint16) {
	held := s.outSet
	s.outSet = false
	if !s.display {
		return
	}
	if !s.shifting {
		if x == s.x {
			s.shifting = true
			s.shiftCount = 24
			s.delay = 0
		} else {
			return
		}
	}
	if s.delay > 0 {
		// Hold the previous pixel.
		s.delay--
		s.outSet = held
		return
	}
	if s.shiftCount == 0 {
		s.shifting = false
		return
	}
	if s.multicolor {
		s.outputMcPixel()
		s.data <<= 2
		if s.shiftCount >= 2 {
			s.shiftCount -= 2
		} else {
			s.shiftCount = 0
		}
		s.delay = 1
		if s.expandX {
			s.delay = 3
		}
	} else {
		s.outputPixel()
		s.data <<= 1
		s.shiftCount--
		if s.expandX {
			s.delay = 1
		}
	}
}

func (s *vicSprite) outputPixel() {
	if s.data&0x800000 != 0 {
		s.outColor = s.color
		s.outSet = true
	}
}

func (s *vicSprite) outputMcPixel() {
	switch s.data >> 22 & 0x03 {
	case 1:
		s.outColor = s.mm[0]
		s.outSet = true
	case 2:
		s.outColor = s.color
		s.outSet = true
	case 3:
		s.outColor = s.mm[1]
		s.outSet = true
	}
}

// output returns the sprite pixel for this clock, if any.
func (s *vicSprite) output() (uint8, bool) {
	return s.outColor, s.outSet
}
