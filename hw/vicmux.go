package hw

// Pixel source priorities, lowest wins.
const (
	prioBorder = iota
	prioFgSprite
	prioFgGraphics
	prioBgSprite
	prioBgGraphics
)

// vicMux composites border, graphics and the eight sprite outputs into the
// final pixel and accumulates the two collision registers. Collisions are
// detected at the cycle the shared pixel is emitted.
type vicMux struct {
	mbCollision uint8 // sprite-background, $D01F
	mmCollision uint8 // sprite-sprite, $D01E
	mbInterrupt bool
	mmInterrupt bool

	out     uint8
	outPrio uint8
}

func (m *vicMux) reset() {
	*m = vicMux{}
}

func (m *vicMux) feedBorder(color uint8) {
	m.out = color
	m.outPrio = prioBorder
}

func (m *vicMux) feedGraphics(color uint8, foreground bool) {
	m.out = color
	if foreground {
		m.outPrio = prioFgGraphics
	} else {
		m.outPrio = prioBgGraphics
	}
}

// feedSprites overlays sprite pixels and records collisions. Must be called
// after feedGraphics and before output.
func (m *vicMux) feedSprites(sprites *[8]vicSprite) {
	fgGraphics := m.outPrio == prioFgGraphics

	var mb, mm, count uint8
	for i := range sprites {
		s := &sprites[i]
		color, set := s.output()
		if !set {
			continue
		}
		count++
		mm |= 1 << i
		if fgGraphics {
			mb |= 1 << i
		}

		prio := uint8(prioFgSprite)
		if s.behindGfx {
			prio = prioBgSprite
		}
		if prio < m.outPrio {
			m.out = color
			m.outPrio = prio
		}
	}

	if count != 0 {
		if mb != 0 {
			m.mbInterrupt = m.mbInterrupt || m.mbCollision == 0
			m.mbCollision |= mb
		}
		if count >= 2 {
			m.mmInterrupt = m.mmInterrupt || m.mmCollision == 0
			m.mmCollision |= mm
		}
	}
}

func (m *vicMux) output() uint8 {
	return m.out
}

// takeInterrupts returns and clears the pending collision IRQ events.
func (m *vicMux) takeInterrupts() (mb, mm bool) {
	mb, mm = m.mbInterrupt, m.mmInterrupt
	m.mbInterrupt = false
	m.mmInterrupt = false
	return mb, mm
}

// readMB/readMM implement the clear-on-read collision registers.
func (m *vicMux) readMB() uint8 {
	v := m.mbCollision
	m.mbCollision = 0
	return v
}

func (m *vicMux) readMM() uint8 {
	v := m.mmCollision
	m.mmCollision = 0
	return v
}
