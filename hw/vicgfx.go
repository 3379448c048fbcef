package hw

// Graphics display modes, the ECM/BMM/MCM control bits packed into one
// value.
type vicMode uint8

const (
	modeText vicMode = iota // ECM/BMM/MCM=0/0/0
	modeMcText
	modeBitmap
	modeMcBitmap
	modeEcmText
	modeInvalidText
	modeInvalidBitmap1
	modeInvalidBitmap2
)

// gfxSequencer turns the 40 c/g-access pairs of a display line into pixels.
// It shifts one bit (or a bit pair in multicolor) per pixel clock and
// reports whether the emitted pixel is foreground for priority/collision.
type gfxSequencer struct {
	mode    vicMode
	bgColor [4]uint8

	cData  uint8 // char pointer low byte / bitmap color byte
	cColor uint8 // color RAM nybble (bit 3 = multicolor select in MC text)
	gData  uint8 // pattern byte being fetched
	data   uint8 // shift register
	mcFlop bool  // second half of a multicolor pixel pair

	outColor uint8
	outFg    bool
}

func (g *gfxSequencer) reset() {
	*g = gfxSequencer{}
	g.bgColor = [4]uint8{0x06, 0, 0, 0}
}

// setData latches the c-access and g-access results for the next 8 pixels.
func (g *gfxSequencer) setData(cData, cColor, gData uint8) {
	g.cData = cData
	g.cColor = cColor
	g.gData = gData
}

// loadData transfers the fetched pattern into the shifter (start of the
// 8-pixel window, offset by XSCROLL).
func (g *gfxSequencer) loadData() {
	g.data = g.gData
}

// clock emits one pixel.
func (g *gfxSequencer) clock() {
	if g.mcFlop {
		g.mcFlop = false
		return
	}
	mc := false
	switch g.mode {
	case modeText:
		g.outText()
	case modeMcText:
		mc = g.cColor&0x08 != 0
		g.outTextMc()
	case modeBitmap:
		g.outBitmap()
	case modeMcBitmap:
		mc = true
		g.outBitmapMc()
	case modeEcmText:
		g.outTextEcm()
	default:
		// Invalid modes display black; foreground detection still follows
		// the pattern bits.
		g.outColor = 0
		g.outFg = g.data&0x80 != 0
		mc = g.mode == modeInvalidBitmap2
	}
	if mc {
		g.mcFlop = true
		g.data <<= 2
	} else {
		g.data <<= 1
	}
}

func (g *gfxSequencer) output() (uint8, bool) {
	return g.outColor, g.outFg
}

// Standard text: "0" pixels background 0, "1" pixels color RAM.
func (g *gfxSequencer) outText() {
	if g.data&0x80 != 0 {
		g.outColor = g.cColor
		g.outFg = true
	} else {
		g.outColor = g.bgColor[0]
		g.outFg = false
	}
}

// Multicolor text: color RAM bit 3 selects per character; pairs 10/11 are
// foreground.
func (g *gfxSequencer) outTextMc() {
	if g.cColor&0x08 == 0 {
		g.outText()
		return
	}
	switch g.data >> 6 {
	case 0:
		g.outColor = g.bgColor[0]
		g.outFg = false
	case 1:
		g.outColor = g.bgColor[1]
		g.outFg = false
	case 2:
		g.outColor = g.bgColor[2]
		g.outFg = true
	case 3:
		g.outColor = g.cColor & 0x07
		g.outFg = true
	}
}

// Standard bitmap: colors from the video matrix nybbles.
func (g *gfxSequencer) outBitmap() {
	if g.data&0x80 != 0 {
		g.outColor = g.cData >> 4
		g.outFg = true
	} else {
		g.outColor = g.cData & 0x0f
		g.outFg = false
	}
}

// Multicolor bitmap: pairs 10/11 are foreground.
func (g *gfxSequencer) outBitmapMc() {
	switch g.data >> 6 {
	case 0:
		g.outColor = g.bgColor[0]
		g.outFg = false
	case 1:
		g.outColor = g.cData >> 4
		g.outFg = false
	case 2:
		g.outColor = g.cData & 0x0f
		g.outFg = true
	case 3:
		g.outColor = g.cColor
		g.outFg = true
	}
}

// ECM text: background selected by the top two character pointer bits.
func (g *gfxSequencer) outTextEcm() {
	if g.data&0x80 != 0 {
		g.outColor = g.cColor
		g.outFg = true
	} else {
		g.outColor = g.bgColor[g.cData>>6]
		g.outFg = false
	}
}
