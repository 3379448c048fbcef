package hw

import (
	"github.com/binaryfields/zinc64/emu/log"
	"github.com/binaryfields/zinc64/hw/hwdefs"
	"github.com/binaryfields/zinc64/hw/snapshot"
)

// Frame is one field of video output as color indices into the C64 palette.
type Frame struct {
	Pixels []uint8
	Width  int
	Height int
}

// vicGeometry is the per-model raster timing.
type vicGeometry struct {
	cyclesPerLine uint16
	rasterLines   uint16
}

var vicGeometries = map[hwdefs.VideoStandard]vicGeometry{
	hwdefs.PAL:  {cyclesPerLine: 63, rasterLines: 312},
	hwdefs.NTSC: {cyclesPerLine: 65, rasterLines: 263},
}

// Display window edges in raster lines / sprite-X coordinates.
const (
	topEdge25    = 51
	bottomEdge25 = 251
	topEdge24    = 55
	bottomEdge24 = 247
	leftEdge40   = 24
	rightEdge40  = 344
	leftEdge38   = 31
	rightEdge38  = 335
)

// VIC is the 6569 (PAL) / 6567 (NTSC) video interface controller. Clock()
// advances it one ϕ2 cycle: it runs the cycle's DMA slot, drives BA/AEC and
// emits eight pixels.
type VIC struct {
	geo vicGeometry

	mem *MMU

	// raster position; cycle is 1-based like the timing diagrams
	cycle  uint16
	raster uint16

	// control state
	den       bool
	rsel      bool
	csel      bool
	bmm       bool
	ecm       bool
	mcm       bool
	res       bool
	yscroll   uint8
	xscroll   uint8
	rasterCmp uint16

	videoMatrix uint16 // VM13-VM10 << 10
	charBase    uint16 // CB13-CB11 << 11

	irqStatus uint8
	irqEnable uint8
	irqLine   PinProducer

	borderColor uint8

	gfx      gfxSequencer
	sprites  [8]vicSprite
	spriteMM [2]uint8
	mux      vicMux

	ba  PinProducer
	aec PinProducer

	// bank select offset, updated from CIA2 port A
	BaseAddress uint16

	// display logic
	displayOn bool // denSeen on line $30
	badLine   bool
	display   bool // display (vs idle) state
	vc        uint16
	vcbase    uint16
	rc        uint8
	vmli      uint8
	cbuf      [40]uint16 // c-access buffer: color<<8 | pointer

	// border flip flops
	mainBorder bool
	vertBorder bool

	lpx, lpy    uint8
	lpTriggered bool

	frame     *Frame
	FrameDone bool // vsync flag, cleared by the orchestrator
	Frames    uint32
}

func NewVIC(standard hwdefs.VideoStandard, mem *MMU, pins *Pins) *VIC {
	geo := vicGeometries[standard]
	v := &VIC{
		geo:     geo,
		mem:     mem,
		irqLine: pins.IRQ.Producer(),
		ba:      pins.BA.Producer(),
		aec:     pins.AEC.Producer(),
	}
	for i := range v.sprites {
		v.sprites[i].mm = &v.spriteMM
	}
	v.frame = newFrame(geo)
	v.Reset()
	return v
}

func newFrame(geo vicGeometry) *Frame {
	w := int(geo.cyclesPerLine) * 8
	h := int(geo.rasterLines)
	return &Frame{
		Pixels: make([]uint8, w*h),
		Width:  w,
		Height: h,
	}
}

func (v *VIC) Geometry() (cyclesPerLine, rasterLines uint16) {
	return v.geo.cyclesPerLine, v.geo.rasterLines
}

func (v *VIC) Reset() {
	v.cycle = 1
	v.raster = 0
	v.den = true
	v.rsel = true
	v.csel = true
	v.yscroll = 3
	v.xscroll = 0
	v.rasterCmp = 0
	v.videoMatrix = 0x0400
	v.charBase = 0x1000
	v.irqStatus = 0
	v.irqEnable = 0
	v.irqLine.Assert(false)
	v.borderColor = 0x0e
	v.gfx.reset()
	for i := range v.sprites {
		v.sprites[i].reset()
	}
	v.mux.reset()
	v.ba.Assert(false)
	v.aec.Assert(false)
	v.displayOn = false
	v.badLine = false
	v.display = false
	v.vc, v.vcbase, v.rc, v.vmli = 0, 0, 0, 0
	v.mainBorder = true
	v.vertBorder = true
	v.lpTriggered = false
	v.FrameDone = false
}

// SetFrame points the VIC at the buffer for the field being rendered.
func (v *VIC) SetFrame(f *Frame)    { v.frame = f }
func (v *VIC) CurrentFrame() *Frame { return v.frame }

// spritePCycle maps sprite index to the cycle of its pointer access. The
// last five land at the start of the following line.
var spritePCycle = [8]uint16{58, 60, 62, 1, 3, 5, 7, 9}

// Clock advances the VIC by one cycle.
func (v *VIC) Clock() {
	switch v.cycle {
	case 1:
		v.checkRasterIRQ()
	case 14:
		v.vc = v.vcbase
		v.vmli = 0
		if v.badLine {
			v.rc = 0
		}
	case 55, 56:
		v.spriteDmaOn()
	case 58:
		v.spriteDisplayOn()
		if v.rc == 7 {
			v.vcbase = v.vc
			v.display = false
		}
		if v.badLine || v.display {
			v.display = true
			v.rc = (v.rc + 1) & 7
		}
	}

	// Bad line detection is continuous across the line.
	v.updateBadLine()
	if v.badLine {
		v.display = true
	}

	v.runDma()
	v.updateBA()
	v.renderCycle()

	v.cycle++
	if v.cycle > v.geo.cyclesPerLine {
		v.cycle = 1
		v.advanceLine()
	}
}

func (v *VIC) updateBadLine() {
	if v.raster == 0x30 && v.den {
		v.displayOn = true
	}
	v.badLine = v.displayOn &&
		v.raster >= 0x30 && v.raster <= 0xf7 &&
		uint8(v.raster)&0x07 == v.yscroll
}

func (v *VIC) advanceLine() {
	v.raster++
	if v.raster >= v.geo.rasterLines {
		v.raster = 0
		v.vcbase = 0
		v.displayOn = false
		v.lpTriggered = false
		v.Frames++
		v.FrameDone = true
	}

	// vertical border flip flop
	top, bottom := uint16(topEdge25), uint16(bottomEdge25)
	if !v.rsel {
		top, bottom = topEdge24, bottomEdge24
	}
	switch v.raster {
	case bottom:
		v.vertBorder = true
	case top:
		if v.den {
			v.vertBorder = false
		}
	}

	// sprite DMA line bookkeeping
	for i := range v.sprites {
		s := &v.sprites[i]
		if s.dma {
			if s.expFlop || !s.expandY {
				s.mcbase += 3
			}
			if !s.expandY {
				s.expFlop = true
			} else {
				s.expFlop = !s.expFlop
			}
			if s.mcbase >= 63 {
				s.dma = false
				s.display = false
			}
		}
	}
}

func (v *VIC) checkRasterIRQ() {
	if v.raster == v.rasterCmp {
		v.setIRQ(0)
	}
}

func (v *VIC) setIRQ(bit uint) {
	v.irqStatus |= 1 << bit
	v.updateIRQLine()
}

func (v *VIC) updateIRQLine() {
	v.irqLine.Assert(v.irqStatus&v.irqEnable&0x0f != 0)
}

// spriteDmaOn starts DMA for sprites whose Y coordinate matches.
func (v *VIC) spriteDmaOn() {
	for i := range v.sprites {
		s := &v.sprites[i]
		if s.enabled && s.y == uint8(v.raster) && !s.dma {
			s.dma = true
			s.mcbase = 0
			if s.expandY {
				s.expFlop = false
			}
		}
	}
}

func (v *VIC) spriteDisplayOn() {
	for i := range v.sprites {
		s := &v.sprites[i]
		s.mc = s.mcbase
		if s.dma && s.y == uint8(v.raster) {
			s.display = true
		}
	}
}

// runDma performs this cycle's c/g/p/s-accesses.
func (v *VIC) runDma() {
	c := v.cycle

	// sprite pointer + data fetches
	for i, pc := range spritePCycle {
		if c != pc {
			continue
		}
		s := &v.sprites[i]
		// The pointer access happens every line regardless of DMA.
		s.pointer = v.mem.VicRead(v.videoMatrix|0x03f8|uint16(i), v.BaseAddress)
		if s.dma {
			base := uint16(s.pointer) << 6
			for b := 0; b < 3; b++ {
				val := v.mem.VicRead(base+uint16(s.mc), v.BaseAddress)
				s.setData(b, val)
				s.mc++
			}
		}
	}

	// character pointer / graphics fetches
	if c >= 15 && c <= 54 && v.badLine {
		// c-access
		char := v.mem.VicRead(v.videoMatrix|v.vc, v.BaseAddress)
		color := v.mem.VicReadColor(v.vc)
		v.cbuf[v.vmli] = uint16(color)<<8 | uint16(char)
	}
	if c >= 16 && c <= 55 && v.display {
		// g-access
		var addr uint16
		entry := v.cbuf[v.vmli]
		if v.bmm {
			addr = v.charBase&0x2000 | v.vc<<3 | uint16(v.rc)
		} else {
			addr = v.charBase | uint16(entry&0xff)<<3 | uint16(v.rc)
		}
		if v.ecm {
			addr &= 0xf9ff
		}
		gdata := v.mem.VicRead(addr, v.BaseAddress)
		v.gfx.setData(uint8(entry), uint8(entry>>8), gdata)
		v.vc = (v.vc + 1) & 0x3ff
		v.vmli = (v.vmli + 1) & 0x3f
	} else if c >= 16 && c <= 55 {
		// idle access
		addr := uint16(0x3fff)
		if v.ecm {
			addr = 0x39ff
		}
		gdata := v.mem.VicRead(addr, v.BaseAddress)
		v.gfx.setData(0, 0, gdata)
	}
}

// updateBA drives the bus-available line: low three cycles ahead of and
// during bad-line character fetches and active sprite DMA slots.
func (v *VIC) updateBA() {
	c := v.cycle
	stolen := v.badLine && c >= 12 && c <= 54
	aec := v.badLine && c >= 15 && c <= 54

	inWindow := func(pc uint16, lead, tail int) bool {
		lo := int(pc) - lead
		hi := int(pc) + tail
		cc := int(c)
		if lo < 1 {
			// window wraps from the end of the previous line
			return cc >= lo+int(v.geo.cyclesPerLine) || cc <= hi
		}
		return cc >= lo && cc <= hi
	}
	for i, pc := range spritePCycle {
		if !v.sprites[i].dma {
			continue
		}
		if inWindow(pc, 3, 1) {
			stolen = true
		}
		if inWindow(pc, 0, 1) {
			aec = true
		}
	}

	v.ba.Assert(stolen)
	v.aec.Assert(aec)
}

// renderCycle emits the eight pixels of the current cycle.
func (v *VIC) renderCycle() {
	if int(v.raster) >= v.frame.Height {
		return
	}
	base := int(v.raster)*v.frame.Width + int(v.cycle-1)*8

	left, right := uint16(leftEdge40), uint16(rightEdge40)
	if !v.csel {
		left, right = leftEdge38, rightEdge38
	}

	for i := 0; i < 8; i++ {
		x := v.spriteX(uint16(i))

		// graphics shifter reload honors XSCROLL
		if v.cycle >= 16 && v.cycle <= 56 && uint8(i) == v.xscroll {
			v.gfx.loadData()
		}

		// main border flip flop
		switch x {
		case right:
			v.mainBorder = true
		case left:
			if !v.vertBorder {
				v.mainBorder = false
			}
		}

		v.gfx.clock()
		gcolor, gfg := v.gfx.output()
		if v.vertBorder {
			gfg = false
		}
		v.mux.feedGraphics(gcolor, gfg)

		for j := range v.sprites {
			v.sprites[j].clock(x)
		}
		v.mux.feedSprites(&v.sprites)

		if v.mainBorder || v.vertBorder {
			v.mux.feedBorder(v.borderColor)
		}

		if base+i < len(v.frame.Pixels) {
			v.frame.Pixels[base+i] = v.mux.output()
		}
	}

	if mb, mm := v.mux.takeInterrupts(); mb || mm {
		if mb {
			v.setIRQ(1)
		}
		if mm {
			v.setIRQ(2)
		}
	}
}

// spriteX converts the current cycle/pixel to the sprite coordinate system,
// where X=24 is the left edge of the 40-column window.
func (v *VIC) spriteX(i uint16) uint16 {
	width := v.geo.cyclesPerLine * 8
	x := (v.cycle-17)*8 + leftEdge40 + i
	// cycles before 17 wrap to the right side
	return (x + width) % width
}

// TriggerLightPen latches the light-pen position; only the first trigger
// per frame registers.
func (v *VIC) TriggerLightPen(x, y uint8) {
	if v.lpTriggered {
		return
	}
	v.lpTriggered = true
	v.lpx = x
	v.lpy = y
	v.setIRQ(3)
}

/* register file */

// Read dispatches a VIC register read ($D000-$D03F, mirrored).
func (v *VIC) Read(addr uint16) uint8 {
	reg := addr & 0x3f
	var val uint8
	switch {
	case reg <= 0x0f && reg&1 == 0: // sprite X low bytes
		val = uint8(v.sprites[reg>>1].x)
	case reg <= 0x0f: // sprite Y
		val = v.sprites[reg>>1].y
	case reg == 0x10:
		for i := range v.sprites {
			if v.sprites[i].x&0x100 != 0 {
				val |= 1 << i
			}
		}
	case reg == 0x11:
		val = uint8(v.raster>>8)<<7 |
			b2i(v.ecm)<<6 | b2i(v.bmm)<<5 | b2i(v.den)<<4 |
			b2i(v.rsel)<<3 | v.yscroll
	case reg == 0x12:
		val = uint8(v.raster)
	case reg == 0x13:
		val = v.lpx
	case reg == 0x14:
		val = v.lpy
	case reg == 0x15:
		for i := range v.sprites {
			if v.sprites[i].enabled {
				val |= 1 << i
			}
		}
	case reg == 0x16:
		val = 0xc0 | b2i(v.res)<<5 | b2i(v.mcm)<<4 | b2i(v.csel)<<3 | v.xscroll
	case reg == 0x17:
		for i := range v.sprites {
			if v.sprites[i].expandY {
				val |= 1 << i
			}
		}
	case reg == 0x18:
		val = uint8(v.videoMatrix>>10)<<4 | uint8(v.charBase>>11)<<1 | 0x01
	case reg == 0x19:
		val = v.irqStatus | 0x70
		if v.irqStatus&v.irqEnable&0x0f != 0 {
			val |= 0x80
		}
	case reg == 0x1a:
		val = v.irqEnable | 0xf0
	case reg == 0x1b:
		for i := range v.sprites {
			if v.sprites[i].behindGfx {
				val |= 1 << i
			}
		}
	case reg == 0x1c:
		for i := range v.sprites {
			if v.sprites[i].multicolor {
				val |= 1 << i
			}
		}
	case reg == 0x1d:
		for i := range v.sprites {
			if v.sprites[i].expandX {
				val |= 1 << i
			}
		}
	case reg == 0x1e:
		val = v.readMMWithIRQ()
	case reg == 0x1f:
		val = v.readMBWithIRQ()
	case reg == 0x20:
		val = v.borderColor | 0xf0
	case reg >= 0x21 && reg <= 0x24:
		val = v.gfx.bgColor[reg-0x21] | 0xf0
	case reg == 0x25 || reg == 0x26:
		val = v.spriteMM[reg-0x25] | 0xf0
	case reg >= 0x27 && reg <= 0x2e:
		val = v.sprites[reg-0x27].color | 0xf0
	default:
		val = 0xff // unused registers
	}
	return val
}

func (v *VIC) readMMWithIRQ() uint8 {
	return v.mux.readMM()
}

func (v *VIC) readMBWithIRQ() uint8 {
	return v.mux.readMB()
}

// Peek reads without clearing the collision registers.
func (v *VIC) Peek(addr uint16) uint8 {
	switch addr & 0x3f {
	case 0x1e:
		return v.mux.mmCollision
	case 0x1f:
		return v.mux.mbCollision
	default:
		return v.Read(addr)
	}
}

func (v *VIC) Write(addr uint16, val uint8) {
	reg := addr & 0x3f
	log.ModVIC.DebugZ("reg write").Hex16("reg", reg).Hex8("val", val).End()
	switch {
	case reg <= 0x0f && reg&1 == 0:
		s := &v.sprites[reg>>1]
		s.x = s.x&0x100 | uint16(val)
	case reg <= 0x0f:
		v.sprites[reg>>1].y = val
	case reg == 0x10:
		for i := range v.sprites {
			s := &v.sprites[i]
			s.x = s.x&0xff | uint16(val>>i&1)<<8
		}
	case reg == 0x11:
		v.rasterCmp = v.rasterCmp&0xff | uint16(val>>7)<<8
		v.ecm = val&0x40 != 0
		v.bmm = val&0x20 != 0
		v.den = val&0x10 != 0
		v.rsel = val&0x08 != 0
		v.yscroll = val & 0x07
		v.updateMode()
	case reg == 0x12:
		v.rasterCmp = v.rasterCmp&0x100 | uint16(val)
	case reg == 0x13, reg == 0x14:
		// light pen latches are read-only
	case reg == 0x15:
		for i := range v.sprites {
			v.sprites[i].enabled = val>>i&1 != 0
		}
	case reg == 0x16:
		v.res = val&0x20 != 0
		v.mcm = val&0x10 != 0
		v.csel = val&0x08 != 0
		v.xscroll = val & 0x07
		v.updateMode()
	case reg == 0x17:
		for i := range v.sprites {
			s := &v.sprites[i]
			s.expandY = val>>i&1 != 0
			if !s.expandY {
				s.expFlop = true
			}
		}
	case reg == 0x18:
		v.videoMatrix = uint16(val>>4) << 10
		v.charBase = uint16(val&0x0e) << 10
	case reg == 0x19:
		// acknowledge: writing 1 clears the latch
		v.irqStatus &^= val & 0x0f
		v.updateIRQLine()
	case reg == 0x1a:
		v.irqEnable = val & 0x0f
		v.updateIRQLine()
	case reg == 0x1b:
		for i := range v.sprites {
			v.sprites[i].behindGfx = val>>i&1 != 0
		}
	case reg == 0x1c:
		for i := range v.sprites {
			v.sprites[i].multicolor = val>>i&1 != 0
		}
	case reg == 0x1d:
		for i := range v.sprites {
			v.sprites[i].expandX = val>>i&1 != 0
		}
	case reg == 0x1e, reg == 0x1f:
		// collision registers are read-only
	case reg == 0x20:
		v.borderColor = val & 0x0f
	case reg >= 0x21 && reg <= 0x24:
		v.gfx.bgColor[reg-0x21] = val & 0x0f
	case reg == 0x25, reg == 0x26:
		v.spriteMM[reg-0x25] = val & 0x0f
	case reg >= 0x27 && reg <= 0x2e:
		v.sprites[reg-0x27].color = val & 0x0f
	}
}

func (v *VIC) updateMode() {
	mode := b2i(v.ecm)<<2 | b2i(v.bmm)<<1 | b2i(v.mcm)
	v.gfx.mode = vicMode(mode)
}

/* snapshots */

func (v *VIC) State() *snapshot.VIC {
	st := &snapshot.VIC{
		Cycle:       v.cycle,
		Raster:      v.raster,
		RasterCmp:   v.rasterCmp,
		Den:         v.den,
		Rsel:        v.rsel,
		Csel:        v.csel,
		Bmm:         v.bmm,
		Ecm:         v.ecm,
		Mcm:         v.mcm,
		YScroll:     v.yscroll,
		XScroll:     v.xscroll,
		VideoMatrix: v.videoMatrix,
		CharBase:    v.charBase,
		IRQStatus:   v.irqStatus,
		IRQEnable:   v.irqEnable,
		BorderColor: v.borderColor,
		BgColor:     v.gfx.bgColor,
		SpriteMM:    v.spriteMM,
		DisplayOn:   v.displayOn,
		Display:     v.display,
		VC:          v.vc,
		VCBase:      v.vcbase,
		RC:          v.rc,
		VMLI:        v.vmli,
		CBuf:        v.cbuf,
		MainBorder:  v.mainBorder,
		VertBorder:  v.vertBorder,
		MBCollision: v.mux.mbCollision,
		MMCollision: v.mux.mmCollision,
	}
	for i := range v.sprites {
		s := &v.sprites[i]
		st.Sprites[i] = snapshot.Sprite{
			X:          s.x,
			Y:          s.y,
			Enabled:    s.enabled,
			ExpandX:    s.expandX,
			ExpandY:    s.expandY,
			Multicolor: s.multicolor,
			BehindGfx:  s.behindGfx,
			Color:      s.color,
			DMA:        s.dma,
			Pointer:    s.pointer,
			MC:         s.mc,
			MCBase:     s.mcbase,
			ExpFlop:    s.expFlop,
			Display:    s.display,
			Data:       s.data,
		}
	}
	return st
}

func (v *VIC) SetState(st *snapshot.VIC) {
	v.cycle = st.Cycle
	v.raster = st.Raster
	v.rasterCmp = st.RasterCmp
	v.den = st.Den
	v.rsel = st.Rsel
	v.csel = st.Csel
	v.bmm = st.Bmm
	v.ecm = st.Ecm
	v.mcm = st.Mcm
	v.yscroll = st.YScroll
	v.xscroll = st.XScroll
	v.videoMatrix = st.VideoMatrix
	v.charBase = st.CharBase
	v.irqStatus = st.IRQStatus
	v.irqEnable = st.IRQEnable
	v.borderColor = st.BorderColor
	v.gfx.bgColor = st.BgColor
	v.spriteMM = st.SpriteMM
	v.displayOn = st.DisplayOn
	v.display = st.Display
	v.vc = st.VC
	v.vcbase = st.VCBase
	v.rc = st.RC
	v.vmli = st.VMLI
	v.cbuf = st.CBuf
	v.mainBorder = st.MainBorder
	v.vertBorder = st.VertBorder
	v.mux.mbCollision = st.MBCollision
	v.mux.mmCollision = st.MMCollision
	for i := range v.sprites {
		s := &v.sprites[i]
		sp := st.Sprites[i]
		s.x = sp.X
		s.y = sp.Y
		s.enabled = sp.Enabled
		s.expandX = sp.ExpandX
		s.expandY = sp.ExpandY
		s.multicolor = sp.Multicolor
		s.behindGfx = sp.BehindGfx
		s.color = sp.Color
		s.dma = sp.DMA
		s.pointer = sp.Pointer
		s.mc = sp.MC
		s.mcbase = sp.MCBase
		s.expFlop = sp.ExpFlop
		s.display = sp.Display
		s.data = sp.Data
	}
	v.updateMode()
	v.updateIRQLine()
}
