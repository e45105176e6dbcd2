// This file is part of GopherBoy.
//
// GopherBoy is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GopherBoy is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GopherBoy.  If not, see <https://www.gnu.org/licenses/>.

package gba

import (
	"image"

	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

// Size of the screen in pixels.
const (
	ScreenWidth  = 240
	ScreenHeight = 160
)

// PPU timings in cycles.
const (
	CyclesPerLine   = 1232
	LinesPerFrame   = 228
	CyclesPerFrame  = CyclesPerLine * LinesPerFrame
	hdrawCycles     = 960
	hblankCycles    = CyclesPerLine - hdrawCycles
	objTileBase     = 0x10000
	bitmapTileLimit = 0x14000
)

// event payloads for the PPU handler
const (
	ppuLine = iota
	ppuHBlank
)

// DISPSTAT flags maintained by the PPU
const (
	statVBlank = 0x0001
	statHBlank = 0x0002
	statVCount = 0x0004
)

// size of sprites in pixels indexed by shape and size
var objSizes = [3][4][2]int{
	{{8, 8}, {16, 16}, {32, 32}, {64, 64}},
	{{16, 8}, {32, 8}, {32, 16}, {64, 32}},
	{{8, 16}, {8, 32}, {16, 32}, {32, 64}},
}

// PPUState is the serialisable state of the PPU. The video registers are
// part of the IO state.
type PPUState struct {
	VCount uint16
	Flags  uint16

	// internal reference points of the affine backgrounds in 20.8 fixed
	// point. latched from BGxX and BGxY at the vertical blank and when the
	// registers are written. advanced by BGxPB and BGxPD after every line
	RefX [2]int32
	RefY [2]int32
}

// PPU is the pixel processing unit. Each visible line is drawn at the start of
// its horizontal blank.
//
// Text, affine and bitmap backgrounds are drawn, as are regular and affine
// sprites. Windows and colour effects are not.
type PPU struct {
	sched *scheduler.Scheduler
	ints  *interrupts.Controller

	regs    *[0x400]uint8
	vram    *vram
	palette *palette
	oam     *oam

	state PPUState
	frame *image.RGBA

	// byte writes to VRAM above this offset are ignored. it depends on the
	// display mode
	bgLimit uint32

	// called at the start of the vertical blank
	vblank func()

	// called at the start of the horizontal blank of every visible line
	hblank func()
}

func newPPU(sched *scheduler.Scheduler, ints *interrupts.Controller, regs *[0x400]uint8) *PPU {
	ppu := &PPU{
		sched:   sched,
		ints:    ints,
		regs:    regs,
		palette: &palette{},
		oam:     &oam{},
		frame:   image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight)),
		bgLimit: objTileBase,
	}
	ppu.vram = &vram{bgLimit: &ppu.bgLimit}
	sched.Register(evPPU, "ppu", ppu.event)
	return ppu
}

func (ppu *PPU) reset() {
	ppu.state = PPUState{}
	ppu.vram.data = [0x18000]uint8{}
	ppu.palette.data = [0x400]uint8{}
	ppu.oam.data = [0x400]uint8{}
	ppu.bgLimit = objTileBase
	ppu.sched.Cancel(evPPU)
	ppu.sched.ScheduleIn(hdrawCycles, evPPU, ppuHBlank)
}

func (ppu *PPU) reg(o int) uint16 {
	return uint16(ppu.regs[o]) | uint16(ppu.regs[o+1])<<8
}

// displayMode is called when DISPCNT is written.
func (ppu *PPU) displayMode(dispcnt uint16) {
	if dispcnt&0x07 >= 3 {
		ppu.bgLimit = bitmapTileLimit
	} else {
		ppu.bgLimit = objTileBase
	}
}

func (ppu *PPU) event(payload uint32) {
	dispstat := ppu.reg(0x004)

	switch payload {
	case ppuHBlank:
		visible := ppu.state.VCount < ScreenHeight
		if visible {
			ppu.renderLine()
			ppu.advanceAffine()
		}
		ppu.state.Flags |= statHBlank
		if dispstat&0x0010 == 0x0010 {
			ppu.ints.Raise(IntHBlank)
		}
		if visible && ppu.hblank != nil {
			ppu.hblank()
		}
		ppu.sched.ScheduleIn(hblankCycles, evPPU, ppuLine)

	case ppuLine:
		ppu.state.Flags &^= statHBlank
		ppu.state.VCount++
		if ppu.state.VCount >= LinesPerFrame {
			ppu.state.VCount = 0
		}

		switch ppu.state.VCount {
		case ScreenHeight:
			ppu.latchAffine(2)
			ppu.latchAffine(3)
			ppu.state.Flags |= statVBlank
			if dispstat&0x0008 == 0x0008 {
				ppu.ints.Raise(IntVBlank)
			}
		case LinesPerFrame - 1:
			ppu.state.Flags &^= statVBlank
		}

		if ppu.state.VCount == dispstat>>8 {
			ppu.state.Flags |= statVCount
			if dispstat&0x0020 == 0x0020 {
				ppu.ints.Raise(IntVCount)
			}
		} else {
			ppu.state.Flags &^= statVCount
		}

		ppu.sched.ScheduleIn(hdrawCycles, evPPU, ppuHBlank)

		if ppu.state.VCount == ScreenHeight && ppu.vblank != nil {
			ppu.vblank()
		}
	}
}

// one line of a layer
type layer struct {
	colour [ScreenWidth]uint16
	opaque [ScreenWidth]bool
	prio   [ScreenWidth]int
}

func (ppu *PPU) renderLine() {
	y := int(ppu.state.VCount)
	dispcnt := ppu.reg(0x000)
	pix := ppu.frame.Pix[y*ppu.frame.Stride:]

	// forced blank shows a white line
	if dispcnt&0x0080 == 0x0080 {
		for i := 0; i < ScreenWidth*4; i++ {
			pix[i] = 0xff
		}
		return
	}

	var bgs [4]layer
	var enabled [4]bool
	var prio [4]int
	for i := range prio {
		prio[i] = int(ppu.reg(0x008+i*2) & 0x03)
	}

	on := func(bg int) bool {
		return dispcnt&(0x0100<<bg) != 0
	}

	switch dispcnt & 0x07 {
	case 0:
		for bg := 0; bg < 4; bg++ {
			if on(bg) {
				enabled[bg] = true
				ppu.textLine(bg, y, &bgs[bg])
			}
		}
	case 1:
		for bg := 0; bg < 2; bg++ {
			if on(bg) {
				enabled[bg] = true
				ppu.textLine(bg, y, &bgs[bg])
			}
		}
		if on(2) {
			enabled[2] = true
			ppu.affineLine(2, &bgs[2])
		}
	case 2:
		for bg := 2; bg < 4; bg++ {
			if on(bg) {
				enabled[bg] = true
				ppu.affineLine(bg, &bgs[bg])
			}
		}
	case 3:
		if on(2) {
			enabled[2] = true
			ppu.bitmapLine(&bgs[2], 240, 160, 0, true)
		}
	case 4:
		if on(2) {
			enabled[2] = true
			ppu.bitmapLine(&bgs[2], 240, 160, ppu.frameBase(dispcnt), false)
		}
	case 5:
		if on(2) {
			enabled[2] = true
			ppu.bitmapLine(&bgs[2], 160, 128, ppu.frameBase(dispcnt), true)
		}
	}

	var obj layer
	if dispcnt&0x1000 == 0x1000 {
		ppu.spriteLine(y, dispcnt, &obj)
	}

	backdrop := ppu.palette.colour(0)
	for x := 0; x < ScreenWidth; x++ {
		c := backdrop
	compose:
		for p := 0; p < 4; p++ {
			if obj.opaque[x] && obj.prio[x] == p {
				c = obj.colour[x]
				break
			}
			for bg := 0; bg < 4; bg++ {
				if enabled[bg] && prio[bg] == p && bgs[bg].opaque[x] {
					c = bgs[bg].colour[x]
					break compose
				}
			}
		}
		r := uint8(c & 0x1f)
		g := uint8((c >> 5) & 0x1f)
		b := uint8((c >> 10) & 0x1f)
		pix[x*4] = r<<3 | r>>2
		pix[x*4+1] = g<<3 | g>>2
		pix[x*4+2] = b<<3 | b>>2
		pix[x*4+3] = 0xff
	}
}

func (ppu *PPU) frameBase(dispcnt uint16) uint32 {
	if dispcnt&0x0010 == 0x0010 {
		return 0xa000
	}
	return 0
}

func (ppu *PPU) textLine(bg int, y int, l *layer) {
	cnt := ppu.reg(0x008 + bg*2)
	hofs := int(ppu.reg(0x010+bg*4) & 0x1ff)
	vofs := int(ppu.reg(0x012+bg*4) & 0x1ff)

	charBase := int(cnt>>2&0x03) * 0x4000
	screenBase := int(cnt>>8&0x1f) * 0x800
	bpp8 := cnt&0x0080 == 0x0080
	size := int(cnt >> 14)
	w := 256 << (size & 1)
	h := 256 << (size >> 1)

	yy := (y + vofs) & (h - 1)
	data := ppu.vram.data[:]

	for x := 0; x < ScreenWidth; x++ {
		xx := (x + hofs) & (w - 1)

		var sbb int
		switch size {
		case 1:
			sbb = xx / 256
		case 2:
			sbb = yy / 256
		case 3:
			sbb = xx/256 + (yy/256)*2
		}

		e := screenBase + sbb*0x800 + ((yy%256)/8)*64 + ((xx%256)/8)*2
		entry := uint16(data[e]) | uint16(data[e+1])<<8

		px := xx % 8
		py := yy % 8
		if entry&0x0400 == 0x0400 {
			px = 7 - px
		}
		if entry&0x0800 == 0x0800 {
			py = 7 - py
		}
		tile := int(entry & 0x03ff)

		var idx int
		if bpp8 {
			a := charBase + tile*64 + py*8 + px
			if a >= objTileBase {
				continue
			}
			idx = int(data[a])
		} else {
			a := charBase + tile*32 + py*4 + px/2
			if a >= objTileBase {
				continue
			}
			idx = int(data[a]>>((px&1)*4)) & 0x0f
			if idx != 0 {
				idx += int(entry>>12) * 16
			}
		}
		if idx == 0 {
			continue
		}

		l.colour[x] = ppu.palette.colour(idx)
		l.opaque[x] = true
	}
}

// the affine parameter register of an affine background. the offset is 0 for
// PA, 2 for PB, 4 for PC and 6 for PD
func (ppu *PPU) affineParam(bg int, o int) int32 {
	return int32(int16(ppu.reg(0x020 + (bg-2)*0x10 + o)))
}

// latchAffine copies the reference point registers of the affine background
// to the internal reference point. The registers are 28 bit signed values.
func (ppu *PPU) latchAffine(bg int) {
	base := 0x028 + (bg-2)*0x10
	x := uint32(ppu.reg(base)) | uint32(ppu.reg(base+2))<<16
	y := uint32(ppu.reg(base+4)) | uint32(ppu.reg(base+6))<<16
	ppu.state.RefX[bg-2] = int32(x<<4) >> 4
	ppu.state.RefY[bg-2] = int32(y<<4) >> 4
}

// move the internal reference points to the next line
func (ppu *PPU) advanceAffine() {
	for i := 0; i < 2; i++ {
		ppu.state.RefX[i] += ppu.affineParam(i+2, 2)
		ppu.state.RefY[i] += ppu.affineParam(i+2, 6)
	}
}

func (ppu *PPU) affineLine(bg int, l *layer) {
	cnt := ppu.reg(0x008 + bg*2)
	charBase := int(cnt>>2&0x03) * 0x4000
	screenBase := int(cnt>>8&0x1f) * 0x800
	size := 128 << (cnt >> 14)
	wrap := cnt&0x2000 == 0x2000

	pa := ppu.affineParam(bg, 0)
	pc := ppu.affineParam(bg, 4)
	refX := ppu.state.RefX[bg-2]
	refY := ppu.state.RefY[bg-2]
	data := ppu.vram.data[:]

	for x := 0; x < ScreenWidth; x++ {
		tx := int((refX + pa*int32(x)) >> 8)
		ty := int((refY + pc*int32(x)) >> 8)
		if tx < 0 || tx >= size || ty < 0 || ty >= size {
			if !wrap {
				continue
			}
			tx &= size - 1
			ty &= size - 1
		}

		// map entries are a single byte and tiles are always eight bits
		// per pixel
		m := screenBase + (ty/8)*(size/8) + tx/8
		if m >= objTileBase {
			continue
		}
		a := charBase + int(data[m])*64 + (ty%8)*8 + tx%8
		if a >= objTileBase {
			continue
		}
		idx := int(data[a])
		if idx == 0 {
			continue
		}

		l.colour[x] = ppu.palette.colour(idx)
		l.opaque[x] = true
	}
}

// bitmapLine draws a line of a bitmap background. The bitmap is drawn through
// the affine parameters of the second background. Pixels outside of the
// bitmap are transparent.
func (ppu *PPU) bitmapLine(l *layer, w int, h int, base uint32, direct bool) {
	pa := ppu.affineParam(2, 0)
	pc := ppu.affineParam(2, 4)
	refX := ppu.state.RefX[0]
	refY := ppu.state.RefY[0]
	data := ppu.vram.data[:]

	for x := 0; x < ScreenWidth; x++ {
		bx := int((refX + pa*int32(x)) >> 8)
		by := int((refY + pc*int32(x)) >> 8)
		if bx < 0 || bx >= w || by < 0 || by >= h {
			continue
		}
		if direct {
			a := base + uint32(by*w+bx)*2
			l.colour[x] = (uint16(data[a]) | uint16(data[a+1])<<8) & 0x7fff
			l.opaque[x] = true
		} else {
			idx := int(data[base+uint32(by*w+bx)])
			if idx != 0 {
				l.colour[x] = ppu.palette.colour(idx)
				l.opaque[x] = true
			}
		}
	}
}

// the attributes of a sprite needed to find its pixels
type sprite struct {
	w, h   int
	tile   int
	prio   int
	pal    int
	bpp8   bool
	oneD   bool
	bitmap bool
}

// texel returns the palette index of the pixel at the column and row of the
// sprite. Zero is transparent.
func (ppu *PPU) texel(s *sprite, col int, row int) int {
	data := ppu.vram.data[:]
	tx := col / 8
	ty := row / 8

	var t, idx int
	if s.bpp8 {
		if s.oneD {
			t = s.tile + ty*(s.w/8)*2 + tx*2
		} else {
			t = s.tile&^1 + ty*32 + tx*2
		}
		t &= 0x3ff
		a := objTileBase + t*32 + (row%8)*8 + col%8
		if a >= len(data) {
			return 0
		}
		idx = int(data[a])
		if idx != 0 {
			idx += 256
		}
	} else {
		if s.oneD {
			t = s.tile + ty*(s.w/8) + tx
		} else {
			t = s.tile + ty*32 + tx
		}
		t &= 0x3ff
		a := objTileBase + t*32 + (row%8)*4 + (col%8)/2
		idx = int(data[a]>>((col&1)*4)) & 0x0f
		if idx != 0 {
			idx += 256 + s.pal
		}
	}

	// in the bitmap modes the lower half of sprite tile memory is used by
	// the background
	if s.bitmap && t < 512 {
		return 0
	}
	return idx
}

// the affine parameters PA, PB, PC and PD of a sprite parameter group
func (ppu *PPU) spriteParams(group int) [4]int {
	var p [4]int
	for i := range p {
		p[i] = int(int16(ppu.oam.half(group*32 + 6 + i*8)))
	}
	return p
}

func (ppu *PPU) spriteLine(y int, dispcnt uint16, l *layer) {
	for i := 0; i < 128; i++ {
		a0 := ppu.oam.half(i * 8)
		a1 := ppu.oam.half(i*8 + 2)
		a2 := ppu.oam.half(i*8 + 4)

		affine := a0&0x0100 == 0x0100
		double := affine && a0&0x0200 == 0x0200

		// disabled sprites and sprites that define the object window are not
		// drawn
		if (!affine && a0&0x0200 != 0) || (a0>>10)&0x03 == 2 {
			continue
		}

		shape := int(a0 >> 14)
		if shape == 3 {
			continue
		}
		s := sprite{
			w:      objSizes[shape][a1>>14][0],
			h:      objSizes[shape][a1>>14][1],
			tile:   int(a2 & 0x3ff),
			prio:   int(a2>>10) & 0x03,
			pal:    int(a2>>12) * 16,
			bpp8:   a0&0x2000 == 0x2000,
			oneD:   dispcnt&0x0040 == 0x0040,
			bitmap: dispcnt&0x07 >= 3,
		}

		// the bounding box of a double size sprite is twice the size of the
		// sprite
		bw, bh := s.w, s.h
		if double {
			bw *= 2
			bh *= 2
		}

		sy := int(a0 & 0xff)
		if sy >= ScreenHeight {
			sy -= 256
		}
		if y < sy || y >= sy+bh {
			continue
		}
		sx := int(a1 & 0x1ff)
		if sx >= ScreenWidth {
			sx -= 512
		}

		if affine {
			ppu.affineSprite(&s, int(a1>>9)&0x1f, sx, y-sy, bw, bh, l)
			continue
		}

		row := y - sy
		if a1&0x2000 == 0x2000 {
			row = s.h - 1 - row
		}

		for c := 0; c < s.w; c++ {
			x := sx + c
			if x < 0 || x >= ScreenWidth {
				continue
			}

			// sprites earlier in OAM have priority over later sprites of
			// the same priority
			if l.opaque[x] && l.prio[x] <= s.prio {
				continue
			}

			col := c
			if a1&0x1000 == 0x1000 {
				col = s.w - 1 - col
			}

			if idx := ppu.texel(&s, col, row); idx != 0 {
				l.colour[x] = ppu.palette.colour(idx)
				l.opaque[x] = true
				l.prio[x] = s.prio
			}
		}
	}
}

// affineSprite draws the line of an affine sprite. The row is relative to the
// top of the bounding box. The transformation is about the centre of the
// bounding box.
func (ppu *PPU) affineSprite(s *sprite, group int, sx int, row int, bw int, bh int, l *layer) {
	p := ppu.spriteParams(group)
	iy := row - bh/2

	for ix := -bw / 2; ix < bw/2; ix++ {
		x := sx + bw/2 + ix
		if x < 0 {
			continue
		}
		if x >= ScreenWidth {
			break
		}
		if l.opaque[x] && l.prio[x] <= s.prio {
			continue
		}

		col := (p[0]*ix+p[1]*iy)>>8 + s.w/2
		rw := (p[2]*ix+p[3]*iy)>>8 + s.h/2
		if col < 0 || col >= s.w || rw < 0 || rw >= s.h {
			continue
		}

		if idx := ppu.texel(s, col, rw); idx != 0 {
			l.colour[x] = ppu.palette.colour(idx)
			l.opaque[x] = true
			l.prio[x] = s.prio
		}
	}
}
