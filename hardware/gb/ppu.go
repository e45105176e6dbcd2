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

package gb

import (
	"image"
	"image/color"
	"sort"

	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

// Size of the screen in pixels.
const (
	ScreenWidth  = 160
	ScreenHeight = 144
)

// PPU timings in dots.
const (
	DotsPerLine   = 456
	LinesPerFrame = 154
	DotsPerFrame  = DotsPerLine * LinesPerFrame

	oamScanDots = 80
	drawDots    = 172
	hblankDots  = DotsPerLine - oamScanDots - drawDots
)

// PPU modes as reported by the STAT register.
const (
	modeHBlank = 0
	modeVBlank = 1
	modeOAM    = 2
	modeDraw   = 3
)

// event payloads for the PPU handler
const (
	ppuOAMScan = iota
	ppuDraw
	ppuHBlank
	ppuLine
	ppuLCDOff
)

// LCDC bits
const (
	lcdcBGEnable     = 0x01
	lcdcOBJEnable    = 0x02
	lcdcOBJSize      = 0x04
	lcdcBGMap        = 0x08
	lcdcTileData     = 0x10
	lcdcWindowEnable = 0x20
	lcdcWindowMap    = 0x40
	lcdcEnable       = 0x80
)

// the four shades of the original screen
var dmgShades = [4]color.RGBA{
	{R: 0xe0, G: 0xf8, B: 0xd0, A: 0xff},
	{R: 0x88, G: 0xc0, B: 0x70, A: 0xff},
	{R: 0x34, G: 0x68, B: 0x56, A: 0xff},
	{R: 0x08, G: 0x18, B: 0x20, A: 0xff},
}

// PPUState is the serialisable state of the PPU.
type PPUState struct {
	VRAM [2][0x2000]uint8
	OAM  [0xa0]uint8

	LCDC uint8
	STAT uint8
	SCY  uint8
	SCX  uint8
	LY   uint8
	LYC  uint8
	BGP  uint8
	OBP0 uint8
	OBP1 uint8
	WY   uint8
	WX   uint8
	VBK  uint8

	Mode       uint8
	WindowLine int

	// the STAT interrupt line. the interrupt is requested on the rising edge
	StatLine bool

	// colour palette memory
	BGPalette  [64]uint8
	OBJPalette [64]uint8
	BCPS       uint8
	OCPS       uint8

	// OAM is inaccessible until this cycle because of OAM DMA
	OAMBlockedUntil uint64
}

// PPU is the pixel processing unit.
type PPU struct {
	sched *scheduler.Scheduler
	ints  *interrupts.Controller
	cgb   bool

	state PPUState

	frame *image.RGBA

	// called at the start of the vertical blank
	vblank func()

	// called at the start of the horizontal blank of every visible line
	hblank func()
}

func newPPU(sched *scheduler.Scheduler, ints *interrupts.Controller, cgb bool) *PPU {
	ppu := &PPU{
		sched: sched,
		ints:  ints,
		cgb:   cgb,
		frame: image.NewRGBA(image.Rect(0, 0, ScreenWidth, ScreenHeight)),
	}
	sched.Register(evPPU, "ppu", ppu.event)
	return ppu
}

// reset the PPU to the state left by the boot ROM. the first line begins
// immediately.
func (ppu *PPU) reset() {
	ppu.state = PPUState{
		LCDC: 0x91,
		STAT: 0x80,
		BGP:  0xfc,
		OBP0: 0xff,
		OBP1: 0xff,
	}
	for i := range ppu.state.BGPalette {
		ppu.state.BGPalette[i] = 0xff
	}
	ppu.clear()
	ppu.sched.Cancel(evPPU)
	ppu.sched.ScheduleIn(0, evPPU, ppuOAMScan)
}

// clear the frame buffer to the colour of a blank screen
func (ppu *PPU) clear() {
	c := dmgShades[0]
	if ppu.cgb {
		c = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	}
	for i := 0; i < len(ppu.frame.Pix); i += 4 {
		ppu.frame.Pix[i] = c.R
		ppu.frame.Pix[i+1] = c.G
		ppu.frame.Pix[i+2] = c.B
		ppu.frame.Pix[i+3] = c.A
	}
}

func (ppu *PPU) event(payload uint32) {
	switch payload {
	case ppuOAMScan:
		ppu.setMode(modeOAM)
		ppu.sched.ScheduleIn(oamScanDots, evPPU, ppuDraw)

	case ppuDraw:
		ppu.setMode(modeDraw)
		ppu.sched.ScheduleIn(drawDots, evPPU, ppuHBlank)

	case ppuHBlank:
		ppu.renderLine()
		ppu.setMode(modeHBlank)
		if ppu.hblank != nil {
			ppu.hblank()
		}
		ppu.sched.ScheduleIn(hblankDots, evPPU, ppuLine)

	case ppuLine:
		ppu.state.LY++
		switch {
		case ppu.state.LY == ScreenHeight:
			ppu.setMode(modeVBlank)
			ppu.ints.Raise(IntVBlank)
			ppu.sched.ScheduleIn(DotsPerLine, evPPU, ppuLine)
			if ppu.vblank != nil {
				ppu.vblank()
			}
		case ppu.state.LY < LinesPerFrame && ppu.state.LY > ScreenHeight:
			ppu.updateStat()
			ppu.sched.ScheduleIn(DotsPerLine, evPPU, ppuLine)
		default:
			if ppu.state.LY >= LinesPerFrame {
				ppu.state.LY = 0
				ppu.state.WindowLine = 0
			}
			ppu.event(ppuOAMScan)
		}

	case ppuLCDOff:
		// the frame still ends at the normal rate when the screen is off
		ppu.clear()
		ppu.sched.ScheduleIn(DotsPerFrame, evPPU, ppuLCDOff)
		if ppu.vblank != nil {
			ppu.vblank()
		}
	}
}

func (ppu *PPU) setMode(mode uint8) {
	ppu.state.Mode = mode
	ppu.updateStat()
}

// updateStat recalculates the STAT interrupt line and requests the interrupt
// on a rising edge.
func (ppu *PPU) updateStat() {
	s := ppu.state.STAT
	line := false
	if ppu.state.LCDC&lcdcEnable == lcdcEnable {
		line = (s&0x40 == 0x40 && ppu.state.LY == ppu.state.LYC) ||
			(s&0x08 == 0x08 && ppu.state.Mode == modeHBlank) ||
			(s&0x10 == 0x10 && ppu.state.Mode == modeVBlank) ||
			(s&0x20 == 0x20 && ppu.state.Mode == modeOAM)
	}
	if line && !ppu.state.StatLine {
		ppu.ints.Raise(IntSTAT)
	}
	ppu.state.StatLine = line
}

func (ppu *PPU) setLCDC(v uint8) {
	was := ppu.state.LCDC & lcdcEnable
	ppu.state.LCDC = v

	switch {
	case was != 0 && v&lcdcEnable == 0:
		ppu.sched.Cancel(evPPU)
		ppu.state.LY = 0
		ppu.state.WindowLine = 0
		ppu.state.Mode = modeHBlank
		ppu.state.StatLine = false
		ppu.sched.ScheduleIn(DotsPerFrame, evPPU, ppuLCDOff)
	case was == 0 && v&lcdcEnable != 0:
		ppu.sched.Cancel(evPPU)
		ppu.state.LY = 0
		ppu.state.WindowLine = 0
		ppu.sched.ScheduleIn(0, evPPU, ppuOAMScan)
	}
}

func (ppu *PPU) readRegister(addr uint32) uint8 {
	switch addr {
	case 0xff40:
		return ppu.state.LCDC
	case 0xff41:
		v := 0x80 | ppu.state.STAT&0x78 | ppu.state.Mode
		if ppu.state.LY == ppu.state.LYC {
			v |= 0x04
		}
		return v
	case 0xff42:
		return ppu.state.SCY
	case 0xff43:
		return ppu.state.SCX
	case 0xff44:
		return ppu.state.LY
	case 0xff45:
		return ppu.state.LYC
	case 0xff47:
		return ppu.state.BGP
	case 0xff48:
		return ppu.state.OBP0
	case 0xff49:
		return ppu.state.OBP1
	case 0xff4a:
		return ppu.state.WY
	case 0xff4b:
		return ppu.state.WX
	}

	if !ppu.cgb {
		return 0xff
	}

	switch addr {
	case 0xff4f:
		return 0xfe | ppu.state.VBK
	case 0xff68:
		return ppu.state.BCPS | 0x40
	case 0xff69:
		return ppu.state.BGPalette[ppu.state.BCPS&0x3f]
	case 0xff6a:
		return ppu.state.OCPS | 0x40
	case 0xff6b:
		return ppu.state.OBJPalette[ppu.state.OCPS&0x3f]
	}
	return 0xff
}

func (ppu *PPU) writeRegister(addr uint32, v uint8) {
	switch addr {
	case 0xff40:
		ppu.setLCDC(v)
	case 0xff41:
		ppu.state.STAT = v & 0x78
		ppu.updateStat()
	case 0xff42:
		ppu.state.SCY = v
	case 0xff43:
		ppu.state.SCX = v
	case 0xff44:
		// LY is read-only
	case 0xff45:
		ppu.state.LYC = v
		ppu.updateStat()
	case 0xff47:
		ppu.state.BGP = v
	case 0xff48:
		ppu.state.OBP0 = v
	case 0xff49:
		ppu.state.OBP1 = v
	case 0xff4a:
		ppu.state.WY = v
	case 0xff4b:
		ppu.state.WX = v
	}

	if !ppu.cgb {
		return
	}

	switch addr {
	case 0xff4f:
		ppu.state.VBK = v & 0x01
	case 0xff68:
		ppu.state.BCPS = v & 0xbf
	case 0xff69:
		ppu.state.BGPalette[ppu.state.BCPS&0x3f] = v
		if ppu.state.BCPS&0x80 == 0x80 {
			ppu.state.BCPS = 0x80 | (ppu.state.BCPS+1)&0x3f
		}
	case 0xff6a:
		ppu.state.OCPS = v & 0xbf
	case 0xff6b:
		ppu.state.OBJPalette[ppu.state.OCPS&0x3f] = v
		if ppu.state.OCPS&0x80 == 0x80 {
			ppu.state.OCPS = 0x80 | (ppu.state.OCPS+1)&0x3f
		}
	}
}

// vram is the bus device for video RAM.
type vram struct {
	ppu *PPU
}

func (m vram) Read(addr uint32, width bus.Width) uint32 {
	return bus.ReadLittleEndian(m.ppu.state.VRAM[m.ppu.state.VBK][:], addr-0x8000, width)
}

func (m vram) Write(addr uint32, value uint32, width bus.Width) {
	bus.WriteLittleEndian(m.ppu.state.VRAM[m.ppu.state.VBK][:], addr-0x8000, value, width)
}

// oam is the bus device for object attribute memory.
type oam struct {
	ppu *PPU
}

func (m oam) blocked() bool {
	return m.ppu.sched.Now() < m.ppu.state.OAMBlockedUntil
}

func (m oam) Read(addr uint32, width bus.Width) uint32 {
	if m.blocked() {
		return 0xff
	}
	return uint32(m.ppu.state.OAM[addr-0xfe00])
}

func (m oam) Write(addr uint32, value uint32, width bus.Width) {
	if m.blocked() {
		return
	}
	m.ppu.state.OAM[addr-0xfe00] = uint8(value)
}

func (m oam) Peek(addr uint32) uint8 {
	return m.ppu.state.OAM[addr-0xfe00]
}

// tileRow returns the two bytes of the row of pixels of a tile.
func (ppu *PPU) tileRow(bank int, tile uint8, row int, signed bool) (uint8, uint8) {
	var a int
	if signed {
		a = 0x1000 + int(int8(tile))*16
	} else {
		a = int(tile) * 16
	}
	a += row * 2
	return ppu.state.VRAM[bank][a], ppu.state.VRAM[bank][a+1]
}

func pixel(lo, hi uint8, bit int) uint8 {
	return (hi>>bit)&0x01<<1 | (lo>>bit)&0x01
}

func (ppu *PPU) cgbColour(palette []uint8, n int) color.RGBA {
	c := uint16(palette[n*2]) | uint16(palette[n*2+1])<<8
	r := uint8(c & 0x1f)
	g := uint8((c >> 5) & 0x1f)
	b := uint8((c >> 10) & 0x1f)
	return color.RGBA{R: r<<3 | r>>2, G: g<<3 | g>>2, B: b<<3 | b>>2, A: 0xff}
}

func (ppu *PPU) dmgColour(palette uint8, index uint8) color.RGBA {
	return dmgShades[(palette>>(index*2))&0x03]
}

type sprite struct {
	oam  int
	x    int
	y    int
	tile uint8
	attr uint8
}

// renderLine draws the current line into the frame buffer.
func (ppu *PPU) renderLine() {
	ly := int(ppu.state.LY)
	if ly >= ScreenHeight {
		return
	}

	lcdc := ppu.state.LCDC
	signed := lcdc&lcdcTileData == 0

	var bgIndex [ScreenWidth]uint8
	var bgAttr [ScreenWidth]uint8
	var bgColour [ScreenWidth]color.RGBA

	bgOn := ppu.cgb || lcdc&lcdcBGEnable == lcdcBGEnable

	fetch := func(mapBase int, x int, y int) (uint8, uint8) {
		m := mapBase + (y/8)*32 + x/8
		tile := ppu.state.VRAM[0][m]
		var attr uint8
		if ppu.cgb {
			attr = ppu.state.VRAM[1][m]
		}
		row := y % 8
		if attr&0x40 == 0x40 {
			row = 7 - row
		}
		bit := 7 - x%8
		if attr&0x20 == 0x20 {
			bit = x % 8
		}
		lo, hi := ppu.tileRow(int(attr>>3)&0x01, tile, row, signed)
		return pixel(lo, hi, bit), attr
	}

	colour := func(index uint8, attr uint8) color.RGBA {
		if ppu.cgb {
			return ppu.cgbColour(ppu.state.BGPalette[:], int(attr&0x07)*4+int(index))
		}
		return ppu.dmgColour(ppu.state.BGP, index)
	}

	if bgOn {
		mapBase := 0x1800
		if lcdc&lcdcBGMap == lcdcBGMap {
			mapBase = 0x1c00
		}
		y := (ly + int(ppu.state.SCY)) & 0xff
		for x := 0; x < ScreenWidth; x++ {
			bgIndex[x], bgAttr[x] = fetch(mapBase, (x+int(ppu.state.SCX))&0xff, y)
			bgColour[x] = colour(bgIndex[x], bgAttr[x])
		}

		wx := int(ppu.state.WX) - 7
		if lcdc&lcdcWindowEnable == lcdcWindowEnable && ly >= int(ppu.state.WY) && wx < ScreenWidth {
			mapBase := 0x1800
			if lcdc&lcdcWindowMap == lcdcWindowMap {
				mapBase = 0x1c00
			}
			for x := wx; x < ScreenWidth; x++ {
				if x < 0 {
					continue
				}
				bgIndex[x], bgAttr[x] = fetch(mapBase, x-wx, ppu.state.WindowLine)
				bgColour[x] = colour(bgIndex[x], bgAttr[x])
			}
			ppu.state.WindowLine++
		}
	} else {
		for x := range bgColour {
			bgColour[x] = dmgShades[0]
		}
	}

	if lcdc&lcdcOBJEnable == lcdcOBJEnable {
		ppu.renderSprites(ly, &bgIndex, &bgAttr, &bgColour)
	}

	o := ly * ppu.frame.Stride
	for x := 0; x < ScreenWidth; x++ {
		c := bgColour[x]
		ppu.frame.Pix[o] = c.R
		ppu.frame.Pix[o+1] = c.G
		ppu.frame.Pix[o+2] = c.B
		ppu.frame.Pix[o+3] = c.A
		o += 4
	}
}

func (ppu *PPU) renderSprites(ly int, bgIndex *[ScreenWidth]uint8, bgAttr *[ScreenWidth]uint8, bgColour *[ScreenWidth]color.RGBA) {
	height := 8
	if ppu.state.LCDC&lcdcOBJSize == lcdcOBJSize {
		height = 16
	}

	// no more than ten sprites on a line, selected in OAM order
	sprites := make([]sprite, 0, 10)
	for i := 0; i < 40 && len(sprites) < 10; i++ {
		y := int(ppu.state.OAM[i*4]) - 16
		if ly < y || ly >= y+height {
			continue
		}
		sprites = append(sprites, sprite{
			oam:  i,
			y:    y,
			x:    int(ppu.state.OAM[i*4+1]) - 8,
			tile: ppu.state.OAM[i*4+2],
			attr: ppu.state.OAM[i*4+3],
		})
	}

	// on the DMG the sprite with the lowest x coordinate has priority
	if !ppu.cgb {
		sort.SliceStable(sprites, func(i, j int) bool {
			return sprites[i].x < sprites[j].x
		})
	}

	var drawn [ScreenWidth]bool
	for _, s := range sprites {
		row := ly - s.y
		if s.attr&0x40 == 0x40 {
			row = height - 1 - row
		}
		tile := s.tile
		if height == 16 {
			tile &= 0xfe
		}
		bank := 0
		if ppu.cgb {
			bank = int(s.attr>>3) & 0x01
		}
		lo, hi := ppu.tileRow(bank, tile, row, false)

		for i := 0; i < 8; i++ {
			x := s.x + i
			if x < 0 || x >= ScreenWidth || drawn[x] {
				continue
			}
			bit := 7 - i
			if s.attr&0x20 == 0x20 {
				bit = i
			}
			idx := pixel(lo, hi, bit)
			if idx == 0 {
				continue
			}

			// a higher priority sprite hides lower priority sprites even
			// when it is itself behind the background
			drawn[x] = true

			if ppu.cgb {
				if ppu.state.LCDC&lcdcBGEnable == lcdcBGEnable && bgIndex[x] != 0 &&
					(bgAttr[x]&0x80 == 0x80 || s.attr&0x80 == 0x80) {
					continue
				}
				bgColour[x] = ppu.cgbColour(ppu.state.OBJPalette[:], int(s.attr&0x07)*4+int(idx))
			} else {
				if s.attr&0x80 == 0x80 && bgIndex[x] != 0 {
					continue
				}
				pal := ppu.state.OBP0
				if s.attr&0x10 == 0x10 {
					pal = ppu.state.OBP1
				}
				bgColour[x] = ppu.dmgColour(pal, idx)
			}
		}
	}
}
