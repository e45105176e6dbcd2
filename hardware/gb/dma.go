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
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

const (
	// OAM DMA copies one byte per CPU cycle
	oamDMADots = 640

	// time taken to copy one block of 16 bytes by HDMA. the same in both
	// speed modes
	hdmaBlockDots = 32
)

// DMAState is the serialisable state of the DMA controllers.
type DMAState struct {
	OAMSource uint8

	HDMASource uint16
	HDMADest   uint16

	// an HBlank transfer is in progress
	HDMAActive bool

	// blocks remaining in the transfer. when the transfer is not active this
	// is the number of blocks remaining when the transfer was stopped
	HDMARemaining int
}

// DMA is the OAM DMA controller and, on the CGB, the VRAM DMA controller.
type DMA struct {
	sched *scheduler.Scheduler
	bus   *bus.Bus
	ppu   *PPU

	// returns true if the CPU is in double speed mode
	double func() bool

	state DMAState
}

func newDMA(sched *scheduler.Scheduler, mem *bus.Bus, ppu *PPU, double func() bool) *DMA {
	return &DMA{
		sched:  sched,
		bus:    mem,
		ppu:    ppu,
		double: double,
	}
}

func (dma *DMA) reset() {
	dma.state = DMAState{OAMSource: 0xff}
}

// startOAM copies 160 bytes from the source page to OAM. OAM cannot be
// accessed by the CPU until the transfer would have completed.
func (dma *DMA) startOAM(v uint8) {
	dma.state.OAMSource = v
	src := uint32(v) << 8
	if src >= 0xe000 {
		src -= 0x2000
	}
	for i := uint32(0); i < 0xa0; i++ {
		dma.ppu.state.OAM[i] = dma.bus.Peek(src + i)
	}

	d := uint64(oamDMADots)
	if dma.double() {
		d /= 2
	}
	dma.ppu.state.OAMBlockedUntil = dma.sched.Now() + d
}

// copy one block of 16 bytes to VRAM and lock the bus for the duration of the
// copy
func (dma *DMA) block() {
	bank := dma.ppu.state.VBK
	for i := 0; i < 16; i++ {
		v := dma.bus.Peek(uint32(dma.state.HDMASource))
		dma.ppu.state.VRAM[bank][dma.state.HDMADest&0x1fff] = v
		dma.state.HDMASource++
		dma.state.HDMADest++
	}
	dma.state.HDMARemaining--
	dma.bus.Lock(dma.sched.Now() + hdmaBlockDots)
}

// hblank is called at the start of every horizontal blank.
func (dma *DMA) hblank() {
	if !dma.state.HDMAActive {
		return
	}
	dma.block()
	if dma.state.HDMARemaining == 0 {
		dma.state.HDMAActive = false
	}
}

func (dma *DMA) read(addr uint32) uint8 {
	switch addr {
	case 0xff46:
		return dma.state.OAMSource
	case 0xff55:
		if dma.state.HDMARemaining == 0 {
			return 0xff
		}
		v := uint8(dma.state.HDMARemaining-1) & 0x7f
		if !dma.state.HDMAActive {
			v |= 0x80
		}
		return v
	}
	return 0xff
}

func (dma *DMA) write(addr uint32, v uint8) {
	switch addr {
	case 0xff46:
		dma.startOAM(v)
	case 0xff51:
		dma.state.HDMASource = dma.state.HDMASource&0x00ff | uint16(v)<<8
	case 0xff52:
		dma.state.HDMASource = dma.state.HDMASource&0xff00 | uint16(v&0xf0)
	case 0xff53:
		dma.state.HDMADest = dma.state.HDMADest&0x00ff | uint16(v&0x1f)<<8
	case 0xff54:
		dma.state.HDMADest = dma.state.HDMADest&0xff00 | uint16(v&0xf0)
	case 0xff55:
		if dma.state.HDMAActive && v&0x80 == 0 {
			// stop the HBlank transfer
			dma.state.HDMAActive = false
			return
		}
		dma.state.HDMARemaining = int(v&0x7f) + 1
		if v&0x80 == 0x80 {
			dma.state.HDMAActive = true
			return
		}

		// general purpose transfer happens immediately. the CPU is stopped
		// until it completes
		for dma.state.HDMARemaining > 0 {
			dma.block()
		}
		dma.bus.Lock(dma.sched.Now() + uint64(int(v&0x7f)+1)*hdmaBlockDots)
	}
}
