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
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

// DMA start timing
const (
	dmaImmediate = iota
	dmaVBlank
	dmaHBlank
	dmaSpecial
)

// DMA control bits
const (
	dmaRepeat = 0x0200
	dmaWord   = 0x0400
	dmaIRQ    = 0x4000
	dmaEnable = 0x8000
)

// address masks for each channel
var (
	dmaSourceMask = [4]uint32{0x07ffffff, 0x0fffffff, 0x0fffffff, 0x0fffffff}
	dmaDestMask   = [4]uint32{0x07ffffff, 0x07ffffff, 0x07ffffff, 0x0fffffff}
)

// DMAChannel is the serialisable state of a DMA channel. The registers
// written by software are held in the IO state. These are the internal
// registers latched when the channel is enabled.
type DMAChannel struct {
	Source    uint32
	Dest      uint32
	Remaining uint32
}

// DMA is the four channel DMA controller. Transfers happen all at once and
// the bus is then locked for the duration the transfer would have taken.
type DMA struct {
	bus   *bus.Bus
	ints  *interrupts.Controller
	sched *scheduler.Scheduler
	regs  *[0x400]uint8

	// called at the start of a halfword transfer on the last channel. the
	// EEPROM uses the length of the transfer to determine its size
	eeprom func(dest uint32, count uint32)

	state [4]DMAChannel
}

func newDMA(mem *bus.Bus, ints *interrupts.Controller, sched *scheduler.Scheduler, regs *[0x400]uint8) *DMA {
	dma := &DMA{
		bus:   mem,
		ints:  ints,
		sched: sched,
		regs:  regs,
	}
	sched.Register(evDMA, "dma", dma.complete)
	return dma
}

// complete is the scheduler handler for the end of a transfer. The payload is
// the channel number.
func (dma *DMA) complete(i uint32) {
	dma.ints.Raise(IntDMA0 + int(i))
}

func (dma *DMA) reset() {
	dma.state = [4]DMAChannel{}
}

func (dma *DMA) reg16(o int) uint32 {
	return uint32(dma.regs[o]) | uint32(dma.regs[o+1])<<8
}

func (dma *DMA) reg32(o int) uint32 {
	return dma.reg16(o) | dma.reg16(o+2)<<16
}

func (dma *DMA) base(i int) int {
	return regDMA + i*12
}

func (dma *DMA) controlReg(i int) uint16 {
	return uint16(dma.reg16(dma.base(i) + 10))
}

func (dma *DMA) count(i int) uint32 {
	c := dma.reg16(dma.base(i) + 8)
	if i < 3 {
		c &= 0x3fff
		if c == 0 {
			return 0x4000
		}
		return c
	}
	if c == 0 {
		return 0x10000
	}
	return c
}

// control is called when the control register of a channel is written.
func (dma *DMA) control(i int, old uint16, v uint16) {
	if old&dmaEnable == 0 && v&dmaEnable == dmaEnable {
		b := dma.base(i)
		ch := &dma.state[i]
		ch.Source = dma.reg32(b) & dmaSourceMask[i]
		ch.Dest = dma.reg32(b+4) & dmaDestMask[i]
		ch.Remaining = dma.count(i)

		if (v>>12)&0x03 == dmaImmediate {
			dma.run(i)
		}
	}
}

// vblank starts the channels waiting for the vertical blank.
func (dma *DMA) vblank() {
	dma.start(dmaVBlank)
}

// hblank starts the channels waiting for the horizontal blank.
func (dma *DMA) hblank() {
	dma.start(dmaHBlank)
}

func (dma *DMA) start(timing uint16) {
	for i := 0; i < 4; i++ {
		c := dma.controlReg(i)
		if c&dmaEnable == dmaEnable && (c>>12)&0x03 == timing {
			dma.run(i)
		}
	}
}

// fifo is called when a sound FIFO needs refilling. channels 1 and 2 are
// the only channels that can serve the FIFOs.
func (dma *DMA) fifo(i int) {
	c := dma.controlReg(i)
	if c&dmaEnable == dmaEnable && (c>>12)&0x03 == dmaSpecial {
		dma.run(i)
	}
}

func (dma *DMA) run(i int) {
	ch := &dma.state[i]
	c := dma.controlReg(i)

	width := bus.HalfWord
	step := uint32(2)
	if c&dmaWord == dmaWord {
		width = bus.Word
		step = 4
	}
	count := ch.Remaining

	// sound FIFO transfers are always four words to a fixed address
	fifo := (c>>12)&0x03 == dmaSpecial && (i == 1 || i == 2)
	if fifo {
		width = bus.Word
		step = 4
		count = 4
	}

	destCtl := (c >> 5) & 0x03
	srcCtl := (c >> 7) & 0x03

	if i == 3 && width == bus.HalfWord && dma.eeprom != nil && ch.Dest&0x0f000000 == 0x0d000000 {
		dma.eeprom(ch.Dest, count)
	}

	cycles := 2
	for n := uint32(0); n < count; n++ {
		v := dma.bus.Read(ch.Source, width)
		dma.bus.Write(ch.Dest, v, width)
		cycles += dma.bus.Cycles(ch.Source, width, n > 0) + dma.bus.Cycles(ch.Dest, width, n > 0)

		switch srcCtl {
		case 0:
			ch.Source += step
		case 1:
			ch.Source -= step
		}
		if !fifo {
			switch destCtl {
			case 0, 3:
				ch.Dest += step
			case 1:
				ch.Dest -= step
			}
		}
	}

	// the CPU is stalled until the transfer would have completed
	now := dma.sched.Now()
	until := dma.bus.LockedUntil()
	if until < now {
		until = now
	}
	until += uint64(cycles)
	dma.bus.Lock(until)

	// the interrupt is raised when the transfer completes
	if c&dmaIRQ == dmaIRQ {
		dma.sched.CancelMatching(evDMA, uint32(i))
		dma.sched.Schedule(until, evDMA, uint32(i))
	}

	if c&dmaRepeat == dmaRepeat && (c>>12)&0x03 != dmaImmediate {
		ch.Remaining = dma.count(i)
		if destCtl == 3 {
			ch.Dest = dma.reg32(dma.base(i)+4) & dmaDestMask[i]
		}
		return
	}

	c &^= dmaEnable
	o := dma.base(i) + 10
	dma.regs[o] = uint8(c)
	dma.regs[o+1] = uint8(c >> 8)
}
