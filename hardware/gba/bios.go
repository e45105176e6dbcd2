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
	"encoding/binary"
	"math"

	"github.com/jetsetilly/gopherboy/hardware/cpu/arm7"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/logger"
)

// the built-in BIOS contains only the exception vectors and the IRQ
// dispatcher. SWI calls are handled by the swi() function.
var hleCode = []struct {
	addr   uint32
	opcode uint32
}{
	{0x0000, 0xe3a0f302}, // mov pc, #0x08000000
	{0x0004, 0xe1b0f00e}, // movs pc, lr
	{0x0008, 0xe1b0f00e}, // movs pc, lr
	{0x000c, 0xe25ef004}, // subs pc, lr, #4
	{0x0010, 0xe25ef004}, // subs pc, lr, #4
	{0x0014, 0xe25ef004}, // subs pc, lr, #4
	{0x0018, 0xea000042}, // b 0x128
	{0x001c, 0xe25ef004}, // subs pc, lr, #4

	// IRQ dispatch. the handler address is at 0x03fffffc, which mirrors
	// 0x03007ffc
	{0x0128, 0xe92d500f}, // stmfd sp!, {r0-r3, r12, lr}
	{0x012c, 0xe3a00301}, // mov r0, #0x04000000
	{0x0130, 0xe28fe000}, // add lr, pc, #0
	{0x0134, 0xe510f004}, // ldr pc, [r0, #-4]
	{0x0138, 0xe8bd500f}, // ldmfd sp!, {r0-r3, r12, lr}
	{0x013c, 0xe25ef004}, // subs pc, lr, #4
}

func hleBIOS() []uint8 {
	d := make([]uint8, biosSize)
	for _, c := range hleCode {
		binary.LittleEndian.PutUint32(d[c.addr:], c.opcode)
	}
	return d
}

// stack pointers as left by the BIOS
var bootStacks = map[arm7.Mode]uint32{
	arm7.ModeSupervisor: 0x03007fe0,
	arm7.ModeIRQ:        0x03007fa0,
	arm7.ModeSystem:     0x03007f00,
}

// address of the BIOS interrupt flags at the top of IWRAM. interrupt handlers
// set bits here for IntrWait()
const biosIF = 0x03007ff8

// SWI functions
const (
	swiSoftReset        = 0x00
	swiRegisterRamReset = 0x01
	swiHalt             = 0x02
	swiStop             = 0x03
	swiIntrWait         = 0x04
	swiVBlankIntrWait   = 0x05
	swiDiv              = 0x06
	swiDivArm           = 0x07
	swiSqrt             = 0x08
	swiArcTan           = 0x09
	swiArcTan2          = 0x0a
	swiCpuSet           = 0x0b
	swiCpuFastSet       = 0x0c
)

// softReset starts execution at the entry point of the cartridge, or of
// EWRAM if the flag at 0x03007ffa is set. Returns the entry point.
func (sys *System) softReset() uint32 {
	entry := uint32(0x08000000)
	if sys.iwram.Data[0x7ffa] != 0 {
		entry = 0x02000000
	}
	for i := 0x7e00; i < 0x8000; i++ {
		sys.iwram.Data[i] = 0
	}
	sys.io.IntrWait = false
	sys.CPU.Boot(entry, arm7.ModeSystem, bootStacks)
	return entry
}

// swi is the SWI hook for the CPU. Returns true if the function has been
// handled.
func (sys *System) swi(function uint32) bool {
	r := sys.CPU.Reg

	switch function {
	case swiSoftReset:
		sys.CPU.Branch(sys.softReset())

	case swiRegisterRamReset:
		sys.registerRAMReset(r(0))

	case swiHalt, swiStop:
		sys.CPU.Halt()

	case swiIntrWait:
		sys.intrWait(r(0) != 0, uint16(r(1)))

	case swiVBlankIntrWait:
		sys.intrWait(true, 1<<IntVBlank)

	case swiDiv:
		sys.div(int32(r(0)), int32(r(1)))

	case swiDivArm:
		sys.div(int32(r(1)), int32(r(0)))

	case swiSqrt:
		sys.CPU.SetReg(0, uint32(math.Sqrt(float64(r(0)))))
		sys.Tick(20)

	case swiArcTan:
		x := float64(int16(r(0))) / 0x4000
		a := math.Atan(x) / (math.Pi / 2) * 0x4000
		sys.CPU.SetReg(0, uint32(int32(a))&0xffff)
		sys.Tick(30)

	case swiArcTan2:
		x := float64(int16(r(0)))
		y := float64(int16(r(1)))
		a := math.Atan2(y, x)
		if a < 0 {
			a += 2 * math.Pi
		}
		sys.CPU.SetReg(0, uint32(a/(2*math.Pi)*0x10000)&0xffff)
		sys.Tick(40)

	case swiCpuSet:
		sys.cpuSet(r(0), r(1), r(2), false)

	case swiCpuFastSet:
		sys.cpuSet(r(0), r(1), r(2), true)

	default:
		logger.Logf(sys.perm, "gba", "unsupported BIOS function %#02x", function)
	}

	return true
}

// intrWait halts the CPU until one of the interrupts in the mask has been
// flagged by an interrupt handler. The SWI is executed again after every
// interrupt until the condition is met.
func (sys *System) intrWait(discard bool, mask uint16) {
	sys.ints.SetMaster(true)

	flags := uint16(sys.bus.Read(biosIF, bus.HalfWord))

	// the old flags are only discarded on the first execution of the SWI
	if discard && !sys.io.IntrWait {
		flags &^= mask
		sys.bus.Write(biosIF, uint32(flags), bus.HalfWord)
	}

	if flags&mask != 0 {
		sys.bus.Write(biosIF, uint32(flags&^mask), bus.HalfWord)
		sys.io.IntrWait = false
		return
	}

	sys.io.IntrWait = true
	sys.CPU.Branch(sys.CPU.InstructionAddress())
	sys.CPU.Halt()
}

func (sys *System) div(num int32, den int32) {
	if den == 0 {
		logger.Log(sys.perm, "gba", "BIOS division by zero")
		return
	}

	// the only overflowing division. the result matches the BIOS
	if num == math.MinInt32 && den == -1 {
		sys.CPU.SetReg(0, uint32(num))
		sys.CPU.SetReg(1, 0)
		sys.CPU.SetReg(3, uint32(num))
		return
	}

	q := num / den
	sys.CPU.SetReg(0, uint32(q))
	sys.CPU.SetReg(1, uint32(num%den))
	if q < 0 {
		q = -q
	}
	sys.CPU.SetReg(3, uint32(q))
	sys.Tick(50)
}

func (sys *System) registerRAMReset(flags uint32) {
	if flags&0x01 == 0x01 {
		sys.ewram.Restore(make([]uint8, len(sys.ewram.Data)))
	}
	if flags&0x02 == 0x02 {
		// the top of IWRAM is used by the BIOS and is never cleared
		for i := 0; i < 0x7e00; i++ {
			sys.iwram.Data[i] = 0
		}
	}
	if flags&0x04 == 0x04 {
		sys.PPU.palette.data = [0x400]uint8{}
	}
	if flags&0x08 == 0x08 {
		sys.PPU.vram.data = [0x18000]uint8{}
	}
	if flags&0x10 == 0x10 {
		sys.PPU.oam.data = [0x400]uint8{}
	}
	if flags&0xe0 != 0 {
		logger.Logf(sys.perm, "gba", "register reset flags %#02x are not supported", flags&0xe0)
	}
	sys.CPU.JIT().InvalidateAll()
}

// cpuSet copies or fills memory. The fast variant always transfers words in
// blocks of eight.
func (sys *System) cpuSet(src uint32, dst uint32, control uint32, fast bool) {
	count := control & 0x1fffff
	fill := control&(1<<24) != 0

	width := bus.HalfWord
	step := uint32(2)
	if fast || control&(1<<26) != 0 {
		width = bus.Word
		step = 4
	}
	if fast {
		count = (count + 7) &^ 7
	}

	src &^= step - 1
	dst &^= step - 1

	cycles := 0
	var v uint32
	for i := uint32(0); i < count; i++ {
		if !fill || i == 0 {
			v = sys.bus.Read(src, width)
			cycles += sys.bus.Cycles(src, width, i > 0)
		}
		sys.bus.Write(dst, v, width)
		cycles += sys.bus.Cycles(dst, width, i > 0)
		if !fill {
			src += step
		}
		dst += step
	}
	sys.Tick(cycles)
}
