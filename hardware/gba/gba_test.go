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
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"image/color"
	"testing"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/cpu/arm7"
	"github.com/jetsetilly/gopherboy/hardware/input"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/test"
)

// newROM creates a cartridge image with a valid header. The first instruction
// branches to the program at offset 0xc0.
func newROM(program ...uint32) []uint8 {
	data := make([]uint8, 0x1000)
	binary.LittleEndian.PutUint32(data, 0xea00002e)
	copy(data[headerTitle:], "TEST")
	copy(data[headerCode:], "ATST")
	data[headerFixed] = 0x96
	data[headerComplement] = complement(data)
	put(data, 0xc0, program...)
	return data
}

func put(data []uint8, offset int, program ...uint32) {
	for i, op := range program {
		binary.LittleEndian.PutUint32(data[offset+i*4:], op)
	}
}

func newTestSystem(t *testing.T, data []uint8) *System {
	t.Helper()
	sys, err := NewSystem(data, nil, nil)
	test.DemandSuccess(t, err)
	return sys
}

func step(t *testing.T, sys *System) {
	t.Helper()
	_, err := sys.CPU.Step()
	test.DemandSuccess(t, err)
}

func runTo(t *testing.T, sys *System, addr uint32) {
	t.Helper()
	for i := 0; i < 1000; i++ {
		if sys.CPU.PC() == addr {
			return
		}
		step(t, sys)
	}
	t.Fatalf("PC did not reach %08x", addr)
}

func runFrame(t *testing.T, sys *System) {
	t.Helper()
	sys.BeginFrame()
	for !sys.FrameComplete() {
		step(t, sys)
	}
}

const loop = 0xeafffffe // b .

// increments the word at the start of IWRAM forever
var counter = []uint32{
	0xe3a00403, // mov r0, #0x03000000
	0xe5901000, // ldr r1, [r0]
	0xe2811001, // add r1, r1, #1
	0xe5801000, // str r1, [r0]
	0xeafffffb, // b 0x080000c4
}

func TestHeader(t *testing.T) {
	data := newROM(loop)
	h, err := ParseHeader(data)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, h.Title, "TEST")
	test.ExpectEquality(t, h.Code, "ATST")
	test.ExpectSuccess(t, IsROM(data))

	data[headerComplement]++
	_, err = ParseHeader(data)
	test.ExpectSuccess(t, curated.Is(err, CartridgeError))

	_, err = ParseHeader(data[:0x80])
	test.ExpectFailure(t, err)

	_, err = NewSystem(newROM(loop), make([]uint8, 100), nil)
	test.ExpectSuccess(t, curated.Is(err, BIOSError))
}

func TestWaitStates(t *testing.T) {
	data := newROM(loop)
	copy(data[0x400:], "SRAM_V113")
	data[headerComplement] = complement(data)
	sys := newTestSystem(t, data)

	test.ExpectEquality(t, sys.bus.Cycles(0x08000000, bus.HalfWord, false), 5)
	test.ExpectEquality(t, sys.bus.Cycles(0x08000000, bus.HalfWord, true), 3)
	test.ExpectEquality(t, sys.bus.Cycles(0x08000000, bus.Word, false), 8)
	test.ExpectEquality(t, sys.bus.Cycles(0x02000000, bus.Word, false), 6)
	test.ExpectEquality(t, sys.bus.Cycles(0x0e000000, bus.Byte, false), 5)

	sys.bus.Write(0x04000204, 0x4317, bus.HalfWord)
	test.ExpectEquality(t, sys.bus.Cycles(0x08000000, bus.HalfWord, false), 4)
	test.ExpectEquality(t, sys.bus.Cycles(0x08000000, bus.HalfWord, true), 2)
	test.ExpectEquality(t, sys.bus.Cycles(0x0e000000, bus.Byte, false), 9)
	test.ExpectEquality(t, sys.bus.Read(0x04000204, bus.HalfWord), uint32(0x4317))
}

func TestPersistentMemory(t *testing.T) {
	data := newROM(loop)
	copy(data[0x400:], "SRAM_V113")
	data[headerComplement] = complement(data)
	sys := newTestSystem(t, data)
	test.ExpectEquality(t, sys.Cart.SaveType, "SRAM")

	sys.bus.Write(0x0e000010, 0x42, bus.Byte)
	test.ExpectEquality(t, sys.bus.Read(0x0e000010, bus.Byte), uint32(0x42))

	// wider reads repeat the byte
	test.ExpectEquality(t, sys.bus.Read(0x0e000010, bus.Word), uint32(0x42424242))

	p := sys.PersistentMemory()
	test.DemandEquality(t, len(p), 0x8000)
	test.ExpectEquality(t, p[0x10], uint8(0x42))

	p[0x20] = 0x99
	test.ExpectSuccess(t, sys.LoadPersistentMemory(p))
	test.ExpectEquality(t, sys.bus.Read(0x0e000020, bus.Byte), uint32(0x99))

	err := sys.LoadPersistentMemory(p[:10])
	test.ExpectSuccess(t, curated.Is(err, PersistentMemoryError))

	// a cartridge without save memory
	sys = newTestSystem(t, newROM(loop))
	test.ExpectEquality(t, len(sys.PersistentMemory()), 0)
	test.ExpectFailure(t, sys.LoadPersistentMemory(p))
}

func TestFlash(t *testing.T) {
	data := newROM(loop)
	copy(data[0x400:], "FLASH1M_V103")
	data[headerComplement] = complement(data)
	sys := newTestSystem(t, data)
	test.ExpectEquality(t, sys.Cart.SaveType, "FLASH128")
	test.DemandEquality(t, len(sys.PersistentMemory()), 0x20000)

	read := func(addr uint32) uint32 {
		return sys.bus.Read(0x0e000000+addr, bus.Byte)
	}
	write := func(addr uint32, v uint32) {
		sys.bus.Write(0x0e000000+addr, v, bus.Byte)
	}
	command := func(v uint32) {
		write(0x5555, 0xaa)
		write(0x2aaa, 0x55)
		write(0x5555, v)
	}

	// erased flash reads as 0xff
	test.ExpectEquality(t, read(0x10), uint32(0xff))

	command(0x90)
	test.ExpectEquality(t, read(0), uint32(0xc2))
	test.ExpectEquality(t, read(1), uint32(0x09))
	command(0xf0)
	test.ExpectEquality(t, read(0), uint32(0xff))

	// bytes are only written after the write command
	write(0x10, 0x42)
	test.ExpectEquality(t, read(0x10), uint32(0xff))
	command(0xa0)
	write(0x10, 0x42)
	test.ExpectEquality(t, read(0x10), uint32(0x42))
	test.ExpectEquality(t, sys.bus.Read(0x0e000010, bus.Word), uint32(0x42424242))

	// second bank
	command(0xb0)
	write(0, 1)
	test.ExpectEquality(t, read(0x10), uint32(0xff))
	command(0xa0)
	write(0x10, 0x24)
	test.ExpectEquality(t, sys.PersistentMemory()[0x10010], uint8(0x24))
	command(0xb0)
	write(0, 0)
	test.ExpectEquality(t, read(0x10), uint32(0x42))

	// sector erase leaves the other sectors alone
	command(0xa0)
	write(0x1000, 0x77)
	command(0x80)
	write(0x5555, 0xaa)
	write(0x2aaa, 0x55)
	write(0x0000, 0x30)
	test.ExpectEquality(t, read(0x10), uint32(0xff))
	test.ExpectEquality(t, read(0x1000), uint32(0x77))

	// chip erase
	command(0x80)
	command(0x10)
	test.ExpectEquality(t, read(0x1000), uint32(0xff))
	test.ExpectEquality(t, sys.PersistentMemory()[0x10010], uint8(0xff))

	// the command mode is part of the machine state
	command(0x90)
	s := sys.State()
	command(0xf0)
	test.DemandSuccess(t, sys.SetState(s))
	test.ExpectEquality(t, read(1), uint32(0x09))

	// the 64K flash has a different ID and a single bank
	data = newROM(loop)
	copy(data[0x400:], "FLASH512_V131")
	data[headerComplement] = complement(data)
	sys = newTestSystem(t, data)
	test.ExpectEquality(t, sys.Cart.SaveType, "FLASH64")
	test.DemandEquality(t, len(sys.PersistentMemory()), 0x10000)
	command(0x90)
	test.ExpectEquality(t, read(0), uint32(0xc2))
	test.ExpectEquality(t, read(1), uint32(0x1c))
	command(0xf0)
	command(0xb0)
	write(0, 1)
	test.ExpectEquality(t, sys.Cart.flash.state.Bank, uint32(0))
}

// eepromBits returns the lowest n bits of v as a stream of halfwords, most
// significant bit first.
func eepromBits(v uint64, n int) []uint16 {
	bits := make([]uint16, n)
	for i := range bits {
		bits[i] = uint16(v>>(n-1-i)) & 0x01
	}
	return bits
}

func TestEEPROM(t *testing.T) {
	data := newROM(loop)
	copy(data[0x400:], "EEPROM_V124")
	data[headerComplement] = complement(data)
	sys := newTestSystem(t, data)
	test.ExpectEquality(t, sys.Cart.SaveType, "EEPROM")
	test.DemandEquality(t, len(sys.PersistentMemory()), 0x2000)

	// peeking reads the ROM
	test.ExpectEquality(t, sys.bus.Peek(0x0d0000c0), data[0xc0])

	// bits are ignored until a DMA has revealed the size of the EEPROM
	sys.bus.Write(0x0d000000, 1, bus.HalfWord)
	test.ExpectEquality(t, sys.Cart.eeprom.state.Received, 0)

	transfer := func(src uint32, dest uint32, count int) {
		sys.bus.Write(0x040000d4, src, bus.Word)
		sys.bus.Write(0x040000d8, dest, bus.Word)
		sys.bus.Write(0x040000dc, uint32(count), bus.HalfWord)
		sys.bus.Write(0x040000de, 0x8000, bus.HalfWord)
	}
	send := func(bits []uint16) {
		for i, b := range bits {
			sys.bus.Write(0x02000000+uint32(i)*2, uint32(b), bus.HalfWord)
		}
		transfer(0x02000000, 0x0d000000, len(bits))
	}
	receive := func() uint64 {
		t.Helper()
		transfer(0x0d000000, 0x02001000, 68)
		var v uint64
		for i := uint32(0); i < 68; i++ {
			b := sys.bus.Read(0x02001000+i*2, bus.HalfWord) & 0x01
			if i < 4 {
				test.ExpectEquality(t, b, uint32(0))
				continue
			}
			v = v<<1 | uint64(b)
		}
		return v
	}

	// write request with a six bit address
	req := append(eepromBits(0x02, 2), eepromBits(5, 6)...)
	req = append(req, eepromBits(0x0123456789abcdef, 64)...)
	req = append(req, 0)
	send(req)
	test.ExpectEquality(t, sys.Cart.eeprom.state.AddrBits, 6)

	p := sys.PersistentMemory()
	test.ExpectEquality(t, binary.BigEndian.Uint64(p[5*8:]), uint64(0x0123456789abcdef))
	test.ExpectEquality(t, p[0], uint8(0xff))

	// the EEPROM is ready after a write
	test.ExpectEquality(t, sys.bus.Read(0x0d000000, bus.HalfWord), uint32(1))

	// read request
	req = append(eepromBits(0x03, 2), eepromBits(5, 6)...)
	req = append(req, 0)
	send(req)
	test.ExpectEquality(t, receive(), uint64(0x0123456789abcdef))

	// a longer read request selects the larger EEPROM
	req = append(eepromBits(0x03, 2), eepromBits(5, 14)...)
	req = append(req, 0)
	send(req)
	test.ExpectEquality(t, sys.Cart.eeprom.state.AddrBits, 14)
	test.ExpectEquality(t, receive(), uint64(0x0123456789abcdef))

	// an unknown command is discarded and the next bit starts a new request
	send(eepromBits(0x03, 3))
	test.ExpectEquality(t, sys.Cart.eeprom.state.Received, 1)
	test.ExpectEquality(t, sys.Cart.eeprom.state.Command, uint8(1))
	test.ExpectEquality(t, sys.bus.Read(0x0d000000, bus.HalfWord), uint32(1))
}

func TestTimers(t *testing.T) {
	sys := newTestSystem(t, newROM(loop))

	// timer 0 counts every cycle and timer 1 counts timer 0 overflows
	sys.bus.Write(0x04000100, 0xff00, bus.HalfWord)
	sys.bus.Write(0x04000102, 0x00c0, bus.HalfWord)
	sys.bus.Write(0x04000106, 0x0084, bus.HalfWord)
	test.ExpectEquality(t, sys.bus.Read(0x04000100, bus.HalfWord), uint32(0xff00))

	sys.sched.Advance(256)
	test.ExpectEquality(t, sys.bus.Read(0x04000100, bus.HalfWord), uint32(0xff00))
	test.ExpectEquality(t, sys.bus.Read(0x04000104, bus.HalfWord), uint32(1))
	test.ExpectEquality(t, sys.ints.LineState(IntTimer0), interrupts.Pending)
	test.ExpectEquality(t, sys.ints.LineState(IntTimer1), interrupts.Idle)

	sys.sched.Advance(100)
	test.ExpectEquality(t, sys.bus.Read(0x04000100, bus.HalfWord), uint32(0xff64))

	// timer 2 with a prescaler of 64
	sys.bus.Write(0x0400010a, 0x0081, bus.HalfWord)
	sys.sched.Advance(640)
	test.ExpectEquality(t, sys.bus.Read(0x04000108, bus.HalfWord), uint32(10))
	sys.sched.Advance(63)
	test.ExpectEquality(t, sys.bus.Read(0x04000108, bus.HalfWord), uint32(10))
	sys.sched.Advance(1)
	test.ExpectEquality(t, sys.bus.Read(0x04000108, bus.HalfWord), uint32(11))

	// stopping the timer freezes the counter
	sys.bus.Write(0x0400010a, 0x0001, bus.HalfWord)
	sys.sched.Advance(1000)
	test.ExpectEquality(t, sys.bus.Read(0x04000108, bus.HalfWord), uint32(11))
}

func TestTimerOverflowWithInterruptsDisabled(t *testing.T) {
	sys := newTestSystem(t, newROM(loop))

	sys.bus.Write(0x04000200, 1<<IntTimer0, bus.HalfWord)
	sys.bus.Write(0x04000100, 0xfff0, bus.HalfWord)
	sys.bus.Write(0x04000102, 0x00c0, bus.HalfWord)

	runTo(t, sys, 0x080000c0)
	for i := 0; i < 20; i++ {
		step(t, sys)
	}

	// the interrupt is pending but IME is clear
	test.ExpectEquality(t, sys.ints.LineState(IntTimer0), interrupts.Pending)
	test.ExpectEquality(t, sys.CPU.Status().Mode, arm7.ModeSystem)
	test.ExpectEquality(t, sys.CPU.PC(), uint32(0x080000c0))

	// the interrupt is taken as soon as IME is set
	sys.bus.Write(0x04000208, 1, bus.HalfWord)
	step(t, sys)
	test.ExpectEquality(t, sys.CPU.Status().Mode, arm7.ModeIRQ)
	test.ExpectEquality(t, sys.CPU.PC(), uint32(0x18))

	// IF remains set until it is acknowledged by software
	test.ExpectEquality(t, sys.ints.Pending()&(1<<IntTimer0), uint16(1<<IntTimer0))
	sys.bus.Write(0x04000202, 1<<IntTimer0, bus.HalfWord)
	test.ExpectEquality(t, sys.ints.Pending()&(1<<IntTimer0), uint16(0))
}

func TestDMA(t *testing.T) {
	sys := newTestSystem(t, newROM(loop))

	for i := uint32(0); i < 4; i++ {
		sys.bus.Write(0x02000000+i*4, 0x11111111*(i+1), bus.Word)
	}

	// immediate word transfer on channel 3 with an interrupt
	sys.bus.Write(0x040000d4, 0x02000000, bus.Word)
	sys.bus.Write(0x040000d8, 0x03000000, bus.Word)
	sys.bus.Write(0x040000dc, 4, bus.HalfWord)
	sys.bus.Write(0x040000de, 0xc400, bus.HalfWord)

	test.ExpectEquality(t, sys.bus.Read(0x03000000, bus.Word), uint32(0x11111111))
	test.ExpectEquality(t, sys.bus.Read(0x0300000c, bus.Word), uint32(0x44444444))
	test.ExpectEquality(t, sys.bus.Read(0x03000010, bus.Word), uint32(0))
	test.ExpectEquality(t, sys.bus.Read(0x040000de, bus.HalfWord), uint32(0x4400))
	test.ExpectSuccess(t, sys.bus.IsLocked(sys.sched.Now()))

	// the interrupt is raised when the bus lock ends
	test.ExpectEquality(t, sys.ints.LineState(IntDMA3), interrupts.Idle)
	sys.sched.AdvanceTo(sys.bus.LockedUntil() - 1)
	test.ExpectEquality(t, sys.ints.LineState(IntDMA3), interrupts.Idle)
	sys.sched.AdvanceTo(sys.bus.LockedUntil())
	test.ExpectEquality(t, sys.ints.LineState(IntDMA3), interrupts.Pending)
	test.ExpectFailure(t, sys.bus.IsLocked(sys.sched.Now()))

	// halfword transfer on channel 0 at the start of the vertical blank
	sys.bus.Write(0x040000b0, 0x02000000, bus.Word)
	sys.bus.Write(0x040000b4, 0x03000100, bus.Word)
	sys.bus.Write(0x040000b8, 2, bus.HalfWord)
	sys.bus.Write(0x040000ba, 0x9000, bus.HalfWord)
	test.ExpectEquality(t, sys.bus.Read(0x03000100, bus.Word), uint32(0))

	sys.sched.Advance(CyclesPerLine * ScreenHeight)
	test.ExpectEquality(t, sys.bus.Read(0x03000100, bus.Word), uint32(0x11111111))
	test.ExpectEquality(t, sys.bus.Read(0x03000104, bus.Word), uint32(0))
	test.ExpectEquality(t, sys.bus.Read(0x040000ba, bus.HalfWord), uint32(0x1000))
	test.ExpectEquality(t, sys.ints.LineState(IntDMA0), interrupts.Idle)
}

func TestBIOS(t *testing.T) {
	sys := newTestSystem(t, newROM(
		0xe3a00064, // mov r0, #100
		0xe3a01007, // mov r1, #7
		0xef060000, // swi 0x06
		loop,
	))
	runTo(t, sys, 0x080000cc)
	test.ExpectEquality(t, sys.CPU.Reg(0), uint32(14))
	test.ExpectEquality(t, sys.CPU.Reg(1), uint32(2))
	test.ExpectEquality(t, sys.CPU.Reg(3), uint32(14))
	test.ExpectEquality(t, sys.CPU.Status().Mode, arm7.ModeSystem)

	// signed division
	sys.CPU.SetReg(0, 0xffffff9c)
	sys.CPU.SetReg(1, 7)
	sys.swi(swiDiv)
	test.ExpectEquality(t, int32(sys.CPU.Reg(0)), int32(-14))
	test.ExpectEquality(t, int32(sys.CPU.Reg(1)), int32(-2))
	test.ExpectEquality(t, sys.CPU.Reg(3), uint32(14))

	sys.CPU.SetReg(0, 1000)
	sys.swi(swiSqrt)
	test.ExpectEquality(t, sys.CPU.Reg(0), uint32(31))

	sys.CPU.SetReg(0, 0)
	sys.CPU.SetReg(1, 0x100)
	sys.swi(swiArcTan2)
	test.ExpectEquality(t, sys.CPU.Reg(0), uint32(0x4000))

	// CpuSet fill
	sys.bus.Write(0x02000000, 0x1234, bus.HalfWord)
	sys.CPU.SetReg(0, 0x02000000)
	sys.CPU.SetReg(1, 0x02000100)
	sys.CPU.SetReg(2, 8|1<<24)
	sys.swi(swiCpuSet)
	test.ExpectEquality(t, sys.bus.Read(0x0200010e, bus.HalfWord), uint32(0x1234))
	test.ExpectEquality(t, sys.bus.Read(0x02000110, bus.HalfWord), uint32(0))

	// CpuFastSet copies in blocks of eight words
	for i := uint32(0); i < 8; i++ {
		sys.bus.Write(0x02000200+i*4, i+1, bus.Word)
	}
	sys.CPU.SetReg(0, 0x02000200)
	sys.CPU.SetReg(1, 0x03000000)
	sys.CPU.SetReg(2, 5)
	sys.swi(swiCpuFastSet)
	test.ExpectEquality(t, sys.bus.Read(0x0300001c, bus.Word), uint32(8))
	test.ExpectEquality(t, sys.bus.Read(0x03000020, bus.Word), uint32(0))
}

func TestIntrWait(t *testing.T) {
	data := newROM(
		0xef050000, // swi 0x05
		0xe3a05001, // mov r5, #1
		loop,
	)

	// the interrupt handler acknowledges the interrupt and sets the BIOS
	// interrupt flags
	put(data, 0x200,
		0xe3a00301, // mov r0, #0x04000000
		0xe2800c02, // add r0, r0, #0x200
		0xe1d010b2, // ldrh r1, [r0, #2]
		0xe1c010b2, // strh r1, [r0, #2]
		0xe3a02403, // mov r2, #0x03000000
		0xe2822c7f, // add r2, r2, #0x7f00
		0xe1d23fb8, // ldrh r3, [r2, #0xf8]
		0xe1833001, // orr r3, r3, r1
		0xe1c23fb8, // strh r3, [r2, #0xf8]
		0xe12fff1e, // bx lr
	)

	sys := newTestSystem(t, data)
	sys.bus.Write(0x03007ffc, 0x08000200, bus.Word)
	sys.bus.Write(0x04000200, 1<<IntVBlank, bus.HalfWord)
	sys.bus.Write(0x04000004, 0x0008, bus.HalfWord)

	for i := 0; i < CyclesPerFrame && sys.CPU.Reg(5) != 1; i++ {
		step(t, sys)
	}

	test.ExpectEquality(t, sys.CPU.Reg(5), uint32(1))
	test.ExpectEquality(t, sys.PPU.state.VCount, uint16(ScreenHeight))
	test.ExpectEquality(t, sys.CPU.Status().Mode, arm7.ModeSystem)
	test.ExpectEquality(t, sys.io.IntrWait, false)
	test.ExpectEquality(t, sys.bus.Read(biosIF, bus.HalfWord), uint32(0))
	test.ExpectEquality(t, sys.ints.Pending(), uint16(0))
}

// notes the addresses of writes to executable memory
type writeLog []uint32

func (w *writeLog) Written(addr uint32, _ bus.Width) {
	*w = append(*w, addr)
}

func TestIntrWaitWriteWatchers(t *testing.T) {
	sys := newTestSystem(t, newROM(loop))
	var w writeLog
	sys.bus.AddWriteWatcher(&w)

	sys.bus.Write(biosIF, 1<<IntVBlank, bus.HalfWord)
	w = w[:0]

	// the flag is acknowledged with a write to IWRAM that translated code
	// must see
	sys.intrWait(false, 1<<IntVBlank)
	test.ExpectEquality(t, sys.io.IntrWait, false)
	test.DemandEquality(t, len(w), 1)
	test.ExpectEquality(t, w[0], uint32(biosIF))
	test.ExpectEquality(t, sys.bus.Read(biosIF, bus.HalfWord), uint32(0))
}

func TestKeypad(t *testing.T) {
	sys := newTestSystem(t, newROM(loop))

	test.ExpectEquality(t, sys.bus.Read(0x04000130, bus.HalfWord), uint32(0x03ff))
	sys.SetInput(input.A | input.Start)
	test.ExpectEquality(t, sys.bus.Read(0x04000130, bus.HalfWord), uint32(0x03f6))

	// interrupt when A or B is pressed
	sys.SetInput(input.None)
	sys.bus.Write(0x04000132, 0x4003, bus.HalfWord)
	test.ExpectEquality(t, sys.ints.LineState(IntKeypad), interrupts.Idle)
	sys.SetInput(input.Start)
	test.ExpectEquality(t, sys.ints.LineState(IntKeypad), interrupts.Idle)
	sys.SetInput(input.B)
	test.ExpectEquality(t, sys.ints.LineState(IntKeypad), interrupts.Pending)

	// interrupt only when both A and B are pressed
	sys.bus.Write(0x04000202, 1<<IntKeypad, bus.HalfWord)
	sys.bus.Write(0x04000132, 0xc003, bus.HalfWord)
	test.ExpectEquality(t, sys.ints.LineState(IntKeypad), interrupts.Idle)
	sys.SetInput(input.A | input.B)
	test.ExpectEquality(t, sys.ints.LineState(IntKeypad), interrupts.Pending)
}

func TestHalt(t *testing.T) {
	sys := newTestSystem(t, newROM(
		0xe3a00301, // mov r0, #0x04000000
		0xe3a01000, // mov r1, #0
		0xe5c01301, // strb r1, [r0, #0x301]
		loop,
	))
	sys.bus.Write(0x04000200, 1<<IntVBlank, bus.HalfWord)
	sys.bus.Write(0x04000004, 0x0008, bus.HalfWord)

	runTo(t, sys, 0x080000cc)
	test.ExpectSuccess(t, sys.CPU.Halted())

	// the CPU wakes at the vertical blank even though IME is clear
	for i := 0; i < CyclesPerFrame && sys.CPU.Halted(); i++ {
		step(t, sys)
	}
	test.ExpectFailure(t, sys.CPU.Halted())
	test.ExpectEquality(t, sys.PPU.state.VCount, uint16(ScreenHeight))
}

func TestRender(t *testing.T) {
	sys := newTestSystem(t, newROM(loop))

	// mode 3 bitmap
	sys.bus.Write(0x04000000, 0x0403, bus.HalfWord)
	sys.bus.Write(0x06000000+(5*ScreenWidth+10)*2, 0x001f, bus.HalfWord)
	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(10, 5), color.RGBA{R: 0xff, A: 0xff})
	test.ExpectEquality(t, sys.Frame().RGBAAt(0, 0), color.RGBA{A: 0xff})

	// mode 0 with a text background and a sprite
	sys.bus.Write(0x04000000, 0x1100, bus.HalfWord)
	sys.bus.Write(0x04000008, 0x1f00, bus.HalfWord)
	for i := uint32(0); i < 16; i++ {
		sys.bus.Write(0x06000020+i*2, 0x1111, bus.HalfWord)
		sys.bus.Write(0x06010040+i*2, 0x2222, bus.HalfWord)
	}
	sys.bus.Write(0x0600f800, 0x0001, bus.HalfWord)
	sys.bus.Write(0x05000002, 0x7c00, bus.HalfWord)
	sys.bus.Write(0x05000204, 0x03e0, bus.HalfWord)
	sys.bus.Write(0x07000000, 0x0014, bus.HalfWord)
	sys.bus.Write(0x07000002, 0x001e, bus.HalfWord)
	sys.bus.Write(0x07000004, 0x0002, bus.HalfWord)

	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(3, 3), color.RGBA{B: 0xff, A: 0xff})
	test.ExpectEquality(t, sys.Frame().RGBAAt(8, 0), color.RGBA{A: 0xff})
	test.ExpectEquality(t, sys.Frame().RGBAAt(30, 20), color.RGBA{G: 0xff, A: 0xff})
	test.ExpectEquality(t, sys.Frame().RGBAAt(38, 20), color.RGBA{A: 0xff})

	// byte writes to OAM are ignored
	sys.bus.Write(0x07000000, 0x50, bus.Byte)
	test.ExpectEquality(t, sys.bus.Read(0x07000000, bus.HalfWord), uint32(0x0014))
}

func TestRenderAffine(t *testing.T) {
	sys := newTestSystem(t, newROM(loop))
	black := color.RGBA{A: 0xff}
	blue := color.RGBA{B: 0xff, A: 0xff}
	green := color.RGBA{G: 0xff, A: 0xff}
	red := color.RGBA{R: 0xff, A: 0xff}

	// mode 2 with a 128x128 map on the third background. tile 1 is solid and
	// is at the first and the sixteenth map entries
	sys.bus.Write(0x04000000, 0x0402, bus.HalfWord)
	sys.bus.Write(0x0400000c, 0x1f00, bus.HalfWord)
	for i := uint32(0); i < 32; i++ {
		sys.bus.Write(0x06000040+i*2, 0x0101, bus.HalfWord)
	}
	sys.bus.Write(0x0600f800, 0x0001, bus.HalfWord)
	sys.bus.Write(0x0600f80e, 0x0100, bus.HalfWord)
	sys.bus.Write(0x05000002, 0x7c00, bus.HalfWord)

	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(3, 3), blue)
	test.ExpectEquality(t, sys.Frame().RGBAAt(8, 3), black)
	test.ExpectEquality(t, sys.Frame().RGBAAt(3, 8), black)
	test.ExpectEquality(t, sys.Frame().RGBAAt(124, 3), blue)
	test.ExpectEquality(t, sys.Frame().RGBAAt(200, 3), black)

	// half steps draw every texel twice
	sys.bus.Write(0x04000020, 0x0080, bus.HalfWord)
	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(12, 3), blue)
	test.ExpectEquality(t, sys.Frame().RGBAAt(17, 3), black)

	// a negative reference point moves the background to the right
	sys.bus.Write(0x04000020, 0x0100, bus.HalfWord)
	sys.bus.Write(0x04000028, 0xfffffc00, bus.Word)
	test.ExpectEquality(t, sys.PPU.state.RefX[0], int32(-0x400))
	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(2, 3), black)
	test.ExpectEquality(t, sys.Frame().RGBAAt(5, 3), blue)
	test.ExpectEquality(t, sys.Frame().RGBAAt(12, 3), black)

	// the affine registers are write-only
	test.ExpectEquality(t, sys.bus.Read(0x04000028, bus.HalfWord), uint32(0))

	// with wrapping the left edge shows the right of the map
	sys.bus.Write(0x0400000c, 0x3f00, bus.HalfWord)
	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(2, 3), blue)

	// a 16x16 affine sprite in mode 0. the left half is green and the right
	// half is red
	sys.bus.Write(0x04000000, 0x1040, bus.HalfWord)
	for i := uint32(0); i < 16; i++ {
		sys.bus.Write(0x06010040+i*2, 0x2222, bus.HalfWord)
		sys.bus.Write(0x06010060+i*2, 0x3333, bus.HalfWord)
		sys.bus.Write(0x06010080+i*2, 0x2222, bus.HalfWord)
		sys.bus.Write(0x060100a0+i*2, 0x3333, bus.HalfWord)
	}
	sys.bus.Write(0x05000204, 0x03e0, bus.HalfWord)
	sys.bus.Write(0x05000206, 0x001f, bus.HalfWord)
	sys.bus.Write(0x07000000, 0x0114, bus.HalfWord)
	sys.bus.Write(0x07000002, 0x401e, bus.HalfWord)
	sys.bus.Write(0x07000004, 0x0002, bus.HalfWord)
	sys.bus.Write(0x07000006, 0x0100, bus.HalfWord)
	sys.bus.Write(0x0700001e, 0x0100, bus.HalfWord)

	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(30, 20), green)
	test.ExpectEquality(t, sys.Frame().RGBAAt(45, 20), red)
	test.ExpectEquality(t, sys.Frame().RGBAAt(38, 35), red)
	test.ExpectEquality(t, sys.Frame().RGBAAt(46, 20), black)

	// mirrored by the first parameter
	sys.bus.Write(0x07000006, 0xff00, bus.HalfWord)
	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(30, 20), black)
	test.ExpectEquality(t, sys.Frame().RGBAAt(31, 20), red)
	test.ExpectEquality(t, sys.Frame().RGBAAt(45, 20), green)

	// double size doubles the bounding box but not the sprite
	sys.bus.Write(0x07000006, 0x0100, bus.HalfWord)
	sys.bus.Write(0x07000000, 0x0314, bus.HalfWord)
	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(38, 28), green)
	test.ExpectEquality(t, sys.Frame().RGBAAt(53, 28), red)
	test.ExpectEquality(t, sys.Frame().RGBAAt(31, 21), black)
	test.ExpectEquality(t, sys.Frame().RGBAAt(60, 50), black)

	// without the affine flag the double size flag disables the sprite
	sys.bus.Write(0x07000000, 0x0214, bus.HalfWord)
	runFrame(t, sys)
	test.ExpectEquality(t, sys.Frame().RGBAAt(30, 20), black)
}

func TestStateRoundTrip(t *testing.T) {
	sys := newTestSystem(t, newROM(counter...))
	runFrame(t, sys)

	var buf bytes.Buffer
	test.DemandSuccess(t, gob.NewEncoder(&buf).Encode(sys.State()))

	runFrame(t, sys)
	runFrame(t, sys)
	count := sys.bus.Read(0x03000000, bus.Word)
	now := sys.sched.Now()
	r1 := sys.CPU.Reg(1)

	s := sys.NewState()
	test.DemandSuccess(t, gob.NewDecoder(&buf).Decode(s))
	test.DemandSuccess(t, sys.SetState(s))
	runFrame(t, sys)
	runFrame(t, sys)

	test.ExpectEquality(t, sys.bus.Read(0x03000000, bus.Word), count)
	test.ExpectEquality(t, sys.sched.Now(), now)
	test.ExpectEquality(t, sys.CPU.Reg(1), r1)

	test.ExpectFailure(t, sys.SetState(&struct{}{}))
}

func TestJITEquivalence(t *testing.T) {
	interp := newTestSystem(t, newROM(counter...))
	jit := newTestSystem(t, newROM(counter...))
	jit.Translator().SetEnabled(true)
	test.DemandSuccess(t, jit.Translator().Enabled())

	for _, sys := range []*System{interp, jit} {
		sys.CPU.SetYield(sys.FrameComplete)
		for i := 0; i < 3; i++ {
			runFrame(t, sys)
		}
	}

	test.ExpectEquality(t, jit.sched.Now(), interp.sched.Now())
	test.ExpectEquality(t, jit.CPU.PC(), interp.CPU.PC())
	test.ExpectEquality(t, jit.bus.Read(0x03000000, bus.Word), interp.bus.Read(0x03000000, bus.Word))
	test.ExpectInequality(t, interp.bus.Read(0x03000000, bus.Word), uint32(0))
}
