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

package sm83_test

import (
	"errors"
	"testing"

	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/cpu/sm83"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/test"
)

type mockMem struct {
	data [0x10000]uint8
}

func (m *mockMem) Read(addr uint32, width bus.Width) uint32 {
	return uint32(m.data[uint16(addr)])
}

func (m *mockMem) Write(addr uint32, value uint32, width bus.Width) {
	m.data[uint16(addr)] = uint8(value)
}

// putInstructions copies the bytes to memory starting at the origin address.
// returns the address following the last byte
func (m *mockMem) putInstructions(origin uint16, bytes ...uint8) uint16 {
	for i, b := range bytes {
		m.data[origin+uint16(i)] = b
	}
	return origin + uint16(len(bytes))
}

type mockTicker struct {
	cycles int
}

func (t *mockTicker) Tick(n int) {
	t.cycles += n
}

func newCPU() (*sm83.CPU, *mockMem, *interrupts.Controller, *mockTicker) {
	mem := &mockMem{}
	ints := interrupts.NewController(interrupts.ClearOnVector, 5)
	tck := &mockTicker{}
	mc := sm83.NewCPU(mem, ints, tck)
	return mc, mem, ints, tck
}

// step the CPU the number of times and return the total number of cycles
func step(t *testing.T, mc *sm83.CPU, n int) int {
	t.Helper()
	var total int
	for i := 0; i < n; i++ {
		c, err := mc.Step()
		test.DemandSuccess(t, err)
		total += c
	}
	return total
}

func reg(mc *sm83.CPU, name string) uint32 {
	for _, r := range mc.Registers() {
		if r.Name == name {
			return r.Value
		}
	}
	return 0xffffffff
}

func TestLoadAndArithmetic(t *testing.T) {
	mc, mem, _, tck := newCPU()

	// LD A, $12; LD B, A; ADD A, B; LD HL, $c000; LD (HL), A; INC (HL)
	mem.putInstructions(0x0100, 0x3e, 0x12, 0x47, 0x80, 0x21, 0x00, 0xc0, 0x77, 0x34)

	test.ExpectEquality(t, step(t, mc, 1), 8)
	test.ExpectEquality(t, step(t, mc, 1), 4)
	test.ExpectEquality(t, step(t, mc, 1), 4)
	s := mc.Snapshot()
	test.ExpectEquality(t, s.A, uint8(0x24))
	test.ExpectEquality(t, s.F, uint8(0x00))

	test.ExpectEquality(t, step(t, mc, 1), 12)
	test.ExpectEquality(t, step(t, mc, 1), 8)
	test.ExpectEquality(t, step(t, mc, 1), 12)
	test.ExpectEquality(t, mem.data[0xc000], uint8(0x25))
	test.ExpectEquality(t, tck.cycles, 48)
}

func TestFlags(t *testing.T) {
	mc, mem, _, _ := newCPU()

	// LD A, $0f; ADD A, $01 -> half carry
	// LD A, $ff; ADD A, $01 -> zero, half carry and carry
	// LD A, $10; SUB A, $01 -> half carry (borrow)
	// LD A, $15; ADD A, $27; DAA -> $42
	mem.putInstructions(0x0100,
		0x3e, 0x0f, 0xc6, 0x01,
		0x3e, 0xff, 0xc6, 0x01,
		0x3e, 0x10, 0xd6, 0x01,
		0x3e, 0x15, 0xc6, 0x27, 0x27,
	)

	step(t, mc, 2)
	test.ExpectEquality(t, mc.Snapshot().F, uint8(0x20))
	step(t, mc, 2)
	test.ExpectEquality(t, mc.Snapshot().F, uint8(0xb0))
	step(t, mc, 2)
	test.ExpectEquality(t, mc.Snapshot().A, uint8(0x0f))
	test.ExpectEquality(t, mc.Snapshot().F, uint8(0x60))
	step(t, mc, 3)
	test.ExpectEquality(t, mc.Snapshot().A, uint8(0x42))
}

func TestCallAndReturn(t *testing.T) {
	mc, mem, _, _ := newCPU()

	// CALL $0200; (at $0200) INC A; RET
	mem.putInstructions(0x0100, 0xcd, 0x00, 0x02)
	mem.putInstructions(0x0200, 0x3c, 0xc9)

	test.ExpectEquality(t, step(t, mc, 1), 24)
	test.ExpectEquality(t, reg(mc, "PC"), uint32(0x0200))
	test.ExpectEquality(t, reg(mc, "SP"), uint32(0xfffc))
	test.ExpectEquality(t, mem.data[0xfffd], uint8(0x01))
	test.ExpectEquality(t, mem.data[0xfffc], uint8(0x03))

	step(t, mc, 1)
	test.ExpectEquality(t, step(t, mc, 1), 16)
	test.ExpectEquality(t, reg(mc, "PC"), uint32(0x0103))
	test.ExpectEquality(t, reg(mc, "SP"), uint32(0xfffe))
}

func TestConditionalBranchCycles(t *testing.T) {
	mc, mem, _, _ := newCPU()

	// XOR A (sets Z); JR NZ, +2 (not taken); JR Z, +0 (taken)
	mem.putInstructions(0x0100, 0xaf, 0x20, 0x02, 0x28, 0x00)

	step(t, mc, 1)
	test.ExpectEquality(t, step(t, mc, 1), 8)
	test.ExpectEquality(t, step(t, mc, 1), 12)
	test.ExpectEquality(t, reg(mc, "PC"), uint32(0x0105))
}

func TestCBInstructions(t *testing.T) {
	mc, mem, _, _ := newCPU()

	// LD A, $81; RLC A; BIT 0, A; SWAP A; SET 7, A; SRL A
	mem.putInstructions(0x0100, 0x3e, 0x81, 0xcb, 0x07, 0xcb, 0x47, 0xcb, 0x37, 0xcb, 0xff, 0xcb, 0x3f)

	step(t, mc, 2)
	test.ExpectEquality(t, mc.Snapshot().A, uint8(0x03))
	test.ExpectEquality(t, mc.Snapshot().F, uint8(0x10))
	step(t, mc, 1)
	test.ExpectEquality(t, mc.Snapshot().F&0x80, uint8(0x00))
	step(t, mc, 1)
	test.ExpectEquality(t, mc.Snapshot().A, uint8(0x30))
	step(t, mc, 1)
	test.ExpectEquality(t, mc.Snapshot().A, uint8(0xb0))
	step(t, mc, 1)
	test.ExpectEquality(t, mc.Snapshot().A, uint8(0x58))
	test.ExpectEquality(t, mc.Snapshot().F, uint8(0x00))
}

func TestInterruptWithMasterDisabled(t *testing.T) {
	mc, mem, ints, _ := newCPU()

	// DI; NOP; NOP; EI; NOP; NOP
	mem.putInstructions(0x0100, 0xf3, 0x00, 0x00, 0xfb, 0x00, 0x00)
	ints.SetEnable(0x04)

	step(t, mc, 1)
	ints.Raise(2)

	// the interrupt remains pending while the master enable is off
	step(t, mc, 2)
	test.ExpectEquality(t, ints.LineState(2), interrupts.Pending)
	test.ExpectEquality(t, reg(mc, "PC"), uint32(0x0103))

	// EI takes effect after the following instruction
	step(t, mc, 1)
	test.ExpectFailure(t, ints.Master())
	step(t, mc, 1)
	test.ExpectSuccess(t, ints.Master())
	test.ExpectEquality(t, reg(mc, "PC"), uint32(0x0105))

	// vector on the next instruction boundary
	test.ExpectEquality(t, step(t, mc, 1), 20)
	test.ExpectEquality(t, reg(mc, "PC"), uint32(0x0050))
	test.ExpectEquality(t, ints.LineState(2), interrupts.Delivered)
	test.ExpectFailure(t, ints.Master())
}

func TestHalt(t *testing.T) {
	mc, mem, ints, _ := newCPU()

	// HALT; INC A
	mem.putInstructions(0x0100, 0x76, 0x3c)
	ints.SetEnable(0x01)

	step(t, mc, 1)
	test.ExpectSuccess(t, mc.Halted())
	step(t, mc, 10)
	test.ExpectSuccess(t, mc.Halted())

	// wake without the master enable flag. execution continues after the HALT
	ints.Raise(0)
	step(t, mc, 1)
	test.ExpectFailure(t, mc.Halted())
	test.ExpectEquality(t, mc.Snapshot().A, uint8(0x02))
}

func TestHaltBug(t *testing.T) {
	mc, mem, ints, _ := newCPU()

	// HALT; INC A. with an interrupt pending and the master enable off, the
	// INC A instruction is executed twice
	mem.putInstructions(0x0100, 0x76, 0x3c, 0x00)
	ints.SetEnable(0x01)
	ints.Raise(0)

	step(t, mc, 3)
	test.ExpectFailure(t, mc.Halted())
	test.ExpectEquality(t, mc.Snapshot().A, uint8(0x03))
	test.ExpectEquality(t, reg(mc, "PC"), uint32(0x0102))
}

func TestIllegalOpcode(t *testing.T) {
	mc, mem, _, _ := newCPU()
	mem.putInstructions(0x0100, 0x00, 0xd3, 0x00)

	step(t, mc, 1)
	_, err := mc.Step()
	test.ExpectFailure(t, err)

	var fault cpu.UndefinedInstructionFault
	test.DemandSuccess(t, errors.As(err, &fault))
	test.ExpectEquality(t, fault.Address, uint32(0x0101))
	test.ExpectEquality(t, fault.Opcode, uint32(0xd3))
	test.ExpectFailure(t, fault.Recoverable)

	// the core is locked
	test.ExpectSuccess(t, mc.Halted())
	c, err := mc.Step()
	test.ExpectSuccess(t, err)
	test.ExpectEquality(t, c, 4)
	test.ExpectEquality(t, reg(mc, "PC"), uint32(0x0101))
}

func TestSetRegister(t *testing.T) {
	mc, _, _, _ := newCPU()
	test.ExpectSuccess(t, mc.SetRegister("hl", 0x1234))
	test.ExpectSuccess(t, mc.SetRegister("AF", 0xffff))
	test.ExpectEquality(t, reg(mc, "HL"), uint32(0x1234))
	test.ExpectEquality(t, reg(mc, "AF"), uint32(0xfff0))
	test.ExpectFailure(t, mc.SetRegister("X", 0))
}
