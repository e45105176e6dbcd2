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

package sm83

import (
	"fmt"
	"strings"

	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
)

// Memory is the interface to the memory bus required by the CPU.
type Memory interface {
	Read(addr uint32, width bus.Width) uint32
	Write(addr uint32, value uint32, width bus.Width)
}

// flag bits in the F register.
const (
	flagZ = 0x80
	flagN = 0x40
	flagH = 0x20
	flagC = 0x10
)

// interrupt vectors. the handler address for interrupt line n is
// vectorBase + n*8
const vectorBase = 0x0040

// Registers of the SM83.
type Registers struct {
	A, F uint8
	B, C uint8
	D, E uint8
	H, L uint8
	SP   uint16
	PC   uint16
}

// State is the serialisable state of the CPU.
type State struct {
	Registers

	// EI takes effect after the next instruction
	EIDelay bool

	Halted bool

	// the halt bug causes the byte following the HALT instruction to be
	// read twice
	HaltBug bool

	// an illegal opcode has been executed
	Locked bool
}

// CPU is the SM83 core. It implements the cpu.Core interface.
type CPU struct {
	mem    Memory
	ints   *interrupts.Controller
	ticker cpu.Ticker

	state State

	// called when a STOP instruction is executed. if the function returns
	// true then the STOP instruction was a CGB speed switch and the CPU
	// continues
	stop func() bool

	// number of cycles consumed by the current call to Step()
	cycles int
}

// NewCPU is the preferred method of initialisation for the CPU type.
func NewCPU(mem Memory, ints *interrupts.Controller, ticker cpu.Ticker) *CPU {
	c := &CPU{
		mem:    mem,
		ints:   ints,
		ticker: ticker,
	}
	c.Reset()
	return c
}

// SetStopHook sets the function to call when a STOP instruction is executed.
func (c *CPU) SetStopHook(f func() bool) {
	c.stop = f
}

// Reset implements the cpu.Core interface. The registers are set to the values
// left by the boot ROM of the original Game Boy.
func (c *CPU) Reset() {
	c.state = State{}
	c.state.A = 0x01
	c.state.F = 0xb0
	c.state.B = 0x00
	c.state.C = 0x13
	c.state.D = 0x00
	c.state.E = 0xd8
	c.state.H = 0x01
	c.state.L = 0x4d
	c.state.SP = 0xfffe
	c.state.PC = 0x0100
}

// SetPostBootColor sets the registers to the values left by the boot ROM of
// the Game Boy Color.
func (c *CPU) SetPostBootColor() {
	c.state.A = 0x11
	c.state.F = 0x80
	c.state.B = 0x00
	c.state.C = 0x00
	c.state.D = 0xff
	c.state.E = 0x56
	c.state.H = 0x00
	c.state.L = 0x0d
}

func (c *CPU) String() string {
	s := strings.Builder{}
	for _, r := range c.Registers() {
		s.WriteString(r.String())
		s.WriteString(" ")
	}
	return strings.TrimSpace(s.String())
}

// Architecture implements the cpu.Core interface.
func (c *CPU) Architecture() string {
	return "SM83"
}

// PC implements the cpu.Core interface.
func (c *CPU) PC() uint32 {
	return uint32(c.state.PC)
}

// Halted implements the cpu.Core interface. A locked CPU is also halted.
func (c *CPU) Halted() bool {
	return c.state.Halted || c.state.Locked
}

// Resume implements the cpu.Core interface.
func (c *CPU) Resume() {
	c.state.Halted = false
}

// Registers implements the cpu.Core interface.
func (c *CPU) Registers() []cpu.Register {
	var ime uint32
	if c.ints.Master() {
		ime = 1
	}
	return []cpu.Register{
		{Name: "AF", Value: uint32(c.state.A)<<8 | uint32(c.state.F), Bits: 16},
		{Name: "BC", Value: uint32(c.bc()), Bits: 16},
		{Name: "DE", Value: uint32(c.de()), Bits: 16},
		{Name: "HL", Value: uint32(c.hl()), Bits: 16},
		{Name: "SP", Value: uint32(c.state.SP), Bits: 16},
		{Name: "PC", Value: uint32(c.state.PC), Bits: 16},
		{Name: "IME", Value: ime, Bits: 4},
	}
}

// SetRegister implements the cpu.Core interface. Eight bit registers can be
// set individually.
func (c *CPU) SetRegister(name string, value uint32) error {
	switch strings.ToUpper(name) {
	case "A":
		c.state.A = uint8(value)
	case "F":
		c.state.F = uint8(value) & 0xf0
	case "B":
		c.state.B = uint8(value)
	case "C":
		c.state.C = uint8(value)
	case "D":
		c.state.D = uint8(value)
	case "E":
		c.state.E = uint8(value)
	case "H":
		c.state.H = uint8(value)
	case "L":
		c.state.L = uint8(value)
	case "AF":
		c.state.A = uint8(value >> 8)
		c.state.F = uint8(value) & 0xf0
	case "BC":
		c.setBC(uint16(value))
	case "DE":
		c.setDE(uint16(value))
	case "HL":
		c.setHL(uint16(value))
	case "SP":
		c.state.SP = uint16(value)
	case "PC":
		c.state.PC = uint16(value)
	case "IME":
		c.ints.SetMaster(value != 0)
	default:
		return cpu.UnknownRegisterError(name)
	}
	return nil
}

// Snapshot returns the state of the CPU.
func (c *CPU) Snapshot() State {
	return c.state
}

// Restore the state of the CPU.
func (c *CPU) Restore(s State) {
	c.state = s
}

// Step implements the cpu.Core interface.
func (c *CPU) Step() (int, error) {
	c.cycles = 0

	if c.state.Locked {
		c.tick(4)
		return c.cycles, nil
	}

	if c.state.Halted {
		if !c.ints.Asserted() {
			c.tick(4)
			return c.cycles, nil
		}
		c.state.Halted = false
	}

	if c.ints.Ready() {
		c.serviceInterrupt()
		return c.cycles, nil
	}

	ei := c.state.EIDelay

	pc := c.state.PC
	opcode := c.fetch8()
	if c.state.HaltBug {
		c.state.HaltBug = false
		c.state.PC--
	}

	err := c.execute(opcode)
	if err != nil {
		c.state.Locked = true
		c.state.PC = pc
		return c.cycles, cpu.UndefinedInstructionFault{
			Architecture: c.Architecture(),
			Address:      uint32(pc),
			Opcode:       uint32(opcode),
		}
	}

	if ei && c.state.EIDelay {
		c.state.EIDelay = false
		c.ints.SetMaster(true)
	}

	return c.cycles, nil
}

func (c *CPU) serviceInterrupt() {
	c.tick(8)
	line := c.ints.Vector()
	c.push16(c.state.PC)
	c.state.PC = uint16(vectorBase + line*8)
	c.tick(4)
}

func (c *CPU) tick(n int) {
	c.cycles += n
	c.ticker.Tick(n)
}

func (c *CPU) read8(addr uint16) uint8 {
	v := uint8(c.mem.Read(uint32(addr), bus.Byte))
	c.tick(4)
	return v
}

func (c *CPU) write8(addr uint16, v uint8) {
	c.mem.Write(uint32(addr), uint32(v), bus.Byte)
	c.tick(4)
}

func (c *CPU) fetch8() uint8 {
	v := c.read8(c.state.PC)
	c.state.PC++
	return v
}

func (c *CPU) fetch16() uint16 {
	lo := c.fetch8()
	hi := c.fetch8()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) push16(v uint16) {
	c.state.SP--
	c.write8(c.state.SP, uint8(v>>8))
	c.state.SP--
	c.write8(c.state.SP, uint8(v))
}

func (c *CPU) pop16() uint16 {
	lo := c.read8(c.state.SP)
	c.state.SP++
	hi := c.read8(c.state.SP)
	c.state.SP++
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) bc() uint16 {
	return uint16(c.state.B)<<8 | uint16(c.state.C)
}

func (c *CPU) de() uint16 {
	return uint16(c.state.D)<<8 | uint16(c.state.E)
}

func (c *CPU) hl() uint16 {
	return uint16(c.state.H)<<8 | uint16(c.state.L)
}

func (c *CPU) setBC(v uint16) {
	c.state.B = uint8(v >> 8)
	c.state.C = uint8(v)
}

func (c *CPU) setDE(v uint16) {
	c.state.D = uint8(v >> 8)
	c.state.E = uint8(v)
}

func (c *CPU) setHL(v uint16) {
	c.state.H = uint8(v >> 8)
	c.state.L = uint8(v)
}

func (c *CPU) flag(f uint8) bool {
	return c.state.F&f == f
}

func (c *CPU) setFlag(f uint8, v bool) {
	if v {
		c.state.F |= f
	} else {
		c.state.F &^= f
	}
}

func (c *CPU) setFlags(z, n, h, cy bool) {
	c.state.F = 0
	c.setFlag(flagZ, z)
	c.setFlag(flagN, n)
	c.setFlag(flagH, h)
	c.setFlag(flagC, cy)
}

// r8 returns the value of the 8 bit register by index. index 6 is the memory
// location pointed to by HL.
func (c *CPU) r8(i uint8) uint8 {
	switch i & 0x07 {
	case 0:
		return c.state.B
	case 1:
		return c.state.C
	case 2:
		return c.state.D
	case 3:
		return c.state.E
	case 4:
		return c.state.H
	case 5:
		return c.state.L
	case 6:
		return c.read8(c.hl())
	}
	return c.state.A
}

func (c *CPU) setR8(i uint8, v uint8) {
	switch i & 0x07 {
	case 0:
		c.state.B = v
	case 1:
		c.state.C = v
	case 2:
		c.state.D = v
	case 3:
		c.state.E = v
	case 4:
		c.state.H = v
	case 5:
		c.state.L = v
	case 6:
		c.write8(c.hl(), v)
	default:
		c.state.A = v
	}
}

// r16 returns the value of the 16 bit register by index. index 3 is SP.
func (c *CPU) r16(i uint8) uint16 {
	switch i & 0x03 {
	case 0:
		return c.bc()
	case 1:
		return c.de()
	case 2:
		return c.hl()
	}
	return c.state.SP
}

func (c *CPU) setR16(i uint8, v uint16) {
	switch i & 0x03 {
	case 0:
		c.setBC(v)
	case 1:
		c.setDE(v)
	case 2:
		c.setHL(v)
	default:
		c.state.SP = v
	}
}

// condition for conditional jumps, calls and returns. NZ, Z, NC, C
func (c *CPU) condition(i uint8) bool {
	switch i & 0x03 {
	case 0:
		return !c.flag(flagZ)
	case 1:
		return c.flag(flagZ)
	case 2:
		return !c.flag(flagC)
	}
	return c.flag(flagC)
}

// illegalOpcode is returned by execute() when the opcode is not defined.
type illegalOpcode uint8

func (o illegalOpcode) Error() string {
	return fmt.Sprintf("illegal opcode %02x", uint8(o))
}
