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

package arm7

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
)

// Memory is the interface to the bus required by the ARM. The Cycles()
// function is used to cost every fetch and data access.
type Memory interface {
	Read(addr uint32, width bus.Width) uint32
	Write(addr uint32, value uint32, width bus.Width)
	Cycles(addr uint32, width bus.Width, sequential bool) int
}

// Mode is the processor mode, as found in the bottom five bits of the CPSR.
type Mode uint32

// List of valid processor modes.
const (
	ModeUser       Mode = 0x10
	ModeFIQ        Mode = 0x11
	ModeIRQ        Mode = 0x12
	ModeSupervisor Mode = 0x13
	ModeAbort      Mode = 0x17
	ModeUndefined  Mode = 0x1b
	ModeSystem     Mode = 0x1f
)

func (m Mode) String() string {
	switch m {
	case ModeUser:
		return "usr"
	case ModeFIQ:
		return "fiq"
	case ModeIRQ:
		return "irq"
	case ModeSupervisor:
		return "svc"
	case ModeAbort:
		return "abt"
	case ModeUndefined:
		return "und"
	case ModeSystem:
		return "sys"
	}
	return fmt.Sprintf("%#02x", uint32(m))
}

func (m Mode) valid() bool {
	switch m {
	case ModeUser, ModeFIQ, ModeIRQ, ModeSupervisor, ModeAbort, ModeUndefined, ModeSystem:
		return true
	}
	return false
}

// register banks. user and system modes share a bank
const (
	bankUser = iota
	bankFIQ
	bankIRQ
	bankSupervisor
	bankAbort
	bankUndefined
	numBanks
)

func (m Mode) bank() int {
	switch m {
	case ModeFIQ:
		return bankFIQ
	case ModeIRQ:
		return bankIRQ
	case ModeSupervisor:
		return bankSupervisor
	case ModeAbort:
		return bankAbort
	case ModeUndefined:
		return bankUndefined
	}
	return bankUser
}

// modes that have a saved program status register
func (m Mode) hasSPSR() bool {
	return m != ModeUser && m != ModeSystem
}

func modeFromName(s string) (Mode, bool) {
	for _, m := range []Mode{ModeUser, ModeFIQ, ModeIRQ, ModeSupervisor, ModeAbort, ModeUndefined, ModeSystem} {
		if m.String() == s {
			return m, true
		}
	}
	return 0, false
}

// exception vectors
const (
	vectorReset     = 0x00
	vectorUndefined = 0x04
	vectorSWI       = 0x08
	vectorIRQ       = 0x18
)

// register aliases
const (
	rSP = 13
	rLR = 14
	rPC = 15
)

// State is the serialisable state of the ARM.
type State struct {
	// the current register set. R15 is only meaningful during the execution
	// of an instruction
	R [16]uint32

	// address of next instruction to execute
	PC uint32

	Status Status

	// saved program status registers, one for each bank. the user bank entry
	// is never used
	SPSR [numBanks]uint32

	// stack pointer and link register for each bank
	BankedSP [numBanks]uint32
	BankedLR [numBanks]uint32

	// R8 to R12 have a separate bank for FIQ mode
	BankedFIQ  [5]uint32
	BankedUser [5]uint32

	// the next fetch is a non-sequential access
	NonSeq bool

	// the most recently fetched opcode. used for open bus reads
	Prefetch uint32

	Halted bool
}

// ARM implements the cpu.Core interface for the ARM7TDMI.
type ARM struct {
	mem    Memory
	ints   *interrupts.Controller
	ticker cpu.Ticker

	state State

	// the instruction being executed has written to the PC
	branched bool

	// address of the instruction being executed
	executing uint32

	// number of cycles consumed by the current call to Step()
	cycles int

	// fault raised by the current call to Step()
	fault error

	// software interrupts are passed to this function before the exception
	// is taken. if the function returns true then the software interrupt has
	// been handled and the exception is not taken
	swi func(function uint32) bool

	// checked between instructions when running translated code. a return
	// value of true will end execution of the block
	yield func() bool

	jit *JIT
}

// NewARM is the preferred method of initialisation for the ARM type. The
// interrupt controller should be the controller that drives the IRQ line.
func NewARM(mem Memory, ints *interrupts.Controller, ticker cpu.Ticker) *ARM {
	arm := &ARM{
		mem:    mem,
		ints:   ints,
		ticker: ticker,
	}
	arm.jit = newJIT(arm)
	arm.Reset()
	return arm
}

// Reset implements the cpu.Core interface. The ARM will begin execution at
// the reset vector in supervisor mode.
func (arm *ARM) Reset() {
	arm.state = State{}
	arm.state.Status.Mode = ModeSupervisor
	arm.state.Status.IRQDisable = true
	arm.state.Status.FIQDisable = true
	arm.state.PC = vectorReset
	arm.state.NonSeq = true
	arm.jit.InvalidateAll()
}

// SetSWIHook sets the function to be called by the SWI instruction. The
// function number is the comment field of the instruction. For ARM
// instructions this is bits 16 to 23 of the comment field.
func (arm *ARM) SetSWIHook(f func(function uint32) bool) {
	arm.swi = f
}

// SetYield sets the function that is checked between instructions of a
// translated block.
func (arm *ARM) SetYield(f func() bool) {
	arm.yield = f
}

// JIT returns the translator for the ARM.
func (arm *ARM) JIT() *JIT {
	return arm.jit
}

func (arm *ARM) String() string {
	s := strings.Builder{}
	for _, r := range arm.Registers() {
		s.WriteString(r.String())
		s.WriteString(" ")
	}
	s.WriteString(arm.state.Status.String())
	return s.String()
}

// Architecture implements the cpu.Core interface.
func (arm *ARM) Architecture() string {
	return "ARM7TDMI"
}

// PC implements the cpu.Core interface.
func (arm *ARM) PC() uint32 {
	return arm.state.PC
}

// Halted implements the cpu.Core interface.
func (arm *ARM) Halted() bool {
	return arm.state.Halted
}

// Halt the ARM until an interrupt is asserted.
func (arm *ARM) Halt() {
	arm.state.Halted = true
}

// Resume implements the cpu.Core interface.
func (arm *ARM) Resume() {
	arm.state.Halted = false
}

// Status returns the current program status register.
func (arm *ARM) Status() Status {
	return arm.state.Status
}

// Prefetch returns the most recently fetched opcode.
func (arm *ARM) Prefetch() uint32 {
	return arm.state.Prefetch
}

// Reg returns the value of a register in the current register set. Intended
// for use by SWI hooks.
func (arm *ARM) Reg(n int) uint32 {
	return arm.state.R[n&0x0f]
}

// SetReg sets a register in the current register set. Intended for use by
// SWI hooks. Use Branch() to change the program counter.
func (arm *ARM) SetReg(n int, v uint32) {
	arm.state.R[n&0x0f] = v
}

// Branch to the address. Can be called from a SWI hook.
func (arm *ARM) Branch(addr uint32) {
	arm.setPC(addr)
}

// InstructionAddress returns the address of the instruction currently being
// executed.
func (arm *ARM) InstructionAddress() uint32 {
	return arm.executing
}

// Boot sets the ARM up in the mode and at the address specified. The stack
// pointer for each mode is taken from the map. Used to start execution
// without a boot ROM.
func (arm *ARM) Boot(entry uint32, mode Mode, stacks map[Mode]uint32) {
	for m, sp := range stacks {
		arm.state.BankedSP[m.bank()] = sp
	}
	arm.state.Status = Status{Mode: mode}
	arm.state.R[rSP] = arm.state.BankedSP[mode.bank()]
	arm.state.R[rLR] = arm.state.BankedLR[mode.bank()]
	arm.state.PC = entry
	arm.state.NonSeq = true
}

// Registers implements the cpu.Core interface.
func (arm *ARM) Registers() []cpu.Register {
	r := make([]cpu.Register, 0, 18)
	for i := 0; i < 13; i++ {
		r = append(r, cpu.Register{Name: fmt.Sprintf("R%d", i), Value: arm.state.R[i], Bits: 32})
	}
	r = append(r, cpu.Register{Name: "SP", Value: arm.state.R[rSP], Bits: 32})
	r = append(r, cpu.Register{Name: "LR", Value: arm.state.R[rLR], Bits: 32})
	r = append(r, cpu.Register{Name: "PC", Value: arm.state.PC, Bits: 32})
	r = append(r, cpu.Register{Name: "CPSR", Value: arm.state.Status.Word(), Bits: 32})
	if arm.state.Status.Mode.hasSPSR() {
		r = append(r, cpu.Register{Name: "SPSR", Value: arm.state.SPSR[arm.state.Status.Mode.bank()], Bits: 32})
	}
	return r
}

// SetRegister implements the cpu.Core interface. As well as the names returned
// by Registers(), banked registers can be set with names of the form SP_irq,
// LR_svc or SPSR_und.
func (arm *ARM) SetRegister(name string, value uint32) error {
	n := strings.ToUpper(name)

	switch n {
	case "SP":
		arm.state.R[rSP] = value
		return nil
	case "LR":
		arm.state.R[rLR] = value
		return nil
	case "PC", "R15":
		arm.state.PC = value
		arm.state.NonSeq = true
		return nil
	case "CPSR":
		arm.writeStatus(value, true, true, true)
		return nil
	case "SPSR":
		if !arm.state.Status.Mode.hasSPSR() {
			return cpu.UnknownRegisterError(name)
		}
		arm.state.SPSR[arm.state.Status.Mode.bank()] = value
		return nil
	}

	if strings.HasPrefix(n, "R") {
		i, err := strconv.Atoi(n[1:])
		if err == nil && i >= 0 && i < 15 {
			arm.state.R[i] = value
			return nil
		}
	}

	if p := strings.SplitN(name, "_", 2); len(p) == 2 {
		m, ok := modeFromName(strings.ToLower(p[1]))
		if ok {
			b := m.bank()
			current := arm.state.Status.Mode.bank() == b
			switch strings.ToUpper(p[0]) {
			case "SP":
				arm.state.BankedSP[b] = value
				if current {
					arm.state.R[rSP] = value
				}
				return nil
			case "LR":
				arm.state.BankedLR[b] = value
				if current {
					arm.state.R[rLR] = value
				}
				return nil
			case "SPSR":
				if m.hasSPSR() {
					arm.state.SPSR[b] = value
					return nil
				}
			}
		}
	}

	return cpu.UnknownRegisterError(name)
}

// Snapshot returns the state of the ARM.
func (arm *ARM) Snapshot() State {
	return arm.state
}

// Restore the state of the ARM. All translated code is discarded.
func (arm *ARM) Restore(s State) {
	arm.state = s
	arm.jit.InvalidateAll()
}

// Step implements the cpu.Core interface. When translation is enabled, Step()
// may execute more than one instruction.
func (arm *ARM) Step() (int, error) {
	arm.cycles = 0
	arm.fault = nil

	if arm.state.Halted {
		if !arm.ints.Asserted() {
			arm.tick(1)
			return arm.cycles, nil
		}
		arm.state.Halted = false
	}

	if arm.irqReady() {
		arm.interrupt()
		return arm.cycles, nil
	}

	if arm.jit.run() {
		return arm.cycles, arm.fault
	}

	arm.interpret()
	return arm.cycles, arm.fault
}

func (arm *ARM) irqReady() bool {
	return !arm.state.Status.IRQDisable && arm.ints.Ready()
}

// interpret a single instruction at the PC.
func (arm *ARM) interpret() {
	pc := arm.state.PC
	if arm.state.Status.Thumb {
		opcode := arm.fetch(pc, bus.HalfWord)
		f, _ := arm.decodeThumb(uint16(opcode))
		arm.execute(pc, 2, f)
	} else {
		opcode := arm.fetch(pc, bus.Word)
		f, _ := arm.decodeARM(opcode)
		arm.execute(pc, 4, f)
	}
}

func (arm *ARM) fetch(addr uint32, width bus.Width) uint32 {
	v := arm.mem.Read(addr, width)
	arm.tick(arm.mem.Cycles(addr, width, !arm.state.NonSeq))
	arm.state.NonSeq = false
	arm.state.Prefetch = v
	return v
}

// execute the decoded instruction found at addr. the fetch of the
// instruction should have already been costed.
func (arm *ARM) execute(addr uint32, size uint32, f decodeFunction) {
	arm.executing = addr
	arm.state.R[rPC] = addr + size*2
	arm.branched = false

	f()

	if arm.branched {
		arm.refill()
	} else {
		arm.state.PC = addr + size
	}
}

// refill the pipeline following a write to the PC. the alignment of the
// new PC depends on the instruction set in use after the branch.
func (arm *ARM) refill() {
	var target uint32
	var width bus.Width
	if arm.state.Status.Thumb {
		target = arm.state.R[rPC] &^ 0x01
		width = bus.HalfWord
	} else {
		target = arm.state.R[rPC] &^ 0x03
		width = bus.Word
	}
	arm.state.PC = target
	arm.tick(arm.mem.Cycles(target, width, false))
	arm.tick(arm.mem.Cycles(target+uint32(width), width, true))
	arm.state.NonSeq = false
	arm.branched = false
}

func (arm *ARM) setPC(v uint32) {
	arm.state.R[rPC] = v
	arm.branched = true
}

// interrupt takes the IRQ exception. the return address in the link register
// is such that SUBS PC, LR, #4 returns to the next instruction.
func (arm *ARM) interrupt() {
	arm.ints.Vector()
	arm.exception(ModeIRQ, vectorIRQ, arm.state.PC+4)
	arm.refill()
}

// exception enters the exception mode. lr is the value for the link register
// of the new mode.
func (arm *ARM) exception(mode Mode, vector uint32, lr uint32) {
	cpsr := arm.state.Status.Word()
	arm.switchMode(mode)
	arm.state.SPSR[mode.bank()] = cpsr
	arm.state.R[rLR] = lr
	arm.state.Status.Thumb = false
	arm.state.Status.IRQDisable = true
	if mode == ModeFIQ {
		arm.state.Status.FIQDisable = true
	}
	arm.setPC(vector)
}

// undefined instruction. the fault is reported to the caller of Step() and
// the undefined instruction exception is taken.
func (arm *ARM) undefined(opcode uint32) {
	size := uint32(4)
	if arm.state.Status.Thumb {
		size = 2
	}
	arm.fault = cpu.UndefinedInstructionFault{
		Architecture: arm.Architecture(),
		Address:      arm.executing,
		Opcode:       opcode,
		Recoverable:  true,
	}
	arm.exception(ModeUndefined, vectorUndefined, arm.executing+size)
}

// softwareInterrupt is called by the SWI instruction in both ARM and Thumb
// states.
func (arm *ARM) softwareInterrupt(function uint32) {
	if arm.swi != nil && arm.swi(function) {
		return
	}
	size := uint32(4)
	if arm.state.Status.Thumb {
		size = 2
	}
	arm.exception(ModeSupervisor, vectorSWI, arm.executing+size)
}

// switchMode changes the processor mode and swaps the banked registers.
func (arm *ARM) switchMode(mode Mode) {
	old := arm.state.Status.Mode
	if old == mode {
		return
	}

	ob := old.bank()
	nb := mode.bank()
	if ob != nb {
		arm.state.BankedSP[ob] = arm.state.R[rSP]
		arm.state.BankedLR[ob] = arm.state.R[rLR]
		arm.state.R[rSP] = arm.state.BankedSP[nb]
		arm.state.R[rLR] = arm.state.BankedLR[nb]
	}

	if old == ModeFIQ {
		copy(arm.state.BankedFIQ[:], arm.state.R[8:13])
		copy(arm.state.R[8:13], arm.state.BankedUser[:])
	} else if mode == ModeFIQ {
		copy(arm.state.BankedUser[:], arm.state.R[8:13])
		copy(arm.state.R[8:13], arm.state.BankedFIQ[:])
	}

	arm.state.Status.Mode = mode
}

// writeStatus writes to the CPSR. The flags and control arguments select
// which fields of the register are written. Control fields cannot be changed
// in user mode unless force is true.
func (arm *ARM) writeStatus(v uint32, flags bool, control bool, force bool) {
	if flags {
		arm.state.Status.setFlags(v)
	}
	if control && (force || arm.state.Status.Mode != ModeUser) {
		arm.state.Status.IRQDisable = v&0x80 == 0x80
		arm.state.Status.FIQDisable = v&0x40 == 0x40
		arm.state.Status.Thumb = v&0x20 == 0x20
		if m := Mode(v & 0x1f); m.valid() {
			arm.switchMode(m)
		}
	}
}

// spsr returns the SPSR for the current mode. modes without an SPSR return
// the CPSR.
func (arm *ARM) spsr() uint32 {
	if !arm.state.Status.Mode.hasSPSR() {
		return arm.state.Status.Word()
	}
	return arm.state.SPSR[arm.state.Status.Mode.bank()]
}

// restoreStatus copies the SPSR of the current mode to the CPSR. used when
// returning from an exception.
func (arm *ARM) restoreStatus() {
	if arm.state.Status.Mode.hasSPSR() {
		arm.writeStatus(arm.state.SPSR[arm.state.Status.Mode.bank()], true, true, true)
	}
}

// userRegister returns the user mode value of the register regardless of the
// current mode. used by LDM/STM with the S bit set.
func (arm *ARM) userRegister(n int) uint32 {
	mode := arm.state.Status.Mode
	switch {
	case n >= 8 && n <= 12 && mode == ModeFIQ:
		return arm.state.BankedUser[n-8]
	case n == rSP && mode.bank() != bankUser:
		return arm.state.BankedSP[bankUser]
	case n == rLR && mode.bank() != bankUser:
		return arm.state.BankedLR[bankUser]
	}
	return arm.state.R[n]
}

func (arm *ARM) setUserRegister(n int, v uint32) {
	mode := arm.state.Status.Mode
	switch {
	case n >= 8 && n <= 12 && mode == ModeFIQ:
		arm.state.BankedUser[n-8] = v
	case n == rSP && mode.bank() != bankUser:
		arm.state.BankedSP[bankUser] = v
	case n == rLR && mode.bank() != bankUser:
		arm.state.BankedLR[bankUser] = v
	default:
		arm.state.R[n] = v
	}
}

func (arm *ARM) tick(n int) {
	arm.cycles += n
	arm.ticker.Tick(n)
}

// idle consumes internal cycles.
func (arm *ARM) idle(n int) {
	arm.tick(n)
}

// read is a data read. the fetch following a data access is non-sequential.
func (arm *ARM) read(addr uint32, width bus.Width, seq bool) uint32 {
	v := arm.mem.Read(addr, width)
	arm.tick(arm.mem.Cycles(addr, width, seq))
	arm.state.NonSeq = true
	return v
}

// write is a data write.
func (arm *ARM) write(addr uint32, value uint32, width bus.Width, seq bool) {
	arm.mem.Write(addr, value, width)
	arm.tick(arm.mem.Cycles(addr, width, seq))
	arm.state.NonSeq = true
}

// readWord is a word read that rotates the value if the address is not word
// aligned.
func (arm *ARM) readWord(addr uint32) uint32 {
	v := arm.read(addr&^0x03, bus.Word, false)
	rot := (addr & 0x03) * 8
	return v>>rot | v<<((32-rot)&0x1f)
}

// readHalf is a halfword read. a misaligned unsigned halfword read is rotated
// by one byte.
func (arm *ARM) readHalf(addr uint32) uint32 {
	v := arm.read(addr&^0x01, bus.HalfWord, false)
	if addr&0x01 == 0x01 {
		v = v>>8 | v<<24
	}
	return v
}

// readSignedHalf is a signed halfword read. a misaligned read is treated as a
// signed byte read.
func (arm *ARM) readSignedHalf(addr uint32) uint32 {
	if addr&0x01 == 0x01 {
		return uint32(int32(int8(arm.read(addr, bus.Byte, false))))
	}
	return uint32(int32(int16(arm.read(addr, bus.HalfWord, false))))
}
