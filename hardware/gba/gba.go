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
	"fmt"
	"image"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/cpu/arm7"
	"github.com/jetsetilly/gopherboy/hardware/input"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
	"github.com/jetsetilly/gopherboy/logger"
)

// ClockRate is the number of CPU cycles per second.
const ClockRate = 16777216

// handler IDs for the scheduler
const (
	evPPU scheduler.HandlerID = iota
	evTimer
	evSample
	evSequencer
	evDMA
)

// Interrupt lines.
const (
	IntVBlank = iota
	IntHBlank
	IntVCount
	IntTimer0
	IntTimer1
	IntTimer2
	IntTimer3
	IntSerial
	IntDMA0
	IntDMA1
	IntDMA2
	IntDMA3
	IntKeypad
	IntGamePak
	numInterrupts
)

// Sentinal error returned by SetState() when the state is not for this
// machine.
const StateError = "gba: state: %v"

// BIOSError is returned by NewSystem() when the BIOS image is unusable.
const BIOSError = "gba: bios: %v"

// size of a BIOS image
const biosSize = 0x4000

// IOState is the serialisable state of the IO registers. Registers that are
// maintained by other components are kept up to date by readIO().
type IOState struct {
	Registers [0x400]uint8
	Buttons   input.Buttons

	// the CPU is waiting in the IntrWait() BIOS function
	IntrWait bool
}

// State is the serialisable state of the entire machine.
type State struct {
	Scheduler  scheduler.State
	Bus        bus.State
	Interrupts interrupts.State
	CPU        arm7.State
	EWRAM      []uint8
	IWRAM      []uint8
	SRAM       []uint8
	Save       SaveState
	VRAM       []uint8
	Palette    []uint8
	OAM        []uint8
	PPU        PPUState
	Timers     [4]TimerState
	DMA        [4]DMAChannel
	Sound      SoundState
	IO         IOState

	FrameComplete bool
}

// System is the ARM successor to the Game Boy.
type System struct {
	Cart   *Cartridge
	CPU    *arm7.ARM
	PPU    *PPU
	Timers *Timers
	DMA    *DMA
	Sound  *Sound

	sched *scheduler.Scheduler
	bus   *bus.Bus
	ints  *interrupts.Controller
	waits waitStates

	bios  *bus.ROM
	ewram *bus.RAM
	iwram *bus.RAM

	io IOState

	// the BIOS is high level emulated
	hle bool

	perm logger.Permission

	frameComplete bool
}

// NewSystem is the preferred method of initialisation for the System type.
// The bios argument can be nil, in which case the BIOS calls are emulated. The
// sample stream is pushed to the audio argument, which can be nil.
func NewSystem(data []uint8, bios []uint8, audio Audio) (*System, error) {
	cart, err := NewCartridge(data)
	if err != nil {
		return nil, err
	}

	sys := &System{
		Cart:  cart,
		sched: scheduler.NewScheduler(),
		ints:  interrupts.NewController(interrupts.ClearOnWrite, numInterrupts),
		ewram: bus.NewRAM(0x40000),
		iwram: bus.NewRAM(0x8000),
		perm:  logger.Allow,
	}

	if bios == nil {
		sys.hle = true
		sys.bios = bus.NewROM(hleBIOS(), 0)
	} else {
		if len(bios) != biosSize {
			return nil, curated.Errorf(BIOSError, fmt.Sprintf("image should be %d bytes not %d", biosSize, len(bios)))
		}
		d := make([]uint8, biosSize)
		copy(d, bios)
		sys.bios = bus.NewROM(d, 0)
	}

	sys.PPU = newPPU(sys.sched, sys.ints, &sys.io.Registers)

	if err := sys.mapMemory(); err != nil {
		return nil, err
	}

	sys.DMA = newDMA(sys.bus, sys.ints, sys.sched, &sys.io.Registers)
	if sys.Cart.eeprom != nil {
		sys.DMA.eeprom = sys.Cart.eeprom.detect
	}
	sys.Sound = newSound(sys.sched, &sys.io.Registers, audio, sys.DMA)
	sys.Timers = newTimers(sys.sched, sys.ints, sys.Sound.timerOverflow)

	sys.PPU.vblank = func() {
		sys.frameComplete = true
		sys.DMA.vblank()
	}
	sys.PPU.hblank = sys.DMA.hblank

	sys.CPU = arm7.NewARM(sys.bus, sys.ints, sys)
	sys.connectCPU()
	if sys.hle {
		sys.CPU.SetSWIHook(sys.swi)
	}

	sys.Reset()

	logger.Logf(logger.Allow, "gba", "%s", cart)

	return sys, nil
}

func (sys *System) String() string {
	return fmt.Sprintf("%s %s", sys.Kind(), sys.Cart)
}

// SetLogPermission sets the permission used for log entries made while the
// machine is running.
func (sys *System) SetLogPermission(perm logger.Permission) {
	sys.perm = perm
}

// Kind returns the name of the machine. States can only be restored to a
// machine of the same kind.
func (sys *System) Kind() string {
	return "GBA"
}

// Reset the machine. If the BIOS is emulated then execution begins at the
// start of the cartridge, as it would be at the end of the boot sequence.
func (sys *System) Reset() {
	sys.sched.Reset()
	sys.bus.Restore(bus.State{})
	sys.ints.Reset()

	sys.ewram.Restore(make([]uint8, len(sys.ewram.Data)))
	sys.iwram.Restore(make([]uint8, len(sys.iwram.Data)))

	sys.io = IOState{}
	sys.waits.set(0)

	// the affine backgrounds start with the identity transformation
	for _, o := range []uint32{regBG2PA, regBG2PA + 6, regBG3PA, regBG3PA + 6} {
		sys.store(o, 0x0100)
	}

	sys.PPU.reset()
	sys.Timers.reset()
	sys.DMA.reset()
	sys.Sound.reset()
	sys.Cart.reset()

	sys.CPU.Reset()
	if sys.hle {
		sys.softReset()
	}

	sys.frameComplete = false
}

// Tick implements the cpu.Ticker interface.
func (sys *System) Tick(cycles int) {
	sys.sched.Advance(uint64(cycles))
}

// Core returns the CPU.
func (sys *System) Core() cpu.Core {
	return sys.CPU
}

// Translator returns the JIT of the CPU.
func (sys *System) Translator() *arm7.JIT {
	return sys.CPU.JIT()
}

// Scheduler returns the event scheduler of the machine.
func (sys *System) Scheduler() *scheduler.Scheduler {
	return sys.sched
}

// Bus returns the memory bus of the machine.
func (sys *System) Bus() *bus.Bus {
	return sys.bus
}

// Interrupts returns the interrupt controller of the machine.
func (sys *System) Interrupts() *interrupts.Controller {
	return sys.ints
}

// ClockRate returns the number of scheduler cycles per second.
func (sys *System) ClockRate() int {
	return ClockRate
}

// SampleRate returns the native sample rate of the audio stream.
func (sys *System) SampleRate() int {
	return SampleRate
}

// Frame returns the frame buffer. The contents are only complete when
// FrameComplete() returns true.
func (sys *System) Frame() *image.RGBA {
	return sys.PPU.frame
}

// FrameComplete returns true if the vertical blank has started since the
// last call to BeginFrame().
func (sys *System) FrameComplete() bool {
	return sys.frameComplete
}

// BeginFrame clears the frame complete flag.
func (sys *System) BeginFrame() {
	sys.frameComplete = false
}

// SetInput sets the state of the buttons. The keypad interrupt is requested
// if the condition set by KEYCNT is met.
func (sys *System) SetInput(buttons input.Buttons) {
	sys.io.Buttons = buttons & input.All
	sys.keypad()
}

// check the keypad interrupt condition
func (sys *System) keypad() {
	keycnt := sys.reg(0x132)
	if keycnt&0x4000 == 0 {
		return
	}
	sel := input.Buttons(keycnt) & input.All
	pressed := sys.io.Buttons & sel
	if keycnt&0x8000 == 0x8000 {
		// logical AND. every selected button must be pressed
		if sel != 0 && pressed == sel {
			sys.ints.Raise(IntKeypad)
		}
	} else if pressed != 0 {
		sys.ints.Raise(IntKeypad)
	}
}

// PersistentMemory returns the cartridge save memory. Returns nil if the
// cartridge has none.
func (sys *System) PersistentMemory() []uint8 {
	return sys.Cart.PersistentMemory()
}

// LoadPersistentMemory replaces the cartridge save memory.
func (sys *System) LoadPersistentMemory(data []uint8) error {
	return sys.Cart.LoadPersistentMemory(data)
}

// State returns the state of the machine. Must only be called between
// instructions.
func (sys *System) State() any {
	s := &State{
		Scheduler:     sys.sched.Snapshot(),
		Bus:           sys.bus.Snapshot(),
		Interrupts:    sys.ints.Snapshot(),
		CPU:           sys.CPU.Snapshot(),
		EWRAM:         sys.ewram.Snapshot(),
		IWRAM:         sys.iwram.Snapshot(),
		SRAM:          sys.Cart.PersistentMemory(),
		Save:          sys.Cart.saveState(),
		VRAM:          append([]uint8(nil), sys.PPU.vram.data[:]...),
		Palette:       append([]uint8(nil), sys.PPU.palette.data[:]...),
		OAM:           append([]uint8(nil), sys.PPU.oam.data[:]...),
		PPU:           sys.PPU.state,
		Timers:        sys.Timers.state,
		DMA:           sys.DMA.state,
		Sound:         sys.Sound.snapshot(),
		IO:            sys.io,
		FrameComplete: sys.frameComplete,
	}
	return s
}

// NewState returns an empty value suitable for decoding a state into.
func (sys *System) NewState() any {
	return &State{}
}

// SetState replaces the state of the machine with a value returned by
// State(). The machine is unchanged if an error is returned.
func (sys *System) SetState(v any) error {
	s, ok := v.(*State)
	if !ok {
		return curated.Errorf(StateError, fmt.Sprintf("unexpected type %T", v))
	}
	if len(s.EWRAM) != len(sys.ewram.Data) || len(s.IWRAM) != len(sys.iwram.Data) {
		return curated.Errorf(StateError, "RAM size does not match")
	}
	if len(s.VRAM) != len(sys.PPU.vram.data) || len(s.Palette) != len(sys.PPU.palette.data) || len(s.OAM) != len(sys.PPU.oam.data) {
		return curated.Errorf(StateError, "video memory size does not match")
	}
	if len(s.SRAM) != len(sys.Cart.PersistentMemory()) {
		return curated.Errorf(StateError, "save memory size does not match")
	}
	if err := sys.sched.Restore(s.Scheduler); err != nil {
		return curated.Errorf(StateError, err)
	}

	sys.bus.Restore(s.Bus)
	sys.ints.Restore(s.Interrupts)
	sys.CPU.Restore(s.CPU)
	sys.ewram.Restore(s.EWRAM)
	sys.iwram.Restore(s.IWRAM)
	if s.SRAM != nil {
		_ = sys.Cart.LoadPersistentMemory(s.SRAM)
	}
	sys.Cart.setSaveState(s.Save)
	copy(sys.PPU.vram.data[:], s.VRAM)
	copy(sys.PPU.palette.data[:], s.Palette)
	copy(sys.PPU.oam.data[:], s.OAM)
	sys.PPU.state = s.PPU
	sys.Timers.state = s.Timers
	sys.DMA.state = s.DMA
	sys.Sound.restore(s.Sound)
	sys.io = s.IO
	sys.frameComplete = s.FrameComplete

	// derived state
	sys.PPU.displayMode(sys.reg(0x000))
	sys.waits.set(sys.reg(0x204))

	return nil
}
