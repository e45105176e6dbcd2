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
	"fmt"
	"image"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/cpu/arm7"
	"github.com/jetsetilly/gopherboy/hardware/cpu/sm83"
	"github.com/jetsetilly/gopherboy/hardware/input"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/hardware/preferences"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
	"github.com/jetsetilly/gopherboy/logger"
)

// ClockRate is the number of dots per second.
const ClockRate = 4194304

// handler IDs for the scheduler
const (
	evPPU scheduler.HandlerID = iota
	evTimer
	evSample
	evSequencer
	evSerial
)

// Interrupt lines.
const (
	IntVBlank = iota
	IntSTAT
	IntTimer
	IntSerial
	IntJoypad
	numInterrupts
)

// a serial transfer with the internal clock takes eight bits at 8192Hz
const serialDots = 4096

// Sentinal error returned by SetState() when the state is not for a Game
// Boy.
const StateError = "gb: state: %v"

// IOState is the serialisable state of the IO registers that are not part of
// any other component.
type IOState struct {
	P1      uint8
	SB      uint8
	SC      uint8
	KEY1    uint8
	SVBK    uint8
	Double  bool
	Buttons input.Buttons

	// the CPU has consumed an odd number of cycles in double speed mode
	Remainder int
}

// State is the serialisable state of the entire machine.
type State struct {
	Scheduler  scheduler.State
	Bus        bus.State
	Interrupts interrupts.State
	CPU        sm83.State
	Cartridge  CartridgeState
	WRAM       []uint8
	HRAM       []uint8
	PPU        PPUState
	Timer      TimerState
	APU        APUState
	DMA        DMAState
	IO         IOState

	FrameComplete bool
}

// System is the Game Boy or Game Boy Color.
type System struct {
	// the machine is a Game Boy Color running a Game Boy Color cartridge
	CGB bool

	Cart  *Cartridge
	CPU   *sm83.CPU
	PPU   *PPU
	Timer *Timer
	APU   *APU
	DMA   *DMA

	sched *scheduler.Scheduler
	bus   *bus.Bus
	ints  *interrupts.Controller
	wram  *wram
	hram  *bus.RAM

	io IOState

	frameComplete bool

	perm logger.Permission
}

// NewSystem is the preferred method of initialisation for the System type.
// The model should be one of the model names in the preferences package. The
// sample stream is pushed to the audio argument, which can be nil.
func NewSystem(data []uint8, model string, audio Audio) (*System, error) {
	cart, err := NewCartridge(data)
	if err != nil {
		return nil, err
	}

	sys := &System{
		Cart:  cart,
		sched: scheduler.NewScheduler(),
		ints:  interrupts.NewController(interrupts.ClearOnVector, numInterrupts),
		perm:  logger.Allow,
	}

	switch model {
	case preferences.ModelAuto:
		sys.CGB = cart.Header.CGB
	case preferences.ModelCGB:
		sys.CGB = cart.Header.CGB
		if !cart.Header.CGB {
			logger.Log(logger.Allow, "gb", "cartridge does not support CGB mode. running in DMG mode")
		}
	case preferences.ModelDMG:
		if cart.Header.CGBOnly {
			return nil, curated.Errorf(CartridgeError, "cartridge requires a Game Boy Color")
		}
	default:
		return nil, curated.Errorf(preferences.UnknownModel, model)
	}

	sys.wram = &wram{svbk: &sys.io.SVBK}
	sys.PPU = newPPU(sys.sched, sys.ints, sys.CGB)
	sys.Timer = newTimer(sys.sched, sys.ints)
	sys.APU = newAPU(sys.sched, audio)

	if err := sys.mapMemory(); err != nil {
		return nil, err
	}

	sys.DMA = newDMA(sys.sched, sys.bus, sys.PPU, func() bool {
		return sys.io.Double
	})
	sys.PPU.vblank = func() {
		sys.frameComplete = true
	}
	sys.PPU.hblank = sys.DMA.hblank

	sys.sched.Register(evSerial, "serial", sys.serial)

	sys.CPU = sm83.NewCPU(sys.bus, sys.ints, sys)
	sys.CPU.SetStopHook(sys.stop)

	sys.Reset()

	logger.Logf(logger.Allow, "gb", "%s", cart)

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
	if sys.CGB {
		return "CGB"
	}
	return "DMG"
}

// Reset the machine to the state left by the boot ROM.
func (sys *System) Reset() {
	sys.sched.Reset()
	sys.bus.Restore(bus.State{})
	sys.ints.Reset()
	sys.ints.WritePending(1 << IntVBlank)

	sys.CPU.Reset()
	if sys.CGB {
		sys.CPU.SetPostBootColor()
	}

	sys.Cart.Reset()
	sys.wram.data = [8][0x1000]uint8{}
	sys.hram.Restore(make([]uint8, len(sys.hram.Data)))
	sys.io = IOState{P1: 0x30}

	sys.PPU.reset()
	sys.Timer.reset()
	sys.APU.reset()
	sys.DMA.reset()

	sys.frameComplete = false
}

// Tick implements the cpu.Ticker interface. The number of cycles is in CPU
// cycles, which are half a dot long in double speed mode.
func (sys *System) Tick(cycles int) {
	if sys.io.Double {
		cycles += sys.io.Remainder
		sys.io.Remainder = cycles & 0x01
		cycles >>= 1
	}
	sys.sched.Advance(uint64(cycles))
}

// Core returns the CPU.
func (sys *System) Core() cpu.Core {
	return sys.CPU
}

// Translator returns nil because the SM83 is never translated.
func (sys *System) Translator() *arm7.JIT {
	return nil
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

// SetInput sets the state of the buttons. The joypad interrupt is requested
// if a selected button has been pressed.
func (sys *System) SetInput(buttons input.Buttons) {
	before := sys.joypad()
	sys.io.Buttons = buttons & 0xff
	after := sys.joypad()
	if before&^after&0x0f != 0 {
		sys.ints.Raise(IntJoypad)
	}
}

// the value of the P1 register. a zero bit means the button is pressed
func (sys *System) joypad() uint8 {
	v := uint8(0x0f)
	if sys.io.P1&0x10 == 0 {
		v &^= uint8(sys.io.Buttons>>4) & 0x0f
	}
	if sys.io.P1&0x20 == 0 {
		v &^= uint8(sys.io.Buttons) & 0x0f
	}
	return 0xc0 | sys.io.P1 | v
}

func (sys *System) serial(_ uint32) {
	// there is never anything on the other end of the link cable
	sys.io.SB = 0xff
	sys.io.SC &^= 0x80
	sys.ints.Raise(IntSerial)
}

// stop is called when the CPU executes the STOP instruction. returns true if
// the speed was switched.
func (sys *System) stop() bool {
	if !sys.CGB || sys.io.KEY1&0x01 == 0 {
		return false
	}
	sys.io.KEY1 = 0
	sys.io.Double = !sys.io.Double
	sys.io.Remainder = 0
	sys.Timer.setDouble(sys.io.Double)
	logger.Logf(sys.perm, "gb", "double speed: %v", sys.io.Double)
	return true
}

// PersistentMemory returns the battery backed cartridge RAM. Returns nil if
// the cartridge has none.
func (sys *System) PersistentMemory() []uint8 {
	return sys.Cart.PersistentMemory()
}

// LoadPersistentMemory replaces the battery backed cartridge RAM.
func (sys *System) LoadPersistentMemory(data []uint8) error {
	return sys.Cart.LoadPersistentMemory(data)
}

// State returns the state of the machine. Must only be called between
// instructions.
func (sys *System) State() any {
	return &State{
		Scheduler:     sys.sched.Snapshot(),
		Bus:           sys.bus.Snapshot(),
		Interrupts:    sys.ints.Snapshot(),
		CPU:           sys.CPU.Snapshot(),
		Cartridge:     sys.Cart.Snapshot(),
		WRAM:          sys.wram.snapshot(),
		HRAM:          sys.hram.Snapshot(),
		PPU:           sys.PPU.state,
		Timer:         sys.Timer.state,
		APU:           sys.APU.snapshot(),
		DMA:           sys.DMA.state,
		IO:            sys.io,
		FrameComplete: sys.frameComplete,
	}
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
	if len(s.Cartridge.RAM) != len(sys.Cart.state.RAM) {
		return curated.Errorf(StateError, "cartridge RAM size does not match")
	}
	if len(s.WRAM) != len(sys.wram.data)*len(sys.wram.data[0]) || len(s.HRAM) != len(sys.hram.Data) {
		return curated.Errorf(StateError, "RAM size does not match")
	}
	if err := sys.sched.Restore(s.Scheduler); err != nil {
		return curated.Errorf(StateError, err)
	}

	sys.bus.Restore(s.Bus)
	sys.ints.Restore(s.Interrupts)
	sys.CPU.Restore(s.CPU)
	_ = sys.Cart.Restore(s.Cartridge)
	sys.wram.restore(s.WRAM)
	sys.hram.Restore(s.HRAM)
	sys.PPU.state = s.PPU
	sys.Timer.state = s.Timer
	sys.APU.restore(s.APU)
	sys.DMA.state = s.DMA
	sys.io = s.IO
	sys.frameComplete = s.FrameComplete

	return nil
}
