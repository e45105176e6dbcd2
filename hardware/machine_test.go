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

package hardware_test

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"testing"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/hardware/audio/mixer"
	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/cpu/arm7"
	"github.com/jetsetilly/gopherboy/hardware/gb"
	"github.com/jetsetilly/gopherboy/hardware/gba"
	"github.com/jetsetilly/gopherboy/hardware/input"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/hardware/preferences"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
	"github.com/jetsetilly/gopherboy/logger"
	"github.com/jetsetilly/gopherboy/test"
)

// a Game Boy cartridge image with the program at the entry point
func gbROM(cartType uint8, ramSize uint8, program ...uint8) []uint8 {
	data := make([]uint8, 0x8000)
	copy(data[0x134:], "MACHINE")
	data[0x147] = cartType
	data[0x149] = ramSize
	copy(data[0x100:], program)
	var sum uint8
	for _, b := range data[0x134:0x14d] {
		sum = sum - b - 1
	}
	data[0x14d] = sum
	return data
}

// a Game Boy Advance cartridge image with the program at 0x080000c0
func gbaROM(program ...uint32) []uint8 {
	data := make([]uint8, 0x1000)
	binary.LittleEndian.PutUint32(data, 0xea00002e)
	copy(data[0xa0:], "MACHINE")
	copy(data[0xac:], "AMCH")
	data[0xb2] = 0x96
	var chk uint8
	for _, b := range data[0xa0:0xbd] {
		chk -= b
	}
	data[0xbd] = chk - 0x19
	for i, op := range program {
		binary.LittleEndian.PutUint32(data[0xc0+i*4:], op)
	}
	return data
}

// increments the byte at 0xc000 forever
var gbCounter = []uint8{
	0x21, 0x00, 0xc0, // ld hl, 0xc000
	0x34,       // inc (hl)
	0x18, 0xfd, // jr -3
}

// increments the word at 0x03000000 forever
var gbaCounter = []uint32{
	0xe3a00403, // mov r0, #0x03000000
	0xe5901000, // ldr r1, [r0]
	0xe2811001, // add r1, r1, #1
	0xe5801000, // str r1, [r0]
	0xeafffffb, // b 0x080000c4
}

func newPreferences(t *testing.T) *preferences.Preferences {
	t.Helper()
	prefs, err := preferences.NewPreferences()
	test.DemandSuccess(t, err)
	return prefs
}

func load(t *testing.T, data []uint8, prefs *preferences.Preferences) *hardware.Machine {
	t.Helper()
	m, err := hardware.LoadROM(data, prefs)
	test.DemandSuccess(t, err)
	t.Cleanup(func() {
		_ = m.Close()
	})
	return m
}

// the output of a number of frames, copied so that it survives the next call
// to RunFrame()
type recording struct {
	frames [][]uint8
	audio  []int16
}

func record(t *testing.T, m *hardware.Machine, n int, inputs func(frame int) input.Buttons) recording {
	t.Helper()
	var r recording
	for i := 0; i < n; i++ {
		m.SetInput(inputs(i))
		out, err := m.RunFrame()
		test.DemandSuccess(t, err)
		r.frames = append(r.frames, bytes.Clone(out.Frame.Pix))
		r.audio = append(r.audio, out.Audio...)
	}
	return r
}

func (r recording) equals(o recording) bool {
	if len(r.frames) != len(o.frames) || len(r.audio) != len(o.audio) {
		return false
	}
	for i := range r.frames {
		if !bytes.Equal(r.frames[i], o.frames[i]) {
			return false
		}
	}
	for i := range r.audio {
		if r.audio[i] != o.audio[i] {
			return false
		}
	}
	return true
}

func buttons(frame int) input.Buttons {
	switch frame % 4 {
	case 1:
		return input.A
	case 2:
		return input.A | input.Right
	}
	return input.None
}

func TestLoadROM(t *testing.T) {
	_, err := hardware.LoadROM(make([]uint8, 100), nil)
	test.ExpectSuccess(t, curated.Is(err, hardware.RomFormatError))

	// a Game Boy image with a bad header checksum
	data := gbROM(0x00, 0x00, gbCounter...)
	data[0x14d]++
	_, err = hardware.LoadROM(data, nil)
	test.ExpectSuccess(t, curated.Is(err, hardware.RomFormatError))

	m := load(t, gbROM(0x00, 0x00, gbCounter...), nil)
	test.ExpectEquality(t, m.Kind(), "DMG")
	test.ExpectEquality(t, m.ClockRate(), gb.ClockRate)

	data = gbROM(0x00, 0x00, gbCounter...)
	data[0x143] = 0x80
	data[0x14d] -= 0x80
	m = load(t, data, nil)
	test.ExpectEquality(t, m.Kind(), "CGB")

	prefs := newPreferences(t)
	test.DemandSuccess(t, prefs.GBModel.Set(preferences.ModelDMG))
	m = load(t, data, prefs)
	test.ExpectEquality(t, m.Kind(), "DMG")

	m = load(t, gbaROM(gbaCounter...), nil)
	test.ExpectEquality(t, m.Kind(), "GBA")
	test.ExpectEquality(t, m.ClockRate(), gba.ClockRate)
}

func TestRunFrame(t *testing.T) {
	m := load(t, gbROM(0x00, 0x00, gbCounter...), nil)

	out, err := m.RunFrame()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, out.Frame.Bounds(), image.Rect(0, 0, gb.ScreenWidth, gb.ScreenHeight))
	test.ExpectEquality(t, m.Frames(), uint64(1))
	test.ExpectInequality(t, m.Peek(0xc000), uint8(0))

	// the second frame is a full frame. the frame ends at the end of the
	// instruction during which the vertical blank started
	start := m.Now()
	_, err = m.RunFrame()
	test.DemandSuccess(t, err)
	test.ExpectApproximate(t, float64(m.Now()-start), gb.DotsPerFrame, 0.001)
	test.ExpectEquality(t, m.Frames(), uint64(2))

	m = load(t, gbaROM(gbaCounter...), nil)
	out, err = m.RunFrame()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, out.Frame.Bounds(), image.Rect(0, 0, gba.ScreenWidth, gba.ScreenHeight))
	start = m.Now()
	_, err = m.RunFrame()
	test.DemandSuccess(t, err)
	test.ExpectApproximate(t, float64(m.Now()-start), gba.CyclesPerFrame, 0.001)

	// audio is produced at the output rate of the mixer
	for i := 0; i < 60; i++ {
		out, err = m.RunFrame()
		test.DemandSuccess(t, err)
		test.ExpectEquality(t, len(out.Audio)%(m.Mixer().BatchSize()*2), 0)
	}
}

func TestDeterminism(t *testing.T) {
	for _, data := range [][]uint8{
		gbROM(0x00, 0x00, gbCounter...),
		gbaROM(gbaCounter...),
	} {
		a := load(t, data, nil)
		b := load(t, data, nil)

		ra := record(t, a, 10, buttons)
		rb := record(t, b, 10, buttons)
		test.ExpectSuccess(t, ra.equals(rb), a.Kind())

		sa, err := a.EncodeState(false)
		test.DemandSuccess(t, err)
		sb, err := b.EncodeState(false)
		test.DemandSuccess(t, err)
		test.ExpectSuccess(t, bytes.Equal(sa, sb), a.Kind())
	}
}

func TestTranslatorEquivalence(t *testing.T) {
	prefs := newPreferences(t)
	test.DemandSuccess(t, prefs.JITEnabled.Set(false))
	interp := load(t, gbaROM(gbaCounter...), prefs)

	prefs = newPreferences(t)
	test.DemandSuccess(t, prefs.JITEnabled.Set(true))
	jit := load(t, gbaROM(gbaCounter...), prefs)

	ri := record(t, interp, 5, buttons)
	rj := record(t, jit, 5, buttons)
	test.ExpectSuccess(t, ri.equals(rj))
	test.ExpectEquality(t, jit.Now(), interp.Now())
	test.ExpectEquality(t, jit.PC(), interp.PC())
	for a := uint32(0x03000000); a < 0x03000004; a++ {
		test.ExpectEquality(t, jit.Peek(a), interp.Peek(a))
	}
}

func TestSaveStateRoundTrip(t *testing.T) {
	for _, data := range [][]uint8{
		gbROM(0x03, 0x02, gbCounter...),
		gbaROM(gbaCounter...),
	} {
		m := load(t, data, nil)
		record(t, m, 3, buttons)

		for _, compress := range []bool{true, false} {
			s, err := m.EncodeState(compress)
			test.DemandSuccess(t, err)
			frames := m.Frames()

			before := record(t, m, 4, buttons)
			test.DemandSuccess(t, m.LoadState(s))
			test.ExpectEquality(t, m.Frames(), frames)
			after := record(t, m, 4, buttons)
			test.ExpectSuccess(t, before.equals(after), m.Kind(), compress)
		}
	}
}

func TestLoadStateErrors(t *testing.T) {
	m := load(t, gbaROM(gbaCounter...), nil)
	record(t, m, 2, buttons)

	s, err := m.SaveState()
	test.DemandSuccess(t, err)

	record(t, m, 1, buttons)
	unchanged, err := m.EncodeState(false)
	test.DemandSuccess(t, err)

	// version
	v := bytes.Clone(s)
	v[0]++
	err = m.LoadState(v)
	test.ExpectSuccess(t, curated.Is(err, hardware.StateVersionMismatch))

	// kind
	other := load(t, gbROM(0x00, 0x00, gbCounter...), nil)
	o, err := other.SaveState()
	test.DemandSuccess(t, err)
	err = m.LoadState(o)
	test.ExpectSuccess(t, curated.Is(err, hardware.StateVersionMismatch))

	// same kind but different cartridge
	other = load(t, gbaROM(gbaCounter[:4]...), nil)
	o, err = other.SaveState()
	test.DemandSuccess(t, err)
	err = m.LoadState(o)
	test.ExpectSuccess(t, curated.Is(err, hardware.StateVersionMismatch))

	// truncated in the header and in the payload
	err = m.LoadState(s[:6])
	test.ExpectSuccess(t, curated.Is(err, hardware.StateCorrupt))
	err = m.LoadState(s[:len(s)/2])
	test.ExpectSuccess(t, curated.Is(err, hardware.StateCorrupt))

	u, err := m.EncodeState(false)
	test.DemandSuccess(t, err)
	err = m.LoadState(u[:len(u)-len(u)/3])
	test.ExpectSuccess(t, curated.Is(err, hardware.StateCorrupt))

	// garbage payload
	g := bytes.Clone(u)
	for i := len(g) / 2; i < len(g); i++ {
		g[i] = 0xff
	}
	err = m.LoadState(g)
	test.ExpectSuccess(t, curated.Is(err, hardware.StateCorrupt))

	after, err := m.EncodeState(false)
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, bytes.Equal(unchanged, after))

	// a good state still loads
	test.DemandSuccess(t, m.LoadState(s))
}

func TestBreakpoint(t *testing.T) {
	m := load(t, gbaROM(gbaCounter...), nil)
	m.SetBreakpoint(0x080000c8)
	test.ExpectEquality(t, len(m.Breakpoints()), 1)

	_, err := m.RunFrame()
	test.ExpectSuccess(t, curated.Is(err, hardware.BreakpointHit))
	test.ExpectEquality(t, m.PC(), uint32(0x080000c8))
	test.ExpectEquality(t, m.Peek(0x03000000), uint8(0))

	// continuing from the breakpoint runs one iteration of the loop
	_, err = m.RunFrame()
	test.ExpectSuccess(t, curated.Is(err, hardware.BreakpointHit))
	test.ExpectEquality(t, m.PC(), uint32(0x080000c8))
	test.ExpectEquality(t, m.Peek(0x03000000), uint8(1))

	m.ClearBreakpoint(0x080000c8)
	test.ExpectEquality(t, len(m.Breakpoints()), 0)
	_, err = m.RunFrame()
	test.DemandSuccess(t, err)
}

func TestStep(t *testing.T) {
	m := load(t, gbaROM(gbaCounter...), nil)
	test.ExpectEquality(t, m.PC(), uint32(0x08000000))
	test.DemandSuccess(t, m.Step())
	test.ExpectEquality(t, m.PC(), uint32(0x080000c0))
	test.DemandSuccess(t, m.Step())
	test.ExpectEquality(t, m.PC(), uint32(0x080000c4))

	// breakpoints are ignored when stepping
	m.SetBreakpoint(0x080000c8)
	test.DemandSuccess(t, m.Step())
	test.DemandSuccess(t, m.Step())
	test.ExpectEquality(t, m.PC(), uint32(0x080000cc))
}

func TestFault(t *testing.T) {
	m := load(t, gbaROM(
		0xe7f000f0, // undefined
		0xeafffffe, // b .
	), nil)

	// the fault does not stop the frame
	_, err := m.RunFrame()
	test.DemandSuccess(t, err)

	var f cpu.UndefinedInstructionFault
	test.DemandSuccess(t, errors.As(m.Fault(), &f))
	test.ExpectEquality(t, f.Address, uint32(0x080000c0))
	test.ExpectEquality(t, f.Opcode, uint32(0xe7f000f0))
	test.ExpectSuccess(t, f.Recoverable)

	// an SM83 illegal opcode locks the core
	m = load(t, gbROM(0x00, 0x00, 0xd3), nil)
	test.ExpectSuccess(t, errors.As(m.Step(), &f))
	test.ExpectFailure(t, f.Recoverable)
	_, err = m.RunFrame()
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, m.System().Core().Halted())
}

func TestHaltedFrame(t *testing.T) {
	m := load(t, gbaROM(
		0xe3a00301, // mov r0, #0x04000000
		0xe2800c03, // add r0, r0, #0x300
		0xe3a01000, // mov r1, #0
		0xe5c01001, // strb r1, [r0, #1]
		0xeafffffe, // b .
	), nil)

	_, err := m.RunFrame()
	test.DemandSuccess(t, err)
	test.ExpectSuccess(t, m.System().Core().Halted())
	test.ExpectSuccess(t, m.Now() < gba.CyclesPerFrame)

	start := m.Now()
	_, err = m.RunFrame()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, m.Now()-start, uint64(gba.CyclesPerFrame))
}

func TestDebugAccess(t *testing.T) {
	m := load(t, gbROM(0x00, 0x00, 0x00, 0x18, 0xfd), nil)
	m.Poke(0xc123, 0x42)
	test.ExpectEquality(t, m.Peek(0xc123), uint8(0x42))

	m = load(t, gbaROM(gbaCounter...), nil)
	test.DemandSuccess(t, m.SetRegister("R5", 0x1234))
	var found bool
	for _, r := range m.Registers() {
		if r.Name == "R5" {
			found = true
			test.ExpectEquality(t, r.Value, uint32(0x1234))
		}
	}
	test.ExpectSuccess(t, found)
	test.ExpectSuccess(t, curated.Is(m.SetRegister("R99", 0), cpu.UnknownRegister))

	pending := m.Pending()
	test.ExpectInequality(t, len(pending), 0)
	for i := 1; i < len(pending); i++ {
		test.ExpectSuccess(t, pending[i-1].Due <= pending[i].Due)
	}
	test.ExpectInequality(t, m.HandlerName(pending[0]), "")
}

func TestPersistentMemory(t *testing.T) {
	m := load(t, gbROM(0x03, 0x02, gbCounter...), nil)
	p := m.PersistentMemory()
	test.ExpectEquality(t, len(p), 0x2000)
	p[0] = 0x55
	test.ExpectEquality(t, m.PersistentMemory()[0], uint8(0))
	test.DemandSuccess(t, m.LoadPersistentMemory(p))
	test.ExpectEquality(t, m.PersistentMemory()[0], uint8(0x55))

	m = load(t, gbROM(0x00, 0x00, gbCounter...), nil)
	test.ExpectSuccess(t, m.PersistentMemory() == nil)
}

// a minimal system used to test the Machine. the CPU executes a program in
// which every instruction takes four cycles
type toySystem struct {
	sched *scheduler.Scheduler
	mem   *bus.Bus
	ints  *interrupts.Controller
	core  *toyCore
	ram   *bus.RAM
	frame *image.RGBA

	complete bool

	// the frame event schedules itself in the past
	broken bool
}

const (
	toyFrame = 4000
	toyRAM   = 0x1000
)

func newToySystem(t *testing.T, program []uint8) *toySystem {
	t.Helper()
	sys := &toySystem{
		sched: scheduler.NewScheduler(),
		mem:   bus.NewBus("toy", 16, 8, false),
		ints:  interrupts.NewController(interrupts.ClearOnVector, 1),
		ram:   bus.NewRAM(0x100),
		frame: image.NewRGBA(image.Rect(0, 0, 1, 1)),
	}
	test.DemandSuccess(t, sys.mem.AddRegion(bus.Region{
		Name: "ROM", Start: 0x0000, End: uint32(len(program) - 1),
		Policy: bus.ReadOnly, Device: bus.NewROM(program, 0), Executable: true,
	}))
	test.DemandSuccess(t, sys.mem.AddRegion(bus.Region{
		Name: "RAM", Start: toyRAM, End: toyRAM + 0xff,
		Policy: bus.ReadWrite, Device: sys.ram,
	}))
	sys.core = &toyCore{sys: sys, size: uint32(len(program))}
	sys.sched.Register(0, "frame", sys.endFrame)
	sys.Reset()
	return sys
}

func (sys *toySystem) endFrame(_ uint32) {
	sys.complete = true
	if sys.broken {
		sys.sched.Schedule(sys.sched.Now()-1, 0, 0)
	}
	sys.sched.ScheduleIn(toyFrame, 0, 0)
}

func (sys *toySystem) Kind() string                         { return "toy" }
func (sys *toySystem) Core() cpu.Core                       { return sys.core }
func (sys *toySystem) Translator() *arm7.JIT                { return nil }
func (sys *toySystem) Scheduler() *scheduler.Scheduler      { return sys.sched }
func (sys *toySystem) Bus() *bus.Bus                        { return sys.mem }
func (sys *toySystem) Interrupts() *interrupts.Controller   { return sys.ints }
func (sys *toySystem) Tick(cycles int)                      { sys.sched.Advance(uint64(cycles)) }
func (sys *toySystem) ClockRate() int                       { return 1 << 20 }
func (sys *toySystem) SampleRate() int                      { return 1000 }
func (sys *toySystem) Frame() *image.RGBA                   { return sys.frame }
func (sys *toySystem) FrameComplete() bool                  { return sys.complete }
func (sys *toySystem) BeginFrame()                          { sys.complete = false }
func (sys *toySystem) SetInput(_ input.Buttons)             {}
func (sys *toySystem) SetLogPermission(_ logger.Permission) {}
func (sys *toySystem) PersistentMemory() []uint8            { return nil }
func (sys *toySystem) LoadPersistentMemory(_ []uint8) error { return nil }
func (sys *toySystem) NewState() any                        { return &toyState{} }

func (sys *toySystem) Reset() {
	sys.sched.Reset()
	sys.sched.Schedule(toyFrame, 0, 0)
	sys.core.Reset()
}

type toyState struct {
	Scheduler scheduler.State
	PC        uint32
	RAM       []uint8
	Complete  bool
}

func (sys *toySystem) State() any {
	return &toyState{
		Scheduler: sys.sched.Snapshot(),
		PC:        sys.core.pc,
		RAM:       sys.ram.Snapshot(),
		Complete:  sys.complete,
	}
}

func (sys *toySystem) SetState(v any) error {
	s := v.(*toyState)
	if err := sys.sched.Restore(s.Scheduler); err != nil {
		return err
	}
	sys.core.pc = s.PC
	sys.ram.Restore(s.RAM)
	sys.complete = s.Complete
	return nil
}

// each instruction is two bytes. opcode 0x01 stores the operand in the first
// byte of RAM. all other opcodes do nothing
type toyCore struct {
	sys  *toySystem
	pc   uint32
	size uint32
}

func (c *toyCore) Reset()               { c.pc = 0 }
func (c *toyCore) Halted() bool         { return false }
func (c *toyCore) Resume()              {}
func (c *toyCore) PC() uint32           { return c.pc }
func (c *toyCore) Architecture() string { return "toy" }

func (c *toyCore) Step() (int, error) {
	op := c.sys.mem.Read(c.pc, bus.Byte)
	operand := c.sys.mem.Read(c.pc+1, bus.Byte)
	if op == 0x01 {
		c.sys.mem.Write(toyRAM, operand, bus.Byte)
	}
	c.pc = (c.pc + 2) % c.size
	c.sys.Tick(4)
	return 4, nil
}

func (c *toyCore) Registers() []cpu.Register {
	return []cpu.Register{{Name: "PC", Value: c.pc, Bits: 16}}
}

func (c *toyCore) SetRegister(name string, value uint32) error {
	if name != "PC" {
		return cpu.UnknownRegisterError(name)
	}
	c.pc = value % c.size
	return nil
}

// 256 instructions. instruction n stores n+1 in RAM
func counterProgram() []uint8 {
	p := make([]uint8, 512)
	for i := 0; i < 256; i++ {
		p[i*2] = 0x01
		p[i*2+1] = uint8(i + 1)
	}
	return p
}

func newToyMachine(t *testing.T, sys *toySystem) *hardware.Machine {
	t.Helper()
	mix, err := mixer.NewMixer(sys.SampleRate(), 1000, 16)
	test.DemandSuccess(t, err)
	m, err := hardware.NewMachine(sys, mix, newPreferences(t))
	test.DemandSuccess(t, err)
	t.Cleanup(func() {
		_ = m.Close()
	})
	return m
}

func TestCounterScenario(t *testing.T) {
	sys := newToySystem(t, counterProgram())
	m := newToyMachine(t, sys)

	test.DemandSuccess(t, m.RunUntil(1000))
	test.ExpectEquality(t, m.Now(), uint64(1000))
	test.ExpectEquality(t, m.Peek(toyRAM), uint8((1000/4)%256))

	// the counter wraps
	test.DemandSuccess(t, m.RunUntil(1200))
	test.ExpectEquality(t, m.Peek(toyRAM), uint8((1200/4)%256))

	// the frame event ends the frame
	_, err := m.RunFrame()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, m.Now(), uint64(toyFrame))
	_, err = m.RunFrame()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, m.Now(), uint64(toyFrame*2))
}

func TestInvariantViolation(t *testing.T) {
	sys := newToySystem(t, counterProgram())
	sys.broken = true
	m := newToyMachine(t, sys)

	_, err := m.RunFrame()
	test.ExpectSuccess(t, curated.Is(err, hardware.SessionDead))
	test.ExpectSuccess(t, curated.Has(err, scheduler.InvariantViolation))
	test.ExpectSuccess(t, curated.Is(m.Dead(), hardware.SessionDead))

	// the session stays dead
	_, err = m.RunFrame()
	test.ExpectSuccess(t, curated.Is(err, hardware.SessionDead))
	test.ExpectSuccess(t, curated.Is(m.Step(), hardware.SessionDead))
	test.ExpectSuccess(t, curated.Is(m.RunUntil(m.Now()+100), hardware.SessionDead))
}
