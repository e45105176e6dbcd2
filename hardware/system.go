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

package hardware

import (
	"image"

	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/cpu/arm7"
	"github.com/jetsetilly/gopherboy/hardware/input"
	"github.com/jetsetilly/gopherboy/hardware/interrupts"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
	"github.com/jetsetilly/gopherboy/logger"
)

// System is implemented by each of the emulated machines. The Machine type
// drives a System and provides the parts of the emulation that are common to
// all machines.
type System interface {
	// Kind is the name of the machine. States can only be restored to a
	// machine of the same kind.
	Kind() string

	Core() cpu.Core

	// Translator returns nil if the core has no translator.
	Translator() *arm7.JIT

	Scheduler() *scheduler.Scheduler
	Bus() *bus.Bus
	Interrupts() *interrupts.Controller

	Reset()

	// Tick advances the scheduler by a number of CPU cycles.
	Tick(cycles int)

	// ClockRate is the number of scheduler cycles per second. SampleRate is
	// the native rate of the audio stream.
	ClockRate() int
	SampleRate() int

	Frame() *image.RGBA
	FrameComplete() bool
	BeginFrame()

	SetInput(buttons input.Buttons)
	SetLogPermission(perm logger.Permission)

	// State returns a pointer to a gob encodable value. NewState returns an
	// empty value of the same type. SetState leaves the machine unchanged if
	// it returns an error.
	State() any
	NewState() any
	SetState(state any) error

	PersistentMemory() []uint8
	LoadPersistentMemory(data []uint8) error
}

// implemented by cores that run more than one instruction in a call to Step()
type yielder interface {
	SetYield(func() bool)
}
