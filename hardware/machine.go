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
	"fmt"
	"hash/crc32"
	"image"
	"runtime"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/audio/mixer"
	"github.com/jetsetilly/gopherboy/hardware/gb"
	"github.com/jetsetilly/gopherboy/hardware/gba"
	"github.com/jetsetilly/gopherboy/hardware/input"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/hardware/preferences"
	"github.com/jetsetilly/gopherboy/logger"
	"github.com/klauspost/compress/zstd"
)

// Sentinal errors returned by the Machine.
const (
	RomFormatError = "rom format: %v"
	SessionDead    = "session dead: %v"
	BreakpointHit  = "breakpoint: %#08x"
)

// FrameOutput is the result of a call to RunFrame().
type FrameOutput struct {
	// the frame buffer is owned by the Machine and is overwritten by the
	// next call to RunFrame()
	Frame *image.RGBA

	// interleaved stereo samples at the output rate of the mixer. only
	// complete batches are included
	Audio []int16
}

// Machine is the emulation of a handheld games console. One of the System
// implementations is driven by the Machine.
type Machine struct {
	Prefs *preferences.Preferences

	sys   System
	mixer *mixer.Mixer

	// checksum of the cartridge image. used to tie savestates to the
	// cartridge they were made with
	romCRC uint32

	input  input.Buttons
	frames uint64

	breakpoints map[uint32]bool

	// the stop condition of the current run loop. checked by translated code
	done func() bool

	// translated code yields after every instruction while stepping
	stepping bool

	// the most recent undefined instruction fault
	fault error

	// non-nil once an invariant has been violated
	dead error

	// log entries are suppressed while quiet is true
	quiet bool

	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// LoadROM creates a Machine for the cartridge image. The kind of machine is
// decided by the header of the image. The prefs argument can be nil, in which
// case the default preferences are used.
func LoadROM(data []uint8, prefs *preferences.Preferences) (*Machine, error) {
	return LoadROMWithBIOS(data, nil, prefs)
}

// LoadROMWithBIOS is the same as LoadROM() except that the BIOS image is used
// for machines that have one. The BIOS is emulated if the argument is nil.
func LoadROMWithBIOS(data []uint8, bios []uint8, prefs *preferences.Preferences) (*Machine, error) {
	if prefs == nil {
		var err error
		prefs, err = preferences.NewPreferences()
		if err != nil {
			return nil, err
		}
	}

	var sampleRate int
	var create func(audio *mixer.Mixer) (System, error)

	switch {
	case gba.IsROM(data):
		sampleRate = gba.SampleRate
		create = func(audio *mixer.Mixer) (System, error) {
			return gba.NewSystem(data, bios, audio)
		}
	case gb.IsROM(data):
		sampleRate = gb.SampleRate
		create = func(audio *mixer.Mixer) (System, error) {
			return gb.NewSystem(data, prefs.Model(), audio)
		}
	default:
		// parse the image as a Game Boy cartridge so that the error says
		// something useful
		if _, err := gb.ParseHeader(data); err != nil {
			return nil, curated.Errorf(RomFormatError, err)
		}
		return nil, curated.Errorf(RomFormatError, "unrecognised cartridge image")
	}

	mix, err := mixer.NewMixer(sampleRate, prefs.AudioSampleRate.Get().(int), prefs.AudioBatch.Get().(int))
	if err != nil {
		return nil, err
	}

	sys, err := create(mix)
	if err != nil {
		if curated.Is(err, preferences.UnknownModel) {
			return nil, err
		}
		return nil, curated.Errorf(RomFormatError, err)
	}

	m, err := NewMachine(sys, mix, prefs)
	if err != nil {
		return nil, err
	}
	m.romCRC = crc32.ChecksumIEEE(data)

	return m, nil
}

// NewMachine creates a Machine for a System that has already been created.
// The mixer should be the same mixer the System pushes samples to. LoadROM()
// is the preferred method of creating a Machine.
func NewMachine(sys System, mix *mixer.Mixer, prefs *preferences.Preferences) (*Machine, error) {
	m := &Machine{
		Prefs:       prefs,
		sys:         sys,
		mixer:       mix,
		breakpoints: make(map[uint32]bool),
	}

	var err error
	m.encoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, curated.Errorf("machine: %v", err)
	}
	m.decoder, err = zstd.NewReader(nil)
	if err != nil {
		return nil, curated.Errorf("machine: %v", err)
	}

	sys.SetLogPermission(m)

	sys.Bus().SetAnomalyHook(func(a bus.Anomaly) {
		if m.Prefs.LogBusAnomalies.Get().(bool) {
			logger.Logf(m, "bus", "%v", a)
		}
	})

	if y, ok := sys.Core().(yielder); ok {
		y.SetYield(m.yield)
	}

	m.ApplyPreferences()

	logger.Logf(m, "machine", "%s", m)

	return m, nil
}

func (m *Machine) String() string {
	return fmt.Sprintf("%v [%s]", m.sys, m.sys.Core().Architecture())
}

// ApplyPreferences should be called after changing the hardware preferences.
func (m *Machine) ApplyPreferences() {
	tr := m.sys.Translator()
	if tr == nil {
		return
	}
	tr.SetEnabled(m.Prefs.JITEnabled.Get().(bool))
	tr.SetBlockLimit(m.Prefs.JITBlockLimit.Get().(int))
	if m.Prefs.JITBackground.Get().(bool) {
		tr.SetBackground(max(1, runtime.NumCPU()-1))
	} else {
		tr.SetBackground(0)
	}
}

// Close releases any resources held by the Machine.
func (m *Machine) Close() error {
	m.decoder.Close()
	if err := m.encoder.Close(); err != nil {
		return curated.Errorf("machine: %v", err)
	}
	if tr := m.sys.Translator(); tr != nil {
		return tr.Close()
	}
	return nil
}

// AllowLogging implements the logger.Permission interface.
func (m *Machine) AllowLogging() bool {
	return !m.quiet
}

// SetQuiet suppresses log entries made by the emulation. Used when
// re-simulating frames that have already been seen.
func (m *Machine) SetQuiet(quiet bool) {
	m.quiet = quiet
}

// Kind returns the name of the emulated machine.
func (m *Machine) Kind() string {
	return m.sys.Kind()
}

// ROMChecksum returns the CRC32 of the cartridge image the machine was
// created with. It is zero for machines created with NewMachine().
func (m *Machine) ROMChecksum() uint32 {
	return m.romCRC
}

// System returns the emulated machine.
func (m *Machine) System() System {
	return m.sys
}

// Mixer returns the audio mixer.
func (m *Machine) Mixer() *mixer.Mixer {
	return m.mixer
}

// ClockRate returns the number of cycles per second.
func (m *Machine) ClockRate() int {
	return m.sys.ClockRate()
}

// Now returns the current cycle.
func (m *Machine) Now() uint64 {
	return m.sys.Scheduler().Now()
}

// Frames returns the number of frames completed since the Machine was created.
func (m *Machine) Frames() uint64 {
	return m.frames
}

// Input returns the buttons most recently passed to SetInput().
func (m *Machine) Input() input.Buttons {
	return m.input
}

// SetInput sets the state of the buttons. The state is latched and applies
// until the next call to SetInput().
func (m *Machine) SetInput(buttons input.Buttons) {
	m.input = buttons
	m.sys.SetInput(buttons)
}

// Reset the machine to its power-on state. Persistent memory is retained.
func (m *Machine) Reset() {
	m.sys.Reset()
	m.sys.SetInput(m.input)
	m.fault = nil
	m.dead = nil
}

// PersistentMemory returns a copy of the battery backed memory of the
// cartridge. Returns nil if there is none.
func (m *Machine) PersistentMemory() []uint8 {
	p := m.sys.PersistentMemory()
	if p == nil {
		return nil
	}
	c := make([]uint8, len(p))
	copy(c, p)
	return c
}

// LoadPersistentMemory replaces the battery backed memory of the cartridge.
func (m *Machine) LoadPersistentMemory(data []uint8) error {
	return m.sys.LoadPersistentMemory(data)
}
