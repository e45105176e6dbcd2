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

package psg

// Register offsets from NR10.
const (
	NR10 = 0x00
	NR11 = 0x01
	NR12 = 0x02
	NR13 = 0x03
	NR14 = 0x04
	NR21 = 0x06
	NR22 = 0x07
	NR23 = 0x08
	NR24 = 0x09
	NR30 = 0x0a
	NR31 = 0x0b
	NR32 = 0x0c
	NR33 = 0x0d
	NR34 = 0x0e
	NR41 = 0x10
	NR42 = 0x11
	NR43 = 0x12
	NR44 = 0x13
	NR50 = 0x14
	NR51 = 0x15
	NR52 = 0x16

	NumRegisters = 0x17
)

// bits that always read as one
var readMask = [NumRegisters]uint8{
	0x80, 0x3f, 0x00, 0xff, 0xbf,
	0xff, 0x3f, 0x00, 0xff, 0xbf,
	0x7f, 0xff, 0x9f, 0xff, 0xbf,
	0xff, 0xff, 0x00, 0x00, 0xbf,
	0x00, 0x00, 0x70,
}

// the number of PSG cycles between frame sequencer steps (512Hz)
const SequencerPeriod = 8192

var dutyTable = [4]uint8{
	0b00000001,
	0b10000001,
	0b10000111,
	0b01111110,
}

var noiseDivisor = [8]int{8, 16, 32, 48, 64, 80, 96, 112}

// channel identifiers
const (
	Square1 = iota
	Square2
	Wave
	Noise
	NumChannels
)

// Channel is the state of a single sound channel. Not every field is used by
// every type of channel.
type Channel struct {
	Enabled      bool
	DAC          bool
	Length       int
	LengthEnable bool

	Volume      int
	EnvInitial  int
	EnvPeriod   int
	EnvTimer    int
	EnvIncrease bool

	Frequency int
	Timer     int

	Duty    int
	DutyPos int

	SweepPeriod  int
	SweepShift   int
	SweepTimer   int
	SweepNegate  bool
	SweepEnabled bool
	Shadow       int

	WavePos    int
	WaveVolume int

	LFSR        uint16
	Narrow      bool
	ClockShift  int
	DivisorCode int
}

// State is the serialisable state of the PSG.
type State struct {
	Registers [NumRegisters]uint8
	Channels  [NumChannels]Channel
	WaveRAM   [32]uint8
	Power     bool
	Sequencer int

	// cycles that have been ticked but not yet applied to the channels
	Remainder int
}

// PSG is the programmable sound generator.
type PSG struct {
	// system cycles per PSG cycle expressed as a shift
	clockShift uint

	// wave RAM has two banks
	banked bool

	state State
}

// NewPSG is the preferred method of initialisation for the PSG type. The clock
// shift is the number of bits to shift the system cycle count to get the PSG
// cycle count. If banked is true then wave RAM has two banks, as on the ARM
// successor machine.
func NewPSG(clockShift uint, banked bool) *PSG {
	p := &PSG{
		clockShift: clockShift,
		banked:     banked,
	}
	p.Reset()
	return p
}

// Reset the PSG. The PSG is powered on.
func (p *PSG) Reset() {
	p.state = State{}
	p.state.Power = true
	p.state.Registers[NR52] = 0x80
}

// Snapshot returns the state of the PSG.
func (p *PSG) Snapshot() State {
	return p.state
}

// Restore the state of the PSG.
func (p *PSG) Restore(s State) {
	p.state = s
}

// Read a register.
func (p *PSG) Read(reg int) uint8 {
	if reg < 0 || reg >= NumRegisters {
		return 0xff
	}
	if reg == NR52 {
		v := readMask[NR52]
		if p.state.Power {
			v |= 0x80
		}
		for i := range p.state.Channels {
			if p.state.Channels[i].Enabled {
				v |= 1 << i
			}
		}
		return v
	}
	return p.state.Registers[reg] | readMask[reg]
}

// Write a register.
func (p *PSG) Write(reg int, v uint8) {
	if reg < 0 || reg >= NumRegisters {
		return
	}

	if reg == NR52 {
		power := v&0x80 == 0x80
		if p.state.Power && !power {
			wave := p.state.WaveRAM
			p.state = State{Remainder: p.state.Remainder}
			p.state.WaveRAM = wave
		} else if !p.state.Power && power {
			p.state.Sequencer = 0
		}
		p.state.Power = power
		return
	}

	if !p.state.Power {
		return
	}

	p.state.Registers[reg] = v

	switch reg {
	case NR10:
		ch := &p.state.Channels[Square1]
		ch.SweepPeriod = int(v>>4) & 0x07
		ch.SweepNegate = v&0x08 == 0x08
		ch.SweepShift = int(v & 0x07)
	case NR11, NR21:
		ch := &p.state.Channels[reg/5]
		ch.Duty = int(v >> 6)
		ch.Length = 64 - int(v&0x3f)
	case NR12, NR22, NR42:
		ch := &p.state.Channels[reg/5]
		p.envelope(ch, v)
	case NR13, NR23, NR33:
		ch := &p.state.Channels[reg/5]
		ch.Frequency = ch.Frequency&0x700 | int(v)
	case NR14, NR24, NR34:
		i := reg / 5
		ch := &p.state.Channels[i]
		ch.Frequency = ch.Frequency&0xff | int(v&0x07)<<8
		ch.LengthEnable = v&0x40 == 0x40
		if v&0x80 == 0x80 {
			p.trigger(i)
		}
	case NR30:
		ch := &p.state.Channels[Wave]
		ch.DAC = v&0x80 == 0x80
		if !ch.DAC {
			ch.Enabled = false
		}
	case NR31:
		p.state.Channels[Wave].Length = 256 - int(v)
	case NR32:
		p.state.Channels[Wave].WaveVolume = int(v>>5) & 0x03
	case NR41:
		p.state.Channels[Noise].Length = 64 - int(v&0x3f)
	case NR43:
		ch := &p.state.Channels[Noise]
		ch.ClockShift = int(v >> 4)
		ch.Narrow = v&0x08 == 0x08
		ch.DivisorCode = int(v & 0x07)
	case NR44:
		ch := &p.state.Channels[Noise]
		ch.LengthEnable = v&0x40 == 0x40
		if v&0x80 == 0x80 {
			p.trigger(Noise)
		}
	}
}

func (p *PSG) envelope(ch *Channel, v uint8) {
	ch.EnvInitial = int(v >> 4)
	ch.EnvIncrease = v&0x08 == 0x08
	ch.EnvPeriod = int(v & 0x07)
	ch.DAC = v&0xf8 != 0
	if !ch.DAC {
		ch.Enabled = false
	}
}

// wave RAM bank used for playback and the bank visible to the CPU
func (p *PSG) waveBanks() (play int, cpu int) {
	if !p.banked {
		return 0, 0
	}
	if p.state.Registers[NR30]&0x40 == 0x40 {
		return 1, 0
	}
	return 0, 1
}

// ReadWave reads a byte of wave RAM. The index is in the range 0 to 15.
func (p *PSG) ReadWave(i int) uint8 {
	_, bank := p.waveBanks()
	return p.state.WaveRAM[bank*16+i&0x0f]
}

// WriteWave writes a byte of wave RAM. The index is in the range 0 to 15.
func (p *PSG) WriteWave(i int, v uint8) {
	_, bank := p.waveBanks()
	p.state.WaveRAM[bank*16+i&0x0f] = v
}

func (p *PSG) trigger(i int) {
	ch := &p.state.Channels[i]
	ch.Enabled = ch.DAC

	if ch.Length == 0 {
		if i == Wave {
			ch.Length = 256
		} else {
			ch.Length = 64
		}
	}

	ch.Timer = p.period(i)
	ch.Volume = ch.EnvInitial
	ch.EnvTimer = ch.EnvPeriod

	switch i {
	case Square1:
		ch.Shadow = ch.Frequency
		ch.SweepTimer = ch.SweepPeriod
		if ch.SweepTimer == 0 {
			ch.SweepTimer = 8
		}
		ch.SweepEnabled = ch.SweepPeriod != 0 || ch.SweepShift != 0
		if ch.SweepShift != 0 {
			p.sweep(ch)
		}
	case Wave:
		ch.WavePos = 0
	case Noise:
		ch.LFSR = 0x7fff
	}
}

// period of the channel's frequency timer in PSG cycles
func (p *PSG) period(i int) int {
	ch := &p.state.Channels[i]
	switch i {
	case Wave:
		return (2048 - ch.Frequency) * 2
	case Noise:
		return noiseDivisor[ch.DivisorCode] << ch.ClockShift
	}
	return (2048 - ch.Frequency) * 4
}

// sweep calculates the next frequency for the sweep unit and disables the
// channel on overflow.
func (p *PSG) sweep(ch *Channel) int {
	d := ch.Shadow >> ch.SweepShift
	f := ch.Shadow + d
	if ch.SweepNegate {
		f = ch.Shadow - d
	}
	if f > 2047 {
		ch.Enabled = false
	}
	return f
}

// Tick the PSG by the number of system cycles.
func (p *PSG) Tick(cycles int) {
	p.state.Remainder += cycles
	n := p.state.Remainder >> p.clockShift
	p.state.Remainder -= n << p.clockShift

	if n == 0 || !p.state.Power {
		return
	}

	for i := range p.state.Channels {
		ch := &p.state.Channels[i]
		if !ch.Enabled {
			continue
		}
		ch.Timer -= n
		for ch.Timer <= 0 {
			ch.Timer += p.period(i)
			p.step(i, ch)
		}
	}
}

// step the waveform generator of the channel
func (p *PSG) step(i int, ch *Channel) {
	switch i {
	case Square1, Square2:
		ch.DutyPos = (ch.DutyPos + 1) & 0x07
	case Wave:
		samples := 32
		if p.banked && p.state.Registers[NR30]&0x20 == 0x20 {
			samples = 64
		}
		ch.WavePos = (ch.WavePos + 1) % samples
	case Noise:
		x := (ch.LFSR ^ ch.LFSR>>1) & 0x01
		ch.LFSR = ch.LFSR>>1 | x<<14
		if ch.Narrow {
			ch.LFSR = ch.LFSR&^0x40 | x<<6
		}
	}
}

// StepSequencer advances the frame sequencer. Should be called every
// SequencerPeriod PSG cycles.
func (p *PSG) StepSequencer() {
	if !p.state.Power {
		return
	}

	step := p.state.Sequencer
	p.state.Sequencer = (step + 1) & 0x07

	if step&0x01 == 0 {
		for i := range p.state.Channels {
			ch := &p.state.Channels[i]
			if ch.LengthEnable && ch.Length > 0 {
				ch.Length--
				if ch.Length == 0 {
					ch.Enabled = false
				}
			}
		}
	}

	if step == 2 || step == 6 {
		ch := &p.state.Channels[Square1]
		ch.SweepTimer--
		if ch.SweepTimer <= 0 {
			ch.SweepTimer = ch.SweepPeriod
			if ch.SweepTimer == 0 {
				ch.SweepTimer = 8
			}
			if ch.SweepEnabled && ch.SweepPeriod != 0 {
				f := p.sweep(ch)
				if f <= 2047 && ch.SweepShift != 0 {
					ch.Frequency = f
					ch.Shadow = f
					p.sweep(ch)
				}
			}
		}
	}

	if step == 7 {
		for _, i := range []int{Square1, Square2, Noise} {
			ch := &p.state.Channels[i]
			if ch.EnvPeriod == 0 {
				continue
			}
			ch.EnvTimer--
			if ch.EnvTimer <= 0 {
				ch.EnvTimer = ch.EnvPeriod
				if ch.EnvIncrease && ch.Volume < 15 {
					ch.Volume++
				} else if !ch.EnvIncrease && ch.Volume > 0 {
					ch.Volume--
				}
			}
		}
	}
}

// output of the channel's DAC in the range -15 to 15
func (p *PSG) output(i int) int {
	ch := &p.state.Channels[i]
	if !ch.DAC {
		return 0
	}

	var d int
	if ch.Enabled {
		switch i {
		case Square1, Square2:
			if dutyTable[ch.Duty]&(0x80>>ch.DutyPos) != 0 {
				d = ch.Volume
			}
		case Wave:
			play, _ := p.waveBanks()
			idx := ch.WavePos/2 + play*16
			b := p.state.WaveRAM[idx&0x1f]
			if ch.WavePos&0x01 == 0 {
				b >>= 4
			}
			b &= 0x0f
			if ch.WaveVolume == 0 {
				b = 0
			} else {
				b >>= ch.WaveVolume - 1
			}
			d = int(b)
		case Noise:
			if ch.LFSR&0x01 == 0 {
				d = ch.Volume
			}
		}
	}

	return d*2 - 15
}

// Channel returns the output of a single channel in the range -15 to 15.
func (p *PSG) Channel(i int) int {
	return p.output(i)
}

// Sample returns the current output of the PSG for the left and right
// outputs, after panning and master volume. Each value is in the range -480
// to 480.
func (p *PSG) Sample() (int, int) {
	if !p.state.Power {
		return 0, 0
	}

	pan := p.state.Registers[NR51]
	var left, right int
	for i := 0; i < NumChannels; i++ {
		o := p.output(i)
		if pan&(0x10<<i) != 0 {
			left += o
		}
		if pan&(0x01<<i) != 0 {
			right += o
		}
	}

	vol := p.state.Registers[NR50]
	left *= int(vol>>4&0x07) + 1
	right *= int(vol&0x07) + 1
	return left, right
}
