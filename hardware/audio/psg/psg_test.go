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

package psg_test

import (
	"testing"

	"github.com/jetsetilly/gopherboy/hardware/audio/psg"
	"github.com/jetsetilly/gopherboy/test"
)

func TestTriggerAndStatus(t *testing.T) {
	p := psg.NewPSG(0, false)
	test.ExpectEquality(t, p.Read(psg.NR52), uint8(0xf0))

	// channel is not enabled if the DAC is off
	p.Write(psg.NR24, 0x80)
	test.ExpectEquality(t, p.Read(psg.NR52), uint8(0xf0))

	p.Write(psg.NR22, 0xf0)
	p.Write(psg.NR24, 0x80)
	test.ExpectEquality(t, p.Read(psg.NR52), uint8(0xf2))

	// turning the DAC off disables the channel
	p.Write(psg.NR22, 0x00)
	test.ExpectEquality(t, p.Read(psg.NR52), uint8(0xf0))
}

func TestReadMask(t *testing.T) {
	p := psg.NewPSG(0, false)
	p.Write(psg.NR11, 0x85)
	test.ExpectEquality(t, p.Read(psg.NR11), uint8(0xbf))
	p.Write(psg.NR13, 0x12)
	test.ExpectEquality(t, p.Read(psg.NR13), uint8(0xff))
}

func TestLengthCounter(t *testing.T) {
	p := psg.NewPSG(0, false)
	p.Write(psg.NR12, 0xf0)

	// length of 2 steps of the 256Hz clock
	p.Write(psg.NR11, 62)
	p.Write(psg.NR14, 0xc0)
	test.ExpectEquality(t, p.Read(psg.NR52)&0x01, uint8(0x01))

	// the length counter is clocked on every other step of the sequencer
	p.StepSequencer()
	p.StepSequencer()
	test.ExpectEquality(t, p.Read(psg.NR52)&0x01, uint8(0x01))
	p.StepSequencer()
	test.ExpectEquality(t, p.Read(psg.NR52)&0x01, uint8(0x00))
}

func TestPowerOff(t *testing.T) {
	p := psg.NewPSG(0, false)
	p.WriteWave(0, 0xab)
	p.Write(psg.NR50, 0x77)
	p.Write(psg.NR52, 0x00)
	test.ExpectEquality(t, p.Read(psg.NR52), uint8(0x70))
	test.ExpectEquality(t, p.Read(psg.NR50), uint8(0x00))

	// registers cannot be written while powered off
	p.Write(psg.NR50, 0x77)
	test.ExpectEquality(t, p.Read(psg.NR50), uint8(0x00))

	// wave RAM is not affected by power
	test.ExpectEquality(t, p.ReadWave(0), uint8(0xab))
}

func TestSquareOutput(t *testing.T) {
	p := psg.NewPSG(0, false)
	p.Write(psg.NR50, 0x77)
	p.Write(psg.NR51, 0x11)

	// 50% duty at full volume
	p.Write(psg.NR11, 0x80)
	p.Write(psg.NR12, 0xf0)
	p.Write(psg.NR13, 0x00)
	p.Write(psg.NR14, 0x87)

	// the period of each duty step is (2048-0x700)*4 cycles
	var high, low int
	for i := 0; i < 8; i++ {
		l, r := p.Sample()
		test.ExpectEquality(t, l, r)
		if l > 0 {
			high++
		} else {
			low++
		}
		p.Tick((2048 - 0x700) * 4)
	}
	test.ExpectEquality(t, high, 4)
	test.ExpectEquality(t, low, 4)
}

func TestSweepOverflow(t *testing.T) {
	p := psg.NewPSG(0, false)
	p.Write(psg.NR12, 0xf0)

	// a shift of one on a frequency above 1365 overflows immediately
	p.Write(psg.NR10, 0x11)
	p.Write(psg.NR13, 0xff)
	p.Write(psg.NR14, 0x85)
	test.ExpectEquality(t, p.Read(psg.NR52)&0x01, uint8(0x00))
}

func TestNoise(t *testing.T) {
	p := psg.NewPSG(0, false)
	p.Write(psg.NR42, 0xf0)
	p.Write(psg.NR43, 0x00)
	p.Write(psg.NR44, 0x80)

	// the output must change at least once in a run of steps
	first := p.Channel(psg.Noise)
	changed := false
	for i := 0; i < 32; i++ {
		p.Tick(8)
		if p.Channel(psg.Noise) != first {
			changed = true
		}
	}
	test.ExpectSuccess(t, changed)
}

func TestWaveBanks(t *testing.T) {
	p := psg.NewPSG(2, true)

	// with bank zero selected for playback the CPU sees bank one
	p.WriteWave(0, 0x12)
	p.Write(psg.NR30, 0x40)
	p.WriteWave(0, 0x34)
	test.ExpectEquality(t, p.ReadWave(0), uint8(0x34))
	p.Write(psg.NR30, 0x00)
	test.ExpectEquality(t, p.ReadWave(0), uint8(0x12))
}

func TestSnapshot(t *testing.T) {
	p := psg.NewPSG(0, false)
	p.Write(psg.NR12, 0xf0)
	p.Write(psg.NR14, 0x80)
	s := p.Snapshot()

	p.Write(psg.NR52, 0x00)
	p.Restore(s)
	test.ExpectEquality(t, p.Read(psg.NR52), uint8(0xf1))
}
