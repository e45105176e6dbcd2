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
	"github.com/jetsetilly/gopherboy/hardware/audio/psg"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

// the PSG output is sampled every 128 dots, for a native sample rate of
// 32768Hz
const (
	SampleRate = 32768
	sampleDots = 128
)

// Audio is the destination for the sample stream produced by the APU.
type Audio interface {
	Push(left int16, right int16)
}

// APUState is the serialisable state of the APU.
type APUState struct {
	PSG psg.State

	// scheduler cycle at which the PSG was last ticked
	Synced uint64
}

// APU connects the PSG to the memory map and to the scheduler.
type APU struct {
	sched *scheduler.Scheduler
	psg   *psg.PSG
	audio Audio

	synced uint64
}

func newAPU(sched *scheduler.Scheduler, audio Audio) *APU {
	apu := &APU{
		sched: sched,
		psg:   psg.NewPSG(0, false),
		audio: audio,
	}
	sched.Register(evSample, "sample", apu.sample)
	sched.Register(evSequencer, "sequencer", apu.sequencer)
	return apu
}

func (apu *APU) reset() {
	apu.psg.Reset()
	apu.synced = apu.sched.Now()
	apu.sched.Cancel(evSample)
	apu.sched.Cancel(evSequencer)
	apu.sched.ScheduleIn(sampleDots, evSample, 0)
	apu.sched.ScheduleIn(psg.SequencerPeriod, evSequencer, 0)
}

func (apu *APU) snapshot() APUState {
	return APUState{PSG: apu.psg.Snapshot(), Synced: apu.synced}
}

func (apu *APU) restore(s APUState) {
	apu.psg.Restore(s.PSG)
	apu.synced = s.Synced
}

// bring the PSG up to date with the scheduler
func (apu *APU) sync() {
	now := apu.sched.Now()
	apu.psg.Tick(int(now - apu.synced))
	apu.synced = now
}

func (apu *APU) sample(_ uint32) {
	apu.sync()
	if apu.audio != nil {
		l, r := apu.psg.Sample()
		apu.audio.Push(int16(l*64), int16(r*64))
	}
	apu.sched.ScheduleIn(sampleDots, evSample, 0)
}

func (apu *APU) sequencer(_ uint32) {
	apu.sync()
	apu.psg.StepSequencer()
	apu.sched.ScheduleIn(psg.SequencerPeriod, evSequencer, 0)
}

func (apu *APU) read(addr uint32) uint8 {
	apu.sync()
	if addr >= 0xff30 {
		return apu.psg.ReadWave(int(addr - 0xff30))
	}
	return apu.psg.Read(int(addr - 0xff10))
}

func (apu *APU) write(addr uint32, v uint8) {
	apu.sync()
	if addr >= 0xff30 {
		apu.psg.WriteWave(int(addr-0xff30), v)
		return
	}
	apu.psg.Write(int(addr-0xff10), v)
}
