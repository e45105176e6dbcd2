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
	"github.com/jetsetilly/gopherboy/hardware/audio/psg"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

// the output is sampled every 512 cycles, for a native sample rate of
// 32768Hz
const (
	SampleRate   = 32768
	sampleCycles = 512
)

// the PSG runs at a quarter of the system clock
const psgShift = 2

// Audio is the destination for the sample stream produced by the sound
// hardware.
type Audio interface {
	Push(left int16, right int16)
}

// mapping of IO register offsets to PSG registers
var psgRegisters = map[uint32]int{
	0x060: psg.NR10, 0x062: psg.NR11, 0x063: psg.NR12, 0x064: psg.NR13, 0x065: psg.NR14,
	0x068: psg.NR21, 0x069: psg.NR22, 0x06c: psg.NR23, 0x06d: psg.NR24,
	0x070: psg.NR30, 0x072: psg.NR31, 0x073: psg.NR32, 0x074: psg.NR33, 0x075: psg.NR34,
	0x078: psg.NR41, 0x079: psg.NR42, 0x07c: psg.NR43, 0x07d: psg.NR44,
	0x080: psg.NR50, 0x081: psg.NR51, 0x084: psg.NR52,
}

// DirectSound registers
const (
	regSOUNDCNTH = 0x082
	regSOUNDCNTX = 0x084
	regWaveRAM   = 0x090
	regFIFOA     = 0x0a0
	regFIFOB     = 0x0a4
)

const fifoSize = 32

// FIFO is a DirectSound sample queue.
type FIFO struct {
	Data  [fifoSize]int8
	Read  int
	Count int

	// the sample currently being output
	Current int8
}

func (f *FIFO) push(v int8) {
	if f.Count == fifoSize {
		return
	}
	f.Data[(f.Read+f.Count)%fifoSize] = v
	f.Count++
}

func (f *FIFO) pop() {
	if f.Count == 0 {
		return
	}
	f.Current = f.Data[f.Read]
	f.Read = (f.Read + 1) % fifoSize
	f.Count--
}

func (f *FIFO) clear() {
	f.Read = 0
	f.Count = 0
}

// SoundState is the serialisable state of the sound hardware.
type SoundState struct {
	PSG    psg.State
	Synced uint64
	FIFO   [2]FIFO
}

// Sound is the PSG and the two DirectSound channels.
type Sound struct {
	sched *scheduler.Scheduler
	regs  *[0x400]uint8
	audio Audio
	dma   *DMA

	psg   *psg.PSG
	state SoundState
}

func newSound(sched *scheduler.Scheduler, regs *[0x400]uint8, audio Audio, dma *DMA) *Sound {
	snd := &Sound{
		sched: sched,
		regs:  regs,
		audio: audio,
		dma:   dma,
		psg:   psg.NewPSG(psgShift, true),
	}
	sched.Register(evSample, "sample", snd.sample)
	sched.Register(evSequencer, "sequencer", snd.sequencer)
	return snd
}

func (snd *Sound) reset() {
	snd.psg.Reset()
	snd.state = SoundState{Synced: snd.sched.Now()}
	snd.sched.Cancel(evSample)
	snd.sched.Cancel(evSequencer)
	snd.sched.ScheduleIn(sampleCycles, evSample, 0)
	snd.sched.ScheduleIn(psg.SequencerPeriod<<psgShift, evSequencer, 0)
}

func (snd *Sound) snapshot() SoundState {
	s := snd.state
	s.PSG = snd.psg.Snapshot()
	return s
}

func (snd *Sound) restore(s SoundState) {
	snd.state = s
	snd.psg.Restore(s.PSG)
}

func (snd *Sound) control() uint16 {
	return uint16(snd.regs[regSOUNDCNTH]) | uint16(snd.regs[regSOUNDCNTH+1])<<8
}

func (snd *Sound) enabled() bool {
	return snd.regs[regSOUNDCNTX]&0x80 == 0x80
}

// bring the PSG up to date with the scheduler
func (snd *Sound) sync() {
	now := snd.sched.Now()
	snd.psg.Tick(int(now - snd.state.Synced))
	snd.state.Synced = now
}

func (snd *Sound) read(o uint32) uint8 {
	if r, ok := psgRegisters[o]; ok {
		snd.sync()
		return snd.psg.Read(r)
	}
	if o >= regWaveRAM && o < regWaveRAM+16 {
		return snd.psg.ReadWave(int(o - regWaveRAM))
	}
	if o >= regFIFOA {
		return 0
	}
	return snd.regs[o]
}

func (snd *Sound) write(o uint32, v uint8) {
	if r, ok := psgRegisters[o]; ok {
		snd.sync()
		snd.psg.Write(r, v)
		return
	}
	if o >= regWaveRAM && o < regWaveRAM+16 {
		snd.psg.WriteWave(int(o-regWaveRAM), v)
		return
	}
	switch {
	case o >= regFIFOA && o < regFIFOA+4:
		snd.state.FIFO[0].push(int8(v))
	case o >= regFIFOB && o < regFIFOB+4:
		snd.state.FIFO[1].push(int8(v))
	case o == regSOUNDCNTH+1:
		if v&0x08 == 0x08 {
			snd.state.FIFO[0].clear()
		}
		if v&0x80 == 0x80 {
			snd.state.FIFO[1].clear()
		}
	}
}

// timerOverflow is called by the timers. the DirectSound channels driven by
// the timer take their next sample.
func (snd *Sound) timerOverflow(timer int) {
	if timer > 1 || !snd.enabled() {
		return
	}
	cnt := snd.control()
	for f := 0; f < 2; f++ {
		sel := int(cnt>>(10+f*4)) & 0x01
		if sel != timer {
			continue
		}
		fifo := &snd.state.FIFO[f]
		fifo.pop()
		if fifo.Count <= fifoSize/2 && snd.dma != nil {
			snd.dma.fifo(1 + f)
		}
	}
}

func (snd *Sound) sample(_ uint32) {
	snd.sync()

	if snd.audio != nil {
		var l, r int
		if snd.enabled() {
			cnt := snd.control()

			l, r = snd.psg.Sample()
			switch cnt & 0x03 {
			case 0:
				l /= 4
				r /= 4
			case 1:
				l /= 2
				r /= 2
			}

			for f := 0; f < 2; f++ {
				v := int(snd.state.FIFO[f].Current) * 2
				if cnt&(0x0004<<f) != 0 {
					v *= 2
				}
				if cnt&(0x0200<<(f*4)) != 0 {
					l += v
				}
				if cnt&(0x0100<<(f*4)) != 0 {
					r += v
				}
			}
		}
		snd.audio.Push(int16(l*16), int16(r*16))
	}

	snd.sched.ScheduleIn(sampleCycles, evSample, 0)
}

func (snd *Sound) sequencer(_ uint32) {
	snd.sync()
	snd.psg.StepSequencer()
	snd.sched.ScheduleIn(psg.SequencerPeriod<<psgShift, evSequencer, 0)
}
