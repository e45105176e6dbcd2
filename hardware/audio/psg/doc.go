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

// Package psg implements the programmable sound generator found in both the
// Game Boy and its ARM successor. There are four channels: two square wave
// channels (the first with a frequency sweep unit), a channel that plays
// samples from wave RAM and a noise channel.
//
// Registers are addressed by their offset from the first sound register of
// the Game Boy (NR10 at address 0xff10). Machines that place the registers
// differently should translate their addresses to these offsets.
//
// The PSG is not clocked every cycle. Instead Tick() is called with the number
// of cycles that have elapsed since the previous call, and the frame
// sequencer is advanced with StepSequencer() from a scheduled event.
package psg
