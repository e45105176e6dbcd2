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

// Package recorder records the input to a machine to a transcript file. The
// transcript can later be played back with the Playback type.
//
// The transcript records the frame on which the input changes along with a
// fingerprint of the video output at that moment. Playback checks the
// fingerprint as it applies each entry, so any divergence between the
// recording and the playback is detected at the earliest input event
// following it.
//
// Both Recorder and Playback wrap a Runner, which will normally be the
// hardware.Machine or the rewind.Rewind wrapping it. They both implement the
// Runner interface themselves.
package recorder

import "github.com/jetsetilly/gopherboy/hardware"

// Runner is implemented by types that can run the emulation a frame at a time.
type Runner interface {
	RunFrame() (hardware.FrameOutput, error)
}
