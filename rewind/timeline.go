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

package rewind

import "github.com/jetsetilly/gopherboy/hardware/input"

// timeline is the input given to the machine on each frame. the input is
// needed to run the emulation forward from a snapshot
type timeline struct {
	// the frame number of the first entry in the inputs slice
	start  uint64
	inputs []input.Buttons
}

// the frame after the last frame in the timeline
func (tl *timeline) end() uint64 {
	return tl.start + uint64(len(tl.inputs))
}

// record the input for the frame. the frame must be the frame immediately
// after the last frame in the timeline
func (tl *timeline) record(frame uint64, in input.Buttons) {
	if frame != tl.end() {
		// the timeline has a gap. this happens if the rewind system was
		// disabled for a while
		tl.start = frame
		tl.inputs = tl.inputs[:0]
	}
	tl.inputs = append(tl.inputs, in)
}

// input for the frame. frames outside the timeline have no input
func (tl *timeline) input(frame uint64) input.Buttons {
	if frame < tl.start || frame >= tl.end() {
		return input.None
	}
	return tl.inputs[frame-tl.start]
}

// remove the input for frames before the frame
func (tl *timeline) forget(frame uint64) {
	if frame <= tl.start {
		return
	}
	if frame >= tl.end() {
		tl.start = frame
		tl.inputs = tl.inputs[:0]
		return
	}
	tl.inputs = tl.inputs[frame-tl.start:]
	tl.start = frame
}

// remove the input for the frame and all frames after it
func (tl *timeline) splice(frame uint64) {
	if frame < tl.start {
		tl.inputs = tl.inputs[:0]
		tl.start = frame
		return
	}
	if frame < tl.end() {
		tl.inputs = tl.inputs[:frame-tl.start]
	}
}

// Timeline provides a summary of the input recorded by the rewind system.
//
// Useful for GUIs for example, to present the range of frame numbers that are
// available in the rewind history.
type Timeline struct {
	// the first frame in the Input slice
	Start uint64
	Input []input.Buttons

	// the earliest and latest frames that are available in the rewind history
	AvailableStart uint64
	AvailableEnd   uint64
}

// GetTimeline returns a copy of the recorded input.
func (r *Rewind) GetTimeline() Timeline {
	f := r.GetFrames()
	t := Timeline{
		Start:          r.timeline.start,
		Input:          make([]input.Buttons, len(r.timeline.inputs)),
		AvailableStart: f.Start,
		AvailableEnd:   f.End,
	}
	copy(t.Input, r.timeline.inputs)
	return t
}
