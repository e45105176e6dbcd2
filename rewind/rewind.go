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

import (
	"fmt"
	"sort"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/logger"
)

// Sentinal errors returned by the Rewind type.
const (
	NotAvailable = "rewind: frame %d is not available"
	NoUndo       = "rewind: no state load to undo"
)

// the snapshot interval is never larger than this number of frames
const maxInterval = 64

// entry is a snapshot of the machine taken at the end of a frame.
type entry struct {
	// number of frames completed by the machine at the time of the snapshot
	frame uint64

	// the clock at the time of the snapshot
	now uint64

	data []uint8
}

// Rewind contains a history of machine states for the emulation. The history
// is bounded by a memory budget. The input given to the machine on every frame
// is recorded so that any frame in the history can be recreated by restoring
// the nearest earlier snapshot and running the emulation forward.
type Rewind struct {
	m *hardware.Machine

	// snapshots in frame order
	entries []entry
	used    int

	// number of frames between snapshots. the interval grows if the budget
	// cannot otherwise cover the requested number of seconds
	interval int

	timeline timeline

	// state and history from before the most recent call to LoadState()
	undo *undo
}

type undo struct {
	data     []uint8
	entries  []entry
	used     int
	interval int
	timeline timeline
}

// NewRewind is the preferred method of initialisation for the Rewind type.
func NewRewind(m *hardware.Machine) *Rewind {
	r := &Rewind{m: m}
	r.Reset()
	return r
}

func (r *Rewind) String() string {
	f := r.GetFrames()
	return fmt.Sprintf("frames %d to %d (interval %d, %d of %d bytes)", f.Start, f.End, r.interval, r.Used(), r.Budget())
}

// Budget returns the maximum number of bytes the history is allowed to use.
func (r *Rewind) Budget() int {
	p := r.m.Prefs
	return p.RewindBudget.Get().(int) * p.RewindSeconds.Get().(int)
}

// Used returns the number of bytes used by the history. The state and history
// kept for UndoLoad() are included.
func (r *Rewind) Used() int {
	if r.undo == nil {
		return r.used
	}
	return r.used + len(r.undo.data) + r.undo.used
}

// Interval returns the number of frames between snapshots.
func (r *Rewind) Interval() int {
	return r.interval
}

// Reset removes all entries and takes a snapshot of the current state. This
// should be called whenever the machine is reset.
func (r *Rewind) Reset() {
	r.entries = r.entries[:0]
	r.used = 0
	r.interval = 1
	r.timeline = timeline{start: r.m.Frames()}
	r.snapshot()
}

// RunFrame runs the emulation for a frame and records the frame in the
// history. The input for the frame should have been set with SetInput()
// on the machine beforehand.
func (r *Rewind) RunFrame() (hardware.FrameOutput, error) {
	if !r.m.Prefs.RewindEnabled.Get().(bool) {
		return r.m.RunFrame()
	}

	frame := r.m.Frames()
	out, err := r.m.RunFrame()
	if err != nil {
		return out, err
	}

	// the frame may have been run with the history pointing somewhere in the
	// past. the future is discarded
	r.splice(frame)
	r.timeline.record(frame, r.m.Input())

	last := r.entries[len(r.entries)-1]
	if r.m.Frames()-last.frame >= uint64(r.interval) {
		r.snapshot()
	}

	return out, nil
}

// snapshot the machine and add it to the history
func (r *Rewind) snapshot() {
	data, err := r.m.EncodeState(r.m.Prefs.RewindCompression.Get().(bool))
	if err != nil {
		logger.Logf(logger.Allow, "rewind", "%v", err)
		return
	}

	if len(data) > r.Budget() {
		logger.Logf(logger.Allow, "rewind", "snapshot of %d bytes is larger than the budget", len(data))
		return
	}

	r.entries = append(r.entries, entry{
		frame: r.m.Frames(),
		now:   r.m.Now(),
		data:  data,
	})
	r.used += len(data)

	r.trim()
}

// remove the oldest entries until the history is within budget. the history
// kept for UndoLoad() is older than the current history and is removed first
func (r *Rewind) trim() {
	if r.undo != nil {
		for r.Used() > r.Budget() && len(r.undo.entries) > 0 {
			r.undo.used -= len(r.undo.entries[0].data)
			r.undo.entries = r.undo.entries[1:]
		}
		if len(r.undo.entries) > 0 {
			r.undo.timeline.forget(r.undo.entries[0].frame)
		}
	}

	evicted := false
	for r.Used() > r.Budget() && len(r.entries) > 1 {
		r.used -= len(r.entries[0].data)
		r.entries = r.entries[1:]
		evicted = true
	}

	if r.undo != nil && r.Used() > r.Budget() {
		r.undo = nil
		logger.Logf(logger.Allow, "rewind", "state load can no longer be undone")
	}

	if len(r.entries) > 0 {
		r.timeline.forget(r.entries[0].frame)
	}

	if !evicted || r.interval >= maxInterval {
		return
	}

	// the history covers less time than requested so take fewer snapshots
	span := r.entries[len(r.entries)-1].now - r.entries[0].now
	target := uint64(r.m.Prefs.RewindSeconds.Get().(int)) * uint64(r.m.ClockRate())
	if span < target {
		r.interval *= 2
		logger.Logf(logger.Allow, "rewind", "snapshot interval increased to %d frames", r.interval)
	}
}

// remove entries and timeline information after the frame
func (r *Rewind) splice(frame uint64) {
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].frame > frame
	})
	for _, e := range r.entries[i:] {
		r.used -= len(e.data)
	}
	r.entries = r.entries[:i]
	r.timeline.splice(frame)
}

// Frames of the current state of the rewind system.
type Frames struct {
	Start   uint64
	End     uint64
	Current uint64
}

// GetFrames returns the earliest and latest frames that can be recreated and
// the frame the machine is currently at.
func (r *Rewind) GetFrames() Frames {
	f := Frames{Current: r.m.Frames()}
	if len(r.entries) > 0 {
		f.Start = r.entries[0].frame
		f.End = max(r.entries[len(r.entries)-1].frame, r.timeline.end())
	}
	return f
}

// GotoFrame returns the machine to the end of the frame. The nearest earlier
// snapshot is restored and the emulation is run forward using the recorded
// input. Log entries are suppressed while the emulation is run forward.
func (r *Rewind) GotoFrame(frame uint64) error {
	f := r.GetFrames()
	if len(r.entries) == 0 || frame < f.Start || frame > f.End {
		return curated.Errorf(NotAvailable, frame)
	}

	// nearest snapshot at or before the frame. a snapshot earlier than the
	// frame is preferred so that the frame buffer is redrawn
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].frame >= frame
	}) - 1
	if i < 0 {
		i = 0
	}

	if err := r.m.LoadState(r.entries[i].data); err != nil {
		return curated.Errorf("rewind: %v", err)
	}

	r.m.SetQuiet(true)
	defer r.m.SetQuiet(false)

	for r.m.Frames() < frame {
		r.m.SetInput(r.timeline.input(r.m.Frames()))
		if _, err := r.m.RunFrame(); err != nil {
			return curated.Errorf("rewind: %v", err)
		}
	}

	return nil
}

// StepBack returns the machine to the end of the frame before the current
// frame.
func (r *Rewind) StepBack() error {
	f := r.m.Frames()
	if f == 0 {
		return curated.Errorf(NotAvailable, 0)
	}
	return r.GotoFrame(f - 1)
}

// GotoLast returns the machine to the most recent frame in the history.
func (r *Rewind) GotoLast() error {
	return r.GotoFrame(r.GetFrames().End)
}

// LoadState replaces the state of the machine with a savestate. The state of
// the machine and the history before the load are kept so that the load can
// be undone with UndoLoad().
func (r *Rewind) LoadState(data []uint8) error {
	before, err := r.m.EncodeState(r.m.Prefs.RewindCompression.Get().(bool))
	if err != nil {
		return err
	}

	if err := r.m.LoadState(data); err != nil {
		return err
	}

	r.undo = &undo{
		data:     before,
		entries:  r.entries,
		used:     r.used,
		interval: r.interval,
		timeline: r.timeline,
	}

	r.entries = nil
	r.Reset()

	return nil
}

// UndoLoad reverses the most recent call to LoadState(). Only one load can be
// undone.
func (r *Rewind) UndoLoad() error {
	if r.undo == nil {
		return curated.Errorf(NoUndo)
	}

	if err := r.m.LoadState(r.undo.data); err != nil {
		return err
	}

	r.entries = r.undo.entries
	r.used = r.undo.used
	r.interval = r.undo.interval
	r.timeline = r.undo.timeline
	r.undo = nil

	// the future from the point of the load is discarded
	r.splice(r.m.Frames())
	if len(r.entries) == 0 || r.entries[len(r.entries)-1].frame != r.m.Frames() {
		r.snapshot()
	}

	return nil
}

// CanUndoLoad returns true if there is a state load that can be undone.
func (r *Rewind) CanUndoLoad() bool {
	return r.undo != nil
}
