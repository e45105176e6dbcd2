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

package debugger

import (
	"io"

	"github.com/bradleyjkemp/memviz"
	"github.com/jetsetilly/gopherboy/hardware/cpu"
	"github.com/jetsetilly/gopherboy/hardware/scheduler"
)

// the parts of the machine that are included in the memviz graph. the full
// machine is too large to be useful
type graph struct {
	Kind        string
	Now         uint64
	Frames      uint64
	Registers   []cpu.Register
	Pending     []event
	Breakpoints []uint32
	Traps       []uint32
	Fault       *string
}

type event struct {
	Handler string
	Event   scheduler.Event
}

// Memviz writes a Graphviz (dot) description of the machine's debug state.
func (dbg *Debugger) Memviz(w io.Writer) {
	g := &graph{
		Kind:        dbg.m.Kind(),
		Now:         dbg.m.Now(),
		Frames:      dbg.m.Frames(),
		Registers:   dbg.m.Registers(),
		Breakpoints: dbg.m.Breakpoints(),
		Traps:       dbg.traps.list(),
	}
	for _, e := range dbg.m.Pending() {
		g.Pending = append(g.Pending, event{
			Handler: dbg.m.HandlerName(e),
			Event:   e,
		})
	}
	if f := dbg.m.Fault(); f != nil {
		s := f.Error()
		g.Fault = &s
	}
	memviz.Map(w, g)
}
