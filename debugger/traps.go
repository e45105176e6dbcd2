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
	"sort"

	"github.com/jetsetilly/gopherboy/hardware"
)

// traps keeps track of all the currently defined traps
type traps struct {
	m *hardware.Machine

	// the value at the address when the trap was added or last triggered
	traps map[uint32]uint8
}

func newTraps(m *hardware.Machine) *traps {
	return &traps{
		m:     m,
		traps: make(map[uint32]uint8),
	}
}

func (tr *traps) add(addr uint32) {
	if _, ok := tr.traps[addr]; ok {
		return
	}
	tr.traps[addr] = tr.m.Peek(addr)
}

func (tr *traps) remove(addr uint32) {
	delete(tr.traps, addr)
}

func (tr *traps) list() []uint32 {
	l := make([]uint32, 0, len(tr.traps))
	for a := range tr.traps {
		l = append(l, a)
	}
	sort.Slice(l, func(i, j int) bool {
		return l[i] < l[j]
	})
	return l
}

// check compares the current value of every trapped address with the value
// it had last time. every trap is updated but only the lowest triggered
// address is returned
func (tr *traps) check() (uint32, bool) {
	var trapped bool
	var addr uint32
	for a, v := range tr.traps {
		n := tr.m.Peek(a)
		if n == v {
			continue
		}
		tr.traps[a] = n
		if !trapped || a < addr {
			addr = a
		}
		trapped = true
	}
	return addr, trapped
}
