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

package transcache

// the number of values allocated by the arena in one go
const chunkSize = 4096

// arena allocates storage for translations. individual allocations cannot be
// freed, the arena is discarded as a whole.
type arena[T any] struct {
	current   []T
	allocated int
}

// alloc copies the values into arena storage.
func (a *arena[T]) alloc(v []T) []T {
	a.allocated += len(v)

	if len(v) > chunkSize {
		return append([]T(nil), v...)
	}

	if len(a.current)+len(v) > cap(a.current) {
		a.current = make([]T, 0, chunkSize)
	}

	start := len(a.current)
	a.current = append(a.current, v...)
	return a.current[start:len(a.current):len(a.current)]
}
