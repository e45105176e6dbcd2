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

// Package transcache is a cache of translated code. Entries are keyed by the
// start address of the translated block and by the instruction set used.
//
// The cache does not know what a translation looks like. An entry holds a
// slice of values of any type, one for each instruction in the block.
//
// Entries are indexed by the pages of memory they were translated from.
// Writes to a page invalidate all entries that overlap the written bytes.
// The cache implements the bus.WriteWatcher interface for this purpose.
// Every page also has a write version, which is used to discard translations
// made in the background from memory that has since been written to.
//
// The storage for entries comes from an arena that is discarded in its
// entirety when the cache is flushed with InvalidateAll().
package transcache
