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

import (
	"fmt"

	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
)

type key struct {
	addr  uint32
	thumb bool
}

// Entry is a translated block of code.
type Entry[T any] struct {
	// range of addresses the block was translated from. End is the address
	// of the last byte of the last instruction
	Start uint32
	End   uint32

	// the block was translated from Thumb instructions
	Thumb bool

	// one value for each instruction in the block
	Ops []T

	valid bool
}

// Valid returns false if the entry has been invalidated. An invalid entry
// should not be executed any further.
func (e *Entry[T]) Valid() bool {
	return e.valid
}

type page[T any] struct {
	entries []*Entry[T]
	version uint64
}

// Stats records the activity of the cache.
type Stats struct {
	Hits          uint64
	Misses        uint64
	Translations  uint64
	Invalidations uint64
	Flushes       uint64
	Discarded     uint64
	Entries       int
	Allocated     int
}

func (s Stats) String() string {
	return fmt.Sprintf("entries=%d hits=%d misses=%d translations=%d invalidations=%d flushes=%d discarded=%d",
		s.Entries, s.Hits, s.Misses, s.Translations, s.Invalidations, s.Flushes, s.Discarded)
}

// Cache of translated code.
type Cache[T any] struct {
	pageShift uint

	entries map[key]*Entry[T]
	pages   map[uint32]*page[T]
	arena   *arena[T]

	// incremented by InvalidateAll()
	generation uint64

	stats Stats
}

// NewCache is the preferred method of initialisation for the Cache type. The
// page size is specified in bits.
func NewCache[T any](pageShift uint) *Cache[T] {
	c := &Cache[T]{
		pageShift: pageShift,
	}
	c.reset()
	return c
}

func (c *Cache[T]) reset() {
	c.entries = make(map[key]*Entry[T])
	c.pages = make(map[uint32]*page[T])
	c.arena = &arena[T]{}
}

func (c *Cache[T]) page(p uint32) *page[T] {
	pg, ok := c.pages[p]
	if !ok {
		pg = &page[T]{}
		c.pages[p] = pg
	}
	return pg
}

// Lookup returns the entry that starts at the address. Returns nil if there
// is no such entry.
func (c *Cache[T]) Lookup(addr uint32, thumb bool) *Entry[T] {
	e, ok := c.entries[key{addr: addr, thumb: thumb}]
	if !ok {
		c.stats.Misses++
		return nil
	}
	c.stats.Hits++
	return e
}

// Insert a translation into the cache. The values are copied into storage
// owned by the cache. An existing entry at the same address is replaced.
func (c *Cache[T]) Insert(start uint32, end uint32, thumb bool, ops []T) *Entry[T] {
	k := key{addr: start, thumb: thumb}
	if old, ok := c.entries[k]; ok {
		c.remove(old)
	}

	e := &Entry[T]{
		Start: start,
		End:   end,
		Thumb: thumb,
		Ops:   c.arena.alloc(ops),
		valid: true,
	}
	c.entries[k] = e
	for p := start >> c.pageShift; p <= end>>c.pageShift; p++ {
		pg := c.page(p)
		pg.entries = append(pg.entries, e)
	}

	c.stats.Translations++
	return e
}

// remove entry from the cache and mark it as invalid.
func (c *Cache[T]) remove(e *Entry[T]) {
	e.valid = false
	delete(c.entries, key{addr: e.Start, thumb: e.Thumb})
	for p := e.Start >> c.pageShift; p <= e.End>>c.pageShift; p++ {
		pg, ok := c.pages[p]
		if !ok {
			continue
		}
		for i, o := range pg.entries {
			if o == e {
				pg.entries = append(pg.entries[:i], pg.entries[i+1:]...)
				break
			}
		}
	}
}

// InvalidateRange invalidates every entry that overlaps the range of
// addresses. The range is inclusive.
func (c *Cache[T]) InvalidateRange(lo uint32, hi uint32) {
	for p := lo >> c.pageShift; p <= hi>>c.pageShift; p++ {
		pg, ok := c.pages[p]
		if !ok {
			continue
		}
		pg.version++

		// iterate over a copy because remove() alters the list
		for _, e := range append([]*Entry[T](nil), pg.entries...) {
			if e.Start <= hi && lo <= e.End {
				c.remove(e)
				c.stats.Invalidations++
			}
		}
	}
}

// InvalidateAll discards every entry in the cache.
func (c *Cache[T]) InvalidateAll() {
	for _, e := range c.entries {
		e.valid = false
	}
	c.generation++
	c.reset()
	c.stats.Flushes++
}

// Written implements the bus.WriteWatcher interface.
func (c *Cache[T]) Written(addr uint32, width bus.Width) {
	if _, ok := c.pages[addr>>c.pageShift]; !ok {
		return
	}
	c.InvalidateRange(addr, addr+uint32(width)-1)
}

// Prepare a request for translation in the background. The write version of
// every page in the range is recorded.
func (c *Cache[T]) Prepare(start uint32, thumb bool, code []uint32, width uint32) Request {
	req := Request{
		Start:      start,
		Thumb:      thumb,
		Code:       code,
		generation: c.generation,
	}
	if len(code) == 0 {
		return req
	}
	end := start + uint32(len(code))*width - 1
	for p := start >> c.pageShift; p <= end>>c.pageShift; p++ {
		req.versions = append(req.versions, c.page(p).version)
	}
	return req
}

// Stale returns true if memory covered by the request has been written to
// since the request was prepared, or if the cache has been flushed.
func (c *Cache[T]) Stale(req Request) bool {
	if req.generation != c.generation {
		return true
	}
	p := req.Start >> c.pageShift
	for i, v := range req.versions {
		pg, ok := c.pages[p+uint32(i)]
		if !ok || pg.version != v {
			return true
		}
	}
	return false
}

// Discard records that a translation was not installed.
func (c *Cache[T]) Discard() {
	c.stats.Discarded++
}

// Stats returns the current statistics for the cache.
func (c *Cache[T]) Stats() Stats {
	s := c.stats
	s.Entries = len(c.entries)
	s.Allocated = c.arena.allocated
	return s
}
