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

package transcache_test

import (
	"testing"
	"time"

	"github.com/jetsetilly/gopherboy/hardware/cpu/arm7/transcache"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/test"
)

func TestInsertAndLookup(t *testing.T) {
	c := transcache.NewCache[int](8)

	test.ExpectEquality(t, c.Lookup(0x100, false) == nil, true)

	e := c.Insert(0x100, 0x10f, false, []int{1, 2, 3, 4})
	test.ExpectEquality(t, e.Valid(), true)
	test.ExpectEquality(t, c.Lookup(0x100, false), e)

	// the same address in a different instruction set is a different entry
	test.ExpectEquality(t, c.Lookup(0x100, true) == nil, true)

	s := c.Stats()
	test.ExpectEquality(t, s.Entries, 1)
	test.ExpectEquality(t, s.Hits, uint64(1))
	test.ExpectEquality(t, s.Misses, uint64(2))
	test.ExpectEquality(t, s.Allocated, 4)
}

func TestInvalidateRange(t *testing.T) {
	c := transcache.NewCache[int](8)

	// an entry that spans two pages
	a := c.Insert(0x0f0, 0x10f, false, []int{1})
	b := c.Insert(0x200, 0x20f, false, []int{2})

	// write outside both entries
	c.Written(0x110, bus.Word)
	test.ExpectEquality(t, a.Valid(), true)

	// write to the second page of the first entry
	c.Written(0x104, bus.Byte)
	test.ExpectEquality(t, a.Valid(), false)
	test.ExpectEquality(t, b.Valid(), true)
	test.ExpectEquality(t, c.Lookup(0x0f0, false) == nil, true)

	// an unaligned write that overlaps the end of the entry
	c.InvalidateRange(0x20e, 0x211)
	test.ExpectEquality(t, b.Valid(), false)

	test.ExpectEquality(t, c.Stats().Invalidations, uint64(2))
	test.ExpectEquality(t, c.Stats().Entries, 0)
}

func TestInvalidateAll(t *testing.T) {
	c := transcache.NewCache[int](8)
	a := c.Insert(0x000, 0x00f, false, []int{1})
	b := c.Insert(0x100, 0x10f, true, []int{2})

	c.InvalidateAll()
	test.ExpectEquality(t, a.Valid(), false)
	test.ExpectEquality(t, b.Valid(), false)
	test.ExpectEquality(t, c.Stats().Entries, 0)
	test.ExpectEquality(t, c.Stats().Flushes, uint64(1))
}

func TestArenaIsolation(t *testing.T) {
	c := transcache.NewCache[int](8)
	a := c.Insert(0x000, 0x007, false, []int{1, 2})
	b := c.Insert(0x100, 0x107, false, []int{3, 4})

	// appending to the ops of one entry must not change another entry
	_ = append(a.Ops, 99)
	test.ExpectEquality(t, b.Ops[0], 3)

	// the caller's slice is copied
	ops := []int{5, 6}
	e := c.Insert(0x200, 0x207, false, ops)
	ops[0] = 0
	test.ExpectEquality(t, e.Ops[0], 5)
}

func TestStaleRequests(t *testing.T) {
	c := transcache.NewCache[int](8)

	req := c.Prepare(0x100, false, []uint32{0, 0, 0, 0}, 4)
	test.ExpectEquality(t, c.Stale(req), false)

	// writing to the page of the request makes it stale
	c.Written(0x180, bus.Byte)
	test.ExpectEquality(t, c.Stale(req), true)

	req = c.Prepare(0x100, false, []uint32{0, 0, 0, 0}, 4)
	test.ExpectEquality(t, c.Stale(req), false)

	// flushing the cache makes every request stale
	c.InvalidateAll()
	test.ExpectEquality(t, c.Stale(req), true)
}

func TestTranslator(t *testing.T) {
	c := transcache.NewCache[uint32](8)

	// the test compiler doubles every value in the code
	tr := transcache.NewTranslator[uint32](2, func(req transcache.Request) ([]uint32, uint32, error) {
		ops := make([]uint32, len(req.Code))
		for i, v := range req.Code {
			ops[i] = v * 2
		}
		return ops, req.Start + uint32(len(req.Code))*4 - 1, nil
	})
	defer func() {
		test.ExpectSuccess(t, tr.Close())
	}()

	test.ExpectEquality(t, tr.Submit(c.Prepare(0x000, false, []uint32{1, 2}, 4)), true)
	test.ExpectEquality(t, tr.Submit(c.Prepare(0x100, false, []uint32{3}, 4)), true)

	// duplicate requests are refused
	test.ExpectEquality(t, tr.Submit(c.Prepare(0x000, false, []uint32{1, 2}, 4)), false)

	deadline := time.Now().Add(5 * time.Second)
	for tr.Pending() > 0 && time.Now().Before(deadline) {
		tr.Collect(func(res transcache.Result[uint32]) {
			test.ExpectSuccess(t, res.Err)
			if !c.Stale(res.Request) {
				c.Insert(res.Start, res.End, res.Thumb, res.Ops)
			}
		})
		time.Sleep(time.Millisecond)
	}
	test.DemandEquality(t, tr.Pending(), 0)

	e := c.Lookup(0x000, false)
	test.DemandEquality(t, e != nil, true)
	test.ExpectEquality(t, len(e.Ops), 2)
	test.ExpectEquality(t, e.Ops[1], uint32(4))
	test.ExpectEquality(t, e.End, uint32(0x007))
}
