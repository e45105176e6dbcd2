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

package bus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
)

// Width of a bus access in bytes.
type Width int

// List of valid Width values.
const (
	Byte     Width = 1
	HalfWord Width = 2
	Word     Width = 4
)

func (w Width) mask() uint32 {
	switch w {
	case Byte:
		return 0xff
	case HalfWord:
		return 0xffff
	}
	return 0xffffffff
}

// Policy is the access policy of a Region.
type Policy int

// List of valid Policy values.
const (
	ReadWrite Policy = iota
	ReadOnly
	SideEffectRead
	SideEffectWrite
	SideEffectReadWrite
)

func (p Policy) String() string {
	switch p {
	case ReadWrite:
		return "read-write"
	case ReadOnly:
		return "read-only"
	case SideEffectRead:
		return "side-effect on read"
	case SideEffectWrite:
		return "side-effect on write"
	case SideEffectReadWrite:
		return "side-effect on read/write"
	}
	return "unknown policy"
}

func (p Policy) sideEffectRead() bool {
	return p == SideEffectRead || p == SideEffectReadWrite
}

// Device is the owner of a Region. The address given to the Read() and
// Write() functions is the full address of the access, aligned according to
// the rules of the bus.
type Device interface {
	Read(addr uint32, width Width) uint32
	Write(addr uint32, value uint32, width Width)
}

// Peeker is implemented by devices that have side-effects on read. The Peek()
// function must return the value of the byte at the address without any side
// effects.
type Peeker interface {
	Peek(addr uint32) uint8
}

// Timing returns the number of cycles an access takes. The sequential
// argument is true if the access immediately follows an access to the
// previous address.
type Timing func(addr uint32, width Width, sequential bool) int

// Region is a disjoint range of the address space with one owner.
type Region struct {
	Name   string
	Start  uint32
	End    uint32
	Policy Policy
	Device Device

	// the number of cycles an access to the region takes. if Cycles is nil
	// then all accesses take one cycle
	Cycles Timing

	// writes to executable regions are reported to the bus's write watchers
	Executable bool
}

func (r *Region) String() string {
	return fmt.Sprintf("%08x-%08x %s (%s)", r.Start, r.End, r.Name, r.Policy)
}

func (r *Region) contains(addr uint32) bool {
	return addr >= r.Start && addr <= r.End
}

// WriteWatcher is notified of every write to an executable region.
type WriteWatcher interface {
	Written(addr uint32, width Width)
}

// Anomaly describes an access to an unmapped address or an access that the
// region policy does not allow. It is not an error.
type Anomaly struct {
	Address uint32
	Width   Width
	Write   bool
	Region  string
}

func (a Anomaly) String() string {
	if a.Region == "" {
		if a.Write {
			return fmt.Sprintf("write to unmapped address %#08x", a.Address)
		}
		return fmt.Sprintf("read from unmapped address %#08x", a.Address)
	}
	return fmt.Sprintf("write to read-only address %#08x (%s)", a.Address, a.Region)
}

// Sentinal error returned by AddRegion() when the region is invalid.
const RegionError = "bus: region: %v"

// Bus routes accesses to the region that owns the address.
type Bus struct {
	name      string
	addrMask  uint32
	pageShift uint
	align     bool

	regions []*Region
	pages   [][]*Region

	// the last value driven onto the bus
	driven uint32

	// open bus heuristic. nil if the last driven value should be used
	openBus func(addr uint32, width Width) uint32

	watchers []WriteWatcher

	// the bus is locked until the clock reaches this cycle
	lockedUntil uint64

	anomalies uint64
	anomaly   func(Anomaly)
}

// NewBus is the preferred method of initialisation for the Bus type. The size
// of the address space is specified in bits. The page size, also in bits, is
// the granularity of the lookup table.
//
// If align is true then halfword and word accesses are forced to be aligned.
func NewBus(name string, addrBits uint, pageBits uint, align bool) *Bus {
	b := &Bus{
		name:      name,
		addrMask:  uint32((uint64(1) << addrBits) - 1),
		pageShift: pageBits,
		align:     align,
	}
	b.pages = make([][]*Region, 1<<(addrBits-pageBits))
	return b
}

func (b *Bus) String() string {
	s := strings.Builder{}
	for _, r := range b.regions {
		s.WriteString(r.String())
		s.WriteString("\n")
	}
	return s.String()
}

// AddRegion adds a region to the bus. The region must not overlap any other
// region.
func (b *Bus) AddRegion(r Region) error {
	if r.Start > r.End {
		return curated.Errorf(RegionError, fmt.Sprintf("%s: start after end", r.Name))
	}
	if r.End > b.addrMask {
		return curated.Errorf(RegionError, fmt.Sprintf("%s: outside address space", r.Name))
	}
	if r.Device == nil {
		return curated.Errorf(RegionError, fmt.Sprintf("%s: no device", r.Name))
	}
	for _, o := range b.regions {
		if r.Start <= o.End && o.Start <= r.End {
			return curated.Errorf(RegionError, fmt.Sprintf("%s overlaps %s", r.Name, o.Name))
		}
	}

	n := r
	b.regions = append(b.regions, &n)
	sort.Slice(b.regions, func(i, j int) bool {
		return b.regions[i].Start < b.regions[j].Start
	})

	for p := n.Start >> b.pageShift; p <= n.End>>b.pageShift; p++ {
		b.pages[p] = append(b.pages[p], &n)
	}

	return nil
}

// Regions returns the list of regions sorted by start address.
func (b *Bus) Regions() []*Region {
	return b.regions
}

// Lookup returns the region that owns the address. Returns nil if the address
// is unmapped.
func (b *Bus) Lookup(addr uint32) *Region {
	addr &= b.addrMask
	for _, r := range b.pages[addr>>b.pageShift] {
		if r.contains(addr) {
			return r
		}
	}
	return nil
}

func (b *Bus) normalise(addr uint32, width Width) uint32 {
	addr &= b.addrMask
	if b.align {
		addr &^= uint32(width - 1)
	}
	return addr
}

// Read a value of the specified width from the address.
func (b *Bus) Read(addr uint32, width Width) uint32 {
	addr = b.normalise(addr, width)
	r := b.Lookup(addr)
	if r == nil {
		b.report(Anomaly{Address: addr, Width: width})
		return b.OpenBus(addr, width)
	}
	v := r.Device.Read(addr, width) & width.mask()
	b.driven = v
	return v
}

// Write a value of the specified width to the address. Writes to read-only
// regions and to unmapped addresses are dropped.
func (b *Bus) Write(addr uint32, value uint32, width Width) {
	addr = b.normalise(addr, width)
	value &= width.mask()
	b.driven = value

	r := b.Lookup(addr)
	if r == nil {
		b.report(Anomaly{Address: addr, Width: width, Write: true})
		return
	}
	if r.Policy == ReadOnly {
		b.report(Anomaly{Address: addr, Width: width, Write: true, Region: r.Name})
		return
	}

	r.Device.Write(addr, value, width)

	if r.Executable {
		for _, w := range b.watchers {
			w.Written(addr, width)
		}
	}
}

// Peek returns the byte at the address without side-effects.
func (b *Bus) Peek(addr uint32) uint8 {
	addr &= b.addrMask
	r := b.Lookup(addr)
	if r == nil {
		return uint8(b.OpenBus(addr, Byte))
	}
	if p, ok := r.Device.(Peeker); ok {
		return p.Peek(addr)
	}
	if r.Policy.sideEffectRead() {
		return uint8(b.OpenBus(addr, Byte))
	}
	return uint8(r.Device.Read(addr, Byte))
}

// Poke writes a byte to the address. The write is a normal bus write and will
// have the same side-effects as a write by the CPU.
func (b *Bus) Poke(addr uint32, value uint8) {
	b.Write(addr, uint32(value), Byte)
}

// Cycles returns the number of cycles an access to the address takes.
func (b *Bus) Cycles(addr uint32, width Width, sequential bool) int {
	r := b.Lookup(addr)
	if r == nil || r.Cycles == nil {
		return 1
	}
	return r.Cycles(addr&b.addrMask, width, sequential)
}

// Drive sets the last value driven onto the bus. Used when an access has been
// satisfied without a call to Read().
func (b *Bus) Drive(v uint32) {
	b.driven = v
}

// Translatable returns true if code at the address can be translated and
// cached. The address must be in a read-only region or in a region that
// reports writes to the write watchers.
func (b *Bus) Translatable(addr uint32) bool {
	r := b.Lookup(addr)
	return r != nil && (r.Policy == ReadOnly || r.Executable)
}

// SetOpenBus sets the open bus heuristic for the machine. A nil function
// means that the last value driven onto the bus is used.
func (b *Bus) SetOpenBus(f func(addr uint32, width Width) uint32) {
	b.openBus = f
}

// OpenBus returns the value read from an unmapped address.
func (b *Bus) OpenBus(addr uint32, width Width) uint32 {
	if b.openBus != nil {
		return b.openBus(addr, width) & width.mask()
	}
	return b.driven & width.mask()
}

// AddWriteWatcher adds a watcher to be notified of writes to executable
// regions.
func (b *Bus) AddWriteWatcher(w WriteWatcher) {
	b.watchers = append(b.watchers, w)
}

// Lock the bus until the clock reaches the specified cycle. A lock that ends
// before an existing lock does not shorten it.
func (b *Bus) Lock(until uint64) {
	if until > b.lockedUntil {
		b.lockedUntil = until
	}
}

// LockedUntil returns the cycle at which the bus will be unlocked.
func (b *Bus) LockedUntil() uint64 {
	return b.lockedUntil
}

// IsLocked returns true if the bus is locked at the specified cycle.
func (b *Bus) IsLocked(now uint64) bool {
	return now < b.lockedUntil
}

// SetLockedUntil is used when restoring state.
func (b *Bus) SetLockedUntil(until uint64) {
	b.lockedUntil = until
}

// SetAnomalyHook sets the function to call when an anomaly occurs.
func (b *Bus) SetAnomalyHook(f func(Anomaly)) {
	b.anomaly = f
}

// Anomalies returns the number of anomalous accesses since the bus was
// created.
func (b *Bus) Anomalies() uint64 {
	return b.anomalies
}

func (b *Bus) report(a Anomaly) {
	b.anomalies++
	if b.anomaly != nil {
		b.anomaly(a)
	}
}

// State is the serialisable state of the bus. It does not include the contents
// of any region.
type State struct {
	Driven      uint32
	LockedUntil uint64
}

// Snapshot returns the state of the bus.
func (b *Bus) Snapshot() State {
	return State{Driven: b.driven, LockedUntil: b.lockedUntil}
}

// Restore the state of the bus.
func (b *Bus) Restore(s State) {
	b.driven = s.Driven
	b.lockedUntil = s.LockedUntil
}
