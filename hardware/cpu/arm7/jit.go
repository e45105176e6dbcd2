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

package arm7

import (
	"github.com/jetsetilly/gopherboy/hardware/cpu/arm7/transcache"
	"github.com/jetsetilly/gopherboy/hardware/memory/bus"
	"github.com/jetsetilly/gopherboy/logger"
)

// CodeMemory is implemented by memory that supports translation of code. If
// the Memory given to NewARM() does not implement CodeMemory then the JIT
// cannot be enabled.
type CodeMemory interface {
	// Peek must not have side-effects
	Peek(addr uint32) uint8

	// Translatable returns true if code at the address can be cached. Writes
	// to translatable memory must be reported with JIT.Written()
	Translatable(addr uint32) bool

	// Drive sets the value last seen on the bus
	Drive(v uint32)
}

// DefaultBlockLimit is the maximum number of instructions in a block unless
// otherwise specified.
const DefaultBlockLimit = 32

// size of pages used to index the translation cache
const jitPageShift = 10

// op is a single translated instruction.
type op struct {
	exec   decodeFunction
	addr   uint32
	opcode uint32

	// cost of fetching the instruction
	fetchN int
	fetchS int
}

// JIT translates runs of instructions into blocks of decoded instructions.
// A block ends with the first instruction that can change the flow of
// execution or when the block limit is reached.
//
// Translated code is executed by Step() when the JIT is enabled. Between each
// instruction in a block the interrupt line and the yield function (see
// ARM.SetYield()) are checked so that a block can be exited at any
// instruction boundary.
type JIT struct {
	arm  *ARM
	code CodeMemory

	enabled    bool
	blockLimit int

	cache      *transcache.Cache[op]
	background *transcache.Translator[op]
}

func newJIT(arm *ARM) *JIT {
	j := &JIT{
		arm:        arm,
		blockLimit: DefaultBlockLimit,
		cache:      transcache.NewCache[op](jitPageShift),
	}
	j.code, _ = arm.mem.(CodeMemory)
	return j
}

// SetEnabled turns the JIT on or off. The JIT cannot be enabled if the memory
// does not support translation.
func (j *JIT) SetEnabled(enabled bool) {
	if j.code == nil {
		enabled = false
	}
	if j.enabled != enabled {
		j.cache.InvalidateAll()
	}
	j.enabled = enabled
}

// Enabled returns true if translated code will be executed.
func (j *JIT) Enabled() bool {
	return j.enabled
}

// SetBlockLimit sets the maximum number of instructions in a block. Existing
// translations are not affected.
func (j *JIT) SetBlockLimit(n int) {
	if n < 1 {
		n = 1
	}
	j.blockLimit = n
}

// SetBackground sets the number of goroutines used to translate code. With
// zero workers translation happens when code is first executed, otherwise
// the instruction is interpreted while translation happens in the
// background.
func (j *JIT) SetBackground(workers int) {
	if err := j.Close(); err != nil {
		logger.Logf(logger.Allow, "jit", "%v", err)
	}
	if workers > 0 {
		j.background = transcache.NewTranslator[op](workers, j.compile)
	}
}

// Close stops any background translation.
func (j *JIT) Close() error {
	if j.background == nil {
		return nil
	}
	err := j.background.Close()
	j.background = nil
	return err
}

// InvalidateAll discards all translated code. Must be called whenever the
// contents of memory or the cost of accessing memory changes in a way that is
// not reported by Written().
func (j *JIT) InvalidateAll() {
	j.cache.InvalidateAll()
}

// Written implements the bus.WriteWatcher interface.
func (j *JIT) Written(addr uint32, width bus.Width) {
	j.cache.Written(addr, width)
}

// Stats returns the statistics for the translation cache.
func (j *JIT) Stats() transcache.Stats {
	return j.cache.Stats()
}

// run translated code at the PC. returns false if there is no translated code
// and the instruction should be interpreted.
func (j *JIT) run() bool {
	if !j.enabled {
		return false
	}

	if j.background != nil {
		j.background.Collect(j.install)
	}

	arm := j.arm
	pc := arm.state.PC
	thumb := arm.state.Status.Thumb

	e := j.cache.Lookup(pc, thumb)
	if e == nil {
		if !j.code.Translatable(pc) {
			return false
		}
		req := j.request(pc, thumb)
		if j.background != nil {
			j.background.Submit(req)
			return false
		}
		e = j.translate(req)
		if e == nil {
			return false
		}
	}

	j.execute(e)
	return true
}

// request prepares a translation request for the code at the address. the
// code is read without side-effects and stops at the first untranslatable
// address.
func (j *JIT) request(addr uint32, thumb bool) transcache.Request {
	width := uint32(4)
	if thumb {
		width = 2
	}

	code := make([]uint32, 0, j.blockLimit)
	for i := 0; i < j.blockLimit; i++ {
		a := addr + uint32(i)*width
		if !j.code.Translatable(a) {
			break
		}
		v := uint32(j.code.Peek(a)) | uint32(j.code.Peek(a+1))<<8
		if !thumb {
			v |= uint32(j.code.Peek(a+2))<<16 | uint32(j.code.Peek(a+3))<<24
		}
		code = append(code, v)
	}

	return j.cache.Prepare(addr, thumb, code, width)
}

// compile the code in the request. compile() does not alter the state of the
// ARM and can be called from any goroutine.
func (j *JIT) compile(req transcache.Request) ([]op, uint32, error) {
	width := uint32(4)
	if req.Thumb {
		width = 2
	}

	ops := make([]op, 0, len(req.Code))
	for i, opcode := range req.Code {
		var f decodeFunction
		var flow bool
		if req.Thumb {
			f, flow = j.arm.decodeThumb(uint16(opcode))
		} else {
			f, flow = j.arm.decodeARM(opcode)
		}
		ops = append(ops, op{
			exec:   f,
			addr:   req.Start + uint32(i)*width,
			opcode: opcode,
		})
		if flow {
			break
		}
	}

	return ops, req.Start + uint32(len(ops))*width - 1, nil
}

// translate the request immediately.
func (j *JIT) translate(req transcache.Request) *transcache.Entry[op] {
	ops, end, err := j.compile(req)
	if err != nil || len(ops) == 0 {
		return nil
	}
	j.cost(ops, req.Thumb)
	return j.cache.Insert(req.Start, end, req.Thumb, ops)
}

// install the result of a background translation.
func (j *JIT) install(res transcache.Result[op]) {
	if res.Err != nil || len(res.Ops) == 0 || j.cache.Stale(res.Request) {
		j.cache.Discard()
		return
	}
	j.cost(res.Ops, res.Thumb)
	j.cache.Insert(res.Start, res.End, res.Thumb, res.Ops)
}

// cost the fetch of each instruction. fetch costs depend on the memory
// timing at the time of translation.
func (j *JIT) cost(ops []op, thumb bool) {
	width := bus.Word
	if thumb {
		width = bus.HalfWord
	}
	for i := range ops {
		ops[i].fetchN = j.arm.mem.Cycles(ops[i].addr, width, false)
		ops[i].fetchS = j.arm.mem.Cycles(ops[i].addr, width, true)
	}
}

// execute the block. execution stops early if the block is invalidated by
// one of its own instructions, if the PC does not arrive at the next
// instruction in the block, or if the ARM has something else to do.
func (j *JIT) execute(e *transcache.Entry[op]) {
	arm := j.arm

	size := uint32(4)
	if e.Thumb {
		size = 2
	}

	for i := range e.Ops {
		o := &e.Ops[i]

		j.code.Drive(o.opcode)
		if arm.state.NonSeq {
			arm.tick(o.fetchN)
		} else {
			arm.tick(o.fetchS)
		}
		arm.state.NonSeq = false
		arm.state.Prefetch = o.opcode

		arm.execute(o.addr, size, o.exec)

		if i == len(e.Ops)-1 {
			break
		}
		if !e.Valid() || arm.state.PC != e.Ops[i+1].addr || arm.state.Status.Thumb != e.Thumb {
			break
		}
		if arm.fault != nil || arm.state.Halted || arm.irqReady() {
			break
		}
		if arm.yield != nil && arm.yield() {
			break
		}
	}
}
