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

package debugger_test

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/jetsetilly/gopherboy/debugger"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/test"
)

func newROM(program ...uint32) []uint8 {
	data := make([]uint8, 0x1000)
	binary.LittleEndian.PutUint32(data, 0xea00002e)
	copy(data[0xa0:], "DEBUGGER")
	copy(data[0xac:], "ADBG")
	data[0xb2] = 0x96
	var chk uint8
	for _, b := range data[0xa0:0xbd] {
		chk -= b
	}
	data[0xbd] = chk - 0x19
	for i, op := range program {
		binary.LittleEndian.PutUint32(data[0xc0+i*4:], op)
	}
	return data
}

var counter = []uint32{
	0xe3a00403, // mov r0, #0x03000000
	0xe5901000, // ldr r1, [r0]
	0xe2811001, // add r1, r1, #1
	0xe5801000, // str r1, [r0]
	0xeafffffb, // b 0x080000c4
}

func newDebugger(t *testing.T, program ...uint32) *debugger.Debugger {
	t.Helper()
	m, err := hardware.LoadROM(newROM(program...), nil)
	test.DemandSuccess(t, err)
	t.Cleanup(func() {
		_ = m.Close()
	})
	return debugger.NewDebugger(m)
}

func TestLimit(t *testing.T) {
	dbg := newDebugger(t, counter...)

	h, err := dbg.Step()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, h.Reason, debugger.HaltLimit)
	test.ExpectEquality(t, h.PC, uint32(0x080000c0))

	start := dbg.Machine().Now()
	h, err = dbg.Run(1000)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, h.Reason, debugger.HaltLimit)
	test.ExpectSuccess(t, h.Now >= start+1000)
}

func TestTrap(t *testing.T) {
	dbg := newDebugger(t, counter...)
	dbg.AddTrap(0x03000000)
	dbg.AddTrap(0x03000000)
	test.ExpectEquality(t, len(dbg.Traps()), 1)

	h, err := dbg.Run(100000)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, h.Reason, debugger.HaltTrap)
	test.ExpectEquality(t, h.PC, uint32(0x080000d0))
	test.ExpectEquality(t, dbg.Machine().Peek(0x03000000), uint8(1))

	// the trap triggers again on the next change
	h, err = dbg.Run(100000)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, h.Reason, debugger.HaltTrap)
	test.ExpectEquality(t, dbg.Machine().Peek(0x03000000), uint8(2))

	dbg.RemoveTrap(0x03000000)
	test.ExpectEquality(t, len(dbg.Traps()), 0)
	h, err = dbg.Run(1000)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, h.Reason, debugger.HaltLimit)
}

func TestBreakpoint(t *testing.T) {
	dbg := newDebugger(t, counter...)
	dbg.Machine().SetBreakpoint(0x080000cc)

	h, err := dbg.Run(100000)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, h.Reason, debugger.HaltBreakpoint)
	test.ExpectEquality(t, h.PC, uint32(0x080000cc))

	// continuing moves off the breakpoint
	h, err = dbg.Step()
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, h.Reason, debugger.HaltLimit)
	test.ExpectEquality(t, h.PC, uint32(0x080000d0))
}

func TestFault(t *testing.T) {
	dbg := newDebugger(t, 0xe7f000f0, 0xeafffffe)
	h, err := dbg.Run(100000)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, h.Reason, debugger.HaltFault)
	test.ExpectInequality(t, h.Detail, "")
	test.ExpectSuccess(t, strings.Contains(dbg.MachineInfo(), "fault"))
}

func TestMemviz(t *testing.T) {
	dbg := newDebugger(t, counter...)
	dbg.AddTrap(0x03000000)
	_, err := dbg.Run(100)
	test.DemandSuccess(t, err)

	var b bytes.Buffer
	dbg.Memviz(&b)
	test.ExpectSuccess(t, strings.Contains(b.String(), "digraph"))

	info := dbg.MachineInfo()
	test.ExpectSuccess(t, strings.HasPrefix(info, "GBA"))
	test.ExpectSuccess(t, strings.Contains(info, "PC="))
}
