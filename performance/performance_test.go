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

package performance_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/hardware/preferences"
	"github.com/jetsetilly/gopherboy/performance"
	"github.com/jetsetilly/gopherboy/test"
)

func TestParseProfileString(t *testing.T) {
	for s, expected := range map[string]performance.Profile{
		"":          performance.ProfileNone,
		"none":      performance.ProfileNone,
		"CPU":       performance.ProfileCPU,
		"cpu, mem":  performance.ProfileCPU | performance.ProfileMem,
		"trace":     performance.ProfileTrace,
		"ALL":       performance.ProfileAll,
		"mem,TRACE": performance.ProfileMem | performance.ProfileTrace,
	} {
		p, err := performance.ParseProfileString(s)
		test.ExpectSuccess(t, err, s)
		test.ExpectEquality(t, p, expected, s)
	}

	_, err := performance.ParseProfileString("cpu,disk")
	test.ExpectFailure(t, err)
}

func TestProfileString(t *testing.T) {
	test.ExpectEquality(t, performance.ProfileNone.String(), "NONE")
	test.ExpectEquality(t, performance.ProfileAll.String(), "CPU,MEM,TRACE")
	test.ExpectEquality(t, (performance.ProfileCPU | performance.ProfileTrace).String(), "CPU,TRACE")
}

func TestCalcFPS(t *testing.T) {
	fps, accuracy := performance.CalcFPS(120, 2000, 1000, 2.0)
	test.ExpectApproximate(t, fps, 60.0, 0.0001)
	test.ExpectApproximate(t, accuracy, 100.0, 0.0001)

	fps, accuracy = performance.CalcFPS(60, 1000, 1000, 2.0)
	test.ExpectApproximate(t, fps, 30.0, 0.0001)
	test.ExpectApproximate(t, accuracy, 50.0, 0.0001)

	fps, accuracy = performance.CalcFPS(60, 1000, 1000, 0)
	test.ExpectEquality(t, fps, 0.0)
	test.ExpectEquality(t, accuracy, 0.0)
}

func TestRunProfilerNone(t *testing.T) {
	var ran bool
	err := performance.RunProfiler(performance.ProfileNone, "test", func() error {
		ran = true
		return nil
	})
	test.ExpectSuccess(t, err)
	test.ExpectSuccess(t, ran)
}

func TestResultString(t *testing.T) {
	w := &bytes.Buffer{}
	w.WriteString(performance.Result{Frames: 60, FPS: 120, Accuracy: 200}.String())
	test.ExpectSuccess(t, strings.HasPrefix(w.String(), "120.00 fps (60 frames in 0.00 seconds)"))
}

// a Game Boy cartridge that increments the byte at 0xc000 forever
func counterROM() []uint8 {
	data := make([]uint8, 0x8000)
	copy(data[0x100:], []uint8{0x21, 0x00, 0xc0, 0x34, 0x18, 0xfd})
	copy(data[0x134:], "PERFORMANCE")
	var sum uint8
	for _, b := range data[0x134:0x14d] {
		sum = sum - b - 1
	}
	data[0x14d] = sum
	return data
}

func TestCheck(t *testing.T) {
	prefs, err := preferences.NewPreferences()
	test.DemandSuccess(t, err)

	m, err := hardware.LoadROM(counterROM(), prefs)
	test.DemandSuccess(t, err)
	defer m.Close()

	_, err = performance.Check(nil, performance.ProfileNone, m, "test", 0)
	test.ExpectFailure(t, err)

	w := &bytes.Buffer{}
	res, err := performance.Check(w, performance.ProfileNone, m, "test", 10)
	test.DemandSuccess(t, err)
	test.ExpectEquality(t, res.Frames, 10)
	test.ExpectEquality(t, m.Frames(), uint64(10))
	test.ExpectSuccess(t, res.Cycles > 0)
	test.ExpectSuccess(t, strings.HasPrefix(w.String(), "test: "))
	test.ExpectSuccess(t, strings.Contains(w.String(), "(10 frames in"))
}
