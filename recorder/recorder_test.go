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

package recorder_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/hardware/input"
	"github.com/jetsetilly/gopherboy/recorder"
	"github.com/jetsetilly/gopherboy/test"
)

// a Game Boy cartridge that increments the byte at 0xc000 forever. the title
// distinguishes one cartridge from another
func cartridge(title string) []uint8 {
	data := make([]uint8, 0x8000)
	copy(data[0x100:], []uint8{0x21, 0x00, 0xc0, 0x34, 0x18, 0xfd})
	copy(data[0x134:], title)
	var sum uint8
	for _, b := range data[0x134:0x14d] {
		sum = sum - b - 1
	}
	data[0x14d] = sum
	return data
}

func newMachine(t *testing.T, title string) *hardware.Machine {
	t.Helper()
	m, err := hardware.LoadROM(cartridge(title), nil)
	test.DemandSuccess(t, err)
	t.Cleanup(func() { m.Close() })
	return m
}

// the input for each frame of the recording
var script = map[uint64]input.Buttons{
	2: input.A,
	3: input.A | input.Start,
	6: input.None,
	8: input.Left,
}

func record(t *testing.T, fn string, frames int) {
	t.Helper()

	m := newMachine(t, "RECORDER")
	rec, err := recorder.NewRecorder(fn, m, m)
	test.DemandSuccess(t, err)

	for i := 0; i < frames; i++ {
		if b, ok := script[m.Frames()]; ok {
			m.SetInput(b)
		}
		_, err := rec.RunFrame()
		test.DemandSuccess(t, err)
	}

	test.DemandSuccess(t, rec.End())
}

func TestRecordAndPlayback(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "transcript")
	record(t, fn, 10)

	data, err := os.ReadFile(fn)
	test.DemandSuccess(t, err)

	// header, the initial input, four changes and the final entry
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	test.ExpectEquality(t, len(lines), 3+1+4+1)
	test.ExpectSuccess(t, strings.HasPrefix(lines[4], "2, A, "))
	test.ExpectSuccess(t, strings.HasPrefix(lines[5], "3, A+START, "))

	m := newMachine(t, "RECORDER")
	r := &inputRunner{m: m}
	plb, err := recorder.NewPlayback(fn, m, r)
	test.DemandSuccess(t, err)

	for !plb.EndFrame() {
		_, err := plb.RunFrame()
		test.DemandSuccess(t, err)
	}

	test.ExpectEquality(t, m.Frames(), uint64(10))
	test.DemandEquality(t, len(r.seen), 10)

	var in input.Buttons
	for f, b := range r.seen {
		if s, ok := script[uint64(f)]; ok {
			in = s
		}
		test.ExpectEquality(t, b, in, f)
	}

	// the input for the frame after the recording is latched
	test.ExpectEquality(t, m.Input(), input.Left)
}

// inputRunner notes the input in effect for each frame it runs
type inputRunner struct {
	m    *hardware.Machine
	seen []input.Buttons
}

func (r *inputRunner) RunFrame() (hardware.FrameOutput, error) {
	r.seen = append(r.seen, r.m.Input())
	return r.m.RunFrame()
}

func TestPlaybackHeader(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "transcript")
	record(t, fn, 2)

	// a different cartridge
	m := newMachine(t, "OTHER")
	_, err := recorder.NewPlayback(fn, m, m)
	test.ExpectSuccess(t, curated.Is(err, recorder.PlaybackError))

	// not a transcript
	junk := filepath.Join(t.TempDir(), "junk")
	test.DemandSuccess(t, os.WriteFile(junk, []byte("hello\nworld\n"), 0o644))
	_, err = recorder.NewPlayback(junk, m, m)
	test.ExpectSuccess(t, curated.Is(err, recorder.PlaybackError))

	// missing file
	_, err = recorder.NewPlayback(filepath.Join(t.TempDir(), "missing"), m, m)
	test.ExpectFailure(t, err)
}

func TestPlaybackDivergence(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "transcript")
	record(t, fn, 10)

	data, err := os.ReadFile(fn)
	test.DemandSuccess(t, err)

	// corrupt the hash of the entry for frame 6
	lines := strings.Split(string(data), "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "6, ") {
			lines[i] = "6, none, 0000000000000000000000000000000000000000"
		}
	}
	test.DemandSuccess(t, os.WriteFile(fn, []byte(strings.Join(lines, "\n")), 0o644))

	m := newMachine(t, "RECORDER")
	plb, err := recorder.NewPlayback(fn, m, m)
	test.DemandSuccess(t, err)

	for !plb.EndFrame() {
		_, err = plb.RunFrame()
		if err != nil {
			break // for loop
		}
	}
	test.ExpectSuccess(t, curated.Is(err, recorder.PlaybackHashError))
	test.ExpectEquality(t, m.Frames(), uint64(6))
}

func TestPlaybackMalformed(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "transcript")
	record(t, fn, 2)

	data, err := os.ReadFile(fn)
	test.DemandSuccess(t, err)

	m := newMachine(t, "RECORDER")
	for _, extra := range []string{
		"1, A",
		"x, A, 00",
		"1, TURBO, 00",
		"0, A, 00",
	} {
		bad := filepath.Join(t.TempDir(), "bad")
		test.DemandSuccess(t, os.WriteFile(bad, append(append([]byte{}, data...), []byte(extra+"\n")...), 0o644))
		_, err := recorder.NewPlayback(bad, m, m)
		test.ExpectSuccess(t, curated.Is(err, recorder.PlaybackError), extra)
	}
}
