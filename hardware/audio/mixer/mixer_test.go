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

package mixer_test

import (
	"testing"

	"github.com/jetsetilly/gopherboy/hardware/audio/mixer"
	"github.com/jetsetilly/gopherboy/test"
)

func TestBatches(t *testing.T) {
	m, err := mixer.NewMixer(32768, 48000, 16)
	test.DemandSuccess(t, err)

	test.ExpectEquality(t, len(m.Drain()), 0)

	// one second of input produces one second of output
	for i := 0; i < 32768; i++ {
		m.Push(100, -100)
	}
	d := m.Drain()
	test.ExpectEquality(t, len(d)%32, 0)
	test.ExpectApproximate(t, float64(len(d)/2), 48000, 16)

	// constant input gives constant output. the first output sample is
	// interpolated from silence
	for i := 2; i < len(d); i += 2 {
		if d[i] != 100 || d[i+1] != -100 {
			t.Fatalf("unexpected sample at %d: %d %d", i, d[i], d[i+1])
		}
	}

	// drained batches are not returned again
	test.ExpectEquality(t, len(m.Drain()), 0)
}

func TestInterpolation(t *testing.T) {
	// upsample by two. every other output sample is half way between two
	// input samples
	m, err := mixer.NewMixer(1, 2, 2)
	test.DemandSuccess(t, err)

	m.Push(0, 0)
	test.DemandEquality(t, len(m.Drain()), 4)

	m.Push(100, 200)
	d := m.Drain()
	test.DemandEquality(t, len(d), 4)
	test.ExpectEquality(t, d[0], int16(50))
	test.ExpectEquality(t, d[1], int16(100))
	test.ExpectEquality(t, d[2], int16(100))
	test.ExpectEquality(t, d[3], int16(200))
}

func TestSnapshot(t *testing.T) {
	m, err := mixer.NewMixer(32768, 48000, 512)
	test.DemandSuccess(t, err)

	for i := 0; i < 1000; i++ {
		m.Push(int16(i), int16(-i))
	}
	s := m.Snapshot()

	for i := 0; i < 1000; i++ {
		m.Push(int16(i*2), 0)
	}
	a := m.Drain()

	m.Restore(s)
	for i := 0; i < 1000; i++ {
		m.Push(int16(i*2), 0)
	}
	b := m.Drain()

	test.DemandEquality(t, len(a), len(b))
	for i := range a {
		test.ExpectEquality(t, a[i], b[i])
	}
}

func TestInvalidConfiguration(t *testing.T) {
	_, err := mixer.NewMixer(0, 48000, 512)
	test.ExpectFailure(t, err)
}
