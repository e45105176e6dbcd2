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

package mixer

import (
	"fmt"

	"github.com/jetsetilly/gopherboy/curated"
)

// Sentinal error returned by NewMixer() for an unusable configuration.
const ConfigError = "mixer: invalid configuration: %v"

// State is the serialisable state of the Mixer. A batch that has not been
// completed is part of the state.
type State struct {
	Phase    int
	Previous [2]int16
	Current  [2]int16
	Partial  []int16
	Complete []int16
}

// Mixer resamples a stereo stream.
type Mixer struct {
	inRate  int
	outRate int
	batch   int

	phase    int
	previous [2]int16
	current  [2]int16

	// samples in the batch being filled
	partial []int16

	// completed batches waiting to be drained
	complete []int16
}

// NewMixer is the preferred method of initialisation for the Mixer type. The
// batch size is the number of stereo frames in each batch.
func NewMixer(inRate int, outRate int, batch int) (*Mixer, error) {
	if inRate <= 0 || outRate <= 0 || batch <= 0 {
		return nil, curated.Errorf(ConfigError, fmt.Sprintf("in=%d out=%d batch=%d", inRate, outRate, batch))
	}
	return &Mixer{
		inRate:  inRate,
		outRate: outRate,
		batch:   batch,
		partial: make([]int16, 0, batch*2),
	}, nil
}

func (m *Mixer) String() string {
	return fmt.Sprintf("%dHz -> %dHz (batch %d)", m.inRate, m.outRate, m.batch)
}

// OutputRate returns the sample rate of the output stream.
func (m *Mixer) OutputRate() int {
	return m.outRate
}

// BatchSize returns the number of stereo frames in a batch.
func (m *Mixer) BatchSize() int {
	return m.batch
}

// Push a sample at the native rate.
func (m *Mixer) Push(left int16, right int16) {
	m.previous = m.current
	m.current = [2]int16{left, right}

	// one input sample is outRate units long and output samples occur every
	// inRate units. phase is the distance from the previous output sample
	m.phase += m.outRate
	for m.phase >= m.inRate {
		m.phase -= m.inRate

		// distance of the output sample from the previous input sample
		d := m.outRate - m.phase
		for c := 0; c < 2; c++ {
			p := int(m.previous[c])
			q := int(m.current[c])
			m.partial = append(m.partial, int16(p+(q-p)*d/m.outRate))
		}

		if len(m.partial) == m.batch*2 {
			m.complete = append(m.complete, m.partial...)
			m.partial = m.partial[:0]
		}
	}
}

// Drain returns every completed batch as one slice of interleaved samples.
// The length of the slice is always a multiple of the batch size. The mixer
// no longer refers to the returned slice.
func (m *Mixer) Drain() []int16 {
	if len(m.complete) == 0 {
		return nil
	}
	d := m.complete
	m.complete = nil
	return d
}

// Snapshot returns the state of the mixer.
func (m *Mixer) Snapshot() State {
	return State{
		Phase:    m.phase,
		Previous: m.previous,
		Current:  m.current,
		Partial:  append([]int16(nil), m.partial...),
		Complete: append([]int16(nil), m.complete...),
	}
}

// Restore the state of the mixer.
func (m *Mixer) Restore(s State) {
	m.phase = s.Phase
	m.previous = s.Previous
	m.current = s.Current
	m.partial = append(m.partial[:0], s.Partial...)
	m.complete = append([]int16(nil), s.Complete...)
	if len(m.complete) == 0 {
		m.complete = nil
	}
}
