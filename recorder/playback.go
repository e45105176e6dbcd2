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

package recorder

import (
	"fmt"
	"os"
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/digest"
	"github.com/jetsetilly/gopherboy/hardware"
)

// Sentinal error patterns returned by Playback.
const (
	PlaybackError     = "playback: %v"
	PlaybackHashError = "playback: unexpected output at frame %d (line %d)"
)

// Playback is used to reperform the input recorded in a previously recorded
// transcript.
type Playback struct {
	transcript string

	m      *hardware.Machine
	runner Runner
	digest *digest.Video

	sequence []entry
	seqCt    int
}

func (plb *Playback) String() string {
	if len(plb.sequence) == 0 {
		return "0/0"
	}
	end := plb.sequence[len(plb.sequence)-1].frame
	curr := plb.m.Frames()
	return fmt.Sprintf("%d/%d (%.1f%%)", curr, end, 100*(float64(curr)/float64(end)))
}

// NewPlayback is the preferred method of implementation for the Playback type.
// The transcript must have been made with the same cartridge and the machine
// should be in the same state it was in when the recording started.
func NewPlayback(transcript string, m *hardware.Machine, runner Runner) (*Playback, error) {
	data, err := os.ReadFile(transcript)
	if err != nil {
		return nil, curated.Errorf(PlaybackError, err)
	}

	plb := &Playback{
		transcript: transcript,
		m:          m,
		runner:     runner,
		digest:     digest.NewVideo(),
	}

	lines := strings.Split(strings.TrimRight(string(data), "\n"), "\n")

	if err := readHeader(lines, m); err != nil {
		return nil, err
	}

	for i := numHeaderLines; i < len(lines); i++ {
		e, err := parseEntry(lines[i], i+1)
		if err != nil {
			return nil, err
		}
		if len(plb.sequence) > 0 && e.frame < plb.sequence[len(plb.sequence)-1].frame {
			return nil, curated.Errorf(PlaybackError, fmt.Sprintf("frames out of order at line %d", i+1))
		}
		plb.sequence = append(plb.sequence, e)
	}

	return plb, nil
}

// EndFrame returns true if every entry in the transcript has been played.
func (plb *Playback) EndFrame() bool {
	return plb.seqCt >= len(plb.sequence)
}

// RunFrame implements the Runner interface. Entries are checked and applied
// as soon as the machine reaches the frame they name. When RunFrame returns
// the input for the next frame is already latched.
func (plb *Playback) RunFrame() (hardware.FrameOutput, error) {
	if err := plb.apply(); err != nil {
		return hardware.FrameOutput{}, err
	}

	out, err := plb.runner.RunFrame()
	if err != nil {
		return out, err
	}

	if err := plb.digest.Frame(out.Frame); err != nil {
		return out, curated.Errorf(PlaybackError, err)
	}

	// entries for the frame that follows, including the final entry
	if err := plb.apply(); err != nil {
		return out, err
	}

	return out, nil
}

func (plb *Playback) apply() error {
	frame := plb.m.Frames()
	for plb.seqCt < len(plb.sequence) && plb.sequence[plb.seqCt].frame <= frame {
		e := plb.sequence[plb.seqCt]
		if e.frame == frame {
			if e.hash != plb.digest.Hash() {
				return curated.Errorf(PlaybackHashError, e.frame, e.line)
			}
			plb.m.SetInput(e.buttons)
		}
		plb.seqCt++
	}
	return nil
}
