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
	"os"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/digest"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/hardware/input"
	"github.com/jetsetilly/gopherboy/logger"
)

// RecordingError is the pattern for errors returned by the Recorder type.
const RecordingError = "recording: %v"

// Recorder writes a transcript of the input to a machine.
type Recorder struct {
	m      *hardware.Machine
	runner Runner
	output *os.File
	digest *digest.Video

	// the input at the start of the previous frame
	last    input.Buttons
	written bool
}

// NewRecorder is the preferred method of initialisation for the Recorder
// type. The runner will normally be the machine itself or a wrapper around
// the machine.
func NewRecorder(transcript string, m *hardware.Machine, runner Runner) (*Recorder, error) {
	f, err := os.Create(transcript)
	if err != nil {
		return nil, curated.Errorf(RecordingError, err)
	}

	rec := &Recorder{
		m:      m,
		runner: runner,
		output: f,
		digest: digest.NewVideo(),
	}

	if err := writeHeader(f, m); err != nil {
		f.Close()
		return nil, curated.Errorf(RecordingError, err)
	}

	return rec, nil
}

func (rec *Recorder) write(e entry) error {
	if _, err := rec.output.WriteString(e.String() + "\n"); err != nil {
		return curated.Errorf(RecordingError, err)
	}
	rec.written = true
	return nil
}

// RunFrame implements the Runner interface. The input of the machine is
// recorded if it has changed since the previous frame.
func (rec *Recorder) RunFrame() (hardware.FrameOutput, error) {
	in := rec.m.Input()
	if !rec.written || in != rec.last {
		err := rec.write(entry{
			frame:   rec.m.Frames(),
			buttons: in,
			hash:    rec.digest.Hash(),
		})
		if err != nil {
			return hardware.FrameOutput{}, err
		}
		rec.last = in
	}

	out, err := rec.runner.RunFrame()
	if err != nil {
		return out, err
	}

	if err := rec.digest.Frame(out.Frame); err != nil {
		return out, curated.Errorf(RecordingError, err)
	}

	return out, nil
}

// End the recording. A final entry is written so that playback checks the
// output of the last frame.
func (rec *Recorder) End() error {
	err := rec.write(entry{
		frame:   rec.m.Frames(),
		buttons: rec.m.Input(),
		hash:    rec.digest.Hash(),
	})

	if cerr := rec.output.Close(); cerr != nil && err == nil {
		err = curated.Errorf(RecordingError, cerr)
	}

	if err == nil {
		logger.Logf(logger.Allow, "recorder", "transcript written to %s", rec.output.Name())
	}

	return err
}
