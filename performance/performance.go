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

package performance

import (
	"fmt"
	"io"
	"time"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware"
)

// CheckError is the pattern used for errors returned by Check().
const CheckError = "performance: %v"

// Result of a call to Check().
type Result struct {
	Frames   int
	Cycles   uint64
	Duration time.Duration
	FPS      float64
	Accuracy float64
}

func (r Result) String() string {
	return fmt.Sprintf("%.2f fps (%d frames in %.2f seconds) %.1f%%", r.FPS, r.Frames, r.Duration.Seconds(), r.Accuracy)
}

// Check the performance of the emulator by running the machine for the
// specified number of frames. The result is written to output.
//
// A profile of the run will be created as defined by the Profile argument.
// Profile files are named with the label, which is also used to prefix the
// output line.
func Check(output io.Writer, profile Profile, m *hardware.Machine, label string, frames int) (Result, error) {
	if frames <= 0 {
		return Result{}, curated.Errorf(CheckError, "number of frames must be positive")
	}

	var res Result

	startCycle := m.Now()

	runner := func() error {
		start := time.Now()
		for res.Frames < frames {
			if _, err := m.RunFrame(); err != nil {
				return err
			}
			res.Frames++
		}
		res.Duration = time.Since(start)
		return nil
	}

	if err := RunProfiler(profile, label, runner); err != nil {
		return Result{}, curated.Errorf(CheckError, err)
	}

	res.Cycles = m.Now() - startCycle
	res.FPS, res.Accuracy = CalcFPS(res.Frames, res.Cycles, m.ClockRate(), res.Duration.Seconds())

	if output != nil {
		fmt.Fprintf(output, "%s: %s\n", label, res)
	}

	return res, nil
}
