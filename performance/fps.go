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

// CalcFPS takes the number of frames, the number of emulated cycles those
// frames took and the duration (in seconds) of the real time taken. It returns
// the frames-per-second and the accuracy of that value as a percentage of the
// speed of the real hardware.
func CalcFPS(numFrames int, cycles uint64, clockRate int, duration float64) (fps float64, accuracy float64) {
	if duration <= 0 || clockRate <= 0 {
		return 0, 0
	}
	fps = float64(numFrames) / duration
	accuracy = 100 * float64(cycles) / (duration * float64(clockRate))
	return fps, accuracy
}
