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

// Package mixer converts the stream of stereo samples produced by the
// emulated hardware, at the hardware's native rate, into a stream at the
// output rate. The converted stream is made available in fixed-size batches
// of interleaved 16 bit samples.
//
// Resampling is by linear interpolation between consecutive input samples.
// All arithmetic is integer so that the output is identical on every
// platform.
package mixer
