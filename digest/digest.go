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

// Package digest is used to create fingerprints of the emulation's output.
// The Video type creates a fingerprint of the frame images and the Audio type
// creates a fingerprint of the sample stream.
//
// Each fingerprint is chained to the previous one so the hash represents the
// entire history of the output and not just the most recent frame. Two
// emulations that produce the same hash have produced the same output from
// the moment the digest was last reset.
//
// The hash is not intended for cryptographic purposes. It is useful for
// checking that an emulation is deterministic and for comparing the output of
// two emulations without keeping the output itself.
package digest

// Digest implementations create a fingerprint of the emulation's output.
type Digest interface {
	Hash() string
	ResetDigest()
}
