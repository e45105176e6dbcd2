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

package digest

import (
	"crypto/sha1"
	"fmt"
	"image"

	"github.com/jetsetilly/gopherboy/curated"
)

// VideoError is the pattern for errors returned by the Video type.
const VideoError = "video digest: %v"

// Video creates a fingerprint of every frame passed to it. It implements the
// Digest interface.
type Video struct {
	digest [sha1.Size]byte
	pixels []byte
	frames int
}

// NewVideo is the preferred method of initialisation for the Video type.
func NewVideo() *Video {
	return &Video{}
}

// Hash implements the Digest interface.
func (dig *Video) Hash() string {
	return fmt.Sprintf("%x", dig.digest)
}

// ResetDigest implements the Digest interface.
func (dig *Video) ResetDigest() {
	dig.digest = [sha1.Size]byte{}
	dig.frames = 0
}

// Frames returns the number of frames that have contributed to the hash
// since the last reset.
func (dig *Video) Frames() int {
	return dig.frames
}

// Frame adds the image to the fingerprint.
func (dig *Video) Frame(img *image.RGBA) error {
	if img == nil {
		return curated.Errorf(VideoError, "no frame")
	}

	// the previous fingerprint is at the head of the data
	dig.pixels = append(dig.pixels[:0], dig.digest[:]...)

	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		i := img.PixOffset(b.Min.X, y)
		dig.pixels = append(dig.pixels, img.Pix[i:i+b.Dx()*4]...)
	}

	dig.digest = sha1.Sum(dig.pixels)
	dig.frames++

	return nil
}
