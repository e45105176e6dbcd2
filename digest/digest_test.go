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

package digest_test

import (
	"image"
	"testing"

	"github.com/jetsetilly/gopherboy/digest"
	"github.com/jetsetilly/gopherboy/test"
)

func frame(v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestVideo(t *testing.T) {
	a := digest.NewVideo()
	b := digest.NewVideo()
	test.ExpectEquality(t, a.Hash(), b.Hash())

	test.DemandSuccess(t, a.Frame(frame(1)))
	test.DemandSuccess(t, b.Frame(frame(1)))
	test.ExpectEquality(t, a.Hash(), b.Hash())

	test.DemandSuccess(t, a.Frame(frame(2)))
	test.DemandSuccess(t, b.Frame(frame(3)))
	test.ExpectInequality(t, a.Hash(), b.Hash())
	test.ExpectEquality(t, a.Frames(), 2)

	test.ExpectFailure(t, a.Frame(nil))
}

func TestVideoChaining(t *testing.T) {
	// the same frames in a different order give a different hash
	a := digest.NewVideo()
	b := digest.NewVideo()
	test.DemandSuccess(t, a.Frame(frame(1)))
	test.DemandSuccess(t, a.Frame(frame(2)))
	test.DemandSuccess(t, b.Frame(frame(2)))
	test.DemandSuccess(t, b.Frame(frame(1)))
	test.ExpectInequality(t, a.Hash(), b.Hash())

	// the last frame alone does not decide the hash
	c := digest.NewVideo()
	test.DemandSuccess(t, c.Frame(frame(2)))
	test.ExpectInequality(t, a.Hash(), c.Hash())

	a.ResetDigest()
	test.ExpectEquality(t, a.Hash(), digest.NewVideo().Hash())
	test.ExpectEquality(t, a.Frames(), 0)
}

func TestVideoSubImage(t *testing.T) {
	// only the pixels inside the bounds of the image contribute
	a := digest.NewVideo()
	b := digest.NewVideo()

	img := frame(1)
	sub := img.SubImage(image.Rect(0, 0, 8, 8)).(*image.RGBA)
	test.DemandSuccess(t, a.Frame(sub))

	img = frame(1)
	for y := 0; y < 8; y++ {
		for x := 8; x < 16; x++ {
			img.Pix[img.PixOffset(x, y)] = 99
		}
	}
	sub = img.SubImage(image.Rect(0, 0, 8, 8)).(*image.RGBA)
	test.DemandSuccess(t, b.Frame(sub))

	test.ExpectEquality(t, a.Hash(), b.Hash())
}

func TestAudio(t *testing.T) {
	a := digest.NewAudio()
	b := digest.NewAudio()

	samples := make([]int16, 5000)
	for i := range samples {
		samples[i] = int16(i * 7)
	}

	// the division of the stream into batches does not matter
	a.Samples(samples)
	b.Samples(samples[:1234])
	b.Samples(samples[1234:])
	test.ExpectEquality(t, a.Hash(), b.Hash())

	// partially filled buffers contribute
	h := a.Hash()
	a.Samples([]int16{1})
	test.ExpectInequality(t, a.Hash(), h)
	test.ExpectEquality(t, a.Hash(), a.Hash())

	a.ResetDigest()
	test.ExpectEquality(t, a.Hash(), digest.NewAudio().Hash())
}
