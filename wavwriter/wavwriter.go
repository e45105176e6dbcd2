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

// Package wavwriter writes the audio stream of the emulation to disk as a WAV
// file. Samples are written as they arrive and the file is completed when
// Close() is called.
package wavwriter

import (
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/logger"
)

// the emulation produces 16 bit stereo
const (
	bitDepth    = 16
	numChannels = 2

	// PCM format in the WAV header
	formatPCM = 1
)

// WavWriter writes interleaved stereo samples to a WAV file.
type WavWriter struct {
	filename string
	f        *os.File
	enc      *wav.Encoder
	buf      *audio.IntBuffer

	// number of stereo frames written
	frames int
}

// New is the preferred method of initialisation for the WavWriter type. The
// sample rate should be the output rate of the audio mixer.
func New(filename string, sampleRate int) (*WavWriter, error) {
	f, err := os.Create(filename)
	if err != nil {
		return nil, curated.Errorf("wavwriter: %v", err)
	}

	aw := &WavWriter{
		filename: filename,
		f:        f,
		enc:      wav.NewEncoder(f, sampleRate, bitDepth, numChannels, formatPCM),
		buf: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: numChannels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: bitDepth,
		},
	}

	return aw, nil
}

// Write interleaved stereo samples. Writing an odd number of samples is an
// error.
func (aw *WavWriter) Write(samples []int16) error {
	if len(samples)%numChannels != 0 {
		return curated.Errorf("wavwriter: %v", "samples are not interleaved stereo")
	}
	if len(samples) == 0 {
		return nil
	}

	aw.buf.Data = aw.buf.Data[:0]
	for _, s := range samples {
		aw.buf.Data = append(aw.buf.Data, int(s))
	}

	if err := aw.enc.Write(aw.buf); err != nil {
		return curated.Errorf("wavwriter: %v", err)
	}
	aw.frames += len(samples) / numChannels

	return nil
}

// Frames returns the number of stereo frames written so far.
func (aw *WavWriter) Frames() int {
	return aw.frames
}

// Close completes the WAV file.
func (aw *WavWriter) Close() (rerr error) {
	defer func() {
		if err := aw.f.Close(); err != nil && rerr == nil {
			rerr = curated.Errorf("wavwriter: %v", err)
		}
	}()

	if err := aw.enc.Close(); err != nil {
		return curated.Errorf("wavwriter: %v", err)
	}

	logger.Logf(logger.Allow, "wavwriter", "wrote %d frames of audio to %s", aw.frames, aw.filename)

	return nil
}
