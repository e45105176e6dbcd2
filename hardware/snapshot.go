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

package hardware

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware/audio/mixer"
	"github.com/jetsetilly/gopherboy/hardware/input"
)

// Sentinal errors returned by LoadState().
const (
	StateVersionMismatch = "savestate: version mismatch: %v"
	StateCorrupt         = "savestate: corrupt: %v"
)

// StateVersion is the version of the savestate format. The version is the
// first thing in a savestate and is checked before anything else is decoded.
const StateVersion = 1

// savestate header layout. the kind string follows the fixed part of the
// header
//
//	0  version (uint32 little endian)
//	4  checksum of cartridge image (uint32 little endian)
//	8  flags
//	9  length of kind string
const (
	headerFixed = 10

	flagCompressed = 0x01
)

// the parts of the savestate that belong to the Machine and not the System
type machineState struct {
	Frames uint64
	Input  input.Buttons
	Mixer  mixer.State
}

// SaveState returns the serialised state of the machine. The savestate is
// compressed.
func (m *Machine) SaveState() ([]uint8, error) {
	return m.EncodeState(true)
}

// EncodeState returns the serialised state of the machine with optional
// compression.
func (m *Machine) EncodeState(compress bool) ([]uint8, error) {
	var payload bytes.Buffer

	enc := gob.NewEncoder(&payload)
	if err := enc.Encode(machineState{
		Frames: m.frames,
		Input:  m.input,
		Mixer:  m.mixer.Snapshot(),
	}); err != nil {
		return nil, curated.Errorf("savestate: %v", err)
	}
	if err := enc.Encode(m.sys.State()); err != nil {
		return nil, curated.Errorf("savestate: %v", err)
	}

	kind := m.sys.Kind()

	var flags uint8
	if compress {
		flags |= flagCompressed
	}

	data := make([]uint8, headerFixed, headerFixed+len(kind)+payload.Len())
	binary.LittleEndian.PutUint32(data[0:], StateVersion)
	binary.LittleEndian.PutUint32(data[4:], m.romCRC)
	data[8] = flags
	data[9] = uint8(len(kind))
	data = append(data, kind...)

	if compress {
		return m.encoder.EncodeAll(payload.Bytes(), data), nil
	}
	return append(data, payload.Bytes()...), nil
}

// LoadState replaces the state of the machine with a savestate created by
// SaveState() or EncodeState(). The machine is unchanged if an error is
// returned.
//
// A savestate from a different version of the format, for a different kind of
// machine or for a different cartridge is rejected with StateVersionMismatch.
// A savestate that cannot be decoded is rejected with StateCorrupt.
func (m *Machine) LoadState(data []uint8) error {
	if len(data) < 4 {
		return curated.Errorf(StateCorrupt, "too short")
	}

	if v := binary.LittleEndian.Uint32(data); v != StateVersion {
		return curated.Errorf(StateVersionMismatch, fmt.Sprintf("version %d is not version %d", v, StateVersion))
	}

	if len(data) < headerFixed || len(data) < headerFixed+int(data[9]) {
		return curated.Errorf(StateCorrupt, "truncated header")
	}

	kind := string(data[headerFixed : headerFixed+int(data[9])])
	if kind != m.sys.Kind() {
		return curated.Errorf(StateVersionMismatch, fmt.Sprintf("state is for %s not %s", kind, m.sys.Kind()))
	}
	if crc := binary.LittleEndian.Uint32(data[4:]); crc != m.romCRC {
		return curated.Errorf(StateVersionMismatch, "state is for a different cartridge")
	}

	payload := data[headerFixed+int(data[9]):]
	if data[8]&flagCompressed == flagCompressed {
		var err error
		payload, err = m.decoder.DecodeAll(payload, nil)
		if err != nil {
			return curated.Errorf(StateCorrupt, err)
		}
	}

	dec := gob.NewDecoder(bytes.NewReader(payload))

	var ms machineState
	if err := dec.Decode(&ms); err != nil {
		return curated.Errorf(StateCorrupt, err)
	}
	st := m.sys.NewState()
	if err := dec.Decode(st); err != nil {
		return curated.Errorf(StateCorrupt, err)
	}

	if err := m.sys.SetState(st); err != nil {
		return curated.Errorf(StateCorrupt, err)
	}

	m.mixer.Restore(ms.Mixer)
	m.frames = ms.Frames
	m.input = ms.Input
	m.fault = nil

	return nil
}
