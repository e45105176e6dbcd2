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
	"io"
	"strconv"
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/hardware"
	"github.com/jetsetilly/gopherboy/hardware/input"
)

// transcript entry format
// -----------------------
//
// <frame>, <buttons>, <video hash>

const (
	fieldFrame int = iota
	fieldButtons
	fieldHash
	numFields
)

const fieldSep = ", "

// transcript header format
// ------------------------
//
// <magic>
// # <machine kind>
// # <cartridge crc32>

const magic = "gopherboy transcript"

const (
	lineMagic int = iota
	lineKind
	lineChecksum
	numHeaderLines
)

func writeHeader(w io.Writer, m *hardware.Machine) error {
	lines := make([]string, numHeaderLines)
	lines[lineMagic] = magic
	lines[lineKind] = fmt.Sprintf("# %s", m.Kind())
	lines[lineChecksum] = fmt.Sprintf("# %08x", m.ROMChecksum())

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}

func readHeader(lines []string, m *hardware.Machine) error {
	if len(lines) < numHeaderLines || lines[lineMagic] != magic {
		return curated.Errorf(PlaybackError, "not a transcript file")
	}

	kind := strings.TrimPrefix(lines[lineKind], "# ")
	if kind != m.Kind() {
		return curated.Errorf(PlaybackError, fmt.Sprintf("transcript is for a %s machine not a %s machine", kind, m.Kind()))
	}

	crc := strings.TrimPrefix(lines[lineChecksum], "# ")
	if crc != fmt.Sprintf("%08x", m.ROMChecksum()) {
		return curated.Errorf(PlaybackError, "transcript is for a different cartridge")
	}

	return nil
}

type entry struct {
	frame   uint64
	buttons input.Buttons
	hash    string

	// the line in the transcript file the entry appears
	line int
}

func (e entry) String() string {
	return strings.Join([]string{
		strconv.FormatUint(e.frame, 10),
		e.buttons.String(),
		e.hash,
	}, fieldSep)
}

func parseEntry(s string, line int) (entry, error) {
	toks := strings.Split(s, fieldSep)
	if len(toks) != numFields {
		return entry{}, curated.Errorf(PlaybackError, fmt.Sprintf("expected %d fields at line %d", numFields, line))
	}

	e := entry{line: line, hash: toks[fieldHash]}

	var err error
	e.frame, err = strconv.ParseUint(toks[fieldFrame], 10, 64)
	if err != nil {
		return entry{}, curated.Errorf(PlaybackError, fmt.Sprintf("invalid frame number at line %d", line))
	}

	e.buttons, err = input.ParseButtons(toks[fieldButtons])
	if err != nil {
		return entry{}, curated.Errorf(PlaybackError, fmt.Sprintf("line %d: %v", line, err))
	}

	return e, nil
}
