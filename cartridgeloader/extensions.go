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

package cartridgeloader

// FileExtensions is the list of file extensions that are recognised as
// cartridge or BIOS images.
var FileExtensions = [...]string{".GB", ".GBC", ".CGB", ".DMG", ".GBA", ".AGB", ".BIN", ".ROM"}

// the list of file extensions that indicate a compressed image.
const (
	extGzip = ".GZ"
	extZip  = ".ZIP"
)

func isImageExtension(ext string) bool {
	for _, e := range FileExtensions {
		if e == ext {
			return true
		}
	}
	return false
}
