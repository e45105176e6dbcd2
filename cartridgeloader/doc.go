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

// Package cartridgeloader is used to load cartridge and BIOS images from
// disk or from the network. Loader filenames with an http or https scheme are
// fetched from the network, all other filenames are read from the local
// filesystem.
//
// Images compressed with gzip (file extension ".gz") are decompressed. Images
// in a zip archive (file extension ".zip") are extracted from the archive. The
// first entry in the archive with a file extension listed in FileExtensions is
// used.
package cartridgeloader
