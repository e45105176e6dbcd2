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

// Package prefs holds the typed preference values used throughout the
// emulator. Each type (Bool, Int, Float and String) is safe to read from a
// goroutine other than the one that sets it.
//
// Values can be named and grouped with the Collection type. Command line
// overrides are applied to a Collection with the ApplyCommandLine() function,
// which consults the command line stack (see PushCommandLineStack()).
//
// Preferences are not written to disk.
package prefs
