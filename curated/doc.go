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

// Package curated is a helper package for the plain Go language error type.
// Curated errors implement the error interface.
//
// Curated errors are created with the Errorf() function. This is similar to
// the Errorf() function in the fmt package. It takes a formatting pattern,
// placeholder values and returns an error. The pattern doubles as the
// identity of the error.
//
//	const RomFormatError = "rom format: %v"
//	e := curated.Errorf(RomFormatError, "header checksum")
//	if curated.Is(e, RomFormatError) {
//		fmt.Println("true")
//	}
//
// The Has() function is similar but checks if a pattern occurs somewhere in
// the error chain.
//
//	f := curated.Errorf("machine: %v", e)
//	if curated.Has(f, RomFormatError) {
//		fmt.Println("true")
//	}
//
// In this example a call to Is(f, RomFormatError) returns false because the
// outermost pattern of f is "machine: %v".
//
// The IsAny() function answers whether the error was created by
// curated.Errorf(). We can think of curated errors as 'expected' errors and
// uncurated errors as 'unexpected' errors.
//
// The Error() function implementation for curated errors ensures that the
// error chain is normalised. Specifically, that the chain does not contain
// duplicate adjacent parts. For example, an error created by
//
//	curated.Errorf("savestate: %v", curated.Errorf("savestate: %v", "short data"))
//
// will be printed as:
//
//	savestate: short data
//
// For the purposes of this package we think of chains as being composed of
// parts separated by the sub-string ': '.
//
// Sentinel patterns should be stored as a const string, suitably named and
// commented. Curated errors wrapping other errors can be unwrapped with the
// errors package of the standard library.
package curated
