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

package cpu

import (
	"fmt"

	"github.com/jetsetilly/gopherboy/curated"
)

// Sentinal error returned by SetRegister() when the register name is not
// recognised.
const UnknownRegister = "cpu: unknown register: %s"

// UndefinedInstructionFault is returned by Core.Step() when an undefined or
// illegal instruction is executed.
type UndefinedInstructionFault struct {
	Architecture string
	Address      uint32
	Opcode       uint32

	// a recoverable fault is one where the architecture defines what happens
	// next, for example by taking an exception. an unrecoverable fault leaves
	// the core locked
	Recoverable bool
}

func (f UndefinedInstructionFault) Error() string {
	s := fmt.Sprintf("%s: undefined instruction %#x at %#x", f.Architecture, f.Opcode, f.Address)
	if !f.Recoverable {
		s = fmt.Sprintf("%s (core locked)", s)
	}
	return s
}

// UnknownRegisterError is a convenience function for cores implementing
// SetRegister().
func UnknownRegisterError(name string) error {
	return curated.Errorf(UnknownRegister, name)
}
