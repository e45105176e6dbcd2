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

package input

import (
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
)

// Buttons is a bit mask of pressed buttons. A set bit means the button is
// pressed.
type Buttons uint16

// List of valid buttons. The order matches the bit order of the GBA KEYINPUT
// register and, for the first eight, the Game Boy joypad register.
const (
	A Buttons = 1 << iota
	B
	Select
	Start
	Right
	Left
	Up
	Down
	R
	L

	None Buttons = 0
	All  Buttons = 0x03ff
)

var names = []struct {
	b Buttons
	n string
}{
	{A, "A"}, {B, "B"}, {Select, "SELECT"}, {Start, "START"},
	{Right, "RIGHT"}, {Left, "LEFT"}, {Up, "UP"}, {Down, "DOWN"},
	{R, "R"}, {L, "L"},
}

func (b Buttons) String() string {
	s := strings.Builder{}
	for _, n := range names {
		if b&n.b == n.b {
			if s.Len() > 0 {
				s.WriteString("+")
			}
			s.WriteString(n.n)
		}
	}
	if s.Len() == 0 {
		return "none"
	}
	return s.String()
}

// Pressed returns true if all the buttons in the argument are pressed.
func (b Buttons) Pressed(buttons Buttons) bool {
	return b&buttons == buttons
}

// Sentinal error returned by ParseButtons() if a button name is not recognised.
const UnknownButton = "input: unknown button: %s"

// ParseButtons converts a list of button names, separated by a plus sign, into
// a Buttons mask. The names are the same as those used by the String()
// function and are case insensitive.
func ParseButtons(s string) (Buttons, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "none") {
		return None, nil
	}

	var b Buttons
	for _, p := range strings.Split(s, "+") {
		p = strings.ToUpper(strings.TrimSpace(p))
		found := false
		for _, n := range names {
			if n.n == p {
				b |= n.b
				found = true
				break
			}
		}
		if !found {
			return None, curated.Errorf(UnknownButton, p)
		}
	}
	return b, nil
}
