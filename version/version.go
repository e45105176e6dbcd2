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

// Package version reports the version of the program. The version number is
// set at link time, for example:
//
//	go build -ldflags "-X github.com/jetsetilly/gopherboy/version.number=v0.1.0"
//
// Revision information is taken from the build information embedded by the
// Go toolchain.
package version

import (
	"fmt"
	"runtime/debug"
)

// ApplicationName is the name to use when referring to the application.
const ApplicationName = "GopherBoy"

// if number is empty then the project was not built with a version number
var number string

// Info describes the version of the program.
type Info struct {
	// the version number. "unreleased" if there is no version number but
	// there is vcs information. "local" if there is neither
	Number string

	// the vcs revision. suffixed with "+dirty" if the source had been
	// modified but not committed
	Revision string

	// Release is true if Number is a real version number
	Release bool
}

func (i Info) String() string {
	if i.Release {
		return fmt.Sprintf("%s %s", ApplicationName, i.Number)
	}
	return fmt.Sprintf("%s %s (%s)", ApplicationName, i.Number, i.Revision)
}

var info Info

// Version returns the version information of the program.
func Version() Info {
	return info
}

func init() {
	info = newInfo(number, readSettings())
}

func readSettings() map[string]string {
	settings := make(map[string]string)
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, s := range bi.Settings {
			settings[s.Key] = s.Value
		}
	}
	return settings
}

func newInfo(num string, settings map[string]string) Info {
	var i Info

	if rev, ok := settings["vcs.revision"]; ok && rev != "" {
		i.Revision = rev
		if settings["vcs.modified"] == "true" {
			i.Revision = fmt.Sprintf("%s+dirty", i.Revision)
		}
	} else {
		i.Revision = "no revision information"
	}

	switch {
	case num != "":
		i.Number = num
		i.Release = true
	case settings["vcs"] != "":
		i.Number = "unreleased"
	default:
		i.Number = "local"
	}

	return i
}
