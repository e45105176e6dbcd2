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

package prefs_test

import (
	"testing"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/prefs"
	"github.com/jetsetilly/gopherboy/test"
)

func TestTypes(t *testing.T) {
	var b prefs.Bool
	test.ExpectEquality(t, b.Get().(bool), false)
	test.ExpectSuccess(t, b.Set("TRUE"))
	test.ExpectEquality(t, b.Get().(bool), true)
	test.ExpectEquality(t, b.String(), "true")
	test.ExpectFailure(t, b.Set(10))

	var i prefs.Int
	test.ExpectSuccess(t, i.Set("44100"))
	test.ExpectEquality(t, i.Get().(int), 44100)
	err := i.Set("not a number")
	test.ExpectFailure(t, err)
	test.ExpectSuccess(t, curated.Is(err, prefs.ConversionError))
	test.ExpectEquality(t, i.Get().(int), 44100)

	var f prefs.Float
	test.ExpectSuccess(t, f.Set(2))
	test.ExpectEquality(t, f.String(), "2.000")

	var s prefs.String
	test.ExpectSuccess(t, s.Set("CGB"))
	test.ExpectEquality(t, s.String(), "CGB")
	test.ExpectSuccess(t, s.Reset())
	test.ExpectEquality(t, s.String(), "")
}

func TestHooks(t *testing.T) {
	var i prefs.Int
	var post int

	i.SetHookPre(func(v prefs.Value) error {
		if v.(int) < 0 {
			return curated.Errorf("negative")
		}
		return nil
	})
	i.SetHookPost(func(v prefs.Value) error {
		post = v.(int)
		return nil
	})

	test.ExpectSuccess(t, i.Set(10))
	test.ExpectEquality(t, post, 10)

	// pre hook prevents the value from changing
	test.ExpectFailure(t, i.Set(-1))
	test.ExpectEquality(t, i.Get().(int), 10)
	test.ExpectEquality(t, post, 10)
}

func TestCollection(t *testing.T) {
	var enabled prefs.Bool
	var rate prefs.Int

	c := prefs.NewCollection()
	test.ExpectSuccess(t, c.Add("jit.enabled", &enabled))
	test.ExpectSuccess(t, c.Add("audio.samplerate", &rate))
	test.ExpectFailure(t, c.Add("jit.enabled", &enabled))

	prefs.PushCommandLineStack("jit.enabled::true; audio.samplerate::22050; unused::1")
	test.ExpectSuccess(t, c.ApplyCommandLine())
	test.ExpectEquality(t, prefs.PopCommandLineStack(), "unused::1")

	test.ExpectEquality(t, enabled.Get().(bool), true)
	test.ExpectEquality(t, rate.Get().(int), 22050)
	test.ExpectEquality(t, c.String(), "audio.samplerate::22050; jit.enabled::true")
}
