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

package prefs

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
)

// Sentinal error returned when a key has already been added to a Collection.
const DuplicateKey = "prefs: duplicate key: %s"

// Collection names preference values with a key. Keys are of the form
// "group.name", for example "jit.enabled".
type Collection struct {
	entries map[string]Pref
}

// NewCollection is the preferred method of initialisation for the Collection
// type.
func NewCollection() *Collection {
	return &Collection{
		entries: make(map[string]Pref),
	}
}

// Add a preference value to the collection.
func (c *Collection) Add(key string, p Pref) error {
	if _, ok := c.entries[key]; ok {
		return curated.Errorf(DuplicateKey, key)
	}
	c.entries[key] = p
	return nil
}

// Get the preference value with the key.
func (c *Collection) Get(key string) (Pref, bool) {
	p, ok := c.entries[key]
	return p, ok
}

// Keys returns a sorted list of keys in the collection.
func (c *Collection) Keys() []string {
	k := make([]string, 0, len(c.entries))
	for key := range c.entries {
		k = append(k, key)
	}
	sort.Strings(k)
	return k
}

// ApplyCommandLine sets any preference values that have an entry at the top of
// the command line stack. Values taken from the stack are removed from it.
func (c *Collection) ApplyCommandLine() error {
	for _, key := range c.Keys() {
		if ok, v := GetCommandLinePref(key); ok {
			if err := c.entries[key].Set(v); err != nil {
				return curated.Errorf("prefs: %s: %v", key, err)
			}
		}
	}
	return nil
}

// String returns every key and value in the collection. The format of the
// string is the same as the format accepted by PushCommandLineStack().
func (c *Collection) String() string {
	s := strings.Builder{}
	for _, key := range c.Keys() {
		s.WriteString(fmt.Sprintf("%s::%s; ", key, c.entries[key].String()))
	}
	return strings.TrimSuffix(s.String(), "; ")
}
