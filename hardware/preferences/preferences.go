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

package preferences

import (
	"strings"

	"github.com/jetsetilly/gopherboy/curated"
	"github.com/jetsetilly/gopherboy/prefs"
)

// Sentinal error returned when the model preference is not recognised.
const UnknownModel = "preferences: unknown model: %s"

// Game Boy models accepted by the GBModel preference.
const (
	ModelAuto = "AUTO"
	ModelDMG  = "DMG"
	ModelCGB  = "CGB"
)

// Preferences defines and collates all the preference values used by the
// hardware.
type Preferences struct {
	collection *prefs.Collection

	// use translated code for the ARM
	JITEnabled prefs.Bool

	// translate code in the background
	JITBackground prefs.Bool

	// maximum number of instructions in a translated block
	JITBlockLimit prefs.Int

	// sample rate and batch size of the audio stream
	AudioSampleRate prefs.Int
	AudioBatch      prefs.Int

	// the rewind buffer is enabled
	RewindEnabled prefs.Bool

	// memory budget of the rewind buffer in bytes per second of emulated
	// time. the total budget is RewindBudget multiplied by RewindSeconds
	RewindBudget  prefs.Int
	RewindSeconds prefs.Int

	// compress snapshots in the rewind buffer
	RewindCompression prefs.Bool

	// the Game Boy model to emulate
	GBModel prefs.String

	// log accesses to unmapped and read-only memory
	LogBusAnomalies prefs.Bool
}

func (p *Preferences) String() string {
	return p.collection.String()
}

// NewPreferences is the preferred method of initialisation for the
// Preferences type. Any values on the command line stack are applied.
func NewPreferences() (*Preferences, error) {
	p := &Preferences{
		collection: prefs.NewCollection(),
	}

	for key, v := range map[string]prefs.Pref{
		"jit.enabled":        &p.JITEnabled,
		"jit.background":     &p.JITBackground,
		"jit.blocklimit":     &p.JITBlockLimit,
		"audio.samplerate":   &p.AudioSampleRate,
		"audio.batch":        &p.AudioBatch,
		"rewind.enabled":     &p.RewindEnabled,
		"rewind.budget":      &p.RewindBudget,
		"rewind.seconds":     &p.RewindSeconds,
		"rewind.compression": &p.RewindCompression,
		"gb.model":           &p.GBModel,
		"log.busanomalies":   &p.LogBusAnomalies,
	} {
		if err := p.collection.Add(key, v); err != nil {
			return nil, err
		}
	}

	p.GBModel.SetHookPre(func(v prefs.Value) error {
		s, ok := v.(string)
		if !ok {
			return curated.Errorf(UnknownModel, v)
		}
		switch strings.ToUpper(s) {
		case ModelAuto, ModelDMG, ModelCGB:
			return nil
		}
		return curated.Errorf(UnknownModel, s)
	})

	if err := p.SetDefaults(); err != nil {
		return nil, err
	}

	if err := p.collection.ApplyCommandLine(); err != nil {
		return nil, err
	}

	return p, nil
}

// SetDefaults reverts all preferences to their default values.
func (p *Preferences) SetDefaults() error {
	for _, err := range []error{
		p.JITEnabled.Set(true),
		p.JITBackground.Set(false),
		p.JITBlockLimit.Set(32),
		p.AudioSampleRate.Set(48000),
		p.AudioBatch.Set(512),
		p.RewindEnabled.Set(true),
		p.RewindBudget.Set(1048576),
		p.RewindSeconds.Set(10),
		p.RewindCompression.Set(true),
		p.GBModel.Set(ModelAuto),
		p.LogBusAnomalies.Set(false),
	} {
		if err != nil {
			return err
		}
	}
	return nil
}

// Set the preference with the key. The value is converted as necessary.
func (p *Preferences) Set(key string, value prefs.Value) error {
	v, ok := p.collection.Get(key)
	if !ok {
		return curated.Errorf("preferences: unknown key: %s", key)
	}
	return v.Set(value)
}

// Keys returns the list of preference keys.
func (p *Preferences) Keys() []string {
	return p.collection.Keys()
}

// Model returns the normalised value of the GBModel preference.
func (p *Preferences) Model() string {
	return strings.ToUpper(p.GBModel.Get().(string))
}
