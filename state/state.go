// Package state persists the sampler's parameter values and the
// currently loaded instrument's path across runs, in TOML (the format
// the pack's own config package uses for durable settings).
package state

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"

	"github.com/klangwerk/gosampler"
)

// Snapshot is the on-disk representation of persisted state. Field
// names are capitalized for Go but the toml tags keep the file itself
// lowercase and stable across versions.
type Snapshot struct {
	Attack         float64 `toml:"attack"`
	Decay          float64 `toml:"decay"`
	Sustain        float64 `toml:"sustain"`
	Release        float64 `toml:"release"`
	Gain           float64 `toml:"gain"`
	Polyphony      int     `toml:"polyphony"`
	InstrumentPath string  `toml:"instrument_path"`
}

// Default returns a Snapshot matching the ParameterPlane defaults in
// spec.md §4.5, with no instrument loaded.
func Default() Snapshot {
	return Snapshot{
		Attack:    0.01,
		Decay:     0.1,
		Sustain:   0.8,
		Release:   0.5,
		Gain:      1.0,
		Polyphony: 16,
	}
}

// Load reads a Snapshot from path. A missing file is not an error: it
// returns Default() so first-run behaves like a fresh install.
func Load(path string) (Snapshot, error) {
	s := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return s, nil
	}
	if _, err := toml.DecodeFile(path, &s); err != nil {
		return Snapshot{}, fmt.Errorf("state: load %s: %w", path, err)
	}
	return s, nil
}

// Save writes s to path as TOML, creating or truncating the file.
func Save(path string, s Snapshot) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("state: save %s: %w", path, err)
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		return fmt.Errorf("state: save %s: %w", path, err)
	}
	return nil
}

// Apply pushes a Snapshot's parameter values onto a live
// ParameterPlane. It does not touch InstrumentPath; the caller is
// responsible for loading that instrument separately.
func Apply(s Snapshot, params *gosampler.ParameterPlane) {
	params.SetAttack(s.Attack)
	params.SetDecay(s.Decay)
	params.SetSustain(s.Sustain)
	params.SetRelease(s.Release)
	params.SetGain(s.Gain)
	params.SetPolyphony(s.Polyphony)
}

// CaptureFrom reads the current values off a live ParameterPlane into
// a Snapshot, preserving instrumentPath as given (the plane itself
// does not track it).
func CaptureFrom(params *gosampler.ParameterPlane, instrumentPath string) Snapshot {
	return Snapshot{
		Attack:         params.Attack(),
		Decay:          params.Decay(),
		Sustain:        params.Sustain(),
		Release:        params.Release(),
		Gain:           params.Gain(),
		Polyphony:      params.Polyphony(),
		InstrumentPath: instrumentPath,
	}
}
