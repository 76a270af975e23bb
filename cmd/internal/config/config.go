package config

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/klangwerk/gosampler/state"
)

// Flags are the one-shot run parameters accepted on the command line,
// layered over persisted state rather than replacing it: a flag that
// was actually set on the command line wins, otherwise the persisted
// value (or its default) is used.
type Flags struct {
	Hz             int
	Polyphony      int
	InstrumentPath string
	StatePath      string
	NoUI           bool
}

// Parse reads flags from args and merges them with whatever is in
// StatePath (or the defaults, if StatePath does not exist yet).
func Parse(args []string) (Flags, state.Snapshot, error) {
	fs := flag.NewFlagSet("sssplay", flag.ExitOnError)

	defaultState, _ := defaultStatePath()

	hz := fs.Int("hz", 44100, "output sample rate")
	polyphony := fs.Int("polyphony", 0, "voice count limit, 1-64 (0 = use persisted/default)")
	instrument := fs.String("instrument", "", "instrument folder to load at startup (overrides persisted state)")
	statePath := fs.String("state", defaultState, "path to the persisted parameter/instrument state file")
	noUI := fs.Bool("noui", false, "turn off the terminal UI")

	if err := fs.Parse(args); err != nil {
		return Flags{}, state.Snapshot{}, fmt.Errorf("config: parse flags: %w", err)
	}

	snap, err := state.Load(*statePath)
	if err != nil {
		return Flags{}, state.Snapshot{}, err
	}

	if *polyphony > 0 {
		snap.Polyphony = *polyphony
	}
	if *instrument != "" {
		snap.InstrumentPath = *instrument
	}

	return Flags{
		Hz:             *hz,
		Polyphony:      snap.Polyphony,
		InstrumentPath: snap.InstrumentPath,
		StatePath:      *statePath,
		NoUI:           *noUI,
	}, snap, nil
}

func defaultStatePath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "sssplay-state.toml", nil
	}
	return filepath.Join(dir, "sssplay", "state.toml"), nil
}
