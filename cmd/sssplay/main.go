package main

import (
	"log/slog"
	"os"

	"github.com/klangwerk/gosampler"
	"github.com/klangwerk/gosampler/cmd/internal/config"
	"github.com/klangwerk/gosampler/decoder/wavdecoder"
	"github.com/klangwerk/gosampler/instrument"
	"github.com/klangwerk/gosampler/state"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	flags, snap, err := config.Parse(os.Args[1:])
	if err != nil {
		logger.Error("config: parse failed", "err", err)
		os.Exit(1)
	}

	engine := gosampler.NewEngine(wavdecoder.Opener{})
	engine.Logger = logger
	engine.Prepare(float64(flags.Hz), 4096)
	defer engine.Shutdown()

	state.Apply(snap, engine.Params())

	if flags.InstrumentPath != "" {
		loader := instrument.NewLoader(wavdecoder.Opener{})
		loader.Logger = logger
		samples, err := loader.LoadFromFolder(flags.InstrumentPath)
		if err != nil {
			logger.Error("instrument: load failed", "path", flags.InstrumentPath, "err", err)
		} else {
			engine.LoadInstrument(samples)
			logger.Info("instrument: loaded", "path", flags.InstrumentPath, "samples", len(samples))
		}
	}

	play(engine, flags)

	if err := state.Save(flags.StatePath, state.CaptureFrom(engine.Params(), flags.InstrumentPath)); err != nil {
		logger.Warn("state: save failed", "err", err)
	}
}
