// Package gosampler implements a direct-from-disk polyphonic sample
// playback engine: zone-based round-robin dispatch over a fixed voice
// pool, each voice fed by a lock-free ring buffer that a background
// disk thread keeps filled.
package gosampler

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/klangwerk/gosampler/decoder"
)

// Engine is the top-level object a host embeds: it wires together the
// parameter plane, voice pool, instrument catalog, and disk streamer,
// and exposes the Prepare/Process/LoadInstrument/Shutdown lifecycle.
type Engine struct {
	Logger *slog.Logger

	sampleRate float64

	params   *ParameterPlane
	catalog  *CatalogStore
	streamer *DiskStreamer
	pool     *VoicePool

	opener decoder.Opener

	prepared atomic.Bool
}

// NewEngine returns an unprepared engine. opener is used by the disk
// streamer to open sample files and by LoadInstrument callers
// separately (see the instrument package) to build preload buffers.
func NewEngine(opener decoder.Opener) *Engine {
	return &Engine{
		Logger: slog.Default(),
		params: NewParameterPlane(),
		catalog: NewCatalogStore(),
		opener:  opener,
	}
}

// Prepare allocates the voice pool and starts the disk thread at the
// given sample rate. maxBlockFrames is accepted for interface parity
// with the host contract in spec.md §6 but the engine does not
// preallocate per-block scratch (Render writes directly into the
// host-provided buffer).
func (e *Engine) Prepare(sampleRate float64, maxBlockFrames int) {
	e.sampleRate = sampleRate
	e.streamer = NewDiskStreamer(e.opener, e.Logger)
	e.pool = NewVoicePool(sampleRate, e.streamer)
	e.streamer.Start()
	e.prepared.Store(true)
}

// Shutdown stops the disk thread and releases its decoders. Safe to
// call even if Prepare was never called.
func (e *Engine) Shutdown() {
	if !e.prepared.Load() {
		return
	}
	e.streamer.Stop()
	e.prepared.Store(false)
}

// Params returns the engine's parameter plane for the control thread
// to update.
func (e *Engine) Params() *ParameterPlane { return e.params }

// LoadInstrument installs a newly built catalog of samples, replacing
// whatever instrument was previously loaded, and resets the
// round-robin table. Control-thread only, and only between blocks: the
// catalog swap is a single atomic pointer store and Process snapshots
// the catalog once per block, but the round-robin reset is a plain
// write to the table NoteOn reads, with no synchronization against a
// concurrent Process call.
func (e *Engine) LoadInstrument(samples []*PreloadedSample) {
	e.catalog.Swap(samples)
	if e.pool != nil {
		e.pool.ResetRoundRobin()
	}
	e.Logger.Info("instrument loaded", "samples", len(samples))
}

// Process renders numFrames frames into out (one slice per channel),
// applying each event at its Offset after rendering the frames before
// it. events must be sorted by increasing Offset: an event whose Offset
// is below that of an event already applied, or above numFrames, is
// skipped. It performs no
// I/O and no allocation; it must be called from the realtime audio
// thread once per host block.
func (e *Engine) Process(out [][]float32, numFrames int, events []Event) {
	if !e.prepared.Load() {
		return
	}
	snapshot := e.catalog.Current()

	attack, decay, sustain, release := e.params.Attack(), e.params.Decay(), e.params.Sustain(), e.params.Release()
	for i := 0; i < MaxVoices; i++ {
		e.pool.voices[i].env.SetADSR(attack, decay, sustain, release)
	}

	polyphony := e.params.Polyphony()

	cursor := 0
	for _, ev := range events {
		if ev.Offset < cursor || ev.Offset > numFrames {
			continue
		}
		if ev.Offset > cursor {
			e.pool.Render(out, cursor, ev.Offset-cursor)
			cursor = ev.Offset
		}
		e.applyEvent(snapshot, ev, polyphony)
	}
	if cursor < numFrames {
		e.pool.Render(out, cursor, numFrames-cursor)
	}

	applyGain(out, 0, numFrames, float32(e.params.Gain()))
}

func (e *Engine) applyEvent(catalog *InstrumentCatalog, ev Event, polyphony int) {
	switch ev.Kind {
	case NoteOn:
		e.pool.NoteOn(catalog, ev.Note, ev.Velocity, polyphony)
	case NoteOff:
		e.pool.NoteOff(ev.Note)
	case ControlChange:
		if ev.CC == SustainPedalCC {
			e.pool.SustainPedal(ev.CCValue >= 64)
		}
	}
}

// String reports a short diagnostic summary, used by cmd/sssplay's
// terminal view.
func (e *Engine) String() string {
	return fmt.Sprintf("sampler.Engine{sampleRate=%g polyphony=%d}", e.sampleRate, e.params.Polyphony())
}
