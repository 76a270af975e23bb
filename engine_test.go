package gosampler

import (
	"testing"
	"time"

	"github.com/klangwerk/gosampler/decoder/dfdtest"
)

func newTestEngine(t *testing.T, lib *dfdtest.Library) *Engine {
	t.Helper()
	e := NewEngine(lib)
	e.Prepare(44100, 1024)
	t.Cleanup(e.Shutdown)
	return e
}

func TestEngineTinyInMemorySampleProducesOutput(t *testing.T) {
	lib := dfdtest.NewLibrary()
	e := newTestEngine(t, lib)

	sample := &PreloadedSample{
		FilePath:         "mem/tiny.wav",
		TotalFrames:      64,
		Channels:         1,
		SourceSampleRate: 44100,
		RootNote:         60,
		HiNote:           127,
		HiVel:            127,
		Preload:          [][]float32{make([]float32, 64)},
	}
	for i := range sample.Preload[0] {
		sample.Preload[0][i] = 0.5
	}
	e.LoadInstrument([]*PreloadedSample{sample})
	e.Params().SetAttack(0.0001)

	out := [][]float32{make([]float32, 32), make([]float32, 32)}
	e.Process(out, 32, []Event{{Offset: 0, Kind: NoteOn, Note: 60, Velocity: 1.0}})

	nonZero := false
	for _, v := range out[0] {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Fatal("processing a note-on against a loaded sample should produce non-silent output")
	}
}

func TestEnginePitchRatioTwoAdvancesFasterThanUnity(t *testing.T) {
	lib := dfdtest.NewLibrary()
	e := newTestEngine(t, lib)

	sample := &PreloadedSample{
		FilePath:         "mem/tiny.wav",
		TotalFrames:      1000,
		Channels:         1,
		SourceSampleRate: 44100,
		RootNote:         60,
		HiNote:           127,
		HiVel:            127,
		Preload:          [][]float32{make([]float32, 1000)},
	}
	e.LoadInstrument([]*PreloadedSample{sample})

	out := [][]float32{make([]float32, 16), make([]float32, 16)}
	e.Process(out, 16, []Event{{Offset: 0, Kind: NoteOn, Note: 72, Velocity: 1.0}})

	voice := e.pool.Voice(0)
	if voice.sourcePos < 31 || voice.sourcePos > 33 {
		t.Errorf("sourcePos after 16 frames an octave up = %v, want ~32", voice.sourcePos)
	}
}

func TestEngineRoundRobinOverThreeZones(t *testing.T) {
	lib := dfdtest.NewLibrary()
	e := newTestEngine(t, lib)

	zones := []*PreloadedSample{
		makeZoneSample(t, "a"),
		makeZoneSample(t, "b"),
		makeZoneSample(t, "c"),
	}
	e.LoadInstrument(zones)

	out := [][]float32{make([]float32, 4), make([]float32, 4)}
	var seen []string
	for i := 0; i < 3; i++ {
		e.Process(out, 4, []Event{{Offset: 0, Kind: NoteOn, Note: 60, Velocity: 1.0}})
		for j := 0; j < MaxVoices; j++ {
			v := e.pool.Voice(j)
			if v.IsActive() && v.PlayingNote() == 60 {
				seen = append(seen, v.GetCurrentSample().Name)
				v.Reset()
				break
			}
		}
	}
	want := []string{"a", "b", "c"}
	for i, w := range want {
		if i >= len(seen) || seen[i] != w {
			t.Errorf("round %d got %v, want sequence %v", i, seen, want)
		}
	}
}

func TestEngineStreamingPlaybackWithDiskThreadDisabled(t *testing.T) {
	lib := dfdtest.NewLibrary()
	e := newTestEngine(t, lib)
	e.streamer.Stop() // starve the voice of any disk refills on purpose

	total := int64(PreloadFrames(2)) * 4
	sample := &PreloadedSample{
		FilePath:         "mem/streamed.wav",
		TotalFrames:      total,
		Channels:         2,
		SourceSampleRate: 44100,
		RootNote:         60,
		HiNote:           127,
		HiVel:            127,
		Preload:          [][]float32{make([]float32, PreloadFrames(2)), make([]float32, PreloadFrames(2))},
	}
	e.LoadInstrument([]*PreloadedSample{sample})
	e.Params().SetAttack(0.0001)

	out := [][]float32{make([]float32, 1), make([]float32, 1)}
	e.Process(out, 1, []Event{{Offset: 0, Kind: NoteOn, Note: 60, Velocity: 1.0}})

	voice := e.pool.Voice(0)
	if !voice.IsActive() {
		t.Fatal("voice should still be active immediately after note-on")
	}

	frame := 0
	for ; frame < int(PreloadFrames(2))+UnderrunFade+16 && voice.IsActive(); frame++ {
		e.Process(out, 1, nil)
	}
	if voice.IsActive() {
		t.Fatal("a voice with no disk thread feeding it should fall silent once its preload is exhausted")
	}
	expected := PreloadFrames(2) + UnderrunFade
	if frame < expected-8 || frame > expected+8 {
		t.Errorf("voice deactivated after %d frames, want close to %d", frame, expected)
	}
}

func TestEngineVoiceStealAtPolyphonyTwo(t *testing.T) {
	lib := dfdtest.NewLibrary()
	e := newTestEngine(t, lib)
	e.LoadInstrument([]*PreloadedSample{makeZoneSample(t, "only")})
	e.Params().SetPolyphony(2)

	out := [][]float32{make([]float32, 4), make([]float32, 4)}
	e.Process(out, 4, []Event{{Offset: 0, Kind: NoteOn, Note: 60, Velocity: 1.0}})
	e.Process(out, 4, []Event{{Offset: 0, Kind: NoteOn, Note: 62, Velocity: 1.0}})
	e.Process(out, 4, []Event{{Offset: 0, Kind: NoteOn, Note: 64, Velocity: 1.0}})

	if e.pool.Voice(0).PlayingNote() != 64 {
		t.Errorf("slot 0 should have been stolen for the third note, playing %d", e.pool.Voice(0).PlayingNote())
	}
	if e.pool.Voice(1).PlayingNote() != 62 {
		t.Errorf("slot 1 should be untouched, playing %d", e.pool.Voice(1).PlayingNote())
	}
}

func TestEngineSustainPedalHoldsNoteThroughOff(t *testing.T) {
	lib := dfdtest.NewLibrary()
	e := newTestEngine(t, lib)
	e.LoadInstrument([]*PreloadedSample{makeZoneSample(t, "only")})

	out := [][]float32{make([]float32, 4), make([]float32, 4)}
	e.Process(out, 4, []Event{
		{Offset: 0, Kind: ControlChange, CC: SustainPedalCC, CCValue: 127},
		{Offset: 1, Kind: NoteOn, Note: 60, Velocity: 1.0},
	})
	e.Process(out, 4, []Event{{Offset: 0, Kind: NoteOff, Note: 60}})

	voice := e.pool.Voice(0)
	if !voice.IsSustainedByPedal() {
		t.Fatal("note-off while the pedal is held should defer release")
	}

	e.Process(out, 4, []Event{{Offset: 0, Kind: ControlChange, CC: SustainPedalCC, CCValue: 0}})
	if voice.IsSustainedByPedal() {
		t.Fatal("releasing the pedal should release the held note")
	}
}

func TestEngineShutdownIsIdempotent(t *testing.T) {
	e := NewEngine(dfdtest.NewLibrary())
	e.Shutdown()
	e.Prepare(44100, 512)
	e.Shutdown()
	e.Shutdown()
	time.Sleep(time.Millisecond)
}
