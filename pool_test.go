package gosampler

import "testing"

func makeZoneSample(t *testing.T, name string) *PreloadedSample {
	t.Helper()
	return &PreloadedSample{
		FilePath:         "zone-" + name + ".wav",
		TotalFrames:      100,
		Channels:         1,
		SourceSampleRate: 44100,
		RootNote:         60,
		LoNote:           0,
		HiNote:           127,
		LoVel:            0,
		HiVel:            127,
		Name:             name,
		Preload:          [][]float32{make([]float32, 100)},
	}
}

func TestVoicePoolRoundRobinCyclesThroughMatches(t *testing.T) {
	pool := NewVoicePool(44100, nil)
	catalog := NewInstrumentCatalog([]*PreloadedSample{
		makeZoneSample(t, "a"),
		makeZoneSample(t, "b"),
		makeZoneSample(t, "c"),
	}, 1)

	var chosen []string
	for i := 0; i < 6; i++ {
		pool.NoteOn(catalog, 60, 1.0, MaxVoices)
		var active *StreamingVoice
		for j := 0; j < MaxVoices; j++ {
			if pool.voices[j].IsActive() {
				active = pool.voices[j]
			}
		}
		if active == nil {
			t.Fatalf("round %d: no voice became active", i)
		}
		chosen = append(chosen, active.GetCurrentSample().Name)
		active.Reset()
	}

	want := []string{"a", "b", "c", "a", "b", "c"}
	for i, w := range want {
		if chosen[i] != w {
			t.Errorf("round %d selected %q, want %q (full sequence: %v)", i, chosen[i], w, chosen)
		}
	}
}

func TestVoicePoolStealsSlotZeroWhenFull(t *testing.T) {
	pool := NewVoicePool(44100, nil)
	catalog := NewInstrumentCatalog([]*PreloadedSample{makeZoneSample(t, "only")}, 1)

	pool.NoteOn(catalog, 60, 1.0, 2)
	pool.NoteOn(catalog, 62, 1.0, 2)

	if !pool.voices[0].IsActive() || !pool.voices[1].IsActive() {
		t.Fatal("both voice slots within the polyphony limit should be active")
	}

	// A third note-on with no free slot within the limit should steal
	// slot 0 rather than grow past the limit.
	pool.NoteOn(catalog, 64, 1.0, 2)

	if pool.voices[0].PlayingNote() != 64 {
		t.Errorf("slot 0 playing note = %d, want 64 (stolen)", pool.voices[0].PlayingNote())
	}
	if pool.voices[1].PlayingNote() != 62 {
		t.Errorf("slot 1 playing note = %d, want 62 (untouched)", pool.voices[1].PlayingNote())
	}
}

func TestVoicePoolNoteOffReleasesMatchingVoices(t *testing.T) {
	pool := NewVoicePool(44100, nil)
	catalog := NewInstrumentCatalog([]*PreloadedSample{makeZoneSample(t, "only")}, 1)

	pool.NoteOn(catalog, 60, 1.0, MaxVoices)
	pool.NoteOff(60)

	if pool.voices[0].env.stage != envRelease && pool.voices[0].env.stage != envIdle {
		t.Fatalf("note-off should move the envelope toward release, got stage %v", pool.voices[0].env.stage)
	}
}

func TestVoicePoolSustainPedalDefersNoteOff(t *testing.T) {
	pool := NewVoicePool(44100, nil)
	catalog := NewInstrumentCatalog([]*PreloadedSample{makeZoneSample(t, "only")}, 1)

	pool.SustainPedal(true)
	pool.NoteOn(catalog, 60, 1.0, MaxVoices)
	pool.NoteOff(60)

	if !pool.voices[0].IsSustainedByPedal() {
		t.Fatal("note-off while the pedal is held should defer the release")
	}

	pool.SustainPedal(false)
	if pool.voices[0].IsSustainedByPedal() {
		t.Fatal("releasing the pedal should clear the deferred voices")
	}
}

func TestVoicePoolNoMatchingZoneIsNoop(t *testing.T) {
	pool := NewVoicePool(44100, nil)
	catalog := NewInstrumentCatalog(nil, 1)

	pool.NoteOn(catalog, 60, 1.0, MaxVoices)
	for i := 0; i < MaxVoices; i++ {
		if pool.voices[i].IsActive() {
			t.Fatal("a note-on with no matching zone should not activate any voice")
		}
	}
}
