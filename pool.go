package gosampler

import "math"

// VoicePool owns the fixed voice array and the per-note round-robin
// table, and implements note dispatch: zone matching, round-robin
// sample selection, voice allocation/stealing, and note-off/sustain
// routing. All of its methods run on the audio thread.
type VoicePool struct {
	voices     [MaxVoices]*StreamingVoice
	roundRobin [128]uint32

	sustainPedalDown bool

	streamer *DiskStreamer
}

// NewVoicePool allocates MaxVoices streaming voices at the given
// sample rate and registers each with streamer so the disk thread can
// service it once it becomes active.
func NewVoicePool(sampleRate float64, streamer *DiskStreamer) *VoicePool {
	p := &VoicePool{streamer: streamer}
	for i := range p.voices {
		p.voices[i] = NewStreamingVoice(sampleRate)
		if streamer != nil {
			streamer.RegisterVoice(i, p.voices[i])
		}
	}
	return p
}

// ResetRoundRobin clears every note's round-robin counter. Called when
// an instrument is reloaded.
func (p *VoicePool) ResetRoundRobin() {
	for i := range p.roundRobin {
		p.roundRobin[i] = 0
	}
}

// Voice returns the voice at slot i, for diagnostics/tests.
func (p *VoicePool) Voice(i int) *StreamingVoice { return p.voices[i] }

// NoteOn dispatches a note-on: it finds every catalog zone matching
// (midiNote, velocity), advances that note's round-robin counter by
// one and picks the sample at counter_before mod len(matches), then
// starts that sample on the first inactive voice within polyphonyLimit
// slots, or steals slot 0 if none is free.
func (p *VoicePool) NoteOn(catalog *InstrumentCatalog, midiNote int, velocity float32, polyphonyLimit int) {
	if midiNote < 0 || midiNote > 127 {
		return
	}
	matches := catalog.MatchingZones(midiNote, int(math.Round(float64(velocity)*127.0)))
	if len(matches) == 0 {
		return
	}

	counterBefore := p.roundRobin[midiNote]
	selected := matches[int(counterBefore)%len(matches)]
	p.roundRobin[midiNote] = counterBefore + 1

	sample := catalog.Samples[selected]

	limit := polyphonyLimit
	if limit < 1 {
		limit = 1
	}
	if limit > MaxVoices {
		limit = MaxVoices
	}

	for i := 0; i < limit; i++ {
		if !p.voices[i].IsActive() {
			p.voices[i].Start(sample, midiNote, velocity)
			return
		}
	}

	// No free voice within the polyphony limit: steal slot 0.
	p.voices[0].Stop(false)
	p.voices[0].Start(sample, midiNote, velocity)
}

// NoteOff releases every voice currently playing midiNote, respecting
// the sustain pedal.
func (p *VoicePool) NoteOff(midiNote int) {
	for _, v := range p.voices {
		if v.IsActive() && v.PlayingNote() == midiNote {
			v.NoteReleasedWithPedal(p.sustainPedalDown)
		}
	}
}

// SustainPedal updates the pedal state; releasing it releases every
// voice that was waiting on it.
func (p *VoicePool) SustainPedal(isDown bool) {
	p.sustainPedalDown = isDown
	if !isDown {
		for _, v := range p.voices {
			v.SetSustainPedal(false)
		}
	}
}

// Render mixes every active voice's output into out for numFrames
// frames starting at offset.
func (p *VoicePool) Render(out [][]float32, offset, numFrames int) {
	for _, v := range p.voices {
		if v.IsActive() {
			v.Render(out, offset, numFrames)
		}
	}
}
