package gosampler

// PreloadBytes is the size, in bytes, of the prefix of a sample kept
// resident in memory so playback can start with zero latency, before
// the disk thread has filled any ring buffer. Four bytes per sample
// (float32), per channel.
const PreloadBytes = 65536

// PreloadedSample is an immutable descriptor for one sample layer in
// an instrument: a file locator, the zone it plays in, and a short
// prefix of decoded audio. Built once by the instrument loader (or a
// test) and never mutated after it is placed in an InstrumentCatalog.
type PreloadedSample struct {
	FilePath         string
	TotalFrames      int64
	Channels         int
	SourceSampleRate float64

	RootNote int
	LoNote   int
	HiNote   int
	LoVel    int
	HiVel    int

	Name string

	// Preload holds up to PreloadFrames(Channels) decoded frames from
	// source offset 0, one slice per channel.
	Preload [][]float32
}

// PreloadFrames returns floor(PreloadBytes / (channels * 4)), the
// number of frames that fit in the preload budget for a sample with
// the given channel count.
func PreloadFrames(channels int) int {
	if channels <= 0 {
		channels = 1
	}
	return PreloadBytes / (channels * 4)
}

// preloadFrameCount returns the number of frames actually present in
// s.Preload, i.e. min(s.TotalFrames, PreloadFrames(s.Channels)).
func (s *PreloadedSample) preloadFrameCount() int64 {
	pf := int64(PreloadFrames(s.Channels))
	if s.TotalFrames < pf {
		return s.TotalFrames
	}
	return pf
}

// NeedsStreaming reports whether the full sample extends past the
// preloaded prefix, i.e. the disk streamer must be involved at all.
func (s *PreloadedSample) NeedsStreaming() bool {
	return s.TotalFrames > s.preloadFrameCount()
}

// ContainsNote reports whether midiNote falls within the sample's note
// range (inclusive).
func (s *PreloadedSample) ContainsNote(midiNote int) bool {
	return midiNote >= s.LoNote && midiNote <= s.HiNote
}

// ContainsVelocity reports whether velocity falls within the sample's
// velocity range (inclusive).
func (s *PreloadedSample) ContainsVelocity(velocity int) bool {
	return velocity >= s.LoVel && velocity <= s.HiVel
}

// Matches reports whether a note-on with this note and velocity should
// trigger this sample layer.
func (s *PreloadedSample) Matches(midiNote, velocity int) bool {
	return s.ContainsNote(midiNote) && s.ContainsVelocity(velocity)
}
