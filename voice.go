package gosampler

import (
	"math"
	"sync/atomic"
)

// LowWatermark is the samplesAvailable threshold below which a voice
// asks the disk thread for more data.
const LowWatermark = 8192

// UnderrunFade is the length, in samples, of the linear fade-to-silence
// applied when the audio thread catches up to the disk thread.
const UnderrunFade = 64

// StreamingVoice plays one note from a PreloadedSample, either directly
// out of the preload buffer (short samples) or out of a ring buffer fed
// by the disk thread (long samples). Its exported methods are split by
// which thread may call them: Start/Stop/Render/NoteReleasedWithPedal/
// SetSustainPedal run on the audio thread; the GetXxx/SetXxx/Advance
// group below them is the disk thread's view of the same voice.
type StreamingVoice struct {
	ring *ringBuffer

	currentSample *PreloadedSample
	playingNote   int
	velocity      float32
	pitchRatio    float64
	sourcePos     float64

	fileReadPosition atomic.Int64
	active           atomic.Bool
	needsData        atomic.Bool
	endOfFile        atomic.Bool
	readError        atomic.Bool

	env *Envelope

	sustainedByPedal bool

	isUnderrunning      bool
	underrunFadePos     int

	sampleRate float64
}

// NewStreamingVoice returns an idle voice with its ring buffer
// allocated. hostSampleRate is the engine's render sample rate.
func NewStreamingVoice(hostSampleRate float64) *StreamingVoice {
	return &StreamingVoice{
		ring:       newRingBuffer(),
		playingNote: -1,
		env:        NewEnvelope(hostSampleRate),
		sampleRate: hostSampleRate,
	}
}

// midiNoteToHertz converts a MIDI note number to frequency using
// standard 12-TET with A4 (note 69) at 440Hz.
func midiNoteToHertz(note int) float64 {
	return 440.0 * math.Pow(2.0, (float64(note)-69.0)/12.0)
}

// Start begins playing sample at midiNote/velocity. Audio-thread only.
func (v *StreamingVoice) Start(sample *PreloadedSample, midiNote int, velocity float32) {
	if sample == nil {
		return
	}

	v.currentSample = sample
	v.playingNote = midiNote
	v.velocity = velocity

	freqNote := midiNoteToHertz(midiNote)
	freqRoot := midiNoteToHertz(sample.RootNote)
	v.pitchRatio = freqNote / freqRoot
	v.pitchRatio *= sample.SourceSampleRate / v.sampleRate

	v.sourcePos = 0
	v.ring.reset()
	v.fileReadPosition.Store(0)
	v.endOfFile.Store(false)
	v.readError.Store(false)
	v.isUnderrunning = false
	v.underrunFadePos = 0
	v.sustainedByPedal = false

	preload := sample.Preload
	framesToCopy := int(sample.preloadFrameCount())
	if framesToCopy > RING {
		framesToCopy = RING
	}
	v.ring.writeFrames(preload, framesToCopy)

	v.fileReadPosition.Store(int64(framesToCopy))

	v.env.NoteOn()

	if sample.NeedsStreaming() {
		v.needsData.Store(true)
	}

	v.active.Store(true)
}

// Stop ends the voice. allowTailOff enters the release stage of the
// envelope; otherwise the voice is silenced immediately.
func (v *StreamingVoice) Stop(allowTailOff bool) {
	if allowTailOff {
		v.env.NoteOff()
	} else {
		v.Reset()
	}
}

// Reset silences the voice immediately and returns it to the idle pool.
func (v *StreamingVoice) Reset() {
	v.active.Store(false)
	v.needsData.Store(false)
	v.env.Reset()
	v.playingNote = -1
	v.sustainedByPedal = false
	v.currentSample = nil
}

// IsActive reports whether the voice is currently playing. Safe to call
// from any thread (the disk thread uses it to decide whether to service
// this slot).
func (v *StreamingVoice) IsActive() bool { return v.active.Load() }

// PlayingNote returns the MIDI note this voice is currently playing, or
// -1 if idle.
func (v *StreamingVoice) PlayingNote() int { return v.playingNote }

// NoteReleasedWithPedal handles a note-off while the sustain pedal may
// be held: if pedalDown, the release is deferred and the voice is
// marked as pedal-sustained; otherwise it releases immediately.
func (v *StreamingVoice) NoteReleasedWithPedal(pedalDown bool) {
	if pedalDown {
		v.sustainedByPedal = true
	} else {
		v.env.NoteOff()
	}
}

// SetSustainPedal updates the pedal state; releasing the pedal while
// this voice was waiting on it triggers its release.
func (v *StreamingVoice) SetSustainPedal(isDown bool) {
	if !isDown && v.sustainedByPedal {
		v.sustainedByPedal = false
		v.env.NoteOff()
	}
}

// IsSustainedByPedal reports whether this voice's note-off is being
// held back by the sustain pedal.
func (v *StreamingVoice) IsSustainedByPedal() bool { return v.sustainedByPedal }

// checkAndRequestData flags needsData when the streaming buffer has
// dropped below LowWatermark and there is more file left to read.
func (v *StreamingVoice) checkAndRequestData() {
	if v.currentSample == nil || !v.currentSample.NeedsStreaming() {
		return
	}
	if v.endOfFile.Load() || v.readError.Load() {
		return
	}
	if v.ring.samplesAvailable() < LowWatermark {
		v.needsData.Store(true)
	}
}

// Render mixes numFrames of this voice's output into out (per channel,
// added not overwritten), starting at offset. Audio-thread only; does
// no I/O and no allocation.
func (v *StreamingVoice) Render(out [][]float32, offset, numFrames int) {
	if !v.active.Load() || v.currentSample == nil {
		return
	}

	numOutChannels := len(out)
	numSourceChannels := v.currentSample.Channels
	totalSourceFrames := v.currentSample.TotalFrames
	isStreaming := v.currentSample.NeedsStreaming()

	for i := 0; i < numFrames; i++ {
		if int64(v.sourcePos) >= totalSourceFrames {
			v.Reset()
			return
		}

		envVal := v.env.Next()
		if !v.env.IsActive() {
			v.Reset()
			return
		}

		if isStreaming {
			available := v.ring.samplesAvailable()
			if available <= 2 && !v.endOfFile.Load() {
				if !v.isUnderrunning {
					v.isUnderrunning = true
					v.underrunFadePos = 0
				}
			}
		}

		underrunFade := float32(1.0)
		if v.isUnderrunning {
			underrunFade = 1.0 - float32(v.underrunFadePos)/float32(UnderrunFade)
			if underrunFade <= 0 {
				v.Reset()
				return
			}
			v.underrunFadePos++
		}

		pos0 := int64(v.sourcePos)
		pos1 := pos0 + 1
		frac := float32(v.sourcePos - float64(pos0))
		if pos1 >= totalSourceFrames {
			pos1 = pos0
		}

		for ch := 0; ch < numOutChannels; ch++ {
			sourceChannel := ch
			if sourceChannel >= numSourceChannels {
				sourceChannel = numSourceChannels - 1
			}

			var sample0, sample1 float32
			if !isStreaming {
				preload := v.currentSample.Preload[sourceChannel]
				sample0 = preload[pos0]
				sample1 = preload[pos1]
			} else {
				sample0 = v.ring.readSample(sourceChannel, pos0)
				sample1 = v.ring.readSample(sourceChannel, pos1)
			}

			interpolated := sample0 + frac*(sample1-sample0)
			out[ch][offset+i] += interpolated * v.velocity * envVal * underrunFade
		}

		v.sourcePos += v.pitchRatio
	}

	if isStreaming {
		v.ring.advanceReadTo(int64(v.sourcePos))
		v.checkAndRequestData()
	}
}

// --- disk-thread-facing interface below ---

// SamplesAvailable returns the consumer-side backlog in the ring
// buffer. Safe to call from the disk thread.
func (v *StreamingVoice) SamplesAvailable() int64 { return v.ring.samplesAvailable() }

// SpaceAvailable returns the producer-side free space in the ring
// buffer. Safe to call from the disk thread.
func (v *StreamingVoice) SpaceAvailable() int64 { return v.ring.spaceAvailable() }

// NeedsMoreData reports whether the audio thread has requested a
// refill.
func (v *StreamingVoice) NeedsMoreData() bool { return v.needsData.Load() }

// ClearNeedsData acknowledges a refill request once the disk thread
// has serviced it.
func (v *StreamingVoice) ClearNeedsData() { v.needsData.Store(false) }

// GetWritePointer exposes the producer-writable region of the ring
// buffer for channel ch, sized to cap frames, as up to two segments.
func (v *StreamingVoice) GetWritePointer(ch int, cap int) (first, second []float32) {
	return v.ring.writePointer(ch, cap)
}

// AdvanceWrite publishes n newly-written frames.
func (v *StreamingVoice) AdvanceWrite(n int) { v.ring.advanceWrite(n) }

// GetFileReadPos returns the next file frame offset the disk thread
// should read from.
func (v *StreamingVoice) GetFileReadPos() int64 { return v.fileReadPosition.Load() }

// SetFileReadPos records the file frame offset after a disk read.
func (v *StreamingVoice) SetFileReadPos(pos int64) { v.fileReadPosition.Store(pos) }

// SetEndOfFile marks that the disk thread has read the sample's final
// frame.
func (v *StreamingVoice) SetEndOfFile(eof bool) { v.endOfFile.Store(eof) }

// HasReachedEndOfFile reports the flag set by SetEndOfFile.
func (v *StreamingVoice) HasReachedEndOfFile() bool { return v.endOfFile.Load() }

// SetReadError marks that the disk thread failed to read this voice's
// sample.
func (v *StreamingVoice) SetReadError(err bool) { v.readError.Store(err) }

// HasReadError reports the flag set by SetReadError.
func (v *StreamingVoice) HasReadError() bool { return v.readError.Load() }

// GetCurrentSample returns the sample this voice is currently playing,
// or nil if idle. Read-only access; the disk thread never mutates it.
func (v *StreamingVoice) GetCurrentSample() *PreloadedSample { return v.currentSample }
