package gosampler

import "math"

// envelopeStage is the current phase of an Envelope's state machine.
type envelopeStage int

const (
	envIdle envelopeStage = iota
	envAttack
	envDecay
	envSustain
	envRelease
)

// Envelope is a four-stage attack/decay/sustain/release amplitude
// envelope. Each stage advances toward a target value along an
// exponential curve (coefficient precomputed from the stage's time
// constant), which gives a natural-sounding curve and a release tail
// that is finite but asymptotic: the envelope declares itself inactive
// once the release value decays below releaseFloor.
//
// NoteOn/NoteOff/Reset/Next are audio-thread-only; they touch no
// shared state and allocate nothing.
type Envelope struct {
	sampleRate float64

	attack  float64
	decay   float64
	sustain float64
	release float64

	attackCoef  float64
	decayCoef   float64
	releaseCoef float64

	stage  envelopeStage
	value  float64
	target float64
}

const (
	attackDoneThreshold = 0.999
	decaySlack          = 0.001
	releaseFloor        = 0.001
)

// NewEnvelope returns an Envelope at the spec.md defaults
// (attack=0.01s, decay=0.1s, sustain=0.8, release=0.5s).
func NewEnvelope(sampleRate float64) *Envelope {
	e := &Envelope{
		sampleRate: sampleRate,
		attack:     0.01,
		decay:      0.1,
		sustain:    0.8,
		release:    0.5,
	}
	e.updateCoefficients()
	return e
}

// SetADSR sets all four envelope parameters at once, clamped to the
// ranges in spec.md §4.5. The audio thread calls this once per block
// with the current ParameterPlane snapshot.
func (e *Envelope) SetADSR(attack, decay, sustain, release float64) {
	e.attack = clamp(attack, 0.001, 5.0)
	e.decay = clamp(decay, 0.001, 5.0)
	e.sustain = clamp(sustain, 0.0, 1.0)
	e.release = clamp(release, 0.001, 10.0)
	e.updateCoefficients()
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (e *Envelope) updateCoefficients() {
	e.attackCoef = expCoef(e.attack, e.sampleRate)
	e.decayCoef = expCoef(e.decay, e.sampleRate)
	e.releaseCoef = expCoef(e.release, e.sampleRate)
}

func expCoef(seconds, sampleRate float64) float64 {
	if seconds <= 0 {
		return 0
	}
	return math.Exp(-1.0 / (seconds * sampleRate))
}

// NoteOn restarts the envelope from zero into the attack stage.
func (e *Envelope) NoteOn() {
	e.stage = envAttack
	e.value = 0
	e.target = 1.0
}

// NoteOff enters the release stage from the envelope's current level,
// regardless of which stage it was in.
func (e *Envelope) NoteOff() {
	if e.stage != envIdle {
		e.stage = envRelease
		e.target = 0
	}
}

// Reset silences the envelope immediately.
func (e *Envelope) Reset() {
	e.stage = envIdle
	e.value = 0
	e.target = 0
}

// IsActive reports whether the envelope is producing non-silent
// output.
func (e *Envelope) IsActive() bool {
	return e.stage != envIdle
}

// Next advances the envelope by one sample and returns its gain value.
func (e *Envelope) Next() float32 {
	switch e.stage {
	case envAttack:
		e.value = e.target + (e.value-e.target)*e.attackCoef
		if e.value >= attackDoneThreshold {
			e.value = 1.0
			e.stage = envDecay
			e.target = e.sustain
		}
	case envDecay:
		e.value = e.target + (e.value-e.target)*e.decayCoef
		if e.value <= e.sustain+decaySlack {
			e.value = e.sustain
			e.stage = envSustain
		}
	case envSustain:
		e.value = e.sustain
	case envRelease:
		e.value = e.target + (e.value-e.target)*e.releaseCoef
		if e.value <= releaseFloor {
			e.value = 0
			e.stage = envIdle
		}
	case envIdle:
		e.value = 0
	}
	return float32(e.value)
}
