package gosampler

import (
	"math"
	"sync/atomic"
)

// ParameterPlane holds the small set of performance parameters the
// control thread updates and the audio thread reads once per block.
// Each field is a single-writer/single-reader atomic; floats are
// stored as bit patterns since Go has no atomic float type.
type ParameterPlane struct {
	attack     atomic.Uint64
	decay      atomic.Uint64
	sustain    atomic.Uint64
	release    atomic.Uint64
	gain       atomic.Uint64
	polyphony  atomic.Int32
}

// NewParameterPlane returns a plane initialized to the spec defaults:
// attack=0.01s, decay=0.1s, sustain=0.8, release=0.5s, gain=1.0,
// polyphony=16.
func NewParameterPlane() *ParameterPlane {
	p := &ParameterPlane{}
	p.SetAttack(0.01)
	p.SetDecay(0.1)
	p.SetSustain(0.8)
	p.SetRelease(0.5)
	p.SetGain(1.0)
	p.SetPolyphony(16)
	return p
}

func storeFloat(dst *atomic.Uint64, v float64) { dst.Store(math.Float64bits(v)) }
func loadFloat(src *atomic.Uint64) float64     { return math.Float64frombits(src.Load()) }

// SetAttack clamps and stores the attack time in seconds.
func (p *ParameterPlane) SetAttack(v float64) { storeFloat(&p.attack, clamp(v, 0.001, 5.0)) }

// Attack returns the current attack time in seconds.
func (p *ParameterPlane) Attack() float64 { return loadFloat(&p.attack) }

// SetDecay clamps and stores the decay time in seconds.
func (p *ParameterPlane) SetDecay(v float64) { storeFloat(&p.decay, clamp(v, 0.001, 5.0)) }

// Decay returns the current decay time in seconds.
func (p *ParameterPlane) Decay() float64 { return loadFloat(&p.decay) }

// SetSustain clamps and stores the sustain level as a ratio.
func (p *ParameterPlane) SetSustain(v float64) { storeFloat(&p.sustain, clamp(v, 0.0, 1.0)) }

// Sustain returns the current sustain level.
func (p *ParameterPlane) Sustain() float64 { return loadFloat(&p.sustain) }

// SetRelease clamps and stores the release time in seconds.
func (p *ParameterPlane) SetRelease(v float64) { storeFloat(&p.release, clamp(v, 0.001, 10.0)) }

// Release returns the current release time in seconds.
func (p *ParameterPlane) Release() float64 { return loadFloat(&p.release) }

// SetGain clamps and stores the linear output gain.
func (p *ParameterPlane) SetGain(v float64) { storeFloat(&p.gain, clamp(v, 0.0, 2.0)) }

// Gain returns the current linear output gain.
func (p *ParameterPlane) Gain() float64 { return loadFloat(&p.gain) }

// SetPolyphony clamps and stores the voice count limit.
func (p *ParameterPlane) SetPolyphony(v int) {
	if v < 1 {
		v = 1
	}
	if v > MaxVoices {
		v = MaxVoices
	}
	p.polyphony.Store(int32(v))
}

// Polyphony returns the current voice count limit.
func (p *ParameterPlane) Polyphony() int { return int(p.polyphony.Load()) }
