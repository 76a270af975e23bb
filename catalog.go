package gosampler

import "sync/atomic"

// InstrumentCatalog is the ordered set of PreloadedSamples making up
// one loaded instrument. It is immutable once built; reloading an
// instrument builds a new catalog and swaps it in rather than mutating
// this one in place.
type InstrumentCatalog struct {
	Samples    []*PreloadedSample
	generation uint32
}

// NewInstrumentCatalog builds a catalog from samples, tagging it with
// generation. The engine is responsible for handing out increasing
// generations so stale handles can be detected after a reload.
func NewInstrumentCatalog(samples []*PreloadedSample, generation uint32) *InstrumentCatalog {
	return &InstrumentCatalog{Samples: samples, generation: generation}
}

// Generation returns the catalog's generation number.
func (c *InstrumentCatalog) Generation() uint32 { return c.generation }

// MatchingZones returns the indices of every sample whose zone
// contains (midiNote, velocity), in catalog order.
func (c *InstrumentCatalog) MatchingZones(midiNote, velocity int) []int {
	var matches []int
	for i, s := range c.Samples {
		if s.Matches(midiNote, velocity) {
			matches = append(matches, i)
		}
	}
	return matches
}

// SampleHandle is a generation-counted reference into an
// InstrumentCatalog. Voices do not use handles: a playing voice holds a
// direct *PreloadedSample, which stays valid after a catalog swap.
// Resolve refuses a handle whose generation does not match the catalog
// it is resolved against, so an index taken from one catalog is never
// read against a newer one.
type SampleHandle struct {
	generation uint32
	index      int
}

// CatalogStore holds the currently installed catalog behind an atomic
// pointer so the control thread can publish a new one without the
// audio thread ever observing a half-built catalog. The audio thread
// calls Current once per block and uses that snapshot for the whole
// block, per spec.md §5's reload ordering note.
type CatalogStore struct {
	current atomic.Pointer[InstrumentCatalog]
	nextGen atomic.Uint32
}

// NewCatalogStore returns a store with an empty catalog at generation 0.
func NewCatalogStore() *CatalogStore {
	s := &CatalogStore{}
	s.current.Store(NewInstrumentCatalog(nil, 0))
	return s
}

// Current returns the catalog currently installed. Safe to call from
// any thread; the audio thread should call it once per block and reuse
// the result for that whole block.
func (s *CatalogStore) Current() *InstrumentCatalog {
	return s.current.Load()
}

// Swap installs a newly built catalog, assigning it the next
// generation number, and returns it. Control-thread only.
func (s *CatalogStore) Swap(samples []*PreloadedSample) *InstrumentCatalog {
	gen := s.nextGen.Add(1)
	next := NewInstrumentCatalog(samples, gen)
	s.current.Store(next)
	return next
}

// Resolve returns the sample a handle refers to, or nil if the handle
// belongs to a generation that is no longer installed.
func (c *InstrumentCatalog) Resolve(h SampleHandle) *PreloadedSample {
	if c == nil || h.generation != c.generation {
		return nil
	}
	if h.index < 0 || h.index >= len(c.Samples) {
		return nil
	}
	return c.Samples[h.index]
}

// HandleFor builds a SampleHandle for the sample at index within this
// catalog.
func (c *InstrumentCatalog) HandleFor(index int) SampleHandle {
	return SampleHandle{generation: c.generation, index: index}
}
