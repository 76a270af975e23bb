// Package decoder defines the abstract audio-file decoding contract
// consumed by the disk streamer and the instrument loader. Concrete
// implementations live in sibling packages (wavdecoder for real files,
// dfdtest for tests).
package decoder

// Decoder reads frames from one open audio file. Implementations are
// not required to be safe for concurrent use; the sampler opens one
// Decoder per voice slot on the disk thread and never shares it.
type Decoder interface {
	// Channels returns the number of channels in the source file.
	Channels() int

	// LengthFrames returns the total number of frames in the file.
	LengthFrames() int64

	// SampleRate returns the file's native sample rate.
	SampleRate() float64

	// Read decodes up to numFrames frames starting at sourceStart
	// (absolute frame offset into the file) into dest, writing each
	// channel starting at destStart. It returns the number of frames
	// actually read, which is less than numFrames only at end of file.
	Read(dest [][]float32, destStart int, numFrames int, sourceStart int64) (int, error)

	// Close releases any file handle held by the decoder.
	Close() error
}

// Opener opens a Decoder for a file path. It is the factory interface
// the disk streamer and instrument loader depend on, so tests can
// substitute an in-memory fake instead of touching the filesystem.
type Opener interface {
	Open(path string) (Decoder, error)
}
