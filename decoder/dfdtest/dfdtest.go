// Package dfdtest implements decoder.Opener entirely in memory, for
// disk-streamer and voice tests that must not touch the filesystem.
package dfdtest

import (
	"errors"
	"sync"

	"github.com/klangwerk/gosampler/decoder"
)

// Library is a registry of named in-memory files, usable as a
// decoder.Opener. Tests populate it with Put before exercising code
// that opens files by path.
type Library struct {
	mu    sync.Mutex
	files map[string]*File
}

// NewLibrary returns an empty in-memory file registry.
func NewLibrary() *Library {
	return &Library{files: make(map[string]*File)}
}

// File is the in-memory content of one fake audio file: per-channel
// float frames plus the metadata a real decoder would expose.
type File struct {
	Channels   int
	SampleRate float64
	Frames     [][]float32 // one slice per channel, all the same length

	// FailOpen, when true, makes Open return an error for this file.
	FailOpen bool
	// FailReadAfter, if > 0, makes Read return an error once the
	// cumulative frames already read from this file reach it.
	FailReadAfter int64
}

// Put registers a fake file under path.
func (l *Library) Put(path string, f *File) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files[path] = f
}

// Open implements decoder.Opener.
func (l *Library) Open(path string) (decoder.Decoder, error) {
	l.mu.Lock()
	f, ok := l.files[path]
	l.mu.Unlock()
	if !ok {
		return nil, errors.New("dfdtest: no such file: " + path)
	}
	if f.FailOpen {
		return nil, errors.New("dfdtest: simulated open failure: " + path)
	}
	return &openFile{f: f}, nil
}

type openFile struct {
	f          *File
	totalRead  int64
	closed     bool
}

func (o *openFile) Channels() int      { return o.f.Channels }
func (o *openFile) LengthFrames() int64 {
	if len(o.f.Frames) == 0 {
		return 0
	}
	return int64(len(o.f.Frames[0]))
}
func (o *openFile) SampleRate() float64 { return o.f.SampleRate }

func (o *openFile) Read(dest [][]float32, destStart int, numFrames int, sourceStart int64) (int, error) {
	total := o.LengthFrames()
	if sourceStart >= total {
		return 0, nil
	}
	if remaining := total - sourceStart; int64(numFrames) > remaining {
		numFrames = int(remaining)
	}

	if o.f.FailReadAfter > 0 && o.totalRead >= o.f.FailReadAfter {
		return 0, errors.New("dfdtest: simulated read failure")
	}

	for ch := 0; ch < len(dest); ch++ {
		sourceChannel := ch
		if sourceChannel >= o.f.Channels {
			sourceChannel = o.f.Channels - 1
		}
		src := o.f.Frames[sourceChannel]
		copy(dest[ch][destStart:destStart+numFrames], src[sourceStart:sourceStart+int64(numFrames)])
	}

	o.totalRead += int64(numFrames)
	return numFrames, nil
}

func (o *openFile) Close() error {
	o.closed = true
	return nil
}
