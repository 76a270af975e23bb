// Package wavdecoder implements decoder.Opener for WAV files on top of
// github.com/go-audio/wav, which only exposes sequential PCM reads.
// Random-access frame reads are layered on top of that by seeking the
// underlying file to a computed byte offset before each decode.
package wavdecoder

import (
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/klangwerk/gosampler/decoder"
)

// Opener opens WAV files from the local filesystem.
type Opener struct{}

// Open implements decoder.Opener.
func (Opener) Open(path string) (decoder.Decoder, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("wavdecoder: open %s: %w", path, err)
	}

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		f.Close()
		return nil, fmt.Errorf("wavdecoder: %s is not a valid WAV file", path)
	}

	format := dec.Format()
	if err := dec.FwdToPCM(); err != nil {
		f.Close()
		return nil, fmt.Errorf("wavdecoder: %s: seek to PCM data: %w", path, err)
	}

	pcmOffset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wavdecoder: %s: locate PCM chunk: %w", path, err)
	}

	bitDepth := int(dec.BitDepth)
	blockAlign := format.NumChannels * (bitDepth / 8)

	duration, err := dec.Duration()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("wavdecoder: %s: read duration: %w", path, err)
	}
	totalFrames := int64(duration.Seconds() * float64(format.SampleRate))

	return &Decoder{
		file:        f,
		dec:         dec,
		channels:    format.NumChannels,
		sampleRate:  float64(format.SampleRate),
		bitDepth:    bitDepth,
		blockAlign:  blockAlign,
		pcmOffset:   pcmOffset,
		totalFrames: totalFrames,
	}, nil
}

// Decoder reads frames from one open WAV file.
type Decoder struct {
	file *os.File
	dec  *wav.Decoder

	channels    int
	sampleRate  float64
	bitDepth    int
	blockAlign  int
	pcmOffset   int64
	totalFrames int64
}

// Channels implements decoder.Decoder.
func (d *Decoder) Channels() int { return d.channels }

// LengthFrames implements decoder.Decoder.
func (d *Decoder) LengthFrames() int64 { return d.totalFrames }

// SampleRate implements decoder.Decoder.
func (d *Decoder) SampleRate() float64 { return d.sampleRate }

// Read implements decoder.Decoder by seeking the underlying file to
// the byte offset for sourceStart and decoding numFrames frames
// through go-audio/wav's sequential PCMBuffer API.
func (d *Decoder) Read(dest [][]float32, destStart int, numFrames int, sourceStart int64) (int, error) {
	if sourceStart >= d.totalFrames {
		return 0, nil
	}
	if remaining := d.totalFrames - sourceStart; int64(numFrames) > remaining {
		numFrames = int(remaining)
	}

	byteOffset := d.pcmOffset + sourceStart*int64(d.blockAlign)
	if _, err := d.file.Seek(byteOffset, io.SeekStart); err != nil {
		return 0, fmt.Errorf("wavdecoder: seek: %w", err)
	}

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: d.channels, SampleRate: int(d.sampleRate)},
		Data:           make([]int, numFrames*d.channels),
		SourceBitDepth: d.bitDepth,
	}
	if _, err := d.dec.PCMBuffer(buf); err != nil {
		return 0, fmt.Errorf("wavdecoder: decode: %w", err)
	}

	framesRead := len(buf.Data) / d.channels
	if framesRead > numFrames {
		framesRead = numFrames
	}

	maxVal := float64(int(1) << (d.bitDepth - 1))
	for ch := 0; ch < len(dest); ch++ {
		sourceChannel := ch
		if sourceChannel >= d.channels {
			sourceChannel = d.channels - 1
		}
		out := dest[ch]
		for i := 0; i < framesRead; i++ {
			out[destStart+i] = float32(float64(buf.Data[i*d.channels+sourceChannel]) / maxVal)
		}
	}

	return framesRead, nil
}

// Close implements decoder.Decoder.
func (d *Decoder) Close() error { return d.file.Close() }
