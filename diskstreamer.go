package gosampler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/klangwerk/gosampler/decoder"
)

// DiskReadFrames is the batch size, in frames, of one disk read.
const DiskReadFrames = 4096

// MaxVoices is the number of voice slots the disk streamer can service.
const MaxVoices = 64

// DiskPollInterval is how often the disk thread wakes to check voices
// for pending data requests.
const DiskPollInterval = 5 * time.Millisecond

// DiskStreamer is the background thread that keeps every active
// streaming voice's ring buffer filled. It owns all decoder file
// handles; voices and the audio thread never touch them. Start launches
// one polling goroutine that runs until Stop; voices are registered
// and unregistered per slot.
type DiskStreamer struct {
	opener decoder.Opener
	log    *slog.Logger

	mu     sync.Mutex
	voices [MaxVoices]*StreamingVoice

	readers     [MaxVoices]decoder.Decoder
	readerPaths [MaxVoices]string
	tempBuf     [][]float32

	stop chan struct{}
	done chan struct{}
}

// NewDiskStreamer returns a disk streamer that opens files through
// opener. log may be nil, in which case streaming proceeds silently.
func NewDiskStreamer(opener decoder.Opener, log *slog.Logger) *DiskStreamer {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	return &DiskStreamer{
		opener: opener,
		log:    log,
		tempBuf: [][]float32{
			make([]float32, DiskReadFrames),
			make([]float32, DiskReadFrames),
		},
	}
}

// RegisterVoice assigns a voice to a slot index so the disk thread
// will poll it. Control-thread only; safe to call while the polling
// goroutine is running.
func (d *DiskStreamer) RegisterVoice(index int, voice *StreamingVoice) {
	if index < 0 || index >= MaxVoices {
		return
	}
	d.mu.Lock()
	d.voices[index] = voice
	d.mu.Unlock()
}

// UnregisterVoice clears a slot and closes its decoder, if any.
func (d *DiskStreamer) UnregisterVoice(index int) {
	if index < 0 || index >= MaxVoices {
		return
	}
	d.mu.Lock()
	d.voices[index] = nil
	d.mu.Unlock()
	d.closeReader(index)
}

// Start launches the background polling goroutine.
func (d *DiskStreamer) Start() {
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run()
}

// Stop signals the polling goroutine to exit and waits for it, then
// closes every open decoder. Calling Stop before Start, or a second
// time, does nothing.
func (d *DiskStreamer) Stop() {
	if d.stop == nil {
		return
	}
	close(d.stop)
	<-d.done
	d.stop = nil
	for i := range d.readers {
		d.closeReader(i)
	}
}

func (d *DiskStreamer) run() {
	defer close(d.done)
	ticker := time.NewTicker(DiskPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stop:
			return
		case <-ticker.C:
			d.pollOnce()
		}
	}
}

func (d *DiskStreamer) pollOnce() {
	for i := 0; i < MaxVoices; i++ {
		select {
		case <-d.stop:
			return
		default:
		}

		d.mu.Lock()
		voice := d.voices[i]
		d.mu.Unlock()

		if voice == nil || !voice.IsActive() {
			continue
		}
		if voice.NeedsMoreData() {
			d.fillVoiceBuffer(i, voice)
		}
	}
}

// fillVoiceBuffer is the core disk-read loop for one voice: it opens
// or reuses a decoder for the voice's sample, then reads DiskReadFrames
// chunks into the voice's ring buffer until the buffer is full, the
// file is exhausted, or a read error occurs.
func (d *DiskStreamer) fillVoiceBuffer(index int, voice *StreamingVoice) {
	sample := voice.GetCurrentSample()
	if sample == nil {
		return
	}

	reader := d.readers[index]
	if reader == nil || d.readerPaths[index] != sample.FilePath {
		d.closeReader(index)
		r, err := d.opener.Open(sample.FilePath)
		if err != nil {
			d.log.Warn("disk streamer: open failed", "path", sample.FilePath, "err", err)
			voice.SetReadError(true)
			voice.ClearNeedsData()
			return
		}
		reader = r
		d.readers[index] = reader
		d.readerPaths[index] = sample.FilePath
	}

	filePos := voice.GetFileReadPos()
	totalFrames := reader.LengthFrames()

	if filePos >= totalFrames {
		voice.SetEndOfFile(true)
		voice.ClearNeedsData()
		return
	}

	space := voice.SpaceAvailable()
	if space < DiskReadFrames {
		voice.ClearNeedsData()
		return
	}

	numChannels := sample.Channels
	if numChannels > len(d.tempBuf) {
		numChannels = len(d.tempBuf)
	}

	for space >= DiskReadFrames && filePos < totalFrames {
		select {
		case <-d.stop:
			return
		default:
		}

		framesToRead := DiskReadFrames
		if remaining := totalFrames - filePos; remaining < int64(framesToRead) {
			framesToRead = int(remaining)
		}
		if int64(framesToRead) > space {
			framesToRead = int(space)
		}
		if framesToRead <= 0 {
			break
		}

		n, err := reader.Read(d.tempBuf, 0, framesToRead, filePos)
		if err != nil {
			d.log.Warn("disk streamer: read failed", "path", sample.FilePath, "err", err)
			voice.SetReadError(true)
			break
		}

		for ch := 0; ch < numChannels; ch++ {
			first, second := voice.GetWritePointer(ch, n)
			copy(first, d.tempBuf[ch][:len(first)])
			if second != nil {
				copy(second, d.tempBuf[ch][len(first):n])
			}
		}
		if numChannels == 1 && sample.Channels < 2 {
			first, second := voice.GetWritePointer(1, n)
			copy(first, d.tempBuf[0][:len(first)])
			if second != nil {
				copy(second, d.tempBuf[0][len(first):n])
			}
		}

		voice.AdvanceWrite(n)
		filePos += int64(n)
		voice.SetFileReadPos(filePos)
		space = voice.SpaceAvailable()

		if n < framesToRead {
			break
		}
	}

	if filePos >= totalFrames {
		voice.SetEndOfFile(true)
	}
	voice.ClearNeedsData()
}

func (d *DiskStreamer) closeReader(index int) {
	if d.readers[index] != nil {
		d.readers[index].Close()
		d.readers[index] = nil
	}
	d.readerPaths[index] = ""
}
