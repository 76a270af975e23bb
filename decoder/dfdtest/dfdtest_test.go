package dfdtest

import "testing"

func TestLibraryOpenUnknownPathFails(t *testing.T) {
	lib := NewLibrary()
	if _, err := lib.Open("nope.wav"); err == nil {
		t.Fatal("opening a path never Put should fail")
	}
}

func TestLibraryOpenRespectsFailOpen(t *testing.T) {
	lib := NewLibrary()
	lib.Put("broken.wav", &File{FailOpen: true})
	if _, err := lib.Open("broken.wav"); err == nil {
		t.Fatal("FailOpen should make Open fail")
	}
}

func TestOpenFileReadReturnsRequestedSlice(t *testing.T) {
	lib := NewLibrary()
	lib.Put("a.wav", &File{
		Channels:   2,
		SampleRate: 44100,
		Frames:     [][]float32{{0, 1, 2, 3, 4}, {10, 11, 12, 13, 14}},
	})

	dec, err := lib.Open("a.wav")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer dec.Close()

	if dec.Channels() != 2 || dec.LengthFrames() != 5 || dec.SampleRate() != 44100 {
		t.Fatalf("metadata mismatch: channels=%d length=%d rate=%v", dec.Channels(), dec.LengthFrames(), dec.SampleRate())
	}

	dest := [][]float32{make([]float32, 3), make([]float32, 3)}
	n, err := dec.Read(dest, 0, 3, 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 3 {
		t.Fatalf("Read returned %d frames, want 3", n)
	}
	if dest[0][0] != 1 || dest[0][1] != 2 || dest[0][2] != 3 {
		t.Errorf("channel 0 = %v, want [1 2 3]", dest[0])
	}
	if dest[1][0] != 11 || dest[1][1] != 12 || dest[1][2] != 13 {
		t.Errorf("channel 1 = %v, want [11 12 13]", dest[1])
	}
}

func TestOpenFileReadTruncatesAtEndOfFile(t *testing.T) {
	lib := NewLibrary()
	lib.Put("short.wav", &File{Channels: 1, SampleRate: 44100, Frames: [][]float32{{0, 1, 2}}})
	dec, _ := lib.Open("short.wav")
	defer dec.Close()

	dest := [][]float32{make([]float32, 10)}
	n, err := dec.Read(dest, 0, 10, 1)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 2 {
		t.Errorf("Read at end of file returned %d frames, want 2", n)
	}
}

func TestOpenFileReadPastEndReturnsZero(t *testing.T) {
	lib := NewLibrary()
	lib.Put("short.wav", &File{Channels: 1, SampleRate: 44100, Frames: [][]float32{{0, 1, 2}}})
	dec, _ := lib.Open("short.wav")
	defer dec.Close()

	dest := [][]float32{make([]float32, 4)}
	n, err := dec.Read(dest, 0, 4, 3)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if n != 0 {
		t.Errorf("Read past end of file returned %d frames, want 0", n)
	}
}

func TestOpenFileReadFailsAfterFailReadAfter(t *testing.T) {
	lib := NewLibrary()
	lib.Put("flaky.wav", &File{
		Channels: 1, SampleRate: 44100,
		Frames:        [][]float32{make([]float32, 100)},
		FailReadAfter: 10,
	})
	dec, _ := lib.Open("flaky.wav")
	defer dec.Close()

	dest := [][]float32{make([]float32, 10)}
	if _, err := dec.Read(dest, 0, 10, 0); err != nil {
		t.Fatalf("first read should succeed: %v", err)
	}
	if _, err := dec.Read(dest, 0, 10, 10); err == nil {
		t.Fatal("read after FailReadAfter frames should fail")
	}
}

func TestOpenFileMonoSourceFillsEveryDestChannel(t *testing.T) {
	lib := NewLibrary()
	lib.Put("mono.wav", &File{Channels: 1, SampleRate: 44100, Frames: [][]float32{{5, 6, 7}}})
	dec, _ := lib.Open("mono.wav")
	defer dec.Close()

	dest := [][]float32{make([]float32, 3), make([]float32, 3)}
	if _, err := dec.Read(dest, 0, 3, 0); err != nil {
		t.Fatalf("Read: %v", err)
	}
	if dest[0][0] != 5 || dest[1][0] != 5 {
		t.Errorf("mono source should duplicate into every destination channel, got %v / %v", dest[0], dest[1])
	}
}
