package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"atomicgo.dev/keyboard"
	"atomicgo.dev/keyboard/keys"
	"github.com/fatih/color"
	"github.com/gordonklaus/portaudio"

	"github.com/klangwerk/gosampler"
	"github.com/klangwerk/gosampler/cmd/internal/config"
)

var (
	cyan   = color.New(color.FgCyan).SprintfFunc()
	green  = color.New(color.FgGreen).SprintfFunc()
	yellow = color.New(color.FgYellow).SprintfFunc()
)

const (
	escape     = "\x1b["
	hideCursor = escape + "?25l"
	showCursor = escape + "?25h"
)

// testKeyNotes maps a row of the computer keyboard to MIDI notes
// starting at middle C, so the engine is playable with no MIDI
// hardware attached.
var testKeyNotes = map[rune]int{
	'a': 60, 'w': 61, 's': 62, 'e': 63, 'd': 64,
	'f': 65, 't': 66, 'g': 67, 'y': 68, 'h': 69,
	'u': 70, 'j': 71, 'k': 72,
}

func play(engine *gosampler.Engine, flags config.Flags) {
	if err := portaudio.Initialize(); err != nil {
		slog.Error("portaudio: initialize failed", "err", err)
		os.Exit(1)
	}
	defer portaudio.Terminate()

	queue := newEventQueue()

	watcher, err := newMIDIWatcher(queue, slog.Default())
	if err != nil {
		slog.Warn("midi: watcher unavailable, falling back to keyboard only", "err", err)
	} else {
		defer watcher.Close()
	}

	left := make([]float32, 0, 4096)
	right := make([]float32, 0, 4096)
	streamCB := func(out [][]float32) {
		n := len(out[0])
		if cap(left) < n {
			left = make([]float32, n)
			right = make([]float32, n)
		}
		left = left[:n]
		right = right[:n]
		for i := range left {
			left[i] = 0
			right[i] = 0
		}

		events := queue.drain()
		engine.Process([][]float32{left, right}, n, events)

		copy(out[0], left)
		copy(out[1], right)
	}

	stream, err := portaudio.OpenDefaultStream(0, 2, float64(flags.Hz), 1024, streamCB)
	if err != nil {
		slog.Error("portaudio: open stream failed", "err", err)
		os.Exit(1)
	}
	defer stream.Close()

	stream.Start()
	defer stream.Stop()

	var uiw = os.Stdout
	if flags.NoUI {
		uiw = nil
	}

	stopFn := func() {
		stream.Stop()
		portaudio.Terminate()
		if uiw != nil {
			fmt.Fprint(uiw, showCursor)
		}
		os.Exit(0)
	}

	sigch := make(chan os.Signal, 5)
	signal.Notify(sigch, syscall.SIGINT)
	go func() {
		for sig := range sigch {
			if sig == syscall.SIGINT {
				stopFn()
			}
		}
	}()

	if watcher != nil {
		go func() {
			for range time.Tick(250 * time.Millisecond) {
				watcher.Tick()
			}
		}()
	}

	if uiw != nil {
		fmt.Fprint(uiw, hideCursor)
	}

	heldKeys := map[rune]bool{}
	go keyboard.Listen(func(key keys.Key) (stop bool, err error) {
		switch key.Code {
		case keys.CtrlC, keys.Escape:
			stopFn()
		case keys.RuneKey:
			r := key.Runes[0]
			if note, ok := testKeyNotes[r]; ok && !heldKeys[r] {
				heldKeys[r] = true
				queue.push(gosampler.Event{Kind: gosampler.NoteOn, Note: note, Velocity: 0.9})
			}
		}
		return false, nil
	})

	// The keyboard driver reports key-down only, not key-up, so every
	// computer-keyboard trigger is released on the following tick
	// rather than held for as long as the key is down.
	for {
		time.Sleep(200 * time.Millisecond)
		if uiw != nil {
			fmt.Fprintf(uiw, "%s %s polyphony=%s\n", cyan("sssplay"), green(engine.String()), yellow("%d", engine.Params().Polyphony()))
		}
		for r, note := range testKeyNotes {
			if heldKeys[r] {
				queue.push(gosampler.Event{Kind: gosampler.NoteOff, Note: note})
				heldKeys[r] = false
			}
		}
		if uiw != nil {
			fmt.Fprint(uiw, escape+"1F")
		}
	}
}
