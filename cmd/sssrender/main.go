// sssrender offline-renders a scripted sequence of notes against a
// loaded instrument to a WAV file, using the same gosampler.Engine the
// realtime host uses but driven by a deterministic clock instead of a
// live audio callback.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klangwerk/gosampler"
	"github.com/klangwerk/gosampler/decoder/wavdecoder"
	"github.com/klangwerk/gosampler/instrument"
	"github.com/klangwerk/gosampler/wav"
)

const blockFrames = 1024

// scriptedNote is one entry of a -notes script: a MIDI note held from
// startSec for durSec seconds at the given velocity.
type scriptedNote struct {
	note      int
	velocity  float32
	startSec  float64
	durSec    float64
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("sssrender: ")

	instrumentPath := flag.String("instrument", "", "instrument folder to render")
	outPath := flag.String("out", "", "output WAV file path")
	hz := flag.Int("hz", 44100, "render sample rate")
	polyphony := flag.Int("polyphony", 16, "voice count limit")
	notesFlag := flag.String("notes", "", "comma-separated note:velocity:start:duration entries, e.g. 60:0.9:0:2,64:0.9:0.5:2")
	tailSec := flag.Float64("tail", 2.0, "seconds to keep rendering (release tails) after the last note ends")
	flag.Parse()

	if *instrumentPath == "" || *outPath == "" || *notesFlag == "" {
		log.Fatal("usage: sssrender -instrument <dir> -out <file.wav> -notes 60:0.9:0:2")
	}

	notes, err := parseNotes(*notesFlag)
	if err != nil {
		log.Fatal(err)
	}

	loader := instrument.NewLoader(wavdecoder.Opener{})
	samples, err := loader.LoadFromFolder(*instrumentPath)
	if err != nil {
		log.Fatal(err)
	}

	engine := gosampler.NewEngine(wavdecoder.Opener{})
	engine.Prepare(float64(*hz), blockFrames)
	defer engine.Shutdown()
	engine.Params().SetPolyphony(*polyphony)
	engine.LoadInstrument(samples)

	outF, err := os.Create(*outPath)
	if err != nil {
		log.Fatal(err)
	}
	defer outF.Close()

	writer, err := wav.NewWriter(outF, *hz)
	if err != nil {
		log.Fatal(err)
	}
	defer writer.Finish()

	totalSec := 0.0
	for _, n := range notes {
		if end := n.startSec + n.durSec; end > totalSec {
			totalSec = end
		}
	}
	totalFrames := int64((totalSec + *tailSec) * float64(*hz))

	left := make([]float32, blockFrames)
	right := make([]float32, blockFrames)
	int16Frame := make([][]int16, 2)
	int16Frame[0] = make([]int16, blockFrames)
	int16Frame[1] = make([]int16, blockFrames)

	triggered := make([]bool, len(notes))
	released := make([]bool, len(notes))

	var rendered int64
	for rendered < totalFrames {
		n := blockFrames
		if remaining := totalFrames - rendered; int64(n) > remaining {
			n = int(remaining)
		}

		var events []gosampler.Event
		blockStartSec := float64(rendered) / float64(*hz)
		blockEndSec := float64(rendered+int64(n)) / float64(*hz)
		for i, sn := range notes {
			if !triggered[i] && sn.startSec < blockEndSec {
				triggered[i] = true
				offset := int((sn.startSec - blockStartSec) * float64(*hz))
				if offset < 0 {
					offset = 0
				}
				events = append(events, gosampler.Event{Offset: offset, Kind: gosampler.NoteOn, Note: sn.note, Velocity: sn.velocity})
			}
			if triggered[i] && !released[i] && sn.startSec+sn.durSec < blockEndSec {
				released[i] = true
				offset := int((sn.startSec + sn.durSec - blockStartSec) * float64(*hz))
				if offset < 0 {
					offset = 0
				}
				events = append(events, gosampler.Event{Offset: offset, Kind: gosampler.NoteOff, Note: sn.note})
			}
		}
		sort.SliceStable(events, func(a, b int) bool { return events[a].Offset < events[b].Offset })

		for i := range left[:n] {
			left[i] = 0
			right[i] = 0
		}
		engine.Process([][]float32{left[:n], right[:n]}, n, events)

		for i := 0; i < n; i++ {
			int16Frame[0][i] = floatToInt16(left[i])
			int16Frame[1][i] = floatToInt16(right[i])
		}
		if err := writer.WriteFrame([][]int16{int16Frame[0][:n], int16Frame[1][:n]}); err != nil {
			log.Fatal(err)
		}

		rendered += int64(n)
	}
}

func floatToInt16(v float32) int16 {
	if v > 1 {
		v = 1
	} else if v < -1 {
		v = -1
	}
	return int16(v * 32767)
}

func parseNotes(s string) ([]scriptedNote, error) {
	var out []scriptedNote
	for _, field := range strings.Split(s, ",") {
		parts := strings.Split(field, ":")
		if len(parts) != 4 {
			return nil, errBadNote(field)
		}
		note, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, errBadNote(field)
		}
		vel, err := strconv.ParseFloat(parts[1], 32)
		if err != nil {
			return nil, errBadNote(field)
		}
		start, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			return nil, errBadNote(field)
		}
		dur, err := strconv.ParseFloat(parts[3], 64)
		if err != nil {
			return nil, errBadNote(field)
		}
		out = append(out, scriptedNote{note: note, velocity: float32(vel), startSec: start, durSec: dur})
	}
	return out, nil
}

func errBadNote(field string) error {
	return fmt.Errorf("sssrender: malformed -notes entry %q", field)
}
