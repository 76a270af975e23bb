package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/klangwerk/gosampler"
)

// preferredPatterns lists device names that are picked first when more
// than one MIDI input is available.
var preferredPatterns = []string{"Launchkey", "Keystation", "MIDI Keyboard"}

// excludedPatterns lists virtual/system ports that are never
// auto-connected.
var excludedPatterns = []string{"Midi Through", "Through Port", "Dummy"}

const midiRescanInterval = 1000 * time.Millisecond

// midiWatcher monitors available MIDI inputs and maintains a
// connection to the preferred device, reconnecting across hot-plug
// and hot-unplug. Every NoteOn/NoteOff/CC it receives is queued onto
// an eventQueue the audio callback drains at the start of each block.
type midiWatcher struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time

	queue *eventQueue
	log   *slog.Logger
}

func newMIDIWatcher(queue *eventQueue, log *slog.Logger) (*midiWatcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	return &midiWatcher{drv: drv, queue: queue, log: log}, nil
}

func (m *midiWatcher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeConn()
	m.drv.Close()
}

// Tick scans for devices, auto-connects to a preferred one, and
// detects disappearances. Call it on a regular interval from the main
// loop.
func (m *midiWatcher) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if !m.lastRescanAt.IsZero() && now.Sub(m.lastRescanAt) < midiRescanInterval {
		return
	}
	m.lastRescanAt = now

	inputs := m.listInputs()

	if m.connected {
		for _, n := range inputs {
			if n == m.selectedName {
				return
			}
		}
		m.log.Warn("midi: device disappeared", "device", m.selectedName)
		m.closeConn()
		m.lastRescanAt = time.Time{}
		return
	}

	if len(inputs) == 0 {
		return
	}
	cand, ok := m.pickPreferred(inputs)
	if !ok {
		return
	}
	if err := m.openByName(cand); err != nil {
		m.log.Error("midi: connect failed", "device", cand, "err", err)
	}
}

func (m *midiWatcher) listInputs() []string {
	ins, err := m.drv.Ins()
	if err != nil {
		m.log.Error("midi: list inputs failed", "err", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		excluded := false
		for _, pat := range excludedPatterns {
			if containsCI(name, pat) {
				excluded = true
				break
			}
		}
		if !excluded {
			names = append(names, name)
		}
	}
	return names
}

func (m *midiWatcher) pickPreferred(inputs []string) (string, bool) {
	for _, pat := range preferredPatterns {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func (m *midiWatcher) closeConn() {
	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
	}
	if m.inPort != nil {
		_ = m.inPort.Close()
		m.inPort = nil
	}
	m.connected = false
	m.selectedName = ""
}

func (m *midiWatcher) openByName(name string) error {
	ins, err := m.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		var ch, key, vel uint8
		var cc, ccVal uint8
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			m.queue.push(gosampler.Event{
				Kind:     gosampler.NoteOn,
				Note:     int(key),
				Velocity: float32(vel) / 127.0,
			})
		case msg.GetNoteEnd(&ch, &key):
			m.queue.push(gosampler.Event{Kind: gosampler.NoteOff, Note: int(key)})
		case msg.GetControlChange(&ch, &cc, &ccVal):
			m.queue.push(gosampler.Event{Kind: gosampler.ControlChange, CC: int(cc), CCValue: int(ccVal)})
		}
	}, midi.HandleError(func(listenErr error) {
		m.log.Warn("midi: listener error", "device", name, "err", listenErr)
		go func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.connected && m.selectedName == name {
				m.closeConn()
				m.lastRescanAt = time.Time{}
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	m.inPort = found
	m.stopFn = stop
	m.connected = true
	m.selectedName = name
	m.log.Info("midi: connected", "device", name)
	return nil
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// eventQueue is a mutex-protected FIFO of gosampler.Event used to hand
// note events from the MIDI/keyboard goroutines to the portaudio
// callback. The callback drains it once per block and gives every
// pending event Offset=0 (sample-accurate intra-block timing is not
// available across this boundary; spec.md §9 permits this refinement).
type eventQueue struct {
	mu      sync.Mutex
	pending []gosampler.Event
}

func newEventQueue() *eventQueue { return &eventQueue{} }

func (q *eventQueue) push(ev gosampler.Event) {
	q.mu.Lock()
	q.pending = append(q.pending, ev)
	q.mu.Unlock()
}

func (q *eventQueue) drain() []gosampler.Event {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return nil
	}
	out := q.pending
	q.pending = nil
	return out
}
