package audio

import (
	"sync"
	"sync/atomic"
)

type NoteEventKind int

const (
	NoteOn NoteEventKind = iota
	NoteOff
	AllNotesOff
)

func (k NoteEventKind) String() string {
	switch k {
	case NoteOn:
		return "on"
	case NoteOff:
		return "off"
	case AllNotesOff:
		return "all-off"
	default:
		return "unknown"
	}
}

// NoteEvent is a note on, note off or all notes off. AllowTailOff is ignored
// for note on events.
type NoteEvent struct {
	Kind         NoteEventKind
	Channel      int
	Note         int
	Velocity     float64
	AllowTailOff bool
}

// eventBuffer is a bounded queue of note events. The consumer side is lock
// free; producers take a mutex so any goroutine can push.
type eventBuffer struct {
	mu          sync.Mutex
	events      []NoteEvent
	read, write atomic.Uint32
}

func newEventBuffer(size int) *eventBuffer {
	if size <= 0 || size&(size-1) != 0 {
		panic("event buffer size must be a power of 2")
	}
	return &eventBuffer{
		events: make([]NoteEvent, size),
	}
}

// push appends ev and reports false when the buffer is full.
func (b *eventBuffer) push(ev NoteEvent) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	write := b.write.Load()
	if write-b.read.Load() == uint32(len(b.events)) {
		return false
	}
	b.events[write%uint32(len(b.events))] = ev
	b.write.Store(write + 1)
	return true
}

// drain appends the queued events to dst in arrival order, up to its
// capacity. Events that do not fit stay queued for the next call.
func (b *eventBuffer) drain(dst []NoteEvent) []NoteEvent {
	read := b.read.Load()
	write := b.write.Load()
	for read != write && len(dst) < cap(dst) {
		dst = append(dst, b.events[read%uint32(len(b.events))])
		read++
	}
	b.read.Store(read)
	return dst
}

func (b *eventBuffer) len() int {
	return int(b.write.Load() - b.read.Load())
}
