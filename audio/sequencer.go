package audio

import (
	"math"
	"slices"
	"sort"
	"sync"
	"sync/atomic"
)

// Pulses per quarter note
const PPQN = 960.

const ParamBPM = "bpm"

type Clip struct {
	Length  int
	Channel int
	notes   []note
}

func NewClip(length float64) *Clip {
	return &Clip{
		Length: int(length * PPQN),
	}
}

func (c *Clip) AddNote(position float64, pitch int, length, velocity float64) {
	if pitch < 0 || pitch > 127 || c.Length <= 0 {
		return
	}
	start := int(position*PPQN) % c.Length
	c.notes = append(c.notes, note{
		pos:      start,
		end:      (start + max(1, int(length*PPQN))) % c.Length,
		pitch:    pitch,
		velocity: velocity,
	})
}

// Pitches returns the distinct pitches used by the clip.
func (c *Clip) Pitches() []int {
	var pitches []int
	for _, n := range c.notes {
		if !slices.Contains(pitches, n.pitch) {
			pitches = append(pitches, n.pitch)
		}
	}
	sort.Ints(pitches)
	return pitches
}

type note struct {
	pos      int // start of the note measured in PPQN from the start of a clip
	end      int // end of the note, wrapped to the clip length
	pitch    int // pitch as a midi note number
	velocity float64
}

// Playable receives the events produced by the sequencer during a tick.
type Playable interface {
	Schedule(ev NoteEvent)
}

// Sequencer loops clips and schedules their notes at block granularity. It
// runs as a Ticker on the render path; clips are replaced atomically.
type Sequencer struct {
	*Props
	bpm         *Param
	mu          sync.Mutex // serializes clip writers
	clips       atomic.Pointer[map[string]*Clip]
	target      Playable
	sampleRate  float64
	totalPulses uint64
}

func NewSequencer(sampleRate float64, target Playable) *Sequencer {
	props := NewProps()
	seq := &Sequencer{
		Props:      props,
		bpm:        props.MustRegister(ParamSpec{Name: ParamBPM, Min: 20, Max: 300, Default: 120}),
		target:     target,
		sampleRate: sampleRate,
	}
	clips := make(map[string]*Clip)
	seq.clips.Store(&clips)
	return seq
}

// SetClip adds or replaces a clip and returns the clip it replaced, if any.
// A clip must not be modified once it is set.
func (s *Sequencer) SetClip(name string, clip *Clip) *Clip {
	var old *Clip
	s.update(func(clips map[string]*Clip) {
		old = clips[name]
		clips[name] = clip
	})
	return old
}

// Clip returns the named clip or nil.
func (s *Sequencer) Clip(name string) *Clip {
	return (*s.clips.Load())[name]
}

// RemoveClip removes a clip and returns it, or nil if there was none.
func (s *Sequencer) RemoveClip(name string) *Clip {
	var removed *Clip
	s.update(func(clips map[string]*Clip) {
		removed = clips[name]
		delete(clips, name)
	})
	return removed
}

// update copies the clip map so the render path never sees it change.
func (s *Sequencer) update(f func(map[string]*Clip)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old := *s.clips.Load()
	clips := make(map[string]*Clip, len(old)+1)
	for k, v := range old {
		clips[k] = v
	}
	f(clips)
	s.clips.Store(&clips)
}

func (s *Sequencer) ClipNames() []string {
	clips := *s.clips.Load()
	names := make([]string, 0, len(clips))
	for name := range clips {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Sequencer) Tick(numSamples int) {
	bpm := s.bpm.Load()
	clips := *s.clips.Load()

	// The number of pulses to schedule for each buffer will be fractional,
	// because the PPQN is not a multiple of the buffer size. Truncating it
	// causes the next pulse to be a few samples early, but it's not noticeable.
	numPulses := int(math.Floor(PPQN * (bpm / 60.) / (s.sampleRate / float64(numSamples))))

	for _, clip := range clips {
		if clip.Length <= 0 {
			continue
		}
		pos := int(s.totalPulses % uint64(clip.Length)) // current position within the clip
		nextPos := pos + numPulses                      // next position within the clip

		// note offs go first so a note ending where the same pitch starts
		// again does not cut the new note
		for _, note := range clip.notes {
			if inWindow(note.end, pos, nextPos, clip.Length) {
				s.target.Schedule(NoteEvent{
					Kind:         NoteOff,
					Channel:      clip.Channel,
					Note:         note.pitch,
					AllowTailOff: true,
				})
			}
		}
		for _, note := range clip.notes {
			if inWindow(note.pos, pos, nextPos, clip.Length) {
				s.target.Schedule(NoteEvent{
					Kind:     NoteOn,
					Channel:  clip.Channel,
					Note:     note.pitch,
					Velocity: note.velocity,
				})
			}
		}
	}
	s.totalPulses += uint64(numPulses)
}

// inWindow reports whether p lies in [pos, nextPos) of a clip that wraps
// around at length.
func inWindow(p, pos, nextPos, length int) bool {
	if nextPos > length {
		// We've reached the end of the clip so also check start of clip.
		return p >= pos || p < nextPos-length
	}
	return p >= pos && p < nextPos
}
