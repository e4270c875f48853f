package audio

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	eventQueueSize    = 256
	scheduledCapacity = 128
)

// Synth connects the parameter registry, the note event queue and the
// engine. Note and parameter methods can be called from any goroutine; the
// render methods (Process, Render, Read) from a single audio goroutine.
// Scalar parameter writes take effect at the next block. ApplyState and
// SetState stage a whole list that lands at a single block boundary; a
// scalar write made while a list is staged wins over the staged value.
type Synth struct {
	*SynthProps
	engine *Engine
	logger *slog.Logger

	events    *eventBuffer
	pending   []NoteEvent
	scheduled []NoteEvent
	tickers   []Ticker
	stageMu   sync.Mutex // held by control writers and by the render path applying a staged list
	staged    atomic.Pointer[[]StateEntry]

	blockSize int
	buf       [][]float64

	dropped atomic.Uint64
}

// NewSynth creates a synth and prepares its engine. Options are passed to
// the engine; the parameter source is always the synth's own registry.
func NewSynth(sampleRate float64, blockSize, numChannels int, opts ...EngineOption) *Synth {
	cfg := EngineConfig{Logger: slog.Default()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	props := NewSynthProps()
	opts = append(opts, WithParameterSource(props))
	s := &Synth{
		SynthProps: props,
		engine:     NewEngine(opts...),
		logger:     cfg.Logger,
		events:     newEventBuffer(eventQueueSize),
		pending:    make([]NoteEvent, 0, eventQueueSize+scheduledCapacity),
		scheduled:  make([]NoteEvent, 0, scheduledCapacity),
		blockSize:  blockSize,
		buf:        make([][]float64, numChannels),
	}
	for n := range s.buf {
		s.buf[n] = make([]float64, blockSize)
	}
	s.engine.Prepare(sampleRate, blockSize, numChannels)
	return s
}

func (s *Synth) SampleRate() float64 { return s.engine.SampleRate() }
func (s *Synth) BlockSize() int      { return s.blockSize }
func (s *Synth) NumChannels() int    { return len(s.buf) }

func (s *Synth) NoteOn(channel, note int, velocity float64) {
	s.push(NoteEvent{Kind: NoteOn, Channel: channel, Note: note, Velocity: velocity})
}

func (s *Synth) NoteOff(channel, note int, velocity float64, allowTailOff bool) {
	s.push(NoteEvent{Kind: NoteOff, Channel: channel, Note: note, Velocity: velocity, AllowTailOff: allowTailOff})
}

func (s *Synth) AllNotesOff(allowTailOff bool) {
	s.push(NoteEvent{Kind: AllNotesOff, AllowTailOff: allowTailOff})
}

func (s *Synth) push(ev NoteEvent) {
	if !s.events.push(ev) {
		s.dropped.Add(1)
	}
}

// Schedule queues an event for the block being rendered. It is meant for
// tickers and must only be called from the render path.
func (s *Synth) Schedule(ev NoteEvent) {
	if len(s.scheduled) == cap(s.scheduled) {
		s.dropped.Add(1)
		return
	}
	s.scheduled = append(s.scheduled, ev)
}

// Ticker is advanced once per rendered block, before any audio is produced.
type Ticker interface {
	Tick(numSamples int)
}

// AddTicker must be called before rendering starts.
func (s *Synth) AddTicker(t Ticker) {
	s.tickers = append(s.tickers, t)
}

// ApplyState validates state and stages it for the next block, so that the
// engine sees either none or all of it. A malformed state changes nothing.
// Entries of a list that is still staged and missing from state are kept.
func (s *Synth) ApplyState(state []StateEntry) error {
	if err := s.validateState(state); err != nil {
		return err
	}
	s.stageMu.Lock()
	defer s.stageMu.Unlock()
	var staged []StateEntry
	if prev := s.staged.Load(); prev != nil {
		for _, entry := range *prev {
			if !containsEntry(state, entry.Name) {
				staged = append(staged, entry)
			}
		}
	}
	staged = append(staged, state...)
	s.staged.Store(&staged)
	return nil
}

// SetState stages state like ApplyState.
func (s *Synth) SetState(state []StateEntry) error {
	return s.ApplyState(state)
}

// Set writes a raw value and removes the parameter from a staged list, so
// the staged value can not overwrite it.
func (s *Synth) Set(key string, value float64) error {
	s.stageMu.Lock()
	defer s.stageMu.Unlock()
	if err := s.SynthProps.Set(key, value); err != nil {
		return err
	}
	s.unstage(key)
	return nil
}

// SetNormalized is Set for a 0..1 value.
func (s *Synth) SetNormalized(key string, value float64) error {
	s.stageMu.Lock()
	defer s.stageMu.Unlock()
	if err := s.SynthProps.SetNormalized(key, value); err != nil {
		return err
	}
	s.unstage(key)
	return nil
}

// unstage must be called with stageMu held.
func (s *Synth) unstage(key string) {
	prev := s.staged.Load()
	if prev == nil || !containsEntry(*prev, key) {
		return
	}
	staged := make([]StateEntry, 0, len(*prev))
	for _, entry := range *prev {
		if entry.Name != key {
			staged = append(staged, entry)
		}
	}
	s.staged.Store(&staged)
}

func containsEntry(state []StateEntry, name string) bool {
	for _, entry := range state {
		if entry.Name == name {
			return true
		}
	}
	return false
}

// State returns the raw parameter values, with a staged state that has not
// reached the render path yet applied on top.
func (s *Synth) State() []StateEntry {
	state := s.SynthProps.State()
	staged := s.staged.Load()
	if staged == nil {
		return state
	}
	index := make(map[string]int, len(state))
	for i, entry := range state {
		index[entry.Name] = i
	}
	for _, entry := range *staged {
		if i, ok := index[entry.Name]; ok {
			state[i].Value = s.params[entry.Name].clamp(entry.Value)
		}
	}
	return state
}

// LoadPreset stages the named factory preset.
func (s *Synth) LoadPreset(name string) error {
	p, err := PresetByName(name)
	if err != nil {
		return err
	}
	if err := s.ApplyState(p.State()); err != nil {
		return fmt.Errorf("load preset %s: %w", name, err)
	}
	s.logger.Debug("preset staged", "preset", p.Name)
	return nil
}

// SynthStats combines the engine statistics with the event queue state.
type SynthStats struct {
	EngineStats
	QueuedEvents  int
	DroppedEvents uint64
}

func (s *Synth) Stats() SynthStats {
	return SynthStats{
		EngineStats:   s.engine.Stats(),
		QueuedEvents:  s.events.len(),
		DroppedEvents: s.dropped.Load(),
	}
}

// renderBlock renders at most blockSize frames into out at start.
func (s *Synth) renderBlock(out [][]float64, start, n int) {
	// A control writer holding the lock delays the staged list by a block.
	if s.staged.Load() != nil && s.stageMu.TryLock() {
		if staged := s.staged.Swap(nil); staged != nil {
			s.applyState(*staged)
		}
		s.stageMu.Unlock()
	}
	for _, t := range s.tickers {
		t.Tick(n)
	}
	s.pending = s.events.drain(s.pending[:0])
	s.pending = append(s.pending, s.scheduled...)
	s.scheduled = s.scheduled[:0]
	s.engine.RenderBlock(out, s.pending, start, n)
}

// Render fills out with the next len(out[0]) frames.
func (s *Synth) Render(out [][]float64) {
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	for start := 0; start < frames; start += s.blockSize {
		s.renderBlock(out, start, min(s.blockSize, frames-start))
	}
}

// Process mixes the synth into a portaudio output buffer.
func (s *Synth) Process(samples [][]float32) {
	if len(samples) == 0 || len(s.buf) == 0 {
		return
	}
	frames := len(samples[0])
	for start := 0; start < frames; start += s.blockSize {
		n := min(s.blockSize, frames-start)
		s.renderBlock(s.buf, 0, n)
		for c := range samples {
			src := s.buf[c%len(s.buf)]
			dst := samples[c][start : start+n]
			for i := range dst {
				dst[i] += float32(src[i])
			}
		}
	}
}
