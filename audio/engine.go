package audio

import (
	"log/slog"
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-vecmath"
)

const DefaultVoices = 16

// StealPolicy picks the voice to take over when every voice is busy.
// Candidates are never empty.
type StealPolicy func(candidates []*Voice) *Voice

// StealOldest takes the voice that started first.
func StealOldest(candidates []*Voice) *Voice {
	victim := candidates[0]
	for _, v := range candidates[1:] {
		if v.stamp < victim.stamp {
			victim = v
		}
	}
	return victim
}

// StealQuietest takes the voice with the lowest output level, preferring the
// older one on ties.
func StealQuietest(candidates []*Voice) *Voice {
	victim := candidates[0]
	for _, v := range candidates[1:] {
		level, lowest := v.Level(), victim.Level()
		if level < lowest || (level == lowest && v.stamp < victim.stamp) {
			victim = v
		}
	}
	return victim
}

// EngineConfig holds the construction settings of an Engine.
type EngineConfig struct {
	Voices      int
	StealPolicy StealPolicy
	Source      ParameterSource
	Logger      *slog.Logger
}

type EngineOption func(*EngineConfig)

// WithVoices sets the polyphony. The pool never grows after construction.
func WithVoices(n int) EngineOption {
	return func(cfg *EngineConfig) {
		if n > 0 {
			cfg.Voices = n
		}
	}
}

func WithStealPolicy(p StealPolicy) EngineOption {
	return func(cfg *EngineConfig) {
		if p != nil {
			cfg.StealPolicy = p
		}
	}
}

// WithParameterSource makes the engine read its parameters from src at the
// start of every block.
func WithParameterSource(src ParameterSource) EngineOption {
	return func(cfg *EngineConfig) {
		cfg.Source = src
	}
}

func WithLogger(logger *slog.Logger) EngineOption {
	return func(cfg *EngineConfig) {
		if logger != nil {
			cfg.Logger = logger
		}
	}
}

// EngineStats is updated at the end of every block.
type EngineStats struct {
	ActiveVoices int
	Steals       uint64
	Peak         float64
}

// Engine is a fixed pool of voices playing a single patch. Apart from Stats
// its methods must be called from one goroutine, the render path.
type Engine struct {
	voices     []*Voice
	candidates []*Voice
	steal      StealPolicy
	source     ParameterSource
	logger     *slog.Logger

	params      ParameterSet
	prepared    bool
	sampleRate  float64
	maxBlock    int
	numChannels int
	stamp       uint64

	active atomic.Int32
	steals atomic.Uint64
	peak   atomic.Uint64
}

func NewEngine(opts ...EngineOption) *Engine {
	cfg := EngineConfig{
		Voices:      DefaultVoices,
		StealPolicy: StealOldest,
		Logger:      slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	e := &Engine{
		voices:     make([]*Voice, cfg.Voices),
		candidates: make([]*Voice, 0, cfg.Voices),
		steal:      cfg.StealPolicy,
		source:     cfg.Source,
		logger:     cfg.Logger,
		params:     DefaultParameters(),
	}
	for n := range e.voices {
		e.voices[n] = newVoice()
	}
	return e
}

// Prepare sizes every buffer for blocks of up to maxBlockSize frames. It must
// be called before the first render.
func (e *Engine) Prepare(sampleRate float64, maxBlockSize, numChannels int) {
	e.sampleRate = sampleRate
	e.maxBlock = maxBlockSize
	e.numChannels = numChannels
	for _, v := range e.voices {
		v.prepare(sampleRate, maxBlockSize)
	}
	e.PushParameters(e.params)
	e.prepared = sampleRate > 0 && maxBlockSize > 0
	e.logger.Debug("engine prepared",
		"sampleRate", sampleRate,
		"maxBlockSize", maxBlockSize,
		"channels", numChannels,
		"voices", len(e.voices))
}

func (e *Engine) SampleRate() float64 { return e.sampleRate }
func (e *Engine) MaxBlockSize() int    { return e.maxBlock }
func (e *Engine) NumChannels() int     { return e.numChannels }
func (e *Engine) NumVoices() int       { return len(e.voices) }

// PushParameters hands p to every voice, idle ones included.
func (e *Engine) PushParameters(p ParameterSet) {
	e.params = p
	for _, v := range e.voices {
		v.updateParams(p)
	}
}

// NoteOn starts unisonVoices voices for the note, spread symmetrically over
// +/- unisonDetune semitones. A voice already playing the same channel and
// note is cut first.
func (e *Engine) NoteOn(channel, note int, velocity float64, unisonVoices int, unisonDetune float64) {
	if note < 0 || note > 127 {
		return
	}
	velocity = clamp(velocity, 0, 1)
	unisonVoices = max(1, min(unisonVoices, maxUnison, len(e.voices)))
	unisonDetune = clamp(unisonDetune, 0, maxDetune)

	for _, v := range e.voices {
		if v.isPlaying(channel, note) {
			v.stopNote(false)
		}
	}
	e.stamp++
	for i := 0; i < unisonVoices; i++ {
		v := e.findFreeVoice()
		v.startNote(channel, note, velocity, unisonOffset(i, unisonVoices, unisonDetune), e.stamp)
	}
}

// NoteOff stops every voice playing the channel and note.
func (e *Engine) NoteOff(channel, note int, velocity float64, allowTailOff bool) {
	for _, v := range e.voices {
		if v.isPlaying(channel, note) {
			v.stopNote(allowTailOff)
		}
	}
}

func (e *Engine) AllNotesOff(allowTailOff bool) {
	for _, v := range e.voices {
		v.stopNote(allowTailOff)
	}
}

// unisonOffset returns the pitch offset in semitones of the i-th of n
// unison voices.
func unisonOffset(i, n int, detune float64) float64 {
	if n <= 1 {
		return 0
	}
	return (float64(i)/float64(n-1) - 0.5) * 2 * detune
}

func (e *Engine) findFreeVoice() *Voice {
	for _, v := range e.voices {
		if !v.IsActive() {
			return v
		}
	}
	// voices started by the current note on are not candidates
	e.candidates = e.candidates[:0]
	for _, v := range e.voices {
		if v.stamp != e.stamp {
			e.candidates = append(e.candidates, v)
		}
	}
	victim := e.steal(e.candidates)
	victim.stopNote(false)
	e.steals.Add(1)
	return victim
}

func (e *Engine) applyEvent(ev NoteEvent) {
	switch ev.Kind {
	case NoteOn:
		e.NoteOn(ev.Channel, ev.Note, ev.Velocity, e.params.UnisonVoices, e.params.UnisonDetune)
	case NoteOff:
		e.NoteOff(ev.Channel, ev.Note, ev.Velocity, ev.AllowTailOff)
	case AllNotesOff:
		e.AllNotesOff(ev.AllowTailOff)
	}
}

// RenderBlock renders n frames into out starting at frame start. The region
// is cleared, parameters are pulled from the source, events are applied in
// order and the voices are mixed and scaled by the master gain. Blocks longer
// than the prepared size are rendered in chunks with the events applied
// before the first one. Rendering before Prepare does nothing.
func (e *Engine) RenderBlock(out [][]float64, events []NoteEvent, start, n int) {
	if !e.prepared || n <= 0 {
		return
	}
	if e.source != nil {
		e.PushParameters(e.source.Parameters())
	}
	for _, ch := range out {
		clear(ch[start : start+n])
	}
	for _, ev := range events {
		e.applyEvent(ev)
	}
	for offset := 0; offset < n; offset += e.maxBlock {
		size := min(e.maxBlock, n-offset)
		for _, v := range e.voices {
			v.renderBlock(out, start+offset, size)
		}
	}

	gain := clamp(e.params.MasterGain, 0, 1)
	var peak float64
	for _, ch := range out {
		block := ch[start : start+n]
		vecmath.ScaleBlockInPlace(block, gain)
		peak = math.Max(peak, vecmath.MaxAbs(block))
	}
	e.updateStats(peak)
}

func (e *Engine) updateStats(peak float64) {
	var active int32
	for _, v := range e.voices {
		if v.IsActive() {
			active++
		}
	}
	e.active.Store(active)
	e.peak.Store(math.Float64bits(peak))
}

// Stats can be called from any goroutine.
func (e *Engine) Stats() EngineStats {
	return EngineStats{
		ActiveVoices: int(e.active.Load()),
		Steals:       e.steals.Load(),
		Peak:         math.Float64frombits(e.peak.Load()),
	}
}
