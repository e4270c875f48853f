package audio

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

const (
	noNote         = -1
	velocityToGain = 0.8
)

type voiceState int

const (
	voiceIdle voiceState = iota
	voiceSounding
	voiceReleasing
)

func (s voiceState) String() string {
	switch s {
	case voiceSounding:
		return "sounding"
	case voiceReleasing:
		return "releasing"
	default:
		return "idle"
	}
}

// Voice renders one note. It is owned by an Engine and must only be used
// from the render path.
type Voice struct {
	osc    OscillatorBank
	env    EnvelopeGenerator
	filter Filter

	scratch  []float64
	prepared bool

	state     voiceState
	channel   int
	note      int
	velocity  float64
	offset    float64 // pitch offset in semitones
	amplitude float64
	stamp     uint64 // start order, used for stealing
}

func newVoice() *Voice {
	return &Voice{
		filter:  newFilter(),
		channel: noNote,
		note:    noNote,
	}
}

func (v *Voice) prepare(sampleRate float64, maxBlockSize int) {
	v.osc.setSampleRate(sampleRate)
	v.env.setSampleRate(sampleRate)
	v.filter.Prepare(sampleRate)
	v.scratch = make([]float64, maxBlockSize)
	v.prepared = true
}

func (v *Voice) updateParams(p ParameterSet) {
	v.osc.SetWaveform(p.Waveform)
	v.osc.SetThickDetune(p.ThickDetune)
	v.env.SetParameters(p.Attack, p.Decay, p.Sustain, p.Release)
	v.filter.SetCutoff(p.FilterCutoff)
	v.filter.SetResonance(p.FilterResonance)
}

func (v *Voice) startNote(channel, note int, velocity, offset float64, stamp uint64) {
	v.channel = channel
	v.note = note
	v.velocity = velocity
	v.offset = offset
	v.amplitude = velocity * velocityToGain
	v.stamp = stamp
	v.osc.Start(noteToFreq(float64(note) + offset))
	v.filter.Reset()
	v.env.NoteOn()
	v.state = voiceSounding
}

func (v *Voice) stopNote(allowTailOff bool) {
	if v.state == voiceIdle {
		return
	}
	if allowTailOff {
		v.env.NoteOff(true)
		if v.env.IsActive() {
			v.state = voiceReleasing
			return
		}
	}
	v.clear()
}

func (v *Voice) clear() {
	v.env.Reset()
	v.state = voiceIdle
	v.channel = noNote
	v.note = noNote
}

func (v *Voice) isPlaying(channel, note int) bool {
	return v.state != voiceIdle && v.channel == channel && v.note == note
}

// renderBlock adds n samples of the voice to every channel of out, starting
// at start. The voice stops rendering as soon as its envelope finishes and
// the rest of the block stays silent.
func (v *Voice) renderBlock(out [][]float64, start, n int) {
	if !v.prepared || v.state == voiceIdle || n <= 0 {
		return
	}
	if n > len(v.scratch) {
		n = len(v.scratch)
	}
	buf := v.scratch[:n]
	for i := range buf {
		buf[i] = 0
	}
	finished := false
	for i := range buf {
		level := v.env.NextSample()
		buf[i] = level * v.osc.GenerateSample() * v.amplitude
		if !v.env.IsActive() {
			finished = true
			break
		}
	}
	v.filter.Process(buf)
	for _, ch := range out {
		vecmath.AddBlockInPlace(ch[start:start+n], buf)
	}
	if finished {
		v.clear()
	}
}

func (v *Voice) IsActive() bool  { return v.state != voiceIdle }
func (v *Voice) Note() int       { return v.note }
func (v *Voice) Channel() int    { return v.channel }
func (v *Voice) Offset() float64 { return v.offset }

// Level is the current envelope level scaled by the note amplitude.
func (v *Voice) Level() float64 {
	if v.state == voiceIdle {
		return 0
	}
	return v.env.Level() * v.amplitude
}

func noteToFreq(note float64) float64 {
	return 440 * math.Pow(2, (note-69)/12)
}
