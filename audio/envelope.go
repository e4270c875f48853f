package audio

type envelopeState int

const (
	stateIdle envelopeState = iota
	stateAttack
	stateDecay
	stateSustain
	stateRelease
)

func (s envelopeState) String() string {
	switch s {
	case stateAttack:
		return "attack"
	case stateDecay:
		return "decay"
	case stateSustain:
		return "sustain"
	case stateRelease:
		return "release"
	default:
		return "idle"
	}
}

// EnvelopeGenerator is a linear ADSR amplitude envelope.
type EnvelopeGenerator struct {
	sampleRate float64

	attack  float64
	decay   float64
	sustain float64
	release float64

	attackRate  float64
	decayRate   float64
	releaseRate float64

	level float64
	state envelopeState
}

func (e *EnvelopeGenerator) setSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
	e.recalculateRates()
}

// SetParameters updates the stage times in seconds and the sustain level.
// A release that is already running keeps its rate.
func (e *EnvelopeGenerator) SetParameters(attack, decay, sustain, release float64) {
	e.attack = attack
	e.decay = decay
	e.sustain = clamp(sustain, 0, 1)
	e.release = release
	e.recalculateRates()
}

func (e *EnvelopeGenerator) recalculateRates() {
	e.attackRate = e.rate(1, e.attack)
	e.decayRate = e.rate(1-e.sustain, e.decay)
	if e.state != stateRelease {
		e.releaseRate = e.rate(e.sustain, e.release)
	}
}

// rate returns the per sample step that covers distance in seconds. A zero
// length stage returns -1 and is skipped.
func (e *EnvelopeGenerator) rate(distance, seconds float64) float64 {
	if seconds <= 0 || e.sampleRate <= 0 {
		return -1
	}
	return distance / (seconds * e.sampleRate)
}

func (e *EnvelopeGenerator) NoteOn() {
	e.level = 0
	switch {
	case e.attackRate > 0:
		e.state = stateAttack
	case e.decayRate > 0:
		e.level = 1
		e.state = stateDecay
	default:
		e.level = e.sustain
		e.state = stateSustain
	}
}

// NoteOff starts the release stage or, without tail off, silences the
// envelope at once.
func (e *EnvelopeGenerator) NoteOff(allowTailOff bool) {
	if e.state == stateIdle {
		return
	}
	if !allowTailOff {
		e.Reset()
		return
	}
	if e.release <= 0 || e.sampleRate <= 0 {
		e.Reset()
		return
	}
	e.releaseRate = e.level / (e.release * e.sampleRate)
	if e.releaseRate <= 0 {
		e.Reset()
		return
	}
	e.state = stateRelease
}

func (e *EnvelopeGenerator) Reset() {
	e.level = 0
	e.state = stateIdle
}

func (e *EnvelopeGenerator) IsActive() bool {
	return e.state != stateIdle
}

func (e *EnvelopeGenerator) Level() float64 {
	return e.level
}

// NextSample advances the envelope by one sample and returns the new level.
func (e *EnvelopeGenerator) NextSample() float64 {
	switch e.state {
	case stateIdle:
		return 0
	case stateAttack:
		e.level += e.attackRate
		if e.level >= 1 {
			e.level = 1
			e.goToDecay()
		}
	case stateDecay:
		e.level -= e.decayRate
		if e.level <= e.sustain {
			e.level = e.sustain
			e.state = stateSustain
		}
	case stateSustain:
		e.level = e.sustain
	case stateRelease:
		e.level -= e.releaseRate
		if e.level <= 0 {
			e.Reset()
		}
	}
	return e.level
}

func (e *EnvelopeGenerator) goToDecay() {
	if e.decayRate > 0 {
		e.state = stateDecay
		return
	}
	e.level = e.sustain
	e.state = stateSustain
}
