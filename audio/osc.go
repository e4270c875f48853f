package audio

import "math"

const twoPi = 2 * math.Pi

type Waveform int

const (
	WaveSine Waveform = iota
	WaveSaw
	WaveSquare
	WaveTriangle
	WaveThickSaw
)

var waveformNames = [...]string{"sine", "saw", "square", "triangle", "thicksaw"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return waveformNames[WaveSine]
	}
	return waveformNames[w]
}

// ParseWaveform maps a waveform name to its index.
func ParseWaveform(s string) (Waveform, bool) {
	for i, name := range waveformNames {
		if name == s {
			return Waveform(i), true
		}
	}
	return WaveSine, false
}

const (
	numThickOscs   = 7
	thickCenter    = 3
	thickMaxCents  = 50.0
	thickWeightSum = numThickOscs + 1 // center counts twice
)

// Relative detune of the thick saw oscillators, measured from an analog
// super saw. Scaled by the detune amount times thickMaxCents.
var thickSawRatios = [numThickOscs]float64{-1.0, -0.57166, -0.17730, 0, 0.18102, 0.56516, 0.97688}

// OscillatorBank generates one voice's waveform. The single waveforms run
// on the first phase accumulator, the thick saw runs on all of them.
type OscillatorBank struct {
	waveform   Waveform
	sampleRate float64
	freq       float64
	detune     float64
	delta      float64
	phases     [numThickOscs]float64
	deltas     [numThickOscs]float64
}

func (o *OscillatorBank) setSampleRate(sampleRate float64) {
	o.sampleRate = sampleRate
	o.updateDeltas()
}

// SetWaveform selects the waveform. Unknown indexes play a sine.
func (o *OscillatorBank) SetWaveform(w int) {
	if w < int(WaveSine) || w > int(WaveThickSaw) {
		w = int(WaveSine)
	}
	o.waveform = Waveform(w)
}

func (o *OscillatorBank) Waveform() Waveform {
	return o.waveform
}

func (o *OscillatorBank) SetThickDetune(amount float64) {
	amount = clamp(amount, 0, 1)
	if amount == o.detune {
		return
	}
	o.detune = amount
	o.updateDeltas()
}

// Start sets the base frequency and resets the phases. The thick saw
// oscillators start evenly spread over the cycle to avoid a click at onset.
func (o *OscillatorBank) Start(freq float64) {
	o.freq = freq
	for i := range o.phases {
		o.phases[i] = float64(i) / numThickOscs * twoPi
	}
	o.updateDeltas()
}

func (o *OscillatorBank) updateDeltas() {
	if o.sampleRate <= 0 {
		return
	}
	o.delta = o.freq / o.sampleRate * twoPi
	for i := range o.deltas {
		o.deltas[i] = o.frequency(i) / o.sampleRate * twoPi
	}
}

// frequency returns the frequency of the i-th thick saw oscillator.
func (o *OscillatorBank) frequency(i int) float64 {
	cents := thickSawRatios[i] * o.detune * thickMaxCents
	return o.freq * math.Pow(2, cents/1200)
}

// GenerateSample returns the next sample and advances the phases.
func (o *OscillatorBank) GenerateSample() float64 {
	if o.waveform != WaveThickSaw {
		v := waveValue(o.waveform, o.phases[0])
		o.phases[0] = advancePhase(o.phases[0], o.delta)
		return v
	}
	var sum float64
	for i, phase := range o.phases {
		v := waveValue(WaveSaw, phase)
		if i == thickCenter {
			v *= 2
		}
		sum += v
		o.phases[i] = advancePhase(phase, o.deltas[i])
	}
	return sum / thickWeightSum
}

func advancePhase(phase, delta float64) float64 {
	phase += delta
	for phase >= twoPi {
		phase -= twoPi
	}
	return phase
}

// waveValue evaluates a single-cycle waveform at phase in [0, 2π).
func waveValue(w Waveform, phase float64) float64 {
	switch w {
	case WaveSaw:
		return 1 - phase/math.Pi
	case WaveSquare:
		if phase < math.Pi {
			return 1
		}
		return -1
	case WaveTriangle:
		t := phase / twoPi
		if t < 0.5 {
			return 4*t - 1
		}
		return 3 - 4*t
	default:
		return math.Sin(phase)
	}
}
