package audio

import "math"

// Filter is a 2-pole state variable lowpass in topology preserving
// transform form. Only the lowpass output is used.
type Filter struct {
	sampleRate float64
	cutoff     float64
	resonance  float64

	g, r2, h float64

	// integrator state
	s1, s2 float64
}

func newFilter() Filter {
	return Filter{cutoff: 1000, resonance: 1 / math.Sqrt2}
}

func (f *Filter) Prepare(sampleRate float64) {
	f.sampleRate = sampleRate
	f.Reset()
	f.update()
}

// SetCutoff sets the corner frequency in Hz, clamped to the audible range.
func (f *Filter) SetCutoff(hz float64) {
	hz = clamp(hz, minCutoff, maxCutoff)
	if hz == f.cutoff {
		return
	}
	f.cutoff = hz
	f.update()
}

// SetResonance sets the filter Q.
func (f *Filter) SetResonance(q float64) {
	q = clamp(q, minResonance, maxResonance)
	if q == f.resonance {
		return
	}
	f.resonance = q
	f.update()
}

func (f *Filter) Cutoff() float64    { return f.cutoff }
func (f *Filter) Resonance() float64 { return f.resonance }

func (f *Filter) Reset() {
	f.s1 = 0
	f.s2 = 0
}

func (f *Filter) update() {
	if f.sampleRate <= 0 {
		return
	}
	// keep the corner below nyquist at low sample rates
	fc := math.Min(f.cutoff, 0.49*f.sampleRate)
	f.g = math.Tan(math.Pi * fc / f.sampleRate)
	f.r2 = 1 / f.resonance
	f.h = 1 / (1 + f.r2*f.g + f.g*f.g)
}

// Process filters buf in place.
func (f *Filter) Process(buf []float64) {
	g, r2, h := f.g, f.r2, f.h
	s1, s2 := f.s1, f.s2
	for n, x := range buf {
		hp := h * (x - s1*(g+r2) - s2)
		bp := hp*g + s1
		s1 = hp*g + bp
		lp := bp*g + s2
		s2 = bp*g + lp
		buf[n] = lp
	}
	f.s1, f.s2 = s1, s2
}
