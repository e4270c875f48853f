package audio

const (
	ParamWaveform        = "waveform"
	ParamAttack          = "attack"
	ParamDecay           = "decay"
	ParamSustain         = "sustain"
	ParamRelease         = "release"
	ParamFilterCutoff    = "filterCutoff"
	ParamFilterResonance = "filterResonance"
	ParamMasterGain      = "masterGain"
	ParamThickDetune     = "thickDetune"
	ParamUnisonVoices    = "unisonVoices"
	ParamUnisonDetune    = "unisonDetune"
)

const (
	minCutoff    = 20.0
	maxCutoff    = 20000.0
	minResonance = 0.1
	maxResonance = 10.0
	maxUnison    = 4
	maxDetune    = 0.5
)

var synthParamSpecs = []ParamSpec{
	{Name: ParamWaveform, Min: 0, Max: 4, Default: 0, Integer: true},
	{Name: ParamAttack, Min: 0.001, Max: 5, Default: 0.05, Skew: 0.5},
	{Name: ParamDecay, Min: 0.001, Max: 3, Default: 0.1, Skew: 0.5},
	{Name: ParamSustain, Min: 0, Max: 1, Default: 0.8},
	{Name: ParamRelease, Min: 0.001, Max: 8, Default: 0.4, Skew: 0.5},
	{Name: ParamFilterCutoff, Min: minCutoff, Max: maxCutoff, Default: 5000, Skew: 0.25},
	{Name: ParamFilterResonance, Min: minResonance, Max: maxResonance, Default: 0.7},
	{Name: ParamMasterGain, Min: 0, Max: 1, Default: 0.7},
	{Name: ParamThickDetune, Min: 0, Max: 1, Default: 0.3},
	{Name: ParamUnisonVoices, Min: 1, Max: maxUnison, Default: 1, Integer: true},
	{Name: ParamUnisonDetune, Min: 0, Max: maxDetune, Default: 0.1},
}

// ParameterSet is a per-block snapshot of the tone controls in raw units.
type ParameterSet struct {
	Waveform        int
	Attack          float64 // seconds
	Decay           float64 // seconds
	Sustain         float64 // 0-1
	Release         float64 // seconds
	FilterCutoff    float64 // Hz
	FilterResonance float64
	ThickDetune     float64 // 0-1
	UnisonVoices    int
	UnisonDetune    float64 // semitones
	MasterGain      float64 // 0-1
}

// DefaultParameters returns the parameter defaults.
func DefaultParameters() ParameterSet {
	return NewSynthProps().Parameters()
}

// ParameterSource provides the most recent parameter values.
type ParameterSource interface {
	Parameters() ParameterSet
}

// SynthProps is the parameter registry of the synth.
type SynthProps struct {
	*Props
	waveform        *Param
	attack          *Param
	decay           *Param
	sustain         *Param
	release         *Param
	filterCutoff    *Param
	filterResonance *Param
	masterGain      *Param
	thickDetune     *Param
	unisonVoices    *Param
	unisonDetune    *Param
}

func NewSynthProps() *SynthProps {
	props := NewProps()
	params := make(map[string]*Param, len(synthParamSpecs))
	for _, spec := range synthParamSpecs {
		params[spec.Name] = props.MustRegister(spec)
	}
	return &SynthProps{
		Props:           props,
		waveform:        params[ParamWaveform],
		attack:          params[ParamAttack],
		decay:           params[ParamDecay],
		sustain:         params[ParamSustain],
		release:         params[ParamRelease],
		filterCutoff:    params[ParamFilterCutoff],
		filterResonance: params[ParamFilterResonance],
		masterGain:      params[ParamMasterGain],
		thickDetune:     params[ParamThickDetune],
		unisonVoices:    params[ParamUnisonVoices],
		unisonDetune:    params[ParamUnisonDetune],
	}
}

// Parameters reads every field independently. A concurrent writer may be
// observed half way through an update.
func (p *SynthProps) Parameters() ParameterSet {
	return ParameterSet{
		Waveform:        int(p.waveform.Load()),
		Attack:          p.attack.Load(),
		Decay:           p.decay.Load(),
		Sustain:         p.sustain.Load(),
		Release:         p.release.Load(),
		FilterCutoff:    p.filterCutoff.Load(),
		FilterResonance: p.filterResonance.Load(),
		ThickDetune:     p.thickDetune.Load(),
		UnisonVoices:    int(p.unisonVoices.Load()),
		UnisonDetune:    p.unisonDetune.Load(),
		MasterGain:      p.masterGain.Load(),
	}
}
