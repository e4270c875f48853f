package audio

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrUnknownPreset = errors.New("unknown preset")

// Preset is a complete set of tone controls in raw units.
type Preset struct {
	Name   string
	Params ParameterSet
}

var presets = []Preset{
	{"Init", ParameterSet{
		Waveform: int(WaveSine), Attack: 0.05, Decay: 0.1, Sustain: 0.8, Release: 0.4,
		FilterCutoff: 5000, FilterResonance: 0.7, MasterGain: 0.7,
		ThickDetune: 0.3, UnisonVoices: 1, UnisonDetune: 0.1,
	}},
	{"SuperSaw Pad", ParameterSet{
		Waveform: int(WaveThickSaw), Attack: 0.3, Decay: 0.2, Sustain: 0.85, Release: 1.5,
		FilterCutoff: 7000, FilterResonance: 0.4, MasterGain: 0.65,
		ThickDetune: 0.6, UnisonVoices: 4, UnisonDetune: 0.12,
	}},
	{"Saw Lead", ParameterSet{
		Waveform: int(WaveSaw), Attack: 0.005, Decay: 0.1, Sustain: 0.7, Release: 0.15,
		FilterCutoff: 6000, FilterResonance: 1.2, MasterGain: 0.7,
		ThickDetune: 0.3, UnisonVoices: 1, UnisonDetune: 0,
	}},
	{"Bass Pluck", ParameterSet{
		Waveform: int(WaveSquare), Attack: 0.001, Decay: 0.4, Sustain: 0, Release: 0.2,
		FilterCutoff: 800, FilterResonance: 2, MasterGain: 0.75,
		ThickDetune: 0.3, UnisonVoices: 1, UnisonDetune: 0,
	}},
	{"Ambient Drift", ParameterSet{
		Waveform: int(WaveSine), Attack: 2, Decay: 0.3, Sustain: 0.7, Release: 3,
		FilterCutoff: 2500, FilterResonance: 0.5, MasterGain: 0.6,
		ThickDetune: 0.3, UnisonVoices: 2, UnisonDetune: 0.25,
	}},
}

// Presets returns the factory presets in order.
func Presets() []Preset {
	list := make([]Preset, len(presets))
	copy(list, presets)
	return list
}

// PresetByName finds a preset by case insensitive name or by index.
func PresetByName(name string) (Preset, error) {
	for _, p := range presets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	if i, err := strconv.Atoi(name); err == nil && i >= 0 && i < len(presets) {
		return presets[i], nil
	}
	return Preset{}, fmt.Errorf("%w: %s", ErrUnknownPreset, name)
}

// State converts the preset into a state list for Props.SetState.
func (p Preset) State() []StateEntry {
	return p.Params.State()
}

// State lists the parameter set in registration order.
func (p ParameterSet) State() []StateEntry {
	return []StateEntry{
		{ParamWaveform, float64(p.Waveform)},
		{ParamAttack, p.Attack},
		{ParamDecay, p.Decay},
		{ParamSustain, p.Sustain},
		{ParamRelease, p.Release},
		{ParamFilterCutoff, p.FilterCutoff},
		{ParamFilterResonance, p.FilterResonance},
		{ParamMasterGain, p.MasterGain},
		{ParamThickDetune, p.ThickDetune},
		{ParamUnisonVoices, float64(p.UnisonVoices)},
		{ParamUnisonDetune, p.UnisonDetune},
	}
}
