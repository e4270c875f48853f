package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/mrdg/supersaw/audio"
	"github.com/mrdg/supersaw/dub"
)

const (
	defaultVelocity  = 0.8
	maxRenderSeconds = 600
)

type command struct {
	name  string
	run   func(*env, []dub.Node) (dub.Node, error)
	arity int // -n means len(args) must be >= n
}

var commands = []command{
	{"set", setCommand, 2},
	{"setn", setNormalizedCommand, 2},
	{"get", getCommand, 1},
	{"params", paramsCommand, 0},
	{"preset", presetCommand, 1},
	{"presets", presetsCommand, 0},
	{"note", noteCommand, -1},
	{"off", offCommand, 1},
	{"panic", panicCommand, 0},
	{"loop", loopCommand, 3},
	{"unloop", unloopCommand, 1},
	{"bpm", bpmCommand, 1},
	{"save", saveCommand, 1},
	{"load", loadCommand, 1},
	{"render", renderCommand, 2},
	{"status", statusCommand, 0},
	{"inputs", inputsCommand, 0},
}

func setCommand(env *env, args []dub.Node) (dub.Node, error) {
	var name string
	if err := readArgs(args[:1], &name); err != nil {
		return nil, err
	}
	value, err := paramValue(name, args[1])
	if err != nil {
		return nil, err
	}
	return nil, env.setParam(name, value)
}

// paramValue reads a parameter value. The waveform can also be given by name.
func paramValue(name string, arg dub.Node) (float64, error) {
	var s string
	switch v := arg.(type) {
	case dub.Number:
		return float64(v), nil
	case dub.Identifier:
		s = string(v)
	case dub.String:
		s = string(v)
	default:
		return 0, fmt.Errorf("argument error: expected a number")
	}
	if name != audio.ParamWaveform {
		return 0, fmt.Errorf("argument error: expected a number")
	}
	w, ok := audio.ParseWaveform(s)
	if !ok {
		return 0, fmt.Errorf("unknown waveform: %s", s)
	}
	return float64(w), nil
}

func setNormalizedCommand(env *env, args []dub.Node) (dub.Node, error) {
	var name string
	var value float64
	if err := readArgs(args, &name, &value); err != nil {
		return nil, err
	}
	props, err := env.props(name)
	if err != nil {
		return nil, err
	}
	return nil, props.SetNormalized(name, value)
}

func getCommand(env *env, args []dub.Node) (dub.Node, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return nil, err
	}
	v, err := env.getParam(name)
	if err != nil {
		return nil, err
	}
	return dub.Number(v), nil
}

func paramsCommand(env *env, args []dub.Node) (dub.Node, error) {
	return nil, renderParams(env.out, env.synth, env.seq.Props)
}

func presetCommand(env *env, args []dub.Node) (dub.Node, error) {
	var name string
	switch v := args[0].(type) {
	case dub.Number:
		name = strconv.Itoa(int(v))
	case dub.Identifier:
		name = string(v)
	case dub.String:
		name = string(v)
	default:
		return nil, fmt.Errorf("argument error: expected a preset name or index")
	}
	p, err := audio.PresetByName(name)
	if err != nil {
		return nil, err
	}
	if err := env.synth.LoadPreset(p.Name); err != nil {
		return nil, err
	}
	return dub.String(p.Name), nil
}

func presetsCommand(env *env, args []dub.Node) (dub.Node, error) {
	return nil, renderPresets(env.out, audio.Presets())
}

func noteCommand(env *env, args []dub.Node) (dub.Node, error) {
	if len(args) > 2 {
		return nil, fmt.Errorf("wrong number of arguments: want at most 2, got %d", len(args))
	}
	pitch, err := notePitch(args[0])
	if err != nil {
		return nil, err
	}
	velocity := defaultVelocity
	if len(args) == 2 {
		if err := readArgs(args[1:], &velocity); err != nil {
			return nil, err
		}
		if velocity <= 0 || velocity > 1 {
			return nil, fmt.Errorf("velocity out of range 0-1: %v", velocity)
		}
	}
	env.synth.NoteOn(0, pitch, velocity)
	return nil, nil
}

func offCommand(env *env, args []dub.Node) (dub.Node, error) {
	pitch, err := notePitch(args[0])
	if err != nil {
		return nil, err
	}
	env.synth.NoteOff(0, pitch, 0, true)
	return nil, nil
}

func panicCommand(env *env, args []dub.Node) (dub.Node, error) {
	env.synth.AllNotesOff(false)
	return nil, nil
}

func notePitch(arg dub.Node) (int, error) {
	switch v := arg.(type) {
	case dub.Note:
		return int(v), nil
	case dub.Number:
		if v < 0 || v > 127 || v != dub.Number(int(v)) {
			return 0, fmt.Errorf("not a midi note: %v", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("argument error: expected a note")
	}
}

func loopCommand(env *env, args []dub.Node) (dub.Node, error) {
	var name string
	var length float64
	var pattern []dub.Node
	if err := readArgs(args, &name, &length, &pattern); err != nil {
		return nil, err
	}
	if length <= 0 {
		return nil, fmt.Errorf("loop length must be positive: %v", length)
	}
	clip := audio.NewClip(length)
	if err := evalPattern(pattern, clip, length, new(float64)); err != nil {
		return nil, err
	}
	if old := env.seq.SetClip(name, clip); old != nil {
		releaseClip(env.synth, old)
	}
	return nil, nil
}

func unloopCommand(env *env, args []dub.Node) (dub.Node, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return nil, err
	}
	clip := env.seq.RemoveClip(name)
	if clip == nil {
		return nil, fmt.Errorf("unknown loop: %s", name)
	}
	releaseClip(env.synth, clip)
	return nil, nil
}

// releaseClip releases every pitch of a clip that is no longer scheduled so
// notes that were cut off half way do not hang.
func releaseClip(synth *audio.Synth, clip *audio.Clip) {
	for _, pitch := range clip.Pitches() {
		synth.NoteOff(clip.Channel, pitch, 0, true)
	}
}

// evalPattern divides divLength evenly over the items of pattern. Nested
// arrays subdivide their slot, tuples play their notes together and _ is a
// rest.
func evalPattern(pattern []dub.Node, clip *audio.Clip, divLength float64, pos *float64) error {
	if len(pattern) == 0 {
		return nil
	}
	noteLength := divLength / float64(len(pattern))
	for _, item := range pattern {
		switch v := item.(type) {
		case dub.Note, dub.Number:
			pitch, err := notePitch(v)
			if err != nil {
				return err
			}
			clip.AddNote(*pos, pitch, noteLength, defaultVelocity)
			*pos += noteLength
		case dub.Tuple:
			for _, item := range v {
				pitch, err := notePitch(item)
				if err != nil {
					return fmt.Errorf("invalid %v in chord %v", item, v)
				}
				clip.AddNote(*pos, pitch, noteLength, defaultVelocity)
			}
			*pos += noteLength
		case dub.Array:
			if err := evalPattern(v, clip, noteLength, pos); err != nil {
				return err
			}
		case dub.Identifier:
			if v != "_" {
				return fmt.Errorf("invalid %v in pattern %v", v, dub.Array(pattern))
			}
			*pos += noteLength
		default:
			return fmt.Errorf("invalid %v in pattern %v", v, dub.Array(pattern))
		}
	}
	return nil
}

func bpmCommand(env *env, args []dub.Node) (dub.Node, error) {
	var bpm float64
	if err := readArgs(args, &bpm); err != nil {
		return nil, err
	}
	return nil, env.seq.Set(audio.ParamBPM, bpm)
}

type savedState struct {
	Params []audio.StateEntry `json:"params"`
}

func saveCommand(env *env, args []dub.Node) (dub.Node, error) {
	var file string
	if err := readArgs(args, &file); err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(savedState{Params: env.synth.State()}, "", "  ")
	if err != nil {
		return nil, err
	}
	return nil, os.WriteFile(file, append(data, '\n'), 0o644)
}

func loadCommand(env *env, args []dub.Node) (dub.Node, error) {
	var file string
	if err := readArgs(args, &file); err != nil {
		return nil, err
	}
	return nil, env.loadState(file)
}

// loadState stages the parameters saved in file. A malformed file leaves the
// parameters unchanged.
func (e *env) loadState(file string) error {
	data, err := os.ReadFile(file)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var state savedState
	if err := dec.Decode(&state); err != nil {
		return fmt.Errorf("%w: %s: %v", audio.ErrMalformedState, file, err)
	}
	if state.Params == nil {
		return fmt.Errorf("%w: %s: no params", audio.ErrMalformedState, file)
	}
	return e.synth.ApplyState(state.Params)
}

// renderCommand bounces the current patch and loops to a wav file using a
// separate synth, so the live output is not interrupted.
func renderCommand(env *env, args []dub.Node) (dub.Node, error) {
	var file string
	var seconds float64
	if err := readArgs(args, &file, &seconds); err != nil {
		return nil, err
	}
	if seconds <= 0 || seconds > maxRenderSeconds {
		return nil, fmt.Errorf("duration out of range 0-%d seconds: %v", maxRenderSeconds, seconds)
	}

	synth := newSynth(env.cfg)
	if err := synth.ApplyState(env.synth.State()); err != nil {
		return nil, err
	}
	seq := audio.NewSequencer(env.cfg.sampleRate, synth)
	if err := seq.SetState(env.seq.State()); err != nil {
		return nil, err
	}
	for _, name := range env.seq.ClipNames() {
		if clip := env.seq.Clip(name); clip != nil {
			seq.SetClip(name, clip)
		}
	}
	synth.AddTicker(seq)

	f, err := os.Create(file)
	if err != nil {
		return nil, err
	}
	frames := int(seconds * env.cfg.sampleRate)
	err = audio.RenderWAV(f, synth, frames)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("rendered", "file", file, "frames", frames)
	return dub.String(file), nil
}

func statusCommand(env *env, args []dub.Node) (dub.Node, error) {
	bpm, err := env.seq.Get(audio.ParamBPM)
	if err != nil {
		return nil, err
	}
	return nil, renderStatus(env.out, env.synth.Stats(), bpm, env.seq.ClipNames())
}

func inputsCommand(env *env, args []dub.Node) (dub.Node, error) {
	ins, err := audio.MIDIInputs()
	if err != nil {
		return nil, err
	}
	if len(ins) == 0 {
		return nil, errors.New("no midi inputs")
	}
	for i, name := range ins {
		fmt.Fprintf(env.out, "%d %s\n", i, name)
	}
	return nil, nil
}

func readArgs(args []dub.Node, slots ...interface{}) error {
	if len(args) != len(slots) {
		return errors.New("not enough arguments")
	}
	for n, arg := range args {
		dest := slots[n]
		switch p := dest.(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			default:
				return fmt.Errorf("argument error: expected a string or identifier")
			}
		case *float64:
			n, ok := arg.(dub.Number)
			if !ok {
				return fmt.Errorf("argument error: expected a number")
			}
			*p = float64(n)
		case *int:
			n, ok := arg.(dub.Number)
			if !ok {
				return fmt.Errorf("argument error: expected a number")
			}
			*p = int(n)
		case *[]dub.Node:
			arr, ok := arg.(dub.Array)
			if !ok {
				return fmt.Errorf("argument error: expected an array")
			}
			*p = arr
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}
