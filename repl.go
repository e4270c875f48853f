package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mrdg/supersaw/audio"
	"github.com/mrdg/supersaw/dub"
)

type env struct {
	cfg   config
	synth *audio.Synth
	seq   *audio.Sequencer
	out   io.Writer
}

func newEnv(cfg config, out io.Writer) *env {
	synth := newSynth(cfg)
	seq := audio.NewSequencer(cfg.sampleRate, synth)
	synth.AddTicker(seq)
	return &env{cfg: cfg, synth: synth, seq: seq, out: out}
}

func newSynth(cfg config) *audio.Synth {
	return audio.NewSynth(cfg.sampleRate, cfg.blockSize, cfg.channels,
		audio.WithVoices(cfg.voices), audio.WithLogger(logger))
}

// params is implemented by the synth and by the sequencer's registry.
type params interface {
	Names() []string
	Spec(key string) (audio.ParamSpec, error)
	Set(key string, value float64) error
	Get(key string) (float64, error)
	SetNormalized(key string, value float64) error
	GetNormalized(key string) (float64, error)
}

// props returns the registry that owns the named parameter: the synth for
// tone controls, the sequencer for bpm.
func (e *env) props(name string) (params, error) {
	if _, err := e.synth.Spec(name); err == nil {
		return e.synth, nil
	}
	if _, err := e.seq.Spec(name); err == nil {
		return e.seq.Props, nil
	}
	return nil, fmt.Errorf("%w: %s", audio.ErrUnknownParam, name)
}

func (e *env) setParam(name string, v float64) error {
	props, err := e.props(name)
	if err != nil {
		return err
	}
	return props.Set(name, v)
}

func (e *env) getParam(name string) (float64, error) {
	props, err := e.props(name)
	if err != nil {
		return 0, err
	}
	return props.Get(name)
}

func (e *env) eval(input string) (dub.Node, error) {
	command, err := dub.Parse(input)
	if err != nil {
		return nil, err
	}
	name := string(command.Name)
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if cmd.arity < 0 {
			arity := -cmd.arity
			if len(command.Args) < arity {
				return nil, fmt.Errorf("%s: wrong number of arguments: need at least %v, got %v",
					cmd.name, arity, len(command.Args))
			}
		} else if len(command.Args) != cmd.arity {
			return nil, fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
				cmd.name, cmd.arity, len(command.Args))
		}
		result, err := cmd.run(e, command.Args)
		if err != nil {
			return result, fmt.Errorf("%s error: %w", cmd.name, err)
		}
		return result, nil
	}
	return nil, fmt.Errorf("unknown command: %s", name)
}

func completer(e *env) *readline.PrefixCompleter {
	var paramItems []readline.PrefixCompleterInterface
	for _, name := range e.synth.Names() {
		paramItems = append(paramItems, readline.PcItem(name))
	}
	var items []readline.PrefixCompleterInterface
	for _, cmd := range commands {
		switch cmd.name {
		case "set", "setn", "get":
			items = append(items, readline.PcItem(cmd.name, paramItems...))
		default:
			items = append(items, readline.PcItem(cmd.name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

// repl reads commands until the input ends or ctx is done.
func repl(ctx context.Context, env *env) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		AutoComplete:    completer(env),
		InterruptPrompt: "^C",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	go func() {
		<-ctx.Done()
		rl.Close()
	}()

	for {
		line, err := rl.Readline()
		if ctx.Err() != nil || err == io.EOF {
			return nil
		}
		if errors.Is(err, readline.ErrInterrupt) {
			if line == "" {
				return nil
			}
			continue
		}
		if err != nil {
			fmt.Fprintln(env.out, err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if result, err := env.eval(line); err != nil {
			fmt.Fprintln(env.out, err)
		} else if result != nil {
			fmt.Fprintln(env.out, result)
		}
	}
}
