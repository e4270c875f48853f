package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/mrdg/supersaw/audio"
	"golang.org/x/sync/errgroup"
)

var logger = slog.Default()

func initLogger(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	h := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	})
	logger = slog.New(h)
	slog.SetDefault(logger)
}

type config struct {
	sampleRate float64
	blockSize  int
	voices     int
	channels   int
	backend    string
	midiPort   string
	preset     string
	stateFile  string
	runFile    string
}

func main() {
	var (
		cfg   config
		debug bool
	)
	flag.Float64Var(&cfg.sampleRate, "rate", 44100, "sample rate in Hz")
	flag.IntVar(&cfg.blockSize, "block", 512, "block size in frames")
	flag.IntVar(&cfg.voices, "voices", audio.DefaultVoices, "number of voices")
	flag.IntVar(&cfg.channels, "channels", 2, "number of output channels")
	flag.StringVar(&cfg.backend, "backend", "portaudio", "audio output: portaudio, oto or none")
	flag.StringVar(&cfg.midiPort, "midi", "", "midi input name, empty for the first input or off")
	flag.StringVar(&cfg.preset, "preset", "", "preset to load at startup")
	flag.StringVar(&cfg.stateFile, "state", "", "state file to load at startup")
	flag.StringVar(&cfg.runFile, "run", "", "file with commands to run before the prompt")
	flag.BoolVar(&debug, "debug", false, "enable debug logging")
	flag.Parse()

	initLogger(debug)

	if err := run(cfg); err != nil {
		logger.Error("exit", "err", err)
		os.Exit(1)
	}
}

type output interface {
	Start() error
	Stop() error
}

func run(cfg config) error {
	if cfg.sampleRate <= 0 || cfg.blockSize <= 0 || cfg.channels <= 0 {
		return fmt.Errorf("invalid audio settings: rate %v, block %d, channels %d",
			cfg.sampleRate, cfg.blockSize, cfg.channels)
	}
	env := newEnv(cfg, os.Stdout)

	if cfg.preset != "" {
		if err := env.synth.LoadPreset(cfg.preset); err != nil {
			return err
		}
	}
	if cfg.stateFile != "" {
		if err := env.loadState(cfg.stateFile); err != nil {
			return err
		}
	}

	out, err := openOutput(cfg.backend, env.synth)
	if err != nil {
		return err
	}
	if out != nil {
		if err := out.Start(); err != nil {
			return fmt.Errorf("start %s output: %w", cfg.backend, err)
		}
		defer func() {
			if err := out.Stop(); err != nil {
				logger.Warn("stop output", "backend", cfg.backend, "err", err)
			}
		}()
		logger.Info("audio started", "backend", cfg.backend, "rate", cfg.sampleRate, "block", cfg.blockSize)
	}

	if cfg.runFile != "" {
		if err := runFile(env, cfg.runFile); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt, syscall.SIGTERM)
	defer func() {
		signal.Stop(signalCh)
		cancel()
	}()
	go func() {
		select {
		case sig := <-signalCh:
			logger.Info("caught signal, shutting down", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.midiPort != "off" {
		g.Go(func() error {
			if err := audio.ListenMIDI(gctx, cfg.midiPort, env.synth, logger); err != nil {
				logger.Warn("midi input disabled", "err", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		defer cancel()
		return repl(gctx, env)
	})
	err = g.Wait()
	env.synth.AllNotesOff(false)
	return err
}

func openOutput(backend string, synth *audio.Synth) (output, error) {
	switch backend {
	case "portaudio":
		sink, err := audio.NewSink(synth.SampleRate(), synth.BlockSize(), synth.NumChannels())
		if err != nil {
			return nil, err
		}
		sink.AddSources(synth)
		return sink, nil
	case "oto":
		out, err := audio.NewOtoOutput(synth)
		if err != nil {
			return nil, err
		}
		return out, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown backend: %s", backend)
	}
}

// runFile evaluates every line of a command file. Empty lines and lines
// starting with # are skipped.
func runFile(env *env, name string) error {
	f, err := os.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	var line int
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		if _, err := env.eval(text); err != nil {
			return fmt.Errorf("%s:%d: %w", name, line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	return nil
}
