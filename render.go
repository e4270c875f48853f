package main

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mrdg/supersaw/audio"
)

const meterWidth = 20

func renderParams(w io.Writer, registries ...params) error {
	var maxNameLen int
	for _, props := range registries {
		for _, name := range props.Names() {
			maxNameLen = max(maxNameLen, len(name))
		}
	}
	for _, props := range registries {
		for _, name := range props.Names() {
			spec, err := props.Spec(name)
			if err != nil {
				return err
			}
			v, err := props.Get(name)
			if err != nil {
				return err
			}
			n, err := props.GetNormalized(name)
			if err != nil {
				return err
			}
			row := fmt.Sprintf("%-*s %s %s %s\n",
				maxNameLen, name,
				colorize(meter(n), colorGreen),
				formatValue(name, v),
				colorize(fmt.Sprintf("[%g %g]", spec.Min, spec.Max), colorBlue),
			)
			if _, err := io.WriteString(w, row); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatValue(name string, v float64) string {
	if name == audio.ParamWaveform {
		return fmt.Sprintf("%-9s", audio.Waveform(v).String())
	}
	return fmt.Sprintf("%-9.4g", v)
}

// meter draws a normalized value as a bar.
func meter(n float64) string {
	filled := int(math.Round(n * meterWidth))
	filled = max(0, min(meterWidth, filled))
	return strings.Repeat("█", filled) + strings.Repeat("·", meterWidth-filled)
}

func renderPresets(w io.Writer, presets []audio.Preset) error {
	for i, p := range presets {
		if _, err := fmt.Fprintf(w, "%s %s\n", colorize(fmt.Sprint(i), colorMagenta), p.Name); err != nil {
			return err
		}
	}
	return nil
}

func renderStatus(w io.Writer, stats audio.SynthStats, bpm float64, loops []string) error {
	peak := "-inf"
	if stats.Peak > 0 {
		peak = fmt.Sprintf("%.1f", 20*math.Log10(stats.Peak))
	}
	if len(loops) == 0 {
		loops = []string{"-"}
	}
	_, err := fmt.Fprintf(w,
		"voices  %d\nsteals  %d\nqueued  %d\ndropped %d\npeak    %s dBFS\nbpm     %g\nloops   %s\n",
		stats.ActiveVoices, stats.Steals, stats.QueuedEvents, stats.DroppedEvents,
		peak, bpm, colorize(strings.Join(loops, " "), colorYellow))
	return err
}

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
)

func colorize(text string, color int) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, text)
}
