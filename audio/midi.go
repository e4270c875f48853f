package audio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const ccAllNotesOff = 123

// NoteTarget receives the note events of a MIDI input. Synth implements it.
type NoteTarget interface {
	NoteOn(channel, note int, velocity float64)
	NoteOff(channel, note int, velocity float64, allowTailOff bool)
	AllNotesOff(allowTailOff bool)
}

// handleMIDI forwards msg to target and reports whether it was used.
func handleMIDI(msg midi.Message, target NoteTarget) bool {
	var ch, key, vel uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		target.NoteOn(int(ch), int(key), float64(vel)/127)
	case msg.GetNoteEnd(&ch, &key):
		target.NoteOff(int(ch), int(key), 0, true)
	case msg.GetControlChange(&ch, &key, &vel) && key == ccAllNotesOff:
		target.AllNotesOff(true)
	default:
		return false
	}
	return true
}

// MIDIInputs lists the names of the available MIDI inputs.
func MIDIInputs() ([]string, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("open midi driver: %w", err)
	}
	defer drv.Close()
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("list midi inputs: %w", err)
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return names, nil
}

func findInput(ins []drivers.In, port string) (drivers.In, error) {
	for _, in := range ins {
		if port == "" || strings.Contains(strings.ToLower(in.String()), strings.ToLower(port)) {
			return in, nil
		}
	}
	if port == "" {
		return nil, fmt.Errorf("no midi inputs available")
	}
	return nil, fmt.Errorf("midi input %q not found", port)
}

// ListenMIDI sends the notes played on the first input whose name contains
// port, or on the first input if port is empty, to target. It blocks until
// ctx is done.
func ListenMIDI(ctx context.Context, port string, target NoteTarget, logger *slog.Logger) error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("open midi driver: %w", err)
	}
	defer drv.Close()

	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("list midi inputs: %w", err)
	}
	in, err := findInput(ins, port)
	if err != nil {
		return err
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("open midi input %s: %w", in, err)
	}
	defer in.Close()

	stop, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		if !handleMIDI(msg, target) {
			logger.Debug("unhandled midi message", "msg", msg.String())
		}
	}, midi.HandleError(func(listenErr error) {
		logger.Warn("midi listener error", "device", in.String(), "err", listenErr)
		target.AllNotesOff(true)
	}))
	if err != nil {
		return fmt.Errorf("listen to midi input %s: %w", in, err)
	}
	logger.Info("midi input connected", "device", in.String())

	<-ctx.Done()
	stop()
	target.AllNotesOff(true)
	logger.Info("midi input closed", "device", in.String())
	return nil
}
