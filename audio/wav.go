package audio

import (
	"fmt"
	"io"
	"math"

	wav "github.com/youpy/go-wav"
)

const wavBitsPerSample = 16

// RenderWAV renders frames of the synth offline and writes them to w as a
// 16 bit PCM wav file with at most two channels.
func RenderWAV(w io.Writer, synth *Synth, frames int) error {
	channels := min(synth.NumChannels(), 2)
	if channels == 0 {
		return fmt.Errorf("render wav: synth has no channels")
	}
	writer := wav.NewWriter(w, uint32(frames), uint16(channels), uint32(synth.SampleRate()), wavBitsPerSample)

	block := make([][]float64, synth.NumChannels())
	for c := range block {
		block[c] = make([]float64, synth.BlockSize())
	}
	out := make([][]float64, len(block))
	samples := make([]wav.Sample, synth.BlockSize())
	for start := 0; start < frames; start += synth.BlockSize() {
		n := min(synth.BlockSize(), frames-start)
		for c := range block {
			out[c] = block[c][:n]
		}
		synth.Render(out)
		for i := 0; i < n; i++ {
			for c := 0; c < channels; c++ {
				samples[i].Values[c] = toPCM16(out[c][i])
			}
		}
		if err := writer.WriteSamples(samples[:n]); err != nil {
			return fmt.Errorf("render wav: %w", err)
		}
	}
	return nil
}

func toPCM16(v float64) int {
	return int(math.Round(clamp(v, -1, 1) * math.MaxInt16))
}
