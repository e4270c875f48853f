package audio

import (
	"math"
	"testing"
)

func newTestVoice() *Voice {
	v := newVoice()
	v.prepare(44100, 512)
	v.updateParams(DefaultParameters())
	return v
}

func newBuffer(channels, frames int) [][]float64 {
	buf := make([][]float64, channels)
	for c := range buf {
		buf[c] = make([]float64, frames)
	}
	return buf
}

func peak(buf []float64) float64 {
	var p float64
	for _, v := range buf {
		p = math.Max(p, math.Abs(v))
	}
	return p
}

func TestVoiceStartNote(t *testing.T) {
	v := newTestVoice()
	v.startNote(1, 69, 0.5, 12, 1)

	if !v.IsActive() {
		t.Fatal("voice should be active after start")
	}
	if want, got := voiceSounding, v.state; want != got {
		t.Errorf("want state %v, got %v", want, got)
	}
	if want, got := 880.0, v.osc.freq; !almostEqual(want, got, epsilon) {
		t.Errorf("want frequency %v, got %v", want, got)
	}
	if want, got := 0.4, v.amplitude; !almostEqual(want, got, epsilon) {
		t.Errorf("want amplitude %v, got %v", want, got)
	}
	if want, got := 1, v.Channel(); want != got {
		t.Errorf("want channel %v, got %v", want, got)
	}
	if want, got := 69, v.Note(); want != got {
		t.Errorf("want note %v, got %v", want, got)
	}
}

func TestVoiceRenderBeforePrepare(t *testing.T) {
	v := newVoice()
	v.updateParams(DefaultParameters())
	v.startNote(0, 60, 1, 0, 1)

	out := newBuffer(2, 64)
	v.renderBlock(out, 0, 64)
	if peak(out[0]) != 0 || peak(out[1]) != 0 {
		t.Error("unprepared voice should not render")
	}
}

func TestVoiceRenderMixesIntoEveryChannel(t *testing.T) {
	v := newTestVoice()
	v.startNote(0, 60, 1, 0, 1)

	out := newBuffer(2, 512)
	for c := range out {
		for n := range out[c] {
			out[c][n] = 1
		}
	}
	v.renderBlock(out, 256, 256)

	for n := 0; n < 256; n++ {
		if out[0][n] != 1 || out[1][n] != 1 {
			t.Fatalf("sample %d before start was modified", n)
		}
	}
	for n := 256; n < 512; n++ {
		if out[0][n] != out[1][n] {
			t.Fatalf("sample %d differs between channels", n)
		}
	}
	if peak(out[0][256:]) == 1 {
		t.Error("expected the voice to add signal")
	}
}

func TestVoiceHardStop(t *testing.T) {
	v := newTestVoice()
	v.startNote(0, 60, 1, 0, 1)
	v.renderBlock(newBuffer(1, 512), 0, 512)

	v.stopNote(false)
	if v.IsActive() {
		t.Fatal("voice should be idle after a hard stop")
	}
	if want, got := noNote, v.Note(); want != got {
		t.Errorf("want note %v, got %v", want, got)
	}
	out := newBuffer(1, 512)
	v.renderBlock(out, 0, 512)
	if peak(out[0]) != 0 {
		t.Error("idle voice should not render")
	}
}

func TestVoiceReleaseEndsIdle(t *testing.T) {
	v := newTestVoice()
	p := DefaultParameters()
	p.Attack = 0.001
	p.Release = 0.01
	v.updateParams(p)
	v.startNote(0, 60, 1, 0, 1)
	v.renderBlock(newBuffer(1, 512), 0, 512)

	v.stopNote(true)
	if want, got := voiceReleasing, v.state; want != got {
		t.Fatalf("want state %v, got %v", want, got)
	}
	// 441 samples of release end inside the block
	v.renderBlock(newBuffer(1, 512), 0, 512)
	if v.IsActive() {
		t.Error("voice should be idle once the release finished")
	}
}

func TestVoiceClearsScratchBeforeEarlyExit(t *testing.T) {
	const n = 512
	v := newTestVoice()
	p := DefaultParameters()
	p.Attack = 0.001
	p.Release = 0.005
	v.updateParams(p)
	v.startNote(0, 60, 1, 0, 1)
	v.renderBlock(newBuffer(1, n), 0, n)
	v.stopNote(true)

	// expected block: envelope and oscillator up to the end of the release,
	// silence after it, then the filter
	ref := *v
	want := make([]float64, n)
	end := -1
	for i := range want {
		level := ref.env.NextSample()
		want[i] = level * ref.osc.GenerateSample() * ref.amplitude
		if !ref.env.IsActive() {
			end = i
			break
		}
	}
	if end < 0 || end >= n-1 {
		t.Fatalf("release should end inside the block, ended at %d", end)
	}
	ref.filter.Process(want)

	for i := range v.scratch {
		v.scratch[i] = 1000
	}
	out := newBuffer(1, n)
	v.renderBlock(out, 0, n)

	for i := range want {
		if !almostEqual(want[i], out[0][i], 1e-12) {
			t.Fatalf("sample %d (release ends at %d): want %v, got %v", i, end, want[i], out[0][i])
		}
	}
	if v.IsActive() {
		t.Error("voice should be idle once the release finished")
	}
}
