package audio

import (
	"reflect"
	"testing"
)

func newTestEngine(opts ...EngineOption) *Engine {
	e := NewEngine(opts...)
	e.Prepare(44100, 512, 2)
	return e
}

// boundVoices returns the voices playing channel and note.
func boundVoices(e *Engine, channel, note int) []*Voice {
	var voices []*Voice
	for _, v := range e.voices {
		if v.isPlaying(channel, note) {
			voices = append(voices, v)
		}
	}
	return voices
}

func activeNotes(e *Engine) []int {
	var notes []int
	for _, v := range e.voices {
		if v.IsActive() {
			notes = append(notes, v.Note())
		}
	}
	return notes
}

func TestUnisonOffsets(t *testing.T) {
	tests := []struct {
		n      int
		detune float64
		want   []float64
	}{
		{1, 0.2, []float64{0}},
		{2, 0.5, []float64{-0.5, 0.5}},
		{3, 0.1, []float64{-0.1, 0, 0.1}},
		{4, 0.2, []float64{-0.2, -0.2 / 3, 0.2 / 3, 0.2}},
	}
	for _, test := range tests {
		for i, want := range test.want {
			if got := unisonOffset(i, test.n, test.detune); !almostEqual(want, got, epsilon) {
				t.Errorf("voice %d of %d: want offset %v, got %v", i, test.n, want, got)
			}
		}
	}
}

func TestNoteOnUnison(t *testing.T) {
	e := newTestEngine()
	e.NoteOn(0, 60, 1, 4, 0.2)

	voices := boundVoices(e, 0, 60)
	if want, got := 4, len(voices); want != got {
		t.Fatalf("want %d voices, got %d", want, got)
	}
	want := []float64{-0.2, -0.0667, 0.0667, 0.2}
	for i, v := range voices {
		if !almostEqual(want[i], v.Offset(), 1e-4) {
			t.Errorf("voice %d: want offset %v, got %v", i, want[i], v.Offset())
		}
	}
}

func TestNoteOnClampsUnison(t *testing.T) {
	e := newTestEngine(WithVoices(3))
	e.NoteOn(0, 60, 1, 8, 0.2)
	if want, got := 3, len(boundVoices(e, 0, 60)); want != got {
		t.Errorf("want %d voices, got %d", want, got)
	}

	e = newTestEngine()
	e.NoteOn(0, 60, 1, 0, 0.2)
	if want, got := 1, len(boundVoices(e, 0, 60)); want != got {
		t.Errorf("want %d voices, got %d", want, got)
	}
}

func TestNoteOnClampsUnisonDetune(t *testing.T) {
	tests := []struct {
		detune float64
		want   []float64
	}{
		{2, []float64{-0.5, 0.5}},
		{-1, []float64{0, 0}},
	}
	for _, test := range tests {
		e := newTestEngine()
		e.NoteOn(0, 60, 1, 2, test.detune)
		voices := boundVoices(e, 0, 60)
		if len(voices) != len(test.want) {
			t.Fatalf("detune %v: want %d voices, got %d", test.detune, len(test.want), len(voices))
		}
		for i, v := range voices {
			if want, got := test.want[i], v.Offset(); !almostEqual(want, got, epsilon) {
				t.Errorf("detune %v, voice %d: want offset %v, got %v", test.detune, i, want, got)
			}
		}
	}
}

func TestRetrigger(t *testing.T) {
	for _, unison := range []int{1, 2, 4} {
		e := newTestEngine()
		e.NoteOn(0, 60, 1, unison, 0.1)
		first := boundVoices(e, 0, 60)
		e.NoteOn(0, 60, 0.5, unison, 0.1)

		if want, got := unison, len(boundVoices(e, 0, 60)); want != got {
			t.Errorf("unison %d: want %d bound voices, got %d", unison, want, got)
		}
		if want, got := unison, len(activeNotes(e)); want != got {
			t.Errorf("unison %d: want %d active voices, got %d", unison, want, got)
		}
		for _, v := range first {
			if v.state == voiceReleasing {
				t.Errorf("unison %d: retriggered voice should not be releasing", unison)
			}
		}
	}
}

func TestSameNoteOnOtherChannel(t *testing.T) {
	e := newTestEngine()
	e.NoteOn(0, 60, 1, 1, 0)
	e.NoteOn(1, 60, 1, 1, 0)
	if want, got := []int{60, 60}, activeNotes(e); !reflect.DeepEqual(want, got) {
		t.Errorf("want notes %v, got %v", want, got)
	}
}

func TestNoteOffAllowTailOff(t *testing.T) {
	e := newTestEngine()
	e.NoteOn(0, 60, 1, 2, 0.1)
	out := newBuffer(2, 512)
	e.RenderBlock(out, nil, 0, 512)

	e.NoteOff(0, 60, 0, true)
	for _, v := range boundVoices(e, 0, 60) {
		if want, got := voiceReleasing, v.state; want != got {
			t.Errorf("want state %v, got %v", want, got)
		}
	}
	if want, got := 2, len(activeNotes(e)); want != got {
		t.Fatalf("want %d active voices while releasing, got %d", want, got)
	}

	// default release is 0.4s
	for n := 0; n < 40; n++ {
		e.RenderBlock(out, nil, 0, 512)
	}
	if want, got := 0, len(activeNotes(e)); want != got {
		t.Errorf("want %d active voices after release, got %d", want, got)
	}
}

func TestNoteOffHardStop(t *testing.T) {
	e := newTestEngine()
	e.NoteOn(0, 60, 1, 1, 0)
	e.NoteOn(0, 64, 1, 1, 0)
	e.NoteOff(0, 60, 0, false)
	if want, got := []int{64}, activeNotes(e); !reflect.DeepEqual(want, got) {
		t.Errorf("want notes %v, got %v", want, got)
	}
}

func TestStealOldest(t *testing.T) {
	e := newTestEngine(WithVoices(2))
	e.NoteOn(0, 60, 1, 1, 0)
	e.NoteOn(0, 62, 1, 1, 0)
	e.NoteOn(0, 64, 1, 1, 0)

	if want, got := []int{64, 62}, activeNotes(e); !reflect.DeepEqual(want, got) {
		t.Errorf("want notes %v, got %v", want, got)
	}
	if want, got := uint64(1), e.Stats().Steals; want != got {
		t.Errorf("want %d steals, got %d", want, got)
	}
}

func TestStealDoesNotTakeOwnUnisonVoices(t *testing.T) {
	e := newTestEngine(WithVoices(4))
	e.NoteOn(0, 60, 1, 2, 0.1)
	e.NoteOn(0, 62, 1, 2, 0.1)
	e.NoteOn(0, 64, 1, 4, 0.1)

	if want, got := 4, len(boundVoices(e, 0, 64)); want != got {
		t.Errorf("want %d voices for the new note, got %d", want, got)
	}
	if want, got := uint64(4), e.Stats().Steals; want != got {
		t.Errorf("want %d steals, got %d", want, got)
	}
}

func TestStealQuietest(t *testing.T) {
	e := newTestEngine(WithVoices(2), WithStealPolicy(StealQuietest))
	e.NoteOn(0, 60, 1, 1, 0)
	e.NoteOn(0, 62, 0.1, 1, 0)
	e.RenderBlock(newBuffer(2, 512), nil, 0, 512)

	e.NoteOn(0, 64, 1, 1, 0)
	if want, got := []int{60, 64}, activeNotes(e); !reflect.DeepEqual(want, got) {
		t.Errorf("want notes %v, got %v", want, got)
	}
}

func TestAllNotesOff(t *testing.T) {
	e := newTestEngine()
	for note := 60; note < 64; note++ {
		e.NoteOn(0, note, 1, 1, 0)
	}
	e.AllNotesOff(false)
	if want, got := 0, len(activeNotes(e)); want != got {
		t.Errorf("want %d active voices, got %d", want, got)
	}
}

func TestRenderBeforePrepare(t *testing.T) {
	e := NewEngine()
	out := newBuffer(2, 64)
	for c := range out {
		for n := range out[c] {
			out[c][n] = 1
		}
	}
	e.RenderBlock(out, []NoteEvent{{Kind: NoteOn, Note: 60, Velocity: 1}}, 0, 64)
	for c := range out {
		for n, v := range out[c] {
			if v != 1 {
				t.Fatalf("channel %d sample %d was modified: %v", c, n, v)
			}
		}
	}
	if want, got := 0, len(activeNotes(e)); want != got {
		t.Errorf("want %d active voices, got %d", want, got)
	}
}

func TestRenderClearsRegion(t *testing.T) {
	e := newTestEngine()
	out := newBuffer(2, 128)
	for c := range out {
		for n := range out[c] {
			out[c][n] = 1
		}
	}
	e.RenderBlock(out, nil, 32, 64)
	for c := range out {
		for n, v := range out[c] {
			want := 1.0
			if n >= 32 && n < 96 {
				want = 0
			}
			if v != want {
				t.Fatalf("channel %d sample %d: want %v, got %v", c, n, want, v)
			}
		}
	}
}

func TestRenderAppliesEventsInOrder(t *testing.T) {
	e := newTestEngine()
	events := []NoteEvent{
		{Kind: NoteOn, Note: 60, Velocity: 1},
		{Kind: NoteOn, Note: 64, Velocity: 1},
		{Kind: NoteOff, Note: 60},
		{Kind: NoteOn, Note: 67, Velocity: 1},
	}
	e.RenderBlock(newBuffer(2, 512), events, 0, 512)
	if want, got := []int{67, 64}, activeNotes(e); !reflect.DeepEqual(want, got) {
		t.Errorf("want notes %v, got %v", want, got)
	}
	if want, got := 2, e.Stats().ActiveVoices; want != got {
		t.Errorf("want %d active voices in stats, got %d", want, got)
	}
}

type staticSource ParameterSet

func (s *staticSource) Parameters() ParameterSet { return ParameterSet(*s) }

func TestRenderUsesParameterSource(t *testing.T) {
	params := DefaultParameters()
	params.UnisonVoices = 3
	params.MasterGain = 0
	src := staticSource(params)
	e := newTestEngine(WithParameterSource(&src))

	out := newBuffer(2, 512)
	e.RenderBlock(out, []NoteEvent{{Kind: NoteOn, Note: 60, Velocity: 1}}, 0, 512)
	if want, got := 3, len(boundVoices(e, 0, 60)); want != got {
		t.Errorf("want %d voices, got %d", want, got)
	}
	if peak(out[0]) != 0 || e.Stats().Peak != 0 {
		t.Errorf("expected silence with zero master gain")
	}

	src.MasterGain = 1
	e.RenderBlock(out, nil, 0, 512)
	if peak(out[0]) == 0 {
		t.Errorf("expected signal with full master gain")
	}
	if want, got := peak(out[0]), e.Stats().Peak; want != got {
		t.Errorf("want peak %v, got %v", want, got)
	}
}

func TestRenderInChunks(t *testing.T) {
	e := NewEngine()
	e.Prepare(44100, 64, 1)
	out := newBuffer(1, 300)
	e.RenderBlock(out, []NoteEvent{{Kind: NoteOn, Note: 60, Velocity: 1}}, 0, 300)
	if peak(out[0][256:]) == 0 {
		t.Error("expected the last chunk to be rendered")
	}
	if want, got := 1, len(activeNotes(e)); want != got {
		t.Errorf("want %d active voice, got %d", want, got)
	}
}

func TestHardStopIsIdleOnNextRender(t *testing.T) {
	e := newTestEngine()
	out := newBuffer(2, 512)
	e.RenderBlock(out, []NoteEvent{{Kind: NoteOn, Note: 60, Velocity: 1}}, 0, 512)
	e.RenderBlock(out, []NoteEvent{{Kind: NoteOff, Note: 60}}, 0, 512)
	if peak(out[0]) != 0 {
		t.Error("expected silence after a hard stop")
	}
	if want, got := 0, e.Stats().ActiveVoices; want != got {
		t.Errorf("want %d active voices, got %d", want, got)
	}
}
