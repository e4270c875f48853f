package dub

import "testing"

func TestLexer(t *testing.T) {
	type test struct {
		input  string
		expect []token
	}
	tests := []test{
		{
			input: "set filterCutoff 2",
			expect: []token{
				{typ: typeIdentifier, text: "set"},
				{typ: typeIdentifier, text: "filterCutoff"},
				{typ: typeInt, text: "2"},
				{typ: typeEOF},
			},
		},
		{
			input: "loop bass 4 [c2 _, (c3 eb3)]",
			expect: []token{
				{typ: typeIdentifier, text: "loop"},
				{typ: typeIdentifier, text: "bass"},
				{typ: typeInt, text: "4"},
				{typ: typeLeftBracket, text: "["},
				{typ: typeNote, text: "c2"},
				{typ: typeIdentifier, text: "_"},
				{typ: typeComma, text: ","},
				{typ: typeLeftParen, text: "("},
				{typ: typeNote, text: "c3"},
				{typ: typeNote, text: "eb3"},
				{typ: typeRightParen, text: ")"},
				{typ: typeRightBracket, text: "]"},
				{typ: typeEOF},
			},
		},
		{
			input: "1.0",
			expect: []token{
				{typ: typeFloat, text: "1.0"},
				{typ: typeEOF},
			},
		},
		{
			input: "-1.",
			expect: []token{
				{typ: typeFloat, text: "-1."},
				{typ: typeEOF},
			},
		},
		{
			input: "-.1",
			expect: []token{
				{typ: typeFloat, text: "-.1"},
				{typ: typeEOF},
			},
		},
		{
			input: `preset "Saw Lead" 1`,
			expect: []token{
				{typ: typeIdentifier, text: "preset"},
				{typ: typeString, text: `"Saw Lead"`},
				{typ: typeInt, text: "1"},
				{typ: typeEOF},
			},
		},
		{
			input: "note f#3\t0.5",
			expect: []token{
				{typ: typeIdentifier, text: "note"},
				{typ: typeNote, text: "f#3"},
				{typ: typeFloat, text: "0.5"},
				{typ: typeEOF},
			},
		},
		{
			input: "save states/pad.json",
			expect: []token{
				{typ: typeIdentifier, text: "save"},
				{typ: typeIdentifier, text: "states/pad.json"},
				{typ: typeEOF},
			},
		},
		{
			input: "[1,2]",
			expect: []token{
				{typ: typeLeftBracket, text: "["},
				{typ: typeInt, text: "1"},
				{typ: typeComma, text: ","},
				{typ: typeInt, text: "2"},
				{typ: typeRightBracket, text: "]"},
				{typ: typeEOF},
			},
		},
	}
	for _, test := range tests {
		t.Log(test.input)
		tokens, err := lex(test.input)
		if err != nil {
			t.Errorf("unexpected lex error: %v", err)
			continue
		}
		if len(tokens) != len(test.expect) {
			t.Fatalf("token mismatch: \nwant: %+v, \ngot:  %+v", test.expect, tokens)
		}
		for i, got := range tokens {
			want := test.expect[i]
			if want.typ != got.typ {
				t.Errorf("wrong type: want %v, got %v", want, got)
			}
			if want.text != got.text {
				t.Errorf("wrong text: want %v, got %v", want, got)
			}
		}
	}
}

func TestLexerErrors(t *testing.T) {
	for _, input := range []string{
		"a -",
		"a .-",
		"set 1x",
		`save "unterminated`,
		"set a=1",
	} {
		_, err := lex(input)
		if err == nil {
			t.Errorf("expected error for input: %q", input)
		}
	}
}

func TestNoteNumber(t *testing.T) {
	tests := []struct {
		name string
		want int
		ok   bool
	}{
		{"c4", 60, true},
		{"C4", 60, true},
		{"a4", 69, true},
		{"f#3", 54, true},
		{"bb2", 46, true},
		{"b2", 47, true},
		{"c-1", 0, true},
		{"g9", 127, true},
		{"c", 0, false},
		{"bass", 0, false},
		{"decay", 0, false},
		{"h4", 0, false},
		{"c123", 0, false},
	}
	for _, test := range tests {
		got, ok := noteNumber(test.name)
		if ok != test.ok || got != test.want {
			t.Errorf("%s: want %v (%v), got %v (%v)", test.name, test.want, test.ok, got, ok)
		}
	}
}
