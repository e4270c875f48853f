package dub

import (
	"fmt"
	"strconv"
	"strings"
)

type Node interface {
	isNode()
	String() string
}

func (Identifier) isNode() {}
func (Number) isNode()     {}
func (String) isNode()     {}
func (Note) isNode()       {}
func (Array) isNode()      {}
func (Tuple) isNode()      {}

type Command struct {
	Name Identifier
	Args []Node
}

type Identifier string
type Number float64
type String string

// Note is a midi note number written as a pitch name.
type Note int
type Array []Node
type Tuple []Node

func (i Identifier) String() string { return string(i) }
func (n Number) String() string     { return strconv.FormatFloat(float64(n), 'g', -1, 64) }
func (s String) String() string     { return strconv.Quote(string(s)) }
func (n Note) String() string       { return NoteName(int(n)) }
func (a Array) String() string      { return "[" + join(a) + "]" }
func (t Tuple) String() string      { return "(" + join(t) + ")" }

func join(nodes []Node) string {
	s := make([]string, len(nodes))
	for i, n := range nodes {
		s[i] = n.String()
	}
	return strings.Join(s, " ")
}

var noteNames = [...]string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}

// NoteName returns the name of a midi note number, with 60 as c4.
func NoteName(note int) string {
	octave := note/12 - 1
	pc := note % 12
	if pc < 0 {
		pc += 12
		octave--
	}
	return noteNames[pc] + strconv.Itoa(octave)
}

func Parse(input string) (Command, error) {
	tokens, err := lex(input)
	if err != nil {
		return Command{}, err
	}
	p := parser{tokens: tokens}
	return p.parse()
}

type parser struct {
	pos    int
	tokens []token
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) peek() token {
	t := p.next()
	p.pos--
	return t
}

func (p *parser) parse() (Command, error) {
	var cmd Command
	token := p.next()
	if token.typ != typeIdentifier {
		return cmd, unexpected(token)
	}
	cmd.Name = Identifier(token.text)
	for p.peek().typ != typeEOF {
		arg, err := p.node(p.next())
		if err != nil {
			return cmd, err
		}
		cmd.Args = append(cmd.Args, arg)
	}
	return cmd, nil
}

func (p *parser) node(token token) (Node, error) {
	switch token.typ {
	case typeIdentifier:
		return Identifier(token.text), nil
	case typeString:
		return String(token.text[1 : len(token.text)-1]), nil
	case typeFloat, typeInt:
		f, err := strconv.ParseFloat(token.text, 64)
		if err != nil {
			return nil, err
		}
		return Number(f), nil
	case typeNote:
		n, _ := noteNumber(token.text)
		if n < 0 || n > 127 {
			return nil, fmt.Errorf("note %s out of range at position %d", token.text, token.pos)
		}
		return Note(n), nil
	case typeLeftBracket:
		nodes, err := p.list(typeRightBracket)
		return Array(nodes), err
	case typeLeftParen:
		nodes, err := p.list(typeRightParen)
		return Tuple(nodes), err
	default:
		return nil, unexpected(token)
	}
}

// list parses nodes up to the closing token. Commas between items are
// optional.
func (p *parser) list(end tokenType) ([]Node, error) {
	nodes := []Node{}
	for {
		token := p.next()
		switch token.typ {
		case end:
			return nodes, nil
		case typeComma:
			continue
		case typeEOF:
			return nil, fmt.Errorf("missing %v at position %d", end, token.pos)
		}
		n, err := p.node(token)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
}

func unexpected(t token) error {
	if t.typ == typeEOF {
		return fmt.Errorf("unexpected end of input")
	}
	return fmt.Errorf("unexpected token %q at position %d", t.text, t.pos)
}
