package token

import (
	"fmt"
	"strings"
)

// Stream is an ordered, index-addressable token sequence. Its length and
// index assignment are fixed once built: passes edit text, never the
// sequence itself, so intervals computed by the parser stay addressable for
// the whole pipeline.
type Stream struct {
	tokens []Token
}

// NewStream builds a stream from lexed tokens, assigning indices in order.
func NewStream(toks []Token) *Stream {
	s := &Stream{tokens: make([]Token, len(toks))}
	for i, t := range toks {
		t.Index = i
		if t.Source == "" {
			t.Source = t.Text
		}
		s.tokens[i] = t
	}
	return s
}

// Len returns the number of tokens.
func (s *Stream) Len() int { return len(s.tokens) }

// At returns a copy of the token at index i.
func (s *Stream) At(i int) Token {
	s.check(i, i)
	return s.tokens[i]
}

// Tokens returns a copy of the whole sequence.
func (s *Stream) Tokens() []Token {
	out := make([]Token, len(s.tokens))
	copy(out, s.tokens)
	return out
}

// ReplaceRange blanks every token in [start, stop] and then sets the token
// at start to text.
func (s *Stream) ReplaceRange(start, stop int, text string) {
	s.check(start, stop)
	for i := start; i <= stop; i++ {
		s.tokens[i].Text = ""
	}
	s.tokens[start].Text = text
}

// SetText replaces the text of a single token.
func (s *Stream) SetText(i int, text string) {
	s.ReplaceRange(i, i, text)
}

// Append adds text after the current text of token i. Used to inject code
// without inserting tokens.
func (s *Stream) Append(i int, text string) {
	s.check(i, i)
	s.tokens[i].Text += text
}

// Text concatenates the current texts of [start, stop] in index order.
func (s *Stream) Text(start, stop int) string {
	s.check(start, stop)
	var sb strings.Builder
	for i := start; i <= stop; i++ {
		sb.WriteString(s.tokens[i].Text)
	}
	return sb.String()
}

// String returns the current text of the whole stream.
func (s *Stream) String() string {
	if len(s.tokens) == 0 {
		return ""
	}
	return s.Text(0, len(s.tokens)-1)
}

// Blank reports whether every token in [start, stop] has empty text.
func (s *Stream) Blank(start, stop int) bool {
	s.check(start, stop)
	for i := start; i <= stop; i++ {
		if s.tokens[i].Text != "" {
			return false
		}
	}
	return true
}

func (s *Stream) check(start, stop int) {
	if start < 0 || stop >= len(s.tokens) || start > stop {
		panic(fmt.Sprintf("token: interval [%d, %d] outside stream of %d tokens", start, stop, len(s.tokens)))
	}
}
