// Package cmini lexes and parses the CMini teaching language into a
// token.Stream and a parse tree whose nodes carry token intervals.
package cmini

import (
	"errors"
	"fmt"
	"strings"

	"github.com/whit3rabbit/cmixer/internal/token"
)

// ErrSyntax is wrapped by every lexing and parsing failure.
var ErrSyntax = errors.New("syntax error")

// SyntaxError reports a lexing or parsing failure at a source position.
type SyntaxError struct {
	Pos token.Pos
	Msg string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%v: %s", e.Pos, e.Msg)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

type lexer struct {
	src  string
	off  int
	line int
	col  int
	toks []token.Token
}

// Tokenize splits src into tokens. Whitespace and comments are kept as
// hidden tokens, so the stream's text reproduces src exactly.
func Tokenize(src string) (*token.Stream, error) {
	toks, err := lex(src)
	if err != nil {
		return nil, err
	}
	return token.NewStream(toks), nil
}

func lex(src string) ([]token.Token, error) {
	l := &lexer{src: src, line: 1, col: 1}
	for l.off < len(l.src) {
		if err := l.next(); err != nil {
			return nil, err
		}
	}
	return l.toks, nil
}

func (l *lexer) errorf(pos token.Pos, format string, args ...interface{}) error {
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) peek(n int) byte {
	if l.off+n < len(l.src) {
		return l.src[l.off+n]
	}
	return 0
}

func (l *lexer) emit(kind token.Kind, start int, pos token.Pos) {
	text := l.src[start:l.off]
	l.toks = append(l.toks, token.Token{Kind: kind, Text: text, Source: text, Pos: pos})
}

// advance moves n bytes forward, keeping line and column current.
func (l *lexer) advance(n int) {
	for i := 0; i < n && l.off < len(l.src); i++ {
		if l.src[l.off] == '\n' {
			l.line++
			l.col = 1
		} else {
			l.col++
		}
		l.off++
	}
}

func (l *lexer) next() error {
	start := l.off
	pos := token.Pos{Line: l.line, Column: l.col}
	ch := l.src[l.off]

	switch {
	case isSpace(ch):
		for l.off < len(l.src) && isSpace(l.src[l.off]) {
			l.advance(1)
		}
		l.emit(token.Whitespace, start, pos)
		return nil

	case ch == '/' && l.peek(1) == '/':
		for l.off < len(l.src) && l.src[l.off] != '\n' {
			l.advance(1)
		}
		l.emit(token.Comment, start, pos)
		return nil

	case ch == '/' && l.peek(1) == '*':
		end := strings.Index(l.src[l.off+2:], "*/")
		if end < 0 {
			return l.errorf(pos, "unterminated block comment")
		}
		l.advance(end + 4)
		l.emit(token.Comment, start, pos)
		return nil

	case ch == '#':
		return l.errorf(pos, "preprocessor directive must be extracted before lexing")

	case isLetter(ch):
		for l.off < len(l.src) && (isLetter(l.src[l.off]) || isDigit(l.src[l.off])) {
			l.advance(1)
		}
		kind := token.Ident
		if kw, ok := token.Keywords[l.src[start:l.off]]; ok {
			kind = kw
		}
		l.emit(kind, start, pos)
		return nil

	case isDigit(ch):
		for l.off < len(l.src) && isDigit(l.src[l.off]) {
			l.advance(1)
		}
		if l.off < len(l.src) && isLetter(l.src[l.off]) {
			return l.errorf(pos, "malformed number %q", l.src[start:l.off+1])
		}
		l.emit(token.Int, start, pos)
		return nil

	case ch == '\'':
		if err := l.quoted('\''); err != nil {
			return l.errorf(pos, "%v", err)
		}
		l.emit(token.Char, start, pos)
		return nil

	case ch == '"':
		if err := l.quoted('"'); err != nil {
			return l.errorf(pos, "%v", err)
		}
		l.emit(token.String, start, pos)
		return nil
	}

	if kind, n := l.symbol(); n > 0 {
		l.advance(n)
		l.emit(kind, start, pos)
		return nil
	}
	return l.errorf(pos, "unexpected character %q", ch)
}

// quoted consumes a char or string literal including its delimiters.
func (l *lexer) quoted(delim byte) error {
	l.advance(1)
	for l.off < len(l.src) {
		switch l.src[l.off] {
		case '\\':
			l.advance(2)
		case '\n':
			return errors.New("newline in literal")
		case delim:
			l.advance(1)
			return nil
		default:
			l.advance(1)
		}
	}
	return errors.New("unterminated literal")
}

func (l *lexer) symbol() (token.Kind, int) {
	two := ""
	if l.off+1 < len(l.src) {
		two = l.src[l.off : l.off+2]
	}
	switch two {
	case "==":
		return token.Eq, 2
	case "!=":
		return token.Neq, 2
	case "<=":
		return token.Le, 2
	case ">=":
		return token.Ge, 2
	case "&&":
		return token.AndAnd, 2
	case "||":
		return token.OrOr, 2
	}
	switch l.src[l.off] {
	case '(':
		return token.LParen, 1
	case ')':
		return token.RParen, 1
	case '{':
		return token.LBrace, 1
	case '}':
		return token.RBrace, 1
	case ',':
		return token.Comma, 1
	case ';':
		return token.Semicolon, 1
	case ':':
		return token.Colon, 1
	case '=':
		return token.Assign, 1
	case '+':
		return token.Plus, 1
	case '-':
		return token.Minus, 1
	case '*':
		return token.Star, 1
	case '/':
		return token.Slash, 1
	case '%':
		return token.Percent, 1
	case '!':
		return token.Not, 1
	case '<':
		return token.Lt, 1
	case '>':
		return token.Gt, 1
	}
	return token.Illegal, 0
}

func isSpace(ch byte) bool {
	return ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' || ch == '\f' || ch == '\v'
}

func isLetter(ch byte) bool {
	return ch == '_' || ('a' <= ch && ch <= 'z') || ('A' <= ch && ch <= 'Z')
}

func isDigit(ch byte) bool { return '0' <= ch && ch <= '9' }
