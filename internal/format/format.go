// Package format re-lays out CMini source text.
//
// Source puts a line break after '{' and ';' and around '}', collapses runs
// of whitespace and blank lines, and indents four spaces per brace level.
// String and character literals and comments are copied verbatim, so the
// result compiles to the same program.
package format

import (
	"strings"
)

const indent = "    "

type line struct {
	depth int
	text  string
}

type formatter struct {
	src     string
	pos     int
	depth   int
	parens  int
	pending bool
	cur     strings.Builder
	lines   []line
}

// Source formats src. The result ends in exactly one newline unless it is
// empty.
func Source(src string) string {
	f := &formatter{src: src}
	f.run()
	var sb strings.Builder
	for _, l := range f.lines {
		sb.WriteString(strings.Repeat(indent, l.depth))
		sb.WriteString(l.text)
		sb.WriteByte('\n')
	}
	return sb.String()
}

func (f *formatter) run() {
	for f.pos < len(f.src) {
		c := f.src[f.pos]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v':
			f.pending = true
			f.pos++
		case c == '"' || c == '\'':
			f.write(f.literal(c))
		case strings.HasPrefix(f.src[f.pos:], "//"):
			end := strings.IndexByte(f.src[f.pos:], '\n')
			if end < 0 {
				end = len(f.src) - f.pos
			}
			f.write(f.src[f.pos : f.pos+end])
			f.pos += end
			f.flush()
		case strings.HasPrefix(f.src[f.pos:], "/*"):
			end := strings.Index(f.src[f.pos+2:], "*/")
			if end < 0 {
				end = len(f.src) - f.pos - 2
			} else {
				end += 2
			}
			f.write(f.src[f.pos : f.pos+2+end])
			f.pos += 2 + end
		case c == '#' && f.cur.Len() == 0:
			end := strings.IndexByte(f.src[f.pos:], '\n')
			if end < 0 {
				end = len(f.src) - f.pos
			}
			f.write(strings.TrimRight(f.src[f.pos:f.pos+end], " \t\r"))
			f.pos += end
			f.flush()
		case c == '{':
			f.write("{")
			f.pos++
			f.flush()
			f.depth++
		case c == '}':
			f.flush()
			if f.depth > 0 {
				f.depth--
			}
			f.write("}")
			f.pos++
			f.flush()
		case c == ';':
			f.write(";")
			f.pos++
			if f.parens == 0 {
				f.flush()
			}
		default:
			if c == '(' {
				f.parens++
			} else if c == ')' && f.parens > 0 {
				f.parens--
			}
			f.write(string(c))
			f.pos++
		}
	}
	f.flush()
}

// write appends s to the current line, emitting one pending space first.
func (f *formatter) write(s string) {
	if f.pending && f.cur.Len() > 0 {
		f.cur.WriteByte(' ')
	}
	f.pending = false
	f.cur.WriteString(s)
}

func (f *formatter) flush() {
	if text := strings.TrimSpace(f.cur.String()); text != "" {
		f.lines = append(f.lines, line{depth: f.depth, text: text})
	}
	f.cur.Reset()
	f.pending = false
}

// literal consumes a quoted literal starting at f.pos.
func (f *formatter) literal(delim byte) string {
	start := f.pos
	f.pos++
	for f.pos < len(f.src) {
		switch f.src[f.pos] {
		case '\\':
			f.pos += 2
			continue
		case '\n':
			return f.src[start:f.pos]
		case delim:
			f.pos++
			return f.src[start:f.pos]
		}
		f.pos++
	}
	if f.pos > len(f.src) {
		f.pos = len(f.src)
	}
	return f.src[start:f.pos]
}
