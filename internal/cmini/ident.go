package cmini

import (
	"strings"

	"github.com/whit3rabbit/cmixer/internal/token"
)

// Identifiers lexes text and returns every identifier occurrence in order.
// Passes use it to read the cumulative output of earlier rewrites, where
// the parse tree no longer matches the text. Text that does not lex yields
// nil.
func Identifiers(text string) []string {
	toks, err := lex(text)
	if err != nil {
		return nil
	}
	var ids []string
	for _, t := range toks {
		if t.Kind == token.Ident {
			ids = append(ids, t.Text)
		}
	}
	return ids
}

// CountIdentifiers returns the number of occurrences of each identifier.
func CountIdentifiers(text string) map[string]int {
	counts := make(map[string]int)
	for _, id := range Identifiers(text) {
		counts[id]++
	}
	return counts
}

// SubstituteIdentifiers rewrites the identifier tokens of text through fn,
// leaving keywords, literals, comments and spacing untouched. When fn
// reports false the identifier is kept. Text that does not lex is returned
// unchanged.
func SubstituteIdentifiers(text string, fn func(string) (string, bool)) string {
	if text == "" {
		return text
	}
	toks, err := lex(text)
	if err != nil {
		return text
	}
	var sb strings.Builder
	sb.Grow(len(text))
	for _, t := range toks {
		if t.Kind == token.Ident {
			if repl, ok := fn(t.Text); ok {
				sb.WriteString(repl)
				continue
			}
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// Directive is a preprocessor line removed before lexing.
type Directive struct {
	Line int
	Text string
}

// ExtractDirectives removes preprocessor lines from src. The remaining text
// keeps one empty line per removed directive so positions stay meaningful.
func ExtractDirectives(src string) ([]Directive, string) {
	var dirs []Directive
	lines := strings.SplitAfter(src, "\n")
	var sb strings.Builder
	sb.Grow(len(src))
	for i, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), "#") {
			dirs = append(dirs, Directive{Line: i + 1, Text: strings.TrimRight(line, "\r\n")})
			if strings.HasSuffix(line, "\n") {
				sb.WriteString("\n")
			}
			continue
		}
		sb.WriteString(line)
	}
	return dirs, sb.String()
}
