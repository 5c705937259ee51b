// Package transformer provides the obfuscation and deobfuscation passes for
// CMini programs.
//
// Every pass rewrites a shared token.Stream in place, addressing it through
// the intervals of a parse tree computed once for the pristine input. Tokens
// are never inserted or removed, so intervals stay valid for the whole run,
// but their text drifts from the tree as passes compose. Passes therefore
// decide on tree shape and read current text: cmini.Text for a node's
// rewritten interval, cmini.Identifiers and cmini.SubstituteIdentifiers when
// an earlier pass may have folded several tokens into one.
package transformer

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/token"
)

// Pass is one transformation over a token stream.
type Pass interface {
	// Name identifies the pass in logs.
	Name() string
	// Apply rewrites s in place. tree is the parse of s before any pass ran.
	Apply(s *token.Stream, tree *cmini.Node) error
}

// nopLogger returns l, or a no-op logger when l is nil.
func nopLogger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// functions returns the function declarations of a program.
func functions(tree *cmini.Node) []*cmini.Node {
	return tree.ChildrenOf(cmini.KindFunctionDecl)
}

// text returns the current text of n without surrounding whitespace.
func text(s *token.Stream, n *cmini.Node) string {
	return strings.TrimSpace(cmini.Text(s, n))
}

// funcName returns the current name of a function declaration.
func funcName(s *token.Stream, fn *cmini.Node) string {
	return text(s, cmini.FuncName(fn))
}

// paramNames returns the current names of a function's parameters.
func paramNames(s *token.Stream, fn *cmini.Node) []string {
	var names []string
	for _, p := range cmini.FuncParams(fn) {
		names = append(names, text(s, cmini.DeclName(p)))
	}
	return names
}

// identifierSet returns every identifier in the current text of s.
func identifierSet(s *token.Stream) map[string]bool {
	set := make(map[string]bool)
	for _, id := range cmini.Identifiers(s.String()) {
		set[id] = true
	}
	return set
}

// substitute rewrites identifiers in the current text of every token in
// [start, stop]. Tokens that an earlier pass folded into compound text are
// handled because each token's text is lexed on its own.
func substitute(s *token.Stream, start, stop int, fn func(string) (string, bool)) int {
	changed := 0
	for i := start; i <= stop; i++ {
		old := s.At(i).Text
		if old == "" {
			continue
		}
		if repl := cmini.SubstituteIdentifiers(old, fn); repl != old {
			s.SetText(i, repl)
			changed++
		}
	}
	return changed
}

// renameMap adapts a map to the substitution callback.
func renameMap(m map[string]string) func(string) (string, bool) {
	return func(id string) (string, bool) {
		r, ok := m[id]
		return r, ok
	}
}

// intLiteral parses an integer literal expression, allowing one unary minus.
func intLiteral(s *token.Stream, e *cmini.Node) (int, bool) {
	if e == nil {
		return 0, false
	}
	neg := false
	if op, operand, ok := cmini.UnaryOp(e); ok && op == token.Minus {
		neg = true
		e = operand
	}
	atom, ok := cmini.Atom(e)
	if !ok || atom.Tok != token.Int {
		return 0, false
	}
	v, err := strconv.Atoi(text(s, atom))
	if err != nil {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

// identAtom returns the name of a bare identifier expression.
func identAtom(s *token.Stream, e *cmini.Node) (string, bool) {
	if e == nil {
		return "", false
	}
	atom, ok := cmini.Atom(e)
	if !ok || atom.Tok != token.Ident {
		return "", false
	}
	return text(s, atom), true
}
