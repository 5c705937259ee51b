package cmini

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/cmixer/internal/token"
)

func mustParse(t *testing.T, src string) (*token.Stream, *Node) {
	t.Helper()
	s, err := Tokenize(src)
	require.NoError(t, err)
	tree, err := Parse(s)
	require.NoError(t, err)
	return s, tree
}

func TestTokenizeRoundTrip(t *testing.T) {
	src := "int main() {\n  // greet\n  printf(\"a;b\\n\"); /* x */ char c = 'x';\n  return 0;\n}\n"
	s, err := Tokenize(src)
	require.NoError(t, err)
	assert.Equal(t, src, s.String())

	var kinds []token.Kind
	for _, tok := range s.Tokens() {
		if !tok.Kind.IsHidden() {
			kinds = append(kinds, tok.Kind)
		}
	}
	want := []token.Kind{
		token.KwInt, token.Ident, token.LParen, token.RParen, token.LBrace,
		token.Ident, token.LParen, token.String, token.RParen, token.Semicolon,
		token.KwChar, token.Ident, token.Assign, token.Char, token.Semicolon,
		token.KwReturn, token.Int, token.Semicolon,
		token.RBrace,
	}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("kinds mismatch (-want +got):\n%s", diff)
	}
}

func TestTokenizeErrors(t *testing.T) {
	for _, src := range []string{
		"int x = 1 @ 2;",
		"/* open",
		"char c = 'a",
		"#include <stdio.h>",
		"int 9x;",
	} {
		_, err := Tokenize(src)
		require.Error(t, err, src)
		assert.True(t, errors.Is(err, ErrSyntax), src)
	}
}

func TestParseStructure(t *testing.T) {
	s, tree := mustParse(t, "int add(int a, int b) { return a + b; }\nint main() { int x = add(1, 2); if (x > 2) { x = x - 1; } else x = 0; return x; }")

	fns := tree.ChildrenOf(KindFunctionDecl)
	require.Len(t, fns, 2)

	add := fns[0]
	assert.Equal(t, "add", Text(s, FuncName(add)))
	params := FuncParams(add)
	require.Len(t, params, 2)
	assert.Equal(t, "a", Text(s, DeclName(params[0])))
	assert.Equal(t, "b", Text(s, DeclName(params[1])))

	ret := BlockItems(FuncBody(add))[0]
	assert.Equal(t, token.KwReturn, ret.Lead())
	op, ok := BinaryOp(ret.Child(1))
	require.True(t, ok)
	assert.Equal(t, token.Plus, op)

	items := BlockItems(FuncBody(fns[1]))
	require.Len(t, items, 3)
	assert.Equal(t, KindVarDecl, items[0].Kind)
	assert.True(t, IsCall(DeclInit(items[0])))
	assert.Equal(t, token.KwIf, items[1].Lead())
	assert.Equal(t, "return x;", Text(s, items[2]))
}

func TestIntervalsNestAndOrder(t *testing.T) {
	_, tree := mustParse(t, "int main() { int x = 1; while (x < 10) { x = x * 2; } switch (x) { case 16: x = 0; break; default: break; } return x; }")
	Walk(tree, func(n *Node) bool {
		prev := -1
		for _, c := range n.Children {
			assert.GreaterOrEqual(t, c.Start, n.Start)
			assert.LessOrEqual(t, c.Stop, n.Stop)
			assert.Greater(t, c.Start, prev, "siblings overlap in %s", n.Kind)
			prev = c.Stop
			assert.Same(t, n, c.Parent)
		}
		if len(n.Children) > 0 {
			assert.Equal(t, n.Children[0].Start, n.Start)
			assert.Equal(t, n.Children[len(n.Children)-1].Stop, n.Stop)
		}
		return true
	})
}

func TestParseSwitch(t *testing.T) {
	s, tree := mustParse(t, "int main() { int state = 5; switch (state) { case 5: state = -1; break; case -1: break; default: state = 0; } return 0; }")
	sw := BlockItems(FuncBody(tree.Children[0]))[1]
	require.Equal(t, token.KwSwitch, sw.Lead())
	cases := sw.ChildrenOf(KindCaseClause)
	require.Len(t, cases, 3)
	assert.Equal(t, "case 5: state = -1; break;", Text(s, cases[0]))
	assert.Equal(t, token.KwDefault, cases[2].Lead())
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"int main( { }",
		"int main() { int x = ; }",
		"int main() { return 0 }",
		"main() {}",
		"int main() { case 1: ; }",
		"int main() {",
	} {
		s, err := Tokenize(src)
		require.NoError(t, err, src)
		_, err = Parse(s)
		require.Error(t, err, src)
		var se *SyntaxError
		assert.True(t, errors.As(err, &se), src)
	}
}

func TestParseExpression(t *testing.T) {
	s, e, err := ParseExpression("(-1*-(a + b))")
	require.NoError(t, err)
	inner, ok := ParenInner(e)
	require.True(t, ok)
	op, ok := BinaryOp(inner)
	require.True(t, ok)
	assert.Equal(t, token.Star, op)
	assert.Equal(t, "-(a + b)", Text(s, inner.Child(2)))

	_, _, err = ParseExpression("a + ")
	assert.Error(t, err)
	_, _, err = ParseExpression("a b")
	assert.Error(t, err)
}
