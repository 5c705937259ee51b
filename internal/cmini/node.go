package cmini

import (
	"github.com/whit3rabbit/cmixer/internal/token"
)

// NodeKind names a grammar rule.
type NodeKind string

const (
	KindProgram      NodeKind = "program"
	KindFunctionDecl NodeKind = "functionDecl"
	KindParams       NodeKind = "params"
	KindParam        NodeKind = "param"
	KindBlock        NodeKind = "block"
	KindVarDecl      NodeKind = "varDecl"
	KindStatement    NodeKind = "statement"
	KindCaseClause   NodeKind = "caseClause"
	KindExpr         NodeKind = "expr"
	KindArgs         NodeKind = "args"
	KindType         NodeKind = "type"
	KindTerminal     NodeKind = "terminal"
)

// Node is a parse tree node over the token interval [Start, Stop]. Sibling
// intervals are disjoint and ordered; a parent's interval covers its
// children. A terminal wraps exactly one significant token (Start == Stop).
type Node struct {
	Kind     NodeKind
	Children []*Node
	Start    int
	Stop     int
	Parent   *Node

	// Tok is the token kind of a terminal.
	Tok token.Kind
}

// Child returns the i-th child or nil.
func (n *Node) Child(i int) *Node {
	if n == nil || i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// IsTerminal reports whether n wraps a single token.
func (n *Node) IsTerminal() bool { return n != nil && n.Kind == KindTerminal }

// Is reports whether n is a terminal of the given token kind.
func (n *Node) Is(k token.Kind) bool { return n.IsTerminal() && n.Tok == k }

// Lead returns the token kind of the first child when it is a terminal.
// Statements are distinguished by it (while, if, return, ...).
func (n *Node) Lead() token.Kind {
	if c := n.Child(0); c.IsTerminal() {
		return c.Tok
	}
	return token.Illegal
}

// ChildrenOf returns the direct children of kind k.
func (n *Node) ChildrenOf(k NodeKind) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Kind == k {
			out = append(out, c)
		}
	}
	return out
}

// FirstOf returns the first direct child of kind k.
func (n *Node) FirstOf(k NodeKind) *Node {
	for _, c := range n.Children {
		if c.Kind == k {
			return c
		}
	}
	return nil
}

// Walk visits n and its descendants in pre-order. Returning false from fn
// skips the node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	for _, c := range n.Children {
		Walk(c, fn)
	}
}

// WalkPost visits n's descendants before n.
func WalkPost(n *Node, fn func(*Node)) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		WalkPost(c, fn)
	}
	fn(n)
}

// Text returns the current text of n's interval.
func Text(s *token.Stream, n *Node) string {
	return s.Text(n.Start, n.Stop)
}

// Source returns the text of n's interval as originally lexed.
func Source(s *token.Stream, n *Node) string {
	var out []byte
	for i := n.Start; i <= n.Stop; i++ {
		out = append(out, s.At(i).Source...)
	}
	return string(out)
}

// Function accessors. The grammar fixes the layout:
// type ID '(' params? ')' block.

// FuncName returns the terminal holding a function's name.
func FuncName(fn *Node) *Node { return fn.Child(1) }

// FuncParams returns the param nodes of a function, possibly none.
func FuncParams(fn *Node) []*Node {
	if ps := fn.FirstOf(KindParams); ps != nil {
		return ps.ChildrenOf(KindParam)
	}
	return nil
}

// FuncBody returns a function's block.
func FuncBody(fn *Node) *Node { return fn.FirstOf(KindBlock) }

// DeclName returns the identifier terminal of a param or varDecl.
func DeclName(decl *Node) *Node { return decl.Child(1) }

// DeclInit returns the initializer expression of a varDecl, or nil.
func DeclInit(decl *Node) *Node { return decl.FirstOf(KindExpr) }

// BlockItems returns the statements and declarations of a block without
// its braces.
func BlockItems(block *Node) []*Node {
	var out []*Node
	for _, c := range block.Children {
		if !c.IsTerminal() {
			out = append(out, c)
		}
	}
	return out
}

// Expression shapes.

// BinaryOp returns the operator of a binary expression.
func BinaryOp(e *Node) (token.Kind, bool) {
	if e.Kind == KindExpr && len(e.Children) == 3 &&
		e.Children[0].Kind == KindExpr && e.Children[2].Kind == KindExpr &&
		e.Children[1].IsTerminal() {
		return e.Children[1].Tok, true
	}
	return token.Illegal, false
}

// UnaryOp returns the operator and operand of a prefix expression.
func UnaryOp(e *Node) (token.Kind, *Node, bool) {
	if e.Kind == KindExpr && len(e.Children) == 2 && e.Children[0].IsTerminal() && e.Children[1].Kind == KindExpr {
		return e.Children[0].Tok, e.Children[1], true
	}
	return token.Illegal, nil, false
}

// ParenInner returns the expression inside '(' expr ')'.
func ParenInner(e *Node) (*Node, bool) {
	if e.Kind == KindExpr && len(e.Children) == 3 && e.Children[0].Is(token.LParen) && e.Children[2].Is(token.RParen) {
		return e.Children[1], true
	}
	return nil, false
}

// Atom returns the single terminal of a primary expression.
func Atom(e *Node) (*Node, bool) {
	if e.Kind == KindExpr && len(e.Children) == 1 && e.Children[0].IsTerminal() {
		return e.Children[0], true
	}
	return nil, false
}

// IsCall reports whether e is ID '(' args? ')'.
func IsCall(e *Node) bool {
	return e.Kind == KindExpr && len(e.Children) >= 3 && e.Children[0].Is(token.Ident) && e.Children[1].Is(token.LParen)
}
