package cmini

import (
	"fmt"

	"github.com/whit3rabbit/cmixer/internal/token"
)

// parser is a recursive-descent parser over the significant (non-hidden)
// tokens of a stream. Nodes record stream indices, not positions in sig.
type parser struct {
	s   *token.Stream
	sig []int
	pos int
}

// Parse builds the program tree for s. Any syntax error is fatal.
func Parse(s *token.Stream) (*Node, error) {
	p := newParser(s)
	prog := &Node{Kind: KindProgram}
	for !p.eof() {
		fn, err := p.functionDecl()
		if err != nil {
			return nil, err
		}
		p.add(prog, fn)
	}
	if len(prog.Children) == 0 {
		// An empty program still needs a valid interval.
		prog.Start, prog.Stop = 0, s.Len()-1
		if s.Len() == 0 {
			prog.Stop = -1
		}
	}
	return prog, nil
}

// ParseExpression parses text holding a single expression and returns its
// own stream and tree.
func ParseExpression(text string) (*token.Stream, *Node, error) {
	s, err := Tokenize(text)
	if err != nil {
		return nil, nil, err
	}
	p := newParser(s)
	if p.eof() {
		return nil, nil, &SyntaxError{Pos: token.Pos{Line: 1, Column: 1}, Msg: "empty expression"}
	}
	e, err := p.expr()
	if err != nil {
		return nil, nil, err
	}
	if !p.eof() {
		return nil, nil, p.errorf("unexpected %v after expression", p.peek())
	}
	return s, e, nil
}

func newParser(s *token.Stream) *parser {
	p := &parser{s: s}
	for i := 0; i < s.Len(); i++ {
		if !s.At(i).Kind.IsHidden() {
			p.sig = append(p.sig, i)
		}
	}
	return p
}

func (p *parser) eof() bool { return p.pos >= len(p.sig) }

func (p *parser) peek() token.Kind { return p.peekAt(0) }

func (p *parser) peekAt(n int) token.Kind {
	if p.pos+n >= len(p.sig) {
		return token.Illegal
	}
	return p.s.At(p.sig[p.pos+n]).Kind
}

func (p *parser) errorf(format string, args ...interface{}) error {
	pos := token.Pos{Line: 1, Column: 1}
	if !p.eof() {
		pos = p.s.At(p.sig[p.pos]).Pos
	} else if len(p.sig) > 0 {
		pos = p.s.At(p.sig[len(p.sig)-1]).Pos
	}
	return &SyntaxError{Pos: pos, Msg: fmt.Sprintf(format, args...)}
}

// term consumes one token of kind k as a terminal node.
func (p *parser) term(k token.Kind) (*Node, error) {
	if p.eof() {
		return nil, p.errorf("expected %v, found end of input", k)
	}
	if got := p.peek(); got != k {
		return nil, p.errorf("expected %v, found %v", k, got)
	}
	idx := p.sig[p.pos]
	p.pos++
	return &Node{Kind: KindTerminal, Start: idx, Stop: idx, Tok: k}, nil
}

// any consumes the next token whatever its kind.
func (p *parser) any() *Node {
	idx := p.sig[p.pos]
	p.pos++
	return &Node{Kind: KindTerminal, Start: idx, Stop: idx, Tok: p.s.At(idx).Kind}
}

// add appends child to parent and widens parent's interval.
func (p *parser) add(parent, child *Node) {
	child.Parent = parent
	if len(parent.Children) == 0 {
		parent.Start = child.Start
	}
	parent.Stop = child.Stop
	parent.Children = append(parent.Children, child)
}

// seq builds a node of kind k from a sequence of parse steps.
func (p *parser) seq(k NodeKind, steps ...func() (*Node, error)) (*Node, error) {
	n := &Node{Kind: k}
	for _, step := range steps {
		c, err := step()
		if err != nil {
			return nil, err
		}
		p.add(n, c)
	}
	return n, nil
}

func (p *parser) expect(k token.Kind) func() (*Node, error) {
	return func() (*Node, error) { return p.term(k) }
}

func (p *parser) functionDecl() (*Node, error) {
	fn := &Node{Kind: KindFunctionDecl}
	typ, err := p.typ()
	if err != nil {
		return nil, err
	}
	p.add(fn, typ)
	name, err := p.term(token.Ident)
	if err != nil {
		return nil, err
	}
	p.add(fn, name)
	lp, err := p.term(token.LParen)
	if err != nil {
		return nil, err
	}
	p.add(fn, lp)
	if p.peek() != token.RParen {
		params, err := p.params()
		if err != nil {
			return nil, err
		}
		p.add(fn, params)
	}
	rp, err := p.term(token.RParen)
	if err != nil {
		return nil, err
	}
	p.add(fn, rp)
	body, err := p.block()
	if err != nil {
		return nil, err
	}
	p.add(fn, body)
	return fn, nil
}

func (p *parser) params() (*Node, error) {
	ps := &Node{Kind: KindParams}
	for {
		param, err := p.seq(KindParam, p.typ, p.expect(token.Ident))
		if err != nil {
			return nil, err
		}
		p.add(ps, param)
		if p.peek() != token.Comma {
			return ps, nil
		}
		p.add(ps, p.any())
	}
}

func (p *parser) typ() (*Node, error) {
	if !p.peek().IsType() {
		return nil, p.errorf("expected type, found %v", p.peek())
	}
	n := &Node{Kind: KindType}
	p.add(n, p.any())
	return n, nil
}

func (p *parser) block() (*Node, error) {
	b := &Node{Kind: KindBlock}
	lb, err := p.term(token.LBrace)
	if err != nil {
		return nil, err
	}
	p.add(b, lb)
	for p.peek() != token.RBrace {
		if p.eof() {
			return nil, p.errorf("unterminated block")
		}
		item, err := p.item()
		if err != nil {
			return nil, err
		}
		p.add(b, item)
	}
	rb, _ := p.term(token.RBrace)
	p.add(b, rb)
	return b, nil
}

// item parses a varDecl or a statement.
func (p *parser) item() (*Node, error) {
	if p.peek().IsType() {
		return p.varDecl()
	}
	return p.statement()
}

func (p *parser) varDecl() (*Node, error) {
	d, err := p.seq(KindVarDecl, p.typ, p.expect(token.Ident))
	if err != nil {
		return nil, err
	}
	if p.peek() == token.Assign {
		p.add(d, p.any())
		init, err := p.expr()
		if err != nil {
			return nil, err
		}
		p.add(d, init)
	}
	semi, err := p.term(token.Semicolon)
	if err != nil {
		return nil, err
	}
	p.add(d, semi)
	return d, nil
}

func (p *parser) statement() (*Node, error) {
	switch p.peek() {
	case token.LBrace:
		return p.block()
	case token.KwIf:
		st, err := p.seq(KindStatement, p.expect(token.KwIf), p.expect(token.LParen), p.expr, p.expect(token.RParen), p.statement)
		if err != nil {
			return nil, err
		}
		if p.peek() == token.KwElse {
			p.add(st, p.any())
			els, err := p.statement()
			if err != nil {
				return nil, err
			}
			p.add(st, els)
		}
		return st, nil
	case token.KwWhile:
		return p.seq(KindStatement, p.expect(token.KwWhile), p.expect(token.LParen), p.expr, p.expect(token.RParen), p.statement)
	case token.KwSwitch:
		return p.switchStatement()
	case token.KwBreak:
		return p.seq(KindStatement, p.expect(token.KwBreak), p.expect(token.Semicolon))
	case token.KwReturn:
		st := &Node{Kind: KindStatement}
		p.add(st, p.any())
		if p.peek() != token.Semicolon {
			e, err := p.expr()
			if err != nil {
				return nil, err
			}
			p.add(st, e)
		}
		semi, err := p.term(token.Semicolon)
		if err != nil {
			return nil, err
		}
		p.add(st, semi)
		return st, nil
	case token.Semicolon:
		return p.seq(KindStatement, p.expect(token.Semicolon))
	case token.Ident:
		if p.peekAt(1) == token.Assign {
			return p.seq(KindStatement, p.expect(token.Ident), p.expect(token.Assign), p.expr, p.expect(token.Semicolon))
		}
	case token.KwCase, token.KwDefault:
		return nil, p.errorf("%v outside switch", p.peek())
	}
	return p.seq(KindStatement, p.expr, p.expect(token.Semicolon))
}

func (p *parser) switchStatement() (*Node, error) {
	st, err := p.seq(KindStatement, p.expect(token.KwSwitch), p.expect(token.LParen), p.expr, p.expect(token.RParen), p.expect(token.LBrace))
	if err != nil {
		return nil, err
	}
	for p.peek() == token.KwCase || p.peek() == token.KwDefault {
		cc, err := p.caseClause()
		if err != nil {
			return nil, err
		}
		p.add(st, cc)
	}
	rb, err := p.term(token.RBrace)
	if err != nil {
		return nil, err
	}
	p.add(st, rb)
	return st, nil
}

func (p *parser) caseClause() (*Node, error) {
	cc := &Node{Kind: KindCaseClause}
	if p.peek() == token.KwDefault {
		p.add(cc, p.any())
	} else {
		p.add(cc, p.any())
		if p.peek() == token.Minus {
			p.add(cc, p.any())
		}
		if k := p.peek(); k != token.Int && k != token.Char {
			return nil, p.errorf("expected case label, found %v", k)
		}
		p.add(cc, p.any())
	}
	colon, err := p.term(token.Colon)
	if err != nil {
		return nil, err
	}
	p.add(cc, colon)
	for {
		switch p.peek() {
		case token.KwCase, token.KwDefault, token.RBrace:
			return cc, nil
		}
		if p.eof() {
			return nil, p.errorf("unterminated switch")
		}
		item, err := p.item()
		if err != nil {
			return nil, err
		}
		p.add(cc, item)
	}
}

// Expressions, lowest precedence first.

var precedence = [][]token.Kind{
	{token.OrOr},
	{token.AndAnd},
	{token.Eq, token.Neq},
	{token.Lt, token.Le, token.Gt, token.Ge},
	{token.Plus, token.Minus},
	{token.Star, token.Slash, token.Percent},
}

func (p *parser) expr() (*Node, error) { return p.binary(0) }

func (p *parser) binary(level int) (*Node, error) {
	if level == len(precedence) {
		return p.unary()
	}
	left, err := p.binary(level + 1)
	if err != nil {
		return nil, err
	}
	for p.isOp(level) {
		op := p.any()
		right, err := p.binary(level + 1)
		if err != nil {
			return nil, err
		}
		n := &Node{Kind: KindExpr}
		p.add(n, left)
		p.add(n, op)
		p.add(n, right)
		left = n
	}
	return left, nil
}

func (p *parser) isOp(level int) bool {
	k := p.peek()
	for _, op := range precedence[level] {
		if k == op {
			return true
		}
	}
	return false
}

func (p *parser) unary() (*Node, error) {
	switch p.peek() {
	case token.Minus, token.Not, token.Plus:
		n := &Node{Kind: KindExpr}
		p.add(n, p.any())
		operand, err := p.unary()
		if err != nil {
			return nil, err
		}
		p.add(n, operand)
		return n, nil
	}
	return p.primary()
}

func (p *parser) primary() (*Node, error) {
	n := &Node{Kind: KindExpr}
	switch p.peek() {
	case token.Int, token.Char, token.String, token.KwTrue, token.KwFalse:
		p.add(n, p.any())
		return n, nil
	case token.Ident:
		p.add(n, p.any())
		if p.peek() != token.LParen {
			return n, nil
		}
		p.add(n, p.any())
		if p.peek() != token.RParen {
			args, err := p.args()
			if err != nil {
				return nil, err
			}
			p.add(n, args)
		}
		rp, err := p.term(token.RParen)
		if err != nil {
			return nil, err
		}
		p.add(n, rp)
		return n, nil
	case token.LParen:
		return p.seq(KindExpr, p.expect(token.LParen), p.expr, p.expect(token.RParen))
	}
	if p.eof() {
		return nil, p.errorf("expected expression, found end of input")
	}
	return nil, p.errorf("expected expression, found %v", p.peek())
}

func (p *parser) args() (*Node, error) {
	a := &Node{Kind: KindArgs}
	for {
		e, err := p.expr()
		if err != nil {
			return nil, err
		}
		p.add(a, e)
		if p.peek() != token.Comma {
			return a, nil
		}
		p.add(a, p.any())
	}
}
