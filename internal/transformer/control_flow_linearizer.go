package transformer

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/config"
	"github.com/whit3rabbit/cmixer/internal/token"
)

/*
Control Flow Linearization Overview:
------------------------------------
Recognizes the dispatch loop produced by flattening,

	while (S != 0) { switch (S) { case N: ...; S = M; break; ... } }

and replaces it with the case bodies, stripped of their top-level `S = <int>;`
updates and `break;` statements, joined in one of two orders:

- sort: ascending case label. This does not in general recover execution
  order, since labels are random and order lives only in the chain.
- chain: start at the selector's initial value (the declaration or
  assignment right before the loop) and follow each case's update until the
  sentinel 0. A missing label or a cycle leaves the loop untouched.

A loop with a default clause or a non-integer label is not a dispatch loop.
After a rewrite the selector's declaration is removed once nothing else
refers to it.
*/

// dispatchCase is one case of a recognized dispatch loop.
type dispatchCase struct {
	label   int
	body    string
	next    int
	hasNext bool
}

// ControlFlowLinearizer unflattens dispatch loops.
type ControlFlowLinearizer struct {
	// Mode is config.LinearizeModeSort or config.LinearizeModeChain.
	Mode   string
	Logger *zap.Logger
}

// NewControlFlowLinearizer creates a linearizer in the given mode.
func NewControlFlowLinearizer(mode string, logger *zap.Logger) *ControlFlowLinearizer {
	if mode != config.LinearizeModeChain {
		mode = config.LinearizeModeSort
	}
	return &ControlFlowLinearizer{Mode: mode, Logger: nopLogger(logger)}
}

// Name implements Pass.
func (v *ControlFlowLinearizer) Name() string { return "linearize" }

// Apply implements Pass.
func (v *ControlFlowLinearizer) Apply(s *token.Stream, tree *cmini.Node) error {
	for _, fn := range functions(tree) {
		cmini.Walk(cmini.FuncBody(fn), func(n *cmini.Node) bool {
			if n.Kind != cmini.KindStatement || n.Lead() != token.KwWhile {
				return true
			}
			if v.linearize(s, fn, n) {
				// The loop's interval now holds rewritten text.
				return false
			}
			return true
		})
	}
	return nil
}

func (v *ControlFlowLinearizer) linearize(s *token.Stream, fn, loop *cmini.Node) bool {
	name := funcName(s, fn)
	selector, ok := loopSelector(s, loop)
	if !ok {
		return false
	}
	sw := dispatchSwitch(s, loop, selector)
	if sw == nil {
		v.Logger.Debug("while without dispatch switch", zap.String("function", name))
		return false
	}
	cases, ok := dispatchCases(s, sw, selector)
	if !ok || len(cases) == 0 {
		v.Logger.Debug("switch is not a dispatch table", zap.String("function", name))
		return false
	}

	var ordered []dispatchCase
	switch v.Mode {
	case config.LinearizeModeChain:
		_, start, found := selectorDecl(s, loop, selector)
		if !found {
			v.Logger.Debug("selector has no initial value", zap.String("function", name), zap.String("selector", selector))
			return false
		}
		ordered, ok = followChain(cases, start)
		if !ok {
			v.Logger.Debug("dispatch chain is broken", zap.String("function", name), zap.Int("start", start))
			return false
		}
	default:
		ordered = make([]dispatchCase, len(cases))
		copy(ordered, cases)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].label < ordered[j].label })
	}

	var parts []string
	for _, c := range ordered {
		if c.body != "" {
			parts = append(parts, c.body)
		}
	}
	s.ReplaceRange(loop.Start, loop.Stop, strings.Join(parts, " "))
	v.Logger.Debug("linearized dispatch loop",
		zap.String("function", name),
		zap.String("mode", v.Mode),
		zap.Int("cases", len(ordered)))

	v.dropSelector(s, fn, loop, selector)
	return true
}

// loopSelector matches the condition `S != 0` or `S > 0`.
func loopSelector(s *token.Stream, loop *cmini.Node) (string, bool) {
	cond := loop.Child(2)
	op, ok := cmini.BinaryOp(cond)
	if !ok || (op != token.Neq && op != token.Gt) {
		return "", false
	}
	sel, ok := identAtom(s, cond.Child(0))
	if !ok {
		return "", false
	}
	if zero, ok := intLiteral(s, cond.Child(2)); !ok || zero != 0 {
		return "", false
	}
	return sel, true
}

// dispatchSwitch returns the switch on selector that forms the loop body,
// either directly or as the only item of a block.
func dispatchSwitch(s *token.Stream, loop *cmini.Node, selector string) *cmini.Node {
	body := loop.Child(4)
	if body != nil && body.Kind == cmini.KindBlock {
		items := cmini.BlockItems(body)
		if len(items) != 1 {
			return nil
		}
		body = items[0]
	}
	if body == nil || body.Kind != cmini.KindStatement || body.Lead() != token.KwSwitch {
		return nil
	}
	if sel, ok := identAtom(s, body.Child(2)); !ok || sel != selector {
		return nil
	}
	return body
}

// dispatchCases extracts the cleaned case bodies of sw.
func dispatchCases(s *token.Stream, sw *cmini.Node, selector string) ([]dispatchCase, bool) {
	var out []dispatchCase
	for _, cc := range sw.ChildrenOf(cmini.KindCaseClause) {
		if cc.Lead() != token.KwCase {
			return nil, false
		}
		label, items, ok := caseLabel(s, cc)
		if !ok {
			return nil, false
		}
		c := dispatchCase{label: label}
		var parts []string
		for _, item := range items {
			if item.Kind == cmini.KindStatement && item.Lead() == token.KwBreak {
				continue
			}
			if next, ok := selectorUpdate(s, item, selector); ok {
				c.next, c.hasNext = next, true
				continue
			}
			if t := text(s, item); t != "" {
				parts = append(parts, t)
			}
		}
		c.body = strings.Join(parts, " ")
		out = append(out, c)
	}
	return out, true
}

// caseLabel returns the integer label of a case clause and the items after
// its colon.
func caseLabel(s *token.Stream, cc *cmini.Node) (int, []*cmini.Node, bool) {
	colon := -1
	for i, c := range cc.Children {
		if c.Is(token.Colon) {
			colon = i
			break
		}
	}
	if colon < 0 {
		return 0, nil, false
	}
	var lit strings.Builder
	for _, c := range cc.Children[1:colon] {
		if c.Is(token.Char) {
			return 0, nil, false
		}
		lit.WriteString(text(s, c))
	}
	label, ok := parseLabel(lit.String())
	if !ok {
		return 0, nil, false
	}
	return label, cc.Children[colon+1:], true
}

func parseLabel(lit string) (int, bool) {
	ls, e, err := cmini.ParseExpression(lit)
	if err != nil {
		return 0, false
	}
	return intLiteral(ls, e)
}

// selectorUpdate matches `S = <int>;`.
func selectorUpdate(s *token.Stream, item *cmini.Node, selector string) (int, bool) {
	if item.Kind != cmini.KindStatement || item.Lead() != token.Ident || len(item.Children) != 4 {
		return 0, false
	}
	if !item.Children[1].Is(token.Assign) || text(s, item.Children[0]) != selector {
		return 0, false
	}
	return intLiteral(s, item.Children[2])
}

// selectorDecl returns the item right before loop when it is `int S = N;`
// or `S = N;`, along with N.
func selectorDecl(s *token.Stream, loop *cmini.Node, selector string) (*cmini.Node, int, bool) {
	parent := loop.Parent
	if parent == nil {
		return nil, 0, false
	}
	var prev *cmini.Node
	for _, c := range parent.Children {
		if c == loop {
			break
		}
		if !c.IsTerminal() {
			prev = c
		}
	}
	if prev == nil {
		return nil, 0, false
	}
	if prev.Kind == cmini.KindVarDecl && text(s, cmini.DeclName(prev)) == selector {
		v, ok := intLiteral(s, cmini.DeclInit(prev))
		return prev, v, ok
	}
	if v, ok := selectorUpdate(s, prev, selector); ok {
		return prev, v, true
	}
	return nil, 0, false
}

// followChain orders cases by following their updates from start to 0.
func followChain(cases []dispatchCase, start int) ([]dispatchCase, bool) {
	byLabel := make(map[int]dispatchCase, len(cases))
	for _, c := range cases {
		byLabel[c.label] = c
	}
	var out []dispatchCase
	seen := make(map[int]bool)
	for cur := start; cur != 0; {
		c, ok := byLabel[cur]
		if !ok || seen[cur] || !c.hasNext {
			return nil, false
		}
		seen[cur] = true
		out = append(out, c)
		cur = c.next
	}
	return out, true
}

// dropSelector blanks the selector's declaration once the loop is gone and
// nothing else in the function names it.
func (v *ControlFlowLinearizer) dropSelector(s *token.Stream, fn, loop *cmini.Node, selector string) {
	decl, _, ok := selectorDecl(s, loop, selector)
	if !ok || decl.Kind != cmini.KindVarDecl {
		return
	}
	if cmini.CountIdentifiers(cmini.Text(s, fn))[selector] != 1 {
		return
	}
	s.ReplaceRange(decl.Start, decl.Stop, "")
	v.Logger.Debug("removed selector declaration", zap.String("function", funcName(s, fn)), zap.String("selector", selector))
}
