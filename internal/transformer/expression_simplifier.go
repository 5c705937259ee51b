package transformer

import (
	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/token"
)

/*
Expression Simplification Overview:
-----------------------------------
Reverses the arithmetic disguises by matching tree shapes:

- `(-1*-(X))` → `X`
- `A-(-B)` → `A + B` for bare identifiers A and B

Matching is structural, so spacing does not matter. The traversal is
bottom-up: a node is checked after its descendants were simplified and reads
their rewritten text. When a simplified node is itself an operand, the result
is parenthesized to keep the original grouping.
*/

// ExpressionSimplifier removes arithmetic disguises.
type ExpressionSimplifier struct {
	Logger *zap.Logger
}

// NewExpressionSimplifier creates a new ExpressionSimplifier.
func NewExpressionSimplifier(logger *zap.Logger) *ExpressionSimplifier {
	return &ExpressionSimplifier{Logger: nopLogger(logger)}
}

// Name implements Pass.
func (v *ExpressionSimplifier) Name() string { return "simplify" }

// Apply implements Pass.
func (v *ExpressionSimplifier) Apply(s *token.Stream, tree *cmini.Node) error {
	count := 0
	cmini.WalkPost(tree, func(n *cmini.Node) {
		if n.Kind != cmini.KindExpr {
			return
		}
		out, ok := simplifyNode(s, n)
		if !ok {
			return
		}
		if isOperand(n) && !isSimple(out) {
			out = "(" + out + ")"
		}
		s.ReplaceRange(n.Start, n.Stop, out)
		count++
	})
	v.Logger.Debug("simplified expressions", zap.Int("count", count))
	return nil
}

// simplifyNode matches n against the disguise shapes and returns the plain
// form.
func simplifyNode(s *token.Stream, n *cmini.Node) (string, bool) {
	// (-1*-(X))
	if inner, ok := cmini.ParenInner(n); ok {
		if op, ok := cmini.BinaryOp(inner); ok && op == token.Star {
			if v, ok := intLiteral(s, inner.Child(0)); ok && v == -1 && isNegatedLiteral(inner.Child(0)) {
				if neg, operand, ok := cmini.UnaryOp(inner.Child(2)); ok && neg == token.Minus {
					if x, ok := cmini.ParenInner(operand); ok {
						return text(s, x), true
					}
				}
			}
		}
	}

	// A-(-B)
	if op, ok := cmini.BinaryOp(n); ok && op == token.Minus {
		a, okA := identAtom(s, n.Child(0))
		if inner, ok := cmini.ParenInner(n.Child(2)); ok && okA {
			if neg, operand, ok := cmini.UnaryOp(inner); ok && neg == token.Minus {
				if b, ok := identAtom(s, operand); ok {
					return a + " + " + b, true
				}
			}
		}
	}
	return "", false
}

// isNegatedLiteral reports whether e is written as '-' INT rather than a bare
// negative value from elsewhere.
func isNegatedLiteral(e *cmini.Node) bool {
	op, _, ok := cmini.UnaryOp(e)
	return ok && op == token.Minus
}

// isOperand reports whether e is the operand of a unary or binary operator,
// where a bare compound result would bind differently.
func isOperand(e *cmini.Node) bool {
	p := e.Parent
	if p == nil || p.Kind != cmini.KindExpr {
		return false
	}
	if _, ok := cmini.BinaryOp(p); ok {
		return true
	}
	_, _, ok := cmini.UnaryOp(p)
	return ok
}

// isSimple reports whether text is a single identifier or literal.
func isSimple(text string) bool {
	ids := cmini.Identifiers(text)
	return len(ids) == 1 && ids[0] == text
}

// Simplify removes arithmetic disguises from a lone expression.
func Simplify(expr string) (string, error) {
	s, e, err := cmini.ParseExpression(expr)
	if err != nil {
		return "", err
	}
	if err := NewExpressionSimplifier(nil).Apply(s, e); err != nil {
		return "", err
	}
	return s.String(), nil
}
