package transformer

import (
	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/token"
)

/*
Arithmetic Expression Obfuscation Overview:
-----------------------------------------
Every binary addition is wrapped in a double negation that keeps its value:

- `a + b` → `(-1*-(a + b))`

The traversal is top-down and the rewrite is terminal: once an addition is
wrapped its operands are not visited again, so nested additions inside the
wrapped text stay as they are.
*/

// ArithmeticObfuscator disguises additions.
type ArithmeticObfuscator struct {
	Logger *zap.Logger
}

// NewArithmeticObfuscator creates a new ArithmeticObfuscator.
func NewArithmeticObfuscator(logger *zap.Logger) *ArithmeticObfuscator {
	return &ArithmeticObfuscator{Logger: nopLogger(logger)}
}

// Name implements Pass.
func (v *ArithmeticObfuscator) Name() string { return "disguise" }

// Apply implements Pass.
func (v *ArithmeticObfuscator) Apply(s *token.Stream, tree *cmini.Node) error {
	rep := NewNodeReplacer(v.Logger)
	cmini.Walk(tree, func(n *cmini.Node) bool {
		if op, ok := cmini.BinaryOp(n); ok && op == token.Plus {
			rep.AddReplacement(n, disguiseAddition(s, n))
			return false
		}
		return true
	})
	v.Logger.Debug("disguised additions", zap.Int("count", rep.Apply(s)))
	return nil
}

func disguiseAddition(s *token.Stream, n *cmini.Node) string {
	return "(-1*-(" + text(s, n.Child(0)) + " + " + text(s, n.Child(2)) + "))"
}

// Disguise applies the addition disguise to a lone expression.
func Disguise(expr string) (string, error) {
	s, e, err := cmini.ParseExpression(expr)
	if err != nil {
		return "", err
	}
	if err := NewArithmeticObfuscator(nil).Apply(s, e); err != nil {
		return "", err
	}
	return s.String(), nil
}
