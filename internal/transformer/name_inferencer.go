package transformer

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/token"
)

/*
Semantic Name Inference Overview:
---------------------------------
Gives meaningful names back to functions other than the entry point. The
first `return <expr>;` of a function is simplified; when it reads exactly
`P1 + P2` over the first two parameters, the function becomes `sum` and the
parameters `a` and `b`. Any other function gets a generic name f1, f2, ...

Function renames reach every call site in the program; parameter renames
stay inside the function. Names already present in the program are skipped
by numbering (sum2, a1, ...). The counters are local to one pass.
*/

// NameInferencer renames functions by the shape of what they return.
type NameInferencer struct {
	EntryPoint string
	Logger     *zap.Logger

	generic int
}

// NewNameInferencer creates a new NameInferencer.
func NewNameInferencer(entryPoint string, logger *zap.Logger) *NameInferencer {
	return &NameInferencer{EntryPoint: entryPoint, Logger: nopLogger(logger)}
}

// Name implements Pass.
func (v *NameInferencer) Name() string { return "infer-names" }

// Apply implements Pass.
func (v *NameInferencer) Apply(s *token.Stream, tree *cmini.Node) error {
	for _, fn := range functions(tree) {
		name := funcName(s, fn)
		if name == v.EntryPoint {
			continue
		}
		taken := identifierSet(s)
		delete(taken, name)
		params := paramNames(s, fn)

		if len(params) >= 2 && v.returnsSum(s, fn, params[0], params[1]) {
			newName := numbered("sum", 2, taken)
			taken[newName] = true
			delete(taken, params[0])
			delete(taken, params[1])
			pa := numbered("a", 1, taken)
			taken[pa] = true
			pb := numbered("b", 1, taken)

			substitute(s, fn.Start, fn.Stop, renameMap(map[string]string{params[0]: pa, params[1]: pb}))
			v.renameFunction(s, name, newName)
			v.Logger.Debug("inferred sum",
				zap.String("function", name),
				zap.String("renamed", newName),
				zap.Strings("params", []string{pa, pb}))
			continue
		}

		newName := v.genericName(taken)
		v.renameFunction(s, name, newName)
		v.Logger.Debug("assigned generic name", zap.String("function", name), zap.String("renamed", newName))
	}
	return nil
}

// returnsSum reports whether the function's first return simplifies to
// p1 + p2.
func (v *NameInferencer) returnsSum(s *token.Stream, fn *cmini.Node, p1, p2 string) bool {
	expr, ok := firstReturn(cmini.Text(s, cmini.FuncBody(fn)))
	if !ok {
		return false
	}
	simplified, err := Simplify(expr)
	if err != nil {
		v.Logger.Debug("return expression does not parse", zap.String("expr", expr), zap.Error(err))
		return false
	}
	es, e, err := cmini.ParseExpression(simplified)
	if err != nil {
		return false
	}
	if op, ok := cmini.BinaryOp(e); !ok || op != token.Plus {
		return false
	}
	l, okL := identAtom(es, e.Child(0))
	r, okR := identAtom(es, e.Child(2))
	return okL && okR && l == p1 && r == p2
}

// firstReturn finds the first `return <expr>;` in body text and returns the
// expression text.
func firstReturn(body string) (string, bool) {
	s, err := cmini.Tokenize(body)
	if err != nil {
		return "", false
	}
	toks := s.Tokens()
	for i, t := range toks {
		if t.Kind != token.KwReturn {
			continue
		}
		var sb strings.Builder
		for _, u := range toks[i+1:] {
			if u.Kind == token.Semicolon {
				expr := strings.TrimSpace(sb.String())
				return expr, expr != ""
			}
			sb.WriteString(u.Text)
		}
		return "", false
	}
	return "", false
}

func (v *NameInferencer) renameFunction(s *token.Stream, from, to string) {
	if from == to {
		return
	}
	substitute(s, 0, s.Len()-1, renameMap(map[string]string{from: to}))
}

func (v *NameInferencer) genericName(taken map[string]bool) string {
	for {
		v.generic++
		name := fmt.Sprintf("f%d", v.generic)
		if !taken[name] {
			return name
		}
	}
}

// numbered returns base when free, otherwise base followed by the first free
// number starting at first.
func numbered(base string, first int, taken map[string]bool) string {
	if !taken[base] {
		return base
	}
	for i := first; ; i++ {
		name := fmt.Sprintf("%s%d", base, i)
		if !taken[name] {
			return name
		}
	}
}
