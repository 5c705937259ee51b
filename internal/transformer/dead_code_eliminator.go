package transformer

import (
	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/token"
)

// DeadCodeEliminator removes declarations whose identifier occurs nowhere
// else in its function. Occurrences are counted over the function body's
// current text, so the declaration itself always counts once. A declaration
// whose initializer calls a function is kept for its side effects.
type DeadCodeEliminator struct {
	Logger *zap.Logger
}

// NewDeadCodeEliminator creates a new DeadCodeEliminator.
func NewDeadCodeEliminator(logger *zap.Logger) *DeadCodeEliminator {
	return &DeadCodeEliminator{Logger: nopLogger(logger)}
}

// Name implements Pass.
func (v *DeadCodeEliminator) Name() string { return "dead-vars" }

// Apply implements Pass.
func (v *DeadCodeEliminator) Apply(s *token.Stream, tree *cmini.Node) error {
	for _, fn := range functions(tree) {
		body := cmini.FuncBody(fn)
		counts := cmini.CountIdentifiers(cmini.Text(s, body))
		removed := 0
		cmini.Walk(body, func(n *cmini.Node) bool {
			if n.Kind != cmini.KindBlock {
				return true
			}
			for _, item := range cmini.BlockItems(n) {
				if item.Kind != cmini.KindVarDecl || s.Blank(item.Start, item.Stop) {
					continue
				}
				name := text(s, cmini.DeclName(item))
				if counts[name] != 1 || hasCall(cmini.DeclInit(item)) {
					continue
				}
				s.ReplaceRange(item.Start, item.Stop, "")
				removed++
				v.Logger.Debug("removed dead declaration",
					zap.String("function", funcName(s, fn)),
					zap.String("name", name))
			}
			return true
		})
		if removed > 0 {
			v.Logger.Debug("dead declarations removed",
				zap.String("function", funcName(s, fn)),
				zap.Int("count", removed))
		}
	}
	return nil
}

func hasCall(e *cmini.Node) bool {
	found := false
	cmini.Walk(e, func(n *cmini.Node) bool {
		if found {
			return false
		}
		if cmini.IsCall(n) {
			found = true
			return false
		}
		return true
	})
	return found
}
