package transformer

import (
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/token"
)

/*
Dead Code Obfuscation Overview:
-------------------------------
Blocks receive an unused integer declaration right after their opening
brace:

- `{ x = 1; }` → `{ int qwerty = 57; x = 1; }`

The declaration is appended to the text of the brace token; no token is
added. Which blocks receive one is left to an InjectionPolicy.
*/

// DeadCodeInserter injects unused declarations into blocks.
type DeadCodeInserter struct {
	Policy InjectionPolicy
	// NewName returns a name unused anywhere in the program.
	NewName func() string
	random  *rand.Rand
	Logger  *zap.Logger
}

// NewDeadCodeInserter creates an inserter. rng draws the literal values.
func NewDeadCodeInserter(policy InjectionPolicy, newName func() string, rng *rand.Rand, logger *zap.Logger) *DeadCodeInserter {
	if policy == nil {
		policy = NeverPolicy{}
	}
	return &DeadCodeInserter{
		Policy:  policy,
		NewName: newName,
		random:  rng,
		Logger:  nopLogger(logger),
	}
}

// Name implements Pass.
func (v *DeadCodeInserter) Name() string { return "dead-code" }

// Apply implements Pass.
func (v *DeadCodeInserter) Apply(s *token.Stream, tree *cmini.Node) error {
	injected := 0
	cmini.Walk(tree, func(n *cmini.Node) bool {
		if n.Kind != cmini.KindBlock {
			return true
		}
		brace := n.Start
		if !v.Policy.ShouldInject(brace) {
			return true
		}
		name := v.NewName()
		s.Append(brace, fmt.Sprintf(" int %s = %d;", name, 1+v.random.Intn(100)))
		injected++
		v.Logger.Debug("injected dead declaration", zap.Int("block", brace), zap.String("name", name))
		return true
	})
	v.Logger.Debug("dead code injection done", zap.Int("count", injected))
	return nil
}
