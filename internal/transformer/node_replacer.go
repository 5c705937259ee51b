package transformer

import (
	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/token"
)

// NodeReplacement represents a node to be replaced and its replacement text
type NodeReplacement struct {
	Original    *cmini.Node
	Replacement string
}

// NodeReplacer collects replacements during a traversal and applies them to
// the stream afterwards. A replacement whose interval lies inside one
// already recorded is dropped: once an ancestor is rewritten its interval no
// longer reflects the descendant's shape.
type NodeReplacer struct {
	replacements []*NodeReplacement
	logger       *zap.Logger
}

// NewNodeReplacer creates an empty replacer.
func NewNodeReplacer(logger *zap.Logger) *NodeReplacer {
	return &NodeReplacer{logger: nopLogger(logger)}
}

// AddReplacement records that n's interval becomes text. It reports false
// when n overlaps a node that is already being replaced.
func (r *NodeReplacer) AddReplacement(n *cmini.Node, text string) bool {
	if n == nil {
		r.logger.Warn("attempted to add replacement for nil node")
		return false
	}
	for _, rep := range r.replacements {
		if rep.Original == n {
			rep.Replacement = text
			return true
		}
		if n.Start <= rep.Original.Stop && rep.Original.Start <= n.Stop {
			r.logger.Debug("dropping overlapping replacement",
				zap.String("kind", string(n.Kind)),
				zap.Int("start", n.Start),
				zap.Int("stop", n.Stop))
			return false
		}
	}
	r.replacements = append(r.replacements, &NodeReplacement{Original: n, Replacement: text})
	return true
}

// Len returns the number of pending replacements.
func (r *NodeReplacer) Len() int { return len(r.replacements) }

// Apply writes every pending replacement to s and clears the list.
func (r *NodeReplacer) Apply(s *token.Stream) int {
	n := len(r.replacements)
	for _, rep := range r.replacements {
		s.ReplaceRange(rep.Original.Start, rep.Original.Stop, rep.Replacement)
	}
	r.replacements = r.replacements[:0]
	return n
}
