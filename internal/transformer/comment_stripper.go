package transformer

import (
	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/token"
)

// CommentStripper removes every comment from the stream. It must run before
// any pass that folds statement text, since folded text carries the comments
// it spans.
type CommentStripper struct {
	logger *zap.Logger
}

// NewCommentStripper creates the pass.
func NewCommentStripper(logger *zap.Logger) *CommentStripper {
	return &CommentStripper{logger: nopLogger(logger)}
}

func (c *CommentStripper) Name() string { return "strip-comments" }

// Apply replaces each comment with a single space so that the tokens on
// either side stay apart.
func (c *CommentStripper) Apply(s *token.Stream, _ *cmini.Node) error {
	stripped := 0
	for i := 0; i < s.Len(); i++ {
		t := s.At(i)
		if t.Kind != token.Comment || t.Text == "" {
			continue
		}
		s.SetText(i, " ")
		stripped++
	}
	c.logger.Debug("comments stripped", zap.Int("count", stripped))
	return nil
}
