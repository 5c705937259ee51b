package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/cmixer/internal/cmini"
)

func TestNodeReplacerDropsNested(t *testing.T) {
	s, tree := parse(t, "int f(int a, int b) { return a + b * 2; }")

	var outer, inner *cmini.Node
	cmini.Walk(tree, func(n *cmini.Node) bool {
		if _, ok := cmini.BinaryOp(n); ok {
			if outer == nil {
				outer = n
			} else if inner == nil {
				inner = n
			}
		}
		return true
	})
	require.NotNil(t, outer)
	require.NotNil(t, inner)

	r := NewNodeReplacer(nil)
	assert.True(t, r.AddReplacement(outer, "X"))
	assert.False(t, r.AddReplacement(inner, "Y"), "nested replacement must be dropped")
	assert.True(t, r.AddReplacement(outer, "Z"), "same node updates in place")
	assert.False(t, r.AddReplacement(nil, "W"))
	assert.Equal(t, 1, r.Len())

	assert.Equal(t, 1, r.Apply(s))
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, "int f(int a, int b) { return Z; }", s.String())
}
