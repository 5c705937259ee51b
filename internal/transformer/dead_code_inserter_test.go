package transformer

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/cmixer/internal/token"
)

const deadCodeInput = "int main() { int x = 1; if (x > 0) { x = 2; } return x; }"

var deadDecl = regexp.MustCompile(`int (dead[a-z]) = (\d+);`)

// squash collapses whitespace runs so spacing left by blanked tokens does not
// matter.
func squash(s string) string { return strings.Join(strings.Fields(s), " ") }

func TestDeadCodeInsertion(t *testing.T) {
	testCases := []struct {
		name   string
		policy InjectionPolicy
		want   []string
	}{
		{name: "every block", policy: AlwaysPolicy{}, want: []string{"deada", "deadb"}},
		{name: "no block", policy: NeverPolicy{}, want: nil},
		{name: "rate one", policy: RandomPolicy{Rate: 1}, want: []string{"deada", "deadb"}},
		{name: "rate zero", policy: RandomPolicy{Rate: 0}, want: nil},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			v := NewDeadCodeInserter(tc.policy, counter("dead"), newTestRand(), nil)
			got := apply(t, deadCodeInput, v)

			var names []string
			for _, m := range deadDecl.FindAllStringSubmatch(got, -1) {
				names = append(names, m[1])
				assert.Regexp(t, `^([1-9]|[1-9][0-9]|100)$`, m[2])
			}
			assert.Equal(t, tc.want, names)
			if tc.want == nil {
				assert.Equal(t, deadCodeInput, got)
			} else {
				assert.True(t, strings.HasPrefix(got, "int main() { int deada = "), got)
				assert.Contains(t, got, "{ int deadb = ")
				validateCSyntax(t, got)
			}
		})
	}
}

func TestDeadCodePolicySeesBraces(t *testing.T) {
	s, tree := parse(t, deadCodeInput)
	var seen []int
	policy := PolicyFunc(func(id int) bool {
		seen = append(seen, id)
		return len(seen) == 2
	})
	v := NewDeadCodeInserter(policy, counter("dead"), newTestRand(), nil)
	require.NoError(t, v.Apply(s, tree))

	require.Len(t, seen, 2)
	assert.Less(t, seen[0], seen[1])
	for _, id := range seen {
		assert.Equal(t, token.LBrace, s.At(id).Kind)
	}
	// Only the inner block was chosen.
	assert.Contains(t, s.String(), "if (x > 0) { int deada = ")
	assert.True(t, strings.HasPrefix(s.String(), "int main() { int x = 1;"))
}

func TestDeadCodeRoundTrip(t *testing.T) {
	inserted := apply(t, deadCodeInput, NewDeadCodeInserter(AlwaysPolicy{}, counter("dead"), newTestRand(), nil))
	require.NotEqual(t, deadCodeInput, inserted)

	// The eliminator sees the injected declarations only after a re-parse.
	cleaned := apply(t, inserted, NewDeadCodeEliminator(nil))
	assert.Equal(t, squash(deadCodeInput), squash(cleaned))
}

func TestDeadCodeThenRun(t *testing.T) {
	src := "int main() { int i = 3; while (i > 0) { printf(\"%d\\n\", i); i = i - 1; } return 0; }"
	before := runC(t, src)
	after := runC(t, apply(t, src, NewDeadCodeInserter(AlwaysPolicy{}, counter("dead"), newTestRand(), nil)))
	assert.Equal(t, "3\n2\n1\n", before.Stdout)
	assert.Equal(t, before.Stdout, after.Stdout)
}
