package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNameInferencer(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "disguised sum and generic helper",
			input: "int qwerty(int zx, int yv) { return (-1*-(zx + yv)); } int helper(int k) { return k * 2; } int main() { return qwerty(1, 2) + helper(3); }",
			want:  "int sum(int a, int b) { return (-1*-(a + b)); } int f1(int k) { return k * 2; } int main() { return sum(1, 2) + f1(3); }",
		},
		{
			name:  "plain sum",
			input: "int p(int m, int n) { return m + n; } int main() { return p(1, 2); }",
			want:  "int sum(int a, int b) { return a + b; } int main() { return sum(1, 2); }",
		},
		{
			name:  "taken names are numbered",
			input: "int g(int x, int y) { int a = x; return x + y; } int sum(int q) { return q; } int main() { return g(sum(1), 2); }",
			want:  "int sum2(int a1, int b) { int a = a1; return a1 + b; } int f1(int q) { return q; } int main() { return sum2(f1(1), 2); }",
		},
		{
			name:  "operands in the other order",
			input: "int d(int a, int b) { return b + a; } int main() { return d(1, 2); }",
			want:  "int f1(int a, int b) { return b + a; } int main() { return f1(1, 2); }",
		},
		{
			name:  "generic names skip existing ones",
			input: "int f1(int q) { return q; } int h(int q) { return q; } int main() { return f1(h(2)); }",
			want:  "int f1(int q) { return q; } int f2(int q) { return q; } int main() { return f1(f2(2)); }",
		},
		{
			name:  "only the first return counts",
			input: "int w(int u, int v) { if (u > v) { return u - v; } return u + v; } int main() { return w(1, 2); }",
			want:  "int f1(int u, int v) { if (u > v) { return u - v; } return u + v; } int main() { return f1(1, 2); }",
		},
		{
			name:  "entry point only",
			input: "int main() { return 0; }",
			want:  "int main() { return 0; }",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := apply(t, tc.input, NewNameInferencer("main", nil))
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestNameInferencerCountersArePerInstance(t *testing.T) {
	src := "int k(int q) { return q; } int main() { return k(1); }"
	want := "int f1(int q) { return q; } int main() { return f1(1); }"
	assert.Equal(t, want, apply(t, src, NewNameInferencer("main", nil)))
	assert.Equal(t, want, apply(t, src, NewNameInferencer("main", nil)))
}

func TestFirstReturn(t *testing.T) {
	expr, ok := firstReturn("{ int x = 1; return (x + 2) ; return 3; }")
	assert.True(t, ok)
	assert.Equal(t, "(x + 2)", expr)

	_, ok = firstReturn("{ return; }")
	assert.False(t, ok)
	_, ok = firstReturn("{ x = 1; }")
	assert.False(t, ok)
}
