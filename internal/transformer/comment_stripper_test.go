package transformer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCommentStripper(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "line comment",
			in:   "int main() { // entry\n    return 0;\n}",
			want: "int main() {  \n    return 0;\n}",
		},
		{
			name: "block comment between tokens",
			in:   "int main() { return 1/**/+2; }",
			want: "int main() { return 1 +2; }",
		},
		{
			name: "comment markers inside strings are kept",
			in:   `int main() { printf("/* no */ // no"); return 0; }`,
			want: `int main() { printf("/* no */ // no"); return 0; }`,
		},
		{
			name: "no comments",
			in:   "int f(int a) { return a; }",
			want: "int f(int a) { return a; }",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, apply(t, tt.in, NewCommentStripper(nil)))
		})
	}
}

func TestCommentStripperBeforeFlatten(t *testing.T) {
	src := "int main() { int x = 1; /* one */ x = x + 1; // two\n return x; }"
	out := apply(t, src,
		NewCommentStripper(nil),
		NewControlFlowFlattener(100, 999, 1, counter("sel"), newTestRand(), nil))
	assert.NotContains(t, out, "one")
	assert.NotContains(t, out, "two")
	assert.Equal(t, 2, runC(t, out).ExitCode)
}
