package cmini

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestIdentifiers(t *testing.T) {
	got := Identifiers(`{ int x = y + f(x); printf("x y"); return 'x'; }`)
	want := []string{"x", "y", "f", "x", "printf"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("identifiers mismatch (-want +got):\n%s", diff)
	}
	assert.Nil(t, Identifiers("int @"))
}

func TestCountIdentifiers(t *testing.T) {
	counts := CountIdentifiers("int x = 1; x = x + y;")
	assert.Equal(t, map[string]int{"x": 3, "y": 1}, counts)
}

func TestSubstituteIdentifiers(t *testing.T) {
	mapping := map[string]string{"x": "a", "y": "b"}
	fn := func(id string) (string, bool) {
		r, ok := mapping[id]
		return r, ok
	}
	got := SubstituteIdentifiers(`x + y * xy; printf("x");`, fn)
	assert.Equal(t, `a + b * xy; printf("x");`, got)
	assert.Equal(t, "", SubstituteIdentifiers("", fn))
	assert.Equal(t, "x @", SubstituteIdentifiers("x @", fn))
}

func TestExtractDirectives(t *testing.T) {
	src := "#include <stdio.h>\n  #define N 3\nint main() { return 0; }\n"
	dirs, rest := ExtractDirectives(src)
	want := []Directive{
		{Line: 1, Text: "#include <stdio.h>"},
		{Line: 2, Text: "  #define N 3"},
	}
	if diff := cmp.Diff(want, dirs); diff != "" {
		t.Errorf("directives mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "\n\nint main() { return 0; }\n", rest)
}
