package scrambler

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/cmixer/internal/config"
)

func newTestRand() *rand.Rand { return rand.New(rand.NewSource(42)) }

func isLowerIdent(s string) bool {
	for _, c := range s {
		if c < 'a' || c > 'z' {
			return false
		}
	}
	return s != ""
}

// Test basic scrambling and consistency
func TestScrambleBasic(t *testing.T) {
	sc := NewScrambler(TypeVariable, 6, newTestRand())

	first := sc.Scramble("counter")
	second := sc.Scramble("counter")
	assert.Equal(t, first, second, "scramble must be memoized")
	assert.NotEqual(t, "counter", first)
	assert.Len(t, first, 6)
	assert.True(t, isLowerIdent(first), "generated name %q is not lowercase", first)

	original, ok := sc.Unscramble(first)
	require.True(t, ok)
	assert.Equal(t, "counter", original)

	got, ok := sc.LookupObfuscated("counter")
	require.True(t, ok)
	assert.Equal(t, first, got)
	_, ok = sc.LookupObfuscated("never")
	assert.False(t, ok)
}

func TestScrambleDistinct(t *testing.T) {
	// Short names make collisions in the raw generator likely, so this checks
	// the uniqueness guard rather than luck.
	sc := NewScrambler(TypeVariable, 2, newTestRand())
	seen := make(map[string]string)
	for i := 0; i < 500; i++ {
		orig := "v" + string(rune('a'+i%26)) + string(rune('a'+i/26))
		got := sc.Scramble(orig)
		if prev, dup := seen[got]; dup {
			t.Fatalf("rename(%q) == rename(%q) == %q", orig, prev, got)
		}
		seen[got] = orig
	}
	assert.Equal(t, 500, sc.Len())
}

func TestScrambleIgnoreAndReserved(t *testing.T) {
	sc := NewScrambler(TypeFunction, 6, newTestRand())
	sc.Ignore("main")
	assert.Equal(t, "main", sc.Scramble("main"))
	assert.Equal(t, "printf", sc.Scramble("printf"))
	assert.True(t, sc.ShouldIgnore("while"))
	assert.Equal(t, 0, sc.Len())
}

func TestReserveAvoidsExistingNames(t *testing.T) {
	// With length 2 and all but one two-letter name reserved, the generator
	// must either find the free one or grow the length.
	sc := NewScrambler(TypeVariable, 2, newTestRand())
	var reserved []string
	for a := 'a'; a <= 'z'; a++ {
		for b := 'a'; b <= 'z'; b++ {
			if a == 'q' && b == 'q' {
				continue
			}
			reserved = append(reserved, string([]rune{a, b}))
		}
	}
	sc.Reserve(reserved...)
	got := sc.Scramble("x")
	if len(got) == 2 {
		assert.Equal(t, "qq", got)
	} else {
		assert.Greater(t, len(got), 2)
	}
	for _, r := range reserved {
		assert.NotEqual(t, r, got)
	}
}

func TestGeneratedNamesAvoidKeywords(t *testing.T) {
	sc := NewScrambler(TypeVariable, 2, newTestRand())
	for i := 0; i < 600; i++ {
		name := sc.Fresh()
		assert.False(t, IsReserved(name), "generated reserved word %q", name)
	}
	// "if" and "do" are two-letter keywords the generator would otherwise hit.
	assert.True(t, IsReserved("if"))
	assert.True(t, IsReserved("do"))
}

func TestTableScoped(t *testing.T) {
	tbl := NewTable(config.RenameScopeScoped, 6, newTestRand())
	tbl.Ignore("main")

	fn := tbl.Function("x")
	local := tbl.Local("main", "x")
	other := tbl.Local("helper", "x")

	assert.Equal(t, "main", tbl.Function("main"))
	assert.NotEqual(t, fn, local, "function and variable named x must not collide")
	assert.NotEqual(t, local, other)
	assert.Equal(t, local, tbl.Local("main", "x"))

	got, ok := tbl.LookupLocal("main", "x")
	require.True(t, ok)
	assert.Equal(t, local, got)
	_, ok = tbl.LookupLocal("nowhere", "x")
	assert.False(t, ok)

	want := Mapping{
		Scope:     config.RenameScopeScoped,
		Functions: map[string]string{"x": fn},
		Locals: map[string]map[string]string{
			"main":   {"x": local},
			"helper": {"x": other},
		},
	}
	if diff := cmp.Diff(want, tbl.Mapping()); diff != "" {
		t.Errorf("mapping mismatch (-want +got):\n%s", diff)
	}
}

// In flat mode a function and a variable that share an original name are
// renamed to the same generated name. This is the documented risk of the
// shared namespace; scoped mode exists to avoid it.
func TestTableFlatCollision(t *testing.T) {
	tbl := NewTable(config.RenameScopeFlat, 6, newTestRand())
	fn := tbl.Function("value")
	local := tbl.Local("main", "value")
	assert.Equal(t, fn, local)
	assert.Equal(t, fn, tbl.Scramble("value"))

	m := tbl.Mapping()
	assert.Equal(t, config.RenameScopeFlat, m.Scope)
	assert.Equal(t, map[string]string{"value": fn}, m.Names)
	assert.Nil(t, m.Functions)
}

func TestTableFreshIsUnique(t *testing.T) {
	tbl := NewTable(config.RenameScopeScoped, 6, newTestRand())
	tbl.Reserve("state")
	a := tbl.Local("main", "a")
	f := tbl.Fresh()
	assert.NotEqual(t, a, f)
	assert.NotEqual(t, "state", f)
	assert.NotEqual(t, f, tbl.Fresh())
}

func TestTableDeterministicForSeed(t *testing.T) {
	a := NewTable(config.RenameScopeScoped, 6, rand.New(rand.NewSource(7)))
	b := NewTable(config.RenameScopeScoped, 6, rand.New(rand.NewSource(7)))
	for _, name := range []string{"add", "sub", "mul"} {
		assert.Equal(t, a.Function(name), b.Function(name))
	}
}

func TestTableMappingWhileRenaming(t *testing.T) {
	table := NewTable(config.RenameScopeScoped, 6, newTestRand())
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			table.Local(fmt.Sprintf("f%d", i), "x")
		}
	}()
	for {
		select {
		case <-done:
			m := table.Mapping()
			assert.Len(t, m.Locals, 200)
			_, ok := table.LookupLocal("f199", "x")
			assert.True(t, ok)
			return
		default:
			_ = table.Mapping()
			table.LookupLocal("f10", "x")
		}
	}
}
