package obfuscator

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/config"
	"github.com/whit3rabbit/cmixer/internal/format"
	"github.com/whit3rabbit/cmixer/internal/oracle"
	"github.com/whit3rabbit/cmixer/internal/scrambler"
	"github.com/whit3rabbit/cmixer/internal/token"
	"github.com/whit3rabbit/cmixer/internal/transformer"
)

const endToEndProgram = "int main(){int x=1;int y=2;return x+y;}"

const helperProgram = `int add(int a, int b) { return a + b; }
int main() {
    int r = add(40, 2);
    printf("%d\n", r);
    if (r > 10) { printf("big\n"); }
    return 0;
}
`

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Seed = 42
	return cfg
}

func newTestContext(t *testing.T, cfg *config.Config) *Context {
	t.Helper()
	octx, err := NewContext(cfg, nil)
	require.NoError(t, err)
	return octx
}

func newTestOracle(t *testing.T) *oracle.Oracle {
	t.Helper()
	o := oracle.New(config.DefaultConfig().Oracle, nil)
	if !o.Available() {
		t.Skip("gcc not found in PATH, skipping oracle test")
	}
	return o
}

// createTempFile writes content to a new file in dir and returns its path.
func createTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestObfuscateEndToEnd(t *testing.T) {
	octx := newTestContext(t, testConfig())
	octx.Policy = transformer.AlwaysPolicy{}

	obfuscated, err := octx.Obfuscate(endToEndProgram)
	require.NoError(t, err)
	t.Logf("obfuscated:\n%s", obfuscated)

	ids := cmini.CountIdentifiers(obfuscated)
	assert.Zero(t, ids["x"])
	assert.Zero(t, ids["y"])
	assert.Equal(t, 1, ids["main"])
	assert.Contains(t, obfuscated, "while (state != 0) {")
	assert.Contains(t, obfuscated, "(-1*-(")
	assert.NotContains(t, obfuscated, "#include", "nothing needs a header")
	assert.True(t, strings.HasSuffix(obfuscated, "}\n"))

	cleaned, err := newTestContext(t, testConfig()).Deobfuscate(obfuscated)
	require.NoError(t, err)
	t.Logf("deobfuscated:\n%s", cleaned)
	assert.True(t, strings.HasPrefix(cleaned, "#include <stdio.h>\n"))
	assert.NotContains(t, cleaned, "while")
	assert.NotContains(t, cleaned, "(-1*-(")
	assert.NotContains(t, cleaned, "state")

	o := newTestOracle(t)
	for name, variant := range map[string]string{"obfuscated": obfuscated, "deobfuscated": cleaned} {
		rep, err := o.Compare(context.Background(), endToEndProgram, variant)
		require.NoError(t, err)
		assert.True(t, rep.Matched, "%s variant differs: %+v", name, rep)
		assert.Equal(t, 3, rep.ExitCode2)
	}
}

func TestHelperProgramRoundTrip(t *testing.T) {
	cfg := testConfig()
	cfg.Deobfuscation.LinearizeMode = config.LinearizeModeChain
	octx := newTestContext(t, cfg)
	octx.Policy = transformer.AlwaysPolicy{}

	obfuscated, err := octx.Obfuscate(helperProgram)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(obfuscated, "#include <stdio.h>\n"), obfuscated)
	assert.Zero(t, cmini.CountIdentifiers(obfuscated)["add"])

	cleaned, err := newTestContext(t, cfg).Deobfuscate(obfuscated)
	require.NoError(t, err)
	assert.Contains(t, cleaned, "int sum(int a, int b) {")
	assert.Contains(t, cleaned, "return a + b;")
	assert.Contains(t, cleaned, "sum(40, 2)")
	assert.Equal(t, 1, strings.Count(cleaned, "#include <stdio.h>"))

	o := newTestOracle(t)
	for _, variant := range []string{obfuscated, cleaned} {
		rep, err := o.Compare(context.Background(), "#include <stdio.h>\n"+helperProgram, variant)
		require.NoError(t, err)
		assert.True(t, rep.Matched, "%+v\n%s", rep, variant)
		assert.Equal(t, "42\nbig\n", rep.Stdout2)
	}
}

func TestObfuscateDeterministic(t *testing.T) {
	a, err := newTestContext(t, testConfig()).Obfuscate(helperProgram)
	require.NoError(t, err)
	b, err := newTestContext(t, testConfig()).Obfuscate(helperProgram)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	cfg := testConfig()
	cfg.Seed = 7
	c, err := newTestContext(t, cfg).Obfuscate(helperProgram)
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestObfuscateTechniquesDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Obfuscation.Rename.Enabled = false
	cfg.Obfuscation.DeadCode.Enabled = false
	cfg.Obfuscation.Expressions.Enabled = false
	cfg.Obfuscation.ControlFlow.Enabled = false

	got, err := newTestContext(t, cfg).Obfuscate(endToEndProgram)
	require.NoError(t, err)
	assert.Equal(t, format.Source(endToEndProgram), got)
}

func TestObfuscateStripComments(t *testing.T) {
	cfg := testConfig()
	cfg.Obfuscation.StripComments = true
	cfg.Obfuscation.DeadCode.Enabled = false
	cfg.Obfuscation.ControlFlow.Enabled = false

	src := "int main() { // entry\n int x = 1; /* keep x */ return x + 2; }"
	got, err := newTestContext(t, cfg).Obfuscate(src)
	require.NoError(t, err)
	assert.NotContains(t, got, "//")
	assert.NotContains(t, got, "/*")
	assert.NotContains(t, got, "entry")

	cfg.Obfuscation.StripComments = false
	got, err = newTestContext(t, cfg).Obfuscate(src)
	require.NoError(t, err)
	assert.Contains(t, got, "/* keep x */")
}

func TestObfuscateIncludes(t *testing.T) {
	testCases := []struct {
		name   string
		input  string
		header string
	}{
		{
			name:   "stdio added",
			input:  `int main() { puts("x"); return 0; }`,
			header: "#include <stdio.h>\n",
		},
		{
			name:   "stdio kept once",
			input:  "#include <stdio.h>\nint main() { puts(\"x\"); return 0; }",
			header: "#include <stdio.h>\n",
		},
		{
			name:   "bool",
			input:  "int main() { bool ok = true; if (ok) { return 1; } return 0; }",
			header: "#include <stdbool.h>\n",
		},
		{
			name:   "other directives kept",
			input:  "#define LIMIT 3\nint main() { printf(\"%d\", LIMIT); return 0; }",
			header: "#define LIMIT 3\n#include <stdio.h>\n",
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := newTestContext(t, testConfig()).Obfuscate(tc.input)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(got, tc.header), got)
			assert.NotContains(t, strings.TrimPrefix(got, tc.header), "#")
		})
	}
}

func TestDeobfuscateDirectives(t *testing.T) {
	src := "#include <stdio.h>\n#define N 2\nint main() { return (-1*-(N + 1)); }\n"
	got, err := newTestContext(t, testConfig()).Deobfuscate(src)
	require.NoError(t, err)
	assert.Equal(t, "#include <stdio.h>\n#define N 2\nint main() {\n    return N + 1;\n}\n", got)
}

func TestParseErrorsAreFatal(t *testing.T) {
	octx := newTestContext(t, testConfig())
	_, err := octx.Obfuscate("int main( { return 0; }")
	assert.True(t, errors.Is(err, cmini.ErrSyntax), "got %v", err)

	_, err = octx.Deobfuscate("int main() { return 0 }")
	var synErr *cmini.SyntaxError
	assert.True(t, errors.As(err, &synErr), "got %v", err)
}

type panickingPass struct{}

func (panickingPass) Name() string { return "boom" }

func (panickingPass) Apply(s *token.Stream, _ *cmini.Node) error {
	s.ReplaceRange(0, s.Len(), "")
	return nil
}

func TestRunPassesRecoversPanics(t *testing.T) {
	octx := newTestContext(t, testConfig())
	s, tree, err := parse(endToEndProgram)
	require.NoError(t, err)

	err = octx.runPasses(s, tree, []transformer.Pass{transformer.NewExpressionSimplifier(nil), panickingPass{}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInternal))
	assert.Contains(t, err.Error(), "pass boom")
}

func TestRunWritesOnlyOnSuccess(t *testing.T) {
	dir := t.TempDir()
	good := createTempFile(t, dir, "good.c", helperProgram)
	bad := createTempFile(t, dir, "bad.c", "int main( {")

	outGood := filepath.Join(dir, "out", "good.c")
	require.NoError(t, Run(newTestContext(t, testConfig()), ModeObfuscate, good, outGood))
	data, err := os.ReadFile(outGood)
	require.NoError(t, err)
	assert.Contains(t, string(data), "#include <stdio.h>")

	outBad := filepath.Join(dir, "out", "bad.c")
	err = Run(newTestContext(t, testConfig()), ModeObfuscate, bad, outBad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad.c")
	_, statErr := os.Stat(outBad)
	assert.True(t, os.IsNotExist(statErr), "no output for a failed run")

	entries, err := os.ReadDir(filepath.Join(dir, "out"))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestProcessFileModes(t *testing.T) {
	path := createTempFile(t, t.TempDir(), "p.c", "int main() { return (-1*-(1 + 2)); }")
	octx := newTestContext(t, testConfig())

	out, err := ProcessFile(path, octx, ModeDeobfuscate)
	require.NoError(t, err)
	assert.Contains(t, out, "return 1 + 2;")

	_, err = ProcessFile(path, octx, Mode("bogus"))
	assert.Error(t, err)
	_, err = ProcessFile(filepath.Join(t.TempDir(), "missing.c"), octx, ModeObfuscate)
	assert.Error(t, err)
}

func TestSaveMapping(t *testing.T) {
	octx := newTestContext(t, testConfig())
	_, err := octx.Obfuscate(helperProgram)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "map.yaml")
	require.NoError(t, octx.SaveMapping(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var m scrambler.Mapping
	require.NoError(t, yaml.Unmarshal(data, &m))
	assert.Equal(t, config.RenameScopeScoped, m.Scope)
	assert.Contains(t, m.Functions, "add")
	assert.NotContains(t, m.Functions, "main")
	assert.Contains(t, m.Locals["add"], "a")
	assert.Contains(t, m.Locals["main"], "r")
}

func TestNewContextRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.Obfuscation.DeadCode.Rate = 2
	_, err := NewContext(cfg, nil)
	assert.True(t, errors.Is(err, config.ErrInvalid))

	octx, err := NewContext(nil, nil)
	require.NoError(t, err)
	assert.NotZero(t, octx.Seed)
}
