package transformer

import (
	"context"
	"math/rand"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/config"
	"github.com/whit3rabbit/cmixer/internal/oracle"
	"github.com/whit3rabbit/cmixer/internal/token"
)

const stdioHeader = "#include <stdio.h>\n"

func newTestRand() *rand.Rand { return rand.New(rand.NewSource(42)) }

// parse lexes and parses a CMini program, failing the test on error.
func parse(t *testing.T, src string) (*token.Stream, *cmini.Node) {
	t.Helper()
	s, err := cmini.Tokenize(src)
	require.NoError(t, err)
	tree, err := cmini.Parse(s)
	require.NoError(t, err)
	return s, tree
}

// apply runs passes in order over src, all against the pristine tree.
func apply(t *testing.T, src string, passes ...Pass) string {
	t.Helper()
	s, tree := parse(t, src)
	for _, p := range passes {
		require.NoError(t, p.Apply(s, tree), "pass %s", p.Name())
	}
	return s.String()
}

// counter returns a name generator yielding prefix+"a", prefix+"b", ...
func counter(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + string(rune('a'+n-1))
	}
}

func requireCompiler(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("gcc"); err != nil {
		t.Skip("gcc not found in PATH, skipping compile test")
	}
}

// validateCSyntax checks that code is accepted by the C compiler.
func validateCSyntax(t *testing.T, code string) {
	t.Helper()
	requireCompiler(t)

	path := filepath.Join(t.TempDir(), "check.c")
	require.NoError(t, os.WriteFile(path, []byte(stdioHeader+code), 0644))

	cmd := exec.Command("gcc", "-fsyntax-only", "-w", path)
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Errorf("C syntax validation failed:\nCode:\n%s\nError: %v\nOutput: %s", code, err, output)
	}
}

// runC compiles and runs code, failing the test unless it completes.
func runC(t *testing.T, code string) oracle.Result {
	t.Helper()
	requireCompiler(t)
	res := oracle.New(config.DefaultConfig().Oracle, nil).Run(context.Background(), "prog", stdioHeader+code)
	require.True(t, res.RanOK, "program did not run: %v\n%s", res.Err, code)
	return res
}
