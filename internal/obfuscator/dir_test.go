package obfuscator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectSources(t *testing.T) {
	dir := t.TempDir()
	createTempFile(t, dir, "b.c", endToEndProgram)
	createTempFile(t, dir, "sub/a.cm", endToEndProgram)
	createTempFile(t, dir, "notes.txt", "not a program")
	createTempFile(t, dir, ".git/x.c", endToEndProgram)

	files, err := CollectSources(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.c", filepath.Join("sub", "a.cm")}, files)
}

func TestProcessDirectory(t *testing.T) {
	src := t.TempDir()
	dst := t.TempDir()
	createTempFile(t, src, "a.c", endToEndProgram)
	createTempFile(t, src, "nested/b.c", helperProgram)
	createTempFile(t, src, "broken.c", "int main( {")

	var seen []string
	results, err := ProcessDirectory(testConfig(), nil, ModeObfuscate, src, dst, func(r FileResult) {
		seen = append(seen, r.Path)
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken.c")
	require.Len(t, results, 3)
	assert.Equal(t, []string{"a.c", "broken.c", filepath.Join("nested", "b.c")}, seen)

	for _, r := range results {
		_, statErr := os.Stat(filepath.Join(dst, r.Path))
		if r.Path == "broken.c" {
			assert.Error(t, r.Err)
			assert.True(t, os.IsNotExist(statErr))
			continue
		}
		assert.NoError(t, r.Err)
		assert.NoError(t, statErr)
	}
}
