package obfuscator

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/config"
)

// SourceExtensions are the file extensions picked up in directory mode.
var SourceExtensions = []string{".c", ".cm"}

// FileResult is the outcome for one file of a directory run.
type FileResult struct {
	Path string
	Err  error
}

// CollectSources returns the program files below dir as paths relative to
// dir, sorted. Hidden directories are skipped.
func CollectSources(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error accessing path %q: %w", path, err)
		}
		if d.IsDir() {
			if path != dir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !hasSourceExtension(path) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return fmt.Errorf("error calculating relative path for %q: %w", path, err)
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

func hasSourceExtension(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range SourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// ProcessDirectory runs mode over every source file in srcDir and writes
// each result to the same relative path below dstDir. Every file gets its
// own Context, so no rename state leaks from one program to the next. A
// failing file does not stop the run; all failures are returned together.
// onFile, when non-nil, is called after each file.
func ProcessDirectory(cfg *config.Config, logger *zap.Logger, mode Mode, srcDir, dstDir string, onFile func(FileResult)) ([]FileResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	files, err := CollectSources(srcDir)
	if err != nil {
		return nil, err
	}

	var errs error
	results := make([]FileResult, 0, len(files))
	for _, rel := range files {
		res := FileResult{Path: rel}
		octx, err := NewContext(cfg, logger.With(zap.String("file", rel)))
		if err == nil {
			err = Run(octx, mode, filepath.Join(srcDir, rel), filepath.Join(dstDir, rel))
		}
		if err != nil {
			res.Err = err
			errs = multierr.Append(errs, err)
			logger.Warn("file failed", zap.String("file", rel), zap.Error(err))
		}
		results = append(results, res)
		if onFile != nil {
			onFile(res)
		}
	}
	return results, errs
}
