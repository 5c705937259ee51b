// Package obfuscator runs the obfuscation and deobfuscation pipelines and
// holds the per-program transformation context.
package obfuscator

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/whit3rabbit/cmixer/internal/cmini"
	"github.com/whit3rabbit/cmixer/internal/config"
	"github.com/whit3rabbit/cmixer/internal/format"
	"github.com/whit3rabbit/cmixer/internal/scrambler"
	"github.com/whit3rabbit/cmixer/internal/token"
	"github.com/whit3rabbit/cmixer/internal/transformer"
)

// ErrInternal wraps a panic raised inside a pass.
var ErrInternal = errors.New("internal error")

// Mode selects a pipeline.
type Mode string

const (
	ModeObfuscate   Mode = "obfuscate"
	ModeDeobfuscate Mode = "deobfuscate"
)

// stdioFunctions are the library calls that need <stdio.h>.
var stdioFunctions = map[string]bool{
	"printf": true, "puts": true, "putchar": true, "scanf": true,
	"getchar": true, "fprintf": true, "sprintf": true, "snprintf": true,
	"fputs": true, "fflush": true, "perror": true,
}

var (
	stdioInclude   = regexp.MustCompile(`^\s*#\s*include\s*[<"]stdio\.h[>"]`)
	stdboolInclude = regexp.MustCompile(`^\s*#\s*include\s*[<"]stdbool\.h[>"]`)
)

// Context holds the state of one program's transformation. A Context must
// not be shared between programs: its rename table and random source carry
// over from one call to the next.
type Context struct {
	Config *config.Config
	Seed   int64
	Rand   *rand.Rand
	Table  *scrambler.Table
	// Policy decides dead-code injection. It defaults to a RandomPolicy at
	// the configured rate and may be replaced before a run.
	Policy transformer.InjectionPolicy
	Logger *zap.Logger
}

// NewContext creates a context for one program. A zero seed in cfg draws
// one from the clock.
func NewContext(cfg *config.Config, logger *zap.Logger) (*Context, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Context{
		Config: cfg,
		Seed:   seed,
		Rand:   rng,
		Table:  scrambler.NewTable(cfg.Obfuscation.Rename.Scope, cfg.Obfuscation.Rename.Length, rng),
		Policy: transformer.RandomPolicy{Rate: cfg.Obfuscation.DeadCode.Rate, Rand: rng},
		Logger: logger,
	}, nil
}

// Transform runs the pipeline selected by mode.
func (c *Context) Transform(mode Mode, src string) (string, error) {
	switch mode {
	case ModeObfuscate:
		return c.Obfuscate(src)
	case ModeDeobfuscate:
		return c.Deobfuscate(src)
	}
	return "", fmt.Errorf("unknown mode %q", mode)
}

// Obfuscate strips comments, renames, disguises, injects dead code and flattens src, as
// enabled in the configuration. Input directives are kept and missing
// standard includes are added.
func (c *Context) Obfuscate(src string) (string, error) {
	dirs, body := cmini.ExtractDirectives(src)
	s, tree, err := parse(body)
	if err != nil {
		return "", err
	}
	c.Table.Reserve(cmini.Identifiers(body)...)

	if err := c.runPasses(s, tree, c.obfuscationPasses()); err != nil {
		return "", err
	}

	out := s.String()
	header := directiveLines(dirs)
	stdio, stdbool := requiredIncludes(out)
	if stdio && !hasDirective(dirs, stdioInclude) {
		header = append(header, "#include <stdio.h>")
	}
	if stdbool && !hasDirective(dirs, stdboolInclude) {
		header = append(header, "#include <stdbool.h>")
	}
	return format.Source(joinHeader(header, out)), nil
}

// Deobfuscate simplifies expressions, removes dead declarations, linearizes
// dispatch loops and infers names, as enabled in the configuration. Input
// directives are reattached verbatim; input without any gets <stdio.h>.
func (c *Context) Deobfuscate(src string) (string, error) {
	dirs, body := cmini.ExtractDirectives(src)
	s, tree, err := parse(body)
	if err != nil {
		return "", err
	}

	if err := c.runPasses(s, tree, c.deobfuscationPasses()); err != nil {
		return "", err
	}

	header := directiveLines(dirs)
	if len(header) == 0 {
		header = []string{"#include <stdio.h>"}
	}
	return format.Source(joinHeader(header, s.String())), nil
}

func (c *Context) obfuscationPasses() []transformer.Pass {
	cfg := c.Config.Obfuscation
	var passes []transformer.Pass
	if cfg.StripComments {
		passes = append(passes, transformer.NewCommentStripper(c.Logger))
	}
	if cfg.Rename.Enabled {
		passes = append(passes, transformer.NewRenamer(c.Table, c.Config.EntryPoint, c.Logger))
	}
	if cfg.Expressions.Enabled {
		passes = append(passes, transformer.NewArithmeticObfuscator(c.Logger))
	}
	if cfg.DeadCode.Enabled {
		passes = append(passes, transformer.NewDeadCodeInserter(c.Policy, c.Table.Fresh, c.Rand, c.Logger))
	}
	if cfg.ControlFlow.Enabled {
		passes = append(passes, transformer.NewControlFlowFlattener(
			cfg.ControlFlow.LabelMin, cfg.ControlFlow.LabelMax, cfg.ControlFlow.MinStatements,
			c.Table.Fresh, c.Rand, c.Logger))
	}
	return passes
}

func (c *Context) deobfuscationPasses() []transformer.Pass {
	cfg := c.Config.Deobfuscation
	var passes []transformer.Pass
	if cfg.Simplify {
		passes = append(passes, transformer.NewExpressionSimplifier(c.Logger))
	}
	if cfg.DeadVars {
		passes = append(passes, transformer.NewDeadCodeEliminator(c.Logger))
	}
	if cfg.Linearize {
		passes = append(passes, transformer.NewControlFlowLinearizer(cfg.LinearizeMode, c.Logger))
	}
	if cfg.InferNames {
		passes = append(passes, transformer.NewNameInferencer(c.Config.EntryPoint, c.Logger))
	}
	return passes
}

// runPasses applies passes in order. A panic inside a pass becomes an
// ErrInternal error and the stream must be discarded.
func (c *Context) runPasses(s *token.Stream, tree *cmini.Node, passes []transformer.Pass) (err error) {
	current := ""
	defer func() {
		if r := recover(); r != nil {
			c.Logger.Error("pass panicked", zap.String("pass", current), zap.Any("panic", r))
			err = fmt.Errorf("%w: pass %s: %v", ErrInternal, current, r)
		}
	}()
	for _, p := range passes {
		current = p.Name()
		start := time.Now()
		if err := p.Apply(s, tree); err != nil {
			return fmt.Errorf("pass %s: %w", p.Name(), err)
		}
		c.Logger.Debug("pass applied", zap.String("pass", p.Name()), zap.Duration("elapsed", time.Since(start)))
	}
	return nil
}

// Mapping returns the rename table built so far.
func (c *Context) Mapping() scrambler.Mapping {
	return c.Table.Mapping()
}

// SaveMapping writes the rename table as YAML.
func (c *Context) SaveMapping(path string) error {
	data, err := yaml.Marshal(c.Mapping())
	if err != nil {
		return fmt.Errorf("failed to marshal rename map: %w", err)
	}
	return writeFileAtomic(path, data)
}

func parse(body string) (*token.Stream, *cmini.Node, error) {
	s, err := cmini.Tokenize(body)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing failed: %w", err)
	}
	tree, err := cmini.Parse(s)
	if err != nil {
		return nil, nil, fmt.Errorf("parsing failed: %w", err)
	}
	return s, tree, nil
}

func directiveLines(dirs []cmini.Directive) []string {
	out := make([]string, 0, len(dirs))
	for _, d := range dirs {
		out = append(out, strings.TrimSpace(d.Text))
	}
	return out
}

func hasDirective(dirs []cmini.Directive, re *regexp.Regexp) bool {
	for _, d := range dirs {
		if re.MatchString(d.Text) {
			return true
		}
	}
	return false
}

func joinHeader(header []string, body string) string {
	if len(header) == 0 {
		return body
	}
	return strings.Join(header, "\n") + "\n" + body
}

// requiredIncludes lists the standard headers the rewritten text needs.
// The text is lexed again because passes fold several tokens into one.
func requiredIncludes(text string) (stdio, stdbool bool) {
	s, err := cmini.Tokenize(text)
	if err != nil {
		return false, false
	}
	for _, t := range s.Tokens() {
		switch t.Kind {
		case token.Ident:
			stdio = stdio || stdioFunctions[t.Text]
		case token.KwBool, token.KwTrue, token.KwFalse:
			stdbool = true
		}
	}
	return stdio, stdbool
}

// ProcessFile reads filePath and returns the output of the selected
// pipeline.
func ProcessFile(filePath string, octx *Context, mode Mode) (string, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("error reading file %s: %w", filePath, err)
	}
	out, err := octx.Transform(mode, string(src))
	if err != nil {
		return "", fmt.Errorf("%s %s: %w", mode, filePath, err)
	}
	return out, nil
}

// Run processes inPath and writes the result to outPath. Nothing is written
// unless the whole pipeline succeeds.
func Run(octx *Context, mode Mode, inPath, outPath string) error {
	out, err := ProcessFile(inPath, octx, mode)
	if err != nil {
		return err
	}
	if err := WriteOutput(outPath, out); err != nil {
		return err
	}
	octx.Logger.Info("wrote output",
		zap.String("mode", string(mode)),
		zap.String("input", inPath),
		zap.String("output", outPath),
		zap.Int("bytes", len(out)))
	return nil
}

// WriteOutput replaces path with out. Readers never see a partial file.
func WriteOutput(path, out string) error {
	if err := writeFileAtomic(path, []byte(out)); err != nil {
		return fmt.Errorf("error writing output file %s: %w", path, err)
	}
	return nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".cmixer-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
