// Package oracle checks that two program variants behave the same by
// compiling and running both with an external C compiler.
package oracle

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/whit3rabbit/cmixer/internal/config"
)

var (
	// ErrToolchain means the compiler could not be started.
	ErrToolchain = errors.New("compiler not available")
	// ErrCompile means the compiler rejected the program.
	ErrCompile = errors.New("compilation failed")
	// ErrTimeout means the program did not finish within the run timeout.
	ErrTimeout = errors.New("run timed out")
	// ErrRun means the program could not be started or was killed.
	ErrRun = errors.New("run failed")
)

// Result is the outcome of compiling and running one variant.
type Result struct {
	Size     int
	RanOK    bool
	Stdout   string
	ExitCode int
	Elapsed  time.Duration
	Err      error
}

// Report compares two variants. A variant ran OK when it compiled and ran to
// completion within the timeout; a non-zero exit status is an observable
// result, not a failure. Matched requires both variants to have run OK with
// identical stdout and exit status.
type Report struct {
	SizeBefore int `yaml:"size_before"`
	SizeAfter  int `yaml:"size_after"`

	RanOK1 bool `yaml:"ran_ok_1"`
	RanOK2 bool `yaml:"ran_ok_2"`

	Stdout1 string `yaml:"stdout_1"`
	Stdout2 string `yaml:"stdout_2"`

	ExitCode1 int `yaml:"exit_code_1"`
	ExitCode2 int `yaml:"exit_code_2"`

	Elapsed1 time.Duration `yaml:"elapsed_1"`
	Elapsed2 time.Duration `yaml:"elapsed_2"`

	Err1 string `yaml:"error_1,omitempty"`
	Err2 string `yaml:"error_2,omitempty"`

	Matched bool `yaml:"matched"`
}

// waitDelay is how long Wait keeps reading a killed program's output before
// it closes the pipes, in case a child process inherited them.
const waitDelay = 500 * time.Millisecond

// Oracle compiles and runs programs.
type Oracle struct {
	Compiler       string
	CompilerArgs   []string
	Timeout        time.Duration
	CompileTimeout time.Duration
	Logger         *zap.Logger
}

// New creates an oracle from configuration.
func New(cfg config.OracleConfig, logger *zap.Logger) *Oracle {
	if logger == nil {
		logger = zap.NewNop()
	}
	o := &Oracle{
		Compiler:       cfg.Compiler,
		CompilerArgs:   cfg.CompilerArgs,
		Timeout:        cfg.Timeout,
		CompileTimeout: cfg.CompileTimeout,
		Logger:         logger,
	}
	if o.Compiler == "" {
		o.Compiler = "gcc"
	}
	if o.Timeout <= 0 {
		o.Timeout = 5 * time.Second
	}
	if o.CompileTimeout <= 0 {
		o.CompileTimeout = 30 * time.Second
	}
	return o
}

// Available reports whether the compiler can be found.
func (o *Oracle) Available() bool {
	_, err := exec.LookPath(o.Compiler)
	return err == nil
}

// Compare compiles and runs both variants concurrently. Variant failures are
// recorded in the report; an error is returned only when ctx ends.
func (o *Oracle) Compare(ctx context.Context, before, after string) (*Report, error) {
	var r1, r2 Result
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r1 = o.Run(gctx, "before", before)
		return ctx.Err()
	})
	g.Go(func() error {
		r2 = o.Run(gctx, "after", after)
		return ctx.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rep := &Report{
		SizeBefore: r1.Size,
		SizeAfter:  r2.Size,
		RanOK1:     r1.RanOK,
		RanOK2:     r2.RanOK,
		Stdout1:    r1.Stdout,
		Stdout2:    r2.Stdout,
		ExitCode1:  r1.ExitCode,
		ExitCode2:  r2.ExitCode,
		Elapsed1:   r1.Elapsed,
		Elapsed2:   r2.Elapsed,
	}
	if r1.Err != nil {
		rep.Err1 = r1.Err.Error()
	}
	if r2.Err != nil {
		rep.Err2 = r2.Err.Error()
	}
	rep.Matched = r1.RanOK && r2.RanOK && r1.Stdout == r2.Stdout && r1.ExitCode == r2.ExitCode
	o.Logger.Debug("oracle verdict",
		zap.Bool("matched", rep.Matched),
		zap.Bool("ran_ok_1", rep.RanOK1),
		zap.Bool("ran_ok_2", rep.RanOK2),
		zap.Int("exit_1", rep.ExitCode1),
		zap.Int("exit_2", rep.ExitCode2))
	return rep, nil
}

// Run compiles src into a private temporary directory and runs the binary.
func (o *Oracle) Run(ctx context.Context, name, src string) Result {
	res := Result{Size: len(src)}

	dir, err := os.MkdirTemp("", "cmixer-"+name+"-")
	if err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrRun, err)
		return res
	}
	defer os.RemoveAll(dir)

	srcPath := filepath.Join(dir, name+".c")
	binPath := filepath.Join(dir, name+".bin")
	if err := os.WriteFile(srcPath, []byte(src), 0644); err != nil {
		res.Err = fmt.Errorf("%w: %v", ErrRun, err)
		return res
	}

	if err := o.compile(ctx, srcPath, binPath); err != nil {
		res.Err = err
		o.Logger.Debug("compile failed", zap.String("variant", name), zap.Error(err))
		return res
	}

	runCtx, cancel := context.WithTimeout(ctx, o.Timeout)
	defer cancel()
	var stdout bytes.Buffer
	cmd := command(runCtx, binPath)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	start := time.Now()
	err = cmd.Run()
	res.Elapsed = time.Since(start)
	res.Stdout = stdout.String()

	switch {
	case runCtx.Err() == context.DeadlineExceeded:
		res.Err = fmt.Errorf("%w after %v", ErrTimeout, o.Timeout)
	case err == nil:
		res.RanOK = true
	default:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.Exited() {
			res.RanOK = true
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.Err = fmt.Errorf("%w: %v", ErrRun, err)
		}
	}
	o.Logger.Debug("variant finished",
		zap.String("variant", name),
		zap.Bool("ran_ok", res.RanOK),
		zap.Int("exit", res.ExitCode),
		zap.Duration("elapsed", res.Elapsed))
	return res
}

func (o *Oracle) compile(ctx context.Context, srcPath, binPath string) error {
	compileCtx, cancel := context.WithTimeout(ctx, o.CompileTimeout)
	defer cancel()

	args := append(append([]string{}, o.CompilerArgs...), "-o", binPath, srcPath)
	cmd := command(compileCtx, o.Compiler, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if compileCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return fmt.Errorf("%w: compiling after %v", ErrTimeout, o.CompileTimeout)
		}
		if errors.Is(err, exec.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrToolchain, o.Compiler)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: %s", ErrCompile, bytes.TrimSpace(stderr.Bytes()))
		}
		return fmt.Errorf("%w: %v", ErrToolchain, err)
	}
	return nil
}

// command builds a process that is killed when ctx ends and whose Wait
// returns at most waitDelay later.
func command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.WaitDelay = waitDelay
	return cmd
}
