// Package api provides the public API for using the CMini obfuscator as a
// library.
//
// It exposes the same pipelines as the command-line interface: obfuscation
// and deobfuscation of source strings, files and directories, and the
// equivalence check that compiles and runs two variants.
//
// Basic usage example:
//
//	obf, err := api.NewObfuscator(api.Options{ConfigPath: "cmixer.yaml"})
//	if err != nil {
//	    log.Fatalf("Failed to create obfuscator: %v", err)
//	}
//
//	result, err := obf.ObfuscateCode("int main() { int x = 1; return x + 2; }")
//	if err != nil {
//	    log.Fatalf("Failed to obfuscate code: %v", err)
//	}
//
//	fmt.Println(result) // Prints the obfuscated program
package api

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/config"
	"github.com/whit3rabbit/cmixer/internal/obfuscator"
	"github.com/whit3rabbit/cmixer/internal/oracle"
	"github.com/whit3rabbit/cmixer/internal/scrambler"
)

// Report is the result of an equivalence check.
type Report = oracle.Report

// Mapping is the rename table of one obfuscation run.
type Mapping = scrambler.Mapping

// PrintInfo prints formatted information to stdout, respecting the Testing flag.
// If Testing mode is active, no output will be generated.
// This function forwards to the internal config.PrintInfo function.
func PrintInfo(format string, args ...interface{}) {
	config.PrintInfo(format, args...)
}

// Obfuscator runs obfuscation and deobfuscation with one configuration.
// Every call works on a fresh transformation context, so programs never
// share rename state. It is safe for concurrent use.
type Obfuscator struct {
	// Config holds the configuration settings for obfuscation
	Config *config.Config
	Logger *zap.Logger

	mu   sync.Mutex
	last *obfuscator.Context
}

// Options represents configuration options for creating a new Obfuscator instance.
type Options struct {
	// ConfigPath is the path to a YAML configuration file
	// If empty, ./cmixer.yaml is used when present, defaults otherwise
	ConfigPath string

	// Silent suppresses informational messages during obfuscation
	Silent bool

	// Seed fixes the random source for reproducible output. Zero keeps the
	// configured seed.
	Seed int64

	// Logger receives pass diagnostics. Nil discards them.
	Logger *zap.Logger
}

// NewObfuscator creates a new Obfuscator instance using the provided options.
//
// Returns an error if the configuration cannot be loaded or is invalid.
func NewObfuscator(options Options) (*Obfuscator, error) {
	cfg, err := config.LoadConfig(options.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if options.Silent {
		cfg.Silent = true
	}
	if options.Seed != 0 {
		cfg.Seed = options.Seed
	}
	logger := options.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Obfuscator{Config: cfg, Logger: logger}, nil
}

func (o *Obfuscator) newContext() (*obfuscator.Context, error) {
	octx, err := obfuscator.NewContext(o.Config, o.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create transformation context: %w", err)
	}
	o.mu.Lock()
	o.last = octx
	o.mu.Unlock()
	return octx, nil
}

// ObfuscateCode obfuscates a program and returns the result.
func (o *Obfuscator) ObfuscateCode(code string) (string, error) {
	octx, err := o.newContext()
	if err != nil {
		return "", err
	}
	result, err := octx.Obfuscate(code)
	if err != nil {
		return "", fmt.Errorf("failed to obfuscate code: %w", err)
	}
	return result, nil
}

// DeobfuscateCode reverses the disguises the obfuscator knows about.
func (o *Obfuscator) DeobfuscateCode(code string) (string, error) {
	octx, err := o.newContext()
	if err != nil {
		return "", err
	}
	result, err := octx.Deobfuscate(code)
	if err != nil {
		return "", fmt.Errorf("failed to deobfuscate code: %w", err)
	}
	return result, nil
}

// ObfuscateFile obfuscates a file and returns the obfuscated code.
func (o *Obfuscator) ObfuscateFile(filePath string) (string, error) {
	octx, err := o.newContext()
	if err != nil {
		return "", err
	}
	result, err := obfuscator.ProcessFile(filePath, octx, obfuscator.ModeObfuscate)
	if err != nil {
		return "", fmt.Errorf("failed to obfuscate file %s: %w", filePath, err)
	}
	return result, nil
}

// ObfuscateFileToFile obfuscates inputPath and writes the result to
// outputPath. Nothing is written when obfuscation fails.
func (o *Obfuscator) ObfuscateFileToFile(inputPath, outputPath string) error {
	return o.run(obfuscator.ModeObfuscate, inputPath, outputPath)
}

// DeobfuscateFileToFile deobfuscates inputPath and writes the result to
// outputPath.
func (o *Obfuscator) DeobfuscateFileToFile(inputPath, outputPath string) error {
	return o.run(obfuscator.ModeDeobfuscate, inputPath, outputPath)
}

func (o *Obfuscator) run(mode obfuscator.Mode, inputPath, outputPath string) error {
	octx, err := o.newContext()
	if err != nil {
		return err
	}
	return obfuscator.Run(octx, mode, inputPath, outputPath)
}

// ObfuscateDirectory obfuscates every source file below inputDir into the
// same relative path below outputDir. All files are attempted; the returned
// error lists every failure.
func (o *Obfuscator) ObfuscateDirectory(inputDir, outputDir string) error {
	results, err := obfuscator.ProcessDirectory(o.Config, o.Logger, obfuscator.ModeObfuscate, inputDir, outputDir, nil)
	if !o.Config.Silent {
		PrintInfo("Processed %d files from %s\n", len(results), inputDir)
	}
	return err
}

// Verify compiles and runs both programs and reports whether they behave
// the same. Compile and run failures are recorded in the report.
func (o *Obfuscator) Verify(ctx context.Context, before, after string) (*Report, error) {
	return oracle.New(o.Config.Oracle, o.Logger).Compare(ctx, before, after)
}

// LastMapping returns the rename table of the most recent call.
func (o *Obfuscator) LastMapping() (Mapping, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.last == nil {
		return Mapping{}, false
	}
	return o.last.Mapping(), true
}

// LookupObfuscatedName returns the generated name of an identifier in the
// most recent run. An empty fn looks up a function name; otherwise name is
// a parameter or variable of function fn.
func (o *Obfuscator) LookupObfuscatedName(name, fn string) (string, error) {
	o.mu.Lock()
	octx := o.last
	o.mu.Unlock()
	if octx == nil {
		return "", fmt.Errorf("no obfuscation has run yet")
	}

	var (
		obfuscated string
		found      bool
	)
	if fn == "" {
		obfuscated, found = octx.Table.LookupFunction(name)
	} else {
		obfuscated, found = octx.Table.LookupLocal(fn, name)
	}
	if !found {
		return "", fmt.Errorf("name %q not found in rename table", name)
	}
	return obfuscated, nil
}
