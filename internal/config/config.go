// Package config handles loading and saving configuration for cmixer.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is read when no explicit path is given. Its absence is
// not an error.
const DefaultConfigFile = "cmixer.yaml"

// EnvPrefix prefixes every environment override, e.g.
// CMIXER_OBFUSCATION_DEAD_CODE_RATE=0.9.
const EnvPrefix = "CMIXER"

// Rename scopes.
const (
	RenameScopeScoped = "scoped"
	RenameScopeFlat   = "flat"
)

// Linearizer modes.
const (
	LinearizeModeSort  = "sort"
	LinearizeModeChain = "chain"
)

// RenameConfig controls identifier renaming.
type RenameConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Scope is "scoped" (one table for functions, one per function for
	// locals) or "flat" (a single shared namespace).
	Scope  string `yaml:"scope" mapstructure:"scope"`
	Length int    `yaml:"length" mapstructure:"length"`
}

// DeadCodeConfig controls dead declaration injection.
type DeadCodeConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// Rate is the probability, in [0, 1], that a given block receives a
	// dead declaration.
	Rate float64 `yaml:"rate" mapstructure:"rate"`
}

// ToggleConfig is a technique with no settings beyond on/off.
type ToggleConfig struct {
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
}

// ControlFlowConfig controls flattening of function bodies into a dispatch loop.
type ControlFlowConfig struct {
	Enabled       bool `yaml:"enabled" mapstructure:"enabled"`
	LabelMin      int  `yaml:"label_min" mapstructure:"label_min"`
	LabelMax      int  `yaml:"label_max" mapstructure:"label_max"`
	MinStatements int  `yaml:"min_statements" mapstructure:"min_statements"`
}

// ObfuscationConfig groups the obfuscation techniques.
type ObfuscationConfig struct {
	StripComments bool `yaml:"strip_comments" mapstructure:"strip_comments"`

	Rename      RenameConfig      `yaml:"rename" mapstructure:"rename"`
	DeadCode    DeadCodeConfig    `yaml:"dead_code" mapstructure:"dead_code"`
	Expressions ToggleConfig      `yaml:"expressions" mapstructure:"expressions"`
	ControlFlow ControlFlowConfig `yaml:"control_flow" mapstructure:"control_flow"`
}

// DeobfuscationConfig toggles the cleanup passes.
type DeobfuscationConfig struct {
	Simplify      bool   `yaml:"simplify" mapstructure:"simplify"`
	DeadVars      bool   `yaml:"dead_vars" mapstructure:"dead_vars"`
	Linearize     bool   `yaml:"linearize" mapstructure:"linearize"`
	LinearizeMode string `yaml:"linearize_mode" mapstructure:"linearize_mode"`
	InferNames    bool   `yaml:"infer_names" mapstructure:"infer_names"`
}

// OracleConfig controls the compile-and-run equivalence check.
type OracleConfig struct {
	Compiler     string        `yaml:"compiler" mapstructure:"compiler"`
	CompilerArgs []string      `yaml:"compiler_args" mapstructure:"compiler_args"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	// CompileTimeout bounds each compiler invocation.
	CompileTimeout time.Duration `yaml:"compile_timeout" mapstructure:"compile_timeout"`
}

// Config holds the complete configuration.
type Config struct {
	Silent    bool `yaml:"silent" mapstructure:"silent"`
	DebugMode bool `yaml:"debug" mapstructure:"debug"`

	// EntryPoint names the function that is never renamed.
	EntryPoint string `yaml:"entry_point" mapstructure:"entry_point"`
	// Seed makes runs reproducible. 0 seeds from the clock.
	Seed int64 `yaml:"seed" mapstructure:"seed"`

	Obfuscation   ObfuscationConfig   `yaml:"obfuscation" mapstructure:"obfuscation"`
	Deobfuscation DeobfuscationConfig `yaml:"deobfuscation" mapstructure:"deobfuscation"`
	Oracle        OracleConfig        `yaml:"oracle" mapstructure:"oracle"`
}

var (
	// Testing controls whether output is suppressed for testing purposes
	Testing bool
)

// PrintInfo prints an informational message unless Testing is set.
func PrintInfo(format string, args ...interface{}) {
	if !Testing {
		fmt.Printf(format, args...)
	}
}

// DefaultConfig returns a configuration with default settings.
func DefaultConfig() *Config {
	return &Config{
		Silent:     false,
		DebugMode:  false,
		EntryPoint: "main",
		Seed:       0,
		Obfuscation: ObfuscationConfig{
			StripComments: false,
			Rename: RenameConfig{
				Enabled: true,
				Scope:   RenameScopeScoped,
				Length:  6,
			},
			DeadCode: DeadCodeConfig{
				Enabled: true,
				Rate:    0.4,
			},
			Expressions: ToggleConfig{Enabled: true},
			ControlFlow: ControlFlowConfig{
				Enabled:       true,
				LabelMin:      100,
				LabelMax:      999,
				MinStatements: 1,
			},
		},
		Deobfuscation: DeobfuscationConfig{
			Simplify:      true,
			DeadVars:      true,
			Linearize:     true,
			LinearizeMode: LinearizeModeSort,
			InferNames:    true,
		},
		Oracle: OracleConfig{
			Compiler:     "gcc",
			CompilerArgs: []string{"-w"},
			Timeout:        5 * time.Second,
			CompileTimeout: 30 * time.Second,
		},
	}
}

// setDefaults registers every key so environment overrides are picked up
// even when no file mentions them.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("silent", cfg.Silent)
	v.SetDefault("debug", cfg.DebugMode)
	v.SetDefault("entry_point", cfg.EntryPoint)
	v.SetDefault("seed", cfg.Seed)

	o := cfg.Obfuscation
	v.SetDefault("obfuscation.strip_comments", o.StripComments)
	v.SetDefault("obfuscation.rename.enabled", o.Rename.Enabled)
	v.SetDefault("obfuscation.rename.scope", o.Rename.Scope)
	v.SetDefault("obfuscation.rename.length", o.Rename.Length)
	v.SetDefault("obfuscation.dead_code.enabled", o.DeadCode.Enabled)
	v.SetDefault("obfuscation.dead_code.rate", o.DeadCode.Rate)
	v.SetDefault("obfuscation.expressions.enabled", o.Expressions.Enabled)
	v.SetDefault("obfuscation.control_flow.enabled", o.ControlFlow.Enabled)
	v.SetDefault("obfuscation.control_flow.label_min", o.ControlFlow.LabelMin)
	v.SetDefault("obfuscation.control_flow.label_max", o.ControlFlow.LabelMax)
	v.SetDefault("obfuscation.control_flow.min_statements", o.ControlFlow.MinStatements)

	d := cfg.Deobfuscation
	v.SetDefault("deobfuscation.simplify", d.Simplify)
	v.SetDefault("deobfuscation.dead_vars", d.DeadVars)
	v.SetDefault("deobfuscation.linearize", d.Linearize)
	v.SetDefault("deobfuscation.linearize_mode", d.LinearizeMode)
	v.SetDefault("deobfuscation.infer_names", d.InferNames)

	v.SetDefault("oracle.compiler", cfg.Oracle.Compiler)
	v.SetDefault("oracle.compiler_args", cfg.Oracle.CompilerArgs)
	v.SetDefault("oracle.timeout", cfg.Oracle.Timeout)
	v.SetDefault("oracle.compile_timeout", cfg.Oracle.CompileTimeout)
}

// LoadConfig reads configuration from the given YAML file and CMIXER_
// environment variables on top of the defaults. An empty path means
// DefaultConfigFile, which may be absent; an explicit path must exist.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v, cfg)

	explicit := configPath != ""
	if !explicit {
		configPath = DefaultConfigFile
	}

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
		if !v.GetBool("silent") {
			PrintInfo("Info: Loaded configuration from %s\n", configPath)
		}
	} else if os.IsNotExist(err) {
		if explicit {
			return nil, fmt.Errorf("specified config file not found: %s", configPath)
		}
	} else {
		return nil, fmt.Errorf("error checking config file %s: %w", configPath, err)
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfig writes the default configuration to configPath.
func SaveConfig(configPath string) error {
	yamlData, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("error marshalling default config: %w", err)
	}
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating directory for config file %s: %w", configPath, err)
	}
	if err := os.WriteFile(configPath, yamlData, 0644); err != nil {
		return fmt.Errorf("error writing config file %s: %w", configPath, err)
	}
	PrintInfo("Info: Saved default configuration to %s\n", configPath)
	return nil
}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	o := c.Obfuscation
	switch o.Rename.Scope {
	case RenameScopeScoped, RenameScopeFlat:
	default:
		return fmt.Errorf("%w: unknown rename scope %q", ErrInvalid, o.Rename.Scope)
	}
	if o.Rename.Length < 2 {
		return fmt.Errorf("%w: rename length %d is below 2", ErrInvalid, o.Rename.Length)
	}
	if o.DeadCode.Rate < 0 || o.DeadCode.Rate > 1 {
		return fmt.Errorf("%w: dead code rate %v outside [0,1]", ErrInvalid, o.DeadCode.Rate)
	}
	cf := o.ControlFlow
	if cf.LabelMin < 1 || cf.LabelMax < cf.LabelMin {
		return fmt.Errorf("%w: empty label range [%d,%d]", ErrInvalid, cf.LabelMin, cf.LabelMax)
	}
	if cf.LabelMax > math.MaxInt32 {
		return fmt.Errorf("%w: label_max %d does not fit a C int", ErrInvalid, cf.LabelMax)
	}
	if cf.MinStatements < 1 {
		return fmt.Errorf("%w: min_statements must be at least 1", ErrInvalid)
	}
	switch c.Deobfuscation.LinearizeMode {
	case LinearizeModeSort, LinearizeModeChain:
	default:
		return fmt.Errorf("%w: unknown linearize mode %q", ErrInvalid, c.Deobfuscation.LinearizeMode)
	}
	if c.Oracle.Timeout <= 0 {
		return fmt.Errorf("%w: oracle timeout must be positive", ErrInvalid)
	}
	if c.Oracle.CompileTimeout < 0 {
		return fmt.Errorf("%w: oracle compile_timeout is negative", ErrInvalid)
	}
	if c.EntryPoint == "" {
		return fmt.Errorf("%w: entry_point is empty", ErrInvalid)
	}
	return nil
}
