// Package cmd implements the command line interface for the application.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/whit3rabbit/cmixer/internal/config"
)

var (
	cfgFile string         // Variable to hold the config file path from the flag
	cfg     *config.Config // Global variable to hold the loaded configuration
	logger  *zap.Logger

	// Flag variables mapped to config fields for override
	silentMode    bool    // -> cfg.Silent
	debugMode     bool    // -> cfg.DebugMode
	seed          int64   // -> cfg.Seed
	stripComments bool    // -> cfg.Obfuscation.StripComments
	rename        bool    // -> cfg.Obfuscation.Rename.Enabled
	renameScope   string  // -> cfg.Obfuscation.Rename.Scope
	deadCode      bool    // -> cfg.Obfuscation.DeadCode.Enabled
	deadCodeRate  float64 // -> cfg.Obfuscation.DeadCode.Rate
	expressions   bool    // -> cfg.Obfuscation.Expressions.Enabled
	controlFlow   bool    // -> cfg.Obfuscation.ControlFlow.Enabled
	linearizeMode string  // -> cfg.Deobfuscation.LinearizeMode
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "cmixer",
	Short: "Obfuscate and deobfuscate CMini programs.",
	Long: `cmixer renames identifiers, disguises arithmetic, injects dead code and
flattens control flow in CMini programs, reverses those transformations,
and verifies that two variants of a program behave the same.`,
	// Load configuration and build the logger before any subcommand runs.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfg != nil {
			return nil
		}
		if silentMode {
			config.Testing = true
		}
		loadedCfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading configuration: %w", err)
		}
		applyFlagOverrides(loadedCfg, cmd)
		if err := loadedCfg.Validate(); err != nil {
			return err
		}
		cfg = loadedCfg

		logger, err = newLogger(cfg)
		if err != nil {
			return fmt.Errorf("error creating logger: %w", err)
		}
		logger.Debug("configuration loaded", zap.String("path", cfgFile), zap.Int64("seed", cfg.Seed))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	// Run: Executes if no subcommand is given. Print help.
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// newLogger returns a no-op logger in silent mode, a development logger in
// debug mode and a console logger at warn level otherwise.
func newLogger(cfg *config.Config) (*zap.Logger, error) {
	switch {
	case cfg.Silent:
		return zap.NewNop(), nil
	case cfg.DebugMode:
		return zap.NewDevelopment()
	}
	zc := zap.NewProductionConfig()
	zc.Encoding = "console"
	zc.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	zc.DisableStacktrace = true
	return zc.Build()
}

// applyFlagOverrides applies command-line flag values to the config struct.
// Only overrides if the flag was explicitly set by the user via cmd.Flags().Changed().
func applyFlagOverrides(cfg *config.Config, cmd *cobra.Command) {
	flags := cmd.Flags()
	if flags.Changed("silent") {
		cfg.Silent = silentMode
	}
	if flags.Changed("debug") {
		cfg.DebugMode = debugMode
	}
	if flags.Changed("seed") {
		cfg.Seed = seed
	}
	if flags.Changed("strip-comments") {
		cfg.Obfuscation.StripComments = stripComments
	}
	if flags.Changed("rename") {
		cfg.Obfuscation.Rename.Enabled = rename
	}
	if flags.Changed("rename-scope") {
		cfg.Obfuscation.Rename.Scope = renameScope
	}
	if flags.Changed("dead-code") {
		cfg.Obfuscation.DeadCode.Enabled = deadCode
	}
	if flags.Changed("dead-code-rate") {
		cfg.Obfuscation.DeadCode.Rate = deadCodeRate
	}
	if flags.Changed("expressions") {
		cfg.Obfuscation.Expressions.Enabled = expressions
	}
	if flags.Changed("control-flow") {
		cfg.Obfuscation.ControlFlow.Enabled = controlFlow
	}
	if flags.Changed("linearize-mode") {
		cfg.Deobfuscation.LinearizeMode = linearizeMode
	}
}

// info prints progress messages unless silent mode is on.
func info(format string, args ...interface{}) {
	if cfg == nil || !cfg.Silent {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra prints the error. We just need to exit non-zero.
		os.Exit(1)
	}
}

// registerFlags defines the global flags on c.
func registerFlags(c *cobra.Command) {
	pf := c.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./"+config.DefaultConfigFile+" when present)")

	pf.BoolVarP(&silentMode, "silent", "s", false, "Suppress informational output (overrides config)")
	pf.BoolVar(&debugMode, "debug", false, "Log every pass at debug level (overrides config)")
	pf.Int64Var(&seed, "seed", 0, "Random seed for reproducible output, 0 seeds from the clock (overrides config)")
	pf.BoolVar(&stripComments, "strip-comments", false, "Enable/disable comment stripping (overrides config)")
	pf.BoolVar(&rename, "rename", true, "Enable/disable identifier renaming (overrides config)")
	pf.StringVar(&renameScope, "rename-scope", config.RenameScopeScoped, "Rename scope: scoped or flat (overrides config)")
	pf.BoolVar(&deadCode, "dead-code", true, "Enable/disable dead code injection (overrides config)")
	pf.Float64Var(&deadCodeRate, "dead-code-rate", 0.4, "Probability that a block receives dead code (overrides config)")
	pf.BoolVar(&expressions, "expressions", true, "Enable/disable arithmetic disguises (overrides config)")
	pf.BoolVar(&controlFlow, "control-flow", true, "Enable/disable control flow flattening (overrides config)")
	pf.StringVar(&linearizeMode, "linearize-mode", config.LinearizeModeSort, "Dispatch loop recovery: sort or chain (overrides config)")
}

func init() {
	registerFlags(rootCmd)
	rootCmd.AddCommand(obfuscateCmd)
	rootCmd.AddCommand(deobfuscateCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(whatisCmd)
}
