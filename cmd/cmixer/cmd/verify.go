package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/whit3rabbit/cmixer/internal/oracle"
)

// ErrNotEquivalent is returned when verification finds different behavior.
var ErrNotEquivalent = errors.New("programs are not equivalent")

var verifyYAML bool

// verifyCmd compares two programs by compiling and running them.
var verifyCmd = &cobra.Command{
	Use:   "verify <before> <after>",
	Short: "Check that two programs behave the same",
	Long: `Compiles both programs with the configured C compiler, runs them and
compares their standard output and exit status. The command fails when
either program does not compile or run, or when their behavior differs.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		before, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("error reading file %s: %w", args[0], err)
		}
		after, err := os.ReadFile(args[1])
		if err != nil {
			return fmt.Errorf("error reading file %s: %w", args[1], err)
		}
		return verifyPrograms(cmd, string(before), string(after))
	},
}

// verifyPrograms runs the oracle and prints its report.
func verifyPrograms(cmd *cobra.Command, before, after string) error {
	o := oracle.New(cfg.Oracle, logger)
	if !o.Available() {
		return fmt.Errorf("%w: %s", oracle.ErrToolchain, o.Compiler)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	rep, err := o.Compare(ctx, before, after)
	if err != nil {
		return err
	}

	if verifyYAML {
		data, err := yaml.Marshal(rep)
		if err != nil {
			return fmt.Errorf("failed to marshal report: %w", err)
		}
		cmd.OutOrStdout().Write(data)
	} else {
		oracle.WriteReport(cmd.ErrOrStderr(), rep)
	}
	if !rep.Matched {
		return ErrNotEquivalent
	}
	return nil
}

func init() {
	verifyCmd.Flags().BoolVar(&verifyYAML, "yaml", false, "Print the report as YAML on stdout")
}
