package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/cmixer/internal/obfuscator"
)

var (
	outputFile string // Flag variable for output file path
	mapFile    string
	verifyFile bool
)

// fileCmd represents the obfuscate file command
var fileCmd = &cobra.Command{
	Use:   "file <source_file>",
	Short: "Obfuscate a single CMini file",
	Long: `Reads a single source file, applies the configured obfuscation
techniques, and outputs the result to stdout or a specified file.

With --map the rename table is saved as YAML; "cmixer whatis" reads it back.
With --verify both versions are compiled and run, and the command fails
unless they behave the same.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return transformFile(cmd, obfuscator.ModeObfuscate, args[0], outputFile, mapFile, verifyFile)
	},
}

// transformFile runs one pipeline over filePath. The result goes to
// outPath, or stdout when outPath is empty.
func transformFile(cmd *cobra.Command, mode obfuscator.Mode, filePath, outPath, mapPath string, verify bool) error {
	octx, err := obfuscator.NewContext(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize transformation context: %w", err)
	}
	info("Processing file: %s (%s, seed %d)\n", filePath, mode, octx.Seed)

	out, err := obfuscator.ProcessFile(filePath, octx, mode)
	if err != nil {
		return err
	}

	if outPath != "" {
		if err := obfuscator.WriteOutput(outPath, out); err != nil {
			return err
		}
		info("Info: Wrote output to file: %s\n", outPath)
	} else {
		fmt.Fprint(cmd.OutOrStdout(), out)
	}

	if mapPath != "" {
		if err := octx.SaveMapping(mapPath); err != nil {
			return fmt.Errorf("error saving rename map: %w", err)
		}
		info("Info: Saved rename map to %s\n", mapPath)
	}

	if verify {
		before, err := os.ReadFile(filePath)
		if err != nil {
			return fmt.Errorf("error reading file %s: %w", filePath, err)
		}
		return verifyPrograms(cmd, string(before), out)
	}
	return nil
}

func init() {
	obfuscateCmd.AddCommand(fileCmd)
	fileCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file path (default: stdout)")
	fileCmd.Flags().StringVar(&mapFile, "map", "", "Save the rename table as YAML to this path")
	fileCmd.Flags().BoolVar(&verifyFile, "verify", false, "Compile and run both versions and compare their behavior")
}
