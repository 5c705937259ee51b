package cmd

import (
	"github.com/spf13/cobra"

	"github.com/whit3rabbit/cmixer/internal/obfuscator"
)

var (
	deobOutput string
	deobVerify bool
)

// deobfuscateCmd reverses the obfuscation techniques on one file.
var deobfuscateCmd = &cobra.Command{
	Use:   "deobfuscate <source_file>",
	Short: "Simplify an obfuscated CMini file",
	Long: `Removes arithmetic disguises and unused declarations, turns dispatch
loops back into straight-line code and gives functions and variables
descriptive names.

Example:
  cmixer deobfuscate obfuscated.c -o clean.c --verify`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return transformFile(cmd, obfuscator.ModeDeobfuscate, args[0], deobOutput, "", deobVerify)
	},
}

func init() {
	deobfuscateCmd.Flags().StringVarP(&deobOutput, "output", "o", "", "Output file path (default: stdout)")
	deobfuscateCmd.Flags().BoolVar(&deobVerify, "verify", false, "Compile and run both versions and compare their behavior")
}
