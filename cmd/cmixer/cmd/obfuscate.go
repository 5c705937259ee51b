package cmd

import (
	"github.com/spf13/cobra"
)

// obfuscateCmd represents the base command for obfuscation actions
var obfuscateCmd = &cobra.Command{
	Use:   "obfuscate",
	Short: "Obfuscates CMini code using various methods",
	Long: `Provides subcommands to obfuscate individual files or entire directories.

Example:
  cmixer obfuscate file input.c -o output.c --map rename.yaml
  cmixer obfuscate dir ./src -o ./dist --clean`,
}
