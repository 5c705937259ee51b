package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/whit3rabbit/cmixer/internal/scrambler"
)

var (
	whatisMap      string
	whatisFunction string
)

// whatisCmd represents the whatis command
var whatisCmd = &cobra.Command{
	Use:   "whatis <generated_name>",
	Short: "Looks up the original name for a generated name",
	Long: `Reads a rename table saved with "cmixer obfuscate file --map" and prints
the original identifier behind a generated name. In scoped mode the same
generated name may stand for locals of several functions; --function
narrows the search to one of them.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if whatisMap == "" {
			return fmt.Errorf("--map (-m) flag is required")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		generated := args[0]
		cmd.SilenceUsage = true

		m, err := scrambler.LoadMapping(whatisMap)
		if err != nil {
			return err
		}
		info("Searching for original name of '%s' in %s (%s scope)\n", generated, whatisMap, m.Scope)

		found := false
		for _, origin := range m.Origins(generated) {
			if whatisFunction != "" && origin.Function != whatisFunction {
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Found: '%s'\n", origin)
			found = true
		}
		if !found {
			fmt.Fprintf(os.Stderr, "Error: Generated name '%s' not found in the rename map.\n", generated)
			return fmt.Errorf("name not found")
		}
		return nil
	},
}

func init() {
	whatisCmd.Flags().StringVarP(&whatisMap, "map", "m", "", "Rename map saved by a previous obfuscate run (required)")
	whatisCmd.Flags().StringVar(&whatisFunction, "function", "", "Only report locals of this function")
}
