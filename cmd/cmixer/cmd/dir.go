package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/whit3rabbit/cmixer/internal/obfuscator"
)

var (
	outputDir string // Flag variable for output directory
	cleanMode bool   // Flag variable for cleaning target directory
	dirMode   string
)

// dirCmd represents the obfuscate dir command
var dirCmd = &cobra.Command{
	Use:   "dir <source_directory>",
	Short: "Obfuscate CMini code in a directory recursively",
	Long: `Recursively scans the source directory for .c and .cm files, applies
the selected pipeline, and writes the results to the target directory,
preserving the original structure. Every file gets its own rename table.
A failing file does not stop the run; all failures are listed at the end.`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		if outputDir == "" {
			return fmt.Errorf("output directory (-o, --output) is required for directory obfuscation")
		}
		sourceDir := args[0]
		fi, err := os.Stat(sourceDir)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("source directory '%s' not found", sourceDir)
			}
			return fmt.Errorf("error checking source directory '%s': %w", sourceDir, err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("source path '%s' is not a directory", sourceDir)
		}
		switch obfuscator.Mode(dirMode) {
		case obfuscator.ModeObfuscate, obfuscator.ModeDeobfuscate:
		default:
			return fmt.Errorf("unknown mode %q, want obfuscate or deobfuscate", dirMode)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		sourceDir := args[0]

		if cleanMode {
			if err := cleanTarget(outputDir); err != nil {
				return err
			}
		}

		files, err := obfuscator.CollectSources(sourceDir)
		if err != nil {
			return fmt.Errorf("error scanning %s: %w", sourceDir, err)
		}
		info("Found %d source files in %s\n", len(files), sourceDir)

		var bar *progressbar.ProgressBar
		if !cfg.Silent {
			bar = progressbar.NewOptions(len(files),
				progressbar.OptionSetDescription(string(obfuscator.Mode(dirMode))),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}))
		}

		results, runErr := obfuscator.ProcessDirectory(cfg, logger, obfuscator.Mode(dirMode), sourceDir, outputDir,
			func(obfuscator.FileResult) {
				if bar != nil {
					_ = bar.Add(1)
				}
			})
		if bar != nil {
			_ = bar.Finish()
			fmt.Fprintln(os.Stderr)
		}

		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
				if !cfg.Silent {
					color.New(color.FgRed).Fprintf(os.Stderr, "FAIL %s: %v\n", res.Path, res.Err)
				}
			}
		}
		info("%d of %d files written to %s\n", len(results)-failed, len(results), outputDir)
		if runErr != nil {
			return fmt.Errorf("%d files failed", failed)
		}
		return nil
	},
}

// cleanTarget removes the target directory, refusing paths that would wipe
// the root, the working directory or its parent.
func cleanTarget(targetPath string) error {
	if _, err := os.Stat(targetPath); os.IsNotExist(err) {
		info("Info: Target directory %s does not exist, no cleaning needed.\n", targetPath)
		return nil
	}
	clean := filepath.Clean(targetPath)
	isRoot := clean == filepath.VolumeName(clean)+string(filepath.Separator)
	if runtime.GOOS != "windows" {
		isRoot = clean == "/"
	}
	if isRoot || clean == "." || clean == ".." {
		return fmt.Errorf("refusing to clean potentially dangerous path: %s", targetPath)
	}
	if err := os.RemoveAll(clean); err != nil {
		return fmt.Errorf("failed to clean target directory %s: %w", targetPath, err)
	}
	info("Info: Target directory cleaned.\n")
	return nil
}

func init() {
	obfuscateCmd.AddCommand(dirCmd)
	dirCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (required)")
	dirCmd.Flags().BoolVar(&cleanMode, "clean", false, "Remove the output directory before writing")
	dirCmd.Flags().StringVar(&dirMode, "mode", string(obfuscator.ModeObfuscate), "Pipeline to run: obfuscate or deobfuscate")
}
