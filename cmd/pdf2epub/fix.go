// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2epub/internal/fixer"
)

var fixCmd = &cobra.Command{
	Use:   "fix <epub>",
	Short: "Repair a fixed-layout EPUB exported by InDesign",
	Long: `Fix removes the CSS transforms InDesign puts on page frames, replaces
embedded font families with the stacks in fixer.font_map, and drops the
embedded font files. The result is written next to the input as
<name>_fixed.epub unless --output is given.`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	f := fixCmd.Flags()
	f.StringP("output", "o", "", "output EPUB path")
	f.Bool("keep-fonts", false, "keep embedded font files")
	rootCmd.AddCommand(fixCmd)
}

func runFix(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	keepFonts, _ := cmd.Flags().GetBool("keep-fonts")

	fc := cfg.Fixer
	if keepFonts {
		fc.RemoveFonts = false
	}
	res, err := fixer.New(afero.NewOsFs(), fc, fixer.WithLogger(logger)).Fix(cmd.Context(), args[0], output)
	if err != nil {
		return err
	}

	fmt.Printf("Fixed %s -> %s\n", res.Input, res.Output)
	fmt.Printf("  Documents rewritten:   %d\n", res.Documents)
	fmt.Printf("  Stylesheets rewritten: %d\n", res.Stylesheets)
	fmt.Printf("  Fonts removed:         %d (%d manifest items)\n", res.FontsRemoved, res.ManifestItems)
	return nil
}
