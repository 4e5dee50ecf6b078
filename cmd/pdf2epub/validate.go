// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2epub/internal/validate"
)

var validateCmd = &cobra.Command{
	Use:   "validate <pdf> <epub>",
	Short: "Validate an EPUB against its source PDF",
	Long: `Validate re-extracts the source PDF and compares it with an existing
EPUB: page count, image count, text volume, and container structure.
The report is written to --report when given.`,
	Args: cobra.ExactArgs(2),
	RunE: runValidate,
}

func init() {
	f := validateCmd.Flags()
	f.String("report", "", "write the report to this path (.json or .yaml)")
	f.Float64("text-tolerance", 0, "allowed relative character count difference (default 0.02)")
	f.Bool("epubcheck", false, "also run epubcheck in docker or podman")
	configFlag(f, "text-tolerance", "validation.text_tolerance")
	configFlag(f, "epubcheck", "validation.epubcheck")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	src, book := args[0], args[1]
	reportPath, _ := cmd.Flags().GetString("report")

	res, err := newExtractor(false).Extract(cmd.Context(), src)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	report := newValidator(fs).Validate(cmd.Context(), src, book, res.Pages)
	if reportPath != "" {
		if err := validate.WriteReport(fs, reportPath, report); err != nil {
			return err
		}
	}

	fmt.Print(validate.Summary(report))
	if !report.OverallStatus {
		return errors.New("validation failed")
	}
	fmt.Println("Validation passed")
	return nil
}
