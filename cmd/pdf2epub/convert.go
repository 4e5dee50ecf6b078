// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/pdiddy/pdf2epub/internal/convert"
	"github.com/pdiddy/pdf2epub/internal/validate"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [pdfs...]",
	Short: "Convert PDF files to fixed-layout EPUB",
	Long: `Convert extracts every page of each PDF, writes a fixed-layout EPUB 3
container that reproduces the page geometry, and validates the result
against the source. Existing outputs are skipped unless --force is given.

With a single input, --output names the EPUB. Otherwise each book is
written to --out-dir as <name>.epub.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runConvert,
}

func init() {
	f := convertCmd.Flags()
	f.StringP("output", "o", "", "output EPUB path (single input only)")
	f.String("out-dir", ".", "directory for converted EPUBs")
	f.Bool("force", false, "overwrite existing EPUBs")
	f.Float64("scale", 0, "source-to-pixel scale factor (default 1.0)")
	f.Int("workers", 0, "pages extracted concurrently (default NumCPU)")
	f.String("language", "", "dc:language of the book (default en)")
	f.String("font-family", "", "font family for every text run (default serif)")
	f.String("orientation", "", "rendition orientation: portrait, landscape, or auto")
	f.Bool("validate", true, "validate the EPUB after generation")
	f.Bool("epubcheck", false, "also run epubcheck in docker or podman")
	f.Bool("keep-artifacts", false, "write the extraction snapshot to the work directory")
	f.Float64("reference-dpi", 0, "rasterize reference page images at this DPI (needs --keep-artifacts)")
	f.Bool("history", true, "record the run in the history ledger")
	f.Bool("progress", true, "show a page progress bar")

	configFlag(f, "scale", "extraction.scale")
	configFlag(f, "workers", "extraction.workers")
	configFlag(f, "keep-artifacts", "extraction.keep_artifacts")
	configFlag(f, "reference-dpi", "extraction.reference_dpi")
	configFlag(f, "language", "generation.language")
	configFlag(f, "font-family", "generation.font_family")
	configFlag(f, "orientation", "generation.orientation")
	configFlag(f, "validate", "validation.enabled")
	configFlag(f, "epubcheck", "validation.epubcheck")
	configFlag(f, "history", "history.enabled")

	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	outDir, _ := cmd.Flags().GetString("out-dir")
	force, _ := cmd.Flags().GetBool("force")
	showProgress, _ := cmd.Flags().GetBool("progress")

	if output != "" && len(args) > 1 {
		return fmt.Errorf("--output takes a single input; use --out-dir for %d inputs", len(args))
	}

	pipeline, cleanup, err := newPipeline(showProgress)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	if output == "" {
		result := convert.ConvertBatch(ctx, pipeline, afero.NewOsFs(), args, outDir, force, os.Stdout)
		if result.HasFailures() {
			return fmt.Errorf("%d file(s) failed conversion", result.Failed)
		}
		return ctx.Err()
	}

	if !force {
		if _, err := os.Stat(output); err == nil {
			fmt.Printf("skipped: %s (already exists)\n", output)
			return nil
		}
	}
	out, err := pipeline.Convert(ctx, args[0], output)
	if err != nil {
		return err
	}
	printSummary(out)
	return nil
}

// printSummary prints the end-of-run banner for one conversion.
func printSummary(out *convert.Outcome) {
	title := color.New(color.FgGreen, color.Bold)
	if out.Status != types.ConversionDone {
		title = color.New(color.FgYellow, color.Bold)
	}
	title.Println("Conversion complete")

	fmt.Printf("  Input:  %s\n", out.Source)
	fmt.Printf("  Output: %s\n", out.Output)
	if c := out.Container; c != nil {
		fmt.Printf("  Size:   %.2f MB\n", float64(c.Size)/(1024*1024))
		fmt.Printf("  Pages:  %d, images: %d\n", c.Pages, c.Images)
	}
	if res := out.Extraction; res != nil && len(res.Warnings) > 0 {
		color.Yellow("  %d element(s) skipped during extraction", len(res.Warnings))
	}
	if out.Report != nil {
		status := color.GreenString("PASSED")
		if !out.Report.OverallStatus {
			status = color.RedString("FAILED")
		}
		fmt.Printf("  Validation: %s\n", status)
		fmt.Print(validate.Summary(out.Report))
		if out.ReportPath != "" {
			fmt.Printf("  Report: %s\n", out.ReportPath)
		}
	}
	fmt.Printf("  Time:   %s\n", out.Duration.Round(time.Millisecond))
}
