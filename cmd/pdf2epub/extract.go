// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Extract page content without generating an EPUB",
	Long: `Extract reads a PDF and writes the extraction snapshot (page geometry,
text runs, and normalized images) to <work-dir>/<name>/extracted. Use it
to inspect what a conversion will place on each page.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

func init() {
	f := extractCmd.Flags()
	f.Float64("scale", 0, "source-to-pixel scale factor (default 1.0)")
	f.Float64("reference-dpi", 0, "also rasterize each page at this DPI")
	configFlag(f, "scale", "extraction.scale")
	configFlag(f, "reference-dpi", "extraction.reference_dpi")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	src := args[0]
	res, err := newExtractor(true).Extract(cmd.Context(), src)
	if err != nil {
		return err
	}

	snap := newSnapshot(afero.NewOsFs())
	snap.Dir = filepath.Join(cfg.Extraction.WorkDir, strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)))
	path, err := snap.Write(cmd.Context(), res)
	if err != nil {
		return err
	}

	fmt.Printf("Extracted %s\n", src)
	fmt.Printf("  Title:  %s\n", res.Metadata.Title)
	fmt.Printf("  Pages:  %d\n", res.Stats.Pages)
	fmt.Printf("  Runs:   %d (%d characters)\n", res.Stats.Runs, res.Stats.Chars)
	fmt.Printf("  Images: %d\n", res.Stats.Images)
	if n := res.Stats.SkippedGlyphs + res.Stats.SkippedImages; n > 0 {
		fmt.Printf("  Skipped: %d glyphs, %d images\n", res.Stats.SkippedGlyphs, res.Stats.SkippedImages)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
	fmt.Printf("  Snapshot: %s\n", path)
	return nil
}
