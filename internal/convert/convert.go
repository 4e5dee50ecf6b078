// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package convert sequences extraction, generation and validation for one
// source document, and runs batches of sources with per-file status lines.
package convert

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// Converter turns one source file into a container at dest. *Pipeline
// implements it.
type Converter interface {
	Convert(ctx context.Context, src, dest string) (*Outcome, error)
}

// BatchResult holds the outcome of a batch conversion run.
type BatchResult struct {
	Converted int
	Partial   int
	Skipped   int
	Failed    int
}

// Total returns the total number of sources processed.
func (r BatchResult) Total() int {
	return r.Converted + r.Partial + r.Skipped + r.Failed
}

// HasFailures reports whether any source failed conversion.
func (r BatchResult) HasFailures() bool {
	return r.Failed > 0
}

// OutputPath returns the container path for src inside outDir.
func OutputPath(src, outDir string) string {
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	return filepath.Join(outDir, base+".epub")
}

// ConvertFile converts one source into outDir, printing a status line to w.
// An existing container is left alone unless force is set.
func ConvertFile(ctx context.Context, c Converter, fs afero.Fs, src, outDir string, force bool, w io.Writer) types.ConversionStatus {
	dest := OutputPath(src, outDir)
	base := filepath.Base(src)

	if !force {
		if ok, _ := afero.Exists(fs, dest); ok {
			fmt.Fprintf(w, "skipped: %s (already exists)\n", base)
			return types.ConversionNone
		}
	}

	out, err := c.Convert(ctx, src, dest)
	if err != nil {
		fmt.Fprintf(w, "failed:  %s (%v)\n", base, err)
		return types.ConversionFailed
	}

	if out.Status == types.ConversionPartial {
		fmt.Fprintf(w, "partial: %s -> %s (see validation report)\n", base, dest)
		return types.ConversionPartial
	}
	fmt.Fprintf(w, "converted: %s -> %s\n", base, dest)
	return types.ConversionDone
}

// ConvertBatch converts every source in order, printing per-file status to
// w and returning a summary. Cancellation stops the batch after the
// current file.
func ConvertBatch(ctx context.Context, c Converter, fs afero.Fs, srcs []string, outDir string, force bool, w io.Writer) BatchResult {
	var result BatchResult
	for _, src := range srcs {
		if ctx.Err() != nil {
			fmt.Fprintf(w, "cancelled: %d sources not processed\n", len(srcs)-result.Total())
			break
		}
		switch ConvertFile(ctx, c, fs, src, outDir, force, w) {
		case types.ConversionDone:
			result.Converted++
		case types.ConversionPartial:
			result.Partial++
		case types.ConversionNone:
			result.Skipped++
		case types.ConversionFailed:
			result.Failed++
		}
	}
	fmt.Fprintf(w, "\nBatch summary: %d converted, %d partial, %d skipped, %d failed (total: %d)\n",
		result.Converted, result.Partial, result.Skipped, result.Failed, result.Total())
	return result
}
