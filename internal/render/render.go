// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package render rasterizes source pages to PNG with MuPDF. The images are
// reference snapshots for comparing generated pages against the original.
package render

import (
	"context"
	"errors"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// DefaultDPI is used when a non-positive resolution is requested.
const DefaultDPI = 150

// Renderer rasterizes every page of a document.
type Renderer struct{}

// Rasterize renders each page of the document at path at dpi and hands the
// encoded PNG to fn with its 1-based page number. It stops at the first
// error from fn or on cancellation.
func (Renderer) Rasterize(ctx context.Context, path string, dpi float64, fn func(page int, png []byte) error) error {
	if dpi <= 0 {
		dpi = DefaultDPI
	}

	doc, err := fitz.New(path)
	if err != nil {
		return fmt.Errorf("opening %s for rendering: %w", path, err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return errors.New("document has no pages")
	}
	for i := range n {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := doc.ImagePNG(i, dpi)
		if err != nil {
			return fmt.Errorf("rendering page %d: %w", i+1, err)
		}
		if err := fn(i+1, data); err != nil {
			return err
		}
	}
	return nil
}
