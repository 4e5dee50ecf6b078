// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

const (
	snapshotDir  = "extracted"
	imagesDir    = "images"
	metadataDir  = "metadata"
	metadataFile = "extraction_metadata.yaml"
)

// Rasterizer renders whole pages of a source document to PNG.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, dpi float64, fn func(page int, png []byte) error) error
}

// Snapshot persists an extraction result under a work directory:
//
//	extracted/metadata/extraction_metadata.yaml
//	extracted/images/page_NNN_img_NN.png
//	extracted/images/page_NNN_reference.png   (when Rasterizer is set)
type Snapshot struct {
	FS  afero.Fs
	Dir string

	Rasterizer Rasterizer
	DPI        float64
}

type snapshotMetadata struct {
	Source     string                `yaml:"source"`
	Title      string                `yaml:"title"`
	Author     string                `yaml:"author,omitempty"`
	TotalPages int                   `yaml:"total_pages"`
	Stats      Stats                 `yaml:"stats"`
	Pages      []snapshotPage        `yaml:"pages"`
	Warnings   []types.DecodeWarning `yaml:"warnings,omitempty"`
}

type snapshotPage struct {
	Number int             `yaml:"page_number"`
	Width  float64         `yaml:"width"`
	Height float64         `yaml:"height"`
	Runs   []types.TextRun `yaml:"text_runs"`
	Images []string        `yaml:"images"`
}

// Write stores res under s.Dir and returns the metadata file path.
func (s Snapshot) Write(ctx context.Context, res *Result) (string, error) {
	imgDir := filepath.Join(s.Dir, snapshotDir, imagesDir)
	metaDir := filepath.Join(s.Dir, snapshotDir, metadataDir)
	for _, dir := range []string{imgDir, metaDir} {
		if err := s.FS.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	meta := snapshotMetadata{
		Source:     res.Source,
		Title:      res.Metadata.Title,
		Author:     res.Metadata.Author,
		TotalPages: len(res.Pages),
		Stats:      res.Stats,
		Warnings:   res.Warnings,
	}
	for _, p := range res.Pages {
		sp := snapshotPage{Number: p.Index, Width: p.Width, Height: p.Height, Runs: p.Runs}
		for i, img := range p.Images {
			name := types.ImageFileName(p.Index, i)
			if err := afero.WriteFile(s.FS, filepath.Join(imgDir, name), img.Data, 0o644); err != nil {
				return "", fmt.Errorf("writing %s: %w", name, err)
			}
			sp.Images = append(sp.Images, name)
		}
		meta.Pages = append(meta.Pages, sp)
	}

	if s.Rasterizer != nil && s.DPI > 0 {
		err := s.Rasterizer.Rasterize(ctx, res.Source, s.DPI, func(page int, png []byte) error {
			name := fmt.Sprintf("page_%03d_reference.png", page)
			return afero.WriteFile(s.FS, filepath.Join(imgDir, name), png, 0o644)
		})
		if err != nil {
			return "", fmt.Errorf("rendering reference pages: %w", err)
		}
	}

	data, err := yaml.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("marshaling snapshot metadata: %w", err)
	}
	path := filepath.Join(metaDir, metadataFile)
	if err := afero.WriteFile(s.FS, path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
