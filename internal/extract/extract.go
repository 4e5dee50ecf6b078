// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package extract reads a source document page by page and produces
// positioned text runs and image placements in target coordinates.
package extract

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pdf2epub/internal/source"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

// Stats counts what an extraction produced and skipped.
type Stats struct {
	Pages         int `json:"pages" yaml:"pages"`
	Runs          int `json:"runs" yaml:"runs"`
	Images        int `json:"images" yaml:"images"`
	Chars         int `json:"chars" yaml:"chars"`
	SkippedGlyphs int `json:"skipped_glyphs" yaml:"skipped_glyphs"`
	SkippedImages int `json:"skipped_images" yaml:"skipped_images"`
}

// Result is the output of one extraction.
type Result struct {
	Source   string
	Pages    []types.PageContent
	Metadata types.ConversionMetadata
	Stats    Stats
	Warnings []types.DecodeWarning
}

// ProgressFunc is called after each page completes. It may be called from
// several goroutines at once.
type ProgressFunc func(done, total int)

// Extractor turns a source document into PageContent records.
type Extractor struct {
	opener   source.Opener
	cfg      types.ExtractionConfig
	log      zerolog.Logger
	progress ProgressFunc
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Extractor) { e.log = l }
}

// WithProgress registers a per-page progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Extractor) { e.progress = fn }
}

// New creates an Extractor reading documents through opener.
func New(opener source.Opener, cfg types.ExtractionConfig, opts ...Option) *Extractor {
	if cfg.Scale <= 0 || math.IsNaN(cfg.Scale) || math.IsInf(cfg.Scale, 0) {
		cfg.Scale = 1.0
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	e := &Extractor{opener: opener, cfg: cfg, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract reads every page of the document at path. Pages are processed
// concurrently and returned in page order. An unreadable source returns a
// DocumentReadError before any page is processed; elements that fail to
// decode are skipped and reported in Result.Warnings.
func (e *Extractor) Extract(ctx context.Context, path string) (*Result, error) {
	doc, err := e.opener.Open(path)
	if err != nil {
		if types.IsKind(err, types.KindDocumentRead) {
			return nil, err
		}
		return nil, types.DocumentReadError("opening "+path, err)
	}
	defer doc.Close()

	n := doc.NumPages()
	e.log.Info().Str("source", path).Int("pages", n).Int("workers", e.cfg.Workers).Msg("extracting")

	pages := make([]types.PageContent, n)
	warnings := make([][]types.DecodeWarning, n)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Workers)
	for i := range n {
		g.Go(func() error {
			raw, err := doc.Page(gctx, i+1)
			if err != nil {
				return fmt.Errorf("reading page %d: %w", i+1, err)
			}
			pc, warns, err := e.buildPage(raw)
			if err != nil {
				return err
			}
			pages[i], warnings[i] = pc, warns
			if e.progress != nil {
				e.progress(int(done.Add(1)), n)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.Canceled) || types.IsKind(err, types.KindDocumentRead) || types.IsKind(err, types.KindLayout) {
			return nil, err
		}
		return nil, types.DocumentReadError("extracting "+path, err)
	}

	res := &Result{
		Source:   path,
		Pages:    pages,
		Metadata: e.metadata(doc.Info(), path, n),
	}
	for i, p := range pages {
		res.Stats.Runs += len(p.Runs)
		res.Stats.Images += len(p.Images)
		res.Stats.Chars += p.CharCount()
		for _, w := range warnings[i] {
			if w.Element == "image" {
				res.Stats.SkippedImages++
			} else if w.Element == "glyph" {
				res.Stats.SkippedGlyphs++
			}
			e.log.Warn().Int("page", w.Page).Str("element", w.Element).Int("ordinal", w.Ordinal).Msg(w.Reason)
		}
		res.Warnings = append(res.Warnings, warnings[i]...)
	}
	res.Stats.Pages = n

	e.log.Info().
		Int("runs", res.Stats.Runs).
		Int("images", res.Stats.Images).
		Int("chars", res.Stats.Chars).
		Int("warnings", len(res.Warnings)).
		Msg("extraction complete")
	return res, nil
}

func (e *Extractor) metadata(info source.Info, path string, n int) types.ConversionMetadata {
	title := info.Title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return types.ConversionMetadata{
		Title:     title,
		Author:    info.Author,
		PageCount: n,
		Rendition: types.DefaultRendition(),
	}
}

// buildPage maps one page's primitives into target space.
func (e *Extractor) buildPage(raw source.Page) (types.PageContent, []types.DecodeWarning, error) {
	if !finitePositive(raw.Width) || !finitePositive(raw.Height) {
		return types.PageContent{}, nil, types.LayoutError(raw.Number,
			fmt.Sprintf("page size %vx%v is not finite and positive", raw.Width, raw.Height))
	}

	t := newTransform(raw.Height, raw.OriginX, raw.OriginY, e.cfg.Scale)
	pc := types.PageContent{
		Index:  raw.Number,
		Width:  t.length(raw.Width),
		Height: t.length(raw.Height),
	}

	var warns []types.DecodeWarning
	warn := func(element string, ordinal int, reason string) {
		warns = append(warns, types.DecodeWarning{Page: raw.Number, Element: element, Ordinal: ordinal, Reason: reason})
	}

	if raw.ContentErr != nil {
		warn("content", 0, raw.ContentErr.Error())
	}

	glyphs := make([]source.Glyph, 0, len(raw.Glyphs))
	for i, g := range raw.Glyphs {
		if reason := badGlyph(g); reason != "" {
			warn("glyph", i, reason)
			continue
		}
		glyphs = append(glyphs, g)
	}
	pc.Runs = groupLines(glyphs, t)

	for i, img := range raw.Images {
		placed, err := placeImage(img, t)
		if err != nil {
			warn("image", i, err.Error())
			continue
		}
		pc.Images = append(pc.Images, placed)
	}
	return pc, warns, nil
}

// badGlyph returns why a glyph cannot be placed, or "".
func badGlyph(g source.Glyph) string {
	switch {
	case g.Char == "" || g.Char == string(utf8.RuneError) || !utf8.ValidString(g.Char):
		return "character could not be decoded"
	case !finitePositive(g.Size):
		return fmt.Sprintf("font size %v is not positive", g.Size)
	case !finite(g.X0) || !finite(g.Y0) || !finite(g.X1) || !finite(g.Y1):
		return "glyph geometry is not finite"
	}
	return ""
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finitePositive(v float64) bool {
	return finite(v) && v > 0
}
