// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package epub writes fixed-layout EPUB 3 containers from extracted page
// content: one absolutely positioned XHTML document per page, sidecar
// images, the package document, navigation, and the zip archive itself.
package epub

import (
	"context"
	"fmt"
	"math"
	"path"
	"regexp"
	"runtime"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// Archive layout.
const (
	ContainerPath = "META-INF/container.xml"
	contentDir    = "OEBPS"
	OPFPath       = contentDir + "/content.opf"
	styleFile     = "styles.css"
	navFile       = "nav.xhtml"
	ncxFile       = "toc.ncx"
	imagesDir     = "images"
)

// Fixed resource paths inside the archive.
var (
	NavPath   = path.Join(contentDir, navFile)
	NCXPath   = path.Join(contentDir, ncxFile)
	StylePath = path.Join(contentDir, styleFile)
)

var pageResource = regexp.MustCompile(`^` + contentDir + `/page\d{3,}\.xhtml$`)

// IsPageResource reports whether an archive entry name is a page document.
func IsPageResource(name string) bool {
	return pageResource.MatchString(name)
}

// ResolveHref resolves an href found in a page or package document to an
// archive entry name.
func ResolveHref(href string) string {
	return path.Join(contentDir, href)
}

// Container describes a written EPUB archive.
type Container struct {
	Path       string
	Identifier string
	Pages      int
	Images     int
	Entries    int
	Size       int64
}

// Generator assembles fixed-layout EPUB containers.
type Generator struct {
	fs    afero.Fs
	cfg   types.GenerationConfig
	log   zerolog.Logger
	newID func() string
	now   func() time.Time
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(g *Generator) { g.log = l }
}

// WithClock overrides the modification timestamp source.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// New creates a Generator writing to fs.
func New(fs afero.Fs, cfg types.GenerationConfig, opts ...Option) *Generator {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.FontFamily == "" {
		cfg.FontFamily = "serif"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	g := &Generator{
		fs:    fs,
		cfg:   cfg,
		log:   zerolog.Nop(),
		newID: func() string { return "urn:uuid:" + uuid.NewString() },
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate writes pages as a fixed-layout EPUB to dest. Pages must be in
// increasing index order with finite positive dimensions and finite
// geometry; otherwise a LayoutError is returned and nothing is written.
func (g *Generator) Generate(ctx context.Context, pages []types.PageContent, meta types.ConversionMetadata, dest string) (*Container, error) {
	if err := checkLayout(pages); err != nil {
		return nil, err
	}

	meta = g.resolveMetadata(pages, meta)
	identifier := g.cfg.Identifier
	if identifier == "" {
		identifier = g.newID()
	}

	g.log.Info().Str("output", dest).Int("pages", len(pages)).Str("identifier", identifier).Msg("generating")

	docs := make([][]byte, len(pages))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(g.cfg.Workers)
	for i := range pages {
		eg.Go(func() error {
			if err := ectx.Err(); err != nil {
				return err
			}
			docs[i] = renderPage(pages[i], g.cfg.FontFamily)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	entries, err := g.entries(pages, docs, meta, identifier)
	if err != nil {
		return nil, err
	}

	size, err := WriteArchive(ctx, g.fs, dest, entries)
	if err != nil {
		return nil, err
	}

	c := &Container{
		Path:       dest,
		Identifier: identifier,
		Pages:      len(pages),
		Images:     types.TotalImages(pages),
		Entries:    len(entries) + 1,
		Size:       size,
	}
	g.log.Info().Str("output", dest).Int64("bytes", size).Int("images", c.Images).Msg("container written")
	return c, nil
}

func (g *Generator) resolveMetadata(pages []types.PageContent, meta types.ConversionMetadata) types.ConversionMetadata {
	if meta.Language == "" {
		meta.Language = g.cfg.Language
	}
	if meta.Title == "" {
		meta.Title = "Untitled"
	}
	meta.PageCount = len(pages)

	r := types.DefaultRendition()
	switch strings.ToLower(g.cfg.Orientation) {
	case types.OrientationLandscape:
		r.Orientation = types.OrientationLandscape
	case types.OrientationAuto:
		if pages[0].Width > pages[0].Height {
			r.Orientation = types.OrientationLandscape
		}
	}
	meta.Rendition = r
	return meta
}

func (g *Generator) entries(pages []types.PageContent, docs [][]byte, meta types.ConversionMetadata, identifier string) ([]Entry, error) {
	container, err := containerDocument()
	if err != nil {
		return nil, types.ResourceWriteError("building container.xml", err)
	}
	opf, err := packageDocument(pages, meta, identifier, g.now())
	if err != nil {
		return nil, types.ResourceWriteError("building content.opf", err)
	}
	ncx, err := ncxDocument(pages, meta, identifier)
	if err != nil {
		return nil, types.ResourceWriteError("building toc.ncx", err)
	}

	entries := []Entry{
		{Name: ContainerPath, Data: container},
		{Name: OPFPath, Data: opf},
		{Name: NCXPath, Data: ncx},
		{Name: NavPath, Data: navDocument(pages, meta)},
		{Name: StylePath, Data: []byte(stylesheet)},
	}
	for i, p := range pages {
		entries = append(entries, Entry{Name: ResolveHref(pageFileName(p.Index)), Data: docs[i]})
	}
	for _, p := range pages {
		for i, img := range p.Images {
			entries = append(entries, Entry{
				Name:  ResolveHref(path.Join(imagesDir, types.ImageFileName(p.Index, i))),
				Data:  img.Data,
				Store: true,
			})
		}
	}
	return entries, nil
}

// checkLayout rejects page sets the generator cannot lay out.
func checkLayout(pages []types.PageContent) error {
	if len(pages) == 0 {
		return types.LayoutError(0, "no pages to generate")
	}
	prev := 0
	for _, p := range pages {
		if p.Index <= prev {
			return types.LayoutError(p.Index, fmt.Sprintf("page index %d not increasing after %d", p.Index, prev))
		}
		prev = p.Index
		if !positive(p.Width) || !positive(p.Height) {
			return types.LayoutError(p.Index, fmt.Sprintf("invalid page size %vx%v", p.Width, p.Height))
		}
		for i, r := range p.Runs {
			if !r.Box.Finite() || !positive(r.FontSize) || math.IsNaN(r.LineHeight) || math.IsInf(r.LineHeight, 0) {
				return types.LayoutError(p.Index, fmt.Sprintf("text run %d has invalid geometry", i))
			}
		}
		for i, img := range p.Images {
			if !img.Box.Finite() {
				return types.LayoutError(p.Index, fmt.Sprintf("image %d has non-finite geometry", i))
			}
		}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0)
}
