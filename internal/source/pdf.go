// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// Letter size, used when no media box is found in the page tree.
const (
	defaultPageWidth  = 612.0
	defaultPageHeight = 792.0
)

// maxTreeDepth bounds walks up the page tree and into nested forms.
const maxTreeDepth = 32

// PDFOpener opens PDF files with ledongthuc/pdf for text and layout and
// pdfcpu for image payloads.
type PDFOpener struct{}

// Open parses the file at path. Unreadable, corrupt, and encrypted files
// fail with a DocumentReadError.
func (PDFOpener) Open(path string) (Document, error) {
	return openPDF(path)
}

type pdfDocument struct {
	path string
	file *os.File

	// mu serializes access to the reader; ledongthuc/pdf is not safe for
	// concurrent use.
	mu      sync.Mutex
	r       *pdf.Reader
	upright map[string]*bool

	info  Info
	pages int

	payloadOnce sync.Once
	payloads    payloadIndex
	payloadErr  error
}

func openPDF(path string) (doc *pdfDocument, err error) {
	var f *os.File
	defer func() {
		if r := recover(); r != nil {
			if f != nil {
				f.Close()
			}
			doc = nil
			err = types.DocumentReadError("parsing "+path, fmt.Errorf("%v", r))
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, types.DocumentReadError("opening "+path, types.ErrEncrypted)
		}
		return nil, types.DocumentReadError("opening "+path, err)
	}

	if !r.Trailer().Key("Encrypt").IsNull() {
		f.Close()
		return nil, types.DocumentReadError("opening "+path, types.ErrEncrypted)
	}

	n := r.NumPage()
	if n == 0 {
		f.Close()
		return nil, types.DocumentReadError(path+" has no pages", nil)
	}

	infoDict := r.Trailer().Key("Info")
	return &pdfDocument{
		path:    path,
		file:    f,
		r:       r,
		upright: make(map[string]*bool),
		pages:   n,
		info: Info{
			Title:  strings.TrimSpace(infoDict.Key("Title").Text()),
			Author: strings.TrimSpace(infoDict.Key("Author").Text()),
		},
	}, nil
}

func (d *pdfDocument) Info() Info    { return d.info }
func (d *pdfDocument) NumPages() int { return d.pages }

func (d *pdfDocument) Close() error {
	return d.file.Close()
}

// Page returns the primitives of page n (1-based).
func (d *pdfDocument) Page(ctx context.Context, n int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if n < 1 || n > d.pages {
		return Page{}, fmt.Errorf("page %d out of range [1,%d]", n, d.pages)
	}

	payloads := d.loadPayloads()

	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.r.Page(n)
	if p.V.IsNull() {
		return Page{}, types.DocumentReadError(fmt.Sprintf("page %d missing from page tree", n), nil)
	}

	page := Page{Number: n}
	page.OriginX, page.OriginY, page.Width, page.Height = mediaBox(p.V)
	page.Glyphs, page.ContentErr = d.glyphs(p)
	page.Images = d.images(p, payloads[n])
	if d.payloadErr != nil {
		for i := range page.Images {
			if page.Images[i].Err != nil {
				page.Images[i].Err = fmt.Errorf("%w (payload extraction: %v)", page.Images[i].Err, d.payloadErr)
			}
		}
	}
	return page, nil
}

func (d *pdfDocument) loadPayloads() payloadIndex {
	d.payloadOnce.Do(func() {
		d.payloads, d.payloadErr = extractPayloads(d.path)
	})
	return d.payloads
}

// mediaBox walks up the page tree for an inherited MediaBox.
func mediaBox(v pdf.Value) (x0, y0, w, h float64) {
	node := v
	for depth := 0; depth < maxTreeDepth && !node.IsNull(); depth++ {
		box := node.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			a, b := box.Index(0).Float64(), box.Index(1).Float64()
			c, e := box.Index(2).Float64(), box.Index(3).Float64()
			w, h = math.Abs(c-a), math.Abs(e-b)
			if w > 0 && h > 0 {
				return math.Min(a, c), math.Min(b, e), w, h
			}
		}
		node = node.Key("Parent")
	}
	return 0, 0, defaultPageWidth, defaultPageHeight
}

// glyphs interprets the page's text-showing operators. A malformed content
// stream makes the interpreter panic; that is reported as an error and the
// page carries no glyphs.
func (d *pdfDocument) glyphs(p pdf.Page) (glyphs []Glyph, err error) {
	defer func() {
		if r := recover(); r != nil {
			glyphs = nil
			err = fmt.Errorf("interpreting content stream: %v", r)
		}
	}()

	if p.V.Key("Contents").IsNull() {
		return nil, nil
	}

	d.collectUpright(p)
	content := p.Content()
	glyphs = make([]Glyph, 0, len(content.Text))
	for _, t := range content.Text {
		size := math.Abs(t.FontSize)
		glyphs = append(glyphs, Glyph{
			Char:    t.S,
			Face:    t.Font,
			Size:    size,
			X0:      t.X,
			Y0:      t.Y,
			X1:      t.X + t.W,
			Y1:      t.Y + size,
			Upright: d.upright[t.Font],
		})
	}
	return glyphs, nil
}

// collectUpright records, per base font name, whether the font descriptor
// declares an upright face.
func (d *pdfDocument) collectUpright(p pdf.Page) {
	for _, name := range p.Fonts() {
		f := p.Font(name)
		base := f.BaseFont()
		if _, seen := d.upright[base]; seen {
			continue
		}
		d.upright[base] = uprightOf(f.V)
	}
}

// italicFlag is bit 7 of the font descriptor Flags entry.
const italicFlag = 1 << 6

func uprightOf(font pdf.Value) *bool {
	desc := font.Key("FontDescriptor")
	if desc.IsNull() {
		if df := font.Key("DescendantFonts"); df.Kind() == pdf.Array && df.Len() > 0 {
			desc = df.Index(0).Key("FontDescriptor")
		}
	}
	if desc.IsNull() {
		return nil
	}

	known, italic := false, false
	if a := desc.Key("ItalicAngle"); a.Kind() == pdf.Integer || a.Kind() == pdf.Real {
		known = true
		italic = a.Float64() != 0
	}
	if fl := desc.Key("Flags"); fl.Kind() == pdf.Integer {
		known = true
		italic = italic || fl.Int64()&italicFlag != 0
	}
	if !known {
		return nil
	}
	upright := !italic
	return &upright
}
