// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source reads positioned glyph and image primitives from a PDF.
// Coordinates are in source space: points, origin at the bottom-left of the
// page's media box, y growing upward.
package source

import "context"

// ColorModel names the colour space of an image payload.
type ColorModel string

const (
	ColorGray    ColorModel = "DeviceGray"
	ColorRGB     ColorModel = "DeviceRGB"
	ColorCMYK    ColorModel = "DeviceCMYK"
	ColorIndexed ColorModel = "Indexed"
	ColorUnknown ColorModel = ""
)

// Image payload encodings.
const (
	EncodingJPEG = "jpeg"
	EncodingPNG  = "png"
	EncodingTIFF = "tiff"
	EncodingJPX  = "jpx"
	// EncodingRaw is uncompressed 8-bit samples, Components per pixel.
	EncodingRaw = "raw"
)

// Glyph is one drawn character.
type Glyph struct {
	Char string
	Face string
	Size float64

	// X0,Y0 is the baseline origin; X1,Y1 the far corner (advance, size).
	X0, Y0, X1, Y1 float64

	// Upright is the font descriptor's verdict on the face, nil when the
	// source does not say.
	Upright *bool
}

// RawImage is an image XObject drawn on a page.
type RawImage struct {
	// Name is the XObject resource name without the leading slash.
	Name string

	Data       []byte
	Encoding   string
	ColorModel ColorModel

	// Width, Height and Components describe raw samples.
	Width, Height, Components int

	// X0,Y0,X1,Y1 is the placement rectangle on the page.
	X0, Y0, X1, Y1 float64

	// Err is set when the payload could not be obtained.
	Err error
}

// Page holds every primitive on one page.
type Page struct {
	Number int

	// Width and Height of the media box.
	Width, Height float64

	// OriginX, OriginY is the lower-left corner of the media box.
	OriginX, OriginY float64

	Glyphs []Glyph
	Images []RawImage

	// ContentErr is set when the page content stream could not be
	// interpreted; Glyphs is then empty.
	ContentErr error
}

// Info is document-level metadata.
type Info struct {
	Title  string
	Author string
}

// Document is an open source document. Page may be called concurrently.
type Document interface {
	Info() Info
	NumPages() int
	Page(ctx context.Context, n int) (Page, error)
	Close() error
}

// Opener opens documents by path.
type Opener interface {
	Open(path string) (Document, error)
}

// OpenerFunc adapts a function to Opener.
type OpenerFunc func(path string) (Document, error)

// Open calls f(path).
func (f OpenerFunc) Open(path string) (Document, error) { return f(path) }
