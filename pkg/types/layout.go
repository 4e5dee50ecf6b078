// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types holds the data model shared by the extraction, generation,
// and validation stages, plus configuration and report records.
package types

import (
	"fmt"
	"math"
)

// BBox is an axis-aligned rectangle in target space: origin at the top-left
// of the page, y growing downward, units are CSS pixels.
type BBox struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// Width returns Right - Left.
func (b BBox) Width() float64 { return b.Right - b.Left }

// Height returns Bottom - Top.
func (b BBox) Height() float64 { return b.Bottom - b.Top }

// Union returns the smallest box containing both b and o.
func (b BBox) Union(o BBox) BBox {
	return BBox{
		Left:   math.Min(b.Left, o.Left),
		Top:    math.Min(b.Top, o.Top),
		Right:  math.Max(b.Right, o.Right),
		Bottom: math.Max(b.Bottom, o.Bottom),
	}
}

// Finite reports whether every coordinate is a finite number.
func (b BBox) Finite() bool {
	return finite(b.Left) && finite(b.Top) && finite(b.Right) && finite(b.Bottom)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Weight is a font weight on the CSS 100..900 scale.
type Weight int

const (
	WeightThin       Weight = 100
	WeightExtraLight Weight = 200
	WeightLight      Weight = 300
	WeightRegular    Weight = 400
	WeightMedium     Weight = 500
	WeightSemiBold   Weight = 600
	WeightBold       Weight = 700
	WeightExtraBold  Weight = 800
	WeightHeavy      Weight = 900
)

// Valid reports whether w is one of the nine CSS weight steps.
func (w Weight) Valid() bool {
	return w >= WeightThin && w <= WeightHeavy && w%100 == 0
}

// FaceUnknown is the face name recorded when the source exposes none.
const FaceUnknown = "unknown"

// TextRun is one visual line of text positioned on a page.
type TextRun struct {
	// Text is the concatenated characters of the line in left-to-right order.
	Text string `json:"text" yaml:"text"`

	// Box is the union of the member glyph boxes. Bottom is always greater
	// than Top.
	Box BBox `json:"bbox" yaml:"bbox"`

	// FontSize is the size of the first glyph of the line, in pixels.
	FontSize float64 `json:"font_size" yaml:"font_size"`

	// LineHeight is Box.Bottom - Box.Top.
	LineHeight float64 `json:"line_height" yaml:"line_height"`

	Weight  Weight `json:"weight" yaml:"weight"`
	Slanted bool   `json:"slanted" yaml:"slanted"`

	// Face is the source face name, or FaceUnknown.
	Face string `json:"face" yaml:"face"`
}

// ImagePlacement is a raster image positioned on a page. Data is always an
// encoded PNG in an RGB-compatible colour model.
type ImagePlacement struct {
	Data   []byte `json:"-" yaml:"-"`
	Box    BBox   `json:"bbox" yaml:"bbox"`
	Format string `json:"format" yaml:"format"`

	// SourceColorModel is the colour model the payload had in the source
	// before normalization (e.g. "DeviceCMYK").
	SourceColorModel string `json:"source_color_model,omitempty" yaml:"source_color_model,omitempty"`
}

// PageContent is everything positioned on one page, in target space.
type PageContent struct {
	// Index is the 1-based page number. Indices are unique and increasing
	// within a conversion.
	Index  int              `json:"index" yaml:"index"`
	Width  float64          `json:"width" yaml:"width"`
	Height float64          `json:"height" yaml:"height"`
	Runs   []TextRun        `json:"runs" yaml:"runs"`
	Images []ImagePlacement `json:"images" yaml:"images"`
}

// CharCount returns the number of characters across all runs on the page.
func (p PageContent) CharCount() int {
	n := 0
	for _, r := range p.Runs {
		n += len([]rune(r.Text))
	}
	return n
}

// Rendition layout-mode values written into the package manifest.
const (
	LayoutPrePaginated   = "pre-paginated"
	OrientationPortrait  = "portrait"
	OrientationLandscape = "landscape"
	OrientationAuto      = "auto"
	SpreadNone           = "none"
)

// Rendition is the fixed set of layout-mode flags of a fixed-layout package.
type Rendition struct {
	Layout      string `json:"layout" yaml:"layout"`
	Orientation string `json:"orientation" yaml:"orientation"`
	Spread      string `json:"spread" yaml:"spread"`
}

// DefaultRendition returns pre-paginated, portrait, no spreads.
func DefaultRendition() Rendition {
	return Rendition{
		Layout:      LayoutPrePaginated,
		Orientation: OrientationPortrait,
		Spread:      SpreadNone,
	}
}

// ConversionMetadata describes the document as a whole.
type ConversionMetadata struct {
	Title     string    `json:"title" yaml:"title"`
	Author    string    `json:"author,omitempty" yaml:"author,omitempty"`
	Language  string    `json:"language" yaml:"language"`
	PageCount int       `json:"page_count" yaml:"page_count"`
	Rendition Rendition `json:"rendition" yaml:"rendition"`
}

// TotalImages returns the number of image placements across pages.
func TotalImages(pages []PageContent) int {
	n := 0
	for _, p := range pages {
		n += len(p.Images)
	}
	return n
}

// TotalChars returns the number of run characters across pages.
func TotalChars(pages []PageContent) int {
	n := 0
	for _, p := range pages {
		n += p.CharCount()
	}
	return n
}

// ImageFileName names the ordinal-th image (0-based) of a page.
func ImageFileName(page, ordinal int) string {
	return fmt.Sprintf("page_%03d_img_%02d.png", page, ordinal)
}
