// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"

	"github.com/hhrutter/tiff"

	"github.com/pdiddy/pdf2epub/internal/source"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

var errDegenerate = errors.New("degenerate image placement")

// placeImage normalizes a raw image to PNG and maps its placement box.
func placeImage(img source.RawImage, t transform) (types.ImagePlacement, error) {
	if img.Err != nil {
		return types.ImagePlacement{}, img.Err
	}
	box := t.box(img.X0, img.Y0, img.X1, img.Y1)
	if !box.Finite() || box.Width() <= 0 || box.Height() <= 0 {
		return types.ImagePlacement{}, fmt.Errorf("%w: %+v", errDegenerate, box)
	}

	data, err := normalizeImage(img)
	if err != nil {
		return types.ImagePlacement{}, err
	}
	return types.ImagePlacement{
		Data:             data,
		Box:              box,
		Format:           "png",
		SourceColorModel: string(img.ColorModel),
	}, nil
}

// normalizeImage decodes a payload, converts CMYK to RGB, and re-encodes
// the result as PNG.
func normalizeImage(img source.RawImage) ([]byte, error) {
	decoded, err := decodeImage(img)
	if err != nil {
		return nil, err
	}

	out := decoded
	if decoded.ColorModel() == color.CMYKModel {
		out = cmykToRGB(decoded)
	}

	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("encoding png: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeImage(img source.RawImage) (image.Image, error) {
	switch img.Encoding {
	case source.EncodingRaw:
		return fromSamples(img)
	case source.EncodingJPX:
		return nil, errors.New("JPEG 2000 payloads are not supported")
	}
	if len(img.Data) == 0 {
		return nil, errors.New("empty image payload")
	}
	var (
		decoded image.Image
		err     error
	)
	if img.Encoding == source.EncodingTIFF {
		// pdfcpu writes CMYK and 1-bit samples as TIFF.
		decoded, err = tiff.Decode(bytes.NewReader(img.Data))
	} else {
		decoded, _, err = image.Decode(bytes.NewReader(img.Data))
	}
	if err != nil {
		return nil, fmt.Errorf("decoding %s payload: %w", img.Encoding, err)
	}
	return decoded, nil
}

// fromSamples wraps uncompressed 8-bit samples in an image of the matching
// colour model.
func fromSamples(img source.RawImage) (image.Image, error) {
	w, h := img.Width, img.Height
	if w <= 0 || h <= 0 || len(img.Data) < w*h*img.Components {
		return nil, fmt.Errorf("raw samples do not cover %dx%d", w, h)
	}
	rect := image.Rect(0, 0, w, h)

	switch {
	case img.ColorModel == source.ColorGray && img.Components == 1:
		return &image.Gray{Pix: img.Data[:w*h], Stride: w, Rect: rect}, nil
	case img.ColorModel == source.ColorCMYK && img.Components == 4:
		return &image.CMYK{Pix: img.Data[:w*h*4], Stride: 4 * w, Rect: rect}, nil
	case img.ColorModel == source.ColorRGB && img.Components == 3:
		rgba := image.NewRGBA(rect)
		for i, j := 0, 0; i < w*h*3; i, j = i+3, j+4 {
			rgba.Pix[j] = img.Data[i]
			rgba.Pix[j+1] = img.Data[i+1]
			rgba.Pix[j+2] = img.Data[i+2]
			rgba.Pix[j+3] = 0xff
		}
		return rgba, nil
	}
	return nil, fmt.Errorf("raw samples in %q with %d components are not supported", img.ColorModel, img.Components)
}

// cmykToRGB converts each pixel with channel = 255 - ink, ignoring the key
// channel. No colour management is applied.
func cmykToRGB(src image.Image) *image.RGBA {
	b := src.Bounds()
	dst := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.CMYKModel.Convert(src.At(x, y)).(color.CMYK)
			dst.SetRGBA(x, y, cmykPixel(c))
		}
	}
	return dst
}

func cmykPixel(c color.CMYK) color.RGBA {
	return color.RGBA{R: 255 - c.C, G: 255 - c.M, B: 255 - c.Y, A: 0xff}
}
