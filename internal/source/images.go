// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// payload is an encoded image as pdfcpu extracted it.
type payload struct {
	data       []byte
	encoding   string
	colorModel ColorModel
}

// payloadIndex maps page number, then resource name, to a payload.
type payloadIndex map[int]map[string]payload

var disableConfigDir sync.Once

// extractPayloads runs pdfcpu image extraction over the whole file once.
func extractPayloads(path string) (idx payloadIndex, err error) {
	disableConfigDir.Do(api.DisableConfigDir)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfcpu image extraction: %v", r)
		}
	}()

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	idx = make(payloadIndex)
	digest := func(img model.Image, _ bool, _ int) error {
		data, err := io.ReadAll(img)
		if err != nil {
			return fmt.Errorf("reading image %s on page %d: %w", img.Name, img.PageNr, err)
		}
		if idx[img.PageNr] == nil {
			idx[img.PageNr] = make(map[string]payload)
		}
		idx[img.PageNr][img.Name] = payload{
			data:       data,
			encoding:   encodingOf(img.FileType),
			colorModel: colorModelOf(img.Cs, img.Comp),
		}
		return nil
	}
	if err := api.ExtractImages(f, nil, digest, conf); err != nil {
		return idx, fmt.Errorf("pdfcpu image extraction: %w", err)
	}
	return idx, nil
}

func encodingOf(fileType string) string {
	switch fileType {
	case "jpg", "jpeg":
		return EncodingJPEG
	case "png":
		return EncodingPNG
	case "tif", "tiff":
		return EncodingTIFF
	case "jpx", "jp2":
		return EncodingJPX
	}
	return fileType
}

func colorModelOf(cs string, comps int) ColorModel {
	switch cs {
	case string(ColorGray), "CalGray":
		return ColorGray
	case string(ColorRGB), "CalRGB":
		return ColorRGB
	case string(ColorCMYK):
		return ColorCMYK
	case string(ColorIndexed):
		return ColorIndexed
	}
	switch comps {
	case 1:
		return ColorGray
	case 3:
		return ColorRGB
	case 4:
		return ColorCMYK
	}
	return ColorUnknown
}

// images resolves every image placement on p. Unfiltered and Flate 8-bit
// streams are read as raw samples; everything else uses the pdfcpu
// extraction, keyed by the placement's qualified name.
func (d *pdfDocument) images(p pdf.Page, byName map[string]payload) []RawImage {
	pls, walkErr := placements(p)
	imgs := make([]RawImage, 0, len(pls))
	for _, pl := range pls {
		img := RawImage{Name: pl.name, X0: pl.x0, Y0: pl.y0, X1: pl.x1, Y1: pl.y1}
		rawErr := rawSamples(pl.xobj, &img)
		if rawErr != nil {
			if pay, ok := byName[pl.name]; ok && len(pay.data) > 0 {
				img.Data, img.Encoding, img.ColorModel = pay.data, pay.encoding, pay.colorModel
			} else {
				img.Err = rawErr
			}
		}
		imgs = append(imgs, img)
	}
	if walkErr != nil {
		imgs = append(imgs, RawImage{Err: walkErr})
	}
	return imgs
}

var errUnsupported = errors.New("unsupported image")

// rawSamples reads 8-bit samples from an unfiltered or Flate-encoded image
// stream.
func rawSamples(xobj pdf.Value, img *RawImage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoding image stream: %v", r)
		}
	}()

	filter := xobj.Key("Filter")
	switch {
	case filter.IsNull():
	case filter.Kind() == pdf.Name && filter.Name() == "FlateDecode":
	case filter.Kind() == pdf.Array && filter.Len() == 1 && filter.Index(0).Name() == "FlateDecode":
	default:
		return fmt.Errorf("%w: filter %s", errUnsupported, filter)
	}
	if pred := xobj.Key("DecodeParms").Key("Predictor").Int64(); pred > 1 {
		return fmt.Errorf("%w: predictor %d", errUnsupported, pred)
	}

	if bpc := xobj.Key("BitsPerComponent").Int64(); bpc != 8 {
		return fmt.Errorf("%w: %d bits per component", errUnsupported, bpc)
	}
	cm, comps := colorSpaceOf(xobj.Key("ColorSpace"))
	if comps == 0 {
		return fmt.Errorf("%w: colour space %s", errUnsupported, xobj.Key("ColorSpace"))
	}

	w, h := int(xobj.Key("Width").Int64()), int(xobj.Key("Height").Int64())
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", errUnsupported, w, h)
	}

	rd := xobj.Reader()
	defer rd.Close()
	data, err := io.ReadAll(rd)
	if err != nil {
		return fmt.Errorf("reading image stream: %w", err)
	}
	if len(data) < w*h*comps {
		return fmt.Errorf("image stream holds %d bytes, want %d", len(data), w*h*comps)
	}

	img.Data = data[:w*h*comps]
	img.Encoding = EncodingRaw
	img.ColorModel = cm
	img.Width, img.Height, img.Components = w, h, comps
	return nil
}

func colorSpaceOf(v pdf.Value) (ColorModel, int) {
	switch v.Kind() {
	case pdf.Name:
		switch v.Name() {
		case "DeviceGray", "CalGray":
			return ColorGray, 1
		case "DeviceRGB", "CalRGB":
			return ColorRGB, 3
		case "DeviceCMYK":
			return ColorCMYK, 4
		}
	case pdf.Array:
		if v.Len() == 2 && v.Index(0).Name() == "ICCBased" {
			switch v.Index(1).Key("N").Int64() {
			case 1:
				return ColorGray, 1
			case 3:
				return ColorRGB, 3
			case 4:
				return ColorCMYK, 4
			}
		}
	}
	return ColorUnknown, 0
}
