// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package source

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// --- test helpers ---

// buildPDF assembles a PDF from object bodies (object i+1 is objects[i])
// with a correct cross-reference table.
func buildPDF(objects []string, trailerExtra string) []byte {
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n", len(objects)+1)
	b.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R %s>>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, trailerExtra, xref)
	return b.Bytes()
}

func stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

// samplePDF is one Letter page with a line of Helvetica-BoldOblique text
// and a 2x2 RGB image scaled to 100x50 at (72,600).
func samplePDF() []byte {
	content := "BT /F1 12 Tf 72 700 Td (Hi) Tj ET\nq 100 0 0 50 72 600 cm /Im1 Do Q\n"
	pixels := string([]byte{255, 0, 0, 0, 255, 0, 0, 0, 255, 255, 255, 255})
	return buildPDF([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 4 0 R >> /XObject << /Im1 6 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica-BoldOblique >>",
		stream("", content),
		stream("/Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceRGB /BitsPerComponent 8", pixels),
		"<< /Title (Sample Doc) /Author (Jane Roe) >>",
	}, "/Info 7 0 R ")
}

// imagePDF is one Letter page whose content stream is content, with
// xobjects as the page's XObject resources starting at object 4.
func imagePDF(content string, xobjects map[string]int, objects ...string) []byte {
	var res bytes.Buffer
	for name, obj := range xobjects {
		fmt.Fprintf(&res, "/%s %d 0 R ", name, obj)
	}
	return buildPDF(append([]string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /XObject << %s>> >> /Contents %d 0 R >>", res.String(), 4+len(objects)),
	}, append(objects, stream("", content))...), "")
}

func jpegData(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0x80
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func firstPage(t *testing.T, data []byte) Page {
	t.Helper()
	doc, err := PDFOpener{}.Open(writeTemp(t, "doc.pdf", data))
	require.NoError(t, err)
	t.Cleanup(func() { doc.Close() })
	page, err := doc.Page(context.Background(), 1)
	require.NoError(t, err)
	return page
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// --- tests ---

func TestPDFOpenerReadsPrimitives(t *testing.T) {
	path := writeTemp(t, "sample.pdf", samplePDF())

	doc, err := PDFOpener{}.Open(path)
	require.NoError(t, err)
	defer doc.Close()

	assert.Equal(t, 1, doc.NumPages())
	assert.Equal(t, Info{Title: "Sample Doc", Author: "Jane Roe"}, doc.Info())

	page, err := doc.Page(context.Background(), 1)
	require.NoError(t, err)
	assert.NoError(t, page.ContentErr)
	assert.Equal(t, 612.0, page.Width)
	assert.Equal(t, 792.0, page.Height)

	require.Len(t, page.Glyphs, 2)
	assert.Equal(t, "H", page.Glyphs[0].Char)
	assert.Equal(t, "i", page.Glyphs[1].Char)
	assert.Equal(t, "Helvetica-BoldOblique", page.Glyphs[0].Face)
	assert.InDelta(t, 72.0, page.Glyphs[0].X0, 1e-9)
	assert.InDelta(t, 700.0, page.Glyphs[0].Y0, 1e-9)
	assert.InDelta(t, 12.0, page.Glyphs[0].Size, 1e-9)
	assert.InDelta(t, 712.0, page.Glyphs[0].Y1, 1e-9)

	require.Len(t, page.Images, 1)
	img := page.Images[0]
	assert.Equal(t, "Im1", img.Name)
	assert.NoError(t, img.Err)
	assert.NotEmpty(t, img.Data)
	assert.InDelta(t, 72.0, img.X0, 1e-9)
	assert.InDelta(t, 600.0, img.Y0, 1e-9)
	assert.InDelta(t, 172.0, img.X1, 1e-9)
	assert.InDelta(t, 650.0, img.Y1, 1e-9)
}

func TestPDFOpenerPageOutOfRange(t *testing.T) {
	path := writeTemp(t, "sample.pdf", samplePDF())
	doc, err := PDFOpener{}.Open(path)
	require.NoError(t, err)
	defer doc.Close()

	_, err = doc.Page(context.Background(), 2)
	assert.Error(t, err)
}

func TestPDFOpenerCancelled(t *testing.T) {
	path := writeTemp(t, "sample.pdf", samplePDF())
	doc, err := PDFOpener{}.Open(path)
	require.NoError(t, err)
	defer doc.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = doc.Page(ctx, 1)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPDFOpenerRejectsUnreadable(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"not a pdf", []byte("hello, world")},
		{"empty file", nil},
		{"truncated", samplePDF()[:200]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeTemp(t, "bad.pdf", tt.data)
			_, err := PDFOpener{}.Open(path)
			require.Error(t, err)
			assert.True(t, types.IsKind(err, types.KindDocumentRead), "got %v", err)
		})
	}
}

func TestPDFOpenerMissingFile(t *testing.T) {
	_, err := PDFOpener{}.Open(filepath.Join(t.TempDir(), "missing.pdf"))
	require.Error(t, err)
	assert.True(t, types.IsKind(err, types.KindDocumentRead))
}

func TestMatrix(t *testing.T) {
	scale := matrix{100, 0, 0, 50, 0, 0}
	translate := matrix{1, 0, 0, 1, 72, 600}

	// cm operators compose left to right: the later matrix is applied first.
	ctm := scale.mul(translate)
	x0, y0, x1, y1 := ctm.unitBounds()
	assert.Equal(t, [4]float64{72, 600, 172, 650}, [4]float64{x0, y0, x1, y1})

	rot := matrix{0, 1, -1, 0, 0, 0}
	x0, y0, x1, y1 = rot.mul(translate).unitBounds()
	assert.Equal(t, [4]float64{71, 600, 72, 601}, [4]float64{x0, y0, x1, y1})
}

func TestColorModelOf(t *testing.T) {
	tests := []struct {
		cs    string
		comps int
		want  ColorModel
	}{
		{"DeviceCMYK", 4, ColorCMYK},
		{"DeviceRGB", 3, ColorRGB},
		{"ICCBased", 4, ColorCMYK},
		{"ICCBased", 1, ColorGray},
		{"Separation", 0, ColorUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.cs, func(t *testing.T) {
			assert.Equal(t, tt.want, colorModelOf(tt.cs, tt.comps))
		})
	}
}

func TestPDFOpenerCMYKImage(t *testing.T) {
	cmyk := string([]byte{20, 40, 60, 10})
	data := imagePDF("q 10 0 0 10 100 100 cm /Im1 Do Q\n", map[string]int{"Im1": 4},
		stream("/Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceCMYK /BitsPerComponent 8", cmyk),
	)

	page := firstPage(t, data)
	require.Len(t, page.Images, 1)
	img := page.Images[0]
	require.NoError(t, img.Err)
	assert.Equal(t, EncodingRaw, img.Encoding)
	assert.Equal(t, ColorCMYK, img.ColorModel)
	assert.Equal(t, 4, img.Components)
	assert.Equal(t, []byte{20, 40, 60, 10}, img.Data)
}

func TestPDFOpenerImageInsideForm(t *testing.T) {
	jpg := string(jpegData(t))
	data := imagePDF("q 200 0 0 100 50 400 cm /Fm1 Do Q\n", map[string]int{"Fm1": 4},
		stream("/Type /XObject /Subtype /Form /BBox [0 0 1 1] /Resources << /XObject << /Im0 5 0 R >> >>", "/Im0 Do"),
		stream("/Type /XObject /Subtype /Image /Width 8 /Height 8 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Filter /DCTDecode", jpg),
	)

	page := firstPage(t, data)
	require.Len(t, page.Images, 1)
	img := page.Images[0]
	require.NoError(t, img.Err)
	assert.Equal(t, "Fm1.Im0", img.Name)
	assert.Equal(t, EncodingJPEG, img.Encoding)
	assert.NotEmpty(t, img.Data)
	assert.InDelta(t, 50.0, img.X0, 1e-9)
	assert.InDelta(t, 400.0, img.Y0, 1e-9)
	assert.InDelta(t, 250.0, img.X1, 1e-9)
	assert.InDelta(t, 500.0, img.Y1, 1e-9)
}
