// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdf2epub/internal/source"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

// cmykPDF is one Letter page drawing a 1x1 DeviceCMYK image at (100,100)
// scaled to 10x10.
func cmykPDF() []byte {
	pixel := string([]byte{20, 40, 60, 10})
	content := "q 10 0 0 10 100 100 cm /Im1 Do Q\n"
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 /MediaBox [0 0 612 792] >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /XObject << /Im1 4 0 R >> >> /Contents 5 0 R >>",
		fmt.Sprintf("<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceCMYK /BitsPerComponent 8 /Length %d >>\nstream\n%s\nendstream", len(pixel), pixel),
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content),
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return b.Bytes()
}

func TestExtractCMYKImageFromPDF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cmyk.pdf")
	require.NoError(t, os.WriteFile(path, cmykPDF(), 0o644))

	res, err := New(source.PDFOpener{}, types.ExtractionConfig{Scale: 1, Workers: 1}).Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Pages, 1)
	require.Len(t, res.Pages[0].Images, 1)

	img := res.Pages[0].Images[0]
	assert.Equal(t, "png", img.Format)
	assert.Equal(t, string(source.ColorCMYK), img.SourceColorModel)
	assert.Equal(t, types.BBox{Left: 100, Top: 682, Right: 110, Bottom: 692}, img.Box)

	r, g, b, a := decodePNG(t, img.Data).At(0, 0).RGBA()
	assert.Equal(t, []uint32{235, 215, 195, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}
