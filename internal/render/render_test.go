// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeBlankPDF writes a PDF with n empty 200x100 point pages.
func writeBlankPDF(t *testing.T, n int) string {
	t.Helper()
	var objs []string
	kids := ""
	for i := range n {
		kids += fmt.Sprintf("%d 0 R ", 3+i)
	}
	objs = append(objs, "<< /Type /Catalog /Pages 2 0 R >>")
	objs = append(objs, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", kids, n))
	for range n {
		objs = append(objs, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 200 100] >>")
	}

	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objs)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)

	path := filepath.Join(t.TempDir(), "blank.pdf")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))
	return path
}

func TestRasterize(t *testing.T) {
	path := writeBlankPDF(t, 2)

	var pages []int
	err := Renderer{}.Rasterize(context.Background(), path, 72, func(page int, data []byte) error {
		pages = append(pages, page)
		img, err := png.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.InDelta(t, 200, img.Bounds().Dx(), 2)
		assert.InDelta(t, 100, img.Bounds().Dy(), 2)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2}, pages)
}

func TestRasterizeStopsOnCallbackError(t *testing.T) {
	path := writeBlankPDF(t, 3)
	calls := 0
	err := Renderer{}.Rasterize(context.Background(), path, 0, func(int, []byte) error {
		calls++
		return fmt.Errorf("disk full")
	})
	require.EqualError(t, err, "disk full")
	assert.Equal(t, 1, calls)
}

func TestRasterizeCancelled(t *testing.T) {
	path := writeBlankPDF(t, 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Renderer{}.Rasterize(ctx, path, 72, func(int, []byte) error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRasterizeMissingFile(t *testing.T) {
	err := Renderer{}.Rasterize(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), 72, func(int, []byte) error { return nil })
	assert.Error(t, err)
}
