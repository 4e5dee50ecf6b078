// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/png"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2epub/internal/epub"
	"github.com/pdiddy/pdf2epub/internal/source"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

const (
	srcPath  = "/src/book.pdf"
	epubPath = "/out/book.epub"
)

type countDoc int

func (d countDoc) Info() source.Info { return source.Info{} }
func (d countDoc) NumPages() int     { return int(d) }
func (d countDoc) Page(context.Context, int) (source.Page, error) {
	return source.Page{}, errors.New("not used")
}
func (d countDoc) Close() error { return nil }

func pagesOpener(n int) source.Opener {
	return source.OpenerFunc(func(string) (source.Document, error) { return countDoc(n), nil })
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 1, 1))))
	return buf.Bytes()
}

func textPage(index int, text string, images int, data []byte) types.PageContent {
	p := types.PageContent{
		Index: index, Width: 612, Height: 792,
		Runs: []types.TextRun{{Text: text, Box: types.BBox{Left: 10, Top: 10, Right: 100, Bottom: 22}, FontSize: 12, LineHeight: 12, Weight: types.WeightRegular}},
	}
	for i := range images {
		p.Images = append(p.Images, types.ImagePlacement{Data: data, Format: "png", Box: types.BBox{Left: 0, Top: float64(i * 10), Right: 10, Bottom: float64(i*10 + 10)}})
	}
	return p
}

// setup writes a source placeholder and a generated container to a memory fs.
func setup(t *testing.T, pages []types.PageContent) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, srcPath, []byte("%PDF-1.4"), 0o644))
	_, err := epub.New(fs, types.GenerationConfig{}).Generate(context.Background(), pages, types.ConversionMetadata{Title: "Book"}, epubPath)
	require.NoError(t, err)
	return fs
}

func samplePages(t *testing.T) []types.PageContent {
	data := pngBytes(t)
	return []types.PageContent{
		textPage(1, "Café & <friends>", 2, data),
		textPage(2, strings.Repeat("a", 100), 1, data),
	}
}

func TestValidatePasses(t *testing.T) {
	pages := samplePages(t)
	fs := setup(t, pages)

	report := New(pagesOpener(2), fs, types.ValidationConfig{}).Validate(context.Background(), srcPath, epubPath, pages)

	require.Len(t, report.Checks, 6)
	for _, c := range report.Checks {
		assert.True(t, c.Passed, "%s: %v", c.Name, c.Details)
	}
	assert.True(t, report.OverallStatus)
	assert.Empty(t, report.Issues)
	assert.Nil(t, report.Check(types.CheckEpubCheck))
	assert.Contains(t, report.Check(types.CheckImagePreservation).Details, "Images in EPUB: 3")
	assert.Contains(t, report.Check(types.CheckTextContent).Details, "EPUB characters: 116")
}

func TestValidateEmptyPage(t *testing.T) {
	pages := []types.PageContent{
		textPage(1, "Cover", 0, nil),
		{Index: 2, Width: 612, Height: 792},
	}
	fs := setup(t, pages)

	report := New(pagesOpener(2), fs, types.ValidationConfig{}).Validate(context.Background(), srcPath, epubPath, pages)

	require.Len(t, report.Checks, 6)
	for _, c := range report.Checks {
		assert.True(t, c.Passed, "%s: %v", c.Name, c.Details)
	}
	assert.True(t, report.OverallStatus)

	entries, err := epub.ReadArchive(fs, epubPath)
	require.NoError(t, err)
	var page2 string
	for _, e := range entries {
		if e.Name == "OEBPS/page002.xhtml" {
			page2 = string(e.Data)
		}
	}
	require.NotEmpty(t, page2)
	assert.NotContains(t, page2, "<span")
	assert.NotContains(t, page2, "<img")
}

func TestValidatePageCountMismatch(t *testing.T) {
	pages := samplePages(t)
	fs := setup(t, pages)

	report := New(pagesOpener(3), fs, types.ValidationConfig{}).Validate(context.Background(), srcPath, epubPath, pages)

	assert.False(t, report.Check(types.CheckPageCount).Passed)
	assert.False(t, report.OverallStatus)
	require.NotEmpty(t, report.Issues)
	assert.Contains(t, report.Issues[0], "Page count mismatch")
}

func TestValidateTextTolerance(t *testing.T) {
	generated := []types.PageContent{textPage(1, strings.Repeat("x", 100), 0, nil)}
	fs := setup(t, generated)

	tests := []struct {
		name      string
		extracted int
		passed    bool
		warnings  int
	}{
		{"exact", 100, true, 0},
		{"within tolerance", 101, true, 1},
		{"beyond tolerance", 110, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := []types.PageContent{textPage(1, strings.Repeat("x", tt.extracted), 0, nil)}
			report := New(pagesOpener(1), fs, types.ValidationConfig{TextTolerance: 0.02}).Validate(context.Background(), srcPath, epubPath, pages)
			assert.Equal(t, tt.passed, report.Check(types.CheckTextContent).Passed)
			assert.Len(t, report.Warnings, tt.warnings)
			assert.Equal(t, tt.passed, report.OverallStatus)
		})
	}
}

func TestValidateMissingImage(t *testing.T) {
	pages := samplePages(t)
	fs := setup(t, pages)

	entries, err := epub.ReadArchive(fs, epubPath)
	require.NoError(t, err)
	var kept []epub.Entry
	for _, e := range entries[1:] {
		if !strings.HasSuffix(e.Name, "page_001_img_01.png") {
			kept = append(kept, e)
		}
	}
	_, err = epub.WriteArchive(context.Background(), fs, epubPath, kept)
	require.NoError(t, err)

	report := New(pagesOpener(2), fs, types.ValidationConfig{}).Validate(context.Background(), srcPath, epubPath, pages)

	c := report.Check(types.CheckImagePreservation)
	assert.False(t, c.Passed)
	assert.Contains(t, c.Details, "Missing: OEBPS/images/page_001_img_01.png")
	assert.True(t, report.Check(types.CheckEPUBStructure).Passed)
	assert.False(t, report.OverallStatus)
}

func TestValidateMissingContainer(t *testing.T) {
	fs := afero.NewMemMapFs()
	pages := samplePages(t)

	report := New(pagesOpener(2), fs, types.ValidationConfig{}).Validate(context.Background(), srcPath, epubPath, pages)

	assert.False(t, report.OverallStatus)
	assert.False(t, report.Check(types.CheckFileExistence).Passed)
	assert.False(t, report.Check(types.CheckEPUBStructure).Passed)
	assert.False(t, report.Check(types.CheckEPUBValidity).Passed)
	assert.Contains(t, report.Issues, "Source not found: /src/book.pdf")
}

func TestValidateCompressedMimetype(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, srcPath, []byte("%PDF"), 0o644))

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, e := range []struct{ name, body string }{
		{"mimetype", epub.MimeType},
		{"OEBPS/page001.xhtml", "<html><body><span>broken</body></html>"},
	} {
		w, err := zw.Create(e.name)
		require.NoError(t, err)
		_, err = w.Write([]byte(e.body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, afero.WriteFile(fs, epubPath, buf.Bytes(), 0o644))

	report := New(pagesOpener(1), fs, types.ValidationConfig{}).Validate(context.Background(), srcPath, epubPath, nil)

	c := report.Check(types.CheckEPUBValidity)
	assert.False(t, c.Passed)
	assert.Contains(t, report.Issues, "mimetype entry is compressed")
	found := false
	for _, is := range report.Issues {
		if strings.HasPrefix(is, "Invalid XML in OEBPS/page001.xhtml") {
			found = true
		}
	}
	assert.True(t, found, "issues: %v", report.Issues)
}

type fakeChecker struct {
	passed bool
	msgs   []string
	err    error
}

func (f fakeChecker) Check(context.Context, string) (bool, []string, error) {
	return f.passed, f.msgs, f.err
}

func TestValidateExternalChecker(t *testing.T) {
	pages := samplePages(t)
	fs := setup(t, pages)
	cfg := types.ValidationConfig{EpubCheck: true}

	t.Run("failing book", func(t *testing.T) {
		v := New(pagesOpener(2), fs, cfg, WithExternalChecker(fakeChecker{msgs: []string{"ERROR(RSC-005): bad"}}))
		report := v.Validate(context.Background(), srcPath, epubPath, pages)
		c := report.Check(types.CheckEpubCheck)
		require.NotNil(t, c)
		assert.False(t, c.Passed)
		assert.False(t, report.OverallStatus)
	})

	t.Run("checker unavailable", func(t *testing.T) {
		v := New(pagesOpener(2), fs, cfg, WithExternalChecker(fakeChecker{err: errors.New("no runtime")}))
		report := v.Validate(context.Background(), srcPath, epubPath, pages)
		assert.Nil(t, report.Check(types.CheckEpubCheck))
		assert.True(t, report.OverallStatus)
		assert.Contains(t, report.Warnings, "EPUBCheck skipped: no runtime")
	})

	t.Run("disabled", func(t *testing.T) {
		v := New(pagesOpener(2), fs, types.ValidationConfig{}, WithExternalChecker(fakeChecker{}))
		report := v.Validate(context.Background(), srcPath, epubPath, pages)
		assert.Nil(t, report.Check(types.CheckEpubCheck))
	})
}

func TestSpanChars(t *testing.T) {
	doc := `<html><body><p>skip</p><p><span>Caf&#233; &amp; co</span></p><span>x<b>y</b></span></body></html>`
	n, err := spanChars([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, 11, n)
}

func TestWithinTolerance(t *testing.T) {
	tests := []struct {
		want, got int
		ok        bool
	}{
		{0, 0, true},
		{0, 1, false},
		{100, 98, true},
		{100, 97, false},
		{50, 51, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, withinTolerance(tt.want, tt.got, 0.02), "want=%d got=%d", tt.want, tt.got)
	}
}

func TestWriteReport(t *testing.T) {
	fs := afero.NewMemMapFs()
	report := &types.ValidationReport{
		Source: srcPath, Output: epubPath, OverallStatus: true,
		Checks: []types.CheckResult{{Name: types.CheckPageCount, Passed: true, Details: []string{"Source pages: 2"}}},
	}

	jsonPath := ReportPath("/work", "book", "json")
	assert.Equal(t, "/work/book/validation_report.json", jsonPath)
	require.NoError(t, WriteReport(fs, jsonPath, report))
	data, err := afero.ReadFile(fs, jsonPath)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, true, decoded["overall_status"])

	yamlPath := ReportPath("/work", "book", "yaml")
	assert.Equal(t, "/work/book/validation_report.yaml", yamlPath)
	require.NoError(t, WriteReport(fs, yamlPath, report))
	data, err = afero.ReadFile(fs, yamlPath)
	require.NoError(t, err)
	var y map[string]any
	require.NoError(t, yaml.Unmarshal(data, &y))
	assert.Equal(t, true, y["overall_status"])
}

func TestSummary(t *testing.T) {
	s := Summary(&types.ValidationReport{
		Checks:   []types.CheckResult{{Name: "A", Passed: true}, {Name: "B"}},
		Issues:   []string{"broken"},
		Warnings: []string{"odd"},
	})
	assert.Equal(t, "  [PASS] A\n  [FAIL] B\n  issue: broken\n  warning: odd\n", s)
}
