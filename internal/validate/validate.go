// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package validate checks a generated EPUB container against its source
// document and the extracted page content, producing a ValidationReport.
package validate

import (
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2epub/internal/epub"
	"github.com/pdiddy/pdf2epub/internal/source"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

// ExternalChecker runs an out-of-process conformance checker such as
// epubcheck. err means the checker could not run; a failing book is
// reported through passed and messages.
type ExternalChecker interface {
	Check(ctx context.Context, path string) (passed bool, messages []string, err error)
}

// Validator runs the post-generation checks.
type Validator struct {
	opener   source.Opener
	fs       afero.Fs
	cfg      types.ValidationConfig
	log      zerolog.Logger
	external ExternalChecker
	now      func() time.Time
}

// Option configures a Validator.
type Option func(*Validator)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Validator) { v.log = l }
}

// WithExternalChecker adds the EPUBCheck check.
func WithExternalChecker(c ExternalChecker) Option {
	return func(v *Validator) { v.external = c }
}

// New creates a Validator. The source is reopened through opener and the
// container is read from fs.
func New(opener source.Opener, fs afero.Fs, cfg types.ValidationConfig, opts ...Option) *Validator {
	if cfg.TextTolerance <= 0 || math.IsNaN(cfg.TextTolerance) {
		cfg.TextTolerance = 0.02
	}
	v := &Validator{opener: opener, fs: fs, cfg: cfg, log: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// run carries the state shared by the checks of one validation.
type run struct {
	report  *types.ValidationReport
	entries []epub.Entry
	byName  map[string]epub.Entry
	pages   []types.PageContent
	readErr error
}

func (r *run) add(c types.CheckResult) {
	r.report.Checks = append(r.report.Checks, c)
}

func (r *run) issue(format string, args ...any) {
	r.report.Issues = append(r.report.Issues, fmt.Sprintf(format, args...))
}

func (r *run) warn(format string, args ...any) {
	r.report.Warnings = append(r.report.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks the container at containerPath against the source at
// sourcePath and the extracted pages. Content mismatches are recorded in
// the report, never returned as errors.
func (v *Validator) Validate(ctx context.Context, sourcePath, containerPath string, pages []types.PageContent) *types.ValidationReport {
	r := &run{
		report: &types.ValidationReport{
			Timestamp: v.now().UTC(),
			Source:    sourcePath,
			Output:    containerPath,
			Checks:    []types.CheckResult{},
			Issues:    []string{},
			Warnings:  []string{},
		},
		pages: pages,
	}

	r.entries, r.readErr = epub.ReadArchive(v.fs, containerPath)
	r.byName = make(map[string]epub.Entry, len(r.entries))
	for _, e := range r.entries {
		r.byName[e.Name] = e
	}

	v.checkFiles(r, sourcePath, containerPath)
	v.checkStructure(r)
	v.checkPageCount(r, sourcePath)
	v.checkImages(r)
	v.checkText(r)
	v.checkValidity(r)
	v.checkExternal(ctx, r, containerPath)

	r.report.OverallStatus = true
	for _, c := range r.report.Checks {
		if !c.Passed {
			r.report.OverallStatus = false
		}
	}

	ev := v.log.Info()
	if !r.report.OverallStatus {
		ev = v.log.Warn()
	}
	ev.Str("output", containerPath).Bool("passed", r.report.OverallStatus).
		Int("issues", len(r.report.Issues)).Int("warnings", len(r.report.Warnings)).Msg("validation complete")
	return r.report
}

func (v *Validator) checkFiles(r *run, sourcePath, containerPath string) {
	c := types.CheckResult{Name: types.CheckFileExistence, Passed: true}

	if ok, _ := afero.Exists(v.fs, sourcePath); ok {
		c.Details = append(c.Details, "Source found: "+sourcePath)
	} else {
		c.Passed = false
		r.issue("Source not found: %s", sourcePath)
	}

	info, err := v.fs.Stat(containerPath)
	switch {
	case err != nil:
		c.Passed = false
		r.issue("Output EPUB not found: %s", containerPath)
	case info.Size() == 0:
		c.Passed = false
		r.issue("Output EPUB is empty: %s", containerPath)
	default:
		c.Details = append(c.Details, fmt.Sprintf("EPUB found: %s (%.2f MB)", containerPath, float64(info.Size())/(1024*1024)))
	}
	r.add(c)
}

func (v *Validator) checkStructure(r *run) {
	c := types.CheckResult{Name: types.CheckEPUBStructure, Passed: true}
	if r.readErr != nil {
		c.Passed = false
		r.issue("Failed to read EPUB: %v", r.readErr)
		r.add(c)
		return
	}

	for _, name := range []string{"mimetype", epub.ContainerPath, epub.OPFPath, epub.NavPath, epub.NCXPath, epub.StylePath} {
		if _, ok := r.byName[name]; ok {
			c.Details = append(c.Details, "Found: "+name)
			continue
		}
		c.Passed = false
		r.issue("Missing required EPUB file: %s", name)
	}

	n := len(pageEntries(r.entries))
	if n == 0 {
		c.Passed = false
		r.issue("No XHTML page files found in EPUB")
	}
	c.Details = append(c.Details, fmt.Sprintf("Page files: %d", n))
	r.add(c)
}

func (v *Validator) checkPageCount(r *run, sourcePath string) {
	c := types.CheckResult{Name: types.CheckPageCount}
	epubPages := len(pageEntries(r.entries))

	doc, err := v.opener.Open(sourcePath)
	if err != nil {
		r.issue("Could not verify page count: %v", err)
		r.add(c)
		return
	}
	sourcePages := doc.NumPages()
	doc.Close()

	c.Details = []string{
		fmt.Sprintf("Source pages: %d", sourcePages),
		fmt.Sprintf("Extracted pages: %d", len(r.pages)),
		fmt.Sprintf("EPUB pages: %d", epubPages),
	}
	c.Passed = sourcePages == epubPages && epubPages == len(r.pages)
	if !c.Passed {
		r.issue("Page count mismatch: source has %d, extracted %d, EPUB has %d", sourcePages, len(r.pages), epubPages)
	}
	r.add(c)
}

func (v *Validator) checkImages(r *run) {
	c := types.CheckResult{Name: types.CheckImagePreservation}
	want := types.TotalImages(r.pages)

	refs := map[string]bool{}
	for _, e := range pageEntries(r.entries) {
		srcs, err := imageRefs(e.Data)
		if err != nil {
			r.warn("Could not read image references in %s: %v", e.Name, err)
			continue
		}
		for _, s := range srcs {
			refs[epub.ResolveHref(s)] = true
		}
	}

	present := 0
	var missing []string
	for name := range refs {
		if _, ok := r.byName[name]; ok {
			present++
		} else {
			missing = append(missing, name)
		}
	}
	sort.Strings(missing)

	c.Details = []string{
		fmt.Sprintf("Extracted images: %d", want),
		fmt.Sprintf("Referenced images: %d", len(refs)),
		fmt.Sprintf("Images in EPUB: %d", present),
	}
	for _, m := range missing {
		c.Details = append(c.Details, "Missing: "+m)
	}
	c.Passed = present == want && len(missing) == 0
	switch {
	case c.Passed:
	case present == 0 && want > 0:
		r.issue("Images not preserved in EPUB")
	default:
		r.issue("Image count mismatch: extracted %d, EPUB has %d", want, present)
	}
	r.add(c)
}

func (v *Validator) checkText(r *run) {
	c := types.CheckResult{Name: types.CheckTextContent}
	want := types.TotalChars(r.pages)

	got := 0
	for _, e := range pageEntries(r.entries) {
		n, err := spanChars(e.Data)
		if err != nil {
			r.warn("Could not count text in %s: %v", e.Name, err)
			continue
		}
		got += n
	}

	c.Details = []string{
		fmt.Sprintf("Extracted characters: %d", want),
		fmt.Sprintf("EPUB characters: %d", got),
	}
	c.Passed = withinTolerance(want, got, v.cfg.TextTolerance)
	if want > 0 {
		c.Details = append(c.Details, fmt.Sprintf("Ratio: %.4f", float64(got)/float64(want)))
	}
	switch {
	case !c.Passed:
		r.issue("Text content differs beyond %.0f%% tolerance: extracted %d, EPUB has %d", v.cfg.TextTolerance*100, want, got)
	case got != want:
		r.warn("Text content differs slightly: extracted %d, EPUB has %d", want, got)
	case got == 0:
		r.warn("No text content found in EPUB")
	}
	r.add(c)
}

// withinTolerance reports whether got is within tol of want, relative to want.
func withinTolerance(want, got int, tol float64) bool {
	if want == 0 {
		return got == 0
	}
	return math.Abs(float64(got-want))/float64(want) <= tol
}

func (v *Validator) checkValidity(r *run) {
	c := types.CheckResult{Name: types.CheckEPUBValidity, Passed: true}
	if r.readErr != nil {
		c.Passed = false
		r.add(c)
		return
	}

	if len(r.entries) == 0 || r.entries[0].Name != "mimetype" {
		c.Passed = false
		r.issue("mimetype is not the first entry")
	} else {
		first := r.entries[0]
		if string(first.Data) != epub.MimeType {
			c.Passed = false
			r.issue("Invalid mimetype: %q", string(first.Data))
		}
		if !first.Store {
			c.Passed = false
			r.issue("mimetype entry is compressed")
		}
	}

	checked := 0
	for _, e := range r.entries {
		if !isXMLResource(e.Name) {
			continue
		}
		checked++
		if err := wellFormed(e.Data); err != nil {
			c.Passed = false
			r.issue("Invalid XML in %s: %v", e.Name, err)
		}
	}
	c.Details = append(c.Details, fmt.Sprintf("XML resources checked: %d", checked))

	if cx, ok := r.byName[epub.ContainerPath]; ok {
		root, err := rootfilePath(cx.Data)
		switch {
		case err != nil:
			c.Passed = false
			r.issue("Could not read rootfile from %s: %v", epub.ContainerPath, err)
		case r.byName[root].Name == "":
			c.Passed = false
			r.issue("Rootfile %s declared in %s is missing", root, epub.ContainerPath)
		default:
			c.Details = append(c.Details, "Rootfile: "+root)
		}
	}
	r.add(c)
}

func (v *Validator) checkExternal(ctx context.Context, r *run, containerPath string) {
	if !v.cfg.EpubCheck || v.external == nil {
		return
	}
	passed, msgs, err := v.external.Check(ctx, containerPath)
	if err != nil {
		v.log.Warn().Err(err).Msg("epubcheck unavailable")
		r.warn("EPUBCheck skipped: %v", err)
		return
	}
	c := types.CheckResult{Name: types.CheckEpubCheck, Passed: passed, Details: msgs}
	if !passed {
		r.issue("EPUBCheck reported %d problems", len(msgs))
	}
	r.add(c)
}

func pageEntries(entries []epub.Entry) []epub.Entry {
	var out []epub.Entry
	for _, e := range entries {
		if epub.IsPageResource(e.Name) {
			out = append(out, e)
		}
	}
	return out
}

func isXMLResource(name string) bool {
	for _, ext := range []string{".xhtml", ".xml", ".opf", ".ncx"} {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

func wellFormed(data []byte) error {
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		_, err := d.Token()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// imageRefs returns the src attribute of every img element.
func imageRefs(data []byte) ([]string, error) {
	var refs []string
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return refs, nil
		}
		if err != nil {
			return refs, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "img" {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Local == "src" {
				refs = append(refs, a.Value)
			}
		}
	}
}

// spanChars counts the characters inside span elements.
func spanChars(data []byte) (int, error) {
	n, depth := 0, 0
	d := xml.NewDecoder(bytes.NewReader(data))
	for {
		tok, err := d.Token()
		if errors.Is(err, io.EOF) {
			return n, nil
		}
		if err != nil {
			return n, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "span" {
				depth++
			}
		case xml.EndElement:
			if t.Name.Local == "span" && depth > 0 {
				depth--
			}
		case xml.CharData:
			if depth > 0 {
				n += utf8.RuneCount(t)
			}
		}
	}
}

func rootfilePath(data []byte) (string, error) {
	var doc struct {
		Rootfiles []struct {
			FullPath string `xml:"full-path,attr"`
		} `xml:"rootfiles>rootfile"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return "", err
	}
	if len(doc.Rootfiles) == 0 || doc.Rootfiles[0].FullPath == "" {
		return "", errors.New("no rootfile declared")
	}
	return doc.Rootfiles[0].FullPath, nil
}
