// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fixer repairs fixed-layout EPUBs exported by InDesign: it removes
// the CSS transforms that shrink frames, swaps embedded font families for
// system stacks, and drops the embedded font files.
package fixer

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2epub/internal/epub"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

var (
	styleAttr     = regexp.MustCompile(`style\s*=\s*"([^"]*)"`)
	transformDecl = regexp.MustCompile(`(?i)(^|;)\s*(?:-webkit-)?transform(?:-origin)?\s*:[^;]*`)
	emptyDecl     = regexp.MustCompile(`;(\s*;)+`)
	fontItem      = regexp.MustCompile(`(?i)\s*<item\b[^>]*\bhref\s*=\s*"[^"]*\.(?:otf|ttf|woff2?)"[^>]*/>`)
	fontExts      = []string{".otf", ".ttf", ".woff", ".woff2"}
)

// Result summarizes what a fix changed.
type Result struct {
	Input         string
	Output        string
	Documents     int
	Stylesheets   int
	FontsRemoved  int
	ManifestItems int
}

// Fixer rewrites EPUB archives on an afero filesystem.
type Fixer struct {
	fs    afero.Fs
	cfg   types.FixerConfig
	log   zerolog.Logger
	fonts []fontRule
}

type fontRule struct {
	re    *regexp.Regexp
	stack string
}

// Option configures a Fixer.
type Option func(*Fixer)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(f *Fixer) { f.log = l }
}

// New creates a Fixer. FontMap keys are family name prefixes, matched
// without regard to case.
func New(fs afero.Fs, cfg types.FixerConfig, opts ...Option) *Fixer {
	f := &Fixer{fs: fs, cfg: cfg, log: zerolog.Nop()}
	families := make([]string, 0, len(cfg.FontMap))
	for fam := range cfg.FontMap {
		families = append(families, fam)
	}
	sort.Strings(families)
	for _, fam := range families {
		f.fonts = append(f.fonts, fontRule{
			re:    regexp.MustCompile(`(?i)font-family\s*:\s*(?:["']|&quot;)?` + regexp.QuoteMeta(fam) + `[^;}]*`),
			stack: "font-family: " + cfg.FontMap[fam],
		})
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// DefaultOutput returns input with a _fixed suffix before the extension.
func DefaultOutput(input string) string {
	ext := path.Ext(input)
	return strings.TrimSuffix(input, ext) + "_fixed" + ext
}

// Fix reads the EPUB at input and writes the repaired copy to output. The
// input is never modified unless output names the same file.
func (f *Fixer) Fix(ctx context.Context, input, output string) (*Result, error) {
	if output == "" {
		output = DefaultOutput(input)
	}
	entries, err := epub.ReadArchive(f.fs, input)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", input, err)
	}

	res := &Result{Input: input, Output: output}
	out := make([]epub.Entry, 0, len(entries))
	for _, e := range entries {
		name := strings.ToLower(e.Name)
		switch {
		case name == "mimetype":
			continue
		case f.cfg.RemoveFonts && isFont(name):
			res.FontsRemoved++
			continue
		case strings.HasSuffix(name, ".xhtml") || strings.HasSuffix(name, ".html"):
			if !strings.Contains(path.Base(name), "toc") {
				if fixed, changed := f.fixDocument(e.Data); changed {
					e.Data = fixed
					res.Documents++
				}
			}
		case strings.HasSuffix(name, ".css"):
			if fixed := f.replaceFonts(string(e.Data)); fixed != string(e.Data) {
				e.Data = []byte(fixed)
				res.Stylesheets++
			}
		case strings.HasSuffix(name, ".opf") && f.cfg.RemoveFonts:
			removed := len(fontItem.FindAllIndex(e.Data, -1))
			if removed > 0 {
				e.Data = fontItem.ReplaceAll(e.Data, nil)
				res.ManifestItems += removed
			}
		}
		out = append(out, e)
	}

	if _, err := epub.WriteArchive(ctx, f.fs, output, out); err != nil {
		return nil, err
	}
	f.log.Info().Str("input", input).Str("output", output).
		Int("documents", res.Documents).Int("stylesheets", res.Stylesheets).
		Int("fonts_removed", res.FontsRemoved).Msg("epub fixed")
	return res, nil
}

// fixDocument rewrites every inline style attribute of a page document.
func (f *Fixer) fixDocument(data []byte) ([]byte, bool) {
	changed := false
	fixed := styleAttr.ReplaceAllFunc(data, func(m []byte) []byte {
		style := string(styleAttr.FindSubmatch(m)[1])
		next := style
		if f.cfg.StripTransforms {
			next = stripTransforms(next)
		}
		next = emptyDecl.ReplaceAllString(f.replaceFonts(next), ";")
		if next == style {
			return m
		}
		changed = true
		return []byte(`style="` + next + `"`)
	})
	return fixed, changed
}

func (f *Fixer) replaceFonts(s string) string {
	for _, r := range f.fonts {
		s = r.re.ReplaceAllLiteralString(s, r.stack)
	}
	return s
}

// stripTransforms removes transform and transform-origin declarations,
// including -webkit- prefixed forms, from an inline style.
func stripTransforms(style string) string {
	style = transformDecl.ReplaceAllString(style, "$1")
	style = emptyDecl.ReplaceAllString(style, ";")
	style = strings.TrimSpace(style)
	style = strings.Trim(style, ";")
	return strings.TrimSpace(style)
}

func isFont(name string) bool {
	for _, ext := range fontExts {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
