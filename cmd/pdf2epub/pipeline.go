// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"
	"sync"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2epub/internal/container"
	"github.com/pdiddy/pdf2epub/internal/convert"
	"github.com/pdiddy/pdf2epub/internal/epub"
	"github.com/pdiddy/pdf2epub/internal/extract"
	"github.com/pdiddy/pdf2epub/internal/history"
	"github.com/pdiddy/pdf2epub/internal/render"
	"github.com/pdiddy/pdf2epub/internal/source"
	"github.com/pdiddy/pdf2epub/internal/validate"
)

// pageProgress draws one progress bar per extraction on stderr. A bar is
// created on the first callback of each document, when the page count is
// known.
type pageProgress struct {
	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	seen int
}

func (p *pageProgress) update(_, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || p.seen >= p.bar.GetMax() {
		p.seen = 0
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionSetDescription("extracting pages"),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}
	p.seen++
	_ = p.bar.Set(p.seen)
}

func newExtractor(showProgress bool) *extract.Extractor {
	opts := []extract.Option{extract.WithLogger(logger)}
	if showProgress {
		opts = append(opts, extract.WithProgress((&pageProgress{}).update))
	}
	return extract.New(source.PDFOpener{}, cfg.Extraction, opts...)
}

func newSnapshot(fs afero.Fs) extract.Snapshot {
	s := extract.Snapshot{FS: fs}
	if cfg.Extraction.ReferenceDPI > 0 {
		s.Rasterizer = render.Renderer{}
		s.DPI = cfg.Extraction.ReferenceDPI
	}
	return s
}

func newValidator(fs afero.Fs) *validate.Validator {
	opts := []validate.Option{validate.WithLogger(logger)}
	if cfg.Validation.EpubCheck {
		rt, err := container.DetectRuntime()
		if err != nil {
			logger.Warn().Err(err).Msg("epubcheck disabled")
		} else {
			opts = append(opts, validate.WithExternalChecker(container.EpubCheck{
				Runtime: rt,
				Image:   cfg.Validation.EpubCheckImage,
			}))
		}
	}
	return validate.New(source.PDFOpener{}, fs, cfg.Validation, opts...)
}

// newPipeline wires the configured stages. The returned cleanup closes the
// history ledger.
func newPipeline(showProgress bool) (*convert.Pipeline, func(), error) {
	fs := afero.NewOsFs()
	opts := []convert.Option{convert.WithLogger(logger)}
	cleanup := func() {}

	if cfg.Validation.Enabled {
		opts = append(opts, convert.WithValidator(newValidator(fs), cfg.Validation.ReportFormat))
	}
	if cfg.Extraction.KeepArtifacts {
		opts = append(opts, convert.WithSnapshot(newSnapshot(fs)))
	}
	if cfg.History.Enabled {
		store, err := history.NewStore(cfg.History)
		if err != nil {
			return nil, nil, fmt.Errorf("opening history: %w", err)
		}
		opts = append(opts, convert.WithHistory(store))
		cleanup = func() { store.Close() }
	}

	gen := epub.New(fs, cfg.Generation, epub.WithLogger(logger))
	return convert.NewPipeline(newExtractor(showProgress), gen, fs, cfg.Extraction.WorkDir, opts...), cleanup, nil
}
