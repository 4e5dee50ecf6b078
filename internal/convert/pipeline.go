// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package convert

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"

	"github.com/pdiddy/pdf2epub/internal/epub"
	"github.com/pdiddy/pdf2epub/internal/extract"
	"github.com/pdiddy/pdf2epub/internal/validate"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

// Recorder stores a finished run. *history.Store implements it.
type Recorder interface {
	Record(ctx context.Context, rec types.RunRecord) (int64, error)
}

// Outcome is everything one conversion produced.
type Outcome struct {
	Source       string
	Output       string
	Status       types.ConversionStatus
	Extraction   *extract.Result
	Container    *epub.Container
	Report       *types.ValidationReport
	ReportPath   string
	SnapshotPath string
	Duration     time.Duration
}

// Pipeline runs Extract, Generate and Validate in sequence for one source.
// The stages share nothing but the page content handed between them.
type Pipeline struct {
	extractor *extract.Extractor
	generator *epub.Generator
	validator *validate.Validator
	snapshot  *extract.Snapshot
	history   Recorder

	fs           afero.Fs
	workDir      string
	reportFormat string
	log          zerolog.Logger
	now          func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// WithValidator validates every container and writes the report under the
// work directory in format ("json" or "yaml").
func WithValidator(v *validate.Validator, format string) Option {
	return func(p *Pipeline) {
		p.validator = v
		p.reportFormat = format
	}
}

// WithSnapshot persists the extraction under the work directory. The
// snapshot's Dir is replaced per source.
func WithSnapshot(s extract.Snapshot) Option {
	return func(p *Pipeline) { p.snapshot = &s }
}

// WithHistory records every run, failed or not.
func WithHistory(r Recorder) Option {
	return func(p *Pipeline) { p.history = r }
}

// NewPipeline creates a Pipeline. Reports and snapshots are written to
// workDir on fs.
func NewPipeline(ex *extract.Extractor, gen *epub.Generator, fs afero.Fs, workDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: ex,
		generator: gen,
		fs:        fs,
		workDir:   workDir,
		log:       zerolog.Nop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Convert turns the source at src into a container at dest. Unreadable
// sources and layout or write failures are returned as errors; content
// mismatches found by validation only lower the status to partial.
func (p *Pipeline) Convert(ctx context.Context, src, dest string) (*Outcome, error) {
	start := p.now()
	out := &Outcome{Source: src, Output: dest, Status: types.ConversionFailed}
	stem := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	log := p.log.With().Str("source", src).Logger()

	res, err := p.extractor.Extract(ctx, src)
	if err != nil {
		return out, p.finish(ctx, out, start, err)
	}
	out.Extraction = res

	if p.snapshot != nil {
		s := *p.snapshot
		s.Dir = filepath.Join(p.workDir, stem)
		path, err := s.Write(ctx, res)
		if err != nil {
			log.Warn().Err(err).Msg("snapshot not written")
		} else {
			out.SnapshotPath = path
		}
	}

	c, err := p.generator.Generate(ctx, res.Pages, res.Metadata, dest)
	if err != nil {
		return out, p.finish(ctx, out, start, err)
	}
	out.Container = c

	if p.validator != nil {
		report := p.validator.Validate(ctx, src, dest, res.Pages)
		for _, w := range res.Warnings {
			report.Warnings = append(report.Warnings, w.String())
		}
		out.Report = report

		path := validate.ReportPath(p.workDir, stem, p.reportFormat)
		if err := validate.WriteReport(p.fs, path, report); err != nil {
			log.Warn().Err(err).Msg("validation report not written")
		} else {
			out.ReportPath = path
		}
	}

	out.Status = types.ConversionDone
	if len(res.Warnings) > 0 || (out.Report != nil && !out.Report.OverallStatus) {
		out.Status = types.ConversionPartial
	}
	return out, p.finish(ctx, out, start, nil)
}

// finish stamps the duration, records the run and passes err through.
func (p *Pipeline) finish(ctx context.Context, out *Outcome, start time.Time, err error) error {
	out.Duration = p.now().Sub(start)
	if p.history != nil {
		p.record(ctx, out, start, err)
	}
	if err != nil {
		return fmt.Errorf("converting %s: %w", out.Source, err)
	}
	return nil
}

func (p *Pipeline) record(ctx context.Context, out *Outcome, start time.Time, err error) {
	rec := types.RunRecord{
		Source:    out.Source,
		Output:    out.Output,
		Status:    out.Status,
		StartedAt: start,
		Duration:  out.Duration,
	}
	if res := out.Extraction; res != nil {
		rec.Pages = res.Stats.Pages
		rec.Images = res.Stats.Images
		rec.Chars = res.Stats.Chars
		rec.Warnings = len(res.Warnings)
	}
	if out.Container != nil {
		rec.Bytes = out.Container.Size
	}
	if out.Report != nil {
		rec.Validated = true
		rec.Valid = out.Report.OverallStatus
	}
	if err != nil {
		rec.Error = err.Error()
	}

	// A cancelled run still gets recorded.
	if _, herr := p.history.Record(context.WithoutCancel(ctx), rec); herr != nil {
		p.log.Warn().Err(herr).Str("source", out.Source).Msg("history not recorded")
	}
}
