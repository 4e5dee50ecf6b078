// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package validate

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// ReportFileName is the report's base name inside a work directory.
const ReportFileName = "validation_report"

// ReportPath returns where the report for a source stem is stored under
// workDir, with the extension for format ("json" or "yaml").
func ReportPath(workDir, stem, format string) string {
	ext := ".json"
	if strings.EqualFold(format, "yaml") || strings.EqualFold(format, "yml") {
		ext = ".yaml"
	}
	return filepath.Join(workDir, stem, ReportFileName+ext)
}

// WriteReport writes report to path as YAML when the extension is .yaml or
// .yml and as indented JSON otherwise.
func WriteReport(fs afero.Fs, path string, report *types.ValidationReport) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(report)
	default:
		data, err = json.MarshalIndent(report, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// Summary renders a report as the plain-text block printed after a run.
func Summary(report *types.ValidationReport) string {
	var b strings.Builder
	for _, c := range report.Checks {
		mark := "PASS"
		if !c.Passed {
			mark = "FAIL"
		}
		fmt.Fprintf(&b, "  [%s] %s\n", mark, c.Name)
	}
	for _, is := range report.Issues {
		fmt.Fprintf(&b, "  issue: %s\n", is)
	}
	for _, w := range report.Warnings {
		fmt.Fprintf(&b, "  warning: %s\n", w)
	}
	return b.String()
}
