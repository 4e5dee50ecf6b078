// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Check names used in validation reports.
const (
	CheckFileExistence     = "File Existence"
	CheckEPUBStructure     = "EPUB Structure"
	CheckPageCount         = "Page Count"
	CheckImagePreservation = "Image Preservation"
	CheckTextContent       = "Text Content"
	CheckEPUBValidity      = "EPUB Validity"
	CheckEpubCheck         = "EPUBCheck"
)

// CheckResult is the outcome of one validation check.
type CheckResult struct {
	Name    string   `json:"name" yaml:"name"`
	Passed  bool     `json:"passed" yaml:"passed"`
	Details []string `json:"details" yaml:"details"`
}

// ValidationReport aggregates every check run against one container.
type ValidationReport struct {
	Timestamp time.Time     `json:"timestamp" yaml:"timestamp"`
	Source    string        `json:"source" yaml:"source"`
	Output    string        `json:"output" yaml:"output"`
	Checks    []CheckResult `json:"checks" yaml:"checks"`
	Issues    []string      `json:"issues" yaml:"issues"`
	Warnings  []string      `json:"warnings" yaml:"warnings"`

	// OverallStatus is true iff every check passed.
	OverallStatus bool `json:"overall_status" yaml:"overall_status"`
}

// Check returns the named check result, or nil.
func (r *ValidationReport) Check(name string) *CheckResult {
	for i := range r.Checks {
		if r.Checks[i].Name == name {
			return &r.Checks[i]
		}
	}
	return nil
}

// ConversionStatus is the outcome of converting one source file.
type ConversionStatus string

const (
	ConversionNone    ConversionStatus = "none"
	ConversionDone    ConversionStatus = "converted"
	ConversionPartial ConversionStatus = "partial"
	ConversionFailed  ConversionStatus = "failed"
)

// RunRecord is one row of the conversion history ledger.
type RunRecord struct {
	ID        int64            `json:"id" yaml:"id"`
	Source    string           `json:"source" yaml:"source"`
	Output    string           `json:"output" yaml:"output"`
	Status    ConversionStatus `json:"status" yaml:"status"`
	Pages     int              `json:"pages" yaml:"pages"`
	Images    int              `json:"images" yaml:"images"`
	Chars     int              `json:"chars" yaml:"chars"`
	Warnings  int              `json:"warnings" yaml:"warnings"`
	Bytes     int64            `json:"bytes" yaml:"bytes"`
	Validated bool             `json:"validated" yaml:"validated"`

	// Valid is meaningful only when Validated is true.
	Valid bool `json:"valid" yaml:"valid"`

	Error     string        `json:"error,omitempty" yaml:"error,omitempty"`
	StartedAt time.Time     `json:"started_at" yaml:"started_at"`
	Duration  time.Duration `json:"duration" yaml:"duration"`
}
