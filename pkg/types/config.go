// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "runtime"

// ExtractionConfig holds settings for the extraction stage.
type ExtractionConfig struct {
	// Scale is the uniform factor from source units to target pixels (default 1.0).
	Scale float64 `json:"scale" yaml:"scale" mapstructure:"scale"`

	// Workers is the number of pages extracted concurrently (default NumCPU).
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	// WorkDir is the base directory for intermediate artifacts
	// (default "conversion_work").
	WorkDir string `json:"work_dir" yaml:"work_dir" mapstructure:"work_dir"`

	// KeepArtifacts writes the extraction snapshot (metadata and images)
	// under WorkDir.
	KeepArtifacts bool `json:"keep_artifacts" yaml:"keep_artifacts" mapstructure:"keep_artifacts"`

	// ReferenceDPI rasterizes every page at this resolution next to the
	// snapshot when positive. Requires KeepArtifacts.
	ReferenceDPI float64 `json:"reference_dpi" yaml:"reference_dpi" mapstructure:"reference_dpi"`
}

// GenerationConfig holds settings for the EPUB generation stage.
type GenerationConfig struct {
	// Language is the dc:language of the package (default "en").
	Language string `json:"language" yaml:"language" mapstructure:"language"`

	// FontFamily is the generic family emitted for every text run (default "serif").
	FontFamily string `json:"font_family" yaml:"font_family" mapstructure:"font_family"`

	// Orientation is portrait, landscape, or auto. Auto picks from the
	// first page's aspect ratio.
	Orientation string `json:"orientation" yaml:"orientation" mapstructure:"orientation"`

	// Identifier overrides the generated urn:uuid package identifier.
	Identifier string `json:"identifier,omitempty" yaml:"identifier,omitempty" mapstructure:"identifier"`

	// Workers is the number of page documents rendered concurrently.
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

// ValidationConfig holds settings for the validation stage.
type ValidationConfig struct {
	// Enabled runs the validator after generation (default true).
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// TextTolerance is the allowed relative difference between extracted
	// and generated character counts (default 0.02).
	TextTolerance float64 `json:"text_tolerance" yaml:"text_tolerance" mapstructure:"text_tolerance"`

	// ReportFormat is json or yaml.
	ReportFormat string `json:"report_format" yaml:"report_format" mapstructure:"report_format"`

	// EpubCheck adds a check that runs EpubCheckImage in docker or podman.
	EpubCheck bool `json:"epubcheck" yaml:"epubcheck" mapstructure:"epubcheck"`

	EpubCheckImage string `json:"epubcheck_image" yaml:"epubcheck_image" mapstructure:"epubcheck_image"`
}

// LoggingConfig selects log level and output format (console or json).
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// HistoryConfig controls the run ledger.
type HistoryConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	DBPath  string `json:"db_path" yaml:"db_path" mapstructure:"db_path"`
}

// FixerConfig holds settings for repairing InDesign-exported EPUBs.
type FixerConfig struct {
	// FontMap maps a font family prefix to the replacement font stack.
	FontMap map[string]string `json:"font_map" yaml:"font_map" mapstructure:"font_map"`

	// StripTransforms removes transform and transform-origin declarations
	// from inline styles.
	StripTransforms bool `json:"strip_transforms" yaml:"strip_transforms" mapstructure:"strip_transforms"`

	// RemoveFonts drops embedded font files and their manifest items.
	RemoveFonts bool `json:"remove_fonts" yaml:"remove_fonts" mapstructure:"remove_fonts"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Extraction ExtractionConfig `json:"extraction" yaml:"extraction" mapstructure:"extraction"`
	Generation GenerationConfig `json:"generation" yaml:"generation" mapstructure:"generation"`
	Validation ValidationConfig `json:"validation" yaml:"validation" mapstructure:"validation"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging" mapstructure:"logging"`
	History    HistoryConfig    `json:"history" yaml:"history" mapstructure:"history"`
	Fixer      FixerConfig      `json:"fixer" yaml:"fixer" mapstructure:"fixer"`
}

// DefaultPipelineConfig returns the configuration used when no file,
// environment variable, or flag overrides a value.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Extraction: ExtractionConfig{
			Scale:   1.0,
			Workers: runtime.NumCPU(),
			WorkDir: "conversion_work",
		},
		Generation: GenerationConfig{
			Language:    "en",
			FontFamily:  "serif",
			Orientation: OrientationPortrait,
			Workers:     runtime.NumCPU(),
		},
		Validation: ValidationConfig{
			Enabled:        true,
			TextTolerance:  0.02,
			ReportFormat:   "json",
			EpubCheckImage: "epubcheck:latest",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "conversion_work/history.db",
		},
		Fixer: FixerConfig{
			FontMap: map[string]string{
				"AauxNext": "'Georgia', 'Times New Roman', serif",
				"Alga":     "-apple-system, 'Segoe UI', Arial, sans-serif",
			},
			StripTransforms: true,
			RemoveFonts:     true,
		},
	}
}
