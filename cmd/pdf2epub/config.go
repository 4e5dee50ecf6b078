// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2epub/pkg/types"
)

// configKeyAnnotation marks a flag as overriding a configuration key.
const configKeyAnnotation = "pdf2epub/config-key"

// configFlag ties flag name in fs to the dotted configuration key.
func configFlag(fs *pflag.FlagSet, name, key string) {
	if err := fs.SetAnnotation(name, configKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}

// bindConfigFlags binds every annotated flag of the running command to
// viper. Only flags set on the command line take precedence over the
// config file and environment.
func bindConfigFlags(cmd *cobra.Command) error {
	var err error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || err != nil {
			return
		}
		err = viper.BindPFlag(keys[0], f)
	})
	return err
}

// setupViper registers the environment prefix and every default so that
// environment variables are seen by Unmarshal.
func setupViper(v *viper.Viper) {
	v.SetEnvPrefix("PDF2EPUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	d := types.DefaultPipelineConfig()
	defaults := map[string]any{
		"extraction.scale":           d.Extraction.Scale,
		"extraction.workers":         d.Extraction.Workers,
		"extraction.work_dir":        d.Extraction.WorkDir,
		"extraction.keep_artifacts":  d.Extraction.KeepArtifacts,
		"extraction.reference_dpi":   d.Extraction.ReferenceDPI,
		"generation.language":        d.Generation.Language,
		"generation.font_family":     d.Generation.FontFamily,
		"generation.orientation":     d.Generation.Orientation,
		"generation.identifier":      d.Generation.Identifier,
		"generation.workers":         d.Generation.Workers,
		"validation.enabled":         d.Validation.Enabled,
		"validation.text_tolerance":  d.Validation.TextTolerance,
		"validation.report_format":   d.Validation.ReportFormat,
		"validation.epubcheck":       d.Validation.EpubCheck,
		"validation.epubcheck_image": d.Validation.EpubCheckImage,
		"logging.level":              d.Logging.Level,
		"logging.format":             d.Logging.Format,
		"history.enabled":            d.History.Enabled,
		"history.db_path":            d.History.DBPath,
		"fixer.font_map":             d.Fixer.FontMap,
		"fixer.strip_transforms":     d.Fixer.StripTransforms,
		"fixer.remove_fonts":         d.Fixer.RemoveFonts,
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// loadConfig resolves the pipeline configuration from the global viper.
func loadConfig() (types.PipelineConfig, error) {
	return decodeConfig(viper.GetViper())
}

func decodeConfig(v *viper.Viper) (types.PipelineConfig, error) {
	c := types.DefaultPipelineConfig()
	if err := v.Unmarshal(&c); err != nil {
		return c, fmt.Errorf("decoding configuration: %w", err)
	}
	return c, nil
}
