// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdf2epub CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdf2epub/internal/logging"
	"github.com/pdiddy/pdf2epub/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// cfg and logger are populated before any subcommand runs.
var (
	cfg    types.PipelineConfig
	logger = zerolog.Nop()
)

// rootCmd is the base command for the pdf2epub CLI.
var rootCmd = &cobra.Command{
	Use:   "pdf2epub",
	Short: "Convert PDF documents to fixed-layout EPUB 3",
	Long: `pdf2epub converts PDF documents into fixed-layout EPUB 3 books that keep
every page's geometry: text runs and images are positioned absolutely at the
coordinates they had in the source.

Each conversion extracts the source page by page, generates the EPUB
container, and validates the result against the source. Settings come from
pdf2epub.yaml, PDF2EPUB_* environment variables (a .env file is honoured),
and flags, in increasing order of precedence.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("loading .env: %w", err)
		}
		if err := bindConfigFlags(cmd); err != nil {
			return err
		}
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded
		logger = logging.New(cfg.Logging, os.Stderr)
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pdf2epub.yaml or ~/.config/pdf2epub/pdf2epub.yaml)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: console or json")
	pf.String("work-dir", "", "directory for snapshots and validation reports (default conversion_work)")
	configFlag(pf, "log-level", "logging.level")
	configFlag(pf, "log-format", "logging.format")
	configFlag(pf, "work-dir", "extraction.work_dir")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdf2epub")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdf2epub"))
		}
	}

	setupViper(viper.GetViper())

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
