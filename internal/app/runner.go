package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/sha1n/ruleflat/internal/config"
	"github.com/sha1n/ruleflat/internal/pipeline"
	"github.com/sha1n/ruleflat/internal/remote"
	"github.com/sha1n/ruleflat/internal/ruleindex"
	"github.com/spf13/pflag"
)

// RunParams contains dependencies for the pipeline command
type RunParams struct {
	LoadSettings  func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings func(*config.Settings) error
	NewDownloader func(context.Context, *config.Settings) (pipeline.Downloader, error)
	RunPipeline   func(context.Context, pipeline.Options) (*pipeline.Report, error)
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:  config.LoadSettingsWithFlags,
		ValidSettings: config.ValidateSettings,
		NewDownloader: NewRemoteDownloader,
		RunPipeline:   pipeline.Run,
	}
}

// RunWithDeps loads settings and runs the pipeline with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if err := params.ValidSettings(settings); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	setupLogging()

	slog.Info("Starting ruleflat", "version", version)
	config.Log(settings)

	downloader, err := params.NewDownloader(ctx, settings)
	if err != nil {
		return fmt.Errorf("failed to create remote client: %w", err)
	}

	opts := pipeline.Options{
		Settings:   settings,
		Downloader: downloader,
		Logger:     slog.Default(),
	}
	if settings.Index.Enabled {
		opts.Indexer = ruleindex.NewIndexer(settings.StateDir)
	}

	report, err := params.RunPipeline(ctx, opts)
	if err != nil {
		return err
	}

	if len(report.Failed) > 0 {
		slog.Warn("Some rule files were skipped", "count", len(report.Failed))
	}
	return nil
}

// NewRemoteDownloader creates the GitHub contents client used by the pipeline
func NewRemoteDownloader(ctx context.Context, settings *config.Settings) (pipeline.Downloader, error) {
	return remote.NewClient(ctx, remote.Options{
		Endpoint:  settings.ListingEndpoint,
		Extension: settings.RuleExtension,
		Token:     settings.GitHubToken,
		Timeout:   settings.RequestTimeout,
		Logger:    slog.Default(),
	})
}

// setupLogging always logs to stderr; stdout is reserved for command output and stdio transport
func setupLogging() {
	handler := slog.NewTextHandler(os.Stderr, nil)
	slog.SetDefault(slog.New(handler))
}
