package config

import (
	"context"
	"log/slog"
)

const masked = "****"

// Log logs the resolved pipeline settings
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved pipeline settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: source_folders", "value", s.SourceFolders)
	logger.InfoContext(ctx, "Config: listing_endpoint", "value", s.ListingEndpoint)
	logger.InfoContext(ctx, "Config: work_dir", "value", s.WorkDir)
	logger.InfoContext(ctx, "Config: output_dir", "value", s.OutputDir)
	logger.InfoContext(ctx, "Config: state_dir", "value", s.StateDir)
	logger.InfoContext(ctx, "Config: rule_extension", "value", s.RuleExtension)
	if len(s.ExcludePatterns) > 0 {
		logger.InfoContext(ctx, "Config: exclude_patterns", "value", s.ExcludePatterns)
	}
	if s.GitHubToken != "" {
		logger.InfoContext(ctx, "Config: github_token", "value", masked)
	}
	logger.InfoContext(ctx, "Config: request_timeout", "value", s.RequestTimeout)
	logger.InfoContext(ctx, "Config: index.enabled", "value", s.Index.Enabled)
}

// LogServe logs the resolved server settings, skipping irrelevant ones
func LogServe(s *Settings) {
	LogServeWithLogger(s, slog.Default())
}

// LogServeWithLogger logs the resolved server settings using the provided logger
func LogServeWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: output_dir", "value", s.OutputDir)
	logger.InfoContext(ctx, "Config: transport", "value", s.Serve.Transport)
	if s.Serve.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Serve.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Serve.Port)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Serve.Auth.Type)
	switch s.Serve.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Serve.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", masked)
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Serve.Auth.APIKeys))
	}
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = masked
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", masked),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	token := ""
	if s.GitHubToken != "" {
		token = masked
	}
	return slog.GroupValue(
		slog.Any("source_folders", s.SourceFolders),
		slog.String("listing_endpoint", s.ListingEndpoint),
		slog.String("output_dir", s.OutputDir),
		slog.String("github_token", token),
		slog.Duration("request_timeout", s.RequestTimeout),
		slog.Any("auth", AuthSettingsLogValue(s.Serve.Auth)),
	)
}
