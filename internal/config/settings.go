package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Auth type constants
const (
	AuthTypeNone   = "none"
	AuthTypeBasic  = "basic"
	AuthTypeAPIKey = "apikey"
)

// DefaultListingEndpoint is the directory-listing URL prefix of the upstream rule repository.
const DefaultListingEndpoint = "https://api.github.com/repos/SukkaLab/ruleset.skk.moe/contents/sing-box"

// AuthSettings configuration for authentication
type AuthSettings struct {
	Type    string            `mapstructure:"type"` // AuthTypeNone, AuthTypeBasic, or AuthTypeAPIKey
	Basic   BasicAuthSettings `mapstructure:"basic"`
	APIKeys []string          `mapstructure:"api_keys"`
}

// BasicAuthSettings configuration for basic auth
type BasicAuthSettings struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// IndexSettings configuration for the rule search index
type IndexSettings struct {
	Enabled bool `mapstructure:"enabled"`
}

// ServeSettings configuration for the MCP server exposing generated rule sets
type ServeSettings struct {
	Transport  string       `mapstructure:"transport"`
	Host       string       `mapstructure:"host"`
	Port       int          `mapstructure:"port"`
	MaxResults int          `mapstructure:"max_results"`
	Auth       AuthSettings `mapstructure:"auth"`
}

// Settings application settings
type Settings struct {
	SourceFolders   []string      `mapstructure:"source_folders"`
	OutputDir       string        `mapstructure:"output_dir"`
	WorkDir         string        `mapstructure:"work_dir"`
	StateDir        string        `mapstructure:"state_dir"`
	ListingEndpoint string        `mapstructure:"listing_endpoint"`
	RuleExtension   string        `mapstructure:"rule_extension"`
	ExcludePatterns []string      `mapstructure:"exclude_patterns"`
	GitHubToken     string        `mapstructure:"github_token"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	LockTimeout     time.Duration `mapstructure:"lock_timeout"`
	Index           IndexSettings `mapstructure:"index"`
	Serve           ServeSettings `mapstructure:"serve"`
}

// LoadSettings loads settings from environment variables and optional .env file
func LoadSettings() (*Settings, error) {
	return LoadSettingsWithFlags(nil)
}

// LoadSettingsWithFlags loads settings with optional CLI flag overrides.
// Priority: CLI flags > environment variables > .env file > defaults.
// If flags is nil, only env vars and defaults are used.
func LoadSettingsWithFlags(flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()

	// Default values
	v.SetDefault("source_folders", []string{"domainset", "non_ip"})
	v.SetDefault("output_dir", "data")
	v.SetDefault("work_dir", ".")
	v.SetDefault("state_dir", ".ruleflat")
	v.SetDefault("listing_endpoint", DefaultListingEndpoint)
	v.SetDefault("rule_extension", ".json")
	v.SetDefault("request_timeout", 60*time.Second)
	v.SetDefault("lock_timeout", 2*time.Minute)
	v.SetDefault("index.enabled", true)

	// Serve defaults
	v.SetDefault("serve.transport", "stdio")
	v.SetDefault("serve.host", "0.0.0.0")
	v.SetDefault("serve.port", 8080)
	v.SetDefault("serve.max_results", 20)
	v.SetDefault("serve.auth.type", AuthTypeNone)

	// Environment variables
	v.SetEnvPrefix("RULEFLAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Bind specific env vars for nested config
	_ = v.BindEnv("index.enabled", "RULEFLAT_INDEX_ENABLED")
	_ = v.BindEnv("serve.transport", "RULEFLAT_SERVE_TRANSPORT")
	_ = v.BindEnv("serve.host", "RULEFLAT_SERVE_HOST")
	_ = v.BindEnv("serve.port", "RULEFLAT_SERVE_PORT")
	_ = v.BindEnv("serve.max_results", "RULEFLAT_SERVE_MAX_RESULTS")
	_ = v.BindEnv("serve.auth.type", "RULEFLAT_SERVE_AUTH_TYPE")
	_ = v.BindEnv("serve.auth.basic.username", "RULEFLAT_SERVE_AUTH_BASIC_USERNAME")
	_ = v.BindEnv("serve.auth.basic.password", "RULEFLAT_SERVE_AUTH_BASIC_PASSWORD")
	_ = v.BindEnv("serve.auth.api_keys", "RULEFLAT_SERVE_AUTH_API_KEYS")

	// Bind CLI flags if provided (highest priority).
	// Flags not registered on this FlagSet are skipped.
	if flags != nil {
		bindFlag(v, flags, "source_folders", "source-folders")
		bindFlag(v, flags, "output_dir", "output-dir")
		bindFlag(v, flags, "work_dir", "work-dir")
		bindFlag(v, flags, "state_dir", "state-dir")
		bindFlag(v, flags, "listing_endpoint", "listing-endpoint")
		bindFlag(v, flags, "rule_extension", "rule-extension")
		bindFlag(v, flags, "exclude_patterns", "exclude")
		bindFlag(v, flags, "github_token", "github-token")
		bindFlag(v, flags, "request_timeout", "request-timeout")
		bindFlag(v, flags, "lock_timeout", "lock-timeout")
		bindFlag(v, flags, "index.enabled", "index")

		bindFlag(v, flags, "serve.transport", "transport")
		bindFlag(v, flags, "serve.host", "host")
		bindFlag(v, flags, "serve.port", "port")
		bindFlag(v, flags, "serve.max_results", "max-results")
		bindFlag(v, flags, "serve.auth.type", "auth-type")
		bindFlag(v, flags, "serve.auth.basic.username", "auth-basic-username")
		bindFlag(v, flags, "serve.auth.basic.password", "auth-basic-password")
		bindFlag(v, flags, "serve.auth.api_keys", "auth-api-keys")
	}

	// Helper to look for .env file
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, err
	}

	// Comma-separated lists from env vars arrive as a single string
	settings.SourceFolders = splitListEnv(settings.SourceFolders, "RULEFLAT_SOURCE_FOLDERS")
	settings.ExcludePatterns = splitListEnv(settings.ExcludePatterns, "RULEFLAT_EXCLUDE_PATTERNS")
	settings.Serve.Auth.APIKeys = splitListEnv(settings.Serve.Auth.APIKeys, "RULEFLAT_SERVE_AUTH_API_KEYS")

	settings.OutputDir = expandHomeDir(settings.OutputDir)
	settings.WorkDir = expandHomeDir(settings.WorkDir)
	settings.StateDir = expandHomeDir(settings.StateDir)

	return &settings, nil
}

// bindFlag binds a viper key to a flag if the flag is registered
func bindFlag(v *viper.Viper, flags *pflag.FlagSet, key, name string) {
	if f := flags.Lookup(name); f != nil {
		_ = v.BindPFlag(key, f)
	}
}

// splitListEnv re-splits a list that was provided via env var as a comma-separated
// string, then trims and drops empty entries.
func splitListEnv(values []string, envName string) []string {
	env := os.Getenv(envName)
	if env != "" {
		if len(values) == 0 || (len(values) == 1 && strings.Contains(values[0], ",")) {
			values = strings.Split(env, ",")
		}
	}

	for i := range values {
		values[i] = strings.TrimSpace(values[i])
	}

	return filterEmptyStrings(values)
}

// expandHomeDir expands ~ to the user's home directory
func expandHomeDir(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	if path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return home
	}
	return path
}

// filterEmptyStrings removes empty strings from a slice
func filterEmptyStrings(s []string) []string {
	var result []string
	for _, str := range s {
		if str != "" {
			result = append(result, str)
		}
	}
	return result
}

// ValidateSettings checks the pipeline configuration for values that cannot work.
func ValidateSettings(s *Settings) error {
	if len(s.SourceFolders) == 0 {
		return errors.New("at least one source folder is required")
	}

	seen := make(map[string]bool, len(s.SourceFolders))
	for _, folder := range s.SourceFolders {
		if strings.ContainsAny(folder, `/\`) || folder == "." || folder == ".." {
			return fmt.Errorf("invalid source folder name: %q", folder)
		}
		if seen[folder] {
			return fmt.Errorf("duplicate source folder: %q", folder)
		}
		seen[folder] = true
	}

	if s.OutputDir == "" {
		return errors.New("output-dir cannot be empty")
	}
	if s.StateDir == "" {
		return errors.New("state-dir cannot be empty")
	}

	u, err := url.Parse(s.ListingEndpoint)
	if err != nil {
		return fmt.Errorf("invalid listing-endpoint: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("listing-endpoint must be an absolute http(s) URL, got: " + s.ListingEndpoint)
	}

	if !strings.HasPrefix(s.RuleExtension, ".") || len(s.RuleExtension) < 2 {
		return errors.New("rule-extension must start with '.', got: " + s.RuleExtension)
	}

	if s.RequestTimeout < 0 {
		return errors.New("request-timeout cannot be negative")
	}
	if s.LockTimeout < 0 {
		return errors.New("lock-timeout cannot be negative")
	}

	return nil
}

// ValidateServeSettings checks for conflicting server configurations.
// Returns an error if the settings contain mutually exclusive or incomplete auth config.
func ValidateServeSettings(s *Settings) error {
	serve := &s.Serve

	// Validate transport type
	switch serve.Transport {
	case "stdio", "sse":
		// valid
	default:
		return errors.New("transport must be 'stdio' or 'sse', got: " + serve.Transport)
	}

	if serve.MaxResults <= 0 {
		return errors.New("max-results must be positive")
	}

	if s.OutputDir == "" {
		return errors.New("output-dir cannot be empty")
	}

	hasBasicCreds := serve.Auth.Basic.Username != "" || serve.Auth.Basic.Password != ""
	hasAPIKeys := len(serve.Auth.APIKeys) > 0

	switch serve.Auth.Type {
	case AuthTypeNone, "":
		if hasBasicCreds || hasAPIKeys {
			return errors.New("auth-type 'none' is incompatible with auth credentials")
		}
	case AuthTypeBasic:
		if hasAPIKeys {
			return errors.New("auth-type 'basic' is mutually exclusive with auth-api-keys")
		}
		if serve.Auth.Basic.Username == "" || serve.Auth.Basic.Password == "" {
			return errors.New("auth-type 'basic' requires both username and password")
		}
	case AuthTypeAPIKey:
		if hasBasicCreds {
			return errors.New("auth-type 'apikey' is mutually exclusive with basic auth credentials")
		}
		if !hasAPIKeys {
			return errors.New("auth-type 'apikey' requires at least one API key")
		}
	default:
		return errors.New("unknown auth-type: " + serve.Auth.Type)
	}

	return nil
}

// FolderDir returns the local download directory of a source folder.
func (s *Settings) FolderDir(folder string) string {
	return filepath.Join(s.WorkDir, folder)
}
