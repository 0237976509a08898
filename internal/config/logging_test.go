package config

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLog(t *testing.T) {
	// Just verify it doesn't panic
	Log(validSettings())
}

func TestLogWithLogger_PipelineSettings(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.GitHubToken = "ghp_secret"

	LogWithLogger(s, logger)

	output := buf.String()
	for _, want := range []string{"source_folders", "listing_endpoint", "output_dir", "****"} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %q in log output", want)
		}
	}
	if strings.Contains(output, "ghp_secret") {
		t.Error("Token should be masked, not shown in plain text")
	}
	// Exclude patterns are only logged when set
	if strings.Contains(output, "exclude_patterns") {
		t.Error("Expected no 'exclude_patterns' in log output")
	}
}

func TestLogWithLogger_NoToken(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogWithLogger(validSettings(), logger)

	if strings.Contains(buf.String(), "github_token") {
		t.Error("Expected no 'github_token' in log output when unset")
	}
}

func TestLogServeWithLogger_StdioTransport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Serve.Host = "localhost"
	s.Serve.Port = 8080

	LogServeWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "transport") {
		t.Error("Expected 'transport' in log output")
	}
	// stdio transport should not log host/port
	if strings.Contains(output, "host") {
		t.Error("Expected no 'host' in log output for stdio transport")
	}
}

func TestLogServeWithLogger_SSETransport(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Serve.Transport = "sse"
	s.Serve.Host = "localhost"
	s.Serve.Port = 8080

	LogServeWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "host") {
		t.Error("Expected 'host' in log output for SSE transport")
	}
	if !strings.Contains(output, "port") {
		t.Error("Expected 'port' in log output for SSE transport")
	}
}

func TestLogServeWithLogger_BasicAuth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Serve.Auth = AuthSettings{
		Type:  AuthTypeBasic,
		Basic: BasicAuthSettings{Username: "admin", Password: "secret"},
	}

	LogServeWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "admin") {
		t.Error("Expected username in log output")
	}
	if !strings.Contains(output, "****") {
		t.Error("Expected masked password in log output")
	}
	if strings.Contains(output, "secret") {
		t.Error("Password should be masked, not shown in plain text")
	}
}

func TestLogServeWithLogger_APIKeyAuth(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	s := validSettings()
	s.Serve.Auth = AuthSettings{
		Type:    AuthTypeAPIKey,
		APIKeys: []string{"key1", "key2", "key3"},
	}

	LogServeWithLogger(s, logger)

	output := buf.String()
	if !strings.Contains(output, "count=3") {
		t.Errorf("Expected 'count=3' in log output, got: %s", output)
	}
}

func TestSettingsLogValue(t *testing.T) {
	s := *validSettings()
	s.GitHubToken = "ghp_secret"

	val := SettingsLogValue(s)
	if val.Kind() != slog.KindGroup {
		t.Errorf("Expected group kind, got %v", val.Kind())
	}
	if strings.Contains(val.String(), "ghp_secret") {
		t.Error("Token should be masked in log value")
	}
}

func TestAuthSettingsLogValue(t *testing.T) {
	s := AuthSettings{
		Type:    AuthTypeAPIKey,
		APIKeys: []string{"key1", "key2"},
		Basic: BasicAuthSettings{
			Username: "user",
			Password: "pass",
		},
	}

	val := AuthSettingsLogValue(s)
	if val.Kind() != slog.KindGroup {
		t.Errorf("Expected group kind, got %v", val.Kind())
	}
}

func TestBasicAuthSettingsLogValue(t *testing.T) {
	s := BasicAuthSettings{
		Username: "admin",
		Password: "secret",
	}

	val := BasicAuthSettingsLogValue(s)
	if val.Kind() != slog.KindGroup {
		t.Errorf("Expected group kind, got %v", val.Kind())
	}
}
