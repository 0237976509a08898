package app

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/ruleflat/internal/auth"
	"github.com/sha1n/ruleflat/internal/config"
)

// StartSSEServer starts the SSE server with authentication
func StartSSEServer(s *mcp.Server, settings *config.Settings) error {
	srv, err := NewSSEServer(s, settings)
	if err != nil {
		return err
	}

	slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Serve.Auth.Type)
	return srv.ListenAndServe()
}

// NewSSEServer creates a new SSE server with authentication middleware.
// /health stays reachable without credentials.
func NewSSEServer(s *mcp.Server, settings *config.Settings) (*http.Server, error) {
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return s
	}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("/sse", sseHandler)

	authMiddleware, err := auth.NewMiddleware(settings.Serve.Auth, slog.Default())
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	addr := fmt.Sprintf("%s:%d", settings.Serve.Host, settings.Serve.Port)

	return &http.Server{
		Addr:    addr,
		Handler: authMiddleware(mux),
	}, nil
}
