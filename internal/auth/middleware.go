package auth

import (
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/sha1n/ruleflat/internal/config"
)

// APIKeyHeader is the header carrying an API key. A bearer token is accepted as well.
const APIKeyHeader = "X-API-Key"

// publicPaths bypass authentication (e.g., health checks)
var publicPaths = map[string]bool{
	"/health": true,
}

// verifier reports whether a request carries valid credentials
type verifier func(r *http.Request) bool

// NewMiddleware creates an authentication middleware for the MCP HTTP endpoints.
// Rejected requests are logged with logger, or slog.Default() if nil.
func NewMiddleware(settings config.AuthSettings, logger *slog.Logger) (func(http.Handler) http.Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	switch settings.Type {
	case config.AuthTypeNone, "":
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return guard(verifyBasic(settings.Basic), `Basic realm="ruleflat"`, logger), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return guard(verifyAPIKey(settings.APIKeys), "", logger), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

// guard rejects requests to non-public paths that fail verification.
func guard(verify verifier, challenge string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicPaths[r.URL.Path] || verify(r) {
				next.ServeHTTP(w, r)
				return
			}

			logger.Warn("Rejected unauthenticated request", "path", r.URL.Path, "remote_addr", r.RemoteAddr)
			if challenge != "" {
				w.Header().Set("WWW-Authenticate", challenge)
			}
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
		})
	}
}

func verifyBasic(settings config.BasicAuthSettings) verifier {
	return func(r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(settings.Username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(settings.Password)) == 1
		return ok && userMatch && passMatch
	}
}

func verifyAPIKey(apiKeys []string) verifier {
	return func(r *http.Request) bool {
		key := requestAPIKey(r)
		if key == "" {
			return false
		}
		for _, validKey := range apiKeys {
			if subtle.ConstantTimeCompare([]byte(key), []byte(validKey)) == 1 {
				return true
			}
		}
		return false
	}
}

// requestAPIKey extracts the key from the API key header or an Authorization bearer token.
func requestAPIKey(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
