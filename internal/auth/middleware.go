package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Claims are the verified claims of a request.
type Claims struct {
	Subject string   `json:"sub"`
	Scopes  []string `json:"scopes"`
}

// HasScope reports whether the claims grant scope.
func (c *Claims) HasScope(scope string) bool {
	return c != nil && slices.Contains(c.Scopes, scope)
}

type contextKey struct{}

// Scopes.
const (
	ScopeRead      = "read"
	ScopeControl   = "control"
	ScopeTelemetry = "telemetry"
)

// TokenVerifier verifies a raw bearer token.
type TokenVerifier interface {
	VerifyToken(token string) (*Claims, error)
}

var _ TokenVerifier = (*Verifier)(nil)

// Middleware authenticates requests and enforces scopes.
type Middleware struct {
	verifier TokenVerifier
	logger   *zap.SugaredLogger
}

// NewMiddleware creates a middleware that checks tokens with verifier.
func NewMiddleware(verifier TokenVerifier, logger *zap.SugaredLogger) *Middleware {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Middleware{verifier: verifier, logger: logger}
}

// RequireScope wraps next so that it only runs for requests carrying a valid
// token with scope. Missing or invalid tokens get 401, a valid token without
// the scope gets 403.
func (m *Middleware) RequireScope(scope string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := extractBearerToken(r)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required")
			return
		}

		claims, err := m.verifier.VerifyToken(token)
		if err != nil {
			m.logger.Debugf("Rejected token for %s %s: %v", r.Method, r.URL.Path, err)
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}
		if !claims.HasScope(scope) {
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Insufficient permissions")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), contextKey{}, claims)))
	}
}

func extractBearerToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", fmt.Errorf("missing Authorization header")
	}
	token, ok := strings.CutPrefix(authHeader, "Bearer ")
	if !ok {
		return "", fmt.Errorf("invalid Authorization header format")
	}
	if token == "" {
		return "", fmt.Errorf("empty token")
	}
	return token, nil
}

// ClaimsFromRequest returns the claims stored by RequireScope, or nil.
func ClaimsFromRequest(r *http.Request) *Claims {
	claims, _ := r.Context().Value(contextKey{}).(*Claims)
	return claims
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"result":        "error",
		"code":          code,
		"message":       message,
		"correlationId": fmt.Sprintf("%d", time.Now().UnixNano()),
	})
}
